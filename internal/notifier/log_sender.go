package notifier

import (
	"context"
	"log"
)

// LogSender is the log-only backend used in development and tests when no
// broker is configured.  It implements EmailSender by writing one line per
// message to the standard logger.
type LogSender struct{}

func NewLogSender() *LogSender { return &LogSender{} }

func (s *LogSender) SendActivationEmail(ctx context.Context, email, activationLink string) error {
	subject, body := activationBody(activationLink)
	return s.SendEmail(ctx, email, subject, body)
}

func (s *LogSender) SendActivationCompleteEmail(ctx context.Context, email, loginLink string) error {
	subject, body := activationCompleteBody(loginLink)
	return s.SendEmail(ctx, email, subject, body)
}

func (s *LogSender) SendPasswordResetEmail(ctx context.Context, email, resetLink string) error {
	subject, body := passwordResetBody(resetLink)
	return s.SendEmail(ctx, email, subject, body)
}

func (s *LogSender) SendPasswordResetCompleteEmail(ctx context.Context, email, loginLink string) error {
	subject, body := passwordResetCompleteBody(loginLink)
	return s.SendEmail(ctx, email, subject, body)
}

func (s *LogSender) SendEmail(ctx context.Context, recipient, subject, htmlContent string) error {
	log.Printf("email: to=%s subject=%q bytes=%d", recipient, subject, len(htmlContent))
	return nil
}
