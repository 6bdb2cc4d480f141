// Package notifier delivers the account-lifecycle emails.  EmailSender is
// the collaborator interface the auth service talks to; any concrete
// backend (queue-backed worker, SMTP, log-only stub for tests) implements
// it.  Delivery failures never roll back the mutation that preceded them;
// callers log and move on.
package notifier

import (
	"context"
	"fmt"
)

// EmailSender abstracts outbound email.  Four templated sends cover the
// account lifecycle; SendEmail is the generic hook used elsewhere in the
// platform (e.g. comment reply notifications).
type EmailSender interface {
	SendActivationEmail(ctx context.Context, email, activationLink string) error
	SendActivationCompleteEmail(ctx context.Context, email, loginLink string) error
	SendPasswordResetEmail(ctx context.Context, email, resetLink string) error
	SendPasswordResetCompleteEmail(ctx context.Context, email, loginLink string) error
	SendEmail(ctx context.Context, recipient, subject, htmlContent string) error
}

// Fixed subjects/templates for the four lifecycle messages.
func activationBody(link string) (string, string) {
	return "Activate your account",
		fmt.Sprintf(`<p>Welcome! Please activate your account by following <a href="%s">this link</a>. The link is valid for 24 hours.</p>`, link)
}

func activationCompleteBody(link string) (string, string) {
	return "Your account is now active",
		fmt.Sprintf(`<p>Your account has been activated. You can now <a href="%s">log in</a>.</p>`, link)
}

func passwordResetBody(link string) (string, string) {
	return "Password reset requested",
		fmt.Sprintf(`<p>A password reset was requested for your account. Follow <a href="%s">this link</a> to set a new password. The link is valid for 24 hours. If you did not request this, ignore this email.</p>`, link)
}

func passwordResetCompleteBody(link string) (string, string) {
	return "Your password has been reset",
		fmt.Sprintf(`<p>Your password was changed successfully. You can now <a href="%s">log in</a> with your new password.</p>`, link)
}
