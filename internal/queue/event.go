// Package queue defines message payloads exchanged over the message broker.
package queue

// EmailQueueName is the durable queue carrying outbound email messages.
const EmailQueueName = "email.outbound"

// EmailMessage is published whenever the application wants an email
// delivered.  The delivery worker consumes these messages; the web process
// never blocks on, or fails because of, actual delivery.
type EmailMessage struct {
	ID        string `json:"id"`
	Recipient string `json:"recipient"`
	Subject   string `json:"subject"`
	HTMLBody  string `json:"html_body"`
	QueuedAt  string `json:"queued_at"`
}
