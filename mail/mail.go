// Package mail delivers account e-mails. Callers hand messages to a Dispatcher and never wait
// for SMTP.
package mail

import "context"

type Message struct {
	To      string
	Subject string
	Body    string
}

// Sender delivers a single message synchronously
type Sender interface {
	Send(ctx context.Context, msg Message) error
}
