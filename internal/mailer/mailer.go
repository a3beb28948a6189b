package mailer

import (
	"context"
	"log/slog"
)

// Message is an outbound transactional email.
type Message struct {
	To      string
	Subject string
	HTML    string
}

// Mailer defines the interface for sending transactional email.
type Mailer interface {
	Send(ctx context.Context, msg Message) error
}

// LogMailer is a mailer implementation that logs messages instead of sending
// them. Used in development and tests where no email provider is configured.
type LogMailer struct {
	logger *slog.Logger
}

// NewLogMailer creates a mailer that only logs.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	return &LogMailer{logger: logger}
}

// Send logs the message details and always succeeds. The body is omitted
// because reset emails embed the raw token.
func (m *LogMailer) Send(ctx context.Context, msg Message) error {
	m.logger.InfoContext(ctx, "log mailer: email sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
	)
	return nil
}
