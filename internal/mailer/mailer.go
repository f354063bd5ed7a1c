// Package mailer sends email on a bounded worker pool.
package mailer

import (
	"context"
	"log/slog"
	"strings"
)

// Message is a rendered email ready for delivery.
type Message struct {
	To      string
	ReplyTo string
	Subject string
	Text    string
	HTML    string
}

// Sender delivers a single message. Implementations block until the
// transport accepted or rejected it.
type Sender interface {
	Send(ctx context.Context, msg Message) error
}

// LogSender logs messages instead of delivering them. Used when mail
// delivery is disabled.
type LogSender struct {
	logger *slog.Logger
}

// NewLogSender creates a LogSender.
func NewLogSender(logger *slog.Logger) *LogSender {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogSender{logger: logger}
}

func (s *LogSender) Send(_ context.Context, msg Message) error {
	s.logger.Info("email delivery disabled, message not sent",
		slog.String("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("text_bytes", len(msg.Text)),
		slog.Bool("html", strings.TrimSpace(msg.HTML) != ""))
	return nil
}
