package mailer

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/resend/resend-go/v2"
)

// Resend delivers messages through the Resend API.
type Resend struct {
	client *resend.Client
	from   string
	logger *slog.Logger
}

// NewResend creates a Resend transport.
func NewResend(apiKey, from string, logger *slog.Logger) *Resend {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resend{client: resend.NewClient(apiKey), from: from, logger: logger}
}

// Deliver sends msg.
func (r *Resend) Deliver(ctx context.Context, msg Message) error {
	sent, err := r.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    r.from,
		To:      msg.To,
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return fmt.Errorf("resend: send: %w", err)
	}
	r.logger.Debug("resend: sent", slog.String("message_id", sent.Id))
	return nil
}
