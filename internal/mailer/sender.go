package mailer

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/tenderwatch/internal/models"
)

// Transport delivers one rendered message.
type Transport interface {
	Deliver(ctx context.Context, msg Message) error
}

// DigestSink renders matched notices into a digest and hands it to a
// Transport. It satisfies delta.Sink.
type DigestSink struct {
	transport Transport
	to        []string
	now       func() time.Time
	logger    *slog.Logger
}

// NewDigestSink creates a sink that mails digests to recipients.
func NewDigestSink(t Transport, recipients []string, logger *slog.Logger) *DigestSink {
	if logger == nil {
		logger = slog.Default()
	}
	return &DigestSink{transport: t, to: recipients, now: time.Now, logger: logger}
}

// Send mails a digest of ns. An empty ns sends nothing.
func (s *DigestSink) Send(ctx context.Context, ns []models.Notice) error {
	if len(ns) == 0 {
		return nil
	}
	body, err := RenderDigest(ns)
	if err != nil {
		return err
	}
	msg := Message{To: s.to, Subject: Subject(s.now()), HTML: body}
	if err := s.transport.Deliver(ctx, msg); err != nil {
		return fmt.Errorf("mailer: deliver: %w", err)
	}
	s.logger.Info("mailer: digest sent", slog.Int("notices", len(ns)), slog.Any("to", s.to))
	return nil
}

// Noop logs messages instead of sending them.
type Noop struct {
	logger *slog.Logger
}

// NewNoop creates a logging-only transport.
func NewNoop(logger *slog.Logger) *Noop {
	if logger == nil {
		logger = slog.Default()
	}
	return &Noop{logger: logger}
}

// Deliver logs msg.
func (n *Noop) Deliver(_ context.Context, msg Message) error {
	n.logger.Info("mailer: noop delivery",
		slog.Any("to", msg.To),
		slog.String("subject", msg.Subject),
		slog.Int("html_bytes", len(msg.HTML)))
	return nil
}
