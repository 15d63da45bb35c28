// Package delta detects notices that are new since the previous cycle and
// forwards the ones matching a seed to a notification sink.
package delta

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/starford/tenderwatch/internal/matcher"
	"github.com/starford/tenderwatch/internal/models"
)

// Sink delivers matched notices. Implementations treat an empty slice as a no-op.
type Sink interface {
	Send(ctx context.Context, notices []models.Notice) error
}

// SkipNoPriorState is the Outcome reason used on a first run.
const SkipNoPriorState = "no prior state"

// FindNew returns the notices of current whose link is absent from prior.
// prior must be the state before the current merge. An empty prior yields
// nil: without a baseline nothing counts as new.
func FindNew(current, prior []models.Notice) []models.Notice {
	if len(prior) == 0 {
		return nil
	}
	known := models.Links(prior)
	var out []models.Notice
	for _, n := range current {
		if _, ok := known[n.Link]; ok {
			continue
		}
		known[n.Link] = struct{}{}
		out = append(out, n)
	}
	return out
}

// Outcome summarises one notification pass.
type Outcome struct {
	Skipped bool   `json:"skipped"`
	Reason  string `json:"reason,omitempty"`
	New     int    `json:"new"`
	Matched int    `json:"matched"`
	Sent    bool   `json:"sent"`
}

// Notifier ties FindNew, the matcher and a Sink together.
type Notifier struct {
	sink   Sink
	logger *slog.Logger
}

// NewNotifier creates a Notifier. A nil logger uses slog.Default.
func NewNotifier(sink Sink, logger *slog.Logger) *Notifier {
	if logger == nil {
		logger = slog.Default()
	}
	return &Notifier{sink: sink, logger: logger}
}

// Notify sends the seed-matching new notices of current to the sink.
//
// When prior is empty the pass is skipped entirely so a first run does not
// flood the recipient with the whole batch. A sink error is returned as is;
// callers log it and carry on.
func (nt *Notifier) Notify(ctx context.Context, current, prior []models.Notice, seeds []models.Seed) (Outcome, error) {
	if len(prior) == 0 {
		nt.logger.Info("delta: no prior active set, notification skipped")
		return Outcome{Skipped: true, Reason: SkipNoPriorState}, nil
	}

	fresh := FindNew(current, prior)
	out := Outcome{New: len(fresh)}
	if len(fresh) == 0 {
		nt.logger.Info("delta: no new notices")
		return out, nil
	}

	matched := matcher.Filter(fresh, seeds)
	out.Matched = len(matched)
	if len(matched) == 0 {
		nt.logger.Info("delta: new notices did not match any seed", slog.Int("new", len(fresh)))
		return out, nil
	}

	if err := nt.sink.Send(ctx, matched); err != nil {
		return out, fmt.Errorf("delta: send: %w", err)
	}
	out.Sent = true
	nt.logger.Info("delta: notification sent",
		slog.Int("new", len(fresh)),
		slog.Int("matched", len(matched)))
	return out, nil
}
