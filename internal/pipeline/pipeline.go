// Package pipeline runs one batch: fetch, snapshot, notify, merge, persist,
// render feeds and archive.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/delta"
	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/lifecycle"
	"github.com/starford/tenderwatch/internal/matcher"
	"github.com/starford/tenderwatch/internal/merge"
	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/scraper"
	"github.com/starford/tenderwatch/internal/storage"
)

// Run sources recorded in the run log.
const (
	SourceScrape   = "scrape"
	SourceSnapshot = "snapshot"
)

// Summary describes a finished batch.
type Summary struct {
	Run          models.Run    `json:"run"`
	Notification delta.Outcome `json:"notification"`
	Feeds        []string      `json:"feeds,omitempty"`
}

// Deps wires a Pipeline. Source may be nil when only snapshots are replayed;
// Index may be nil when no archive is kept.
type Deps struct {
	Collections *storage.Collections
	Source      scraper.Source
	Notifier    *delta.Notifier
	Index       index.NoticeIndex
	Feeds       Feeds
	Location    *time.Location
	Logger      *slog.Logger
}

// Pipeline executes batches against one data directory.
type Pipeline struct {
	cols     *storage.Collections
	source   scraper.Source
	notifier *delta.Notifier
	index    index.NoticeIndex
	feeds    Feeds
	loc      *time.Location
	logger   *slog.Logger
	now      func() time.Time
	running  atomic.Bool
}

// New creates a Pipeline.
func New(d Deps) *Pipeline {
	if d.Location == nil {
		d.Location = time.Local
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Notifier == nil {
		d.Notifier = delta.NewNotifier(nopSink{}, d.Logger)
	}
	return &Pipeline{
		cols:     d.Collections,
		source:   d.Source,
		notifier: d.Notifier,
		index:    d.Index,
		feeds:    d.Feeds.withDefaults(),
		loc:      d.Location,
		logger:   d.Logger,
		now:      time.Now,
	}
}

// Run scrapes a fresh batch and processes it.
func (p *Pipeline) Run(ctx context.Context) (Summary, error) {
	if p.source == nil {
		return Summary{}, fmt.Errorf("pipeline: no source configured: %w", apperr.ErrInvalid)
	}
	return p.process(ctx, SourceScrape, p.source.Fetch)
}

// Running reports whether a batch is in progress.
func (p *Pipeline) Running() bool { return p.running.Load() }

// Replay processes the stored snapshot of day ("DD-MM-YYYY") instead of scraping.
func (p *Pipeline) Replay(ctx context.Context, day string) (Summary, error) {
	return p.process(ctx, SourceSnapshot+":"+day, func(context.Context) ([]models.Notice, error) {
		return p.cols.LoadSnapshot(day)
	})
}

func (p *Pipeline) process(ctx context.Context, source string, fetch func(context.Context) ([]models.Notice, error)) (Summary, error) {
	if !p.running.CompareAndSwap(false, true) {
		return Summary{}, fmt.Errorf("pipeline: run in progress: %w", apperr.ErrConflict)
	}
	defer p.running.Store(false)

	now := p.now().In(p.loc)
	sum := Summary{Run: models.Run{ID: uuid.NewString(), StartedAt: now, Source: source}}
	logger := p.logger.With(slog.String("run_id", sum.Run.ID), slog.String("source", source))
	logger.Info("pipeline: run started")

	incoming, err := fetch(ctx)
	if err != nil {
		// The persisted state is left untouched for this cycle.
		err = fmt.Errorf("pipeline: fetch batch: %w", err)
		logger.Error("pipeline: batch unreadable, merge skipped", slog.String("error", err.Error()))
		sum.Run.Error = err.Error()
		p.finish(logger, &sum)
		return sum, err
	}
	sum.Run.Fetched = len(incoming)

	if source == SourceScrape {
		if name, err := p.cols.SaveSnapshot(now, incoming); err != nil {
			logger.Warn("pipeline: snapshot not saved", slog.String("error", err.Error()))
		} else {
			logger.Info("pipeline: snapshot saved", slog.String("path", name), slog.Int("notices", len(incoming)))
		}
	}

	prior := p.loadPrior(logger, now)
	seeds := p.loadSeeds(logger)

	// Digests only carry notices still open for submissions.
	live, _ := lifecycle.Filter(incoming, now)
	outcome, err := p.notifier.Notify(ctx, live, prior, seeds)
	sum.Notification = outcome
	sum.Run.New = outcome.New
	sum.Run.Skipped = outcome.Reason
	if outcome.Sent {
		sum.Run.Sent = outcome.Matched
	}
	if err != nil {
		logger.Error("pipeline: notification failed", slog.String("error", err.Error()))
		sum.Run.Error = err.Error()
	}

	res := merge.Merge(incoming, prior, now)
	sum.Run.Added = res.Added
	sum.Run.Removed = res.Removed
	sum.Run.Expired = res.Expired
	sum.Run.Total = res.Total
	if err := p.cols.SaveActive(res.Active); err != nil {
		err = fmt.Errorf("pipeline: persist active set: %w", err)
		logger.Error("pipeline: active set not saved", slog.String("error", err.Error()))
		sum.Run.Error = err.Error()
		p.finish(logger, &sum)
		return sum, err
	}
	logger.Info("pipeline: active set saved",
		slog.Int("added", res.Added),
		slog.Int("removed", res.Removed),
		slog.Int("expired", res.Expired),
		slog.Int("total", res.Total),
	)

	written, err := p.RenderFeeds(res.Active, seeds, now)
	if err != nil {
		logger.Error("pipeline: feeds not rendered", slog.String("error", err.Error()))
	}
	sum.Feeds = written

	if p.index != nil {
		if _, err := p.index.SyncActive(matcher.Label(res.Active, seeds), now); err != nil {
			logger.Warn("pipeline: archive not updated", slog.String("error", err.Error()))
		}
	}

	p.finish(logger, &sum)
	return sum, nil
}

func (p *Pipeline) finish(logger *slog.Logger, sum *Summary) {
	sum.Run.FinishedAt = p.now().In(p.loc)
	if p.index != nil {
		if err := p.index.RecordRun(sum.Run); err != nil {
			logger.Warn("pipeline: run not recorded", slog.String("error", err.Error()))
		}
	}
	logger.Info("pipeline: run finished", slog.Duration("took", sum.Run.FinishedAt.Sub(sum.Run.StartedAt)))
}

// loadPrior returns the persisted active set. Missing or unreadable state is
// treated as empty; an unreadable file is moved aside first.
func (p *Pipeline) loadPrior(logger *slog.Logger, now time.Time) []models.Notice {
	prior, err := p.cols.LoadActive()
	switch {
	case err == nil:
		return prior
	case errors.Is(err, apperr.ErrNotFound):
		logger.Info("pipeline: no active set yet")
		return nil
	default:
		logger.Warn("pipeline: active set unreadable, starting empty", slog.String("error", err.Error()))
		if dst, qerr := p.cols.Quarantine(storage.ActiveFile, now); qerr != nil {
			logger.Warn("pipeline: quarantine failed", slog.String("error", qerr.Error()))
		} else {
			logger.Info("pipeline: active set quarantined", slog.String("path", dst))
		}
		return nil
	}
}

func (p *Pipeline) loadSeeds(logger *slog.Logger) []models.Seed {
	seeds, err := p.cols.LoadSeeds()
	if err != nil {
		logger.Warn("pipeline: seeds unreadable, matching nothing", slog.String("error", err.Error()))
		return nil
	}
	return seeds
}

// DetailCache indexes the notices of the active set and the latest snapshot
// so the scraper can skip detail pages it has already read.
func DetailCache(cols *storage.Collections, logger *slog.Logger) scraper.MapCache {
	var sets [][]models.Notice
	if days, err := cols.Snapshots(); err == nil && len(days) > 0 {
		if snap, err := cols.LoadSnapshot(days[0].Format(storage.SnapshotLayout)); err == nil {
			sets = append(sets, snap)
		} else {
			logger.Warn("pipeline: latest snapshot unreadable", slog.String("error", err.Error()))
		}
	}
	if active, err := cols.LoadActive(); err == nil {
		sets = append(sets, active)
	}
	return scraper.NewMapCache(sets...)
}

type nopSink struct{}

func (nopSink) Send(context.Context, []models.Notice) error { return nil }
