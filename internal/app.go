package internal

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"time"

	"github.com/starford/tenderwatch/internal/delta"
	"github.com/starford/tenderwatch/internal/feed"
	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/mailer"
	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/noticeservice"
	"github.com/starford/tenderwatch/internal/pipeline"
	"github.com/starford/tenderwatch/internal/scraper"
	"github.com/starford/tenderwatch/internal/seeds"
	"github.com/starford/tenderwatch/internal/storage"
)

// App holds the components shared by every command.
type App struct {
	Config      *Config
	Logger      *slog.Logger
	Location    *time.Location
	Collections *storage.Collections
	Index       *index.DB
	Seeds       *seeds.Service
	Transport   mailer.Transport
	Pipeline    *pipeline.Pipeline
	Service     *noticeservice.Service
}

// NewLogger builds the JSON logger used across the application.
func NewLogger(w io.Writer, level slog.Level) *slog.Logger {
	if w == nil {
		w = os.Stdout
	}
	return slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{Level: level}))
}

// NewApp opens the data directory and the archive and wires the pipeline.
// events may be nil.
func NewApp(cfg *Config, logger *slog.Logger, events noticeservice.Publisher) (*App, error) {
	loc, err := cfg.App.Location()
	if err != nil {
		return nil, fmt.Errorf("resolve timezone: %w", err)
	}

	if err := os.MkdirAll(cfg.Data.Dir, 0o755); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}
	store, err := storage.NewFS(cfg.Data.Dir)
	if err != nil {
		return nil, fmt.Errorf("init storage: %w", err)
	}
	cols := storage.NewCollections(store)

	db, err := index.Open(cfg.SQLite.Path)
	if err != nil {
		return nil, fmt.Errorf("init index: %w", err)
	}

	transport := NewTransport(cfg.Notify, logger)
	sink := mailer.NewDigestSink(transport, cfg.Notify.Recipients(), logger)
	feeds := feedChannels(cfg.Feeds)

	p := pipeline.New(pipeline.Deps{
		Collections: cols,
		Source:      &gazetteSource{cfg: cfg.Scraper, cols: cols, loc: loc, logger: logger},
		Notifier:    delta.NewNotifier(sink, logger),
		Index:       db,
		Feeds:       feeds,
		Location:    loc,
		Logger:      logger,
	})

	seedSvc := seeds.NewService(cols)
	svc := noticeservice.NewService(noticeservice.Deps{
		Collections: cols,
		Seeds:       seedSvc,
		Index:       db,
		Runner:      p,
		Events:      events,
		Feeds:       feeds,
		Location:    loc,
	})

	return &App{
		Config:      cfg,
		Logger:      logger,
		Location:    loc,
		Collections: cols,
		Index:       db,
		Seeds:       seedSvc,
		Transport:   transport,
		Pipeline:    p,
		Service:     svc,
	}, nil
}

// Close releases the archive.
func (a *App) Close() error {
	return a.Index.Close()
}

// NewTransport builds the digest transport selected by cfg.Driver.
func NewTransport(cfg NotifyConfig, logger *slog.Logger) mailer.Transport {
	switch cfg.Driver {
	case NotifyDriverSMTP:
		return mailer.NewSMTP(mailer.SMTPConfig{
			Server:   cfg.SMTP.Server,
			Port:     cfg.SMTP.Port,
			Username: cfg.SMTP.Username,
			Password: cfg.SMTP.Password,
			From:     cfg.SMTP.From,
			Timeout:  cfg.SMTP.Timeout,
		})
	case NotifyDriverResend:
		return mailer.NewResend(cfg.Resend.APIKey, cfg.Resend.From, logger)
	default:
		return mailer.NewNoop(logger)
	}
}

func feedChannels(cfg FeedsConfig) pipeline.Feeds {
	return pipeline.Feeds{
		All: feed.Channel{
			Title:       cfg.Title,
			Link:        cfg.BaseURL,
			Description: cfg.Description,
		},
		Seeds: feed.Channel{
			Title:       cfg.SeedsTitle,
			Link:        cfg.BaseURL,
			Description: cfg.SeedsDescription,
		},
	}
}

// gazetteSource starts a renderer for each batch and seeds the detail cache
// from what is already on disk.
type gazetteSource struct {
	cfg    ScraperConfig
	cols   *storage.Collections
	loc    *time.Location
	logger *slog.Logger
}

func (s *gazetteSource) Fetch(ctx context.Context) ([]models.Notice, error) {
	httpCfg := scraper.HTTPConfig{
		UserAgent: s.cfg.UserAgent,
		Timeout:   s.cfg.RequestTimeout,
		Delay:     s.cfg.Delay,
	}
	renderCfg := httpCfg
	renderCfg.Timeout = s.cfg.RenderTimeout

	renderer, err := scraper.NewRenderer(s.cfg.Renderer, renderCfg)
	if err != nil {
		return nil, err
	}
	defer func() {
		if err := renderer.Close(); err != nil {
			s.logger.Warn("renderer close failed", slog.String("error", err.Error()))
		}
	}()

	g := scraper.NewGazette(httpCfg, scraper.Options{
		FeedURL:  s.cfg.FeedURL,
		MaxItems: s.cfg.MaxItems,
		Location: s.loc,
	}, renderer, pipeline.DetailCache(s.cols, s.logger), s.logger)
	return g.Fetch(ctx)
}
