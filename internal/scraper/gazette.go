package scraper

import (
	"context"
	"log/slog"
	"time"

	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/parser"
)

// Source produces one incoming batch of notices.
type Source interface {
	Fetch(ctx context.Context) ([]models.Notice, error)
}

// Cache returns previously scraped notices by link.
type Cache interface {
	Lookup(link string) (models.Notice, bool)
}

// MapCache is a Cache over known notice sets. Later sets win.
type MapCache map[string]models.Notice

// NewMapCache indexes notices that carry full details.
func NewMapCache(sets ...[]models.Notice) MapCache {
	c := MapCache{}
	for _, set := range sets {
		for _, n := range set {
			if n.Link == "" || !models.Known(n.FullDetails) {
				continue
			}
			c[n.Link] = n
		}
	}
	return c
}

// Lookup implements Cache.
func (c MapCache) Lookup(link string) (models.Notice, bool) {
	n, ok := c[link]
	return n, ok
}

// Options configures a Gazette source.
type Options struct {
	FeedURL  string
	MaxItems int
	Location *time.Location
}

// Gazette scrapes the gazette listing and its detail pages.
type Gazette struct {
	http     HTTPConfig
	opts     Options
	renderer Renderer
	cache    Cache
	logger   *slog.Logger
}

// NewGazette creates a Gazette source. cache may be nil.
func NewGazette(httpCfg HTTPConfig, opts Options, renderer Renderer, cache Cache, logger *slog.Logger) *Gazette {
	if opts.FeedURL == "" {
		opts.FeedURL = DefaultFeedURL
	}
	if opts.Location == nil {
		opts.Location = time.Local
	}
	if cache == nil {
		cache = MapCache{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Gazette{http: httpCfg, opts: opts, renderer: renderer, cache: cache, logger: logger}
}

// Fetch lists the feed and builds one notice per item. A listing failure
// fails the batch; a detail failure only leaves that notice's fields unknown.
func (g *Gazette) Fetch(ctx context.Context) ([]models.Notice, error) {
	items, err := FetchListing(ctx, g.http, g.opts.FeedURL)
	if err != nil {
		return nil, err
	}
	if g.opts.MaxItems > 0 && len(items) > g.opts.MaxItems {
		items = items[:g.opts.MaxItems]
	}
	g.logger.Info("scraper: listing fetched", slog.Int("items", len(items)))

	out := make([]models.Notice, 0, len(items))
	var cached int
	for _, item := range items {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if n, ok := g.cache.Lookup(item.Link); ok {
			cached++
			out = append(out, n)
			continue
		}
		out = append(out, g.scrape(ctx, item))
	}
	g.logger.Info("scraper: batch ready",
		slog.Int("notices", len(out)),
		slog.Int("cached", cached),
	)
	return out, nil
}

func (g *Gazette) scrape(ctx context.Context, item Listing) models.Notice {
	n := blankNotice(item)

	html, err := g.renderer.Render(ctx, item.Link)
	if err != nil {
		g.logger.Warn("scraper: render failed", slog.String("link", item.Link), slog.String("error", err.Error()))
		return n
	}
	details, ok := ExtractDetails(html)
	if !ok {
		g.logger.Warn("scraper: details not found", slog.String("link", item.Link))
		return n
	}
	parser.Parse(details).Apply(&n)
	n.FullDetails = details
	if pub, ok := parser.PublicationDate(details, g.opts.Location); ok {
		n.PublicationDate = pub.Format("02-01-2006")
	}
	return n
}

// blankNotice fills every field with the unknown marker except the ones
// taken from the listing itself.
func blankNotice(item Listing) models.Notice {
	u := models.Unknown
	return models.Notice{
		Link:                item.Link,
		ProcedureNumber:     parser.ProcedureNumber(item.Title),
		Entity:              item.Title,
		AwardingEntityName:  u,
		TaxID:               u,
		District:            u,
		Municipality:        u,
		Parish:              u,
		Site:                u,
		Email:               u,
		ContractDesignation: u,
		Description:         u,
		BasePrice:           u,
		ExecutionDeadline:   u,
		SubmissionDeadline:  u,
		EUFunds:             u,
		PlatformName:        u,
		ProcedureURL:        u,
		AuthorName:          u,
		AuthorRole:          u,
		PublicationDate:     u,
		FullDetails:         u,
	}
}
