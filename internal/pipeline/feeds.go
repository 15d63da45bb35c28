package pipeline

import (
	"errors"
	"fmt"
	"time"

	"github.com/gorilla/feeds"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/feed"
	"github.com/starford/tenderwatch/internal/matcher"
	"github.com/starford/tenderwatch/internal/models"
)

// Feed file names under feeds/.
const (
	AllFeed   = "procedimentos.xml"
	SeedsFeed = "seeds.xml"
)

// Feeds holds the channel metadata of both feeds.
type Feeds struct {
	All   feed.Channel
	Seeds feed.Channel
}

func (f Feeds) withDefaults() Feeds {
	if f.All.Title == "" {
		f.All.Title = "Procedimentos DRE"
	}
	if f.All.Description == "" {
		f.All.Description = "Procedimentos de contratação pública em curso (Série II, Parte L)"
	}
	if f.Seeds.Title == "" {
		f.Seeds.Title = "Procedimentos DRE - Seeds"
	}
	if f.Seeds.Description == "" {
		f.Seeds.Description = "Procedimentos em curso que correspondem aos filtros guardados"
	}
	for _, ch := range []*feed.Channel{&f.All, &f.Seeds} {
		if ch.Link == "" {
			ch.Link = feed.FallbackLink
		}
		if ch.Language == "" {
			ch.Language = "pt-PT"
		}
	}
	return f
}

// Documents builds both feeds for active: every notice, and the notices
// matching seeds with their labels.
func (f Feeds) Documents(active []models.Notice, seeds []models.Seed, now time.Time) (all, matched *feeds.RssFeed) {
	f = f.withDefaults()
	all = feed.Render(f.All, feed.Build(active, now), now)
	matched = feed.Render(f.Seeds, feed.Build(matcher.Filter(active, seeds), now), now)
	return all, matched
}

// Render returns the XML of both feeds.
func (f Feeds) Render(active []models.Notice, seeds []models.Seed, now time.Time) (all, matched []byte, err error) {
	allDoc, matchedDoc := f.Documents(active, seeds, now)
	all, err = encode(allDoc)
	if err != nil {
		return nil, nil, err
	}
	matched, err = encode(matchedDoc)
	if err != nil {
		return nil, nil, err
	}
	return all, matched, nil
}

func encode(doc *feeds.RssFeed) ([]byte, error) {
	out, err := feeds.ToXML(doc)
	if err != nil {
		return nil, fmt.Errorf("pipeline: encode feed: %w", err)
	}
	return []byte(out), nil
}

// RenderFeeds writes both feeds for active and returns the written paths.
func (p *Pipeline) RenderFeeds(active []models.Notice, seeds []models.Seed, now time.Time) ([]string, error) {
	all, matched, err := p.feeds.Render(active, seeds, now)
	if err != nil {
		return nil, fmt.Errorf("pipeline: render feeds: %w", err)
	}
	var written []string
	for _, f := range []struct {
		name string
		data []byte
	}{{AllFeed, all}, {SeedsFeed, matched}} {
		path, err := p.cols.WriteFeed(f.name, f.data)
		if err != nil {
			return written, fmt.Errorf("pipeline: write %s: %w", f.name, err)
		}
		written = append(written, path)
	}
	return written, nil
}

// RenderStored re-renders both feeds from the persisted active set and seeds.
// The active set is not re-filtered.
func (p *Pipeline) RenderStored() ([]string, error) {
	active, err := p.cols.LoadActive()
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("pipeline: load active set: %w", err)
	}
	seeds, err := p.cols.LoadSeeds()
	if err != nil {
		return nil, fmt.Errorf("pipeline: load seeds: %w", err)
	}
	return p.RenderFeeds(active, seeds, p.now().In(p.loc))
}
