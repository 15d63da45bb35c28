// Package noticeservice is the read and control surface shared by the HTTP
// API and the MCP server.
package noticeservice

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gorilla/feeds"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/matcher"
	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/pipeline"
	"github.com/starford/tenderwatch/internal/seeds"
	"github.com/starford/tenderwatch/internal/sse"
	"github.com/starford/tenderwatch/internal/storage"
)

// Feed names accepted by Feed.
const (
	FeedAll   = "all"
	FeedSeeds = "seeds"
)

const (
	defaultLimit = 50
	maxLimit     = 500
)

// Runner triggers one batch.
type Runner interface {
	Run(ctx context.Context) (pipeline.Summary, error)
}

// Publisher receives change events. *sse.Broker satisfies it.
type Publisher interface {
	Publish(event sse.Event)
	PublishRun(r models.Run)
}

// ActiveQuery filters ListActive. Empty fields do not filter.
type ActiveQuery struct {
	District string
	Seed     string
	Limit    int
	Offset   int
}

// ActivePage is one page of the active set.
type ActivePage struct {
	Notices []models.Notice `json:"notices"`
	Total   int             `json:"total"`
	Limit   int             `json:"limit"`
	Offset  int             `json:"offset"`
}

// NoticeSummary is a lightweight view of an active notice.
type NoticeSummary struct {
	Link            string `json:"link"`
	ProcedureNumber string `json:"procedure_number,omitempty"`
	Title           string `json:"title"`
	Entity          string `json:"entity"`
	District        string `json:"district,omitempty"`
	Deadline        string `json:"deadline,omitempty"`
	MatchedSeed     string `json:"matched_seed,omitempty"`
}

// Match is the answer of MatchNotice.
type Match struct {
	Notice  models.Notice `json:"notice"`
	Matched bool          `json:"matched"`
	Seed    *models.Seed  `json:"seed,omitempty"`
}

// Deps wires a Service. Index, Runner and Events are optional.
type Deps struct {
	Collections *storage.Collections
	Seeds       *seeds.Service
	Index       index.NoticeIndex
	Runner      Runner
	Events      Publisher
	Feeds       pipeline.Feeds
	Location    *time.Location
}

// Service coordinates the collections, the archive and the pipeline.
type Service struct {
	cols   *storage.Collections
	seeds  *seeds.Service
	db     index.NoticeIndex
	runner Runner
	events Publisher
	feeds  pipeline.Feeds
	loc    *time.Location
	now    func() time.Time
}

// NewService creates a notice service.
func NewService(d Deps) *Service {
	if d.Seeds == nil {
		d.Seeds = seeds.NewService(d.Collections)
	}
	if d.Location == nil {
		d.Location = time.Local
	}
	return &Service{
		cols:   d.Collections,
		seeds:  d.Seeds,
		db:     d.Index,
		runner: d.Runner,
		events: d.Events,
		feeds:  d.Feeds,
		loc:    d.Location,
		now:    time.Now,
	}
}

// ListActive returns a page of the active set, labelled with the current
// seeds. Seed filters by seed code and keeps every notice that seed matches.
func (s *Service) ListActive(ctx context.Context, q ActiveQuery) (*ActivePage, error) {
	active, list, err := s.labelledActive(ctx)
	if err != nil {
		return nil, err
	}

	var filter *models.Seed
	if q.Seed != "" {
		seed, ok := findSeed(list, q.Seed)
		if !ok {
			return nil, fmt.Errorf("seed %s: %w", q.Seed, apperr.ErrNotFound)
		}
		filter = &seed
	}

	matched := []models.Notice{}
	for _, n := range active {
		if q.District != "" && !strings.EqualFold(strings.TrimSpace(n.District), strings.TrimSpace(q.District)) {
			continue
		}
		if filter != nil && !matcher.Matches(n, *filter) {
			continue
		}
		matched = append(matched, n)
	}

	limit, offset := clampPage(q.Limit, q.Offset)
	page := &ActivePage{Notices: []models.Notice{}, Total: len(matched), Limit: limit, Offset: offset}
	if offset < len(matched) {
		end := min(offset+limit, len(matched))
		page.Notices = matched[offset:end]
	}
	return page, nil
}

// Summaries maps notices to their lightweight view.
func Summaries(ns []models.Notice) []NoticeSummary {
	out := make([]NoticeSummary, 0, len(ns))
	for _, n := range ns {
		out = append(out, NoticeSummary{
			Link:            n.Link,
			ProcedureNumber: n.ProcedureNumber,
			Title:           n.Title(),
			Entity:          n.AwardingEntity(),
			District:        models.FirstKnown(n.District),
			Deadline:        models.FirstKnown(n.SubmissionDeadline),
			MatchedSeed:     n.MatchedSeed,
		})
	}
	return out
}

// GetActive returns the active notice with link, labelled.
func (s *Service) GetActive(ctx context.Context, link string) (models.Notice, error) {
	active, _, err := s.labelledActive(ctx)
	if err != nil {
		return models.Notice{}, err
	}
	for _, n := range active {
		if n.Link == link {
			return n, nil
		}
	}
	return models.Notice{}, fmt.Errorf("notice %s: %w", link, apperr.ErrNotFound)
}

// MatchNotice reports which seed, if any, the active notice with link
// matches first.
func (s *Service) MatchNotice(ctx context.Context, link string) (*Match, error) {
	active, err := s.loadActive()
	if err != nil {
		return nil, err
	}
	list, err := s.seeds.List(ctx)
	if err != nil {
		return nil, err
	}
	for _, n := range active {
		if n.Link != link {
			continue
		}
		m := &Match{Notice: n}
		if seed, ok := matcher.FirstMatch(n, list); ok {
			m.Matched = true
			m.Seed = &seed
			m.Notice.MatchedSeed = seed.Label()
		}
		return m, nil
	}
	return nil, fmt.Errorf("notice %s: %w", link, apperr.ErrNotFound)
}

// Search runs a full-text query over the archive.
func (s *Service) Search(_ context.Context, query string, limit int) ([]index.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("empty query: %w", apperr.ErrInvalid)
	}
	db, err := s.archive()
	if err != nil {
		return nil, err
	}
	limit, _ = clampPage(limit, 0)
	res, err := db.Search(query, limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(res), nil
}

// Archived lists archived notices, including ones no longer active.
func (s *Service) Archived(_ context.Context, q index.ListQuery) ([]index.NoticeRow, int, error) {
	db, err := s.archive()
	if err != nil {
		return nil, 0, err
	}
	q.Limit, q.Offset = clampPage(q.Limit, q.Offset)
	rows, total, err := db.ListNotices(q)
	if err != nil {
		return nil, 0, err
	}
	return nonNilSlice(rows), total, nil
}

// ArchivedNotice returns one archived notice.
func (s *Service) ArchivedNotice(_ context.Context, link string) (*index.NoticeRow, error) {
	db, err := s.archive()
	if err != nil {
		return nil, err
	}
	return db.GetNotice(link)
}

// Runs returns the most recent batch runs.
func (s *Service) Runs(_ context.Context, limit int) ([]models.Run, error) {
	db, err := s.archive()
	if err != nil {
		return nil, err
	}
	runs, err := db.Runs(limit)
	if err != nil {
		return nil, err
	}
	return nonNilSlice(runs), nil
}

// Stats summarises the archive.
func (s *Service) Stats(_ context.Context) (index.Stats, error) {
	db, err := s.archive()
	if err != nil {
		return index.Stats{}, err
	}
	return db.Stats()
}

// TriggerRun runs one batch now. A batch already in progress fails with
// apperr.ErrConflict.
func (s *Service) TriggerRun(ctx context.Context) (pipeline.Summary, error) {
	if s.runner == nil {
		return pipeline.Summary{}, fmt.Errorf("no runner configured: %w", apperr.ErrInvalid)
	}
	sum, err := s.runner.Run(ctx)
	if errors.Is(err, apperr.ErrConflict) {
		return sum, err
	}
	if s.events != nil && sum.Run.ID != "" {
		s.events.PublishRun(sum.Run)
	}
	return sum, err
}

// ListSeeds returns all seeds.
func (s *Service) ListSeeds(ctx context.Context) ([]models.Seed, error) {
	return s.seeds.List(ctx)
}

// GetSeed returns one seed.
func (s *Service) GetSeed(ctx context.Context, code string) (models.Seed, error) {
	return s.seeds.Get(ctx, code)
}

// SearchSeeds returns seeds containing term.
func (s *Service) SearchSeeds(ctx context.Context, term string) ([]models.Seed, error) {
	return s.seeds.Search(ctx, term)
}

// AddSeed stores a new seed.
func (s *Service) AddSeed(ctx context.Context, in seeds.Input) (models.Seed, error) {
	seed, err := s.seeds.Add(ctx, in)
	if err != nil {
		return models.Seed{}, err
	}
	s.publish(sse.TypeSeedCreated, seed)
	return seed, nil
}

// RemoveSeed deletes a seed.
func (s *Service) RemoveSeed(ctx context.Context, code string) error {
	if err := s.seeds.Remove(ctx, code); err != nil {
		return err
	}
	s.publish(sse.TypeSeedDeleted, map[string]string{"code": code})
	return nil
}

// Feed builds the named feed from the stored active set and seeds.
func (s *Service) Feed(ctx context.Context, name string) (*feeds.RssFeed, error) {
	active, err := s.loadActive()
	if err != nil {
		return nil, err
	}
	list, err := s.seeds.List(ctx)
	if err != nil {
		return nil, err
	}
	all, matched := s.feeds.Documents(active, list, s.now().In(s.loc))
	switch name {
	case FeedAll:
		return all, nil
	case FeedSeeds:
		return matched, nil
	}
	return nil, fmt.Errorf("feed %s: %w", name, apperr.ErrNotFound)
}

// Ready reports whether the archive is reachable.
func (s *Service) Ready() error {
	if s.db == nil {
		return nil
	}
	return s.db.Ping()
}

func (s *Service) labelledActive(ctx context.Context) ([]models.Notice, []models.Seed, error) {
	active, err := s.loadActive()
	if err != nil {
		return nil, nil, err
	}
	list, err := s.seeds.List(ctx)
	if err != nil {
		return nil, nil, err
	}
	return matcher.Label(active, list), list, nil
}

// loadActive treats a missing active set as empty.
func (s *Service) loadActive() ([]models.Notice, error) {
	active, err := s.cols.LoadActive()
	if err != nil && !errors.Is(err, apperr.ErrNotFound) {
		return nil, fmt.Errorf("load active set: %w", err)
	}
	return active, nil
}

func (s *Service) archive() (index.NoticeIndex, error) {
	if s.db == nil {
		return nil, fmt.Errorf("archive disabled: %w", apperr.ErrNotFound)
	}
	return s.db, nil
}

func (s *Service) publish(kind string, data any) {
	if s.events != nil {
		s.events.Publish(sse.Event{Type: kind, Data: data})
	}
}

func findSeed(list []models.Seed, code string) (models.Seed, bool) {
	for _, seed := range list {
		if strings.EqualFold(seed.Code, code) {
			return seed, true
		}
	}
	return models.Seed{}, false
}

func clampPage(limit, offset int) (int, int) {
	if limit <= 0 {
		limit = defaultLimit
	}
	if limit > maxLimit {
		limit = maxLimit
	}
	if offset < 0 {
		offset = 0
	}
	return limit, offset
}

// nonNilSlice returns s or an empty slice so JSON encodes [] not null.
func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
