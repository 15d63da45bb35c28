// Package seeds manages the stored seed list.
package seeds

import (
	"context"
	"crypto/rand"
	"fmt"
	"math/big"
	"regexp"
	"strings"
	"sync"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/models"
)

// Store is the persistence the service needs.
type Store interface {
	LoadSeeds() ([]models.Seed, error)
	SaveSeeds([]models.Seed) error
}

// Input is the payload for Add.
type Input struct {
	Code      string
	Name      string
	District  string
	TitleTags []string
	Tags      []string
}

var codeRe = regexp.MustCompile(`^[A-Za-z0-9_-]+$`)

// Validate checks field shapes. An input with no district and no tags is a
// valid wildcard.
func (in Input) Validate() error {
	return validation.ValidateStruct(&in,
		validation.Field(&in.Code, validation.Length(0, 64), validation.Match(codeRe)),
		validation.Field(&in.Name, validation.Length(0, 200)),
		validation.Field(&in.District, validation.Length(0, 100)),
		validation.Field(&in.TitleTags, validation.Each(validation.Length(1, 100))),
		validation.Field(&in.Tags, validation.Each(validation.Length(1, 100))),
	)
}

// Service coordinates seed reads and writes. Writes are serialised within
// the process; cross-process exclusion is left to the scheduler.
type Service struct {
	store Store
	now   func() time.Time
	mu    sync.Mutex
}

// NewService creates a seed service.
func NewService(store Store) *Service {
	return &Service{store: store, now: time.Now}
}

// Add stores a new seed. A duplicate code fails with apperr.ErrAlreadyExists
// and nothing is written.
func (s *Service) Add(_ context.Context, in Input) (models.Seed, error) {
	in = clean(in)
	if err := in.Validate(); err != nil {
		return models.Seed{}, fmt.Errorf("%w: %v", apperr.ErrInvalid, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.LoadSeeds()
	if err != nil {
		return models.Seed{}, fmt.Errorf("seeds: load: %w", err)
	}

	if in.Code == "" {
		in.Code, err = uniqueCode(list)
		if err != nil {
			return models.Seed{}, err
		}
	}
	if indexOf(list, in.Code) >= 0 {
		return models.Seed{}, fmt.Errorf("seed %s: %w", in.Code, apperr.ErrAlreadyExists)
	}

	seed := models.Seed{
		Code:      in.Code,
		Name:      in.Name,
		District:  in.District,
		TitleTags: in.TitleTags,
		Tags:      in.Tags,
		CreatedAt: s.now(),
	}
	if seed.Name == "" {
		seed.Name = DefaultName(seed)
	}

	next := make([]models.Seed, 0, len(list)+1)
	next = append(next, list...)
	next = append(next, seed)
	if err := s.store.SaveSeeds(next); err != nil {
		return models.Seed{}, fmt.Errorf("seeds: save: %w", err)
	}
	return seed, nil
}

// Remove deletes the seed with code.
func (s *Service) Remove(_ context.Context, code string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	list, err := s.store.LoadSeeds()
	if err != nil {
		return fmt.Errorf("seeds: load: %w", err)
	}
	i := indexOf(list, code)
	if i < 0 {
		return fmt.Errorf("seed %s: %w", code, apperr.ErrNotFound)
	}
	next := make([]models.Seed, 0, len(list)-1)
	next = append(next, list[:i]...)
	next = append(next, list[i+1:]...)
	if err := s.store.SaveSeeds(next); err != nil {
		return fmt.Errorf("seeds: save: %w", err)
	}
	return nil
}

// List returns all seeds in stored order.
func (s *Service) List(_ context.Context) ([]models.Seed, error) {
	list, err := s.store.LoadSeeds()
	if err != nil {
		return nil, fmt.Errorf("seeds: load: %w", err)
	}
	return nonNilSlice(list), nil
}

// Get returns the seed with code.
func (s *Service) Get(_ context.Context, code string) (models.Seed, error) {
	list, err := s.store.LoadSeeds()
	if err != nil {
		return models.Seed{}, fmt.Errorf("seeds: load: %w", err)
	}
	i := indexOf(list, code)
	if i < 0 {
		return models.Seed{}, fmt.Errorf("seed %s: %w", code, apperr.ErrNotFound)
	}
	return list[i], nil
}

// Search returns seeds whose code, name, district or tags contain term,
// ignoring case.
func (s *Service) Search(ctx context.Context, term string) ([]models.Seed, error) {
	list, err := s.List(ctx)
	if err != nil {
		return nil, err
	}
	term = strings.ToLower(strings.TrimSpace(term))
	if term == "" {
		return list, nil
	}
	out := []models.Seed{}
	for _, seed := range list {
		fields := []string{seed.Code, seed.Name, seed.District}
		fields = append(fields, seed.TitleTags...)
		fields = append(fields, seed.Tags...)
		for _, f := range fields {
			if strings.Contains(strings.ToLower(f), term) {
				out = append(out, seed)
				break
			}
		}
	}
	return out, nil
}

// DefaultName derives a display name: the joined tags, else the district
// filter, else the code.
func DefaultName(seed models.Seed) string {
	tags := append(append([]string{}, seed.TitleTags...), seed.Tags...)
	if len(tags) > 0 {
		return strings.Join(tags, ", ")
	}
	if seed.District != "" {
		return "Filtro: " + seed.District
	}
	return seed.Code
}

const codeAlphabet = "ABCDEFGHIJKLMNOPQRSTUVWXYZ0123456789"

// GenerateCode returns "SEED" followed by six characters from [A-Z0-9].
func GenerateCode() (string, error) {
	var b strings.Builder
	b.WriteString("SEED")
	max := big.NewInt(int64(len(codeAlphabet)))
	for i := 0; i < 6; i++ {
		n, err := rand.Int(rand.Reader, max)
		if err != nil {
			return "", fmt.Errorf("seeds: generate code: %w", err)
		}
		b.WriteByte(codeAlphabet[n.Int64()])
	}
	return b.String(), nil
}

func uniqueCode(list []models.Seed) (string, error) {
	for i := 0; i < 10; i++ {
		code, err := GenerateCode()
		if err != nil {
			return "", err
		}
		if indexOf(list, code) < 0 {
			return code, nil
		}
	}
	return "", fmt.Errorf("seeds: could not generate a free code: %w", apperr.ErrConflict)
}

func indexOf(list []models.Seed, code string) int {
	for i, s := range list {
		if s.Code == code {
			return i
		}
	}
	return -1
}

func clean(in Input) Input {
	in.Code = strings.TrimSpace(in.Code)
	in.Name = strings.TrimSpace(in.Name)
	in.District = strings.TrimSpace(in.District)
	in.TitleTags = cleanTags(in.TitleTags)
	in.Tags = cleanTags(in.Tags)
	return in
}

// cleanTags trims tags, drops blanks and case-insensitive duplicates.
func cleanTags(tags []string) []string {
	var out []string
	seen := make(map[string]struct{}, len(tags))
	for _, t := range tags {
		t = strings.TrimSpace(t)
		if t == "" {
			continue
		}
		key := strings.ToLower(t)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, t)
	}
	return out
}

func nonNilSlice[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}
