package storage

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"path"
	"sort"
	"strings"
	"time"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/models"
)

// Well-known locations inside the data directory.
const (
	ActiveFile     = "active.json"
	SeedsFile      = "seeds.json"
	SnapshotDir    = "snapshots"
	FeedDir        = "feeds"
	SnapshotLayout = "02-01-2006"
)

// Collections reads and writes the JSON collections as whole files.
type Collections struct {
	p Provider
}

// NewCollections wraps p.
func NewCollections(p Provider) *Collections {
	return &Collections{p: p}
}

// Provider returns the underlying file provider.
func (c *Collections) Provider() Provider { return c.p }

// LoadActive returns the persisted active set. A missing file yields
// apperr.ErrNotFound; a corrupt one a decode error.
func (c *Collections) LoadActive() ([]models.Notice, error) {
	return readList[models.Notice](c.p, ActiveFile)
}

// SaveActive replaces the persisted active set.
func (c *Collections) SaveActive(ns []models.Notice) error {
	return writeList(c.p, ActiveFile, stripLabels(ns))
}

// LoadSeeds returns the stored seeds, or an empty list when none exist.
func (c *Collections) LoadSeeds() ([]models.Seed, error) {
	seeds, err := readList[models.Seed](c.p, SeedsFile)
	if errors.Is(err, apperr.ErrNotFound) {
		return []models.Seed{}, nil
	}
	return seeds, err
}

// SaveSeeds replaces the stored seed list.
func (c *Collections) SaveSeeds(seeds []models.Seed) error {
	return writeList(c.p, SeedsFile, seeds)
}

// SnapshotName returns the snapshot file name for day.
func SnapshotName(day time.Time) string {
	return path.Join(SnapshotDir, day.Format(SnapshotLayout)+".json")
}

// SaveSnapshot writes the raw batch for day. A later save on the same day overwrites it.
func (c *Collections) SaveSnapshot(day time.Time, ns []models.Notice) (string, error) {
	name := SnapshotName(day)
	return name, writeList(c.p, name, ns)
}

// LoadSnapshot reads the snapshot for a "DD-MM-YYYY" day.
func (c *Collections) LoadSnapshot(day string) ([]models.Notice, error) {
	if _, err := time.Parse(SnapshotLayout, day); err != nil {
		return nil, fmt.Errorf("storage: snapshot day %q: %w", day, apperr.ErrInvalid)
	}
	return readList[models.Notice](c.p, path.Join(SnapshotDir, day+".json"))
}

// Snapshots lists snapshot days, newest first.
func (c *Collections) Snapshots() ([]time.Time, error) {
	metas, err := c.p.List(SnapshotDir, ".json")
	if err != nil {
		return nil, err
	}
	days := make([]time.Time, 0, len(metas))
	for _, m := range metas {
		base := strings.TrimSuffix(path.Base(m.Path), ".json")
		d, err := time.Parse(SnapshotLayout, base)
		if err != nil {
			continue
		}
		days = append(days, d)
	}
	sort.Slice(days, func(i, j int) bool { return days[i].After(days[j]) })
	return days, nil
}

// WriteFeed stores a rendered feed under feeds/.
func (c *Collections) WriteFeed(name string, data []byte) (string, error) {
	p := path.Join(FeedDir, name)
	return p, c.p.Write(p, data)
}

// Quarantine moves an unreadable collection aside so the next write does not
// destroy it. It returns the new path.
func (c *Collections) Quarantine(name string, now time.Time) (string, error) {
	dst := name + ".corrupt-" + now.Format("20060102T150405")
	if err := c.p.Move(name, dst); err != nil {
		return "", err
	}
	return dst, nil
}

func readList[T any](p Provider, name string) ([]T, error) {
	data, err := p.Read(name)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("storage: %s: %w", name, apperr.ErrNotFound)
		}
		return nil, err
	}
	if len(bytes.TrimSpace(data)) == 0 {
		return []T{}, nil
	}
	var out []T
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, fmt.Errorf("storage: decode %s: %w", name, err)
	}
	if out == nil {
		out = []T{}
	}
	return out, nil
}

func writeList[T any](p Provider, name string, items []T) error {
	if items == nil {
		items = []T{}
	}
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(items); err != nil {
		return fmt.Errorf("storage: encode %s: %w", name, err)
	}
	return p.Write(name, buf.Bytes())
}

// stripLabels drops transient match labels before persisting.
func stripLabels(ns []models.Notice) []models.Notice {
	out := make([]models.Notice, len(ns))
	for i, n := range ns {
		n.MatchedSeed = ""
		out[i] = n
	}
	return out
}
