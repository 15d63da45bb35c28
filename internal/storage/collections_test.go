package storage

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/models"
)

func TestLoadActive_Missing(t *testing.T) {
	c := NewCollections(tempRoot(t))
	_, err := c.LoadActive()
	if !errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want ErrNotFound", err)
	}
}

func TestLoadActive_Corrupt(t *testing.T) {
	fs := tempRoot(t)
	_ = fs.Write(ActiveFile, []byte("{not json"))
	c := NewCollections(fs)
	_, err := c.LoadActive()
	if err == nil || errors.Is(err, apperr.ErrNotFound) {
		t.Fatalf("err = %v, want decode error", err)
	}
}

func TestSaveActive_StripsLabelsAndKeepsOrder(t *testing.T) {
	c := NewCollections(tempRoot(t))
	in := []models.Notice{
		{Link: "b", MatchedSeed: "S1", Description: "Obras & reparações"},
		{Link: "a"},
	}
	if err := c.SaveActive(in); err != nil {
		t.Fatal(err)
	}
	got, err := c.LoadActive()
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 2 || got[0].Link != "b" || got[1].Link != "a" {
		t.Fatalf("got %+v", got)
	}
	if got[0].MatchedSeed != "" {
		t.Error("matched seed label persisted")
	}
	if in[0].MatchedSeed != "S1" {
		t.Error("input mutated")
	}

	raw, _ := c.Provider().Read(ActiveFile)
	if !strings.Contains(string(raw), "Obras & reparações") {
		t.Errorf("expected unescaped text, got %s", raw)
	}
}

func TestLoadSeeds_EmptyWhenMissing(t *testing.T) {
	c := NewCollections(tempRoot(t))
	seeds, err := c.LoadSeeds()
	if err != nil {
		t.Fatal(err)
	}
	if seeds == nil || len(seeds) != 0 {
		t.Errorf("seeds = %#v, want empty slice", seeds)
	}
}

func TestSnapshots(t *testing.T) {
	c := NewCollections(tempRoot(t))
	d1 := time.Date(2026, 1, 5, 0, 0, 0, 0, time.UTC)
	d2 := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

	name, err := c.SaveSnapshot(d1, []models.Notice{{Link: "x"}})
	if err != nil {
		t.Fatal(err)
	}
	if name != "snapshots/05-01-2026.json" {
		t.Errorf("name = %q", name)
	}
	if _, err := c.SaveSnapshot(d2, nil); err != nil {
		t.Fatal(err)
	}

	days, err := c.Snapshots()
	if err != nil {
		t.Fatal(err)
	}
	if len(days) != 2 || !days[0].Equal(d2) {
		t.Errorf("days = %v, want newest first", days)
	}

	got, err := c.LoadSnapshot("05-01-2026")
	if err != nil {
		t.Fatal(err)
	}
	if len(got) != 1 || got[0].Link != "x" {
		t.Errorf("snapshot = %+v", got)
	}

	if _, err := c.LoadSnapshot("../active"); !errors.Is(err, apperr.ErrInvalid) {
		t.Errorf("err = %v, want ErrInvalid", err)
	}
}

func TestQuarantine(t *testing.T) {
	fs := tempRoot(t)
	_ = fs.Write(ActiveFile, []byte("garbage"))
	c := NewCollections(fs)

	dst, err := c.Quarantine(ActiveFile, time.Date(2026, 3, 1, 8, 0, 0, 0, time.UTC))
	if err != nil {
		t.Fatal(err)
	}
	if dst != "active.json.corrupt-20260301T080000" {
		t.Errorf("dst = %q", dst)
	}
	if _, err := c.LoadActive(); !errors.Is(err, apperr.ErrNotFound) {
		t.Errorf("active should be gone, err = %v", err)
	}
}
