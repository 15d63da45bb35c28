package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/pipeline"
)

func writeConfig(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	body := fmt.Sprintf(`app:
  log_level: error
  http:
    port: 8080
  timezone: UTC
data:
  dir: %s
sqlite:
  path: %s
scraper:
  renderer: static
`, filepath.Join(dir, "data"), filepath.Join(dir, "test.db"))
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func runCLI(t *testing.T, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	root := newRootCommand()
	root.Writer = &out
	err := root.Run(context.Background(), append([]string{"tenderwatch"}, args...))
	return out.String(), err
}

func TestSeedsCommands(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, "-c", cfg, "seeds", "add", "--code", "RES", "--district", "Lisboa", "--tag", "resíduos", "--tag", "contentores")
	if err != nil {
		t.Fatalf("add: %v", err)
	}
	if !strings.Contains(out, "added RES (resíduos, contentores)") {
		t.Errorf("add output = %q", out)
	}

	if _, err := runCLI(t, "-c", cfg, "seeds", "add", "--code", "RES"); err == nil {
		t.Error("duplicate add should fail")
	}

	out, err = runCLI(t, "-c", cfg, "seeds", "list", "--json")
	if err != nil {
		t.Fatalf("list: %v", err)
	}
	var list []models.Seed
	if err := json.Unmarshal([]byte(out), &list); err != nil {
		t.Fatalf("decode %q: %v", out, err)
	}
	if len(list) != 1 || list[0].District != "Lisboa" {
		t.Errorf("list = %+v", list)
	}

	out, err = runCLI(t, "-c", cfg, "seeds", "list")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "RES") || !strings.Contains(out, "1 seeds") {
		t.Errorf("table = %q", out)
	}

	out, err = runCLI(t, "-c", cfg, "seeds", "search", "lisboa")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "RES") {
		t.Errorf("search = %q", out)
	}
	if _, err := runCLI(t, "-c", cfg, "seeds", "search"); err == nil {
		t.Error("search without a term should fail")
	}

	if _, err := runCLI(t, "-c", cfg, "seeds", "remove", "RES"); err != nil {
		t.Fatalf("remove: %v", err)
	}
	if _, err := runCLI(t, "-c", cfg, "seeds", "show", "RES"); err == nil {
		t.Error("show after remove should fail")
	}
}

func TestRunFromMissingSnapshot(t *testing.T) {
	cfg := writeConfig(t)
	if _, err := runCLI(t, "-c", cfg, "run", "--from-snapshot", "01-01-2020"); err == nil {
		t.Error("replaying a missing snapshot should fail")
	}
}

func TestNoticesAndFeedsOnEmptyData(t *testing.T) {
	cfg := writeConfig(t)

	out, err := runCLI(t, "-c", cfg, "notices", "--json")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, `"total": 0`) {
		t.Errorf("notices = %q", out)
	}

	out, err = runCLI(t, "-c", cfg, "feeds")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, pipeline.AllFeed) || !strings.Contains(out, pipeline.SeedsFeed) {
		t.Errorf("feeds = %q", out)
	}

	if _, err := runCLI(t, "-c", cfg, "notify-test"); err == nil {
		t.Error("notify-test with nothing matched should fail")
	}
}

func TestRenderSummary(t *testing.T) {
	var buf bytes.Buffer
	start := time.Date(2026, 3, 10, 7, 0, 0, 0, time.UTC)
	renderSummary(&buf, pipeline.Summary{
		Run: models.Run{
			ID:         "r-1",
			Source:     pipeline.SourceScrape,
			StartedAt:  start,
			FinishedAt: start.Add(90 * time.Second),
			Fetched:    12,
			Added:      3,
			Total:      40,
		},
	})
	out := buf.String()
	for _, want := range []string{"Run r-1", "scrape", "1m30s", "nothing matched"} {
		if !strings.Contains(out, want) {
			t.Errorf("summary missing %q:\n%s", want, out)
		}
	}
}
