package feed

import (
	"strings"
	"testing"
	"time"

	"github.com/starford/tenderwatch/internal/models"
)

var renderTime = time.Date(2026, 3, 10, 9, 0, 0, 0, time.UTC)

func TestCleanURL(t *testing.T) {
	tests := []struct {
		in, want string
	}{
		{"  https://dre.pt/a b\n", "https://dre.pt/a%20b"},
		{"https://dre.pt/x\r\n/y", "https://dre.pt/x/y"},
		{"", FallbackLink},
		{" \n ", FallbackLink},
	}
	for _, tt := range tests {
		if got := CleanURL(tt.in); got != tt.want {
			t.Errorf("CleanURL(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestItemTitle(t *testing.T) {
	n := models.Notice{
		TaxID:              "506901173",
		AwardingEntityName: "Município de Sintra",
		Description:        "Contentores",
	}
	if got := ItemTitle(n); got != "[506901173] Município de Sintra - Contentores" {
		t.Errorf("title = %q", got)
	}

	n.MatchedSeed = "Resíduos"
	if got := ItemTitle(n); got != "[Resíduos] [506901173] Município de Sintra - Contentores" {
		t.Errorf("title = %q", got)
	}

	if got := ItemTitle(models.Notice{}); got != "[N/A] N/A - Procedimento sem título" {
		t.Errorf("empty title = %q", got)
	}
}

func TestBuild_GUIDsDistinctForSharedLinks(t *testing.T) {
	ns := []models.Notice{
		{Link: "https://dre.pt/1"},
		{Link: "https://dre.pt/1"},
		{Link: ""},
	}
	items := Build(ns, renderTime)
	if len(items) != 3 {
		t.Fatalf("len = %d", len(items))
	}
	seen := map[string]bool{}
	for _, it := range items {
		if it.GUID == it.Link {
			t.Errorf("GUID %q equals raw link", it.GUID)
		}
		if seen[it.GUID] {
			t.Errorf("duplicate GUID %q", it.GUID)
		}
		seen[it.GUID] = true
	}
	if items[2].Link != FallbackLink {
		t.Errorf("empty link = %q", items[2].Link)
	}
}

func TestBuild_PublishedFromDetails(t *testing.T) {
	ns := []models.Notice{
		{Link: "a", FullDetails: "x\nData de Envio do Anúncio: 05-03-2026\ny"},
		{Link: "b"},
	}
	items := Build(ns, renderTime)
	if want := time.Date(2026, 3, 5, 0, 0, 0, 0, time.UTC); !items[0].Published.Equal(want) {
		t.Errorf("published = %v, want %v", items[0].Published, want)
	}
	if !items[1].Published.Equal(renderTime) {
		t.Errorf("published = %v, want render time", items[1].Published)
	}
}

func TestBuild_DescriptionSanitized(t *testing.T) {
	ns := []models.Notice{{
		Link:        "https://dre.pt/1",
		Description: `<script>alert(1)</script>Obras`,
	}}
	items := Build(ns, renderTime)
	if strings.Contains(items[0].Description, "<script>") {
		t.Errorf("description not sanitized: %s", items[0].Description)
	}
	if !strings.Contains(items[0].Description, "https://dre.pt/1") {
		t.Errorf("description lost link: %s", items[0].Description)
	}
}

func TestBytes(t *testing.T) {
	ch := Channel{Title: "DRE", Link: "https://example.org", Description: "d", Language: "pt-PT"}
	out, err := Bytes(ch, Build([]models.Notice{{Link: "https://dre.pt/1", Description: "Obras"}}, renderTime), renderTime)
	if err != nil {
		t.Fatal(err)
	}
	s := string(out)
	for _, want := range []string{`<rss version="2.0"`, "<language>pt-PT</language>", "https://dre.pt/1#1", "Obras"} {
		if !strings.Contains(s, want) {
			t.Errorf("missing %q in %s", want, s)
		}
	}
}
