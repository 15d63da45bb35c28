package internal

import (
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/starford/tenderwatch/internal/mailer"
	"github.com/starford/tenderwatch/internal/testutil"
)

func testApp(t *testing.T) *App {
	t.Helper()
	dir := t.TempDir()
	cfg := NewDefaultConfig()
	cfg.Data.Dir = filepath.Join(dir, "data")
	cfg.SQLite.Path = filepath.Join(dir, "tenderwatch.db")
	cfg.Scraper.Renderer = "static"
	if err := cfg.Validate(); err != nil {
		t.Fatal(err)
	}

	a, err := NewApp(cfg, testutil.Logger(), nil)
	if err != nil {
		t.Fatal(err)
	}
	t.Cleanup(func() { a.Close() })
	return a
}

func TestNewHTTPHandler_Health(t *testing.T) {
	a := testApp(t)
	h := NewHTTPHandler(a, nil)

	for _, path := range []string{"/health/live", "/health/ready"} {
		w := httptest.NewRecorder()
		h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, path, nil))
		if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), `"ok"`) {
			t.Errorf("%s = %d %s", path, w.Code, w.Body.String())
		}
	}
}

func TestNewHTTPHandler_ReadyFailsWhenArchiveClosed(t *testing.T) {
	a := testApp(t)
	h := NewHTTPHandler(a, nil)
	_ = a.Index.Close()

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/health/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("ready = %d, want 503", w.Code)
	}
}

func TestNewHTTPHandler_Routes(t *testing.T) {
	a := testApp(t)
	a.Config.Auth = AuthConfig{Mode: AuthModeToken, Token: "s3cret"}
	h := NewHTTPHandler(a, nil)

	w := httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/seeds", nil))
	if w.Code != http.StatusUnauthorized {
		t.Errorf("api without token = %d, want 401", w.Code)
	}

	w = httptest.NewRecorder()
	h.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/feeds/all.xml", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "<rss") {
		t.Errorf("feed = %d %s", w.Code, w.Body.String())
	}
}

func TestNewTransport(t *testing.T) {
	logger := testutil.Logger()
	if _, ok := NewTransport(NotifyConfig{Driver: NotifyDriverSMTP}, logger).(*mailer.SMTP); !ok {
		t.Error("smtp driver should build an SMTP transport")
	}
	if _, ok := NewTransport(NotifyConfig{Driver: NotifyDriverResend}, logger).(*mailer.Resend); !ok {
		t.Error("resend driver should build a Resend transport")
	}
	if _, ok := NewTransport(NotifyConfig{Driver: NotifyDriverNoop}, logger).(*mailer.Noop); !ok {
		t.Error("noop driver should build a Noop transport")
	}
}

func TestFeedChannels(t *testing.T) {
	f := feedChannels(FeedsConfig{BaseURL: "https://feeds.example.pt", Title: "Todos", SeedsTitle: "Seeds"})
	if f.All.Link != "https://feeds.example.pt" || f.Seeds.Link != "https://feeds.example.pt" {
		t.Errorf("links = %q / %q", f.All.Link, f.Seeds.Link)
	}
	if f.All.Title != "Todos" || f.Seeds.Title != "Seeds" {
		t.Errorf("titles = %q / %q", f.All.Title, f.Seeds.Title)
	}
}
