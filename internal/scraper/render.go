package scraper

import (
	"context"
	"fmt"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/playwright-community/playwright-go"
)

// Renderer returns the HTML of a detail page.
type Renderer interface {
	Render(ctx context.Context, url string) (string, error)
	Close() error
}

// Renderer kinds accepted in configuration.
const (
	RendererBrowser = "browser"
	RendererStatic  = "static"
)

// StaticRenderer fetches pages without running scripts.
type StaticRenderer struct {
	cfg HTTPConfig
}

// NewStaticRenderer creates a colly-backed renderer.
func NewStaticRenderer(cfg HTTPConfig) *StaticRenderer {
	return &StaticRenderer{cfg: cfg}
}

// Render downloads url and returns the body.
func (s *StaticRenderer) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	c := s.cfg.collector()

	var (
		body   string
		reqErr error
	)
	c.OnResponse(func(r *colly.Response) {
		body = string(r.Body)
	})
	c.OnError(func(r *colly.Response, err error) {
		reqErr = fmt.Errorf("scraper: fetch %s: status %d: %w", url, r.StatusCode, err)
	})
	if err := c.Visit(url); err != nil {
		return "", fmt.Errorf("scraper: visit %s: %w", url, err)
	}
	c.Wait()
	if reqErr != nil {
		return "", reqErr
	}
	return body, nil
}

// Close is a no-op.
func (s *StaticRenderer) Close() error { return nil }

// BrowserRenderer renders pages in headless Chromium so client-side content
// is present in the returned HTML.
type BrowserRenderer struct {
	pw      *playwright.Playwright
	browser playwright.Browser
	timeout time.Duration
}

// NewBrowserRenderer starts Playwright and launches Chromium.
func NewBrowserRenderer(timeout time.Duration) (*BrowserRenderer, error) {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	pw, err := playwright.Run()
	if err != nil {
		return nil, fmt.Errorf("scraper: start playwright: %w", err)
	}
	browser, err := pw.Chromium.Launch(playwright.BrowserTypeLaunchOptions{
		Headless: playwright.Bool(true),
	})
	if err != nil {
		_ = pw.Stop()
		return nil, fmt.Errorf("scraper: launch chromium: %w", err)
	}
	return &BrowserRenderer{pw: pw, browser: browser, timeout: timeout}, nil
}

// Render opens url in a fresh page and returns the rendered document.
func (b *BrowserRenderer) Render(ctx context.Context, url string) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", err
	}
	page, err := b.browser.NewPage()
	if err != nil {
		return "", fmt.Errorf("scraper: new page: %w", err)
	}
	defer page.Close()

	if _, err := page.Goto(url, playwright.PageGotoOptions{
		WaitUntil: playwright.WaitUntilStateNetworkidle,
		Timeout:   playwright.Float(float64(b.timeout.Milliseconds())),
	}); err != nil {
		return "", fmt.Errorf("scraper: goto %s: %w", url, err)
	}
	html, err := page.Content()
	if err != nil {
		return "", fmt.Errorf("scraper: page content: %w", err)
	}
	return html, nil
}

// Close shuts the browser and the Playwright driver down.
func (b *BrowserRenderer) Close() error {
	if err := b.browser.Close(); err != nil {
		_ = b.pw.Stop()
		return fmt.Errorf("scraper: close browser: %w", err)
	}
	return b.pw.Stop()
}

// NewRenderer builds the renderer named by kind.
func NewRenderer(kind string, cfg HTTPConfig) (Renderer, error) {
	switch kind {
	case RendererStatic:
		return NewStaticRenderer(cfg), nil
	case RendererBrowser, "":
		return NewBrowserRenderer(cfg.Timeout)
	default:
		return nil, fmt.Errorf("scraper: unknown renderer %q", kind)
	}
}
