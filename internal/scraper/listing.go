// Package scraper fetches procurement notices from the gazette RSS listing
// and enriches each one from its detail page.
package scraper

import (
	"context"
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/gocolly/colly/v2"
	"github.com/microcosm-cc/bluemonday"
)

// DefaultFeedURL is the Série II Parte L listing.
const DefaultFeedURL = "https://files.diariodarepublica.pt/rss/serie2&parte=l-html.xml"

// DefaultUserAgent is sent when none is configured.
const DefaultUserAgent = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"

// Listing is one RSS item of the gazette feed.
type Listing struct {
	Title string
	Link  string
}

// HTTPConfig configures colly collectors.
type HTTPConfig struct {
	UserAgent   string
	Timeout     time.Duration
	MaxBodySize int
	Delay       time.Duration
}

func (c HTTPConfig) collector() *colly.Collector {
	ua := c.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	opts := []colly.CollectorOption{
		colly.UserAgent(ua),
		colly.AllowURLRevisit(),
		colly.DetectCharset(),
	}
	if c.MaxBodySize > 0 {
		opts = append(opts, colly.MaxBodySize(c.MaxBodySize))
	}
	col := colly.NewCollector(opts...)
	if c.Delay > 0 {
		_ = col.Limit(&colly.LimitRule{DomainGlob: "*", Parallelism: 1, Delay: c.Delay})
	}
	if c.Timeout > 0 {
		col.SetRequestTimeout(c.Timeout)
	}
	return col
}

// FetchListing downloads the RSS listing at url and returns its items in order.
// Items without a link are skipped.
func FetchListing(ctx context.Context, cfg HTTPConfig, url string) ([]Listing, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	c := cfg.collector()

	var (
		items  []Listing
		reqErr error
	)
	c.OnXML("//item", func(e *colly.XMLElement) {
		link := strings.TrimSpace(e.ChildText("link"))
		if link == "" {
			return
		}
		items = append(items, Listing{
			Title: plainText(e.ChildText("title")),
			Link:  link,
		})
	})
	c.OnError(func(r *colly.Response, err error) {
		reqErr = fmt.Errorf("scraper: listing %s: status %d: %w", url, r.StatusCode, err)
	})

	if err := c.Visit(url); err != nil {
		return nil, fmt.Errorf("scraper: visit listing: %w", err)
	}
	c.Wait()

	if reqErr != nil {
		return nil, reqErr
	}
	return items, nil
}

var stripTags = bluemonday.StrictPolicy()

// plainText drops any markup from an RSS text field.
func plainText(s string) string {
	return strings.TrimSpace(html.UnescapeString(stripTags.Sanitize(s)))
}
