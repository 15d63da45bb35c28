// Package feed turns notices into RSS items.
package feed

import (
	"bytes"
	"fmt"
	"html/template"
	"io"
	"strings"
	"time"

	"github.com/gorilla/feeds"
	"github.com/microcosm-cc/bluemonday"

	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/parser"
)

// FallbackLink replaces an empty notice link.
const FallbackLink = "https://diariodarepublica.pt"

const untitled = "Procedimento sem título"

// Item is one rendered feed entry.
type Item struct {
	Title       string
	Link        string
	GUID        string
	Description string
	Published   time.Time
}

// Channel describes the feed itself.
type Channel struct {
	Title       string
	Link        string
	Description string
	Language    string
}

// CleanURL strips whitespace and line breaks and percent-encodes interior spaces.
func CleanURL(raw string) string {
	s := strings.TrimSpace(raw)
	s = strings.NewReplacer("\n", "", "\r", "", " ", "%20").Replace(s)
	if s == "" {
		return FallbackLink
	}
	return s
}

// ItemTitle renders "[seed] [tax id] entity - title". The seed part is
// omitted when n carries no match label.
func ItemTitle(n models.Notice) string {
	title := orUnknown(n.Title())
	if title == models.Unknown {
		title = untitled
	}
	s := fmt.Sprintf("[%s] %s - %s", orUnknown(n.TaxID), orUnknown(n.AwardingEntity()), title)
	if n.MatchedSeed != "" {
		s = "[" + n.MatchedSeed + "] " + s
	}
	return s
}

// Build renders ns in order. GUIDs carry the 1-based position so items that
// share a link stay distinct. now is used when a notice has no send date.
func Build(ns []models.Notice, now time.Time) []Item {
	items := make([]Item, 0, len(ns))
	for i, n := range ns {
		link := CleanURL(n.Link)
		published, ok := parser.PublicationDate(n.FullDetails, now.Location())
		if !ok {
			published = now
		}
		items = append(items, Item{
			Title:       ItemTitle(n),
			Link:        link,
			GUID:        fmt.Sprintf("%s#%d", link, i+1),
			Description: describe(n, link),
			Published:   published,
		})
	}
	return items
}

// Render assembles the RSS document for items.
func Render(ch Channel, items []Item, now time.Time) *feeds.RssFeed {
	f := &feeds.Feed{
		Title:       ch.Title,
		Link:        &feeds.Link{Href: ch.Link},
		Description: ch.Description,
		Created:     now,
		Updated:     now,
	}
	for _, it := range items {
		f.Items = append(f.Items, &feeds.Item{
			Title:       it.Title,
			Link:        &feeds.Link{Href: it.Link},
			Id:          it.GUID,
			Description: it.Description,
			Created:     it.Published,
		})
	}
	rss := (&feeds.Rss{Feed: f}).RssFeed()
	rss.Language = ch.Language
	return rss
}

// Write renders items as RSS XML to w.
func Write(w io.Writer, ch Channel, items []Item, now time.Time) error {
	out, err := feeds.ToXML(Render(ch, items, now))
	if err != nil {
		return fmt.Errorf("feed: encode: %w", err)
	}
	_, err = io.WriteString(w, out)
	return err
}

// Bytes is Write into a buffer.
func Bytes(ch Channel, items []Item, now time.Time) ([]byte, error) {
	var buf bytes.Buffer
	if err := Write(&buf, ch, items, now); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

var descriptionTmpl = template.Must(template.New("description").Parse(`<div>
<p><b>{{.Entity}}</b></p>
<p>{{.Title}}</p>
{{if .Seed}}<p>Seed: {{.Seed}}</p>{{end}}
<ul>
<li>NIPC: {{.TaxID}}</li>
<li>Concelho: {{.Municipality}}</li>
<li>Prazo de execução: {{.ExecutionDeadline}}</li>
<li>Prazo para propostas: {{.Deadline}}</li>
<li>Preço base: {{.BasePrice}}</li>
<li>Plataforma: {{.Platform}}</li>
</ul>
<p><a href="{{.Link}}">Anúncio DRE</a>{{if .ProcedureURL}} | <a href="{{.ProcedureURL}}">Procedimento</a>{{end}}</p>
</div>`))

var policy = bluemonday.UGCPolicy()

func describe(n models.Notice, link string) string {
	data := map[string]string{
		"Entity":            orUnknown(n.AwardingEntity()),
		"Title":             orUnknown(n.Title()),
		"Seed":              n.MatchedSeed,
		"TaxID":             orUnknown(n.TaxID),
		"Municipality":      orUnknown(n.Municipality),
		"ExecutionDeadline": orUnknown(n.ExecutionDeadline),
		"Deadline":          orUnknown(n.SubmissionDeadline),
		"BasePrice":         orUnknown(n.BasePrice),
		"Platform":          orUnknown(n.PlatformName),
		"Link":              link,
		"ProcedureURL":      "",
	}
	if models.Known(n.ProcedureURL) {
		data["ProcedureURL"] = CleanURL(n.ProcedureURL)
	}
	var buf bytes.Buffer
	if err := descriptionTmpl.Execute(&buf, data); err != nil {
		return ""
	}
	return policy.Sanitize(buf.String())
}

func orUnknown(v string) string {
	if models.Known(v) {
		return strings.TrimSpace(v)
	}
	return models.Unknown
}
