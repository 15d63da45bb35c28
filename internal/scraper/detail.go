package scraper

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Section headings tried in order when locating the announcement body.
var detailAnchors = []string{
	"1 - IDENTIFICAÇÃO E CONTACTOS DA ENTIDADE ADJUDICANTE",
	"IDENTIFICAÇÃO E CONTACTOS DA ENTIDADE ADJUDICANTE",
	"IDENTIFICAÇÃO",
}

// ExtractDetails finds the announcement section in a detail page and returns
// its text, one non-blank text node per line. ok is false when no anchor is found.
func ExtractDetails(html string) (string, bool) {
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(html))
	if err != nil {
		return "", false
	}
	for _, anchor := range detailAnchors {
		needle := strings.ToLower(anchor)
		var hit *goquery.Selection
		doc.Find("body *").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			if strings.Contains(strings.ToLower(ownText(s)), needle) {
				hit = s
				return false
			}
			return true
		})
		if hit == nil {
			continue
		}
		div := hit.Closest("div")
		if div.Length() == 0 {
			continue
		}
		var lines []string
		collectText(div, &lines)
		return strings.Join(lines, "\n"), true
	}
	return "", false
}

// ownText concatenates the direct text children of s.
func ownText(s *goquery.Selection) string {
	var b strings.Builder
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		if goquery.NodeName(c) == "#text" {
			b.WriteString(c.Text())
		}
	})
	return b.String()
}

func collectText(s *goquery.Selection, lines *[]string) {
	s.Contents().Each(func(_ int, c *goquery.Selection) {
		switch goquery.NodeName(c) {
		case "#text":
			if t := strings.TrimSpace(c.Text()); t != "" {
				*lines = append(*lines, t)
			}
		case "script", "style", "#comment":
		default:
			collectText(c, lines)
		}
	})
}
