// Package mailer delivers new-notice digests by email.
package mailer

import (
	"bytes"
	"fmt"
	"html/template"
	"time"

	"github.com/starford/tenderwatch/internal/feed"
	"github.com/starford/tenderwatch/internal/models"
)

// Message is a rendered email.
type Message struct {
	To      []string
	Subject string
	HTML    string
}

// Subject returns the digest subject for day.
func Subject(day time.Time) string {
	return "Novos Procedimentos DRE Encontrados - " + day.Format("02/01/2006")
}

type digestRow struct {
	Title     string
	Entity    string
	BasePrice string
	Deadline  string
	District  string
	Municipal string
	Seed      string
	Link      string
}

var digestTmpl = template.Must(template.New("digest").Parse(`<html>
<body style="font-family: Arial, sans-serif; line-height: 1.6; color: #333;">
<h2 style="color: #2a5298;">Novos Procedimentos Detectados</h2>
<p>Foram encontrados {{len .}} novos procedimentos correspondentes às suas seeds:</p>
<hr>
{{range .}}<div style="margin-bottom: 20px; padding: 15px; border-radius: 8px; background-color: #f9f9f9; border-left: 5px solid #2a5298;">
<h3 style="margin-top: 0; color: #2a5298;">{{.Title}}</h3>
<p><strong>Entidade:</strong> {{.Entity}}</p>
<p><strong>Preço Base:</strong> {{.BasePrice}}</p>
<p><strong>Prazo:</strong> {{.Deadline}}</p>
<p><strong>Local:</strong> {{.District}} - {{.Municipal}}</p>
{{if .Seed}}<p><strong>Seed:</strong> {{.Seed}}</p>{{end}}
<p><a href="{{.Link}}" style="display: inline-block; padding: 10px 20px; background-color: #2a5298; color: white; text-decoration: none; border-radius: 5px;">Ver Detalhes no DRE</a></p>
</div>
{{end}}<p style="font-size: 0.8em; color: #777;">Este é um email automático enviado pelo tenderwatch.</p>
</body>
</html>`))

// RenderDigest builds the HTML body listing ns.
func RenderDigest(ns []models.Notice) (string, error) {
	rows := make([]digestRow, 0, len(ns))
	for _, n := range ns {
		rows = append(rows, digestRow{
			Title:     or(n.Title(), "Sem descrição"),
			Entity:    or(n.AwardingEntity(), models.Unknown),
			BasePrice: or(models.FirstKnown(n.BasePrice), models.Unknown),
			Deadline:  or(models.FirstKnown(n.SubmissionDeadline), models.Unknown),
			District:  or(models.FirstKnown(n.District), models.Unknown),
			Municipal: or(models.FirstKnown(n.Municipality), models.Unknown),
			Seed:      n.MatchedSeed,
			Link:      feed.CleanURL(n.Link),
		})
	}
	var buf bytes.Buffer
	if err := digestTmpl.Execute(&buf, rows); err != nil {
		return "", fmt.Errorf("mailer: render digest: %w", err)
	}
	return buf.String(), nil
}

func or(v, fallback string) string {
	if v == "" {
		return fallback
	}
	return v
}
