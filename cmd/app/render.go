package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/jedib0t/go-pretty/v6/text"

	"github.com/starford/tenderwatch/internal/index"
	"github.com/starford/tenderwatch/internal/models"
	"github.com/starford/tenderwatch/internal/noticeservice"
	"github.com/starford/tenderwatch/internal/pipeline"
)

const timeLayout = "02-01-2006 15:04"

func newTable(w io.Writer) table.Writer {
	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.SetStyle(table.StyleLight)
	return t
}

func renderSummary(w io.Writer, sum pipeline.Summary) {
	r := sum.Run
	t := newTable(w)
	t.SetTitle("Run " + r.ID)
	t.AppendRows([]table.Row{
		{"Source", r.Source},
		{"Took", r.FinishedAt.Sub(r.StartedAt).Round(time.Millisecond).String()},
		{"Fetched", r.Fetched},
		{"Added", r.Added},
		{"Removed", r.Removed},
		{"Expired", r.Expired},
		{"Active", r.Total},
		{"New", r.New},
		{"Emailed", notification(sum)},
	})
	if len(sum.Feeds) > 0 {
		t.AppendRow(table.Row{"Feeds", strings.Join(sum.Feeds, "\n")})
	}
	if r.Error != "" {
		t.AppendRow(table.Row{"Error", text.FgRed.Sprint(r.Error)})
	}
	t.Render()
}

func notification(sum pipeline.Summary) string {
	n := sum.Notification
	switch {
	case n.Skipped:
		return "skipped (" + n.Reason + ")"
	case n.Sent:
		return fmt.Sprintf("%d notices", n.Matched)
	case n.Matched > 0:
		return fmt.Sprintf("failed (%d matched)", n.Matched)
	}
	return "nothing matched"
}

func renderSeeds(w io.Writer, list []models.Seed) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Code", "Name", "District", "Title tags", "Tags", "Created"})
	for _, s := range list {
		t.AppendRow(table.Row{
			s.Code,
			s.Name,
			s.District,
			strings.Join(s.TitleTags, ", "),
			strings.Join(s.Tags, ", "),
			s.CreatedAt.Format(timeLayout),
		})
	}
	t.AppendFooter(table.Row{"", fmt.Sprintf("%d seeds", len(list))})
	t.Render()
}

func renderNotices(w io.Writer, ns []noticeservice.NoticeSummary, total int) {
	t := newTable(w)
	t.AppendHeader(table.Row{"#", "Deadline", "District", "Entity", "Title", "Seed"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Entity", WidthMax: 30},
		{Name: "Title", WidthMax: 50},
	})
	for _, n := range ns {
		t.AppendRow(table.Row{n.ProcedureNumber, n.Deadline, n.District, n.Entity, n.Title, n.MatchedSeed})
	}
	t.AppendFooter(table.Row{"", "", "", "", fmt.Sprintf("%d of %d", len(ns), total)})
	t.Render()
}

func renderSearch(w io.Writer, res []index.SearchResult) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Title", "Entity", "Snippet", "Link"})
	t.SetColumnConfigs([]table.ColumnConfig{
		{Name: "Title", WidthMax: 40},
		{Name: "Snippet", WidthMax: 60},
	})
	for _, r := range res {
		t.AppendRow(table.Row{r.Title, r.Entity, r.Snippet, r.Link})
	}
	t.Render()
}

func renderRuns(w io.Writer, runs []models.Run) {
	t := newTable(w)
	t.AppendHeader(table.Row{"Started", "Source", "Fetched", "Added", "Removed", "Expired", "Active", "New", "Sent", "Error"})
	t.SetColumnConfigs([]table.ColumnConfig{{Name: "Error", WidthMax: 40}})
	for _, r := range runs {
		t.AppendRow(table.Row{
			r.StartedAt.Format(timeLayout), r.Source, r.Fetched, r.Added, r.Removed,
			r.Expired, r.Total, r.New, r.Sent, r.Error,
		})
	}
	t.Render()
}
