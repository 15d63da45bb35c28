package merge

import (
	"testing"
	"time"

	"github.com/starford/tenderwatch/internal/models"
)

var ref = time.Date(2020, 6, 1, 0, 0, 0, 0, time.UTC)

func notice(link, deadline string) models.Notice {
	return models.Notice{Link: link, SubmissionDeadline: deadline, Description: "desc " + link}
}

func links(ns []models.Notice) []string {
	out := make([]string, len(ns))
	for i, n := range ns {
		out[i] = n.Link
	}
	return out
}

func equalLinks(t *testing.T, got []models.Notice, want ...string) {
	t.Helper()
	g := links(got)
	if len(g) != len(want) {
		t.Fatalf("links = %v, want %v", g, want)
	}
	for i := range want {
		if g[i] != want[i] {
			t.Fatalf("links = %v, want %v", g, want)
		}
	}
}

func TestMerge_AppendsNewAfterPrior(t *testing.T) {
	prior := []models.Notice{notice("a", "01-01-2021 00:00"), notice("b", "01-01-2021 00:00")}
	incoming := []models.Notice{notice("c", "01-01-2021 00:00"), notice("a", "01-01-2021 00:00")}

	res := Merge(incoming, prior, ref)

	equalLinks(t, res.Active, "a", "b", "c")
	if res.Added != 1 || res.Removed != 0 || res.Expired != 0 || res.Total != 3 {
		t.Errorf("counts = %+v", res)
	}
}

func TestMerge_DuplicateDoesNotOverwrite(t *testing.T) {
	prior := []models.Notice{notice("a", "01-01-2021 00:00")}
	changed := notice("a", "01-01-2021 00:00")
	changed.Description = "changed"

	res := Merge([]models.Notice{changed}, prior, ref)

	if res.Active[0].Description != "desc a" {
		t.Errorf("stored copy overwritten: %q", res.Active[0].Description)
	}
	if res.Added != 0 {
		t.Errorf("Added = %d, want 0", res.Added)
	}
}

func TestMerge_RevalidatesPrior(t *testing.T) {
	prior := []models.Notice{{Link: "https://x/1", SubmissionDeadline: "01-01-2020 00:00"}}

	res := Merge(nil, prior, ref)

	if len(res.Active) != 0 {
		t.Fatalf("expired prior notice kept: %+v", res.Active)
	}
	if res.Removed != 1 {
		t.Errorf("Removed = %d, want 1", res.Removed)
	}
}

func TestMerge_DropsExpiredIncoming(t *testing.T) {
	incoming := []models.Notice{
		notice("old", "31-05-2020 23:59"),
		notice("na", "N/A"),
		notice("ok", "01-06-2020 00:00"),
	}

	res := Merge(incoming, nil, ref)

	equalLinks(t, res.Active, "ok")
	if res.Expired != 2 || res.Added != 1 {
		t.Errorf("counts = %+v", res)
	}
}

func TestMerge_Idempotent(t *testing.T) {
	prior := []models.Notice{notice("a", "01-01-2021 00:00")}
	incoming := []models.Notice{notice("b", "01-01-2021 00:00"), notice("c", "01-01-2021 00:00")}

	once := Merge(incoming, prior, ref)
	twice := Merge(incoming, once.Active, ref)

	equalLinks(t, twice.Active, links(once.Active)...)
	if twice.Added != 0 {
		t.Errorf("second merge added %d", twice.Added)
	}
}

func TestMerge_DuplicatesWithinBatch(t *testing.T) {
	incoming := []models.Notice{notice("a", "01-01-2021 00:00"), notice("a", "02-01-2021 00:00")}

	res := Merge(incoming, nil, ref)

	equalLinks(t, res.Active, "a")
	if res.Active[0].SubmissionDeadline != "01-01-2021 00:00" {
		t.Errorf("first occurrence should win, got %q", res.Active[0].SubmissionDeadline)
	}
}

func TestMerge_DoesNotMutateInputs(t *testing.T) {
	prior := make([]models.Notice, 1, 4)
	prior[0] = notice("a", "01-01-2021 00:00")
	incoming := []models.Notice{notice("b", "01-01-2021 00:00")}

	_ = Merge(incoming, prior, ref)

	if len(prior) != 1 || prior[:2][1].Link != "" {
		t.Error("prior backing array was written")
	}
}
