package matcher

import (
	"testing"

	"github.com/starford/tenderwatch/internal/models"
)

func containerNotice(district string) models.Notice {
	return models.Notice{
		Link:               "https://x/1",
		District:           district,
		Municipality:       "Sintra",
		Description:        "Fornecimento de contentores enterrados",
		AwardingEntityName: "Câmara Municipal",
		PlatformName:       "acinGov",
		TaxID:              "500051070",
	}
}

func TestMatches_DistrictGateVetoesFirst(t *testing.T) {
	seed := models.Seed{Code: "S", District: "Lisboa", Tags: []string{"contentores"}}

	if Matches(containerNotice("Porto"), seed) {
		t.Error("district gate should veto Porto")
	}
	if !Matches(containerNotice("Lisboa"), seed) {
		t.Error("Lisboa notice should match")
	}
	if !Matches(containerNotice("LISBOA "), seed) {
		t.Error("district comparison should ignore case and padding")
	}
}

func TestMatches_WildcardSeed(t *testing.T) {
	notices := []models.Notice{
		{},
		{Link: "x", District: "Faro", SubmissionDeadline: "N/A"},
		containerNotice("Porto"),
	}
	for _, n := range notices {
		if !Matches(n, models.Seed{Code: "ALL"}) {
			t.Errorf("wildcard seed rejected %+v", n)
		}
	}
}

func TestMatches_TitleTagsOnlySeeTitle(t *testing.T) {
	n := containerNotice("Lisboa")

	tests := []struct {
		name string
		tags []string
		want bool
	}{
		{"tag in description", []string{"CONTENTORES"}, true},
		{"any tag suffices", []string{"betão", "enterrados"}, true},
		{"entity is not title", []string{"câmara"}, false},
		{"platform is not title", []string{"acingov"}, false},
		{"blank tags impose nothing", []string{" ", ""}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Matches(n, models.Seed{TitleTags: tt.tags})
			if got != tt.want {
				t.Errorf("Matches(title_tags=%v) = %v, want %v", tt.tags, got, tt.want)
			}
		})
	}
}

func TestMatches_TitleFallsBackToDesignation(t *testing.T) {
	n := models.Notice{Description: models.Unknown, ContractDesignation: "Aquisição de viaturas"}
	if !Matches(n, models.Seed{TitleTags: []string{"viaturas"}}) {
		t.Error("designation should be used when description is unknown")
	}
}

func TestMatches_GlobalTagsSeeCompositeText(t *testing.T) {
	n := containerNotice("Lisboa")
	n.Parish = "Algueirão"

	for _, tag := range []string{"câmara", "acingov", "500051070", "sintra", "algueirão", "enterrados"} {
		if !Matches(n, models.Seed{Tags: []string{tag}}) {
			t.Errorf("tag %q should match composite text", tag)
		}
	}
	if Matches(n, models.Seed{Tags: []string{"lisboa"}}) {
		t.Error("district is not part of the composite text")
	}
}

func TestMatches_SubstringNotWord(t *testing.T) {
	n := models.Notice{Description: "Reparação de passeios"}
	if !Matches(n, models.Seed{Tags: []string{"pass"}}) {
		t.Error("substring containment should match inside words")
	}
}

func TestMatches_BothTagGatesMustPass(t *testing.T) {
	n := containerNotice("Lisboa")
	seed := models.Seed{TitleTags: []string{"contentores"}, Tags: []string{"porto"}}
	if Matches(n, seed) {
		t.Error("global gate should veto")
	}
	seed.Tags = []string{"sintra"}
	if !Matches(n, seed) {
		t.Error("both gates satisfied")
	}
}

func TestFilter_FirstMatchWins(t *testing.T) {
	seeds := []models.Seed{
		{Code: "S1", Name: "Norte", District: "Porto"},
		{Code: "S2", Tags: []string{"contentores"}},
		{Code: "S3", Name: "Tudo"},
	}
	in := []models.Notice{
		containerNotice("Porto"),
		containerNotice("Lisboa"),
		{Link: "https://x/3", Description: "Limpeza urbana", District: "Faro"},
	}

	out := Filter(in, seeds)

	if len(out) != 3 {
		t.Fatalf("len = %d, want 3", len(out))
	}
	want := []string{"Norte", "S2", "Tudo"}
	for i, w := range want {
		if out[i].MatchedSeed != w {
			t.Errorf("out[%d].MatchedSeed = %q, want %q", i, out[i].MatchedSeed, w)
		}
	}
	if in[0].MatchedSeed != "" {
		t.Error("input notices must not be mutated")
	}
}

func TestFilter_DropsUnmatched(t *testing.T) {
	seeds := []models.Seed{{Code: "S1", District: "Braga"}}
	out := Filter([]models.Notice{containerNotice("Lisboa")}, seeds)
	if len(out) != 0 {
		t.Errorf("expected no matches, got %d", len(out))
	}
	if out := Filter([]models.Notice{containerNotice("Lisboa")}, nil); len(out) != 0 {
		t.Errorf("no seeds should match nothing, got %d", len(out))
	}
}

func TestLabel_KeepsAllAndClearsStale(t *testing.T) {
	stale := containerNotice("Faro")
	stale.MatchedSeed = "Antigo"
	in := []models.Notice{containerNotice("Lisboa"), stale}

	out := Label(in, []models.Seed{{Code: "S1", Name: "Lisboa", District: "lisboa"}})

	if len(out) != 2 {
		t.Fatalf("len = %d, want 2", len(out))
	}
	if out[0].MatchedSeed != "Lisboa" {
		t.Errorf("out[0] label = %q", out[0].MatchedSeed)
	}
	if out[1].MatchedSeed != "" {
		t.Errorf("stale label kept: %q", out[1].MatchedSeed)
	}
	if in[1].MatchedSeed != "Antigo" {
		t.Error("input notices must not be mutated")
	}
}
