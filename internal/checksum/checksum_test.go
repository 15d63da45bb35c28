package checksum

import (
	"testing"

	"github.com/starford/tenderwatch/internal/models"
)

func TestSum(t *testing.T) {
	// sha256("")
	want := "e3b0c44298fc1c149afbf4c8996fb92427ae41e4649b934ca495991b7852b855"
	if got := Sum(nil); got != want {
		t.Errorf("Sum(nil) = %s", got)
	}
}

func TestNotice(t *testing.T) {
	n := models.Notice{Link: "https://dr/1", District: "Lisboa", SubmissionDeadline: "20-03-2026 17:00"}
	base := Notice(n)
	if Notice(n) != base {
		t.Error("checksum is not stable")
	}

	labelled := n
	labelled.MatchedSeed = "Resíduos"
	if Notice(labelled) == base {
		t.Error("matched label should change the checksum")
	}

	moved := n
	moved.SubmissionDeadline = "21-03-2026 17:00"
	if Notice(moved) == base {
		t.Error("deadline should change the checksum")
	}
}
