// Package merge folds a freshly scraped batch into the persisted active set.
package merge

import (
	"time"

	"github.com/starford/tenderwatch/internal/lifecycle"
	"github.com/starford/tenderwatch/internal/models"
)

// Result is the merged active set plus the counts reported for a cycle.
type Result struct {
	Active []models.Notice
	// Added counts incoming notices whose link was new.
	Added int
	// Removed counts prior notices that expired since they were stored.
	Removed int
	// Expired counts incoming notices dropped before merging.
	Expired int
	Total   int
}

// Merge combines incoming with prior as of ref.
//
// Identity is the link: an incoming notice whose link is already stored is
// ignored, even when its details differ. The combined set is re-validated so
// stored notices that have since closed are dropped. Order is prior notices
// first, then new ones, both in their original order. Neither input is
// modified.
func Merge(incoming, prior []models.Notice, ref time.Time) Result {
	fresh, expired := lifecycle.Filter(incoming, ref)

	seen := models.Links(prior)
	combined := make([]models.Notice, 0, len(prior)+len(fresh))
	combined = append(combined, prior...)

	added := 0
	for _, n := range fresh {
		if n.Link == "" {
			continue
		}
		if _, ok := seen[n.Link]; ok {
			continue
		}
		seen[n.Link] = struct{}{}
		combined = append(combined, n)
		added++
	}

	active, dropped := lifecycle.Filter(combined, ref)

	return Result{
		Active:  active,
		Added:   added,
		Removed: dropped,
		Expired: expired,
		Total:   len(active),
	}
}
