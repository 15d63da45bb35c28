package index

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/matcher"
	"github.com/starford/tenderwatch/internal/storage"
)

// Sync reloads the persisted active set and seeds, labels the set and
// brings the archive up to date. A missing active set deactivates every
// archived notice; an unreadable one is an error and changes nothing.
func Sync(db NoticeIndex, cols *storage.Collections, now time.Time, logger *slog.Logger) (SyncStats, error) {
	active, err := cols.LoadActive()
	if errors.Is(err, apperr.ErrNotFound) {
		active = nil
	} else if err != nil {
		return SyncStats{}, fmt.Errorf("index: sync: %w", err)
	}

	seeds, err := cols.LoadSeeds()
	if err != nil {
		logger.Warn("sync: seeds unreadable, archiving without labels", slog.String("error", err.Error()))
		seeds = nil
	}

	st, err := db.SyncActive(matcher.Label(active, seeds), now)
	if err != nil {
		return st, err
	}
	logger.Debug("sync: archive updated",
		slog.Int("upserted", st.Upserted),
		slog.Int("unchanged", st.Unchanged),
		slog.Int("deactivated", st.Deactivated),
	)
	return st, nil
}
