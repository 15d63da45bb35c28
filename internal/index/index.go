package index

import (
	"time"

	"github.com/starford/tenderwatch/internal/models"
)

// NoticeIndex is the archive surface used by the pipeline, the API and the
// MCP server.
type NoticeIndex interface {
	SyncActive(active []models.Notice, now time.Time) (SyncStats, error)
	GetNotice(link string) (*NoticeRow, error)
	ListNotices(q ListQuery) ([]NoticeRow, int, error)
	Search(query string, limit int) ([]SearchResult, error)
	RecordRun(r models.Run) error
	Runs(limit int) ([]models.Run, error)
	Stats() (Stats, error)
	Ping() error
	Close() error
}

// Verify *DB satisfies NoticeIndex at compile time.
var _ NoticeIndex = (*DB)(nil)
