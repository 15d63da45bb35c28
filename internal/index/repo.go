package index

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"github.com/starford/tenderwatch/internal/apperr"
	"github.com/starford/tenderwatch/internal/checksum"
	"github.com/starford/tenderwatch/internal/models"
)

// NoticeRow is one archived notice.
type NoticeRow struct {
	Link            string    `json:"link"`
	ProcedureNumber string    `json:"procedure_number"`
	Title           string    `json:"title"`
	Entity          string    `json:"entity"`
	District        string    `json:"district"`
	Deadline        string    `json:"deadline"`
	MatchedSeed     string    `json:"matched_seed,omitempty"`
	Checksum        string    `json:"-"`
	Active          bool      `json:"active"`
	FirstSeen       time.Time `json:"first_seen"`
	LastSeen        time.Time `json:"last_seen"`
}

// SearchResult is one search hit.
type SearchResult struct {
	Link    string `json:"link"`
	Title   string `json:"title"`
	Entity  string `json:"entity"`
	Snippet string `json:"snippet"`
}

// SyncStats counts what SyncActive changed.
type SyncStats struct {
	Upserted    int `json:"upserted"`
	Unchanged   int `json:"unchanged"`
	Deactivated int `json:"deactivated"`
}

// ListQuery filters ListNotices. Empty fields do not filter.
type ListQuery struct {
	District   string
	Seed       string
	ActiveOnly bool
	Limit      int
	Offset     int
}

// Stats summarises the archive.
type Stats struct {
	Notices int        `json:"notices"`
	Active  int        `json:"active"`
	Runs    int        `json:"runs"`
	LastRun *time.Time `json:"last_run,omitempty"`
}

var noticeColumns = []string{
	"link", "procedure_number", "title", "entity", "district", "deadline",
	"matched_seed", "checksum", "active", "first_seen", "last_seen",
}

// rowFor flattens n into its archive row. The checksum covers the whole
// notice including the matched label.
func rowFor(n models.Notice) (NoticeRow, string) {
	return NoticeRow{
		Link:            n.Link,
		ProcedureNumber: n.ProcedureNumber,
		Title:           n.Title(),
		Entity:          n.AwardingEntity(),
		District:        n.District,
		Deadline:        n.SubmissionDeadline,
		MatchedSeed:     n.MatchedSeed,
		Checksum:        checksum.Notice(n),
		Active:          true,
	}, n.FullDetails
}

// SyncActive records the current active set: new or changed notices are
// upserted, every listed notice is stamped as seen at now, and archived
// notices missing from the set are marked inactive.
func (db *DB) SyncActive(active []models.Notice, now time.Time) (SyncStats, error) {
	var st SyncStats

	tx, err := db.conn.Begin()
	if err != nil {
		return st, fmt.Errorf("index: begin tx: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // best-effort on failure path

	known, err := activeChecksums(tx)
	if err != nil {
		return st, err
	}

	seen := make(map[string]struct{}, len(active))
	for _, n := range active {
		if n.Link == "" {
			continue
		}
		if _, dup := seen[n.Link]; dup {
			continue
		}
		seen[n.Link] = struct{}{}

		row, body := rowFor(n)
		if cs, ok := known[n.Link]; ok && cs == row.Checksum {
			if _, err := tx.Exec(`UPDATE notices SET last_seen = ? WHERE link = ?`, now, n.Link); err != nil {
				return st, fmt.Errorf("index: touch notice: %w", err)
			}
			st.Unchanged++
			continue
		}
		if err := upsertNotice(tx, row, body, now); err != nil {
			return st, err
		}
		st.Upserted++
	}

	for link := range known {
		if _, ok := seen[link]; ok {
			continue
		}
		if _, err := tx.Exec(`UPDATE notices SET active = 0 WHERE link = ?`, link); err != nil {
			return st, fmt.Errorf("index: deactivate notice: %w", err)
		}
		st.Deactivated++
	}

	if err := tx.Commit(); err != nil {
		return st, fmt.Errorf("index: commit: %w", err)
	}
	return st, nil
}

// activeChecksums maps the link of every active archived notice to its checksum.
func activeChecksums(tx *sql.Tx) (map[string]string, error) {
	rows, err := tx.Query(`SELECT link, checksum FROM notices WHERE active = 1`)
	if err != nil {
		return nil, fmt.Errorf("index: active checksums: %w", err)
	}
	defer rows.Close()
	out := make(map[string]string)
	for rows.Next() {
		var link, cs string
		if err := rows.Scan(&link, &cs); err != nil {
			return nil, err
		}
		out[link] = cs
	}
	return out, rows.Err()
}

func upsertNotice(tx *sql.Tx, r NoticeRow, body string, now time.Time) error {
	_, err := tx.Exec(`
		INSERT INTO notices (link, procedure_number, title, entity, district, deadline,
		                     matched_seed, checksum, body, active, first_seen, last_seen)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, 1, ?, ?)
		ON CONFLICT(link) DO UPDATE SET
			procedure_number = excluded.procedure_number,
			title            = excluded.title,
			entity           = excluded.entity,
			district         = excluded.district,
			deadline         = excluded.deadline,
			matched_seed     = excluded.matched_seed,
			checksum         = excluded.checksum,
			body             = excluded.body,
			active           = 1,
			last_seen        = excluded.last_seen
	`, r.Link, r.ProcedureNumber, r.Title, r.Entity, r.District, r.Deadline,
		r.MatchedSeed, r.Checksum, body, now, now)
	if err != nil {
		return fmt.Errorf("index: upsert notice: %w", err)
	}
	return ftsUpsert(tx, r.Link, r.Title, r.Entity, body)
}

// GetNotice returns one archived notice.
func (db *DB) GetNotice(link string) (*NoticeRow, error) {
	query, args, err := sq.Select(noticeColumns...).From("notices").
		Where(sq.Eq{"link": link}).ToSql()
	if err != nil {
		return nil, fmt.Errorf("index: build query: %w", err)
	}
	r, err := scanNotice(db.conn.QueryRow(query, args...))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("notice %s: %w", link, apperr.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("index: get notice: %w", err)
	}
	return r, nil
}

// ListNotices returns a page of archived notices, newest first, and the
// total number matching q.
func (db *DB) ListNotices(q ListQuery) ([]NoticeRow, int, error) {
	where := sq.And{}
	if q.District != "" {
		where = append(where, sq.Expr("lower(district) = lower(?)", q.District))
	}
	if q.Seed != "" {
		where = append(where, sq.Eq{"matched_seed": q.Seed})
	}
	if q.ActiveOnly {
		where = append(where, sq.Eq{"active": 1})
	}

	countSQL, countArgs, err := sq.Select("count(*)").From("notices").Where(where).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("index: build count: %w", err)
	}
	var total int
	if err := db.conn.QueryRow(countSQL, countArgs...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("index: count notices: %w", err)
	}

	limit := q.Limit
	if limit <= 0 {
		limit = 50
	}
	offset := q.Offset
	if offset < 0 {
		offset = 0
	}
	query, args, err := sq.Select(noticeColumns...).From("notices").Where(where).
		OrderBy("last_seen DESC", "link").
		Limit(uint64(limit)).Offset(uint64(offset)).ToSql()
	if err != nil {
		return nil, 0, fmt.Errorf("index: build list: %w", err)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("index: list notices: %w", err)
	}
	defer rows.Close()

	var out []NoticeRow
	for rows.Next() {
		r, err := scanNotice(rows)
		if err != nil {
			return nil, 0, err
		}
		out = append(out, *r)
	}
	return out, total, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanNotice(s scanner) (*NoticeRow, error) {
	var r NoticeRow
	err := s.Scan(&r.Link, &r.ProcedureNumber, &r.Title, &r.Entity, &r.District, &r.Deadline,
		&r.MatchedSeed, &r.Checksum, &r.Active, &r.FirstSeen, &r.LastSeen)
	if err != nil {
		return nil, err
	}
	return &r, nil
}

// RecordRun appends a run to the log.
func (db *DB) RecordRun(r models.Run) error {
	query, args, err := sq.Insert("runs").
		Columns("id", "started_at", "finished_at", "source", "fetched", "added", "removed",
			"expired", "total", "new_count", "sent", "skipped", "error").
		Values(r.ID, r.StartedAt, r.FinishedAt, r.Source, r.Fetched, r.Added, r.Removed,
			r.Expired, r.Total, r.New, r.Sent, r.Skipped, r.Error).
		ToSql()
	if err != nil {
		return fmt.Errorf("index: build insert: %w", err)
	}
	if _, err := db.conn.Exec(query, args...); err != nil {
		return fmt.Errorf("index: record run: %w", err)
	}
	return nil
}

// Runs returns the most recent runs, newest first.
func (db *DB) Runs(limit int) ([]models.Run, error) {
	if limit <= 0 {
		limit = 20
	}
	query, args, err := sq.Select("id", "started_at", "finished_at", "source", "fetched", "added",
		"removed", "expired", "total", "new_count", "sent", "skipped", "error").
		From("runs").OrderBy("started_at DESC").Limit(uint64(limit)).ToSql()
	if err != nil {
		return nil, fmt.Errorf("index: build runs: %w", err)
	}
	rows, err := db.conn.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("index: runs: %w", err)
	}
	defer rows.Close()

	var out []models.Run
	for rows.Next() {
		var r models.Run
		if err := rows.Scan(&r.ID, &r.StartedAt, &r.FinishedAt, &r.Source, &r.Fetched, &r.Added,
			&r.Removed, &r.Expired, &r.Total, &r.New, &r.Sent, &r.Skipped, &r.Error); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// Stats counts archived notices and runs.
func (db *DB) Stats() (Stats, error) {
	var st Stats
	err := db.conn.QueryRow(`
		SELECT (SELECT count(*) FROM notices),
		       (SELECT count(*) FROM notices WHERE active = 1),
		       (SELECT count(*) FROM runs)
	`).Scan(&st.Notices, &st.Active, &st.Runs)
	if err != nil {
		return st, fmt.Errorf("index: stats: %w", err)
	}
	if st.Runs > 0 {
		var last time.Time
		if err := db.conn.QueryRow(`SELECT started_at FROM runs ORDER BY started_at DESC LIMIT 1`).Scan(&last); err != nil {
			return st, fmt.Errorf("index: last run: %w", err)
		}
		st.LastRun = &last
	}
	return st, nil
}
