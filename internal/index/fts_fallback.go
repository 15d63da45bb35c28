//go:build !sqlite_fts5

package index

import (
	"database/sql"
	"fmt"

	sq "github.com/Masterminds/squirrel"
)

func initFTS(_ *sql.DB) error { return nil }

// ftsUpsert is a no-op: the LIKE search reads the body column directly.
func ftsUpsert(_ *sql.Tx, _, _, _, _ string) error { return nil }

// Search matches query as a substring of title, entity or body. Built
// without the sqlite_fts5 tag.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	like := "%" + query + "%"
	stmt, args, err := sq.Select("link", "title", "entity", "substr(body, 1, 200)").
		From("notices").
		Where(sq.Or{
			sq.Like{"title": like},
			sq.Like{"entity": like},
			sq.Like{"body": like},
		}).
		OrderBy("active DESC", "last_seen DESC").
		Limit(uint64(limit)).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("index: build search: %w", err)
	}
	rows, err := db.conn.Query(stmt, args...)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	out := []SearchResult{}
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Link, &r.Title, &r.Entity, &r.Snippet); err != nil {
			return nil, fmt.Errorf("index: scan search row: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
