//go:build sqlite_fts5

package index

import (
	"database/sql"
	"fmt"
)

func initFTS(conn *sql.DB) error {
	_, err := conn.Exec(`
		CREATE VIRTUAL TABLE IF NOT EXISTS notices_fts USING fts5(
			link UNINDEXED,
			title,
			entity,
			body,
			tokenize = 'unicode61 remove_diacritics 2'
		);
	`)
	return err
}

func ftsUpsert(tx *sql.Tx, link, title, entity, body string) error {
	_, _ = tx.Exec(`DELETE FROM notices_fts WHERE link = ?`, link)
	_, err := tx.Exec(`INSERT INTO notices_fts (link, title, entity, body) VALUES (?, ?, ?, ?)`,
		link, title, entity, body)
	if err != nil {
		return fmt.Errorf("index: upsert fts: %w", err)
	}
	return nil
}

// Search performs an FTS5 full-text search and returns matching results with snippets.
func (db *DB) Search(query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := db.conn.Query(`
		SELECT link,
		       title,
		       entity,
		       snippet(notices_fts, 3, '<b>', '</b>', '...', 32)
		FROM notices_fts
		WHERE notices_fts MATCH ?
		ORDER BY rank
		LIMIT ?
	`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("index: search: %w", err)
	}
	defer rows.Close()

	var out []SearchResult
	for rows.Next() {
		var r SearchResult
		if err := rows.Scan(&r.Link, &r.Title, &r.Entity, &r.Snippet); err != nil {
			return nil, err
		}
		out = append(out, r)
	}
	return out, rows.Err()
}
