// Package storage records finished matches in SQLite. Nothing here is read back
// into live match state.
package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

// Result is one finished match.
type Result struct {
	MatchID    string    `json:"gameId"`
	Winner     int       `json:"winner"`
	Loser      int       `json:"loser"`
	Weapon     string    `json:"weapon"`
	Damage     int       `json:"damage"`
	Shots      int       `json:"shots"`
	FinishedAt time.Time `json:"finishedAt"`
}

// History is an append-only ledger of match results.
type History struct {
	db *sql.DB
}

const createResultsSQL = `
CREATE TABLE IF NOT EXISTS results (
	id          INTEGER PRIMARY KEY AUTOINCREMENT,
	match_id    TEXT NOT NULL,
	winner      INTEGER NOT NULL,
	loser       INTEGER NOT NULL,
	weapon      TEXT NOT NULL,
	damage      INTEGER NOT NULL,
	shots       INTEGER NOT NULL,
	finished_at TIMESTAMP NOT NULL
);
`

// Open opens (creating if needed) the ledger at path. ":memory:" works for tests.
func Open(path string) (*History, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A :memory: database exists per connection.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec(createResultsSQL); err != nil {
		db.Close()
		return nil, fmt.Errorf("create results table: %w", err)
	}
	return &History{db: db}, nil
}

// Record appends one result.
func (h *History) Record(ctx context.Context, r Result) error {
	_, err := h.db.ExecContext(ctx,
		`INSERT INTO results (match_id, winner, loser, weapon, damage, shots, finished_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		r.MatchID, r.Winner, r.Loser, r.Weapon, r.Damage, r.Shots, r.FinishedAt.UTC())
	if err != nil {
		return fmt.Errorf("insert result %s: %w", r.MatchID, err)
	}
	return nil
}

// Recent returns up to limit results, newest first.
func (h *History) Recent(ctx context.Context, limit int) ([]Result, error) {
	rows, err := h.db.QueryContext(ctx,
		`SELECT match_id, winner, loser, weapon, damage, shots, finished_at
		 FROM results ORDER BY id DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := make([]Result, 0, limit)
	for rows.Next() {
		var r Result
		if err := rows.Scan(&r.MatchID, &r.Winner, &r.Loser, &r.Weapon, &r.Damage, &r.Shots, &r.FinishedAt); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		results = append(results, r)
	}
	return results, rows.Err()
}

// Close closes the database.
func (h *History) Close() error {
	return h.db.Close()
}
