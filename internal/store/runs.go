package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"time"

	"carharvest-engine/internal/harvest"
)

const (
	RunStatusOK      = "ok"
	RunStatusEmpty   = "empty"
	RunStatusAborted = "aborted"
)

// Run is one harvest invocation: summary plus the serialized harvest log.
// The listing records themselves are never persisted; they belong to the
// caller.
type Run struct {
	ID         int64           `json:"id"`
	BaseURL    string          `json:"base_url"`
	Mark       string          `json:"mark"`
	Model      string          `json:"model"`
	MaxPages   int             `json:"max_pages"`
	Records    int             `json:"records"`
	Status     string          `json:"status"`
	StartedAt  time.Time       `json:"started_at"`
	FinishedAt time.Time       `json:"finished_at"`
	Log        []harvest.Entry `json:"log,omitempty"`
}

func Migrate(db *sql.DB) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	var v int
	if err := tx.QueryRow(`PRAGMA user_version;`).Scan(&v); err != nil {
		return err
	}
	if v >= 1 {
		return tx.Commit()
	}

	if _, err := tx.Exec(`
CREATE TABLE IF NOT EXISTS runs (
  id INTEGER PRIMARY KEY AUTOINCREMENT,
  base_url TEXT NOT NULL,
  mark TEXT NOT NULL,
  model TEXT NOT NULL,
  max_pages INTEGER NOT NULL,
  records INTEGER NOT NULL DEFAULT 0,
  status TEXT NOT NULL,
  started_at TEXT NOT NULL,
  finished_at TEXT NOT NULL,
  log TEXT NOT NULL DEFAULT '[]'
);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`
CREATE INDEX IF NOT EXISTS idx_runs_started_at
ON runs(started_at DESC);
`); err != nil {
		return err
	}

	if _, err := tx.Exec(`PRAGMA user_version = 1;`); err != nil {
		return err
	}

	return tx.Commit()
}

func SaveRun(ctx context.Context, db *sql.DB, r Run) (int64, error) {
	logB, _ := json.Marshal(r.Log)

	res, err := db.ExecContext(ctx, `
INSERT INTO runs(base_url, mark, model, max_pages, records, status, started_at, finished_at, log)
VALUES(?,?,?,?,?,?,?,?,?);`,
		r.BaseURL,
		r.Mark,
		r.Model,
		r.MaxPages,
		r.Records,
		r.Status,
		r.StartedAt.UTC().Format(time.RFC3339),
		r.FinishedAt.UTC().Format(time.RFC3339),
		string(logB),
	)
	if err != nil {
		return 0, err
	}
	return res.LastInsertId()
}

// ListRuns returns recent runs, newest first. The log column rides along so
// the UI can explain a shortfall without another endpoint.
func ListRuns(ctx context.Context, db *sql.DB, limit int) ([]Run, error) {
	if limit <= 0 || limit > 500 {
		limit = 50
	}

	rows, err := db.QueryContext(ctx, `
SELECT id, base_url, mark, model, max_pages, records, status, started_at, finished_at, log
FROM runs
ORDER BY started_at DESC, id DESC
LIMIT ?;`, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		var r Run
		var started, finished, logJSON string
		if err := rows.Scan(
			&r.ID,
			&r.BaseURL,
			&r.Mark,
			&r.Model,
			&r.MaxPages,
			&r.Records,
			&r.Status,
			&started,
			&finished,
			&logJSON,
		); err != nil {
			return nil, err
		}
		r.StartedAt, _ = time.Parse(time.RFC3339, started)
		r.FinishedAt, _ = time.Parse(time.RFC3339, finished)
		_ = json.Unmarshal([]byte(logJSON), &r.Log)
		out = append(out, r)
	}
	return out, rows.Err()
}

// CleanupOldRuns trims history older than three months.
func CleanupOldRuns(db *sql.DB) (deleted int64, err error) {
	res, err := db.Exec(`
DELETE FROM runs
WHERE started_at < datetime('now', '-3 months');
`)
	if err != nil {
		return 0, err
	}
	n, _ := res.RowsAffected()
	return n, nil
}
