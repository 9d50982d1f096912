// Package journal persists fired actions and their delivery outcomes to a
// local SQLite database. The journal is an audit trail, not a dispatch
// queue: the engine never reads it to decide anything, and losing it
// affects no trigger behavior. It uses modernc.org/sqlite for pure-Go,
// CGO-free database access.
package journal

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite" // Pure Go SQLite driver

	"github.com/solacehub/solace-sense/internal/dispatch"
)

const schema = `
CREATE TABLE IF NOT EXISTS actions (
	id TEXT PRIMARY KEY,
	persona TEXT NOT NULL,
	action TEXT NOT NULL,
	priority TEXT NOT NULL,
	metric TEXT NOT NULL,
	rule TEXT NOT NULL,
	value REAL NOT NULL,
	threshold REAL NOT NULL,
	fired_at DATETIME NOT NULL,
	recorded_at DATETIME DEFAULT CURRENT_TIMESTAMP
);

CREATE INDEX IF NOT EXISTS idx_actions_fired_at ON actions(fired_at);
CREATE INDEX IF NOT EXISTS idx_actions_persona ON actions(persona);

CREATE TABLE IF NOT EXISTS outcomes (
	id INTEGER PRIMARY KEY AUTOINCREMENT,
	action_id TEXT NOT NULL REFERENCES actions(id) ON DELETE CASCADE,
	collaborator TEXT NOT NULL,
	status TEXT NOT NULL,
	error TEXT NOT NULL DEFAULT '',
	elapsed_ms INTEGER NOT NULL
);

CREATE INDEX IF NOT EXISTS idx_outcomes_action ON outcomes(action_id);
`

// Entry is one journaled action with its delivery outcomes.
type Entry struct {
	ID        string             `json:"id"`
	Persona   string             `json:"persona"`
	Action    string             `json:"action"`
	Priority  string             `json:"priority"`
	Metric    string             `json:"metric"`
	Rule      string             `json:"rule"`
	Value     float64            `json:"value"`
	Threshold float64            `json:"threshold"`
	FiredAt   time.Time          `json:"fired_at"`
	Outcomes  []dispatch.Outcome `json:"outcomes"`
}

// Journal is the SQLite-backed action log.
type Journal struct {
	db *sql.DB
}

// Open creates or opens the journal database at path, applying pragmas
// and schema. The parent directory is created when missing.
func Open(path string) (*Journal, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create journal directory: %w", err)
		}
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open journal database: %w", err)
	}

	// SQLite works best with a single writer.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)

	j := &Journal{db: db}
	if err := j.initPragmas(); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize pragmas: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("initialize schema: %w", err)
	}
	return j, nil
}

func (j *Journal) initPragmas() error {
	pragmas := []string{
		"PRAGMA journal_mode = WAL",
		"PRAGMA synchronous = NORMAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, err := j.db.Exec(pragma); err != nil {
			return fmt.Errorf("execute %s: %w", pragma, err)
		}
	}
	return nil
}

// Close releases the database handle.
func (j *Journal) Close() error {
	return j.db.Close()
}

// Record writes one dispatched event and its per-collaborator outcomes in
// a single transaction.
func (j *Journal) Record(ctx context.Context, res dispatch.Result) error {
	tx, err := j.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin journal transaction: %w", err)
	}
	defer tx.Rollback()

	e := res.Event
	_, err = tx.ExecContext(ctx, `
		INSERT INTO actions (id, persona, action, priority, metric, rule, value, threshold, fired_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, e.ID, e.Persona, string(e.Action), string(e.Priority), e.Metric.String(), e.Rule, e.Value, e.Threshold, e.FiredAt)
	if err != nil {
		return fmt.Errorf("record action: %w", err)
	}

	for _, o := range res.Outcomes {
		_, err = tx.ExecContext(ctx, `
			INSERT INTO outcomes (action_id, collaborator, status, error, elapsed_ms)
			VALUES (?, ?, ?, ?, ?)
		`, e.ID, o.Collaborator, string(o.Status), o.Error, o.Elapsed.Milliseconds())
		if err != nil {
			return fmt.Errorf("record outcome: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit journal transaction: %w", err)
	}
	return nil
}

// RecentActions returns the newest entries, most recent first, with their
// outcomes attached.
func (j *Journal) RecentActions(ctx context.Context, limit int) ([]Entry, error) {
	if limit <= 0 {
		limit = 50
	}

	rows, err := j.db.QueryContext(ctx, `
		SELECT id, persona, action, priority, metric, rule, value, threshold, fired_at
		FROM actions
		ORDER BY fired_at DESC
		LIMIT ?
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("query recent actions: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var e Entry
		if err := rows.Scan(&e.ID, &e.Persona, &e.Action, &e.Priority, &e.Metric, &e.Rule, &e.Value, &e.Threshold, &e.FiredAt); err != nil {
			return nil, fmt.Errorf("scan action row: %w", err)
		}
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate action rows: %w", err)
	}

	for i := range entries {
		outcomes, err := j.outcomesFor(ctx, entries[i].ID)
		if err != nil {
			return nil, err
		}
		entries[i].Outcomes = outcomes
	}
	return entries, nil
}

func (j *Journal) outcomesFor(ctx context.Context, actionID string) ([]dispatch.Outcome, error) {
	rows, err := j.db.QueryContext(ctx, `
		SELECT collaborator, status, error, elapsed_ms
		FROM outcomes
		WHERE action_id = ?
		ORDER BY id
	`, actionID)
	if err != nil {
		return nil, fmt.Errorf("query outcomes: %w", err)
	}
	defer rows.Close()

	var out []dispatch.Outcome
	for rows.Next() {
		var o dispatch.Outcome
		var status string
		var elapsedMS int64
		if err := rows.Scan(&o.Collaborator, &status, &o.Error, &elapsedMS); err != nil {
			return nil, fmt.Errorf("scan outcome row: %w", err)
		}
		o.Status = dispatch.Status(status)
		o.Elapsed = time.Duration(elapsedMS) * time.Millisecond
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate outcome rows: %w", err)
	}
	return out, nil
}

// Prune deletes actions fired before the cutoff and returns how many rows
// went. Outcomes cascade.
func (j *Journal) Prune(ctx context.Context, before time.Time) (int64, error) {
	res, err := j.db.ExecContext(ctx, `DELETE FROM actions WHERE fired_at < ?`, before)
	if err != nil {
		return 0, fmt.Errorf("prune journal: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("count pruned rows: %w", err)
	}
	return n, nil
}

// Count reports how many actions the journal holds.
func (j *Journal) Count(ctx context.Context) (int64, error) {
	var n int64
	if err := j.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM actions`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count actions: %w", err)
	}
	return n, nil
}
