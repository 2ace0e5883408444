// Package store provides SQLite-backed persistence for sessions, offer
// evaluations, simulation runs, and calibration results.
package store

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/shoal-accord/internal/bargain"
	"github.com/talgya/shoal-accord/internal/calibrate"
	"github.com/talgya/shoal-accord/internal/incident"
)

// DB wraps a SQLite connection.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path, creating the
// parent directory if needed.
func Open(path string) (*DB, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("create db directory: %w", err)
		}
	}
	conn, err := sqlx.Open("sqlite", path+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}

	db := &DB{conn: conn}
	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return db, nil
}

// Close closes the database connection.
func (db *DB) Close() error {
	return db.conn.Close()
}

func (db *DB) migrate() error {
	schema := `
	CREATE TABLE IF NOT EXISTS sessions (
		id TEXT PRIMARY KEY,
		case_id TEXT NOT NULL,
		mediator TEXT NOT NULL,
		parties_json TEXT NOT NULL,
		issue_space_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS evaluations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		session_id TEXT NOT NULL,
		round INTEGER NOT NULL,
		proposer TEXT NOT NULL,
		result_json TEXT NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		steps INTEGER NOT NULL,
		seed INTEGER NOT NULL,
		alpha REAL NOT NULL,
		base_p REAL NOT NULL,
		incidents INTEGER NOT NULL,
		max_severity REAL NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE TABLE IF NOT EXISTS run_events (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		run_id TEXT NOT NULL,
		step INTEGER NOT NULL,
		type TEXT NOT NULL,
		severity REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS calibrations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		alpha REAL NOT NULL,
		base_p REAL NOT NULL,
		score REAL NOT NULL,
		steps INTEGER NOT NULL,
		bucket INTEGER NOT NULL,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_evaluations_session ON evaluations(session_id);
	CREATE INDEX IF NOT EXISTS idx_run_events_run ON run_events(run_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// SaveSession records a started session.
func (db *DB) SaveSession(id string, s *bargain.Session) error {
	partiesJSON, _ := json.Marshal(s.Parties)
	issuesJSON, _ := json.Marshal(s.IssueSpace)

	_, err := db.conn.Exec(`INSERT OR REPLACE INTO sessions
		(id, case_id, mediator, parties_json, issue_space_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		id, s.CaseID, s.Mediator, string(partiesJSON), string(issuesJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert session %s: %w", id, err)
	}
	return nil
}

// SaveEvaluation appends one offer evaluation to a session's history.
func (db *DB) SaveEvaluation(sessionID string, res *bargain.Result) error {
	resultJSON, _ := json.Marshal(res)
	_, err := db.conn.Exec(`INSERT INTO evaluations
		(session_id, round, proposer, result_json, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		sessionID, res.Round, res.Proposer, string(resultJSON),
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert evaluation for %s: %w", sessionID, err)
	}
	return nil
}

// RunRecord summarizes one stored simulation run.
type RunRecord struct {
	ID          string  `db:"id" json:"id"`
	Steps       int     `db:"steps" json:"steps"`
	Seed        int64   `db:"seed" json:"seed"`
	Alpha       float64 `db:"alpha" json:"alpha"`
	BaseP       float64 `db:"base_p" json:"base_p"`
	Incidents   int     `db:"incidents" json:"incidents"`
	MaxSeverity float64 `db:"max_severity" json:"max_severity"`
	CreatedAt   string  `db:"created_at" json:"created_at"`
}

// SaveRun records a run and its full incident log.
func (db *DB) SaveRun(rec RunRecord, log []incident.Incident) error {
	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.Exec(`INSERT INTO runs
		(id, steps, seed, alpha, base_p, incidents, max_severity, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		rec.ID, rec.Steps, rec.Seed, rec.Alpha, rec.BaseP,
		rec.Incidents, rec.MaxSeverity,
		time.Now().UTC().Format(time.RFC3339),
	)
	if err != nil {
		return fmt.Errorf("insert run %s: %w", rec.ID, err)
	}

	stmt, err := tx.Preparex(
		"INSERT INTO run_events (run_id, step, type, severity) VALUES (?, ?, ?, ?)")
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, in := range log {
		if _, err := stmt.Exec(rec.ID, in.Step, incident.TypeName(in.Type), in.Severity); err != nil {
			return fmt.Errorf("insert event for run %s: %w", rec.ID, err)
		}
	}
	return tx.Commit()
}

// RecentRuns lists stored runs, newest first.
func (db *DB) RecentRuns(limit int) ([]RunRecord, error) {
	if limit <= 0 {
		limit = 20
	}
	var recs []RunRecord
	err := db.conn.Select(&recs,
		"SELECT * FROM runs ORDER BY created_at DESC, id DESC LIMIT ?", limit)
	return recs, err
}

// EventRecord is one stored incident.
type EventRecord struct {
	Step     int     `db:"step" json:"step"`
	Type     string  `db:"type" json:"type"`
	Severity float64 `db:"severity" json:"severity"`
}

// RunEvents returns a run's incident log in step order.
func (db *DB) RunEvents(runID string) ([]EventRecord, error) {
	var events []EventRecord
	err := db.conn.Select(&events,
		"SELECT step, type, severity FROM run_events WHERE run_id = ? ORDER BY step", runID)
	return events, err
}

// SaveCalibration records a completed calibration's best candidate.
func (db *DB) SaveCalibration(best calibrate.Result, steps, bucket int) error {
	_, err := db.conn.Exec(`INSERT INTO calibrations
		(alpha, base_p, score, steps, bucket, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		best.Alpha, best.BaseP, best.Score, steps, bucket,
		time.Now().UTC().Format(time.RFC3339),
	)
	return err
}

// LatestCalibration returns the most recent stored calibration result, or
// sql.ErrNoRows when none exists.
func (db *DB) LatestCalibration() (calibrate.Result, error) {
	var row struct {
		Alpha float64 `db:"alpha"`
		BaseP float64 `db:"base_p"`
		Score float64 `db:"score"`
	}
	err := db.conn.Get(&row,
		"SELECT alpha, base_p, score FROM calibrations ORDER BY id DESC LIMIT 1")
	if err != nil {
		if err == sql.ErrNoRows {
			return calibrate.Result{}, err
		}
		return calibrate.Result{}, fmt.Errorf("latest calibration: %w", err)
	}
	return calibrate.Result{Alpha: row.Alpha, BaseP: row.BaseP, Score: row.Score}, nil
}
