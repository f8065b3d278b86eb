// Package persistence provides SQLite-based storage of calculation runs and
// session metadata.
package persistence

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/talgya/tokamak-sim/internal/engine"
	"github.com/talgya/tokamak-sim/internal/plant"
)

// DB wraps a SQLite connection for run history.
type DB struct {
	conn *sqlx.DB
}

// Open opens or creates a SQLite database at the given path.
func Open(path string) (*DB, error) {
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
	CREATE TABLE IF NOT EXISTS runs (
		id TEXT PRIMARY KEY,
		session_id TEXT NOT NULL,
		created_at INTEGER NOT NULL,
		plant_type TEXT NOT NULL,
		sliders TEXT NOT NULL,
		inputs TEXT NOT NULL,
		result_json TEXT NOT NULL,
		fusion_mw REAL NOT NULL,
		net_mw REAL NOT NULL
	);

	CREATE TABLE IF NOT EXISTS session_meta (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at);
	CREATE INDEX IF NOT EXISTS idx_runs_session ON runs(session_id);
	`
	_, err := db.conn.Exec(schema)
	return err
}

// Run is one persisted calculation.
type Run struct {
	ID         string  `db:"id" json:"id"`
	SessionID  string  `db:"session_id" json:"session_id"`
	CreatedAt  int64   `db:"created_at" json:"created_at"` // unix millis
	PlantType  string  `db:"plant_type" json:"plant_type"`
	Sliders    string  `db:"sliders" json:"sliders"`
	Inputs     string  `db:"inputs" json:"inputs"`
	ResultJSON string  `db:"result_json" json:"result"`
	FusionMW   float64 `db:"fusion_mw" json:"fusion_mw"`
	NetMW      float64 `db:"net_mw" json:"net_mw"`
}

// Result decodes the stored result record.
func (r Run) Result() (engine.Result, error) {
	var res engine.Result
	if err := json.Unmarshal([]byte(r.ResultJSON), &res); err != nil {
		return engine.Result{}, fmt.Errorf("decode run %s: %w", r.ID, err)
	}
	return res, nil
}

// NewRun packages a result for storage with a fresh id.
func NewRun(sessionID string, pt plant.Type, in engine.Inputs, res engine.Result) (Run, error) {
	slidersJSON, err := json.Marshal(res.Sliders)
	if err != nil {
		return Run{}, err
	}
	inputsJSON, err := json.Marshal(in)
	if err != nil {
		return Run{}, err
	}
	resultJSON, err := json.Marshal(res)
	if err != nil {
		return Run{}, err
	}
	return Run{
		ID:         uuid.NewString(),
		SessionID:  sessionID,
		CreatedAt:  time.Now().UnixMilli(),
		PlantType:  string(pt),
		Sliders:    string(slidersJSON),
		Inputs:     string(inputsJSON),
		ResultJSON: string(resultJSON),
		FusionMW:   res.Fusion,
		NetMW:      res.ElecNet,
	}, nil
}

const insertRun = `INSERT INTO runs
	(id, session_id, created_at, plant_type, sliders, inputs, result_json, fusion_mw, net_mw)
	VALUES (:id, :session_id, :created_at, :plant_type, :sliders, :inputs, :result_json, :fusion_mw, :net_mw)`

// SaveRun appends one run.
func (db *DB) SaveRun(r Run) error {
	if _, err := db.conn.NamedExec(insertRun, r); err != nil {
		return fmt.Errorf("insert run %s: %w", r.ID, err)
	}
	return nil
}

// SaveRuns appends a batch of runs in one transaction.
func (db *DB) SaveRuns(runs []Run) error {
	if len(runs) == 0 {
		return nil
	}

	tx, err := db.conn.Beginx()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareNamed(insertRun)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, r := range runs {
		if _, err := stmt.Exec(r); err != nil {
			return fmt.Errorf("insert run %s: %w", r.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return err
	}
	slog.Info("runs saved", "count", len(runs))
	return nil
}

// RecentRuns returns the most recent N runs, newest first.
func (db *DB) RecentRuns(limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs ORDER BY created_at DESC, rowid DESC LIMIT ?",
		limit,
	)
	return runs, err
}

// SessionRuns returns the runs of one session, newest first.
func (db *DB) SessionRuns(sessionID string, limit int) ([]Run, error) {
	var runs []Run
	err := db.conn.Select(&runs,
		"SELECT * FROM runs WHERE session_id = ? ORDER BY created_at DESC, rowid DESC LIMIT ?",
		sessionID, limit,
	)
	return runs, err
}

// CountRuns returns the number of stored runs.
func (db *DB) CountRuns() (int, error) {
	var n int
	err := db.conn.Get(&n, "SELECT COUNT(*) FROM runs")
	return n, err
}

// SaveMeta stores a key-value pair in session metadata.
func (db *DB) SaveMeta(key, value string) error {
	_, err := db.conn.Exec(
		"INSERT OR REPLACE INTO session_meta (key, value) VALUES (?, ?)",
		key, value,
	)
	return err
}

// GetMeta retrieves a metadata value.
func (db *DB) GetMeta(key string) (string, error) {
	var value string
	err := db.conn.Get(&value, "SELECT value FROM session_meta WHERE key = ?", key)
	return value, err
}
