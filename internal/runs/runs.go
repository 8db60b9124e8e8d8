// Package runs persists the fine-tune run registry in SQLite.
// Uses WAL mode for concurrent reads and crash-safe writes.
package runs

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite" // Pure-Go SQLite driver (no CGO required)

	"github.com/modelsmith/tailor-cli/internal/metrics"
	"github.com/modelsmith/tailor-cli/internal/trainer"
)

// Run statuses. Pending and running are transient; completed and failed
// are terminal and immutable.
const (
	StatusPending   = "pending"
	StatusRunning   = "running"
	StatusCompleted = "completed"
	StatusFailed    = "failed"
)

var (
	// ErrNotFound reports an unknown run id.
	ErrNotFound = errors.New("run not found")
	// ErrInvalidTransition reports a status change the lifecycle does not
	// allow, including any change to a terminal run.
	ErrInvalidTransition = errors.New("invalid run status transition")
)

// Run is one recorded fine-tune, from submission to its terminal state.
type Run struct {
	ID            string         `json:"id"`
	BaseModel     string         `json:"base_model"`
	HasEncoder    bool           `json:"has_encoder"`
	Status        string         `json:"status"`
	Config        trainer.Config `json:"config"`
	TrainExamples int            `json:"train_examples"`
	ValExamples   int            `json:"val_examples"`
	FinalLoss     float64        `json:"final_loss,omitempty"`
	Error         string         `json:"error,omitempty"`
	CreatedAt     time.Time      `json:"created_at"`
	StartedAt     time.Time      `json:"started_at,omitempty"`
	CompletedAt   time.Time      `json:"completed_at,omitempty"`
}

// Store wraps a SQLite connection with WAL mode and migrations.
type Store struct {
	db *sql.DB
}

// Open creates or opens the run registry at path.
// Enables WAL mode, foreign keys, and 5-second busy timeout.
func Open(path string) (*Store, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return nil, fmt.Errorf("create data dir: %w", err)
	}

	dsn := path + "?_journal_mode=WAL&_busy_timeout=5000&_foreign_keys=on"
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("ping sqlite: %w", err)
	}

	// Connection pool settings for SQLite
	db.SetMaxOpenConns(1) // SQLite is single-writer
	db.SetMaxIdleConns(1)

	s := &Store{db: db}
	if err := s.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return s, nil
}

// Close cleanly shuts down the database.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate runs idempotent schema migrations.
func (s *Store) migrate() error {
	migrations := []string{
		`CREATE TABLE IF NOT EXISTS runs (
			id             TEXT PRIMARY KEY,
			base_model     TEXT NOT NULL,
			has_encoder    BOOLEAN NOT NULL,
			status         TEXT NOT NULL,
			config         TEXT NOT NULL,
			train_examples INTEGER NOT NULL,
			val_examples   INTEGER NOT NULL,
			final_loss     REAL,
			error          TEXT NOT NULL DEFAULT '',
			created_at     INTEGER NOT NULL,
			started_at     INTEGER,
			completed_at   INTEGER
		)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_created ON runs(created_at)`,
		`CREATE INDEX IF NOT EXISTS idx_runs_status ON runs(status)`,
	}
	for _, m := range migrations {
		if _, err := s.db.Exec(m); err != nil {
			return fmt.Errorf("migration failed: %w\nSQL: %s", err, m)
		}
	}
	return nil
}

// ─── Lifecycle ──────────────────────────────────────────────────────────────

// Create records a new pending run and returns it.
func (s *Store) Create(baseModel string, hasEncoder bool, cfg trainer.Config, trainExamples, valExamples int) (*Run, error) {
	if baseModel == "" {
		return nil, errors.New("base model is required")
	}
	cfgJSON, err := json.Marshal(cfg)
	if err != nil {
		return nil, fmt.Errorf("encode config snapshot: %w", err)
	}

	run := &Run{
		ID:            uuid.NewString(),
		BaseModel:     baseModel,
		HasEncoder:    hasEncoder,
		Status:        StatusPending,
		Config:        cfg,
		TrainExamples: trainExamples,
		ValExamples:   valExamples,
		CreatedAt:     time.Now(),
	}
	_, err = s.db.Exec(
		`INSERT INTO runs (id, base_model, has_encoder, status, config, train_examples, val_examples, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ID, run.BaseModel, run.HasEncoder, run.Status, string(cfgJSON),
		run.TrainExamples, run.ValExamples, run.CreatedAt.Unix(),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	metrics.TrainingRuns.WithLabelValues(StatusPending).Inc()
	return run, nil
}

// MarkRunning moves a pending run to running and stamps started_at.
func (s *Store) MarkRunning(id string) error {
	return s.transition(id, []string{StatusPending}, StatusRunning,
		`UPDATE runs SET status = ?, started_at = ? WHERE id = ?`,
		StatusRunning, time.Now().Unix(), id)
}

// Complete moves a running run to completed with its final loss.
func (s *Store) Complete(id string, finalLoss float64) error {
	return s.transition(id, []string{StatusRunning}, StatusCompleted,
		`UPDATE runs SET status = ?, final_loss = ?, completed_at = ? WHERE id = ?`,
		StatusCompleted, finalLoss, time.Now().Unix(), id)
}

// Fail moves a pending or running run to failed, recording the cause.
func (s *Store) Fail(id string, cause error) error {
	msg := ""
	if cause != nil {
		msg = cause.Error()
	}
	return s.transition(id, []string{StatusPending, StatusRunning}, StatusFailed,
		`UPDATE runs SET status = ?, error = ?, completed_at = ? WHERE id = ?`,
		StatusFailed, msg, time.Now().Unix(), id)
}

// transition applies stmt only when the run's current status is one of
// from. On a no-op it reports ErrNotFound or ErrInvalidTransition based
// on the run's actual state.
func (s *Store) transition(id string, from []string, to string, stmt string, args ...any) error {
	guarded := stmt + ` AND status IN (?` + strings.Repeat(", ?", len(from)-1) + `)`
	for _, f := range from {
		args = append(args, f)
	}

	res, err := s.db.Exec(guarded, args...)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n == 1 {
		metrics.TrainingRuns.WithLabelValues(to).Inc()
		return nil
	}

	current, err := s.Get(id)
	if err != nil {
		return err
	}
	return fmt.Errorf("%w: %s is %s, cannot become %s", ErrInvalidTransition, id, current.Status, to)
}

// ─── Queries ────────────────────────────────────────────────────────────────

// Get retrieves a single run by id.
func (s *Store) Get(id string) (*Run, error) {
	row := s.db.QueryRow(
		`SELECT id, base_model, has_encoder, status, config, train_examples, val_examples,
		        final_loss, error, created_at, started_at, completed_at
		 FROM runs WHERE id = ?`, id,
	)
	run, err := scanRun(row)
	if err != nil {
		return nil, err
	}
	if run == nil {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return run, nil
}

// List returns runs newest first. limit <= 0 returns all.
func (s *Store) List(limit int) ([]Run, error) {
	q := `SELECT id, base_model, has_encoder, status, config, train_examples, val_examples,
	             final_loss, error, created_at, started_at, completed_at
	      FROM runs ORDER BY created_at DESC, rowid DESC`
	args := []any{}
	if limit > 0 {
		q += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.Query(q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// ─── Helpers ────────────────────────────────────────────────────────────────

// scanner is satisfied by both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

func scanRun(s scanner) (*Run, error) {
	var r Run
	var cfgJSON string
	var finalLoss sql.NullFloat64
	var createdAt int64
	var startedAt, completedAt sql.NullInt64

	err := s.Scan(&r.ID, &r.BaseModel, &r.HasEncoder, &r.Status, &cfgJSON,
		&r.TrainExamples, &r.ValExamples, &finalLoss, &r.Error,
		&createdAt, &startedAt, &completedAt)
	if err == sql.ErrNoRows {
		return nil, nil // Not found, no error
	}
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal([]byte(cfgJSON), &r.Config); err != nil {
		return nil, fmt.Errorf("decode config snapshot for %s: %w", r.ID, err)
	}
	if finalLoss.Valid {
		r.FinalLoss = finalLoss.Float64
	}
	r.CreatedAt = time.Unix(createdAt, 0)
	if startedAt.Valid {
		r.StartedAt = time.Unix(startedAt.Int64, 0)
	}
	if completedAt.Valid {
		r.CompletedAt = time.Unix(completedAt.Int64, 0)
	}
	return &r, nil
}
