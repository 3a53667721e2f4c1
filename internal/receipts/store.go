package receipts

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

// Status is the lifecycle state of a recipe run.
type Status string

const (
	StatusRunning   Status = "running"
	StatusSucceeded Status = "succeeded"
	StatusFailed    Status = "failed"
)

// ErrNotFound is returned by Get when no receipt carries the run id.
var ErrNotFound = errors.New("receipt not found")

// Receipt is one recorded recipe run.
type Receipt struct {
	RunID         string     `json:"run_id"`
	Formula       string     `json:"formula"`
	Version       string     `json:"version"`
	SourceKind    string     `json:"source_kind"`
	Prefix        string     `json:"prefix"`
	BuildType     string     `json:"build_type"`
	ConfigureArgs []string   `json:"configure_args,omitempty"`
	Status        Status     `json:"status"`
	FailedStep    string     `json:"failed_step,omitempty"`
	ErrorMessage  string     `json:"error,omitempty"`
	StartedAt     time.Time  `json:"started_at"`
	FinishedAt    *time.Time `json:"finished_at,omitempty"`
}

// Duration reports how long a finished run took, or zero while running.
func (r Receipt) Duration() time.Duration {
	if r.FinishedAt == nil {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}

// Store persists receipts in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open creates or connects to the receipts database at path and applies migrations.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("receipts path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("create receipts dir: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA foreign_keys = ON",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.applyMigrations(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Path returns the database file location.
func (s *Store) Path() string {
	if s == nil {
		return ""
	}
	return s.path
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Begin inserts a running receipt. A run id is assigned when r.RunID is empty.
func (s *Store) Begin(ctx context.Context, r Receipt) (Receipt, error) {
	if strings.TrimSpace(r.Formula) == "" {
		return Receipt{}, errors.New("receipt formula is required")
	}
	if r.RunID == "" {
		r.RunID = uuid.NewString()
	}
	if r.StartedAt.IsZero() {
		r.StartedAt = time.Now()
	}
	r.StartedAt = r.StartedAt.UTC()
	r.Status = StatusRunning
	r.FailedStep = ""
	r.ErrorMessage = ""
	r.FinishedAt = nil

	argsJSON, err := encodeArgs(r.ConfigureArgs)
	if err != nil {
		return Receipt{}, err
	}

	_, err = s.db.ExecContext(
		ctx,
		`INSERT INTO receipts (
            run_id, formula, version, source_kind, prefix, build_type,
            configure_args_json, status, started_at
        ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.RunID,
		r.Formula,
		r.Version,
		r.SourceKind,
		r.Prefix,
		r.BuildType,
		argsJSON,
		string(r.Status),
		r.StartedAt.Format(timeLayout),
	)
	if err != nil {
		return Receipt{}, fmt.Errorf("insert receipt: %w", err)
	}
	return r, nil
}

// SetConfigureArgs records the assembled configure arguments once known.
func (s *Store) SetConfigureArgs(ctx context.Context, runID string, args []string) error {
	argsJSON, err := encodeArgs(args)
	if err != nil {
		return err
	}
	res, err := s.db.ExecContext(ctx, "UPDATE receipts SET configure_args_json = ? WHERE run_id = ?", argsJSON, runID)
	if err != nil {
		return fmt.Errorf("update configure args: %w", err)
	}
	return requireRow(res, runID)
}

// Finish marks a run succeeded or failed. failedStep and runErr are recorded
// only for failures.
func (s *Store) Finish(ctx context.Context, runID string, status Status, failedStep string, runErr error) error {
	switch status {
	case StatusSucceeded, StatusFailed:
	default:
		return fmt.Errorf("invalid final status %q", status)
	}
	var message string
	if status == StatusFailed {
		if runErr != nil {
			message = runErr.Error()
		}
	} else {
		failedStep = ""
	}
	finished := time.Now().UTC()
	res, err := s.db.ExecContext(
		ctx,
		`UPDATE receipts SET status = ?, failed_step = ?, error_message = ?, finished_at = ? WHERE run_id = ?`,
		string(status),
		nullableString(failedStep),
		nullableString(message),
		finished.Format(timeLayout),
		runID,
	)
	if err != nil {
		return fmt.Errorf("finish receipt: %w", err)
	}
	return requireRow(res, runID)
}

// Get loads a receipt by run id.
func (s *Store) Get(ctx context.Context, runID string) (Receipt, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+receiptColumns+" FROM receipts WHERE run_id = ?", runID)
	r, err := scanReceipt(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Receipt{}, fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	if err != nil {
		return Receipt{}, fmt.Errorf("scan receipt: %w", err)
	}
	return r, nil
}

// List returns receipts newest first. limit <= 0 returns every row.
func (s *Store) List(ctx context.Context, limit int) ([]Receipt, error) {
	query := "SELECT " + receiptColumns + " FROM receipts ORDER BY started_at DESC, run_id"
	args := []any{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list receipts: %w", err)
	}
	defer rows.Close()

	var out []Receipt
	for rows.Next() {
		r, err := scanReceipt(rows)
		if err != nil {
			return nil, fmt.Errorf("scan receipt: %w", err)
		}
		out = append(out, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate receipts: %w", err)
	}
	return out, nil
}

func requireRow(res sql.Result, runID string) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("%w: %s", ErrNotFound, runID)
	}
	return nil
}
