package history

import (
	"context"
	"database/sql"
	_ "embed"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"
)

//go:embed schema.sql
var schemaSQL string

// schemaVersion is the current schema version. Bump this when the schema changes.
const schemaVersion = 1

// ErrSchemaMismatch indicates the database schema version doesn't match the expected version.
var ErrSchemaMismatch = errors.New("schema version mismatch")

const runColumns = "id, scenario, scenario_path, status, started_at, finished_at, output_path, video_seconds, audio_seconds, output_seconds, mux_mode, steps_ok, steps_failed, steps_skipped, error_message, report_json"

// Store persists run history backed by SQLite.
type Store struct {
	db   *sql.DB
	path string
}

// Open initializes or connects to the history database at path.
func Open(path string) (*Store, error) {
	path = strings.TrimSpace(path)
	if path == "" {
		return nil, errors.New("history database path is empty")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, fmt.Errorf("ensure history directory: %w", err)
	}

	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}

	pragmas := []string{
		"PRAGMA journal_mode=WAL",
		"PRAGMA busy_timeout = 5000",
	}
	for _, pragma := range pragmas {
		if _, execErr := db.Exec(pragma); execErr != nil {
			_ = db.Close()
			return nil, fmt.Errorf("apply pragma %q: %w", pragma, execErr)
		}
	}

	store := &Store{db: db, path: path}
	if err := store.initSchema(context.Background()); err != nil {
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

func (s *Store) initSchema(ctx context.Context) error {
	var tableExists int
	err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(1) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	).Scan(&tableExists)
	if err != nil {
		return fmt.Errorf("check schema_version table: %w", err)
	}
	if tableExists == 0 {
		return s.createSchema(ctx)
	}

	var version int
	if err := s.db.QueryRowContext(ctx, "SELECT version FROM schema_version LIMIT 1").Scan(&version); err != nil {
		return fmt.Errorf("read schema version: %w", err)
	}
	if version != schemaVersion {
		return fmt.Errorf("%w: database has version %d, expected %d (delete %s to start a fresh history)",
			ErrSchemaMismatch, version, schemaVersion, s.path)
	}
	return nil
}

func (s *Store) createSchema(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin schema tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create schema: %w", err)
	}
	if _, err := tx.ExecContext(ctx, "INSERT INTO schema_version (version) VALUES (?)", schemaVersion); err != nil {
		return fmt.Errorf("record schema version: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit schema: %w", err)
	}
	return nil
}

// Begin records a new running entry for the named scenario.
func (s *Store) Begin(ctx context.Context, scenario, scenarioPath string) (*Run, error) {
	run := &Run{
		ID:           uuid.NewString(),
		Scenario:     strings.TrimSpace(scenario),
		ScenarioPath: scenarioPath,
		Status:       StatusRunning,
		StartedAt:    time.Now().UTC(),
	}
	if run.Scenario == "" {
		run.Scenario = "unnamed"
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (id, scenario, scenario_path, status, started_at) VALUES (?, ?, ?, ?, ?)`,
		run.ID,
		run.Scenario,
		nullableString(run.ScenarioPath),
		string(run.Status),
		run.StartedAt.Format(time.RFC3339Nano),
	)
	if err != nil {
		return nil, fmt.Errorf("insert run: %w", err)
	}
	return run, nil
}

// Finish stores the terminal state of run. A zero FinishedAt is stamped with
// the current time.
func (s *Store) Finish(ctx context.Context, run *Run) error {
	if run == nil || run.ID == "" {
		return errors.New("finish run: missing run id")
	}
	if !run.Status.IsTerminal() {
		return fmt.Errorf("finish run %s: status %q is not terminal", run.ID, run.Status)
	}
	if run.FinishedAt.IsZero() {
		run.FinishedAt = time.Now().UTC()
	}
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET
            status = ?, finished_at = ?, output_path = ?,
            video_seconds = ?, audio_seconds = ?, output_seconds = ?, mux_mode = ?,
            steps_ok = ?, steps_failed = ?, steps_skipped = ?,
            error_message = ?, report_json = ?
        WHERE id = ?`,
		string(run.Status),
		run.FinishedAt.UTC().Format(time.RFC3339Nano),
		nullableString(run.OutputPath),
		nullableFloat(run.VideoSeconds),
		nullableFloat(run.AudioSeconds),
		nullableFloat(run.OutputSeconds),
		nullableString(run.MuxMode),
		run.StepsOK,
		run.StepsFailed,
		run.StepsSkipped,
		nullableString(run.ErrorMessage),
		nullableString(run.ReportJSON),
		run.ID,
	)
	if err != nil {
		return fmt.Errorf("update run: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("finish run %s: %w", run.ID, sql.ErrNoRows)
	}
	return nil
}

// Get fetches one run. A unique ID prefix of at least four characters is
// accepted. Returns nil, nil when nothing matches.
func (s *Store) Get(ctx context.Context, id string) (*Run, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return nil, nil
	}
	row := s.db.QueryRowContext(ctx, "SELECT "+runColumns+" FROM runs WHERE id = ?", id)
	run, err := scanRun(row)
	if err == nil {
		return run, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get run: %w", err)
	}
	if len(id) < 4 {
		return nil, nil
	}

	rows, err := s.db.QueryContext(ctx, "SELECT "+runColumns+` FROM runs WHERE id LIKE ? ESCAPE '\' LIMIT 2`, likePrefix(id))
	if err != nil {
		return nil, fmt.Errorf("get run by prefix: %w", err)
	}
	defer rows.Close()
	matches, err := collectRuns(rows)
	if err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, nil
	case 1:
		return matches[0], nil
	default:
		return nil, fmt.Errorf("run id prefix %q is ambiguous", id)
	}
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePrefix matches ids starting with prefix, taking its characters
// literally.
func likePrefix(prefix string) string {
	return likeEscaper.Replace(prefix) + "%"
}

// List returns the most recent runs first, optionally filtered by status.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]*Run, error) {
	query := "SELECT " + runColumns + " FROM runs"
	args := make([]any, 0, len(statuses)+1)
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, status := range statuses {
			placeholders[i] = "?"
			args = append(args, string(status))
		}
		query += " WHERE status IN (" + strings.Join(placeholders, ",") + ")"
	}
	query += " ORDER BY started_at DESC"
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list runs: %w", err)
	}
	defer rows.Close()
	return collectRuns(rows)
}

// MarkAbandoned flips runs still marked running to failed. Runs left in that
// state were interrupted before Finish.
func (s *Store) MarkAbandoned(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE runs SET status = ?, finished_at = ?, error_message = ? WHERE status = ?`,
		string(StatusFailed),
		time.Now().UTC().Format(time.RFC3339Nano),
		"run interrupted",
		string(StatusRunning),
	)
	if err != nil {
		return 0, fmt.Errorf("mark abandoned runs: %w", err)
	}
	return res.RowsAffected()
}
