package library

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	_ "modernc.org/sqlite"

	"mantra/internal/config"
	"mantra/internal/services"
)

// Store persists render history in SQLite.
type Store struct {
	db   *sql.DB
	path string
}

const (
	sqliteBusyCode          = 5
	busyRetryAttempts       = 5
	busyRetryInitialBackoff = 10 * time.Millisecond
	busyRetryMaxBackoff     = 200 * time.Millisecond
)

// createdLayout is fixed-width so created_at sorts lexically.
const createdLayout = "2006-01-02T15:04:05.000000000Z07:00"

const renderColumns = "id, created_at, source, output_path, beat, delay_ms, decay, mix, voice_volume, binaural_volume, duration_ms, status, error_kind, error_message"

// Open initializes or connects to the history database at paths.library_db.
func Open(cfg *config.Config) (*Store, error) {
	if err := cfg.EnsureDirectories(); err != nil {
		return nil, fmt.Errorf("ensure directories: %w", err)
	}
	dbPath := strings.TrimSpace(cfg.Paths.LibraryDB)
	if dbPath == "" {
		return nil, services.Wrap(services.ErrConfiguration, "library", "open", "paths.library_db is empty", nil)
	}

	db, err := sql.Open("sqlite", dbPath)
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

	store := &Store{db: db, path: dbPath}
	if err := store.initSchema(context.Background()); err != nil {
		_ = db.Close()
		return nil, err
	}
	return store, nil
}

// Close closes the underlying database connection.
func (s *Store) Close() error {
	if s == nil || s.db == nil {
		return nil
	}
	return s.db.Close()
}

// Path returns the database file location.
func (s *Store) Path() string {
	return s.path
}

// Begin records a render in the running state. A missing ID is filled with
// a fresh UUID and CreatedAt defaults to now.
func (s *Store) Begin(ctx context.Context, r Render) (Render, error) {
	if strings.TrimSpace(r.ID) == "" {
		r.ID = uuid.NewString()
	}
	if r.CreatedAt.IsZero() {
		r.CreatedAt = time.Now().UTC()
	}
	r.Status = StatusRunning
	_, err := s.execWithRetry(ctx,
		`INSERT INTO renders (`+renderColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		r.ID,
		r.CreatedAt.UTC().Format(createdLayout),
		r.Source,
		nullString(r.OutputPath),
		nullString(r.Beat),
		r.Reverb.DelayMS,
		r.Reverb.Decay,
		r.Reverb.Mix,
		r.Volumes.Voice,
		r.Volumes.Binaural,
		nil,
		string(r.Status),
		nil,
		nil,
	)
	if err != nil {
		return Render{}, fmt.Errorf("insert render: %w", err)
	}
	return r, nil
}

// Complete marks a render succeeded with its exported path and length.
func (s *Store) Complete(ctx context.Context, id, outputPath string, duration time.Duration) error {
	return s.finish(ctx, id,
		`UPDATE renders SET status = ?, output_path = ?, duration_ms = ?, error_kind = NULL, error_message = NULL WHERE id = ?`,
		string(StatusSucceeded), nullString(outputPath), duration.Milliseconds(), id)
}

// Fail marks a render failed, recording the classified error kind.
func (s *Store) Fail(ctx context.Context, id string, cause error) error {
	kind := services.Classify(cause)
	if kind == "" {
		kind = services.KindInternal
	}
	message := ""
	if cause != nil {
		message = cause.Error()
	}
	return s.finish(ctx, id,
		`UPDATE renders SET status = ?, error_kind = ?, error_message = ? WHERE id = ?`,
		string(StatusFailed), kind, message, id)
}

func (s *Store) finish(ctx context.Context, id, query string, args ...any) error {
	res, err := s.execWithRetry(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update render %s: %w", id, err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("update render %s: %w", id, services.ErrNotFound)
	}
	return nil
}

// Get returns the render with the given id, or nil when it does not exist.
func (s *Store) Get(ctx context.Context, id string) (*Render, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+renderColumns+` FROM renders WHERE id = ?`, id)
	r, err := scanRender(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("get render: %w", err)
	}
	return r, nil
}

// Resolve finds a render by full id or unique id prefix.
func (s *Store) Resolve(ctx context.Context, prefix string) (*Render, error) {
	prefix = strings.TrimSpace(prefix)
	if prefix == "" {
		return nil, &services.InvalidInputError{Field: "render id", Value: `""`, Reason: "must not be empty"}
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT `+renderColumns+` FROM renders WHERE id LIKE ? ESCAPE '\' ORDER BY created_at DESC LIMIT 2`,
		escapeLike(prefix)+"%")
	if err != nil {
		return nil, fmt.Errorf("resolve render: %w", err)
	}
	defer rows.Close()

	var matches []*Render
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		matches = append(matches, r)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	switch len(matches) {
	case 0:
		return nil, fmt.Errorf("render %q: %w", prefix, services.ErrNotFound)
	case 1:
		return matches[0], nil
	default:
		return nil, &services.InvalidInputError{Field: "render id", Value: fmt.Sprintf("%q", prefix), Reason: "matches more than one render"}
	}
}

// List returns renders newest first, optionally filtered by status. A limit
// of zero or less returns every row.
func (s *Store) List(ctx context.Context, limit int, statuses ...Status) ([]Render, error) {
	query := `SELECT ` + renderColumns + ` FROM renders`
	var args []any
	if len(statuses) > 0 {
		placeholders := make([]string, len(statuses))
		for i, st := range statuses {
			placeholders[i] = "?"
			args = append(args, string(st))
		}
		query += ` WHERE status IN (` + strings.Join(placeholders, ", ") + `)`
	}
	query += ` ORDER BY created_at DESC`
	if limit > 0 {
		query += ` LIMIT ?`
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list renders: %w", err)
	}
	defer rows.Close()

	var out []Render
	for rows.Next() {
		r, err := scanRender(rows)
		if err != nil {
			return nil, fmt.Errorf("scan render: %w", err)
		}
		out = append(out, *r)
	}
	return out, rows.Err()
}

// Remove deletes a render row. It reports whether a row existed.
func (s *Store) Remove(ctx context.Context, id string) (bool, error) {
	res, err := s.execWithRetry(ctx, `DELETE FROM renders WHERE id = ?`, id)
	if err != nil {
		return false, fmt.Errorf("remove render: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("remove render: %w", err)
	}
	return n > 0, nil
}

// Stats returns a count of renders grouped by status.
func (s *Store) Stats(ctx context.Context) (map[Status]int, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT status, COUNT(1) FROM renders GROUP BY status`)
	if err != nil {
		return nil, fmt.Errorf("render stats: %w", err)
	}
	defer rows.Close()

	stats := make(map[Status]int)
	for rows.Next() {
		var status Status
		var count int
		if err := rows.Scan(&status, &count); err != nil {
			return nil, err
		}
		stats[status] = count
	}
	return stats, rows.Err()
}

func scanRender(scanner interface{ Scan(dest ...any) error }) (*Render, error) {
	var (
		r          Render
		createdRaw string
		outputPath sql.NullString
		beat       sql.NullString
		durationMS sql.NullInt64
		status     string
		errorKind  sql.NullString
		errorMsg   sql.NullString
	)
	if err := scanner.Scan(
		&r.ID,
		&createdRaw,
		&r.Source,
		&outputPath,
		&beat,
		&r.Reverb.DelayMS,
		&r.Reverb.Decay,
		&r.Reverb.Mix,
		&r.Volumes.Voice,
		&r.Volumes.Binaural,
		&durationMS,
		&status,
		&errorKind,
		&errorMsg,
	); err != nil {
		return nil, err
	}
	if ts, err := time.Parse(time.RFC3339Nano, createdRaw); err == nil {
		r.CreatedAt = ts
	}
	r.OutputPath = outputPath.String
	r.Beat = beat.String
	r.Duration = time.Duration(durationMS.Int64) * time.Millisecond
	r.Status = Status(status)
	r.ErrorKind = errorKind.String
	r.ErrorMessage = errorMsg.String
	return &r, nil
}

func nullString(value string) sql.NullString {
	if strings.TrimSpace(value) == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: value, Valid: true}
}

func escapeLike(value string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(value)
}

func isSQLiteBusy(err error) bool {
	if err == nil {
		return false
	}
	var coder interface{ Code() int }
	if errors.As(err, &coder) && coder.Code() == sqliteBusyCode {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "SQLITE_BUSY") || strings.Contains(msg, "database is locked")
}

func retryOnBusy(ctx context.Context, op func() error) error {
	delay := busyRetryInitialBackoff
	var lastErr error
	for attempt := range busyRetryAttempts {
		lastErr = op()
		if lastErr == nil || !isSQLiteBusy(lastErr) || attempt == busyRetryAttempts-1 {
			break
		}
		select {
		case <-time.After(delay):
		case <-ctx.Done():
			return ctx.Err()
		}
		delay = min(delay*2, busyRetryMaxBackoff)
	}
	return lastErr
}

func (s *Store) execWithRetry(ctx context.Context, query string, args ...any) (sql.Result, error) {
	var res sql.Result
	err := retryOnBusy(ctx, func() error {
		var execErr error
		res, execErr = s.db.ExecContext(ctx, query, args...)
		return execErr
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}
