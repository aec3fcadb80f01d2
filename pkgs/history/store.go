// Package history persists submitted command lines in SQLite.
package history

import (
	"context"
	"database/sql"
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/aledsdavies/pipeshell/pkgs/history/migrations"
	_ "modernc.org/sqlite"
)

// Entry is one recorded execution.
type Entry struct {
	ID          int64
	SessionID   string
	ExecutionID uint64
	Line        string
	Source      string
	Command     string
	ExitCode    int
	StartedAt   time.Time
	FinishedAt  time.Time
}

// Store persists history entries in SQLite.
type Store struct {
	sqlDB *sql.DB
}

func toMillis(value time.Time) int64 {
	return value.UTC().UnixMilli()
}

func fromMillis(value int64) time.Time {
	return time.UnixMilli(value).UTC()
}

// Open opens the history database at path, creating it if needed, and
// applies the embedded migrations. ":memory:" opens a private in-memory
// database.
func Open(path string) (*Store, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("history path is required")
	}

	dsn := ":memory:"
	if path != ":memory:" {
		dsn = filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	}
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite db: %w", err)
	}
	// One connection keeps an in-memory database alive and serializes writers.
	sqlDB.SetMaxOpenConns(1)

	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("ping sqlite db: %w", err)
	}
	if err := applyMigrations(sqlDB, migrations.FS); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}
	return &Store{sqlDB: sqlDB}, nil
}

// Close closes the SQLite handle.
func (s *Store) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

// Append records entry and returns its id.
func (s *Store) Append(ctx context.Context, entry Entry) (int64, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if s == nil || s.sqlDB == nil {
		return 0, fmt.Errorf("storage is not configured")
	}
	if strings.TrimSpace(entry.Line) == "" {
		return 0, fmt.Errorf("line is required")
	}
	if entry.StartedAt.IsZero() {
		entry.StartedAt = time.Now()
	}
	if entry.FinishedAt.IsZero() {
		entry.FinishedAt = entry.StartedAt
	}

	res, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO history (
		   session_id,
		   execution_id,
		   line,
		   source,
		   command,
		   exit_code,
		   started_at,
		   finished_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		entry.SessionID,
		int64(entry.ExecutionID),
		entry.Line,
		entry.Source,
		entry.Command,
		entry.ExitCode,
		toMillis(entry.StartedAt),
		toMillis(entry.FinishedAt),
	)
	if err != nil {
		return 0, fmt.Errorf("insert history entry: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("read history id: %w", err)
	}
	return id, nil
}

// Recent returns up to limit of the newest entries, oldest first.
func (s *Store) Recent(ctx context.Context, limit int) ([]Entry, error) {
	if s == nil || s.sqlDB == nil {
		return nil, fmt.Errorf("storage is not configured")
	}
	if limit <= 0 {
		return nil, nil
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT id, session_id, execution_id, line, source, command, exit_code, started_at, finished_at
		   FROM history
		  ORDER BY id DESC
		  LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query history: %w", err)
	}
	defer rows.Close()

	var entries []Entry
	for rows.Next() {
		var (
			e          Entry
			execID     int64
			startedAt  int64
			finishedAt int64
		)
		if err := rows.Scan(&e.ID, &e.SessionID, &execID, &e.Line, &e.Source, &e.Command, &e.ExitCode, &startedAt, &finishedAt); err != nil {
			return nil, fmt.Errorf("scan history entry: %w", err)
		}
		e.ExecutionID = uint64(execID)
		e.StartedAt = fromMillis(startedAt)
		e.FinishedAt = fromMillis(finishedAt)
		entries = append(entries, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate history: %w", err)
	}

	for i, j := 0, len(entries)-1; i < j; i, j = i+1, j-1 {
		entries[i], entries[j] = entries[j], entries[i]
	}
	return entries, nil
}

// Prune deletes all but the newest keep entries. keep <= 0 keeps everything.
func (s *Store) Prune(ctx context.Context, keep int) error {
	if s == nil || s.sqlDB == nil {
		return fmt.Errorf("storage is not configured")
	}
	if keep <= 0 {
		return nil
	}
	_, err := s.sqlDB.ExecContext(
		ctx,
		`DELETE FROM history
		  WHERE id NOT IN (SELECT id FROM history ORDER BY id DESC LIMIT ?)`,
		keep,
	)
	if err != nil {
		return fmt.Errorf("prune history: %w", err)
	}
	return nil
}

const migrationTable = "schema_migrations"

// applyMigrations executes each embedded .sql file once, in name order.
func applyMigrations(sqlDB *sql.DB, migrationFS fs.FS) error {
	entries, err := fs.ReadDir(migrationFS, ".")
	if err != nil {
		return fmt.Errorf("read migrations dir: %w", err)
	}

	var sqlFiles []string
	for _, entry := range entries {
		if !entry.IsDir() && strings.HasSuffix(entry.Name(), ".sql") {
			sqlFiles = append(sqlFiles, entry.Name())
		}
	}
	sort.Strings(sqlFiles)

	createSQL := fmt.Sprintf(`
CREATE TABLE IF NOT EXISTS %s (
    name TEXT PRIMARY KEY,
    applied_at INTEGER NOT NULL
);
`, migrationTable)
	if _, err := sqlDB.Exec(createSQL); err != nil {
		return fmt.Errorf("ensure migration table: %w", err)
	}

	for _, file := range sqlFiles {
		var count int
		if err := sqlDB.QueryRow(fmt.Sprintf("SELECT COUNT(1) FROM %s WHERE name = ?", migrationTable), file).Scan(&count); err != nil {
			return fmt.Errorf("check migration %s: %w", file, err)
		}
		if count > 0 {
			continue
		}

		content, err := fs.ReadFile(migrationFS, file)
		if err != nil {
			return fmt.Errorf("read migration %s: %w", file, err)
		}

		tx, err := sqlDB.BeginTx(context.Background(), nil)
		if err != nil {
			return fmt.Errorf("begin migration %s: %w", file, err)
		}
		if _, err := tx.Exec(string(content)); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("exec migration %s: %w", file, err)
		}
		if _, err := tx.Exec(fmt.Sprintf("INSERT INTO %s (name, applied_at) VALUES (?, ?)", migrationTable), file, toMillis(time.Now())); err != nil {
			_ = tx.Rollback()
			return fmt.Errorf("record migration %s: %w", file, err)
		}
		if err := tx.Commit(); err != nil {
			return fmt.Errorf("commit migration %s: %w", file, err)
		}
	}
	return nil
}
