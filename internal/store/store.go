// Package store owns the relational schema of a deck: deck, card,
// media, review_state and meta tables inside one SQLite file. It is the
// only component that reads or writes entity rows while a deck is open;
// the container codec treats the whole file as an opaque snapshot.
package store

import (
	"context"
	"database/sql"
	"embed"
	stderrors "errors"
	"fmt"
	"time"

	_ "github.com/mattn/go-sqlite3"

	"github.com/morflash/morflash/internal/logger"
)

//go:embed migrations/*.sql
var migrationsFS embed.FS

var (
	// ErrIntegrity is returned when a populate or update would violate a
	// foreign key or the media binding constraint. Nothing is applied.
	ErrIntegrity = stderrors.New("store: integrity violation")

	// ErrNotFound is returned by single-row updates that matched nothing.
	ErrNotFound = stderrors.New("store: not found")
)

// Store wraps a SQLite connection holding one deck.
type Store struct {
	*sql.DB
	path string
	log  *logger.Logger
}

// Open opens (creating if necessary) a deck store at path and applies
// pending migrations. The journal mode is DELETE, not WAL, so that a
// closed store is always a single self-contained file the codec can
// copy byte-for-byte into an archive.
func Open(path string) (*Store, error) {
	s, err := open(path)
	if err != nil {
		return nil, err
	}
	if err := s.applyMigrations(context.Background()); err != nil {
		s.DB.Close()
		s.log.Error("failed to apply migrations: %v", err)
		return nil, err
	}
	return s, nil
}

// Attach opens an existing deck store without creating or migrating
// schema. It fails if the file does not already carry the expected
// tables, which is how the codec detects a corrupt or foreign snapshot.
func Attach(path string) (*Store, error) {
	s, err := open(path)
	if err != nil {
		return nil, err
	}
	var v string
	err = s.QueryRowContext(context.Background(), `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if err != nil {
		s.DB.Close()
		return nil, fmt.Errorf("store: snapshot missing schema_version: %w", err)
	}
	return s, nil
}

func open(path string) (*Store, error) {
	log := logger.Default().WithPrefix("store")

	dsn := fmt.Sprintf("%s?_busy_timeout=5000&_foreign_keys=on&_journal_mode=DELETE&_synchronous=FULL", path)
	log.Debug("opening deck store: %s", path)

	sqlDB, err := sql.Open("sqlite3", dsn)
	if err != nil {
		log.Error("failed to open deck store: %v", err)
		return nil, err
	}
	sqlDB.SetMaxOpenConns(1) // single writer

	return &Store{DB: sqlDB, path: path, log: log}, nil
}

// Path returns the filesystem path of the underlying database.
func (s *Store) Path() string {
	return s.path
}

func (s *Store) applyMigrations(ctx context.Context) error {
	if _, err := s.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS schema_migrations (version TEXT PRIMARY KEY, applied_at DATETIME DEFAULT CURRENT_TIMESTAMP)`); err != nil {
		return err
	}

	entries, err := migrationsFS.ReadDir("migrations")
	if err != nil {
		return err
	}

	for _, entry := range entries {
		version := entry.Name()
		applied, err := s.isMigrationApplied(ctx, version)
		if err != nil {
			return err
		}
		if applied {
			continue
		}
		sqlBytes, err := migrationsFS.ReadFile("migrations/" + version)
		if err != nil {
			return err
		}
		s.log.Debug("applying migration: %s", version)
		if _, err := s.ExecContext(ctx, string(sqlBytes)); err != nil {
			return fmt.Errorf("apply migration %s: %w", version, err)
		}
		if _, err := s.ExecContext(ctx, `INSERT INTO schema_migrations (version) VALUES (?)`, version); err != nil {
			return err
		}
	}
	return nil
}

func (s *Store) isMigrationApplied(ctx context.Context, version string) (bool, error) {
	var v string
	err := s.QueryRowContext(ctx, `SELECT version FROM schema_migrations WHERE version = ?`, version).Scan(&v)
	if stderrors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	return err == nil, err
}

func tx(ctx context.Context, s *Store, fn func(*sql.Tx) error) error {
	t, err := s.BeginTx(ctx, nil)
	if err != nil {
		s.log.Error("failed to begin transaction: %v", err)
		return err
	}
	if err := fn(t); err != nil {
		_ = t.Rollback()
		s.log.Debug("transaction rolled back: %v", err)
		return err
	}
	if err := t.Commit(); err != nil {
		s.log.Error("failed to commit transaction: %v", err)
		return err
	}
	return nil
}

// Timestamps are persisted as unix milliseconds UTC.

func toMillis(t time.Time) int64 {
	return t.UTC().UnixMilli()
}

func fromMillis(ms int64) time.Time {
	return time.UnixMilli(ms).UTC()
}
