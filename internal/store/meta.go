package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"fmt"
)

// MetaGet returns the value stored under key in the meta table.
func (s *Store) MetaGet(ctx context.Context, key string) (string, error) {
	var v string
	err := s.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&v)
	if stderrors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: meta key %q", ErrNotFound, key)
	}
	return v, err
}

// MetaSet upserts a key/value pair in the meta table. The meta table
// lets the relational schema evolve independently of the container
// version (schema_version lives here).
func (s *Store) MetaSet(ctx context.Context, key, value string) error {
	_, err := s.ExecContext(ctx, `
INSERT INTO meta (key, value)
VALUES (?, ?)
ON CONFLICT(key) DO UPDATE SET value = excluded.value
`, key, value)
	return err
}

// SchemaVersion returns the relational schema version of this store.
func (s *Store) SchemaVersion(ctx context.Context) (string, error) {
	return s.MetaGet(ctx, "schema_version")
}
