package testutil

import (
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/morflash/morflash/internal/store"
)

// NewTestStore creates a deck store backed by a temp file with the full
// schema applied. The file lives in t.TempDir so it is removed when the
// test ends.
func NewTestStore(t *testing.T) *store.Store {
	t.Helper()

	path := filepath.Join(t.TempDir(), "deck.sqlite")
	s, err := store.Open(path)
	require.NoError(t, err)

	t.Cleanup(func() { _ = s.Close() })
	return s
}

// MustClose closes a resource and fails the test on error.
func MustClose(t *testing.T, closer interface{ Close() error }) {
	t.Helper()
	require.NoError(t, closer.Close())
}
