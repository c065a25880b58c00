package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := Open(filepath.Join(t.TempDir(), "jersey.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func pragma(t *testing.T, s *Store, name string) string {
	t.Helper()
	var value string
	require.NoError(t, s.db.QueryRow("PRAGMA "+name).Scan(&value))
	return value
}

func TestOpen_CreatesFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jersey.db")

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	assert.FileExists(t, path)
	assert.NoError(t, s.Ping(context.Background()))
}

func TestOpen_ReopenKeepsEntries(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "jersey.db")

	s1, err := Open(path)
	require.NoError(t, err)
	_, err = s1.Append(ctx, SubmissionsKey, map[string]string{"name": "a"})
	require.NoError(t, err)
	require.NoError(t, s1.Close())

	s2, err := Open(path)
	require.NoError(t, err)
	defer s2.Close()

	entries, err := s2.Entries(ctx, SubmissionsKey)
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpen_Idempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jersey.db")
	for i := 0; i < 3; i++ {
		s, err := Open(path)
		require.NoError(t, err, "open #%d", i)
		require.NoError(t, s.Close())
	}

	s, err := Open(path)
	require.NoError(t, err)
	defer s.Close()

	var name string
	err = s.db.QueryRow("SELECT name FROM sqlite_master WHERE type='table' AND name='kv'").Scan(&name)
	assert.NoError(t, err)
}

func TestOpen_InMemory(t *testing.T) {
	ctx := context.Background()
	s, err := Open(":memory:")
	require.NoError(t, err)
	defer s.Close()

	_, err = s.Append(ctx, "k", 1)
	require.NoError(t, err)

	entries, err := s.Entries(ctx, "k")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestOpen_MissingDirectory(t *testing.T) {
	_, err := Open("/nonexistent/dir/jersey.db")
	assert.ErrorContains(t, err, "open store")
}

func TestOpen_RejectsNewerSchema(t *testing.T) {
	path := filepath.Join(t.TempDir(), "jersey.db")

	s, err := Open(path)
	require.NoError(t, err)
	_, err = s.db.Exec("PRAGMA user_version = 99")
	require.NoError(t, err)
	require.NoError(t, s.Close())

	_, err = Open(path)
	assert.ErrorContains(t, err, "newer than supported")
}

func TestClose_ZeroStore(t *testing.T) {
	assert.NoError(t, (&Store{}).Close())
}

func TestConnectionPragmas(t *testing.T) {
	s := openTestStore(t)

	assert.Equal(t, "wal", pragma(t, s, "journal_mode"))
	assert.Equal(t, "1", pragma(t, s, "synchronous")) // NORMAL
	assert.Equal(t, "5000", pragma(t, s, "busy_timeout"))
	assert.Equal(t, "1", pragma(t, s, "user_version"))
}
