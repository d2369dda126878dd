package store

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"
)

func newTestSQLiteStore(t *testing.T) Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := NewSQLiteStore(context.Background(), path, quietLogger())
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func TestSQLiteStore(t *testing.T) {
	runStoreSuite(t, newTestSQLiteStore)
}

func TestSQLiteStore_ReopenKeepsData(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "nested", "reopen.db")

	s, err := NewSQLiteStore(ctx, path, quietLogger())
	require.NoError(t, err)
	_, err = s.StoreHistory(ctx, "TCS.NS", enriched(4))
	require.NoError(t, err)
	require.NoError(t, s.Close())

	s, err = NewSQLiteStore(ctx, path, quietLogger())
	require.NoError(t, err)
	defer s.Close()
	n, err := s.CountBars(ctx, "TCS.NS")
	require.NoError(t, err)
	require.Equal(t, 4, n)
}
