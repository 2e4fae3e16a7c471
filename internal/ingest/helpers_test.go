package ingest

import (
	"bytes"
	"testing"
	"time"

	"github.com/klauspost/compress/zip"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeqa-mcp/internal/retry"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

type zipMember struct {
	name    string
	content string
}

func buildZip(t *testing.T, members ...zipMember) []byte {
	t.Helper()
	var buf bytes.Buffer
	w := zip.NewWriter(&buf)
	for _, m := range members {
		f, err := w.Create(m.name)
		require.NoError(t, err)
		if m.content != "" {
			_, err = f.Write([]byte(m.content))
			require.NoError(t, err)
		}
	}
	require.NoError(t, w.Close())
	return buf.Bytes()
}

func setupIngester(t *testing.T, mutate ...func(*Config)) (*Ingester, *storage.SQLiteStorage) {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	cfg := DefaultConfig()
	cfg.GitHub.Retry = retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
	for _, m := range mutate {
		m(&cfg)
	}
	return New(store, cfg, nil), store
}

func storedPaths(t *testing.T, store storage.Storage, projectID string) []string {
	t.Helper()
	files, err := store.ListFiles(t.Context(), projectID)
	require.NoError(t, err)
	paths := make([]string, len(files))
	for i, f := range files {
		paths[i] = f.Path
	}
	return paths
}
