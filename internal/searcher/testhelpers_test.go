package searcher

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

func newTestEngine(t *testing.T, mutate ...func(*Config)) *Engine {
	t.Helper()
	cfg := DefaultConfig()
	for _, m := range mutate {
		m(&cfg)
	}
	engine, err := NewEngine(cfg, nil)
	require.NoError(t, err)
	return engine
}

func fileAt(path, content string) types.FileRecord {
	return types.FileRecord{Path: path, Content: content}
}
