package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeqa-mcp/internal/llm"
	"github.com/dshills/codeqa-mcp/internal/searcher"
)

// isolate keeps the developer's own config and keys out of the test
func isolate(t *testing.T) {
	t.Helper()
	t.Setenv("HOME", t.TempDir())
	for _, k := range []string{llm.EnvOpenRouterAPIKey, llm.EnvProvider, "CODEQA_LLM_API_KEY", "CODEQA_SEARCH_TOP_K", "APP_URL"} {
		t.Setenv(k, "")
	}
}

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfigDefaults(t *testing.T) {
	isolate(t)

	cfg, err := LoadConfig("")
	require.NoError(t, err)

	def := DefaultConfig()
	assert.Equal(t, def.Search, cfg.Search)
	assert.Equal(t, def.History, cfg.History)
	assert.Equal(t, def.LLM, cfg.LLM)
	assert.Equal(t, def.Ingest.GitHubBranches, cfg.Ingest.GitHubBranches)
	assert.Equal(t, 30*time.Second, cfg.Ingest.GitHubTimeout)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigFile(t *testing.T) {
	isolate(t)
	path := writeConfig(t, `
database:
  path: /tmp/qa.db
search:
  top_k: 8
  max_context_bytes: 4096
  weights:
    filename: 80
    tech_term: 0
ingest:
  github_timeout: 5s
  github_branches: [develop]
llm:
  provider: local
  model: meta-llama/llama-3-8b-instruct
logging:
  level: debug
  format: json
`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "/tmp/qa.db", cfg.DatabasePath())
	assert.Equal(t, 8, cfg.Search.TopK)
	assert.Equal(t, 4096, cfg.Search.MaxContextBytes)
	assert.Equal(t, searcher.DefaultContextLines, cfg.Search.ContextLines, "unset keys keep defaults")
	assert.Equal(t, WeightsConfig{
		Occurrence:      20,
		Declaration:     30,
		Filename:        80,
		PackageManifest: 200,
		TechTerm:        0,
	}, cfg.Search.Weights)
	assert.Equal(t, 5*time.Second, cfg.Ingest.GitHubTimeout)
	assert.Equal(t, []string{"develop"}, cfg.Ingest.GitHubBranches)
	assert.Equal(t, "local", cfg.LLM.Provider)
	assert.Equal(t, "meta-llama/llama-3-8b-instruct", cfg.LLM.Model)
	assert.Equal(t, "json", cfg.Logging.Format)
}

func TestLoadConfigEnvOverrides(t *testing.T) {
	isolate(t)
	path := writeConfig(t, "search:\n  top_k: 8\n")
	t.Setenv("CODEQA_SEARCH_TOP_K", "12")
	t.Setenv(llm.EnvOpenRouterAPIKey, "sk-or-test")
	t.Setenv("APP_URL", "http://localhost:3000")

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 12, cfg.Search.TopK)
	assert.Equal(t, "sk-or-test", cfg.LLM.APIKey)
	assert.Equal(t, "http://localhost:3000", cfg.LLM.AppURL)
}

func TestLoadConfigErrors(t *testing.T) {
	isolate(t)

	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err, "an explicit path must exist")

	_, err = LoadConfig(writeConfig(t, "search: [unclosed"))
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{"empty database path", func(c *Config) { c.Database.Path = "" }, "database.path"},
		{"zero top_k", func(c *Config) { c.Search.TopK = 0 }, "search.top_k"},
		{"top_k above max", func(c *Config) { c.Search.TopK = searcher.MaxTopK + 1 }, "search.top_k"},
		{"negative context lines", func(c *Config) { c.Search.ContextLines = -1 }, "search"},
		{"negative weight", func(c *Config) { c.Search.Weights.Occurrence = -1 }, "search.weights"},
		{"zero batch size", func(c *Config) { c.Ingest.BatchSize = 0 }, "ingest.batch_size"},
		{"zero history", func(c *Config) { c.History.MaxPerProject = 0 }, "history.max_per_project"},
		{"unknown provider", func(c *Config) { c.LLM.Provider = "gemini" }, "llm.provider"},
		{"unknown log format", func(c *Config) { c.Logging.Format = "xml" }, "logging.format"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			err := cfg.Validate()
			require.Error(t, err)

			var cfgErr *ConfigError
			require.ErrorAs(t, err, &cfgErr)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestSearcherConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Search.TopK = 7
	cfg.Search.MaxFiles = 10
	cfg.Search.Weights.Filename = 75

	sc, err := cfg.SearcherConfig()
	require.NoError(t, err)
	assert.Equal(t, 7, sc.TopK)
	assert.Equal(t, 10, sc.MaxFiles)
	want := searcher.DefaultWeights()
	want.Filename = 75
	assert.Equal(t, want, sc.Weights)
	assert.Same(t, searcher.DefaultLists(), sc.Lists)
	assert.NoError(t, sc.Validate())

	cfg.Search.ListsFile = "../searcher/lists.yaml"
	sc, err = cfg.SearcherConfig()
	require.NoError(t, err)
	assert.NotSame(t, searcher.DefaultLists(), sc.Lists)
	assert.True(t, sc.Lists.IsTechKeyword("express"))

	cfg.Search.ListsFile = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = cfg.SearcherConfig()
	assert.Error(t, err)
}

func TestComponentConfigs(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Ingest.BatchSize = 7
	cfg.Ingest.GitHubBranches = nil
	cfg.LLM.MaxAttempts = 5
	cfg.History.Limit = 3

	ic := cfg.IngesterConfig()
	assert.Equal(t, 7, ic.BatchSize)
	assert.Equal(t, []string{"main", "master"}, ic.GitHub.Branches)

	ac := cfg.AnswererConfig()
	assert.Equal(t, 5, ac.Retry.MaxAttempts)
	assert.Equal(t, llm.DefaultOpenRouterModel, ac.Model)

	qc := cfg.QAConfig()
	assert.Equal(t, 3, qc.HistoryLimit)
	assert.Equal(t, cfg.Search.TopK, qc.TopK)
}

func TestSaveRoundTrip(t *testing.T) {
	isolate(t)
	cfg := DefaultConfig()
	cfg.Search.TopK = 9
	cfg.LLM.Timeout = 45 * time.Second

	path := filepath.Join(t.TempDir(), "nested", "config.yaml")
	require.NoError(t, cfg.Save(path))

	loaded, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, 9, loaded.Search.TopK)
	assert.Equal(t, 45*time.Second, loaded.LLM.Timeout)
}

func TestRedacted(t *testing.T) {
	cfg := DefaultConfig()
	cfg.LLM.APIKey = "secret"
	red := cfg.Redacted()
	assert.Equal(t, "********", red.LLM.APIKey)
	assert.Equal(t, "secret", cfg.LLM.APIKey)

	out, err := red.YAML()
	require.NoError(t, err)
	assert.NotContains(t, string(out), "secret")
}

func TestExpandHome(t *testing.T) {
	home := t.TempDir()
	t.Setenv("HOME", home)
	assert.Equal(t, filepath.Join(home, ".codeqa", "codeqa.db"), ExpandHome("~/.codeqa/codeqa.db"))
	assert.Equal(t, home, ExpandHome("~"))
	assert.Equal(t, "/abs/path", ExpandHome("/abs/path"))
	assert.Equal(t, "~user/x", ExpandHome("~user/x"))
}
