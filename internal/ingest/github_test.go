package ingest

import (
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseGitHubURL(t *testing.T) {
	valid := []struct {
		url, owner, repo string
	}{
		{"https://github.com/o/r", "o", "r"},
		{"http://www.github.com/o/r/", "o", "r"},
		{"https://github.com/o/r.git", "o", "r"},
		{"https://github.com/my-org/my.repo", "my-org", "my.repo"},
		{"  https://github.com/o/r  ", "o", "r"},
	}
	for _, tt := range valid {
		owner, repo, err := ParseGitHubURL(tt.url)
		require.NoError(t, err, tt.url)
		assert.Equal(t, tt.owner, owner, tt.url)
		assert.Equal(t, tt.repo, repo, tt.url)
	}

	invalid := []string{
		"",
		"github.com/o/r",
		"https://gitlab.com/o/r",
		"https://github.com/o",
		"https://github.com/o/r/tree/main",
	}
	for _, raw := range invalid {
		_, _, err := ParseGitHubURL(raw)
		assert.ErrorIs(t, err, ErrInvalidGitHubURL, raw)
	}
}

func TestIngestGitHubFallsBackToMaster(t *testing.T) {
	archive := buildZip(t,
		zipMember{name: "repo-master/cmd/main.go", content: "package main"},
		zipMember{name: "repo-master/go.mod", content: "module example"},
	)

	var mainCalls, masterCalls atomic.Int32
	mux := http.NewServeMux()
	mux.HandleFunc("/owner/repo/archive/refs/heads/main.zip", func(w http.ResponseWriter, r *http.Request) {
		mainCalls.Add(1)
		http.NotFound(w, r)
	})
	mux.HandleFunc("/owner/repo/archive/refs/heads/master.zip", func(w http.ResponseWriter, r *http.Request) {
		masterCalls.Add(1)
		_, _ = w.Write(archive)
	})
	srv := httptest.NewServer(mux)
	defer srv.Close()

	ing, store := setupIngester(t, func(c *Config) { c.GitHub.BaseURL = srv.URL })

	stats, err := ing.IngestGitHub(t.Context(), "https://github.com/owner/repo", "")
	require.NoError(t, err)
	assert.Equal(t, "repo", stats.Name)
	assert.Equal(t, []string{"cmd/main.go"}, storedPaths(t, store, stats.ProjectID))

	project, err := store.GetProject(t.Context(), stats.ProjectID)
	require.NoError(t, err)
	assert.Equal(t, "github:https://github.com/owner/repo", project.Source)

	// 404 is not retried
	assert.Equal(t, int32(1), mainCalls.Load())
	assert.Equal(t, int32(1), masterCalls.Load())
}

func TestIngestGitHubRetriesServerErrors(t *testing.T) {
	archive := buildZip(t, zipMember{name: "repo-main/app.py", content: "print(1)"})

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) == 1 {
			w.WriteHeader(http.StatusInternalServerError)
			return
		}
		_, _ = w.Write(archive)
	}))
	defer srv.Close()

	ing, _ := setupIngester(t, func(c *Config) { c.GitHub.BaseURL = srv.URL })

	stats, err := ing.IngestGitHub(t.Context(), "https://github.com/owner/repo", "custom")
	require.NoError(t, err)
	assert.Equal(t, "custom", stats.Name)
	assert.Equal(t, 1, stats.FilesStored)
	assert.Equal(t, int32(2), calls.Load())
}

func TestIngestGitHubDownloadFailed(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	defer srv.Close()

	ing, store := setupIngester(t, func(c *Config) { c.GitHub.BaseURL = srv.URL })

	_, err := ing.IngestGitHub(t.Context(), "https://github.com/owner/missing", "")
	assert.ErrorIs(t, err, ErrDownloadFailed)

	projects, err := store.ListProjects(t.Context())
	require.NoError(t, err)
	assert.Empty(t, projects)
}

func TestIngestGitHubInvalidURL(t *testing.T) {
	ing, _ := setupIngester(t)
	_, err := ing.IngestGitHub(t.Context(), "not a url", "")
	assert.ErrorIs(t, err, ErrInvalidGitHubURL)
}

func TestArchiveURL(t *testing.T) {
	ing, _ := setupIngester(t, func(c *Config) { c.GitHub.BaseURL = "https://example.test/" })
	assert.Equal(t, "https://example.test/o/r/archive/refs/heads/main.zip", ing.ArchiveURL("o", "r", "main"))
}
