package mcp

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/uuid"
	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeqa-mcp/internal/ingest"
	"github.com/dshills/codeqa-mcp/internal/llm"
	"github.com/dshills/codeqa-mcp/internal/qa"
	"github.com/dshills/codeqa-mcp/internal/searcher"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

func setupServer(t *testing.T) *Server {
	t.Helper()
	store, err := storage.NewSQLiteStorage(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { _ = store.Close() })

	engine, err := searcher.NewEngine(searcher.DefaultConfig(), nil)
	require.NoError(t, err)
	srch := searcher.NewSearcher(store, engine, nil)

	s, err := NewServer(Dependencies{
		Storage:  store,
		Ingester: ingest.New(store, ingest.DefaultConfig(), nil),
		Searcher: srch,
		QA:       qa.New(store, srch, llm.NewLocalProvider(), qa.DefaultConfig(), nil),
	})
	require.NoError(t, err)
	return s
}

func toolRequest(args interface{}) mcp.CallToolRequest {
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	return req
}

func decodeResult(t *testing.T, res *mcp.CallToolResult) map[string]interface{} {
	t.Helper()
	require.NotNil(t, res)
	require.Len(t, res.Content, 1)
	text, ok := res.Content[0].(mcp.TextContent)
	require.True(t, ok, "expected text content")

	var out map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(text.Text), &out))
	return out
}

func requireMCPError(t *testing.T, err error, code int) *MCPError {
	t.Helper()
	var mcpErr *MCPError
	require.ErrorAs(t, err, &mcpErr)
	assert.Equal(t, code, mcpErr.Code, mcpErr.Message)
	return mcpErr
}

func writeProject(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	files := map[string]string{
		"src/server.js":       "const express = require('express')\nconst app = express()\napp.listen(3000)\n",
		"src/routes/users.js": "function listUsers(req, res) {\n  res.json([])\n}\n",
	}
	for rel, content := range files {
		full := filepath.Join(root, filepath.FromSlash(rel))
		require.NoError(t, os.MkdirAll(filepath.Dir(full), 0o755))
		require.NoError(t, os.WriteFile(full, []byte(content), 0o644))
	}
	return root
}

func uploadDir(t *testing.T, s *Server) string {
	t.Helper()
	res, err := s.handleUploadProject(t.Context(), toolRequest(map[string]interface{}{
		"path": writeProject(t),
		"name": "demo",
	}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, "demo", out["name"])
	assert.EqualValues(t, 2, out["files_stored"])
	return out["project_id"].(string)
}

func TestNewServerRequiresDependencies(t *testing.T) {
	_, err := NewServer(Dependencies{})
	assert.Error(t, err)
}

func TestUploadAskAndHistory(t *testing.T) {
	s := setupServer(t)
	projectID := uploadDir(t, s)

	res, err := s.handleListProjects(t.Context(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	projects := decodeResult(t, res)["projects"].([]interface{})
	require.Len(t, projects, 1)
	assert.Equal(t, projectID, projects[0].(map[string]interface{})["id"])

	res, err = s.handleAskQuestion(t.Context(), toolRequest(map[string]interface{}{
		"project_id": projectID,
		"question":   "where is listUsers defined?",
	}))
	require.NoError(t, err)
	answer := decodeResult(t, res)
	assert.Equal(t, "ok", answer["outcome"])
	assert.Equal(t, llm.ProviderLocal, answer["provider"])
	refs := answer["references"].([]interface{})
	require.NotEmpty(t, refs)
	assert.Equal(t, "src/routes/users.js", refs[0].(map[string]interface{})["filePath"])
	assert.Contains(t, answer["answer"], "src/routes/users.js")

	res, err = s.handleGetHistory(t.Context(), toolRequest(map[string]interface{}{"project_id": projectID}))
	require.NoError(t, err)
	history := decodeResult(t, res)["history"].([]interface{})
	require.Len(t, history, 1)
	assert.Equal(t, "where is listUsers defined?", history[0].(map[string]interface{})["question"])
}

func TestSearchCode(t *testing.T) {
	s := setupServer(t)
	projectID := uploadDir(t, s)

	res, err := s.handleSearchCode(t.Context(), toolRequest(map[string]interface{}{
		"project_id": projectID,
		"query":      "express app listen",
		"top_k":      float64(1),
	}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, "ok", out["outcome"])
	assert.Contains(t, out["contextForLlm"], "[FILE: src/server.js (lines ")
	assert.NotContains(t, out, "truncation")

	for _, topK := range []float64{0, 51} {
		_, err = s.handleSearchCode(t.Context(), toolRequest(map[string]interface{}{
			"project_id": projectID,
			"query":      "express",
			"top_k":      topK,
		}))
		requireMCPError(t, err, ErrorCodeInvalidParams)
	}

	_, err = s.handleSearchCode(t.Context(), toolRequest(map[string]interface{}{"project_id": projectID}))
	requireMCPError(t, err, ErrorCodeEmptyQuery)
}

func TestProjectArgumentErrors(t *testing.T) {
	s := setupServer(t)

	_, err := s.handleGetHistory(t.Context(), toolRequest(map[string]interface{}{}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleGetHistory(t.Context(), toolRequest(map[string]interface{}{"project_id": "abc"}))
	requireMCPError(t, err, ErrorCodeInvalidParams)

	_, err = s.handleSearchCode(t.Context(), toolRequest(map[string]interface{}{
		"project_id": uuid.NewString(),
		"query":      "x",
	}))
	requireMCPError(t, err, ErrorCodeProjectNotFound)

	_, err = s.handleSearchCode(t.Context(), toolRequest("not a map"))
	requireMCPError(t, err, ErrorCodeInvalidParams)
}

func TestAskQuestionErrors(t *testing.T) {
	s := setupServer(t)
	projectID := uploadDir(t, s)

	empty, err := s.handleUploadProject(t.Context(), toolRequest(map[string]interface{}{"path": t.TempDir()}))
	require.NoError(t, err)
	emptyID := decodeResult(t, empty)["project_id"].(string)

	tests := []struct {
		name string
		args map[string]interface{}
		code int
		msg  string
	}{
		{"missing question", map[string]interface{}{"project_id": projectID}, ErrorCodeInvalidParams, qa.ErrQuestionRequired.Error()},
		{"blank question", map[string]interface{}{"project_id": projectID, "question": "  "}, ErrorCodeEmptyQuery, qa.ErrQuestionEmpty.Error()},
		{"bad id", map[string]interface{}{"project_id": "123", "question": "why"}, ErrorCodeInvalidParams, qa.ErrInvalidProjectID.Error()},
		{"unknown project", map[string]interface{}{"project_id": uuid.NewString(), "question": "why"}, ErrorCodeProjectNotFound, qa.ErrProjectNotFound.Error()},
		{"no files", map[string]interface{}{"project_id": emptyID, "question": "why"}, ErrorCodeNoFiles, qa.ErrNoFilesUploaded.Error()},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleAskQuestion(t.Context(), toolRequest(tt.args))
			mcpErr := requireMCPError(t, err, tt.code)
			assert.Equal(t, tt.msg, mcpErr.Message)
		})
	}
}

func TestUploadProjectErrors(t *testing.T) {
	s := setupServer(t)
	dir := t.TempDir()

	badZip := filepath.Join(dir, "broken.zip")
	require.NoError(t, os.WriteFile(badZip, []byte("not a zip"), 0o644))

	tests := []struct {
		name string
		args map[string]interface{}
		code int
	}{
		{"no source", map[string]interface{}{}, ErrorCodeInvalidParams},
		{"two sources", map[string]interface{}{"path": dir, "github_url": "https://github.com/o/r"}, ErrorCodeInvalidParams},
		{"relative path", map[string]interface{}{"path": "relative/dir"}, ErrorCodeInvalidParams},
		{"missing dir", map[string]interface{}{"path": filepath.Join(dir, "nope")}, ErrorCodeInvalidParams},
		{"zip is directory", map[string]interface{}{"zip_path": dir}, ErrorCodeInvalidParams},
		{"corrupt zip", map[string]interface{}{"zip_path": badZip}, ErrorCodeInvalidParams},
		{"bad github url", map[string]interface{}{"github_url": "https://gitlab.com/o/r"}, ErrorCodeInvalidParams},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.handleUploadProject(t.Context(), toolRequest(tt.args))
			requireMCPError(t, err, tt.code)
		})
	}

	_, err := s.handleUploadProject(t.Context(), toolRequest(map[string]interface{}{"zip_path": badZip}))
	assert.Equal(t, msgInvalidZip, requireMCPError(t, err, ErrorCodeInvalidParams).Message)
	assert.False(t, s.uploadLock.Held(), "lock released after failure")
}

func TestUploadRejectedWhileInProgress(t *testing.T) {
	s := setupServer(t)
	require.True(t, s.uploadLock.TryAcquire())
	defer s.uploadLock.Release()

	_, err := s.handleUploadProject(t.Context(), toolRequest(map[string]interface{}{"path": writeProject(t)}))
	requireMCPError(t, err, ErrorCodeUploadInProgress)

	res, err := s.handleGetStatus(t.Context(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	assert.Equal(t, true, decodeResult(t, res)["upload_in_progress"])
}

func TestGetStatus(t *testing.T) {
	s := setupServer(t)
	uploadDir(t, s)

	res, err := s.handleGetStatus(t.Context(), toolRequest(map[string]interface{}{}))
	require.NoError(t, err)
	out := decodeResult(t, res)
	assert.Equal(t, "ok", out["backend"])
	assert.Equal(t, "connected", out["database"])
	assert.Equal(t, "Connected", out["llm"])

	stats := out["statistics"].(map[string]interface{})
	assert.EqualValues(t, 1, stats["projects"])
	assert.EqualValues(t, 2, stats["files"])
}
