package mcp

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/dshills/codeqa-mcp/internal/ingest"
	"github.com/dshills/codeqa-mcp/internal/qa"
	"github.com/dshills/codeqa-mcp/internal/searcher"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

// MCP error codes
const (
	ErrorCodeInvalidParams    = -32602 // Invalid method parameters
	ErrorCodeInternalError    = -32603 // Internal JSON-RPC error
	ErrorCodeProjectNotFound  = -32001 // No project with the given id
	ErrorCodeUploadInProgress = -32002 // Another upload is already running
	ErrorCodeNoFiles          = -32003 // Project has no stored files
	ErrorCodeEmptyQuery       = -32004 // Question or query is blank
	ErrorCodeLLMUnavailable   = -32005 // No answer provider configured
	ErrorCodeImportFailed     = -32006 // GitHub download failed
)

// User-facing messages
const (
	msgInvalidZip         = "Invalid or corrupted zip file."
	msgGitHubImportFailed = "Failed to import from GitHub. Check the URL and try again."
)

// maxReportedErrors limits the per-file errors echoed back after an upload
const maxReportedErrors = 5

// handleUploadProject handles the upload_project tool invocation
func (s *Server) handleUploadProject(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	// Extract and validate parameters
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	path := getStringDefault(args, "path", "")
	zipPath := getStringDefault(args, "zip_path", "")
	githubURL := getStringDefault(args, "github_url", "")
	name := getStringDefault(args, "name", "")

	sources := 0
	for _, v := range []string{path, zipPath, githubURL} {
		if v != "" {
			sources++
		}
	}
	if sources != 1 {
		return nil, newMCPError(ErrorCodeInvalidParams, "exactly one of path, zip_path or github_url is required", map[string]interface{}{
			"param":  "path|zip_path|github_url",
			"reason": fmt.Sprintf("%d sources given", sources),
		})
	}

	if !s.uploadLock.TryAcquire() {
		return nil, newMCPError(ErrorCodeUploadInProgress, "another upload is already in progress", nil)
	}
	defer s.uploadLock.Release()

	var stats *ingest.Statistics
	var err error
	switch {
	case path != "":
		if verr := validatePath(path, true); verr != nil {
			return nil, invalidPathError("path", verr)
		}
		stats, err = s.ingester.IngestDirectory(ctx, path, name)
	case zipPath != "":
		if verr := validatePath(zipPath, false); verr != nil {
			return nil, invalidPathError("zip_path", verr)
		}
		stats, err = s.ingester.IngestZipFile(ctx, zipPath, name)
	default:
		stats, err = s.ingester.IngestGitHub(ctx, githubURL, name)
	}
	if err != nil {
		return nil, uploadError(err)
	}

	// Format response
	response := map[string]interface{}{
		"project_id":      stats.ProjectID,
		"name":            stats.Name,
		"files_stored":    stats.FilesStored,
		"files_skipped":   stats.FilesSkipped,
		"files_failed":    stats.FilesFailed,
		"files_duplicate": stats.FilesDuplicate,
		"duration_ms":     stats.Duration.Milliseconds(),
	}

	if len(stats.Errors) > 0 {
		// Include first few errors
		errorCount := len(stats.Errors)
		if errorCount > maxReportedErrors {
			response["errors"] = stats.Errors[:maxReportedErrors]
			response["error_count"] = errorCount
		} else {
			response["errors"] = stats.Errors
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// uploadError maps ingestion failures to MCP errors
func uploadError(err error) error {
	data := map[string]interface{}{"error": err.Error()}
	switch {
	case errors.Is(err, ingest.ErrInvalidArchive), errors.Is(err, ingest.ErrArchiveTooLarge):
		return newMCPError(ErrorCodeInvalidParams, msgInvalidZip, data)
	case errors.Is(err, ingest.ErrInvalidGitHubURL):
		return newMCPError(ErrorCodeInvalidParams, msgGitHubImportFailed, data)
	case errors.Is(err, ingest.ErrDownloadFailed):
		return newMCPError(ErrorCodeImportFailed, msgGitHubImportFailed, data)
	case errors.Is(err, ingest.ErrNotDirectory):
		return newMCPError(ErrorCodeInvalidParams, "invalid path", data)
	default:
		return newMCPError(ErrorCodeInternalError, "upload failed", data)
	}
}

// handleAskQuestion handles the ask_question tool invocation
func (s *Server) handleAskQuestion(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID := getStringDefault(args, "project_id", "")
	question := getStringDefault(args, "question", "")

	result, err := s.qa.Ask(ctx, projectID, question)
	if err != nil {
		return nil, qaError(err)
	}

	response := map[string]interface{}{
		"answer":     result.Answer,
		"references": result.References,
		"keywords":   result.Keywords,
		"outcome":    result.Outcome,
		"provider":   result.Provider,
	}
	if result.Degraded {
		response["degraded"] = true
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// qaError maps question validation failures to MCP errors. The qa messages
// are passed through unchanged.
func qaError(err error) error {
	code := ErrorCodeInternalError
	switch {
	case errors.Is(err, qa.ErrQuestionRequired), errors.Is(err, qa.ErrInvalidProjectID):
		code = ErrorCodeInvalidParams
	case errors.Is(err, qa.ErrQuestionEmpty):
		code = ErrorCodeEmptyQuery
	case errors.Is(err, qa.ErrProjectNotFound):
		code = ErrorCodeProjectNotFound
	case errors.Is(err, qa.ErrNoFilesUploaded):
		code = ErrorCodeNoFiles
	case errors.Is(err, qa.ErrLLMUnavailable):
		code = ErrorCodeLLMUnavailable
	default:
		return newMCPError(code, "ask failed", map[string]interface{}{"error": err.Error()})
	}
	return newMCPError(code, err.Error(), nil)
}

// handleSearchCode handles the search_code tool invocation. It returns the
// raw engine output without generating an answer.
func (s *Server) handleSearchCode(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID, err := s.requireProject(ctx, args)
	if err != nil {
		return nil, err
	}

	query, ok := args["query"].(string)
	if !ok || query == "" {
		return nil, newMCPError(ErrorCodeEmptyQuery, "query parameter is required and cannot be empty", map[string]interface{}{
			"param":  "query",
			"reason": "missing or empty",
		})
	}

	topK := getIntDefault(args, "top_k", s.searcher.Engine().Config().TopK)
	if topK < 1 || topK > searcher.MaxTopK {
		return nil, newMCPError(ErrorCodeInvalidParams, fmt.Sprintf("top_k must be between 1 and %d", searcher.MaxTopK), map[string]interface{}{
			"param": "top_k",
			"value": topK,
		})
	}

	result, err := s.searcher.Search(ctx, searcher.SearchRequest{
		ProjectID: projectID,
		Question:  query,
		TopK:      topK,
	})
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "search failed", map[string]interface{}{
			"error": err.Error(),
		})
	}

	response := map[string]interface{}{
		"snippets":      result.Snippets,
		"contextForLlm": result.ContextForLLM,
		"keywords":      result.Keywords,
		"outcome":       result.Outcome,
	}
	if result.Truncation.Any() {
		response["truncation"] = map[string]interface{}{
			"files_skipped":   result.Truncation.FilesSkipped,
			"files_clipped":   result.Truncation.FilesClipped,
			"context_clipped": result.Truncation.ContextClipped,
		}
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// handleGetHistory handles the get_history tool invocation
func (s *Server) handleGetHistory(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	args, ok := request.Params.Arguments.(map[string]interface{})
	if !ok {
		return nil, newMCPError(ErrorCodeInvalidParams, "invalid arguments", nil)
	}

	projectID, err := s.requireProject(ctx, args)
	if err != nil {
		return nil, err
	}

	records, err := s.qa.History(ctx, projectID)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to load history", map[string]interface{}{
			"error": err.Error(),
		})
	}

	history := make([]map[string]interface{}, len(records))
	for i, r := range records {
		history[i] = map[string]interface{}{
			"id":         r.ID,
			"question":   r.Question,
			"answer":     r.Answer,
			"references": r.References,
			"created_at": r.CreatedAt.Format(time.RFC3339),
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"project_id": projectID,
		"history":    history,
	})), nil
}

// handleListProjects handles the list_projects tool invocation
func (s *Server) handleListProjects(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	projects, err := s.storage.ListProjects(ctx)
	if err != nil {
		return nil, newMCPError(ErrorCodeInternalError, "failed to list projects", map[string]interface{}{
			"error": err.Error(),
		})
	}

	list := make([]map[string]interface{}, len(projects))
	for i, p := range projects {
		list[i] = map[string]interface{}{
			"id":         p.ID,
			"name":       p.Name,
			"source":     p.Source,
			"file_count": p.FileCount,
			"created_at": p.CreatedAt.Format(time.RFC3339),
		}
	}

	return mcp.NewToolResultText(formatJSON(map[string]interface{}{
		"projects": list,
	})), nil
}

// handleGetStatus handles the get_status tool invocation
func (s *Server) handleGetStatus(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	report := s.qa.Status(ctx)

	response := map[string]interface{}{
		"backend":  report.Backend,
		"database": report.Database,
		"llm":      report.LLM,
	}
	if report.Storage != nil {
		response["statistics"] = map[string]interface{}{
			"projects":       report.Storage.Projects,
			"files":          report.Storage.Files,
			"questions":      report.Storage.Questions,
			"size_mb":        fmt.Sprintf("%.2f", report.Storage.SizeMB),
			"schema_version": report.Storage.SchemaVersion,
			"build_mode":     report.Storage.BuildMode,
		}
	}
	if s.uploadLock.Held() {
		response["upload_in_progress"] = true
	}

	return mcp.NewToolResultText(formatJSON(response)), nil
}

// requireProject validates the project_id argument and checks the project exists
func (s *Server) requireProject(ctx context.Context, args map[string]interface{}) (string, error) {
	projectID, ok := args["project_id"].(string)
	if !ok || projectID == "" {
		return "", newMCPError(ErrorCodeInvalidParams, "project_id parameter is required", map[string]interface{}{
			"param":  "project_id",
			"reason": "missing or empty",
		})
	}
	if err := qa.ValidateProjectID(projectID); err != nil {
		return "", newMCPError(ErrorCodeInvalidParams, err.Error(), map[string]interface{}{
			"param": "project_id",
			"value": projectID,
		})
	}

	_, err := s.storage.GetProject(ctx, projectID)
	if errors.Is(err, storage.ErrNotFound) {
		return "", newMCPError(ErrorCodeProjectNotFound, qa.ErrProjectNotFound.Error(), map[string]interface{}{
			"project_id": projectID,
		})
	}
	if err != nil {
		return "", newMCPError(ErrorCodeInternalError, "failed to load project", map[string]interface{}{
			"error": err.Error(),
		})
	}
	return projectID, nil
}

// Helper functions

// newMCPError creates a properly formatted MCP error
func newMCPError(code int, message string, data interface{}) error {
	// MCP errors are returned as regular errors, the framework handles encoding
	return &MCPError{
		Code:    code,
		Message: message,
		Data:    data,
	}
}

// MCPError represents an MCP protocol error
type MCPError struct {
	Code    int
	Message string
	Data    interface{}
}

func (e *MCPError) Error() string {
	return fmt.Sprintf("MCP error %d: %s", e.Code, e.Message)
}

func invalidPathError(param string, err error) error {
	return newMCPError(ErrorCodeInvalidParams, "invalid path", map[string]interface{}{
		"param":  param,
		"reason": err.Error(),
	})
}

// validatePath checks that an upload path is absolute and readable. wantDir
// selects between a directory and a regular file.
func validatePath(path string, wantDir bool) error {
	if path == "" {
		return ErrPathRequired
	}

	// Check if path is absolute
	if !filepath.IsAbs(path) {
		return ErrPathNotAbsolute
	}

	// Check if path exists
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		return ErrPathNotFound
	}
	if err != nil {
		return ErrPathNotReadable
	}

	if wantDir && !info.IsDir() {
		return ErrNotDirectory
	}
	if !wantDir && !info.Mode().IsRegular() {
		return ErrNotRegularFile
	}

	f, err := os.Open(path)
	if err != nil {
		return ErrPathNotReadable
	}
	_ = f.Close()

	return nil
}

// formatJSON formats a map as indented JSON
func formatJSON(data map[string]interface{}) string {
	bytes, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Sprintf("%v", data)
	}
	return string(bytes)
}

// getIntDefault extracts an integer parameter with a default value
func getIntDefault(args map[string]interface{}, key string, defaultValue int) int {
	if val, ok := args[key].(float64); ok {
		return int(val)
	}
	if val, ok := args[key].(int); ok {
		return val
	}
	return defaultValue
}

// getStringDefault extracts a string parameter with a default value
func getStringDefault(args map[string]interface{}, key string, defaultValue string) string {
	if val, ok := args[key].(string); ok {
		return val
	}
	return defaultValue
}

// Validation helpers

var (
	ErrPathRequired    = errors.New("path is required")
	ErrPathNotAbsolute = errors.New("path must be absolute")
	ErrPathNotFound    = errors.New("path does not exist")
	ErrPathNotReadable = errors.New("path is not readable")
	ErrNotDirectory    = errors.New("path is not a directory")
	ErrNotRegularFile  = errors.New("path is not a regular file")
)
