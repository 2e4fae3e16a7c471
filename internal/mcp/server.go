package mcp

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/mark3labs/mcp-go/server"

	"github.com/dshills/codeqa-mcp/internal/ingest"
	"github.com/dshills/codeqa-mcp/internal/qa"
	"github.com/dshills/codeqa-mcp/internal/searcher"
	"github.com/dshills/codeqa-mcp/internal/slogutil"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

const (
	// ServerName is the MCP server name
	ServerName = "codeqa-mcp"
	// ServerVersion is the current server version
	ServerVersion = "1.0.0"
)

// Dependencies are the components a Server exposes as tools
type Dependencies struct {
	Storage  storage.Storage
	Ingester *ingest.Ingester
	Searcher *searcher.Searcher
	QA       *qa.Service
	Logger   *slog.Logger
}

// Server wraps the MCP server with application dependencies
type Server struct {
	mcp      *server.MCPServer
	storage  storage.Storage
	ingester *ingest.Ingester
	searcher *searcher.Searcher
	qa       *qa.Service
	logger   *slog.Logger

	// uploadLock allows one upload at a time
	uploadLock ingest.Lock
}

// NewServer creates a new MCP server instance
func NewServer(deps Dependencies) (*Server, error) {
	if deps.Storage == nil || deps.Ingester == nil || deps.Searcher == nil || deps.QA == nil {
		return nil, fmt.Errorf("mcp server: missing dependency")
	}

	// Create MCP server
	mcpServer := server.NewMCPServer(
		ServerName,
		ServerVersion,
		server.WithToolCapabilities(false),
	)

	s := &Server{
		mcp:      mcpServer,
		storage:  deps.Storage,
		ingester: deps.Ingester,
		searcher: deps.Searcher,
		qa:       deps.QA,
		logger:   slogutil.OrDiscard(deps.Logger),
	}

	// Register tools
	if err := s.registerTools(); err != nil {
		return nil, fmt.Errorf("failed to register tools: %w", err)
	}

	return s, nil
}

// Serve starts the MCP server on stdio and blocks until shutdown
func (s *Server) Serve(ctx context.Context) error {
	defer func() { _ = s.storage.Close() }()
	s.logger.Info("serving MCP over stdio", "name", ServerName, "version", ServerVersion)
	return server.ServeStdio(s.mcp)
}

// registerTools registers all MCP tools
func (s *Server) registerTools() error {
	s.mcp.AddTool(uploadProjectTool(), s.handleUploadProject)
	s.mcp.AddTool(askQuestionTool(), s.handleAskQuestion)
	s.mcp.AddTool(searchCodeTool(), s.handleSearchCode)
	s.mcp.AddTool(getHistoryTool(), s.handleGetHistory)
	s.mcp.AddTool(listProjectsTool(), s.handleListProjects)
	s.mcp.AddTool(getStatusTool(), s.handleGetStatus)

	return nil
}
