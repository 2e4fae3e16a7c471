package searcher

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

// MaxTopK caps the number of files a caller may request
const MaxTopK = 50

// FileSource supplies the full file set of a project
type FileSource interface {
	ListFiles(ctx context.Context, projectID string) ([]types.FileRecord, error)
}

// SearchRequest contains parameters for a search operation
type SearchRequest struct {
	ProjectID string
	Question  string
	TopK      int // 0 selects the configured default
}

// Searcher loads a project's files and runs the engine over them
type Searcher struct {
	source FileSource
	engine *Engine
	logger *slog.Logger
}

// NewSearcher creates a new Searcher instance
func NewSearcher(source FileSource, engine *Engine, logger *slog.Logger) *Searcher {
	if logger == nil {
		logger = engine.logger
	}
	return &Searcher{
		source: source,
		engine: engine,
		logger: logger,
	}
}

// Engine returns the underlying engine
func (s *Searcher) Engine() *Engine {
	return s.engine
}

// Search performs a relevance search for one project. The only error source
// is the file read; every other edge case is reported through the result.
func (s *Searcher) Search(ctx context.Context, req SearchRequest) (*types.SearchResult, error) {
	startTime := time.Now()
	s.validateRequest(&req)

	keywords := s.engine.ExtractKeywords(req.Question)
	if len(keywords) == 0 {
		return s.engine.run(nil, req.Question, keywords, req.TopK), nil
	}

	files, err := s.source.ListFiles(ctx, req.ProjectID)
	if err != nil {
		return nil, fmt.Errorf("failed to load project files: %w", err)
	}

	result := s.engine.run(files, req.Question, keywords, req.TopK)

	s.logger.Info("search completed",
		"project_id", req.ProjectID,
		"keywords", keywords,
		"files", len(files),
		"snippets", len(result.Snippets),
		"outcome", result.Outcome,
		"duration", time.Since(startTime))
	if result.Truncation.Any() {
		s.logger.Warn("search bounded",
			"project_id", req.ProjectID,
			"files_skipped", result.Truncation.FilesSkipped,
			"files_clipped", result.Truncation.FilesClipped,
			"context_clipped", result.Truncation.ContextClipped)
	}

	return result, nil
}

// validateRequest normalizes the requested file count
func (s *Searcher) validateRequest(req *SearchRequest) {
	if req.TopK <= 0 {
		req.TopK = s.engine.cfg.TopK
	}
	if req.TopK > MaxTopK {
		req.TopK = MaxTopK
	}
}
