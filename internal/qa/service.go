package qa

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/dshills/codeqa-mcp/internal/llm"
	"github.com/dshills/codeqa-mcp/internal/searcher"
	"github.com/dshills/codeqa-mcp/internal/slogutil"
	"github.com/dshills/codeqa-mcp/internal/storage"
	"github.com/dshills/codeqa-mcp/pkg/types"
)

// History limits
const (
	DefaultMaxHistory   = 10 // records kept per project
	DefaultHistoryLimit = 10 // records returned by History
)

// Status values reported by Status
const (
	BackendOK         = "ok"
	DatabaseConnected = "connected"
	DatabaseError     = "error"
	LLMConnected      = "Connected"
	LLMError          = "Error"
)

// Config contains configuration for the QA service
type Config struct {
	TopK         int // files per answer, 0 selects the engine default
	MaxHistory   int
	HistoryLimit int
}

// DefaultConfig returns the default QA configuration
func DefaultConfig() Config {
	return Config{
		MaxHistory:   DefaultMaxHistory,
		HistoryLimit: DefaultHistoryLimit,
	}
}

// AskResult is the reply to one question
type AskResult struct {
	Answer     string            `json:"answer"`
	References []types.Reference `json:"references"`
	Keywords   []string          `json:"keywords"`
	Outcome    types.Outcome     `json:"outcome"`
	Provider   string            `json:"provider,omitempty"`
	Degraded   bool              `json:"degraded,omitempty"` // the provider failed and a fallback answer was used
}

// StatusReport describes the health of the service and its collaborators
type StatusReport struct {
	Backend  string          `json:"backend"`
	Database string          `json:"database"`
	LLM      string          `json:"llm"`
	Storage  *storage.Status `json:"storage,omitempty"`
}

// Service answers questions about stored projects
type Service struct {
	storage  storage.Storage
	searcher *searcher.Searcher
	answerer llm.Answerer // nil when no provider could be configured
	cfg      Config
	logger   *slog.Logger
}

// New creates a new Service. A nil answerer makes Ask fail with
// ErrLLMUnavailable.
func New(store storage.Storage, srch *searcher.Searcher, answerer llm.Answerer, cfg Config, logger *slog.Logger) *Service {
	def := DefaultConfig()
	if cfg.MaxHistory <= 0 {
		cfg.MaxHistory = def.MaxHistory
	}
	if cfg.HistoryLimit <= 0 {
		cfg.HistoryLimit = def.HistoryLimit
	}
	return &Service{
		storage:  store,
		searcher: srch,
		answerer: answerer,
		cfg:      cfg,
		logger:   slogutil.OrDiscard(logger),
	}
}

// Ask searches the project for the question, answers it and records the
// exchange in the project history
func (s *Service) Ask(ctx context.Context, projectID, question string) (*AskResult, error) {
	startTime := time.Now()

	q, err := s.validate(ctx, projectID, question)
	if err != nil {
		return nil, err
	}
	if s.answerer == nil {
		return nil, ErrLLMUnavailable
	}

	result, err := s.searcher.Search(ctx, searcher.SearchRequest{
		ProjectID: projectID,
		Question:  q,
		TopK:      s.cfg.TopK,
	})
	if err != nil {
		return nil, err
	}

	reply := &AskResult{
		References: result.Snippets,
		Keywords:   result.Keywords,
		Outcome:    result.Outcome,
		Provider:   s.answerer.Provider(),
	}

	ans, err := s.answerer.Answer(ctx, llm.Request{Question: q, Context: result.ContextForLLM})
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		s.logger.Warn("answer generation failed, using fallback",
			"project_id", projectID,
			"provider", s.answerer.Provider(),
			"error", err)
		reply.Answer = llm.FallbackAnswer(result.ContextForLLM)
		reply.Degraded = true
	} else {
		reply.Answer = ans.Text
	}

	record := &storage.QARecord{
		ProjectID:  projectID,
		Question:   q,
		Answer:     reply.Answer,
		References: reply.References,
	}
	if err := s.storage.SaveQA(ctx, record); err != nil {
		return nil, fmt.Errorf("failed to save history: %w", err)
	}

	pruned, err := s.storage.PruneHistory(ctx, projectID, s.cfg.MaxHistory)
	if err != nil {
		// The answer is already stored; an oversized history is harmless
		s.logger.Warn("failed to prune history", "project_id", projectID, "error", err)
	}

	s.logger.Info("question answered",
		"project_id", projectID,
		"references", len(reply.References),
		"outcome", reply.Outcome,
		"degraded", reply.Degraded,
		"pruned", pruned,
		"duration", time.Since(startTime))

	return reply, nil
}

// validate checks the request in the order users see errors and returns the
// trimmed question
func (s *Service) validate(ctx context.Context, projectID, question string) (string, error) {
	if projectID == "" || question == "" {
		return "", ErrQuestionRequired
	}

	q := strings.TrimSpace(question)
	if q == "" {
		return "", ErrQuestionEmpty
	}

	if err := ValidateProjectID(projectID); err != nil {
		return "", err
	}

	if _, err := s.storage.GetProject(ctx, projectID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return "", ErrProjectNotFound
		}
		return "", fmt.Errorf("failed to load project: %w", err)
	}

	count, err := s.storage.CountFiles(ctx, projectID)
	if err != nil {
		return "", fmt.Errorf("failed to count files: %w", err)
	}
	if count == 0 {
		return "", ErrNoFilesUploaded
	}

	return q, nil
}

// ValidateProjectID reports ErrInvalidProjectID for ids that are not UUIDs
func ValidateProjectID(projectID string) error {
	if _, err := uuid.Parse(projectID); err != nil {
		return ErrInvalidProjectID
	}
	return nil
}

// History returns the most recent exchanges of a project, newest first
func (s *Service) History(ctx context.Context, projectID string) ([]*storage.QARecord, error) {
	if err := ValidateProjectID(projectID); err != nil {
		return nil, err
	}
	records, err := s.storage.ListHistory(ctx, projectID, s.cfg.HistoryLimit)
	if err != nil {
		return nil, fmt.Errorf("failed to load history: %w", err)
	}
	return records, nil
}

// Status probes the database and the answer provider. It never fails;
// unreachable collaborators are reported in the result.
func (s *Service) Status(ctx context.Context) *StatusReport {
	report := &StatusReport{
		Backend:  BackendOK,
		Database: DatabaseConnected,
		LLM:      LLMConnected,
	}

	if err := s.storage.Ping(ctx); err != nil {
		s.logger.Warn("database ping failed", "error", err)
		report.Database = DatabaseError
	} else if st, err := s.storage.GetStatus(ctx); err == nil {
		report.Storage = st
	}

	if s.answerer == nil {
		report.LLM = LLMError
	} else if err := s.answerer.Ping(ctx); err != nil {
		s.logger.Warn("LLM ping failed", "provider", s.answerer.Provider(), "error", err)
		report.LLM = LLMError
	}

	return report
}
