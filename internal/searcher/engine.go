package searcher

import (
	"fmt"
	"log/slog"
	"regexp"
	"strings"
	"unicode/utf8"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/dshills/codeqa-mcp/internal/slogutil"
	"github.com/dshills/codeqa-mcp/pkg/types"
)

// patternCacheSize bounds the compiled whole-word patterns kept between queries
const patternCacheSize = 1024

// Engine runs keyword extraction, scoring, ranking and snippet assembly over
// an in-memory file set. It holds no per-query state, so one Engine may serve
// concurrent queries.
type Engine struct {
	cfg      Config
	logger   *slog.Logger
	patterns *lru.Cache[string, *regexp.Regexp]
}

// NewEngine creates an Engine. A nil logger discards output.
func NewEngine(cfg Config, logger *slog.Logger) (*Engine, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid searcher config: %w", err)
	}
	logger = slogutil.OrDiscard(logger)

	patterns, err := lru.New[string, *regexp.Regexp](patternCacheSize)
	if err != nil {
		return nil, fmt.Errorf("failed to create pattern cache: %w", err)
	}

	return &Engine{
		cfg:      cfg,
		logger:   logger,
		patterns: patterns,
	}, nil
}

// Config returns the engine configuration
func (e *Engine) Config() Config {
	return e.cfg
}

// Run searches files for question and returns the references and context block.
// It never fails: degenerate inputs produce a result tagged with an Outcome.
func (e *Engine) Run(files []types.FileRecord, question string, topK int) *types.SearchResult {
	return e.run(files, question, e.ExtractKeywords(question), topK)
}

func (e *Engine) run(files []types.FileRecord, question string, keywords []string, topK int) *types.SearchResult {
	if len(keywords) == 0 {
		return degenerate(types.OutcomeNoKeywords, MsgNoKeywords, keywords)
	}
	if len(files) == 0 {
		return degenerate(types.OutcomeNoFiles, MsgNoFiles, keywords)
	}

	bounded, trunc := e.bound(files)

	ranked := e.Rank(bounded, keywords, question, topK)
	if len(ranked) == 0 {
		res := degenerate(types.OutcomeNoMatches, MsgNoMatchesPrefix+strings.Join(keywords, ", "), keywords)
		res.Truncation = trunc
		return res
	}

	for i, f := range ranked[:min(5, len(ranked))] {
		e.logger.Debug("ranked file", "rank", i+1, "path", f.Path, "score", f.Score)
	}

	refs, context, clipped := e.Assemble(ranked, keywords)
	trunc.ContextClipped = clipped

	return &types.SearchResult{
		Snippets:      refs,
		ContextForLLM: context,
		Keywords:      keywords,
		Outcome:       types.OutcomeOK,
		Truncation:    trunc,
	}
}

func degenerate(outcome types.Outcome, msg string, keywords []string) *types.SearchResult {
	return &types.SearchResult{
		Snippets:      []types.Reference{},
		ContextForLLM: msg,
		Keywords:      keywords,
		Outcome:       outcome,
	}
}

// bound applies MaxFiles and MaxFileBytes. The input slice is not modified.
func (e *Engine) bound(files []types.FileRecord) ([]types.FileRecord, types.Truncation) {
	var trunc types.Truncation

	if len(files) > e.cfg.MaxFiles {
		trunc.FilesSkipped = len(files) - e.cfg.MaxFiles
		files = files[:e.cfg.MaxFiles]
	}

	out := make([]types.FileRecord, len(files))
	for i, f := range files {
		content, cut := clipContent(f.Content, e.cfg.MaxFileBytes)
		if cut {
			trunc.FilesClipped++
		}
		out[i] = types.FileRecord{Path: f.Path, Content: content}
	}
	return out, trunc
}

// clipContent cuts content to at most limit bytes, preferring the last line
// break and never splitting a UTF-8 sequence
func clipContent(content string, limit int) (string, bool) {
	if len(content) <= limit {
		return content, false
	}
	cut := content[:limit]
	if i := strings.LastIndexByte(cut, '\n'); i > 0 {
		return cut[:i], true
	}
	for len(cut) > 0 && !utf8.RuneStart(content[len(cut)]) {
		cut = cut[:len(cut)-1]
	}
	return cut, true
}
