package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/dshills/codeqa-mcp/internal/searcher"
)

// localMaxReferences caps the files listed in an offline answer
const localMaxReferences = 5

// LocalProvider answers without a model by summarizing the context block.
// It lets the server run offline and keeps answers deterministic in tests.
type LocalProvider struct {
	model string
}

// NewLocalProvider creates a new offline answerer
func NewLocalProvider() *LocalProvider {
	return &LocalProvider{model: "extractive"}
}

func (l *LocalProvider) Answer(ctx context.Context, req Request) (*Answer, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	headers := searcher.ParseContextHeaders(req.Context)
	if len(headers) == 0 {
		// Degenerate search results carry a plain message
		return &Answer{Text: strings.TrimSpace(req.Context), Provider: ProviderLocal, Model: l.model}, nil
	}

	var b strings.Builder
	fmt.Fprintf(&b, "No language model is configured, so here are the most relevant locations for %q:\n", strings.TrimSpace(req.Question))

	seen := make(map[string]bool)
	listed := 0
	for _, h := range headers {
		if listed == localMaxReferences {
			break
		}
		if seen[h.Path] {
			continue
		}
		seen[h.Path] = true
		listed++
		fmt.Fprintf(&b, "\n- %s (lines %d-%d)", h.Path, h.StartLine, h.EndLine)
	}

	b.WriteString("\n\nSee the references for the matching code.")
	return &Answer{Text: b.String(), Provider: ProviderLocal, Model: l.model}, nil
}

func (l *LocalProvider) Ping(ctx context.Context) error {
	return ctx.Err()
}

func (l *LocalProvider) Provider() string {
	return ProviderLocal
}

func (l *LocalProvider) Model() string {
	return l.model
}

func (l *LocalProvider) Close() error {
	return nil
}
