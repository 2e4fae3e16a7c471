package searcher

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

var headerPattern = regexp.MustCompile(`^\[FILE: (.+) \(lines (\d+)-(\d+)\)\]$`)

// Assemble extracts snippets from the ranked files in order and joins them
// into one context block of at most MaxContextBytes. The first block that
// does not fit is cut at the last whole line that fits, its reference gets
// the same shortened range, and assembly stops there. A block that cannot
// keep even one line is skipped.
func (e *Engine) Assemble(ranked []ScoredFile, keywords []string) ([]types.Reference, string, bool) {
	refs := make([]types.Reference, 0)
	var b strings.Builder
	clipped := false

files:
	for _, f := range ranked {
		for _, sn := range e.ExtractSnippets(f.FileRecord, keywords) {
			block := formatBlock(f.Path, sn)
			if b.Len()+len(block) > e.cfg.MaxContextBytes {
				clipped = true
				cut, ok := fitSnippet(f.Path, sn, e.cfg.MaxContextBytes-b.Len())
				if !ok {
					continue
				}
				sn, block = cut, formatBlock(f.Path, cut)
				refs = append(refs, referenceFor(f.Path, sn))
				b.WriteString(block)
				break files
			}
			refs = append(refs, referenceFor(f.Path, sn))
			b.WriteString(block)
		}
	}

	return refs, strings.TrimSpace(b.String()), clipped
}

// fitSnippet shortens sn to the most leading lines whose block fits in room
// bytes. Block length only grows with the line count, so the scan stops at
// the first line that does not fit.
func fitSnippet(path string, sn types.Snippet, room int) (types.Snippet, bool) {
	lines := strings.Split(sn.Content, "\n")
	best, contentLen := 0, -1
	for n := 1; n < len(lines); n++ {
		contentLen += len(lines[n-1]) + 1
		header := fmt.Sprintf("[FILE: %s (lines %d-%d)]", path, sn.StartLine, sn.StartLine+n-1)
		if len(header)+contentLen+3 > room {
			break
		}
		best = n
	}
	if best == 0 {
		return types.Snippet{}, false
	}
	return types.Snippet{
		StartLine: sn.StartLine,
		EndLine:   sn.StartLine + best - 1,
		Content:   strings.Join(lines[:best], "\n"),
	}, true
}

func referenceFor(path string, sn types.Snippet) types.Reference {
	return types.Reference{
		FilePath:  path,
		StartLine: sn.StartLine,
		EndLine:   sn.EndLine,
		Snippet:   sn.Content,
	}
}

func formatBlock(path string, sn types.Snippet) string {
	return fmt.Sprintf("\n[FILE: %s (lines %d-%d)]\n%s\n", path, sn.StartLine, sn.EndLine, sn.Content)
}

// ContextHeader is one parsed "[FILE: path (lines a-b)]" header
type ContextHeader struct {
	Path      string
	StartLine int
	EndLine   int
}

// ParseContextHeaders recovers the file headers of an assembled context block
// in order. Each header's line range gives the length of its body, which is
// skipped whole, so body lines that look like headers are not reported.
func ParseContextHeaders(context string) []ContextHeader {
	lines := strings.Split(context, "\n")
	headers := make([]ContextHeader, 0)
	for i := 0; i < len(lines); {
		m := headerPattern.FindStringSubmatch(lines[i])
		if m == nil {
			i++
			continue
		}
		start, err1 := strconv.Atoi(m[2])
		end, err2 := strconv.Atoi(m[3])
		if err1 != nil || err2 != nil || end < start {
			i++
			continue
		}
		headers = append(headers, ContextHeader{Path: m[1], StartLine: start, EndLine: end})
		i += 1 + end - start + 1
	}
	return headers
}
