package searcher

import (
	"strings"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

// ExtractSnippets finds the lines of file that contain any keyword as a plain
// substring, clusters matches whose gap is at most 2*ContextLines, and pads
// each cluster with ContextLines lines on both sides.
//
// Matching here is looser than the whole-word matching used for scoring, so a
// file that scored can still yield no snippets.
func (e *Engine) ExtractSnippets(file types.FileRecord, keywords []string) []types.Snippet {
	lines := strings.Split(file.Content, "\n")

	needles := make([]string, 0, len(keywords))
	for _, kw := range keywords {
		needles = append(needles, strings.ToLower(kw))
	}
	needles = dedupe(needles)

	matches := make([]int, 0)
	for i, line := range lines {
		if containsAny(strings.ToLower(line), needles) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return nil
	}

	contextLines := e.cfg.ContextLines
	snippets := make([]types.Snippet, 0)

	first, prev := matches[0], matches[0]
	for _, idx := range matches[1:] {
		if idx-prev <= 2*contextLines {
			prev = idx
			continue
		}
		snippets = append(snippets, padGroup(lines, first, prev, contextLines))
		first, prev = idx, idx
	}
	snippets = append(snippets, padGroup(lines, first, prev, contextLines))

	return snippets
}

// padGroup turns a match group spanning [first, last] (0-based) into a
// snippet clipped to the file bounds
func padGroup(lines []string, first, last, contextLines int) types.Snippet {
	start := max(0, first-contextLines)
	end := min(len(lines)-1, last+contextLines)
	return types.Snippet{
		StartLine: start + 1,
		EndLine:   end + 1,
		Content:   strings.Join(lines[start:end+1], "\n"),
	}
}
