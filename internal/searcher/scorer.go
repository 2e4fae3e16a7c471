package searcher

import (
	"bytes"
	"encoding/json"
	"regexp"
	"sort"
	"strings"

	"github.com/buger/jsonparser"

	"github.com/dshills/codeqa-mcp/pkg/types"
)

// ScoredFile is a file that passed the relevance threshold
type ScoredFile struct {
	types.FileRecord
	Score int
}

// Score returns the relevance of file for the keywords. Excluded files score 0.
func (e *Engine) Score(file types.FileRecord, keywords []string, question string) int {
	score, _ := e.score(file, keywords, strings.ToLower(question))
	return score
}

// ExcludedBy returns the name of the exclusion rule that drops path for this
// question, or "" when the path is searchable.
func (e *Engine) ExcludedBy(path, question string) string {
	name, _ := e.exclusionFor(strings.ToLower(path), strings.ToLower(question))
	return name
}

func (e *Engine) score(file types.FileRecord, keywords []string, questionLower string) (int, bool) {
	path := strings.ToLower(file.Path)
	if _, excluded := e.exclusionFor(path, questionLower); excluded {
		return 0, true
	}

	w := e.cfg.Weights
	lists := e.cfg.Lists
	content := file.Content
	filename := path[strings.LastIndex(path, "/")+1:]

	score := 0
	for _, kw := range keywords {
		kw = strings.ToLower(kw)

		if n := e.countWholeWord(content, kw); n > 0 {
			score += n * w.Occurrence
			if e.declaredEarly(content, kw) {
				score += w.Declaration
			}
		}

		if strings.Contains(filename, kw) {
			score += w.Filename
		}

		if rb, ok := lists.roleBonuses[kw]; ok && containsAny(path, rb.Paths) {
			score += rb.Bonus
		}
	}

	if containsAny(questionLower, lists.techQuestionTerms) {
		if lists.manifest.Suffix != "" && strings.HasSuffix(path, lists.manifest.Suffix) &&
			hasDependencies(content, lists.manifest.DependencyKeys) {
			score += w.PackageManifest
		}

		contentLower := strings.ToLower(content)
		for _, tech := range lists.techKeywords {
			if strings.Contains(contentLower, tech) {
				score += w.TechTerm
			}
		}
	}

	return score, false
}

// exclusionFor evaluates the exclusion rules in order and stops at the first hit
func (e *Engine) exclusionFor(pathLower, questionLower string) (string, bool) {
	for _, rule := range e.cfg.Lists.exclusions {
		if len(rule.Unless) > 0 && containsAny(questionLower, rule.Unless) {
			continue
		}
		if containsAny(pathLower, rule.Patterns) {
			return rule.Name, true
		}
	}
	return "", false
}

// countWholeWord counts case-insensitive whole-word occurrences of kw
func (e *Engine) countWholeWord(content, kw string) int {
	if content == "" || kw == "" {
		return 0
	}
	return len(e.wordPattern(kw).FindAllStringIndex(content, -1))
}

func (e *Engine) wordPattern(kw string) *regexp.Regexp {
	if re, ok := e.patterns.Get(kw); ok {
		return re
	}
	re := regexp.MustCompile(`(?i)\b` + regexp.QuoteMeta(kw) + `\b`)
	e.patterns.Add(kw, re)
	return re
}

// declaredEarly finds the first line among the leading DeclarationScanLines
// that mentions kw and reports whether that line also carries a declaration
// token. Later lines are never considered.
func (e *Engine) declaredEarly(content, kw string) bool {
	rest := content
	for i := 0; i < e.cfg.DeclarationScanLines; i++ {
		line, tail, more := strings.Cut(rest, "\n")
		if strings.Contains(strings.ToLower(line), kw) {
			return containsAny(line, e.cfg.Lists.declarationTokens)
		}
		if !more {
			break
		}
		rest = tail
	}
	return false
}

// hasDependencies reports whether content is a JSON object with a truthy
// value under any of keys. Malformed JSON yields false.
func hasDependencies(content string, keys []string) bool {
	data := bytes.TrimSpace([]byte(content))
	if len(data) == 0 || data[0] != '{' || !json.Valid(data) {
		return false
	}

	for _, key := range keys {
		value, dataType, _, err := jsonparser.Get(data, key)
		if err != nil {
			continue
		}
		switch dataType {
		case jsonparser.NotExist, jsonparser.Null:
			continue
		case jsonparser.Boolean:
			if string(value) == "false" {
				continue
			}
		case jsonparser.String:
			if len(value) == 0 {
				continue
			}
		case jsonparser.Number:
			if n, err := jsonparser.ParseFloat(value); err == nil && n == 0 {
				continue
			}
		}
		return true
	}
	return false
}

// Rank scores every file, keeps those at or above MinRelevanceScore, and
// returns at most topK of them ordered by descending score. Equal scores keep
// input order. Excluded files and repeated paths are never retained.
func (e *Engine) Rank(files []types.FileRecord, keywords []string, question string, topK int) []ScoredFile {
	if topK <= 0 {
		topK = e.cfg.TopK
	}
	questionLower := strings.ToLower(question)

	seen := make(map[string]struct{}, len(files))
	scored := make([]ScoredFile, 0)
	for _, f := range files {
		if _, dup := seen[f.Path]; dup {
			continue
		}
		seen[f.Path] = struct{}{}

		s, excluded := e.score(f, keywords, questionLower)
		if excluded || s < e.cfg.MinRelevanceScore {
			continue
		}
		scored = append(scored, ScoredFile{FileRecord: f, Score: s})
	}

	sort.SliceStable(scored, func(i, j int) bool {
		return scored[i].Score > scored[j].Score
	})

	if len(scored) > topK {
		scored = scored[:topK]
	}
	return scored
}
