package searcher

import (
	"regexp"
	"strings"
)

// plainWordMinLength is the length an ordinary word needs to become a keyword.
// Technology terms and identifier-like tokens only need KeywordMinLength.
const plainWordMinLength = 4

var (
	nonWordPattern    = regexp.MustCompile(`[^\w\s]`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// ExtractKeywords derives the ordered, duplicate-free keyword list for a question.
// An empty result means the question cannot be searched.
func (e *Engine) ExtractKeywords(question string) []string {
	cleaned := nonWordPattern.ReplaceAllString(question, " ")
	cleaned = strings.TrimSpace(whitespacePattern.ReplaceAllString(cleaned, " "))

	lists := e.cfg.Lists
	keywords := make([]string, 0)

	if cleaned != "" {
		for _, token := range strings.Split(cleaned, " ") {
			word := strings.ToLower(token)
			if len(word) < e.cfg.KeywordMinLength {
				continue
			}

			if lists.IsTechKeyword(word) {
				keywords = append(keywords, word)
				continue
			}

			if lists.IsStopWord(word) {
				continue
			}

			if isIdentifierLike(token) || len(word) >= plainWordMinLength {
				keywords = append(keywords, word)
			}
		}
	}

	questionLower := strings.ToLower(question)
	for _, sk := range lists.synthetic {
		if containsAny(questionLower, sk.Phrases) {
			keywords = append(keywords, sk.Keyword)
		}
	}

	return dedupe(keywords)
}

// isIdentifierLike detects camelCase and snake_case tokens. The case check
// needs the token's original casing.
func isIdentifierLike(token string) bool {
	if strings.Contains(token, "_") {
		return true
	}
	for i := 1; i < len(token); i++ {
		if isLower(token[i-1]) && isUpper(token[i]) {
			return true
		}
	}
	return false
}

func isLower(b byte) bool { return b >= 'a' && b <= 'z' }
func isUpper(b byte) bool { return b >= 'A' && b <= 'Z' }

func dedupe(in []string) []string {
	seen := make(map[string]struct{}, len(in))
	out := make([]string, 0, len(in))
	for _, s := range in {
		if _, ok := seen[s]; ok {
			continue
		}
		seen[s] = struct{}{}
		out = append(out, s)
	}
	return out
}
