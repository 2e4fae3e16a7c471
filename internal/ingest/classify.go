package ingest

import (
	"path"
	"regexp"
	"strings"
)

// codeExtensions lists the file types stored for search
var codeExtensions = map[string]struct{}{
	".js": {}, ".jsx": {}, ".ts": {}, ".tsx": {}, ".mjs": {}, ".cjs": {},
	".py": {}, ".java": {}, ".go": {}, ".rb": {}, ".php": {},
	".c": {}, ".cpp": {}, ".h": {}, ".hpp": {}, ".cs": {}, ".rs": {},
	".kt": {}, ".kts": {}, ".swift": {}, ".vue": {}, ".svelte": {},
	".r": {}, ".scala": {}, ".lua": {}, ".sql": {},
	".sh": {}, ".bash": {}, ".zsh": {},
	".yaml": {}, ".yml": {}, ".json": {}, ".md": {},
	".html": {}, ".css": {}, ".scss": {}, ".less": {},
}

// skipPatterns match dependency, VCS and build-output paths. They are
// applied to the lower-cased, slash-separated relative path.
var skipPatterns = []*regexp.Regexp{
	regexp.MustCompile(`node_modules`),
	regexp.MustCompile(`\.git/`),
	regexp.MustCompile(`dist/`),
	regexp.MustCompile(`build/`),
	regexp.MustCompile(`__pycache__`),
	regexp.MustCompile(`\.next/`),
	regexp.MustCompile(`\.nuxt/`),
	regexp.MustCompile(`vendor/`),
	regexp.MustCompile(`\.min\.(js|css)$`),
}

// IsCodeFile reports whether a project-relative path should be stored
func IsCodeFile(p string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(p, `\`, "/"))
	if matchesSkip(normalized) {
		return false
	}
	_, ok := codeExtensions[path.Ext(normalized)]
	return ok
}

// skipDir reports whether a directory can be pruned from a walk without
// losing any file IsCodeFile would accept
func skipDir(rel string) bool {
	normalized := strings.ToLower(strings.ReplaceAll(rel, `\`, "/"))
	return matchesSkip(strings.TrimSuffix(normalized, "/") + "/")
}

func matchesSkip(normalized string) bool {
	for _, re := range skipPatterns {
		if re.MatchString(normalized) {
			return true
		}
	}
	return false
}

// cleanEntryPath normalizes an archive member name. It returns "" for names
// that would escape the project root.
func cleanEntryPath(name string) string {
	name = strings.ReplaceAll(name, `\`, "/")
	if strings.HasPrefix(name, "/") {
		return ""
	}
	cleaned := path.Clean(name)
	if cleaned == "." || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return ""
	}
	return cleaned
}
