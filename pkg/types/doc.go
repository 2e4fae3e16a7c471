// Package types provides shared type definitions for the CodeQA MCP server.
//
// The types here cross package boundaries: the storage layer returns
// FileRecord values, the searcher turns them into Snippet and Reference
// values, and the question-answering service persists References alongside
// each answer.
//
// # Search Results
//
// SearchResult carries both the citations and the assembled context block:
//
//	result := &types.SearchResult{
//	    Snippets:      refs,
//	    ContextForLLM: "[FILE: src/app.js (lines 1-7)]\n...",
//	    Outcome:       types.OutcomeOK,
//	}
//
// Degenerate searches (no keywords, empty project, nothing relevant) are
// reported through Outcome and a fixed ContextForLLM message rather than an
// error.
//
// # Truncation
//
// Truncation records where the scan and output bounds were applied so callers
// can log it:
//
//	if result.Truncation.Any() {
//	    logger.Warn("search truncated", "files_skipped", result.Truncation.FilesSkipped)
//	}
package types
