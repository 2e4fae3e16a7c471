// Package searcher implements lexical relevance search over a project's source files.
//
// A query flows through five stages:
//   - Keyword extraction: the question is cleaned, split and filtered against
//     the technology and stop-word lists
//   - Scoring: every file gets an additive heuristic score after hard path
//     exclusions (lockfiles, build output, and tests/config/readme unless asked for)
//   - Ranking: files at or above the relevance threshold are stably sorted by
//     score and cut to top-K
//   - Snippet extraction: matching lines are clustered and padded with context
//   - Assembly: snippets are joined into a bounded context block with
//     "[FILE: path (lines a-b)]" headers
//
// # Basic Usage
//
//	engine, err := searcher.NewEngine(searcher.DefaultConfig(), logger)
//	if err != nil {
//	    return err
//	}
//	s := searcher.NewSearcher(store, engine, logger)
//
//	result, err := s.Search(ctx, searcher.SearchRequest{
//	    ProjectID: projectID,
//	    Question:  "how does the auth controller work",
//	})
//
//	for _, ref := range result.Snippets {
//	    fmt.Printf("%s:%d-%d\n", ref.FilePath, ref.StartLine, ref.EndLine)
//	}
//
// # Degenerate Results
//
// Search returns an error only when the file set cannot be loaded. A question
// without usable keywords, an empty project, and a search where nothing
// reaches the threshold each produce an empty Snippets list, a fixed
// ContextForLLM message and a distinct types.Outcome.
//
// # Lists
//
// Term lists and path rules live in lists.yaml, embedded at build time.
// LoadListsFile replaces them with a custom file:
//
//	lists, err := searcher.LoadListsFile("/etc/codeqa/lists.yaml")
//	cfg := searcher.DefaultConfig()
//	cfg.Lists = lists
//
// # Matching Strictness
//
// Scoring counts case-insensitive whole-word matches, while snippet
// extraction accepts any substring match. The difference is deliberate and
// changes which lines are cited.
//
// # Bounds
//
// MaxFiles, MaxFileBytes and MaxContextBytes bound scan time and output size.
// Every cut is reported in types.Truncation.
//
// # Concurrency
//
// Engine and Searcher keep no per-query state. The compiled keyword patterns
// live in a thread-safe LRU cache, so concurrent searches need no locking.
package searcher
