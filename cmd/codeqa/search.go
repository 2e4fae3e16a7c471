package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/dshills/codeqa-mcp/internal/qa"
	"github.com/dshills/codeqa-mcp/internal/searcher"
	"github.com/dshills/codeqa-mcp/pkg/types"
)

var (
	searchTopK   int
	searchFormat string
)

var searchCmd = &cobra.Command{
	Use:   "search <project-id> <query>",
	Short: "Show the snippets a question would use",
	Long: `Run the relevance search for a query without generating an answer.

Search semantics:
  - Keywords: question words minus stop words, plus technology terms
  - Ranking: whole-word occurrences, early declarations, file names
  - Snippets: each keyword hit with surrounding context lines, merged

Examples:
  codeqa search 3f0c5b8e-6a2d-4c1e-9b7a-2d4f8e1a6c90 "express routes"
  codeqa search 3f0c5b8e-6a2d-4c1e-9b7a-2d4f8e1a6c90 userController --top-k 10`,
	Args: cobra.MinimumNArgs(2),
	RunE: runSearch,
}

func init() {
	searchCmd.Flags().IntVar(&searchTopK, "top-k", 0, "Maximum number of files (default: search.top_k)")
	searchCmd.Flags().StringVar(&searchFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(searchCmd)
}

func runSearch(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(searchFormat)
	if err != nil {
		return err
	}
	if searchTopK < 0 || searchTopK > searcher.MaxTopK {
		return fmt.Errorf("--top-k must be between 1 and %d", searcher.MaxTopK)
	}
	if err := qa.ValidateProjectID(args[0]); err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := newContext()
	defer cancel()

	result, err := a.searcher.Search(ctx, searcher.SearchRequest{
		ProjectID: args[0],
		Question:  strings.Join(args[1:], " "),
		TopK:      searchTopK,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		return writeJSON(out, result)
	}
	printSearchHuman(cmd, result)
	return nil
}

func printSearchHuman(cmd *cobra.Command, result *types.SearchResult) {
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Keywords: %s\n", strings.Join(result.Keywords, ", "))
	if result.Outcome != types.OutcomeOK {
		fmt.Fprintln(out, result.ContextForLLM)
		return
	}

	for _, ref := range result.Snippets {
		fmt.Fprintf(out, "\n%s (lines %d-%d)\n", ref.FilePath, ref.StartLine, ref.EndLine)
		fmt.Fprintln(out, indent(ref.Snippet, "  "))
	}
	if result.Truncation.Any() {
		fmt.Fprintf(cmd.ErrOrStderr(), "\nnote: input was bounded (files skipped %d, files clipped %d, context clipped %v)\n",
			result.Truncation.FilesSkipped, result.Truncation.FilesClipped, result.Truncation.ContextClipped)
	}
}
