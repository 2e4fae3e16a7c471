package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

var askFormat string

var askCmd = &cobra.Command{
	Use:   "ask <project-id> <question>",
	Short: "Ask a question about a project",
	Long: `Answer a question from the most relevant snippets of a stored project.
The exchange is added to the project's history.

Examples:
  codeqa ask 3f0c5b8e-6a2d-4c1e-9b7a-2d4f8e1a6c90 "How is authentication handled?"
  codeqa ask 3f0c5b8e-6a2d-4c1e-9b7a-2d4f8e1a6c90 what is the tech stack --format json`,
	Args: cobra.MinimumNArgs(2),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().StringVar(&askFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(askFormat)
	if err != nil {
		return err
	}

	a, err := newApp(false)
	if err != nil {
		return err
	}
	defer a.Close()

	ctx, cancel := newContext()
	defer cancel()

	result, err := a.qa.Ask(ctx, args[0], strings.Join(args[1:], " "))
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		return writeJSON(out, result)
	}

	fmt.Fprintln(out, result.Answer)
	if len(result.References) > 0 {
		fmt.Fprintln(out, "\nReferences:")
		for _, ref := range result.References {
			fmt.Fprintf(out, "  %s:%d-%d\n", ref.FilePath, ref.StartLine, ref.EndLine)
		}
	}
	return nil
}
