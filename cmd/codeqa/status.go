package main

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusFormat string

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Check database and LLM connectivity",
	Args:  cobra.NoArgs,
	RunE:  runStatus,
}

func init() {
	statusCmd.Flags().StringVar(&statusFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(statusFormat)
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

	report := a.qa.Status(ctx)

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		response := map[string]interface{}{
			"backend":  report.Backend,
			"database": report.Database,
			"llm":      report.LLM,
			"provider": a.providerName(),
		}
		if st := report.Storage; st != nil {
			response["statistics"] = map[string]interface{}{
				"projects":       st.Projects,
				"files":          st.Files,
				"questions":      st.Questions,
				"size_mb":        fmt.Sprintf("%.2f", st.SizeMB),
				"schema_version": st.SchemaVersion,
				"build_mode":     st.BuildMode,
			}
		}
		return writeJSON(out, response)
	}

	fmt.Fprintf(out, "Backend:  %s\n", report.Backend)
	fmt.Fprintf(out, "Database: %s (%s)\n", report.Database, a.cfg.DatabasePath())
	fmt.Fprintf(out, "LLM:      %s (%s)\n", report.LLM, a.providerName())
	if st := report.Storage; st != nil {
		fmt.Fprintf(out, "\nProjects:  %d\n", st.Projects)
		fmt.Fprintf(out, "Files:     %d\n", st.Files)
		fmt.Fprintf(out, "Questions: %d\n", st.Questions)
		fmt.Fprintf(out, "Size:      %.2f MB\n", st.SizeMB)
		fmt.Fprintf(out, "Schema:    %s (%s build)\n", st.SchemaVersion, st.BuildMode)
	}
	return nil
}
