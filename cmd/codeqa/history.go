package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var historyFormat string

var historyCmd = &cobra.Command{
	Use:   "history <project-id>",
	Short: "Show recent questions and answers",
	Args:  cobra.ExactArgs(1),
	RunE:  runHistory,
}

func init() {
	historyCmd.Flags().StringVar(&historyFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(historyCmd)
}

func runHistory(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(historyFormat)
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

	records, err := a.qa.History(ctx, args[0])
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		history := make([]map[string]interface{}, len(records))
		for i, r := range records {
			history[i] = map[string]interface{}{
				"id":         r.ID,
				"question":   r.Question,
				"answer":     r.Answer,
				"references": r.References,
				"created_at": r.CreatedAt.Format(time.RFC3339),
			}
		}
		return writeJSON(out, map[string]interface{}{
			"project_id": args[0],
			"history":    history,
		})
	}

	if len(records) == 0 {
		fmt.Fprintln(out, "No questions asked yet.")
		return nil
	}
	for i, r := range records {
		if i > 0 {
			fmt.Fprintln(out)
		}
		fmt.Fprintf(out, "[%s] Q: %s\n", r.CreatedAt.Local().Format(time.DateTime), r.Question)
		fmt.Fprintln(out, indent(r.Answer, "    "))
		fmt.Fprintf(out, "    (%d references)\n", len(r.References))
	}
	return nil
}
