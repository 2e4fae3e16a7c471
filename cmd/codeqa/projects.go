package main

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
)

var projectsFormat string

var projectsCmd = &cobra.Command{
	Use:   "projects",
	Short: "List uploaded projects",
	Args:  cobra.NoArgs,
	RunE:  runProjects,
}

func init() {
	projectsCmd.Flags().StringVar(&projectsFormat, "format", "human", "Output format (json, human)")
	rootCmd.AddCommand(projectsCmd)
}

func runProjects(cmd *cobra.Command, args []string) error {
	format, err := parseFormat(projectsFormat)
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

	projects, err := a.storage.ListProjects(ctx)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if format == FormatJSON {
		list := make([]map[string]interface{}, len(projects))
		for i, p := range projects {
			list[i] = map[string]interface{}{
				"id":         p.ID,
				"name":       p.Name,
				"source":     p.Source,
				"file_count": p.FileCount,
				"created_at": p.CreatedAt.Format(time.RFC3339),
			}
		}
		return writeJSON(out, map[string]interface{}{"projects": list})
	}

	if len(projects) == 0 {
		fmt.Fprintln(out, "No projects uploaded yet.")
		return nil
	}
	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tNAME\tFILES\tCREATED\tSOURCE")
	for _, p := range projects {
		fmt.Fprintf(tw, "%s\t%s\t%d\t%s\t%s\n", p.ID, p.Name, p.FileCount, p.CreatedAt.Local().Format(time.DateTime), p.Source)
	}
	return tw.Flush()
}
