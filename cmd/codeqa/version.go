package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dshills/codeqa-mcp/internal/llm"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print version and build information",
	Args:  cobra.NoArgs,
	Run: func(cmd *cobra.Command, args []string) {
		out := cmd.OutOrStdout()
		fmt.Fprintf(out, "codeqa MCP Server\n")
		fmt.Fprintf(out, "Version: %s\n", version)
		fmt.Fprintf(out, "Build Time: %s\n", buildTime)
		fmt.Fprintf(out, "Build Mode: %s\n", storage.BuildMode)
		fmt.Fprintf(out, "SQLite Driver: %s\n", storage.DriverName)
		fmt.Fprintf(out, "Schema Version: %s\n", storage.CurrentSchemaVersion)
		fmt.Fprintf(out, "LLM Provider: %s\n", llm.DetectProvider())
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}
