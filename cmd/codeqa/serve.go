package main

import (
	"github.com/spf13/cobra"

	"github.com/dshills/codeqa-mcp/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server on stdio",
	Long: `Start the Model Context Protocol (MCP) server.

The server communicates via stdio using JSON-RPC 2.0 and exposes:
  - upload_project: store a directory, ZIP archive or GitHub repository
  - ask_question: answer a question about a project
  - search_code: relevance search without an answer
  - get_history: recent questions of a project
  - list_projects: uploaded projects
  - get_status: backend, database and LLM health

Logs go to stderr (or logging.file); stdout carries protocol messages only.`,
	Args: cobra.NoArgs,
	RunE: runServe,
}

func init() {
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	a, err := newApp(true)
	if err != nil {
		return err
	}
	defer a.Close()

	server, err := mcp.NewServer(mcp.Dependencies{
		Storage:  a.storage,
		Ingester: a.ingester,
		Searcher: a.searcher,
		QA:       a.qa,
		Logger:   a.logger,
	})
	if err != nil {
		return err
	}

	ctx, cancel := newContext()
	defer cancel()

	a.logger.Info("codeqa MCP server starting",
		"version", version,
		"db", a.cfg.DatabasePath(),
		"llm_provider", a.providerName())

	errChan := make(chan error, 1)
	go func() {
		errChan <- server.Serve(ctx)
	}()

	select {
	case <-ctx.Done():
		a.logger.Info("received shutdown signal")
		return nil
	case err := <-errChan:
		if err != nil {
			a.logger.Error("server error", "error", err)
			return err
		}
	}

	a.logger.Info("server stopped")
	return nil
}
