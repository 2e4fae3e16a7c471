package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/dshills/codeqa-mcp/internal/config"
	"github.com/dshills/codeqa-mcp/internal/ingest"
	"github.com/dshills/codeqa-mcp/internal/llm"
	"github.com/dshills/codeqa-mcp/internal/qa"
	"github.com/dshills/codeqa-mcp/internal/searcher"
	"github.com/dshills/codeqa-mcp/internal/slogutil"
	"github.com/dshills/codeqa-mcp/internal/storage"
)

var (
	configFlag    string
	dbFlag        string
	logLevelFlag  string
	logFormatFlag string
	verbosityFlag int
	quietFlag     bool
)

var rootCmd = &cobra.Command{
	Use:   "codeqa",
	Short: "codeqa - ask questions about a codebase",
	Long: `codeqa stores the code files of a project and answers natural language
questions about it. Answers are grounded in snippets chosen by a lexical
relevance search (keywords, declarations, file names) and generated by an
LLM through OpenRouter, or summarized offline when no API key is set.

Run "codeqa serve" to expose the same operations as MCP tools over stdio.`,
	Version:       version,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.SetVersionTemplate("codeqa version {{.Version}}\n")
	rootCmd.PersistentFlags().StringVar(&configFlag, "config", "", "Config file (default: ~/.codeqa/config.yaml)")
	rootCmd.PersistentFlags().StringVar(&dbFlag, "db", "", "SQLite database path (overrides database.path)")
	rootCmd.PersistentFlags().StringVar(&logLevelFlag, "log-level", "", "Log level: debug, info, warn, error, silent")
	rootCmd.PersistentFlags().StringVar(&logFormatFlag, "log-format", "", "Log format: text or json")
	rootCmd.PersistentFlags().CountVarP(&verbosityFlag, "verbose", "v", "Increase log verbosity (-v info, -vv debug)")
	rootCmd.PersistentFlags().BoolVarP(&quietFlag, "quiet", "q", false, "Suppress all logs")
}

// loadConfig reads the configuration and applies command line overrides
func loadConfig() (*config.Config, error) {
	cfg, err := config.LoadConfig(configFlag)
	if err != nil {
		return nil, err
	}
	if dbFlag != "" {
		cfg.Database.Path = dbFlag
	}
	if logLevelFlag != "" {
		cfg.Logging.Level = logLevelFlag
	}
	if logFormatFlag != "" {
		cfg.Logging.Format = logFormatFlag
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// newLogger builds the stderr logger. Long-running commands use the
// configured level; one-shot commands stay at warn unless -v or --log-level
// ask for more. The returned closer releases a log file, if any.
func newLogger(cfg *config.Config, longRunning bool) (*slog.Logger, func(), error) {
	level := slogutil.LevelFromVerbosity(verbosityFlag, quietFlag)
	if logLevelFlag != "" || (longRunning && !quietFlag && verbosityFlag == 0) {
		level = slogutil.LevelFromString(cfg.Logging.Level)
	}

	if cfg.Logging.File != "" {
		logger, f, err := slogutil.NewFileLogger(config.ExpandHome(cfg.Logging.File), level, cfg.Logging.Format)
		if err != nil {
			return nil, nil, fmt.Errorf("failed to open log file: %w", err)
		}
		return logger, func() { _ = f.Close() }, nil
	}
	// stdout is reserved for command output and MCP frames
	return slogutil.NewLogger(os.Stderr, level, cfg.Logging.Format), func() {}, nil
}

// app holds the wired components shared by every command
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	storage  *storage.SQLiteStorage
	searcher *searcher.Searcher
	ingester *ingest.Ingester
	answerer llm.Answerer
	qa       *qa.Service

	closeLog func()
}

// newApp loads configuration and wires storage, search, ingestion and
// answering
func newApp(longRunning bool) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, closeLog, err := newLogger(cfg, longRunning)
	if err != nil {
		return nil, err
	}

	dbPath := cfg.DatabasePath()
	if err := os.MkdirAll(filepath.Dir(dbPath), 0o755); err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to create database directory: %w", err)
	}

	store, err := storage.NewSQLiteStorage(dbPath)
	if err != nil {
		closeLog()
		return nil, fmt.Errorf("failed to initialize storage: %w", err)
	}

	searchCfg, err := cfg.SearcherConfig()
	if err != nil {
		_ = store.Close()
		closeLog()
		return nil, err
	}
	engine, err := searcher.NewEngine(searchCfg, logger)
	if err != nil {
		_ = store.Close()
		closeLog()
		return nil, fmt.Errorf("invalid search configuration: %w", err)
	}
	srch := searcher.NewSearcher(store, engine, logger)

	answerer, err := llm.New(cfg.AnswererConfig())
	if err != nil {
		if !errors.Is(err, llm.ErrNoAPIKey) {
			_ = store.Close()
			closeLog()
			return nil, fmt.Errorf("failed to initialize LLM provider: %w", err)
		}
		// Questions fail with "LLM unavailable" until a key is configured
		logger.Warn("LLM provider not configured", "error", err)
		answerer = nil
	}

	a := &app{
		cfg:      cfg,
		logger:   logger,
		storage:  store,
		searcher: srch,
		ingester: ingest.New(store, cfg.IngesterConfig(), logger),
		answerer: answerer,
		qa:       qa.New(store, srch, answerer, cfg.QAConfig(), logger),
		closeLog: closeLog,
	}

	logger.Debug("initialized",
		"db", dbPath,
		"build_mode", storage.BuildMode,
		"driver", storage.DriverName,
		"llm_provider", a.providerName())
	return a, nil
}

func (a *app) providerName() string {
	if a.answerer == nil {
		return "none"
	}
	return a.answerer.Provider()
}

// Close releases the database, provider and log file
func (a *app) Close() {
	if a.answerer != nil {
		_ = a.answerer.Close()
	}
	_ = a.storage.Close()
	a.closeLog()
}

// newContext returns a context cancelled on SIGINT or SIGTERM
func newContext() (context.Context, context.CancelFunc) {
	return signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
}
