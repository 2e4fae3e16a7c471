package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/viper"
	"gopkg.in/yaml.v3"

	"github.com/dshills/codeqa-mcp/internal/ingest"
	"github.com/dshills/codeqa-mcp/internal/llm"
	"github.com/dshills/codeqa-mcp/internal/qa"
	"github.com/dshills/codeqa-mcp/internal/retry"
	"github.com/dshills/codeqa-mcp/internal/searcher"
)

// EnvPrefix prefixes every environment override, e.g. CODEQA_SEARCH_TOP_K
const EnvPrefix = "CODEQA"

// DefaultDir holds the database and the optional config.yaml
const DefaultDir = "~/.codeqa"

// Config represents the complete codeqa configuration
type Config struct {
	Database DatabaseConfig `yaml:"database" mapstructure:"database"`
	Search   SearchConfig   `yaml:"search" mapstructure:"search"`
	Ingest   IngestConfig   `yaml:"ingest" mapstructure:"ingest"`
	LLM      LLMConfig      `yaml:"llm" mapstructure:"llm"`
	History  HistoryConfig  `yaml:"history" mapstructure:"history"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
}

// DatabaseConfig locates the SQLite database
type DatabaseConfig struct {
	Path string `yaml:"path" mapstructure:"path"`
}

// SearchConfig contains relevance search tuning
type SearchConfig struct {
	TopK                 int    `yaml:"top_k" mapstructure:"top_k"`
	MinRelevanceScore    int    `yaml:"min_relevance_score" mapstructure:"min_relevance_score"`
	ContextLines         int    `yaml:"context_lines" mapstructure:"context_lines"`
	KeywordMinLength     int    `yaml:"keyword_min_length" mapstructure:"keyword_min_length"`
	DeclarationScanLines int    `yaml:"declaration_scan_lines" mapstructure:"declaration_scan_lines"`
	MaxFiles             int    `yaml:"max_files" mapstructure:"max_files"`
	MaxFileBytes         int    `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
	MaxContextBytes      int    `yaml:"max_context_bytes" mapstructure:"max_context_bytes"`
	ListsFile            string `yaml:"lists_file" mapstructure:"lists_file"` // replaces the built-in keyword lists

	Weights WeightsConfig `yaml:"weights" mapstructure:"weights"`
}

// WeightsConfig holds the additive scoring weights
type WeightsConfig struct {
	Occurrence      int `yaml:"occurrence" mapstructure:"occurrence"`
	Declaration     int `yaml:"declaration" mapstructure:"declaration"`
	Filename        int `yaml:"filename" mapstructure:"filename"`
	PackageManifest int `yaml:"package_manifest" mapstructure:"package_manifest"`
	TechTerm        int `yaml:"tech_term" mapstructure:"tech_term"`
}

// IngestConfig contains upload limits
type IngestConfig struct {
	Workers         int           `yaml:"workers" mapstructure:"workers"`
	BatchSize       int           `yaml:"batch_size" mapstructure:"batch_size"`
	MaxFileBytes    int64         `yaml:"max_file_bytes" mapstructure:"max_file_bytes"`
	MaxArchiveBytes int64         `yaml:"max_archive_bytes" mapstructure:"max_archive_bytes"`
	GitHubBaseURL   string        `yaml:"github_base_url" mapstructure:"github_base_url"`
	GitHubBranches  []string      `yaml:"github_branches" mapstructure:"github_branches"`
	GitHubTimeout   time.Duration `yaml:"github_timeout" mapstructure:"github_timeout"`
}

// LLMConfig selects and configures the answer provider
type LLMConfig struct {
	Provider    string        `yaml:"provider" mapstructure:"provider"` // openrouter, local, or empty to auto-detect
	APIKey      string        `yaml:"api_key" mapstructure:"api_key"`
	BaseURL     string        `yaml:"base_url" mapstructure:"base_url"`
	Model       string        `yaml:"model" mapstructure:"model"`
	MaxTokens   int           `yaml:"max_tokens" mapstructure:"max_tokens"`
	Temperature float64       `yaml:"temperature" mapstructure:"temperature"`
	Timeout     time.Duration `yaml:"timeout" mapstructure:"timeout"`
	AppURL      string        `yaml:"app_url" mapstructure:"app_url"`
	CacheSize   int           `yaml:"cache_size" mapstructure:"cache_size"`
	MaxAttempts int           `yaml:"max_attempts" mapstructure:"max_attempts"`
}

// HistoryConfig bounds the stored question history
type HistoryConfig struct {
	MaxPerProject int `yaml:"max_per_project" mapstructure:"max_per_project"`
	Limit         int `yaml:"limit" mapstructure:"limit"`
}

// LoggingConfig contains logging configuration
type LoggingConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"` // text or json
	File   string `yaml:"file" mapstructure:"file"`     // empty logs to stderr
}

// DefaultConfig returns the default configuration
func DefaultConfig() *Config {
	ing := ingest.DefaultConfig()
	w := searcher.DefaultWeights()
	return &Config{
		Database: DatabaseConfig{
			Path: filepath.Join(DefaultDir, "codeqa.db"),
		},
		Search: SearchConfig{
			TopK:                 searcher.DefaultTopK,
			MinRelevanceScore:    searcher.DefaultMinRelevanceScore,
			ContextLines:         searcher.DefaultContextLines,
			KeywordMinLength:     searcher.DefaultKeywordMinLength,
			DeclarationScanLines: searcher.DefaultDeclarationScanLines,
			MaxFiles:             searcher.DefaultMaxFiles,
			MaxFileBytes:         searcher.DefaultMaxFileBytes,
			MaxContextBytes:      searcher.DefaultMaxContextBytes,
			Weights: WeightsConfig{
				Occurrence:      w.Occurrence,
				Declaration:     w.Declaration,
				Filename:        w.Filename,
				PackageManifest: w.PackageManifest,
				TechTerm:        w.TechTerm,
			},
		},
		Ingest: IngestConfig{
			Workers:         ing.Workers,
			BatchSize:       ing.BatchSize,
			MaxFileBytes:    ing.MaxFileBytes,
			MaxArchiveBytes: ing.MaxArchiveBytes,
			GitHubBaseURL:   ing.GitHub.BaseURL,
			GitHubBranches:  ing.GitHub.Branches,
			GitHubTimeout:   ing.GitHub.Timeout,
		},
		LLM: LLMConfig{
			BaseURL:     llm.DefaultOpenRouterURL,
			Model:       llm.DefaultOpenRouterModel,
			MaxTokens:   llm.DefaultMaxTokens,
			Temperature: llm.DefaultTemperature,
			Timeout:     llm.DefaultTimeout,
			CacheSize:   256,
			MaxAttempts: retry.DefaultMaxAttempts,
		},
		History: HistoryConfig{
			MaxPerProject: qa.DefaultMaxHistory,
			Limit:         qa.DefaultHistoryLimit,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// LoadConfig loads configuration from path, or from config.yaml in
// ~/.codeqa or the working directory when path is empty. A missing default
// file is not an error. Environment variables override file values.
func LoadConfig(path string) (*Config, error) {
	v := viper.New()

	// Set defaults
	setDefaults(v, DefaultConfig())

	// Configure viper
	v.SetConfigType("yaml")
	if path != "" {
		path = ExpandHome(path)
		if _, err := os.Stat(path); err != nil {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(ExpandHome(DefaultDir))
		v.AddConfigPath(".")
	}

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	if err := v.BindEnv("llm.api_key", "CODEQA_LLM_API_KEY", llm.EnvOpenRouterAPIKey); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.provider", llm.EnvProvider); err != nil {
		return nil, err
	}
	if err := v.BindEnv("llm.app_url", "CODEQA_LLM_APP_URL", "APP_URL"); err != nil {
		return nil, err
	}

	// Read config file
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	// Unmarshal into config struct
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}

	return &cfg, nil
}

// setDefaults registers every key so AutomaticEnv can override it
func setDefaults(v *viper.Viper, def *Config) {
	v.SetDefault("database.path", def.Database.Path)

	v.SetDefault("search.top_k", def.Search.TopK)
	v.SetDefault("search.min_relevance_score", def.Search.MinRelevanceScore)
	v.SetDefault("search.context_lines", def.Search.ContextLines)
	v.SetDefault("search.keyword_min_length", def.Search.KeywordMinLength)
	v.SetDefault("search.declaration_scan_lines", def.Search.DeclarationScanLines)
	v.SetDefault("search.max_files", def.Search.MaxFiles)
	v.SetDefault("search.max_file_bytes", def.Search.MaxFileBytes)
	v.SetDefault("search.max_context_bytes", def.Search.MaxContextBytes)
	v.SetDefault("search.lists_file", def.Search.ListsFile)
	v.SetDefault("search.weights.occurrence", def.Search.Weights.Occurrence)
	v.SetDefault("search.weights.declaration", def.Search.Weights.Declaration)
	v.SetDefault("search.weights.filename", def.Search.Weights.Filename)
	v.SetDefault("search.weights.package_manifest", def.Search.Weights.PackageManifest)
	v.SetDefault("search.weights.tech_term", def.Search.Weights.TechTerm)

	v.SetDefault("ingest.workers", def.Ingest.Workers)
	v.SetDefault("ingest.batch_size", def.Ingest.BatchSize)
	v.SetDefault("ingest.max_file_bytes", def.Ingest.MaxFileBytes)
	v.SetDefault("ingest.max_archive_bytes", def.Ingest.MaxArchiveBytes)
	v.SetDefault("ingest.github_base_url", def.Ingest.GitHubBaseURL)
	v.SetDefault("ingest.github_branches", def.Ingest.GitHubBranches)
	v.SetDefault("ingest.github_timeout", def.Ingest.GitHubTimeout)

	v.SetDefault("llm.provider", def.LLM.Provider)
	v.SetDefault("llm.api_key", def.LLM.APIKey)
	v.SetDefault("llm.base_url", def.LLM.BaseURL)
	v.SetDefault("llm.model", def.LLM.Model)
	v.SetDefault("llm.max_tokens", def.LLM.MaxTokens)
	v.SetDefault("llm.temperature", def.LLM.Temperature)
	v.SetDefault("llm.timeout", def.LLM.Timeout)
	v.SetDefault("llm.app_url", def.LLM.AppURL)
	v.SetDefault("llm.cache_size", def.LLM.CacheSize)
	v.SetDefault("llm.max_attempts", def.LLM.MaxAttempts)

	v.SetDefault("history.max_per_project", def.History.MaxPerProject)
	v.SetDefault("history.limit", def.History.Limit)

	v.SetDefault("logging.level", def.Logging.Level)
	v.SetDefault("logging.format", def.Logging.Format)
	v.SetDefault("logging.file", def.Logging.File)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	var errs []error
	if c.Database.Path == "" {
		errs = append(errs, &ConfigError{Field: "database.path", Message: "must not be empty"})
	}

	positive := []struct {
		field string
		value int64
	}{
		{"search.top_k", int64(c.Search.TopK)},
		{"search.keyword_min_length", int64(c.Search.KeywordMinLength)},
		{"search.max_files", int64(c.Search.MaxFiles)},
		{"search.max_file_bytes", int64(c.Search.MaxFileBytes)},
		{"search.max_context_bytes", int64(c.Search.MaxContextBytes)},
		{"ingest.workers", int64(c.Ingest.Workers)},
		{"ingest.batch_size", int64(c.Ingest.BatchSize)},
		{"ingest.max_file_bytes", c.Ingest.MaxFileBytes},
		{"ingest.max_archive_bytes", c.Ingest.MaxArchiveBytes},
		{"history.max_per_project", int64(c.History.MaxPerProject)},
		{"history.limit", int64(c.History.Limit)},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, &ConfigError{Field: p.field, Message: fmt.Sprintf("must be positive, got %d", p.value)})
		}
	}

	if c.Search.TopK > searcher.MaxTopK {
		errs = append(errs, &ConfigError{Field: "search.top_k", Message: fmt.Sprintf("must be at most %d", searcher.MaxTopK)})
	}
	if c.Search.MinRelevanceScore < 0 || c.Search.ContextLines < 0 || c.Search.DeclarationScanLines < 0 {
		errs = append(errs, &ConfigError{Field: "search", Message: "scores and line counts must not be negative"})
	}

	w := c.Search.Weights
	if w.Occurrence < 0 || w.Declaration < 0 || w.Filename < 0 || w.PackageManifest < 0 || w.TechTerm < 0 {
		errs = append(errs, &ConfigError{Field: "search.weights", Message: "weights must not be negative"})
	}

	switch strings.ToLower(c.LLM.Provider) {
	case "", llm.ProviderOpenRouter, llm.ProviderLocal:
	default:
		errs = append(errs, &ConfigError{Field: "llm.provider", Message: fmt.Sprintf("unknown provider %q", c.LLM.Provider)})
	}

	switch strings.ToLower(c.Logging.Format) {
	case "", "text", "json":
	default:
		errs = append(errs, &ConfigError{Field: "logging.format", Message: fmt.Sprintf("unknown format %q", c.Logging.Format)})
	}

	return errors.Join(errs...)
}

// ConfigError represents a configuration error
type ConfigError struct {
	Field   string
	Message string
}

func (e *ConfigError) Error() string {
	return "config error in field '" + e.Field + "': " + e.Message
}

// DatabasePath returns the database location with ~ expanded
func (c *Config) DatabasePath() string {
	return ExpandHome(c.Database.Path)
}

// SearcherConfig maps the search section onto the engine configuration
func (c *Config) SearcherConfig() (searcher.Config, error) {
	sc := searcher.DefaultConfig()
	sc.TopK = c.Search.TopK
	sc.MinRelevanceScore = c.Search.MinRelevanceScore
	sc.ContextLines = c.Search.ContextLines
	sc.KeywordMinLength = c.Search.KeywordMinLength
	sc.DeclarationScanLines = c.Search.DeclarationScanLines
	sc.MaxFiles = c.Search.MaxFiles
	sc.MaxFileBytes = c.Search.MaxFileBytes
	sc.MaxContextBytes = c.Search.MaxContextBytes
	sc.Weights = searcher.Weights{
		Occurrence:      c.Search.Weights.Occurrence,
		Declaration:     c.Search.Weights.Declaration,
		Filename:        c.Search.Weights.Filename,
		PackageManifest: c.Search.Weights.PackageManifest,
		TechTerm:        c.Search.Weights.TechTerm,
	}

	if c.Search.ListsFile != "" {
		lists, err := searcher.LoadListsFile(ExpandHome(c.Search.ListsFile))
		if err != nil {
			return searcher.Config{}, fmt.Errorf("failed to load keyword lists: %w", err)
		}
		sc.Lists = lists
	}
	return sc, nil
}

// IngesterConfig maps the ingest section onto the ingester configuration
func (c *Config) IngesterConfig() ingest.Config {
	cfg := ingest.DefaultConfig()
	cfg.Workers = c.Ingest.Workers
	cfg.BatchSize = c.Ingest.BatchSize
	cfg.MaxFileBytes = c.Ingest.MaxFileBytes
	cfg.MaxArchiveBytes = c.Ingest.MaxArchiveBytes
	cfg.GitHub.BaseURL = c.Ingest.GitHubBaseURL
	if len(c.Ingest.GitHubBranches) > 0 {
		cfg.GitHub.Branches = c.Ingest.GitHubBranches
	}
	cfg.GitHub.Timeout = c.Ingest.GitHubTimeout
	return cfg
}

// AnswererConfig maps the llm section onto the answerer factory configuration
func (c *Config) AnswererConfig() llm.Config {
	r := retry.DefaultConfig()
	if c.LLM.MaxAttempts > 0 {
		r.MaxAttempts = c.LLM.MaxAttempts
	}
	return llm.Config{
		Provider:    c.LLM.Provider,
		APIKey:      c.LLM.APIKey,
		BaseURL:     c.LLM.BaseURL,
		Model:       c.LLM.Model,
		MaxTokens:   c.LLM.MaxTokens,
		Temperature: c.LLM.Temperature,
		Timeout:     c.LLM.Timeout,
		AppURL:      c.LLM.AppURL,
		CacheSize:   c.LLM.CacheSize,
		Retry:       r,
	}
}

// QAConfig maps the history section onto the QA service configuration
func (c *Config) QAConfig() qa.Config {
	return qa.Config{
		TopK:         c.Search.TopK,
		MaxHistory:   c.History.MaxPerProject,
		HistoryLimit: c.History.Limit,
	}
}

// Redacted returns a copy safe to print
func (c *Config) Redacted() *Config {
	cp := *c
	if cp.LLM.APIKey != "" {
		cp.LLM.APIKey = "********"
	}
	return &cp
}

// YAML renders the configuration in config file format
func (c *Config) YAML() ([]byte, error) {
	return yaml.Marshal(c)
}

// Save writes the configuration as YAML, creating parent directories
func (c *Config) Save(path string) error {
	path = ExpandHome(path)
	data, err := c.YAML()
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

// ExpandHome replaces a leading ~ with the user's home directory
func ExpandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
