package llm

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/dshills/codeqa-mcp/internal/retry"
)

// Environment variables consulted by the factory
const (
	EnvProvider         = "CODEQA_LLM_PROVIDER"
	EnvOpenRouterAPIKey = "OPENROUTER_API_KEY"
)

// Config holds answerer configuration
type Config struct {
	Provider    string
	APIKey      string
	BaseURL     string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	AppURL      string
	CacheSize   int // zero disables the answer cache
	Retry       retry.Config
}

// New creates an answerer with explicit configuration. An empty provider is
// resolved with DetectProvider.
func New(cfg Config) (Answerer, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	provider := strings.ToLower(cfg.Provider)
	if provider == "" {
		provider = detect(cfg.APIKey)
	}

	switch provider {
	case ProviderOpenRouter:
		p, err := NewOpenRouterProvider(OpenRouterConfig{
			APIKey:      cfg.APIKey,
			BaseURL:     cfg.BaseURL,
			Model:       cfg.Model,
			MaxTokens:   cfg.MaxTokens,
			Temperature: cfg.Temperature,
			Timeout:     cfg.Timeout,
			AppURL:      cfg.AppURL,
			Retry:       cfg.Retry,
		}, cache)
		if err != nil {
			return nil, err
		}
		return p, nil
	case ProviderLocal:
		return NewLocalProvider(), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnknownProvider, cfg.Provider)
	}
}

// NewFromEnv creates an answerer based on environment variables
// Priority:
// 1. CODEQA_LLM_PROVIDER (openrouter, local)
// 2. OPENROUTER_API_KEY selects openrouter
// 3. Default to local
func NewFromEnv() (Answerer, error) {
	return New(Config{Provider: os.Getenv(EnvProvider), CacheSize: 256})
}

// DetectProvider returns the provider that would be used based on current environment
func DetectProvider() string {
	if provider := os.Getenv(EnvProvider); provider != "" {
		return strings.ToLower(provider)
	}
	return detect("")
}

func detect(apiKey string) string {
	if apiKey != "" || os.Getenv(EnvOpenRouterAPIKey) != "" {
		return ProviderOpenRouter
	}
	return ProviderLocal
}
