package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/dshills/codeqa-mcp/internal/retry"
)

// Provider configuration
const (
	ProviderOpenRouter = "openrouter"
	ProviderLocal      = "local"

	DefaultOpenRouterURL   = "https://openrouter.ai/api/v1/chat/completions"
	DefaultOpenRouterModel = "openai/gpt-4o-mini"
	DefaultMaxTokens       = 1500
	DefaultTemperature     = 0.3
	DefaultTimeout         = 30 * time.Second

	// pingMaxTokens keeps connectivity checks cheap
	pingMaxTokens = 5
)

// OpenRouterConfig configures the OpenRouter chat-completions client
type OpenRouterConfig struct {
	APIKey      string
	BaseURL     string // full chat completions endpoint
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
	AppURL      string // sent as HTTP-Referer when set
	Retry       retry.Config
}

// OpenRouterProvider implements Answerer using the OpenRouter API
type OpenRouterProvider struct {
	cfg        OpenRouterConfig
	httpClient *http.Client
	cache      *Cache
}

// NewOpenRouterProvider creates a new OpenRouter answerer. An empty API key
// falls back to OPENROUTER_API_KEY.
func NewOpenRouterProvider(cfg OpenRouterConfig, cache *Cache) (*OpenRouterProvider, error) {
	if cfg.APIKey == "" {
		cfg.APIKey = os.Getenv(EnvOpenRouterAPIKey)
	}
	if cfg.APIKey == "" {
		return nil, fmt.Errorf("%w: %s not set", ErrNoAPIKey, EnvOpenRouterAPIKey)
	}
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultOpenRouterURL
	}
	if cfg.Model == "" {
		cfg.Model = DefaultOpenRouterModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.Temperature <= 0 {
		cfg.Temperature = DefaultTemperature
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = DefaultTimeout
	}
	if cfg.Retry.MaxAttempts <= 0 {
		cfg.Retry = retry.DefaultConfig()
	}

	return &OpenRouterProvider{
		cfg: cfg,
		httpClient: &http.Client{
			Timeout: cfg.Timeout,
		},
		cache: cache,
	}, nil
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
}

type chatResponse struct {
	Model   string `json:"model"`
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

func (o *OpenRouterProvider) Answer(ctx context.Context, req Request) (*Answer, error) {
	if err := ValidateRequest(req); err != nil {
		return nil, err
	}

	// Check cache
	key := CacheKey(o.cfg.Model, req)
	if o.cache != nil {
		if text, ok := o.cache.Get(key); ok {
			return &Answer{Text: text, Provider: ProviderOpenRouter, Model: o.cfg.Model, Cached: true}, nil
		}
	}

	temperature := o.cfg.Temperature
	body := chatRequest{
		Model: o.cfg.Model,
		Messages: []chatMessage{
			{Role: "system", Content: SystemPrompt},
			{Role: "user", Content: UserMessage(req)},
		},
		MaxTokens:   o.cfg.MaxTokens,
		Temperature: &temperature,
	}

	// Use retry logic with exponential backoff
	resp, err := retry.Do(ctx, o.cfg.Retry, func() (*chatResponse, error) {
		return o.callAPI(ctx, body)
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, fmt.Errorf("%w: %w", ErrProviderFailed, ErrInvalidResponse)
	}

	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if o.cache != nil {
		o.cache.Set(key, text)
	}

	model := resp.Model
	if model == "" {
		model = o.cfg.Model
	}
	return &Answer{Text: text, Provider: ProviderOpenRouter, Model: model}, nil
}

// Ping sends a minimal completion request without retrying
func (o *OpenRouterProvider) Ping(ctx context.Context) error {
	_, err := o.callAPI(ctx, chatRequest{
		Model:     o.cfg.Model,
		Messages:  []chatMessage{{Role: "user", Content: "Say OK"}},
		MaxTokens: pingMaxTokens,
	})
	if err != nil {
		return fmt.Errorf("%w: %v", ErrProviderFailed, err)
	}
	return nil
}

// callAPI performs one chat completion. Client errors other than 429 are
// not retried.
func (o *OpenRouterProvider) callAPI(ctx context.Context, body chatRequest) (*chatResponse, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("marshal request: %w", err))
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, o.cfg.BaseURL, bytes.NewReader(payload))
	if err != nil {
		return nil, retry.Permanent(fmt.Errorf("create request: %w", err))
	}

	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+o.cfg.APIKey)
	if o.cfg.AppURL != "" {
		req.Header.Set("HTTP-Referer", o.cfg.AppURL)
	}

	resp, err := o.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("api call: %w", err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		apiErr := fmt.Errorf("api error %d: %s", resp.StatusCode, strings.TrimSpace(string(bodyBytes)))
		if resp.StatusCode >= 400 && resp.StatusCode < 500 && resp.StatusCode != http.StatusTooManyRequests {
			return nil, retry.Permanent(apiErr)
		}
		return nil, apiErr
	}

	var apiResp chatResponse
	if err := json.NewDecoder(resp.Body).Decode(&apiResp); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	return &apiResp, nil
}

func (o *OpenRouterProvider) Provider() string {
	return ProviderOpenRouter
}

func (o *OpenRouterProvider) Model() string {
	return o.cfg.Model
}

func (o *OpenRouterProvider) Close() error {
	o.httpClient.CloseIdleConnections()
	return nil
}
