package llm

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/dshills/codeqa-mcp/internal/retry"
)

func fastRetry() retry.Config {
	return retry.Config{MaxAttempts: 3, BaseDelay: time.Millisecond, MaxDelay: time.Millisecond, Multiplier: 1}
}

func newTestProvider(t *testing.T, url string, cache *Cache) *OpenRouterProvider {
	t.Helper()
	p, err := NewOpenRouterProvider(OpenRouterConfig{
		APIKey:  "test-key",
		BaseURL: url,
		AppURL:  "http://localhost:3000",
		Retry:   fastRetry(),
	}, cache)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })
	return p
}

func writeCompletion(w http.ResponseWriter, content string) {
	w.Header().Set("Content-Type", "application/json")
	_, _ = w.Write([]byte(`{"model":"openai/gpt-4o-mini","choices":[{"message":{"role":"assistant","content":` +
		mustJSON(content) + `}}]}`))
}

func mustJSON(s string) string {
	b, _ := json.Marshal(s)
	return string(b)
}

func TestOpenRouterAnswer(t *testing.T) {
	var got chatRequest
	var headers http.Header
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		headers = r.Header.Clone()
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeCompletion(w, "  The server starts in main.go.  ")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	ans, err := p.Answer(t.Context(), Request{Question: "Where does it start?", Context: "ctx"})
	require.NoError(t, err)

	assert.Equal(t, "The server starts in main.go.", ans.Text)
	assert.Equal(t, ProviderOpenRouter, ans.Provider)
	assert.False(t, ans.Cached)

	assert.Equal(t, "Bearer test-key", headers.Get("Authorization"))
	assert.Equal(t, "http://localhost:3000", headers.Get("HTTP-Referer"))
	assert.Equal(t, DefaultOpenRouterModel, got.Model)
	assert.Equal(t, DefaultMaxTokens, got.MaxTokens)
	require.NotNil(t, got.Temperature)
	assert.InDelta(t, DefaultTemperature, *got.Temperature, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, "system", got.Messages[0].Role)
	assert.Equal(t, SystemPrompt, got.Messages[0].Content)
	assert.Equal(t, UserMessage(Request{Question: "Where does it start?", Context: "ctx"}), got.Messages[1].Content)
}

func TestOpenRouterRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusBadGateway)
			return
		}
		writeCompletion(w, "ok")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	ans, err := p.Answer(t.Context(), Request{Question: "q", Context: "c"})
	require.NoError(t, err)
	assert.Equal(t, "ok", ans.Text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestOpenRouterClientErrorNotRetried(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		http.Error(w, `{"error":"invalid key"}`, http.StatusUnauthorized)
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	_, err := p.Answer(t.Context(), Request{Question: "q", Context: "c"})
	assert.ErrorIs(t, err, ErrProviderFailed)
	assert.Contains(t, err.Error(), "401")
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterEmptyChoices(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	_, err := p.Answer(t.Context(), Request{Question: "q", Context: "c"})
	assert.ErrorIs(t, err, ErrInvalidResponse)
	assert.ErrorIs(t, err, ErrProviderFailed)
}

func TestOpenRouterCache(t *testing.T) {
	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		writeCompletion(w, "cached answer")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, NewCache(8))
	req := Request{Question: "q", Context: "c"}

	first, err := p.Answer(t.Context(), req)
	require.NoError(t, err)
	second, err := p.Answer(t.Context(), req)
	require.NoError(t, err)

	assert.False(t, first.Cached)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Text, second.Text)
	assert.Equal(t, int32(1), calls.Load())
}

func TestOpenRouterPing(t *testing.T) {
	var got chatRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewDecoder(r.Body).Decode(&got)
		writeCompletion(w, "OK")
	}))
	defer srv.Close()

	p := newTestProvider(t, srv.URL, nil)
	require.NoError(t, p.Ping(t.Context()))
	assert.Equal(t, pingMaxTokens, got.MaxTokens)
	assert.Nil(t, got.Temperature)

	srv.Close()
	assert.Error(t, p.Ping(t.Context()))
}

func TestOpenRouterEmptyQuestion(t *testing.T) {
	p := newTestProvider(t, "http://127.0.0.1:0", nil)
	_, err := p.Answer(t.Context(), Request{Question: " ", Context: "c"})
	assert.ErrorIs(t, err, ErrEmptyQuestion)
}

func TestNewOpenRouterProviderRequiresKey(t *testing.T) {
	t.Setenv(EnvOpenRouterAPIKey, "")
	_, err := NewOpenRouterProvider(OpenRouterConfig{}, nil)
	assert.ErrorIs(t, err, ErrNoAPIKey)

	t.Setenv(EnvOpenRouterAPIKey, "env-key")
	p, err := NewOpenRouterProvider(OpenRouterConfig{}, nil)
	require.NoError(t, err)
	assert.Equal(t, "env-key", p.cfg.APIKey)
	assert.Equal(t, DefaultOpenRouterURL, p.cfg.BaseURL)
	assert.Equal(t, DefaultOpenRouterModel, p.Model())
}
