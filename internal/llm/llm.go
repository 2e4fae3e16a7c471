package llm

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"strings"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Common errors
var (
	ErrEmptyQuestion   = errors.New("question cannot be empty")
	ErrProviderFailed  = errors.New("answer provider failed")
	ErrNoAPIKey        = errors.New("LLM API key not configured")
	ErrUnknownProvider = errors.New("unknown LLM provider")
	ErrInvalidResponse = errors.New("invalid response from LLM provider")
)

// Request is one question together with the assembled code context
type Request struct {
	Question string
	Context  string
}

// Answer is the generated reply
type Answer struct {
	Text     string
	Provider string
	Model    string
	Cached   bool
}

// Answerer generates answers to questions about a codebase
type Answerer interface {
	// Answer generates an answer grounded in req.Context
	Answer(ctx context.Context, req Request) (*Answer, error)

	// Ping checks that the provider is reachable and accepts our credentials
	Ping(ctx context.Context) error

	// Provider returns the provider name
	Provider() string

	// Model returns the model name
	Model() string

	// Close releases any resources held by the answerer
	Close() error
}

// fallbackContextLines is how much context the degraded answer quotes
const fallbackContextLines = 10

// FallbackAnswer is returned to the user when the provider fails. It quotes
// the first lines of the context so the reply is still useful.
func FallbackAnswer(context string) string {
	lines := strings.Split(context, "\n")
	if len(lines) > fallbackContextLines {
		lines = lines[:fallbackContextLines]
	}
	return "I encountered an issue processing your question. Based on the project files I can see:\n\n" +
		strings.Join(lines, "\n") +
		"\n\nPlease try asking a more specific question."
}

// UserMessage renders the prompt sent alongside the system prompt
func UserMessage(req Request) string {
	return "Here is the context from the codebase:\n\n" + req.Context +
		"\n\n---\n\nQuestion: " + req.Question +
		"\n\nPlease provide a helpful answer based on the available context."
}

// ValidateRequest validates an answer request
func ValidateRequest(req Request) error {
	if strings.TrimSpace(req.Question) == "" {
		return ErrEmptyQuestion
	}
	return nil
}

// Cache provides in-memory LRU caching of answers keyed by question and context
type Cache struct {
	cache *lru.Cache[string, string]
}

// NewCache creates a new answer cache with LRU eviction
func NewCache(maxLen int) *Cache {
	if maxLen <= 0 {
		maxLen = 256
	}
	cache, err := lru.New[string, string](maxLen)
	if err != nil {
		cache, _ = lru.New[string, string](256)
	}
	return &Cache{cache: cache}
}

// Get returns a cached answer text
func (c *Cache) Get(key string) (string, bool) {
	return c.cache.Get(key)
}

// Set stores an answer text
func (c *Cache) Set(key, text string) {
	c.cache.Add(key, text)
}

// Size returns the current cache size
func (c *Cache) Size() int {
	return c.cache.Len()
}

// Clear empties the cache
func (c *Cache) Clear() {
	c.cache.Purge()
}

// CacheKey hashes the model together with the request
func CacheKey(model string, req Request) string {
	h := sha256.New()
	h.Write([]byte(model))
	h.Write([]byte{0})
	h.Write([]byte(req.Question))
	h.Write([]byte{0})
	h.Write([]byte(req.Context))
	return hex.EncodeToString(h.Sum(nil))
}
