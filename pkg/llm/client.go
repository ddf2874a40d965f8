package llm

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/tmc/langchaingo/llms/openai"
)

// ErrMissingKey is returned when a client is requested without an API key.
var ErrMissingKey = errors.New("missing API key")

// ClientConfig points the OpenAI-compatible client at a provider. The
// default deployment targets Gemini's OpenAI-compatible surface.
type ClientConfig struct {
	BaseURL        string
	Model          string
	EmbeddingModel string
}

// Client bundles chat and embedding access for a single API key.
type Client struct {
	llm *openai.LLM
}

func NewClient(config ClientConfig, apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}

	opts := []openai.Option{
		openai.WithToken(apiKey),
		openai.WithModel(config.Model),
	}
	if config.BaseURL != "" {
		opts = append(opts, openai.WithBaseURL(config.BaseURL))
	}
	if config.EmbeddingModel != "" {
		opts = append(opts, openai.WithEmbeddingModel(config.EmbeddingModel))
	}

	llm, err := openai.New(opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize LLM client: %w", err)
	}

	return &Client{llm: llm}, nil
}

// Cache hands out one Client per API key. Keys arrive per browser session,
// so clients are cached under a digest of the key rather than the key itself.
type Cache struct {
	config  ClientConfig
	mu      sync.Mutex
	clients map[string]*Client
}

func NewCache(config ClientConfig) *Cache {
	return &Cache{
		config:  config,
		clients: make(map[string]*Client),
	}
}

func (c *Cache) Get(apiKey string) (*Client, error) {
	if apiKey == "" {
		return nil, ErrMissingKey
	}

	digest := sha256.Sum256([]byte(apiKey))
	id := hex.EncodeToString(digest[:])

	c.mu.Lock()
	defer c.mu.Unlock()

	if client, ok := c.clients[id]; ok {
		return client, nil
	}

	client, err := NewClient(c.config, apiKey)
	if err != nil {
		return nil, err
	}
	c.clients[id] = client
	return client, nil
}

// IsAuthError reports whether a provider error looks like a key rejection.
// The OpenAI-compatible surface signals this with a 401/403 status; Gemini
// responds with "API key not valid".
func IsAuthError(err error) bool {
	if err == nil {
		return false
	}
	msg := strings.ToLower(err.Error())
	for _, marker := range []string{
		"status code: 401",
		"status code: 403",
		"unauthorized",
		"invalid api key",
		"invalid_api_key",
		"api key not valid",
		"incorrect api key",
	} {
		if strings.Contains(msg, marker) {
			return true
		}
	}
	return false
}
