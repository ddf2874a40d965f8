package llm

import (
	"context"
	"fmt"
	"strings"

	"github.com/tmc/langchaingo/llms"
	"github.com/tmc/langchaingo/schema"

	"docchat/internal/models"
)

// ChatConfig represents the configuration for a chat engine.
type ChatConfig struct {
	Model           string
	Temperature     float64
	MaxTokens       int
	SystemTemplate  string
	ContextTemplate string
	BaseURL         string
	EmbeddingModel  string
}

// ChatEngine generates answers from a question plus retrieved chunks. It is
// shared across sessions; the per-session API key is passed on each call.
type ChatEngine struct {
	config  ChatConfig
	clients *Cache
}

// NewWithConfig creates a new ChatEngine with the given configuration.
func NewWithConfig(config ChatConfig, clients *Cache) (*ChatEngine, error) {
	if config.Model == "" {
		config.Model = "gemini-2.0-flash-exp"
	}
	if config.Temperature <= 0 || config.Temperature > 2 {
		return nil, fmt.Errorf("temperature must be between 0 and 2")
	}
	if config.MaxTokens < 0 {
		return nil, fmt.Errorf("max tokens cannot be negative")
	} else if config.MaxTokens == 0 {
		config.MaxTokens = 2000
	}
	if config.SystemTemplate == "" {
		config.SystemTemplate = "You are a helpful assistant with access to the user's uploaded documents. Answer questions based on the provided context."
	}
	if config.ContextTemplate == "" {
		config.ContextTemplate = "Relevant document excerpts:\n%s\nQuestion: %s"
	}

	if clients == nil {
		clients = NewCache(ClientConfig{
			BaseURL:        config.BaseURL,
			Model:          config.Model,
			EmbeddingModel: config.EmbeddingModel,
		})
	}

	return &ChatEngine{
		config:  config,
		clients: clients,
	}, nil
}

// Chat generates a response based on the question and context chunks.
func (ce *ChatEngine) Chat(ctx context.Context, apiKey, question string, chunks []models.Chunk) (string, error) {
	return ce.generate(ctx, apiKey, question, chunks, nil)
}

// ChatStream generates a response, forwarding each chunk of the answer to fn
// as it arrives. The full answer is returned once the stream ends.
func (ce *ChatEngine) ChatStream(ctx context.Context, apiKey, question string, chunks []models.Chunk, fn func(chunk string)) (string, error) {
	return ce.generate(ctx, apiKey, question, chunks, fn)
}

func (ce *ChatEngine) generate(ctx context.Context, apiKey, question string, chunks []models.Chunk, fn func(chunk string)) (string, error) {
	client, err := ce.clients.Get(apiKey)
	if err != nil {
		return "", err
	}

	content := []llms.MessageContent{
		llms.TextParts(schema.ChatMessageTypeSystem, ce.config.SystemTemplate),
		llms.TextParts(schema.ChatMessageTypeHuman,
			fmt.Sprintf(ce.config.ContextTemplate, ce.formatContext(chunks), question)),
	}

	opts := []llms.CallOption{
		llms.WithMaxTokens(ce.config.MaxTokens),
		llms.WithTemperature(ce.config.Temperature),
	}

	var streamed strings.Builder
	if fn != nil {
		opts = append(opts, llms.WithStreamingFunc(func(ctx context.Context, chunk []byte) error {
			streamed.Write(chunk)
			fn(string(chunk))
			return nil
		}))
	}

	response, err := client.llm.GenerateContent(ctx, content, opts...)
	if err != nil {
		return "", fmt.Errorf("chat error: %w", err)
	}

	if len(response.Choices) > 0 && response.Choices[0].Content != "" {
		return response.Choices[0].Content, nil
	}
	if streamed.Len() > 0 {
		return streamed.String(), nil
	}
	return "", fmt.Errorf("no response from LLM")
}

// formatContext renders retrieved chunks with their source names so the
// model can cite them.
func (ce *ChatEngine) formatContext(chunks []models.Chunk) string {
	var contextBuilder strings.Builder
	for _, chunk := range chunks {
		contextBuilder.WriteString(fmt.Sprintf("Source: %s\n%s\n\n", chunk.DocumentName, chunk.Text))
	}
	return contextBuilder.String()
}

// formatSources lists the distinct source documents for citation.
func (ce *ChatEngine) formatSources(chunks []models.Chunk) string {
	var sources []string
	seen := make(map[string]bool)

	for _, chunk := range chunks {
		if !seen[chunk.DocumentName] {
			sources = append(sources, chunk.DocumentName)
			seen[chunk.DocumentName] = true
		}
	}

	if len(sources) == 0 {
		return ""
	}

	return fmt.Sprintf("\nSources:\n%s", strings.Join(sources, "\n"))
}
