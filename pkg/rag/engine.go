package rag

import (
	"context"
	"fmt"
	"strings"

	"go.uber.org/zap"

	"docchat/internal/models"
	"docchat/internal/types"
	"docchat/pkg/llm"
	"docchat/pkg/processor"
)

// EngineConfig tunes retrieval. SearchLimit is the baseline top-k; the
// query mode widens or tightens it.
type EngineConfig struct {
	SearchLimit int
	BatchSize   int
}

// Engine is the ingest/query facade the UI talks to: Ingest chunks, embeds
// and stores a document; Query retrieves context for a question and asks
// the LLM.
type Engine struct {
	config    EngineConfig
	store     types.VectorStore
	processor processor.Processor
	chat      *llm.ChatEngine
	clients   *llm.Cache
	log       *zap.Logger
}

func NewEngine(config EngineConfig, store types.VectorStore, proc processor.Processor, chat *llm.ChatEngine, clients *llm.Cache, log *zap.Logger) *Engine {
	if config.SearchLimit == 0 {
		config.SearchLimit = 5
	}
	if config.BatchSize == 0 {
		config.BatchSize = 100
	}
	if log == nil {
		log = zap.NewNop()
	}

	return &Engine{
		config:    config,
		store:     store,
		processor: proc,
		chat:      chat,
		clients:   clients,
		log:       log,
	}
}

// Ingest chunks a document, embeds the chunks with the session's key and
// stores them. The raw document is not retained. Returns the number of
// chunks indexed.
func (e *Engine) Ingest(ctx context.Context, doc models.Document, apiKey string) (int, error) {
	if strings.TrimSpace(doc.Text) == "" {
		return 0, fmt.Errorf("%w: %s", ErrEmptyDocument, doc.Name)
	}
	if apiKey == "" {
		return 0, fmt.Errorf("%w: no API key configured for session", ErrAuthentication)
	}

	chunks, err := e.processor.Process([]models.Document{doc})
	if err != nil {
		return 0, fmt.Errorf("failed to process document %s: %w", doc.Name, err)
	}

	// Documents shorter than the chunker minimum still get indexed whole.
	if len(chunks) == 0 {
		chunks = []models.Chunk{{
			ID:           doc.ID + "_0",
			DocumentID:   doc.ID,
			DocumentName: doc.Name,
			Index:        0,
			Text:         strings.TrimSpace(doc.Text),
		}}
	}

	client, err := e.clients.Get(apiKey)
	if err != nil {
		return 0, fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	for start := 0; start < len(chunks); start += e.config.BatchSize {
		end := start + e.config.BatchSize
		if end > len(chunks) {
			end = len(chunks)
		}
		batch := chunks[start:end]

		texts := make([]string, len(batch))
		for i, chunk := range batch {
			texts[i] = chunk.Text
		}

		embeddings, err := client.CreateEmbedding(ctx, texts)
		if err != nil {
			if llm.IsAuthError(err) {
				return 0, fmt.Errorf("%w: %v", ErrAuthentication, err)
			}
			return 0, fmt.Errorf("failed to embed document %s: %w", doc.Name, err)
		}

		if err := e.store.Store(ctx, batch, embeddings); err != nil {
			return 0, fmt.Errorf("failed to store document %s: %w", doc.Name, err)
		}
	}

	e.log.Info("document ingested",
		zap.String("document", doc.Name),
		zap.String("format", string(doc.Format)),
		zap.Int("chunks", len(chunks)))

	return len(chunks), nil
}

// Query answers a question with retrieved context. One provider call per
// invocation; no retries.
func (e *Engine) Query(ctx context.Context, question string, mode models.QueryMode, apiKey string) (string, error) {
	return e.query(ctx, question, mode, apiKey, nil)
}

// QueryStream behaves like Query, forwarding answer fragments to fn as they
// arrive.
func (e *Engine) QueryStream(ctx context.Context, question string, mode models.QueryMode, apiKey string, fn func(chunk string)) (string, error) {
	return e.query(ctx, question, mode, apiKey, fn)
}

func (e *Engine) query(ctx context.Context, question string, mode models.QueryMode, apiKey string, fn func(chunk string)) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", ErrEmptyQuestion
	}
	if apiKey == "" {
		return "", fmt.Errorf("%w: no API key configured for session", ErrAuthentication)
	}

	count, err := e.store.Count(ctx)
	if err != nil {
		return "", fmt.Errorf("failed to check index: %w", err)
	}
	if count == 0 {
		return "", ErrEmptyIndex
	}

	client, err := e.clients.Get(apiKey)
	if err != nil {
		return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
	}

	embedding, err := client.EmbedQuery(ctx, question)
	if err != nil {
		if llm.IsAuthError(err) {
			return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return "", fmt.Errorf("failed to embed question: %w", err)
	}

	chunks, err := e.store.Search(ctx, e.searchRequest(mode, embedding, question))
	if err != nil {
		return "", fmt.Errorf("failed to search index: %w", err)
	}

	var answer string
	if fn != nil {
		answer, err = e.chat.ChatStream(ctx, apiKey, question, chunks, fn)
	} else {
		answer, err = e.chat.Chat(ctx, apiKey, question, chunks)
	}
	if err != nil {
		if llm.IsAuthError(err) {
			return "", fmt.Errorf("%w: %v", ErrAuthentication, err)
		}
		return "", err
	}

	e.log.Info("query answered",
		zap.String("mode", string(mode)),
		zap.Int("context_chunks", len(chunks)))

	return answer, nil
}

// searchRequest maps a query mode to a retrieval strategy: naive is plain
// vector similarity, local tightens k for entity-level questions, global
// spreads across documents for summaries, hybrid blends keyword rank in.
func (e *Engine) searchRequest(mode models.QueryMode, embedding []float32, question string) types.SearchRequest {
	req := types.SearchRequest{
		Embedding: embedding,
		Text:      question,
		Limit:     e.config.SearchLimit,
	}

	switch mode {
	case models.ModeLocal:
		req.Limit = e.config.SearchLimit / 2
		if req.Limit < 2 {
			req.Limit = 2
		}
	case models.ModeGlobal:
		req.Limit = e.config.SearchLimit * 2
		req.PerDocument = true
	case models.ModeHybrid:
		req.Hybrid = true
	}

	return req
}

// DocumentCount reports how many distinct documents are indexed, for the
// sidebar stats.
func (e *Engine) DocumentCount(ctx context.Context) (int, error) {
	return e.store.DocumentCount(ctx)
}
