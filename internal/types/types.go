package types

import (
	"context"

	"docchat/internal/models"
)

// SearchRequest describes one retrieval against the vector store. Text is
// the raw question, used for keyword rank when Hybrid is set.
type SearchRequest struct {
	Embedding []float32
	Text      string
	Limit     int
	Hybrid    bool
	// PerDocument keeps at most one chunk per source document.
	PerDocument bool
}

type VectorStore interface {
	Store(ctx context.Context, chunks []models.Chunk, embeddings [][]float32) error
	Search(ctx context.Context, req SearchRequest) ([]models.Chunk, error)
	Count(ctx context.Context) (int, error)
	DocumentCount(ctx context.Context) (int, error)
	Close()
}

type Embedder interface {
	CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error)
}

type Processor interface {
	Process(docs []models.Document) ([]models.Chunk, error)
}
