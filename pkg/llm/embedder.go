package llm

import (
	"context"
	"fmt"
)

// CreateEmbedding embeds a batch of texts with the provider's embedding
// model.
func (c *Client) CreateEmbedding(ctx context.Context, texts []string) ([][]float32, error) {
	embeddings, err := c.llm.CreateEmbedding(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding error: %w", err)
	}
	return embeddings, nil
}

// EmbedQuery embeds a single query string.
func (c *Client) EmbedQuery(ctx context.Context, text string) ([]float32, error) {
	embeddings, err := c.CreateEmbedding(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(embeddings) == 0 {
		return nil, fmt.Errorf("provider returned no embedding")
	}
	return embeddings[0], nil
}

// FlattenEmbeddings joins batch embeddings into a single vector.
func FlattenEmbeddings(embeddings [][]float32) []float32 {
	var flattened []float32
	for _, emb := range embeddings {
		flattened = append(flattened, emb...)
	}
	return flattened
}
