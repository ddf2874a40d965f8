package store_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/internal/types"
	"docchat/pkg/store"
)

func seedMemoryStore(t *testing.T) *store.MemoryStore {
	t.Helper()

	s := store.NewMemoryStore()
	chunks := []models.Chunk{
		{ID: "a_0", DocumentID: "a", DocumentName: "alpha.txt", Index: 0, Text: "The capital of France is Paris."},
		{ID: "a_1", DocumentID: "a", DocumentName: "alpha.txt", Index: 1, Text: "France borders Spain and Italy."},
		{ID: "b_0", DocumentID: "b", DocumentName: "beta.txt", Index: 0, Text: "Go is a programming language."},
	}
	embeddings := [][]float32{
		{1, 0, 0},
		{0.9, 0.1, 0},
		{0, 0, 1},
	}
	require.NoError(t, s.Store(context.Background(), chunks, embeddings))
	return s
}

func TestMemoryStoreSearch(t *testing.T) {
	s := seedMemoryStore(t)

	results, err := s.Search(context.Background(), types.SearchRequest{
		Embedding: []float32{1, 0, 0},
		Limit:     2,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, "a_0", results[0].ID)
	assert.Equal(t, "a_1", results[1].ID)
}

func TestMemoryStoreHybridBoostsKeywordMatches(t *testing.T) {
	s := seedMemoryStore(t)

	// The embedding alone favors the France chunks; the keyword signal
	// should pull the Go chunk to the top.
	results, err := s.Search(context.Background(), types.SearchRequest{
		Embedding: []float32{0.5, 0.5, 0.5},
		Text:      "Go programming language",
		Limit:     1,
		Hybrid:    true,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "b_0", results[0].ID)
}

func TestMemoryStorePerDocument(t *testing.T) {
	s := seedMemoryStore(t)

	results, err := s.Search(context.Background(), types.SearchRequest{
		Embedding:   []float32{1, 0, 0},
		Limit:       3,
		PerDocument: true,
	})
	require.NoError(t, err)
	require.Len(t, results, 2)

	seen := map[string]bool{}
	for _, chunk := range results {
		assert.False(t, seen[chunk.DocumentID])
		seen[chunk.DocumentID] = true
	}
}

func TestMemoryStoreCounts(t *testing.T) {
	s := seedMemoryStore(t)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	docs, err := s.DocumentCount(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 2, docs)
}

func TestMemoryStoreUpsert(t *testing.T) {
	s := seedMemoryStore(t)

	err := s.Store(context.Background(), []models.Chunk{
		{ID: "a_0", DocumentID: "a", DocumentName: "alpha.txt", Index: 0, Text: "Updated text."},
	}, [][]float32{{0, 1, 0}})
	require.NoError(t, err)

	count, err := s.Count(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 3, count)

	results, err := s.Search(context.Background(), types.SearchRequest{
		Embedding: []float32{0, 1, 0},
		Limit:     1,
	})
	require.NoError(t, err)
	require.Len(t, results, 1)
	assert.Equal(t, "Updated text.", results[0].Text)
}

func TestMemoryStoreMismatchedInput(t *testing.T) {
	s := store.NewMemoryStore()
	err := s.Store(context.Background(), []models.Chunk{{ID: "x_0"}}, nil)
	assert.Error(t, err)
}
