package store

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"sync"

	"docchat/internal/models"
	"docchat/internal/types"
)

// MemoryStore is an in-process store used when no database is configured.
// The index lives only as long as the process, which matches the transient
// session model of the UI.
type MemoryStore struct {
	mu      sync.RWMutex
	entries []memoryEntry
}

type memoryEntry struct {
	chunk     models.Chunk
	embedding []float32
}

var _ types.VectorStore = (*MemoryStore)(nil)

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{}
}

func (s *MemoryStore) Store(_ context.Context, chunks []models.Chunk, embeddings [][]float32) error {
	if len(chunks) != len(embeddings) {
		return fmt.Errorf("chunk/embedding count mismatch: %d vs %d", len(chunks), len(embeddings))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i, chunk := range chunks {
		replaced := false
		for j := range s.entries {
			if s.entries[j].chunk.ID == chunk.ID {
				s.entries[j] = memoryEntry{chunk: chunk, embedding: embeddings[i]}
				replaced = true
				break
			}
		}
		if !replaced {
			s.entries = append(s.entries, memoryEntry{chunk: chunk, embedding: embeddings[i]})
		}
	}
	return nil
}

func (s *MemoryStore) Search(_ context.Context, req types.SearchRequest) ([]models.Chunk, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	type scored struct {
		chunk models.Chunk
		score float64
	}

	results := make([]scored, 0, len(s.entries))
	for _, entry := range s.entries {
		score := cosine(req.Embedding, entry.embedding)
		if req.Hybrid {
			score += 0.5 * keywordScore(req.Text, entry.chunk.Text)
		}
		results = append(results, scored{chunk: entry.chunk, score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].score > results[j].score
	})

	limit := req.Limit
	if limit == 0 || limit > len(results) {
		limit = len(results)
	}

	var chunks []models.Chunk
	seenDoc := make(map[string]bool)
	for _, r := range results {
		if len(chunks) == limit {
			break
		}
		if req.PerDocument {
			if seenDoc[r.chunk.DocumentID] {
				continue
			}
			seenDoc[r.chunk.DocumentID] = true
		}
		chunks = append(chunks, r.chunk)
	}

	return chunks, nil
}

func (s *MemoryStore) Count(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries), nil
}

func (s *MemoryStore) DocumentCount(_ context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	docs := make(map[string]bool)
	for _, entry := range s.entries {
		docs[entry.chunk.DocumentID] = true
	}
	return len(docs), nil
}

func (s *MemoryStore) Close() {}

func cosine(a, b []float32) float64 {
	if len(a) != len(b) {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		na += float64(a[i]) * float64(a[i])
		nb += float64(b[i]) * float64(b[i])
	}
	if na == 0 || nb == 0 {
		return 0
	}
	return dot / (math.Sqrt(na) * math.Sqrt(nb))
}

// keywordScore is the fraction of query terms present in the chunk text.
func keywordScore(query, text string) float64 {
	terms := strings.Fields(strings.ToLower(query))
	if len(terms) == 0 {
		return 0
	}
	lower := strings.ToLower(text)
	matched := 0
	for _, term := range terms {
		if strings.Contains(lower, term) {
			matched++
		}
	}
	return float64(matched) / float64(len(terms))
}
