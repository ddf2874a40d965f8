package processor_test

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/internal/models"
	"docchat/pkg/processor"
)

func TestProcessor_Process(t *testing.T) {
	config := processor.ProcessorConfig{
		ChunkSize:      50,
		ChunkOverlap:   10,
		MinChunkLength: 20,
	}
	p := processor.NewWithConfig(config)

	documents := []models.Document{
		{
			ID:   "doc1",
			Name: "test.txt",
			Text: "This is a test document. It contains several sentences to demonstrate text processing.",
		},
	}

	chunks, err := p.Process(documents)

	assert.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.Contains(t, chunks[0].Text, "test document")
	assert.Equal(t, "doc1", chunks[0].DocumentID)
	assert.Equal(t, "test.txt", chunks[0].DocumentName)
	assert.Equal(t, "doc1_0", chunks[0].ID)
	assert.Equal(t, 0, chunks[0].Index)
}

func TestProcessor_ChunkIndexes(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      60,
		ChunkOverlap:   10,
		MinChunkLength: 20,
	})

	// Enough sentences to force multiple chunks at the small chunk size.
	text := strings.Repeat("This sentence fills the chunk up with words. ", 10)
	chunks, err := p.Process([]models.Document{{ID: "doc2", Name: "long.md", Text: text}})

	require.NoError(t, err)
	require.Greater(t, len(chunks), 1)

	for i, chunk := range chunks {
		assert.Equal(t, i, chunk.Index)
		assert.Equal(t, "doc2", chunk.DocumentID)
		assert.LessOrEqual(t, len(chunk.Text), 60+10)
	}
}

func TestProcessor_ShortDocumentProducesNoChunks(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:      1000,
		ChunkOverlap:   200,
		MinChunkLength: 100,
	})

	chunks, err := p.Process([]models.Document{{ID: "tiny", Name: "tiny.txt", Text: "too short"}})

	assert.NoError(t, err)
	assert.Empty(t, chunks)
}

func TestProcessor_RemoveStopwords(t *testing.T) {
	p := processor.NewWithConfig(processor.ProcessorConfig{
		ChunkSize:       200,
		ChunkOverlap:    10,
		MinChunkLength:  5,
		RemoveStopwords: true,
		CustomStopwords: []string{"filler"},
	})

	chunks, err := p.Process([]models.Document{{
		ID:   "doc3",
		Name: "stop.txt",
		Text: "The quick fox jumped over filler words in the text.",
	}})

	require.NoError(t, err)
	require.NotEmpty(t, chunks)
	assert.NotContains(t, chunks[0].Text, "filler")
	assert.Contains(t, chunks[0].Text, "quick fox")
}
