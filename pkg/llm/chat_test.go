package llm_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"docchat/pkg/llm"
)

func TestNewWithConfig(t *testing.T) {
	config := llm.ChatConfig{
		Model:           "testmodel",
		Temperature:     0.5,
		MaxTokens:       1000,
		SystemTemplate:  "Test system template",
		ContextTemplate: "Context: %s\nQuestion: %s",
		BaseURL:         "http://localhost:1234/v1",
	}
	engine, err := llm.NewWithConfig(config, nil)
	assert.NoError(t, err)
	assert.NotNil(t, engine)
}

func TestNewWithConfigRejectsBadTemperature(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 3.5}, nil)
	assert.Error(t, err)

	_, err = llm.NewWithConfig(llm.ChatConfig{Temperature: -0.1}, nil)
	assert.Error(t, err)
}

func TestNewWithConfigRejectsNegativeMaxTokens(t *testing.T) {
	_, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 0.7, MaxTokens: -1}, nil)
	assert.Error(t, err)
}

func TestChatWithoutKey(t *testing.T) {
	engine, err := llm.NewWithConfig(llm.ChatConfig{Temperature: 0.7}, nil)
	require.NoError(t, err)

	_, err = engine.Chat(context.Background(), "", "what is this?", nil)
	assert.ErrorIs(t, err, llm.ErrMissingKey)
}
