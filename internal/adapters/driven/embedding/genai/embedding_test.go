package genai

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestNewEmbeddingService_RequiresKey(t *testing.T) {
	_, err := NewEmbeddingService(context.Background(), Config{})
	assert.Error(t, err)
}

func TestWithDefaults(t *testing.T) {
	cfg := withDefaults(Config{APIKey: "k"})
	assert.Equal(t, DefaultModel, cfg.Model)
	assert.Equal(t, DefaultDimensions, cfg.Dimensions)
	assert.Equal(t, DefaultTaskType, cfg.TaskType)

	cfg = withDefaults(Config{Model: "m", Dimensions: 768, TaskType: " retrieval_document "})
	assert.Equal(t, "m", cfg.Model)
	assert.Equal(t, 768, cfg.Dimensions)
	assert.Equal(t, "RETRIEVAL_DOCUMENT", cfg.TaskType)

	assert.Equal(t, DefaultTaskType, withDefaults(Config{TaskType: "bogus"}).TaskType)
}

func TestEmbedBatch_Empty(t *testing.T) {
	s := &EmbeddingService{}
	out, err := s.EmbedBatch(context.Background(), nil)
	assert.NoError(t, err)
	assert.Nil(t, out)
}
