package hash

import (
	"context"
	"crypto/sha256"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEmbed_Deterministic(t *testing.T) {
	s := NewEmbeddingService(0)
	ctx := context.Background()

	a, err := s.Embed(ctx, "Hello world")
	require.NoError(t, err)
	b, err := s.Embed(ctx, "Hello world")
	require.NoError(t, err)

	assert.Len(t, a, DefaultDimensions)
	assert.Equal(t, a, b)
}

func TestEmbed_DifferentTextDiffers(t *testing.T) {
	assert.NotEqual(t, Vector("a", 64), Vector("b", 64))
}

func TestVector_FirstBlockIsDigest(t *testing.T) {
	digest := sha256.Sum256([]byte("Hi"))
	v := Vector("Hi", 40)
	require.Len(t, v, 40)
	for i, b := range digest {
		assert.InDelta(t, float32(b)/255, v[i], 1e-9)
	}
	// The second block is not a repeat of the first.
	assert.NotEqual(t, v[:8], v[32:40])
}

func TestVector_Range(t *testing.T) {
	for _, f := range Vector("range", 300) {
		assert.GreaterOrEqual(t, f, float32(0))
		assert.LessOrEqual(t, f, float32(1))
	}
}

func TestVector_PrefixStable(t *testing.T) {
	assert.Equal(t, Vector("x", 100), Vector("x", 200)[:100])
}

func TestEmbedBatch(t *testing.T) {
	s := NewEmbeddingService(16)
	out, err := s.EmbedBatch(context.Background(), []string{"a", "b"})
	require.NoError(t, err)
	require.Len(t, out, 2)
	assert.Equal(t, Vector("a", 16), out[0])
	assert.Equal(t, Vector("b", 16), out[1])
	assert.Equal(t, 16, s.Dimensions())
	assert.Equal(t, ModelName, s.ModelName())
}

func TestEmbedBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewEmbeddingService(8).EmbedBatch(ctx, []string{"a"})
	assert.ErrorIs(t, err, context.Canceled)
}
