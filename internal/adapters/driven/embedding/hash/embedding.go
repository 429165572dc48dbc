// Package hash provides a deterministic, offline embedding service.
//
// Vectors are derived from SHA-256 digests of the input text, so identical
// text always yields an identical vector. They carry no semantic meaning
// and exist so pipelines run and test without a network provider.
package hash

import (
	"context"
	"crypto/sha256"
	"encoding/binary"

	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// DefaultDimensions matches the hub's stored vector width.
const DefaultDimensions = 1536

// ModelName is reported for vectors produced by this service.
const ModelName = "sha256-deterministic"

// EmbeddingService hashes text into fixed-width vectors.
type EmbeddingService struct {
	dimensions int
}

// NewEmbeddingService returns a service producing vectors of the given
// width. Non-positive widths use DefaultDimensions.
func NewEmbeddingService(dimensions int) *EmbeddingService {
	if dimensions <= 0 {
		dimensions = DefaultDimensions
	}
	return &EmbeddingService{dimensions: dimensions}
}

// Embed returns the vector for text. Components are digest bytes scaled
// into [0, 1]. The first block is sha256(text); later blocks hash the text
// with a big-endian block counter appended.
func (s *EmbeddingService) Embed(_ context.Context, text string) ([]float32, error) {
	return Vector(text, s.dimensions), nil
}

// EmbedBatch embeds each text in order.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		out[i] = Vector(t, s.dimensions)
	}
	return out, nil
}

// Dimensions returns the vector width.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns ModelName.
func (s *EmbeddingService) ModelName() string { return ModelName }

// Ping always succeeds.
func (s *EmbeddingService) Ping(context.Context) error { return nil }

// Close is a no-op.
func (s *EmbeddingService) Close() error { return nil }

// Vector computes the deterministic embedding of text with dims components.
func Vector(text string, dims int) []float32 {
	out := make([]float32, 0, dims)
	input := []byte(text)
	var counter [4]byte
	for block := uint32(0); len(out) < dims; block++ {
		var digest [sha256.Size]byte
		if block == 0 {
			digest = sha256.Sum256(input)
		} else {
			binary.BigEndian.PutUint32(counter[:], block)
			h := sha256.New()
			h.Write(input)
			h.Write(counter[:])
			copy(digest[:], h.Sum(nil))
		}
		for _, b := range digest {
			if len(out) == dims {
				break
			}
			out = append(out, float32(b)/255)
		}
	}
	return out
}
