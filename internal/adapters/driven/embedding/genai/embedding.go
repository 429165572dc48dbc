// Package genai provides an embedding service adapter using the Gemini API.
package genai

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"google.golang.org/genai"

	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
)

var _ driven.EmbeddingService = (*EmbeddingService)(nil)

// Provider names this adapter in provider errors.
const Provider = "genai"

// Defaults.
const (
	DefaultModel      = "gemini-embedding-001"
	DefaultDimensions = 1536
	DefaultTaskType   = "SEMANTIC_SIMILARITY"
)

var taskTypes = map[string]bool{
	"SEMANTIC_SIMILARITY": true,
	"CLASSIFICATION":      true,
	"CLUSTERING":          true,
	"RETRIEVAL_DOCUMENT":  true,
	"RETRIEVAL_QUERY":     true,
	"QUESTION_ANSWERING":  true,
	"FACT_VERIFICATION":   true,
}

// Config holds configuration for the Gemini embedding service.
type Config struct {
	// APIKey is the Gemini API key (required).
	APIKey string

	// Model defaults to gemini-embedding-001.
	Model string

	// Dimensions requests a truncated output vector (default 1536).
	Dimensions int

	// TaskType tunes the embedding; unknown values use SEMANTIC_SIMILARITY.
	TaskType string

	// BaseURL overrides the API endpoint.
	BaseURL string
}

// EmbeddingService generates embeddings with Models.EmbedContent.
type EmbeddingService struct {
	client     *genai.Client
	model      string
	dimensions int
	taskType   string
}

// NewEmbeddingService creates a Gemini API client.
func NewEmbeddingService(ctx context.Context, cfg Config) (*EmbeddingService, error) {
	if cfg.APIKey == "" {
		return nil, errors.New("genai: API key is required")
	}
	cfg = withDefaults(cfg)

	clientCfg := &genai.ClientConfig{
		APIKey:  cfg.APIKey,
		Backend: genai.BackendGeminiAPI,
	}
	if cfg.BaseURL != "" {
		clientCfg.HTTPOptions = genai.HTTPOptions{BaseURL: cfg.BaseURL}
	}
	client, err := genai.NewClient(ctx, clientCfg)
	if err != nil {
		return nil, fmt.Errorf("genai: create client: %w", err)
	}

	return &EmbeddingService{
		client:     client,
		model:      cfg.Model,
		dimensions: cfg.Dimensions,
		taskType:   cfg.TaskType,
	}, nil
}

func withDefaults(cfg Config) Config {
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.Dimensions <= 0 {
		cfg.Dimensions = DefaultDimensions
	}
	cfg.TaskType = strings.ToUpper(strings.TrimSpace(cfg.TaskType))
	if !taskTypes[cfg.TaskType] {
		cfg.TaskType = DefaultTaskType
	}
	return cfg
}

// Embed generates an embedding for a single text.
func (s *EmbeddingService) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := s.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts in one request.
func (s *EmbeddingService) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}
	contents := make([]*genai.Content, len(texts))
	for i, text := range texts {
		contents[i] = genai.NewContentFromText(text, genai.RoleUser)
	}

	dims := int32(s.dimensions)
	result, err := s.client.Models.EmbedContent(ctx, s.model, contents, &genai.EmbedContentConfig{
		TaskType:             s.taskType,
		OutputDimensionality: &dims,
	})
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return nil, ctxErr
		}
		return nil, &domain.ProviderError{Provider: Provider, Err: err}
	}
	if len(result.Embeddings) != len(texts) {
		return nil, &domain.ProviderError{
			Provider: Provider,
			Err:      fmt.Errorf("got %d embeddings for %d inputs", len(result.Embeddings), len(texts)),
		}
	}

	out := make([][]float32, len(texts))
	for i, emb := range result.Embeddings {
		if emb == nil || len(emb.Values) == 0 {
			return nil, &domain.ProviderError{Provider: Provider, Err: fmt.Errorf("empty embedding for input %d", i)}
		}
		out[i] = emb.Values
	}
	return out, nil
}

// Dimensions returns the requested output width.
func (s *EmbeddingService) Dimensions() int { return s.dimensions }

// ModelName returns the model in use.
func (s *EmbeddingService) ModelName() string { return s.model }

// Ping embeds a short probe string.
func (s *EmbeddingService) Ping(ctx context.Context) error {
	_, err := s.Embed(ctx, "ping")
	return err
}

// Close is a no-op; the client holds no resources needing release.
func (s *EmbeddingService) Close() error { return nil }
