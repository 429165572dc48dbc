// Package ai provides factory functions for creating embedding service adapters.
package ai

import (
	"context"
	"fmt"
	"time"

	genaiembed "github.com/custodia-labs/sercha-hub/internal/adapters/driven/embedding/genai"
	hashembed "github.com/custodia-labs/sercha-hub/internal/adapters/driven/embedding/hash"
	ollamaembed "github.com/custodia-labs/sercha-hub/internal/adapters/driven/embedding/ollama"
	openaiembed "github.com/custodia-labs/sercha-hub/internal/adapters/driven/embedding/openai"
	"github.com/custodia-labs/sercha-hub/internal/core/domain"
	"github.com/custodia-labs/sercha-hub/internal/core/ports/driven"
	"github.com/custodia-labs/sercha-hub/internal/logger"
)

// pingTimeout is the maximum time to wait for service connectivity validation.
const pingTimeout = 5 * time.Second

// Embeddings holds the configured provider and the deterministic fallback.
// Provider is the fallback itself when no real provider is configured.
type Embeddings struct {
	Provider driven.EmbeddingService
	Fallback driven.EmbeddingService

	// Warnings lists non-fatal issues that caused a fallback to hashing.
	Warnings []string
}

// Close releases both services.
func (e *Embeddings) Close() {
	if e.Provider != nil {
		_ = e.Provider.Close()
	}
	if e.Fallback != nil && e.Fallback != e.Provider {
		_ = e.Fallback.Close()
	}
}

// InitEmbeddings builds the services for settings. A configured provider
// that cannot be created or reached is replaced by the fallback with a
// warning, so enrichment keeps working offline.
func InitEmbeddings(ctx context.Context, settings domain.EmbeddingSettings) *Embeddings {
	fallback := hashembed.NewEmbeddingService(settings.Dimensions)
	result := &Embeddings{Provider: fallback, Fallback: fallback}
	if !settings.IsConfigured() {
		return result
	}

	svc, err := CreateAndValidateEmbeddingService(ctx, settings)
	if err != nil {
		logger.Warn("embedding provider %s unavailable, using deterministic embeddings: %v", settings.Provider, err)
		result.Warnings = append(result.Warnings, err.Error())
		return result
	}
	result.Provider = svc
	return result
}

// CreateAndValidateEmbeddingService creates an embedding service and validates connectivity.
func CreateAndValidateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	svc, err := CreateEmbeddingService(ctx, settings)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrProvider, err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, pingTimeout)
	defer cancel()
	if err := svc.Ping(pingCtx); err != nil {
		_ = svc.Close()
		return nil, fmt.Errorf("%w: service unreachable (%w)", domain.ErrProvider, err)
	}
	return svc, nil
}

// CreateEmbeddingService creates the embedding service named by settings.
// The hash provider is returned when nothing else is configured.
func CreateEmbeddingService(ctx context.Context, settings domain.EmbeddingSettings) (driven.EmbeddingService, error) {
	if !settings.IsConfigured() {
		if settings.Provider.RequiresAPIKey() {
			return nil, fmt.Errorf("%s requires an API key", settings.Provider)
		}
		if settings.Provider != "" && !settings.Provider.IsValid() {
			return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
		}
		return hashembed.NewEmbeddingService(settings.Dimensions), nil
	}

	model := settings.Model
	if model == "" {
		model = domain.DefaultEmbeddingModels()[settings.Provider]
	}

	switch settings.Provider {
	case domain.AIProviderOllama:
		dimensions := domain.EmbeddingDimensions()[model]
		if dimensions == 0 {
			dimensions = ollamaembed.DefaultDimensions
		}
		return ollamaembed.NewEmbeddingService(ollamaembed.Config{
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: dimensions,
		}), nil

	case domain.AIProviderOpenAI:
		return openaiembed.NewEmbeddingService(openaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})

	case domain.AIProviderGemini:
		return genaiembed.NewEmbeddingService(ctx, genaiembed.Config{
			APIKey:     settings.APIKey,
			BaseURL:    settings.BaseURL,
			Model:      model,
			Dimensions: settings.Dimensions,
		})

	default:
		return nil, fmt.Errorf("unsupported embedding provider: %s", settings.Provider)
	}
}
