// Package embed wires the embedding provider and shields the vector
// store from NaN/Inf dimensions some backends emit.
package embed

import (
	"context"
	"fmt"
	"time"

	"github.com/cloudwego/eino-ext/components/embedding/ollama"
	"github.com/cloudwego/eino-ext/components/embedding/openai"
	"github.com/cloudwego/eino/components/embedding"

	"github.com/Ethan225300/mbspro/vars"
)

// NewEmbedder builds the configured embedding provider, wrapped in the
// NaN/Inf cleaner.
func NewEmbedder(ctx context.Context) (embedding.Embedder, error) {
	var inner embedding.Embedder
	var err error

	switch vars.EmbeddingProvider {
	case vars.ProviderOllama:
		model := vars.EmbeddingModel
		if model == "" {
			model = vars.DefaultEmbedModelOllama
		}
		inner, err = ollama.NewEmbedder(ctx, &ollama.EmbeddingConfig{
			BaseURL: vars.OllamaPath,
			Model:   model,
			Timeout: 60 * time.Second,
		})
	case vars.ProviderOpenAI:
		if vars.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("embedding provider openai requires OPENAI_API_KEY")
		}
		model := vars.EmbeddingModel
		if model == "" {
			model = vars.DefaultEmbedModelOpenAI
		}
		inner, err = openai.NewEmbedder(ctx, &openai.EmbeddingConfig{
			APIKey:  vars.OpenAIAPIKey,
			BaseURL: vars.OpenAIBaseURL,
			Model:   model,
		})
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", vars.EmbeddingProvider)
	}
	if err != nil {
		return nil, err
	}
	return NewCleanEmbedder(inner), nil
}
