package embeddings

import (
	"context"
	"fmt"
)

// Embedder generates vector embeddings for text
type Embedder interface {
	// Embed generates an embedding vector for a single text
	Embed(ctx context.Context, text string) ([]float32, error)

	// EmbedBatch generates embeddings for multiple texts. The result is in
	// input order and equivalent to calling Embed on each text.
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)

	// Dimensions returns the size of the embedding vectors
	Dimensions() int

	// Name returns the name/model of this embedder
	Name() string
}

// Provider names accepted by NewEmbedder
const (
	ProviderOllama = "ollama"
	ProviderOpenAI = "openai"
	ProviderHash   = "hash"
)

// Config holds configuration for creating an embedder
type Config struct {
	Provider string

	// Ollama config
	OllamaURL         string
	OllamaModel       string
	OllamaConcurrency int

	// OpenAI config
	OpenAIKey     string
	OpenAIModel   string
	OpenAIBaseURL string
	OpenAIRPS     float64

	// Hash config
	HashDimensions int
}

// NewEmbedder creates an embedder based on the config
func NewEmbedder(cfg Config) (Embedder, error) {
	switch cfg.Provider {
	case ProviderOllama:
		e, err := NewOllamaEmbedder(cfg.OllamaURL, cfg.OllamaModel)
		if err != nil {
			return nil, err
		}
		if cfg.OllamaConcurrency > 0 {
			e.concurrency = cfg.OllamaConcurrency
		}
		return e, nil
	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(cfg.OpenAIKey, cfg.OpenAIModel)
		if err != nil {
			return nil, err
		}
		if cfg.OpenAIBaseURL != "" {
			e.baseURL = cfg.OpenAIBaseURL
		}
		if cfg.OpenAIRPS > 0 {
			e.SetRequestsPerSecond(cfg.OpenAIRPS)
		}
		return e, nil
	case ProviderHash:
		return NewHashEmbedder(cfg.HashDimensions), nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}
