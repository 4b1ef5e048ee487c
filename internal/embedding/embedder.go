// Package embedding provides text embedding providers and caching.
package embedding

import (
	"context"
	"errors"
	"fmt"
)

// ErrModelUnavailable indicates the embedding provider could not be
// initialized. This is fatal at startup: the engine does not run without a
// working embedder, and there is no per-call recovery.
var ErrModelUnavailable = errors.New("embedding model unavailable")

// Embedder produces fixed-dimension vector embeddings for text. All vectors
// are L2-normalized before being returned so that inner product equals
// cosine similarity. Embeddings are deterministic for a given model
// identifier and input, but vectors from different models or model versions
// are not comparable: swapping the provider requires rebuilding the index.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
	Dimensions() int
	ModelName() string
	Close() error
}

// Provider identifies an embedding provider implementation.
type Provider string

const (
	// ProviderMock is a deterministic hash-based embedder for tests and demos.
	ProviderMock Provider = "mock"
	// ProviderOpenAI uses the OpenAI embeddings API.
	ProviderOpenAI Provider = "openai"
	// ProviderONNX runs a local BERT-style model through ONNX Runtime.
	// Requires building with CGO_ENABLED=1 and the onnxruntime library.
	ProviderONNX Provider = "onnx"
)

// Options configures embedder construction.
type Options struct {
	Provider string
	// Model is the model name (openai) or model file path (onnx).
	Model string
	// APIKey overrides the OPENAI_API_KEY environment variable (openai only).
	APIKey     string
	Dimensions int
	MaxTokens  int
	CacheSize  int
}

// NewEmbedder creates an embedder for the configured provider. Construction
// failures wrap ErrModelUnavailable so the composition root can treat them
// as fatal.
func NewEmbedder(opts Options) (Embedder, error) {
	switch Provider(opts.Provider) {
	case ProviderMock, "":
		return NewMockEmbedder(opts.Dimensions), nil
	case ProviderOpenAI:
		e, err := NewOpenAIEmbedder(opts.APIKey, opts.Model, opts.Dimensions, opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return e, nil
	case ProviderONNX:
		e, err := NewONNXEmbedder(opts.Model, opts.Dimensions, opts.MaxTokens, opts.CacheSize)
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrModelUnavailable, err)
		}
		return e, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: mock, openai, onnx)", opts.Provider)
	}
}
