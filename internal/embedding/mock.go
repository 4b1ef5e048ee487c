package embedding

import (
	"context"
	"math"

	"github.com/hyperjump/rinsho/pkg/utils"
)

const defaultMockDimensions = 384

// MockEmbedder is a deterministic embedder for tests and demo deployments.
// It derives a fixed-dimension unit-norm vector from the text hash, so the
// same text always gets the same embedding.
type MockEmbedder struct {
	dimensions int
}

// NewMockEmbedder returns a mock embedder of the given dimensions
// (defaulting to 384 when non-positive, matching all-MiniLM-L6-v2).
func NewMockEmbedder(dimensions int) *MockEmbedder {
	if dimensions <= 0 {
		dimensions = defaultMockDimensions
	}
	return &MockEmbedder{dimensions: dimensions}
}

// Embed returns a deterministic unit-norm embedding derived from the text hash.
func (e *MockEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	h := HashString(text)
	emb := make([]float32, e.dimensions)
	for i := range emb {
		emb[i] = float32(math.Sin(float64(h*(i+1)))*0.1 + 0.01)
	}
	utils.NormalizeL2(emb)
	return emb, nil
}

// EmbedBatch embeds each text independently.
func (e *MockEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, text := range texts {
		emb, err := e.Embed(ctx, text)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

// Dimensions returns the embedding dimension.
func (e *MockEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName identifies the mock provider.
func (e *MockEmbedder) ModelName() string {
	return "mock"
}

// Close is a no-op.
func (e *MockEmbedder) Close() error {
	return nil
}
