package embedding

import (
	"context"
	"fmt"
	"os"

	openai "github.com/sashabaranov/go-openai"

	"github.com/hyperjump/rinsho/pkg/utils"
)

// openaiMaxBatch caps the number of inputs sent in one CreateEmbeddings call.
const openaiMaxBatch = 256

// OpenAIEmbedder produces embeddings through the OpenAI embeddings API.
// Responses are L2-normalized before being returned and cached by input text.
type OpenAIEmbedder struct {
	client     *openai.Client
	model      openai.EmbeddingModel
	dimensions int
	cache      *Cache
}

// NewOpenAIEmbedder creates an embedder using apiKey (falling back to the
// OPENAI_API_KEY environment variable). modelName defaults to
// text-embedding-3-small; dimensions must match the model's output size.
func NewOpenAIEmbedder(apiKey, modelName string, dimensions, cacheSize int) (*OpenAIEmbedder, error) {
	if apiKey == "" {
		apiKey = os.Getenv("OPENAI_API_KEY")
	}
	if apiKey == "" {
		return nil, fmt.Errorf("no API key: set OPENAI_API_KEY or embedding.api_key")
	}
	return NewOpenAIEmbedderWithClient(openai.NewClient(apiKey), modelName, dimensions, cacheSize), nil
}

// NewOpenAIEmbedderWithClient creates an embedder over an existing client.
// Intended for tests and callers that need custom client configuration.
func NewOpenAIEmbedderWithClient(client *openai.Client, modelName string, dimensions, cacheSize int) *OpenAIEmbedder {
	model := openai.SmallEmbedding3
	if modelName != "" {
		model = openai.EmbeddingModel(modelName)
	}
	return &OpenAIEmbedder{
		client:     client,
		model:      model,
		dimensions: dimensions,
		cache:      NewCache(cacheSize),
	}
}

// Embed returns the embedding for a single text.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	out, err := e.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

// EmbedBatch embeds texts, serving cached entries and batching the rest
// through the API. Results are positionally aligned with texts.
func (e *OpenAIEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missIdx []int
	var missTexts []string
	for i, text := range texts {
		if cached, ok := e.cache.Get(text); ok {
			out[i] = cached
			continue
		}
		missIdx = append(missIdx, i)
		missTexts = append(missTexts, text)
	}

	for start := 0; start < len(missTexts); start += openaiMaxBatch {
		end := start + openaiMaxBatch
		if end > len(missTexts) {
			end = len(missTexts)
		}
		resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
			Input: missTexts[start:end],
			Model: e.model,
		})
		if err != nil {
			return nil, fmt.Errorf("openai embedding failed: %w", err)
		}
		if len(resp.Data) != end-start {
			return nil, fmt.Errorf("openai returned %d embeddings for %d inputs", len(resp.Data), end-start)
		}
		for j, item := range resp.Data {
			emb := make([]float32, len(item.Embedding))
			copy(emb, item.Embedding)
			if e.dimensions > 0 && len(emb) != e.dimensions {
				return nil, fmt.Errorf("model %s returned dimension %d, expected %d", e.model, len(emb), e.dimensions)
			}
			utils.NormalizeL2(emb)
			idx := missIdx[start+j]
			out[idx] = emb
			e.cache.Set(texts[idx], emb)
		}
	}
	return out, nil
}

// Dimensions returns the configured embedding dimension.
func (e *OpenAIEmbedder) Dimensions() int {
	return e.dimensions
}

// ModelName returns the OpenAI model identifier.
func (e *OpenAIEmbedder) ModelName() string {
	return string(e.model)
}

// Close is a no-op; the HTTP client holds no resources to release.
func (e *OpenAIEmbedder) Close() error {
	return nil
}
