package vector

import (
	"context"
	"fmt"

	openai "github.com/sashabaranov/go-openai"

	"devchat/internal/errors"
)

// OpenAIEmbedder calls an OpenAI-compatible embeddings endpoint (OpenAI,
// Ollama, LocalAI and friends all speak this shape). The endpoint must
// include the API prefix, e.g. "http://localhost:11434/v1".
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
	dims   int
}

// NewOpenAIEmbedder creates a remote embedder. apiKey may be empty for
// local servers that skip auth.
func NewOpenAIEmbedder(endpoint, model, apiKey string, dims int) *OpenAIEmbedder {
	cfg := openai.DefaultConfig(apiKey)
	if endpoint != "" {
		cfg.BaseURL = endpoint
	}
	return &OpenAIEmbedder{
		client: openai.NewClientWithConfig(cfg),
		model:  model,
		dims:   dims,
	}
}

// Embed implements Embedder.
func (o *OpenAIEmbedder) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	resp, err := o.client.CreateEmbeddings(ctx, openai.EmbeddingRequestStrings{
		Input: texts,
		Model: openai.EmbeddingModel(o.model),
	})
	if err != nil {
		return nil, errors.Wrap(errors.EmbeddingUnavailable, "embeddings request failed", err)
	}
	if len(resp.Data) != len(texts) {
		return nil, errors.New(errors.EmbeddingUnavailable,
			fmt.Sprintf("embeddings response has %d items, want %d", len(resp.Data), len(texts)))
	}

	out := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(texts) {
			return nil, errors.New(errors.EmbeddingUnavailable,
				fmt.Sprintf("embeddings response index %d out of range", d.Index))
		}
		out[d.Index] = d.Embedding
	}
	return out, nil
}

// Dimensions implements Embedder.
func (o *OpenAIEmbedder) Dimensions() int {
	return o.dims
}

// Name implements Embedder.
func (o *OpenAIEmbedder) Name() string {
	return "openai:" + o.model
}
