package ml

import (
	"context"
	"errors"
	"fmt"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
)

const (
	openAIEmbeddingModel = openai.EmbeddingModelTextEmbedding3Small
	openAIEmbeddingDim   = 1536
)

// OpenAIEmbedder computes text embeddings through the OpenAI API.
// Useful when no local inference server with a text tower is running.
// Its vectors live in the model's own space at its own width, so the
// semantic index has to be built at the matching dimension.
type OpenAIEmbedder struct {
	client *openai.Client
}

// NewOpenAIEmbedder creates an OpenAI-backed text embedder.
func NewOpenAIEmbedder(apiKey string) *OpenAIEmbedder {
	client := openai.NewClient(option.WithAPIKey(apiKey))
	return &OpenAIEmbedder{client: &client}
}

// Dim reports the width of the vectors the model produces.
func (e *OpenAIEmbedder) Dim() int {
	return openAIEmbeddingDim
}

// EmbedText computes the embedding for a text query.
func (e *OpenAIEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openAIEmbeddingModel,
		Input: openai.EmbeddingNewParamsInputUnion{
			OfString: openai.String(text),
		},
	})
	if err != nil {
		return nil, fmt.Errorf("OpenAI API error: %w", err)
	}
	if len(resp.Data) == 0 {
		return nil, errors.New("no embedding returned")
	}

	raw := resp.Data[0].Embedding
	out := make([]float32, len(raw))
	for i, v := range raw {
		out[i] = float32(v)
	}
	return out, nil
}
