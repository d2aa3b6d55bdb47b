package ml

import (
	"context"
	"errors"
	"fmt"

	"google.golang.org/genai"
)

const (
	geminiEmbeddingModel = "text-embedding-004"
	geminiEmbeddingDim   = 768
)

// GeminiEmbedder computes text embeddings through the Gemini API.
type GeminiEmbedder struct {
	client *genai.Client
}

// NewGeminiEmbedder creates a Gemini-backed text embedder.
func NewGeminiEmbedder(ctx context.Context, apiKey string) (*GeminiEmbedder, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiEmbedder{client: client}, nil
}

// Dim reports the width of the vectors the model produces.
func (e *GeminiEmbedder) Dim() int {
	return geminiEmbeddingDim
}

// EmbedText computes the embedding for a text query.
func (e *GeminiEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	resp, err := e.client.Models.EmbedContent(ctx, geminiEmbeddingModel, genai.Text(text), nil)
	if err != nil {
		return nil, fmt.Errorf("Gemini API error: %w", err)
	}
	if resp == nil || len(resp.Embeddings) == 0 || len(resp.Embeddings[0].Values) == 0 {
		return nil, errors.New("no embedding returned")
	}
	return resp.Embeddings[0].Values, nil
}
