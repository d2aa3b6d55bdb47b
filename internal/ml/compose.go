package ml

import "context"

// hostedVision keeps the inference sidecar for image work but routes
// text embeddings to a hosted provider. Only valid when the provider
// produces vectors in the same space as the image embeddings.
type hostedVision struct {
	Vision
	text TextEmbedder
}

// WithTextEmbedder returns a Vision that delegates EmbedText to the
// given provider and everything else to base.
func WithTextEmbedder(base Vision, text TextEmbedder) Vision {
	return &hostedVision{Vision: base, text: text}
}

func (h *hostedVision) EmbedText(ctx context.Context, text string) ([]float32, error) {
	return h.text.EmbedText(ctx, text)
}
