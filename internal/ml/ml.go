// Package ml wraps the external model-inference services. All vision
// work (CLIP embeddings, face detection, object detection) runs on a
// separate inference server reached over HTTP; text embeddings can
// alternatively come from a hosted provider.
package ml

import (
	"context"
)

// DetectedFace is a single face found in an image.
type DetectedFace struct {
	Embedding  []float32 `json:"embedding"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
	Confidence float64   `json:"confidence"`
	Age        int       `json:"age"`
	Gender     string    `json:"gender"`
}

// DetectedObject is a single object-detection result.
type DetectedObject struct {
	ClassName  string    `json:"class_name"`
	Confidence float64   `json:"confidence"`
	BBox       []float64 `json:"bbox"` // [x1, y1, x2, y2]
}

// TextEmbedder produces an embedding for a text query. Implemented by
// the inference client and by the hosted providers.
type TextEmbedder interface {
	EmbedText(ctx context.Context, text string) ([]float32, error)
}

// Vision is the full analysis surface the ingestion pipeline needs.
type Vision interface {
	TextEmbedder
	EmbedImage(ctx context.Context, imageData []byte) ([]float32, error)
	DetectFaces(ctx context.Context, imageData []byte) ([]DetectedFace, error)
	DetectObjects(ctx context.Context, imageData []byte) ([]DetectedObject, error)
}
