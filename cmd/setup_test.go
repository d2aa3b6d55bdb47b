package cmd

import (
	"context"
	"strings"
	"testing"

	"github.com/smartgallery/backend/internal/config"
)

func visionConfig(provider string, clipDim int) *config.Config {
	cfg := &config.Config{}
	cfg.ML.ServiceURL = "http://localhost:8001"
	cfg.ML.Provider = provider
	cfg.ML.OpenAIToken = "test-token"
	cfg.Index.ClipDim = clipDim
	return cfg
}

func TestBuildVisionService(t *testing.T) {
	vision, err := buildVision(context.Background(), visionConfig("service", 768))
	if err != nil {
		t.Fatalf("buildVision returned error: %v", err)
	}
	if vision == nil {
		t.Fatal("expected a vision client")
	}
}

func TestBuildVisionUnknownProvider(t *testing.T) {
	if _, err := buildVision(context.Background(), visionConfig("acme", 768)); err == nil {
		t.Fatal("expected error for unknown provider")
	}
}

func TestBuildVisionDimensionMismatch(t *testing.T) {
	_, err := buildVision(context.Background(), visionConfig("openai", 768))
	if err == nil {
		t.Fatal("expected error when provider dimension differs from the CLIP index")
	}
	if !strings.Contains(err.Error(), "768") || !strings.Contains(err.Error(), "1536") {
		t.Errorf("error should name both dimensions, got: %v", err)
	}

	if _, err := buildVision(context.Background(), visionConfig("openai", 1536)); err != nil {
		t.Errorf("expected matching dimensions to pass, got: %v", err)
	}
}

func TestCheckTextDim(t *testing.T) {
	if err := checkTextDim("openai", 768, 768); err != nil {
		t.Errorf("matching dimensions should pass, got: %v", err)
	}
	if err := checkTextDim("openai", 1536, 768); err == nil {
		t.Error("expected error for mismatched dimensions")
	}
}
