package config

import (
	"os"
	"path/filepath"
	"testing"
)

func TestLoad_Defaults(t *testing.T) {
	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected default port 8000, got %d", cfg.Server.Port)
	}

	if cfg.Index.ClipDim != 768 {
		t.Errorf("expected default clip dim 768, got %d", cfg.Index.ClipDim)
	}

	if cfg.Index.FaceDim != 512 {
		t.Errorf("expected default face dim 512, got %d", cfg.Index.FaceDim)
	}

	if cfg.Clustering.SimilarityThreshold != 0.6 {
		t.Errorf("expected default similarity threshold 0.6, got %f", cfg.Clustering.SimilarityThreshold)
	}

	if cfg.Database.Driver != "sqlite" {
		t.Errorf("expected default driver sqlite, got %s", cfg.Database.Driver)
	}
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Setenv("PORT", "9000")
	t.Setenv("FACE_SIM_THRESH", "0.75")
	t.Setenv("DATA_DIR", "/tmp/gallery")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 9000 {
		t.Errorf("expected port 9000, got %d", cfg.Server.Port)
	}

	if cfg.Clustering.SimilarityThreshold != 0.75 {
		t.Errorf("expected similarity threshold 0.75, got %f", cfg.Clustering.SimilarityThreshold)
	}

	// Derived paths should follow DATA_DIR.
	if cfg.Storage.PhotosDir != "/tmp/gallery/photos" {
		t.Errorf("expected photos dir under DATA_DIR, got %s", cfg.Storage.PhotosDir)
	}

	if cfg.Index.Dir != "/tmp/gallery/embeddings" {
		t.Errorf("expected embeddings dir under DATA_DIR, got %s", cfg.Index.Dir)
	}
}

func TestLoad_InvalidEnvFallsBack(t *testing.T) {
	t.Setenv("PORT", "not-a-number")
	t.Setenv("FACE_SIM_THRESH", "banana")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 8000 {
		t.Errorf("expected fallback port 8000, got %d", cfg.Server.Port)
	}

	if cfg.Clustering.SimilarityThreshold != 0.6 {
		t.Errorf("expected fallback threshold 0.6, got %f", cfg.Clustering.SimilarityThreshold)
	}
}

func TestLoad_YAMLFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.yaml")
	content := []byte("server:\n  port: 8123\nclustering:\n  similarity_threshold: 0.55\n")
	if err := os.WriteFile(path, content, 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("GALLERY_CONFIG", path)

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 8123 {
		t.Errorf("expected port 8123 from YAML, got %d", cfg.Server.Port)
	}

	if cfg.Clustering.SimilarityThreshold != 0.55 {
		t.Errorf("expected threshold 0.55 from YAML, got %f", cfg.Clustering.SimilarityThreshold)
	}
}

func TestLoad_EnvBeatsYAML(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "gallery.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 8123\n"), 0600); err != nil {
		t.Fatalf("writing config file: %v", err)
	}

	t.Setenv("GALLERY_CONFIG", path)
	t.Setenv("PORT", "9999")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("Load() returned error: %v", err)
	}

	if cfg.Server.Port != 9999 {
		t.Errorf("expected env override 9999, got %d", cfg.Server.Port)
	}
}

func TestLoad_MissingYAMLFile(t *testing.T) {
	t.Setenv("GALLERY_CONFIG", "/nonexistent/gallery.yaml")

	if _, err := Load(); err == nil {
		t.Error("expected error for missing config file")
	}
}
