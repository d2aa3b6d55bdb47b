package cmd

import (
	"context"
	"fmt"

	"github.com/smartgallery/backend/internal/cluster"
	"github.com/smartgallery/backend/internal/config"
	"github.com/smartgallery/backend/internal/gallery"
	"github.com/smartgallery/backend/internal/ml"
	"github.com/smartgallery/backend/internal/store"
	"github.com/smartgallery/backend/internal/store/memory"
	"github.com/smartgallery/backend/internal/store/postgres"
	"github.com/smartgallery/backend/internal/store/sqlite"
	"github.com/smartgallery/backend/internal/vector"
)

// openStore picks the relational backend from the configuration.
func openStore(cfg *config.Config) (store.Store, error) {
	switch cfg.Database.Driver {
	case "sqlite", "":
		return sqlite.Open(cfg.Database.URL)
	case "postgres":
		return postgres.Open(cfg.Database.URL, cfg.Database.MaxOpenConns, cfg.Database.MaxIdleConns)
	case "memory":
		return memory.New(), nil
	default:
		return nil, fmt.Errorf("unknown database driver %q", cfg.Database.Driver)
	}
}

// checkTextDim rejects a text embedding provider whose vectors do not
// fit the CLIP index. Search compares text queries against image
// embeddings, so the widths have to match.
func checkTextDim(provider string, dim, clipDim int) error {
	if dim != clipDim {
		return fmt.Errorf("%s text embeddings are %d-dimensional but the CLIP index expects %d", provider, dim, clipDim)
	}
	return nil
}

// buildVision wires the inference client plus the configured text
// embedding provider.
func buildVision(ctx context.Context, cfg *config.Config) (ml.Vision, error) {
	client := ml.NewClient(cfg.ML.ServiceURL)

	switch cfg.ML.Provider {
	case "service", "":
		return client, nil
	case "openai":
		if cfg.ML.OpenAIToken == "" {
			return nil, fmt.Errorf("OPENAI_TOKEN is required for the openai provider")
		}
		embedder := ml.NewOpenAIEmbedder(cfg.ML.OpenAIToken)
		if err := checkTextDim("openai", embedder.Dim(), cfg.Index.ClipDim); err != nil {
			return nil, err
		}
		return ml.WithTextEmbedder(client, embedder), nil
	case "gemini":
		if cfg.ML.GeminiAPIKey == "" {
			return nil, fmt.Errorf("GEMINI_API_KEY is required for the gemini provider")
		}
		embedder, err := ml.NewGeminiEmbedder(ctx, cfg.ML.GeminiAPIKey)
		if err != nil {
			return nil, fmt.Errorf("creating gemini embedder: %w", err)
		}
		if err := checkTextDim("gemini", embedder.Dim(), cfg.Index.ClipDim); err != nil {
			return nil, err
		}
		return ml.WithTextEmbedder(client, embedder), nil
	default:
		return nil, fmt.Errorf("unknown ML provider %q", cfg.ML.Provider)
	}
}

// buildService assembles the full gallery stack. The caller closes the
// returned store and persists the registry on shutdown.
func buildService(ctx context.Context, cfg *config.Config) (*gallery.Service, store.Store, *vector.Registry, error) {
	if err := cfg.EnsureDirs(); err != nil {
		return nil, nil, nil, err
	}

	st, err := openStore(cfg)
	if err != nil {
		return nil, nil, nil, fmt.Errorf("opening store: %w", err)
	}

	registry := vector.NewRegistry(cfg.Index.Dir, cfg.Index.ClipDim, cfg.Index.FaceDim)
	engine := cluster.New(st, st, registry.Face(), cfg.Clustering.SimilarityThreshold)

	vision, err := buildVision(ctx, cfg)
	if err != nil {
		st.Close()
		return nil, nil, nil, err
	}

	svc := gallery.NewService(st, registry, engine, vision, cfg.Storage.PhotosDir, cfg.Storage.ThumbnailsDir, cfg.Storage.ThumbnailSize)
	return svc, st, registry, nil
}
