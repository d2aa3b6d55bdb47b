package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Server     ServerConfig     `yaml:"server"`
	Storage    StorageConfig    `yaml:"storage"`
	Database   DatabaseConfig   `yaml:"database"`
	Index      IndexConfig      `yaml:"index"`
	Clustering ClusteringConfig `yaml:"clustering"`
	ML         MLConfig         `yaml:"ml"`
}

type ServerConfig struct {
	Host string `yaml:"host"` // defaults to 0.0.0.0
	Port int    `yaml:"port"` // defaults to 8000
}

type StorageConfig struct {
	DataDir       string `yaml:"data_dir"`       // root for photos, thumbnails and index files (default ./data)
	PhotosDir     string `yaml:"photos_dir"`     // defaults to <data_dir>/photos
	ThumbnailsDir string `yaml:"thumbnails_dir"` // defaults to <data_dir>/thumbnails
	ThumbnailSize int    `yaml:"thumbnail_size"` // longest edge in pixels (default 400)
}

type DatabaseConfig struct {
	// Driver selects the relational backend: "sqlite" (default) or "postgres".
	Driver string `yaml:"driver"`
	// URL is the postgres connection URL, or the sqlite file path.
	URL          string `yaml:"url"`
	MaxOpenConns int    `yaml:"max_open_conns"` // postgres only (default 25)
	MaxIdleConns int    `yaml:"max_idle_conns"` // postgres only (default 5)
}

type IndexConfig struct {
	Dir     string `yaml:"dir"`      // directory for persisted index artifacts (defaults to <data_dir>/embeddings)
	ClipDim int    `yaml:"clip_dim"` // semantic embedding dimension (default 768, ViT-L-14)
	FaceDim int    `yaml:"face_dim"` // face embedding dimension (default 512, buffalo_l)
}

type ClusteringConfig struct {
	// SimilarityThreshold is the minimum cosine similarity for a face to
	// join an existing cluster (default 0.6).
	SimilarityThreshold float64 `yaml:"similarity_threshold"`
}

type MLConfig struct {
	// ServiceURL points at the inference sidecar that computes embeddings
	// and runs detection models (default http://localhost:8001).
	ServiceURL string `yaml:"service_url"`
	// Provider selects the text-embedding backend for semantic search:
	// "service" (default), "openai" or "gemini".
	Provider     string `yaml:"provider"`
	OpenAIToken  string `yaml:"openai_token"`
	GeminiAPIKey string `yaml:"gemini_api_key"`
}

// envInt reads an environment variable and parses it as a positive integer.
// Returns the default value if the env var is unset, empty, or invalid.
func envInt(key string, defaultVal int) int {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if n, err := strconv.Atoi(s); err == nil && n > 0 {
		return n
	}
	return defaultVal
}

// envFloat reads an environment variable and parses it as a float.
// Returns the default value if the env var is unset, empty, or invalid.
func envFloat(key string, defaultVal float64) float64 {
	s := os.Getenv(key)
	if s == "" {
		return defaultVal
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && f > 0 {
		return f
	}
	return defaultVal
}

func envString(key, defaultVal string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultVal
}

// Load builds the configuration from environment variables. If
// GALLERY_CONFIG points at a YAML file, its values are read first and
// environment variables override them.
func Load() (*Config, error) {
	cfg := &Config{}

	if path := os.Getenv("GALLERY_CONFIG"); path != "" {
		data, err := os.ReadFile(path) //nolint:gosec // path is from trusted config
		if err != nil {
			return nil, fmt.Errorf("reading config file %s: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file %s: %w", path, err)
		}
	}

	cfg.Server.Host = envString("HOST", defaultString(cfg.Server.Host, "0.0.0.0"))
	cfg.Server.Port = envInt("PORT", defaultInt(cfg.Server.Port, 8000))

	cfg.Storage.DataDir = envString("DATA_DIR", defaultString(cfg.Storage.DataDir, "./data"))
	cfg.Storage.PhotosDir = envString("PHOTOS_DIR", defaultString(cfg.Storage.PhotosDir, cfg.Storage.DataDir+"/photos"))
	cfg.Storage.ThumbnailsDir = envString("THUMBNAILS_DIR", defaultString(cfg.Storage.ThumbnailsDir, cfg.Storage.DataDir+"/thumbnails"))
	cfg.Storage.ThumbnailSize = envInt("THUMBNAIL_SIZE", defaultInt(cfg.Storage.ThumbnailSize, 400))

	cfg.Database.Driver = envString("DATABASE_DRIVER", defaultString(cfg.Database.Driver, "sqlite"))
	cfg.Database.URL = envString("DATABASE_URL", defaultString(cfg.Database.URL, cfg.Storage.DataDir+"/gallery.db"))
	cfg.Database.MaxOpenConns = envInt("DATABASE_MAX_OPEN_CONNS", defaultInt(cfg.Database.MaxOpenConns, 25))
	cfg.Database.MaxIdleConns = envInt("DATABASE_MAX_IDLE_CONNS", defaultInt(cfg.Database.MaxIdleConns, 5))

	cfg.Index.Dir = envString("EMBEDDINGS_DIR", defaultString(cfg.Index.Dir, cfg.Storage.DataDir+"/embeddings"))
	cfg.Index.ClipDim = envInt("CLIP_DIM", defaultInt(cfg.Index.ClipDim, 768))
	cfg.Index.FaceDim = envInt("FACE_DIM", defaultInt(cfg.Index.FaceDim, 512))

	cfg.Clustering.SimilarityThreshold = envFloat("FACE_SIM_THRESH", defaultFloat(cfg.Clustering.SimilarityThreshold, 0.6))

	cfg.ML.ServiceURL = envString("ML_SERVICE_URL", defaultString(cfg.ML.ServiceURL, "http://localhost:8001"))
	cfg.ML.Provider = envString("ML_PROVIDER", defaultString(cfg.ML.Provider, "service"))
	cfg.ML.OpenAIToken = envString("OPENAI_TOKEN", cfg.ML.OpenAIToken)
	cfg.ML.GeminiAPIKey = envString("GEMINI_API_KEY", cfg.ML.GeminiAPIKey)

	return cfg, nil
}

// EnsureDirs creates the storage directories if they do not exist.
func (c *Config) EnsureDirs() error {
	for _, dir := range []string{c.Storage.DataDir, c.Storage.PhotosDir, c.Storage.ThumbnailsDir, c.Index.Dir} {
		if err := os.MkdirAll(dir, 0750); err != nil {
			return fmt.Errorf("creating directory %s: %w", dir, err)
		}
	}
	return nil
}

func defaultString(v, def string) string {
	if v != "" {
		return v
	}
	return def
}

func defaultInt(v, def int) int {
	if v > 0 {
		return v
	}
	return def
}

func defaultFloat(v, def float64) float64 {
	if v > 0 {
		return v
	}
	return def
}
