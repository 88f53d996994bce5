package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"

	"gopkg.in/yaml.v3"
)

// Default values applied when the config file omits a setting.
const (
	DefaultChunkSize      = 1200
	DefaultOverlap        = 200
	DefaultTopK           = 5
	DefaultEmbedBatchSize = 32
	DefaultModel          = "llama3.2:3b"
	DefaultEmbedModel     = "nomic-embed-text"
	DefaultOllamaBaseURL  = "http://localhost:11434"
	DefaultHTTPAddr       = ":8080"
)

// ChunkingConfig configures the sliding-window chunker.
type ChunkingConfig struct {
	Size    int `yaml:"size"`
	Overlap int `yaml:"overlap"`
}

// IngestConfig configures file discovery and ingestion.
type IngestConfig struct {
	// MaxFiles caps the number of supported files processed per run.
	// Zero means no cap.
	MaxFiles int `yaml:"max_files"`

	// ExcludePatterns are glob patterns matched against file names and
	// full paths during discovery.
	ExcludePatterns []string `yaml:"exclude_patterns"`

	EmbedBatchSize int `yaml:"embed_batch_size"`
}

// OllamaConfig holds connection details for the Ollama backend.
type OllamaConfig struct {
	BaseURL     string `yaml:"base_url"`
	TimeoutSecs int    `yaml:"timeout_secs"`
}

// RAGConfig configures retrieval and answer generation.
type RAGConfig struct {
	// UseVectors enables the semantic retrieval path. When false, every
	// query is served by the lexical fallback over the flat index.
	UseVectors bool `yaml:"use_vectors"`

	TopK int `yaml:"top_k"`

	// MaxDistance drops semantic hits farther than this distance.
	// Zero disables filtering.
	MaxDistance float64 `yaml:"max_distance"`

	Model      string `yaml:"model"`
	EmbedModel string `yaml:"embed_model"`

	// EmbedProvider selects the embedding backend: "ollama" or "local".
	EmbedProvider string `yaml:"embed_provider"`

	// QueryInclude lists the hit fields the vector store populates on
	// query. An "ids" entry is stripped defensively: identifiers are
	// always returned out-of-band by the store.
	QueryInclude []string `yaml:"query_include"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Addr string `yaml:"addr"`
}

// Config is the process configuration, constructed once at the top level
// and passed by value into every component.
type Config struct {
	// DataDir is the root under which per-corpus artifacts live.
	DataDir string `yaml:"data_dir"`

	Chunking ChunkingConfig `yaml:"chunking"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Ollama   OllamaConfig   `yaml:"ollama"`
	RAG      RAGConfig      `yaml:"rag"`
	Server   ServerConfig   `yaml:"server"`
}

// Load reads a YAML config from path. A missing file yields defaults.
// Environment overrides are applied last.
//
// The file is unmarshaled over an already-defaulted config: omitted keys
// keep their defaults while explicit zero values survive, so a
// configured `overlap: 0` is honored rather than re-defaulted.
func Load(path string) (*Config, error) {
	cfg := Default()

	data, err := os.ReadFile(path)
	if err != nil {
		if !errors.Is(err, os.ErrNotExist) {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	applyEnv(cfg)
	return cfg, nil
}

// Default returns the built-in configuration.
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func applyDefaults(cfg *Config) {
	if cfg.DataDir == "" {
		if home, err := os.UserHomeDir(); err == nil {
			cfg.DataDir = filepath.Join(home, ".localrag")
		} else {
			cfg.DataDir = "data"
		}
	}
	if cfg.Chunking.Size == 0 {
		cfg.Chunking.Size = DefaultChunkSize
	}
	if cfg.Chunking.Overlap == 0 {
		cfg.Chunking.Overlap = DefaultOverlap
	}
	if cfg.Ingest.EmbedBatchSize == 0 {
		cfg.Ingest.EmbedBatchSize = DefaultEmbedBatchSize
	}
	if cfg.Ollama.BaseURL == "" {
		cfg.Ollama.BaseURL = DefaultOllamaBaseURL
	}
	if cfg.Ollama.TimeoutSecs == 0 {
		cfg.Ollama.TimeoutSecs = 30
	}
	if cfg.RAG.TopK == 0 {
		cfg.RAG.TopK = DefaultTopK
	}
	if cfg.RAG.Model == "" {
		cfg.RAG.Model = DefaultModel
	}
	if cfg.RAG.EmbedModel == "" {
		cfg.RAG.EmbedModel = DefaultEmbedModel
	}
	if cfg.RAG.EmbedProvider == "" {
		cfg.RAG.EmbedProvider = "ollama"
	}
	if len(cfg.RAG.QueryInclude) == 0 {
		cfg.RAG.QueryInclude = []string{"documents", "metadatas", "distances"}
	}
	if cfg.Server.Addr == "" {
		cfg.Server.Addr = DefaultHTTPAddr
	}
}

// applyEnv overrides settings from LOCALRAG_* environment variables.
func applyEnv(cfg *Config) {
	if v := os.Getenv("LOCALRAG_DATA_DIR"); v != "" {
		cfg.DataDir = v
	}
	if v := os.Getenv("LOCALRAG_OLLAMA_BASE_URL"); v != "" {
		cfg.Ollama.BaseURL = v
	}
	if v := os.Getenv("LOCALRAG_USE_VECTORS"); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			cfg.RAG.UseVectors = b
		}
	}
	if v := os.Getenv("LOCALRAG_EMBED_PROVIDER"); v != "" {
		cfg.RAG.EmbedProvider = v
	}
	if v := os.Getenv("LOCALRAG_EMBED_BATCH_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil && n > 0 {
			cfg.Ingest.EmbedBatchSize = n
		}
	}
}

// Validate reports configuration combinations that cannot work.
func (c *Config) Validate() error {
	if c.Chunking.Size <= 0 {
		return fmt.Errorf("chunking.size must be > 0, got %d", c.Chunking.Size)
	}
	if c.Chunking.Overlap < 0 || c.Chunking.Overlap >= c.Chunking.Size {
		return fmt.Errorf("chunking.overlap must be in [0, size), got %d", c.Chunking.Overlap)
	}
	if c.RAG.TopK <= 0 {
		return fmt.Errorf("rag.top_k must be > 0, got %d", c.RAG.TopK)
	}
	return nil
}
