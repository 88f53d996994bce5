package embedder

import (
	"fmt"
	"strings"
	"time"
)

// Config holds embedder configuration.
type Config struct {
	Provider  string // "ollama" or "local"
	BaseURL   string
	Model     string
	Timeout   time.Duration
	CacheSize int
}

// New creates an embedder with explicit configuration.
func New(cfg Config) (Embedder, error) {
	var cache *Cache
	if cfg.CacheSize > 0 {
		cache = NewCache(cfg.CacheSize)
	}

	switch strings.ToLower(cfg.Provider) {
	case ProviderOllama, "":
		return NewOllamaProvider(cfg.BaseURL, cfg.Model, cfg.Timeout, cache), nil
	case ProviderLocal:
		return NewLocalProvider(cache), nil
	default:
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedProvider, cfg.Provider)
	}
}
