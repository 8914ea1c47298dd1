// Package config loads and validates the docqa configuration: defaults,
// then .docqa.yml, then DOCQA_* environment overrides.
package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
	yamlv3 "gopkg.in/yaml.v3"
)

// APIKeyEnvVar is where the OpenAI key must live; it is never written to
// the config file.
const APIKeyEnvVar = "OPENAI_API_KEY"

// Load reads configuration from the given YAML file, then overlays
// environment variable overrides (DOCQA_*).
func Load(path string) (*Config, error) {
	k := koanf.New(".")

	// Start from defaults.
	cfg := DefaultConfig()

	// Load YAML file if it exists.
	if _, err := os.Stat(path); err == nil {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("reading config %s: %w", path, err)
		}
	} else if !os.IsNotExist(err) {
		return nil, fmt.Errorf("accessing config %s: %w", path, err)
	}

	// Overlay environment variables: DOCQA_MODEL -> model, etc.
	if err := k.Load(env.Provider("DOCQA_", ".", func(s string) string {
		return strings.ToLower(strings.TrimPrefix(s, "DOCQA_"))
	}), nil); err != nil {
		return nil, fmt.Errorf("loading env overrides: %w", err)
	}

	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("unmarshalling config: %w", err)
	}

	return cfg, nil
}

// Save writes the configuration to the given YAML file path.
func (c *Config) Save(path string) error {
	data, err := yamlv3.Marshal(c)
	if err != nil {
		return fmt.Errorf("marshalling config: %w", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("writing config to %s: %w", path, err)
	}
	return nil
}

// validBackends is the set of recognized cache backend values.
var validBackends = map[string]bool{
	"memory": true,
	"redis":  true,
}

// Validate checks that the configuration contains usable values.
func (c *Config) Validate() error {
	if c.Model == "" {
		return fmt.Errorf("model is required")
	}
	if c.LLMRPM <= 0 {
		return fmt.Errorf("llm_rpm must be positive, got %d", c.LLMRPM)
	}
	if c.EmbeddingModel == "" {
		return fmt.Errorf("embedding_model is required")
	}
	if len(c.Language) != 2 {
		return fmt.Errorf("language must be a two-letter code, got %q", c.Language)
	}
	if c.TopK <= 0 {
		return fmt.Errorf("top_k must be positive, got %d", c.TopK)
	}
	if c.DataDir == "" {
		return fmt.Errorf("data_dir is required")
	}
	if c.Port <= 0 || c.Port > 65535 {
		return fmt.Errorf("port %d is out of range", c.Port)
	}
	if !validBackends[c.CacheBackend] {
		return fmt.Errorf("invalid cache_backend %q: must be memory or redis", c.CacheBackend)
	}
	if c.CacheBackend == "redis" && c.RedisAddr == "" {
		return fmt.Errorf("redis_addr is required when cache_backend is redis")
	}
	for name, ttl := range map[string]string{"query_ttl": c.QueryTTL, "embedding_ttl": c.EmbeddingTTL} {
		if ttl == "" {
			continue
		}
		if _, err := time.ParseDuration(ttl); err != nil {
			return fmt.Errorf("invalid %s %q: use a duration like 1h or 30m", name, ttl)
		}
	}
	if c.ChunkOverlap >= c.ChunkSize && c.ChunkSize > 0 {
		return fmt.Errorf("chunk_overlap %d must be smaller than chunk_size %d", c.ChunkOverlap, c.ChunkSize)
	}
	return nil
}
