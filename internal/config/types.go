package config

import (
	"time"

	"github.com/docqa-io/docqa/internal/cache"
	"github.com/docqa-io/docqa/internal/chunker"
	"github.com/docqa-io/docqa/internal/tokens"
)

// DefaultConfigFile is the conventional config file name.
const DefaultConfigFile = ".docqa.yml"

// Config is the top-level docqa configuration, corresponding to .docqa.yml.
// API keys are never stored here; they come from the environment.
type Config struct {
	Model          string   `yaml:"model" koanf:"model"`
	LLMRPM         int      `yaml:"llm_rpm" koanf:"llm_rpm"`
	EmbeddingModel string   `yaml:"embedding_model" koanf:"embedding_model"`
	Language       string   `yaml:"language" koanf:"language"`
	TopK           int      `yaml:"top_k" koanf:"top_k"`
	DataDir        string   `yaml:"data_dir" koanf:"data_dir"`
	Port           int      `yaml:"port" koanf:"port"`
	CacheBackend   string   `yaml:"cache_backend" koanf:"cache_backend"`
	RedisAddr      string   `yaml:"redis_addr" koanf:"redis_addr"`
	QueryTTL       string   `yaml:"query_ttl" koanf:"query_ttl"`
	EmbeddingTTL   string   `yaml:"embedding_ttl" koanf:"embedding_ttl"`
	Include        []string `yaml:"include" koanf:"include"`
	Exclude        []string `yaml:"exclude" koanf:"exclude"`
	ChunkSize      int      `yaml:"chunk_size" koanf:"chunk_size"`
	ChunkOverlap   int      `yaml:"chunk_overlap" koanf:"chunk_overlap"`
	MinChunkSize   int      `yaml:"min_chunk_size" koanf:"min_chunk_size"`
}

// CacheConfig converts the relevant fields for the cache service. TTL
// strings were validated by Validate; unparsable values fall back to the
// cache defaults.
func (c *Config) CacheConfig() cache.Config {
	cfg := cache.Config{
		Backend:   c.CacheBackend,
		RedisAddr: c.RedisAddr,
	}
	if d, err := time.ParseDuration(c.QueryTTL); err == nil {
		cfg.QueryTTL = d
	}
	if d, err := time.ParseDuration(c.EmbeddingTTL); err == nil {
		cfg.EmbeddingTTL = d
	}
	return cfg
}

// ChunkerConfig converts the chunking fields. The counter is the best one
// available: tiktoken when its vocabulary loads, the character heuristic
// otherwise.
func (c *Config) ChunkerConfig() chunker.Config {
	return chunker.Config{
		ChunkSize:    c.ChunkSize,
		ChunkOverlap: c.ChunkOverlap,
		MinChunkSize: c.MinChunkSize,
		Counter:      tokens.NewCounter(),
	}
}
