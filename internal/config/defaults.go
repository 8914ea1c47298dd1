package config

// DefaultConfig returns a Config with sensible defaults: OpenAI models,
// in-process cache, local data directory.
func DefaultConfig() *Config {
	return &Config{
		Model:          "gpt-4o-mini",
		LLMRPM:         60,
		EmbeddingModel: "text-embedding-3-small",
		Language:       "en",
		TopK:           7,
		DataDir:        ".docqa",
		Port:           8080,
		CacheBackend:   "memory",
		RedisAddr:      "localhost:6379",
		QueryTTL:       "1h",
		EmbeddingTTL:   "24h",
		ChunkSize:      500,
		ChunkOverlap:   125,
		MinChunkSize:   100,
	}
}
