package config

import (
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("default model: got %q", cfg.Model)
	}
	if cfg.EmbeddingModel != "text-embedding-3-small" {
		t.Errorf("default embedding_model: got %q", cfg.EmbeddingModel)
	}
	if cfg.Language != "en" {
		t.Errorf("default language: got %q", cfg.Language)
	}
	if cfg.TopK != 7 {
		t.Errorf("default top_k: got %d", cfg.TopK)
	}
	if cfg.CacheBackend != "memory" {
		t.Errorf("default cache_backend: got %q", cfg.CacheBackend)
	}
	if cfg.LLMRPM != 60 {
		t.Errorf("default llm_rpm: got %d", cfg.LLMRPM)
	}
}

func TestSaveAndLoad(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "test.docqa.yml")

	original := DefaultConfig()
	original.Model = "gpt-4o"
	original.Language = "pl"
	original.TopK = 5
	original.CacheBackend = "redis"
	original.RedisAddr = "redis.internal:6379"
	original.Include = []string{"**/*.pdf", "**/*.md"}
	original.QueryTTL = "30m"

	if err := original.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	if loaded.Model != original.Model {
		t.Errorf("model: got %q, want %q", loaded.Model, original.Model)
	}
	if loaded.Language != original.Language {
		t.Errorf("language: got %q, want %q", loaded.Language, original.Language)
	}
	if loaded.TopK != original.TopK {
		t.Errorf("top_k: got %d, want %d", loaded.TopK, original.TopK)
	}
	if loaded.CacheBackend != "redis" || loaded.RedisAddr != original.RedisAddr {
		t.Errorf("cache: got %q/%q", loaded.CacheBackend, loaded.RedisAddr)
	}
	if loaded.QueryTTL != "30m" {
		t.Errorf("query_ttl: got %q", loaded.QueryTTL)
	}
	if len(loaded.Include) != 2 || loaded.Include[0] != "**/*.pdf" {
		t.Errorf("include: got %v", loaded.Include)
	}
}

func TestLoadMissingFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nonexistent.yml")

	// Loading a missing file should return defaults, not an error.
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load should not fail for missing file: %v", err)
	}
	if cfg.Model != "gpt-4o-mini" {
		t.Errorf("expected default model, got %q", cfg.Model)
	}
}

func TestLoadEnvOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "test.yml")

	cfg := DefaultConfig()
	if err := cfg.Save(path); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	t.Setenv("DOCQA_MODEL", "gpt-4o")
	t.Setenv("DOCQA_LANGUAGE", "ro")

	loaded, err := Load(path)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if loaded.Model != "gpt-4o" {
		t.Errorf("env override failed: got %q", loaded.Model)
	}
	if loaded.Language != "ro" {
		t.Errorf("env override failed: got %q", loaded.Language)
	}
}

func TestValidate(t *testing.T) {
	if err := DefaultConfig().Validate(); err != nil {
		t.Errorf("DefaultConfig should be valid, got: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"empty model", func(c *Config) { c.Model = "" }},
		{"empty embedding model", func(c *Config) { c.EmbeddingModel = "" }},
		{"bad language", func(c *Config) { c.Language = "english" }},
		{"zero top_k", func(c *Config) { c.TopK = 0 }},
		{"zero llm_rpm", func(c *Config) { c.LLMRPM = 0 }},
		{"empty data_dir", func(c *Config) { c.DataDir = "" }},
		{"port out of range", func(c *Config) { c.Port = 70000 }},
		{"unknown backend", func(c *Config) { c.CacheBackend = "memcached" }},
		{"redis without addr", func(c *Config) { c.CacheBackend = "redis"; c.RedisAddr = "" }},
		{"bad ttl", func(c *Config) { c.QueryTTL = "one hour" }},
		{"overlap >= chunk size", func(c *Config) { c.ChunkOverlap = 500 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)
			if err := cfg.Validate(); err == nil {
				t.Error("expected validation error")
			}
		})
	}
}

func TestCacheConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.QueryTTL = "30m"
	cfg.EmbeddingTTL = "48h"

	cacheCfg := cfg.CacheConfig()
	if cacheCfg.Backend != "memory" {
		t.Errorf("backend: got %q", cacheCfg.Backend)
	}
	if cacheCfg.QueryTTL != 30*time.Minute {
		t.Errorf("query ttl: got %v", cacheCfg.QueryTTL)
	}
	if cacheCfg.EmbeddingTTL != 48*time.Hour {
		t.Errorf("embedding ttl: got %v", cacheCfg.EmbeddingTTL)
	}
}

func TestChunkerConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.ChunkSize = 300
	cfg.ChunkOverlap = 60

	ch := cfg.ChunkerConfig()
	if ch.ChunkSize != 300 || ch.ChunkOverlap != 60 || ch.MinChunkSize != 100 {
		t.Errorf("chunker config: got %+v", ch)
	}
	// Without an injected counter the chunker would quietly size chunks by
	// the character heuristic even when the real tokenizer is available.
	if ch.Counter == nil {
		t.Error("chunker config carries no token counter")
	}
}
