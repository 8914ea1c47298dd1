package embeddings

import (
	"context"
	"encoding/json"

	"github.com/docqa-io/docqa/internal/cache"
)

// CachedEmbedder memoizes single-text embeddings in a cache.Service.
// Embeddings for identical text never change, so hits skip the provider
// call entirely.
//
// EmbedBatch is passed through uncached: batch embedding happens on
// ingestion paths where the texts are new to the system, and checking the
// cache per item would cost more round trips than it saves.
type CachedEmbedder struct {
	inner Embedder
	cache *cache.Service
}

// NewCachedEmbedder wraps inner with the given cache.
func NewCachedEmbedder(inner Embedder, svc *cache.Service) *CachedEmbedder {
	return &CachedEmbedder{inner: inner, cache: svc}
}

func (e *CachedEmbedder) Name() string    { return e.inner.Name() }
func (e *CachedEmbedder) Dimensions() int { return e.inner.Dimensions() }

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(cache.NamespaceEmbedding, []string{text}, map[string]string{
		"model": e.inner.Name(),
	})

	if payload, ok := e.cache.Get(ctx, key); ok {
		var vector []float32
		if err := json.Unmarshal(payload, &vector); err == nil {
			return vector, nil
		}
		// An undecodable entry is treated as a miss and overwritten below.
	}

	vector, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}

	if payload, err := json.Marshal(vector); err == nil {
		e.cache.Set(ctx, key, payload, e.cache.EmbeddingTTL())
	}
	return vector, nil
}

func (e *CachedEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	return e.inner.EmbedBatch(ctx, texts)
}
