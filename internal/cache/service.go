package cache

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/sirupsen/logrus"
)

// Default TTLs for the two namespaces.
const (
	DefaultQueryTTL     = time.Hour
	DefaultEmbeddingTTL = 24 * time.Hour
)

// Config selects and sizes a cache backend.
type Config struct {
	Backend      string        // "memory" or "redis"
	MaxEntries   int           // memory backend capacity
	RedisAddr    string        // host:port, redis backend only
	QueryTTL     time.Duration // answer cache lifetime
	EmbeddingTTL time.Duration // embedding cache lifetime
}

// NewBackend builds the configured backend. A redis backend that cannot be
// reached degrades to the in-process backend with a logged warning; cache
// construction never fails the process.
func NewBackend(cfg Config, logger *logrus.Logger) Backend {
	if logger == nil {
		logger = logrus.New()
	}

	if cfg.Backend == "redis" {
		b, err := NewRedisBackend(cfg.RedisAddr)
		if err == nil {
			return b
		}
		logger.WithError(err).WithField("addr", cfg.RedisAddr).
			Warn("redis cache unreachable, falling back to in-process cache")
	}

	return NewMemoryBackend(cfg.MaxEntries)
}

// Stats is a point-in-time view of cache effectiveness.
type Stats struct {
	Hits    int64  `json:"hits"`
	Misses  int64  `json:"misses"`
	Entries int    `json:"entries"`
	Backend string `json:"backend"`
}

// Service wraps a Backend with hit/miss accounting and the error policy
// the rest of the system relies on: a broken cache degrades to a miss,
// it never fails a request.
type Service struct {
	backend Backend
	logger  *logrus.Logger

	queryTTL     time.Duration
	embeddingTTL time.Duration

	hits   atomic.Int64
	misses atomic.Int64
}

// NewService wraps backend. Zero TTLs take the package defaults; a nil
// logger gets a fresh one.
func NewService(backend Backend, cfg Config, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	if cfg.QueryTTL <= 0 {
		cfg.QueryTTL = DefaultQueryTTL
	}
	if cfg.EmbeddingTTL <= 0 {
		cfg.EmbeddingTTL = DefaultEmbeddingTTL
	}
	return &Service{
		backend:      backend,
		logger:       logger,
		queryTTL:     cfg.QueryTTL,
		embeddingTTL: cfg.EmbeddingTTL,
	}
}

// Get returns the payload stored under key. Backend errors are logged and
// reported as misses.
func (s *Service) Get(ctx context.Context, key string) ([]byte, bool) {
	value, ok, err := s.backend.Get(ctx, key)
	if err != nil {
		s.logger.WithError(err).WithField("key", key).Debug("cache get failed")
		s.misses.Add(1)
		return nil, false
	}
	if !ok {
		s.misses.Add(1)
		return nil, false
	}
	s.hits.Add(1)
	return value, true
}

// Set stores payload under key. Backend errors are logged and swallowed.
func (s *Service) Set(ctx context.Context, key string, payload []byte, ttl time.Duration) {
	if err := s.backend.Set(ctx, key, payload, ttl); err != nil {
		s.logger.WithError(err).WithField("key", key).Debug("cache set failed")
	}
}

// Delete removes key. Backend errors are logged and swallowed.
func (s *Service) Delete(ctx context.Context, key string) {
	if err := s.backend.Delete(ctx, key); err != nil {
		s.logger.WithError(err).WithField("key", key).Debug("cache delete failed")
	}
}

// Clear removes every entry and resets the counters.
func (s *Service) Clear(ctx context.Context) error {
	if err := s.backend.Clear(ctx); err != nil {
		return err
	}
	s.hits.Store(0)
	s.misses.Store(0)
	return nil
}

// Stats reports hit/miss counts, the live entry count and which backend is
// serving.
func (s *Service) Stats(ctx context.Context) Stats {
	entries, err := s.backend.Len(ctx)
	if err != nil {
		s.logger.WithError(err).Debug("cache len failed")
	}
	return Stats{
		Hits:    s.hits.Load(),
		Misses:  s.misses.Load(),
		Entries: entries,
		Backend: s.backend.Name(),
	}
}

// QueryTTL is the lifetime for answer-cache entries.
func (s *Service) QueryTTL() time.Duration { return s.queryTTL }

// EmbeddingTTL is the lifetime for embedding-cache entries.
func (s *Service) EmbeddingTTL() time.Duration { return s.embeddingTTL }
