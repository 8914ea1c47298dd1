package cmd

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"

	"github.com/docqa-io/docqa/internal/answer"
	"github.com/docqa-io/docqa/internal/cache"
	"github.com/docqa-io/docqa/internal/chunker"
	"github.com/docqa-io/docqa/internal/config"
	"github.com/docqa-io/docqa/internal/embeddings"
	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/ingest"
	"github.com/docqa-io/docqa/internal/llm"
)

// app bundles the wired pipeline shared by the commands. Not every
// command uses every field; buildApp constructs the whole stack because
// the pieces are cheap until used.
type app struct {
	cfg      *config.Config
	log      *logrus.Logger
	cache    *cache.Service
	embedder embeddings.Embedder
	index    *index.ChromemIndex
	answer   *answer.Service
	ingestor *ingest.Ingestor
	files    *ingest.FileStore
}

// buildApp loads config and wires embedder, cache, index, answer
// service and ingestor. The index snapshot is loaded from the data
// directory when one exists; a missing snapshot just means an empty
// index.
func buildApp() (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	log := newLogger()

	apiKey := os.Getenv(config.APIKeyEnvVar)
	if apiKey == "" {
		return nil, fmt.Errorf("%s environment variable is required", config.APIKeyEnvVar)
	}

	cacheCfg := cfg.CacheConfig()
	cacheSvc := cache.NewService(cache.NewBackend(cacheCfg, log), cacheCfg, log)

	embedder := embeddings.NewCachedEmbedder(
		embeddings.NewOpenAIEmbedder(apiKey, embeddings.OpenAIModel(cfg.EmbeddingModel)),
		cacheSvc,
	)

	idx, err := index.NewChromemIndex(embedder.Dimensions())
	if err != nil {
		return nil, fmt.Errorf("creating index: %w", err)
	}
	if err := idx.Load(cfg.DataDir); err != nil {
		// A missing snapshot just means nothing was ingested yet.
		log.WithError(err).Debug("index snapshot not loaded, starting empty")
	}

	provider := llm.NewRateLimitedProvider(llm.NewOpenAIProvider(apiKey, cfg.Model), cfg.LLMRPM)
	answerSvc := answer.NewService(provider, embedder, idx, cacheSvc, cfg.Model, log)

	files, err := ingest.NewFileStore(cfg.DataDir)
	if err != nil {
		return nil, fmt.Errorf("creating file store: %w", err)
	}
	ingestor := ingest.New(chunker.New(cfg.ChunkerConfig()), embedder, idx, files, log)

	return &app{
		cfg:      cfg,
		log:      log,
		cache:    cacheSvc,
		embedder: embedder,
		index:    idx,
		answer:   answerSvc,
		ingestor: ingestor,
		files:    files,
	}, nil
}

// persistIndex snapshots the index so the next invocation starts from
// the same state.
func (a *app) persistIndex() error {
	if err := a.index.Persist(a.cfg.DataDir); err != nil {
		return fmt.Errorf("persisting index: %w", err)
	}
	return nil
}

// loadConfig loads and validates the config, providing a user-friendly error.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w\nRun `docqa init` to create a config file", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the CLI logger. Logs go to stderr so stdout stays
// clean for command output (and for the MCP protocol).
func newLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(os.Stderr)
	if verbose {
		log.SetLevel(logrus.DebugLevel)
	} else {
		log.SetLevel(logrus.WarnLevel)
	}
	return log
}
