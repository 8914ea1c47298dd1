package answer

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/docqa-io/docqa/internal/cache"
	"github.com/docqa-io/docqa/internal/embeddings"
	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/llm"
)

// Defaults for the retrieve-then-generate flow.
const (
	DefaultTopK = 7

	// contextBudgetChars approximates a 4000-token context window. When
	// the joined passages exceed it, the lowest-ranked passages are
	// dropped whole rather than truncated mid-passage.
	contextBudgetChars = 16000
	truncatedTopK      = 6

	generateTemperature = 0.7
	generateMaxTokens   = 700
	generateTimeout     = 30 * time.Second
)

// Request is one question against the knowledge base.
type Request struct {
	Query          string
	Language       string // two-letter code; unknown codes fall back to English
	TopK           int    // 0 means DefaultTopK
	ConversationID string // empty starts a new conversation
	Layer          index.Layer
	Category       string
}

// Response is the generated (or cached) answer with its citations.
type Response struct {
	Answer         string        `json:"answer"`
	Sources        []string      `json:"sources"`
	ConversationID string        `json:"conversation_id"`
	Language       string        `json:"language"`
	Cached         bool          `json:"cached"`
	Duration       time.Duration `json:"-"`
}

// cachedAnswer is the payload stored under the query cache key.
type cachedAnswer struct {
	Answer         string   `json:"answer"`
	Sources        []string `json:"sources"`
	ConversationID string   `json:"conversation_id"`
	Language       string   `json:"language"`
}

// Service answers questions by retrieving relevant passages and feeding
// them to the generative model. All collaborators are injected; the
// service holds no global state.
type Service struct {
	provider llm.Provider
	embedder embeddings.Embedder
	store    index.Store
	cache    *cache.Service
	model    string
	logger   *logrus.Logger
}

// NewService wires the orchestrator. model is the generation model
// identifier passed to the provider on every call.
func NewService(provider llm.Provider, embedder embeddings.Embedder, store index.Store, cacheSvc *cache.Service, model string, logger *logrus.Logger) *Service {
	if logger == nil {
		logger = logrus.New()
	}
	return &Service{
		provider: provider,
		embedder: embedder,
		store:    store,
		cache:    cacheSvc,
		model:    model,
		logger:   logger,
	}
}

// Ask answers one question. The flow is a strict pipeline: cache check,
// query embedding, hybrid retrieval, context assembly, generation, cache
// store. No stage is retried; provider errors surface to the caller.
// Cache failures only degrade performance, never the request.
func (s *Service) Ask(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()

	if strings.TrimSpace(req.Query) == "" {
		return nil, fmt.Errorf("empty query")
	}

	language, instruction := resolveLanguage(req.Language)
	topK := req.TopK
	if topK <= 0 {
		topK = DefaultTopK
	}

	key := cache.Key(cache.NamespaceQuery, []string{req.Query}, map[string]string{
		"language": language,
		"top_k":    strconv.Itoa(topK),
	})

	if payload, ok := s.cache.Get(ctx, key); ok {
		var hit cachedAnswer
		if err := json.Unmarshal(payload, &hit); err == nil {
			return &Response{
				Answer:         hit.Answer,
				Sources:        hit.Sources,
				ConversationID: hit.ConversationID,
				Language:       hit.Language,
				Cached:         true,
				Duration:       time.Since(start),
			}, nil
		}
	}

	vector, err := s.embedder.Embed(ctx, req.Query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	var filter *index.Filter
	if req.Layer != "" || req.Category != "" {
		filter = &index.Filter{Layer: req.Layer, Category: req.Category}
	}

	results, err := s.store.Search(ctx, index.Query{
		Vector:    vector,
		QueryText: req.Query,
		TopK:      topK,
		Filter:    filter,
	})
	if err != nil {
		return nil, fmt.Errorf("retrieving passages: %w", err)
	}

	contextText := assembleContext(results)
	sources := collectSources(results)

	resp, err := s.provider.Complete(ctx, llm.CompletionRequest{
		Model: s.model,
		Messages: []llm.Message{
			{Role: llm.RoleSystem, Content: instruction},
			{Role: llm.RoleUser, Content: buildUserContent(contextText, req.Query, language)},
		},
		Temperature: generateTemperature,
		MaxTokens:   generateMaxTokens,
		Timeout:     generateTimeout,
	})
	if err != nil {
		return nil, fmt.Errorf("generating answer: %w", err)
	}

	conversationID := req.ConversationID
	if conversationID == "" {
		conversationID = uuid.New().String()
	}

	if payload, err := json.Marshal(cachedAnswer{
		Answer:         resp.Content,
		Sources:        sources,
		ConversationID: conversationID,
		Language:       language,
	}); err == nil {
		s.cache.Set(ctx, key, payload, s.cache.QueryTTL())
	}

	s.logger.WithFields(logrus.Fields{
		"language": language,
		"top_k":    topK,
		"results":  len(results),
		"duration": time.Since(start),
	}).Debug("answered query")

	return &Response{
		Answer:         resp.Content,
		Sources:        sources,
		ConversationID: conversationID,
		Language:       language,
		Duration:       time.Since(start),
	}, nil
}

// assembleContext joins passages in rank order, each under a source
// attribution line. When the joined text exceeds the context budget, only
// the top-ranked passages are kept; passages are never cut mid-text.
func assembleContext(results []index.Result) string {
	passages := make([]string, len(results))
	total := 0
	for i, r := range results {
		passages[i] = "[Source: " + r.Record.Metadata.Title + "]\n" + r.Record.Content
		total += len(passages[i])
	}

	if total > contextBudgetChars && len(passages) > truncatedTopK {
		passages = passages[:truncatedTopK]
	}

	return strings.Join(passages, "\n\n")
}

// collectSources returns the distinct document titles in first-seen rank
// order for citation.
func collectSources(results []index.Result) []string {
	seen := make(map[string]bool, len(results))
	var sources []string
	for _, r := range results {
		title := r.Record.Metadata.Title
		if title == "" || seen[title] {
			continue
		}
		seen[title] = true
		sources = append(sources, title)
	}
	return sources
}

// buildUserContent places the retrieved context ahead of the question and
// restates the response language.
func buildUserContent(contextText, question, language string) string {
	var sb strings.Builder
	if contextText != "" {
		sb.WriteString("Context:\n\n")
		sb.WriteString(contextText)
		sb.WriteString("\n\n")
	}
	sb.WriteString("Question: ")
	sb.WriteString(question)
	sb.WriteString("\n\n")
	sb.WriteString(languageReminder(language))
	return sb.String()
}
