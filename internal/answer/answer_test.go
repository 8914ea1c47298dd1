package answer

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"testing"
	"time"

	"github.com/docqa-io/docqa/internal/cache"
	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/llm"
)

const testDims = 64

// fakeEmbedder produces deterministic vectors and counts provider calls.
type fakeEmbedder struct {
	calls int
}

func (f *fakeEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	f.calls++
	return hashVector(text), nil
}

func (f *fakeEmbedder) EmbedBatch(_ context.Context, texts []string) ([][]float32, error) {
	f.calls++
	out := make([][]float32, len(texts))
	for i, t := range texts {
		out[i] = hashVector(t)
	}
	return out, nil
}

func (f *fakeEmbedder) Dimensions() int { return testDims }
func (f *fakeEmbedder) Name() string    { return "fake" }

func hashVector(text string) []float32 {
	vec := make([]float32, testDims)
	for i, ch := range text {
		vec[(int(ch)+i)%testDims] += 1.0
	}
	var norm float64
	for _, v := range vec {
		norm += float64(v * v)
	}
	norm = math.Sqrt(norm)
	if norm > 0 {
		for i := range vec {
			vec[i] = float32(float64(vec[i]) / norm)
		}
	}
	return vec
}

// fakeProvider records completion requests and returns a canned answer.
type fakeProvider struct {
	calls []llm.CompletionRequest
	err   error
}

func (f *fakeProvider) Name() string { return "fake" }

func (f *fakeProvider) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	return &llm.CompletionResponse{Content: "generated answer", FinishReason: "stop"}, nil
}

func seedIndex(t *testing.T, contents map[string]string) *index.ChromemIndex {
	t.Helper()

	idx, err := index.NewChromemIndex(testDims)
	if err != nil {
		t.Fatalf("NewChromemIndex: %v", err)
	}

	var records []index.Record
	i := 0
	for title, content := range contents {
		records = append(records, index.Record{
			ID:      fmt.Sprintf("doc%d_0", i),
			Content: content,
			Vector:  hashVector(content),
			Metadata: index.Metadata{
				DocumentID: fmt.Sprintf("doc%d", i),
				Title:      title,
				UploadedAt: time.Now(),
			},
		})
		i++
	}
	if ok, err := idx.UpsertBatch(context.Background(), records); !ok || err != nil {
		t.Fatalf("UpsertBatch: ok=%v err=%v", ok, err)
	}
	return idx
}

func newTestService(t *testing.T, provider llm.Provider, embedder *fakeEmbedder, idx index.Store) *Service {
	t.Helper()
	svc := cache.NewService(cache.NewMemoryBackend(100), cache.Config{}, nil)
	return NewService(provider, embedder, idx, svc, "test-model", nil)
}

func TestAsk_GeneratesWithRetrievedContext(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	embedder := &fakeEmbedder{}
	idx := seedIndex(t, map[string]string{
		"Vacation Policy": "employees accrue twenty vacation days per year",
	})

	svc := newTestService(t, provider, embedder, idx)

	resp, err := svc.Ask(ctx, Request{Query: "how many vacation days do employees get"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}

	if resp.Answer != "generated answer" {
		t.Errorf("answer: got %q", resp.Answer)
	}
	if resp.Cached {
		t.Error("first ask reported as cached")
	}
	if resp.ConversationID == "" {
		t.Error("no conversation ID generated")
	}
	if len(resp.Sources) != 1 || resp.Sources[0] != "Vacation Policy" {
		t.Errorf("sources: got %v, want [Vacation Policy]", resp.Sources)
	}

	if len(provider.calls) != 1 {
		t.Fatalf("provider calls: got %d, want 1", len(provider.calls))
	}
	req := provider.calls[0]
	if req.Temperature != generateTemperature || req.MaxTokens != generateMaxTokens {
		t.Errorf("generation settings: temp=%v maxTokens=%d", req.Temperature, req.MaxTokens)
	}
	if req.Timeout != generateTimeout {
		t.Errorf("generation timeout: got %v, want %v", req.Timeout, generateTimeout)
	}

	user := req.Messages[len(req.Messages)-1].Content
	if !strings.Contains(user, "twenty vacation days") {
		t.Error("retrieved passage missing from the prompt")
	}
	if !strings.Contains(user, "Respond in English.") {
		t.Error("language reminder missing from user content")
	}
	if !strings.Contains(req.Messages[0].Content, "Respond in English") {
		t.Error("language directive missing from system instruction")
	}
}

func TestAsk_CacheHitSkipsAllProviders(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	embedder := &fakeEmbedder{}
	idx := seedIndex(t, map[string]string{
		"Expense Policy": "expenses over one hundred euros need approval",
	})

	svc := newTestService(t, provider, embedder, idx)

	req := Request{Query: "Expense Approval Threshold", Language: "en", TopK: 5}
	first, err := svc.Ask(ctx, req)
	if err != nil {
		t.Fatalf("first Ask: %v", err)
	}

	embedCalls, llmCalls := embedder.calls, len(provider.calls)

	// Same query with different casing and whitespace: still a cache hit.
	second, err := svc.Ask(ctx, Request{Query: "  expense approval threshold ", Language: "EN", TopK: 5})
	if err != nil {
		t.Fatalf("second Ask: %v", err)
	}

	if !second.Cached {
		t.Error("second ask not served from cache")
	}
	if second.Answer != first.Answer {
		t.Errorf("cached answer differs: %q vs %q", second.Answer, first.Answer)
	}
	if len(second.Sources) != len(first.Sources) {
		t.Errorf("cached sources differ: %v vs %v", second.Sources, first.Sources)
	}
	if second.ConversationID != first.ConversationID {
		t.Error("cached conversation ID differs")
	}
	if embedder.calls != embedCalls {
		t.Errorf("embedder called on cache hit: %d -> %d", embedCalls, embedder.calls)
	}
	if len(provider.calls) != llmCalls {
		t.Errorf("LLM called on cache hit: %d -> %d", llmCalls, len(provider.calls))
	}
}

func TestAsk_DifferentTopKMissesCache(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	embedder := &fakeEmbedder{}
	idx := seedIndex(t, map[string]string{"Doc": "some content"})

	svc := newTestService(t, provider, embedder, idx)

	if _, err := svc.Ask(ctx, Request{Query: "question", TopK: 5}); err != nil {
		t.Fatalf("Ask: %v", err)
	}
	resp, err := svc.Ask(ctx, Request{Query: "question", TopK: 3})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Cached {
		t.Error("different topK served from cache")
	}
}

func TestAsk_UnknownLanguageFallsBack(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	embedder := &fakeEmbedder{}
	idx := seedIndex(t, map[string]string{"Doc": "some content"})

	svc := newTestService(t, provider, embedder, idx)

	resp, err := svc.Ask(ctx, Request{Query: "question", Language: "xx"})
	if err != nil {
		t.Fatalf("Ask with unsupported language: %v", err)
	}
	if resp.Language != DefaultLanguage {
		t.Errorf("effective language: got %q, want %q", resp.Language, DefaultLanguage)
	}
	if !strings.Contains(provider.calls[0].Messages[0].Content, "Respond in English") {
		t.Error("fallback did not use the English instruction set")
	}
}

func TestAsk_PolishInstructionSet(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	embedder := &fakeEmbedder{}
	idx := seedIndex(t, map[string]string{"Doc": "some content"})

	svc := newTestService(t, provider, embedder, idx)

	resp, err := svc.Ask(ctx, Request{Query: "pytanie", Language: "PL"})
	if err != nil {
		t.Fatalf("Ask: %v", err)
	}
	if resp.Language != "pl" {
		t.Errorf("effective language: got %q, want pl", resp.Language)
	}
	if !strings.Contains(provider.calls[0].Messages[0].Content, "po polsku") {
		t.Error("Polish instruction set not selected")
	}
}

func TestAsk_ProviderErrorSurfaces(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{err: errors.New("model overloaded")}
	embedder := &fakeEmbedder{}
	idx := seedIndex(t, map[string]string{"Doc": "some content"})

	svc := newTestService(t, provider, embedder, idx)

	if _, err := svc.Ask(ctx, Request{Query: "question"}); err == nil {
		t.Fatal("provider error swallowed")
	}

	// A failed generation must not be cached.
	provider.err = nil
	resp, err := svc.Ask(ctx, Request{Query: "question"})
	if err != nil {
		t.Fatalf("Ask after provider recovery: %v", err)
	}
	if resp.Cached {
		t.Error("failed generation left a cache entry")
	}
}

func TestAsk_EmptyIndexStillAnswers(t *testing.T) {
	ctx := context.Background()
	provider := &fakeProvider{}
	embedder := &fakeEmbedder{}
	idx, err := index.NewChromemIndex(testDims)
	if err != nil {
		t.Fatalf("NewChromemIndex: %v", err)
	}

	svc := newTestService(t, provider, embedder, idx)

	resp, err := svc.Ask(ctx, Request{Query: "anything indexed?"})
	if err != nil {
		t.Fatalf("Ask against empty index: %v", err)
	}
	if len(resp.Sources) != 0 {
		t.Errorf("sources from empty index: %v", resp.Sources)
	}
	// The model still gets the question; its instructions handle the
	// empty context.
	if len(provider.calls) != 1 {
		t.Fatalf("provider calls: got %d, want 1", len(provider.calls))
	}
	if strings.Contains(provider.calls[0].Messages[1].Content, "Context:") {
		t.Error("empty retrieval produced a context block")
	}
}

func TestAssembleContext_TruncatesWholePassages(t *testing.T) {
	big := strings.Repeat("passage text ", 300) // ~3900 chars each
	var results []index.Result
	for i := 0; i < 8; i++ {
		results = append(results, index.Result{
			Record: index.Record{
				Content:  big,
				Metadata: index.Metadata{Title: fmt.Sprintf("Doc %d", i)},
			},
			Score: float32(8 - i),
		})
	}

	joined := assembleContext(results)

	if strings.Contains(joined, "Doc 6") || strings.Contains(joined, "Doc 7") {
		t.Error("passages beyond the truncated top were kept")
	}
	for i := 0; i < truncatedTopK; i++ {
		if !strings.Contains(joined, fmt.Sprintf("Doc %d", i)) {
			t.Errorf("top passage %d dropped by truncation", i)
		}
	}
}

func TestAssembleContext_KeepsAllUnderBudget(t *testing.T) {
	results := []index.Result{
		{Record: index.Record{Content: "short one", Metadata: index.Metadata{Title: "A"}}},
		{Record: index.Record{Content: "short two", Metadata: index.Metadata{Title: "B"}}},
	}
	joined := assembleContext(results)
	if !strings.Contains(joined, "short one") || !strings.Contains(joined, "short two") {
		t.Error("passages under budget were dropped")
	}
}

func TestCollectSources_DedupesInRankOrder(t *testing.T) {
	results := []index.Result{
		{Record: index.Record{Metadata: index.Metadata{Title: "Handbook"}}},
		{Record: index.Record{Metadata: index.Metadata{Title: "Runbook"}}},
		{Record: index.Record{Metadata: index.Metadata{Title: "Handbook"}}},
		{Record: index.Record{Metadata: index.Metadata{Title: ""}}},
	}
	sources := collectSources(results)
	if len(sources) != 2 || sources[0] != "Handbook" || sources[1] != "Runbook" {
		t.Errorf("sources: got %v, want [Handbook Runbook]", sources)
	}
}
