package conversation

import (
	"context"
	"strings"
	"testing"

	"github.com/docqa-io/docqa/internal/db"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()

	database, err := db.OpenMemory()
	if err != nil {
		t.Fatalf("OpenMemory: %v", err)
	}
	t.Cleanup(func() { database.Close() })

	return NewStore(database)
}

func TestAppendAndGet(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	first := Turn{
		ConversationID: "conv-1",
		Question:       "What is the vacation policy?",
		Answer:         "25 days per year.",
		Sources:        []string{"Employee Handbook"},
		Language:       "en",
	}
	if err := store.Append(ctx, first); err != nil {
		t.Fatalf("Append: %v", err)
	}

	second := Turn{
		ConversationID: "conv-1",
		Question:       "Does it carry over?",
		Answer:         "Up to 5 days.",
		Sources:        []string{"Employee Handbook", "Leave Policy"},
		Language:       "en",
		Cached:         true,
	}
	if err := store.Append(ctx, second); err != nil {
		t.Fatalf("Append second: %v", err)
	}

	conv, err := store.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}

	if len(conv.Turns) != 2 {
		t.Fatalf("turns: got %d, want 2", len(conv.Turns))
	}
	if conv.Turns[0].Question != first.Question {
		t.Errorf("turns not oldest-first: first question is %q", conv.Turns[0].Question)
	}
	if !conv.Turns[1].Cached {
		t.Error("cached flag lost")
	}
	if len(conv.Turns[1].Sources) != 2 || conv.Turns[1].Sources[1] != "Leave Policy" {
		t.Errorf("sources round-trip: got %v", conv.Turns[1].Sources)
	}
	if conv.Turns[0].Rating != nil {
		t.Error("unrated turn has a rating")
	}
}

func TestAppendGeneratesIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	turn := Turn{Question: "hello", Answer: "hi", Language: "en"}
	if err := store.Append(ctx, turn); err != nil {
		t.Fatalf("Append: %v", err)
	}

	summaries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 1 {
		t.Fatalf("summaries: got %d, want 1", len(summaries))
	}
	if summaries[0].ID == "" {
		t.Error("conversation ID was not generated")
	}
}

func TestGetUnknownConversation(t *testing.T) {
	store := newTestStore(t)

	_, err := store.Get(context.Background(), "missing")
	if err == nil {
		t.Fatal("expected error for unknown conversation")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error: %v", err)
	}
}

func TestList(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, turn := range []Turn{
		{ConversationID: "a", Question: "first in a", Answer: "x", Language: "en"},
		{ConversationID: "a", Question: "second in a", Answer: "y", Language: "en"},
		{ConversationID: "b", Question: "first in b", Answer: "z", Language: "pl"},
	} {
		if err := store.Append(ctx, turn); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	summaries, err := store.List(ctx, 10)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Fatalf("summaries: got %d, want 2", len(summaries))
	}

	byID := map[string]Summary{}
	for _, s := range summaries {
		byID[s.ID] = s
	}
	if byID["a"].Turns != 2 {
		t.Errorf("conversation a turns: got %d, want 2", byID["a"].Turns)
	}
	if byID["a"].FirstQuestion != "first in a" {
		t.Errorf("FirstQuestion: got %q", byID["a"].FirstQuestion)
	}
	if byID["b"].Language != "pl" {
		t.Errorf("language: got %q", byID["b"].Language)
	}
}

func TestListLimit(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, id := range []string{"a", "b", "c"} {
		if err := store.Append(ctx, Turn{ConversationID: id, Question: "q", Answer: "a", Language: "en"}); err != nil {
			t.Fatalf("Append: %v", err)
		}
	}

	summaries, err := store.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(summaries) != 2 {
		t.Errorf("summaries: got %d, want 2", len(summaries))
	}
}

func TestRate(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	turn := Turn{ID: "turn-1", ConversationID: "conv-1", Question: "q", Answer: "a", Language: "en"}
	if err := store.Append(ctx, turn); err != nil {
		t.Fatalf("Append: %v", err)
	}

	if err := store.Rate(ctx, "turn-1", 1, "helpful"); err != nil {
		t.Fatalf("Rate: %v", err)
	}

	conv, err := store.Get(ctx, "conv-1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	got := conv.Turns[0]
	if got.Rating == nil || *got.Rating != 1 {
		t.Errorf("rating: got %v, want +1", got.Rating)
	}
	if got.Feedback != "helpful" {
		t.Errorf("feedback: got %q", got.Feedback)
	}
}

func TestRateInvalidValue(t *testing.T) {
	store := newTestStore(t)

	if err := store.Rate(context.Background(), "turn-1", 5, ""); err == nil {
		t.Error("rating of 5 accepted")
	}
}

func TestRateUnknownTurn(t *testing.T) {
	store := newTestStore(t)

	err := store.Rate(context.Background(), "missing", -1, "")
	if err == nil {
		t.Fatal("expected error for unknown turn")
	}
	if !strings.Contains(err.Error(), "not found") {
		t.Errorf("error: %v", err)
	}
}

func TestRatings(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for i, id := range []string{"t1", "t2", "t3"} {
		turn := Turn{ID: id, ConversationID: "conv-1", Question: "q", Answer: "a", Language: "en"}
		if err := store.Append(ctx, turn); err != nil {
			t.Fatalf("Append %d: %v", i, err)
		}
	}
	if err := store.Rate(ctx, "t1", 1, ""); err != nil {
		t.Fatalf("Rate t1: %v", err)
	}
	if err := store.Rate(ctx, "t2", -1, ""); err != nil {
		t.Fatalf("Rate t2: %v", err)
	}

	stats, err := store.Ratings(ctx)
	if err != nil {
		t.Fatalf("Ratings: %v", err)
	}
	if stats.Rated != 2 || stats.Up != 1 || stats.Down != 1 {
		t.Errorf("stats: got %+v", stats)
	}
}
