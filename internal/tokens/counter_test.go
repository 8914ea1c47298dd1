package tokens

import (
	"strings"
	"testing"
)

func TestHeuristicCounter(t *testing.T) {
	c := HeuristicCounter{}

	tests := []struct {
		text string
		want int
	}{
		{"", 0},
		{"abc", 0},
		{"abcd", 1},
		{strings.Repeat("x", 400), 100},
		{strings.Repeat("word ", 100), 125},
	}

	for _, tt := range tests {
		if got := c.Count(tt.text); got != tt.want {
			t.Errorf("Count(%d chars) = %d, want %d", len(tt.text), got, tt.want)
		}
	}

	if c.Name() != "heuristic" {
		t.Errorf("unexpected name %q", c.Name())
	}
}

func TestNewCounterNeverNil(t *testing.T) {
	c := NewCounter()
	if c == nil {
		t.Fatal("NewCounter returned nil")
	}
	if c.Count("hello world, this is a sentence.") <= 0 {
		t.Error("expected positive count for non-trivial text")
	}
}

func TestTiktokenCounter(t *testing.T) {
	c, err := NewTiktokenCounter()
	if err != nil {
		// The encoding is fetched over the network on first use; skip when
		// unavailable rather than fail.
		t.Skipf("cl100k_base encoding unavailable: %v", err)
	}

	if c.Count("") != 0 {
		t.Error("empty text should count zero tokens")
	}

	// "hello world" is two common words; the real tokenizer should count far
	// fewer tokens than one per character.
	n := c.Count("hello world")
	if n < 1 || n > 5 {
		t.Errorf("Count(\"hello world\") = %d, want a small positive count", n)
	}
}
