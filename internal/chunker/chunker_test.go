package chunker

import (
	"fmt"
	"strings"
	"testing"

	"github.com/docqa-io/docqa/internal/tokens"
)

// sentences produces n numbered sentences of predictable length. Token
// counts in these tests use the 4-chars-per-token heuristic, which is exact
// by construction but lower fidelity than the real tokenizer.
func sentences(n int) []string {
	out := make([]string, n)
	for i := range out {
		out[i] = fmt.Sprintf("This is sentence number %03d of the corpus, padded out for length.", i)
	}
	return out
}

func defaultChunker() *Chunker {
	return New(Config{Counter: tokens.HeuristicCounter{}})
}

func TestChunkEmptyInput(t *testing.T) {
	c := defaultChunker()

	for _, text := range []string{"", "   ", "\n\n\t\n"} {
		if got := c.Chunk(text); len(got) != 0 {
			t.Errorf("Chunk(%q) = %d chunks, want 0", text, len(got))
		}
	}
}

func TestChunkShortTextSingleChunk(t *testing.T) {
	c := defaultChunker()
	text := "A short document that fits comfortably in one chunk."

	chunks := c.Chunk(text)
	if len(chunks) != 1 {
		t.Fatalf("expected 1 chunk, got %d", len(chunks))
	}
	if chunks[0].Content != text {
		t.Errorf("content = %q, want input text", chunks[0].Content)
	}
	if chunks[0].Index != 0 {
		t.Errorf("index = %d, want 0", chunks[0].Index)
	}
	if chunks[0].SectionHeader != nil || chunks[0].PageNumber != nil {
		t.Error("plain text should carry no section or page metadata")
	}
}

func TestChunkCoverage(t *testing.T) {
	c := defaultChunker()
	sents := sentences(120)
	text := strings.Join(sents, " ")

	chunks := c.Chunk(text)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks for %d chars, got %d", len(text), len(chunks))
	}

	var joined strings.Builder
	for _, ch := range chunks {
		joined.WriteString(ch.Content)
		joined.WriteString("\n")
	}
	all := joined.String()

	for _, s := range sents {
		if !strings.Contains(all, s) {
			t.Errorf("sentence %q missing from chunk output", s)
		}
	}
}

func TestChunkBreaksAtSentenceBoundaries(t *testing.T) {
	c := defaultChunker()
	text := strings.Join(sentences(120), " ")

	chunks := c.Chunk(text)
	for i, ch := range chunks[:len(chunks)-1] {
		last := ch.Content[len(ch.Content)-1]
		if last != '.' && last != '!' && last != '?' {
			t.Errorf("chunk %d ends mid-sentence: ...%q", i, ch.Content[len(ch.Content)-20:])
		}
	}
}

func TestChunkOverlapBound(t *testing.T) {
	counter := tokens.HeuristicCounter{}
	c := New(Config{Counter: counter})
	text := strings.Join(sentences(150), " ")

	chunks := c.Chunk(text)
	if len(chunks) < 3 {
		t.Fatalf("expected several chunks, got %d", len(chunks))
	}

	// Every adjacent pair except the final one should share close to the
	// configured 125-token overlap.
	for i := 0; i < len(chunks)-2; i++ {
		a, b := chunks[i].Content, chunks[i+1].Content
		shared := longestSuffixPrefix(a, b)
		got := counter.Count(b[:shared])
		if got < 100 || got > 150 {
			t.Errorf("chunks %d/%d overlap by %d tokens, want ~%d", i, i+1, got, DefaultChunkOverlap)
		}
	}
}

// longestSuffixPrefix returns the length of the longest suffix of a that is
// also a prefix of b.
func longestSuffixPrefix(a, b string) int {
	max := len(a)
	if len(b) < max {
		max = len(b)
	}
	for l := max; l > 0; l-- {
		if strings.HasSuffix(a, b[:l]) {
			return l
		}
	}
	return 0
}

func TestChunkMergesSmallTrailingPiece(t *testing.T) {
	// Small windows make the merge path reachable with the heuristic
	// counter: a 270-char section cut at ~200 leaves a tail under the
	// 30-token minimum.
	c := New(Config{
		ChunkSize:    50,
		ChunkOverlap: 10,
		MinChunkSize: 30,
		Counter:      tokens.HeuristicCounter{},
	})

	var b strings.Builder
	for b.Len() < 270 {
		b.WriteString("Filler prose continues onward. ")
	}
	text := b.String()[:270]

	chunks := c.Chunk(text)
	if len(chunks) == 0 {
		t.Fatal("no chunks produced")
	}

	for i, ch := range chunks {
		if i == 0 {
			continue
		}
		if got := (tokens.HeuristicCounter{}).Count(ch.Content); got < 30 {
			t.Errorf("chunk %d has %d tokens, below the minimum after merging", i, got)
		}
	}
}

func TestChunkKeepsSmallFirstChunkOfSection(t *testing.T) {
	c := defaultChunker()
	text := "INTRODUCTION\nJust a few words.\n\nMAIN PART\n" + strings.Join(sentences(40), " ")

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected chunks from both sections, got %d", len(chunks))
	}

	first := chunks[0]
	if first.SectionHeader == nil || *first.SectionHeader != "INTRODUCTION" {
		t.Fatalf("first chunk header = %v, want INTRODUCTION", first.SectionHeader)
	}
	if first.Content != "Just a few words." {
		t.Errorf("small leading section should survive intact, got %q", first.Content)
	}
}

func TestChunkSectionAndPageMetadata(t *testing.T) {
	c := defaultChunker()
	text := "--- Page 1 ---\n" +
		"Opening text on the first page. " + strings.Join(sentences(10), " ") + "\n" +
		"--- Page 2 ---\n" +
		"SAFETY RULES\n" +
		"Rules body on page two. " + strings.Join(sentences(10), " ") + "\n" +
		"--- Page 3 ---\n" +
		"Closing text on the final page."

	chunks := c.Chunk(text)
	if len(chunks) != 3 {
		t.Fatalf("expected 3 chunks, got %d", len(chunks))
	}

	if chunks[0].PageNumber == nil || *chunks[0].PageNumber != 1 {
		t.Errorf("chunk 0 page = %v, want 1", chunks[0].PageNumber)
	}
	if chunks[0].SectionHeader != nil {
		t.Errorf("chunk 0 header = %q, want none", *chunks[0].SectionHeader)
	}

	if chunks[1].PageNumber == nil || *chunks[1].PageNumber != 2 {
		t.Errorf("chunk 1 page = %v, want 2", chunks[1].PageNumber)
	}
	if chunks[1].SectionHeader == nil || *chunks[1].SectionHeader != "SAFETY RULES" {
		t.Errorf("chunk 1 header = %v, want SAFETY RULES", chunks[1].SectionHeader)
	}
	if !strings.HasPrefix(chunks[1].FullContent, "SAFETY RULES\n\n") {
		t.Errorf("full content should carry the header prefix, got %q", chunks[1].FullContent[:40])
	}
	if strings.HasPrefix(chunks[1].Content, "SAFETY RULES") {
		t.Error("content itself should not include the header line")
	}

	if chunks[2].PageNumber == nil || *chunks[2].PageNumber != 3 {
		t.Errorf("chunk 2 page = %v, want 3", chunks[2].PageNumber)
	}
}

func TestChunkMarkdownHeadings(t *testing.T) {
	c := defaultChunker()
	text := "## Deployment Process\nFollow the runbook steps in order.\n" +
		"### Rollback\nRevert the release tag and redeploy."

	chunks := c.Chunk(text)
	if len(chunks) != 2 {
		t.Fatalf("expected 2 chunks, got %d", len(chunks))
	}
	if chunks[0].SectionHeader == nil || *chunks[0].SectionHeader != "Deployment Process" {
		t.Errorf("chunk 0 header = %v, want Deployment Process", chunks[0].SectionHeader)
	}
	if chunks[1].SectionHeader == nil || *chunks[1].SectionHeader != "Rollback" {
		t.Errorf("chunk 1 header = %v, want Rollback", chunks[1].SectionHeader)
	}
}

func TestChunkIndicesContiguous(t *testing.T) {
	c := defaultChunker()
	text := "--- Page 1 ---\n" + strings.Join(sentences(60), " ") +
		"\nDETAILS\n" + strings.Join(sentences(60), " ")

	chunks := c.Chunk(text)
	if len(chunks) < 2 {
		t.Fatalf("expected multiple chunks, got %d", len(chunks))
	}
	for i, ch := range chunks {
		if ch.Index != i {
			t.Errorf("chunk %d carries index %d", i, ch.Index)
		}
	}
}

func TestSplitSectionsHeaderRules(t *testing.T) {
	text := "intro line\n" +
		"SHORT TITLE\n" +
		"body under title\n" +
		"not a header because lowercase\n" +
		strings.Repeat("X", 120) + "\n" +
		"tail line"

	secs := splitSections(text)
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	if secs[0].header != nil {
		t.Errorf("leading section header = %q, want none", *secs[0].header)
	}
	if secs[1].header == nil || *secs[1].header != "SHORT TITLE" {
		t.Fatalf("section header = %v, want SHORT TITLE", secs[1].header)
	}
	// The over-long caps line is treated as body text, not a header.
	if !strings.Contains(secs[1].text, strings.Repeat("X", 120)) {
		t.Error("long all-caps line should stay in the section body")
	}
}

func TestSplitSectionsShortCapsLinesAreBody(t *testing.T) {
	// Uppercase lines with fewer than three letters ("A", "I.", "OK") are
	// ordinary prose, not section titles.
	text := "intro paragraph\n" +
		"A\n" +
		"I.\n" +
		"OK\n" +
		"REAL HEADER\n" +
		"section body"

	secs := splitSections(text)
	if len(secs) != 2 {
		t.Fatalf("expected 2 sections, got %d", len(secs))
	}
	for _, line := range []string{"A", "I.", "OK"} {
		if !strings.Contains(secs[0].text, line) {
			t.Errorf("line %q should stay in the leading section body", line)
		}
	}
	if secs[1].header == nil || *secs[1].header != "REAL HEADER" {
		t.Fatalf("section header = %v, want REAL HEADER", secs[1].header)
	}
}

func TestParsePageNumber(t *testing.T) {
	tests := []struct {
		line string
		want *int
	}{
		{"--- Page 4 ---", intPtr(4)},
		{"--- Page 12 ---", intPtr(12)},
		{"--- Page ---", nil},
		{"--- Page abc ---", nil},
	}
	for _, tt := range tests {
		got := parsePageNumber(tt.line)
		switch {
		case tt.want == nil && got != nil:
			t.Errorf("parsePageNumber(%q) = %d, want nil", tt.line, *got)
		case tt.want != nil && (got == nil || *got != *tt.want):
			t.Errorf("parsePageNumber(%q) = %v, want %d", tt.line, got, *tt.want)
		}
	}
}

func intPtr(n int) *int { return &n }
