package chunker

import (
	"strings"
	"unicode/utf8"

	"github.com/docqa-io/docqa/internal/tokens"
)

// Default chunking parameters, all measured in tokens. 500-token chunks with
// 25% overlap retrieve precisely without losing cross-chunk context.
const (
	DefaultChunkSize    = 500
	DefaultChunkOverlap = 125
	DefaultMinChunkSize = 100
)

// approxCharsPerToken converts token budgets into character windows for
// boundary scanning.
const approxCharsPerToken = 4

// Chunk is one retrieval-sized passage of a document.
type Chunk struct {
	// Content is the passage text itself.
	Content string

	// FullContent is Content prefixed with the section header when one is
	// known, so the passage keeps its place in the document when shown alone.
	FullContent string

	// Index is the 0-based position of this chunk within its document.
	Index int

	// PageNumber is the page the passage came from, when the source had
	// page markers.
	PageNumber *int

	// SectionHeader is the title of the section the passage belongs to.
	SectionHeader *string
}

// Config controls how a Chunker splits text.
type Config struct {
	ChunkSize    int // target chunk size in tokens
	ChunkOverlap int // overlap between adjacent chunks in tokens
	MinChunkSize int // chunks below this merge into their predecessor
	Counter      tokens.Counter
}

// Chunker splits extracted document text into overlapping passages sized
// for embedding and retrieval.
type Chunker struct {
	chunkSize    int
	chunkOverlap int
	minChunkSize int
	counter      tokens.Counter
}

// New creates a Chunker. Zero config fields take the package defaults; a nil
// counter falls back to the 4-chars-per-token heuristic.
func New(cfg Config) *Chunker {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap <= 0 {
		cfg.ChunkOverlap = DefaultChunkOverlap
	}
	if cfg.MinChunkSize <= 0 {
		cfg.MinChunkSize = DefaultMinChunkSize
	}
	if cfg.Counter == nil {
		cfg.Counter = tokens.HeuristicCounter{}
	}
	return &Chunker{
		chunkSize:    cfg.ChunkSize,
		chunkOverlap: cfg.ChunkOverlap,
		minChunkSize: cfg.MinChunkSize,
		counter:      cfg.Counter,
	}
}

// Chunk splits text into passages. Sections are detected first (page
// markers, title lines, markdown headings) and chunked independently, so a
// passage never straddles a section boundary and always carries the page
// and header it belongs to. Whitespace-only input yields no chunks.
func (c *Chunker) Chunk(text string) []Chunk {
	if strings.TrimSpace(text) == "" {
		return nil
	}

	var chunks []Chunk
	for _, sec := range splitSections(text) {
		chunks = append(chunks, c.chunkSection(sec, len(chunks))...)
	}
	return chunks
}

// chunkSection windows one section into chunks, merging trailing pieces
// that fall below the minimum size into their predecessor. The first chunk
// of a section is kept even when small.
func (c *Chunker) chunkSection(sec section, startIndex int) []Chunk {
	if strings.TrimSpace(sec.text) == "" {
		return nil
	}

	var chunks []Chunk
	index := startIndex

	for _, piece := range c.splitWindows(sec.text) {
		piece = strings.TrimSpace(piece)
		if piece == "" {
			continue
		}

		if c.counter.Count(piece) < c.minChunkSize && len(chunks) > 0 {
			prev := &chunks[len(chunks)-1]
			prev.Content += "\n\n" + piece
			prev.FullContent = fullContent(prev.Content, prev.SectionHeader)
			continue
		}

		chunks = append(chunks, Chunk{
			Content:       piece,
			FullContent:   fullContent(piece, sec.header),
			Index:         index,
			PageNumber:    sec.page,
			SectionHeader: sec.header,
		})
		index++
	}

	return chunks
}

// splitWindows cuts section text into character windows of roughly the
// configured token size, preferring to break at a paragraph boundary, then
// at a sentence end, and only then at an arbitrary character. The break
// search is restricted to the trailing half of the window so a good early
// boundary never produces a degenerately short chunk. Consecutive windows
// overlap by the configured amount.
func (c *Chunker) splitWindows(text string) []string {
	window := c.chunkSize * approxCharsPerToken
	overlap := c.chunkOverlap * approxCharsPerToken

	var pieces []string
	start := 0
	for start < len(text) {
		end := start + window
		if end >= len(text) {
			pieces = append(pieces, text[start:])
			break
		}

		end = boundary(text, start, end, window)
		pieces = append(pieces, text[start:end])

		next := end - overlap
		if next <= start {
			// Keeps the scan advancing when overlap is at least half the
			// window.
			next = end
		}
		start = next
	}
	return pieces
}

// boundary moves the cut position back to the best break found in the
// trailing half of the window: a blank line first, then a sentence end. When
// neither exists there, the raw cut stands, adjusted to a rune boundary so a
// multi-byte character is never split.
func boundary(text string, start, end, window int) int {
	end = runeStart(text, end)
	win := text[start:end]
	half := window / 2

	if i := strings.LastIndex(win, "\n\n"); i > half {
		return start + i + 2
	}

	i := strings.LastIndex(win, ". ")
	for _, sep := range []string{".\n", "! ", "? "} {
		if j := strings.LastIndex(win, sep); j > i {
			i = j
		}
	}
	if i > half {
		return start + i + 2
	}

	return end
}

// runeStart walks i back to the nearest UTF-8 rune boundary.
func runeStart(s string, i int) int {
	for i > 0 && i < len(s) && !utf8.RuneStart(s[i]) {
		i--
	}
	return i
}

// fullContent derives the display form of a passage from its content and
// section header. The same inputs always produce the same output, including
// after small-chunk merges.
func fullContent(content string, header *string) string {
	if header != nil && *header != "" {
		return *header + "\n\n" + content
	}
	return content
}
