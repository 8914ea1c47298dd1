package index

import (
	"math"
	"sort"
	"strings"
	"sync"
	"unicode"
)

// BM25 ranking constants: k1 controls term-frequency saturation, b controls
// document-length normalization.
const (
	bm25K1 = 1.2
	bm25B  = 0.75
)

// bm25Index is the keyword side of hybrid search: a small in-memory BM25
// ranker over record contents. It supports removal so upserts stay
// idempotent and document deletion prunes the keyword side too.
type bm25Index struct {
	mu       sync.RWMutex
	docs     map[string][]string // record ID -> tokens
	docFreq  map[string]int      // term -> number of records containing it
	totalLen int
}

func newBM25Index() *bm25Index {
	return &bm25Index{
		docs:    make(map[string][]string),
		docFreq: make(map[string]int),
	}
}

// Add indexes content under id, replacing any previous content for id.
func (b *bm25Index) Add(id, content string) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.removeLocked(id)

	tokens := tokenize(content)
	b.docs[id] = tokens
	b.totalLen += len(tokens)
	for _, term := range uniqueTerms(tokens) {
		b.docFreq[term]++
	}
}

// Remove drops id from the index. Removing an absent id is a no-op.
func (b *bm25Index) Remove(id string) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.removeLocked(id)
}

func (b *bm25Index) removeLocked(id string) {
	tokens, ok := b.docs[id]
	if !ok {
		return
	}
	delete(b.docs, id)
	b.totalLen -= len(tokens)
	for _, term := range uniqueTerms(tokens) {
		if b.docFreq[term] <= 1 {
			delete(b.docFreq, term)
		} else {
			b.docFreq[term]--
		}
	}
}

// bm25Hit is one keyword-ranked record.
type bm25Hit struct {
	id    string
	score float64
}

// Search ranks records by BM25 score against query, returning at most topK
// hits. When allowed is non-nil, only ids present in it are considered.
func (b *bm25Index) Search(query string, topK int, allowed map[string]bool) []bm25Hit {
	terms := tokenize(query)
	if len(terms) == 0 || topK <= 0 {
		return nil
	}

	b.mu.RLock()
	defer b.mu.RUnlock()

	n := len(b.docs)
	if n == 0 {
		return nil
	}
	avgLen := float64(b.totalLen) / float64(n)

	var hits []bm25Hit
	for id, tokens := range b.docs {
		if allowed != nil && !allowed[id] {
			continue
		}

		freq := make(map[string]int, len(tokens))
		for _, t := range tokens {
			freq[t]++
		}

		var score float64
		docLen := float64(len(tokens))
		for _, term := range terms {
			tf := float64(freq[term])
			if tf == 0 {
				continue
			}
			df := float64(b.docFreq[term])
			idf := math.Log((float64(n)-df+0.5)/(df+0.5) + 1)
			score += idf * (tf * (bm25K1 + 1)) / (tf + bm25K1*(1-bm25B+bm25B*docLen/avgLen))
		}
		if score > 0 {
			hits = append(hits, bm25Hit{id: id, score: score})
		}
	}

	sort.Slice(hits, func(i, j int) bool { return hits[i].score > hits[j].score })
	if len(hits) > topK {
		hits = hits[:topK]
	}
	return hits
}

// tokenize lowercases text and splits it on non-letter, non-digit runs,
// trimming leading and trailing punctuation from each token.
func tokenize(text string) []string {
	fields := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return unicode.IsSpace(r)
	})

	tokens := make([]string, 0, len(fields))
	for _, f := range fields {
		f = strings.TrimFunc(f, func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		})
		if f != "" {
			tokens = append(tokens, f)
		}
	}
	return tokens
}

func uniqueTerms(tokens []string) []string {
	seen := make(map[string]bool, len(tokens))
	out := make([]string, 0, len(tokens))
	for _, t := range tokens {
		if !seen[t] {
			seen[t] = true
			out = append(out, t)
		}
	}
	return out
}
