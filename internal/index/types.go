package index

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrPartialFailure reports that some sub-batches of an upsert were not
// indexed. The index may be missing records; callers may re-attempt the
// whole batch, which is safe because upserts are idempotent.
var ErrPartialFailure = errors.New("partial index failure")

// ErrDimensionMismatch reports a record whose vector does not match the
// index's configured dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Layer classifies a document within the knowledge base hierarchy.
type Layer string

const (
	LayerPolicy    Layer = "policy"
	LayerPrinciple Layer = "principle"
	LayerSOP       Layer = "sop"
)

// ValidLayer reports whether l is a recognized layer. The empty layer is
// valid and means unclassified.
func ValidLayer(l Layer) bool {
	switch l {
	case "", LayerPolicy, LayerPrinciple, LayerSOP:
		return true
	}
	return false
}

// Metadata is the denormalized document context carried by every record.
// Records sharing a DocumentID share Title, Layer, Category and Tags.
type Metadata struct {
	DocumentID    string
	Title         string
	Layer         Layer
	Category      string
	Tags          []string
	ChunkIndex    int
	PageNumber    int    // 0 when the source had no page markers
	SectionHeader string
	SourcePath    string
	UploadedAt    time.Time
}

// Record is one indexed passage: its text, its vector and its document
// context. ID is "{documentID}_{chunkIndex}" and unique across the index.
type Record struct {
	ID       string
	Content  string
	Vector   []float32
	Metadata Metadata
}

// Filter narrows a search or delete to records matching the given fields.
// Only these fields are filterable; zero values are ignored.
type Filter struct {
	DocumentID string
	Layer      Layer
	Category   string
}

// Validate rejects filters that the index cannot apply.
func (f *Filter) Validate() error {
	if f == nil {
		return nil
	}
	if !ValidLayer(f.Layer) {
		return fmt.Errorf("filter references unknown layer %q", f.Layer)
	}
	return nil
}

// Query describes one retrieval call. QueryText enables the keyword side
// of hybrid search; when empty the query is vector-only.
type Query struct {
	Vector    []float32
	QueryText string
	TopK      int
	Filter    *Filter
}

// Result pairs a record with its relevance score. For vector-only queries
// the score is cosine similarity; for hybrid queries it is the fused rank
// score, comparable only within one result set.
type Result struct {
	Record Record
	Score  float32
}

// DocumentInfo summarizes one indexed document for listings.
type DocumentInfo struct {
	DocumentID string    `json:"document_id"`
	Title      string    `json:"title"`
	Layer      Layer     `json:"layer,omitempty"`
	Category   string    `json:"category,omitempty"`
	Chunks     int       `json:"chunks"`
	UploadedAt time.Time `json:"uploaded_at"`
}

// Store is the retrieval index: vector plus keyword search over passage
// records. Implementations must be safe for concurrent use.
type Store interface {
	// UpsertBatch indexes records, splitting large batches internally.
	// Re-inserting an existing ID overwrites it in place. The bool is
	// true only when every sub-batch succeeded; on partial failure the
	// error wraps ErrPartialFailure.
	UpsertBatch(ctx context.Context, records []Record) (bool, error)

	// Search returns the top-ranked records for the query, hybrid when
	// QueryText is set and vector-only otherwise.
	Search(ctx context.Context, query Query) ([]Result, error)

	// DeleteByDocument removes every record of the given document and
	// returns how many were removed. Zero matches is success.
	DeleteByDocument(ctx context.Context, documentID string) (int, error)

	// Documents lists the indexed documents.
	Documents(ctx context.Context) ([]DocumentInfo, error)

	// Count returns the number of indexed records.
	Count() int

	// Persist writes a snapshot of the index to dir.
	Persist(dir string) error

	// Load restores a snapshot written by Persist.
	Load(dir string) error
}
