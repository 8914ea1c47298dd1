// Package ingest turns uploaded documents into indexed passages:
// extract, chunk, embed and upsert, with per-document locking so
// concurrent operations on the same document cannot interleave.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"github.com/docqa-io/docqa/internal/chunker"
	"github.com/docqa-io/docqa/internal/embeddings"
	"github.com/docqa-io/docqa/internal/extract"
	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/tokens"
	"github.com/docqa-io/docqa/internal/walker"
)

// ErrPartialDelete reports a document deletion where some steps succeeded
// and others failed. The DeleteResult carries the per-step breakdown.
var ErrPartialDelete = errors.New("document partially deleted")

// MaxFileSize caps the size of a single ingestable document.
const MaxFileSize = walker.DefaultMaxFileSize

// Request describes one document to ingest. Either Path or Filename+Data
// must be set. An empty DocumentID means a new document.
type Request struct {
	Path       string
	Filename   string
	Data       []byte
	DocumentID string
	Title      string
	Layer      index.Layer
	Category   string
	Tags       []string
}

// Result summarizes a completed ingestion.
type Result struct {
	DocumentID string        `json:"document_id"`
	Title      string        `json:"title"`
	Chunks     int           `json:"chunks"`
	Tokens     int           `json:"tokens"`
	Duration   time.Duration `json:"duration"`
}

// DeleteFailure names a deletion step that failed and why.
type DeleteFailure struct {
	Step   string `json:"step"`
	Reason string `json:"reason"`
}

// DeleteResult is the per-step outcome of a document deletion. Steps run
// in order: "index" (remove indexed records), then "file" (remove the
// stored original).
type DeleteResult struct {
	DocumentID     string          `json:"document_id"`
	Succeeded      []string        `json:"succeeded"`
	Failed         []DeleteFailure `json:"failed,omitempty"`
	RecordsRemoved int             `json:"records_removed"`
}

// Ingestor coordinates the extract → chunk → embed → index pipeline.
type Ingestor struct {
	chunker  *chunker.Chunker
	embedder embeddings.Embedder
	index    index.Store
	files    *FileStore
	counter  tokens.Counter
	log      *logrus.Logger
	locks    *keyedMutex
}

// New creates an Ingestor. files may be nil when originals should not be
// kept; a nil logger falls back to a default one.
func New(ch *chunker.Chunker, embedder embeddings.Embedder, store index.Store, files *FileStore, logger *logrus.Logger) *Ingestor {
	if logger == nil {
		logger = logrus.New()
	}
	return &Ingestor{
		chunker:  ch,
		embedder: embedder,
		index:    store,
		files:    files,
		counter:  tokens.NewCounter(),
		log:      logger,
		locks:    newKeyedMutex(),
	}
}

// IngestFile extracts, chunks, embeds and indexes one document. When the
// request names an existing DocumentID the old records are replaced
// atomically with respect to other operations on that document.
func (ing *Ingestor) IngestFile(ctx context.Context, req Request) (*Result, error) {
	if err := resolveRequest(&req); err != nil {
		return nil, err
	}

	documentID := req.DocumentID
	if documentID == "" {
		documentID = uuid.New().String()
	}

	unlock := ing.locks.lock(documentID)
	defer unlock()

	return ing.ingest(ctx, documentID, req)
}

// Update replaces an already-indexed document with new content under one
// lock hold. It fails when the document is not indexed.
func (ing *Ingestor) Update(ctx context.Context, documentID string, req Request) (*Result, error) {
	if err := resolveRequest(&req); err != nil {
		return nil, err
	}

	unlock := ing.locks.lock(documentID)
	defer unlock()

	if !ing.documentExists(ctx, documentID) {
		return nil, fmt.Errorf("document %s not found", documentID)
	}

	return ing.ingest(ctx, documentID, req)
}

// ingest does the pipeline work. The caller must hold the document lock.
func (ing *Ingestor) ingest(ctx context.Context, documentID string, req Request) (*Result, error) {
	start := time.Now()

	text, err := extract.Extract(req.Filename, req.Data)
	if err != nil {
		return nil, fmt.Errorf("extracting %s: %w", req.Filename, err)
	}

	chunks := ing.chunker.Chunk(text)
	if len(chunks) == 0 {
		return nil, fmt.Errorf("document %s has no extractable text", req.Filename)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.FullContent
	}

	vectors, err := ing.embedder.EmbedBatch(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("embedding %s: %w", req.Filename, err)
	}

	title := req.Title
	if title == "" {
		title = strings.TrimSuffix(req.Filename, filepath.Ext(req.Filename))
	}

	uploadedAt := time.Now().UTC()
	totalTokens := 0
	records := make([]index.Record, len(chunks))
	for i, c := range chunks {
		totalTokens += ing.counter.Count(c.Content)
		meta := index.Metadata{
			DocumentID: documentID,
			Title:      title,
			Layer:      req.Layer,
			Category:   req.Category,
			Tags:       req.Tags,
			ChunkIndex: c.Index,
			SourcePath: req.Path,
			UploadedAt: uploadedAt,
		}
		if c.PageNumber != nil {
			meta.PageNumber = *c.PageNumber
		}
		if c.SectionHeader != nil {
			meta.SectionHeader = *c.SectionHeader
		}
		records[i] = index.Record{
			ID:       fmt.Sprintf("%s_%d", documentID, c.Index),
			Content:  c.FullContent,
			Vector:   vectors[i],
			Metadata: meta,
		}
	}

	// Clear the previous generation only after the new one is fully
	// built, so a failed extraction or embedding never destroys data.
	if _, err := ing.index.DeleteByDocument(ctx, documentID); err != nil {
		return nil, fmt.Errorf("clearing previous records for %s: %w", documentID, err)
	}

	if _, err := ing.index.UpsertBatch(ctx, records); err != nil {
		return nil, fmt.Errorf("indexing %s: %w", req.Filename, err)
	}

	if ing.files != nil {
		if _, err := ing.files.Save(documentID, req.Filename, req.Data); err != nil {
			ing.log.WithError(err).WithField("document_id", documentID).
				Warn("indexed document but failed to store the original file")
		}
	}

	result := &Result{
		DocumentID: documentID,
		Title:      title,
		Chunks:     len(chunks),
		Tokens:     totalTokens,
		Duration:   time.Since(start),
	}

	ing.log.WithFields(logrus.Fields{
		"document_id": documentID,
		"title":       title,
		"chunks":      result.Chunks,
		"tokens":      result.Tokens,
		"duration":    result.Duration.Round(time.Millisecond),
	}).Info("document ingested")

	return result, nil
}

// Delete removes a document in two phases: indexed records, then the
// stored original. Each phase is attempted even when an earlier one
// failed; a mixed outcome returns the result plus ErrPartialDelete.
// Zero index matches and a missing file both count as success.
func (ing *Ingestor) Delete(ctx context.Context, documentID string) (*DeleteResult, error) {
	unlock := ing.locks.lock(documentID)
	defer unlock()

	res := &DeleteResult{DocumentID: documentID}

	removed, err := ing.index.DeleteByDocument(ctx, documentID)
	if err != nil {
		res.Failed = append(res.Failed, DeleteFailure{Step: "index", Reason: err.Error()})
	} else {
		res.Succeeded = append(res.Succeeded, "index")
		res.RecordsRemoved = removed
	}

	if ing.files != nil {
		if err := ing.files.Remove(documentID); err != nil {
			res.Failed = append(res.Failed, DeleteFailure{Step: "file", Reason: err.Error()})
		} else {
			res.Succeeded = append(res.Succeeded, "file")
		}
	} else {
		res.Succeeded = append(res.Succeeded, "file")
	}

	if len(res.Failed) > 0 {
		ing.log.WithField("document_id", documentID).
			WithField("failed_steps", len(res.Failed)).
			Warn("document deletion incomplete")
		return res, fmt.Errorf("deleting document %s: %w", documentID, ErrPartialDelete)
	}

	ing.log.WithFields(logrus.Fields{
		"document_id":     documentID,
		"records_removed": res.RecordsRemoved,
	}).Info("document deleted")

	return res, nil
}

func (ing *Ingestor) documentExists(ctx context.Context, documentID string) bool {
	docs, err := ing.index.Documents(ctx)
	if err != nil {
		return false
	}
	for _, d := range docs {
		if d.DocumentID == documentID {
			return true
		}
	}
	return false
}

// resolveRequest loads file contents when only a path was given and
// validates the request shape.
func resolveRequest(req *Request) error {
	if req.Path != "" && req.Data == nil {
		info, err := os.Stat(req.Path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", req.Path, err)
		}
		if info.Size() > MaxFileSize {
			return fmt.Errorf("file %s exceeds the %d MB limit", req.Path, MaxFileSize>>20)
		}
		data, err := os.ReadFile(req.Path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", req.Path, err)
		}
		req.Data = data
		if req.Filename == "" {
			req.Filename = filepath.Base(req.Path)
		}
	}

	if req.Filename == "" || req.Data == nil {
		return errors.New("ingest request needs a path or a filename plus data")
	}
	if int64(len(req.Data)) > MaxFileSize {
		return fmt.Errorf("file %s exceeds the %d MB limit", req.Filename, MaxFileSize>>20)
	}
	if !extract.SupportedExtension(req.Filename) {
		return fmt.Errorf("%s: %w", req.Filename, extract.ErrUnsupportedFormat)
	}
	if !index.ValidLayer(req.Layer) {
		return fmt.Errorf("unknown layer %q", req.Layer)
	}
	return nil
}
