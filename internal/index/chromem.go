package index

import (
	"context"
	"errors"
	"fmt"
	"sync"

	chromem "github.com/philippgille/chromem-go"
)

const collectionName = "passages"

// upsertBatchSize is the largest number of records written to the vector
// store in one call.
const upsertBatchSize = 100

// preRetrieveMultiplier over-fetches each side of a hybrid query before
// fusion, so a record ranked well by only one side can still reach the
// fused top-K.
const preRetrieveMultiplier = 4

// ChromemIndex implements Store with a chromem-go vector collection for
// the similarity side and an in-memory BM25 ranker for the keyword side.
// It keeps its own record set, which chromem cannot enumerate, for
// listings, deletions and persistence.
type ChromemIndex struct {
	db         *chromem.DB
	collection *chromem.Collection
	dimensions int

	mu       sync.RWMutex
	records  map[string]Record
	keywords *bm25Index
}

// NewChromemIndex creates an empty index accepting vectors of the given
// dimension.
func NewChromemIndex(dimensions int) (*ChromemIndex, error) {
	if dimensions <= 0 {
		return nil, fmt.Errorf("index dimension must be positive, got %d", dimensions)
	}

	db := chromem.NewDB()
	col, err := db.GetOrCreateCollection(collectionName, nil, rejectEmbedding)
	if err != nil {
		return nil, fmt.Errorf("create collection: %w", err)
	}

	return &ChromemIndex{
		db:         db,
		collection: col,
		dimensions: dimensions,
		records:    make(map[string]Record),
		keywords:   newBM25Index(),
	}, nil
}

// rejectEmbedding is the collection's embedding function. Every vector is
// computed by the embedder before indexing, so being asked to embed here
// means a record arrived without one.
func rejectEmbedding(context.Context, string) ([]float32, error) {
	return nil, errors.New("index requires precomputed vectors")
}

// Dimensions returns the vector dimension the index accepts.
func (s *ChromemIndex) Dimensions() int { return s.dimensions }

func (s *ChromemIndex) UpsertBatch(ctx context.Context, records []Record) (bool, error) {
	if len(records) == 0 {
		return true, nil
	}

	for _, r := range records {
		if len(r.Vector) != s.dimensions {
			return false, fmt.Errorf("record %s has %d-dimension vector, index expects %d: %w",
				r.ID, len(r.Vector), s.dimensions, ErrDimensionMismatch)
		}
	}

	var failed int
	var firstErr error

	for i := 0; i < len(records); i += upsertBatchSize {
		end := i + upsertBatchSize
		if end > len(records) {
			end = len(records)
		}
		batch := records[i:end]

		docs := make([]chromem.Document, len(batch))
		for j, r := range batch {
			docs[j] = chromem.Document{
				ID:        r.ID,
				Content:   r.Content,
				Embedding: r.Vector,
				Metadata:  whereFields(r.Metadata),
			}
		}

		if err := s.collection.AddDocuments(ctx, docs, 1); err != nil {
			failed += len(batch)
			if firstErr == nil {
				firstErr = err
			}
			continue
		}

		s.mu.Lock()
		for _, r := range batch {
			s.records[r.ID] = r
			s.keywords.Add(r.ID, r.Content)
		}
		s.mu.Unlock()
	}

	if failed > 0 {
		return false, fmt.Errorf("%w: %d of %d records not indexed: %v",
			ErrPartialFailure, failed, len(records), firstErr)
	}
	return true, nil
}

func (s *ChromemIndex) Search(ctx context.Context, query Query) ([]Result, error) {
	if err := query.Filter.Validate(); err != nil {
		return nil, err
	}
	if len(query.Vector) != s.dimensions {
		return nil, fmt.Errorf("query vector has %d dimensions, index expects %d: %w",
			len(query.Vector), s.dimensions, ErrDimensionMismatch)
	}

	topK := query.TopK
	if topK <= 0 {
		topK = 10
	}

	allowed, matching := s.matchingIDs(query.Filter)
	if matching == 0 {
		return nil, nil
	}

	fetch := topK * preRetrieveMultiplier
	if fetch > matching {
		fetch = matching
	}

	vectorHits, err := s.collection.QueryEmbedding(ctx, query.Vector, fetch, whereClause(query.Filter), nil)
	if err != nil {
		return nil, fmt.Errorf("vector query: %w", err)
	}

	if query.QueryText == "" {
		return s.vectorResults(vectorHits, topK), nil
	}

	keywordHits := s.keywords.Search(query.QueryText, fetch, allowed)
	return s.fusedResults(vectorHits, keywordHits, topK), nil
}

// vectorResults converts chromem hits into Results scored by cosine
// similarity.
func (s *ChromemIndex) vectorResults(hits []chromem.Result, topK int) []Result {
	s.mu.RLock()
	defer s.mu.RUnlock()

	results := make([]Result, 0, topK)
	for _, h := range hits {
		rec, ok := s.records[h.ID]
		if !ok {
			continue
		}
		results = append(results, Result{Record: rec, Score: h.Similarity})
		if len(results) == topK {
			break
		}
	}
	return results
}

// rrfK dampens the contribution of lower ranks in reciprocal rank fusion.
const rrfK = 60

// fusedResults merges the vector and keyword rankings with reciprocal rank
// fusion: each record scores the sum of 1/(rrfK + rank) over the lists it
// appears in, so agreement between the two sides outranks a high position
// in either one alone.
func (s *ChromemIndex) fusedResults(vectorHits []chromem.Result, keywordHits []bm25Hit, topK int) []Result {
	scores := make(map[string]float32)
	for rank, h := range vectorHits {
		scores[h.ID] += 1.0 / float32(rrfK+rank+1)
	}
	for rank, h := range keywordHits {
		scores[h.id] += 1.0 / float32(rrfK+rank+1)
	}

	s.mu.RLock()
	results := make([]Result, 0, len(scores))
	for id, score := range scores {
		if rec, ok := s.records[id]; ok {
			results = append(results, Result{Record: rec, Score: score})
		}
	}
	s.mu.RUnlock()

	sortResults(results)
	if len(results) > topK {
		results = results[:topK]
	}
	return results
}

func (s *ChromemIndex) DeleteByDocument(ctx context.Context, documentID string) (int, error) {
	s.mu.RLock()
	var ids []string
	for id, r := range s.records {
		if r.Metadata.DocumentID == documentID {
			ids = append(ids, id)
		}
	}
	s.mu.RUnlock()

	// Deleting a document that is not indexed is a no-op, not an error.
	if len(ids) == 0 {
		return 0, nil
	}

	if err := s.collection.Delete(ctx, nil, nil, ids...); err != nil {
		return 0, fmt.Errorf("deleting document %s: %w", documentID, err)
	}

	s.mu.Lock()
	for _, id := range ids {
		delete(s.records, id)
		s.keywords.Remove(id)
	}
	s.mu.Unlock()

	return len(ids), nil
}

func (s *ChromemIndex) Documents(_ context.Context) ([]DocumentInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	byDoc := make(map[string]*DocumentInfo)
	for _, r := range s.records {
		info, ok := byDoc[r.Metadata.DocumentID]
		if !ok {
			info = &DocumentInfo{
				DocumentID: r.Metadata.DocumentID,
				Title:      r.Metadata.Title,
				Layer:      r.Metadata.Layer,
				Category:   r.Metadata.Category,
				UploadedAt: r.Metadata.UploadedAt,
			}
			byDoc[r.Metadata.DocumentID] = info
		}
		info.Chunks++
	}

	docs := make([]DocumentInfo, 0, len(byDoc))
	for _, info := range byDoc {
		docs = append(docs, *info)
	}
	sortDocuments(docs)
	return docs, nil
}

func (s *ChromemIndex) Count() int {
	return s.collection.Count()
}

// matchingIDs returns the set of record IDs passing the filter and its
// size. A nil set with a non-zero count means no filtering is needed.
func (s *ChromemIndex) matchingIDs(filter *Filter) (map[string]bool, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if filter == nil || (*filter == Filter{}) {
		return nil, len(s.records)
	}

	allowed := make(map[string]bool)
	for id, r := range s.records {
		if filter.DocumentID != "" && r.Metadata.DocumentID != filter.DocumentID {
			continue
		}
		if filter.Layer != "" && r.Metadata.Layer != filter.Layer {
			continue
		}
		if filter.Category != "" && r.Metadata.Category != filter.Category {
			continue
		}
		allowed[id] = true
	}
	return allowed, len(allowed)
}

// whereFields flattens the filterable metadata fields for chromem.
func whereFields(m Metadata) map[string]string {
	return map[string]string{
		"document_id": m.DocumentID,
		"layer":       string(m.Layer),
		"category":    m.Category,
	}
}

// whereClause converts a Filter to a chromem where clause.
func whereClause(filter *Filter) map[string]string {
	if filter == nil {
		return nil
	}

	where := make(map[string]string)
	if filter.DocumentID != "" {
		where["document_id"] = filter.DocumentID
	}
	if filter.Layer != "" {
		where["layer"] = string(filter.Layer)
	}
	if filter.Category != "" {
		where["category"] = filter.Category
	}

	if len(where) == 0 {
		return nil
	}
	return where
}
