package index

import (
	"compress/gzip"
	"context"
	"encoding/gob"
	"fmt"
	"os"
	"path/filepath"
	"sort"
)

// snapshotFile is the index snapshot inside the persistence directory.
const snapshotFile = "index.gob.gz"

// Persist writes every record to dir as a compressed gob snapshot. The
// snapshot carries the records themselves rather than chromem's internal
// state, so Load can rebuild both the vector collection and the keyword
// side from one file.
func (s *ChromemIndex) Persist(dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating snapshot directory: %w", err)
	}

	s.mu.RLock()
	records := make([]Record, 0, len(s.records))
	for _, r := range s.records {
		records = append(records, r)
	}
	s.mu.RUnlock()

	path := filepath.Join(dir, snapshotFile)
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("creating snapshot %s: %w", path, err)
	}
	defer f.Close()

	gz := gzip.NewWriter(f)
	if err := gob.NewEncoder(gz).Encode(records); err != nil {
		return fmt.Errorf("encoding snapshot: %w", err)
	}
	if err := gz.Close(); err != nil {
		return fmt.Errorf("flushing snapshot: %w", err)
	}
	return f.Close()
}

// Load replaces the index contents with a snapshot written by Persist,
// re-adding every record to a fresh collection and rebuilding the keyword
// index.
func (s *ChromemIndex) Load(dir string) error {
	path := filepath.Join(dir, snapshotFile)
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("opening snapshot %s: %w", path, err)
	}
	defer f.Close()

	gz, err := gzip.NewReader(f)
	if err != nil {
		return fmt.Errorf("reading snapshot %s: %w", path, err)
	}
	defer gz.Close()

	var records []Record
	if err := gob.NewDecoder(gz).Decode(&records); err != nil {
		return fmt.Errorf("decoding snapshot %s: %w", path, err)
	}

	if err := s.reset(); err != nil {
		return err
	}

	if _, err := s.UpsertBatch(context.Background(), records); err != nil {
		return fmt.Errorf("rebuilding index from snapshot: %w", err)
	}
	return nil
}

// reset discards the collection and all bookkeeping.
func (s *ChromemIndex) reset() error {
	if err := s.db.DeleteCollection(collectionName); err != nil {
		return fmt.Errorf("dropping collection: %w", err)
	}
	col, err := s.db.GetOrCreateCollection(collectionName, nil, rejectEmbedding)
	if err != nil {
		return fmt.Errorf("recreating collection: %w", err)
	}

	s.mu.Lock()
	s.collection = col
	s.records = make(map[string]Record)
	s.keywords = newBM25Index()
	s.mu.Unlock()
	return nil
}

// sortResults orders results by score descending, breaking ties by ID so
// output is deterministic.
func sortResults(results []Result) {
	sort.Slice(results, func(i, j int) bool {
		if results[i].Score != results[j].Score {
			return results[i].Score > results[j].Score
		}
		return results[i].Record.ID < results[j].Record.ID
	})
}

// sortDocuments orders document listings newest-first, breaking ties by ID.
func sortDocuments(docs []DocumentInfo) {
	sort.Slice(docs, func(i, j int) bool {
		if !docs[i].UploadedAt.Equal(docs[j].UploadedAt) {
			return docs[i].UploadedAt.After(docs[j].UploadedAt)
		}
		return docs[i].DocumentID < docs[j].DocumentID
	})
}
