package ingest

import (
	"context"
	"fmt"

	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/walker"
)

// BulkOptions controls directory ingestion.
type BulkOptions struct {
	Include  []string
	Exclude  []string
	Layer    index.Layer
	Category string

	// OnProgress, when set, is called after each file with the number of
	// files processed so far, the total, and the file's relative path.
	OnProgress func(done, total int, relPath string)
}

// BulkItem is the outcome for one file of a bulk ingestion.
type BulkItem struct {
	Path   string
	Result *Result
	Err    error
}

// BulkResult summarizes a directory ingestion.
type BulkResult struct {
	Items    []BulkItem
	Ingested int
	Failed   int
}

// IngestDir walks root for ingestable documents and ingests each match.
// Per-file failures are collected rather than aborting the walk; the
// context cancels the whole run.
func (ing *Ingestor) IngestDir(ctx context.Context, root string, opts BulkOptions) (*BulkResult, error) {
	files, err := walker.Walk(walker.Config{
		RootDir: root,
		Include: opts.Include,
		Exclude: opts.Exclude,
	})
	if err != nil {
		return nil, fmt.Errorf("walking %s: %w", root, err)
	}

	result := &BulkResult{}
	for i, file := range files {
		if err := ctx.Err(); err != nil {
			return result, err
		}

		res, err := ing.IngestFile(ctx, Request{
			Path:     file.Path,
			Layer:    opts.Layer,
			Category: opts.Category,
		})

		item := BulkItem{Path: file.Path, Result: res, Err: err}
		result.Items = append(result.Items, item)
		if err != nil {
			result.Failed++
		} else {
			result.Ingested++
		}

		if opts.OnProgress != nil {
			opts.OnProgress(i+1, len(files), file.RelPath)
		}
	}

	return result, nil
}
