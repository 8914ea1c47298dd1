package cmd

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docqa-io/docqa/internal/index"
	"github.com/docqa-io/docqa/internal/ingest"
	"github.com/docqa-io/docqa/internal/progress"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path...]",
	Short: "Ingest documents into the knowledge base",
	Long: `Extracts, chunks, embeds and indexes the given documents. Paths may be
individual files or directories; directories are walked for supported
formats (PDF, DOCX, Markdown, plain text).`,
	Args: cobra.MinimumNArgs(1),
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().String("title", "", "document title (single-file ingest only)")
	ingestCmd.Flags().String("layer", "", "knowledge layer for the documents: policy, principle, sop")
	ingestCmd.Flags().String("category", "", "category tag for the documents")
	ingestCmd.Flags().StringSlice("include", nil, "glob patterns to include when walking directories (overrides config)")
	ingestCmd.Flags().StringSlice("exclude", nil, "glob patterns to exclude when walking directories")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	start := time.Now()
	ctx := context.Background()

	title, _ := cmd.Flags().GetString("title")
	layer, _ := cmd.Flags().GetString("layer")
	category, _ := cmd.Flags().GetString("category")
	include, _ := cmd.Flags().GetStringSlice("include")
	exclude, _ := cmd.Flags().GetStringSlice("exclude")

	if layer != "" && !index.ValidLayer(index.Layer(layer)) {
		return fmt.Errorf("unknown layer %q (expected policy, principle or sop)", layer)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}

	if len(include) == 0 {
		include = a.cfg.Include
	}
	if len(exclude) == 0 {
		exclude = a.cfg.Exclude
	}

	var ingested, failed int
	var failures []string

	for _, path := range args {
		info, err := os.Stat(path)
		if err != nil {
			return fmt.Errorf("stat %s: %w", path, err)
		}

		if info.IsDir() {
			result, err := ingestDirectory(ctx, a, path, ingest.BulkOptions{
				Include:  include,
				Exclude:  exclude,
				Layer:    index.Layer(layer),
				Category: category,
			})
			if err != nil {
				return err
			}
			ingested += result.Ingested
			failed += result.Failed
			for _, item := range result.Items {
				if item.Err != nil {
					failures = append(failures, fmt.Sprintf("%s: %v", item.Path, item.Err))
				}
			}
			continue
		}

		if _, err := a.ingestor.IngestFile(ctx, ingest.Request{
			Path:     path,
			Title:    title,
			Layer:    index.Layer(layer),
			Category: category,
		}); err != nil {
			failed++
			failures = append(failures, fmt.Sprintf("%s: %v", path, err))
			continue
		}
		ingested++
	}

	if err := a.persistIndex(); err != nil {
		return err
	}

	fmt.Println()
	fmt.Println("Ingestion complete!")
	fmt.Printf("  Documents ingested: %d\n", ingested)
	fmt.Printf("  Documents failed:   %d\n", failed)
	fmt.Printf("  Index records:      %d\n", a.index.Count())
	fmt.Printf("  Duration:           %s\n", time.Since(start).Round(time.Millisecond))

	if len(failures) > 0 {
		fmt.Fprintf(os.Stderr, "\nFailures (%d):\n", len(failures))
		for _, f := range failures {
			fmt.Fprintf(os.Stderr, "  - %s\n", f)
		}
	}
	return nil
}

// ingestDirectory runs a bulk ingestion with a progress bar.
func ingestDirectory(ctx context.Context, a *app, dir string, opts ingest.BulkOptions) (*ingest.BulkResult, error) {
	reporter := progress.NewReporter()
	started := false

	opts.OnProgress = func(done, total int, relPath string) {
		if !started {
			reporter.Start(total)
			started = true
		}
		reporter.Update(done, relPath)
	}

	result, err := a.ingestor.IngestDir(ctx, dir, opts)
	if started {
		reporter.Finish()
	}
	if err != nil {
		return nil, fmt.Errorf("ingesting %s: %w", dir, err)
	}
	return result, nil
}
