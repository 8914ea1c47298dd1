package cmd

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/docqa-io/docqa/internal/ingest"
)

var documentsCmd = &cobra.Command{
	Use:     "documents",
	Aliases: []string{"docs"},
	Short:   "Manage indexed documents",
}

var documentsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runDocumentsList,
}

var documentsDeleteCmd = &cobra.Command{
	Use:   "delete [document-id]",
	Short: "Delete a document from the index and file store",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentsDelete,
}

func init() {
	documentsListCmd.Flags().Bool("json", false, "output as JSON")
	documentsCmd.AddCommand(documentsListCmd)
	documentsCmd.AddCommand(documentsDeleteCmd)
	rootCmd.AddCommand(documentsCmd)
}

func runDocumentsList(cmd *cobra.Command, args []string) error {
	jsonOutput, _ := cmd.Flags().GetBool("json")

	a, err := buildApp()
	if err != nil {
		return err
	}

	docs, err := a.index.Documents(context.Background())
	if err != nil {
		return fmt.Errorf("listing documents: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("No documents indexed. Run `docqa ingest <path>` first.")
		return nil
	}

	fmt.Printf("%d document(s):\n\n", len(docs))
	for _, d := range docs {
		fmt.Printf("  %s\n", d.DocumentID)
		fmt.Printf("    Title:  %s\n", d.Title)
		if d.Layer != "" {
			fmt.Printf("    Layer:  %s\n", d.Layer)
		}
		if d.Category != "" {
			fmt.Printf("    Category: %s\n", d.Category)
		}
		fmt.Printf("    Chunks: %d\n\n", d.Chunks)
	}
	return nil
}

func runDocumentsDelete(cmd *cobra.Command, args []string) error {
	a, err := buildApp()
	if err != nil {
		return err
	}

	result, err := a.ingestor.Delete(context.Background(), args[0])
	if err != nil && !errors.Is(err, ingest.ErrPartialDelete) {
		return fmt.Errorf("deleting document: %w", err)
	}

	if persistErr := a.persistIndex(); persistErr != nil {
		return persistErr
	}

	if errors.Is(err, ingest.ErrPartialDelete) {
		fmt.Fprintf(os.Stderr, "Partial deletion of %s:\n", result.DocumentID)
		for _, step := range result.Succeeded {
			fmt.Fprintf(os.Stderr, "  ok:     %s\n", step)
		}
		for _, f := range result.Failed {
			fmt.Fprintf(os.Stderr, "  failed: %s (%s)\n", f.Step, f.Reason)
		}
		return err
	}

	fmt.Printf("Deleted %s (%d records removed)\n", result.DocumentID, result.RecordsRemoved)
	return nil
}
