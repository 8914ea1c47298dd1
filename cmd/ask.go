package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/docqa-io/docqa/internal/answer"
	"github.com/docqa-io/docqa/internal/index"
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask the knowledge base a question",
	Long:  `Retrieves the most relevant passages from the index and generates an answer with source citations.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runAsk,
}

func init() {
	askCmd.Flags().String("language", "", "two-letter answer language code (overrides config)")
	askCmd.Flags().Int("top-k", 0, "number of passages to retrieve (overrides config)")
	askCmd.Flags().String("layer", "", "restrict retrieval to one layer: policy, principle, sop")
	askCmd.Flags().Bool("json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	language, _ := cmd.Flags().GetString("language")
	topK, _ := cmd.Flags().GetInt("top-k")
	layer, _ := cmd.Flags().GetString("layer")
	jsonOutput, _ := cmd.Flags().GetBool("json")

	if layer != "" && !index.ValidLayer(index.Layer(layer)) {
		return fmt.Errorf("unknown layer %q (expected policy, principle or sop)", layer)
	}

	a, err := buildApp()
	if err != nil {
		return err
	}

	if a.index.Count() == 0 {
		fmt.Println("The index is empty. Run `docqa ingest <path>` first.")
		return nil
	}

	if language == "" {
		language = a.cfg.Language
	}
	if topK == 0 {
		topK = a.cfg.TopK
	}

	resp, err := a.answer.Ask(ctx, answer.Request{
		Query:    args[0],
		Language: language,
		TopK:     topK,
		Layer:    index.Layer(layer),
	})
	if err != nil {
		return fmt.Errorf("answering failed: %w", err)
	}

	if jsonOutput {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(resp)
	}

	fmt.Println(resp.Answer)
	if len(resp.Sources) > 0 {
		fmt.Println("\nSources:")
		for _, src := range resp.Sources {
			fmt.Printf("  - %s\n", src)
		}
	}
	if verbose {
		cached := ""
		if resp.Cached {
			cached = " (cached)"
		}
		fmt.Fprintf(os.Stderr, "\nAnswered in %s%s\n", resp.Duration.Round(time.Millisecond), cached)
	}
	return nil
}
