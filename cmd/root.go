package cmd

import (
	"github.com/spf13/cobra"

	"github.com/docqa-io/docqa/internal/config"
)

var (
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "docqa",
	Short: "Question answering over your document collection",
	Long: `docqa ingests PDF, DOCX, Markdown and plain-text documents into a
hybrid vector and keyword index, and answers natural language questions
about them with source citations. It runs as a CLI, an HTTP server, or
an MCP server for AI agent integration.`,
}

func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", config.DefaultConfigFile, "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
