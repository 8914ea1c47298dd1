package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	mcpserver "github.com/docqa-io/docqa/internal/mcp"
)

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server for AI agent integration",
	Long:  `Starts a Model Context Protocol (MCP) server on stdio, exposing knowledge base tools for AI agents.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := buildApp()
		if err != nil {
			return err
		}

		// Stdout carries the MCP protocol; everything else goes to stderr.
		mcpserver.Version = Version
		fmt.Fprintf(os.Stderr, "docqa MCP server started on stdio (%d records indexed)\n", a.index.Count())

		srv := mcpserver.NewServer(a.answer, a.index, a.embedder)
		return srv.Serve()
	},
}

func init() {
	rootCmd.AddCommand(mcpCmd)
}
