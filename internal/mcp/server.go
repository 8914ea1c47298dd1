// Package mcp exposes the knowledge base to MCP clients over stdio:
// question answering through the orchestrator and raw passage search
// over the index.
package mcp

import (
	"github.com/mark3labs/mcp-go/server"

	"github.com/docqa-io/docqa/internal/answer"
	"github.com/docqa-io/docqa/internal/embeddings"
	"github.com/docqa-io/docqa/internal/index"
)

// Version is set via ldflags at build time.
var Version = "dev"

// Server wraps an MCP server exposing knowledge base tools.
type Server struct {
	answer   *answer.Service
	index    index.Store
	embedder embeddings.Embedder
	mcp      *server.MCPServer
}

// NewServer creates an MCP server with the given dependencies.
func NewServer(answerSvc *answer.Service, store index.Store, embedder embeddings.Embedder) *Server {
	s := &Server{
		answer:   answerSvc,
		index:    store,
		embedder: embedder,
	}

	s.mcp = server.NewMCPServer(
		"docqa",
		Version,
		server.WithToolCapabilities(false),
	)

	s.registerTools()

	return s
}

// registerTools adds all tool definitions and their handlers.
func (s *Server) registerTools() {
	s.mcp.AddTool(askKnowledgeBaseTool, s.handleAskKnowledgeBase)
	s.mcp.AddTool(searchDocumentsTool, s.handleSearchDocuments)
}

// Serve starts the MCP server on stdio. Stdout carries MCP protocol
// messages; all logging must go to stderr.
func (s *Server) Serve() error {
	return server.ServeStdio(s.mcp)
}
