package mcp

import (
	"context"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/docqa-io/docqa/internal/answer"
	"github.com/docqa-io/docqa/internal/index"
)

// handleAskKnowledgeBase runs the full answer pipeline for a question.
func (s *Server) handleAskKnowledgeBase(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	question, err := request.RequireString("question")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: question"), nil
	}

	resp, err := s.answer.Ask(ctx, answer.Request{
		Query:    question,
		Language: request.GetString("language", ""),
		TopK:     request.GetInt("top_k", 0),
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("answering failed: %v", err)), nil
	}

	var sb strings.Builder
	sb.WriteString(resp.Answer)
	if len(resp.Sources) > 0 {
		sb.WriteString("\n\nSources:\n")
		for _, src := range resp.Sources {
			sb.WriteString("- " + src + "\n")
		}
	}

	return mcp.NewToolResultText(sb.String()), nil
}

// handleSearchDocuments retrieves raw passages without generation.
func (s *Server) handleSearchDocuments(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
	query, err := request.RequireString("query")
	if err != nil {
		return mcp.NewToolResultError("missing required parameter: query"), nil
	}

	limit := request.GetInt("limit", 10)
	if limit <= 0 {
		limit = 10
	}

	var filter *index.Filter
	if layer := request.GetString("layer", ""); layer != "" {
		filter = &index.Filter{Layer: index.Layer(layer)}
	}

	vector, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("embedding query failed: %v", err)), nil
	}

	results, err := s.index.Search(ctx, index.Query{
		Vector:    vector,
		QueryText: query,
		TopK:      limit,
		Filter:    filter,
	})
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("search failed: %v", err)), nil
	}

	if len(results) == 0 {
		return mcp.NewToolResultText("No results found. The knowledge base may be empty; ingest documents with `docqa ingest`."), nil
	}

	return mcp.NewToolResultText(formatSearchResults(results)), nil
}

// formatSearchResults converts passages into a text format suited to AI
// agent consumption.
func formatSearchResults(results []index.Result) string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Found %d passage(s):\n", len(results)))

	for i, r := range results {
		meta := r.Record.Metadata
		sb.WriteString(fmt.Sprintf("\n--- Passage %d ---\n", i+1))
		sb.WriteString(fmt.Sprintf("Document: %s\n", meta.Title))
		if meta.Layer != "" {
			sb.WriteString(fmt.Sprintf("Layer: %s\n", meta.Layer))
		}
		if meta.Category != "" {
			sb.WriteString(fmt.Sprintf("Category: %s\n", meta.Category))
		}
		if meta.PageNumber > 0 {
			sb.WriteString(fmt.Sprintf("Page: %d\n", meta.PageNumber))
		}
		sb.WriteString(fmt.Sprintf("Score: %.4f\n", r.Score))
		sb.WriteString("\n")
		sb.WriteString(r.Record.Content)
		sb.WriteString("\n")
	}

	return sb.String()
}
