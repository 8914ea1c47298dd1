package mcp

import "github.com/mark3labs/mcp-go/mcp"

// askKnowledgeBaseTool defines the ask_knowledge_base MCP tool.
var askKnowledgeBaseTool = mcp.NewTool("ask_knowledge_base",
	mcp.WithDescription("Ask the company knowledge base a question. Returns a generated answer with source document titles."),
	mcp.WithString("question",
		mcp.Required(),
		mcp.Description("Natural language question"),
	),
	mcp.WithString("language",
		mcp.Description("Two-letter answer language code (default en)"),
	),
	mcp.WithNumber("top_k",
		mcp.Description("How many passages to retrieve (default 7)"),
	),
)

// searchDocumentsTool defines the search_documents MCP tool.
var searchDocumentsTool = mcp.NewTool("search_documents",
	mcp.WithDescription("Search indexed documents for relevant passages without generating an answer."),
	mcp.WithString("query",
		mcp.Required(),
		mcp.Description("Natural language search query"),
	),
	mcp.WithNumber("limit",
		mcp.Description("Maximum number of passages to return (default 10)"),
	),
	mcp.WithString("layer",
		mcp.Description("Restrict results to one knowledge layer"),
		mcp.Enum("policy", "principle", "sop"),
	),
)
