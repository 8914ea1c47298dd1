package extract

import (
	"fmt"
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// extractMarkdown walks the markdown AST and re-emits block content as
// plain text: headings become "#"-prefixed lines (the chunker's heading
// cue), paragraph and code-block text is kept verbatim, everything else
// (HTML blocks, thematic breaks) is dropped.
func extractMarkdown(data []byte) (string, error) {
	root := goldmark.New().Parser().Parse(text.NewReader(data))

	var sb strings.Builder
	err := ast.Walk(root, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		if !entering {
			return ast.WalkContinue, nil
		}

		switch node := n.(type) {
		case *ast.Heading:
			title := strings.TrimSpace(blockText(node, data))
			if title != "" {
				sb.WriteString(strings.Repeat("#", node.Level) + " " + title + "\n")
			}
			return ast.WalkSkipChildren, nil

		case *ast.Paragraph, *ast.TextBlock:
			body := strings.TrimSpace(blockText(n, data))
			if body != "" {
				sb.WriteString(body + "\n\n")
			}
			return ast.WalkSkipChildren, nil

		case *ast.FencedCodeBlock, *ast.CodeBlock:
			sb.WriteString(blockText(n, data))
			sb.WriteString("\n")
			return ast.WalkSkipChildren, nil
		}

		return ast.WalkContinue, nil
	})
	if err != nil {
		return "", fmt.Errorf("walking markdown: %w", err)
	}

	return sb.String(), nil
}

// blockText joins the raw source lines backing a block node.
func blockText(n ast.Node, source []byte) string {
	var sb strings.Builder
	lines := n.Lines()
	for i := 0; i < lines.Len(); i++ {
		seg := lines.At(i)
		sb.Write(seg.Value(source))
	}
	return sb.String()
}
