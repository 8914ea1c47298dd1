// Package extract turns uploaded document files into plain text carrying
// the structural markers the chunker understands: "--- Page N ---" lines
// for page boundaries and "#"-prefixed lines for headings.
package extract

import (
	"errors"
	"fmt"
	"path/filepath"
	"strings"
)

// ErrUnsupportedFormat reports a file extension the extractor cannot
// handle. It is fatal to that document only.
var ErrUnsupportedFormat = errors.New("unsupported document format")

// Extract returns the plain text of a document, dispatching on the file
// extension (case-insensitive). Supported: .pdf, .docx, .txt, .md,
// .markdown.
func Extract(filename string, data []byte) (string, error) {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf":
		return extractPDF(data)
	case ".docx":
		return extractDOCX(data)
	case ".md", ".markdown":
		return extractMarkdown(data)
	case ".txt":
		return extractText(data)
	default:
		return "", fmt.Errorf("%w: %q", ErrUnsupportedFormat, filepath.Ext(filename))
	}
}

// SupportedExtension reports whether Extract can handle the file.
func SupportedExtension(filename string) bool {
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".pdf", ".docx", ".md", ".markdown", ".txt":
		return true
	}
	return false
}

// extractText passes UTF-8 text through, replacing invalid byte sequences
// so downstream stages never see broken encoding.
func extractText(data []byte) (string, error) {
	return strings.ToValidUTF8(string(data), "�"), nil
}
