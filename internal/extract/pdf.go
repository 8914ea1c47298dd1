package extract

import (
	"bytes"
	"fmt"
	"strings"

	"github.com/ledongthuc/pdf"
)

// extractPDF pulls the plain text of every page, joining pages with
// "--- Page N ---" markers so the chunker can attribute page numbers.
// Pages whose text cannot be decoded are skipped rather than failing the
// whole document.
func extractPDF(data []byte) (string, error) {
	reader, err := pdf.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("reading pdf: %w", err)
	}

	var sb strings.Builder
	for pageNum := 1; pageNum <= reader.NumPage(); pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			continue
		}

		text, err := page.GetPlainText(nil)
		if err != nil || strings.TrimSpace(text) == "" {
			continue
		}

		fmt.Fprintf(&sb, "--- Page %d ---\n", pageNum)
		sb.WriteString(strings.TrimSpace(text))
		sb.WriteString("\n")
	}

	return sb.String(), nil
}
