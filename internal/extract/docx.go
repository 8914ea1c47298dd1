package extract

import (
	"archive/zip"
	"bytes"
	"encoding/xml"
	"fmt"
	"io"
	"strconv"
	"strings"
)

// documentXMLPath is where the body text lives inside the DOCX container.
const documentXMLPath = "word/document.xml"

// extractDOCX reads the paragraphs of a Word document. Paragraphs styled
// as headings become "#"-prefixed lines at the matching depth so the
// chunker's heading cue fires on them.
func extractDOCX(data []byte) (string, error) {
	zr, err := zip.NewReader(bytes.NewReader(data), int64(len(data)))
	if err != nil {
		return "", fmt.Errorf("opening docx container: %w", err)
	}

	var doc io.ReadCloser
	for _, f := range zr.File {
		if f.Name == documentXMLPath {
			doc, err = f.Open()
			if err != nil {
				return "", fmt.Errorf("opening %s: %w", documentXMLPath, err)
			}
			break
		}
	}
	if doc == nil {
		return "", fmt.Errorf("docx container has no %s", documentXMLPath)
	}
	defer doc.Close()

	return parseDocumentXML(doc)
}

// parseDocumentXML walks the WordprocessingML token stream, collecting run
// text per paragraph and noting the paragraph style.
func parseDocumentXML(r io.Reader) (string, error) {
	dec := xml.NewDecoder(r)

	var sb strings.Builder
	var paragraph strings.Builder
	var style string

	flush := func() {
		text := strings.TrimSpace(paragraph.String())
		paragraph.Reset()
		if text == "" {
			style = ""
			return
		}
		if prefix := headingPrefix(style); prefix != "" {
			sb.WriteString(prefix + " " + text + "\n")
		} else {
			sb.WriteString(text + "\n\n")
		}
		style = ""
	}

	for {
		tok, err := dec.Token()
		if err == io.EOF {
			break
		}
		if err != nil {
			return "", fmt.Errorf("parsing %s: %w", documentXMLPath, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			switch t.Name.Local {
			case "pStyle":
				for _, attr := range t.Attr {
					if attr.Name.Local == "val" {
						style = attr.Value
					}
				}
			case "t":
				var text string
				if err := dec.DecodeElement(&text, &t); err == nil {
					paragraph.WriteString(text)
				}
			case "tab":
				paragraph.WriteString("\t")
			case "br":
				paragraph.WriteString("\n")
			}
		case xml.EndElement:
			if t.Name.Local == "p" {
				flush()
			}
		}
	}
	flush()

	return sb.String(), nil
}

// headingPrefix maps Word heading styles ("Heading1".."Heading9", "Title")
// to markdown heading markers. Other styles get no prefix.
func headingPrefix(style string) string {
	if style == "Title" {
		return "#"
	}
	if level, ok := strings.CutPrefix(style, "Heading"); ok {
		if n, err := strconv.Atoi(level); err == nil && n >= 1 && n <= 9 {
			return strings.Repeat("#", n)
		}
	}
	return ""
}
