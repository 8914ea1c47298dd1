package chunker

import (
	"strconv"
	"strings"
	"unicode"
)

// pageMarkerPrefix introduces the page boundaries that extractors insert
// into the text, e.g. "--- Page 3 ---".
const pageMarkerPrefix = "--- Page"

// maxHeaderLen bounds how long a line can be and still count as an
// all-caps section title.
const maxHeaderLen = 100

// section is a structural slice of a document: the text between two
// headings or page markers, tagged with where it came from.
type section struct {
	text   string
	header *string
	page   *int
}

// splitSections cuts the document at structural cues, in priority order:
// page markers, all-caps title lines, then markdown headings. Text before
// the first cue becomes an untitled leading section. Marker and heading
// lines themselves are not part of any section's text.
func splitSections(text string) []section {
	var sections []section
	var lines []string
	var header *string
	var page *int

	flush := func() {
		if len(lines) > 0 {
			sections = append(sections, section{
				text:   strings.Join(lines, "\n"),
				header: header,
				page:   page,
			})
			lines = nil
		}
	}

	for _, line := range strings.Split(text, "\n") {
		stripped := strings.TrimSpace(line)

		if strings.HasPrefix(stripped, pageMarkerPrefix) {
			flush()
			page = parsePageNumber(stripped)
			header = nil
			continue
		}

		if stripped != "" && len(stripped) < maxHeaderLen && isAllCaps(stripped) {
			flush()
			header = headerText(stripped)
			continue
		}

		if strings.HasPrefix(stripped, "#") {
			flush()
			header = headerText(stripped)
			continue
		}

		lines = append(lines, line)
	}
	flush()

	// A document with no body lines at all (for example a single heading)
	// still yields one section so nothing is dropped.
	if len(sections) == 0 {
		return []section{{text: text}}
	}
	return sections
}

// parsePageNumber pulls the number out of a "--- Page N ---" marker.
// Returns nil when the marker is malformed.
func parsePageNumber(line string) *int {
	rest := strings.TrimPrefix(line, pageMarkerPrefix)
	if i := strings.Index(rest, "---"); i >= 0 {
		rest = rest[:i]
	}
	n, err := strconv.Atoi(strings.TrimSpace(rest))
	if err != nil {
		return nil
	}
	return &n
}

// headerText normalizes a heading line into its title text.
func headerText(line string) *string {
	h := strings.TrimSpace(strings.TrimLeft(line, "#"))
	return &h
}

// isAllCaps reports whether the line has the shape of a shouted section
// title: no lowercase letters and at least three letters, so stray "A" or
// "I." lines stay in the body.
func isAllCaps(s string) bool {
	letters := 0
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsLetter(r) {
			letters++
		}
	}
	return letters >= 3
}
