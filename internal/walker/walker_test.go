package walker

import (
	"os"
	"path/filepath"
	"testing"
)

// docTree builds a temp directory with a representative document layout.
func docTree(t *testing.T) string {
	t.Helper()

	dir := t.TempDir()
	files := map[string]string{
		"handbook.pdf":             "%PDF-1.4 fake",
		"policies/security.docx":   "PK fake",
		"policies/leave.md":        "# Leave Policy",
		"notes.txt":                "plain notes",
		"README.markdown":          "# readme",
		"archive.zip":              "PK zip",
		"image.png":                "\x89PNG",
		".hidden.md":               "dotted file",
		".obsidian/workspace.json": "{}",
		"node_modules/pkg/doc.md":  "vendored",
	}
	for rel, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(rel))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write %s: %v", rel, err)
		}
	}
	return dir
}

func relPaths(files []FileInfo) map[string]bool {
	set := map[string]bool{}
	for _, f := range files {
		set[f.RelPath] = true
	}
	return set
}

func TestWalk_DefaultIncludes(t *testing.T) {
	files, err := Walk(Config{RootDir: docTree(t)})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := relPaths(files)
	for _, want := range []string{
		"handbook.pdf",
		"policies/security.docx",
		"policies/leave.md",
		"notes.txt",
		"README.markdown",
	} {
		if !got[want] {
			t.Errorf("expected %q in results, got %v", want, got)
		}
	}
	for _, unwanted := range []string{"archive.zip", "image.png"} {
		if got[unwanted] {
			t.Errorf("non-document %q let through", unwanted)
		}
	}
}

func TestWalk_SkipsDottedEntries(t *testing.T) {
	files, err := Walk(Config{RootDir: docTree(t)})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := relPaths(files)
	if got[".hidden.md"] {
		t.Error("dotted file was not skipped")
	}
	if got[".obsidian/workspace.json"] {
		t.Error("dotted directory was not skipped")
	}
	if got["node_modules/pkg/doc.md"] {
		t.Error("node_modules was not skipped")
	}
}

func TestWalk_IncludeFilter(t *testing.T) {
	files, err := Walk(Config{
		RootDir: docTree(t),
		Include: []string{"**/*.md"},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := relPaths(files)
	if !got["policies/leave.md"] {
		t.Errorf("nested .md not matched: %v", got)
	}
	if got["handbook.pdf"] || got["notes.txt"] {
		t.Errorf("include filter let non-matching files through: %v", got)
	}
}

func TestWalk_ExcludeFilter(t *testing.T) {
	files, err := Walk(Config{
		RootDir: docTree(t),
		Exclude: []string{"policies/**"},
	})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := relPaths(files)
	if got["policies/leave.md"] || got["policies/security.docx"] {
		t.Errorf("exclude filter did not apply: %v", got)
	}
	if !got["handbook.pdf"] {
		t.Errorf("exclude filter removed unrelated files: %v", got)
	}
}

func TestWalk_SkipsOversizedFiles(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "small.txt"), []byte("ok"), 0o644); err != nil {
		t.Fatal(err)
	}
	big := make([]byte, 200)
	if err := os.WriteFile(filepath.Join(dir, "big.txt"), big, 0o644); err != nil {
		t.Fatal(err)
	}

	files, err := Walk(Config{RootDir: dir, MaxFileSize: 100})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}

	got := relPaths(files)
	if got["big.txt"] {
		t.Error("oversized file was not skipped")
	}
	if !got["small.txt"] {
		t.Error("small file missing from results")
	}
}

func TestWalk_FileInfoFields(t *testing.T) {
	files, err := Walk(Config{RootDir: docTree(t)})
	if err != nil {
		t.Fatalf("Walk: %v", err)
	}
	if len(files) == 0 {
		t.Fatal("no files returned")
	}
	for _, f := range files {
		if !filepath.IsAbs(f.Path) {
			t.Errorf("Path not absolute: %s", f.Path)
		}
		if f.RelPath == "" {
			t.Error("RelPath is empty")
		}
		if f.Size <= 0 {
			t.Errorf("Size for %s is %d", f.RelPath, f.Size)
		}
	}
}

func TestMatchesInclude(t *testing.T) {
	tests := []struct {
		relPath  string
		patterns []string
		want     bool
	}{
		{"handbook.pdf", nil, true},
		{"handbook.pdf", []string{"*.pdf"}, true},
		{"policies/leave.md", []string{"**/*.md"}, true},
		{"policies/leave.md", []string{"*.md"}, true}, // bare-filename fallback
		{"handbook.pdf", []string{"*.md"}, false},
	}
	for _, tt := range tests {
		if got := MatchesInclude(tt.relPath, tt.patterns); got != tt.want {
			t.Errorf("MatchesInclude(%q, %v): got %v, want %v", tt.relPath, tt.patterns, got, tt.want)
		}
	}
}

func TestMatchesExclude(t *testing.T) {
	tests := []struct {
		relPath  string
		patterns []string
		want     bool
	}{
		{"handbook.pdf", nil, false},
		{"drafts/wip.md", []string{"drafts/**"}, true},
		{"handbook.pdf", []string{"drafts/**"}, false},
	}
	for _, tt := range tests {
		if got := MatchesExclude(tt.relPath, tt.patterns); got != tt.want {
			t.Errorf("MatchesExclude(%q, %v): got %v, want %v", tt.relPath, tt.patterns, got, tt.want)
		}
	}
}
