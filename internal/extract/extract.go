package extract

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/mbarberony/localrag/pkg/types"
)

// Extractor turns one source file into plain text.
type Extractor interface {
	// Extract reads the file at path and returns either its text or a
	// machine-readable reason the text could not be produced. Failures
	// are values, not errors: the ingestion pipeline aggregates reasons
	// into the failures log and keeps going.
	Extract(path string) types.ExtractResult
}

// Registry maps lowercase file extensions (with dot) to extractors.
type Registry map[string]Extractor

// NewRegistry returns the default extractor set. Plain-text formats are
// handled directly; office and PDF formats register unavailable
// extractors that surface a missing_dep reason instead of silently
// skipping the files.
func NewRegistry() Registry {
	return Registry{
		".txt":  PlainText{},
		".md":   PlainText{},
		".docx": Unavailable{Dep: "docx"},
		".pptx": Unavailable{Dep: "pptx"},
		".xlsx": Unavailable{Dep: "xlsx"},
		".pdf":  Unavailable{Dep: "pdf"},
	}
}

// For returns the extractor for a path's extension, if any.
func (r Registry) For(path string) (Extractor, bool) {
	e, ok := r[strings.ToLower(filepath.Ext(path))]
	return e, ok
}

// Supported reports whether the registry handles the path's extension.
func (r Registry) Supported(path string) bool {
	_, ok := r.For(path)
	return ok
}

// ShouldSkipFilename reports whether a file should be ignored during
// discovery regardless of extension. Office lock files and macOS
// metadata are never documents.
func ShouldSkipFilename(name string) bool {
	return strings.HasPrefix(name, "~$") || name == ".DS_Store"
}

// PlainText reads the file bytes as UTF-8 text.
type PlainText struct{}

// Extract implements Extractor. A readable but whitespace-only file is a
// successful extraction with empty text; callers decide how to record it.
func (PlainText) Extract(path string) types.ExtractResult {
	data, err := os.ReadFile(path)
	if err != nil {
		return types.ExtractResult{OK: false, Reason: "read_error"}
	}
	return types.ExtractResult{OK: true, Text: strings.TrimSpace(string(data))}
}

// Unavailable stands in for a format whose parsing backend is not
// compiled in. Every file of the format produces a stable missing_dep
// failure reason, so operators can see exactly which documents were
// passed over and why.
type Unavailable struct {
	Dep string
}

// Extract implements Extractor.
func (u Unavailable) Extract(path string) types.ExtractResult {
	return types.ExtractResult{OK: false, Reason: "missing_dep:" + u.Dep}
}
