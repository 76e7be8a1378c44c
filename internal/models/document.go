package models

import (
	"time"
)

// FileRef identifies one eligible file discovered under the document root,
// together with the category labels derived from its path position.
type FileRef struct {
	// Path is the absolute filesystem path of the file
	Path string `json:"path"`
	// FileName is the base name including extension
	FileName string `json:"file_name"`
	// Ext is the lowercased extension without the dot ("pdf")
	Ext string `json:"ext"`
	// Level1 and Level2 are the first two path segments below the root
	Level1 string `json:"level1"`
	Level2 string `json:"level2"`
	// RelativeSubpath is the directory path between the level2 directory
	// and the file; empty when the file sits directly in it
	RelativeSubpath string `json:"relative_subpath"`
}

// Document represents one indexed expense-report file. The JSON field
// names are the wire contract with the search index mapping; ID and
// SHA256 carry the same content digest, so identical bytes always map
// to the same index record regardless of path or trigger source.
type Document struct {
	ID         string    `json:"id"`
	Path       string    `json:"path"`
	FileName   string    `json:"file_name"`
	Level1     string    `json:"level1"`
	Level2     string    `json:"level2"`
	Title      string    `json:"title"`
	Content    string    `json:"content"`
	MediaType  string    `json:"media_type"`
	Ext        string    `json:"ext"`
	ModifiedAt time.Time `json:"modified_at"`
	SizeBytes  int64     `json:"size_bytes"`
	SHA256     string    `json:"sha256"`
	Suggest    []string  `json:"suggest"`
	// PageCount is filled for PDFs when the file could be read locally;
	// 0 means unknown, not an empty document.
	PageCount int `json:"page_count,omitempty"`
}

// SuggestionTerms builds the deduplicated autocomplete terms for a document:
// the two category labels and the title. Empty values are dropped and
// duplicates collapse to the first occurrence.
func SuggestionTerms(level1, level2, title string) []string {
	terms := make([]string, 0, 3)
	seen := make(map[string]struct{}, 3)
	for _, term := range []string{level1, level2, title} {
		if term == "" {
			continue
		}
		if _, ok := seen[term]; ok {
			continue
		}
		seen[term] = struct{}{}
		terms = append(terms, term)
	}
	return terms
}
