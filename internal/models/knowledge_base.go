package models

import "strings"

// KnowledgeEntry is one keyword -> response pair of the local knowledge base.
// Entries without keywords are only reachable through embedding match.
type KnowledgeEntry struct {
	Keywords []string `json:"keywords" yaml:"keywords"`
	Response string   `json:"response" yaml:"response"`
}

// EmbeddingText is the text embedded for semantic matching: keywords joined
// by "; ", or the response when there are no keywords.
func (e KnowledgeEntry) EmbeddingText() string {
	if text := strings.Join(e.Keywords, "; "); text != "" {
		return text
	}
	return e.Response
}

// KnowledgeStatus describes the currently loaded knowledge base.
type KnowledgeStatus struct {
	EntriesCount int      `json:"entries_count"`
	MTime        *float64 `json:"mtime"` // unix seconds, nil when the file is absent
	Source       string   `json:"source"`
	Reloads      int64    `json:"reloads"`
}
