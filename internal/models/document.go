// Package models defines core data structures for documents, queries, and search results.
package models

// Metadata key conventions. The engine treats metadata opaquely except for
// these two keys: "type" drives the stats breakdown and "category" drives
// filtered search.
const (
	MetaType     = "type"
	MetaCategory = "category"
)

// Document is a knowledge base entry: free text plus arbitrary metadata.
// Documents are append-only and never mutated after ingestion; a document's
// ID is its row position in the metadata store.
type Document struct {
	Text     string                 `json:"text"`
	Metadata map[string]interface{} `json:"metadata,omitempty"`
}

// Type returns the metadata "type" value, or "" when absent or not a string.
func (d *Document) Type() string {
	return d.metaString(MetaType)
}

// Category returns the metadata "category" value, or "" when absent or not a string.
func (d *Document) Category() string {
	return d.metaString(MetaCategory)
}

func (d *Document) metaString(key string) string {
	if d.Metadata == nil {
		return ""
	}
	if v, ok := d.Metadata[key].(string); ok {
		return v
	}
	return ""
}
