// Package store holds the ordered document metadata store, row-aligned with
// the vector index.
package store

import (
	"sort"

	"github.com/hyperjump/rinsho/internal/models"
)

// DocumentStore is an append-only ordered collection of documents. A
// document's ID is its row position; the store must always hold exactly as
// many rows as the vector index it is paired with.
//
// Stores are used as immutable snapshots: Append returns a new store and
// leaves the receiver untouched, so in-flight readers keep a consistent view
// while a mutation builds the next snapshot.
type DocumentStore struct {
	docs []models.Document
}

// New creates a store over a copy of docs.
func New(docs []models.Document) *DocumentStore {
	copied := make([]models.Document, len(docs))
	copy(copied, docs)
	return &DocumentStore{docs: copied}
}

// Len returns the number of documents.
func (s *DocumentStore) Len() int {
	return len(s.docs)
}

// Get returns the document with the given ID (row position).
func (s *DocumentStore) Get(id int) (models.Document, bool) {
	if id < 0 || id >= len(s.docs) {
		return models.Document{}, false
	}
	return s.docs[id], true
}

// All returns a copy of the documents in insertion order.
func (s *DocumentStore) All() []models.Document {
	out := make([]models.Document, len(s.docs))
	copy(out, s.docs)
	return out
}

// Append returns a new store with docs added at the end. The backing slice
// is copied rather than aliased so older snapshots never observe the append.
func (s *DocumentStore) Append(docs []models.Document) *DocumentStore {
	combined := make([]models.Document, 0, len(s.docs)+len(docs))
	combined = append(combined, s.docs...)
	combined = append(combined, docs...)
	return &DocumentStore{docs: combined}
}

// CountByType returns document counts keyed by the metadata "type" value.
// Documents without a type are counted under "unknown".
func (s *DocumentStore) CountByType() map[string]int {
	counts := make(map[string]int)
	for i := range s.docs {
		typ := s.docs[i].Type()
		if typ == "" {
			typ = "unknown"
		}
		counts[typ]++
	}
	return counts
}

// Categories returns the sorted distinct non-empty metadata "category"
// values across all documents.
func (s *DocumentStore) Categories() []string {
	seen := make(map[string]struct{})
	for i := range s.docs {
		if c := s.docs[i].Category(); c != "" {
			seen[c] = struct{}{}
		}
	}
	out := make([]string, 0, len(seen))
	for c := range seen {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}
