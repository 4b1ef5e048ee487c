// Package grounding renders retrieval results into prompt context for a
// downstream generative service, with source attributions kept alongside.
package grounding

import (
	"fmt"
	"strings"

	"github.com/hyperjump/rinsho/internal/models"
)

// Source identifies where a context passage came from.
type Source struct {
	Rank     int     `json:"rank"`
	Score    float64 `json:"score"`
	Type     string  `json:"type,omitempty"`
	Category string  `json:"category,omitempty"`
	Origin   string  `json:"origin,omitempty"`
}

// BuildContext formats ranked results as numbered passages. Each passage
// carries its category and source so the generated answer can cite them.
// An empty result set yields an empty string.
func BuildContext(results []models.SearchResult) string {
	if len(results) == 0 {
		return ""
	}
	var b strings.Builder
	for i, r := range results {
		if i > 0 {
			b.WriteString("\n\n")
		}
		doc := models.Document{Metadata: r.Metadata}
		fmt.Fprintf(&b, "[%d]", r.Rank)
		if c := doc.Category(); c != "" {
			fmt.Fprintf(&b, " %s", c)
		}
		if o := origin(r.Metadata); o != "" {
			fmt.Fprintf(&b, " (%s)", o)
		}
		b.WriteString("\n")
		b.WriteString(strings.TrimSpace(r.Text))
	}
	return b.String()
}

// Sources returns the attribution list matching BuildContext's passages.
func Sources(results []models.SearchResult) []Source {
	if len(results) == 0 {
		return nil
	}
	out := make([]Source, 0, len(results))
	for _, r := range results {
		doc := models.Document{Metadata: r.Metadata}
		out = append(out, Source{
			Rank:     r.Rank,
			Score:    r.Score,
			Type:     doc.Type(),
			Category: doc.Category(),
			Origin:   origin(r.Metadata),
		})
	}
	return out
}

func origin(meta map[string]interface{}) string {
	if meta == nil {
		return ""
	}
	if s, ok := meta["source"].(string); ok {
		return s
	}
	return ""
}
