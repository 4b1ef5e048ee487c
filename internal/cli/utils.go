// Package cli provides CLI output utilities for Rinsho.
package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"sort"

	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/pkg/utils"
)

// OutputFormat is the format for CLI output.
type OutputFormat string

const (
	// OutputText is human-readable text (default).
	OutputText OutputFormat = "text"
	// OutputJSON is structured JSON for machine consumption.
	OutputJSON OutputFormat = "json"
)

// WriteSearchResults writes search results to w in the given format.
// Use OutputJSON for parseable output consumable by other apps.
func WriteSearchResults(w io.Writer, results []models.SearchResult, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(results)
	default:
		writeSearchResultsText(w, results)
		return nil
	}
}

func writeSearchResultsText(w io.Writer, results []models.SearchResult) {
	fmt.Fprintf(w, "\nFound %d results\n\n", len(results))
	for _, result := range results {
		writeOneResult(w, result)
	}
}

func writeOneResult(w io.Writer, result models.SearchResult) {
	fmt.Fprintf(w, "─────────────────────────────────────────────────────────\n")
	fmt.Fprintf(w, "Rank: %d | Score: %.4f | Document: %d\n", result.Rank, result.Score, result.DocumentID)
	doc := models.Document{Metadata: result.Metadata}
	if c := doc.Category(); c != "" {
		fmt.Fprintf(w, "Category: %s\n", c)
	}
	if ty := doc.Type(); ty != "" {
		fmt.Fprintf(w, "Type: %s\n", ty)
	}
	fmt.Fprintf(w, "\n%s\n", utils.Truncate(result.Text, 200))
	fmt.Fprintln(w)
}

// WriteStats writes knowledge base statistics to w in the given format.
func WriteStats(w io.Writer, stats *models.KnowledgeStats, format OutputFormat) error {
	switch format {
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(stats)
	default:
		writeStatsText(w, stats)
		return nil
	}
}

func writeStatsText(w io.Writer, stats *models.KnowledgeStats) {
	fmt.Fprintf(w, "Documents:  %d\n", stats.TotalDocuments)
	fmt.Fprintf(w, "Dimensions: %d\n", stats.EmbeddingDimension)
	fmt.Fprintf(w, "Model:      %s\n", stats.ModelName)
	fmt.Fprintf(w, "Categories: %d\n", stats.CategoriesCovered)
	if len(stats.DocumentTypes) > 0 {
		fmt.Fprintln(w, "Types:")
		types := make([]string, 0, len(stats.DocumentTypes))
		for ty := range stats.DocumentTypes {
			types = append(types, ty)
		}
		sort.Strings(types)
		for _, ty := range types {
			fmt.Fprintf(w, "  %-22s %d\n", ty, stats.DocumentTypes[ty])
		}
	}
	for _, c := range stats.CategoryList {
		fmt.Fprintf(w, "  - %s\n", c)
	}
}
