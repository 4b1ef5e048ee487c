package models

// SearchResult is a single ranked hit from the knowledge index. Results are
// produced transiently per query and never persisted. DocumentID is the row
// position of the document, stable across save/load.
type SearchResult struct {
	Rank       int                    `json:"rank"`
	Score      float64                `json:"score"`
	DocumentID int                    `json:"document_id"`
	Metadata   map[string]interface{} `json:"metadata"`
	Text       string                 `json:"text"`
}
