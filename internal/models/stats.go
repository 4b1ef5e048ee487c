package models

// KnowledgeStats summarizes the indexed corpus for status and monitoring
// endpoints. Counts are exact: the stats computation scans the full metadata
// store, never a sample.
type KnowledgeStats struct {
	TotalDocuments     int            `json:"total_documents"`
	EmbeddingDimension int            `json:"embedding_dimension"`
	ModelName          string         `json:"model_name"`
	DocumentTypes      map[string]int `json:"document_types"`
	CategoriesCovered  int            `json:"categories_covered"`
	CategoryList       []string       `json:"category_list"`
}
