// Package kb manages the curated clinical knowledge base backing the
// retrieval service: the built-in seed corpus, convenience queries used by
// the grounding endpoints, and ingestion of external document files.
package kb

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/retrieval"
)

// KnowledgeBase wraps the retrieval service with clinical-domain queries.
type KnowledgeBase struct {
	svc    *retrieval.Service
	logger *zap.Logger
}

// New creates a knowledge base over svc. logger may be nil.
func New(svc *retrieval.Service, logger *zap.Logger) *KnowledgeBase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &KnowledgeBase{svc: svc, logger: logger}
}

// Initialize builds the index from the seed corpus when the store is empty.
// A populated index (for example one restored from disk) is left alone.
func (k *KnowledgeBase) Initialize(ctx context.Context) error {
	if k.svc.Stats().TotalDocuments > 0 {
		return nil
	}
	docs := SeedDocuments()
	if err := k.svc.BuildIndex(ctx, docs); err != nil {
		return fmt.Errorf("build seed index: %w", err)
	}
	k.logger.Info("knowledge base seeded", zap.Int("documents", len(docs)))
	return nil
}

// SearchDiagnosticCriteria retrieves diagnostic criteria relevant to a
// symptom description, optionally restricted to one disorder.
func (k *KnowledgeBase) SearchDiagnosticCriteria(ctx context.Context, symptoms, disorder string) ([]models.SearchResult, error) {
	query := "diagnostic criteria symptoms: " + symptoms
	var (
		results []models.SearchResult
		err     error
	)
	if disorder != "" {
		results, err = k.svc.SearchByCategory(ctx, query, disorder, 3)
	} else {
		results, err = k.svc.Search(ctx, query, 5, 0)
	}
	if err != nil {
		return nil, err
	}
	return filterByType(results, TypeDiagnosticCriteria), nil
}

// SearchTreatmentOptions retrieves treatment guidelines for a diagnosis.
func (k *KnowledgeBase) SearchTreatmentOptions(ctx context.Context, diagnosis string) ([]models.SearchResult, error) {
	results, err := k.svc.Search(ctx, "treatment therapy intervention for "+diagnosis, 5, 0)
	if err != nil {
		return nil, err
	}
	return filterByType(results, TypeTreatmentGuideline), nil
}

// DisorderInfo combines diagnostic criteria and treatment options for one
// disorder.
type DisorderInfo struct {
	Disorder           string                `json:"disorder"`
	DiagnosticCriteria []models.SearchResult `json:"diagnostic_criteria"`
	TreatmentOptions   []models.SearchResult `json:"treatment_options"`
	TotalDocuments     int                   `json:"total_documents"`
}

// GetDisorderInfo retrieves both criteria and treatments for disorder.
func (k *KnowledgeBase) GetDisorderInfo(ctx context.Context, disorder string) (*DisorderInfo, error) {
	criteria, err := k.SearchDiagnosticCriteria(ctx, disorder, disorder)
	if err != nil {
		return nil, err
	}
	treatments, err := k.SearchTreatmentOptions(ctx, disorder)
	if err != nil {
		return nil, err
	}
	return &DisorderInfo{
		Disorder:           disorder,
		DiagnosticCriteria: criteria,
		TreatmentOptions:   treatments,
		TotalDocuments:     len(criteria) + len(treatments),
	}, nil
}

// filterByType keeps results whose metadata type matches, preserving order
// and re-numbering ranks from 1.
func filterByType(results []models.SearchResult, typ string) []models.SearchResult {
	out := make([]models.SearchResult, 0, len(results))
	for _, r := range results {
		doc := models.Document{Metadata: r.Metadata}
		if doc.Type() != typ {
			continue
		}
		r.Rank = len(out) + 1
		out = append(out, r)
	}
	return out
}
