// Package retrieval orchestrates embedding, vector search, and metadata
// resolution for the clinical knowledge index.
package retrieval

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"

	"github.com/hyperjump/rinsho/internal/embedding"
	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/persist"
	"github.com/hyperjump/rinsho/internal/store"
	"github.com/hyperjump/rinsho/internal/vector"
	"github.com/hyperjump/rinsho/pkg/utils"
)

// snapshot pairs an index with its row-aligned metadata store. Snapshots are
// immutable once published; index.Size() == docs.Len() always holds.
type snapshot struct {
	index *vector.FlatIndex
	docs  *store.DocumentStore
}

// Options tunes search and ingestion behavior. Zero values get defaults.
type Options struct {
	// MaxK caps k per query; larger requests are clamped, not rejected.
	MaxK int
	// OverfetchFactor multiplies k for category-filtered search.
	OverfetchFactor int
	// EmbedBatchSize is the number of texts each embedding worker handles.
	EmbedBatchSize int
	// EmbedWorkers bounds concurrent embedding calls during ingestion.
	EmbedWorkers int
}

const (
	defaultMaxK            = 50
	defaultOverfetchFactor = 2
	defaultEmbedBatchSize  = 32
	defaultEmbedWorkers    = 4
)

func (o *Options) applyDefaults() {
	if o.MaxK <= 0 {
		o.MaxK = defaultMaxK
	}
	if o.OverfetchFactor <= 1 {
		o.OverfetchFactor = defaultOverfetchFactor
	}
	if o.EmbedBatchSize <= 0 {
		o.EmbedBatchSize = defaultEmbedBatchSize
	}
	if o.EmbedWorkers <= 0 {
		o.EmbedWorkers = defaultEmbedWorkers
	}
}

// Service is the retrieval engine: it owns the vector index and the
// row-aligned metadata store and answers similarity queries over them.
//
// Reads (Search, SearchByCategory, Stats) run lock-free against an immutable
// snapshot; mutations (BuildIndex, AddDocuments, LoadIndex) serialize on a
// mutex, assemble a complete new snapshot, then publish it with one atomic
// swap. In-flight readers finish against the snapshot they started with and
// never observe a half-built index.
type Service struct {
	embedder embedding.Embedder
	persist  *persist.Manager
	logger   *zap.Logger
	opts     Options

	mu   sync.Mutex // serializes mutations
	snap atomic.Pointer[snapshot]
}

// NewService creates a retrieval service with an empty index. The service is
// owned by the composition root and must be Closed when the host shuts down.
func NewService(embedder embedding.Embedder, pm *persist.Manager, logger *zap.Logger, opts Options) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	opts.applyDefaults()
	s := &Service{
		embedder: embedder,
		persist:  pm,
		logger:   logger,
		opts:     opts,
	}
	s.snap.Store(&snapshot{
		index: vector.NewFlatIndex(embedder.Dimensions()),
		docs:  store.New(nil),
	})
	return s
}

// BuildIndex validates documents, embeds every text in one batched pass, and
// replaces the index and metadata store with the new corpus. An empty slice
// clears the index. The previous snapshot stays intact until the new one is
// fully assembled.
func (s *Service) BuildIndex(ctx context.Context, docs []models.Document) error {
	if err := validateDocuments(docs); err != nil {
		return err
	}
	vecs, err := s.embedAll(ctx, documentTexts(docs))
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}
	index := vector.NewFlatIndex(s.embedder.Dimensions())
	if err := index.Build(vecs); err != nil {
		return wrapIndexErr(err)
	}

	s.mu.Lock()
	s.snap.Store(&snapshot{index: index, docs: store.New(docs)})
	s.mu.Unlock()

	s.logger.Info("knowledge index built",
		zap.Int("documents", len(docs)),
		zap.Int("dimensions", index.Dimensions()),
		zap.String("model", s.embedder.ModelName()),
	)
	return nil
}

// AddDocuments appends documents to the index. An empty slice is a no-op and
// leaves counts untouched. The index and metadata store are extended together
// in one snapshot swap, so the row-alignment invariant holds even if the
// embedding step fails partway.
func (s *Service) AddDocuments(ctx context.Context, docs []models.Document) error {
	if len(docs) == 0 {
		return nil
	}
	if err := validateDocuments(docs); err != nil {
		return err
	}
	vecs, err := s.embedAll(ctx, documentTexts(docs))
	if err != nil {
		return fmt.Errorf("embed documents: %w", err)
	}

	s.mu.Lock()
	cur := s.snap.Load()
	index := cur.index.Clone()
	if err := index.Add(vecs); err != nil {
		s.mu.Unlock()
		return wrapIndexErr(err)
	}
	s.snap.Store(&snapshot{index: index, docs: cur.docs.Append(docs)})
	total := index.Size()
	s.mu.Unlock()

	s.logger.Info("documents added",
		zap.Int("added", len(docs)),
		zap.Int("total", total),
	)
	return nil
}

// Search embeds the query and returns up to k results at or above
// scoreThreshold, ranked from 1 by descending similarity. Searching an empty
// or not-yet-built index returns an empty slice, not an error.
func (s *Service) Search(ctx context.Context, query string, k int, scoreThreshold float64) ([]models.SearchResult, error) {
	if strings.TrimSpace(query) == "" {
		return nil, validationErrorf("query must not be empty")
	}
	if k < 1 {
		return nil, validationErrorf("k must be at least 1, got %d", k)
	}
	if k > s.opts.MaxK {
		k = s.opts.MaxK
	}

	snap := s.snap.Load()
	if snap.index.Size() == 0 {
		s.logger.Debug("search on empty index", zap.String("query", utils.Truncate(query, 50)))
		return []models.SearchResult{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}
	hits, err := snap.index.Search(queryVec, k)
	if err != nil {
		return nil, fmt.Errorf("vector search: %w", err)
	}

	results := make([]models.SearchResult, 0, len(hits))
	for _, hit := range hits {
		if hit.Score < scoreThreshold {
			continue
		}
		doc, ok := snap.docs.Get(hit.ID)
		if !ok {
			// Row alignment is invariant; a miss here means index and store
			// diverged and the snapshot is corrupt.
			return nil, fmt.Errorf("document %d missing from metadata store: index out of sync", hit.ID)
		}
		results = append(results, models.SearchResult{
			Rank:       len(results) + 1,
			Score:      hit.Score,
			DocumentID: hit.ID,
			Metadata:   doc.Metadata,
			Text:       doc.Text,
		})
	}

	s.logger.Debug("search",
		zap.String("query", utils.Truncate(query, 50)),
		zap.Int("k", k),
		zap.Int("results", len(results)),
	)
	return results, nil
}

// SearchByCategory returns up to k results whose metadata category contains
// category, case-insensitively. It over-fetches OverfetchFactor*k unfiltered
// results from a single embedding pass and filters afterwards, so when fewer
// than k matches fall inside the over-fetch window the result is short.
func (s *Service) SearchByCategory(ctx context.Context, query, category string, k int) ([]models.SearchResult, error) {
	if strings.TrimSpace(category) == "" {
		return nil, validationErrorf("category must not be empty")
	}
	if k < 1 {
		return nil, validationErrorf("k must be at least 1, got %d", k)
	}

	all, err := s.Search(ctx, query, k*s.opts.OverfetchFactor, 0)
	if err != nil {
		return nil, err
	}

	needle := strings.ToLower(category)
	results := make([]models.SearchResult, 0, k)
	for _, r := range all {
		doc := models.Document{Metadata: r.Metadata}
		if !strings.Contains(strings.ToLower(doc.Category()), needle) {
			continue
		}
		r.Rank = len(results) + 1
		results = append(results, r)
		if len(results) == k {
			break
		}
	}
	return results, nil
}

// Stats summarizes the current snapshot. The whole metadata store is
// scanned; counts are exact, never sampled.
func (s *Service) Stats() *models.KnowledgeStats {
	snap := s.snap.Load()
	dims := snap.index.Dimensions()
	if dims == 0 {
		dims = s.embedder.Dimensions()
	}
	categories := snap.docs.Categories()
	return &models.KnowledgeStats{
		TotalDocuments:     snap.docs.Len(),
		EmbeddingDimension: dims,
		ModelName:          s.embedder.ModelName(),
		DocumentTypes:      snap.docs.CountByType(),
		CategoriesCovered:  len(categories),
		CategoryList:       categories,
	}
}

// Documents returns a copy of the current document corpus.
func (s *Service) Documents() []models.Document {
	return s.snap.Load().docs.All()
}

// SaveIndex persists the current snapshot to basePath.
func (s *Service) SaveIndex(basePath string) error {
	snap := s.snap.Load()
	return s.persist.Save(snap.index, snap.docs, basePath)
}

// LoadIndex replaces the current snapshot with the artifact pair at
// basePath. On any failure, including persist.ErrNoIndex, the current
// snapshot is left untouched and the typed error is propagated so the caller
// can distinguish "no prior index" from a corrupt one.
func (s *Service) LoadIndex(basePath string) error {
	index, docs, err := s.persist.Load(basePath)
	if err != nil {
		return err
	}

	s.mu.Lock()
	s.snap.Store(&snapshot{index: index, docs: docs})
	s.mu.Unlock()
	return nil
}

// Close releases the embedder.
func (s *Service) Close() error {
	return s.embedder.Close()
}

// embedAll embeds texts through a bounded pool of workers, each handling
// EmbedBatchSize texts per call, so large ingests never serialize on one
// goroutine. Results are positionally aligned with texts.
func (s *Service) embedAll(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) <= s.opts.EmbedBatchSize {
		return s.embedder.EmbedBatch(ctx, texts)
	}

	type batch struct{ start, end int }
	var batches []batch
	for start := 0; start < len(texts); start += s.opts.EmbedBatchSize {
		end := start + s.opts.EmbedBatchSize
		if end > len(texts) {
			end = len(texts)
		}
		batches = append(batches, batch{start, end})
	}

	out := make([][]float32, len(texts))
	sem := make(chan struct{}, s.opts.EmbedWorkers)
	errChan := make(chan error, len(batches))
	var wg sync.WaitGroup
	for _, b := range batches {
		wg.Add(1)
		go func(b batch) {
			defer wg.Done()
			sem <- struct{}{}
			defer func() { <-sem }()
			vecs, err := s.embedder.EmbedBatch(ctx, texts[b.start:b.end])
			if err != nil {
				errChan <- err
				return
			}
			copy(out[b.start:b.end], vecs)
		}(b)
	}
	wg.Wait()
	close(errChan)
	for err := range errChan {
		if err != nil {
			return nil, err
		}
	}
	return out, nil
}

func validateDocuments(docs []models.Document) error {
	for i := range docs {
		if strings.TrimSpace(docs[i].Text) == "" {
			return validationErrorf("document %d has empty text", i)
		}
	}
	return nil
}

func documentTexts(docs []models.Document) []string {
	texts := make([]string, len(docs))
	for i := range docs {
		texts[i] = docs[i].Text
	}
	return texts
}

// wrapIndexErr converts a dimension mismatch into a ValidationError; other
// index errors pass through.
func wrapIndexErr(err error) error {
	if errors.Is(err, vector.ErrDimensionMismatch) {
		return &ValidationError{Msg: err.Error()}
	}
	return err
}
