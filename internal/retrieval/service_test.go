package retrieval

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/hyperjump/rinsho/internal/embedding"
	"github.com/hyperjump/rinsho/internal/models"
	"github.com/hyperjump/rinsho/internal/persist"
	"github.com/hyperjump/rinsho/pkg/utils"
)

// keywordEmbedder is a deterministic stub: axis 0 responds to depression
// vocabulary, axis 1 to anxiety vocabulary, axis 2 to everything else. It
// makes similarity outcomes predictable without a real model.
type keywordEmbedder struct{}

func (e *keywordEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	lower := strings.ToLower(text)
	v := []float32{0.01, 0.01, 0.01}
	for _, w := range []string{"sad", "hopeless", "depress", "low energy", "worthless"} {
		if strings.Contains(lower, w) {
			v[0] += 1
		}
	}
	for _, w := range []string{"worry", "anxiety", "anxious", "restless", "tension"} {
		if strings.Contains(lower, w) {
			v[1] += 1
		}
	}
	v[2] += float32(len(lower) % 3)
	utils.NormalizeL2(v)
	return v, nil
}

func (e *keywordEmbedder) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	for i, t := range texts {
		emb, err := e.Embed(ctx, t)
		if err != nil {
			return nil, err
		}
		out[i] = emb
	}
	return out, nil
}

func (e *keywordEmbedder) Dimensions() int   { return 3 }
func (e *keywordEmbedder) ModelName() string { return "keyword-stub" }
func (e *keywordEmbedder) Close() error      { return nil }

func newTestService(t *testing.T) *Service {
	t.Helper()
	return NewService(&keywordEmbedder{}, persist.NewManager(nil), nil, Options{})
}

func twoDisorderCorpus() []models.Document {
	return []models.Document{
		{
			Text: "Persistent sadness, hopelessness, and low energy most of the day.",
			Metadata: map[string]interface{}{
				"type":     "dsm5_criteria",
				"category": "Major Depressive Disorder",
			},
		},
		{
			Text: "Excessive worry and anxiety with restlessness and muscle tension.",
			Metadata: map[string]interface{}{
				"type":     "dsm5_criteria",
				"category": "Generalized Anxiety Disorder",
			},
		},
	}
}

func TestSearch_DepressiveQueryRanksDepressionFirst(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(ctx, "sad, hopeless, low energy", 1, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 1 {
		t.Fatalf("got %d results", len(results))
	}
	if results[0].DocumentID != 0 {
		t.Errorf("top document ID = %d, want 0", results[0].DocumentID)
	}
	if results[0].Rank != 1 {
		t.Errorf("top rank = %d, want 1", results[0].Rank)
	}
}

func TestSearch_EmptyIndexReturnsEmpty(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, nil); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(ctx, "anything", 5, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results from empty index", len(results))
	}
}

func TestAddDocuments_EmptyTextRejected(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	err := svc.AddDocuments(ctx, []models.Document{{Text: "", Metadata: map[string]interface{}{}}})
	if !IsValidation(err) {
		t.Fatalf("expected ValidationError, got %v", err)
	}
	if got := svc.Stats().TotalDocuments; got != 2 {
		t.Errorf("TotalDocuments = %d after failed add, want 2", got)
	}
}

func TestAddDocuments_EmptySliceIsNoOp(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddDocuments(ctx, nil); err != nil {
		t.Fatal(err)
	}
	if err := svc.AddDocuments(ctx, []models.Document{}); err != nil {
		t.Fatal(err)
	}
	if got := svc.Stats().TotalDocuments; got != 2 {
		t.Errorf("TotalDocuments = %d, want 2", got)
	}
}

func TestAddDocuments_AppendsAfterExisting(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	extra := models.Document{
		Text:     "Excessive worry about many events on most days.",
		Metadata: map[string]interface{}{"type": "dsm5_criteria", "category": "Generalized Anxiety Disorder"},
	}
	if err := svc.AddDocuments(ctx, []models.Document{extra}); err != nil {
		t.Fatal(err)
	}
	results, err := svc.Search(ctx, "worry and anxiety", 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	found := false
	for _, r := range results {
		if r.DocumentID == 2 {
			found = true
		}
	}
	if !found {
		t.Errorf("appended document (ID 2) not retrievable: %+v", results)
	}
}

func TestSearch_ScoreThresholdFilters(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	all, err := svc.Search(ctx, "sad and hopeless", 2, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(all) != 2 {
		t.Fatalf("unfiltered results = %d", len(all))
	}
	// Threshold between the two scores keeps only the top hit, re-ranked from 1.
	threshold := (all[0].Score + all[1].Score) / 2
	filtered, err := svc.Search(ctx, "sad and hopeless", 2, threshold)
	if err != nil {
		t.Fatal(err)
	}
	if len(filtered) != 1 {
		t.Fatalf("filtered results = %d, want 1", len(filtered))
	}
	if filtered[0].Rank != 1 || filtered[0].DocumentID != all[0].DocumentID {
		t.Errorf("filtered result = %+v", filtered[0])
	}
}

func TestSearch_Validation(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if _, err := svc.Search(ctx, "   ", 5, 0); !IsValidation(err) {
		t.Errorf("empty query: expected ValidationError, got %v", err)
	}
	if _, err := svc.Search(ctx, "q", 0, 0); !IsValidation(err) {
		t.Errorf("k=0: expected ValidationError, got %v", err)
	}
}

func TestSearchByCategory_SubstringCaseInsensitive(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	results, err := svc.SearchByCategory(ctx, "symptoms of mood disturbance", "depressive", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) == 0 {
		t.Fatal("no category matches")
	}
	for _, r := range results {
		doc := models.Document{Metadata: r.Metadata}
		if !strings.Contains(strings.ToLower(doc.Category()), "depressive") {
			t.Errorf("result category %q does not contain filter", doc.Category())
		}
	}
	if results[0].Rank != 1 {
		t.Errorf("filtered ranks must restart at 1, got %d", results[0].Rank)
	}
}

func TestSearchByCategory_NoMatches(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	results, err := svc.SearchByCategory(ctx, "anything", "schizophrenia", 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(results) != 0 {
		t.Errorf("got %d results for unmatched category", len(results))
	}
}

func TestStats(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	docs := append(twoDisorderCorpus(), models.Document{
		Text:     "PHQ-9 screens for depression severity.",
		Metadata: map[string]interface{}{"type": "assessment_tool", "category": "Major Depressive Disorder"},
	})
	if err := svc.BuildIndex(ctx, docs); err != nil {
		t.Fatal(err)
	}
	stats := svc.Stats()
	if stats.TotalDocuments != 3 {
		t.Errorf("TotalDocuments = %d", stats.TotalDocuments)
	}
	if stats.EmbeddingDimension != 3 {
		t.Errorf("EmbeddingDimension = %d", stats.EmbeddingDimension)
	}
	if stats.ModelName != "keyword-stub" {
		t.Errorf("ModelName = %q", stats.ModelName)
	}
	if stats.DocumentTypes["dsm5_criteria"] != 2 || stats.DocumentTypes["assessment_tool"] != 1 {
		t.Errorf("DocumentTypes = %v", stats.DocumentTypes)
	}
	if stats.CategoriesCovered != 2 {
		t.Errorf("CategoriesCovered = %d", stats.CategoriesCovered)
	}
	want := []string{"Generalized Anxiety Disorder", "Major Depressive Disorder"}
	if len(stats.CategoryList) != 2 || stats.CategoryList[0] != want[0] || stats.CategoryList[1] != want[1] {
		t.Errorf("CategoryList = %v", stats.CategoryList)
	}
}

func TestSaveLoad_SurvivesRestart(t *testing.T) {
	base := filepath.Join(t.TempDir(), "kb", "clinical_knowledge")
	ctx := context.Background()

	svc := newTestService(t)
	docs := append(twoDisorderCorpus(), models.Document{
		Text:     "GAD-7 screens for anxiety severity.",
		Metadata: map[string]interface{}{"type": "assessment_tool", "category": "Generalized Anxiety Disorder"},
	})
	if err := svc.BuildIndex(ctx, docs); err != nil {
		t.Fatal(err)
	}
	before, err := svc.Search(ctx, "sad, hopeless, low energy", 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	statsBefore := svc.Stats()
	if err := svc.SaveIndex(base); err != nil {
		t.Fatal(err)
	}

	// Fresh engine, same artifacts.
	restored := newTestService(t)
	if err := restored.LoadIndex(base); err != nil {
		t.Fatal(err)
	}
	statsAfter := restored.Stats()
	if statsAfter.TotalDocuments != 3 {
		t.Errorf("TotalDocuments after load = %d, want 3", statsAfter.TotalDocuments)
	}
	if len(statsAfter.CategoryList) != len(statsBefore.CategoryList) {
		t.Fatalf("CategoryList mismatch: %v vs %v", statsAfter.CategoryList, statsBefore.CategoryList)
	}
	for i := range statsBefore.CategoryList {
		if statsAfter.CategoryList[i] != statsBefore.CategoryList[i] {
			t.Errorf("CategoryList[%d] = %q, want %q", i, statsAfter.CategoryList[i], statsBefore.CategoryList[i])
		}
	}

	after, err := restored.Search(ctx, "sad, hopeless, low energy", 3, 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(after) != len(before) {
		t.Fatalf("result count: %d vs %d", len(after), len(before))
	}
	for i := range before {
		if before[i].DocumentID != after[i].DocumentID {
			t.Errorf("rank %d: ID %d != %d", i+1, before[i].DocumentID, after[i].DocumentID)
		}
		if diff := before[i].Score - after[i].Score; diff > 1e-6 || diff < -1e-6 {
			t.Errorf("rank %d: score %f != %f", i+1, before[i].Score, after[i].Score)
		}
	}
}

func TestLoadIndex_NoIndexLeavesSnapshotUntouched(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}
	err := svc.LoadIndex(filepath.Join(t.TempDir(), "missing"))
	if !errors.Is(err, persist.ErrNoIndex) {
		t.Fatalf("expected ErrNoIndex, got %v", err)
	}
	if got := svc.Stats().TotalDocuments; got != 2 {
		t.Errorf("TotalDocuments = %d after failed load, want 2", got)
	}
}

func TestConcurrentSearchDuringAdds(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()
	if err := svc.BuildIndex(ctx, twoDisorderCorpus()); err != nil {
		t.Fatal(err)
	}

	var wg sync.WaitGroup
	for w := 0; w < 4; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 50; i++ {
				results, err := svc.Search(ctx, "worry and sadness", 5, 0)
				if err != nil {
					t.Errorf("search: %v", err)
					return
				}
				// Every observed snapshot must be internally consistent.
				for j := 1; j < len(results); j++ {
					if results[j].Score > results[j-1].Score {
						t.Errorf("scores not sorted: %+v", results)
						return
					}
				}
			}
		}()
	}
	wg.Add(1)
	go func() {
		defer wg.Done()
		for i := 0; i < 20; i++ {
			doc := models.Document{
				Text:     fmt.Sprintf("Additional clinical note %d about anxiety management.", i),
				Metadata: map[string]interface{}{"type": "treatment_guideline", "category": "Generalized Anxiety Disorder"},
			}
			if err := svc.AddDocuments(ctx, []models.Document{doc}); err != nil {
				t.Errorf("add: %v", err)
				return
			}
		}
	}()
	wg.Wait()

	if got := svc.Stats().TotalDocuments; got != 22 {
		t.Errorf("TotalDocuments = %d, want 22", got)
	}
}

func TestEmbedAll_WorkerPoolAlignment(t *testing.T) {
	svc := NewService(&keywordEmbedder{}, persist.NewManager(nil), nil, Options{
		EmbedBatchSize: 2,
		EmbedWorkers:   3,
	})
	texts := make([]string, 11)
	for i := range texts {
		texts[i] = fmt.Sprintf("text number %d with worry level %d", i, i%4)
	}
	got, err := svc.embedAll(context.Background(), texts)
	if err != nil {
		t.Fatal(err)
	}
	e := &keywordEmbedder{}
	for i, text := range texts {
		want, _ := e.Embed(context.Background(), text)
		for j := range want {
			if got[i][j] != want[j] {
				t.Fatalf("batch %d misaligned with direct embedding", i)
			}
		}
	}
}

var _ embedding.Embedder = (*keywordEmbedder)(nil)
