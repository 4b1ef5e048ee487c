package vector

import (
	"bytes"
	"errors"
	"math"
	"testing"

	"github.com/hyperjump/rinsho/pkg/utils"
)

func TestFlatIndex_BuildNormalizes(t *testing.T) {
	idx := NewFlatIndex(0)
	if err := idx.Build([][]float32{{3, 4, 0}, {0, 5, 0}}); err != nil {
		t.Fatal(err)
	}
	if idx.Dimensions() != 3 {
		t.Errorf("Dimensions=%d", idx.Dimensions())
	}
	for i, row := range idx.vectors {
		if norm := utils.L2Norm(row); math.Abs(norm-1.0) > 1e-5 {
			t.Errorf("vector %d norm = %f, want 1.0", i, norm)
		}
	}
}

func TestFlatIndex_BuildReplaces(t *testing.T) {
	idx := NewFlatIndex(2)
	if err := idx.Build([][]float32{{1, 0}, {0, 1}, {1, 1}}); err != nil {
		t.Fatal(err)
	}
	if err := idx.Build([][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("Size after rebuild = %d, want 1", idx.Size())
	}
}

func TestFlatIndex_AddLazyDimension(t *testing.T) {
	idx := NewFlatIndex(0)
	if err := idx.Add([][]float32{{1, 0, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if idx.Dimensions() != 4 {
		t.Errorf("Dimensions=%d, want 4", idx.Dimensions())
	}
	err := idx.Add([][]float32{{1, 0}})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
	if idx.Size() != 1 {
		t.Errorf("failed add changed size: %d", idx.Size())
	}
}

func TestFlatIndex_SearchRanking(t *testing.T) {
	idx := NewFlatIndex(3)
	err := idx.Build([][]float32{
		{0, 1, 0},
		{1, 0, 0},
		{0.9, 0.1, 0},
	})
	if err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search([]float32{1, 0, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 3 {
		t.Fatalf("got %d hits", len(hits))
	}
	if hits[0].ID != 1 || hits[1].ID != 2 || hits[2].ID != 0 {
		t.Errorf("ranking = %v", hits)
	}
	for i := 1; i < len(hits); i++ {
		if hits[i].Score > hits[i-1].Score {
			t.Errorf("scores not non-increasing at %d: %v", i, hits)
		}
	}
}

func TestFlatIndex_SearchTieBreak(t *testing.T) {
	idx := NewFlatIndex(2)
	// Identical vectors score identically; order must be ascending ID.
	if err := idx.Build([][]float32{{1, 0}, {1, 0}, {1, 0}}); err != nil {
		t.Fatal(err)
	}
	hits, err := idx.Search([]float32{1, 0}, 3)
	if err != nil {
		t.Fatal(err)
	}
	for i, h := range hits {
		if h.ID != i {
			t.Errorf("tie order: hit %d has ID %d", i, h.ID)
		}
	}
}

func TestFlatIndex_SearchEmptyAndClamp(t *testing.T) {
	idx := NewFlatIndex(2)
	hits, err := idx.Search([]float32{1, 0}, 5)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 0 {
		t.Errorf("empty index returned %d hits", len(hits))
	}

	if err := idx.Build([][]float32{{1, 0}, {0, 1}}); err != nil {
		t.Fatal(err)
	}
	hits, err = idx.Search([]float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	if len(hits) != 2 {
		t.Errorf("k clamp: got %d hits, want 2", len(hits))
	}
}

func TestFlatIndex_SearchQueryDimensionMismatch(t *testing.T) {
	idx := NewFlatIndex(3)
	if err := idx.Build([][]float32{{1, 0, 0}}); err != nil {
		t.Fatal(err)
	}
	if _, err := idx.Search([]float32{1, 0}, 1); !errors.Is(err, ErrDimensionMismatch) {
		t.Errorf("expected ErrDimensionMismatch, got %v", err)
	}
}

func TestFlatIndex_CloneIsolation(t *testing.T) {
	idx := NewFlatIndex(2)
	if err := idx.Build([][]float32{{1, 0}}); err != nil {
		t.Fatal(err)
	}
	clone := idx.Clone()
	if err := clone.Add([][]float32{{0, 1}}); err != nil {
		t.Fatal(err)
	}
	if idx.Size() != 1 {
		t.Errorf("original size changed to %d after clone add", idx.Size())
	}
	if clone.Size() != 2 {
		t.Errorf("clone size = %d, want 2", clone.Size())
	}
}

func TestCodec_RoundTrip(t *testing.T) {
	idx := NewFlatIndex(3)
	if err := idx.Build([][]float32{{1, 2, 3}, {4, 5, 6}}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := idx.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	loaded, err := Decode(&buf)
	if err != nil {
		t.Fatal(err)
	}
	if loaded.Size() != idx.Size() || loaded.Dimensions() != idx.Dimensions() {
		t.Fatalf("loaded size=%d dims=%d", loaded.Size(), loaded.Dimensions())
	}
	for i := range idx.vectors {
		for j := range idx.vectors[i] {
			if idx.vectors[i][j] != loaded.vectors[i][j] {
				t.Errorf("vector %d[%d]: %f != %f", i, j, idx.vectors[i][j], loaded.vectors[i][j])
			}
		}
	}
}

func TestCodec_TruncatedData(t *testing.T) {
	idx := NewFlatIndex(3)
	if err := idx.Build([][]float32{{1, 2, 3}}); err != nil {
		t.Fatal(err)
	}
	var buf bytes.Buffer
	if err := idx.Encode(&buf); err != nil {
		t.Fatal(err)
	}
	data := buf.Bytes()
	if _, err := Decode(bytes.NewReader(data[:len(data)-4])); err == nil {
		t.Error("expected error decoding truncated data")
	}
}

func TestInnerProduct(t *testing.T) {
	if got := InnerProduct([]float32{1, 0}, []float32{1, 0}); got != 1 {
		t.Errorf("InnerProduct = %f", got)
	}
	if got := InnerProduct([]float32{1, 0}, []float32{1}); got != 0 {
		t.Errorf("mismatched lengths should score 0, got %f", got)
	}
}
