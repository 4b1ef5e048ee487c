// Package vector provides a flat in-memory vector index with brute-force
// inner product search over L2-normalized vectors.
package vector

import (
	"errors"
	"fmt"
	"sort"

	"github.com/hyperjump/rinsho/pkg/utils"
)

// ErrDimensionMismatch is returned when a vector's length differs from the
// index's established dimension.
var ErrDimensionMismatch = errors.New("vector dimension mismatch")

// Hit is a single nearest-neighbor match. ID is the row position of the
// matched vector, which is also the document ID in the metadata store.
type Hit struct {
	ID    int
	Score float64
}

// FlatIndex stores unit-norm vectors in insertion order and searches by
// brute-force inner product, which equals cosine similarity since both sides
// are normalized. Row position is the document ID.
//
// FlatIndex is not safe for concurrent mutation. The retrieval service wraps
// it in immutable snapshots: once a row is inserted it is never written
// again, so snapshots taken via Clone stay valid while a newer copy mutates.
type FlatIndex struct {
	dimensions int
	vectors    [][]float32
}

// NewFlatIndex creates an empty index. dimensions may be 0, in which case the
// dimension is established by the first Build or Add batch.
func NewFlatIndex(dimensions int) *FlatIndex {
	return &FlatIndex{dimensions: dimensions}
}

// Dimensions returns the vector dimension, or 0 if not yet established.
func (x *FlatIndex) Dimensions() int {
	return x.dimensions
}

// Size returns the number of stored vectors.
func (x *FlatIndex) Size() int {
	return len(x.vectors)
}

// Build discards any existing vectors and replaces the index contents with
// normalized copies of vectors. The dimension is taken from the batch; an
// empty batch leaves the previously established dimension in place.
func (x *FlatIndex) Build(vectors [][]float32) error {
	if len(vectors) == 0 {
		x.vectors = nil
		return nil
	}
	dim := len(vectors[0])
	if dim == 0 {
		return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
	}
	rows := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		rows = append(rows, normalizedCopy(v))
	}
	x.dimensions = dim
	x.vectors = rows
	return nil
}

// Add appends normalized copies of vectors. If the index has no established
// dimension yet, the dimension of the first batch is adopted; after that any
// vector of a different length is rejected with ErrDimensionMismatch and the
// index is left unchanged.
func (x *FlatIndex) Add(vectors [][]float32) error {
	if len(vectors) == 0 {
		return nil
	}
	dim := x.dimensions
	if dim == 0 {
		dim = len(vectors[0])
		if dim == 0 {
			return fmt.Errorf("%w: empty vector", ErrDimensionMismatch)
		}
	}
	rows := make([][]float32, 0, len(vectors))
	for i, v := range vectors {
		if len(v) != dim {
			return fmt.Errorf("%w: vector %d has %d values, expected %d", ErrDimensionMismatch, i, len(v), dim)
		}
		rows = append(rows, normalizedCopy(v))
	}
	x.dimensions = dim
	x.vectors = append(x.vectors, rows...)
	return nil
}

// Clone returns a new index sharing the stored rows. Rows are immutable
// after insertion, so appending to the clone never disturbs the original.
func (x *FlatIndex) Clone() *FlatIndex {
	rows := make([][]float32, len(x.vectors))
	copy(rows, x.vectors)
	return &FlatIndex{dimensions: x.dimensions, vectors: rows}
}

// Search returns the top k vectors by descending inner product against the
// normalized query. Ties are broken by ascending ID so ordering is
// deterministic. Searching an empty index returns an empty slice, not an
// error; k is clamped to the index size.
func (x *FlatIndex) Search(query []float32, k int) ([]Hit, error) {
	if k <= 0 || len(x.vectors) == 0 {
		return nil, nil
	}
	if len(query) != x.dimensions {
		return nil, fmt.Errorf("%w: query has %d values, expected %d", ErrDimensionMismatch, len(query), x.dimensions)
	}
	q := normalizedCopy(query)
	hits := make([]Hit, len(x.vectors))
	for i, row := range x.vectors {
		var dot float64
		for j := range q {
			dot += float64(q[j]) * float64(row[j])
		}
		hits[i] = Hit{ID: i, Score: dot}
	}
	sort.Slice(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].ID < hits[j].ID
	})
	if k > len(hits) {
		k = len(hits)
	}
	return hits[:k], nil
}

func normalizedCopy(v []float32) []float32 {
	out := make([]float32, len(v))
	copy(out, v)
	utils.NormalizeL2(out)
	return out
}
