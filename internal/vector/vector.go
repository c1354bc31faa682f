// Package vector provides the small amount of dense-vector math the retrieval
// pipeline needs: L2 normalization and cosine similarity against a stacked
// corpus matrix.
package vector

import (
	"fmt"
	"math"
)

// Normalize returns a unit-length copy of v. A zero or empty vector is
// returned unchanged (there is no direction to preserve).
func Normalize(v []float32) []float32 {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	norm := math.Sqrt(sum)
	if norm == 0 {
		out := make([]float32, len(v))
		copy(out, v)
		return out
	}

	out := make([]float32, len(v))
	for i, x := range v {
		out[i] = float32(float64(x) / norm)
	}
	return out
}

// Cosine computes the cosine similarity between a and b.
// Returns an error on dimension mismatch or when either vector has zero norm.
func Cosine(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, fmt.Errorf("vector dimension mismatch: %d vs %d", len(a), len(b))
	}
	if len(a) == 0 {
		return 0, fmt.Errorf("cannot compare empty vectors")
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0, fmt.Errorf("cannot compare zero-norm vectors")
	}

	return dot / (math.Sqrt(normA) * math.Sqrt(normB)), nil
}

// CosineAll computes cosine similarity between query and every row of matrix.
// All rows must share the query's dimension.
func CosineAll(query []float32, matrix [][]float32) ([]float64, error) {
	scores := make([]float64, len(matrix))
	for i, row := range matrix {
		score, err := Cosine(query, row)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i, err)
		}
		scores[i] = score
	}
	return scores, nil
}

// Mean pools vectors element-wise into their arithmetic mean.
// Returns nil for empty input.
func Mean(vectors [][]float32) []float32 {
	if len(vectors) == 0 {
		return nil
	}

	dim := len(vectors[0])
	sum := make([]float64, dim)
	for _, v := range vectors {
		for i := 0; i < dim && i < len(v); i++ {
			sum[i] += float64(v[i])
		}
	}

	out := make([]float32, dim)
	for i, s := range sum {
		out[i] = float32(s / float64(len(vectors)))
	}
	return out
}
