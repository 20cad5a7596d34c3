// Package match finds the closest enrolled face for a probe embedding.
package match

import "math"

// EuclideanDistance computes the L2 distance between two embeddings.
// Panics if the slices have different lengths; callers are expected to
// compare only same-model descriptors.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) {
		panic("match: embedding dimension mismatch")
	}
	var sum float64
	for i := range a {
		d := float64(a[i]) - float64(b[i])
		sum += d * d
	}
	return math.Sqrt(sum)
}
