package gallery

import "math"

// EuclideanDistance computes the Euclidean distance between two embeddings.
// This matches the native metric of the face embedding space, where the 0.6
// threshold convention comes from. Mismatched or empty vectors return +Inf
// so they can never win a nearest-neighbor comparison.
func EuclideanDistance(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return math.Inf(1)
	}

	var sum float64
	for i := range a {
		diff := float64(a[i]) - float64(b[i])
		sum += diff * diff
	}
	return math.Sqrt(sum)
}
