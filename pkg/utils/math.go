package utils

import "math"

// NormalizeL2 scales an embedding in place to unit length, so inner-product
// search over normalized vectors ranks by cosine similarity. A zero vector
// is left unchanged.
func NormalizeL2(x []float32) {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return
	}
	inv := float32(1 / math.Sqrt(sum))
	for i := range x {
		x[i] *= inv
	}
}
