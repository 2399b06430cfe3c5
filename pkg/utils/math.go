package utils

import "math"

// NormalizeL2 scales x in place to unit length and reports whether it did.
// A zero vector is left untouched.
func NormalizeL2(x []float32) bool {
	var sum float64
	for _, v := range x {
		sum += float64(v) * float64(v)
	}
	if sum == 0 {
		return false
	}
	inv := 1 / math.Sqrt(sum)
	for i := range x {
		x[i] = float32(float64(x[i]) * inv)
	}
	return true
}
