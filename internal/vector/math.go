package vector

import "math"

// Dot returns the dot product of two equal-length vectors.
func Dot(a, b []float32) float32 {
	var sum float32
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}

// Norm returns the L2 norm of a vector.
func Norm(a []float32) float32 {
	var sum float32
	for _, v := range a {
		sum += v * v
	}
	return float32(math.Sqrt(float64(sum)))
}

// Normalize returns a copy of v scaled to unit length. A zero vector is
// returned unchanged.
func Normalize(v []float32) []float32 {
	out := make([]float32, len(v))
	n := Norm(v)
	if n == 0 {
		copy(out, v)
		return out
	}
	for i, x := range v {
		out[i] = x / n
	}
	return out
}

// CosineSimilarity returns the cosine of the angle between a and b in
// [-1, 1]. Vectors of different lengths or zero norm score 0.
func CosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	na := Norm(a)
	nb := Norm(b)
	if na == 0 || nb == 0 {
		return 0
	}
	return float64(Dot(a, b)) / (float64(na) * float64(nb))
}

// RoundScore rounds a similarity score to 6 decimal places so equal-by-eye
// scores compare equal and output stays deterministic.
func RoundScore(f float64) float64 {
	return math.Round(f*1e6) / 1e6
}
