package nn

import "math"

// LayerNorm holds the learned scale/shift of a standard layer-norm.
type LayerNorm struct {
	Weight []float32
	Bias   []float32
	Eps    float32
}

// Forward normalizes each row of x (in place) to zero mean, unit variance,
// then applies the learned affine transform.
func (l LayerNorm) Forward(x [][]float32) {
	for _, row := range x {
		var mean float64
		for _, v := range row {
			mean += float64(v)
		}
		mean /= float64(len(row))

		var variance float64
		for _, v := range row {
			d := float64(v) - mean
			variance += d * d
		}
		variance /= float64(len(row))
		inv := 1.0 / math.Sqrt(variance+float64(l.Eps))

		for i, v := range row {
			norm := (float64(v) - mean) * inv
			row[i] = float32(norm)*l.Weight[i] + l.Bias[i]
		}
	}
}

// RMSNorm holds the learned scale of a root-mean-square norm (no mean
// subtraction, no bias), used throughout the Qwen3-family decoder.
type RMSNorm struct {
	Weight []float32
	Eps    float32
}

// Forward normalizes each row of x (in place) by its RMS, then scales.
func (n RMSNorm) Forward(x [][]float32) {
	for _, row := range x {
		var ss float64
		for _, v := range row {
			ss += float64(v) * float64(v)
		}
		rms := math.Sqrt(ss/float64(len(row)) + float64(n.Eps))
		for i, v := range row {
			row[i] = float32(float64(v)/rms) * n.Weight[i]
		}
	}
}

// ForwardVec applies RMSNorm to a single vector (used per-head in GQA's
// Q/K norm, where each head's slice is normalized independently).
func (n RMSNorm) ForwardVec(v []float32) {
	var ss float64
	for _, x := range v {
		ss += float64(x) * float64(x)
	}
	rms := math.Sqrt(ss/float64(len(v)) + float64(n.Eps))
	for i, x := range v {
		v[i] = float32(float64(x)/rms) * n.Weight[i]
	}
}
