// Package nn holds small numeric building blocks (linear layers, norms,
// activations, attention) shared by the audio encoder and text decoder.
// Tensors are represented as plain [][]float32 (rows = sequence positions,
// columns = feature dim) rather than through a tensor-graph library: the
// corpus's only GPU/tensor-runtime dependency (ollama/ml) is tightly coupled
// to its own cgo/ggml backend and is not standalone-importable (see
// DESIGN.md), so these operations are hand-written the way a small
// CPU-only inference engine would write them.
package nn

import "math"

// GELU applies the exact (erf-based) Gaussian Error Linear Unit in place.
func GELU(x []float32) {
	const invSqrt2 = 0.7071067811865476
	for i, v := range x {
		x[i] = float32(float64(v) * 0.5 * (1 + math.Erf(float64(v)*invSqrt2)))
	}
}

// SiLU applies x*sigmoid(x) in place, the gate activation used by SwiGLU.
func SiLU(x []float32) {
	for i, v := range x {
		x[i] = v / (1 + float32(math.Exp(-float64(v))))
	}
}

// Softmax normalizes a row of logits into a probability distribution in
// place, subtracting the row max first for numerical stability.
func Softmax(row []float32) {
	max := row[0]
	for _, v := range row[1:] {
		if v > max {
			max = v
		}
	}
	var sum float32
	for i, v := range row {
		e := float32(math.Exp(float64(v - max)))
		row[i] = e
		sum += e
	}
	if sum == 0 {
		return
	}
	for i := range row {
		row[i] /= sum
	}
}
