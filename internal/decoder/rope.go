package decoder

import "math"

// RopeBase is the rotary position embedding base frequency used by every
// Qwen3-family decoder layer (spec §4.4: "RoPE base is 1e6").
const RopeBase = 1e6

// ropeCosSin precomputes the cos/sin table for a single position at the
// given rotary dimension (assumed equal to head_dim).
func ropeCosSin(position int, dim int) (cos, sin []float32) {
	half := dim / 2
	cos = make([]float32, half)
	sin = make([]float32, half)
	for i := 0; i < half; i++ {
		freq := 1.0 / math.Pow(RopeBase, float64(2*i)/float64(dim))
		angle := float64(position) * freq
		cos[i] = float32(math.Cos(angle))
		sin[i] = float32(math.Sin(angle))
	}
	return cos, sin
}

// applyRope rotates a single head vector in place at the given absolute
// position, using the standard "rotate half" convention: the vector is
// split into two halves, treated as the real/imaginary parts of a complex
// rotation.
func applyRope(vec []float32, position int) {
	dim := len(vec)
	half := dim / 2
	cos, sin := ropeCosSin(position, dim)
	for i := 0; i < half; i++ {
		x1, x2 := vec[i], vec[half+i]
		vec[i] = x1*cos[i] - x2*sin[i]
		vec[half+i] = x2*cos[i] + x1*sin[i]
	}
}
