package nn

import "math"

// Attention runs scaled dot-product attention for one head.
// q, k, v are [seqQ/seqKV][headDim]; mask, if non-nil, is an additive
// [seqQ][seqKV] bias (0 to attend, large negative to block) added to the
// logits before softmax — this is how both the encoder's block-diagonal
// mask and the decoder's causal mask are applied.
func Attention(q, k, v [][]float32, mask [][]float32, scale float32) [][]float32 {
	out := make([][]float32, len(q))
	for i, qi := range q {
		logits := make([]float32, len(k))
		for j, kj := range k {
			var dot float32
			for d := range qi {
				dot += qi[d] * kj[d]
			}
			logits[j] = dot * scale
			if mask != nil {
				logits[j] += mask[i][j]
			}
		}
		Softmax(logits)

		headDim := 0
		if len(v) > 0 {
			headDim = len(v[0])
		}
		acc := make([]float32, headDim)
		for j, w := range logits {
			vj := v[j]
			for d := range acc {
				acc[d] += w * vj[d]
			}
		}
		out[i] = acc
	}
	return out
}

// DefaultScale returns the conventional 1/sqrt(headDim) attention scale.
func DefaultScale(headDim int) float32 {
	return float32(1.0 / math.Sqrt(float64(headDim)))
}

// SplitHeads slices a [seq][numHeads*headDim] matrix into numHeads
// matrices of [seq][headDim], one per head.
func SplitHeads(x [][]float32, numHeads, headDim int) [][][]float32 {
	heads := make([][][]float32, numHeads)
	for h := range heads {
		heads[h] = make([][]float32, len(x))
	}
	for s, row := range x {
		for h := 0; h < numHeads; h++ {
			heads[h][s] = row[h*headDim : (h+1)*headDim]
		}
	}
	return heads
}

// MergeHeads concatenates numHeads matrices of [seq][headDim] back into a
// single [seq][numHeads*headDim] matrix.
func MergeHeads(heads [][][]float32) [][]float32 {
	if len(heads) == 0 {
		return nil
	}
	seq := len(heads[0])
	headDim := 0
	if seq > 0 {
		headDim = len(heads[0][0])
	}
	out := make([][]float32, seq)
	for s := 0; s < seq; s++ {
		row := make([]float32, len(heads)*headDim)
		for h, head := range heads {
			copy(row[h*headDim:(h+1)*headDim], head[s])
		}
		out[s] = row
	}
	return out
}
