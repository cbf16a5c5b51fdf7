package decoder

import (
	"github.com/mandarin-voice/qwen3asr/internal/kvcache"
	"github.com/mandarin-voice/qwen3asr/internal/nn"
)

// Layer is one Qwen3 decoder block: pre-attention RMSNorm -> GQA attention
// -> residual -> post-attention RMSNorm -> SwiGLU MLP -> residual
// (spec §4.4).
type Layer struct {
	AttnNorm nn.RMSNorm
	Q, K, V, O QuantLinear
	QNorm, KNorm nn.RMSNorm // per-head RMSNorm applied before RoPE

	MLPNorm nn.RMSNorm
	Gate, Up, Down QuantLinear // SwiGLU: down(silu(gate(x)) * up(x))

	NHeads, NKVHeads, HeadDim int
}

// Forward runs one decoder layer. x is [seq][d_model]; basePos is the
// absolute position of x[0] (i.e. the cached KV length before this call);
// mask, if non-nil, is an additive [seq][seq+cachedLen] bias.
func (l Layer) Forward(x [][]float32, basePos int, mask [][]float32, cache *kvcache.Cache, layerIdx int) [][]float32 {
	residual := nn.CloneMatrix(x)
	normed := nn.CloneMatrix(x)
	l.AttnNorm.Forward(normed)

	q := l.Q.Forward(normed)
	k := l.K.Forward(normed)
	v := l.V.Forward(normed)

	qHeads := splitAndNormRope(q, l.NHeads, l.HeadDim, l.QNorm, basePos)
	kHeads := splitAndNormRope(k, l.NKVHeads, l.HeadDim, l.KNorm, basePos)
	vHeads := splitHeadsPlain(v, l.NKVHeads, l.HeadDim)

	newK := transposeSeqHead(kHeads)
	newV := transposeSeqHead(vHeads)
	fullK, fullV := cache.Append(layerIdx, newK, newV)

	groupSize := l.NHeads / l.NKVHeads
	scale := nn.DefaultScale(l.HeadDim)

	outHeads := make([][][]float32, l.NHeads)
	for h := 0; h < l.NHeads; h++ {
		kvHead := h / groupSize
		kMat := headSlice(fullK, kvHead)
		vMat := headSlice(fullV, kvHead)
		outHeads[h] = nn.Attention(qHeads[h], kMat, vMat, mask, scale)
	}

	attnOut := l.O.Forward(nn.MergeHeads(outHeads))
	nn.AddResidual(attnOut, residual)

	residual2 := nn.CloneMatrix(attnOut)
	normed2 := nn.CloneMatrix(attnOut)
	l.MLPNorm.Forward(normed2)

	gate := l.Gate.Forward(normed2)
	up := l.Up.Forward(normed2)
	for r := range gate {
		nn.SiLU(gate[r])
		for i := range gate[r] {
			gate[r][i] *= up[r][i]
		}
	}
	mlpOut := l.Down.Forward(gate)
	nn.AddResidual(mlpOut, residual2)

	return mlpOut
}

// splitAndNormRope splits a [seq][numHeads*headDim] matrix into per-head
// matrices, applies per-head RMSNorm, then RoPE at the absolute position
// basePos+seqIdx (spec §4.4: "per-head RMSNorm is applied to Q and K
// before rotary embedding").
func splitAndNormRope(x [][]float32, numHeads, headDim int, norm nn.RMSNorm, basePos int) [][][]float32 {
	heads := nn.SplitHeads(x, numHeads, headDim)
	for h := range heads {
		for s := range heads[h] {
			vec := append([]float32(nil), heads[h][s]...)
			norm.ForwardVec(vec)
			applyRope(vec, basePos+s)
			heads[h][s] = vec
		}
	}
	return heads
}

func splitHeadsPlain(x [][]float32, numHeads, headDim int) [][][]float32 {
	return nn.SplitHeads(x, numHeads, headDim)
}

// transposeSeqHead converts [numHeads][seq][headDim] to [seq][numHeads][headDim].
func transposeSeqHead(heads [][][]float32) [][][]float32 {
	if len(heads) == 0 {
		return nil
	}
	seq := len(heads[0])
	out := make([][][]float32, seq)
	for s := 0; s < seq; s++ {
		out[s] = make([][]float32, len(heads))
		for h := range heads {
			out[s][h] = heads[h][s]
		}
	}
	return out
}

// headSlice extracts one KV head's [seq][headDim] matrix from a cache
// layer's [seq][numKVHeads][headDim] tensor.
func headSlice(cached [][][]float32, head int) [][]float32 {
	out := make([][]float32, len(cached))
	for s, row := range cached {
		out[s] = row[head]
	}
	return out
}
