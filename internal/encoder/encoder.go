// Package encoder implements the Qwen3-ASR audio encoder (spec §4.3): a
// Conv2D downsampler, sinusoidal position embedding, and a stack of
// pre-norm Transformer layers running windowed block-sparse attention.
package encoder

import "github.com/mandarin-voice/qwen3asr/internal/nn"

// Config holds the encoder's architecture hyperparameters, bound from the
// loaded model's weight-archive metadata (C5).
type Config struct {
	NMels            int
	DownsampleHidden int
	DModel           int
	NWindow          int
	NWindowInfer     int
	MaxCNNPerChunk   int
	NLayers          int
	NHeads           int
	FFNHidden        int
}

// Layer is one pre-norm Transformer block: LN -> self-attn (Q/K/V/O linear
// with bias) -> residual -> LN -> FC1 -> GELU -> FC2 -> residual
// (spec §4.3).
type Layer struct {
	AttnNorm nn.LayerNorm
	Q, K, V, O nn.Linear
	FFNNorm  nn.LayerNorm
	FC1, FC2 nn.Linear
	NHeads   int
}

// Forward runs one encoder layer over x (shape [seq][d_model]) under the
// given additive attention mask.
func (l Layer) Forward(x [][]float32, mask [][]float32) [][]float32 {
	residual := nn.CloneMatrix(x)
	normed := nn.CloneMatrix(x)
	l.AttnNorm.Forward(normed)

	q := l.Q.Forward(normed)
	k := l.K.Forward(normed)
	v := l.V.Forward(normed)

	dModel := len(normed[0])
	headDim := dModel / l.NHeads
	scale := nn.DefaultScale(headDim)

	qh := nn.SplitHeads(q, l.NHeads, headDim)
	kh := nn.SplitHeads(k, l.NHeads, headDim)
	vh := nn.SplitHeads(v, l.NHeads, headDim)

	outHeads := make([][][]float32, l.NHeads)
	for h := 0; h < l.NHeads; h++ {
		outHeads[h] = nn.Attention(qh[h], kh[h], vh[h], mask, scale)
	}
	attnOut := l.O.Forward(nn.MergeHeads(outHeads))
	nn.AddResidual(attnOut, residual)

	residual2 := nn.CloneMatrix(attnOut)
	normed2 := nn.CloneMatrix(attnOut)
	l.FFNNorm.Forward(normed2)

	hidden := l.FC1.Forward(normed2)
	for _, row := range hidden {
		nn.GELU(row)
	}
	ffnOut := l.FC2.Forward(hidden)
	nn.AddResidual(ffnOut, residual2)

	return ffnOut
}

// Encoder is the full audio encoder: downsampler, position embedding,
// layer stack, and output projection.
type Encoder struct {
	Config      Config
	Downsampler Downsampler
	Layers      []Layer
	OutNorm     nn.LayerNorm
	OutFC1      nn.Linear
	OutFC2      nn.Linear
	PosEmb      *PosEmbCache
}

// New constructs an Encoder with a fresh position-embedding cache.
func New(cfg Config, downsampler Downsampler, layers []Layer, outNorm nn.LayerNorm, outFC1, outFC2 nn.Linear) *Encoder {
	return &Encoder{
		Config:      cfg,
		Downsampler: downsampler,
		Layers:      layers,
		OutNorm:     outNorm,
		OutFC1:      outFC1,
		OutFC2:      outFC2,
		PosEmb:      NewPosEmbCache(),
	}
}

// Forward runs the full encoder over log-mel features shaped [n_mels][T],
// returning audio embeddings shaped [T', d_model] (spec §4.3). The
// downsampler and position embedding run over the whole mel in one pass;
// the mel is not split into n_window*2-frame chunks, so for a mel longer
// than one chunk T' can differ from GetOutputLength. The encoder
// is pure compute and failure-free.
func (e *Encoder) Forward(mel [][]float32) [][]float32 {
	seq := e.Downsampler.Forward(mel)

	pe := e.PosEmb.Get(len(seq), e.Config.DModel)
	for i := range seq {
		for j := range seq[i] {
			seq[i][j] += pe[i][j]
		}
	}

	windowLen := InferenceWindowLength(e.Config.MaxCNNPerChunk, e.Config.NWindow, e.Config.NWindowInfer)
	mask := BuildBlockDiagonalMask(len(seq), windowLen)

	for _, layer := range e.Layers {
		seq = layer.Forward(seq, mask)
	}

	e.OutNorm.Forward(seq)
	hidden := e.OutFC1.Forward(seq)
	for _, row := range hidden {
		nn.GELU(row)
	}
	return e.OutFC2.Forward(hidden)
}
