package decoder

import (
	"github.com/mandarin-voice/qwen3asr/internal/kvcache"
	"github.com/mandarin-voice/qwen3asr/internal/nn"
)

// Config holds the decoder's architecture hyperparameters, bound from the
// loaded model's weight-archive metadata (C5).
type Config struct {
	DModel    int
	NLayers   int
	NHeads    int
	NKVHeads  int
	HeadDim   int
	FFNHidden int
	VocabSize int
}

// Decoder is the full Qwen3-family text decoder: a quantized embedding, a
// flat arena of Layer blocks, a final RMSNorm, and a tied quantized LM
// head.
type Decoder struct {
	Config    Config
	Embedding QuantEmbedding
	Layers    []Layer // flat arena, addressed by index — not a graph
	FinalNorm nn.RMSNorm
	Head      LMHead
}

// Forward implements spec §4.4's forward(inputs_embeds | input_ids,
// attention_mask?, cache?) -> (hidden_states, new_cache). Exactly one of
// inputsEmbeds or inputIDs must be non-nil.
func (d *Decoder) Forward(inputsEmbeds [][]float32, inputIDs []int32, mask [][]float32, cache *kvcache.Cache) ([][]float32, *kvcache.Cache, error) {
	if inputsEmbeds == nil && inputIDs == nil {
		return nil, nil, ErrNoInputProvided
	}

	x := inputsEmbeds
	if x == nil {
		x = make([][]float32, len(inputIDs))
		for i, id := range inputIDs {
			x[i] = d.Embedding.Lookup(id)
		}
	}

	if cache == nil {
		cache = kvcache.New(d.Config.NLayers)
	}
	basePos := cache.Len()

	seqLen := len(x)
	if mask == nil && seqLen > 1 {
		mask = CausalMask(seqLen, basePos)
	}

	hidden := x
	for i, layer := range d.Layers {
		hidden = layer.Forward(hidden, basePos, mask, cache, i)
	}
	d.FinalNorm.Forward(hidden)

	return hidden, cache, nil
}

// CausalMask builds an additive [seqLen][seqLen+cachedLen] mask where a
// query position may attend to all cached positions and to query
// positions up to and including itself; future query positions receive
// -1e9 (spec §4.4).
func CausalMask(seqLen, cachedLen int) [][]float32 {
	total := seqLen + cachedLen
	mask := make([][]float32, seqLen)
	for i := range mask {
		mask[i] = make([]float32, total)
		for j := range mask[i] {
			if j > cachedLen+i {
				mask[i][j] = -1e9
			}
		}
	}
	return mask
}

// Logits computes vocabulary logits for the last hidden state in hidden
// (the only position a greedy decoding step needs).
func (d *Decoder) Logits(hidden [][]float32) []float32 {
	return d.Head.Logits(hidden[len(hidden)-1])
}
