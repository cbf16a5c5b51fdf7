package weights

import (
	"fmt"

	"github.com/mandarin-voice/qwen3asr/internal/decoder"
	"github.com/mandarin-voice/qwen3asr/internal/encoder"
	"github.com/mandarin-voice/qwen3asr/internal/nn"
)

// tensorSource is the subset of MultiArchive's surface bind needs, so
// tests can substitute an in-memory fake.
type tensorSource interface {
	Float32(name string) ([]float32, error)
	Uint32(name string) ([]uint32, error)
	Has(name string) bool
}

// BindEncoder builds an Encoder by reading every tensor under the
// "audio_tower." prefix (spec §6.1).
func BindEncoder(src tensorSource, cfg encoder.Config) (*encoder.Encoder, error) {
	const prefix = "audio_tower."

	var convs [3]encoder.Conv2D
	inChannels := 1
	for i := 0; i < 3; i++ {
		w, err := reshapeConv2D(src, fmt.Sprintf("%sconv%d.weight", prefix, i+1), cfg.DownsampleHidden, inChannels)
		if err != nil {
			return nil, err
		}
		b, err := readVector(src, fmt.Sprintf("%sconv%d.bias", prefix, i+1))
		if err != nil {
			return nil, err
		}
		convs[i] = encoder.Conv2D{Weight: w, Bias: b}
		inChannels = cfg.DownsampleHidden
	}

	projIn := cfg.DownsampleHidden * (cfg.NMels / 8)
	proj, err := readLinear(src, prefix+"proj", projIn, cfg.DModel, false)
	if err != nil {
		return nil, err
	}
	downsampler := encoder.Downsampler{Convs: convs, Proj: proj}

	layers := make([]encoder.Layer, cfg.NLayers)
	for i := range layers {
		lp := fmt.Sprintf("%slayers.%d.", prefix, i)
		layers[i], err = bindEncoderLayer(src, lp, cfg)
		if err != nil {
			return nil, fmt.Errorf("weights: encoder layer %d: %w", i, err)
		}
	}

	outNorm, err := readLayerNorm(src, prefix+"ln_post")
	if err != nil {
		return nil, err
	}
	outFC1, err := readLinear(src, prefix+"proj1", cfg.DModel, cfg.FFNHidden, true)
	if err != nil {
		return nil, err
	}
	outFC2, err := readLinear(src, prefix+"proj2", cfg.FFNHidden, cfg.DModel, true)
	if err != nil {
		return nil, err
	}

	return encoder.New(cfg, downsampler, layers, outNorm, outFC1, outFC2), nil
}

func bindEncoderLayer(src tensorSource, prefix string, cfg encoder.Config) (encoder.Layer, error) {
	headDim := cfg.DModel / cfg.NHeads

	attnNorm, err := readLayerNorm(src, prefix+"self_attn_layer_norm")
	if err != nil {
		return encoder.Layer{}, err
	}
	q, err := readLinear(src, prefix+"self_attn.q_proj", cfg.DModel, headDim*cfg.NHeads, true)
	if err != nil {
		return encoder.Layer{}, err
	}
	k, err := readLinear(src, prefix+"self_attn.k_proj", cfg.DModel, headDim*cfg.NHeads, true)
	if err != nil {
		return encoder.Layer{}, err
	}
	v, err := readLinear(src, prefix+"self_attn.v_proj", cfg.DModel, headDim*cfg.NHeads, true)
	if err != nil {
		return encoder.Layer{}, err
	}
	o, err := readLinear(src, prefix+"self_attn.out_proj", headDim*cfg.NHeads, cfg.DModel, true)
	if err != nil {
		return encoder.Layer{}, err
	}
	ffnNorm, err := readLayerNorm(src, prefix+"final_layer_norm")
	if err != nil {
		return encoder.Layer{}, err
	}
	fc1, err := readLinear(src, prefix+"fc1", cfg.DModel, cfg.FFNHidden, true)
	if err != nil {
		return encoder.Layer{}, err
	}
	fc2, err := readLinear(src, prefix+"fc2", cfg.FFNHidden, cfg.DModel, true)
	if err != nil {
		return encoder.Layer{}, err
	}

	return encoder.Layer{
		AttnNorm: attnNorm,
		Q:        q, K: k, V: v, O: o,
		FFNNorm: ffnNorm,
		FC1:     fc1, FC2: fc2,
		NHeads: cfg.NHeads,
	}, nil
}

// BindDecoder builds a Decoder by reading every tensor under the "model."
// prefix, dequantizing nothing eagerly (QuantLinear dequantizes rows on
// demand) (spec §6.1).
func BindDecoder(src tensorSource, cfg decoder.Config, bits, groupSize int) (*decoder.Decoder, error) {
	const prefix = "model."

	embedding, err := readQuantEmbedding(src, prefix+"embed_tokens", cfg.VocabSize, cfg.DModel, bits, groupSize)
	if err != nil {
		return nil, err
	}

	layers := make([]decoder.Layer, cfg.NLayers)
	for i := range layers {
		lp := fmt.Sprintf("%slayers.%d.", prefix, i)
		layers[i], err = bindDecoderLayer(src, lp, cfg, bits, groupSize)
		if err != nil {
			return nil, fmt.Errorf("weights: decoder layer %d: %w", i, err)
		}
	}

	finalNorm, err := readRMSNorm(src, prefix+"norm")
	if err != nil {
		return nil, err
	}

	return &decoder.Decoder{
		Config:    cfg,
		Embedding: embedding,
		Layers:    layers,
		FinalNorm: finalNorm,
		Head:      decoder.LMHead{Embedding: embedding},
	}, nil
}

func bindDecoderLayer(src tensorSource, prefix string, cfg decoder.Config, bits, groupSize int) (decoder.Layer, error) {
	kvDim := cfg.NKVHeads * cfg.HeadDim
	qDim := cfg.NHeads * cfg.HeadDim

	attnNorm, err := readRMSNorm(src, prefix+"input_layernorm")
	if err != nil {
		return decoder.Layer{}, err
	}
	q, err := readQuantLinear(src, prefix+"self_attn.q_proj", cfg.DModel, qDim, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}
	k, err := readQuantLinear(src, prefix+"self_attn.k_proj", cfg.DModel, kvDim, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}
	v, err := readQuantLinear(src, prefix+"self_attn.v_proj", cfg.DModel, kvDim, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}
	o, err := readQuantLinear(src, prefix+"self_attn.o_proj", qDim, cfg.DModel, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}
	qNorm, err := readRMSNorm(src, prefix+"self_attn.q_norm")
	if err != nil {
		return decoder.Layer{}, err
	}
	kNorm, err := readRMSNorm(src, prefix+"self_attn.k_norm")
	if err != nil {
		return decoder.Layer{}, err
	}
	mlpNorm, err := readRMSNorm(src, prefix+"post_attention_layernorm")
	if err != nil {
		return decoder.Layer{}, err
	}
	gate, err := readQuantLinear(src, prefix+"mlp.gate_proj", cfg.DModel, cfg.FFNHidden, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}
	up, err := readQuantLinear(src, prefix+"mlp.up_proj", cfg.DModel, cfg.FFNHidden, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}
	down, err := readQuantLinear(src, prefix+"mlp.down_proj", cfg.FFNHidden, cfg.DModel, bits, groupSize, false)
	if err != nil {
		return decoder.Layer{}, err
	}

	return decoder.Layer{
		AttnNorm: attnNorm,
		Q: q, K: k, V: v, O: o,
		QNorm: qNorm, KNorm: kNorm,
		MLPNorm: mlpNorm,
		Gate:    gate, Up: up, Down: down,
		NHeads: cfg.NHeads, NKVHeads: cfg.NKVHeads, HeadDim: cfg.HeadDim,
	}, nil
}

func readVector(src tensorSource, name string) ([]float32, error) {
	return src.Float32(name)
}

func readLinear(src tensorSource, name string, in, out int, withBias bool) (nn.Linear, error) {
	flat, err := src.Float32(name + ".weight")
	if err != nil {
		return nn.Linear{}, err
	}
	weight := reshapeRows(flat, out, in)
	var bias []float32
	if withBias && src.Has(name+".bias") {
		bias, err = src.Float32(name + ".bias")
		if err != nil {
			return nn.Linear{}, err
		}
	}
	return nn.Linear{Weight: weight, Bias: bias}, nil
}

func readLayerNorm(src tensorSource, name string) (nn.LayerNorm, error) {
	w, err := src.Float32(name + ".weight")
	if err != nil {
		return nn.LayerNorm{}, err
	}
	b, err := src.Float32(name + ".bias")
	if err != nil {
		return nn.LayerNorm{}, err
	}
	return nn.LayerNorm{Weight: w, Bias: b, Eps: 1e-5}, nil
}

func readRMSNorm(src tensorSource, name string) (nn.RMSNorm, error) {
	w, err := src.Float32(name + ".weight")
	if err != nil {
		return nn.RMSNorm{}, err
	}
	return nn.RMSNorm{Weight: w, Eps: 1e-6}, nil
}

func readQuantLinear(src tensorSource, name string, in, out, bits, groupSize int, withBias bool) (decoder.QuantLinear, error) {
	params, err := readQuantParams(src, name, in, out, bits, groupSize)
	if err != nil {
		return decoder.QuantLinear{}, err
	}
	var bias []float32
	if withBias && src.Has(name+".bias") {
		bias, err = src.Float32(name + ".bias")
		if err != nil {
			return decoder.QuantLinear{}, err
		}
	}
	// The per-group .biases sidecar is already folded into params during
	// dequantization; a separate plain-float .bias tensor (when present)
	// is an additional additive term on top of that.
	return decoder.QuantLinear{Params: params, Bias: bias}, nil
}

func readQuantEmbedding(src tensorSource, name string, vocab, dModel, bits, groupSize int) (decoder.QuantEmbedding, error) {
	params, err := readQuantParams(src, name, dModel, vocab, bits, groupSize)
	if err != nil {
		return decoder.QuantEmbedding{}, err
	}
	return decoder.QuantEmbedding{Params: params}, nil
}

func readQuantParams(src tensorSource, name string, in, out, bits, groupSize int) (decoder.QuantParams, error) {
	packed, err := src.Uint32(name + ".weight")
	if err != nil {
		return decoder.QuantParams{}, err
	}
	scalesFlat, err := src.Float32(name + ".scales")
	if err != nil {
		return decoder.QuantParams{}, err
	}
	biasesFlat, err := src.Float32(name + ".biases")
	if err != nil {
		return decoder.QuantParams{}, err
	}
	numGroups := (in + groupSize - 1) / groupSize
	return decoder.QuantParams{
		Packed:    packed,
		Scales:    reshapeRows(scalesFlat, out, numGroups),
		Biases:    reshapeRows(biasesFlat, out, numGroups),
		Out:       out,
		In:        in,
		GroupSize: groupSize,
		Bits:      bits,
	}, nil
}

func reshapeRows(flat []float32, rows, cols int) [][]float32 {
	out := make([][]float32, rows)
	for r := 0; r < rows; r++ {
		out[r] = flat[r*cols : (r+1)*cols]
	}
	return out
}

func reshapeConv2D(src tensorSource, name string, outC, inC int) ([][][][]float32, error) {
	flat, err := src.Float32(name)
	if err != nil {
		return nil, err
	}
	const k = 3
	out := make([][][][]float32, outC)
	idx := 0
	for oc := 0; oc < outC; oc++ {
		out[oc] = make([][][]float32, inC)
		for ic := 0; ic < inC; ic++ {
			out[oc][ic] = make([][]float32, k)
			for ky := 0; ky < k; ky++ {
				out[oc][ic][ky] = flat[idx : idx+k]
				idx += k
			}
		}
	}
	return out, nil
}
