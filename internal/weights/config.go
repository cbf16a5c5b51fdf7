package weights

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/mandarin-voice/qwen3asr/internal/decoder"
	"github.com/mandarin-voice/qwen3asr/internal/encoder"
)

// ModelConfig is config.json's shape (spec §6.1): hyperparameters for both
// sub-models plus the quantization scheme applied to the text decoder.
type ModelConfig struct {
	Audio struct {
		NumMelBins        int `json:"num_mel_bins"`
		DownsampleHidden  int `json:"downsample_hidden_size"`
		DModel            int `json:"d_model"`
		NWindow           int `json:"n_window"`
		NWindowInfer      int `json:"n_window_infer"`
		MaxCNNPerChunk    int `json:"max_cnn_per_chunk"`
		NumHiddenLayers   int `json:"num_hidden_layers"`
		NumAttentionHeads int `json:"num_attention_heads"`
		FFNHiddenSize     int `json:"ffn_hidden_size"`
	} `json:"audio_config"`

	Text struct {
		HiddenSize        int `json:"hidden_size"`
		NumHiddenLayers   int `json:"num_hidden_layers"`
		NumAttentionHeads int `json:"num_attention_heads"`
		NumKeyValueHeads  int `json:"num_key_value_heads"`
		HeadDim           int `json:"head_dim"`
		IntermediateSize  int `json:"intermediate_size"`
		VocabSize         int `json:"vocab_size"`
	} `json:"text_config"`

	Quantization struct {
		Bits      int `json:"bits"`
		GroupSize int `json:"group_size"`
	} `json:"quantization"`
}

// LoadConfig reads and parses dir's config.json.
func LoadConfig(dir string) (*ModelConfig, error) {
	raw, err := os.ReadFile(filepath.Join(dir, "config.json"))
	if err != nil {
		return nil, fmt.Errorf("weights: read config.json: %w", err)
	}
	var cfg ModelConfig
	if err := json.Unmarshal(raw, &cfg); err != nil {
		return nil, fmt.Errorf("weights: parse config.json: %w", err)
	}
	return &cfg, nil
}

// EncoderConfig projects the audio sub-model's hyperparameters onto
// encoder.Config.
func (c *ModelConfig) EncoderConfig() encoder.Config {
	return encoder.Config{
		NMels:            c.Audio.NumMelBins,
		DownsampleHidden: c.Audio.DownsampleHidden,
		DModel:           c.Audio.DModel,
		NWindow:          c.Audio.NWindow,
		NWindowInfer:     c.Audio.NWindowInfer,
		MaxCNNPerChunk:   c.Audio.MaxCNNPerChunk,
		NLayers:          c.Audio.NumHiddenLayers,
		NHeads:           c.Audio.NumAttentionHeads,
		FFNHidden:        c.Audio.FFNHiddenSize,
	}
}

// DecoderConfig projects the text sub-model's hyperparameters onto
// decoder.Config.
func (c *ModelConfig) DecoderConfig() decoder.Config {
	return decoder.Config{
		DModel:    c.Text.HiddenSize,
		NLayers:   c.Text.NumHiddenLayers,
		NHeads:    c.Text.NumAttentionHeads,
		NKVHeads:  c.Text.NumKeyValueHeads,
		HeadDim:   c.Text.HeadDim,
		FFNHidden: c.Text.IntermediateSize,
		VocabSize: c.Text.VocabSize,
	}
}
