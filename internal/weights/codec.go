package weights

import (
	"os"
	"path/filepath"

	"github.com/mandarin-voice/qwen3asr/internal/tokenizer"
)

// LoadCodec picks and loads whichever of the two tokenizer archive formats
// spec §6.1 says a model directory may ship: a byte-level BPE vocabulary
// (vocab.json + merges.txt) or a tiktoken-style rank file
// (multilingual.tiktoken). The fixed special-token contract (spec §6.2) is
// passed to both loaders so either one fails fast on disagreement.
func LoadCodec(dir string) (tokenizer.Codec, error) {
	if _, err := os.Stat(filepath.Join(dir, "multilingual.tiktoken")); err == nil {
		return tokenizer.LoadTiktoken(filepath.Join(dir, "multilingual.tiktoken"), tokenizer.SpecialNames)
	}
	return tokenizer.LoadBPE(filepath.Join(dir, "vocab.json"), filepath.Join(dir, "merges.txt"), tokenizer.SpecialNames)
}
