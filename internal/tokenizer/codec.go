package tokenizer

// Codec is the common interface both vocabulary archive formats implement
// (spec §4.2), so the generation loop (C6) does not need to know whether
// the loaded model directory shipped a byte-level BPE vocabulary or a
// tiktoken-style rank file.
type Codec interface {
	// Encode converts text to token IDs.
	Encode(text string) []int32
	// Decode converts token IDs back to text. Special tokens of the form
	// <|...|> are dropped; non-byte tokens (e.g. the asr_text marker) flush
	// any pending byte accumulator as a UTF-8 string before being skipped.
	Decode(ids []int32) string
	// DecodeOne decodes a single token ID in isolation — used by the
	// generation loop's uncertain-word grouping (spec §4.5), which decodes
	// tokens individually rather than as a contiguous run.
	DecodeOne(id int32) string
	// Special looks up a special token's ID by name.
	Special(name string) (int32, bool)
}
