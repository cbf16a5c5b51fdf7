package generate

import (
	"fmt"

	"github.com/mandarin-voice/qwen3asr/internal/decoder"
	"github.com/mandarin-voice/qwen3asr/internal/tokenizer"
)

// DefaultSystemPrompt is the chat-template's system turn (spec §4.5).
const DefaultSystemPrompt = "You are a helpful assistant that transcribes audio accurately."

// Prompt is the assembled chat-template token sequence plus the bounds of
// the audio-pad placeholder run, so SpliceEmbeddings knows where to splice
// the encoder's audio embeddings in.
type Prompt struct {
	IDs                   []int32
	AudioPlaceholderStart int
	AudioPlaceholderLen   int
}

// BuildPrompt assembles the chat-template prompt (spec §4.5):
//
//	<im_start>system\n<system prompt><im_end>\n
//	<im_start>user\n<audio_start><audio_pad>×audioPadCount<audio_end><im_end>\n
//	<im_start>assistant\n
//
// followed either by tokenize("language") when language is empty (the
// auto-detect prefill), or by tokenize("language <lang>") plus the asr_text
// marker when a language is given.
func BuildPrompt(codec tokenizer.Codec, systemPrompt string, audioPadCount int, language string) Prompt {
	if systemPrompt == "" {
		systemPrompt = DefaultSystemPrompt
	}

	var ids []int32
	ids = append(ids, tokenizer.IDIMStart, tokenizer.IDSystem, tokenizer.IDNewline)
	ids = append(ids, codec.Encode(systemPrompt)...)
	ids = append(ids, tokenizer.IDIMEnd, tokenizer.IDNewline)

	ids = append(ids, tokenizer.IDIMStart, tokenizer.IDUser, tokenizer.IDNewline)
	ids = append(ids, tokenizer.IDAudioStart)
	placeholderStart := len(ids)
	for i := 0; i < audioPadCount; i++ {
		ids = append(ids, tokenizer.IDAudioPad)
	}
	ids = append(ids, tokenizer.IDAudioEnd, tokenizer.IDIMEnd, tokenizer.IDNewline)

	ids = append(ids, tokenizer.IDIMStart, tokenizer.IDAssistant, tokenizer.IDNewline)

	if language == "" {
		ids = append(ids, codec.Encode("language")...)
	} else {
		ids = append(ids, codec.Encode(fmt.Sprintf("language %s", language))...)
		if id, ok := codec.Special("asr_text"); ok {
			ids = append(ids, id)
		} else {
			ids = append(ids, tokenizer.IDASRText)
		}
	}

	return Prompt{IDs: ids, AudioPlaceholderStart: placeholderStart, AudioPlaceholderLen: audioPadCount}
}

// SpliceEmbeddings embeds every prompt token ID and replaces the
// audio-pad placeholder run with audioEmbeds (spec §4.5 invariant #3: the
// number of placeholder tokens must equal the audio-embedding tensor's
// frame count, and splicing never changes the sequence length).
func SpliceEmbeddings(dec *decoder.Decoder, prompt Prompt, audioEmbeds [][]float32) ([][]float32, error) {
	if len(audioEmbeds) != prompt.AudioPlaceholderLen {
		return nil, fmt.Errorf("generate: audio embedding count %d does not match placeholder length %d", len(audioEmbeds), prompt.AudioPlaceholderLen)
	}
	embeds := make([][]float32, len(prompt.IDs))
	for i, id := range prompt.IDs {
		embeds[i] = dec.Embedding.Lookup(id)
	}
	for i := 0; i < prompt.AudioPlaceholderLen; i++ {
		embeds[prompt.AudioPlaceholderStart+i] = audioEmbeds[i]
	}
	return embeds, nil
}
