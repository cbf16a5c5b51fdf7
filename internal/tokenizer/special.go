package tokenizer

// Special-token IDs fixed by the external contract (spec §6.2). Any loaded
// vocabulary archive MUST agree with these for the tokens the engine
// depends on structurally — the prompt template, the audio placeholder
// splice, and the asr_text marker parse all index by these exact values.
const (
	IDAudioPad    int32 = 151676
	IDAudioStart  int32 = 151669
	IDAudioEnd    int32 = 151670
	IDIMEnd       int32 = 151645 // also eos
	IDEOS         int32 = IDIMEnd
	IDEndOfText   int32 = 151643 // also pad
	IDPad         int32 = IDEndOfText
	IDIMStart     int32 = 151644
	IDASRText     int32 = 151704
	IDNewline     int32 = 198
	IDSystem      int32 = 8948
	IDUser        int32 = 872
	IDAssistant   int32 = 77091
)

// SpecialNames maps the fixed contract's symbolic names to their IDs, for
// validating a loaded vocabulary archive against it.
var SpecialNames = map[string]int32{
	"audio_pad":   IDAudioPad,
	"audio_start": IDAudioStart,
	"audio_end":   IDAudioEnd,
	"im_end":      IDIMEnd,
	"eos":         IDEOS,
	"endoftext":   IDEndOfText,
	"pad":         IDPad,
	"im_start":    IDIMStart,
	"asr_text":    IDASRText,
	"newline":     IDNewline,
	"system":      IDSystem,
	"user":        IDUser,
	"assistant":   IDAssistant,
}

// structurallyRequired are the special tokens the engine indexes directly
// (prompt template construction, audio splice, output parsing). A vocabulary
// archive that disagrees with the fixed contract for one of these fails to
// load; disagreement on a cosmetic special token (e.g. "system") is tolerated
// since nothing in this engine branches on its exact value.
var structurallyRequired = []string{"audio_pad", "audio_start", "audio_end", "im_start", "im_end", "asr_text", "endoftext"}
