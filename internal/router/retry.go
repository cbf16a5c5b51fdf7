package router

import "strings"

// allowedScriptRune reports whether r is within the "unexpected script"
// allow-list: ASCII, CJK, kana, CJK punctuation, fullwidth forms, CJK Ext
// B+ — explicitly excluding Hangul (spec §9's open-question resolution:
// other East-Asian scripts are treated as deliberately Japanese-only).
func allowedScriptRune(r rune) bool {
	switch {
	case r <= 0x7F:
		return true
	case isCJKChar(r):
		return true
	case r >= 0x3040 && r <= 0x30FF: // kana
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK punctuation
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // fullwidth forms
		return true
	case r >= 0x20000 && r <= 0x2FFFF: // CJK Ext B+
		return true
	default:
		return false
	}
}

// UnexpectedScript reports whether text contains any scalar outside the
// allow-list (spec §4.13's retry condition 1).
func UnexpectedScript(text string) bool {
	for _, r := range text {
		if !allowedScriptRune(r) {
			return true
		}
	}
	return false
}

var politeEndings = []string{"です", "ます", "でした", "ました", "ません"}

// singleParticles and multiParticles hold the particle sets; の is
// deliberately excluded per spec §4.13.
var singleParticles = map[rune]bool{'は': true, 'が': true, 'を': true, 'に': true, 'で': true, 'と': true, 'も': true, 'ね': true, 'よ': true}
var multiParticles = []string{"から", "まで", "けど", "ので"}

func isJapaneseKanaOrCJK(r rune) bool {
	return isCJKChar(r) || (r >= 0x3040 && r <= 0x30FF)
}

// countParticles counts single-char and multi-char Japanese particles,
// only when preceded by a CJK or kana rune, and returns (single, multi).
func countParticles(text string) (single, multi int) {
	runes := []rune(text)
	for i := 1; i < len(runes); i++ {
		if !isJapaneseKanaOrCJK(runes[i-1]) {
			continue
		}
		if singleParticles[runes[i]] {
			single++
		}
	}
	for _, p := range multiParticles {
		idx := 0
		for {
			pos := strings.Index(text[idx:], p)
			if pos < 0 {
				break
			}
			abs := idx + pos
			if abs > 0 {
				before := []rune(text[:abs])
				if isJapaneseKanaOrCJK(before[len(before)-1]) {
					multi++
				}
			}
			idx = abs + len(p)
		}
	}
	return single, multi
}

func hasPoliteEnding(text string) bool {
	for _, e := range politeEndings {
		if strings.HasSuffix(text, e) {
			return true
		}
	}
	return false
}

// JapaneseSentenceDrift implements spec §4.13's retry condition 2.
func JapaneseSentenceDrift(text string) bool {
	single, multi := countParticles(text)
	total := single + multi
	if hasPoliteEnding(text) && total >= 2 {
		return true
	}
	if total >= 3 && len([]rune(text)) >= 10 {
		return true
	}
	if multi >= 2 {
		return true
	}
	return false
}

// RetryDecision describes a requested re-transcription.
type RetryDecision struct {
	Retry       bool
	PinLanguage string
}

// RetryController implements spec §4.13's auto-retry logic: at most one
// re-transcription after a post-processing pass, under a pinned language.
type RetryController struct{}

// Evaluate runs the unexpected-script, Japanese-drift, and low-confidence
// checks in that order and returns the first that fires. mode must be
// "auto" for the Japanese-drift and low-confidence checks to apply (spec
// §4.13: both are auto-mode-only).
func (RetryController) Evaluate(text, mode string, meta Metadata, tun Tunables) RetryDecision {
	if UnexpectedScript(text) {
		return RetryDecision{Retry: true, PinLanguage: "Japanese"}
	}
	if mode == "auto" {
		if JapaneseSentenceDrift(text) {
			return RetryDecision{Retry: true, PinLanguage: "Chinese"}
		}
		if meta.AvgLogProb < tun.Qwen3LogprobThreshold {
			return RetryDecision{Retry: true, PinLanguage: "Japanese"}
		}
	}
	return RetryDecision{}
}

// AdoptRetry implements the §8 scenario C/D rule for the low-confidence
// retry path: the retry is only adopted if its log-prob is strictly
// higher (less negative) than the original's.
func AdoptRetry(originalLogProb, retryLogProb float64) bool {
	return retryLogProb > originalLogProb
}

// commandTable is the fixed voice-command lookup (spec §4.13's "voice
// command interception").
var commandTable = map[string]string{
	"全部刪除": "delete_all",
	"全部删除": "delete_all",
	"清除全部": "clear_all",
}

// InterceptVoiceCommand trims trailing CJK/ASCII punctuation from text and
// checks it against the fixed command table, returning the command name
// and true on a match.
func InterceptVoiceCommand(text string) (command string, ok bool) {
	trimmed := trimTrailingPunctuation(text)
	cmd, found := commandTable[trimmed]
	return cmd, found
}

func trimTrailingPunctuation(text string) string {
	runes := []rune(text)
	end := len(runes)
	for end > 0 {
		r := runes[end-1]
		if punctuationSet[r] || r == ' ' {
			end--
			continue
		}
		break
	}
	return string(runes[:end])
}
