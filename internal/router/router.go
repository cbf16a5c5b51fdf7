// Package router implements the confidence-based LLM-routing decision and
// the auto-retry controller (spec §4.13): whether a transcription result
// needs a downstream LLM enhancement pass, and whether the engine should
// re-transcribe once under a pinned language before routing at all.
package router

import (
	"strings"
	"unicode"

	"github.com/mandarin-voice/qwen3asr/internal/correct/repetition"
)

// Tunables are the persisted routing knobs (spec §6.4).
type Tunables struct {
	RoutingEnabled         bool
	LogProbThreshold       float64 // default -0.3
	Qwen3SkipThreshold     int     // default 30
	Qwen3LogprobThreshold  float64 // default -0.5
}

// DefaultTunables returns the spec-documented defaults.
func DefaultTunables() Tunables {
	return Tunables{
		RoutingEnabled:        true,
		LogProbThreshold:      -0.3,
		Qwen3SkipThreshold:    30,
		Qwen3LogprobThreshold: -0.5,
	}
}

// Metadata carries the transcription-time signals the router consults.
type Metadata struct {
	Provider      string
	AvgLogProb    float64
	AudioDuration float64
	Repetition    repetition.Info
}

// simpleResponses is the fixed set of stock replies that never need an
// LLM pass (spec §4.13 rule 3 / §8 invariant #8).
var simpleResponses = map[string]bool{
	"好": true, "是的": true, "謝謝": true, "不客氣": true,
	"沒問題": true, "好的": true, "嗯": true, "是": true, "不是": true,
}

// legitimateReduplication lists CJK doublings that are normal speech, not
// a decoding artifact (spec §4.13 rule 5).
var legitimateReduplication = map[string]bool{
	"媽媽": true, "爸爸": true, "哥哥": true, "姐姐": true, "弟弟": true,
	"妹妹": true, "星星": true, "寶寶": true, "謝謝": true, "看看": true,
	"想想": true, "走走": true, "試試": true, "哈哈": true, "呵呵": true,
	"人人": true, "天天": true, "剛剛": true, "漸漸": true,
}

// For the rule-7 check, callers pass the ambiguous-phrase hits collected
// during the spoken-punctuation stage instead of recomputing them. Decide
// takes ambiguousHits directly so router has no dependency on the punct
// package's internal table.

// Decide implements spec §4.13's nine ordered rules and returns needs_llm.
func Decide(text string, meta Metadata, tun Tunables, ambiguousHits []string) bool {
	if !tun.RoutingEnabled {
		return true
	}
	if isAllASCII(text) {
		return false
	}
	if isSimpleResponse(text) {
		return false
	}
	if isLongWithoutEnoughPunctuation(text) {
		return true
	}
	if hasIllegitimateDoubling(text) {
		return true
	}
	if meta.AvgLogProb != 0 {
		if meta.AvgLogProb > tun.LogProbThreshold {
			return false
		}
	} else if strings.EqualFold(meta.Provider, "qwen3") {
		if Qwen3Heuristic(text, meta.AudioDuration, tun) {
			return false
		}
	}
	if len(ambiguousHits) > 0 {
		return true
	}
	if meta.Repetition.Pattern != "" {
		return true
	}
	return true
}

func isAllASCII(text string) bool {
	for _, r := range text {
		if r > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func isSimpleResponse(text string) bool {
	if isAllDigits(text) {
		return true
	}
	return simpleResponses[strings.TrimSpace(text)]
}

func isAllDigits(text string) bool {
	if text == "" {
		return false
	}
	for _, r := range text {
		if !unicode.IsDigit(r) {
			return false
		}
	}
	return true
}

// punctuationSet is consulted by the density test and the voice-command
// trimmer.
var punctuationSet = map[rune]bool{
	'，': true, '。': true, '？': true, '！': true, '；': true, '：': true,
	'、': true, '「': true, '」': true, '『': true, '』': true, '（': true,
	'）': true, '《': true, '》': true, '…': true, '—': true,
	',': true, '.': true, '?': true, '!': true, ';': true, ':': true,
}

// isLongWithoutEnoughPunctuation implements spec §4.13's punctuation
// density test: length >= 10, punctuation count >= max(len/20, 1), and no
// unpunctuated CJK span longer than 20.
func isLongWithoutEnoughPunctuation(text string) bool {
	runes := []rune(text)
	n := len(runes)
	if n < 10 {
		return false
	}

	punctCount := 0
	longestSpan := 0
	currentSpan := 0
	for _, r := range runes {
		if punctuationSet[r] {
			punctCount++
			if currentSpan > longestSpan {
				longestSpan = currentSpan
			}
			currentSpan = 0
			continue
		}
		if isCJKChar(r) {
			currentSpan++
		} else if currentSpan > longestSpan {
			longestSpan = currentSpan
			currentSpan = 0
		} else {
			currentSpan = 0
		}
	}
	if currentSpan > longestSpan {
		longestSpan = currentSpan
	}

	minPunct := n / 20
	if minPunct < 1 {
		minPunct = 1
	}

	return punctCount < minPunct || longestSpan > 20
}

func isCJKChar(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

// hasIllegitimateDoubling reports whether text contains an immediately
// repeated CJK character whose 2-char doubling isn't on the legitimate
// reduplication allow-list (spec §4.13 rule 5).
func hasIllegitimateDoubling(text string) bool {
	runes := []rune(text)
	for i := 0; i+1 < len(runes); i++ {
		if runes[i] == runes[i+1] && isCJKChar(runes[i]) {
			pair := string(runes[i]) + string(runes[i+1])
			if !legitimateReduplication[pair] {
				return true
			}
		}
	}
	return false
}

// Qwen3Heuristic evaluates spec §4.13 rule 6's no-log-prob fallback for
// the Qwen3 provider: CJK count within threshold, no excessive fillers or
// list content, and a plausible speech rate.
func Qwen3Heuristic(text string, audioDuration float64, tun Tunables) bool {
	cjkCount := 0
	for _, r := range text {
		if isCJKChar(r) {
			cjkCount++
		}
	}
	if cjkCount > tun.Qwen3SkipThreshold {
		return false
	}
	if hasExcessiveFillers(text) || hasListContent(text) {
		return false
	}
	if audioDuration <= 0 {
		return false
	}
	rate := float64(len([]rune(text))) / audioDuration
	return rate >= 1.5 && rate <= 8.0
}

var fillerWords = []string{"嗯", "呃", "那個", "就是說"}

func hasExcessiveFillers(text string) bool {
	count := 0
	for _, f := range fillerWords {
		count += strings.Count(text, f)
	}
	return count >= 3
}

func hasListContent(text string) bool {
	return strings.Contains(text, "第一") && strings.Contains(text, "第二")
}
