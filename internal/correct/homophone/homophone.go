// Package homophone implements the segment-aware homophone correction
// engine (spec §4.9): it segments text with a frequency-driven max-match
// tokenizer, flags suspicious (rare or unknown) words, proposes homophone
// substitutions from the pinyin database, and accepts the
// highest-scoring candidate that clears the score threshold.
package homophone

import (
	"sort"
	"unicode"

	"github.com/mandarin-voice/qwen3asr/internal/correct"
	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

const (
	maxWordLength    = 4
	lowFreqThreshold = 5
	minScoreDelta    = 2.0
	topNHomophones   = 30
)

// Engine runs the homophone-correction pipeline over a loaded pinyin
// database and protection list.
type Engine struct {
	db         *pinyin.DB
	protection *protect.List
}

// New constructs an Engine. db must be non-nil and fully loaded (spec §5's
// "provided the pinyin DB has finished loading" precondition).
func New(db *pinyin.DB, protection *protect.List) *Engine {
	return &Engine{db: db, protection: protection}
}

type tokenSpan struct {
	text       string
	start, end int // rune offsets into the original text
}

// Correct runs the full pipeline and returns the corrected text plus the
// "orig->cand" labels of every accepted substitution, in left-to-right
// order.
func (e *Engine) Correct(text string) (string, []string) {
	runes := []rune(text)
	tokens := segment(e.db, runes)
	suspicious := findSuspicious(e.db, tokens)

	type accepted struct {
		span tokenSpan
		cand string
	}
	var accepts []accepted
	for _, sp := range suspicious {
		if e.protection.Contains(sp.text) {
			continue
		}
		cand, ok := e.bestCandidate(runes, sp)
		if ok {
			accepts = append(accepts, accepted{span: sp, cand: cand})
		}
	}

	// Apply end-to-start so earlier offsets stay valid even if a future
	// engine in the pipeline changes a replacement's character count
	// (spec §4.9: "Processed end-to-start so offsets remain valid").
	sort.Slice(accepts, func(i, j int) bool { return accepts[i].span.start > accepts[j].span.start })

	out := append([]rune(nil), runes...)
	var labels []string
	for _, a := range accepts {
		replacement := []rune(a.cand)
		tail := append([]rune(nil), out[a.span.end:]...)
		out = append(out[:a.span.start], append(replacement, tail...)...)
		labels = append([]string{a.span.text + "->" + a.cand}, labels...)
	}
	return string(out), labels
}

func (e *Engine) bestCandidate(runes []rune, sp tokenSpan) (string, bool) {
	candidates := genCandidates(e.db, sp.text)
	if len(candidates) == 0 {
		return "", false
	}
	left, right := adjacentChars(runes, sp.start, sp.end)

	bestScore := minScoreDelta
	bestCand := ""
	found := false
	for _, cand := range candidates {
		score := correct.Score(e.db, sp.text, cand, left, right)
		if score > bestScore {
			bestScore = score
			bestCand = cand
			found = true
		}
	}
	return bestCand, found
}

func adjacentChars(runes []rune, start, end int) (left, right string) {
	if start > 0 {
		left = string(runes[start-1])
	}
	if end < len(runes) {
		right = string(runes[end])
	}
	return left, right
}

// genCandidates proposes every per-position homophone substitution, and for
// 2-character words additionally the Cartesian product of each position's
// top-N homophones (spec §4.9 step 3).
func genCandidates(db *pinyin.DB, word string) []string {
	runes := []rune(word)
	seen := make(map[string]bool)
	var out []string
	add := func(s string) {
		if s != word && !seen[s] {
			seen[s] = true
			out = append(out, s)
		}
	}

	perPos := make([][]string, len(runes))
	for pos := range runes {
		homos := db.Homophones(string(runes[pos]))
		perPos[pos] = homos
		for _, h := range homos {
			cand := append([]rune(nil), runes...)
			cand[pos] = []rune(h)[0]
			add(string(cand))
		}
	}

	if len(runes) == 2 {
		h0 := limitTop(perPos[0], topNHomophones)
		h1 := limitTop(perPos[1], topNHomophones)
		for _, a := range h0 {
			for _, b := range h1 {
				add(a + b)
			}
		}
	}
	return out
}

func limitTop(s []string, n int) []string {
	if len(s) > n {
		return s[:n]
	}
	return s
}

// segment runs a frequency-driven forward maximum-match tokenizer over
// runes (spec §4.9 step 1's "word tokenizer"), preferring the longest
// known word up to maxWordLength at each position and falling back to a
// single character.
func segment(db *pinyin.DB, runes []rune) []tokenSpan {
	var tokens []tokenSpan
	for i := 0; i < len(runes); {
		matched := false
		maxL := maxWordLength
		if i+maxL > len(runes) {
			maxL = len(runes) - i
		}
		for l := maxL; l >= 2; l-- {
			cand := string(runes[i : i+l])
			if db.KnownWord(cand) {
				tokens = append(tokens, tokenSpan{text: cand, start: i, end: i + l})
				i += l
				matched = true
				break
			}
		}
		if !matched {
			tokens = append(tokens, tokenSpan{text: string(runes[i]), start: i, end: i + 1})
			i++
		}
	}
	return tokens
}

func isAllCJK(s string) bool {
	for _, r := range s {
		if !correct.IsCJK(r) {
			return false
		}
	}
	return true
}

// findSuspicious implements spec §4.9 step 2: a word is suspicious if it's
// CJK, length <= maxWordLength, not a function word, and unknown or
// low-frequency; adjacent single-CJK-char tokens are additionally combined
// into 2-char sliding-window candidates under the same frequency test.
func findSuspicious(db *pinyin.DB, tokens []tokenSpan) []tokenSpan {
	var out []tokenSpan
	for _, tok := range tokens {
		if isSuspicious(db, tok.text) {
			out = append(out, tok)
		}
	}
	for i := 0; i+1 < len(tokens); i++ {
		a, b := tokens[i], tokens[i+1]
		if len([]rune(a.text)) != 1 || len([]rune(b.text)) != 1 {
			continue
		}
		if !isAllCJK(a.text) || !isAllCJK(b.text) {
			continue
		}
		combined := a.text + b.text
		if db.WordFreq(combined) <= lowFreqThreshold {
			out = append(out, tokenSpan{text: combined, start: a.start, end: b.end})
		}
	}
	return out
}

func isSuspicious(db *pinyin.DB, word string) bool {
	runes := []rune(word)
	if len(runes) == 0 || len(runes) > maxWordLength {
		return false
	}
	if !isAllCJK(word) {
		return false
	}
	if correct.FunctionWords[word] {
		return false
	}
	if !unicode.Is(unicode.Han, runes[0]) {
		return false
	}
	return db.WordFreq(word) <= lowFreqThreshold
}
