// Package nasal implements the -n/-ng nasal-swap correction engine (spec
// §4.10). Unlike the homophone engine it scans every CJK word regardless
// of frequency, since nasal-confusion errors produce words that look
// perfectly legitimate on their own.
package nasal

import (
	"sort"

	"github.com/mandarin-voice/qwen3asr/internal/correct"
	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

const (
	maxWordLength     = 4
	minCandidateFreq  = 100
	minScoreDelta     = 3.0
)

// Engine runs the nasal-swap correction pipeline.
type Engine struct {
	db         *pinyin.DB
	protection *protect.List
}

// New constructs an Engine.
func New(db *pinyin.DB, protection *protect.List) *Engine {
	return &Engine{db: db, protection: protection}
}

type tokenSpan struct {
	text       string
	start, end int
}

// Correct scans every CJK word up to maxWordLength characters and, per word,
// swaps in the single highest-scoring accepted nasal variant at one
// character position.
func (e *Engine) Correct(text string) (string, []string) {
	runes := []rune(text)
	tokens := segment(e.db, runes)

	type accepted struct {
		span tokenSpan
		cand string
	}
	var accepts []accepted
	for _, tok := range tokens {
		if !isAllCJK(tok.text) || e.protection.Contains(tok.text) {
			continue
		}
		if cand, ok := e.bestCandidate(runes, tok); ok {
			accepts = append(accepts, accepted{span: tok, cand: cand})
		}
	}

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

func (e *Engine) bestCandidate(runes []rune, tok tokenSpan) (string, bool) {
	word := []rune(tok.text)
	left, right := adjacentChars(runes, tok.start, tok.end)

	bestScore := minScoreDelta
	bestCand := ""
	found := false
	for pos := range word {
		variants := e.db.NasalVariants(string(word[pos]))
		for _, v := range variants {
			cand := append([]rune(nil), word...)
			cand[pos] = []rune(v)[0]
			candStr := string(cand)
			if e.db.WordFreq(candStr) < minCandidateFreq {
				continue
			}
			score := correct.Score(e.db, tok.text, candStr, left, right)
			if score > bestScore {
				bestScore = score
				bestCand = candStr
				found = true
			}
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
	if s == "" {
		return false
	}
	for _, r := range s {
		if !correct.IsCJK(r) {
			return false
		}
	}
	return true
}
