// Package syllable implements the syllable-expansion correction engine
// (spec §4.11): it detects single characters whose bigram context doesn't
// fit either neighbor, then searches the pinyin database's merge-pinyin
// index for a 2-character word that plausibly compressed into that one
// syllable.
package syllable

import (
	"math"
	"sort"

	"github.com/mandarin-voice/qwen3asr/internal/correct"
	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

const (
	suspiciousBigramThreshold = 50
	contextImprovementGate    = 3.0
	acceptScoreThreshold      = 7.0
)

// Engine runs the syllable-expansion pipeline.
type Engine struct {
	db         *pinyin.DB
	protection *protect.List
}

// New constructs an Engine.
func New(db *pinyin.DB, protection *protect.List) *Engine {
	return &Engine{db: db, protection: protection}
}

type expansion struct {
	pos   int // rune index of the suspicious character
	word  string
}

// Correct scans text left to right for suspicious single characters and
// expands every accepted one into its best-scoring 2-character word. The
// expansions are applied end-to-start, so rune positions of lower-index
// accepts stay valid after higher-index expansions.
func (e *Engine) Correct(text string) (string, []string) {
	runes := []rune(text)
	var accepts []expansion

	for i, r := range runes {
		ch := string(r)
		if !correct.IsCJK(r) || correct.FunctionWords[ch] || e.protection.Contains(ch) {
			continue
		}
		left, right := adjacent(runes, i)
		leftBigram := e.db.BigramFreq(left, ch)
		rightBigram := e.db.BigramFreq(ch, right)
		if leftBigram > suspiciousBigramThreshold || rightBigram > suspiciousBigramThreshold {
			continue
		}
		if word, ok := e.bestExpansion(ch, left, right, leftBigram, rightBigram); ok {
			accepts = append(accepts, expansion{pos: i, word: word})
		}
	}

	sort.Slice(accepts, func(i, j int) bool { return accepts[i].pos > accepts[j].pos })

	out := append([]rune(nil), runes...)
	var labels []string
	for _, a := range accepts {
		orig := string(out[a.pos])
		tail := append([]rune(nil), out[a.pos+1:]...)
		out = append(out[:a.pos], append([]rune(a.word), tail...)...)
		labels = append([]string{orig + "->" + a.word}, labels...)
	}
	return string(out), labels
}

// bestExpansion finds the highest-scoring 2-character word that plausibly
// compressed into ch, per spec §4.11's scoring formula.
func (e *Engine) bestExpansion(ch, left, right string, origLeftBigram, origRightBigram int) (string, bool) {
	readings, ok := e.db.CharPinyin(ch)
	if !ok {
		return "", false
	}
	index := e.db.MergeIndex()

	best := ""
	bestScore := acceptScoreThreshold
	found := false

	for _, reading := range readings {
		target := pinyin.Toneless(reading)
		for key, entries := range index {
			dist, ok := pinyin.EditDistanceUpTo1(key, target)
			if !ok {
				continue
			}
			for _, entry := range entries {
				wordRunes := []rune(entry.Word)
				newLeftBigram := e.db.BigramFreq(left, string(wordRunes[0]))
				newRightBigram := e.db.BigramFreq(string(wordRunes[1]), right)
				contextImprovement := 0.5 * float64((newLeftBigram-origLeftBigram)+(newRightBigram-origRightBigram))
				if contextImprovement < contextImprovementGate {
					continue
				}
				internalBigram := e.db.BigramFreq(string(wordRunes[0]), string(wordRunes[1]))
				score := math.Log(float64(entry.Freq)+1) + contextImprovement +
					0.3*math.Log(float64(internalBigram)+1) - 2.0*float64(dist)
				if score >= bestScore {
					bestScore = score
					best = entry.Word
					found = true
				}
			}
		}
	}
	return best, found
}

func adjacent(runes []rune, i int) (left, right string) {
	if i > 0 {
		left = string(runes[i-1])
	}
	if i+1 < len(runes) {
		right = string(runes[i+1])
	}
	return left, right
}
