// Package correct holds types and the candidate-scoring formula shared by
// the data-driven correction engines (spec §4.9-§4.11): the homophone,
// nasal, and syllable-expansion engines all accept or reject a candidate
// substitution using the same word-frequency + bigram-context score.
package correct

import (
	"math"

	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

// Context carries the hints rule-based and data-driven correction use to
// decide whether a context-dependent rule applies, and that the router
// (C16) also consults (spec §4.8, §3's "Context memory").
type Context struct {
	RecentTranscripts []string
	AppName           string
	WindowTitle       string
}

// BigramScore sums log(bigram_freq+1) over (leftCtx, firstChar) and
// (lastChar, rightCtx), the contextual fit term in spec §4.9's scoring
// formula. Either context side may be "" at a text boundary.
func BigramScore(db *pinyin.DB, leftCtx, firstChar, lastChar, rightCtx string) float64 {
	left := math.Log(float64(db.BigramFreq(leftCtx, firstChar)) + 1)
	right := math.Log(float64(db.BigramFreq(lastChar, rightCtx)) + 1)
	return left + right
}

// FunctionWords is the 25-character closed-class skip set shared by the
// homophone (spec §4.9 step 2) and syllable-expansion (spec §4.11) engines:
// these characters are never flagged as suspicious regardless of
// frequency, since their rareness as standalone tokens is a segmentation
// artifact, not a transcription error.
var FunctionWords = map[string]bool{
	"的": true, "了": true, "是": true, "在": true, "我": true,
	"你": true, "他": true, "她": true, "它": true, "們": true,
	"這": true, "那": true, "和": true, "與": true, "或": true,
	"就": true, "都": true, "也": true, "還": true, "又": true,
	"再": true, "很": true, "太": true, "更": true, "最": true,
}

// IsCJK reports whether r falls in the CJK Unified Ideographs block or its
// Extension A block (spec's uncertain-word grouping range, reused here for
// "is this a Chinese character" checks across the correction engines).
func IsCJK(r rune) bool {
	return (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF)
}

// Score implements spec §4.9's candidate-scoring formula:
//
//	score = log(cand_freq) - log(orig_freq+1) + 0.3*(cand_bigram_score - orig_bigram_score)
//
// orig and cand are same-length CJK strings (the original word/char run and
// the candidate with one or more characters swapped); leftCtx/rightCtx are
// the single characters (or "") adjacent to the run in the full text.
func Score(db *pinyin.DB, orig, cand, leftCtx, rightCtx string) float64 {
	origRunes := []rune(orig)
	candRunes := []rune(cand)
	origFreq := db.WordFreq(orig)
	candFreq := db.WordFreq(cand)

	origBigram := BigramScore(db, leftCtx, string(origRunes[0]), string(origRunes[len(origRunes)-1]), rightCtx)
	candBigram := BigramScore(db, leftCtx, string(candRunes[0]), string(candRunes[len(candRunes)-1]), rightCtx)

	return math.Log(float64(candFreq)) - math.Log(float64(origFreq)+1) + 0.3*(candBigram-origBigram)
}
