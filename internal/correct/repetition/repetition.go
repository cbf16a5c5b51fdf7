// Package repetition implements the repeated-hallucination detector (spec
// §4.12 step 7 / §8 invariant #7): it finds the most-repeated short
// character pattern in a transcript and flags it as severe once repetition
// dominates enough of the text to be a decoding artifact rather than
// genuine speech.
package repetition

// SevereRatio is the fraction of the transcript's rune length that the
// single most-repeated pattern must occupy before the detector flags it
// as severe hallucinated repetition.
const SevereRatio = 0.5

// minRepeatsByPatLen is the fewest consecutive repeats worth reporting for
// each pattern length (spec §4.12 step 7 / §8 invariant #7): >=4 for a
// single-character pattern, >=3 for a 2-character pattern, >=2 for a
// 3-character pattern. Shorter runs are normal speech (e.g. "哈哈").
var minRepeatsByPatLen = [4]int{0, 4, 3, 2} // index by patLen, 0 unused

// Info describes the most significant repeated pattern found, if any.
type Info struct {
	Pattern string
	Count   int
	Ratio   float64
	Severe  bool
}

// Detect scans text for the longest run of a repeated 1-3 rune pattern and
// reports it. It returns the zero Info (Severe == false, Pattern == "") if
// no pattern repeats at least minRepeatsByPatLen[patLen] times.
func Detect(text string) Info {
	runes := []rune(text)
	n := len(runes)
	if n == 0 {
		return Info{}
	}

	best := Info{}
	bestSpan := 0

	for patLen := 1; patLen <= 3; patLen++ {
		for start := 0; start+patLen <= n; start++ {
			pattern := runes[start : start+patLen]
			count := 1
			pos := start + patLen
			for pos+patLen <= n && runesEqual(runes[pos:pos+patLen], pattern) {
				count++
				pos += patLen
			}
			if count < minRepeatsByPatLen[patLen] {
				continue
			}
			span := count * patLen
			if span > bestSpan {
				bestSpan = span
				best = Info{Pattern: string(pattern), Count: count}
			}
		}
	}

	if best.Pattern == "" {
		return Info{}
	}
	best.Ratio = float64(bestSpan) / float64(n)
	best.Severe = best.Ratio >= SevereRatio
	return best
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
