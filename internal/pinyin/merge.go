package pinyin

import "unicode/utf8"

// knownInitials lists pinyin initials in longest-first match order, so a
// two-letter initial (zh/ch/sh) is preferred over its single-letter prefix.
// "y" and "w" are included as glide initials purely for the purpose of this
// splitter: the merge-pinyin index only needs a deterministic, internally
// consistent split, not phonetic authority (see DESIGN.md).
var knownInitials = []string{
	"zh", "ch", "sh",
	"b", "p", "m", "f", "d", "t", "n", "l",
	"g", "k", "h", "j", "q", "x",
	"r", "z", "c", "s", "y", "w",
}

// splitInitialFinal splits a toneless pinyin syllable into its initial
// consonant (possibly empty, for zero-initial syllables like "an") and
// final.
func splitInitialFinal(toneless string) (initial, final string) {
	for _, in := range knownInitials {
		if len(toneless) > len(in) && toneless[:len(in)] == in {
			return in, toneless[len(in):]
		}
	}
	return "", toneless
}

// MergeIndex returns the derived initial(p1)+final(p2) -> [2-char words]
// mapping (spec's data model: "Merge-pinyin index"), building it on first
// use and caching it for the DB's lifetime (spec §3: "built lazily on first
// syllable-expansion call").
func (db *DB) MergeIndex() map[string][]MergeEntry {
	db.mergeOnce.Do(db.buildMergeIndex)
	return db.mergeIndex
}

func (db *DB) buildMergeIndex() {
	index := make(map[string][]MergeEntry)
	for word, freq := range db.wordFreq {
		if freq <= 0 {
			continue
		}
		chars := splitRunes(word)
		if len(chars) != 2 {
			continue
		}
		p1, ok1 := db.PrimaryReading(chars[0])
		p2, ok2 := db.PrimaryReading(chars[1])
		if !ok1 || !ok2 {
			continue
		}
		initial, _ := splitInitialFinal(Toneless(p1))
		_, final := splitInitialFinal(Toneless(p2))
		key := initial + final
		index[key] = append(index[key], MergeEntry{Word: word, Freq: freq})
	}
	db.mergeIndex = index
}

func splitRunes(s string) []string {
	out := make([]string, 0, utf8.RuneCountInString(s))
	for _, r := range s {
		out = append(out, string(r))
	}
	return out
}

// EditDistance1 reports whether a and b differ by at most one
// single-character insertion, deletion, or substitution (Levenshtein
// distance <= 1), without computing the full edit-distance matrix.
func EditDistance1(a, b string) bool {
	_, ok := EditDistanceUpTo1(a, b)
	return ok
}

// EditDistanceUpTo1 returns the exact Levenshtein distance between a and b
// when that distance is 0 or 1, and ok=false when it exceeds 1 (the
// syllable-expansion engine's merge_edit_distance term, spec §4.11, only
// ever needs to distinguish these three cases).
func EditDistanceUpTo1(a, b string) (dist int, ok bool) {
	if a == b {
		return 0, true
	}
	ra, rb := []rune(a), []rune(b)
	la, lb := len(ra), len(rb)
	if abs(la-lb) > 1 {
		return 0, false
	}
	if la == lb {
		diff := 0
		for i := range ra {
			if ra[i] != rb[i] {
				diff++
				if diff > 1 {
					return 0, false
				}
			}
		}
		return diff, diff <= 1
	}
	// One is exactly one rune longer: check it's a single insertion.
	longer, shorter := ra, rb
	if lb > la {
		longer, shorter = rb, ra
	}
	i, j, skipped := 0, 0, false
	for i < len(longer) && j < len(shorter) {
		if longer[i] == shorter[j] {
			i++
			j++
			continue
		}
		if skipped {
			return 0, false
		}
		skipped = true
		i++
	}
	return 1, true
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
