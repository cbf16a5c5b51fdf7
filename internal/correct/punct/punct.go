// Package punct implements the punctuation-normalization stage (spec §4.12
// steps 2 and 6): a half-to-full-width character map, and a longest-key-
// first spoken-punctuation phrase map with ambiguous-phrase flagging.
package punct

import "sort"

// halfToFullMap maps common ASCII punctuation to its CJK full-width
// counterpart.
var halfToFullMap = map[rune]rune{
	',':  '，',
	'.':  '。',
	'?':  '？',
	'!':  '！',
	':':  '：',
	';':  '；',
	'(':  '（',
	')':  '）',
	'~':  '～',
	'%':  '％',
	'#':  '＃',
	'@':  '＠',
	'&':  '＆',
	'\'': '＇',
}

// HalfToFull rewrites every half-width punctuation rune in text to its
// full-width counterpart (spec §4.12 step 2); runes with no mapping pass
// through unchanged.
func HalfToFull(text string) string {
	out := []rune(text)
	changed := false
	for i, r := range out {
		if full, ok := halfToFullMap[r]; ok {
			out[i] = full
			changed = true
		}
	}
	if !changed {
		return text
	}
	return string(out)
}

// SpokenPunctuation maps a spoken punctuation name (including common
// English ASR mis-recognitions of Mandarin punctuation words, e.g. "how"
// for "號") to its symbol (spec §4.12 step 6).
var SpokenPunctuation = map[string]string{
	"逗號":       "，",
	"逗点":       "，",
	"句號":       "。",
	"句点":       "。",
	"問號":       "？",
	"驚嘆號":      "！",
	"冒號":       "：",
	"分號":       "；",
	"頓號":       "、",
	"how":      "？",
	"Know-How": "？",
}

// Ambiguous marks spoken-punctuation phrases that are also plausible as
// ordinary words, so a match is only weak evidence of a spoken-punctuation
// intent; the confidence router (C16) uses this to force an LLM pass
// rather than trust the substitution outright.
var Ambiguous = map[string]bool{
	"how":      true,
	"Know-How": true,
}

var orderedKeys = sortedKeysLongestFirst(SpokenPunctuation)

func sortedKeysLongestFirst(m map[string]string) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.SliceStable(keys, func(i, j int) bool {
		return len([]rune(keys[i])) > len([]rune(keys[j]))
	})
	return keys
}

// ConvertSpoken replaces every spoken-punctuation phrase in text with its
// symbol, longest phrase first, and reports which ambiguous phrases (if
// any) were matched for the router to consult later (spec §4.12 step 6).
func ConvertSpoken(text string) (result string, applied []string, ambiguousHits []string) {
	for _, key := range orderedKeys {
		sym := SpokenPunctuation[key]
		if count := countOccurrences(text, key); count > 0 {
			text = replaceAll(text, key, sym)
			applied = append(applied, key+"->"+sym)
			if Ambiguous[key] {
				for i := 0; i < count; i++ {
					ambiguousHits = append(ambiguousHits, key)
				}
			}
		}
	}
	return text, applied, ambiguousHits
}

func countOccurrences(text, sub string) int {
	if sub == "" {
		return 0
	}
	count := 0
	for i := 0; i+len(sub) <= len(text); {
		if text[i:i+len(sub)] == sub {
			count++
			i += len(sub)
			continue
		}
		i++
	}
	return count
}

func replaceAll(text, old, new string) string {
	if old == "" {
		return text
	}
	var out []byte
	for i := 0; i < len(text); {
		if i+len(old) <= len(text) && text[i:i+len(old)] == old {
			out = append(out, new...)
			i += len(old)
			continue
		}
		out = append(out, text[i])
		i++
	}
	return string(out)
}
