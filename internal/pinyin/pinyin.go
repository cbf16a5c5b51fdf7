// Package pinyin loads the four read-only pinyin/frequency resources that
// drive the data-driven correction engines (spec §4.7, §3: char->pinyin,
// pinyin->chars, word->freq, bigram->freq), plus the derived merge-pinyin
// index (spec §4.11/§3) built lazily on first syllable-expansion query.
//
// A DB is loaded once and shared read-only across every correction engine
// (spec §5: "Read-only after initialization: pinyin DB"); callers obtain a
// borrowed *DB rather than a private copy.
package pinyin

import (
	"embed"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
)

//go:embed data/*.json
var seedFS embed.FS

// DB is a loaded pinyin/frequency resource set. The zero value is not
// valid; use New, LoadEmbedded, or LoadFromDir.
type DB struct {
	charPinyin map[string][]string // char -> [pinyin-with-tone], primary first
	pinyinChar map[string][]string // toneless pinyin -> [char]
	wordFreq   map[string]int
	bigramFreq map[[2]string]int

	mergeOnce  sync.Once
	mergeIndex map[string][]MergeEntry
}

// MergeEntry is one candidate in the merge-pinyin index: a 2-character
// word and its corpus frequency (spec's data model: "Merge-pinyin index").
type MergeEntry struct {
	Word string
	Freq int
}

// New builds a DB directly from in-memory tables. Used by LoadEmbedded /
// LoadFromDir, and directly by tests that want a small bespoke fixture
// instead of the bundled seed dataset.
func New(charPinyin map[string][]string, wordFreq map[string]int, bigramFreq map[[2]string]int) *DB {
	db := &DB{
		charPinyin: charPinyin,
		pinyinChar: make(map[string][]string),
		wordFreq:   wordFreq,
		bigramFreq: bigramFreq,
	}
	for c, readings := range charPinyin {
		if len(readings) == 0 {
			continue
		}
		toneless := Toneless(readings[0])
		db.pinyinChar[toneless] = append(db.pinyinChar[toneless], c)
	}
	return db
}

// decodeBigrams converts the on-disk bigram shape, "left,right" -> freq, into
// [2]string keys; the file is a flat map since Go's encoding/json cannot key
// a map by a [2]string directly.
func decodeBigrams(raw map[string]int) map[[2]string]int {
	out := make(map[[2]string]int, len(raw))
	for key, freq := range raw {
		parts := strings.SplitN(key, ",", 2)
		if len(parts) != 2 {
			continue
		}
		out[[2]string{parts[0], parts[1]}] = freq
	}
	return out
}

// LoadEmbedded builds a DB from the bundled seed resources (go:embed). This
// is a representative seed sufficient to exercise every invariant in
// spec.md §8; production deployments swap in a full CC-CEDICT-derived
// dataset via LoadFromDir without any code change.
func LoadEmbedded() (*DB, error) {
	return loadFS(seedFS, "data")
}

// LoadFromDir builds a DB from chars.json/words.json/bigrams.json in dir,
// the same three-file layout as the embedded seed.
func LoadFromDir(dir string) (*DB, error) {
	return loadFS(os.DirFS(dir).(interface{ ReadFile(string) ([]byte, error) }), ".")
}

func loadFS(fs interface{ ReadFile(string) ([]byte, error) }, dir string) (*DB, error) {
	chars, err := readJSONStringSlice(fs, filepath.Join(dir, "chars.json"))
	if err != nil {
		return nil, fmt.Errorf("pinyin: load chars: %w", err)
	}
	words, err := readJSONInt(fs, filepath.Join(dir, "words.json"))
	if err != nil {
		return nil, fmt.Errorf("pinyin: load words: %w", err)
	}
	rawBigrams, err := readJSONInt(fs, filepath.Join(dir, "bigrams.json"))
	if err != nil {
		return nil, fmt.Errorf("pinyin: load bigrams: %w", err)
	}
	return New(chars, words, decodeBigrams(rawBigrams)), nil
}

func readJSONStringSlice(fs interface{ ReadFile(string) ([]byte, error) }, path string) (map[string][]string, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string][]string
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func readJSONInt(fs interface{ ReadFile(string) ([]byte, error) }, path string) (map[string]int, error) {
	data, err := fs.ReadFile(path)
	if err != nil {
		return nil, err
	}
	var out map[string]int
	if err := json.Unmarshal(data, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Toneless strips a trailing tone digit (1-5) from a pinyin syllable, e.g.
// "ying4" -> "ying".
func Toneless(syllable string) string {
	if syllable == "" {
		return syllable
	}
	last := syllable[len(syllable)-1]
	if last >= '1' && last <= '5' {
		return syllable[:len(syllable)-1]
	}
	return syllable
}

// CharPinyin returns every loaded reading for a single-scalar character,
// primary (most common) reading first.
func (db *DB) CharPinyin(c string) ([]string, bool) {
	r, ok := db.charPinyin[c]
	return r, ok
}

// PrimaryReading returns a character's first-listed pinyin reading, used as
// the filter that avoids archaic-secondary-reading false homophones
// (spec §4.7).
func (db *DB) PrimaryReading(c string) (string, bool) {
	r, ok := db.charPinyin[c]
	if !ok || len(r) == 0 {
		return "", false
	}
	return r[0], true
}

// PinyinToChars returns every character whose primary reading's toneless
// form equals toneless.
func (db *DB) PinyinToChars(toneless string) []string {
	return db.pinyinChar[toneless]
}

// WordFreq returns a word's corpus frequency, 0 if unknown.
func (db *DB) WordFreq(w string) int {
	return db.wordFreq[w]
}

// KnownWord reports whether w has a nonzero recorded frequency.
func (db *DB) KnownWord(w string) bool {
	f, ok := db.wordFreq[w]
	return ok && f > 0
}

// BigramFreq returns the corpus frequency of the adjacent pair (left, right).
// Either side may be "" to represent a text boundary, which is never a hit.
func (db *DB) BigramFreq(left, right string) int {
	return db.bigramFreq[[2]string{left, right}]
}

// Homophones returns every character c' != c whose primary reading has the
// same toneless form as c's primary reading (spec §4.7's primary-reading
// filter).
func (db *DB) Homophones(c string) []string {
	primary, ok := db.PrimaryReading(c)
	if !ok {
		return nil
	}
	toneless := Toneless(primary)
	var out []string
	for _, cand := range db.pinyinChar[toneless] {
		if cand != c {
			out = append(out, cand)
		}
	}
	return out
}

// NasalVariants computes c's toneless primary reading, swaps the trailing
// nasal (ng<->n), and applies the primary-reading filter against the
// swapped form. Returns nil if the reading has no trailing nasal.
func (db *DB) NasalVariants(c string) []string {
	primary, ok := db.PrimaryReading(c)
	if !ok {
		return nil
	}
	toneless := Toneless(primary)
	swapped, ok := swapNasal(toneless)
	if !ok {
		return nil
	}
	var out []string
	for _, cand := range db.pinyinChar[swapped] {
		if cand != c {
			out = append(out, cand)
		}
	}
	return out
}

// swapNasal swaps a trailing "-ng" for "-n" or vice versa. ok is false if
// the syllable has no trailing nasal at all.
func swapNasal(toneless string) (string, bool) {
	switch {
	case strings.HasSuffix(toneless, "ng"):
		return strings.TrimSuffix(toneless, "g"), true
	case strings.HasSuffix(toneless, "n"):
		return toneless + "g", true
	default:
		return "", false
	}
}
