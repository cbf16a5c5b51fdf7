package tokenizer

import (
	"encoding/json"
	"fmt"
	"os"
	"regexp"
	"strings"
)

// wordPattern approximates the GPT-2 pre-tokenizer: it groups any run of
// leading whitespace with the word (or punctuation run, or digit run) that
// follows it, per spec §4.2. Contractions get no special treatment since the
// archives this engine loads are Chinese-centric; ASCII contractions that do
// appear fall back to the generic word/punctuation split.
var wordPattern = regexp.MustCompile(`\s*[\p{L}\p{N}]+|\s*[^\s\p{L}\p{N}]+|\s+`)

// BPE is a byte-level byte-pair-encoding tokenizer (spec §4.2).
type BPE struct {
	encoder  map[string]int32 // piece (reversible-byte-rune string) -> id
	decoder  map[int32]string // id -> piece
	ranks    map[pairKey]int  // merge pair -> priority (lower = merge first)
	specials map[string]int32
}

type pairKey struct {
	a, b string
}

// LoadBPE reads a GPT-2-style vocabulary JSON and a merges text file, per
// spec §6.1's `vocab.json` / `merges.txt` sidecars. specials maps special
// token strings (e.g. "<|im_start|>") to IDs, usually read from
// tokenizer_config.json by the caller and passed in here.
func LoadBPE(vocabPath, mergesPath string, specials map[string]int32) (*BPE, error) {
	vocabData, err := os.ReadFile(vocabPath)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: read vocab: %w", err)
	}
	var raw map[string]int32
	if err := json.Unmarshal(vocabData, &raw); err != nil {
		return nil, fmt.Errorf("tokenizer: parse vocab: %w", err)
	}

	mergesData, err := os.ReadFile(mergesPath)
	if err != nil {
		return nil, fmt.Errorf("tokenizer: read merges: %w", err)
	}

	b := &BPE{
		encoder:  raw,
		decoder:  make(map[int32]string, len(raw)),
		ranks:    make(map[pairKey]int),
		specials: specials,
	}
	for piece, id := range raw {
		b.decoder[id] = piece
	}

	lines := strings.Split(string(mergesData), "\n")
	rank := 0
	for _, line := range lines {
		line = strings.TrimRight(line, "\r")
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		parts := strings.SplitN(line, " ", 2)
		if len(parts) != 2 {
			continue
		}
		b.ranks[pairKey{parts[0], parts[1]}] = rank
		rank++
	}
	if err := validateSpecials(specials); err != nil {
		return nil, err
	}
	return b, nil
}

func validateSpecials(specials map[string]int32) error {
	for _, name := range structurallyRequired {
		want, ok := SpecialNames[name]
		if !ok {
			continue
		}
		if got, present := specials[name]; present && got != want {
			return fmt.Errorf("tokenizer: %w: %s archive=%d contract=%d", ErrSpecialTokenMismatch, name, got, want)
		}
	}
	return nil
}

// Encode implements Codec.
func (b *BPE) Encode(text string) []int32 {
	var ids []int32
	for _, word := range wordPattern.FindAllString(text, -1) {
		pieces := b.bpeWord(bytesToPiece([]byte(word)))
		for _, p := range pieces {
			if id, ok := b.encoder[p]; ok {
				ids = append(ids, id)
			}
		}
	}
	return ids
}

// bpeWord iteratively merges the lowest-ranked adjacent pair of symbols
// until no pair in the merge table remains (spec §4.2).
func (b *BPE) bpeWord(word string) []string {
	symbols := splitRunes(word)
	if len(symbols) <= 1 {
		return symbols
	}
	for {
		bestRank := -1
		bestIdx := -1
		for i := 0; i < len(symbols)-1; i++ {
			if r, ok := b.ranks[pairKey{symbols[i], symbols[i+1]}]; ok {
				if bestRank == -1 || r < bestRank {
					bestRank = r
					bestIdx = i
				}
			}
		}
		if bestIdx == -1 {
			break
		}
		merged := symbols[bestIdx] + symbols[bestIdx+1]
		next := make([]string, 0, len(symbols)-1)
		next = append(next, symbols[:bestIdx]...)
		next = append(next, merged)
		next = append(next, symbols[bestIdx+2:]...)
		symbols = next
	}
	return symbols
}

func splitRunes(s string) []string {
	runes := []rune(s)
	out := make([]string, len(runes))
	for i, r := range runes {
		out[i] = string(r)
	}
	return out
}

// Decode implements Codec. Special tokens of the form <|...|> are dropped;
// bytes from ordinary pieces accumulate and are flushed (as UTF-8) whenever
// a non-byte token is encountered, per spec §4.2.
func (b *BPE) Decode(ids []int32) string {
	var out strings.Builder
	var acc []byte
	flush := func() {
		if len(acc) > 0 {
			out.Write(acc)
			acc = acc[:0]
		}
	}
	for _, id := range ids {
		piece, ok := b.decoder[id]
		if !ok {
			continue
		}
		if isSpecialPiece(piece) {
			flush()
			continue
		}
		acc = append(acc, pieceToBytes(piece)...)
	}
	flush()
	return strings.TrimSpace(out.String())
}

// DecodeOne implements Codec.
func (b *BPE) DecodeOne(id int32) string {
	piece, ok := b.decoder[id]
	if !ok || isSpecialPiece(piece) {
		return ""
	}
	return string(pieceToBytes(piece))
}

// Special implements Codec.
func (b *BPE) Special(name string) (int32, bool) {
	id, ok := b.specials[name]
	return id, ok
}

func isSpecialPiece(piece string) bool {
	return strings.HasPrefix(piece, "<|") && strings.HasSuffix(piece, "|>")
}
