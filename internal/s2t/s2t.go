// Package s2t implements the segment-aware Simplified-to-Traditional
// converter (spec §4.12 step 1 / §9.12, invariant #6): text is partitioned
// into CJK-or-kana runs and everything else; CJK-or-kana runs that contain
// no kana scalars are converted with the s2twp profile (phrase-aware
// Simplified→Traditional-Taiwan), while runs containing kana — and
// anything that isn't CJK-or-kana in the first place — pass through
// unchanged. This keeps Japanese text embedded in code-switched output
// intact.
package s2t

import (
	"strings"

	"github.com/liuzl/gocc"
)

// Converter is the subset of *gocc.OpenCC's surface this package depends
// on, so tests can substitute a fake.
type Converter interface {
	ConvertText(input string) (string, error)
}

// S2T runs the segment-aware conversion over a Converter.
type S2T struct {
	conv Converter
}

// New builds an S2T backed by the s2twp (Simplified→Traditional-Taiwan,
// phrase-level) OpenCC profile.
func New() (*S2T, error) {
	oc, err := gocc.New("s2twp")
	if err != nil {
		return nil, err
	}
	return &S2T{conv: oc}, nil
}

// NewWithConverter builds an S2T around an arbitrary Converter.
func NewWithConverter(c Converter) *S2T {
	return &S2T{conv: c}
}

// Convert applies the segment-aware conversion to text.
func (s *S2T) Convert(text string) (string, error) {
	var b strings.Builder
	for _, seg := range segments(text) {
		if !seg.isCJKOrKana || seg.hasKana {
			b.WriteString(seg.text)
			continue
		}
		converted, err := s.conv.ConvertText(seg.text)
		if err != nil {
			return "", err
		}
		b.WriteString(converted)
	}
	return b.String(), nil
}

type segment struct {
	text        string
	isCJKOrKana bool
	hasKana     bool
}

// isKana reports whether r is a Hiragana or Katakana scalar (spec §4.12
// step 1's U+3040..U+30FF).
func isKana(r rune) bool {
	return r >= 0x3040 && r <= 0x30FF
}

// isCJKOrKana reports whether r belongs to the Han, kana, CJK punctuation,
// fullwidth-forms, or CJK Extension B+ ranges (spec §4.13's "unexpected
// script" allow-list minus ASCII and Hangul).
func isCJKOrKana(r rune) bool {
	switch {
	case isKana(r):
		return true
	case r >= 0x4E00 && r <= 0x9FFF: // CJK Unified Ideographs
		return true
	case r >= 0x3400 && r <= 0x4DBF: // CJK Unified Ideographs Extension A
		return true
	case r >= 0x20000 && r <= 0x2FFFF: // CJK Extension B and beyond
		return true
	case r >= 0x3000 && r <= 0x303F: // CJK punctuation
		return true
	case r >= 0xFF00 && r <= 0xFFEF: // fullwidth/halfwidth forms
		return true
	default:
		return false
	}
}

// segments partitions text into contiguous isCJKOrKana / non-CJKOrKana
// runs, tagging each CJK-or-kana run with whether it contains any kana
// scalar.
func segments(text string) []segment {
	runes := []rune(text)
	if len(runes) == 0 {
		return nil
	}

	var out []segment
	start := 0
	curKind := isCJKOrKana(runes[0])
	hasKana := isKana(runes[0])

	flush := func(end int) {
		out = append(out, segment{
			text:        string(runes[start:end]),
			isCJKOrKana: curKind,
			hasKana:     hasKana,
		})
	}

	for i := 1; i < len(runes); i++ {
		kind := isCJKOrKana(runes[i])
		if kind != curKind {
			flush(i)
			start = i
			curKind = kind
			hasKana = false
		}
		if kind && isKana(runes[i]) {
			hasKana = true
		}
	}
	flush(len(runes))
	return out
}
