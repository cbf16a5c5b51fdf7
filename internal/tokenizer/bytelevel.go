package tokenizer

// byteToRune and runeToByte implement the standard GPT-2 reversible
// byte-to-unicode mapping (spec §4.2): printable ranges '!'..'~',
// 0xA1..0xAC, and 0xAE..0xFF map to themselves as code points; every other
// byte value gets a code point from a shifted tail starting at 256, so the
// mapping never collides and every byte has a one-rune representation.
var byteToRune [256]rune
var runeToByte map[rune]byte

func init() {
	runeToByte = make(map[rune]byte, 256)

	printable := make(map[int]bool)
	addRange := func(lo, hi int) {
		for b := lo; b <= hi; b++ {
			printable[b] = true
		}
	}
	addRange('!', '~')
	addRange(0xA1, 0xAC)
	addRange(0xAE, 0xFF)

	n := rune(0)
	for b := 0; b < 256; b++ {
		if printable[b] {
			byteToRune[b] = rune(b)
		} else {
			byteToRune[b] = rune(256) + n
			n++
		}
	}
	for b := 0; b < 256; b++ {
		runeToByte[byteToRune[b]] = byte(b)
	}
}

// bytesToPiece converts raw bytes to their reversible-rune string form, the
// representation the BPE merge table operates on.
func bytesToPiece(b []byte) string {
	out := make([]rune, len(b))
	for i, c := range b {
		out[i] = byteToRune[c]
	}
	return string(out)
}

// pieceToBytes reverses bytesToPiece. Runes not in the reversible map are
// dropped — they cannot have come from a byte-level piece.
func pieceToBytes(s string) []byte {
	out := make([]byte, 0, len(s))
	for _, r := range s {
		if b, ok := runeToByte[r]; ok {
			out = append(out, b)
		}
	}
	return out
}
