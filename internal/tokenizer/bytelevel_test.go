package tokenizer

import "testing"

func TestBytesToPieceRoundTrip(t *testing.T) {
	cases := [][]byte{
		[]byte("hello"),
		[]byte("你好"),
		{0x00, 0x01, 0xff, 0x80},
		[]byte(""),
	}

	for _, raw := range cases {
		piece := bytesToPiece(raw)
		back := pieceToBytes(piece)
		if len(back) != len(raw) {
			t.Fatalf("round trip length mismatch: got %d want %d (raw=%v)", len(back), len(raw), raw)
		}
		for i := range raw {
			if back[i] != raw[i] {
				t.Fatalf("round trip mismatch at %d: got %x want %x", i, back[i], raw[i])
			}
		}
	}
}

func TestByteToRuneNoCollisions(t *testing.T) {
	seen := make(map[rune]bool, 256)
	for b := 0; b < 256; b++ {
		r := byteToRune[b]
		if seen[r] {
			t.Fatalf("byte %d collides with an earlier byte at rune %d", b, r)
		}
		seen[r] = true
	}
}
