package tokenizer

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
)

func writeBPEFixture(t *testing.T) (string, string) {
	t.Helper()
	dir := t.TempDir()

	// byte-level pieces for "lo", "w", "e", "r" plus the merge "lo"+"w" -> "low"
	low := bytesToPiece([]byte("l")) + bytesToPiece([]byte("o"))
	vocab := map[string]int32{
		bytesToPiece([]byte("l")):    0,
		bytesToPiece([]byte("o")):    1,
		bytesToPiece([]byte("w")):    2,
		bytesToPiece([]byte("e")):    3,
		bytesToPiece([]byte("r")):    4,
		low:                          5,
		low + bytesToPiece([]byte("w")): 6,
		"<|im_start|>":               151644,
		"<|im_end|>":                 151645,
		"<|endoftext|>":              151643,
		"<|audio_pad|>":              151676,
		"<|audio_start|>":            151669,
		"<|audio_end|>":              151670,
		"<asr_text>":                 151704,
	}
	vocabPath := filepath.Join(dir, "vocab.json")
	data, err := json.Marshal(vocab)
	if err != nil {
		t.Fatalf("marshal vocab: %v", err)
	}
	if err := os.WriteFile(vocabPath, data, 0o644); err != nil {
		t.Fatalf("write vocab: %v", err)
	}

	mergesPath := filepath.Join(dir, "merges.txt")
	merges := "#version: 0.2\n" +
		bytesToPiece([]byte("l")) + " " + bytesToPiece([]byte("o")) + "\n" +
		low + " " + bytesToPiece([]byte("w")) + "\n"
	if err := os.WriteFile(mergesPath, []byte(merges), 0o644); err != nil {
		t.Fatalf("write merges: %v", err)
	}
	return vocabPath, mergesPath
}

func testSpecials() map[string]int32 {
	return map[string]int32{
		"im_start":    IDIMStart,
		"im_end":      IDIMEnd,
		"endoftext":   IDEndOfText,
		"audio_pad":   IDAudioPad,
		"audio_start": IDAudioStart,
		"audio_end":   IDAudioEnd,
		"asr_text":    IDASRText,
	}
}

func TestLoadBPEEncodeDecode(t *testing.T) {
	vocabPath, mergesPath := writeBPEFixture(t)

	bpe, err := LoadBPE(vocabPath, mergesPath, testSpecials())
	if err != nil {
		t.Fatalf("LoadBPE: %v", err)
	}

	ids := bpe.Encode("low")
	if len(ids) != 1 || ids[0] != 6 {
		t.Fatalf("Encode(%q) = %v, want [6]", "low", ids)
	}

	got := bpe.Decode(ids)
	if got != "low" {
		t.Fatalf("Decode(%v) = %q, want %q", ids, got, "low")
	}
}

func TestLoadBPEDecodeDropsSpecials(t *testing.T) {
	vocabPath, mergesPath := writeBPEFixture(t)
	bpe, err := LoadBPE(vocabPath, mergesPath, testSpecials())
	if err != nil {
		t.Fatalf("LoadBPE: %v", err)
	}

	got := bpe.Decode([]int32{IDIMStart, 6, IDIMEnd})
	if got != "low" {
		t.Fatalf("Decode with specials = %q, want %q", got, "low")
	}
}

func TestLoadBPESpecialMismatchRejected(t *testing.T) {
	vocabPath, mergesPath := writeBPEFixture(t)
	bad := testSpecials()
	bad["im_start"] = 9999

	if _, err := LoadBPE(vocabPath, mergesPath, bad); err == nil {
		t.Fatal("expected error for mismatched structurally-required special token")
	}
}

func TestBPEDecodeOne(t *testing.T) {
	vocabPath, mergesPath := writeBPEFixture(t)
	bpe, err := LoadBPE(vocabPath, mergesPath, testSpecials())
	if err != nil {
		t.Fatalf("LoadBPE: %v", err)
	}

	if got := bpe.DecodeOne(2); got != "w" {
		t.Fatalf("DecodeOne(2) = %q, want %q", got, "w")
	}
	if got := bpe.DecodeOne(IDIMStart); got != "" {
		t.Fatalf("DecodeOne(special) = %q, want empty", got)
	}
}

func TestBPESpecialLookup(t *testing.T) {
	vocabPath, mergesPath := writeBPEFixture(t)
	bpe, err := LoadBPE(vocabPath, mergesPath, testSpecials())
	if err != nil {
		t.Fatalf("LoadBPE: %v", err)
	}

	id, ok := bpe.Special("asr_text")
	if !ok || id != IDASRText {
		t.Fatalf("Special(asr_text) = (%d, %v), want (%d, true)", id, ok, IDASRText)
	}
	if _, ok := bpe.Special("nonexistent"); ok {
		t.Fatal("Special(nonexistent) should not be found")
	}
}
