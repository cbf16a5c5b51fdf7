package syllable

import (
	"testing"

	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

func fixtureDB() *pinyin.DB {
	chars := map[string][]string{
		"你": {"ni3"}, "甭": {"beng2"}, "客": {"ke4"}, "氣": {"qi4"},
		"不": {"bu4"}, "用": {"yong4"},
	}
	words := map[string]int{
		"不用": 8000,
	}
	bigrams := map[[2]string]int{
		{"你", "甭"}: 2,
		{"甭", "客"}: 2,
		{"你", "不"}: 300,
		{"用", "客"}: 500,
		{"不", "用"}: 8000,
	}
	return pinyin.New(chars, words, bigrams)
}

func TestSyllableExpansionFindsCompressedWord(t *testing.T) {
	e := New(fixtureDB(), protect.New(nil))
	got, labels := e.Correct("你甭客氣")
	if got != "你不用客氣" {
		t.Fatalf("got %q, want 你不用客氣", got)
	}
	if len(labels) != 1 || labels[0] != "甭->不用" {
		t.Fatalf("labels = %v, want [甭->不用]", labels)
	}
}

func TestSyllableExpansionSkipsWellFittingChar(t *testing.T) {
	db := fixtureDB()
	// Raise 甭's neighbor bigrams above the suspicious threshold: it now
	// fits its context and should not be considered for expansion.
	db = pinyin.New(
		map[string][]string{"你": {"ni3"}, "甭": {"beng2"}, "客": {"ke4"}, "氣": {"qi4"}, "不": {"bu4"}, "用": {"yong4"}},
		map[string]int{"不用": 8000},
		map[[2]string]int{
			{"你", "甭"}: 200,
			{"甭", "客"}: 200,
			{"你", "不"}: 300,
			{"用", "客"}: 500,
			{"不", "用"}: 8000,
		},
	)
	e := New(db, protect.New(nil))
	got, labels := e.Correct("你甭客氣")
	if got != "你甭客氣" || len(labels) != 0 {
		t.Fatalf("got %q labels %v, want unchanged (not suspicious)", got, labels)
	}
}

func TestSyllableExpansionRespectsProtectionList(t *testing.T) {
	e := New(fixtureDB(), protect.New([]string{"甭"}))
	got, labels := e.Correct("你甭客氣")
	if got != "你甭客氣" || len(labels) != 0 {
		t.Fatalf("got %q labels %v, want protected char untouched", got, labels)
	}
}
