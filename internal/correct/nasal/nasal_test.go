package nasal

import (
	"testing"

	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

func fixtureDB() *pinyin.DB {
	chars := map[string][]string{
		"他": {"ta1"}, "人": {"ren2"}, "仍": {"reng2"}, "然": {"ran2"},
		"很": {"hen3"}, "好": {"hao3"},
	}
	words := map[string]int{
		"人": 50,
		"仍": 200,
	}
	bigrams := map[[2]string]int{
		{"他", "人"}: 80,
		{"人", "然"}: 1,
		{"他", "仍"}: 60,
		{"仍", "然"}: 8000,
	}
	return pinyin.New(chars, words, bigrams)
}

func TestNasalSwapCorrectsTrailingNasal(t *testing.T) {
	e := New(fixtureDB(), protect.New(nil))
	got, labels := e.Correct("他人然很好")
	if got != "他仍然很好" {
		t.Fatalf("got %q, want 他仍然很好", got)
	}
	if len(labels) != 1 || labels[0] != "人->仍" {
		t.Fatalf("labels = %v, want [人->仍]", labels)
	}
}

func TestNasalRejectsCandidateBelowMinFreq(t *testing.T) {
	chars := map[string][]string{
		"他": {"ta1"}, "人": {"ren2"}, "仍": {"reng2"}, "然": {"ran2"},
		"很": {"hen3"}, "好": {"hao3"},
	}
	words := map[string]int{
		"人": 50,
		"仍": 10, // below minCandidateFreq
	}
	bigrams := map[[2]string]int{
		{"他", "人"}: 80,
		{"人", "然"}: 1,
		{"他", "仍"}: 60,
		{"仍", "然"}: 8000,
	}
	db := pinyin.New(chars, words, bigrams)
	e := New(db, protect.New(nil))
	got, _ := e.Correct("他人然很好")
	if got != "他人然很好" {
		t.Fatalf("got %q, want unchanged (candidate below min freq)", got)
	}
}

func TestNasalRespectsProtectionList(t *testing.T) {
	e := New(fixtureDB(), protect.New([]string{"人"}))
	got, labels := e.Correct("他人然很好")
	if got != "他人然很好" || len(labels) != 0 {
		t.Fatalf("got %q labels %v, want protected token untouched", got, labels)
	}
}
