package correct

import (
	"math"
	"testing"

	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

func fixtureDB() *pinyin.DB {
	charPinyin := map[string][]string{
		"的": {"de"}, "硬": {"ying4"}, "語": {"yu3"},
	}
	wordFreq := map[string]int{
		"硬輸入": 3, "語音輸入": 5000, "輸入": 8000,
	}
	bigramFreq := map[[2]string]int{
		{"很", "語"}: 40, {"入", "很"}: 10,
		{"很", "硬"}: 1, {"入", "方"}: 2,
	}
	return pinyin.New(charPinyin, wordFreq, bigramFreq)
}

func TestBigramScoreSumsBothSides(t *testing.T) {
	db := fixtureDB()
	got := BigramScore(db, "很", "語", "入", "方")
	want := math.Log(41) + math.Log(3)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("BigramScore = %v, want %v", got, want)
	}
}

func TestBigramScoreZeroAtBoundary(t *testing.T) {
	db := fixtureDB()
	got := BigramScore(db, "", "語", "入", "")
	if got != 0 {
		t.Fatalf("BigramScore at text boundary = %v, want 0 (log(0+1)+log(0+1))", got)
	}
}

func TestScoreOfWordAgainstItselfCancelsBigramTerm(t *testing.T) {
	db := fixtureDB()
	// The bigram terms cancel, leaving log(freq) - log(freq+1) with freq 3.
	got := Score(db, "硬輸入", "硬輸入", "很", "方")
	want := math.Log(3) - math.Log(4)
	if math.Abs(got-want) > 1e-9 {
		t.Fatalf("Score(word, itself) = %v, want %v", got, want)
	}
}

func TestScoreRewardsHigherFrequencyAndBetterContext(t *testing.T) {
	db := fixtureDB()
	orig := "硬輸入" // freq 3, weak bigram with "很"
	cand := "語音輸入" // not same length as orig in this fixture, so score by
	// construction still reads origRunes[0]/[len-1] and candRunes[0]/[len-1]
	// independently — Score does not require equal length, only that each
	// side is addressed by its own first/last rune.
	got := Score(db, orig, cand, "很", "")
	if got <= 0 {
		t.Fatalf("Score favoring the higher-frequency, better-context candidate should be positive, got %v", got)
	}
}

func TestIsCJK(t *testing.T) {
	cases := []struct {
		r    rune
		want bool
	}{
		{'的', true},
		{'a', false},
		{'1', false},
		{0x3400, true},  // CJK Ext A lower bound
		{0x9FFF, true},  // CJK Unified upper bound
		{0x3040, false}, // hiragana, not CJK
	}
	for _, tc := range cases {
		if got := IsCJK(tc.r); got != tc.want {
			t.Errorf("IsCJK(%q) = %v, want %v", tc.r, got, tc.want)
		}
	}
}

func TestFunctionWordsContainsClosedClass(t *testing.T) {
	for _, w := range []string{"的", "了", "是", "我"} {
		if !FunctionWords[w] {
			t.Errorf("FunctionWords missing %q", w)
		}
	}
	if FunctionWords["硬"] {
		t.Error("FunctionWords should not contain a content character like 硬")
	}
}
