package pinyin

import "testing"

func fixtureDB() *DB {
	chars := map[string][]string{
		"原": {"yuan2"},
		"因": {"yin1"},
		"音": {"yin1"},
		"人": {"ren2"},
		"仍": {"reng2"},
		"不": {"bu4"},
		"用": {"yong4"},
		"甭": {"beng2"},
	}
	words := map[string]int{
		"原因": 8000,
		"原音": 3,
		"仍然": 5000,
		"不用": 8000,
		"甭":  1200,
	}
	bigrams := map[[2]string]int{
		{"你", "不"}: 300,
		{"用", "客"}: 500,
		{"你", "甭"}: 2,
		{"甭", "客"}: 2,
	}
	return New(chars, words, bigrams)
}

func TestTonelessStripsTrailingDigit(t *testing.T) {
	if got := Toneless("ying4"); got != "ying" {
		t.Fatalf("Toneless(ying4) = %q, want ying", got)
	}
	if got := Toneless("de5"); got != "de" {
		t.Fatalf("Toneless(de5) = %q, want de", got)
	}
}

func TestHomophonesPrimaryReadingFilter(t *testing.T) {
	db := fixtureDB()
	homos := db.Homophones("音")
	found := false
	for _, c := range homos {
		if c == "因" {
			found = true
		}
	}
	if !found {
		t.Fatalf("Homophones(音) = %v, want to include 因", homos)
	}
}

func TestNasalVariantsSwapsTrailingNasal(t *testing.T) {
	db := fixtureDB()
	variants := db.NasalVariants("人")
	found := false
	for _, c := range variants {
		if c == "仍" {
			found = true
		}
	}
	if !found {
		t.Fatalf("NasalVariants(人) = %v, want to include 仍", variants)
	}
}

func TestNasalVariantsNoTrailingNasal(t *testing.T) {
	db := fixtureDB()
	db.charPinyin["他"] = []string{"ta1"}
	if v := db.NasalVariants("他"); v != nil {
		t.Fatalf("NasalVariants(他) = %v, want nil (no trailing nasal)", v)
	}
}

func TestMergeIndexContainsEveryTwoCharWord(t *testing.T) {
	db := fixtureDB()
	index := db.MergeIndex()

	initial, _ := splitInitialFinal(Toneless("bu4"))
	_, final := splitInitialFinal(Toneless("yong4"))
	key := initial + final

	entries := index[key]
	found := false
	for _, e := range entries {
		if e.Word == "不用" {
			found = true
		}
	}
	if !found {
		t.Fatalf("MergeIndex()[%q] = %v, want to contain 不用 (invariant #10)", key, entries)
	}
}

func TestMergeIndexEditDistance1FromSuspiciousChar(t *testing.T) {
	db := fixtureDB()
	index := db.MergeIndex()

	target := Toneless("beng2") // the suspicious single char's own reading
	var best *MergeEntry
	for key, entries := range index {
		if EditDistance1(key, target) {
			for i := range entries {
				if entries[i].Word == "不用" {
					best = &entries[i]
				}
			}
		}
	}
	if best == nil {
		t.Fatalf("no merge-index entry for 不用 within edit distance 1 of %q", target)
	}
}

func TestEditDistance1(t *testing.T) {
	cases := []struct {
		a, b string
		want bool
	}{
		{"beng", "bong", true},
		{"beng", "beng", true},
		{"beng", "peng", true},
		{"beng", "ben", true},
		{"beng", "bengs", true},
		{"beng", "xiong", false},
	}
	for _, c := range cases {
		if got := EditDistance1(c.a, c.b); got != c.want {
			t.Errorf("EditDistance1(%q, %q) = %v, want %v", c.a, c.b, got, c.want)
		}
	}
}

func TestPinyinToCharsAndWordFreq(t *testing.T) {
	db := fixtureDB()
	if !db.KnownWord("原因") {
		t.Fatal("expected 原因 to be a known word")
	}
	if db.WordFreq("原音") != 3 {
		t.Fatalf("WordFreq(原音) = %d, want 3", db.WordFreq("原音"))
	}
	chars := db.PinyinToChars("yin")
	if len(chars) < 2 {
		t.Fatalf("PinyinToChars(yin) = %v, want at least 因 and 音", chars)
	}
}
