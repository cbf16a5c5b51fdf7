package punct

import "testing"

func TestHalfToFullConvertsCommonMarks(t *testing.T) {
	got := HalfToFull("hello,world.ok?!")
	want := "hello，world。ok？！"
	if got != want {
		t.Fatalf("got %q, want %q", got, want)
	}
}

func TestHalfToFullLeavesUnmappedRunesAlone(t *testing.T) {
	in := "你好 world"
	if got := HalfToFull(in); got != in {
		t.Fatalf("got %q, want unchanged %q", got, in)
	}
}

func TestConvertSpokenHandlesSpecScenario(t *testing.T) {
	got, applied, ambiguous := ConvertSpoken("逗號句號問號")
	if got != "，。？" {
		t.Fatalf("got %q, want ，。？", got)
	}
	if len(applied) != 3 {
		t.Fatalf("applied = %v, want 3 entries", applied)
	}
	if len(ambiguous) != 0 {
		t.Fatalf("ambiguous = %v, want none for unambiguous phrases", ambiguous)
	}
}

func TestConvertSpokenLongestFirst(t *testing.T) {
	// "驚嘆號" must win over any shorter overlapping key before one might
	// accidentally be tried; also exercises a phrase with no overlap risk.
	got, applied, _ := ConvertSpoken("太棒了驚嘆號")
	if got != "太棒了！" {
		t.Fatalf("got %q, want 太棒了！", got)
	}
	if len(applied) != 1 || applied[0] != "驚嘆號->！" {
		t.Fatalf("applied = %v", applied)
	}
}

func TestConvertSpokenFlagsAmbiguousPhrase(t *testing.T) {
	got, applied, ambiguous := ConvertSpoken("I want to know how")
	if got != "I want to know ？" {
		t.Fatalf("got %q, want \"I want to know ？\"", got)
	}
	if len(applied) != 1 {
		t.Fatalf("applied = %v", applied)
	}
	if len(ambiguous) != 1 || ambiguous[0] != "how" {
		t.Fatalf("ambiguous = %v, want [how]", ambiguous)
	}
}

func TestConvertSpokenNoMatchIsNoop(t *testing.T) {
	in := "今天天氣真好"
	got, applied, ambiguous := ConvertSpoken(in)
	if got != in || applied != nil || ambiguous != nil {
		t.Fatalf("got %q applied=%v ambiguous=%v, want unchanged no-op", got, applied, ambiguous)
	}
}
