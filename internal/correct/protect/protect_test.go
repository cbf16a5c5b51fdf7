package protect

import "testing"

func TestAddRemoveContains(t *testing.T) {
	l := New(nil)
	if l.Contains("硬輸入") {
		t.Fatal("expected empty list to not contain word")
	}
	l.Add("硬輸入")
	if !l.Contains("硬輸入") {
		t.Fatal("expected list to contain added word")
	}
	l.Remove("硬輸入")
	if l.Contains("硬輸入") {
		t.Fatal("expected list to not contain removed word")
	}
}

func TestNilListContainsNothing(t *testing.T) {
	var l *List
	if l.Contains("x") {
		t.Fatal("nil list must protect nothing")
	}
}

func TestAllWords(t *testing.T) {
	l := New([]string{"a", "b"})
	words := l.AllWords()
	if len(words) != 2 {
		t.Fatalf("AllWords() = %v, want 2 entries", words)
	}
}
