package context

import (
	"testing"
	"time"
)

func TestCapacityEviction(t *testing.T) {
	m := New(2, time.Hour)
	m.Add("a")
	m.Add("b")
	m.Add("c")
	recent := m.Recent()
	if len(recent) != 2 || recent[0] != "b" || recent[1] != "c" {
		t.Fatalf("Recent() = %v, want [b c]", recent)
	}
}

func TestTTLExpiry(t *testing.T) {
	m := New(10, time.Minute)
	fakeNow := time.Now()
	m.now = func() time.Time { return fakeNow }
	m.Add("old")
	fakeNow = fakeNow.Add(2 * time.Minute)
	m.Add("new")
	recent := m.Recent()
	if len(recent) != 1 || recent[0] != "new" {
		t.Fatalf("Recent() = %v, want [new] (old entry expired)", recent)
	}
}
