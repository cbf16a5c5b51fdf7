package kvcache

import "testing"

func TestAppendGrowsInPreviousCurrentOrder(t *testing.T) {
	c := New(1)

	firstK := [][][]float32{{{1, 2}}}
	firstV := [][][]float32{{{9, 9}}}
	k, v := c.Append(0, firstK, firstV)
	if len(k) != 1 || len(v) != 1 {
		t.Fatalf("after first append, len(k)=%d len(v)=%d, want 1,1", len(k), len(v))
	}

	secondK := [][][]float32{{{3, 4}}}
	secondV := [][][]float32{{{8, 8}}}
	k, v = c.Append(0, secondK, secondV)
	if len(k) != 2 {
		t.Fatalf("after second append, len(k)=%d, want 2", len(k))
	}
	if k[0][0][0] != 1 || k[1][0][0] != 3 {
		t.Fatalf("concat order wrong: got %v, want [previous, current]", k)
	}
	_ = v
}

func TestLenReflectsCachedSequence(t *testing.T) {
	c := New(2)
	if c.Len() != 0 {
		t.Fatalf("fresh cache Len() = %d, want 0", c.Len())
	}
	c.Append(0, [][][]float32{{{1}}}, [][][]float32{{{1}}})
	if c.Len() != 1 {
		t.Fatalf("Len() after one append = %d, want 1", c.Len())
	}
}
