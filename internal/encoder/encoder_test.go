package encoder

import "testing"

func TestGetOutputLengthExactChunkMultiple(t *testing.T) {
	nWindow := 8 // chunk = 16
	got := GetOutputLength(32, nWindow)
	want := 2 * 13 // two full chunks, no remainder
	if got != want {
		t.Fatalf("GetOutputLength(32, 8) = %d, want %d", got, want)
	}
}

func TestGetOutputLengthZeroForEmpty(t *testing.T) {
	if got := GetOutputLength(0, 8); got != 0 {
		t.Fatalf("GetOutputLength(0, 8) = %d, want 0", got)
	}
}

func TestGetOutputLengthWithRemainder(t *testing.T) {
	nWindow := 8 // chunk = 16
	got := GetOutputLength(20, nWindow)
	if got <= 13 {
		t.Fatalf("GetOutputLength(20, 8) = %d, want > 13 (one full chunk plus remainder tokens)", got)
	}
}

func TestBuildBlockDiagonalMaskBlocksCrossWindow(t *testing.T) {
	mask := BuildBlockDiagonalMask(4, 2)
	if mask[0][1] != 0 {
		t.Fatalf("positions 0,1 share a window, want mask 0, got %f", mask[0][1])
	}
	if mask[0][2] != -1e9 {
		t.Fatalf("positions 0,2 are in different windows, want -1e9, got %f", mask[0][2])
	}
}

func TestPosEmbCacheEvictsLRU(t *testing.T) {
	c := NewPosEmbCache()
	for l := 1; l <= posEmbCacheCapacity; l++ {
		c.Get(l, 4)
	}
	if c.Len() != posEmbCacheCapacity {
		t.Fatalf("cache len = %d, want %d", c.Len(), posEmbCacheCapacity)
	}

	c.Get(1, 4) // refresh length 1 so it's not the LRU victim
	c.Get(posEmbCacheCapacity+1, 4)
	if c.Len() != posEmbCacheCapacity {
		t.Fatalf("cache len after eviction = %d, want %d", c.Len(), posEmbCacheCapacity)
	}

	c.mu.Lock()
	_, stillThere := c.entries[1]
	c.mu.Unlock()
	if !stillThere {
		t.Fatal("recently used length 1 should not have been evicted")
	}
}

func TestPosEmbCacheClear(t *testing.T) {
	c := NewPosEmbCache()
	c.Get(5, 4)
	c.Clear()
	if c.Len() != 0 {
		t.Fatalf("cache len after Clear = %d, want 0", c.Len())
	}
}

func TestSinusoidalPositionEmbeddingShape(t *testing.T) {
	pe := sinusoidalPositionEmbedding(3, 8)
	if len(pe) != 3 || len(pe[0]) != 8 {
		t.Fatalf("shape = %dx%d, want 3x8", len(pe), len(pe[0]))
	}
	// position 0 is angle 0 for every frequency: sin=0, cos=1.
	for i := 0; i < 4; i++ {
		if pe[0][i] != 0 {
			t.Fatalf("pe[0][%d] = %f, want 0 (sin half at position 0)", i, pe[0][i])
		}
		if pe[0][4+i] != 1 {
			t.Fatalf("pe[0][%d] = %f, want 1 (cos half at position 0)", 4+i, pe[0][4+i])
		}
	}
}
