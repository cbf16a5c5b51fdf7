package encoder

import (
	"math"
	"sync"
)

// posEmbCacheCapacity is the fixed LRU capacity for the position-embedding
// cache (spec's data model: "Position-embedding cache ... capacity 8, LRU
// eviction"). Modeled as an explicit index-and-counter structure rather
// than a linked list, per SPEC_FULL.md's Open Question resolution.
const posEmbCacheCapacity = 8

// PosEmbCache memoizes sinusoidal position embeddings by sequence length,
// evicting the least recently used entry once more than posEmbCacheCapacity
// distinct lengths have been requested. Owned by the audio encoder for the
// lifetime of the loaded model.
type PosEmbCache struct {
	mu      sync.Mutex
	entries map[int][][]float32
	useTick map[int]uint64
	tick    uint64
}

// NewPosEmbCache constructs an empty cache.
func NewPosEmbCache() *PosEmbCache {
	return &PosEmbCache{
		entries: make(map[int][][]float32),
		useTick: make(map[int]uint64),
	}
}

// Get returns the sinusoidal position embedding for length/dModel, building
// and caching it on a miss.
func (c *PosEmbCache) Get(length, dModel int) [][]float32 {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.tick++
	if pe, ok := c.entries[length]; ok {
		c.useTick[length] = c.tick
		return pe
	}

	pe := sinusoidalPositionEmbedding(length, dModel)
	c.entries[length] = pe
	c.useTick[length] = c.tick

	if len(c.entries) > posEmbCacheCapacity {
		c.evictOldest()
	}
	return pe
}

func (c *PosEmbCache) evictOldest() {
	var oldestKey int
	var oldestTick uint64 = ^uint64(0)
	for k, t := range c.useTick {
		if t < oldestTick {
			oldestTick = t
			oldestKey = k
		}
	}
	delete(c.entries, oldestKey)
	delete(c.useTick, oldestKey)
}

// Len reports how many distinct lengths are currently cached (test hook).
func (c *PosEmbCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// Clear drops every cached entry (called when the engine unloads, per
// spec §4.6: "Unloading clears position-embedding caches").
func (c *PosEmbCache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[int][][]float32)
	c.useTick = make(map[int]uint64)
}

// sinusoidalPositionEmbedding builds the classic Transformer sinusoidal PE:
// log(10000) timescale, with each row's first half filled by sine and
// second half by cosine of the same frequency set (spec §4.3).
func sinusoidalPositionEmbedding(length, dModel int) [][]float32 {
	half := dModel / 2
	pe := make([][]float32, length)
	for pos := 0; pos < length; pos++ {
		row := make([]float32, dModel)
		for i := 0; i < half; i++ {
			freq := math.Exp(-math.Log(10000) * float64(2*i) / float64(dModel))
			angle := float64(pos) * freq
			row[i] = float32(math.Sin(angle))
			row[half+i] = float32(math.Cos(angle))
		}
		pe[pos] = row
	}
	return pe
}
