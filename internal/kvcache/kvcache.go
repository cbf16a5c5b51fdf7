// Package kvcache holds the decoder's per-layer key/value cache as a
// first-class data type (spec's data model: "KV cache... grows by
// concatenation each decoding step").
package kvcache

// Layer holds one decoder layer's cached keys and values, each shaped
// [seq][num_kv_heads][head_dim] (batch is always 1 in this engine).
type Layer struct {
	K [][][]float32
	V [][][]float32
}

// Cache is the full generation call's KV cache: one Layer per decoder
// layer.
type Cache struct {
	Layers []Layer
}

// New allocates an empty cache for numLayers decoder layers.
func New(numLayers int) *Cache {
	return &Cache{Layers: make([]Layer, numLayers)}
}

// Len returns the cached sequence length (identical across K and V, and
// across layers, by invariant).
func (c *Cache) Len() int {
	if len(c.Layers) == 0 {
		return 0
	}
	return len(c.Layers[0].K)
}

// Append concatenates newK/newV (each [seq][num_kv_heads][head_dim]) onto
// layer idx's cache in [previous, current] order (spec §4.4) and returns
// the layer's full K, V after growth.
func (c *Cache) Append(idx int, newK, newV [][][]float32) (k, v [][][]float32) {
	layer := &c.Layers[idx]
	layer.K = append(layer.K, newK...)
	layer.V = append(layer.V, newV...)
	if len(layer.K) != len(layer.V) {
		panic("kvcache: K and V sequence lengths diverged")
	}
	return layer.K, layer.V
}
