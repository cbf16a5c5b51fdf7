// Package weights loads a model directory's sharded tensor archive(s) and
// binds named tensors onto the encoder/decoder layer structs (spec §4.5,
// §6.1). The archive format follows the safetensors convention named in
// spec §6.1 (an 8-byte little-endian header length, a JSON header mapping
// tensor name to dtype/shape/byte-offsets, then the raw tensor bytes) — a
// format simple enough that a small encoding/json + encoding/binary reader
// covers it without a third-party dependency (see DESIGN.md).
package weights

import (
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
)

// TensorInfo is one tensor's header entry.
type TensorInfo struct {
	DType       string `json:"dtype"`
	Shape       []int  `json:"shape"`
	DataOffsets [2]int `json:"data_offsets"`
}

// Archive is a single safetensors-format file: its header plus the raw
// tensor byte region.
type Archive struct {
	header map[string]TensorInfo
	data   []byte
}

// OpenArchive reads and validates a single archive file's header.
func OpenArchive(path string) (*Archive, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("weights: open %s: %w", path, err)
	}
	defer f.Close()

	var headerLen uint64
	if err := binary.Read(f, binary.LittleEndian, &headerLen); err != nil {
		return nil, fmt.Errorf("weights: read header length: %w", err)
	}

	headerBytes := make([]byte, headerLen)
	if _, err := readFull(f, headerBytes); err != nil {
		return nil, fmt.Errorf("weights: read header: %w", err)
	}

	raw := map[string]json.RawMessage{}
	if err := json.Unmarshal(headerBytes, &raw); err != nil {
		return nil, fmt.Errorf("weights: parse header: %w", err)
	}
	header := make(map[string]TensorInfo, len(raw))
	for name, msg := range raw {
		if name == "__metadata__" {
			continue
		}
		var info TensorInfo
		if err := json.Unmarshal(msg, &info); err != nil {
			return nil, fmt.Errorf("weights: parse tensor %q: %w", name, err)
		}
		header[name] = info
	}

	rest, err := readRemaining(f)
	if err != nil {
		return nil, fmt.Errorf("weights: read tensor data: %w", err)
	}

	return &Archive{header: header, data: rest}, nil
}

func readFull(f *os.File, buf []byte) (int, error) {
	total := 0
	for total < len(buf) {
		n, err := f.Read(buf[total:])
		total += n
		if err != nil {
			return total, err
		}
	}
	return total, nil
}

func readRemaining(f *os.File) ([]byte, error) {
	var out []byte
	buf := make([]byte, 1<<20)
	for {
		n, err := f.Read(buf)
		if n > 0 {
			out = append(out, buf[:n]...)
		}
		if err != nil {
			break
		}
	}
	return out, nil
}

// Has reports whether name is present in this archive.
func (a *Archive) Has(name string) bool {
	_, ok := a.header[name]
	return ok
}

// Shape returns name's declared shape.
func (a *Archive) Shape(name string) ([]int, bool) {
	info, ok := a.header[name]
	if !ok {
		return nil, false
	}
	return info.Shape, true
}

// Float32 decodes a F32 tensor as a flat row-major slice.
func (a *Archive) Float32(name string) ([]float32, error) {
	info, ok := a.header[name]
	if !ok {
		return nil, fmt.Errorf("weights: tensor %q not found", name)
	}
	raw := a.data[info.DataOffsets[0]:info.DataOffsets[1]]
	n := len(raw) / 4
	out := make([]float32, n)
	for i := 0; i < n; i++ {
		bits := binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
		out[i] = math.Float32frombits(bits)
	}
	return out, nil
}

// Uint32 decodes a packed-integer tensor (quantized weights) as a flat
// row-major slice of uint32 words.
func (a *Archive) Uint32(name string) ([]uint32, error) {
	info, ok := a.header[name]
	if !ok {
		return nil, fmt.Errorf("weights: tensor %q not found", name)
	}
	raw := a.data[info.DataOffsets[0]:info.DataOffsets[1]]
	n := len(raw) / 4
	out := make([]uint32, n)
	for i := 0; i < n; i++ {
		out[i] = binary.LittleEndian.Uint32(raw[i*4 : i*4+4])
	}
	return out, nil
}

// ShardIndex is the optional model.safetensors.index.json's contents
// (spec §6.1): maps each tensor name to the shard file that holds it.
type ShardIndex struct {
	WeightMap map[string]string `json:"weight_map"`
}

// MultiArchive spans one or more shard files, dispatching each tensor
// lookup to the archive that declared it.
type MultiArchive struct {
	shards  map[string]*Archive // filename -> archive
	owner   map[string]string   // tensor name -> filename
	single  *Archive             // set when there is exactly one shard and no index
}

// LoadModelDir opens every archive referenced by dir's (optional)
// model.safetensors.index.json, or a single model.safetensors when no
// index is present (spec §6.1).
func LoadModelDir(dir string) (*MultiArchive, error) {
	indexPath := filepath.Join(dir, "model.safetensors.index.json")
	if _, err := os.Stat(indexPath); err == nil {
		return loadSharded(dir, indexPath)
	}

	single, err := OpenArchive(filepath.Join(dir, "model.safetensors"))
	if err != nil {
		return nil, err
	}
	return &MultiArchive{single: single}, nil
}

func loadSharded(dir, indexPath string) (*MultiArchive, error) {
	raw, err := os.ReadFile(indexPath)
	if err != nil {
		return nil, fmt.Errorf("weights: read index: %w", err)
	}
	var idx ShardIndex
	if err := json.Unmarshal(raw, &idx); err != nil {
		return nil, fmt.Errorf("weights: parse index: %w", err)
	}

	shards := map[string]*Archive{}
	for _, file := range idx.WeightMap {
		if _, ok := shards[file]; ok {
			continue
		}
		archive, err := OpenArchive(filepath.Join(dir, file))
		if err != nil {
			return nil, err
		}
		shards[file] = archive
	}

	return &MultiArchive{shards: shards, owner: idx.WeightMap}, nil
}

func (m *MultiArchive) archiveFor(name string) (*Archive, bool) {
	if m.single != nil {
		return m.single, true
	}
	file, ok := m.owner[name]
	if !ok {
		return nil, false
	}
	a, ok := m.shards[file]
	return a, ok
}

// Has reports whether name is present across any loaded shard.
func (m *MultiArchive) Has(name string) bool {
	a, ok := m.archiveFor(name)
	if !ok {
		return false
	}
	return a.Has(name)
}

// Float32 decodes a F32 tensor, dispatching to the owning shard.
func (m *MultiArchive) Float32(name string) ([]float32, error) {
	a, ok := m.archiveFor(name)
	if !ok {
		return nil, fmt.Errorf("weights: tensor %q not found in any shard", name)
	}
	return a.Float32(name)
}

// Uint32 decodes a packed-integer tensor, dispatching to the owning shard.
func (m *MultiArchive) Uint32(name string) ([]uint32, error) {
	a, ok := m.archiveFor(name)
	if !ok {
		return nil, fmt.Errorf("weights: tensor %q not found in any shard", name)
	}
	return a.Uint32(name)
}
