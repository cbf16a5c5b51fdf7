package weights

import (
	"encoding/binary"
	"math"
	"os"
	"path/filepath"
	"testing"
)

func writeTestArchive(t *testing.T, path string, header string, data []byte) {
	t.Helper()
	f, err := os.Create(path)
	if err != nil {
		t.Fatalf("create %s: %v", path, err)
	}
	defer f.Close()

	headerBytes := []byte(header)
	if err := binary.Write(f, binary.LittleEndian, uint64(len(headerBytes))); err != nil {
		t.Fatalf("write header length: %v", err)
	}
	if _, err := f.Write(headerBytes); err != nil {
		t.Fatalf("write header: %v", err)
	}
	if _, err := f.Write(data); err != nil {
		t.Fatalf("write data: %v", err)
	}
}

func float32Bytes(vals ...float32) []byte {
	out := make([]byte, 4*len(vals))
	for i, v := range vals {
		binary.LittleEndian.PutUint32(out[i*4:], math.Float32bits(v))
	}
	return out
}

func TestOpenArchiveDecodesFloat32Tensor(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	data := float32Bytes(1.5, -2.5, 3.0)
	header := `{"x.weight":{"dtype":"F32","shape":[3],"data_offsets":[0,12]}}`
	writeTestArchive(t, path, header, data)

	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if !a.Has("x.weight") {
		t.Fatal("want Has(x.weight) == true")
	}
	got, err := a.Float32("x.weight")
	if err != nil {
		t.Fatalf("Float32: %v", err)
	}
	want := []float32{1.5, -2.5, 3.0}
	for i := range want {
		if got[i] != want[i] {
			t.Fatalf("got %v, want %v", got, want)
		}
	}
}

func TestOpenArchiveIgnoresMetadataEntry(t *testing.T) {
	path := filepath.Join(t.TempDir(), "model.safetensors")
	data := float32Bytes(1.0)
	header := `{"__metadata__":{"format":"pt"},"y.weight":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`
	writeTestArchive(t, path, header, data)

	a, err := OpenArchive(path)
	if err != nil {
		t.Fatalf("OpenArchive: %v", err)
	}
	if a.Has("__metadata__") {
		t.Fatal("want __metadata__ excluded from the tensor header")
	}
	if !a.Has("y.weight") {
		t.Fatal("want y.weight present")
	}
}

func TestLoadModelDirSingleFileFallback(t *testing.T) {
	dir := t.TempDir()
	data := float32Bytes(7.0)
	header := `{"z.weight":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`
	writeTestArchive(t, filepath.Join(dir, "model.safetensors"), header, data)

	m, err := LoadModelDir(dir)
	if err != nil {
		t.Fatalf("LoadModelDir: %v", err)
	}
	got, err := m.Float32("z.weight")
	if err != nil {
		t.Fatalf("Float32: %v", err)
	}
	if got[0] != 7.0 {
		t.Fatalf("got %v, want [7.0]", got)
	}
}

func TestLoadModelDirSharded(t *testing.T) {
	dir := t.TempDir()
	writeTestArchive(t, filepath.Join(dir, "shard1.safetensors"),
		`{"a.weight":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, float32Bytes(1.0))
	writeTestArchive(t, filepath.Join(dir, "shard2.safetensors"),
		`{"b.weight":{"dtype":"F32","shape":[1],"data_offsets":[0,4]}}`, float32Bytes(2.0))

	index := `{"weight_map":{"a.weight":"shard1.safetensors","b.weight":"shard2.safetensors"}}`
	if err := os.WriteFile(filepath.Join(dir, "model.safetensors.index.json"), []byte(index), 0o644); err != nil {
		t.Fatalf("write index: %v", err)
	}

	m, err := LoadModelDir(dir)
	if err != nil {
		t.Fatalf("LoadModelDir: %v", err)
	}
	a, err := m.Float32("a.weight")
	if err != nil || a[0] != 1.0 {
		t.Fatalf("a.weight = %v, err %v", a, err)
	}
	b, err := m.Float32("b.weight")
	if err != nil || b[0] != 2.0 {
		t.Fatalf("b.weight = %v, err %v", b, err)
	}
}

func TestSanitizeModelIDReplacesDisallowedChars(t *testing.T) {
	cases := map[string]string{
		"qwen3-asr_v1":   "qwen3-asr_v1",
		"my model/v2":    "my_model_v2",
		"../../etc":      ".._.._etc",
		".":              "_",
		"..":             "_",
		"café":           "caf_",
	}
	for in, want := range cases {
		if got := SanitizeModelID(in); got != want {
			t.Errorf("SanitizeModelID(%q) = %q, want %q", in, got, want)
		}
	}
}
