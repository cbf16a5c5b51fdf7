package nn

import (
	"math"
	"testing"
)

func approxEqual(a, b, tol float32) bool {
	d := a - b
	if d < 0 {
		d = -d
	}
	return d <= tol
}

func TestSoftmaxSumsToOne(t *testing.T) {
	row := []float32{1, 2, 3, 4}
	Softmax(row)
	var sum float32
	for _, v := range row {
		sum += v
	}
	if !approxEqual(sum, 1, 1e-5) {
		t.Fatalf("softmax sum = %f, want 1", sum)
	}
	for i := 0; i < len(row)-1; i++ {
		if row[i] > row[i+1] {
			t.Fatalf("softmax should preserve order: %v", row)
		}
	}
}

func TestGELUZeroIsZero(t *testing.T) {
	x := []float32{0}
	GELU(x)
	if !approxEqual(x[0], 0, 1e-6) {
		t.Fatalf("GELU(0) = %f, want 0", x[0])
	}
}

func TestSiLUMonotonicAroundZero(t *testing.T) {
	x := []float32{-1, 0, 1}
	SiLU(x)
	if x[1] != 0 {
		t.Fatalf("SiLU(0) = %f, want 0", x[1])
	}
	if !(x[0] < x[1] && x[1] < x[2]) {
		t.Fatalf("SiLU should be increasing near 0: %v", x)
	}
}

func TestRMSNormUnitScale(t *testing.T) {
	norm := RMSNorm{Weight: []float32{1, 1, 1, 1}, Eps: 1e-6}
	x := [][]float32{{1, 2, 3, 4}}
	norm.Forward(x)

	var ss float64
	for _, v := range x[0] {
		ss += float64(v) * float64(v)
	}
	rms := math.Sqrt(ss / float64(len(x[0])))
	if math.Abs(rms-1) > 1e-3 {
		t.Fatalf("post-RMSNorm RMS = %f, want ~1", rms)
	}
}

func TestLinearForwardShape(t *testing.T) {
	l := Linear{
		Weight: [][]float32{{1, 0}, {0, 1}, {1, 1}},
		Bias:   []float32{0, 0, 1},
	}
	out := l.Forward([][]float32{{2, 3}})
	want := []float32{2, 3, 6}
	if len(out) != 1 || len(out[0]) != 3 {
		t.Fatalf("shape = %dx%d, want 1x3", len(out), len(out[0]))
	}
	for i := range want {
		if !approxEqual(out[0][i], want[i], 1e-6) {
			t.Fatalf("out[0][%d] = %f, want %f", i, out[0][i], want[i])
		}
	}
}

func TestAttentionIdentityWhenSingleKey(t *testing.T) {
	q := [][]float32{{1, 0}}
	k := [][]float32{{1, 0}}
	v := [][]float32{{5, 7}}
	out := Attention(q, k, v, nil, DefaultScale(2))
	if !approxEqual(out[0][0], 5, 1e-5) || !approxEqual(out[0][1], 7, 1e-5) {
		t.Fatalf("single-key attention should return v verbatim, got %v", out[0])
	}
}

func TestAttentionMaskBlocksFutureKeys(t *testing.T) {
	q := [][]float32{{1, 0}, {1, 0}}
	k := [][]float32{{1, 0}, {1, 0}}
	v := [][]float32{{1, 0}, {0, 1}}
	mask := [][]float32{
		{0, -1e9},
		{0, 0},
	}
	out := Attention(q, k, v, mask, DefaultScale(2))
	if !approxEqual(out[0][0], 1, 1e-4) || !approxEqual(out[0][1], 0, 1e-4) {
		t.Fatalf("position 0 should only attend to key 0, got %v", out[0])
	}
}

func TestSplitMergeHeadsRoundTrip(t *testing.T) {
	x := [][]float32{
		{1, 2, 3, 4},
		{5, 6, 7, 8},
	}
	heads := SplitHeads(x, 2, 2)
	merged := MergeHeads(heads)
	for r := range x {
		for c := range x[r] {
			if merged[r][c] != x[r][c] {
				t.Fatalf("round trip mismatch at [%d][%d]: got %f want %f", r, c, merged[r][c], x[r][c])
			}
		}
	}
}
