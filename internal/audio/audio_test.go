package audio

import (
	"math"
	"testing"
)

func TestNewBufferAcceptsNativeRate(t *testing.T) {
	b, err := NewBuffer([]float32{0.1, 0.2, 0.3}, RequiredSampleRate, false)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if b.SampleRate != RequiredSampleRate || len(b.Samples) != 3 {
		t.Fatalf("got %+v", b)
	}
}

func TestNewBufferRejectsMismatchWithoutResample(t *testing.T) {
	_, err := NewBuffer([]float32{0.1}, 44100, false)
	if err == nil {
		t.Fatal("expected error for mismatched sample rate with allowResample=false")
	}
}

func TestNewBufferResamplesWhenAllowed(t *testing.T) {
	b, err := NewBuffer(make([]float32, 100), 48000, true)
	if err != nil {
		t.Fatalf("NewBuffer: %v", err)
	}
	if b.SampleRate != RequiredSampleRate {
		t.Fatalf("SampleRate = %d, want %d", b.SampleRate, RequiredSampleRate)
	}
	srcLen := 100
	wantLen := int(float64(srcLen) / (48000.0 / 16000.0))
	if len(b.Samples) != wantLen {
		t.Fatalf("len(Samples) = %d, want %d", len(b.Samples), wantLen)
	}
}

func TestNewBufferRejectsNonPositiveRate(t *testing.T) {
	if _, err := NewBuffer([]float32{0.1}, 0, true); err == nil {
		t.Fatal("expected error for sample rate 0")
	}
	if _, err := NewBuffer([]float32{0.1}, -1, true); err == nil {
		t.Fatal("expected error for negative sample rate")
	}
}

func TestDuration(t *testing.T) {
	b := Buffer{Samples: make([]float32, 16000), SampleRate: 16000}
	if got := b.Duration(); got != 1.0 {
		t.Fatalf("Duration = %v, want 1.0", got)
	}
}

func TestDurationZeroSampleRate(t *testing.T) {
	b := Buffer{Samples: make([]float32, 10), SampleRate: 0}
	if got := b.Duration(); got != 0 {
		t.Fatalf("Duration with zero sample rate = %v, want 0", got)
	}
}

func TestResampleIdentityWhenRatesMatch(t *testing.T) {
	in := []float32{1, 2, 3}
	out := Resample(in, 16000, 16000)
	if len(out) != len(in) {
		t.Fatalf("len(out) = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if out[i] != in[i] {
			t.Fatalf("out[%d] = %v, want %v", i, out[i], in[i])
		}
	}
}

func TestResampleUpsampleDoublesLength(t *testing.T) {
	in := make([]float32, 50)
	for i := range in {
		in[i] = float32(i)
	}
	out := Resample(in, 16000, 32000)
	wantLen := int(float64(len(in)) / (16000.0 / 32000.0))
	if len(out) != wantLen {
		t.Fatalf("len(out) = %d, want %d", len(out), wantLen)
	}
}

func TestResampleLinearInterpolationOnRamp(t *testing.T) {
	// A linear ramp resampled linearly should stay (approximately) linear.
	in := make([]float32, 100)
	for i := range in {
		in[i] = float32(i)
	}
	out := Resample(in, 100, 50)
	for i, v := range out {
		want := float64(i) * 2.0
		if math.Abs(float64(v)-want) > 1.0 {
			t.Fatalf("out[%d] = %v, want approx %v", i, v, want)
		}
	}
}

func TestInterpolateClampsAtEnd(t *testing.T) {
	samples := []float32{1, 2, 3}
	got := interpolate(samples, 2, 0.5)
	if got != samples[len(samples)-1] {
		t.Fatalf("interpolate at last index = %v, want %v (clamped)", got, samples[len(samples)-1])
	}
}
