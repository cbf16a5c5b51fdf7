// Package audio holds the shared audio-buffer type threaded through the
// feature extractor, encoder, and ASR engine, plus the linear resampler used
// as a fallback when a caller hands in audio at the wrong sample rate.
package audio

import "fmt"

// RequiredSampleRate is the only sample rate the core engine accepts
// natively. Resampling to this rate is the caller's responsibility; Buffer's
// constructor only resamples when explicitly asked to.
const RequiredSampleRate = 16000

// Buffer is an ordered sequence of float samples in [-1, 1] at a fixed
// sample rate. The zero value is not valid; use NewBuffer.
type Buffer struct {
	Samples    []float32
	SampleRate int
}

// NewBuffer validates that samples are at 16kHz. If allowResample is true and
// sampleRate differs from RequiredSampleRate, the samples are linearly
// resampled (the feature extractor's documented fallback path); otherwise a
// mismatched rate is an error.
func NewBuffer(samples []float32, sampleRate int, allowResample bool) (Buffer, error) {
	if sampleRate <= 0 {
		return Buffer{}, fmt.Errorf("audio: invalid sample rate %d", sampleRate)
	}
	if sampleRate == RequiredSampleRate {
		return Buffer{Samples: samples, SampleRate: sampleRate}, nil
	}
	if !allowResample {
		return Buffer{}, fmt.Errorf("audio: sample rate %d, want %d", sampleRate, RequiredSampleRate)
	}
	return Buffer{Samples: Resample(samples, sampleRate, RequiredSampleRate), SampleRate: RequiredSampleRate}, nil
}

// Duration returns the buffer's length in seconds.
func (b Buffer) Duration() float64 {
	if b.SampleRate == 0 {
		return 0
	}
	return float64(len(b.Samples)) / float64(b.SampleRate)
}
