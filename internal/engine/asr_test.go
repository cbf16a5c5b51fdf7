package engine

import (
	"context"
	"errors"
	"math"
	"testing"
)

func TestStateString(t *testing.T) {
	cases := map[state]string{StateUnloaded: "unloaded", StateLoaded: "loaded", StateWarm: "warm"}
	for s, want := range cases {
		if got := s.String(); got != want {
			t.Fatalf("state(%d).String() = %q, want %q", s, got, want)
		}
	}
}

func TestIsLoadedReflectsState(t *testing.T) {
	e := New(nil)
	if e.IsLoaded("m1") {
		t.Fatal("fresh engine should report not loaded")
	}
	e.model = &loadedModel{id: "m1"}
	e.st = StateLoaded
	if !e.IsLoaded("m1") {
		t.Fatal("want IsLoaded(m1) == true once a model is bound")
	}
	if e.IsLoaded("m2") {
		t.Fatal("want IsLoaded(m2) == false for a different id")
	}
}

func TestUnloadResetsState(t *testing.T) {
	e := New(nil)
	e.model = &loadedModel{id: "m1"}
	e.st = StateWarm
	e.Unload()
	if e.st != StateUnloaded || e.model != nil {
		t.Fatalf("Unload did not reset state: st=%v model=%v", e.st, e.model)
	}
	e.Unload() // idempotent, must not panic on a nil model
}

func TestLoadMissingDirFailsWithWeightsMissing(t *testing.T) {
	e := New(nil)
	err := e.Load(t.TempDir(), "small")
	if !errors.Is(err, ErrWeightsMissing) {
		t.Fatalf("Load on empty dir: err = %v, want ErrWeightsMissing", err)
	}
	if e.st != StateUnloaded {
		t.Fatalf("engine state after failed load = %v, want Unloaded", e.st)
	}
}

func TestTranscribeBeforeLoadFails(t *testing.T) {
	e := New(nil)
	_, err := e.Transcribe(context.Background(), []float32{0, 1}, "", "")
	if !errors.Is(err, ErrDecoderNotLoaded) {
		t.Fatalf("err = %v, want ErrDecoderNotLoaded", err)
	}
}

func TestTranscribeRejectsEmptyAudio(t *testing.T) {
	e := New(nil)
	e.model = &loadedModel{id: "m1"}
	e.st = StateWarm
	_, err := e.Transcribe(context.Background(), nil, "", "")
	if !errors.Is(err, ErrInvalidAudio) {
		t.Fatalf("err = %v, want ErrInvalidAudio", err)
	}
}

func TestErrorKindMapsKnownSentinels(t *testing.T) {
	cases := map[error]string{
		ErrCanceled:         "canceled",
		ErrInvalidAudio:     "invalid_audio",
		ErrDecoderNotLoaded: "decoder_not_loaded",
		errors.New("boom"):  "internal",
	}
	for err, want := range cases {
		if got := errorKind(err); got != want {
			t.Fatalf("errorKind(%v) = %q, want %q", err, got, want)
		}
	}
}

func TestFindSilenceCutPicksQuietestWindow(t *testing.T) {
	sr := 1000 // small synthetic sample rate keeps the test fast
	total := (longAudioThresholdSeconds + chunkSearchWindowSeconds + 5) * sr
	samples := make([]float32, total)
	for i := range samples {
		samples[i] = 1.0 // loud everywhere...
	}
	naive := longAudioThresholdSeconds * sr
	quietCenter := naive + 5*sr // ...except a quiet patch inside the search window
	quietHalfWidth := sr / 4
	for i := quietCenter - quietHalfWidth; i < quietCenter+quietHalfWidth; i++ {
		samples[i] = 0
	}

	cut := findSilenceCut(samples, sr)
	if cut < quietCenter-sr/2 || cut > quietCenter+sr/2 {
		t.Fatalf("findSilenceCut = %d, want near the quiet patch at %d", cut, quietCenter)
	}
}

func TestFindSilenceCutClampsToBounds(t *testing.T) {
	sr := 16000
	short := make([]float32, sr) // far shorter than the 20-minute search window
	cut := findSilenceCut(short, sr)
	if cut < 0 || cut > len(short) {
		t.Fatalf("cut = %d out of bounds [0,%d]", cut, len(short))
	}
}

func TestRMSEnergyZeroForSilence(t *testing.T) {
	if got := rmsEnergy(make([]float32, 100)); got != 0 {
		t.Fatalf("rmsEnergy(silence) = %f, want 0", got)
	}
}

func TestMergeChunkResultsWeightsByTokenCount(t *testing.T) {
	a := TranscriptionResult{Text: "hello", AvgLogProb: -0.1, TokenCount: 10, DetectedLanguage: "English"}
	b := TranscriptionResult{Text: "world", AvgLogProb: -1.0, TokenCount: 30, DetectedLanguage: "Japanese"}

	merged := mergeChunkResults(a, b)

	if merged.Text != "hello world" {
		t.Fatalf("merged text = %q, want %q", merged.Text, "hello world")
	}
	if merged.DetectedLanguage != "English" {
		t.Fatalf("merged language = %q, want first chunk's %q", merged.DetectedLanguage, "English")
	}
	if merged.TokenCount != 40 {
		t.Fatalf("merged token count = %d, want 40", merged.TokenCount)
	}
	want := (a.AvgLogProb*10 + b.AvgLogProb*30) / 40
	if math.Abs(merged.AvgLogProb-want) > 1e-9 {
		t.Fatalf("merged avg log prob = %f, want %f", merged.AvgLogProb, want)
	}
}

func TestMergeChunkResultsCapsUncertainWordsAtEight(t *testing.T) {
	var chunks []TranscriptionResult
	for i := 0; i < 3; i++ {
		var words []UncertainWord
		for j := 0; j < 5; j++ {
			words = append(words, UncertainWord{Text: "x", AvgLogProb: float64(-(i*5 + j))})
		}
		chunks = append(chunks, TranscriptionResult{TokenCount: 1, UncertainWords: words})
	}

	merged := mergeChunkResults(chunks...)
	if len(merged.UncertainWords) != maxMergedUncertainWords {
		t.Fatalf("merged uncertain words = %d, want %d", len(merged.UncertainWords), maxMergedUncertainWords)
	}
	for i := 1; i < len(merged.UncertainWords); i++ {
		if merged.UncertainWords[i].AvgLogProb < merged.UncertainWords[i-1].AvgLogProb {
			t.Fatal("merged uncertain words should be ordered by ascending log-prob")
		}
	}
	// The 8 lowest log-probs across 0..-14 are -14..-7.
	if merged.UncertainWords[0].AvgLogProb != -14 {
		t.Fatalf("lowest merged log-prob = %f, want -14", merged.UncertainWords[0].AvgLogProb)
	}
}

func TestModelIDFromDirSanitizes(t *testing.T) {
	if got := ModelIDFromDir("/models/qwen3 asr/v1"); got != "v1" {
		t.Fatalf("ModelIDFromDir = %q, want %q", got, "v1")
	}
}
