// Package engine implements the ASR façade (C7): a thread-safe owner of
// the loaded Qwen3-ASR model that sequences the feature extractor (C2),
// audio encoder (C3), tokenizer (C1), and generation loop (C6) behind a
// single `{Unloaded -> Loaded -> Warm}` state machine, and chunks
// long-audio input at silence boundaries (spec §4.6).
package engine

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"github.com/mandarin-voice/qwen3asr/internal/decoder"
	"github.com/mandarin-voice/qwen3asr/internal/encoder"
	"github.com/mandarin-voice/qwen3asr/internal/generate"
	"github.com/mandarin-voice/qwen3asr/internal/melspec"
	"github.com/mandarin-voice/qwen3asr/internal/metrics"
	"github.com/mandarin-voice/qwen3asr/internal/tokenizer"
	"github.com/mandarin-voice/qwen3asr/internal/weights"
)

const (
	sampleRate                = 16000
	longAudioThresholdSeconds = 20 * 60
	chunkSearchWindowSeconds  = 30
	slidingWindowSeconds      = 0.5
	warmupMaxAttempts         = 3
	maxMergedUncertainWords   = 8
)

// state is the façade's lifecycle (spec §9's "scoped state machine
// {Unloaded -> Loaded -> Warm} with explicit transitions").
type state int

const (
	StateUnloaded state = iota
	StateLoaded
	StateWarm
)

func (s state) String() string {
	switch s {
	case StateLoaded:
		return "loaded"
	case StateWarm:
		return "warm"
	default:
		return "unloaded"
	}
}

// codeSwitchRemap maps an auto-detected language name known to
// transliterate English to the tag that preserves code-switching (spec
// §4.5). Canonical form: the pre-generation remap — the first pass
// completes fully, scratch is released, and generation reruns once under
// the remapped language (spec §9's open question resolves to this variant
// since it composes cleanly with the existing single-pass Greedy loop
// rather than requiring a KV-cache rebuild mid-generation).
var codeSwitchRemap = map[string]string{
	"Chinese": "English",
}

// UncertainWord is one low-confidence span in a transcription result
// (spec §3).
type UncertainWord struct {
	Text       string
	AvgLogProb float64
}

// TranscriptionResult is the engine's output (spec §3).
type TranscriptionResult struct {
	Text             string
	AvgLogProb       float64
	TokenCount       uint32
	DetectedLanguage string
	UncertainWords   []UncertainWord
}

// loadedModel bundles everything bound from one model directory.
type loadedModel struct {
	id      string
	codec   tokenizer.Codec
	encoder *encoder.Encoder
	decoder *decoder.Decoder
}

// ASREngine is the exclusive-access owner of at most one loaded model
// (spec §5: "at most one load, transcribe, or unload call is in flight at
// a time"). The zero value is not ready for use; construct with New.
type ASREngine struct {
	mu    sync.Mutex
	st    state
	model *loadedModel
	flush generate.FlushFunc
}

// New constructs an unloaded ASREngine. flush is the eval/flush primitive
// (spec §4.5/§5) invoked every EvalInterval decode steps, at generation
// end, between long-audio chunks, before a code-switch rerun, and after
// warmup; it may be nil in a pure-CPU build with nothing to release.
func New(flush generate.FlushFunc) *ASREngine {
	return &ASREngine{flush: flush}
}

// IsLoaded reports whether modelID is the currently loaded model, in any
// state other than Unloaded.
func (e *ASREngine) IsLoaded(modelID string) bool {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.st != StateUnloaded && e.model != nil && e.model.id == modelID
}

// Load binds every weight in modelDir and performs the implicit warmup
// (spec §6.3). Idempotent for the same modelDir; if a different model is
// already loaded, it is released first regardless of size.
func (e *ASREngine) Load(modelDir, size string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st != StateUnloaded && e.model != nil && e.model.id == modelDir {
		return nil
	}
	if e.st != StateUnloaded {
		e.unloadLocked()
	}

	cfg, err := weights.LoadConfig(modelDir)
	if err != nil {
		return ErrWeightsMissing
	}
	archive, err := weights.LoadModelDir(modelDir)
	if err != nil {
		return ErrWeightsMissing
	}
	enc, err := weights.BindEncoder(archive, cfg.EncoderConfig())
	if err != nil {
		return &incompatibleWeightsError{err}
	}
	dec, err := weights.BindDecoder(archive, cfg.DecoderConfig(), cfg.Quantization.Bits, cfg.Quantization.GroupSize)
	if err != nil {
		return &incompatibleWeightsError{err}
	}
	codec, err := weights.LoadCodec(modelDir)
	if err != nil {
		return &incompatibleWeightsError{err}
	}

	e.model = &loadedModel{id: modelDir, codec: codec, encoder: enc, decoder: dec}
	e.st = StateLoaded
	_ = size // model-size label; architecture is taken entirely from config.json

	return e.warmupLocked()
}

type incompatibleWeightsError struct{ cause error }

func (e *incompatibleWeightsError) Error() string { return "engine: incompatible weights: " + e.cause.Error() }
func (e *incompatibleWeightsError) Unwrap() error  { return e.cause }
func (e *incompatibleWeightsError) Is(target error) bool { return target == ErrIncompatibleWeights }

// warmupLocked runs one transcription over 1s of silence, retrying up to
// warmupMaxAttempts times and releasing scratch between tries (spec
// §4.6). Called with e.mu held.
func (e *ASREngine) warmupLocked() error {
	silence := make([]float32, sampleRate)
	var lastErr error
	for attempt := 1; attempt <= warmupMaxAttempts; attempt++ {
		metrics.WarmupAttempts.Inc()
		_, err := e.transcribeOnceLocked(context.Background(), silence, "", "")
		if e.flush != nil {
			e.flush()
		}
		if err == nil {
			e.st = StateWarm
			return nil
		}
		lastErr = err
		slog.Warn("warmup attempt failed", "model", e.model.id, "attempt", attempt, "error", err)
	}
	return &WarmupFailedError{ModelID: e.model.id, Attempts: warmupMaxAttempts, Cause: lastErr}
}

// Unload releases the model and clears the encoder's position-embedding
// cache (spec §6.3/§4.6).
func (e *ASREngine) Unload() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.unloadLocked()
}

func (e *ASREngine) unloadLocked() {
	if e.model != nil && e.model.encoder != nil && e.model.encoder.PosEmb != nil {
		e.model.encoder.PosEmb.Clear()
	}
	e.model = nil
	e.st = StateUnloaded
}

// Transcribe runs one transcription call, auto-chunking long audio and
// warming up on first use (spec §6.3). Calls are fully serialized across
// the engine instance (spec §5).
func (e *ASREngine) Transcribe(ctx context.Context, samples []float32, language, prompt string) (TranscriptionResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.st == StateUnloaded {
		return TranscriptionResult{}, ErrDecoderNotLoaded
	}
	if len(samples) == 0 {
		return TranscriptionResult{}, ErrInvalidAudio
	}
	if e.st == StateLoaded {
		if err := e.warmupLocked(); err != nil {
			return TranscriptionResult{}, err
		}
	}

	metrics.TranscriptionsActive.Inc()
	defer metrics.TranscriptionsActive.Dec()

	durationSeconds := float64(len(samples)) / sampleRate

	var (
		result TranscriptionResult
		err    error
	)
	if durationSeconds > longAudioThresholdSeconds {
		result, err = e.transcribeChunkedLocked(ctx, samples, language, prompt)
	} else {
		result, err = e.transcribeOnceLocked(ctx, samples, language, prompt)
	}
	if err != nil {
		if errors.Is(err, context.Canceled) {
			err = ErrCanceled
		}
		metrics.Errors.WithLabelValues("transcribe", errorKind(err)).Inc()
		return TranscriptionResult{}, err
	}

	metrics.TranscriptionsTotal.Inc()
	metrics.AvgLogProb.Observe(result.AvgLogProb)
	return result, nil
}

func errorKind(err error) string {
	switch {
	case errors.Is(err, ErrCanceled):
		return "canceled"
	case errors.Is(err, ErrInvalidAudio):
		return "invalid_audio"
	case errors.Is(err, ErrDecoderNotLoaded):
		return "decoder_not_loaded"
	default:
		return "internal"
	}
}

// transcribeOnceLocked runs one full feature-extract -> encode -> generate
// pass and applies the code-switch rerun when applicable (spec §4.5/§4.6).
// Called with e.mu held.
func (e *ASREngine) transcribeOnceLocked(ctx context.Context, samples []float32, language, prompt string) (TranscriptionResult, error) {
	mel, err := melspec.Extract(samples)
	if err != nil {
		return TranscriptionResult{}, err
	}

	audioEmbeds := e.model.encoder.Forward(mel)
	durationSeconds := float64(len(samples)) / sampleRate

	text, firstDetected, avgLogProb, tokenCount, uncertain, err := e.generateOnce(ctx, audioEmbeds, durationSeconds, language, prompt)
	if err != nil {
		return TranscriptionResult{}, err
	}

	detected := firstDetected
	if language == "" {
		if remapped, ok := codeSwitchRemap[firstDetected]; ok {
			if e.flush != nil {
				e.flush()
			}
			rerunText, _, rerunLogProb, rerunCount, rerunUncertain, rerr := e.generateOnce(ctx, audioEmbeds, durationSeconds, remapped, prompt)
			if rerr == nil {
				text, avgLogProb, tokenCount, uncertain = rerunText, rerunLogProb, rerunCount, rerunUncertain
			} else {
				slog.Warn("code-switch rerun failed, keeping first pass", "remapped", remapped, "error", rerr)
			}
		}
	}

	return TranscriptionResult{
		Text:             text,
		AvgLogProb:       avgLogProb,
		TokenCount:       uint32(tokenCount),
		DetectedLanguage: detected,
		UncertainWords:   uncertain,
	}, nil
}

// generateOnce builds the chat-template prompt, splices in the audio
// embeddings, runs greedy decoding, and parses the result (spec §4.5: C1,
// C6 glue).
func (e *ASREngine) generateOnce(ctx context.Context, audioEmbeds [][]float32, durationSeconds float64, language, systemPrompt string) (text, detectedLanguage string, avgLogProb float64, tokenCount int, uncertain []UncertainWord, err error) {
	pr := generate.BuildPrompt(e.model.codec, systemPrompt, len(audioEmbeds), language)
	embeds, err := generate.SpliceEmbeddings(e.model.decoder, pr, audioEmbeds)
	if err != nil {
		return "", "", 0, 0, nil, err
	}

	mode := generate.ModeAuto
	if language != "" {
		mode = generate.ModeLanguage
	}

	maxTokens := generate.TokenBudget(durationSeconds, nil)
	res, err := generate.Greedy(ctx, e.model.decoder, embeds, maxTokens, mode, e.flush)
	if err != nil {
		return "", "", 0, 0, nil, err
	}

	transcript, detected := generate.ParseOutput(e.model.codec, res.TokenIDs, language == "")
	groups := generate.GroupUncertain(e.model.codec, res.TokenIDs, res.Uncertain)
	words := make([]UncertainWord, len(groups))
	for i, g := range groups {
		words[i] = UncertainWord{Text: g.Text, AvgLogProb: g.AvgLogProb}
	}

	return transcript, detected, res.AvgLogProb(), res.LogProbCount, words, nil
}

// transcribeChunkedLocked splits samples at a silence boundary near the
// 20-minute mark, transcribes each side independently left-to-right, and
// merges the results (spec §4.6). Called with e.mu held.
func (e *ASREngine) transcribeChunkedLocked(ctx context.Context, samples []float32, language, prompt string) (TranscriptionResult, error) {
	cut := findSilenceCut(samples, sampleRate)
	head, tail := samples[:cut], samples[cut:]

	headResult, err := e.transcribeOnceLocked(ctx, head, language, prompt)
	if err != nil {
		return TranscriptionResult{}, err
	}
	metrics.AudioChunksProcessed.Inc()
	if e.flush != nil {
		e.flush()
	}

	var tailResult TranscriptionResult
	if float64(len(tail))/sampleRate > longAudioThresholdSeconds {
		tailResult, err = e.transcribeChunkedLocked(ctx, tail, language, prompt)
	} else {
		tailResult, err = e.transcribeOnceLocked(ctx, tail, language, prompt)
		if err == nil {
			metrics.AudioChunksProcessed.Inc()
			if e.flush != nil {
				e.flush()
			}
		}
	}
	if err != nil {
		return TranscriptionResult{}, err
	}

	return mergeChunkResults(headResult, tailResult), nil
}

// findSilenceCut scans a +/-chunkSearchWindowSeconds window around the
// naive 20-minute mark with a 50%-overlapping slidingWindowSeconds window
// and returns the center of the window with minimum RMS energy (spec
// §4.6).
func findSilenceCut(samples []float32, sr int) int {
	naive := longAudioThresholdSeconds * sr
	searchStart := naive - chunkSearchWindowSeconds*sr
	if searchStart < 0 {
		searchStart = 0
	}
	searchEnd := naive + chunkSearchWindowSeconds*sr
	if searchEnd > len(samples) {
		searchEnd = len(samples)
	}

	winLen := int(slidingWindowSeconds * float64(sr))
	if winLen < 1 {
		winLen = 1
	}
	step := winLen / 2
	if step < 1 {
		step = 1
	}

	bestPos := naive
	bestRMS := math.Inf(1)
	for start := searchStart; start+winLen <= searchEnd; start += step {
		rms := rmsEnergy(samples[start : start+winLen])
		if rms < bestRMS {
			bestRMS = rms
			bestPos = start + winLen/2
		}
	}
	if bestPos < 0 {
		bestPos = 0
	}
	if bestPos > len(samples) {
		bestPos = len(samples)
	}
	return bestPos
}

func rmsEnergy(samples []float32) float64 {
	var sum float64
	for _, s := range samples {
		sum += float64(s) * float64(s)
	}
	return math.Sqrt(sum / float64(len(samples)))
}

// mergeChunkResults concatenates chunk texts with a single space,
// weight-averages log-probs by token count, keeps the first chunk's
// detected language, and merges uncertain words globally keeping the
// maxMergedUncertainWords lowest-log-prob entries (spec §4.6).
func mergeChunkResults(chunks ...TranscriptionResult) TranscriptionResult {
	texts := make([]string, 0, len(chunks))
	var weightedSum float64
	var totalTokens int
	var uncertain []UncertainWord
	for _, c := range chunks {
		texts = append(texts, c.Text)
		weightedSum += c.AvgLogProb * float64(c.TokenCount)
		totalTokens += int(c.TokenCount)
		uncertain = append(uncertain, c.UncertainWords...)
	}

	var avgLogProb float64
	if totalTokens > 0 {
		avgLogProb = weightedSum / float64(totalTokens)
	}

	sort.Slice(uncertain, func(i, j int) bool { return uncertain[i].AvgLogProb < uncertain[j].AvgLogProb })
	if len(uncertain) > maxMergedUncertainWords {
		uncertain = uncertain[:maxMergedUncertainWords]
	}

	return TranscriptionResult{
		Text:             strings.Join(texts, " "),
		AvgLogProb:       avgLogProb,
		TokenCount:       uint32(totalTokens),
		DetectedLanguage: chunks[0].DetectedLanguage,
		UncertainWords:   uncertain,
	}
}

// ID reports the currently loaded model's directory-derived ID, or "" when
// unloaded (Provider interface, spec §9's extension hook).
func (e *ASREngine) ID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.model == nil {
		return ""
	}
	return e.model.id
}

// ProviderTag identifies this engine as the built-in Qwen3 backend to the
// confidence router's provider-specific heuristic (spec §4.13 rule 6).
func (e *ASREngine) ProviderTag() string { return "qwen3" }

// Cleanup satisfies the Provider capability interface by unloading.
func (e *ASREngine) Cleanup() error {
	e.Unload()
	return nil
}

// ModelIDFromDir derives a sanitized model ID from a model directory's base
// name (spec §6.5's per-model subdirectory convention). Load and IsLoaded key
// a model by the modelDir string as passed to Load, not by this value.
func ModelIDFromDir(dir string) string {
	return weights.SanitizeModelID(filepath.Base(dir))
}
