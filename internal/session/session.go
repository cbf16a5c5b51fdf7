// Package session implements the per-call orchestration (spec §4.12/§4.13):
// one transcription through the ASR engine, the post-processing controller,
// the confidence router's routing decision, and the auto-retry controller's
// single pinned-language re-transcription, with context memory and tracing
// threaded through.
package session

import (
	"context"
	"log/slog"
	"time"

	"github.com/mandarin-voice/qwen3asr/internal/audio"
	"github.com/mandarin-voice/qwen3asr/internal/correct"
	corrctx "github.com/mandarin-voice/qwen3asr/internal/correct/context"
	"github.com/mandarin-voice/qwen3asr/internal/engine"
	"github.com/mandarin-voice/qwen3asr/internal/metrics"
	"github.com/mandarin-voice/qwen3asr/internal/postproc"
	"github.com/mandarin-voice/qwen3asr/internal/router"
	"github.com/mandarin-voice/qwen3asr/internal/trace"
)

// Request is one transcription call's input. Language pins the engine to a
// single language and disables the auto-retry pass (spec §4.13: retry only
// applies to auto-detect calls); leave it empty for the normal auto path.
type Request struct {
	Samples      []float32
	Language     string
	Prompt       string
	AppName      string
	WindowTitle  string
}

// Result is the orchestrated call's final, user-facing output.
type Result struct {
	Text             string
	DetectedLanguage string
	AvgLogProb       float64
	NeedsLLM         bool
	Command          string
	AppliedSteps     []string
	RepetitionSevere bool
	Retried          bool
	RetryReason      string
}

// Controller wires one loaded engine to the post-processing pipeline, the
// routing/retry logic, and context memory. Any of Tracer or Memory may be
// nil (trace.Tracer's methods are nil-safe by design; a nil Memory is
// treated as always-empty recent-transcript history).
type Controller struct {
	Engine   *engine.ASREngine
	Post     *postproc.Controller
	Retry    router.RetryController
	Memory   *corrctx.Memory
	Tracer   *trace.Tracer
	Tunables router.Tunables
	Flags    postproc.StageFlags
}

// Handle runs one full call: transcribe, post-process, route, and — for
// auto-detect calls whose routed text trips a retry condition — re-transcribe
// once under a pinned language, adopting the retry only if its log-prob
// improves on the original (spec §4.13, §8 scenario C/D).
func (c *Controller) Handle(ctx context.Context, req Request) (Result, error) {
	runID := c.Tracer.StartRun()
	start := time.Now()

	mode := "auto"
	if req.Language != "" {
		mode = "pinned"
	}

	tr, err := c.Engine.Transcribe(ctx, req.Samples, req.Language, req.Prompt)
	if err != nil {
		c.Tracer.EndRun(runID, msSince(start), "", "", "", false, "error")
		metrics.Errors.WithLabelValues("session", "transcribe").Inc()
		return Result{}, err
	}

	cctx := correct.Context{RecentTranscripts: c.recent(), AppName: req.AppName, WindowTitle: req.WindowTitle}
	duration := float64(len(req.Samples)) / audio.RequiredSampleRate

	res := c.route(tr, cctx, duration, runID, start)

	if mode == "auto" {
		meta := router.Metadata{Provider: c.Engine.ProviderTag(), AvgLogProb: tr.AvgLogProb, AudioDuration: duration}
		decision := c.Retry.Evaluate(res.Text, mode, meta, c.Tunables)
		if decision.Retry {
			res = c.maybeRetry(ctx, req, tr.AvgLogProb, decision, cctx, duration, res, runID, start)
		}
	}

	if cmd, ok := router.InterceptVoiceCommand(res.Text); ok {
		res.Command = cmd
	}

	metrics.NeedsLLMTotal.WithLabelValues(needsLLMLabel(res.NeedsLLM)).Inc()
	if c.Memory != nil {
		c.Memory.Add(res.Text)
	}
	c.Tracer.EndRun(runID, msSince(start), tr.Text, res.Text, res.DetectedLanguage, res.NeedsLLM, "ok")

	return res, nil
}

func (c *Controller) recent() []string {
	if c.Memory == nil {
		return nil
	}
	return c.Memory.Recent()
}

// route runs the post-processing controller over one transcription and
// discards severely repetitive output as a decoding artifact (spec §4.12
// step 7).
func (c *Controller) route(tr engine.TranscriptionResult, cctx correct.Context, duration float64, runID string, spanStart time.Time) Result {
	meta := router.Metadata{Provider: c.Engine.ProviderTag(), AvgLogProb: tr.AvgLogProb, AudioDuration: duration}
	pres, err := c.Post.Process(tr.Text, cctx, c.Flags, meta)
	if err != nil {
		slog.Warn("postproc failed, passing transcript through unprocessed", "error", err)
		c.Tracer.RecordSpan(runID, "postproc", spanStart, msSince(spanStart), tr.Text, tr.Text, "error", err.Error())
		return Result{Text: tr.Text, DetectedLanguage: tr.DetectedLanguage, AvgLogProb: tr.AvgLogProb}
	}

	severe := pres.RepetitionInfo.Severe
	text := pres.ProcessedText
	if severe {
		metrics.RepetitionSevereTotal.Inc()
		slog.Warn("discarding severely repetitive transcription", "pattern", pres.RepetitionInfo.Pattern, "ratio", pres.RepetitionInfo.Ratio)
		text = ""
	}

	c.Tracer.RecordSpan(runID, "postproc", spanStart, msSince(spanStart), tr.Text, text, "ok", "")

	return Result{
		Text:             text,
		DetectedLanguage: tr.DetectedLanguage,
		AvgLogProb:       tr.AvgLogProb,
		NeedsLLM:         pres.NeedsLLM,
		AppliedSteps:     pres.AppliedSteps,
		RepetitionSevere: severe,
	}
}

// maybeRetry re-transcribes once under decision.PinLanguage and adopts the
// retry's routed result only if its log-prob improves on the original.
func (c *Controller) maybeRetry(ctx context.Context, req Request, originalLogProb float64, decision router.RetryDecision, cctx correct.Context, duration float64, fallback Result, runID string, spanStart time.Time) Result {
	metrics.RetryTotal.WithLabelValues(decision.PinLanguage).Inc()

	retryTr, err := c.Engine.Transcribe(ctx, req.Samples, decision.PinLanguage, req.Prompt)
	if err != nil {
		slog.Warn("retry transcription failed, keeping original", "pin_language", decision.PinLanguage, "error", err)
		return fallback
	}
	if !router.AdoptRetry(originalLogProb, retryTr.AvgLogProb) {
		return fallback
	}

	retried := c.route(retryTr, cctx, duration, runID, spanStart)
	retried.Retried = true
	retried.RetryReason = decision.PinLanguage
	return retried
}

func needsLLMLabel(needsLLM bool) string {
	if needsLLM {
		return "needed"
	}
	return "skip"
}

func msSince(start time.Time) float64 {
	return float64(time.Since(start).Microseconds()) / 1000
}
