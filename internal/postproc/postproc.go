// Package postproc implements the post-processing controller (spec
// §4.12/§6.4): it sequences the S→T converter, punctuation normalization,
// rule-based and data-driven corrections, and repetition detection, then
// hands the result to the confidence router.
package postproc

import (
	"github.com/mandarin-voice/qwen3asr/internal/correct"
	"github.com/mandarin-voice/qwen3asr/internal/correct/homophone"
	"github.com/mandarin-voice/qwen3asr/internal/correct/nasal"
	"github.com/mandarin-voice/qwen3asr/internal/correct/punct"
	"github.com/mandarin-voice/qwen3asr/internal/correct/repetition"
	"github.com/mandarin-voice/qwen3asr/internal/correct/rules"
	"github.com/mandarin-voice/qwen3asr/internal/correct/syllable"
	"github.com/mandarin-voice/qwen3asr/internal/router"
	"github.com/mandarin-voice/qwen3asr/internal/s2t"
)

// StageFlags enables or disables individual pipeline stages, persisted per
// spec §6.4.
type StageFlags struct {
	S2T           bool
	HalfToFull    bool
	Rules         bool
	DataDriven    bool // homophone -> nasal -> syllable-expansion
	SpokenPunct   bool
	Repetition    bool
}

// DefaultStageFlags enables every stage.
func DefaultStageFlags() StageFlags {
	return StageFlags{S2T: true, HalfToFull: true, Rules: true, DataDriven: true, SpokenPunct: true, Repetition: true}
}

// Result is the controller's output (spec §6.4).
type Result struct {
	ProcessedText  string
	AppliedSteps   []string
	RepetitionInfo repetition.Info
	NeedsLLM       bool
}

// Controller sequences every post-processing stage. Any of the data-driven
// engines may be nil; DataDriven is then treated as unavailable regardless
// of StageFlags.DataDriven (spec §4.12 step 4's "gated by data-driven flag
// and DB loaded" condition).
type Controller struct {
	S2T       *s2t.S2T
	Rules     *rules.Corrector
	Homophone *homophone.Engine
	Nasal     *nasal.Engine
	Syllable  *syllable.Engine
	Tunables  router.Tunables
}

// Process runs the full ordered pipeline (spec §4.12) and the routing
// decision (spec §4.13) over text.
func (c *Controller) Process(text string, ctx correct.Context, flags StageFlags, meta router.Metadata) (Result, error) {
	var applied []string

	if flags.S2T && c.S2T != nil {
		converted, err := c.S2T.Convert(text)
		if err != nil {
			return Result{}, err
		}
		if converted != text {
			applied = append(applied, "s2t")
		}
		text = converted
	}

	if flags.HalfToFull {
		converted := punct.HalfToFull(text)
		if converted != text {
			applied = append(applied, "half_to_full_width")
		}
		text = converted
	}

	if flags.Rules && c.Rules != nil {
		corrected, labels := c.Rules.Apply(text, ctx)
		text = corrected
		applied = append(applied, labels...)
	}

	dataDrivenReady := flags.DataDriven && c.Homophone != nil && c.Nasal != nil && c.Syllable != nil
	if dataDrivenReady {
		corrected, labels := c.Homophone.Correct(text)
		text = corrected
		applied = append(applied, labels...)

		corrected, labels = c.Nasal.Correct(text)
		text = corrected
		applied = append(applied, labels...)

		corrected, labels = c.Syllable.Correct(text)
		text = corrected
		applied = append(applied, labels...)

		if flags.Rules && c.Rules != nil {
			corrected, recheckLabels := c.Rules.Apply(text, ctx)
			text = corrected
			applied = append(applied, recheckLabels...)
		}
	}

	var ambiguousHits []string
	if flags.SpokenPunct {
		converted, spokenApplied, hits := punct.ConvertSpoken(text)
		text = converted
		applied = append(applied, spokenApplied...)
		ambiguousHits = hits
	}

	var repInfo repetition.Info
	if flags.Repetition {
		repInfo = repetition.Detect(text)
	}
	meta.Repetition = repInfo

	needsLLM := router.Decide(text, meta, c.Tunables, ambiguousHits)

	return Result{
		ProcessedText:  text,
		AppliedSteps:   applied,
		RepetitionInfo: repInfo,
		NeedsLLM:       needsLLM,
	}, nil
}

// ShouldSkipLLM implements spec §6.4's standalone should_skip_llm check:
// whether, given already-processed text and metadata, the caller can skip
// invoking the LLM. It mirrors Process's final routing decision without
// re-running the pipeline or recomputing ambiguous-phrase hits.
func ShouldSkipLLM(text string, repInfo repetition.Info, provider string, avgLogProb, audioDuration float64, tun router.Tunables) bool {
	meta := router.Metadata{Provider: provider, AvgLogProb: avgLogProb, AudioDuration: audioDuration, Repetition: repInfo}
	return !router.Decide(text, meta, tun, nil)
}
