package generate

import (
	"context"
	"math"

	"github.com/mandarin-voice/qwen3asr/internal/decoder"
	"github.com/mandarin-voice/qwen3asr/internal/kvcache"
	"github.com/mandarin-voice/qwen3asr/internal/tokenizer"
)

// EvalInterval is the flush cadence for the memory-discipline pass (spec
// §4.5): every 50 generated steps, and once more when the loop exits.
const EvalInterval = 50

// UncertainThreshold is the per-token log-probability cutoff below which a
// generated token is flagged uncertain (spec §4.5).
const UncertainThreshold = -1.0

// FlushFunc releases transient generation-step scratch (e.g. a GPU buffer
// pool). The loop invokes it every EvalInterval steps and once more after
// the final step.
type FlushFunc func()

// UncertainMark records one low-confidence generated token's position
// (index into Result.TokenIDs) and log-probability.
type UncertainMark struct {
	Pos     int
	LogProb float64
}

// Result is one greedy decode run's output: the full generated token
// sequence, plus the counted-token log-probability statistics (spec
// §4.5's per-token accounting, which starts only once counting begins —
// at the asr_text marker in auto mode, or from the first generated token
// in language-pinned mode).
type Result struct {
	TokenIDs     []int32
	LogProbSum   float64
	LogProbCount int
	Uncertain    []UncertainMark
}

// AvgLogProb returns the mean log-probability over counted tokens, or 0 if
// no tokens were counted.
func (r Result) AvgLogProb() float64 {
	if r.LogProbCount == 0 {
		return 0
	}
	return r.LogProbSum / float64(r.LogProbCount)
}

// Mode selects when per-token log-prob counting begins.
type Mode int

const (
	// ModeAuto begins counting only once the asr_text marker token is
	// generated; that marker token itself is excluded from the count.
	ModeAuto Mode = iota
	// ModeLanguage begins counting from the first generated token, since
	// the asr_text marker was already appended to the prompt prefix.
	ModeLanguage
)

// Greedy runs greedy (argmax) decoding with a KV cache until eos or
// maxTokens steps, implementing spec §4.5's generation loop: prefill on
// promptEmbeds, then one token at a time by embedding ID, with a flush
// every EvalInterval steps and one more at exit. Cancellation is
// cooperative (spec §5): ctx is checked only between steps, never
// mid-step; a canceled context aborts the loop and returns ctx.Err()
// after releasing the cache reference, without materializing a partial
// result.
func Greedy(ctx context.Context, dec *decoder.Decoder, promptEmbeds [][]float32, maxTokens int, mode Mode, flush FlushFunc) (Result, error) {
	cache := kvcache.New(dec.Config.NLayers)
	hidden, cache, err := dec.Forward(promptEmbeds, nil, nil, cache)
	if err != nil {
		return Result{}, err
	}

	var res Result
	counting := mode == ModeLanguage

	for step := 0; step < maxTokens; step++ {
		if ctx != nil {
			select {
			case <-ctx.Done():
				cache = nil
				return res, ctx.Err()
			default:
			}
		}
		logits := dec.Logits(hidden)
		nextID := argmax(logits)
		res.TokenIDs = append(res.TokenIDs, nextID)

		switch {
		case nextID == tokenizer.IDASRText:
			counting = true
		case nextID == tokenizer.IDEOS:
			// excluded from counting; loop terminates below
		case counting:
			probs := softmax(logits)
			lp := math.Log(math.Max(float64(probs[nextID]), 1e-30))
			res.LogProbSum += lp
			res.LogProbCount++
			if lp < UncertainThreshold {
				res.Uncertain = append(res.Uncertain, UncertainMark{Pos: len(res.TokenIDs) - 1, LogProb: lp})
			}
		}

		if nextID == tokenizer.IDEOS {
			break
		}
		if flush != nil && (step+1)%EvalInterval == 0 {
			flush()
		}

		hidden, cache, err = dec.Forward(nil, []int32{nextID}, nil, cache)
		if err != nil {
			return res, err
		}
	}

	if flush != nil {
		flush()
	}
	return res, nil
}

func argmax(logits []float32) int32 {
	best := 0
	for i, v := range logits {
		if v > logits[best] {
			best = i
		}
	}
	return int32(best)
}

func softmax(logits []float32) []float32 {
	maxV := logits[0]
	for _, v := range logits {
		if v > maxV {
			maxV = v
		}
	}
	out := make([]float32, len(logits))
	var sum float64
	for i, v := range logits {
		e := math.Exp(float64(v - maxV))
		out[i] = float32(e)
		sum += e
	}
	for i := range out {
		out[i] = float32(float64(out[i]) / sum)
	}
	return out
}
