// Package generate implements the chat-template prompt construction and
// greedy decoding loop (spec §4.5): prompt assembly with audio-pad
// splicing, KV-cached greedy decoding with periodic eval/flush, per-token
// log-probability accounting, uncertain-word grouping, and output parsing.
package generate

import "math"

const (
	minTokens   = 448
	maxTokens   = 32768
	secondsPer  = 30.0
)

// TokenBudget implements spec §4.5/§8 invariant #1: max_tokens =
// clamp(448, ceil(duration_s/30*448), 32768), unless override is non-nil.
func TokenBudget(durationSeconds float64, override *int) int {
	if override != nil {
		return *override
	}
	n := int(math.Ceil(durationSeconds / secondsPer * 448))
	if n < minTokens {
		n = minTokens
	}
	if n > maxTokens {
		n = maxTokens
	}
	return n
}
