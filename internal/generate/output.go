package generate

import (
	"sort"
	"strings"

	"github.com/mandarin-voice/qwen3asr/internal/tokenizer"
)

// maxUncertainChineseChars is the per-group cutoff (spec §4.5): a group
// whose decoded text contains more CJK characters than this is dropped as
// noise rather than a genuine low-confidence word.
const maxUncertainChineseChars = 4

// maxUncertainGroups bounds how many uncertain-word groups are returned,
// ordered by ascending log-probability (least confident first).
const maxUncertainGroups = 8

// ParseOutput locates the generated transcript within tokenIDs (spec
// §4.5): when the asr_text marker is present, the transcript is every
// token after it (minus a trailing eos); otherwise, in auto mode, the
// whole decoded buffer is expected to start with "language <lang> " and
// that prefix is stripped.
func ParseOutput(codec tokenizer.Codec, tokenIDs []int32, autoMode bool) (transcript, detectedLanguage string) {
	asrIdx := -1
	for i, id := range tokenIDs {
		if id == tokenizer.IDASRText {
			asrIdx = i
			break
		}
	}

	if asrIdx >= 0 {
		transcript = codec.Decode(trimTrailingEOS(tokenIDs[asrIdx+1:]))
		detectedLanguage = extractLanguage(codec.Decode(trimTrailingEOS(tokenIDs[:asrIdx])))
		return transcript, detectedLanguage
	}

	full := codec.Decode(trimTrailingEOS(tokenIDs))
	if autoMode {
		detectedLanguage = extractLanguage(full)
		transcript = stripLanguagePrefix(full)
		return transcript, detectedLanguage
	}
	return full, ""
}

func trimTrailingEOS(ids []int32) []int32 {
	if len(ids) > 0 && ids[len(ids)-1] == tokenizer.IDEOS {
		return ids[:len(ids)-1]
	}
	return ids
}

func extractLanguage(text string) string {
	idx := strings.Index(text, "language ")
	if idx < 0 {
		return ""
	}
	rest := text[idx+len("language "):]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return ""
	}
	return fields[0]
}

func stripLanguagePrefix(text string) string {
	if !strings.HasPrefix(text, "language ") {
		return text
	}
	rest := text[len("language "):]
	fields := strings.Fields(rest)
	if len(fields) == 0 {
		return text
	}
	prefix := "language " + fields[0] + " "
	return strings.TrimPrefix(text, prefix)
}

// UncertainGroup is one low-confidence span in the generated transcript.
type UncertainGroup struct {
	Text       string
	AvgLogProb float64
}

// GroupUncertain groups adjacent uncertain token positions into spans,
// decodes each token in the span individually (spec §4.5: tokens are
// decoded one at a time here, not as a contiguous run, since grouping
// happens after generation), drops spans whose decoded text has more than
// maxUncertainChineseChars CJK characters, and returns at most
// maxUncertainGroups groups ordered by ascending average log-probability.
func GroupUncertain(codec tokenizer.Codec, tokenIDs []int32, marks []UncertainMark) []UncertainGroup {
	if len(marks) == 0 {
		return nil
	}
	sorted := append([]UncertainMark(nil), marks...)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Pos < sorted[j].Pos })

	var spans [][]UncertainMark
	cur := []UncertainMark{sorted[0]}
	for _, m := range sorted[1:] {
		if m.Pos == cur[len(cur)-1].Pos+1 {
			cur = append(cur, m)
		} else {
			spans = append(spans, cur)
			cur = []UncertainMark{m}
		}
	}
	spans = append(spans, cur)

	var out []UncertainGroup
	for _, span := range spans {
		var sb strings.Builder
		var sum float64
		for _, m := range span {
			sb.WriteString(codec.DecodeOne(tokenIDs[m.Pos]))
			sum += m.LogProb
		}
		text := strings.TrimSpace(sb.String())
		if countCJK(text) > maxUncertainChineseChars {
			continue
		}
		out = append(out, UncertainGroup{Text: text, AvgLogProb: sum / float64(len(span))})
	}

	sort.Slice(out, func(i, j int) bool { return out[i].AvgLogProb < out[j].AvgLogProb })
	if len(out) > maxUncertainGroups {
		out = out[:maxUncertainGroups]
	}
	return out
}

func countCJK(s string) int {
	n := 0
	for _, r := range s {
		if (r >= 0x4E00 && r <= 0x9FFF) || (r >= 0x3400 && r <= 0x4DBF) {
			n++
		}
	}
	return n
}
