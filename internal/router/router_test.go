package router

import (
	"testing"

	"github.com/mandarin-voice/qwen3asr/internal/correct/repetition"
)

func TestDecideSkipsAllASCII(t *testing.T) {
	if Decide("hello world", Metadata{}, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=false for all-ASCII text")
	}
}

func TestDecideSkipsSimpleResponse(t *testing.T) {
	if Decide("好", Metadata{}, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=false for simple response 好")
	}
}

func TestDecideSkipsDigits(t *testing.T) {
	if Decide("12345", Metadata{}, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=false for pure digits")
	}
}

func TestDecideForcesLLMWhenRoutingDisabled(t *testing.T) {
	tun := DefaultTunables()
	tun.RoutingEnabled = false
	if !Decide("好", Metadata{}, tun, nil) {
		t.Fatal("want needs_llm=true when routing disabled")
	}
}

func TestDecideForcesLLMOnIllegitimateDoubling(t *testing.T) {
	// 偶偶然 repeats 偶 but "偶偶" isn't on the legitimate allow-list.
	if !Decide("偶偶然很奇怪的現象。", Metadata{}, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=true for illegitimate CJK doubling")
	}
}

func TestDecideSkipsLegitimateDoublingViaHighConfidence(t *testing.T) {
	meta := Metadata{AvgLogProb: -0.1}
	text := "媽媽今天煮飯，很好吃。"
	if Decide(text, meta, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=false: legitimate doubling + high confidence + good punctuation")
	}
}

func TestDecideSkipsOnHighLogProb(t *testing.T) {
	meta := Metadata{AvgLogProb: -0.1}
	text := "今天天氣很好，適合出去走走。"
	if Decide(text, meta, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=false for high-confidence well-punctuated text")
	}
}

func TestDecideForcesLLMOnLowLogProb(t *testing.T) {
	meta := Metadata{AvgLogProb: -0.9}
	text := "今天天氣很好，適合出去走走。"
	if !Decide(text, meta, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=true for low-confidence text falling to default rule")
	}
}

func TestDecideForcesLLMOnAmbiguousPhrase(t *testing.T) {
	// AvgLogProb left at zero and provider non-qwen3 so rule 6 (confidence)
	// doesn't resolve the decision first, letting rule 7 (ambiguous
	// phrases) fire.
	meta := Metadata{}
	text := "今天天氣很好，適合出去走走。"
	if !Decide(text, meta, DefaultTunables(), []string{"how"}) {
		t.Fatal("want needs_llm=true when ambiguous phrases were matched")
	}
}

func TestDecideForcesLLMOnRepetition(t *testing.T) {
	// "你好你好你好你好" has no adjacent identical runes, so it doesn't trip
	// the rule-5 doubling check; this isolates rule 8 (repetition).
	meta := Metadata{AvgLogProb: -0.9, Repetition: repetition.Info{Pattern: "你好", Count: 4, Severe: true}}
	if !Decide("你好你好你好你好", meta, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=true when repetition detected")
	}
}

func TestDecideForcesLLMOnLongTextWithoutPunctuation(t *testing.T) {
	text := "今天天氣很好適合出去走走看看風景順便買些水果回家煮飯吃完之後再去散步"
	if !Decide(text, Metadata{AvgLogProb: -0.1}, DefaultTunables(), nil) {
		t.Fatal("want needs_llm=true for long text with no punctuation")
	}
}

func TestQwen3HeuristicSkipsShortClearSpeech(t *testing.T) {
	tun := DefaultTunables()
	text := "今天天氣很好。"
	if !Qwen3Heuristic(text, 2.0, tun) {
		t.Fatal("want heuristic skip for short well-paced CJK text")
	}
}

func TestQwen3HeuristicRejectsTooManyCJKChars(t *testing.T) {
	tun := DefaultTunables()
	runes := make([]rune, 0, 40)
	for i := 0; i < 40; i++ {
		runes = append(runes, '好')
	}
	if Qwen3Heuristic(string(runes), 10.0, tun) {
		t.Fatal("want heuristic reject when CJK count exceeds threshold")
	}
}
