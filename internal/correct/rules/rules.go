// Package rules implements the rule-based corrector (spec §4.8): an
// ordered table of always-apply and context-dependent substring
// replacements, protected at CJK word boundaries and by the process-wide
// protection list.
package rules

import (
	"sort"
	"strings"

	"github.com/mandarin-voice/qwen3asr/internal/correct"
	"github.com/mandarin-voice/qwen3asr/internal/correct/protect"
	"github.com/mandarin-voice/qwen3asr/internal/pinyin"
)

// Rule is one substring replacement. Keywords == nil marks an always-apply
// rule; a non-empty Keywords list marks a context-dependent rule, applied
// only when one of its keywords matches the current text or the combined
// context string (spec §4.8).
type Rule struct {
	Wrong    string
	Right    string
	Keywords []string
}

// Corrector applies an ordered rule table, longest wrong-form first (spec
// §4.8: "ordered, longest-wrong-form first to avoid substring masking").
type Corrector struct {
	rules      []Rule
	db         *pinyin.DB
	protection *protect.List
}

// New builds a Corrector from rules, sorted longest-wrong-form-first. db is
// used for the CJK boundary-protection check; it may be nil, in which case
// boundary protection never blocks a replacement. protection may be nil.
func New(rules []Rule, db *pinyin.DB, protection *protect.List) *Corrector {
	sorted := append([]Rule(nil), rules...)
	sort.SliceStable(sorted, func(i, j int) bool {
		return len([]rune(sorted[i].Wrong)) > len([]rune(sorted[j].Wrong))
	})
	return &Corrector{rules: sorted, db: db, protection: protection}
}

// DefaultRules is a representative seed table covering the literal examples
// in spec §8's end-to-end scenario table. Production deployments supply a
// larger curated table via New without code changes.
var DefaultRules = []Rule{
	{Wrong: "硬輸入", Right: "語音輸入"},
	{Wrong: "去永所", Right: "區公所"},
	{Wrong: "常式", Right: "程式", Keywords: []string{"coding", "程式", "code", "程式碼"}},
}

// Apply runs every rule in order over text, returning the corrected text
// and the list of "wrong->right" labels that fired.
func (c *Corrector) Apply(text string, ctx correct.Context) (string, []string) {
	var applied []string
	for _, rule := range c.rules {
		if len(rule.Keywords) > 0 && !matchesContext(rule.Keywords, text, ctx) {
			continue
		}
		newText, hit := c.applyRule(text, rule)
		if hit {
			text = newText
			applied = append(applied, rule.Wrong+"->"+rule.Right)
		}
	}
	return text, applied
}

func matchesContext(keywords []string, text string, ctx correct.Context) bool {
	combined := strings.ToLower(strings.Join(append(append([]string{text}, ctx.RecentTranscripts...), ctx.AppName, ctx.WindowTitle), " "))
	for _, kw := range keywords {
		if strings.Contains(combined, strings.ToLower(kw)) {
			return true
		}
	}
	return false
}

func (c *Corrector) applyRule(text string, rule Rule) (string, bool) {
	if c.protection.Contains(rule.Wrong) {
		return text, false
	}
	wrong := []rune(rule.Wrong)
	right := []rune(rule.Right)
	src := []rune(text)

	var out []rune
	hit := false
	for i := 0; i < len(src); {
		if i+len(wrong) <= len(src) && runesEqual(src[i:i+len(wrong)], wrong) {
			if len(wrong) <= 2 && c.boundaryBlocks(src, i, len(wrong)) {
				out = append(out, src[i])
				i++
				continue
			}
			out = append(out, right...)
			i += len(wrong)
			hit = true
			continue
		}
		out = append(out, src[i])
		i++
	}
	return string(out), hit
}

// boundaryBlocks implements spec §4.8's CJK boundary protection: for a
// wrong-form of <= 2 characters, skip the occurrence at src[pos:pos+length]
// if either adjacent straddling pair is itself a known word.
func (c *Corrector) boundaryBlocks(src []rune, pos, length int) bool {
	if c.db == nil {
		return false
	}
	if pos+length < len(src) {
		pair := string(src[pos+length-1]) + string(src[pos+length])
		if c.db.KnownWord(pair) {
			return true
		}
	}
	if pos > 0 {
		pair := string(src[pos-1]) + string(src[pos])
		if c.db.KnownWord(pair) {
			return true
		}
	}
	return false
}

func runesEqual(a, b []rune) bool {
	if len(a) != len(b) {
		return false
	}
	for i := range a {
		if a[i] != b[i] {
			return false
		}
	}
	return true
}
