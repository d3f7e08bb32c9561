// Package optimize rewrites prompts to spend fewer tokens without
// changing what they ask for. Entities are extracted up front and their
// spans are off-limits to every pass, so names, amounts, and requirement
// phrases come through intact. Redaction tokens survive for a second
// reason as well: the word-bounded patterns cannot match across the
// token's underscores and brackets.
package optimize

import (
	"fmt"
	"regexp"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// DefaultStopwords are filler words removed by the stopword pass.
var DefaultStopwords = []string{
	"basically", "actually", "literally", "honestly", "frankly",
	"really", "very", "quite", "just", "simply", "merely",
	"perhaps", "maybe", "possibly", "probably",
	"essentially", "practically", "virtually", "effectively",
}

type rewrite struct {
	pattern     *regexp.Regexp
	replacement string
}

// redundancyRewrites collapse polite preambles. Order is fixed so output
// is stable run to run.
var redundancyRewrites = []rewrite{
	{regexp.MustCompile(`(?i)\bI was wondering if you could\b`), "Please"},
	{regexp.MustCompile(`(?i)\bCould you please possibly\b`), "Please"},
	{regexp.MustCompile(`(?i)\bI would like to request that you\b`), "Please"},
	{regexp.MustCompile(`(?i)\bIt would be great if you could\b`), "Please"},
	{regexp.MustCompile(`(?i)\bI'm trying to figure out how to\b`), "How to"},
}

// simplifications replace wordy phrases with short equivalents.
var simplifications = []rewrite{
	{regexp.MustCompile(`(?i)\bin order to\b`), "to"},
	{regexp.MustCompile(`(?i)\bdue to the fact that\b`), "because"},
	{regexp.MustCompile(`(?i)\bat this point in time\b`), "now"},
	{regexp.MustCompile(`(?i)\bfor the purpose of\b`), "to"},
	{regexp.MustCompile(`(?i)\bin the event that\b`), "if"},
	{regexp.MustCompile(`(?i)\bprior to\b`), "before"},
	{regexp.MustCompile(`(?i)\bsubsequent to\b`), "after"},
	{regexp.MustCompile(`(?i)\bwith regard to\b`), "about"},
	{regexp.MustCompile(`(?i)\bin close proximity to\b`), "near"},
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// Result describes one optimization, whether applied or skipped.
type Result struct {
	OriginalPrompt  string
	OptimizedPrompt string
	OriginalTokens  int
	OptimizedTokens int
	Intent          Intent
	Entities        []Entity
	Elapsed         time.Duration
	WasOptimized    bool
	SkipReason      string
}

// TokensSaved is the estimated token delta.
func (r Result) TokensSaved() int {
	return r.OriginalTokens - r.OptimizedTokens
}

// ReductionPercentage is the saved share of the original estimate.
func (r Result) ReductionPercentage() float64 {
	if r.OriginalTokens == 0 {
		return 0
	}
	return float64(r.OriginalTokens-r.OptimizedTokens) / float64(r.OriginalTokens) * 100
}

// IsEffective reports whether the pass saved at least 10% of tokens.
func (r Result) IsEffective() bool {
	return r.WasOptimized && r.ReductionPercentage() >= 10
}

// Summary renders a one-line human-readable outcome.
func (r Result) Summary() string {
	if !r.WasOptimized {
		return fmt.Sprintf("Optimization skipped: %s", r.SkipReason)
	}
	return fmt.Sprintf("Optimized: %d → %d tokens (%.1f%% reduction) in %dms",
		r.OriginalTokens, r.OptimizedTokens, r.ReductionPercentage(), r.Elapsed.Milliseconds())
}

// Optimizer applies the configured rewrite strategies to prompts.
type Optimizer struct {
	cfg     config.OptimizationConfig
	fillers *regexp.Regexp
}

// NewOptimizer compiles the stopword pattern once up front. Custom
// stopwords are quoted so user input cannot break the pattern.
func NewOptimizer(cfg config.OptimizationConfig) *Optimizer {
	o := &Optimizer{cfg: cfg}
	if cfg.Stopwords.Enabled {
		o.fillers = compileStopwords(cfg.Stopwords.CustomWords)
	}
	return o
}

func compileStopwords(custom []string) *regexp.Regexp {
	words := make([]string, 0, len(DefaultStopwords)+len(custom))
	seen := make(map[string]bool)
	for _, w := range DefaultStopwords {
		seen[w] = true
		words = append(words, regexp.QuoteMeta(w))
	}
	for _, w := range custom {
		w = strings.ToLower(strings.TrimSpace(w))
		if w == "" || seen[w] {
			continue
		}
		seen[w] = true
		words = append(words, regexp.QuoteMeta(w))
	}
	return regexp.MustCompile(`(?i)\b(` + strings.Join(words, "|") + `)\b`)
}

// Optimize runs the enabled passes over one prompt. A pass failure
// downgrades to a skip rather than failing the request.
func (o *Optimizer) Optimize(prompt string) (res Result) {
	started := time.Now()

	defer func() {
		if r := recover(); r != nil {
			log.Warn().Interface("panic", r).Msg("Prompt optimization failed")
			res = o.skipped(prompt, fmt.Sprintf("Optimization failed: %v", r))
		}
	}()

	if strings.TrimSpace(prompt) == "" {
		return o.skipped(prompt, "Empty prompt")
	}
	if !o.cfg.Enabled {
		return o.skipped(prompt, "Optimization disabled")
	}
	if len(prompt) < o.cfg.MinPromptLength {
		return o.skipped(prompt, "Prompt too short")
	}

	intent := ExtractIntent(prompt)
	entities := ExtractEntities(prompt)

	optimized := o.applyPasses(prompt, entities)

	return Result{
		OriginalPrompt:  prompt,
		OptimizedPrompt: optimized,
		OriginalTokens:  EstimateTokens(prompt),
		OptimizedTokens: EstimateTokens(optimized),
		Intent:          intent,
		Entities:        entities,
		Elapsed:         time.Since(started),
		WasOptimized:    true,
	}
}

// OptimizeBatch optimizes each prompt independently.
func (o *Optimizer) OptimizeBatch(prompts []string) []Result {
	results := make([]Result, len(prompts))
	for i, p := range prompts {
		results[i] = o.Optimize(p)
	}
	return results
}

// applyPasses runs the strategies in a fixed order. Whitespace
// compression goes last to clean up gaps the other passes leave. A match
// that touches an entity span is left alone; spans are remapped after
// each substitution so they keep protecting the same characters as the
// text shifts.
func (o *Optimizer) applyPasses(text string, entities []Entity) string {
	spans := protectedSpans(entities, len(text))
	s := o.cfg.Strategies
	if s.RemoveRedundancy {
		for _, r := range redundancyRewrites {
			text, spans = replaceOutside(text, r.pattern, r.replacement, spans)
		}
	}
	if s.RemoveFillerWords && o.fillers != nil {
		text, spans = replaceOutside(text, o.fillers, "", spans)
	}
	if s.SimplifyLanguage {
		for _, r := range simplifications {
			text, spans = replaceOutside(text, r.pattern, r.replacement, spans)
		}
	}
	if s.CompressWhitespace {
		text = collapseWhitespace(text, spans)
	}
	return text
}

type span struct {
	start, end int
}

// protectedSpans collects entity positions, clamped to the text bounds.
func protectedSpans(entities []Entity, limit int) []span {
	spans := make([]span, 0, len(entities))
	for _, e := range entities {
		start, end := e.Start, e.End
		if end > limit {
			end = limit
		}
		if start < 0 || start >= end {
			continue
		}
		spans = append(spans, span{start: start, end: end})
	}
	return spans
}

func overlapsAny(start, end int, spans []span) bool {
	for _, sp := range spans {
		if start < sp.end && sp.start < end {
			return true
		}
	}
	return false
}

// replaceOutside substitutes matches of re with repl, skipping any match
// that overlaps a protected span. Returned spans are shifted to the new
// text's offsets.
func replaceOutside(text string, re *regexp.Regexp, repl string, spans []span) (string, []span) {
	matches := re.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text, spans
	}
	var b strings.Builder
	var edits [][2]int // match end in the old text, length delta
	last := 0
	for _, m := range matches {
		if overlapsAny(m[0], m[1], spans) {
			continue
		}
		b.WriteString(text[last:m[0]])
		b.WriteString(repl)
		edits = append(edits, [2]int{m[1], len(repl) - (m[1] - m[0])})
		last = m[1]
	}
	if len(edits) == 0 {
		return text, spans
	}
	b.WriteString(text[last:])
	shifted := make([]span, len(spans))
	for i, sp := range spans {
		d := 0
		for _, e := range edits {
			if e[0] <= sp.start {
				d += e[1]
			}
		}
		shifted[i] = span{start: sp.start + d, end: sp.end + d}
	}
	return b.String(), shifted
}

// collapseWhitespace squeezes unprotected whitespace runs to a single
// space and drops runs at either edge of the text.
func collapseWhitespace(text string, spans []span) string {
	matches := whitespaceRun.FindAllStringIndex(text, -1)
	if len(matches) == 0 {
		return text
	}
	var b strings.Builder
	last := 0
	for _, m := range matches {
		if overlapsAny(m[0], m[1], spans) {
			continue
		}
		b.WriteString(text[last:m[0]])
		if m[0] > 0 && m[1] < len(text) {
			b.WriteString(" ")
		}
		last = m[1]
	}
	b.WriteString(text[last:])
	return b.String()
}

func (o *Optimizer) skipped(prompt, reason string) Result {
	return Result{
		OriginalPrompt:  prompt,
		OptimizedPrompt: prompt,
		OriginalTokens:  EstimateTokens(prompt),
		OptimizedTokens: EstimateTokens(prompt),
		SkipReason:      reason,
	}
}

// EstimateTokens approximates token count as one per four characters.
func EstimateTokens(text string) int {
	n := len(text) / 4
	if n < 1 {
		return 1
	}
	return n
}
