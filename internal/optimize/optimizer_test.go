package optimize_test

import (
	"strings"
	"testing"

	"github.com/llmguardian/gateway/internal/config"
	"github.com/llmguardian/gateway/internal/optimize"
)

func newTestOptimizer(t *testing.T, mutate func(*config.OptimizationConfig)) *optimize.Optimizer {
	t.Helper()

	cfg := config.OptimizationConfig{
		Enabled:         true,
		MinPromptLength: 50,
		TargetReduction: 30,
		Strategies: config.StrategyConfig{
			RemoveRedundancy:       true,
			CompressWhitespace:     true,
			SimplifyLanguage:       true,
			PreserveTechnicalTerms: true,
			RemoveFillerWords:      true,
		},
		Stopwords: config.StopwordsConfig{Enabled: true},
	}
	if mutate != nil {
		mutate(&cfg)
	}
	return optimize.NewOptimizer(cfg)
}

// ─── Skip conditions ─────────────────────────────────────────────────────────

func TestOptimizeSkipsEmptyPrompt(t *testing.T) {
	o := newTestOptimizer(t, nil)

	for _, prompt := range []string{"", "   \n\t "} {
		res := o.Optimize(prompt)
		if res.WasOptimized {
			t.Errorf("Optimize(%q).WasOptimized = true, want false", prompt)
		}
		if res.SkipReason != "Empty prompt" {
			t.Errorf("SkipReason = %q, want %q", res.SkipReason, "Empty prompt")
		}
		if res.OptimizedPrompt != prompt {
			t.Errorf("OptimizedPrompt = %q, want input unchanged", res.OptimizedPrompt)
		}
	}
}

func TestOptimizeSkipsWhenDisabled(t *testing.T) {
	o := newTestOptimizer(t, func(cfg *config.OptimizationConfig) {
		cfg.Enabled = false
	})

	prompt := "Could you please possibly review this very long deployment plan for me?"
	res := o.Optimize(prompt)

	if res.WasOptimized {
		t.Fatal("Optimize() applied passes with optimization disabled")
	}
	if res.SkipReason != "Optimization disabled" {
		t.Errorf("SkipReason = %q, want %q", res.SkipReason, "Optimization disabled")
	}
	if res.OptimizedPrompt != prompt {
		t.Errorf("OptimizedPrompt = %q, want input unchanged", res.OptimizedPrompt)
	}
}

func TestOptimizeSkipsShortPrompt(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("Hello world")

	if res.WasOptimized {
		t.Fatal("Optimize() applied passes to a prompt below the minimum length")
	}
	if res.SkipReason != "Prompt too short" {
		t.Errorf("SkipReason = %q, want %q", res.SkipReason, "Prompt too short")
	}
}

// ─── Rewrite passes ──────────────────────────────────────────────────────────

func TestOptimizeRemovesRedundantPreamble(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("I was wondering if you could summarize this meeting transcript for me today.")

	want := "Please summarize this meeting transcript for me today."
	if res.OptimizedPrompt != want {
		t.Errorf("OptimizedPrompt = %q, want %q", res.OptimizedPrompt, want)
	}
	if !res.WasOptimized {
		t.Error("WasOptimized = false, want true")
	}
}

func TestOptimizeRemovesFillerWords(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("Can you really just quite simply explain how garbage collection works in modern runtimes?")

	want := "Can you explain how garbage collection works in modern runtimes?"
	if res.OptimizedPrompt != want {
		t.Errorf("OptimizedPrompt = %q, want %q", res.OptimizedPrompt, want)
	}
}

func TestOptimizeSimplifiesLanguage(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("Describe the design decisions we made in order to reduce latency, due to the fact that the budget was fixed at this point in time.")

	want := "Describe the design decisions we made to reduce latency, because the budget was fixed now."
	if res.OptimizedPrompt != want {
		t.Errorf("OptimizedPrompt = %q, want %q", res.OptimizedPrompt, want)
	}
}

func TestOptimizePassOrder(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("It would be great if you could   actually  summarize the incident report in order to brief the team.")

	want := "Please summarize the incident report to brief the team."
	if res.OptimizedPrompt != want {
		t.Errorf("OptimizedPrompt = %q, want %q", res.OptimizedPrompt, want)
	}
}

func TestOptimizeStrategiesDisabled(t *testing.T) {
	o := newTestOptimizer(t, func(cfg *config.OptimizationConfig) {
		cfg.Strategies = config.StrategyConfig{}
	})

	prompt := "This   prompt has   irregular spacing and would normally be compressed down."
	res := o.Optimize(prompt)

	if !res.WasOptimized {
		t.Fatal("WasOptimized = false, want true")
	}
	if res.OptimizedPrompt != prompt {
		t.Errorf("OptimizedPrompt = %q, want input unchanged with all strategies off", res.OptimizedPrompt)
	}
}

func TestOptimizeCustomStopwords(t *testing.T) {
	o := newTestOptimizer(t, func(cfg *config.OptimizationConfig) {
		cfg.Stopwords.CustomWords = []string{"kindly"}
	})

	res := o.Optimize("Could you kindly review the attached deployment checklist before tomorrow's release window?")

	want := "Could you review the attached deployment checklist before tomorrow's release window?"
	if res.OptimizedPrompt != want {
		t.Errorf("OptimizedPrompt = %q, want %q", res.OptimizedPrompt, want)
	}
}

func TestOptimizeCustomStopwordWithMetacharacters(t *testing.T) {
	o := newTestOptimizer(t, func(cfg *config.OptimizationConfig) {
		cfg.Stopwords.CustomWords = []string{"c++ (legacy)"}
	})

	res := o.Optimize("Please review the following migration plan and flag anything that looks risky to you.")

	if !res.WasOptimized {
		t.Fatalf("Optimize() skipped: %s", res.SkipReason)
	}
}

func TestOptimizeProtectsEntitySpans(t *testing.T) {
	o := newTestOptimizer(t, nil)

	// "must ... date" is a REQUIREMENT phrase, so the "prior to"
	// simplification inside it has to stay; the filler before it does not.
	res := o.Optimize("The team can honestly wait. The deployment must be finished prior to the launch date.")

	want := "The team can wait. The deployment must be finished prior to the launch date."
	if res.OptimizedPrompt != want {
		t.Errorf("OptimizedPrompt = %q, want %q", res.OptimizedPrompt, want)
	}
	if !strings.Contains(res.OptimizedPrompt, "prior to") {
		t.Errorf("OptimizedPrompt = %q, protected phrase was rewritten", res.OptimizedPrompt)
	}
}

func TestOptimizePreservesRedactionTokens(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("Please very quickly draft a reply to [EMAIL_TOKEN_a1b2c3] and really make sure the tone stays quite friendly.")

	if !strings.Contains(res.OptimizedPrompt, "[EMAIL_TOKEN_a1b2c3]") {
		t.Errorf("OptimizedPrompt = %q, redaction token was altered", res.OptimizedPrompt)
	}
	if strings.Contains(res.OptimizedPrompt, "really") || strings.Contains(res.OptimizedPrompt, "quite") {
		t.Errorf("OptimizedPrompt = %q, filler words survived", res.OptimizedPrompt)
	}
}

// ─── Results and metrics ─────────────────────────────────────────────────────

func TestOptimizeReportsIntentAndEntities(t *testing.T) {
	o := newTestOptimizer(t, nil)

	res := o.Optimize("Please summarize the quarterly report for Acme Corp in order to brief Jane Smith.")

	if res.Intent.Type != optimize.IntentSummarize {
		t.Errorf("Intent.Type = %q, want %q", res.Intent.Type, optimize.IntentSummarize)
	}
	foundPerson := false
	for _, e := range res.Entities {
		if e.Type == optimize.EntityPerson && e.Value == "Jane Smith" {
			foundPerson = true
		}
	}
	if !foundPerson {
		t.Errorf("Entities = %v, want a PERSON entity for Jane Smith", res.Entities)
	}
	if res.TokensSaved() <= 0 {
		t.Errorf("TokensSaved() = %d, want > 0", res.TokensSaved())
	}
}

func TestResultMetrics(t *testing.T) {
	res := optimize.Result{OriginalTokens: 100, OptimizedTokens: 80, WasOptimized: true}

	if got := res.TokensSaved(); got != 20 {
		t.Errorf("TokensSaved() = %d, want 20", got)
	}
	if got := res.ReductionPercentage(); got != 20 {
		t.Errorf("ReductionPercentage() = %v, want 20", got)
	}
	if !res.IsEffective() {
		t.Error("IsEffective() = false, want true at 20% reduction")
	}

	marginal := optimize.Result{OriginalTokens: 100, OptimizedTokens: 95, WasOptimized: true}
	if marginal.IsEffective() {
		t.Error("IsEffective() = true, want false at 5% reduction")
	}

	skipped := optimize.Result{OriginalTokens: 10, OptimizedTokens: 10, SkipReason: "Prompt too short"}
	if skipped.IsEffective() {
		t.Error("IsEffective() = true for a skipped result")
	}
	if got := skipped.Summary(); got != "Optimization skipped: Prompt too short" {
		t.Errorf("Summary() = %q", got)
	}
}

func TestEstimateTokens(t *testing.T) {
	tests := []struct {
		text string
		want int
	}{
		{"", 1},
		{"abc", 1},
		{"abcd", 1},
		{"abcdefgh", 2},
		{strings.Repeat("x", 100), 25},
	}
	for _, tt := range tests {
		if got := optimize.EstimateTokens(tt.text); got != tt.want {
			t.Errorf("EstimateTokens(%q) = %d, want %d", tt.text, got, tt.want)
		}
	}
}

func TestOptimizeBatch(t *testing.T) {
	o := newTestOptimizer(t, nil)

	results := o.OptimizeBatch([]string{
		"I was wondering if you could summarize this meeting transcript for me today.",
		"",
	})

	if len(results) != 2 {
		t.Fatalf("OptimizeBatch() returned %d results, want 2", len(results))
	}
	if !results[0].WasOptimized {
		t.Error("results[0].WasOptimized = false, want true")
	}
	if results[1].WasOptimized || results[1].SkipReason != "Empty prompt" {
		t.Errorf("results[1] = %+v, want empty-prompt skip", results[1])
	}
}
