package routing_test

import (
	"strings"
	"testing"

	"github.com/llmguardian/gateway/internal/routing"
)

func TestAnalyzeEmptyPrompt(t *testing.T) {
	for _, prompt := range []string{"", "   \n"} {
		score := routing.Analyze(prompt)
		if score.Value != 15 {
			t.Errorf("Analyze(%q).Value = %d, want 15", prompt, score.Value)
		}
		if score.Level != routing.LevelSimple {
			t.Errorf("Analyze(%q).Level = %q, want %q", prompt, score.Level, routing.LevelSimple)
		}
		if score.Reasoning != "Empty prompt" {
			t.Errorf("Reasoning = %q, want %q", score.Reasoning, "Empty prompt")
		}
	}
}

func TestAnalyzeSimplePrompt(t *testing.T) {
	score := routing.Analyze("Hi, how are you today?")

	if score.Value != 8 {
		t.Errorf("Value = %d, want 8", score.Value)
	}
	if score.Level != routing.LevelSimple {
		t.Errorf("Level = %q, want %q", score.Level, routing.LevelSimple)
	}
	want := "Simple query - primarily driven by token count"
	if score.Reasoning != want {
		t.Errorf("Reasoning = %q, want %q", score.Reasoning, want)
	}
}

func TestAnalyzeMediumPrompt(t *testing.T) {
	score := routing.Analyze("Explain how the database caching algorithm works, then describe the eviction policy and why the framework needs testing.")

	if score.Value != 34 {
		t.Errorf("Value = %d, want 34", score.Value)
	}
	if score.Level != routing.LevelMedium {
		t.Errorf("Level = %q, want %q", score.Level, routing.LevelMedium)
	}
	if score.Factors["Reasoning"] != 14 {
		t.Errorf("Factors[Reasoning] = %d, want 14", score.Factors["Reasoning"])
	}
	if score.Factors["Technical"] != 15 {
		t.Errorf("Factors[Technical] = %d, want 15", score.Factors["Technical"])
	}
}

func TestAnalyzeComplexPrompt(t *testing.T) {
	prompt := "First analyze the database architecture, then explain why the algorithm needs optimization, " +
		"and finally write a deployment plan. How would you compare the testing strategy? " +
		"What are the pros and cons? Include a code review checklist: function signatures, class design, return types."

	score := routing.Analyze(prompt)

	if score.Level != routing.LevelComplex {
		t.Errorf("Level = %q, want %q (value %d)", score.Level, routing.LevelComplex, score.Value)
	}
	if score.Factors["Reasoning"] != 36 {
		t.Errorf("Factors[Reasoning] = %d, want 36", score.Factors["Reasoning"])
	}
	if score.Factors["Technical"] != 30 {
		t.Errorf("Factors[Technical] = %d, want 30", score.Factors["Technical"])
	}
	if !score.IsComplex() {
		t.Error("IsComplex() = false, want true")
	}
}

func TestAnalyzeQuestionDensity(t *testing.T) {
	score := routing.Analyze("Why? How? What? Where?")

	// why + how keywords (6) plus four question marks (10, capped).
	if score.Factors["Reasoning"] != 16 {
		t.Errorf("Factors[Reasoning] = %d, want 16", score.Factors["Reasoning"])
	}
}

func TestAnalyzeTokenScoreGrowsWithLength(t *testing.T) {
	// Filler with no keyword hits, so only the token-count factor moves.
	tests := []struct {
		repeats   int
		wantScore int
	}{
		{4, 5},
		{10, 10},
		{20, 15},
		{36, 20},
		{64, 30},
	}
	prev := 0
	for _, tt := range tests {
		prompt := strings.Repeat("lorem ipsum dolor sit amet ", tt.repeats)
		score := routing.Analyze(prompt)
		if got := score.Factors["Token Count"]; got != tt.wantScore {
			t.Errorf("repeats=%d: Factors[Token Count] = %d, want %d", tt.repeats, got, tt.wantScore)
		}
		if score.Value < prev {
			t.Errorf("repeats=%d: Value = %d, dropped below %d", tt.repeats, score.Value, prev)
		}
		prev = score.Value
	}
}

func TestLevelFor(t *testing.T) {
	tests := []struct {
		score int
		want  routing.Level
	}{
		{0, routing.LevelSimple},
		{30, routing.LevelSimple},
		{31, routing.LevelMedium},
		{60, routing.LevelMedium},
		{61, routing.LevelComplex},
		{100, routing.LevelComplex},
	}
	for _, tt := range tests {
		if got := routing.LevelFor(tt.score); got != tt.want {
			t.Errorf("LevelFor(%d) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestScoreSummary(t *testing.T) {
	score := routing.Score{
		Value:     45,
		Level:     routing.LevelMedium,
		Reasoning: "Medium complexity - primarily driven by reasoning",
	}
	want := "Complexity: MEDIUM (score: 45/100) - Medium complexity - primarily driven by reasoning"
	if got := score.Summary(); got != want {
		t.Errorf("Summary() = %q, want %q", got, want)
	}
}
