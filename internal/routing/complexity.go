// Package routing scores prompt complexity and picks the model each
// request should run on.
package routing

import (
	"fmt"
	"regexp"
	"strings"
	"time"
)

// Level buckets a complexity score.
type Level string

const (
	LevelSimple  Level = "SIMPLE"  // 0-30
	LevelMedium  Level = "MEDIUM"  // 31-60
	LevelComplex Level = "COMPLEX" // 61-100
)

// Score is the outcome of complexity analysis. Value is 0-100, built
// from token count (max 30), reasoning signals (max 40), and technical
// signals (max 30).
type Score struct {
	Value     int
	Level     Level
	Factors   map[string]int
	Reasoning string
	Elapsed   time.Duration
}

// IsSimple reports whether the prompt landed in the simple bucket.
func (s Score) IsSimple() bool { return s.Level == LevelSimple }

// IsComplex reports whether the prompt landed in the complex bucket.
func (s Score) IsComplex() bool { return s.Level == LevelComplex }

// Summary renders a one-line human-readable outcome.
func (s Score) Summary() string {
	return fmt.Sprintf("Complexity: %s (score: %d/100) - %s", s.Level, s.Value, s.Reasoning)
}

var (
	reasoningPattern = regexp.MustCompile(`(?i)\b(analyze|compare|evaluate|explain|describe|why|how|consider|reasoning|logic|conclusion|therefore|because|pros and cons|advantages|disadvantages|trade-off)\b`)
	technicalPattern = regexp.MustCompile(`(?i)\b(algorithm|implementation|architecture|database|api|framework|optimization|debugging|testing|deployment|machine learning|neural network|regression|classification|concurrent|asynchronous|thread|process|memory leak)\b`)
	codePattern      = regexp.MustCompile("(?i)(```|function|class|def |import |public |private |void |int |string |return |if\\(|for\\(|while\\()")
	creativePattern  = regexp.MustCompile(`(?i)\b(write|create|design|compose|generate|build|develop|story|poem|essay|article|script|plan|strategy)\b`)
	multiStepPattern = regexp.MustCompile(`(?i)\b(first|second|third|then|next|finally|step|phase|and then|after that|following that)\b`)
)

// factorOrder fixes which factor is reported as dominant when scores tie.
var factorOrder = []string{"Token Count", "Reasoning", "Technical"}

// Analyze scores one prompt. Empty prompts get a fixed low score rather
// than an error so routing always has something to work with.
func Analyze(prompt string) Score {
	started := time.Now()

	if strings.TrimSpace(prompt) == "" {
		return Score{
			Value:     15,
			Level:     LevelFor(15),
			Factors:   map[string]int{},
			Reasoning: "Empty prompt",
			Elapsed:   time.Since(started),
		}
	}

	factors := map[string]int{
		"Token Count": tokenScore(prompt),
		"Reasoning":   reasoningScore(prompt),
		"Technical":   technicalScore(prompt),
	}

	total := 0
	for _, v := range factors {
		total += v
	}
	if total > 100 {
		total = 100
	}

	return Score{
		Value:     total,
		Level:     LevelFor(total),
		Factors:   factors,
		Reasoning: describeScore(total, factors),
		Elapsed:   time.Since(started),
	}
}

// LevelFor buckets a 0-100 score into a complexity level.
func LevelFor(score int) Level {
	switch {
	case score <= 30:
		return LevelSimple
	case score <= 60:
		return LevelMedium
	default:
		return LevelComplex
	}
}

func tokenScore(prompt string) int {
	tokens := len(prompt) / 4
	switch {
	case tokens < 50:
		return 5
	case tokens < 100:
		return 10
	case tokens < 200:
		return 15
	case tokens < 400:
		return 20
	default:
		return 30
	}
}

func reasoningScore(prompt string) int {
	score := 0
	if n := countMatches(prompt, reasoningPattern); n > 0 {
		score += min(10, n*3)
	}
	if n := countMatches(prompt, multiStepPattern); n > 0 {
		score += min(10, n*4)
	}
	if n := countMatches(prompt, creativePattern); n > 0 {
		score += min(10, n*5)
	}
	if q := strings.Count(prompt, "?"); q > 1 {
		score += min(10, q*3)
	}
	return min(40, score)
}

func technicalScore(prompt string) int {
	score := 0
	if n := countMatches(prompt, technicalPattern); n > 0 {
		score += min(15, n*4)
	}
	if n := countMatches(prompt, codePattern); n > 0 {
		score += min(15, n*5)
	}
	return min(30, score)
}

func countMatches(text string, p *regexp.Regexp) int {
	return len(p.FindAllStringIndex(text, -1))
}

func describeScore(total int, factors map[string]int) string {
	var b strings.Builder
	switch {
	case total <= 30:
		b.WriteString("Simple query - ")
	case total <= 60:
		b.WriteString("Medium complexity - ")
	default:
		b.WriteString("Complex query - ")
	}

	top, topScore := "Unknown", -1
	for _, name := range factorOrder {
		if v, ok := factors[name]; ok && v > topScore {
			top, topScore = name, v
		}
	}
	b.WriteString("primarily driven by " + strings.ToLower(top))
	return b.String()
}
