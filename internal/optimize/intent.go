package optimize

import (
	"regexp"
	"strings"
)

// IntentType labels what the prompt is asking for.
type IntentType string

const (
	IntentGenerateText    IntentType = "GENERATE_TEXT"
	IntentExplainConcept  IntentType = "EXPLAIN_CONCEPT"
	IntentSummarize       IntentType = "SUMMARIZE"
	IntentTranslate       IntentType = "TRANSLATE"
	IntentAnalyze         IntentType = "ANALYZE"
	IntentQuestionAnswer  IntentType = "QUESTION_ANSWER"
	IntentCodeGeneration  IntentType = "CODE_GENERATION"
	IntentCodeExplanation IntentType = "CODE_EXPLANATION"
	IntentCreativeWriting IntentType = "CREATIVE_WRITING"
	IntentDataExtraction  IntentType = "DATA_EXTRACTION"
	IntentComparison      IntentType = "COMPARISON"
	IntentClassification  IntentType = "CLASSIFICATION"
	IntentUnknown         IntentType = "UNKNOWN"
)

// Intent is the extracted intent plus a confidence in [0,1].
type Intent struct {
	Type       IntentType
	Confidence float64
}

// UnknownIntent is returned when no pattern matches.
func UnknownIntent() Intent {
	return Intent{Type: IntentUnknown}
}

// intentPatterns maps each intent to its signal patterns. Order is fixed so
// equal scores resolve the same way on every run.
var intentPatterns = []struct {
	kind     IntentType
	patterns []*regexp.Regexp
}{
	{IntentGenerateText, []*regexp.Regexp{
		regexp.MustCompile(`\b(write|create|generate|compose|draft)\b.*\b(email|letter|message|document|article|post)\b`),
		regexp.MustCompile(`\b(write me|create a|generate a|compose a)\b`),
		regexp.MustCompile(`\bhelp me write\b`),
	}},
	{IntentExplainConcept, []*regexp.Regexp{
		regexp.MustCompile(`\b(explain|describe|tell me about|what is|what are)\b`),
		regexp.MustCompile(`\bhow does .* work\b`),
		regexp.MustCompile(`\bcan you explain\b`),
	}},
	{IntentSummarize, []*regexp.Regexp{
		regexp.MustCompile(`\b(summarize|summary|tldr|key points|main ideas)\b`),
		regexp.MustCompile(`\b(condense|shorten|brief|briefly)\b`),
		regexp.MustCompile(`\bgive me (a|the) (summary|overview)\b`),
	}},
	{IntentTranslate, []*regexp.Regexp{
		regexp.MustCompile(`\btranslate\b.*\b(to|into|in)\b`),
		regexp.MustCompile(`\b(spanish|french|german|hindi|chinese|japanese) translation\b`),
		regexp.MustCompile(`\bconvert.*to (spanish|french|german)\b`),
	}},
	{IntentAnalyze, []*regexp.Regexp{
		regexp.MustCompile(`\b(analyze|analysis|examine|evaluate|assess)\b`),
		regexp.MustCompile(`\b(what does this mean|interpret|review)\b`),
		regexp.MustCompile(`\b(compare|contrast|difference between)\b`),
	}},
	{IntentQuestionAnswer, []*regexp.Regexp{
		regexp.MustCompile(`^(what|who|when|where|why|how|which)\b`),
		regexp.MustCompile(`\b(can you tell me|do you know|is it true that)\b`),
		regexp.MustCompile(`\?$`),
	}},
	{IntentCodeGeneration, []*regexp.Regexp{
		regexp.MustCompile(`\b(write|create|generate) .* (code|function|class|script|program)\b`),
		regexp.MustCompile(`\b(implement|build|develop) .* (in|using) (python|java|javascript|react)\b`),
		regexp.MustCompile(`\bhow to code\b`),
	}},
	{IntentCodeExplanation, []*regexp.Regexp{
		regexp.MustCompile(`\bexplain (this|the) code\b`),
		regexp.MustCompile(`\bwhat does this code do\b`),
		regexp.MustCompile(`\bhow does this .* work\b.*\bcode\b`),
	}},
	{IntentCreativeWriting, []*regexp.Regexp{
		regexp.MustCompile(`\b(write|create) .* (story|poem|song|lyrics)\b`),
		regexp.MustCompile(`\b(creative|fiction|narrative|tale)\b`),
		regexp.MustCompile(`\bonce upon a time\b`),
	}},
	{IntentDataExtraction, []*regexp.Regexp{
		regexp.MustCompile(`\b(extract|find|get|retrieve|pull out)\b.*\b(data|information|details)\b`),
		regexp.MustCompile(`\b(list all|show me all|give me all)\b`),
		regexp.MustCompile(`\bwhat are the (names|dates|numbers|values)\b`),
	}},
	{IntentComparison, []*regexp.Regexp{
		regexp.MustCompile(`\b(compare|comparison|versus|vs|difference between)\b`),
		regexp.MustCompile(`\b(better|worse|pros and cons|advantages|disadvantages)\b`),
		regexp.MustCompile(`\bwhich is (better|best|faster|cheaper)\b`),
	}},
	{IntentClassification, []*regexp.Regexp{
		regexp.MustCompile(`\b(classify|categorize|label|tag|identify type)\b`),
		regexp.MustCompile(`\bwhat (type|kind|category) (is|are)\b`),
		regexp.MustCompile(`\bis this .* (positive|negative|neutral)\b`),
	}},
}

var promptWhitespace = regexp.MustCompile(`\s+`)

// ExtractIntent scores every intent against the lowercased prompt and
// returns the best one. Scores: one pattern hit 0.6, two 0.8, three 0.9.
func ExtractIntent(prompt string) Intent {
	if strings.TrimSpace(prompt) == "" {
		return UnknownIntent()
	}

	normalized := strings.TrimSpace(promptWhitespace.ReplaceAllString(strings.ToLower(prompt), " "))

	best := UnknownIntent()
	for _, ip := range intentPatterns {
		score := scoreIntent(normalized, ip.patterns)
		if score > best.Confidence {
			best = Intent{Type: ip.kind, Confidence: score}
		}
	}
	return best
}

func scoreIntent(normalized string, patterns []*regexp.Regexp) float64 {
	hits := 0
	for _, p := range patterns {
		if p.MatchString(normalized) {
			hits++
		}
	}
	switch {
	case hits == 0:
		return 0
	case hits == 1:
		return 0.6
	case hits == 2:
		return 0.8
	default:
		return 0.9
	}
}
