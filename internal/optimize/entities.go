package optimize

import (
	"regexp"
	"sort"
	"strings"
)

// EntityType labels a span of the prompt that carries meaning the
// optimizer must not destroy.
type EntityType string

const (
	EntityPerson       EntityType = "PERSON"
	EntityOrganization EntityType = "ORGANIZATION"
	EntityDate         EntityType = "DATE"
	EntityNumber       EntityType = "NUMBER"
	EntityAmount       EntityType = "AMOUNT"
	EntityTechnology   EntityType = "TECHNOLOGY"
	EntityRequirement  EntityType = "REQUIREMENT"
	EntityConstraint   EntityType = "CONSTRAINT"
	EntityConcept      EntityType = "CONCEPT"
)

// Entity is one extracted span.
type Entity struct {
	Type  EntityType
	Value string
	Start int
	End   int
}

var (
	personPattern = regexp.MustCompile(`\b([A-Z][a-z]+ [A-Z][a-z]+)\b`)
	orgPattern    = regexp.MustCompile(`\b([A-Z][A-Za-z]+(?: [A-Z][A-Za-z]+)*(?: Inc\.?| Corp\.?| Ltd\.?| LLC)?)\b`)
	datePattern   = regexp.MustCompile(`\b(\d{1,2}[/-]\d{1,2}[/-]\d{2,4}|[A-Z][a-z]+ \d{1,2},? \d{4}|\d{4}-\d{2}-\d{2})\b`)
	numberPattern = regexp.MustCompile(`\b\d+(?:,\d{3})*(?:\.\d+)?\b`)
	amountPattern = regexp.MustCompile(`\$\d+(?:,\d{3})*(?:\.\d{2})?|\d+(?:,\d{3})* (?:USD|EUR|GBP|INR)|Rs\.? ?\d+(?:,\d{3})*`)
	techPattern   = regexp.MustCompile(`(?i)\b(Python|Java|JavaScript|React|Angular|Node\.?js|Spring|Django|Flask|PostgreSQL|MongoDB|Redis|AWS|Azure|GCP|Docker|Kubernetes|Git|GitHub|API|REST|GraphQL|SQL|NoSQL|HTML|CSS|TypeScript|Machine Learning|AI|TensorFlow|PyTorch)\b`)

	requirementKeywords = regexp.MustCompile(`(?i)\b(must|required|need|necessary|should|have to|cannot|can't|must not)\b`)
	constraintKeywords  = regexp.MustCompile(`(?i)\b(within \d+|less than \d+|more than \d+|maximum|minimum|at least|at most|no more than)\b`)
)

// ExtractEntities pulls typed spans out of the prompt, then resolves
// overlaps in favor of the higher-priority type.
func ExtractEntities(prompt string) []Entity {
	if strings.TrimSpace(prompt) == "" {
		return nil
	}

	var found []Entity
	found = appendMatches(found, prompt, amountPattern, EntityAmount)
	found = appendMatches(found, prompt, datePattern, EntityDate)
	found = appendMatches(found, prompt, techPattern, EntityTechnology)
	found = appendMatches(found, prompt, personPattern, EntityPerson)
	found = appendMatches(found, prompt, orgPattern, EntityOrganization)
	found = appendMatches(found, prompt, numberPattern, EntityNumber)
	found = append(found, extractPhrases(prompt, requirementKeywords, EntityRequirement)...)
	found = append(found, extractPhrases(prompt, constraintKeywords, EntityConstraint)...)

	return dedupeEntities(found)
}

func appendMatches(dst []Entity, prompt string, p *regexp.Regexp, kind EntityType) []Entity {
	for _, loc := range p.FindAllStringIndex(prompt, -1) {
		e := Entity{Type: kind, Value: prompt[loc[0]:loc[1]], Start: loc[0], End: loc[1]}
		if includeEntity(e) {
			dst = append(dst, e)
		}
	}
	return dst
}

// includeEntity drops spans too generic to be worth keeping.
func includeEntity(e Entity) bool {
	switch e.Type {
	case EntityNumber:
		return len(e.Value) > 1
	case EntityPerson:
		lower := strings.ToLower(e.Value)
		return lower != "the" && lower != "and" && len(e.Value) > 3
	case EntityOrganization:
		return len(e.Value) > 2
	default:
		return true
	}
}

// extractPhrases finds keyword hits and widens each to the surrounding
// phrase: back to the previous sentence break, forward at most ten words
// or to the next break. The span is anchored at the keyword so phrase
// entities do not collide with spans earlier in the sentence.
func extractPhrases(prompt string, keywords *regexp.Regexp, kind EntityType) []Entity {
	var out []Entity
	for _, loc := range keywords.FindAllStringIndex(prompt, -1) {
		start, end := phraseBounds(prompt, loc[0], loc[1])
		value := strings.TrimSpace(prompt[start:end])
		if value == "" {
			continue
		}
		out = append(out, Entity{Type: kind, Value: value, Start: loc[0], End: loc[0] + len(value)})
	}
	return out
}

func phraseBounds(text string, keywordStart, keywordEnd int) (int, int) {
	start := keywordStart
	for start > 0 && !isPhraseBreak(text[start-1]) {
		start--
	}

	end := keywordEnd
	words := 0
	for end < len(text) && words < 10 {
		c := text[end]
		if isPhraseBreak(c) {
			break
		}
		if c == ' ' {
			words++
		}
		end++
	}
	return start, end
}

func isPhraseBreak(c byte) bool {
	return c == '.' || c == '!' || c == '?' || c == ';' || c == '\n'
}

// dedupeEntities sorts by position and resolves overlapping spans,
// keeping the higher-priority entity when two claim the same text.
func dedupeEntities(entities []Entity) []Entity {
	if len(entities) == 0 {
		return nil
	}

	sorted := make([]Entity, len(entities))
	copy(sorted, entities)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Start < sorted[j].Start
	})

	filtered := make([]Entity, 0, len(sorted))
	for _, e := range sorted {
		if len(filtered) == 0 {
			filtered = append(filtered, e)
			continue
		}
		last := filtered[len(filtered)-1]
		if e.Start >= last.End {
			filtered = append(filtered, e)
			continue
		}
		if entityPriority(e.Type) > entityPriority(last.Type) {
			filtered[len(filtered)-1] = e
		}
	}
	return filtered
}

func entityPriority(kind EntityType) int {
	switch kind {
	case EntityAmount:
		return 100
	case EntityTechnology:
		return 90
	case EntityPerson:
		return 80
	case EntityOrganization:
		return 70
	case EntityDate:
		return 60
	case EntityRequirement, EntityConstraint:
		return 50
	case EntityNumber:
		return 40
	case EntityConcept:
		return 30
	default:
		return 10
	}
}
