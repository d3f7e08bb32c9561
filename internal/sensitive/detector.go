// Package sensitive detects, tokenizes, and restores sensitive values
// (emails, card numbers, government IDs, API keys) in prompt text.
//
// Detection runs every enabled kind's regex over the text, validates each
// hit, and resolves overlaps so the match list is non-overlapping and
// position-sorted. Redaction substitutes reversible [KIND_TOKEN_id] tokens
// and keeps the originals only in a per-request Context, so nothing
// downstream of the redactor ever sees a raw value.
package sensitive

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// Match is one confirmed sensitive value: kind name plus the matched text
// and its byte span.
type Match struct {
	Kind  string
	Value string
	Start int
	End   int
}

// Result is the outcome of one detection pass.
type Result struct {
	Detected bool
	Matches  []Match
	Elapsed  time.Duration
}

// TotalMatches returns the number of confirmed matches.
func (r Result) TotalMatches() int {
	return len(r.Matches)
}

// HasKind reports whether any match has the given kind name.
func (r Result) HasKind(name string) bool {
	for _, m := range r.Matches {
		if m.Kind == name {
			return true
		}
	}
	return false
}

// Detector scans text with the registry's enabled kinds. It is stateless
// and safe for concurrent use.
type Detector struct {
	registry *Registry
	enabled  bool
}

// NewDetector builds a detector from the detection config.
func NewDetector(cfg config.DetectionConfig) *Detector {
	return &Detector{
		registry: NewRegistry(cfg),
		enabled:  cfg.Enabled,
	}
}

// Registry exposes the detector's kind registry.
func (d *Detector) Registry() *Registry {
	return d.registry
}

// Detect returns every validated, non-overlapping match in text. Blank
// text and disabled detection return an empty result.
func (d *Detector) Detect(text string) Result {
	start := time.Now()
	if !d.enabled || strings.TrimSpace(text) == "" {
		return Result{Elapsed: time.Since(start)}
	}

	var all []Match
	for _, k := range d.registry.Kinds() {
		all = append(all, scanKind(text, k)...)
	}
	matches := removeOverlaps(all)

	elapsed := time.Since(start)
	if len(matches) > 0 {
		log.Debug().
			Int("matches", len(matches)).
			Dur("elapsed", elapsed).
			Msg("Sensitive values detected")
	}

	return Result{
		Detected: len(matches) > 0,
		Matches:  matches,
		Elapsed:  elapsed,
	}
}

// scanKind collects validated matches for a single kind. A panicking
// validator loses only this kind's matches; the other kinds still run.
func scanKind(text string, k Kind) (matches []Match) {
	defer func() {
		if r := recover(); r != nil {
			log.Warn().
				Str("kind", k.Name).
				Str("reason", fmt.Sprint(r)).
				Msg("Kind scan aborted")
			matches = nil
		}
	}()

	for _, loc := range k.Pattern.FindAllStringIndex(text, -1) {
		value := text[loc[0]:loc[1]]
		if !k.valid(value) {
			continue
		}
		matches = append(matches, Match{
			Kind:  k.Name,
			Value: value,
			Start: loc[0],
			End:   loc[1],
		})
	}
	return matches
}

// removeOverlaps returns a non-overlapping subset of matches: sorted by
// start, longer span first on ties, then greedily accepted left to right.
func removeOverlaps(matches []Match) []Match {
	if len(matches) <= 1 {
		return matches
	}

	sorted := make([]Match, len(matches))
	copy(sorted, matches)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End-sorted[i].Start > sorted[j].End-sorted[j].Start
	})

	filtered := make([]Match, 0, len(sorted))
	lastEnd := 0
	for _, m := range sorted {
		if len(filtered) == 0 || m.Start >= lastEnd {
			filtered = append(filtered, m)
			lastEnd = m.End
		}
	}
	return filtered
}
