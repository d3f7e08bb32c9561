package sensitive

import (
	"regexp"
	"strings"

	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// Registry holds the enabled kinds for a deployment. It is built once at
// startup; scan order is fixed so detection stays deterministic.
type Registry struct {
	kinds []Kind
}

// NewRegistry assembles built-in kinds (honoring per-kind config toggles)
// plus any custom patterns. A custom pattern that fails to compile is
// skipped with a warning; it never fails startup or a request.
func NewRegistry(cfg config.DetectionConfig) *Registry {
	var kinds []Kind
	for _, k := range Builtins() {
		enabled := k.DefaultEnabled
		if v, ok := cfg.Patterns[k.Name]; ok {
			enabled = v
		}
		if enabled {
			kinds = append(kinds, k)
		}
	}

	for _, cp := range cfg.CustomPatterns {
		if !cp.IsEnabled() {
			continue
		}
		re, err := regexp.Compile(cp.Regex)
		if err != nil {
			log.Warn().Err(err).Str("pattern", cp.Name).Msg("Custom pattern rejected")
			continue
		}
		region := cp.Region
		if region == "" {
			region = "Custom"
		}
		kinds = append(kinds, Kind{
			Name:           normalizeKindName(cp.Name),
			Pattern:        re,
			Region:         region,
			DefaultEnabled: true,
		})
	}

	names := make([]string, len(kinds))
	for i, k := range kinds {
		names[i] = k.Name
	}
	log.Info().Strs("kinds", names).Msg("Sensitive-value registry ready")

	return &Registry{kinds: kinds}
}

// Kinds returns the enabled kinds in scan order.
func (r *Registry) Kinds() []Kind {
	return r.kinds
}

// Lookup returns the kind with the given name.
func (r *Registry) Lookup(name string) (Kind, bool) {
	for _, k := range r.kinds {
		if k.Name == name {
			return k, true
		}
	}
	return Kind{}, false
}

// normalizeKindName maps a custom pattern name onto the token alphabet.
// Token IDs are hex, so kind names must stay within [A-Z_] for the restore
// scan to find them.
func normalizeKindName(name string) string {
	up := strings.ToUpper(strings.TrimSpace(name))
	var b strings.Builder
	for _, r := range up {
		if r >= 'A' && r <= 'Z' {
			b.WriteRune(r)
		} else {
			b.WriteRune('_')
		}
	}
	if b.Len() == 0 {
		return "CUSTOM"
	}
	return b.String()
}
