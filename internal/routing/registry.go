package routing

import (
	"sort"
	"sync"

	"github.com/rs/zerolog/log"
)

// Capability ranks what a model can handle.
type Capability int

const (
	CapabilityBasic    Capability = iota + 1 // simple tasks, Q&A
	CapabilityStandard                       // most general tasks
	CapabilityAdvanced                       // complex reasoning, coding, analysis
)

func (c Capability) String() string {
	switch c {
	case CapabilityBasic:
		return "BASIC"
	case CapabilityStandard:
		return "STANDARD"
	case CapabilityAdvanced:
		return "ADVANCED"
	default:
		return "UNKNOWN"
	}
}

// Model describes one routable model and its pricing.
type Model struct {
	ID              string
	DisplayName     string
	Provider        string
	CostPer1KInput  float64
	CostPer1KOutput float64
	MaxTokens       int
	Capability      Capability
	Enabled         bool
}

// EstimateCost prices a request in USD given token estimates.
func (m Model) EstimateCost(inputTokens, outputTokens int) float64 {
	return float64(inputTokens)/1000*m.CostPer1KInput + float64(outputTokens)/1000*m.CostPer1KOutput
}

// CanHandle reports whether the model is rated for the complexity level.
func (m Model) CanHandle(level Level) bool {
	switch m.Capability {
	case CapabilityBasic:
		return level == LevelSimple
	case CapabilityStandard:
		return level != LevelComplex
	case CapabilityAdvanced:
		return true
	default:
		return false
	}
}

// CostEffective reports whether input cost is under $0.001 per 1k tokens.
func (m Model) CostEffective() bool {
	return m.CostPer1KInput < 0.001
}

// Registry holds the routable models. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	models    map[string]Model
	defaultID string
}

// NewRegistry seeds the registry with the stock OpenAI models.
func NewRegistry() *Registry {
	r := &Registry{
		models:    make(map[string]Model),
		defaultID: "gpt-4o-mini",
	}
	r.Register(Model{
		ID:              "gpt-4o-mini",
		DisplayName:     "GPT-4o Mini",
		Provider:        "OpenAI",
		CostPer1KInput:  0.00015,
		CostPer1KOutput: 0.0006,
		MaxTokens:       128000,
		Capability:      CapabilityStandard,
		Enabled:         true,
	})
	r.Register(Model{
		ID:              "gpt-4o",
		DisplayName:     "GPT-4o",
		Provider:        "OpenAI",
		CostPer1KInput:  0.0025,
		CostPer1KOutput: 0.01,
		MaxTokens:       128000,
		Capability:      CapabilityAdvanced,
		Enabled:         true,
	})
	r.Register(Model{
		ID:              "gpt-3.5-turbo",
		DisplayName:     "GPT-3.5 Turbo",
		Provider:        "OpenAI",
		CostPer1KInput:  0.0005,
		CostPer1KOutput: 0.0015,
		MaxTokens:       16385,
		Capability:      CapabilityBasic,
		Enabled:         true,
	})

	log.Info().Int("models", r.Count()).Str("default", r.defaultID).Msg("Model registry ready")
	return r
}

// Register adds or replaces a model.
func (r *Registry) Register(m Model) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.models[m.ID] = m
}

// Unregister removes a model.
func (r *Registry) Unregister(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.models, id)
}

// Lookup returns the model with the given ID.
func (r *Registry) Lookup(id string) (Model, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	m, ok := r.models[id]
	return m, ok
}

// DefaultModel returns the fallback model. The registry seeds it at
// construction; if a caller unregistered or disabled it, any enabled
// model stands in.
func (r *Registry) DefaultModel() Model {
	if m, ok := r.Lookup(r.defaultID); ok && m.Enabled {
		return m
	}
	if enabled := r.EnabledModels(); len(enabled) > 0 {
		return enabled[0]
	}
	return Model{}
}

// Models returns every registered model, sorted by ID.
func (r *Registry) Models() []Model {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Model, 0, len(r.models))
	for _, m := range r.models {
		out = append(out, m)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out
}

// EnabledModels returns enabled models, sorted by ID.
func (r *Registry) EnabledModels() []Model {
	all := r.Models()
	out := all[:0]
	for _, m := range all {
		if m.Enabled {
			out = append(out, m)
		}
	}
	return out
}

// ModelsForComplexity returns enabled models rated for the level.
func (r *Registry) ModelsForComplexity(level Level) []Model {
	var out []Model
	for _, m := range r.EnabledModels() {
		if m.CanHandle(level) {
			out = append(out, m)
		}
	}
	return out
}

// CheapestModel returns the enabled model with the lowest input cost.
// Ties go to the lexicographically first ID.
func (r *Registry) CheapestModel() Model {
	best, ok := pickModel(r.EnabledModels(), func(a, b Model) bool {
		return a.CostPer1KInput < b.CostPer1KInput
	})
	if !ok {
		return r.DefaultModel()
	}
	return best
}

// MostCapableModel returns the enabled model with the highest capability.
func (r *Registry) MostCapableModel() Model {
	best, ok := pickModel(r.EnabledModels(), func(a, b Model) bool {
		return a.Capability > b.Capability
	})
	if !ok {
		return r.DefaultModel()
	}
	return best
}

// CheapestForComplexity returns the cheapest enabled model rated for the
// level, falling back to the default when none qualifies.
func (r *Registry) CheapestForComplexity(level Level) Model {
	best, ok := pickModel(r.ModelsForComplexity(level), func(a, b Model) bool {
		return a.CostPer1KInput < b.CostPer1KInput
	})
	if !ok {
		return r.DefaultModel()
	}
	return best
}

func pickModel(models []Model, better func(a, b Model) bool) (Model, bool) {
	if len(models) == 0 {
		return Model{}, false
	}
	best := models[0]
	for _, m := range models[1:] {
		if better(m, best) {
			best = m
		}
	}
	return best, true
}

// Has reports whether a model with the ID is registered.
func (r *Registry) Has(id string) bool {
	_, ok := r.Lookup(id)
	return ok
}

// IsEnabled reports whether the model exists and is enabled.
func (r *Registry) IsEnabled(id string) bool {
	m, ok := r.Lookup(id)
	return ok && m.Enabled
}

// Count returns the number of registered models.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.models)
}
