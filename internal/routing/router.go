package routing

import (
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
)

// Strategy names a model-selection policy.
type Strategy string

const (
	StrategyComplexityBased      Strategy = "COMPLEXITY_BASED"
	StrategyCostOptimized        Strategy = "COST_OPTIMIZED"
	StrategyPerformanceOptimized Strategy = "PERFORMANCE_OPTIMIZED"
	StrategyBalanced             Strategy = "BALANCED"
)

// ParseStrategy maps a request string to a strategy. Unknown values fall
// back to complexity-based routing.
func ParseStrategy(s string) Strategy {
	switch Strategy(strings.ToUpper(strings.TrimSpace(s))) {
	case StrategyCostOptimized:
		return StrategyCostOptimized
	case StrategyPerformanceOptimized:
		return StrategyPerformanceOptimized
	case StrategyBalanced:
		return StrategyBalanced
	default:
		return StrategyComplexityBased
	}
}

// Decision records which model a request was routed to and why.
type Decision struct {
	ModelID         string
	ModelName       string
	Reasoning       string
	CostPer1KTokens float64
	Strategy        Strategy
	Rule            string // set when a routing rule pinned the model
	Complexity      Score
	Elapsed         time.Duration
}

// CostEffective reports whether the chosen model costs under $0.001/1k.
func (d Decision) CostEffective() bool {
	return d.CostPer1KTokens < 0.001
}

// PremiumModel reports whether a top-tier model was chosen.
func (d Decision) PremiumModel() bool {
	return strings.Contains(d.ModelID, "gpt-4") && !strings.Contains(d.ModelID, "mini")
}

// Input carries everything the router may consult for one request.
// Model is an explicit override; it wins over rules and strategy when
// it names a registered, enabled profile and is ignored otherwise.
type Input struct {
	Model        string
	Complexity   Score
	Strategy     Strategy
	Intent       string
	PromptLength int
	PII          bool
}

// Router selects models. Configured rules run first; when none match,
// the strategy decides.
type Router struct {
	registry        *Registry
	rules           *RuleEngine
	defaultStrategy Strategy
}

// NewRouter builds a router over the registry. rules may be nil.
func NewRouter(registry *Registry, rules *RuleEngine) *Router {
	return &Router{
		registry:        registry,
		rules:           rules,
		defaultStrategy: StrategyComplexityBased,
	}
}

// SetDefaultStrategy changes the strategy used when requests don't name one.
func (r *Router) SetDefaultStrategy(s Strategy) {
	r.defaultStrategy = s
}

// DefaultStrategy returns the current default.
func (r *Router) DefaultStrategy() Strategy {
	return r.defaultStrategy
}

// Route picks a model using the default strategy.
func (r *Router) Route(complexity Score) Decision {
	return r.Decide(Input{Complexity: complexity, Strategy: r.defaultStrategy})
}

// RouteWithStrategy picks a model using an explicit strategy.
func (r *Router) RouteWithStrategy(complexity Score, strategy Strategy) Decision {
	return r.Decide(Input{Complexity: complexity, Strategy: strategy})
}

// Decide evaluates the explicit override, then routing rules, then the
// strategy, and returns the decision. A rule naming an unregistered
// model is ignored.
func (r *Router) Decide(in Input) Decision {
	started := time.Now()

	strategy := in.Strategy
	if strategy == "" {
		strategy = r.defaultStrategy
	}

	if in.Model != "" {
		if model, ok := r.registry.Lookup(in.Model); ok && model.Enabled {
			return Decision{
				ModelID:         model.ID,
				ModelName:       model.DisplayName,
				Reasoning:       fmt.Sprintf("Model %s requested explicitly", model.DisplayName),
				CostPer1KTokens: model.CostPer1KInput,
				Strategy:        strategy,
				Complexity:      in.Complexity,
				Elapsed:         time.Since(started),
			}
		}
		log.Warn().Str("model", in.Model).Msg("Requested model unavailable, falling back to routing")
	}

	if model, rule, ok := r.matchRule(in); ok {
		return Decision{
			ModelID:         model.ID,
			ModelName:       model.DisplayName,
			Reasoning:       fmt.Sprintf("Routing rule %q matched → selected %s", rule, model.DisplayName),
			CostPer1KTokens: model.CostPer1KInput,
			Strategy:        strategy,
			Rule:            rule,
			Complexity:      in.Complexity,
			Elapsed:         time.Since(started),
		}
	}

	selected := r.selectModel(in.Complexity, strategy)

	return Decision{
		ModelID:         selected.ID,
		ModelName:       selected.DisplayName,
		Reasoning:       r.describeChoice(in.Complexity, strategy, selected),
		CostPer1KTokens: selected.CostPer1KInput,
		Strategy:        strategy,
		Complexity:      in.Complexity,
		Elapsed:         time.Since(started),
	}
}

func (r *Router) matchRule(in Input) (Model, string, bool) {
	if r.rules.Len() == 0 {
		return Model{}, "", false
	}
	env := RuleEnv{
		Score:        in.Complexity.Value,
		Level:        string(in.Complexity.Level),
		Intent:       in.Intent,
		PromptLength: in.PromptLength,
		PII:          in.PII,
	}
	id, name, ok := r.rules.Evaluate(env)
	if !ok {
		return Model{}, "", false
	}
	model, registered := r.registry.Lookup(id)
	if !registered || !model.Enabled {
		return Model{}, "", false
	}
	return model, name, true
}

func (r *Router) selectModel(complexity Score, strategy Strategy) Model {
	switch strategy {
	case StrategyCostOptimized:
		return r.registry.CheapestModel()
	case StrategyPerformanceOptimized:
		return r.registry.MostCapableModel()
	case StrategyBalanced:
		return r.selectBalanced(complexity)
	default:
		return r.selectByComplexity(complexity)
	}
}

// selectByComplexity routes simple and medium prompts to the default
// cost-effective model and complex ones to the most capable one. The
// registry queries only ever return enabled models, so a disabled
// profile can never be selected.
func (r *Router) selectByComplexity(complexity Score) Model {
	if complexity.Level == LevelComplex {
		return r.registry.MostCapableModel()
	}
	return r.registry.DefaultModel()
}

// selectBalanced is more aggressive about cost: the premium model is
// reserved for scores of 75 and above.
func (r *Router) selectBalanced(complexity Score) Model {
	switch complexity.Level {
	case LevelSimple:
		return r.registry.CheapestModel()
	case LevelComplex:
		if complexity.Value >= 75 {
			return r.registry.MostCapableModel()
		}
	}
	return r.registry.DefaultModel()
}

func (r *Router) describeChoice(complexity Score, strategy Strategy, selected Model) string {
	switch strategy {
	case StrategyCostOptimized:
		return fmt.Sprintf("Cost optimization strategy → selected cheapest model: %s ($%.6f/1k)",
			selected.DisplayName, selected.CostPer1KInput)
	case StrategyPerformanceOptimized:
		return fmt.Sprintf("Performance optimization → selected most capable model: %s",
			selected.DisplayName)
	case StrategyBalanced:
		return fmt.Sprintf("Balanced strategy with score %d → selected %s",
			complexity.Value, selected.DisplayName)
	default:
		return fmt.Sprintf("Complexity score %d (%s) → selected %s for optimal cost/quality balance",
			complexity.Value, complexity.Level, selected.DisplayName)
	}
}

// EstimateCost prices a decision given token estimates.
func (r *Router) EstimateCost(d Decision, inputTokens, outputTokens int) (float64, error) {
	model, ok := r.registry.Lookup(d.ModelID)
	if !ok {
		return 0, fmt.Errorf("model not found: %s", d.ModelID)
	}
	return model.EstimateCost(inputTokens, outputTokens), nil
}

// ValidateDecision reports whether the chosen model is rated for the
// complexity that produced the decision.
func (r *Router) ValidateDecision(d Decision) bool {
	model, ok := r.registry.Lookup(d.ModelID)
	if !ok {
		return false
	}
	return model.CanHandle(d.Complexity.Level)
}
