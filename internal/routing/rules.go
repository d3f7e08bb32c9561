package routing

import (
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// RuleEnv is the evaluation environment a routing rule expression sees.
//
// Example rules:
//
//	score >= 80 && pii
//	intent == "CODE_GENERATION" && prompt_length > 500
type RuleEnv struct {
	Score        int    `expr:"score"`
	Level        string `expr:"level"`
	Intent       string `expr:"intent"`
	PromptLength int    `expr:"prompt_length"`
	PII          bool   `expr:"pii"`
}

type compiledRule struct {
	name    string
	model   string
	program *vm.Program
}

// RuleEngine evaluates configured routing rules in order. The first rule
// whose expression is true pins the request to that rule's model.
type RuleEngine struct {
	rules []compiledRule
}

// NewRuleEngine compiles the configured rules. A rule that fails to
// compile is skipped so one bad expression cannot take routing down.
func NewRuleEngine(rules []config.RoutingRule) *RuleEngine {
	e := &RuleEngine{}
	for _, r := range rules {
		if r.When == "" || r.Model == "" {
			log.Warn().Str("rule", r.Name).Msg("Routing rule missing condition or model, skipping")
			continue
		}
		program, err := expr.Compile(r.When, expr.Env(RuleEnv{}), expr.AsBool())
		if err != nil {
			log.Warn().Err(err).Str("rule", r.Name).Msg("Routing rule failed to compile, skipping")
			continue
		}
		e.rules = append(e.rules, compiledRule{name: r.Name, model: r.Model, program: program})
	}
	if len(e.rules) > 0 {
		log.Info().Int("rules", len(e.rules)).Msg("Routing rules compiled")
	}
	return e
}

// Len returns the number of active rules.
func (e *RuleEngine) Len() int {
	if e == nil {
		return 0
	}
	return len(e.rules)
}

// Evaluate runs the rules against env and returns the pinned model and
// rule name of the first match.
func (e *RuleEngine) Evaluate(env RuleEnv) (model, name string, ok bool) {
	if e == nil {
		return "", "", false
	}
	for _, r := range e.rules {
		out, err := expr.Run(r.program, env)
		if err != nil {
			log.Warn().Err(err).Str("rule", r.name).Msg("Routing rule evaluation failed")
			continue
		}
		if matched, _ := out.(bool); matched {
			return r.model, r.name, true
		}
	}
	return "", "", false
}
