// Package models defines the wire contracts for the gateway HTTP API.
// Optional request fields are pointers so that "absent" and "zero" stay
// distinguishable after JSON decoding.
package models

import (
	"fmt"
	"strings"
	"time"
)

// ── Completion Request ───────────────────────────────────────

// Bounds applied by CompletionRequest.Validate.
const (
	DefaultMaxTokens = 1000
	MinMaxTokens     = 1
	MaxMaxTokens     = 4096

	MinTemperature = 0.0
	MaxTemperature = 2.0

	MinTopP = 0.0
	MaxTopP = 1.0
)

// CompletionRequest is the body of POST /api/v1/completions. Only Query
// is required; everything else has a server-side default.
type CompletionRequest struct {
	Query              string   `json:"query"`
	MaxTokens          *int     `json:"maxTokens,omitempty"`
	Temperature        *float64 `json:"temperature,omitempty"`
	TopP               *float64 `json:"topP,omitempty"`
	Model              string   `json:"model,omitempty"`
	RoutingStrategy    string   `json:"routingStrategy,omitempty"`
	EnableOptimization *bool    `json:"enableOptimization,omitempty"`
	EnableCache        *bool    `json:"enableCache,omitempty"`
}

// Validate checks every constraint and returns the violations joined
// into a single message, or "" when the request is acceptable. All
// violations are reported at once so a client can fix them in one pass.
func (r *CompletionRequest) Validate() string {
	var violations []string
	if strings.TrimSpace(r.Query) == "" {
		violations = append(violations, "query: must not be blank")
	}
	if r.MaxTokens != nil && (*r.MaxTokens < MinMaxTokens || *r.MaxTokens > MaxMaxTokens) {
		violations = append(violations, fmt.Sprintf("maxTokens: must be between %d and %d", MinMaxTokens, MaxMaxTokens))
	}
	if r.Temperature != nil && (*r.Temperature < MinTemperature || *r.Temperature > MaxTemperature) {
		violations = append(violations, fmt.Sprintf("temperature: must be between %g and %g", MinTemperature, MaxTemperature))
	}
	if r.TopP != nil && (*r.TopP < MinTopP || *r.TopP > MaxTopP) {
		violations = append(violations, fmt.Sprintf("topP: must be between %g and %g", MinTopP, MaxTopP))
	}
	return strings.Join(violations, "; ")
}

// EffectiveMaxTokens returns the requested token budget, or the default
// when the field was absent.
func (r *CompletionRequest) EffectiveMaxTokens() int {
	if r.MaxTokens == nil {
		return DefaultMaxTokens
	}
	return *r.MaxTokens
}

// OptimizationEnabled reports whether the request wants prompt
// optimization. Absent means enabled.
func (r *CompletionRequest) OptimizationEnabled() bool {
	return r.EnableOptimization == nil || *r.EnableOptimization
}

// CacheEnabled reports whether the request may use the response cache.
// Absent means enabled.
func (r *CompletionRequest) CacheEnabled() bool {
	return r.EnableCache == nil || *r.EnableCache
}

// ── Completion Response ──────────────────────────────────────

// CompletionResponse is returned by the completions endpoint for both
// outcomes. Failures carry Error and ErrorType and omit Text and
// Metadata; the raw query never appears in either shape.
type CompletionResponse struct {
	RequestID string            `json:"requestId,omitempty"`
	Text      string            `json:"text,omitempty"`
	Success   bool              `json:"success"`
	Error     string            `json:"error,omitempty"`
	ErrorType string            `json:"errorType,omitempty"`
	Timestamp time.Time         `json:"timestamp"`
	Metadata  *ResponseMetadata `json:"metadata,omitempty"`
}

// ResponseMetadata describes how a successful completion was produced.
// Token counts and cost are omitted on cache hits, where no provider
// call happened.
type ResponseMetadata struct {
	ModelUsed           string  `json:"modelUsed,omitempty"`
	ComplexityLevel     string  `json:"complexityLevel,omitempty"`
	InputTokens         int     `json:"inputTokens,omitempty"`
	OutputTokens        int     `json:"outputTokens,omitempty"`
	TotalTokens         int     `json:"totalTokens,omitempty"`
	LatencyMs           int64   `json:"latencyMs"`
	FromCache           bool    `json:"fromCache"`
	OptimizationApplied bool    `json:"optimizationApplied"`
	TokensSaved         int     `json:"tokensSaved"`
	ReductionPercentage float64 `json:"reductionPercentage"`
	PIIDetected         bool    `json:"piiDetected"`
	PIICount            int     `json:"piiCount"`
	EstimatedCost       float64 `json:"estimatedCost,omitempty"`
}

// ── Health ───────────────────────────────────────────────────

// HealthResponse is the body of GET /api/v1/health.
type HealthResponse struct {
	Status  string `json:"status"`
	Service string `json:"service"`
	Version string `json:"version"`
}
