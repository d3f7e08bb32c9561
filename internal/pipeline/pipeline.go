// Package pipeline runs one completion request through the gateway
// stages in order: sensitive-value detection and redaction, prompt
// optimization, complexity scoring, model routing, cache lookup, the
// provider call, restoration of redacted values, and the asynchronous
// audit handoff. Cache trouble degrades to a miss and the audit
// handoff never blocks; only a provider failure fails the request.
package pipeline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"strings"
	"time"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"golang.org/x/sync/singleflight"

	"github.com/llmguardian/gateway/internal/audit"
	"github.com/llmguardian/gateway/internal/cache"
	"github.com/llmguardian/gateway/internal/metrics"
	"github.com/llmguardian/gateway/internal/optimize"
	"github.com/llmguardian/gateway/internal/provider"
	"github.com/llmguardian/gateway/internal/routing"
	"github.com/llmguardian/gateway/internal/sensitive"
)

var tracer = otel.Tracer("llmguardian-gateway")

// DefaultMaxTokens caps the completion when a request doesn't say.
const DefaultMaxTokens = 1000

// Error types reported to clients on failed requests.
const (
	ErrorTypeValidation = "VALIDATION_ERROR"
	ErrorTypeProvider   = "PROVIDER_ERROR"
	ErrorTypeInternal   = "INTERNAL_ERROR"
)

// Request is one completion request after transport-level validation.
// Temperature and TopP are pointers so "unset" stays distinguishable
// from zero all the way to the provider.
type Request struct {
	Query              string
	MaxTokens          int
	Temperature        *float64
	TopP               *float64
	Model              string
	RoutingStrategy    string
	EnableOptimization bool
	EnableCache        bool
}

// Result is everything the pipeline learned about one request. Failed
// requests still carry the request id so clients can correlate, but
// never the query text or any detected value.
type Result struct {
	RequestID    string
	ResponseText string
	Success      bool
	Error        string
	ErrorType    string
	Timestamp    time.Time

	PIIDetected  bool
	PIICount     int
	Optimization optimize.Result
	Complexity   routing.Score
	Routing      routing.Decision
	Provider     *provider.Response
	FromCache    bool
	LatencyMs    int64
}

// TotalTokens is the provider's token usage; zero for cache hits.
func (r *Result) TotalTokens() int {
	if r.Provider == nil {
		return 0
	}
	return r.Provider.TotalTokens()
}

// EstimatedCost is the provider's cost estimate rounded to six
// decimals; zero for cache hits.
func (r *Result) EstimatedCost() float64 {
	if r.Provider == nil {
		return 0
	}
	return math.Round(r.Provider.EstimatedCost*1e6) / 1e6
}

// Deps are the pipeline's collaborators, injected so tests can swap
// the provider and the audit store.
type Deps struct {
	Detector  *sensitive.Detector
	Redactor  *sensitive.Redactor
	Optimizer *optimize.Optimizer
	Router    *routing.Router
	Cache     *cache.Manager
	Provider  provider.Client
	Audit     *audit.Sink
	Metrics   *metrics.Metrics
}

// Processor executes the stages for one request per call and is safe
// for concurrent use. Concurrent identical requests share a single
// upstream call.
type Processor struct {
	deps  Deps
	group singleflight.Group
}

// NewProcessor wires the stages together. A nil Metrics gets a private
// registry so embedded use without scraping still works.
func NewProcessor(deps Deps) *Processor {
	if deps.Metrics == nil {
		deps.Metrics = metrics.New()
	}
	return &Processor{deps: deps}
}

// Process runs the request through every stage and always returns a
// result; failures are folded into it rather than returned separately.
func (p *Processor) Process(ctx context.Context, req Request) *Result {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline.process")
	defer span.End()

	sctx := sensitive.NewContext()
	res := &Result{RequestID: sctx.RequestID}

	log.Info().
		Str("requestId", res.RequestID).
		Int("queryLength", len(req.Query)).
		Msg("Processing completion request")

	if strings.TrimSpace(req.Query) == "" {
		return p.fail(res, started, ErrorTypeValidation, errors.New("query must not be empty"))
	}
	if req.MaxTokens <= 0 {
		req.MaxTokens = DefaultMaxTokens
	}

	// Detection sees the raw query; every stage after this sees only
	// the redacted form.
	detection := p.runDetect(ctx, req.Query)
	prompt := req.Query
	if detection.Detected {
		prompt = p.runRedact(ctx, sctx, req.Query, detection)
		res.PIIDetected = true
		res.PIICount = detection.TotalMatches()
	}

	res.Optimization = p.runOptimize(ctx, prompt, req.EnableOptimization)
	prompt = res.Optimization.OptimizedPrompt

	res.Complexity = p.runScore(ctx, prompt)
	res.Routing = p.runRoute(ctx, req, res, prompt)

	key := p.deps.Cache.Key(prompt, res.Routing.ModelID, cacheParams(req))

	text, hit := p.runCacheLookup(ctx, key, req.EnableCache)
	if hit {
		res.FromCache = true
	} else {
		resp, err := p.runProvider(ctx, key, prompt, req, res.Routing.ModelID)
		if err != nil {
			p.deps.Audit.Submit(sctx)
			return p.fail(res, started, classify(err), err)
		}
		res.Provider = resp
		text = resp.Text
	}

	if res.PIIDetected {
		text = p.runRestore(ctx, sctx, text)
	}

	p.deps.Audit.Submit(sctx)

	res.ResponseText = text
	res.Success = true
	res.Timestamp = time.Now().UTC()
	res.LatencyMs = time.Since(started).Milliseconds()
	p.deps.Metrics.Requests.WithLabelValues("success").Inc()

	span.SetAttributes(
		attribute.Bool("pipeline.cached", res.FromCache),
		attribute.String("pipeline.model", res.Routing.ModelID),
		attribute.Int("pipeline.detections", res.PIICount),
	)
	log.Info().
		Str("requestId", res.RequestID).
		Bool("cached", res.FromCache).
		Bool("pii", res.PIIDetected).
		Int("tokensSaved", res.Optimization.TokensSaved()).
		Str("complexity", string(res.Complexity.Level)).
		Str("model", res.Routing.ModelID).
		Int64("latencyMs", res.LatencyMs).
		Msg("Request processed")
	return res
}

// ── Stages ──────────────────────────────────────────────────────────────────

func (p *Processor) runDetect(ctx context.Context, query string) sensitive.Result {
	_, done := p.startStage(ctx, "detect")
	defer done()
	detection := p.deps.Detector.Detect(query)
	for _, m := range detection.Matches {
		p.deps.Metrics.Detections.WithLabelValues(m.Kind).Inc()
	}
	return detection
}

func (p *Processor) runRedact(ctx context.Context, sctx *sensitive.Context, query string, detection sensitive.Result) string {
	_, done := p.startStage(ctx, "redact")
	defer done()
	redacted := p.deps.Redactor.Redact(sctx, query, detection.Matches)
	log.Info().
		Str("requestId", sctx.RequestID).
		Int("detections", detection.TotalMatches()).
		Msg("Sensitive values redacted")
	return redacted
}

func (p *Processor) runOptimize(ctx context.Context, prompt string, enabled bool) optimize.Result {
	if !enabled {
		tokens := optimize.EstimateTokens(prompt)
		return optimize.Result{
			OriginalPrompt:  prompt,
			OptimizedPrompt: prompt,
			OriginalTokens:  tokens,
			OptimizedTokens: tokens,
			SkipReason:      "Disabled by request",
		}
	}
	_, done := p.startStage(ctx, "optimize")
	defer done()
	opt := p.deps.Optimizer.Optimize(prompt)
	if opt.WasOptimized {
		p.deps.Metrics.TokensSaved.Observe(float64(opt.TokensSaved()))
	}
	return opt
}

func (p *Processor) runScore(ctx context.Context, prompt string) routing.Score {
	_, done := p.startStage(ctx, "complexity")
	defer done()
	return routing.Analyze(prompt)
}

func (p *Processor) runRoute(ctx context.Context, req Request, res *Result, prompt string) routing.Decision {
	_, done := p.startStage(ctx, "route")
	defer done()

	var strategy routing.Strategy
	if req.RoutingStrategy != "" {
		strategy = routing.ParseStrategy(req.RoutingStrategy)
	}
	return p.deps.Router.Decide(routing.Input{
		Model:        req.Model,
		Complexity:   res.Complexity,
		Strategy:     strategy,
		Intent:       string(res.Optimization.Intent.Type),
		PromptLength: len(prompt),
		PII:          res.PIIDetected,
	})
}

func (p *Processor) runCacheLookup(ctx context.Context, key string, enabled bool) (string, bool) {
	if !enabled {
		return "", false
	}
	ctx, done := p.startStage(ctx, "cache_lookup")
	defer done()
	return p.deps.Cache.Get(ctx, key)
}

// runProvider calls the backend, coalescing concurrent identical
// requests onto a single upstream call. The executing call also writes
// the cache, so the store happens exactly once per flight. Coalesced
// callers still count as provider traffic, not cache hits.
func (p *Processor) runProvider(ctx context.Context, key, prompt string, req Request, modelID string) (*provider.Response, error) {
	ctx, done := p.startStage(ctx, "provider")
	defer done()

	v, err, shared := p.group.Do(key, func() (interface{}, error) {
		resp, err := p.deps.Provider.Complete(ctx, provider.Request{
			ModelID:     modelID,
			Prompt:      prompt,
			MaxTokens:   req.MaxTokens,
			Temperature: req.Temperature,
			TopP:        req.TopP,
		})
		if err != nil {
			return nil, err
		}
		if req.EnableCache {
			p.runCacheStore(ctx, key, resp.Text)
		}
		return resp, nil
	})
	if err != nil {
		p.countProviderError(err)
		return nil, err
	}
	if shared {
		log.Debug().Str("key", key).Msg("Coalesced onto in-flight provider call")
	}
	return v.(*provider.Response), nil
}

func (p *Processor) runCacheStore(ctx context.Context, key, text string) {
	ctx, done := p.startStage(ctx, "cache_store")
	defer done()
	// A canceled caller must not void a response that was already produced.
	p.deps.Cache.Put(context.WithoutCancel(ctx), key, text)
}

func (p *Processor) runRestore(ctx context.Context, sctx *sensitive.Context, text string) string {
	_, done := p.startStage(ctx, "restore")
	defer done()
	return p.deps.Redactor.Restore(sctx, text)
}

// ── Helpers ─────────────────────────────────────────────────────────────────

// startStage opens a child span for a stage and returns a closer that
// also records the stage duration.
func (p *Processor) startStage(ctx context.Context, name string) (context.Context, func()) {
	started := time.Now()
	ctx, span := tracer.Start(ctx, "pipeline."+name)
	return ctx, func() {
		span.End()
		p.deps.Metrics.ObserveStage(name, time.Since(started))
	}
}

// cacheParams renders the sampling parameters that must partition the
// cache. Defaults render empty so the common case keys only on prompt
// and model.
func cacheParams(req Request) string {
	parts := make([]string, 0, 3)
	if req.MaxTokens != DefaultMaxTokens {
		parts = append(parts, fmt.Sprintf("maxTokens=%d", req.MaxTokens))
	}
	if req.Temperature != nil {
		parts = append(parts, fmt.Sprintf("temperature=%.2f", *req.Temperature))
	}
	if req.TopP != nil {
		parts = append(parts, fmt.Sprintf("topP=%.2f", *req.TopP))
	}
	return strings.Join(parts, "&")
}

// classify maps an error to the client-facing error type.
func classify(err error) string {
	var perr *provider.Error
	if errors.As(err, &perr) {
		return ErrorTypeProvider
	}
	return ErrorTypeInternal
}

func (p *Processor) countProviderError(err error) {
	kind := "internal"
	var perr *provider.Error
	if errors.As(err, &perr) {
		kind = string(perr.Kind)
	}
	p.deps.Metrics.ProviderErrors.WithLabelValues(kind).Inc()
}

// fail finalizes res as a failure.
func (p *Processor) fail(res *Result, started time.Time, errorType string, err error) *Result {
	res.Success = false
	res.Error = err.Error()
	res.ErrorType = errorType
	res.Timestamp = time.Now().UTC()
	res.LatencyMs = time.Since(started).Milliseconds()
	p.deps.Metrics.Requests.WithLabelValues("error").Inc()
	log.Error().
		Err(err).
		Str("requestId", res.RequestID).
		Str("errorType", errorType).
		Msg("Completion request failed")
	return res
}
