// Package handlers implements the HTTP handlers for the gateway API:
// the completions endpoint, health, and the analytics surface over the
// cache, model registry, and audit store.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/audit"
	"github.com/llmguardian/gateway/internal/cache"
	"github.com/llmguardian/gateway/internal/pipeline"
	"github.com/llmguardian/gateway/internal/routing"
	"github.com/llmguardian/gateway/pkg/models"
)

// CompletionProcessor runs one request through the gateway pipeline.
// *pipeline.Processor implements it; tests substitute stubs.
type CompletionProcessor interface {
	Process(ctx context.Context, req pipeline.Request) *pipeline.Result
}

// Handlers holds all handler dependencies.
type Handlers struct {
	Processor CompletionProcessor
	Cache     *cache.Manager
	Audit     audit.Store
	Registry  *routing.Registry
	Version   string
}

// New creates a new Handlers instance with all dependencies.
func New(p CompletionProcessor, c *cache.Manager, a audit.Store, reg *routing.Registry, version string) *Handlers {
	return &Handlers{
		Processor: p,
		Cache:     c,
		Audit:     a,
		Registry:  reg,
		Version:   version,
	}
}

// ══════════════════════════════════════════════════════════════
// ── Completion Handlers ──────────────────────────────────────
// ══════════════════════════════════════════════════════════════

// Complete handles POST /api/v1/completions. Requests failing
// validation never reach the pipeline; everything else maps onto the
// pipeline result, with the HTTP status following the error type.
func (h *Handlers) Complete(w http.ResponseWriter, r *http.Request) {
	var req models.CompletionRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		respondJSON(w, http.StatusBadRequest, models.CompletionResponse{
			Success:   false,
			Error:     "Request body is not valid JSON",
			ErrorType: pipeline.ErrorTypeValidation,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	if msg := req.Validate(); msg != "" {
		log.Warn().Str("reason", msg).Msg("Completion request rejected")
		respondJSON(w, http.StatusBadRequest, models.CompletionResponse{
			Success:   false,
			Error:     msg,
			ErrorType: pipeline.ErrorTypeValidation,
			Timestamp: time.Now().UTC(),
		})
		return
	}

	result := h.Processor.Process(r.Context(), pipeline.Request{
		Query:              req.Query,
		MaxTokens:          req.EffectiveMaxTokens(),
		Temperature:        req.Temperature,
		TopP:               req.TopP,
		Model:              req.Model,
		RoutingStrategy:    req.RoutingStrategy,
		EnableOptimization: req.OptimizationEnabled(),
		EnableCache:        req.CacheEnabled(),
	})

	status := http.StatusOK
	if !result.Success {
		status = http.StatusInternalServerError
		if result.ErrorType == pipeline.ErrorTypeValidation {
			status = http.StatusBadRequest
		}
	}
	respondJSON(w, status, toCompletionResponse(result))
}

// toCompletionResponse maps a pipeline result onto the wire shape.
// Token counts and cost only exist when a provider was actually called;
// cache hits leave them out.
func toCompletionResponse(res *pipeline.Result) models.CompletionResponse {
	resp := models.CompletionResponse{
		RequestID: res.RequestID,
		Success:   res.Success,
		Timestamp: res.Timestamp,
	}
	if !res.Success {
		resp.Error = res.Error
		resp.ErrorType = res.ErrorType
		return resp
	}

	resp.Text = res.ResponseText
	md := &models.ResponseMetadata{
		ModelUsed:           res.Routing.ModelID,
		ComplexityLevel:     string(res.Complexity.Level),
		LatencyMs:           res.LatencyMs,
		FromCache:           res.FromCache,
		OptimizationApplied: res.Optimization.WasOptimized,
		TokensSaved:         res.Optimization.TokensSaved(),
		ReductionPercentage: res.Optimization.ReductionPercentage(),
		PIIDetected:         res.PIIDetected,
		PIICount:            res.PIICount,
	}
	if res.Provider != nil {
		md.InputTokens = res.Provider.InputTokens
		md.OutputTokens = res.Provider.OutputTokens
		md.TotalTokens = res.Provider.TotalTokens()
		md.EstimatedCost = res.EstimatedCost()
	}
	resp.Metadata = md
	return resp
}

// Health handles GET /api/v1/health.
func (h *Handlers) Health(w http.ResponseWriter, r *http.Request) {
	respondJSON(w, http.StatusOK, models.HealthResponse{
		Status:  "UP",
		Service: "llmguardian",
		Version: h.Version,
	})
}

// ══════════════════════════════════════════════════════════════
// ── Analytics Handlers ───────────────────────────────────────
// ══════════════════════════════════════════════════════════════

type cacheAnalytics struct {
	L1Hits         int64   `json:"l1Hits"`
	L1Misses       int64   `json:"l1Misses"`
	L1HitRate      float64 `json:"l1HitRate"`
	L1Size         int64   `json:"l1Size"`
	L2Hits         int64   `json:"l2Hits"`
	L2Misses       int64   `json:"l2Misses"`
	L2HitRate      float64 `json:"l2HitRate"`
	TotalHits      int64   `json:"totalHits"`
	TotalMisses    int64   `json:"totalMisses"`
	OverallHitRate float64 `json:"overallHitRate"`
}

// CacheAnalytics handles GET /api/v1/analytics/cache.
func (h *Handlers) CacheAnalytics(w http.ResponseWriter, r *http.Request) {
	combined := h.Cache.Combined()
	respondJSON(w, http.StatusOK, cacheAnalytics{
		L1Hits:         combined.L1.Hits,
		L1Misses:       combined.L1.Misses,
		L1HitRate:      combined.L1.HitRate,
		L1Size:         combined.L1.Size,
		L2Hits:         combined.L2.Hits,
		L2Misses:       combined.L2.Misses,
		L2HitRate:      combined.L2.HitRate,
		TotalHits:      combined.TotalHits,
		TotalMisses:    combined.TotalMisses,
		OverallHitRate: combined.OverallHitRate,
	})
}

// ClearCache handles POST /api/v1/analytics/cache/clear.
func (h *Handlers) ClearCache(w http.ResponseWriter, r *http.Request) {
	h.Cache.Clear(r.Context())
	respondJSON(w, http.StatusOK, map[string]string{
		"status":  "success",
		"message": "Cache cleared successfully",
	})
}

type piiAnalytics struct {
	TotalDetections  int64            `json:"totalDetections"`
	PeriodDays       int              `json:"periodDays"`
	DetectionsByType map[string]int64 `json:"detectionsByType"`
}

// PIIAnalytics handles GET /api/v1/analytics/pii. The days query
// parameter bounds the detection count window; the per-type breakdown
// is all-time.
func (h *Handlers) PIIAnalytics(w http.ResponseWriter, r *http.Request) {
	days := 30
	if v := r.URL.Query().Get("days"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			respondError(w, http.StatusBadRequest, "days must be a positive integer")
			return
		}
		days = n
	}

	since := time.Now().UTC().AddDate(0, 0, -days)
	total, err := h.Audit.CountSince(r.Context(), since)
	if err != nil {
		log.Error().Err(err).Msg("Audit count query failed")
		respondError(w, http.StatusInternalServerError, "audit store unavailable")
		return
	}
	byType, err := h.Audit.CountByKind(r.Context())
	if err != nil {
		log.Error().Err(err).Msg("Audit breakdown query failed")
		respondError(w, http.StatusInternalServerError, "audit store unavailable")
		return
	}
	if byType == nil {
		byType = map[string]int64{}
	}

	respondJSON(w, http.StatusOK, piiAnalytics{
		TotalDetections:  total,
		PeriodDays:       days,
		DetectionsByType: byType,
	})
}

type modelInfo struct {
	DisplayName string  `json:"displayName"`
	Provider    string  `json:"provider"`
	Capability  string  `json:"capability"`
	InputCost   float64 `json:"inputCost"`
	OutputCost  float64 `json:"outputCost"`
	MaxTokens   int     `json:"maxTokens"`
	Enabled     bool    `json:"enabled"`
}

type modelCatalog struct {
	TotalModels   int                  `json:"totalModels"`
	EnabledModels int                  `json:"enabledModels"`
	Models        map[string]modelInfo `json:"models"`
}

// ModelCatalog handles GET /api/v1/analytics/models.
func (h *Handlers) ModelCatalog(w http.ResponseWriter, r *http.Request) {
	all := h.Registry.Models()
	catalog := modelCatalog{
		TotalModels: len(all),
		Models:      make(map[string]modelInfo, len(all)),
	}
	for _, m := range all {
		if m.Enabled {
			catalog.EnabledModels++
		}
		catalog.Models[m.ID] = modelInfo{
			DisplayName: m.DisplayName,
			Provider:    m.Provider,
			Capability:  m.Capability.String(),
			InputCost:   m.CostPer1KInput,
			OutputCost:  m.CostPer1KOutput,
			MaxTokens:   m.MaxTokens,
			Enabled:     m.Enabled,
		}
	}
	respondJSON(w, http.StatusOK, catalog)
}

type analyticsSummary struct {
	Status             string  `json:"status"`
	Version            string  `json:"version"`
	CacheHitRate       float64 `json:"cacheHitRate"`
	TotalCacheHits     int64   `json:"totalCacheHits"`
	TotalPIIDetections int64   `json:"totalPIIDetections"`
	AvailableModels    int     `json:"availableModels"`
}

// Summary handles GET /api/v1/analytics/summary. PII totals cover the
// last 30 days; a failing audit store degrades them to zero rather than
// failing the whole summary.
func (h *Handlers) Summary(w http.ResponseWriter, r *http.Request) {
	combined := h.Cache.Combined()

	since := time.Now().UTC().AddDate(0, 0, -30)
	detections, err := h.Audit.CountSince(r.Context(), since)
	if err != nil {
		log.Warn().Err(err).Msg("Audit count unavailable for summary")
		detections = 0
	}

	respondJSON(w, http.StatusOK, analyticsSummary{
		Status:             "HEALTHY",
		Version:            h.Version,
		CacheHitRate:       combined.OverallHitRate,
		TotalCacheHits:     combined.TotalHits,
		TotalPIIDetections: detections,
		AvailableModels:    len(h.Registry.EnabledModels()),
	})
}

type analyticsHealth struct {
	Status     string            `json:"status"`
	Components map[string]string `json:"components"`
}

// AnalyticsHealth handles GET /api/v1/analytics/health. Each component
// is probed independently; one DOWN component degrades the overall
// status without hiding the others.
func (h *Handlers) AnalyticsHealth(w http.ResponseWriter, r *http.Request) {
	components := map[string]string{
		"cache":  upDown(h.Cache.Healthy(r.Context())),
		"models": upDown(len(h.Registry.EnabledModels()) > 0),
		"audit":  upDown(h.Audit.Ping(r.Context()) == nil),
	}

	status := "UP"
	for _, state := range components {
		if state != "UP" {
			status = "DEGRADED"
			break
		}
	}

	respondJSON(w, http.StatusOK, analyticsHealth{
		Status:     status,
		Components: components,
	})
}

func upDown(ok bool) string {
	if ok {
		return "UP"
	}
	return "DOWN"
}

// ── Helpers ──────────────────────────────────────────────────

func respondJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func respondError(w http.ResponseWriter, status int, message string) {
	respondJSON(w, status, map[string]string{"error": message})
}
