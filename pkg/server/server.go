// Package server provides the public entry point for initializing the
// LLMGuardian gateway.
//
// This package exists in pkg/ (not internal/) so the gateway can be
// embedded: construct a Server, mount its Handler, and call
// ShutdownFunc on the way down.
//
// Usage:
//
//	srv, err := server.New(ctx)
//	http.ListenAndServe(":8080", srv.Handler)
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	redis "github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/api"
	"github.com/llmguardian/gateway/internal/api/handlers"
	"github.com/llmguardian/gateway/internal/api/middleware"
	"github.com/llmguardian/gateway/internal/audit"
	"github.com/llmguardian/gateway/internal/cache"
	"github.com/llmguardian/gateway/internal/config"
	"github.com/llmguardian/gateway/internal/metrics"
	"github.com/llmguardian/gateway/internal/optimize"
	"github.com/llmguardian/gateway/internal/pipeline"
	"github.com/llmguardian/gateway/internal/provider"
	"github.com/llmguardian/gateway/internal/routing"
	"github.com/llmguardian/gateway/internal/sensitive"
	"github.com/llmguardian/gateway/internal/telemetry"
)

// Config is the public configuration for the gateway server.
type Config struct {
	Port         int
	Version      string
	OTELEnabled  bool
	OTELEndpoint string
	ServiceName  string
}

// Server holds the initialized gateway.
type Server struct {
	// Handler is the HTTP handler with all routes and middleware.
	Handler http.Handler

	// Pipeline is the completion processor behind the API. Exposed so
	// the gateway can be embedded without its HTTP surface.
	Pipeline *pipeline.Processor

	// Config is the server configuration.
	Config *Config

	// Port is the port the server should listen on.
	Port int

	// ShutdownFunc should be called on graceful shutdown. It stops the
	// audit machinery and flushes telemetry.
	ShutdownFunc func(context.Context) error
}

// LoadConfig loads configuration from environment variables.
func LoadConfig() *Config {
	cfg := config.Load()
	return &Config{
		Port:         cfg.Port,
		Version:      cfg.Version,
		OTELEnabled:  cfg.Telemetry.Enabled,
		OTELEndpoint: cfg.Telemetry.OTLPEndpoint,
		ServiceName:  cfg.Telemetry.ServiceName,
	}
}

// New initializes all gateway components and returns a ready Server.
// This is the primary entry point for main.go.
func New(ctx context.Context) (*Server, error) {
	return NewWithConfig(ctx, LoadConfig())
}

// NewWithConfig initializes the gateway with an explicit configuration.
func NewWithConfig(ctx context.Context, pubCfg *Config) (*Server, error) {
	// Build internal config from public config
	cfg := config.Load()
	if pubCfg.Port > 0 {
		cfg.Port = pubCfg.Port
	}
	if pubCfg.Version != "" {
		cfg.Version = pubCfg.Version
	}

	// Initialize telemetry
	shutdownTelemetry, err := telemetry.Init(cfg.Telemetry, cfg.Version)
	if err != nil {
		return nil, fmt.Errorf("init telemetry: %w", err)
	}

	m := metrics.New()

	// Guard components
	detector := sensitive.NewDetector(cfg.PII.Detection)
	redactor := sensitive.NewRedactor(cfg.PII.Redaction)
	optimizer := optimize.NewOptimizer(cfg.Optimization)
	log.Info().Msg("✅ PII guard initialized")
	log.Info().Msg("✅ Prompt optimizer initialized")

	// Routing
	registry := routing.NewRegistry()
	var engine *routing.RuleEngine
	if len(cfg.Routing.Rules) > 0 {
		engine = routing.NewRuleEngine(cfg.Routing.Rules)
	}
	router := routing.NewRouter(registry, engine)
	log.Info().Int("rules", len(cfg.Routing.Rules)).Msg("✅ Model router initialized")

	// Cache: in-process tier always on, Redis tier when configured
	l1 := cache.NewLocal(cfg.Cache.L1.MaxSize, time.Duration(cfg.Cache.L1.TTLMinutes)*time.Minute)
	var remote cache.RemoteTier
	if cfg.Cache.L2.Enabled {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		remote = cache.NewRemote(client, cfg.Cache.L2)
		log.Info().Str("addr", cfg.Redis.Addr).Msg("✅ L2 cache (Redis) enabled")
	}
	cacheMgr := cache.NewManager(l1, remote, cache.NewKeyMaker(cfg.Cache.L2.KeyPrefix))
	log.Info().Int("l1MaxSize", cfg.Cache.L1.MaxSize).Msg("✅ Response cache initialized")

	// Provider: live OpenAI with an API key, simulated without one
	var llm provider.Client
	if cfg.Provider.APIKey != "" {
		llm = provider.NewOpenAI(cfg.Provider, registry)
	} else {
		llm = provider.NewSimulated(registry)
	}
	log.Info().Str("provider", llm.Name()).Msg("✅ LLM provider initialized")

	// Audit store: PostgreSQL when configured, in-memory otherwise
	var store audit.Store
	if cfg.Database.URL != "" {
		pg, err := audit.NewPostgresStore(ctx, cfg.Database.URL)
		if err != nil {
			return nil, fmt.Errorf("connect audit store: %w", err)
		}
		store = pg
		log.Info().Msg("✅ PostgreSQL audit store connected")
	} else {
		store = audit.NewMemoryStore()
		log.Info().Msg("✅ In-memory audit store initialized")
	}

	sink := audit.NewSink(store, cfg.PII.Audit)

	janitorCtx, stopJanitor := context.WithCancel(context.Background())
	janitor := audit.NewJanitor(store, cfg.PII.Audit.RetentionDays, audit.DefaultSweepInterval)
	go janitor.Start(janitorCtx)

	registerComponentMetrics(m, cacheMgr, sink)

	proc := pipeline.NewProcessor(pipeline.Deps{
		Detector:  detector,
		Redactor:  redactor,
		Optimizer: optimizer,
		Router:    router,
		Cache:     cacheMgr,
		Provider:  llm,
		Audit:     sink,
		Metrics:   m,
	})

	// Build handlers + API router
	h := handlers.New(proc, cacheMgr, store, registry, cfg.Version)
	auth := middleware.NewAPIKeyAuth()
	if auth.Enabled() {
		log.Info().Msg("✅ API key auth enabled")
	}
	handler := api.NewRouter(h, auth, m.Handler())

	shutdown := func(ctx context.Context) error {
		stopJanitor()
		sink.Close()
		if err := store.Close(); err != nil {
			log.Warn().Err(err).Msg("Audit store close failed")
		}
		return shutdownTelemetry(ctx)
	}

	return &Server{
		Handler:      handler,
		Pipeline:     proc,
		Config:       pubCfg,
		Port:         cfg.Port,
		ShutdownFunc: shutdown,
	}, nil
}

// registerComponentMetrics bridges components that keep their own
// atomic tallies into the Prometheus registry, read at scrape time.
func registerComponentMetrics(m *metrics.Metrics, c *cache.Manager, sink *audit.Sink) {
	for _, stats := range []*cache.Stats{c.L1Stats(), c.L2Stats()} {
		labels := prometheus.Labels{"tier": stats.Tier()}
		m.CounterFunc("cache_hits_total", "Cache hits by tier.", labels, stats.Hits)
		m.CounterFunc("cache_misses_total", "Cache misses by tier.", labels, stats.Misses)
		m.CounterFunc("cache_evictions_total", "Cache evictions by tier.", labels, stats.Evictions)
	}
	m.GaugeFunc("cache_entries", "Entries held by the in-process tier.",
		prometheus.Labels{"tier": "l1"}, c.L1Stats().Size)

	m.CounterFunc("audit_records_persisted_total", "Audit records written to the store.", nil, sink.Persisted)
	m.CounterFunc("audit_records_dropped_total", "Audit batches dropped because the queue was full.", nil, sink.Dropped)
	m.CounterFunc("audit_io_failures_total", "Audit store writes that failed.", nil, sink.IOFailures)
}
