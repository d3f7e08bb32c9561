package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the LLMGuardian gateway.
type Config struct {
	Port    int
	Version string

	PII          PIIConfig
	Cache        CacheConfig
	Optimization OptimizationConfig
	Provider     ProviderConfig
	Routing      RoutingConfig

	Redis     RedisConfig
	Database  DatabaseConfig
	Telemetry TelemetryConfig
}

// PIIConfig controls detection, redaction, and audit of sensitive values.
type PIIConfig struct {
	Detection DetectionConfig `yaml:"detection"`
	Redaction RedactionConfig `yaml:"redaction"`
	Audit     AuditConfig     `yaml:"audit"`
}

type DetectionConfig struct {
	Enabled bool `yaml:"enabled"`
	// Patterns toggles built-in kinds by name, e.g. EMAIL: false.
	Patterns       map[string]bool `yaml:"patterns"`
	CustomPatterns []CustomPattern `yaml:"customPatterns"`
}

// CustomPattern is a user-supplied detection pattern. Enabled defaults to
// true when the key is absent.
type CustomPattern struct {
	Name    string `yaml:"name"`
	Regex   string `yaml:"regex"`
	Region  string `yaml:"region"`
	Enabled *bool  `yaml:"enabled"`
}

func (p CustomPattern) IsEnabled() bool {
	return p.Enabled == nil || *p.Enabled
}

type RedactionConfig struct {
	// TokenGeneration is "random" or "sequential".
	TokenGeneration string `yaml:"tokenGeneration"`
	TokenLength     int    `yaml:"tokenLength"`
}

type AuditConfig struct {
	Enabled bool `yaml:"enabled"`
	// Level is one of none, minimal, standard, detailed.
	Level         string `yaml:"level"`
	RetentionDays int    `yaml:"retentionDays"`
	QueueSize     int    `yaml:"queueSize"`
	Workers       int    `yaml:"workers"`
}

// CacheConfig holds both cache tiers.
type CacheConfig struct {
	L1 L1Config `yaml:"l1"`
	L2 L2Config `yaml:"l2"`
}

type L1Config struct {
	MaxSize    int `yaml:"maxSize"`
	TTLMinutes int `yaml:"ttlMinutes"`
}

type L2Config struct {
	Enabled    bool   `yaml:"enabled"`
	TTLMinutes int    `yaml:"ttlMinutes"`
	KeyPrefix  string `yaml:"keyPrefix"`
}

// OptimizationConfig controls the prompt optimizer.
type OptimizationConfig struct {
	Enabled         bool            `yaml:"enabled"`
	MinPromptLength int             `yaml:"minPromptLength"`
	TargetReduction int             `yaml:"targetReduction"`
	Strategies      StrategyConfig  `yaml:"strategies"`
	Stopwords       StopwordsConfig `yaml:"stopwords"`
}

type StrategyConfig struct {
	RemoveRedundancy       bool `yaml:"removeRedundancy"`
	CompressWhitespace     bool `yaml:"compressWhitespace"`
	SimplifyLanguage       bool `yaml:"simplifyLanguage"`
	PreserveTechnicalTerms bool `yaml:"preserveTechnicalTerms"`
	RemoveFillerWords      bool `yaml:"removeFillerWords"`
}

type StopwordsConfig struct {
	Enabled     bool     `yaml:"enabled"`
	CustomWords []string `yaml:"customWords"`
}

// ProviderConfig holds the OpenAI-compatible provider settings.
type ProviderConfig struct {
	APIKey               string `yaml:"apiKey"`
	BaseURL              string `yaml:"baseUrl"`
	TimeoutSeconds       int    `yaml:"timeoutSeconds"`
	MaxRetries           int    `yaml:"maxRetries"`
	RetryDelayMs         int    `yaml:"retryDelayMs"`
	DefaultModel         string `yaml:"defaultModel"`
	MaxRequestsPerMinute int    `yaml:"maxRequestsPerMinute"`
}

// RoutingConfig carries optional conditional routing rules. Rules are only
// loadable from the YAML config file.
type RoutingConfig struct {
	Rules []RoutingRule `yaml:"rules"`
}

// RoutingRule routes to Model when the When expression evaluates true.
type RoutingRule struct {
	Name  string `yaml:"name"`
	When  string `yaml:"when"`
	Model string `yaml:"model"`
}

type RedisConfig struct {
	Addr     string `yaml:"addr"`
	Password string `yaml:"password"`
	DB       int    `yaml:"db"`
}

type DatabaseConfig struct {
	URL            string `yaml:"url"`
	MaxConnections int    `yaml:"maxConnections"`
}

type TelemetryConfig struct {
	Enabled      bool   `yaml:"enabled"`
	OTLPEndpoint string `yaml:"otlpEndpoint"`
	ServiceName  string `yaml:"serviceName"`
}

// Load reads configuration from environment variables with sensible defaults.
// When LLMGUARDIAN_CONFIG_FILE names a YAML file, the file is applied first
// and environment variables override it.
func Load() *Config {
	cfg := defaults()
	if path := os.Getenv("LLMGUARDIAN_CONFIG_FILE"); path != "" {
		if err := fromYAML(cfg, path); err != nil {
			log.Warn().Err(err).Str("path", path).Msg("Config file not loaded")
		}
	}
	overlayEnv(cfg)
	normalize(cfg)
	return cfg
}

func defaults() *Config {
	return &Config{
		Port:    8080,
		Version: "1.0.0",
		PII: PIIConfig{
			Detection: DetectionConfig{Enabled: true, Patterns: map[string]bool{}},
			Redaction: RedactionConfig{TokenGeneration: "random", TokenLength: 6},
			Audit: AuditConfig{
				Enabled:       true,
				Level:         "standard",
				RetentionDays: 90,
				QueueSize:     1024,
				Workers:       2,
			},
		},
		Cache: CacheConfig{
			L1: L1Config{MaxSize: 1000, TTLMinutes: 60},
			L2: L2Config{Enabled: false, TTLMinutes: 1440, KeyPrefix: "llm:"},
		},
		Optimization: OptimizationConfig{
			Enabled:         true,
			MinPromptLength: 50,
			TargetReduction: 30,
			Strategies: StrategyConfig{
				RemoveRedundancy:       true,
				CompressWhitespace:     true,
				SimplifyLanguage:       true,
				PreserveTechnicalTerms: true,
				RemoveFillerWords:      true,
			},
			Stopwords: StopwordsConfig{Enabled: true},
		},
		Provider: ProviderConfig{
			BaseURL:        "https://api.openai.com",
			TimeoutSeconds: 30,
			MaxRetries:     3,
			RetryDelayMs:   1000,
			DefaultModel:   "gpt-4o-mini",
		},
		Redis: RedisConfig{Addr: "localhost:6379"},
		Database: DatabaseConfig{
			MaxConnections: 10,
		},
		Telemetry: TelemetryConfig{
			Enabled:      true,
			OTLPEndpoint: "localhost:4317",
			ServiceName:  "llmguardian",
		},
	}
}

// overlayEnv applies environment variables on top of cfg. The current value
// is the fallback, so file-provided settings survive unset variables.
func overlayEnv(cfg *Config) {
	cfg.Port = envInt("LLMGUARDIAN_PORT", cfg.Port)
	cfg.Version = envStr("LLMGUARDIAN_VERSION", cfg.Version)

	d := &cfg.PII.Detection
	d.Enabled = envBool("LLMGUARDIAN_PII_DETECTION_ENABLED", d.Enabled)
	for _, kv := range os.Environ() {
		name, val, ok := strings.Cut(kv, "=")
		if !ok || !strings.HasPrefix(name, "LLMGUARDIAN_PII_PATTERNS_") {
			continue
		}
		kind := strings.TrimPrefix(name, "LLMGUARDIAN_PII_PATTERNS_")
		if b, err := strconv.ParseBool(val); err == nil && kind != "" {
			if d.Patterns == nil {
				d.Patterns = map[string]bool{}
			}
			d.Patterns[kind] = b
		}
	}

	r := &cfg.PII.Redaction
	r.TokenGeneration = envStr("LLMGUARDIAN_PII_TOKEN_GENERATION", r.TokenGeneration)
	r.TokenLength = envInt("LLMGUARDIAN_PII_TOKEN_LENGTH", r.TokenLength)

	a := &cfg.PII.Audit
	a.Enabled = envBool("LLMGUARDIAN_PII_AUDIT_ENABLED", a.Enabled)
	a.Level = envStr("LLMGUARDIAN_PII_AUDIT_LEVEL", a.Level)
	a.RetentionDays = envInt("LLMGUARDIAN_PII_AUDIT_RETENTION_DAYS", a.RetentionDays)
	a.QueueSize = envInt("LLMGUARDIAN_PII_AUDIT_QUEUE_SIZE", a.QueueSize)
	a.Workers = envInt("LLMGUARDIAN_PII_AUDIT_WORKERS", a.Workers)

	cfg.Cache.L1.MaxSize = envInt("LLMGUARDIAN_CACHE_L1_MAX_SIZE", cfg.Cache.L1.MaxSize)
	cfg.Cache.L1.TTLMinutes = envInt("LLMGUARDIAN_CACHE_L1_TTL_MINUTES", cfg.Cache.L1.TTLMinutes)
	cfg.Cache.L2.Enabled = envBool("LLMGUARDIAN_CACHE_L2_ENABLED", cfg.Cache.L2.Enabled)
	cfg.Cache.L2.TTLMinutes = envInt("LLMGUARDIAN_CACHE_L2_TTL_MINUTES", cfg.Cache.L2.TTLMinutes)
	cfg.Cache.L2.KeyPrefix = envStr("LLMGUARDIAN_CACHE_L2_KEY_PREFIX", cfg.Cache.L2.KeyPrefix)

	o := &cfg.Optimization
	o.Enabled = envBool("LLMGUARDIAN_OPT_ENABLED", o.Enabled)
	o.MinPromptLength = envInt("LLMGUARDIAN_OPT_MIN_PROMPT_LENGTH", o.MinPromptLength)
	o.TargetReduction = envInt("LLMGUARDIAN_OPT_TARGET_REDUCTION", o.TargetReduction)
	o.Strategies.RemoveRedundancy = envBool("LLMGUARDIAN_OPT_REMOVE_REDUNDANCY", o.Strategies.RemoveRedundancy)
	o.Strategies.CompressWhitespace = envBool("LLMGUARDIAN_OPT_COMPRESS_WHITESPACE", o.Strategies.CompressWhitespace)
	o.Strategies.SimplifyLanguage = envBool("LLMGUARDIAN_OPT_SIMPLIFY_LANGUAGE", o.Strategies.SimplifyLanguage)
	o.Strategies.PreserveTechnicalTerms = envBool("LLMGUARDIAN_OPT_PRESERVE_TECHNICAL_TERMS", o.Strategies.PreserveTechnicalTerms)
	o.Strategies.RemoveFillerWords = envBool("LLMGUARDIAN_OPT_REMOVE_FILLER_WORDS", o.Strategies.RemoveFillerWords)
	o.Stopwords.Enabled = envBool("LLMGUARDIAN_OPT_STOPWORDS_ENABLED", o.Stopwords.Enabled)
	if v := os.Getenv("LLMGUARDIAN_OPT_STOPWORDS_CUSTOM"); v != "" {
		o.Stopwords.CustomWords = splitCSV(v)
	}

	p := &cfg.Provider
	p.APIKey = envStr("LLMGUARDIAN_OPENAI_API_KEY", envStr("OPENAI_API_KEY", p.APIKey))
	p.BaseURL = envStr("LLMGUARDIAN_OPENAI_BASE_URL", p.BaseURL)
	p.TimeoutSeconds = envInt("LLMGUARDIAN_OPENAI_TIMEOUT_SECONDS", p.TimeoutSeconds)
	p.MaxRetries = envInt("LLMGUARDIAN_OPENAI_MAX_RETRIES", p.MaxRetries)
	p.RetryDelayMs = envInt("LLMGUARDIAN_OPENAI_RETRY_DELAY_MS", p.RetryDelayMs)
	p.DefaultModel = envStr("LLMGUARDIAN_OPENAI_DEFAULT_MODEL", p.DefaultModel)
	p.MaxRequestsPerMinute = envInt("LLMGUARDIAN_OPENAI_MAX_RPM", p.MaxRequestsPerMinute)

	cfg.Redis.Addr = envStr("LLMGUARDIAN_REDIS_ADDR", cfg.Redis.Addr)
	cfg.Redis.Password = envStr("LLMGUARDIAN_REDIS_PASSWORD", cfg.Redis.Password)
	cfg.Redis.DB = envInt("LLMGUARDIAN_REDIS_DB", cfg.Redis.DB)

	cfg.Database.URL = envStr("LLMGUARDIAN_DATABASE_URL", cfg.Database.URL)
	cfg.Database.MaxConnections = envInt("LLMGUARDIAN_DATABASE_MAX_CONNECTIONS", cfg.Database.MaxConnections)

	cfg.Telemetry.Enabled = envBool("LLMGUARDIAN_OTEL_ENABLED", cfg.Telemetry.Enabled)
	cfg.Telemetry.OTLPEndpoint = envStr("OTEL_EXPORTER_OTLP_ENDPOINT", cfg.Telemetry.OTLPEndpoint)
	cfg.Telemetry.ServiceName = envStr("OTEL_SERVICE_NAME", cfg.Telemetry.ServiceName)
}

// normalize clamps out-of-range values back to their defaults.
func normalize(cfg *Config) {
	if cfg.PII.Redaction.TokenLength < 4 || cfg.PII.Redaction.TokenLength > 32 {
		cfg.PII.Redaction.TokenLength = 6
	}
	if tg := cfg.PII.Redaction.TokenGeneration; tg != "random" && tg != "sequential" {
		cfg.PII.Redaction.TokenGeneration = "random"
	}
	switch cfg.PII.Audit.Level {
	case "none", "minimal", "standard", "detailed":
	default:
		cfg.PII.Audit.Level = "standard"
	}
	if cfg.PII.Audit.RetentionDays <= 0 {
		cfg.PII.Audit.RetentionDays = 90
	}
	if cfg.PII.Audit.QueueSize <= 0 {
		cfg.PII.Audit.QueueSize = 1024
	}
	if cfg.PII.Audit.Workers <= 0 {
		cfg.PII.Audit.Workers = 2
	}
	if cfg.Cache.L1.MaxSize <= 0 {
		cfg.Cache.L1.MaxSize = 1000
	}
	if cfg.Cache.L1.TTLMinutes <= 0 {
		cfg.Cache.L1.TTLMinutes = 60
	}
	if cfg.Cache.L2.TTLMinutes <= 0 {
		cfg.Cache.L2.TTLMinutes = 1440
	}
	if cfg.Cache.L2.KeyPrefix == "" {
		cfg.Cache.L2.KeyPrefix = "llm:"
	}
	if cfg.Optimization.MinPromptLength < 0 {
		cfg.Optimization.MinPromptLength = 50
	}
	if cfg.Provider.TimeoutSeconds <= 0 {
		cfg.Provider.TimeoutSeconds = 30
	}
	if cfg.Provider.MaxRetries < 0 {
		cfg.Provider.MaxRetries = 3
	}
	if cfg.Provider.RetryDelayMs <= 0 {
		cfg.Provider.RetryDelayMs = 1000
	}
	if cfg.Provider.DefaultModel == "" {
		cfg.Provider.DefaultModel = "gpt-4o-mini"
	}
}

// fileConfig mirrors the YAML layout. Domain settings live under the
// llmguardian key; server-level settings sit at the root.
type fileConfig struct {
	Port        int `yaml:"port"`
	LLMGuardian struct {
		PII          PIIConfig          `yaml:"pii"`
		Cache        CacheConfig        `yaml:"cache"`
		Optimization OptimizationConfig `yaml:"optimization"`
		Provider     struct {
			OpenAI ProviderConfig `yaml:"openai"`
		} `yaml:"provider"`
		Routing RoutingConfig `yaml:"routing"`
	} `yaml:"llmguardian"`
	Redis     RedisConfig     `yaml:"redis"`
	Database  DatabaseConfig  `yaml:"database"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

func fromYAML(cfg *Config, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	var f fileConfig
	f.Port = cfg.Port
	f.LLMGuardian.PII = cfg.PII
	f.LLMGuardian.Cache = cfg.Cache
	f.LLMGuardian.Optimization = cfg.Optimization
	f.LLMGuardian.Provider.OpenAI = cfg.Provider
	f.LLMGuardian.Routing = cfg.Routing
	f.Redis = cfg.Redis
	f.Database = cfg.Database
	f.Telemetry = cfg.Telemetry
	if err := yaml.Unmarshal(data, &f); err != nil {
		return err
	}
	cfg.Port = f.Port
	cfg.PII = f.LLMGuardian.PII
	cfg.Cache = f.LLMGuardian.Cache
	cfg.Optimization = f.LLMGuardian.Optimization
	cfg.Provider = f.LLMGuardian.Provider.OpenAI
	cfg.Routing = f.LLMGuardian.Routing
	cfg.Redis = f.Redis
	cfg.Database = f.Database
	cfg.Telemetry = f.Telemetry
	return nil
}

func splitCSV(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			return i
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}
