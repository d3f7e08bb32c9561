package provider

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand"
	"net"
	"net/http"
	"strings"
	"time"

	backoff "github.com/cenkalti/backoff/v4"
	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/llmguardian/gateway/internal/config"
	"github.com/llmguardian/gateway/internal/routing"
)

// supportedModels is the set the API accepts, which is wider than the
// set the router picks from.
var supportedModels = map[string]struct{}{
	"gpt-4o":        {},
	"gpt-4o-mini":   {},
	"gpt-3.5-turbo": {},
	"gpt-4-turbo":   {},
	"gpt-4":         {},
}

// OpenAI calls the chat completions API with retry, per-attempt
// timeouts, and optional request-rate limiting.
type OpenAI struct {
	apiKey     string
	baseURL    string
	timeout    time.Duration
	maxRetries int
	retryDelay time.Duration
	registry   *routing.Registry
	limiter    *rate.Limiter
	client     *http.Client
	onRetry    func(err error, delay time.Duration)
}

// OpenAIOption configures the OpenAI client.
type OpenAIOption func(*OpenAI)

// WithHTTPClient replaces the transport, mainly for tests.
func WithHTTPClient(client *http.Client) OpenAIOption {
	return func(c *OpenAI) { c.client = client }
}

// WithRetryNotify observes every retry, e.g. to feed a counter.
func WithRetryNotify(fn func(err error, delay time.Duration)) OpenAIOption {
	return func(c *OpenAI) { c.onRetry = fn }
}

// NewOpenAI builds the client. The registry supplies per-model rates
// for cost estimation.
func NewOpenAI(cfg config.ProviderConfig, registry *routing.Registry, opts ...OpenAIOption) *OpenAI {
	baseURL := strings.TrimSuffix(cfg.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	timeout := time.Duration(cfg.TimeoutSeconds) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	retryDelay := time.Duration(cfg.RetryDelayMs) * time.Millisecond
	if retryDelay <= 0 {
		retryDelay = time.Second
	}
	maxRetries := cfg.MaxRetries
	if maxRetries < 0 {
		maxRetries = 0
	}

	c := &OpenAI{
		apiKey:     cfg.APIKey,
		baseURL:    baseURL,
		timeout:    timeout,
		maxRetries: maxRetries,
		retryDelay: retryDelay,
		registry:   registry,
		client:     &http.Client{Timeout: timeout},
	}
	if cfg.MaxRequestsPerMinute > 0 {
		c.limiter = rate.NewLimiter(rate.Limit(float64(cfg.MaxRequestsPerMinute)/60.0), cfg.MaxRequestsPerMinute)
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

func (c *OpenAI) Name() string { return "OpenAI" }

// Available reports whether an API key is configured.
func (c *OpenAI) Available(_ context.Context) bool { return c.apiKey != "" }

func (c *OpenAI) SupportsModel(modelID string) bool {
	_, ok := supportedModels[modelID]
	return ok
}

// Complete validates the request, then runs attempts under the retry
// policy. Non-retryable failures and exhausted retries surface the
// last classified error; a cancellation during a backoff sleep does
// the same.
func (c *OpenAI) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if verr := validateRequest(req, c.SupportsModel); verr != nil {
		return nil, verr
	}

	log.Debug().Str("model", req.ModelID).Int("maxTokens", req.MaxTokens).Msg("Calling OpenAI")

	var lastErr *Error
	op := func() (*Response, error) {
		resp, err := c.attempt(ctx, req)
		if err == nil {
			return resp, nil
		}
		var perr *Error
		if errors.As(err, &perr) {
			lastErr = perr
			if !perr.Retryable() {
				return nil, backoff.Permanent(err)
			}
		}
		return nil, err
	}
	policy := backoff.WithContext(backoff.WithMaxRetries(newRetryBackoff(c.retryDelay), uint64(c.maxRetries)), ctx)
	resp, err := backoff.RetryNotifyWithData(op, policy, func(err error, delay time.Duration) {
		log.Warn().Err(err).Dur("delay", delay).Str("model", req.ModelID).Msg("OpenAI call failed, retrying")
		if c.onRetry != nil {
			c.onRetry(err, delay)
		}
	})
	if err != nil {
		var perr *Error
		if !errors.As(err, &perr) && lastErr != nil {
			// The backoff sleep was interrupted; report the failure
			// that put us there rather than the context error.
			err = lastErr
		}
		log.Error().Err(err).Str("model", req.ModelID).Msg("OpenAI call failed")
		return nil, err
	}

	resp.LatencyMs = time.Since(start).Milliseconds()
	log.Info().Int("tokens", resp.TotalTokens()).Int64("latencyMs", resp.LatencyMs).Msg("OpenAI completion successful")
	return resp, nil
}

// ── Wire types ───────────────────────────────────────────────

type chatRequest struct {
	Model       string        `json:"model"`
	Messages    []chatMessage `json:"messages"`
	MaxTokens   int           `json:"max_tokens"`
	Temperature *float64      `json:"temperature,omitempty"`
	TopP        *float64      `json:"top_p,omitempty"`
	N           *int          `json:"n,omitempty"`
	Stop        []string      `json:"stop,omitempty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []chatChoice `json:"choices"`
	Usage   chatUsage    `json:"usage"`
}

type chatChoice struct {
	Message      chatMessage `json:"message"`
	FinishReason string      `json:"finish_reason"`
}

type chatUsage struct {
	PromptTokens     int `json:"prompt_tokens"`
	CompletionTokens int `json:"completion_tokens"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// ── Single attempt ───────────────────────────────────────────

func (c *OpenAI) attempt(ctx context.Context, req Request) (*Response, error) {
	if c.limiter != nil {
		if err := c.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}

	actx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	body, err := json.Marshal(chatRequest{
		Model:       req.ModelID,
		Messages:    []chatMessage{{Role: "user", Content: req.Prompt}},
		MaxTokens:   req.MaxTokens,
		Temperature: req.Temperature,
		TopP:        req.TopP,
		N:           req.N,
		Stop:        req.StopSequences,
	})
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "marshal request: " + err.Error(), Err: err}
	}

	httpReq, err := http.NewRequestWithContext(actx, http.MethodPost, c.baseURL+"/v1/chat/completions", bytes.NewReader(body))
	if err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "build request: " + err.Error(), Err: err}
	}
	httpReq.Header.Set("Content-Type", "application/json")
	httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(httpReq)
	if err != nil {
		if ctx.Err() != nil {
			return nil, ctx.Err()
		}
		var ne net.Error
		if (errors.As(err, &ne) && ne.Timeout()) || errors.Is(err, context.DeadlineExceeded) {
			return nil, timeoutError("request timed out after "+c.timeout.String(), err)
		}
		return nil, connectionError("request failed: "+err.Error(), err)
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, connectionError("read response: "+err.Error(), err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, errorFromStatus(resp.StatusCode, apiErrorMessage(respBody, resp.StatusCode))
	}

	var result chatResponse
	if err := json.Unmarshal(respBody, &result); err != nil {
		return nil, &Error{Kind: KindUnknown, Message: "unmarshal response: " + err.Error(), Err: err}
	}
	if len(result.Choices) == 0 {
		return nil, &Error{Kind: KindUnknown, StatusCode: resp.StatusCode, Message: "response contained no choices"}
	}

	choice := result.Choices[0]
	return &Response{
		Text:          choice.Message.Content,
		ModelID:       req.ModelID,
		InputTokens:   result.Usage.PromptTokens,
		OutputTokens:  result.Usage.CompletionTokens,
		Timestamp:     time.Now().UTC(),
		FinishReason:  choice.FinishReason,
		EstimatedCost: c.estimateCost(req.ModelID, result.Usage.PromptTokens, result.Usage.CompletionTokens),
	}, nil
}

// apiErrorMessage pulls the message out of an error body when the API
// sent one.
func apiErrorMessage(body []byte, status int) string {
	var e struct {
		Error *apiError `json:"error"`
	}
	if err := json.Unmarshal(body, &e); err == nil && e.Error != nil && e.Error.Message != "" {
		return "OpenAI API error: " + e.Error.Message
	}
	return fmt.Sprintf("OpenAI API returned status %d", status)
}

func (c *OpenAI) estimateCost(modelID string, inputTokens, outputTokens int) float64 {
	return registryCost(c.registry, modelID, inputTokens, outputTokens)
}

// registryCost prices a call from registry rates, falling back to the
// default model's rates for models the registry does not route.
func registryCost(registry *routing.Registry, modelID string, inputTokens, outputTokens int) float64 {
	if registry == nil {
		return 0
	}
	m, ok := registry.Lookup(modelID)
	if !ok {
		m = registry.DefaultModel()
	}
	return m.EstimateCost(inputTokens, outputTokens)
}

// ── Retry schedule ───────────────────────────────────────────

// retryBackoff sleeps base * 2^attempt plus uniform jitter in [0, base).
type retryBackoff struct {
	base    time.Duration
	attempt int
}

func newRetryBackoff(base time.Duration) *retryBackoff {
	if base <= 0 {
		base = time.Second
	}
	return &retryBackoff{base: base}
}

func (b *retryBackoff) NextBackOff() time.Duration {
	d := b.base*time.Duration(1<<b.attempt) + time.Duration(rand.Int63n(int64(b.base)))
	b.attempt++
	return d
}

func (b *retryBackoff) Reset() { b.attempt = 0 }
