// Package provider calls the upstream LLM API. The OpenAI client is
// the real implementation; Simulated stands in when no API key is
// configured. Both only ever see prompts that already went through
// redaction.
package provider

import (
	"context"
	"strings"
	"time"
)

// Client is implemented by LLM backends.
type Client interface {
	// Complete generates a completion for the request. Errors are
	// *Error values carrying a kind and retryability.
	Complete(ctx context.Context, req Request) (*Response, error)

	// Available reports whether the backend can take requests.
	Available(ctx context.Context) bool

	// Name identifies the backend, e.g. "OpenAI".
	Name() string

	// SupportsModel reports whether the backend serves the model.
	SupportsModel(modelID string) bool
}

// Request carries one completion call. Optional sampling parameters
// are pointers so "unset" never reaches the wire.
type Request struct {
	ModelID       string
	Prompt        string
	MaxTokens     int
	Temperature   *float64
	TopP          *float64
	N             *int
	StopSequences []string
}

// Response is a completed generation with usage and cost attached.
type Response struct {
	Text          string
	ModelID       string
	InputTokens   int
	OutputTokens  int
	LatencyMs     int64
	Timestamp     time.Time
	FinishReason  string
	EstimatedCost float64
}

func (r *Response) TotalTokens() int { return r.InputTokens + r.OutputTokens }

// Complete reports whether generation stopped naturally.
func (r *Response) Complete() bool { return strings.EqualFold(r.FinishReason, "stop") }

// LengthLimited reports whether generation hit the token limit.
func (r *Response) LengthLimited() bool { return strings.EqualFold(r.FinishReason, "length") }

// Filtered reports whether the content filter stopped generation.
func (r *Response) Filtered() bool { return strings.EqualFold(r.FinishReason, "content_filter") }

// validateRequest applies the local checks shared by all backends.
func validateRequest(req Request, supports func(string) bool) *Error {
	if req.Prompt == "" {
		return invalidRequest("prompt cannot be empty")
	}
	if req.MaxTokens <= 0 {
		return invalidRequest("maxTokens must be positive")
	}
	if !supports(req.ModelID) {
		return invalidRequest("model not supported: " + req.ModelID)
	}
	return nil
}
