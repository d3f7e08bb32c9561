package provider

import (
	"context"
	"fmt"
	"time"

	"github.com/llmguardian/gateway/internal/optimize"
	"github.com/llmguardian/gateway/internal/routing"
)

// Simulated fabricates deterministic completions so the gateway can
// run without an API key. The same request always yields the same
// text, which keeps cache behavior observable end to end.
type Simulated struct {
	registry *routing.Registry
}

func NewSimulated(registry *routing.Registry) *Simulated {
	return &Simulated{registry: registry}
}

func (s *Simulated) Name() string { return "Simulated" }

func (s *Simulated) Available(_ context.Context) bool { return true }

func (s *Simulated) SupportsModel(modelID string) bool {
	_, ok := supportedModels[modelID]
	return ok
}

func (s *Simulated) Complete(ctx context.Context, req Request) (*Response, error) {
	start := time.Now()
	if verr := validateRequest(req, s.SupportsModel); verr != nil {
		return nil, verr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	inputTokens := optimize.EstimateTokens(req.Prompt)
	text := fmt.Sprintf(
		"Simulated %s completion for a %d-token prompt. Configure an API key to reach the real provider.",
		req.ModelID, inputTokens,
	)
	finishReason := "stop"
	outputTokens := optimize.EstimateTokens(text)
	if outputTokens > req.MaxTokens {
		outputTokens = req.MaxTokens
		finishReason = "length"
	}

	return &Response{
		Text:          text,
		ModelID:       req.ModelID,
		InputTokens:   inputTokens,
		OutputTokens:  outputTokens,
		LatencyMs:     time.Since(start).Milliseconds(),
		Timestamp:     time.Now().UTC(),
		FinishReason:  finishReason,
		EstimatedCost: registryCost(s.registry, req.ModelID, inputTokens, outputTokens),
	}, nil
}
