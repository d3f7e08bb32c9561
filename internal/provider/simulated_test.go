package provider_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/llmguardian/gateway/internal/provider"
	"github.com/llmguardian/gateway/internal/routing"
)

func newTestSimulated(t *testing.T) *provider.Simulated {
	t.Helper()
	return provider.NewSimulated(routing.NewRegistry())
}

func TestSimulatedDeterministic(t *testing.T) {
	p := newTestSimulated(t)
	req := provider.Request{ModelID: "gpt-4o-mini", Prompt: "Summarize the quarterly report.", MaxTokens: 256}

	first, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	second, err := p.Complete(context.Background(), req)
	if err != nil {
		t.Fatalf("second Complete() failed: %v", err)
	}

	if first.Text != second.Text {
		t.Errorf("repeat call produced different text:\n%q\n%q", first.Text, second.Text)
	}
	if !strings.Contains(first.Text, "gpt-4o-mini") {
		t.Errorf("Text = %q, want the model name embedded", first.Text)
	}
	if first.InputTokens == 0 || first.OutputTokens == 0 {
		t.Errorf("tokens = %d/%d, want nonzero", first.InputTokens, first.OutputTokens)
	}
	if !first.Complete() {
		t.Errorf("FinishReason = %q, want stop", first.FinishReason)
	}
	if first.EstimatedCost <= 0 {
		t.Errorf("EstimatedCost = %v, want > 0", first.EstimatedCost)
	}
}

func TestSimulatedValidation(t *testing.T) {
	p := newTestSimulated(t)

	tests := []struct {
		name string
		req  provider.Request
	}{
		{"empty prompt", provider.Request{ModelID: "gpt-4o-mini", Prompt: "", MaxTokens: 16}},
		{"zero maxTokens", provider.Request{ModelID: "gpt-4o-mini", Prompt: "hi", MaxTokens: 0}},
		{"unsupported model", provider.Request{ModelID: "llama-3-70b", Prompt: "hi", MaxTokens: 16}},
	}
	for _, tt := range tests {
		_, err := p.Complete(context.Background(), tt.req)
		var perr *provider.Error
		if !errors.As(err, &perr) || perr.Kind != provider.KindInvalidRequest {
			t.Errorf("%s: error = %v, want invalid-request", tt.name, err)
		}
	}
}

func TestSimulatedClipsToMaxTokens(t *testing.T) {
	p := newTestSimulated(t)

	resp, err := p.Complete(context.Background(), provider.Request{
		ModelID: "gpt-4o", Prompt: "Write a very long essay.", MaxTokens: 1,
	})
	if err != nil {
		t.Fatalf("Complete() failed: %v", err)
	}
	if resp.OutputTokens != 1 {
		t.Errorf("OutputTokens = %d, want clipped to 1", resp.OutputTokens)
	}
	if !resp.LengthLimited() {
		t.Errorf("FinishReason = %q, want length", resp.FinishReason)
	}
}

func TestSimulatedCancelledContext(t *testing.T) {
	p := newTestSimulated(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if _, err := p.Complete(ctx, provider.Request{ModelID: "gpt-4o-mini", Prompt: "hi", MaxTokens: 16}); !errors.Is(err, context.Canceled) {
		t.Errorf("error = %v, want context.Canceled", err)
	}
}

func TestSimulatedInfo(t *testing.T) {
	p := newTestSimulated(t)

	if p.Name() != "Simulated" {
		t.Errorf("Name() = %q", p.Name())
	}
	if !p.Available(context.Background()) {
		t.Error("Available = false")
	}
	if !p.SupportsModel("gpt-4") || p.SupportsModel("mistral-7b") {
		t.Error("SupportsModel set mismatch")
	}
}
