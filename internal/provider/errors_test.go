package provider_test

import (
	"strings"
	"testing"

	"github.com/llmguardian/gateway/internal/provider"
)

func TestErrorRetryable(t *testing.T) {
	tests := []struct {
		kind provider.ErrorKind
		want bool
	}{
		{provider.KindAuthentication, false},
		{provider.KindRateLimit, true},
		{provider.KindInvalidRequest, false},
		{provider.KindNotFound, false},
		{provider.KindServerError, true},
		{provider.KindServiceUnavailable, true},
		{provider.KindTimeout, true},
		{provider.KindConnection, true},
		{provider.KindUnknown, false},
	}
	for _, tt := range tests {
		e := &provider.Error{Kind: tt.kind, Message: "x"}
		if got := e.Retryable(); got != tt.want {
			t.Errorf("Retryable(%s) = %v, want %v", tt.kind, got, tt.want)
		}
	}
}

func TestErrorString(t *testing.T) {
	withStatus := &provider.Error{Kind: provider.KindRateLimit, StatusCode: 429, Message: "too many requests"}
	if s := withStatus.Error(); !strings.Contains(s, "429") || !strings.Contains(s, "rate-limit") {
		t.Errorf("Error() = %q, want status and kind included", s)
	}

	noStatus := &provider.Error{Kind: provider.KindTimeout, Message: "request timed out"}
	if s := noStatus.Error(); strings.Contains(s, "status") {
		t.Errorf("Error() = %q, want no status segment", s)
	}
}
