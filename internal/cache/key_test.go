package cache_test

import (
	"strings"
	"testing"

	"github.com/llmguardian/gateway/internal/cache"
)

// ─── Key derivation ──────────────────────────────────────────────────────────

func TestKeyKnownValues(t *testing.T) {
	maker := cache.NewKeyMaker("")

	tests := []struct {
		prompt  string
		modelID string
		params  string
		want    string
	}{
		{"Hello, world", "gpt-4o-mini", "", "llm:3cLVx6x_md53"},
		{"Hello, world", "gpt-4o-mini", "maxTokens=256&temperature=0.50", "llm:6Iw_Blaf84Re"},
		{"Summarize this.", "gpt-4o", "", "llm:VQCv-_cgC1EF"},
	}
	for _, tt := range tests {
		if got := maker.Key(tt.prompt, tt.modelID, tt.params); got != tt.want {
			t.Errorf("Key(%q, %q, %q) = %q, want %q", tt.prompt, tt.modelID, tt.params, got, tt.want)
		}
	}
}

func TestKeyDeterministic(t *testing.T) {
	maker := cache.NewKeyMaker("")

	a := maker.Key("What is Go?", "gpt-4o-mini", "")
	b := maker.Key("What is Go?", "gpt-4o-mini", "")
	if a != b {
		t.Errorf("same inputs produced %q and %q", a, b)
	}
	if c := maker.Key("What is Rust?", "gpt-4o-mini", ""); c == a {
		t.Errorf("different prompts produced the same key %q", c)
	}
	if d := maker.Key("What is Go?", "gpt-4o", ""); d == a {
		t.Errorf("different models produced the same key %q", d)
	}
	if e := maker.Key("What is Go?", "gpt-4o-mini", "temperature=0.10"); e == a {
		t.Errorf("adding params did not change the key %q", e)
	}
}

func TestKeyCustomPrefix(t *testing.T) {
	maker := cache.NewKeyMaker("acme")

	key := maker.Key("Hello", "gpt-4o", "")
	if !strings.HasPrefix(key, "acme:") {
		t.Errorf("Key = %q, want prefix %q", key, "acme:")
	}
	if maker.Prefix() != "acme:" {
		t.Errorf("Prefix() = %q, want %q", maker.Prefix(), "acme:")
	}
}

// ─── Validation ──────────────────────────────────────────────────────────────

func TestIsValid(t *testing.T) {
	maker := cache.NewKeyMaker("")

	tests := []struct {
		key  string
		want bool
	}{
		{maker.Key("Hello", "gpt-4o-mini", ""), true},
		{"llm:3cLVx6x_md53", true},
		{"llm:short", false},
		{"llm:3cLVx6x_md53extra", false},
		{"other:3cLVx6x_md5", false},
		{"", false},
	}
	for _, tt := range tests {
		if got := maker.IsValid(tt.key); got != tt.want {
			t.Errorf("IsValid(%q) = %v, want %v", tt.key, got, tt.want)
		}
	}
}
