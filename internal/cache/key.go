package cache

import (
	"crypto/sha256"
	"encoding/base64"
	"strings"
)

const (
	// DefaultKeyPrefix namespaces gateway entries in shared stores.
	DefaultKeyPrefix = "llm:"

	// hashLength keeps keys short; ~72 bits of hash is enough for a
	// TTL-bounded cache that is never the source of truth.
	hashLength = 12
)

// KeyMaker derives deterministic cache keys from request inputs.
type KeyMaker struct {
	prefix string
}

// NewKeyMaker returns a maker for the given prefix. An empty prefix
// falls back to DefaultKeyPrefix; a trailing ":" is appended if absent.
func NewKeyMaker(prefix string) KeyMaker {
	if prefix == "" {
		prefix = DefaultKeyPrefix
	}
	if !strings.HasSuffix(prefix, ":") {
		prefix += ":"
	}
	return KeyMaker{prefix: prefix}
}

// Key builds the lookup key for a prompt/model pair. params carries the
// canonical sampling-parameter string and may be empty.
func (k KeyMaker) Key(prompt, modelID, params string) string {
	material := prompt + "|" + modelID
	if params != "" {
		material += "|" + params
	}
	sum := sha256.Sum256([]byte(material))
	encoded := base64.RawURLEncoding.EncodeToString(sum[:])
	return k.prefix + encoded[:hashLength]
}

// IsValid reports whether key has this maker's prefix and hash length.
func (k KeyMaker) IsValid(key string) bool {
	return strings.HasPrefix(key, k.prefix) && len(key) == len(k.prefix)+hashLength
}

// Prefix returns the configured namespace, ":" included.
func (k KeyMaker) Prefix() string { return k.prefix }
