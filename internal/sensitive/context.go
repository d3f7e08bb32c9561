package sensitive

import (
	"sync"
	"time"

	"github.com/google/uuid"
)

// Detection records one redaction for the audit trail. It carries the
// token and the original's length and position, never the original value.
type Detection struct {
	Kind           string
	Token          string
	OriginalLength int
	DetectedAt     time.Time
	Start          int
	End            int
}

// Context holds the token mappings for a single request. It is created by
// the pipeline, passed explicitly to every stage that needs it, and dropped
// when the request ends, taking the originals with it.
type Context struct {
	RequestID string
	CreatedAt time.Time

	mu         sync.Mutex
	tokens     map[string]string // token -> original value
	detections []Detection
	seq        int
}

// NewContext creates an empty per-request context.
func NewContext() *Context {
	return &Context{
		RequestID: uuid.NewString(),
		CreatedAt: time.Now().UTC(),
		tokens:    make(map[string]string),
	}
}

// AddMapping records token -> original and appends the audit detection.
func (c *Context) AddMapping(token, original, kind string, start, end int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokens[token] = original
	c.detections = append(c.detections, Detection{
		Kind:           kind,
		Token:          token,
		OriginalLength: len(original),
		DetectedAt:     time.Now().UTC(),
		Start:          start,
		End:            end,
	})
}

// Original returns the value a token stands for.
func (c *Context) Original(token string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	v, ok := c.tokens[token]
	return v, ok
}

// HasToken reports whether the token was issued in this request.
func (c *Context) HasToken(token string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	_, ok := c.tokens[token]
	return ok
}

// Detections returns a snapshot of the recorded detections.
func (c *Context) Detections() []Detection {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]Detection, len(c.detections))
	copy(out, c.detections)
	return out
}

// HasDetections reports whether anything was redacted.
func (c *Context) HasDetections() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.detections) > 0
}

// CountsByKind aggregates detections per kind name.
func (c *Context) CountsByKind() map[string]int {
	c.mu.Lock()
	defer c.mu.Unlock()
	counts := make(map[string]int, len(c.detections))
	for _, d := range c.detections {
		counts[d.Kind]++
	}
	return counts
}

// RedactionCount returns how many values were tokenized.
func (c *Context) RedactionCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tokens)
}

// NextSequence returns 1, 2, 3... for sequential token IDs.
func (c *Context) NextSequence() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.seq++
	return c.seq
}
