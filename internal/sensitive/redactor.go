package sensitive

import (
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"github.com/llmguardian/gateway/internal/config"
)

// tokenPattern recognizes issued tokens, e.g. [EMAIL_TOKEN_a7f3e2].
// Hex covers decimal, so it matches both random and sequential IDs.
var tokenPattern = regexp.MustCompile(`\[([A-Z_]+)_TOKEN_([a-f0-9]+)\]`)

// Redactor substitutes sensitive values with tokens and restores them.
// Mappings live in the per-request Context, never in the redactor.
type Redactor struct {
	sequential bool
	tokenLen   int
}

// NewRedactor builds a redactor from the redaction config.
func NewRedactor(cfg config.RedactionConfig) *Redactor {
	return &Redactor{
		sequential: cfg.TokenGeneration == "sequential",
		tokenLen:   cfg.TokenLength,
	}
}

// Redact replaces each match with a fresh token, recording the mapping in
// sctx. Replacement runs from the end of the text toward the start so
// earlier spans stay valid.
func (r *Redactor) Redact(sctx *Context, text string, matches []Match) string {
	if len(matches) == 0 {
		return text
	}

	ordered := make([]Match, len(matches))
	copy(ordered, matches)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].Start > ordered[j].Start
	})

	redacted := text
	for _, m := range ordered {
		token := r.newToken(sctx, m.Kind)
		sctx.AddMapping(token, m.Value, m.Kind, m.Start, m.End)
		redacted = redacted[:m.Start] + token + redacted[m.End:]
	}

	log.Debug().
		Int("redactions", len(ordered)).
		Str("request_id", sctx.RequestID).
		Msg("Prompt redacted")

	return redacted
}

// RedactKinds redacts only matches of the named kinds, leaving the rest of
// the text untouched.
func (r *Redactor) RedactKinds(sctx *Context, text string, matches []Match, kinds ...string) string {
	keep := make([]Match, 0, len(matches))
	for _, m := range matches {
		for _, k := range kinds {
			if m.Kind == k {
				keep = append(keep, m)
				break
			}
		}
	}
	return r.Redact(sctx, text, keep)
}

// Restore replaces every token known to sctx with its original value.
// Tokens the context has never issued (the model may invent some) are left
// verbatim.
func (r *Redactor) Restore(sctx *Context, text string) string {
	if text == "" {
		return text
	}
	restored := 0
	out := tokenPattern.ReplaceAllStringFunc(text, func(token string) string {
		if original, ok := sctx.Original(token); ok {
			restored++
			return original
		}
		return token
	})
	if restored > 0 {
		log.Debug().
			Int("restored", restored).
			Str("request_id", sctx.RequestID).
			Msg("Tokens restored")
	}
	return out
}

// newToken issues [KIND_TOKEN_id]. Random mode takes the leading hex of a
// fresh UUID; sequential mode uses the context counter. Random IDs are
// re-drawn on the rare collision so restore stays lossless.
func (r *Redactor) newToken(sctx *Context, kind string) string {
	for {
		var id string
		if r.sequential {
			id = fmt.Sprintf("%d", sctx.NextSequence())
		} else {
			hex := strings.ReplaceAll(uuid.NewString(), "-", "")
			id = hex[:r.tokenLen]
		}
		token := fmt.Sprintf("[%s_TOKEN_%s]", kind, id)
		if !sctx.HasToken(token) {
			return token
		}
	}
}

// ─── Masking ─────────────────────────────────────────────────

// Mask renders a human-readable masked form instead of a token, an
// alternative for surfaces that want partial visibility. The redaction
// pipeline never calls it; pipeline output is always tokenized.
func Mask(value, kind string) string {
	switch kind {
	case "EMAIL":
		return maskEmail(value)
	case "PHONE":
		return maskPhone(value)
	case "CREDIT_CARD":
		return maskCreditCard(value)
	default:
		return strings.Repeat("*", len(value))
	}
}

func maskEmail(email string) string {
	user, domain, ok := strings.Cut(email, "@")
	if !ok || user == "" || domain == "" {
		return "***@***.***"
	}
	dot := strings.LastIndex(domain, ".")
	if dot < 0 {
		return "***@***.***"
	}
	return user[:1] + "***@" + domain[:1] + "***" + domain[dot:]
}

func maskPhone(phone string) string {
	digits := digitsOnly(phone)
	if len(digits) < 4 {
		return "***-****"
	}
	return "***-" + digits[len(digits)-4:]
}

func maskCreditCard(card string) string {
	digits := digitsOnly(card)
	if len(digits) < 4 {
		return "****-****-****-****"
	}
	return "****-****-****-" + digits[len(digits)-4:]
}
