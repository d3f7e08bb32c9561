package sensitive

import (
	"regexp"
	"strconv"
	"strings"
)

// Kind classifies one class of sensitive value. The regex finds candidates;
// the validator rejects false positives the regex cannot express. Both must
// be pure functions of the input string.
type Kind struct {
	Name           string
	Pattern        *regexp.Regexp
	Region         string
	DefaultEnabled bool
	Validate       func(string) bool
}

// valid reports whether a candidate passes the kind's validator. Kinds
// without a validator accept every regex hit.
func (k Kind) valid(value string) bool {
	if k.Validate == nil {
		return true
	}
	return k.Validate(value)
}

// Builtins returns the built-in kinds in scan order. Geographic kinds ship
// disabled and are switched on per deployment region.
func Builtins() []Kind {
	return []Kind{
		{
			Name:           "EMAIL",
			Pattern:        regexp.MustCompile(`[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}`),
			Region:         "Universal",
			DefaultEnabled: true,
			Validate:       validateEmail,
		},
		{
			Name: "PHONE",
			// E.164: 7-15 digits, optional leading +
			Pattern:        regexp.MustCompile(`\+?[1-9]\d{1,14}`),
			Region:         "Universal",
			DefaultEnabled: true,
			Validate:       validatePhone,
		},
		{
			Name:           "CREDIT_CARD",
			Pattern:        regexp.MustCompile(`\b\d{4}[\s-]?\d{4}[\s-]?\d{4}[\s-]?\d{4}\b`),
			Region:         "Universal",
			DefaultEnabled: true,
			Validate:       validateCreditCard,
		},
		{
			Name:           "API_KEY",
			Pattern:        regexp.MustCompile(`\b(sk|pk|api)[-_]?[a-zA-Z0-9]{20,}\b`),
			Region:         "Universal",
			DefaultEnabled: true,
		},
		{
			Name:           "SSN",
			Pattern:        regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`),
			Region:         "United States",
			DefaultEnabled: false,
			Validate:       validateSSN,
		},
		{
			Name:           "AADHAAR",
			Pattern:        regexp.MustCompile(`\b\d{4}\s?\d{4}\s?\d{4}\b`),
			Region:         "India",
			DefaultEnabled: false,
			Validate:       validateAadhaar,
		},
		{
			Name:           "PAN",
			Pattern:        regexp.MustCompile(`\b[A-Z]{5}[0-9]{4}[A-Z]\b`),
			Region:         "India",
			DefaultEnabled: false,
		},
		{
			Name:           "NI",
			Pattern:        regexp.MustCompile(`\b[A-Z]{2}\d{6}[A-Z]\b`),
			Region:         "United Kingdom",
			DefaultEnabled: false,
		},
		{
			Name: "IP_ADDRESS",
			// IPv4 only; octet range is checked by the validator
			Pattern:        regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`),
			Region:         "Universal",
			DefaultEnabled: false,
			Validate:       validateIPAddress,
		},
	}
}

// ─── Validators ──────────────────────────────────────────────

func validateEmail(email string) bool {
	// Reject common test/fake addresses
	if strings.Contains(email, "test@") || strings.Contains(email, "fake@") {
		return false
	}
	dot := strings.LastIndex(email, ".")
	return dot >= 0 && len(email)-dot-1 >= 2
}

func validatePhone(phone string) bool {
	digits := digitsOnly(phone)
	if len(digits) < 7 || len(digits) > 15 {
		return false
	}
	// Uniform runs (1111111) and straight sequences (1234567) are almost
	// always order numbers or IDs, not phone numbers.
	if uniformDigits(digits) || sequentialDigits(digits) {
		return false
	}
	return true
}

// validateSSN applies the SSA issuance rules: area 000/666/9xx, group 00,
// and serial 0000 are never issued.
func validateSSN(ssn string) bool {
	digits := strings.ReplaceAll(ssn, "-", "")
	if len(digits) != 9 {
		return false
	}
	area, group, serial := digits[:3], digits[3:5], digits[5:]
	if area == "000" || area == "666" || area[0] == '9' {
		return false
	}
	if group == "00" || serial == "0000" {
		return false
	}
	return true
}

func validateCreditCard(card string) bool {
	digits := digitsOnly(card)
	if len(digits) < 13 || len(digits) > 19 {
		return false
	}
	return luhn(digits)
}

func validateAadhaar(aadhaar string) bool {
	digits := digitsOnly(aadhaar)
	if len(digits) != 12 {
		return false
	}
	return !uniformDigits(digits)
}

func validateIPAddress(ip string) bool {
	octets := strings.Split(ip, ".")
	if len(octets) != 4 {
		return false
	}
	for _, o := range octets {
		n, err := strconv.Atoi(o)
		if err != nil || n < 0 || n > 255 {
			return false
		}
	}
	return true
}

// ─── Digit helpers ───────────────────────────────────────────

func digitsOnly(s string) string {
	var b strings.Builder
	for _, r := range s {
		if r >= '0' && r <= '9' {
			b.WriteRune(r)
		}
	}
	return b.String()
}

func uniformDigits(digits string) bool {
	for i := 1; i < len(digits); i++ {
		if digits[i] != digits[0] {
			return false
		}
	}
	return len(digits) > 1
}

// sequentialDigits reports whether every adjacent pair differs by exactly
// one, ascending or descending (1234567, 9876543).
func sequentialDigits(digits string) bool {
	for i := 1; i < len(digits); i++ {
		d := int(digits[i]) - int(digits[i-1])
		if d != 1 && d != -1 {
			return false
		}
	}
	return len(digits) > 1
}

// luhn runs the Luhn checksum over a digit string.
func luhn(digits string) bool {
	sum := 0
	alternate := false
	for i := len(digits) - 1; i >= 0; i-- {
		n := int(digits[i] - '0')
		if alternate {
			n *= 2
			if n > 9 {
				n = n%10 + 1
			}
		}
		sum += n
		alternate = !alternate
	}
	return sum%10 == 0
}
