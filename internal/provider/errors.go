package provider

import "fmt"

// ErrorKind classifies a provider failure.
type ErrorKind string

const (
	KindAuthentication     ErrorKind = "authentication"
	KindRateLimit          ErrorKind = "rate-limit"
	KindInvalidRequest     ErrorKind = "invalid-request"
	KindNotFound           ErrorKind = "not-found"
	KindServerError        ErrorKind = "server-error"
	KindServiceUnavailable ErrorKind = "service-unavailable"
	KindTimeout            ErrorKind = "timeout"
	KindConnection         ErrorKind = "connection"
	KindUnknown            ErrorKind = "unknown"
)

// Error is a classified provider failure. StatusCode is 0 when the
// failure never produced an HTTP response.
type Error struct {
	Kind       ErrorKind
	StatusCode int
	Message    string
	Err        error
}

func (e *Error) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("provider: %s (%s, status %d)", e.Message, e.Kind, e.StatusCode)
	}
	return fmt.Sprintf("provider: %s (%s)", e.Message, e.Kind)
}

func (e *Error) Unwrap() error { return e.Err }

// Retryable reports whether another attempt could succeed.
func (e *Error) Retryable() bool {
	switch e.Kind {
	case KindRateLimit, KindServerError, KindServiceUnavailable, KindTimeout, KindConnection:
		return true
	}
	return false
}

func invalidRequest(message string) *Error {
	return &Error{Kind: KindInvalidRequest, StatusCode: 400, Message: message}
}

func timeoutError(message string, err error) *Error {
	return &Error{Kind: KindTimeout, Message: message, Err: err}
}

func connectionError(message string, err error) *Error {
	return &Error{Kind: KindConnection, Message: message, Err: err}
}

// errorFromStatus classifies an HTTP response code the way the OpenAI
// API uses them.
func errorFromStatus(status int, message string) *Error {
	var kind ErrorKind
	switch status {
	case 401, 403:
		kind = KindAuthentication
	case 429:
		kind = KindRateLimit
	case 400:
		kind = KindInvalidRequest
	case 404:
		kind = KindNotFound
	case 500, 502, 504:
		kind = KindServerError
	case 503:
		kind = KindServiceUnavailable
	default:
		kind = KindUnknown
	}
	return &Error{Kind: kind, StatusCode: status, Message: message}
}
