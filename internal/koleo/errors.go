package koleo

import (
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind classifies a non-success response from the timetable service.
type ErrorKind int

// Error kinds produced by Classify.
const (
	KindOther ErrorKind = iota
	KindNotFound
	KindUnauthorized
	KindForbidden
	KindRateLimited
)

func (k ErrorKind) String() string {
	switch k {
	case KindNotFound:
		return "not found"
	case KindUnauthorized:
		return "unauthorized"
	case KindForbidden:
		return "forbidden"
	case KindRateLimited:
		return "rate limited"
	default:
		return "api error"
	}
}

// Sentinels matched by errors.Is against an *APIError of the same kind.
var (
	ErrNotFound     = errors.New("not found")
	ErrUnauthorized = errors.New("unauthorized")
	ErrForbidden    = errors.New("forbidden")
	ErrRateLimited  = errors.New("rate limited")
)

// ErrAuthRequired is returned before any network call when an operation
// needs credentials and none are configured.
var ErrAuthRequired = errors.New("authentication required: set auth credentials in the config file or KOLEO_AUTH_* variables")

// Classify maps an HTTP status code to an ErrorKind.
func Classify(status int) ErrorKind {
	switch status {
	case http.StatusNotFound:
		return KindNotFound
	case http.StatusUnauthorized:
		return KindUnauthorized
	case http.StatusForbidden:
		return KindForbidden
	case http.StatusTooManyRequests:
		return KindRateLimited
	default:
		return KindOther
	}
}

// APIError is a non-success (or empty) response from the service.
type APIError struct {
	Kind       ErrorKind
	StatusCode int
	Method     string
	URL        string
	Header     http.Header
	Body       []byte
}

func newAPIError(req *Request, status int, header http.Header, body []byte) *APIError {
	return &APIError{
		Kind:       Classify(status),
		StatusCode: status,
		Method:     req.Method,
		URL:        req.URL,
		Header:     header,
		Body:       body,
	}
}

func (e *APIError) Error() string {
	if e.Kind == KindOther && len(e.Body) > 0 {
		return fmt.Sprintf("%s %s: status %d: %s", e.Method, e.URL, e.StatusCode, truncate(string(e.Body), maxErrorBody))
	}
	return fmt.Sprintf("%s %s: %s (status %d)", e.Method, e.URL, e.Kind, e.StatusCode)
}

// Is lets errors.Is match the kind sentinels.
func (e *APIError) Is(target error) bool {
	switch target {
	case ErrNotFound:
		return e.Kind == KindNotFound
	case ErrUnauthorized:
		return e.Kind == KindUnauthorized
	case ErrForbidden:
		return e.Kind == KindForbidden
	case ErrRateLimited:
		return e.Kind == KindRateLimited
	}
	return false
}

// TransportError is a connection-level failure that persisted through every retry.
type TransportError struct {
	Method   string
	URL      string
	Attempts int
	Err      error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("%s %s: failed after %d attempts: %v", e.Method, e.URL, e.Attempts, e.Err)
}

func (e *TransportError) Unwrap() error {
	return e.Err
}

const maxErrorBody = 200

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
