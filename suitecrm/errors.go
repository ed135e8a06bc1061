package suitecrm

import (
	"errors"
	"fmt"
)

// ErrorKind classifies failures of remote calls.
type ErrorKind int

const (
	// ErrTransport covers network level failures and timeouts.
	ErrTransport ErrorKind = iota + 1
	// ErrAuth covers 401 responses that survive a refresh attempt and
	// rejected logins at connect time.
	ErrAuth
	// ErrUpstream covers responses with status >= 400 other than 401.
	ErrUpstream
	// ErrDecode covers malformed JSON response bodies.
	ErrDecode
	// ErrConfig covers missing client id/secret/instance URL.
	ErrConfig
)

func (k ErrorKind) String() string {
	switch k {
	case ErrTransport:
		return "transport"
	case ErrAuth:
		return "auth"
	case ErrUpstream:
		return "upstream"
	case ErrDecode:
		return "decode"
	case ErrConfig:
		return "config"
	default:
		return "unknown"
	}
}

// APIError is the tagged error returned by every remote-call component.
type APIError struct {
	Kind    ErrorKind
	Status  int
	Message string
	Err     error
}

func (e *APIError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("suitecrm %s error (status %d): %s", e.Kind, e.Status, e.Message)
	}

	return fmt.Sprintf("suitecrm %s error: %s", e.Kind, e.Message)
}

func (e *APIError) Unwrap() error {
	return e.Err
}

func newAPIError(kind ErrorKind, status int, message string, err error) *APIError {
	return &APIError{Kind: kind, Status: status, Message: message, Err: err}
}

// ErrorKindOf returns the kind of err if it is an APIError, 0 otherwise.
func ErrorKindOf(err error) ErrorKind {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Kind
	}

	return 0
}

// IsAuthError reports whether err is an authentication failure.
func IsAuthError(err error) bool {
	return ErrorKindOf(err) == ErrAuth
}
