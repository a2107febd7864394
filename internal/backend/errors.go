package backend

import (
	"errors"
	"fmt"

	"github.com/raphaelaulasgranger/correcteurOrtho/internal/model"
)

// ErrorKind classifies a failed correction request.
type ErrorKind string

// Error kinds. MalformedResponse is never returned by the client: unreadable
// replies normalise to an empty result.
const (
	KindMissingCredential  ErrorKind = "MissingCredential"
	KindInvalidCredential  ErrorKind = "InvalidCredential"
	KindBackendNotFound    ErrorKind = "BackendNotFound"
	KindBackendWarmingUp   ErrorKind = "BackendWarmingUp"
	KindBackendError       ErrorKind = "BackendError"
	KindNetworkUnavailable ErrorKind = "NetworkUnavailable"
	KindMalformedResponse  ErrorKind = "MalformedResponse"
)

// Error is the typed failure of a correction request.
type Error struct {
	Kind       ErrorKind
	Backend    model.BackendID
	StatusCode int
	Err        error
}

func (e *Error) Error() string {
	var msg string
	switch e.Kind {
	case KindMissingCredential:
		msg = "access token required"
	case KindInvalidCredential:
		msg = "invalid access token"
	case KindBackendNotFound:
		msg = fmt.Sprintf("model %s not found", e.Backend)
	case KindBackendWarmingUp:
		msg = fmt.Sprintf("model %s is loading, retry later", e.Backend)
	case KindBackendError:
		msg = fmt.Sprintf("backend %s returned status %d", e.Backend, e.StatusCode)
	case KindNetworkUnavailable:
		msg = "network unavailable"
	default:
		msg = string(e.Kind)
	}
	if e.Err != nil {
		return msg + ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Transient reports whether the caller may retry after a delay.
func (e *Error) Transient() bool {
	return e.Kind == KindBackendWarmingUp
}

// KindOf returns the kind of the first *Error in err's chain, or "" if none.
func KindOf(err error) ErrorKind {
	var be *Error
	if errors.As(err, &be) {
		return be.Kind
	}
	return ""
}

func classifyStatus(backend model.BackendID, status int) *Error {
	switch status {
	case 401:
		return &Error{Kind: KindInvalidCredential, Backend: backend, StatusCode: status}
	case 404:
		return &Error{Kind: KindBackendNotFound, Backend: backend, StatusCode: status}
	case 503:
		return &Error{Kind: KindBackendWarmingUp, Backend: backend, StatusCode: status}
	default:
		return &Error{Kind: KindBackendError, Backend: backend, StatusCode: status}
	}
}
