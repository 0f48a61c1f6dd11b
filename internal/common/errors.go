package common

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net"
)

var (
	// Repository-level errors.
	ErrNotFound = errors.New("not found")

	// ErrUnavailable marks a request that never got a response: connection
	// refused, reset, DNS failure, timeout.
	ErrUnavailable = errors.New("server unavailable")

	// Kind sentinels, matched with errors.Is against an *Error.
	ErrNetwork = errors.New("network error")
	ErrAPI     = errors.New("api error")
	ErrUnknown = errors.New("unknown error")
)

// Kind is the class of a failure surfaced to callers of the sync layer.
type Kind int

const (
	KindUnknown Kind = iota
	KindNetwork
	KindAPI
)

func (k Kind) String() string {
	switch k {
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	default:
		return "unknown"
	}
}

func (k Kind) sentinel() error {
	switch k {
	case KindNetwork:
		return ErrNetwork
	case KindAPI:
		return ErrAPI
	default:
		return ErrUnknown
	}
}

// Error is the only error type public sync operations return.
// Code and Message are set for KindAPI only.
type Error struct {
	Kind    Kind
	Code    int
	Message string
	Err     error
}

func (e *Error) Error() string {
	switch {
	case e.Kind == KindAPI:
		return fmt.Sprintf("api error %d: %s", e.Code, e.Message)
	case e.Err != nil:
		return fmt.Sprintf("%s error: %v", e.Kind, e.Err)
	default:
		return e.Kind.String() + " error"
	}
}

// Unwrap exposes both the kind sentinel and the cause, so
// errors.Is(err, ErrNetwork) and errors.Is(err, context.Canceled) both work.
func (e *Error) Unwrap() []error {
	if e.Err == nil {
		return []error{e.Kind.sentinel()}
	}
	return []error{e.Kind.sentinel(), e.Err}
}

// Retryable reports whether re-invoking the same operation may succeed.
func (e *Error) Retryable() bool {
	return e.Kind == KindNetwork
}

func NetworkError(err error) *Error {
	return &Error{Kind: KindNetwork, Err: err}
}

func APIError(code int, message string) *Error {
	return &Error{Kind: KindAPI, Code: code, Message: message}
}

func UnknownError(err error) *Error {
	return &Error{Kind: KindUnknown, Err: err}
}

// statusError is implemented by transport errors carrying a response status.
type statusError interface {
	StatusCode() int
	StatusMessage() string
}

// From classifies err into exactly one Kind. An *Error anywhere in the chain
// is returned as is.
func From(err error) *Error {
	if err == nil {
		return nil
	}

	var e *Error
	if errors.As(err, &e) {
		return e
	}

	// Cancellation by the caller is not a transport failure, even when the
	// transport wrapped it.
	if errors.Is(err, context.Canceled) {
		return UnknownError(err)
	}

	var se statusError
	if errors.As(err, &se) {
		return APIError(se.StatusCode(), se.StatusMessage())
	}

	if isNetwork(err) {
		return NetworkError(err)
	}
	return UnknownError(err)
}

func isNetwork(err error) bool {
	if errors.Is(err, ErrUnavailable) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, io.ErrUnexpectedEOF) {
		return true
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		return true
	}

	// local media that cannot be read is an IO failure like a dropped socket
	var pathErr *fs.PathError
	return errors.As(err, &pathErr)
}
