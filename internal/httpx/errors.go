package httpx

import (
	"errors"
	"fmt"
)

// ErrorKind classifies a failed HTTP exchange.
type ErrorKind int

const (
	// KindTimeout means the request deadline expired.
	KindTimeout ErrorKind = iota
	// KindTransport means the request never produced a response (DNS,
	// TLS, connection reset).
	KindTransport
	// KindStatus means a response arrived with a non-success status.
	KindStatus
	// KindDecode means the response body could not be parsed.
	KindDecode
)

// Error is the classified failure returned by the client. Callers pick
// which kinds to retry.
type Error struct {
	Kind   ErrorKind
	Status int // set for KindStatus
	URL    string
	Err    error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return fmt.Sprintf("request to %s timed out", e.URL)
	case KindStatus:
		return fmt.Sprintf("%s returned HTTP %d", e.URL, e.Status)
	case KindDecode:
		return fmt.Sprintf("failed to decode response from %s: %v", e.URL, e.Err)
	default:
		return fmt.Sprintf("request to %s failed: %v", e.URL, e.Err)
	}
}

func (e *Error) Unwrap() error { return e.Err }

// IsTimeout reports whether err is a classified timeout.
func IsTimeout(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Kind == KindTimeout
}

// IsTransport reports whether err is a classified transport failure.
func IsTransport(err error) bool {
	var he *Error
	return errors.As(err, &he) && he.Kind == KindTransport
}

// StatusCode returns the HTTP status carried by err, or 0.
func StatusCode(err error) int {
	var he *Error
	if errors.As(err, &he) && he.Kind == KindStatus {
		return he.Status
	}
	return 0
}
