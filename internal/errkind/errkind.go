// Package errkind classifies errors flowing through the pipeline so that
// registries and the task queue can decide between falling through,
// retrying, and giving up.
package errkind

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotApplicable signals that a component does not handle the given
// input and the next candidate in the registry should be tried.
var ErrNotApplicable = errors.New("not applicable")

// Kind buckets an error for retry decisions.
type Kind int

const (
	// KindPermanent covers malformed responses, 4xx statuses, missing
	// binaries and invalid requests. Retrying will not help.
	KindPermanent Kind = iota
	// KindTransient covers network timeouts, 5xx statuses and
	// subprocesses killed by a signal.
	KindTransient
	// KindCancelled covers context cancellation and deadline expiry.
	KindCancelled
)

type kindError struct {
	kind Kind
	err  error
}

func (e *kindError) Error() string { return e.err.Error() }
func (e *kindError) Unwrap() error { return e.err }

// Transient wraps err as retryable. A nil err returns nil.
func Transient(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: KindTransient, err: err}
}

// Transientf formats a retryable error.
func Transientf(format string, args ...any) error {
	return &kindError{kind: KindTransient, err: fmt.Errorf(format, args...)}
}

// Permanent wraps err as fatal. A nil err returns nil.
func Permanent(err error) error {
	if err == nil {
		return nil
	}
	return &kindError{kind: KindPermanent, err: err}
}

// Permanentf formats a fatal error.
func Permanentf(format string, args ...any) error {
	return &kindError{kind: KindPermanent, err: fmt.Errorf(format, args...)}
}

// Of reports the kind of err. An explicit classification wins even when
// the chain carries a context sentinel: a per-request timeout surfaces
// as DeadlineExceeded but is wrapped Transient and must stay retryable.
// The sentinels only classify errors nothing has wrapped; anything else
// defaults to permanent.
func Of(err error) Kind {
	var ke *kindError
	if errors.As(err, &ke) {
		return ke.kind
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return KindCancelled
	}
	return KindPermanent
}

// IsTransient reports whether err should be retried.
func IsTransient(err error) bool {
	return Of(err) == KindTransient
}

// IsCancelled reports whether err stems from context cancellation.
func IsCancelled(err error) bool {
	return Of(err) == KindCancelled
}
