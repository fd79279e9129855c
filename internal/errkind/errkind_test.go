package errkind

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestOf(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		expected Kind
	}{
		{"transient wrapper", Transient(errors.New("boom")), KindTransient},
		{"transient formatted", Transientf("boom %d", 1), KindTransient},
		{"permanent wrapper", Permanent(errors.New("boom")), KindPermanent},
		{"permanent formatted", Permanentf("boom"), KindPermanent},
		{"plain error defaults to permanent", errors.New("boom"), KindPermanent},
		{"context canceled", context.Canceled, KindCancelled},
		{"deadline exceeded", context.DeadlineExceeded, KindCancelled},
		{"plain wrapped cancellation", fmt.Errorf("op: %w", context.Canceled), KindCancelled},
		{"explicit kind beats wrapped deadline", Transient(fmt.Errorf("op: %w", context.DeadlineExceeded)), KindTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Of(tt.err))
		})
	}
}

func TestKindSurvivesWrapping(t *testing.T) {
	err := fmt.Errorf("download failed: %w", Transient(errors.New("timeout")))
	assert.True(t, IsTransient(err))

	err = fmt.Errorf("outer: %w", fmt.Errorf("inner: %w", Permanent(errors.New("404"))))
	assert.False(t, IsTransient(err))
}

func TestRequestTimeoutStaysRetryable(t *testing.T) {
	// A per-request timeout carries DeadlineExceeded from WithTimeout
	// but is classified transient by the HTTP client; the retry engine
	// must see it as retryable, not as a user cancellation.
	err := Transient(fmt.Errorf("request to https://cdn.example timed out: %w", context.DeadlineExceeded))
	assert.True(t, IsTransient(err))
	assert.False(t, IsCancelled(err))
}

func TestNilErrors(t *testing.T) {
	assert.NoError(t, Transient(nil))
	assert.NoError(t, Permanent(nil))
}

func TestNotApplicableSentinel(t *testing.T) {
	err := fmt.Errorf("extractor: %w", ErrNotApplicable)
	assert.True(t, errors.Is(err, ErrNotApplicable))
}
