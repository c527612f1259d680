package resilience

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCircuitBreaker_TripsOnConsecutiveFailures(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("test")
	cfg.ConsecutiveFailures = 2
	cfg.Timeout = time.Hour
	cb := NewCircuitBreaker(cfg)
	boom := errors.New("boom")

	for i := 0; i < 3; i++ {
		assert.ErrorIs(t, cb.Execute(func() error { return boom }), boom)
	}

	assert.True(t, cb.IsOpen())
	assert.Equal(t, "open", cb.State())

	called := false
	err := cb.Execute(func() error {
		called = true
		return nil
	})
	assert.ErrorIs(t, err, ErrCircuitOpen)
	assert.False(t, called)
}

func TestCircuitBreaker_StaysClosedOnSuccess(t *testing.T) {
	cb := NewCircuitBreaker(nil)

	for i := 0; i < 20; i++ {
		assert.NoError(t, cb.Execute(func() error { return nil }))
	}

	assert.False(t, cb.IsOpen())
	assert.Equal(t, "closed", cb.State())
	assert.Equal(t, "default", cb.Name())
}

func TestCircuitBreaker_TripsOnFailureRatio(t *testing.T) {
	cfg := DefaultCircuitBreakerConfig("ratio")
	cfg.Timeout = time.Hour
	cb := NewCircuitBreaker(cfg)
	boom := errors.New("boom")

	// alternate so consecutive failures never exceed the limit
	for i := 0; i < 10; i++ {
		if i%5 == 0 {
			_ = cb.Execute(func() error { return nil })
			continue
		}
		_ = cb.Execute(func() error { return boom })
	}

	assert.True(t, cb.IsOpen())
}
