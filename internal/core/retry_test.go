package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRetryPolicyLinearBackoff(t *testing.T) {
	p := NewRetryPolicy(5, 10*time.Second)

	for attempt := 1; attempt <= 5; attempt++ {
		delay, ok := p.NextDelay(attempt)
		require.True(t, ok, "attempt %d should be allowed", attempt)
		assert.Equal(t, time.Duration(attempt)*10*time.Second, delay)
	}

	_, ok := p.NextDelay(6)
	assert.False(t, ok, "attempt past the ceiling should give up")
}

func TestRetryPolicyDefaults(t *testing.T) {
	p := NewRetryPolicy(0, 0)

	assert.Equal(t, DefaultMaxAttempts, p.MaxAttempts)
	assert.Equal(t, DefaultBackoffBase, p.BackoffBase)
}
