package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestCalculateBackoff_StaysWithinJitterBounds(t *testing.T) {
	base := 2 * time.Second
	cap := 15 * time.Second

	for attempt := 0; attempt < 8; attempt++ {
		expected := base << uint(attempt)
		if expected > cap || expected <= 0 {
			expected = cap
		}
		for i := 0; i < 50; i++ {
			delay := calculateBackoff(attempt, base, cap)
			assert.GreaterOrEqual(t, delay, expected*3/4, "attempt %d", attempt)
			assert.LessOrEqual(t, delay, expected*5/4, "attempt %d", attempt)
		}
	}
}

func TestCalculateBackoff_CapsGrowth(t *testing.T) {
	base := 2 * time.Second
	cap := 15 * time.Second

	// Deep attempts must never exceed cap plus jitter.
	for i := 0; i < 50; i++ {
		delay := calculateBackoff(30, base, cap)
		assert.LessOrEqual(t, delay, cap*5/4)
	}
}
