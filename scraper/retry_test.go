package scraper

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRetryUntilStopsOnSuccess(t *testing.T) {
	calls := 0
	ok := retryUntil(5, 0, func(attempt int) bool {
		calls++
		return attempt == 2
	})

	assert.True(t, ok)
	assert.Equal(t, 2, calls)
}

func TestRetryUntilExhaustsAttempts(t *testing.T) {
	calls := 0
	ok := retryUntil(3, 0, func(int) bool {
		calls++
		return false
	})

	assert.False(t, ok)
	assert.Equal(t, 3, calls)
}

func TestRetryUntilClampsAttempts(t *testing.T) {
	calls := 0
	retryUntil(0, 0, func(int) bool {
		calls++
		return false
	})
	assert.Equal(t, 1, calls)
}

func TestRandomOffsetStaysInBand(t *testing.T) {
	for i := 0; i < 100; i++ {
		v := randomOffset(800, 1200)
		assert.GreaterOrEqual(t, v, 800)
		assert.LessOrEqual(t, v, 1200)
	}
	assert.Equal(t, 500, randomOffset(500, 500))
}
