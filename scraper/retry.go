package scraper

import (
	"math/rand"
	"time"
)

// retryUntil runs fn up to maxAttempts times, sleeping delay between
// attempts, and stops as soon as fn reports success. Returns whether fn ever
// succeeded. The popup/filter/settle loops share this instead of re-deriving
// their own bounded loops.
func retryUntil(maxAttempts int, delay time.Duration, fn func(attempt int) bool) bool {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	for attempt := 1; attempt <= maxAttempts; attempt++ {
		if fn(attempt) {
			return true
		}
		if attempt < maxAttempts {
			time.Sleep(delay)
		}
	}
	return false
}

// randomOffset returns a scroll offset in [min, max].
func randomOffset(min, max int) int {
	if max <= min {
		return min
	}
	return min + rand.Intn(max-min+1)
}
