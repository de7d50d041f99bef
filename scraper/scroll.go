package scraper

import (
	"time"

	"github.com/themehraaryan/costtofly/logger"
)

// scrollPage is the slice of Page behavior the scroll controller needs. The
// loop itself stays free of browser plumbing so its termination rules can be
// tested with a fake.
type scrollPage interface {
	CountBySelector(selector string) (int, error)
	ScrollBy(px int) error
	WaitSkeletonsGone(selectors []string, timeout time.Duration)
	RandomSleep(min, max time.Duration)
}

// skeletonSelectors match the transient placeholders sites render while
// result cards are still loading.
var skeletonSelectors = []string{
	"[class*='skeleton']",
	"[class*='Skeleton']",
	"[class*='loading']",
	"[class*='shimmer']",
	"[class*='placeholder']",
}

// ScrollConfig tunes one site's lazy-load driving.
type ScrollConfig struct {
	// CardSelector is what gets counted between scrolls.
	CardSelector string

	// MaxStaleScrolls consecutive non-productive scrolls terminate the
	// loop; MaxAttempts is the hard ceiling for pages that never settle.
	MaxStaleScrolls int
	MaxAttempts     int

	// Offset returns the scroll distance for the given attempt. Sites use
	// fixed, randomized-band, or attempt-keyed offsets to avoid a uniform
	// scroll signature.
	Offset func(attempt int) int

	PauseMin time.Duration
	PauseMax time.Duration

	// SkeletonTimeout bounds the placeholder settle wait before each
	// re-count. Zero disables the wait.
	SkeletonTimeout time.Duration
}

// ScrollUntilLoaded drives the page's lazy loading: scroll, re-count cards,
// track staleness, stop when the count stops growing or the attempt ceiling
// is hit. Returns the final card count; a page that never yields a card
// returns 0. Safe to call again, it continues from the current scroll
// position.
func ScrollUntilLoaded(p scrollPage, cfg ScrollConfig, log logger.Logger) int {
	staleScrolls := 0
	previousCount := 0
	attempts := 0

	for staleScrolls < cfg.MaxStaleScrolls && attempts < cfg.MaxAttempts {
		attempts++

		if cfg.SkeletonTimeout > 0 {
			p.WaitSkeletonsGone(skeletonSelectors, cfg.SkeletonTimeout)
		}

		currentCount, err := p.CountBySelector(cfg.CardSelector)
		if err != nil {
			log.Debug("card count failed, counting as stale scroll", "err", err)
			staleScrolls++
			continue
		}

		if currentCount > previousCount {
			log.Debug("flight cards increased", "from", previousCount, "to", currentCount)
			previousCount = currentCount
			staleScrolls = 0
		} else {
			staleScrolls++
			log.Debug("no new cards loaded", "stale", staleScrolls, "max", cfg.MaxStaleScrolls)
		}

		if staleScrolls >= cfg.MaxStaleScrolls {
			break
		}

		if err := p.ScrollBy(cfg.Offset(attempts)); err != nil {
			log.Debug("scroll failed", "err", err)
		}
		p.RandomSleep(cfg.PauseMin, cfg.PauseMax)
	}

	log.Info("scrolling complete", "cards", previousCount, "attempts", attempts)
	return previousCount
}
