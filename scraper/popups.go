package scraper

import (
	"time"

	"github.com/themehraaryan/costtofly/logger"
)

// popupPage is the Page behavior the popup and filter resolvers use.
type popupPage interface {
	ClickFirstVisible(selector string) (bool, error)
	ClickAllVisible(selector string, limit int) (int, error)
	ClickVisibleByText(selector string, keywords []string, markAttr string) (int, error)
	UncheckLabeledCheckboxes(keywords []string) (int, error)
	AnyVisible(selector string) (bool, error)
	RandomSleep(min, max time.Duration)
}

// PopupRules describes one site's overlay dismissal: ranked close-icon
// selectors tried in order, and button texts such as "Got it" for
// promotional modals. Everything is best effort; a stale or detached
// element never aborts the scan.
type PopupRules struct {
	CloseSelectors []string
	ButtonKeywords []string
	ButtonSelector string
}

// DismissPopups clicks the first visible match per close-selector category
// and any visible keyword button. Non-blocking: failures are logged at
// debug and swallowed.
func DismissPopups(p popupPage, rules PopupRules, log logger.Logger) {
	for _, sel := range rules.CloseSelectors {
		clicked, err := p.ClickFirstVisible(sel)
		if err != nil {
			log.Debug("popup dismiss selector failed", "selector", sel, "err", err)
			continue
		}
		if clicked {
			log.Debug("dismissed popup", "selector", sel)
			p.RandomSleep(200*time.Millisecond, 400*time.Millisecond)
		}
	}

	if len(rules.ButtonKeywords) > 0 {
		sel := rules.ButtonSelector
		if sel == "" {
			sel = "button, span, [role='button']"
		}
		clicked, err := p.ClickVisibleByText(sel, rules.ButtonKeywords, "ctDismissed")
		if err != nil {
			log.Debug("popup keyword scan failed", "err", err)
		} else if clicked > 0 {
			log.Info("dismissed keyword popup", "clicks", clicked)
			p.RandomSleep(300*time.Millisecond, 600*time.Millisecond)
		}
	}
}

// FilterRules describes how a site's default result filters are detected
// and cleared.
type FilterRules struct {
	// ClearAllSelectors are authoritative "clear all" affordances, tried
	// first.
	ClearAllSelectors []string
	// ChipSelectors are individually applied filter chips with their own
	// close icons.
	ChipSelectors []string
	// CheckboxKeywords match label text of default-checked filters such as
	// "Non Stop".
	CheckboxKeywords []string
	// ActiveIndicators prove a filter is still applied; used by
	// verification.
	ActiveIndicators []string

	MaxAttempts int
	SettleMin   time.Duration
	SettleMax   time.Duration
}

// ResetFilters makes one clearing pass and reports whether anything was
// reset.
func ResetFilters(p popupPage, rules FilterRules, log logger.Logger) bool {
	filtersReset := 0

	for _, sel := range rules.ClearAllSelectors {
		clicked, err := p.ClickFirstVisible(sel)
		if err != nil {
			log.Debug("clear-all selector failed", "selector", sel, "err", err)
			continue
		}
		if clicked {
			filtersReset++
			log.Info("clicked clear-all filter control", "selector", sel)
			p.RandomSleep(1500*time.Millisecond, 2500*time.Millisecond)
		}
	}

	for _, sel := range rules.ChipSelectors {
		clicked, err := p.ClickAllVisible(sel, 0)
		if err != nil {
			log.Debug("filter chip selector failed", "selector", sel, "err", err)
			continue
		}
		if clicked > 0 {
			filtersReset += clicked
			log.Debug("removed filter chips", "selector", sel, "count", clicked)
			p.RandomSleep(400*time.Millisecond, 800*time.Millisecond)
		}
	}

	if len(rules.CheckboxKeywords) > 0 {
		clicked, err := p.UncheckLabeledCheckboxes(rules.CheckboxKeywords)
		if err != nil {
			log.Debug("filter checkbox scan failed", "err", err)
		} else if clicked > 0 {
			filtersReset += clicked
			log.Debug("unchecked filter checkboxes", "count", clicked)
		}
	}

	if filtersReset > 0 {
		log.Info("filters reset, waiting for results refresh", "count", filtersReset)
		p.RandomSleep(rules.SettleMin, rules.SettleMax)
	}
	return filtersReset > 0
}

// VerifyNoActiveFilters checks for the absence of any visible active-filter
// indicator.
func VerifyNoActiveFilters(p popupPage, rules FilterRules, log logger.Logger) bool {
	for _, sel := range rules.ActiveIndicators {
		visible, err := p.AnyVisible(sel)
		if err != nil {
			log.Debug("active filter check failed", "selector", sel, "err", err)
			continue
		}
		if visible {
			log.Debug("active filter indicator still visible", "selector", sel)
			return false
		}
	}
	return true
}

// ClearFilters retries reset-then-verify up to the rules' bound. A site
// whose filters cannot be cleared still proceeds with whatever results
// remain; that biases toward a subset of the true result set, which callers
// accept.
func ClearFilters(p popupPage, rules FilterRules, log logger.Logger) bool {
	attempts := rules.MaxAttempts
	if attempts <= 0 {
		attempts = 3
	}
	cleared := retryUntil(attempts, 0, func(attempt int) bool {
		ResetFilters(p, rules, log)
		p.RandomSleep(rules.SettleMin, rules.SettleMax)
		if VerifyNoActiveFilters(p, rules, log) {
			return true
		}
		log.Warn("filters still active", "attempt", attempt, "max", attempts)
		return false
	})
	if cleared {
		log.Info("all filters cleared")
	} else {
		log.Warn("proceeding with filters still applied, results may be a subset")
	}
	return cleared
}
