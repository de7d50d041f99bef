package scraper

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"

	"github.com/themehraaryan/costtofly/logger"
)

type fakePopupPage struct {
	visible      map[string]bool
	clickErrs    map[string]error
	firstClicks  []string
	chipClicks   map[string]int
	keywordHits  int
	uncheckCount int
	verifyCalls  int
}

func newFakePopupPage() *fakePopupPage {
	return &fakePopupPage{
		visible:    make(map[string]bool),
		clickErrs:  make(map[string]error),
		chipClicks: make(map[string]int),
	}
}

func (f *fakePopupPage) ClickFirstVisible(selector string) (bool, error) {
	if err := f.clickErrs[selector]; err != nil {
		return false, err
	}
	if !f.visible[selector] {
		return false, nil
	}
	// the overlay goes away once clicked
	f.visible[selector] = false
	f.firstClicks = append(f.firstClicks, selector)
	return true, nil
}

func (f *fakePopupPage) ClickAllVisible(selector string, limit int) (int, error) {
	if err := f.clickErrs[selector]; err != nil {
		return 0, err
	}
	n := f.chipClicks[selector]
	// chips disappear once closed
	f.chipClicks[selector] = 0
	return n, nil
}

func (f *fakePopupPage) ClickVisibleByText(selector string, keywords []string, markAttr string) (int, error) {
	n := f.keywordHits
	f.keywordHits = 0
	return n, nil
}

func (f *fakePopupPage) UncheckLabeledCheckboxes(keywords []string) (int, error) {
	n := f.uncheckCount
	f.uncheckCount = 0
	return n, nil
}

func (f *fakePopupPage) AnyVisible(selector string) (bool, error) {
	f.verifyCalls++
	return f.visible[selector], nil
}

func (f *fakePopupPage) RandomSleep(time.Duration, time.Duration) {}

func TestDismissPopupsClicksVisibleCloseIcons(t *testing.T) {
	page := newFakePopupPage()
	page.visible["span.icClose"] = true
	page.keywordHits = 1

	DismissPopups(page, PopupRules{
		CloseSelectors: []string{"span.icClose", "button.close"},
		ButtonKeywords: []string{"got it"},
	}, logger.Nop())

	assert.Equal(t, []string{"span.icClose"}, page.firstClicks)
}

func TestDismissPopupsSwallowsErrors(t *testing.T) {
	page := newFakePopupPage()
	page.clickErrs["span.icClose"] = errors.New("node detached")
	page.visible["button.close"] = true

	assert.NotPanics(t, func() {
		DismissPopups(page, PopupRules{CloseSelectors: []string{"span.icClose", "button.close"}}, logger.Nop())
	})
	// the failing selector did not stop the scan
	assert.Equal(t, []string{"button.close"}, page.firstClicks)
}

func TestResetFiltersReportsWork(t *testing.T) {
	page := newFakePopupPage()
	page.visible["span.clearFilter"] = true
	page.chipClicks["span.filterCross"] = 2
	page.uncheckCount = 1

	rules := FilterRules{
		ClearAllSelectors: []string{"span.clearFilter"},
		ChipSelectors:     []string{"span.filterCross"},
		CheckboxKeywords:  []string{"non stop"},
	}

	assert.True(t, ResetFilters(page, rules, logger.Nop()))
	assert.False(t, ResetFilters(page, rules, logger.Nop()), "second pass finds nothing left")
}

func TestClearFiltersSucceedsWhenIndicatorsGone(t *testing.T) {
	page := newFakePopupPage()
	page.chipClicks["span.filterCross"] = 1

	rules := FilterRules{
		ChipSelectors:    []string{"span.filterCross"},
		ActiveIndicators: []string{".appliedFilter li"},
		MaxAttempts:      3,
	}

	assert.True(t, ClearFilters(page, rules, logger.Nop()))
	assert.Equal(t, 1, page.verifyCalls, "verification short-circuits after the first clean pass")
}

func TestClearFiltersGivesUpAfterBoundedAttempts(t *testing.T) {
	page := newFakePopupPage()
	page.visible[".appliedFilter li"] = true // indicator never goes away

	rules := FilterRules{
		ActiveIndicators: []string{".appliedFilter li"},
		MaxAttempts:      3,
	}

	assert.False(t, ClearFilters(page, rules, logger.Nop()))
	assert.Equal(t, 3, page.verifyCalls)
}
