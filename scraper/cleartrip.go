package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
)

// Cleartrip ships hashed styled-component class names and renders skeleton
// placeholders while cards stream in, so scrolling waits for skeletons to
// settle and extraction is free-text first with selector overrides for the
// airline block.
type Cleartrip struct {
	cfg Config
	log logger.Logger
}

func NewCleartrip(cfg Config, log logger.Logger) *Cleartrip {
	return &Cleartrip{cfg: cfg, log: log.With("site", models.SourceCleartrip)}
}

func (c *Cleartrip) Name() string { return models.SourceCleartrip }

const cleartripCardCountSelector = "div[class*='sc-a15c1a81']"

var cleartripResultSelectors = []string{
	"div[class*='sc-a15c1a81']",
	"div[class*='flight-card']",
	"div[class*='flightCard']",
	"[data-testid*='flight']",
	"div[class*='listing']",
}

var cleartripCardSelectors = []string{
	"div[class*='sc-a15c1a81-0']",
	"div[class*='sc-'][class*='flex']",
	"[class*='flight-row']",
	"[class*='flightCard']",
}

var cleartripFieldSelectors = FieldSelectors{
	Airline: []string{
		".eJFhSz + div p:first-child",
		"p[class*='airline']",
		"span[class*='airline']",
	},
	FlightCode: []string{
		".eJFhSz + div p:last-child",
		"p[class*='code']",
		"span[class*='code']",
	},
}

var cleartripPopupRules = PopupRules{
	CloseSelectors: []string{
		"[aria-label='Close']",
		"button[class*='close']",
		"span[class*='close']",
	},
}

var cleartripFilterRules = FilterRules{
	ChipSelectors: []string{
		"input[type='checkbox']:checked",
		"[class*='active'][class*='filter']",
		"[class*='selected'][class*='filter']",
	},
	ActiveIndicators: []string{
		"input[type='checkbox']:checked",
		"[class*='active'][class*='filter']",
		"[class*='selected'][class*='filter']",
		"[class*='appliedFilter']",
	},
	MaxAttempts: 3,
	SettleMin:   time.Second,
	SettleMax:   2 * time.Second,
}

func buildCleartripURL(route models.Route) string {
	timestamp := time.Now().UnixMilli()
	return fmt.Sprintf(
		"https://www.cleartrip.com/flights/results?adults=1&childs=0&infants=0&class=Economy&"+
			"depart_date=%s&from=%s&to=%s&intl=n&origin=%s%%20-%%20City&destination=%s%%20-%%20City&"+
			"sft=&sd=%d&rnd_one=O&isCfw=false&isFF=false",
		route.Date, route.Departure, route.Arrival, route.Departure, route.Arrival, timestamp,
	)
}

func (c *Cleartrip) Scrape(ctx context.Context, sess PageSession, route models.Route) ([]models.FlightRecord, error) {
	page, cancel, err := sess.OpenPage(c.cfg.SiteTimeout)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer cancel()

	url := buildCleartripURL(route)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	c.log.Info("page loaded, waiting for results", "url", url)
	page.Sleep(5 * time.Second)

	if _, err := page.WaitForAnySelector(cleartripResultSelectors, c.cfg.WaitTimeout); err != nil {
		page.CaptureDebug("cleartrip_no_results")
		return nil, fmt.Errorf("results container never appeared: %w", err)
	}
	page.Sleep(2 * time.Second)

	DismissPopups(page, cleartripPopupRules, c.log)
	ClearFilters(page, cleartripFilterRules, c.log)

	if err := page.ScrollTop(); err != nil {
		c.log.Debug("scroll top failed", "err", err)
	}
	page.Sleep(time.Second)

	ScrollUntilLoaded(page, ScrollConfig{
		CardSelector:    cleartripCardCountSelector,
		MaxStaleScrolls: 6,
		MaxAttempts:     30,
		Offset:          func(attempt int) int { return 800 + (attempt%5)*100 },
		PauseMin:        1500 * time.Millisecond,
		PauseMax:        3 * time.Second,
		SkeletonTimeout: 3 * time.Second,
	}, c.log)

	if err := page.ScrollTop(); err != nil {
		c.log.Debug("scroll top failed", "err", err)
	}
	page.Sleep(time.Second)

	cards, err := FindFlightCards(page, cleartripCardSelectors, DefaultCardFilter(), c.log)
	if err != nil {
		return nil, fmt.Errorf("card discovery: %w", err)
	}
	c.log.Info("extracting flight cards", "count", len(cards))

	records := extractRecords(models.SourceCleartrip, cards, cleartripFieldSelectors, "Non-stop", c.log)
	if len(records) == 0 {
		page.CaptureDebug("cleartrip_no_data")
		return nil, errors.New("no valid flights extracted")
	}

	unique := DeduplicateFlights(records)
	c.log.Info("scraping completed", "flights", len(unique))
	return unique, nil
}
