package scraper

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
)

// MakeMyTrip's results page keeps stable class names, so extraction leans
// on direct sub-element selectors with the free-text classifier as backstop.
type MakeMyTrip struct {
	cfg Config
	log logger.Logger
}

func NewMakeMyTrip(cfg Config, log logger.Logger) *MakeMyTrip {
	return &MakeMyTrip{cfg: cfg, log: log.With("site", models.SourceMakeMyTrip)}
}

func (m *MakeMyTrip) Name() string { return models.SourceMakeMyTrip }

const mmtCardSelector = "[data-test='component-clusterItem'] div.listingCard"

var mmtCardSelectors = []string{
	mmtCardSelector,
	"div.listingCard",
}

var mmtFieldSelectors = FieldSelectors{
	Airline:    []string{"p.airlineName"},
	FlightCode: []string{"p.fliCode"},
	Departure:  []string{"div.timeInfoLeft p.flightTimeInfo span"},
	Arrival:    []string{"div.timeInfoRight p.flightTimeInfo span"},
	Duration:   []string{"div.stop-info p"},
	Stops:      []string{"p.flightsLayoverInfo"},
}

var mmtPopupRules = PopupRules{
	CloseSelectors: []string{
		"span.commonModal__close",
		"[data-cy='closeModal']",
		"[aria-label='Close']",
	},
}

var mmtFilterRules = FilterRules{
	ClearAllSelectors: []string{"span.clearFilter"},
	ChipSelectors: []string{
		"span.filterCross",
		".appliedFilter span.overlayCrossIcon",
	},
	CheckboxKeywords: []string{"non stop"},
	ActiveIndicators: []string{
		"span.clearFilter",
		".appliedFilter li",
	},
	MaxAttempts: 3,
	SettleMin:   1500 * time.Millisecond,
	SettleMax:   2500 * time.Millisecond,
}

func buildMakeMyTripURL(route models.Route) string {
	return fmt.Sprintf(
		"https://www.makemytrip.com/flight/search?itinerary=%s-%s-%s&tripType=O&paxType=A-1_C-0_I-0&intl=false&cabinClass=E",
		route.Departure, route.Arrival, route.Date,
	)
}

func (m *MakeMyTrip) Scrape(ctx context.Context, sess PageSession, route models.Route) ([]models.FlightRecord, error) {
	page, cancel, err := sess.OpenPage(m.cfg.SiteTimeout)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer cancel()

	url := buildMakeMyTripURL(route)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	m.log.Info("page loaded, waiting for results", "url", url)

	if _, err := page.WaitForAnySelector([]string{"div.listingCard"}, m.cfg.WaitTimeout); err != nil {
		page.CaptureDebug("makemytrip_no_results")
		return nil, fmt.Errorf("results container never appeared: %w", err)
	}
	page.RandomSleep(4*time.Second, 6*time.Second)

	DismissPopups(page, mmtPopupRules, m.log)
	ClearFilters(page, mmtFilterRules, m.log)
	page.RandomSleep(1500*time.Millisecond, 2500*time.Millisecond)

	ScrollUntilLoaded(page, ScrollConfig{
		CardSelector:    mmtCardSelector,
		MaxStaleScrolls: 5,
		MaxAttempts:     25,
		Offset:          func(int) int { return 1000 },
		PauseMin:        2 * time.Second,
		PauseMax:        3 * time.Second,
	}, m.log)

	cards, err := FindFlightCards(page, mmtCardSelectors, DefaultCardFilter(), m.log)
	if err != nil {
		return nil, fmt.Errorf("card discovery: %w", err)
	}
	m.log.Info("extracting flight cards", "count", len(cards))

	records := extractRecords(models.SourceMakeMyTrip, cards, mmtFieldSelectors, "Non stop", m.log)
	if len(records) == 0 {
		page.CaptureDebug("makemytrip_no_data")
		return nil, errors.New("no valid flights extracted")
	}

	unique := DeduplicateFlights(records)
	m.log.Info("scraping completed", "flights", len(unique))
	return unique, nil
}
