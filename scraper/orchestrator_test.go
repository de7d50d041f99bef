package scraper

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
)

type fakeSession struct {
	closed bool
}

func (f *fakeSession) OpenPage(time.Duration) (*Page, context.CancelFunc, error) {
	return &Page{}, func() {}, nil
}

func (f *fakeSession) Close() { f.closed = true }

type fakeSite struct {
	name    string
	records []models.FlightRecord
	err     error
	panics  bool
}

func (f *fakeSite) Name() string { return f.name }

func (f *fakeSite) Scrape(context.Context, PageSession, models.Route) ([]models.FlightRecord, error) {
	if f.panics {
		panic("browser crashed")
	}
	return f.records, f.err
}

func testRoute() models.Route {
	return models.Route{Departure: "DEL", Arrival: "BOM", Date: "15/09/2026"}
}

func testOrchestrator(t *testing.T, sites ...SiteScraper) *Orchestrator {
	t.Helper()
	cfg := DefaultConfig()
	cfg.RatePerSecond = 1000
	cfg.RateBurst = len(sites) + 1

	o := NewOrchestrator(cfg, logger.Nop(), testRoute())
	o.sites = sites
	o.newSession = func(context.Context) (PageSession, error) {
		return &fakeSession{}, nil
	}
	return o
}

func someRecords() []models.FlightRecord {
	return []models.FlightRecord{
		{Source: "MakeMyTrip", Airline: "IndiGo", Departure: "06:15", Arrival: "08:25", Price: 5629},
	}
}

func TestRunIsolatesFailingSite(t *testing.T) {
	failing := &fakeSite{name: "Goibibo", err: errors.New("results container never appeared")}
	healthy := &fakeSite{name: "MakeMyTrip", records: someRecords()}

	o := testOrchestrator(t, failing, healthy)
	ok, results := o.Run(context.Background())

	assert.True(t, ok, "one healthy site makes the run a success")
	require.Len(t, results, 2)
	assert.Nil(t, results["Goibibo"])
	assert.Len(t, results["MakeMyTrip"], 1)
}

func TestRunRecoversFromPanickingSite(t *testing.T) {
	panicking := &fakeSite{name: "Cleartrip", panics: true}
	healthy := &fakeSite{name: "MakeMyTrip", records: someRecords()}

	o := testOrchestrator(t, panicking, healthy)

	var ok bool
	var results models.ScrapeResult
	assert.NotPanics(t, func() { ok, results = o.Run(context.Background()) })

	assert.True(t, ok)
	assert.Nil(t, results["Cleartrip"])
	assert.Len(t, results["MakeMyTrip"], 1)
}

func TestRunFailsWhenEverySiteFails(t *testing.T) {
	a := &fakeSite{name: "MakeMyTrip", err: errors.New("blocked")}
	b := &fakeSite{name: "Goibibo", records: nil} // empty extraction is a failure too

	o := testOrchestrator(t, a, b)
	ok, results := o.Run(context.Background())

	assert.False(t, ok)
	assert.Nil(t, results["MakeMyTrip"])
	assert.Nil(t, results["Goibibo"])
}

func TestRunClosesSessionsAlways(t *testing.T) {
	panicking := &fakeSite{name: "Cleartrip", panics: true}
	healthy := &fakeSite{name: "MakeMyTrip", records: someRecords()}

	o := testOrchestrator(t, panicking, healthy)

	var sessions []*fakeSession
	o.newSession = func(context.Context) (PageSession, error) {
		s := &fakeSession{}
		sessions = append(sessions, s)
		return s, nil
	}

	o.Run(context.Background())

	require.Len(t, sessions, 2)
	for _, s := range sessions {
		assert.True(t, s.closed, "session torn down even when the scraper panicked")
	}
}

func TestRunStopsOnCancelledContext(t *testing.T) {
	site := &fakeSite{name: "MakeMyTrip", records: someRecords()}
	o := testOrchestrator(t, site)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	ok, results := o.Run(ctx)
	assert.False(t, ok)
	assert.Nil(t, results["MakeMyTrip"])
}
