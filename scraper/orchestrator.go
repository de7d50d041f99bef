package scraper

import (
	"context"
	"fmt"

	"golang.org/x/time/rate"

	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
)

// Orchestrator runs every registered site scraper sequentially, each inside
// its own browser session, and collects partial results. A single failing
// site is expected and non-fatal; the run as a whole succeeds when at least
// one site yields data.
type Orchestrator struct {
	cfg   Config
	log   logger.Logger
	route models.Route
	sites []SiteScraper

	limiter *rate.Limiter

	// newSession is swapped out in tests.
	newSession func(ctx context.Context) (PageSession, error)
}

func NewOrchestrator(cfg Config, log logger.Logger, route models.Route) *Orchestrator {
	o := &Orchestrator{
		cfg:   cfg,
		log:   log,
		route: route,
		sites: []SiteScraper{
			NewMakeMyTrip(cfg, log),
			NewGoibibo(cfg, log),
			NewCleartrip(cfg, log),
		},
		limiter: rate.NewLimiter(rate.Limit(cfg.RatePerSecond), cfg.RateBurst),
	}
	o.newSession = func(ctx context.Context) (PageSession, error) {
		return newChromeSession(ctx, cfg, log)
	}
	return o
}

// Run scrapes each site in order and returns overall success plus the
// per-site results map. The map always has one entry per registered site; a
// nil slice marks a site that failed or produced nothing.
func (o *Orchestrator) Run(ctx context.Context) (bool, models.ScrapeResult) {
	o.log.Info("scrape orchestration started",
		"route", fmt.Sprintf("%s-%s", o.route.Departure, o.route.Arrival),
		"date", o.route.Date,
		"sites", len(o.sites),
	)

	results := make(models.ScrapeResult, len(o.sites))
	succeeded := 0

	for _, site := range o.sites {
		if err := o.limiter.Wait(ctx); err != nil {
			o.log.Error("orchestration cancelled", "err", err)
			results[site.Name()] = nil
			continue
		}

		records, err := o.executeSite(ctx, site)
		if err != nil {
			o.log.Error("site scraper failed", "site", site.Name(), "err", err)
			results[site.Name()] = nil
			continue
		}
		o.log.Info("site scraper completed", "site", site.Name(), "flights", len(records))
		results[site.Name()] = records
		succeeded++
	}

	o.log.Info("scrape orchestration completed", "successful", succeeded, "total", len(o.sites))
	return results.Succeeded(), results
}

// executeSite acquires an isolated session, runs the site scraper, and
// guarantees teardown whatever happened inside. Panics from the browser
// layer are mapped to errors so one site's crash never takes the run down.
func (o *Orchestrator) executeSite(ctx context.Context, site SiteScraper) (records []models.FlightRecord, err error) {
	defer func() {
		if r := recover(); r != nil {
			records = nil
			err = fmt.Errorf("scraper panicked: %v", r)
		}
	}()

	o.log.Info("starting site scraper", "site", site.Name())
	sess, err := o.newSession(ctx)
	if err != nil {
		return nil, fmt.Errorf("create browser session: %w", err)
	}
	defer sess.Close()

	records, err = site.Scrape(ctx, sess, o.route)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("no records extracted")
	}
	return records, nil
}
