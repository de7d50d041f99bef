package scraper

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
)

// Goibibo renders results behind login prompts and a "Lock this price"
// promotion, collapses alternate departures behind "View All" CTAs, and
// rotates its card class names. The scraper leans on free-text parsing and
// an expand loop layered over the scroll controller.
type Goibibo struct {
	cfg Config
	log logger.Logger
}

func NewGoibibo(cfg Config, log logger.Logger) *Goibibo {
	return &Goibibo{cfg: cfg, log: log.With("site", models.SourceGoibibo)}
}

func (g *Goibibo) Name() string { return models.SourceGoibibo }

const (
	goibiboMaxExpandPasses    = 5
	goibiboMaxExpansionRounds = 10
	goibiboExpandScrollStep   = 600
)

const goibiboCardCountSelector = "[class*='FlightCard'], [class*='flightCard'], [class*='fltLstTubing'], [class*='srp-card']"

var goibiboResultSelectors = []string{
	"[class*='fltLstTubing']",
	"[class*='FlightCard']",
	"[class*='flightCard']",
	"[class*='srp-card']",
	"div[class*='sortingContainer']",
}

var goibiboCardSelectors = []string{
	"div.listingCard",
	"div[class*='listingCard']",
	"div[class*='fltLstTubing']",
	"div[class*='FlightCard']",
	"div[class*='flightCard']",
	"div[class*='srp-card']",
}

var goibiboPopupRules = PopupRules{
	CloseSelectors: []string{
		"span.logSprite.icClose",
		"span.icClose",
		"span[class*='icClose']",
		"div.logPopInner span[class*='close']",
		"span[class*='close']",
		"span[class*='Close']",
		"button[class*='close']",
		"[aria-label='Close']",
	},
	ButtonKeywords: []string{"got it", "okay"},
	ButtonSelector: "button, span",
}

var goibiboExpandKeywords = []string{"view all", "other", "more flight"}

const goibiboExpandSelector = "span, div, button, a"

// expandPage is the Page behavior the load/expand loop needs, kept small so
// its round and pass termination rules run against a fake.
type expandPage interface {
	scrollPage
	ScrollTop() error
	ScrollTo(px int) error
	PageHeight() (int, error)
	ClickVisibleByText(selector string, keywords []string, markAttr string) (int, error)
}

// buildGoibiboURL constructs the one-way economy search URL; the route date
// is compacted from DD/MM/YYYY to YYYYMMDD.
func buildGoibiboURL(route models.Route) string {
	return fmt.Sprintf(
		"https://www.goibibo.com/flights/air-%s-%s-%s--1-0-0-E-D/",
		route.Departure, route.Arrival, compactDate(route.Date),
	)
}

func compactDate(date string) string {
	parts := strings.Split(date, "/")
	if len(parts) != 3 {
		return strings.ReplaceAll(date, "/", "")
	}
	return parts[2] + parts[1] + parts[0]
}

func (g *Goibibo) Scrape(ctx context.Context, sess PageSession, route models.Route) ([]models.FlightRecord, error) {
	page, cancel, err := sess.OpenPage(g.cfg.SiteTimeout)
	if err != nil {
		return nil, fmt.Errorf("open page: %w", err)
	}
	defer cancel()

	url := buildGoibiboURL(route)
	if err := page.Navigate(url); err != nil {
		return nil, fmt.Errorf("navigate: %w", err)
	}
	g.log.Info("page loaded, waiting for results", "url", url)
	page.RandomSleep(4*time.Second, 6*time.Second)

	DismissPopups(page, goibiboPopupRules, g.log)

	if _, err := page.WaitForAnySelector(goibiboResultSelectors, g.cfg.WaitTimeout); err != nil {
		page.CaptureDebug("goibibo_no_results")
		return nil, fmt.Errorf("results container never appeared: %w", err)
	}
	page.RandomSleep(2*time.Second, 4*time.Second)

	DismissPopups(page, goibiboPopupRules, g.log)

	g.loadAllCards(page)
	page.RandomSleep(time.Second, 2*time.Second)

	cards, err := FindFlightCards(page, goibiboCardSelectors, DefaultCardFilter(), g.log)
	if err != nil {
		return nil, fmt.Errorf("card discovery: %w", err)
	}
	if len(cards) == 0 {
		page.CaptureDebug("goibibo_no_cards")
		return nil, errors.New("no flight cards found")
	}
	g.log.Info("extracting flight cards", "count", len(cards))

	records := extractRecords(models.SourceGoibibo, cards, FieldSelectors{}, "Non stop", g.log)
	if len(records) == 0 {
		page.CaptureDebug("goibibo_no_data")
		return nil, errors.New("no valid flights extracted")
	}

	unique := DeduplicateFlights(records)
	g.log.Info("scraping completed", "flights", len(unique))
	return unique, nil
}

// loadAllCards alternates scrolling and CTA expansion until neither grows
// the card count for two consecutive rounds or the round ceiling is hit.
func (g *Goibibo) loadAllCards(page expandPage) int {
	g.log.Info("loading all cards, scroll + expand loop")
	previousCount := 0
	staleRounds := 0

	for round := 1; round <= goibiboMaxExpansionRounds; round++ {
		ScrollUntilLoaded(page, g.scrollConfig(), g.log)
		page.RandomSleep(time.Second, 2*time.Second)

		expanded := g.expandViewAll(page)
		page.RandomSleep(time.Second, 2*time.Second)

		currentCount, err := page.CountBySelector(goibiboCardCountSelector)
		if err != nil {
			g.log.Debug("card count failed during load round", "round", round, "err", err)
			currentCount = previousCount
		}
		g.log.Debug("load cards round", "round", round, "cards", currentCount, "expansions", expanded)

		if currentCount == previousCount && expanded == 0 {
			staleRounds++
			if staleRounds >= 2 {
				break
			}
		} else {
			staleRounds = 0
		}
		previousCount = currentCount
	}

	final := ScrollUntilLoaded(page, g.scrollConfig(), g.log)
	g.log.Info("all cards loaded", "count", final)
	return final
}

func (g *Goibibo) scrollConfig() ScrollConfig {
	return ScrollConfig{
		CardSelector:    goibiboCardCountSelector,
		MaxStaleScrolls: 5,
		MaxAttempts:     25,
		Offset:          func(int) int { return randomOffset(800, 1200) },
		PauseMin:        1500 * time.Millisecond,
		PauseMax:        3 * time.Second,
	}
}

// expandViewAll walks the page top to bottom clicking every unclicked
// "View All" style CTA, repeating whole passes until a pass clicks nothing
// or the pass ceiling is hit. Clicked CTAs are tagged in the DOM so repeat
// passes skip them.
func (g *Goibibo) expandViewAll(page expandPage) int {
	totalExpanded := 0

	for pass := 1; pass <= goibiboMaxExpandPasses; pass++ {
		expandedThisPass := 0
		g.log.Debug("expand pass", "pass", pass, "max", goibiboMaxExpandPasses)

		if err := page.ScrollTop(); err != nil {
			g.log.Debug("scroll top failed", "err", err)
		}
		page.RandomSleep(500*time.Millisecond, time.Second)

		height, err := page.PageHeight()
		if err != nil {
			g.log.Debug("page height failed", "err", err)
			break
		}

		for position := 0; position < height; position += goibiboExpandScrollStep {
			if err := page.ScrollTo(position); err != nil {
				break
			}
			page.RandomSleep(300*time.Millisecond, 500*time.Millisecond)

			clicked, err := page.ClickVisibleByText(goibiboExpandSelector, goibiboExpandKeywords, "ctExpanded")
			if err != nil {
				g.log.Debug("expand click scan failed", "err", err)
				continue
			}
			if clicked > 0 {
				expandedThisPass += clicked
				page.RandomSleep(2*time.Second, 3*time.Second)
				// expansion grows the page; pick up the new height
				if h, err := page.PageHeight(); err == nil {
					height = h
				}
			}
		}

		totalExpanded += expandedThisPass
		g.log.Debug("expand pass done", "pass", pass, "clicked", expandedThisPass)
		if expandedThisPass == 0 {
			break
		}
	}

	g.log.Info("expand CTAs clicked", "total", totalExpanded)
	return totalExpanded
}
