package scraper

import (
	"context"
	"strings"

	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
)

// SiteScraper runs the full navigate → wait → resolve-popups → load-all →
// extract → dedupe pipeline for one travel site against a session it does
// not own. A nil error with a non-empty slice is success; everything else
// is failure, and the orchestrator records the site as absent.
type SiteScraper interface {
	Name() string
	Scrape(ctx context.Context, sess PageSession, route models.Route) ([]models.FlightRecord, error)
}

// extractRecords turns discovered cards into validated flight records.
// Per-card problems skip the card, never the batch; records missing a price
// or either time are dropped before collection.
func extractRecords(source string, cards []Card, selectors FieldSelectors, defaultStops string, log logger.Logger) []models.FlightRecord {
	records := make([]models.FlightRecord, 0, len(cards))
	for i, card := range cards {
		if card.Text == "" || !strings.Contains(card.Text, "₹") {
			continue
		}
		fields := ExtractFields(card, selectors, defaultStops)
		price := ParsePrice(card.Text)
		record := BuildFlightRecord(source, fields, price)
		if !record.Valid() {
			log.Debug("dropping invalid record", "card", i+1)
			continue
		}
		records = append(records, record)
	}
	return records
}
