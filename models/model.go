package models

import (
	"fmt"
	"time"
)

// Site names used as the Source of scraped records and as keys of ScrapeResult.
const (
	SourceMakeMyTrip = "MakeMyTrip"
	SourceGoibibo    = "Goibibo"
	SourceCleartrip  = "Cleartrip"
)

// FlightRecord is one normalized flight offer pulled from a results page.
// Departure and arrival hold the site-local time text as displayed; they are
// not parsed into timestamps. Price is in the site currency, 0 means the
// price could not be found.
type FlightRecord struct {
	Source     string    `json:"source"`
	Airline    string    `json:"airline"`
	FlightCode string    `json:"flight_code,omitempty"`
	Departure  string    `json:"departure"`
	Arrival    string    `json:"arrival"`
	Duration   string    `json:"duration"`
	Stops      string    `json:"stops"`
	Price      int       `json:"price"`
	Timestamp  time.Time `json:"timestamp"`
}

// Valid reports whether the record carries the minimum fields required to
// keep it. Records failing this check are dropped before collection.
func (r FlightRecord) Valid() bool {
	return r.Price > 0 && r.Departure != "" && r.Arrival != ""
}

// Route describes one flight search query: three-letter IATA codes plus a
// DD/MM/YYYY travel date.
type Route struct {
	Departure string `json:"departure"`
	Arrival   string `json:"arrival"`
	Date      string `json:"date"`
}

func (r Route) Validate() error {
	if !isAirportCode(r.Departure) {
		return fmt.Errorf("invalid departure code: %q", r.Departure)
	}
	if !isAirportCode(r.Arrival) {
		return fmt.Errorf("invalid arrival code: %q", r.Arrival)
	}
	if _, err := time.Parse("02/01/2006", r.Date); err != nil {
		return fmt.Errorf("invalid date %q: expected DD/MM/YYYY", r.Date)
	}
	return nil
}

func isAirportCode(code string) bool {
	if len(code) != 3 {
		return false
	}
	for _, c := range code {
		if c < 'A' || c > 'Z' {
			return false
		}
	}
	return true
}

// ScrapeResult maps a site name to the records it produced. A nil slice
// marks a site whose scraper failed or returned nothing.
type ScrapeResult map[string][]FlightRecord

// Succeeded reports whether at least one site produced records.
func (sr ScrapeResult) Succeeded() bool {
	for _, records := range sr {
		if len(records) > 0 {
			return true
		}
	}
	return false
}
