package scraper

import (
	"regexp"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/themehraaryan/costtofly/models"
)

// Plausibility band for a one-way domestic fare in rupees. Anything outside
// is a loyalty-point figure, a per-segment fragment, or noise.
const (
	PriceMin = 1000
	PriceMax = 100000
)

// UnknownDurationMinutes is returned for unparseable durations so numeric
// comparisons naturally rank unknowns last.
const UnknownDurationMinutes = 9999

var priceRe = regexp.MustCompile(`₹\s*([\d,]+)`)

// ParsePrice extracts every ₹-marked number from text, keeps those inside
// the plausibility band, and returns the largest. The max is assumed to be
// the actual total fare since bundled discount or partial prices run
// smaller; on some layouts this can pick a decoy strikethrough price
// instead, a known accuracy risk kept for compatibility. Returns 0 when no
// plausible value is found.
func ParsePrice(text string) int {
	if text == "" {
		return 0
	}
	best := 0
	for _, m := range priceRe.FindAllStringSubmatch(text, -1) {
		digits := strings.ReplaceAll(m[1], ",", "")
		value, err := strconv.Atoi(digits)
		if err != nil {
			continue
		}
		if value < PriceMin || value > PriceMax {
			continue
		}
		if value > best {
			best = value
		}
	}
	return best
}

// ParseDurationMinutes converts free-form durations like "2h 30m" or "45m"
// to total minutes. Unparseable or empty input returns
// UnknownDurationMinutes.
func ParseDurationMinutes(duration string) int {
	s := strings.ToLower(strings.TrimSpace(duration))
	if s == "" {
		return UnknownDurationMinutes
	}

	hours, minutes := 0, 0
	switch {
	case strings.Contains(s, "h"):
		parts := strings.SplitN(s, "h", 2)
		hours = leadingDigits(parts[0])
		if len(parts) > 1 && strings.Contains(parts[1], "m") {
			minutes = leadingDigits(parts[1])
		}
	case strings.Contains(s, "m"):
		minutes = leadingDigits(s)
	}

	total := hours*60 + minutes
	if total <= 0 {
		return UnknownDurationMinutes
	}
	return total
}

func leadingDigits(s string) int {
	var b strings.Builder
	for _, c := range s {
		if unicode.IsDigit(c) {
			b.WriteRune(c)
		}
	}
	if b.Len() == 0 {
		return 0
	}
	v, err := strconv.Atoi(b.String())
	if err != nil {
		return 0
	}
	return v
}

type dedupKey struct {
	departure string
	arrival   string
	price     int
}

// DeduplicateFlights collapses records sharing (departure, arrival, price),
// keeping the first occurrence. Stable and idempotent.
func DeduplicateFlights(records []models.FlightRecord) []models.FlightRecord {
	if len(records) == 0 {
		return nil
	}
	seen := make(map[dedupKey]struct{}, len(records))
	unique := make([]models.FlightRecord, 0, len(records))
	for _, r := range records {
		key := dedupKey{departure: r.Departure, arrival: r.Arrival, price: r.Price}
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		unique = append(unique, r)
	}
	return unique
}

// BuildFlightRecord assembles the canonical record from raw extracted text,
// assigning the "Unknown" airline fallback and stamping creation time.
func BuildFlightRecord(source string, fields RawFields, price int) models.FlightRecord {
	airline := strings.TrimSpace(fields.Airline)
	if airline == "" {
		airline = "Unknown"
	}
	return models.FlightRecord{
		Source:     source,
		Airline:    airline,
		FlightCode: strings.TrimSpace(fields.FlightCode),
		Departure:  strings.TrimSpace(fields.Departure),
		Arrival:    strings.TrimSpace(fields.Arrival),
		Duration:   strings.TrimSpace(fields.Duration),
		Stops:      strings.TrimSpace(fields.Stops),
		Price:      price,
		Timestamp:  time.Now(),
	}
}
