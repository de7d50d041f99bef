package scraper

import (
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"

	"github.com/themehraaryan/costtofly/logger"
)

// Card is one candidate result-card element, captured as rendered HTML plus
// visible text so extraction can run Go-side without holding live element
// handles.
type Card struct {
	HTML string
	Text string
}

// cardSource is the Page behavior card discovery needs.
type cardSource interface {
	CollectCards(selector string, limit int) ([]Card, error)
}

// CardFilter validates that an element found by a structural selector is a
// real flight card: it must carry the currency marker, have plausible text
// length, and must not be a promotional banner.
type CardFilter struct {
	CurrencyMarker string
	MinTextLen     int
	MaxTextLen     int
	BannedMarkers  []string
	// FallbackHints must appear in the text when the generic-container
	// fallback is scanning; flight cards always show a time, duration or
	// stop count. FallbackMinLen/FallbackMaxLen bound that scan more
	// tightly than the selector-located rule, since a bare div match has
	// no structural evidence behind it.
	FallbackHints  []string
	FallbackMinLen int
	FallbackMaxLen int
}

// DefaultCardFilter matches the Indian travel sites' ₹-priced cards and the
// promotional banners they interleave into results.
func DefaultCardFilter() CardFilter {
	return CardFilter{
		CurrencyMarker: "₹",
		MinTextLen:     20,
		MaxTextLen:     0,
		BannedMarkers:  []string{"Get Flat", "Lock this price", "COMPARE"},
		FallbackHints:  []string{":", "h", "min", "Stop", "Non", "stop"},
		FallbackMinLen: 40,
		FallbackMaxLen: 1000,
	}
}

// Valid applies the content rule for selector-located candidates.
func (f CardFilter) Valid(text string) bool {
	if text == "" || len(text) <= f.MinTextLen {
		return false
	}
	if f.MaxTextLen > 0 && len(text) >= f.MaxTextLen {
		return false
	}
	if !strings.Contains(text, f.CurrencyMarker) {
		return false
	}
	for _, marker := range f.BannedMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// ValidLoose is the stricter-length, hint-requiring rule used when scanning
// all generic containers.
func (f CardFilter) ValidLoose(text string) bool {
	if len(text) <= f.FallbackMinLen {
		return false
	}
	if f.FallbackMaxLen > 0 && len(text) >= f.FallbackMaxLen {
		return false
	}
	if !strings.Contains(text, f.CurrencyMarker) {
		return false
	}
	hinted := false
	for _, hint := range f.FallbackHints {
		if strings.Contains(text, hint) {
			hinted = true
			break
		}
	}
	if !hinted {
		return false
	}
	for _, marker := range f.BannedMarkers {
		if strings.Contains(text, marker) {
			return false
		}
	}
	return true
}

// FindFlightCards tries the prioritized structural selectors, most
// site-specific first, and stops at the first selector whose matches pass
// the content filter. When every selector misses it falls back to scanning
// all generic containers with the loose rule; that scan has no upper bound,
// the content filter keeps false positives low.
func FindFlightCards(p cardSource, selectors []string, filter CardFilter, log logger.Logger) ([]Card, error) {
	for _, sel := range selectors {
		cards, err := p.CollectCards(sel, 0)
		if err != nil {
			log.Debug("card selector failed", "selector", sel, "err", err)
			continue
		}
		if len(cards) == 0 {
			continue
		}
		valid := make([]Card, 0, len(cards))
		for _, c := range cards {
			if filter.Valid(c.Text) {
				valid = append(valid, c)
			}
		}
		if len(valid) > 0 {
			log.Info("found valid flight cards", "selector", sel, "count", len(valid))
			return valid, nil
		}
	}

	log.Warn("structural selectors failed, scanning generic containers")
	divs, err := p.CollectCards("div", 0)
	if err != nil {
		return nil, err
	}
	potential := make([]Card, 0)
	for _, c := range divs {
		if filter.ValidLoose(c.Text) {
			potential = append(potential, c)
		}
	}
	log.Info("generic container fallback", "count", len(potential))
	return potential, nil
}

// RawFields holds per-card extracted text before normalization.
type RawFields struct {
	Airline    string
	FlightCode string
	Departure  string
	Arrival    string
	Duration   string
	Stops      string
}

// FieldSelectors are ranked CSS selector chains per field; the first
// non-empty match wins and overrides the free-text classification.
type FieldSelectors struct {
	Airline    []string
	FlightCode []string
	Departure  []string
	Arrival    []string
	Duration   []string
	Stops      []string
}

var (
	timeLineRe     = regexp.MustCompile(`^\d{1,2}:\d{2}$`)
	durationLineRe = regexp.MustCompile(`(?i)^\d+h\d*m?$`)
	codeLineRe     = regexp.MustCompile(`^[A-Z]{1,2}-?\d{2,5}$`)
)

var stopKeywords = []string{"stop", "via", "layover", "non-stop", "nonstop"}
var airlineSkipKeywords = []string{"free", "meal"}

// ClassifyCardLines splits the card's visible text into trimmed non-empty
// lines and classifies each by content. Precedence: currency lines are
// skipped (reserved for price), stop/layover keywords fill Stops, an
// hour+minute pattern fills Duration, short single-colon times fill
// Departure then Arrival, an alphanumeric pattern fills FlightCode, and the
// first remaining capitalized line of reasonable length becomes Airline.
func ClassifyCardLines(text, defaultStops string) RawFields {
	result := RawFields{Stops: defaultStops}

	for _, raw := range strings.Split(text, "\n") {
		line := strings.TrimSpace(raw)
		if line == "" || strings.Contains(line, "₹") {
			continue
		}
		lower := strings.ToLower(line)

		if containsAny(lower, stopKeywords) {
			result.Stops = line
			continue
		}
		if durationLineRe.MatchString(strings.ReplaceAll(line, " ", "")) {
			result.Duration = line
			continue
		}
		if timeLineRe.MatchString(line) {
			if result.Departure == "" {
				result.Departure = line
			} else if result.Arrival == "" {
				result.Arrival = line
			}
			continue
		}
		if codeLineRe.MatchString(strings.ReplaceAll(strings.ToUpper(line), " ", "")) {
			if result.FlightCode == "" {
				result.FlightCode = line
			}
			continue
		}
		if result.Airline == "" && len(line) > 3 && unicode.IsUpper(rune(line[0])) {
			if containsAny(lower, airlineSkipKeywords) || strings.Contains(line, "|") {
				continue
			}
			if !containsDigit(line) || len(line) > 12 {
				result.Airline = line
			}
		}
	}
	return result
}

// ExtractFields combines both extraction strategies: free-text line
// classification over the card text, then direct sub-element lookup through
// the ranked selector chains over the card's HTML. Selector hits, when
// non-empty, override the classified values.
func ExtractFields(card Card, selectors FieldSelectors, defaultStops string) RawFields {
	fields := ClassifyCardLines(card.Text, defaultStops)

	if strings.TrimSpace(card.HTML) == "" {
		return fields
	}
	doc, err := goquery.NewDocumentFromReader(strings.NewReader(card.HTML))
	if err != nil {
		return fields
	}

	overrideField(&fields.Airline, doc, selectors.Airline)
	overrideField(&fields.FlightCode, doc, selectors.FlightCode)
	overrideField(&fields.Departure, doc, selectors.Departure)
	overrideField(&fields.Arrival, doc, selectors.Arrival)
	overrideField(&fields.Duration, doc, selectors.Duration)
	overrideField(&fields.Stops, doc, selectors.Stops)
	return fields
}

func overrideField(dst *string, doc *goquery.Document, chain []string) {
	if v := firstBySelectors(doc, chain); v != "" {
		*dst = v
	}
}

func firstBySelectors(doc *goquery.Document, chain []string) string {
	for _, sel := range chain {
		if text := strings.TrimSpace(doc.Find(sel).First().Text()); text != "" {
			return text
		}
	}
	return ""
}

func containsAny(s string, keywords []string) bool {
	for _, kw := range keywords {
		if strings.Contains(s, kw) {
			return true
		}
	}
	return false
}

func containsDigit(s string) bool {
	for _, c := range s {
		if unicode.IsDigit(c) {
			return true
		}
	}
	return false
}
