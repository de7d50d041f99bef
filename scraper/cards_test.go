package scraper

import (
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themehraaryan/costtofly/logger"
)

type fakeCardSource struct {
	bySelector map[string][]Card
	errs       map[string]error
}

func (f *fakeCardSource) CollectCards(selector string, limit int) ([]Card, error) {
	if err, ok := f.errs[selector]; ok {
		return nil, err
	}
	return f.bySelector[selector], nil
}

func flightCardText(i int) string {
	return fmt.Sprintf("IndiGo\n6E-20%d\n06:15\n2h 10m\n08:25\nNon stop\n₹%d,629", i, 5+i%3)
}

func TestFindFlightCardsFiltersBanners(t *testing.T) {
	cards := make([]Card, 0, 15)
	for i := 0; i < 12; i++ {
		cards = append(cards, Card{Text: flightCardText(i)})
	}
	cards = append(cards,
		Card{Text: "Get Flat ₹1,500 OFF on your first booking with code WELCOME"},
		Card{Text: "Lock this price now and pay later, fares from ₹4,999 may change"},
		Card{Text: "COMPARE fares across dates and save more, starting ₹3,499 only"},
	)

	src := &fakeCardSource{bySelector: map[string][]Card{"div.listingCard": cards}}
	found, err := FindFlightCards(src, []string{"div.listingCard"}, DefaultCardFilter(), logger.Nop())

	require.NoError(t, err)
	assert.Len(t, found, 12)
}

func TestFindFlightCardsFallsBackToGenericContainers(t *testing.T) {
	src := &fakeCardSource{bySelector: map[string][]Card{
		"div.listingCard": nil,
		"div": {
			{Text: flightCardText(1)},
			{Text: "nav"},
			{Text: "Subscribe to our newsletter for deals and updates on flights and hotels"},
		},
	}}

	found, err := FindFlightCards(src, []string{"div.listingCard"}, DefaultCardFilter(), logger.Nop())
	require.NoError(t, err)
	require.Len(t, found, 1)
	assert.Contains(t, found[0].Text, "IndiGo")
}

func TestFindFlightCardsSkipsFailingSelector(t *testing.T) {
	src := &fakeCardSource{
		bySelector: map[string][]Card{"div.backup": {{Text: flightCardText(1)}}},
		errs:       map[string]error{"div.primary": fmt.Errorf("selector crashed")},
	}

	found, err := FindFlightCards(src, []string{"div.primary", "div.backup"}, DefaultCardFilter(), logger.Nop())
	require.NoError(t, err)
	assert.Len(t, found, 1)
}

func TestCardFilterValid(t *testing.T) {
	filter := DefaultCardFilter()

	assert.True(t, filter.Valid(flightCardText(1)))
	assert.False(t, filter.Valid(""))
	assert.False(t, filter.Valid("IndiGo 06:15 08:25 2h 10m Non stop"), "no currency marker")
	assert.False(t, filter.Valid("Get Flat ₹1,500 OFF plus extra cashback on first booking"))
}

func TestCardFilterValidLooseBounds(t *testing.T) {
	filter := DefaultCardFilter()

	assert.True(t, filter.ValidLoose(flightCardText(1)))
	assert.False(t, filter.ValidLoose("₹5,629 06:15"), "below fallback minimum length")
	assert.False(t, filter.ValidLoose("₹5,629 06:15 "+strings.Repeat("x", 1000)), "above fallback maximum length")

	// the bounds come from the filter, not from constants
	filter.FallbackMinLen = 5
	filter.FallbackMaxLen = 0
	assert.True(t, filter.ValidLoose("₹5,629 06:15"))
	assert.True(t, filter.ValidLoose("₹5,629 06:15 "+strings.Repeat("x", 1000)))
}

func TestClassifyCardLines(t *testing.T) {
	text := "IndiGo\nAI-441\n06:15\n2h 10m\n08:25\n1 Stop via BOM\n₹5,629"
	fields := ClassifyCardLines(text, "Non stop")

	assert.Equal(t, "IndiGo", fields.Airline)
	assert.Equal(t, "AI-441", fields.FlightCode)
	assert.Equal(t, "06:15", fields.Departure)
	assert.Equal(t, "08:25", fields.Arrival)
	assert.Equal(t, "2h 10m", fields.Duration)
	assert.Equal(t, "1 Stop via BOM", fields.Stops)
}

func TestClassifyCardLinesDefaults(t *testing.T) {
	fields := ClassifyCardLines("06:15\n08:25\n₹5,629", "Non stop")

	assert.Empty(t, fields.Airline)
	assert.Equal(t, "Non stop", fields.Stops, "default stops kept when no stop line present")
	assert.Equal(t, "06:15", fields.Departure)
	assert.Equal(t, "08:25", fields.Arrival)
}

func TestClassifyCardLinesSkipsPromoAsAirline(t *testing.T) {
	fields := ClassifyCardLines("Free Meal included\nVistara\n09:40\n11:55", "Non stop")
	assert.Equal(t, "Vistara", fields.Airline)
}

func TestExtractFieldsSelectorOverridesClassifier(t *testing.T) {
	card := Card{
		Text: "SpiceJet\n07:30\n09:45\n₹4,899",
		HTML: `<div class="listingCard">
			<p class="airlineName">Air India Express</p>
			<p class="fliCode">IX-112</p>
			<div class="timeInfoLeft"><p class="flightTimeInfo"><span>07:30</span></p></div>
			<div class="timeInfoRight"><p class="flightTimeInfo"><span>09:45</span></p></div>
		</div>`,
	}
	selectors := FieldSelectors{
		Airline:    []string{"p.airlineName"},
		FlightCode: []string{"p.fliCode"},
		Departure:  []string{"div.timeInfoLeft p.flightTimeInfo span"},
		Arrival:    []string{"div.timeInfoRight p.flightTimeInfo span"},
	}

	fields := ExtractFields(card, selectors, "Non stop")

	assert.Equal(t, "Air India Express", fields.Airline, "selector hit overrides classified airline")
	assert.Equal(t, "IX-112", fields.FlightCode)
	assert.Equal(t, "07:30", fields.Departure)
	assert.Equal(t, "09:45", fields.Arrival)
}

func TestExtractFieldsFallsBackToClassifier(t *testing.T) {
	card := Card{Text: "Akasa Air\n10:05\n12:20\n₹5,150", HTML: "<div><span>unrelated</span></div>"}

	fields := ExtractFields(card, FieldSelectors{Airline: []string{"p.airlineName"}}, "Non stop")
	assert.Equal(t, "Akasa Air", fields.Airline)
	assert.Equal(t, "10:05", fields.Departure)
	assert.Equal(t, "12:20", fields.Arrival)
}
