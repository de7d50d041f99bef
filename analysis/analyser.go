package analysis

import (
	"fmt"
	"sort"
	"strings"

	"github.com/themehraaryan/costtofly/models"
	"github.com/themehraaryan/costtofly/scraper"
)

// Summary holds the cross-site metrics computed from one scrape run.
type Summary struct {
	Total          int
	PerSite        map[string]int
	Cheapest       *models.FlightRecord
	CheapestBySite map[string]models.FlightRecord
	AveragePrice   float64
	Fastest        *models.FlightRecord
}

// Summarise walks every record in the result map. Sites with nil slices
// simply contribute nothing; flights with the unknown-duration sentinel are
// skipped when picking the fastest flight.
func Summarise(results models.ScrapeResult) Summary {
	summary := Summary{
		PerSite:        make(map[string]int, len(results)),
		CheapestBySite: make(map[string]models.FlightRecord, len(results)),
	}

	priceSum := 0
	fastestMinutes := scraper.UnknownDurationMinutes

	for site, records := range results {
		summary.PerSite[site] = len(records)
		for i := range records {
			r := records[i]
			summary.Total++
			priceSum += r.Price

			if summary.Cheapest == nil || r.Price < summary.Cheapest.Price {
				summary.Cheapest = &records[i]
			}
			if best, ok := summary.CheapestBySite[site]; !ok || r.Price < best.Price {
				summary.CheapestBySite[site] = r
			}

			minutes := scraper.ParseDurationMinutes(r.Duration)
			if minutes < fastestMinutes {
				fastestMinutes = minutes
				summary.Fastest = &records[i]
			}
		}
	}

	if summary.Total > 0 {
		summary.AveragePrice = float64(priceSum) / float64(summary.Total)
	}
	return summary
}

// Report renders the summary as a human-readable block for stdout.
func Report(summary Summary, route models.Route) string {
	var b strings.Builder

	fmt.Fprintf(&b, "\n================ Flight Search Insights ================\n")
	fmt.Fprintf(&b, "Route: %s -> %s on %s\n", route.Departure, route.Arrival, route.Date)
	fmt.Fprintf(&b, "Total flights found: %d\n", summary.Total)

	sites := make([]string, 0, len(summary.PerSite))
	for site := range summary.PerSite {
		sites = append(sites, site)
	}
	sort.Strings(sites)
	for _, site := range sites {
		fmt.Fprintf(&b, "  %-12s %d flights", site, summary.PerSite[site])
		if best, ok := summary.CheapestBySite[site]; ok {
			fmt.Fprintf(&b, " (cheapest ₹%d, %s)", best.Price, best.Airline)
		}
		fmt.Fprintln(&b)
	}

	if summary.Cheapest != nil {
		c := summary.Cheapest
		fmt.Fprintf(&b, "Cheapest overall: ₹%d | %s %s | %s -> %s | %s (%s)\n",
			c.Price, c.Airline, c.FlightCode, c.Departure, c.Arrival, c.Duration, c.Source)
	}
	if summary.Fastest != nil {
		f := summary.Fastest
		fmt.Fprintf(&b, "Fastest flight:   %s | %s %s | ₹%d (%s)\n",
			f.Duration, f.Airline, f.FlightCode, f.Price, f.Source)
	}
	if summary.Total > 0 {
		fmt.Fprintf(&b, "Average price:    ₹%.0f\n", summary.AveragePrice)
	}
	fmt.Fprintf(&b, "========================================================\n")

	return b.String()
}
