package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/themehraaryan/costtofly/models"
)

func sampleRecord(source string, price int) models.FlightRecord {
	return models.FlightRecord{
		Source:     source,
		Airline:    "IndiGo",
		FlightCode: "6E-203",
		Departure:  "06:15",
		Arrival:    "08:25",
		Duration:   "2h 10m",
		Stops:      "Non stop",
		Price:      price,
		Timestamp:  time.Date(2026, 9, 1, 10, 30, 0, 0, time.UTC),
	}
}

func TestSaveResultsWritesCSVSnapshots(t *testing.T) {
	dir := t.TempDir()
	results := models.ScrapeResult{
		models.SourceMakeMyTrip: {sampleRecord(models.SourceMakeMyTrip, 5629), sampleRecord(models.SourceMakeMyTrip, 6100)},
		models.SourceGoibibo:    {sampleRecord(models.SourceGoibibo, 5271)},
		models.SourceCleartrip:  nil,
	}
	route := models.Route{Departure: "DEL", Arrival: "BOM", Date: "15/09/2026"}

	err := SaveResults(results, route, Config{OutputDir: dir})
	require.NoError(t, err)

	perSite, err := filepath.Glob(filepath.Join(dir, "flights_makemytrip_*.csv"))
	require.NoError(t, err)
	require.Len(t, perSite, 1)

	// the failed site gets no snapshot
	empty, err := filepath.Glob(filepath.Join(dir, "flights_cleartrip_*.csv"))
	require.NoError(t, err)
	assert.Empty(t, empty)

	combined, err := filepath.Glob(filepath.Join(dir, "flights_combined_*.csv"))
	require.NoError(t, err)
	require.Len(t, combined, 1)

	file, err := os.Open(combined[0])
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 4, "header plus three flights")
	assert.Equal(t, csvHeader, rows[0])

	// sites are ordered by name, Goibibo before MakeMyTrip
	assert.Equal(t, models.SourceGoibibo, rows[1][0])
	assert.Equal(t, "5271", rows[1][7])
	assert.Equal(t, models.SourceMakeMyTrip, rows[2][0])
}

func TestSaveResultsRejectsEmptyRun(t *testing.T) {
	results := models.ScrapeResult{models.SourceGoibibo: nil}
	route := models.Route{Departure: "DEL", Arrival: "BOM", Date: "15/09/2026"}

	err := SaveResults(results, route, Config{OutputDir: t.TempDir()})
	assert.Error(t, err)
}

func TestFlattenDeterministicOrder(t *testing.T) {
	results := models.ScrapeResult{
		"ZSite": {sampleRecord("ZSite", 7000)},
		"ASite": {sampleRecord("ASite", 5000)},
	}

	combined := flatten(results)
	require.Len(t, combined, 2)
	assert.Equal(t, "ASite", combined[0].Source)
	assert.Equal(t, "ZSite", combined[1].Source)
}
