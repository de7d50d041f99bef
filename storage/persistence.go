package storage

import (
	"database/sql"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	_ "github.com/lib/pq"

	"github.com/themehraaryan/costtofly/models"
)

type Config struct {
	OutputDir string

	// DBHost empty disables Postgres persistence; CSV snapshots are always
	// written.
	DBHost     string
	DBPort     int
	DBUser     string
	DBPassword string
	DBName     string
	DBSSLMode  string
}

var csvHeader = []string{
	"source",
	"airline",
	"flight_code",
	"departure",
	"arrival",
	"duration",
	"stops",
	"price",
	"timestamp",
}

// SaveResults writes one CSV snapshot per successful site plus a combined
// snapshot, and upserts everything into Postgres when a host is configured.
func SaveResults(results models.ScrapeResult, route models.Route, cfg Config) error {
	combined := flatten(results)
	if len(combined) == 0 {
		return errors.New("no flights scraped")
	}

	if err := os.MkdirAll(cfg.OutputDir, 0o755); err != nil {
		return fmt.Errorf("create output dir: %w", err)
	}
	stamp := time.Now().Format("20060102_150405")

	for site, records := range results {
		if len(records) == 0 {
			continue
		}
		name := fmt.Sprintf("flights_%s_%s.csv", strings.ToLower(site), stamp)
		if err := writeCSV(filepath.Join(cfg.OutputDir, name), records); err != nil {
			return err
		}
	}
	combinedPath := filepath.Join(cfg.OutputDir, fmt.Sprintf("flights_combined_%s.csv", stamp))
	if err := writeCSV(combinedPath, combined); err != nil {
		return err
	}

	if strings.TrimSpace(cfg.DBHost) != "" {
		if err := saveToDB(combined, route, cfg); err != nil {
			return err
		}
	}
	return nil
}

// flatten merges per-site slices into one deterministic slice, sites in
// name order.
func flatten(results models.ScrapeResult) []models.FlightRecord {
	sites := make([]string, 0, len(results))
	for site := range results {
		sites = append(sites, site)
	}
	sort.Strings(sites)

	var combined []models.FlightRecord
	for _, site := range sites {
		combined = append(combined, results[site]...)
	}
	return combined
}

func writeCSV(path string, records []models.FlightRecord) error {
	file, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv %s: %w", path, err)
	}
	defer file.Close()

	writer := csv.NewWriter(file)
	defer writer.Flush()

	if err := writer.Write(csvHeader); err != nil {
		return fmt.Errorf("write csv header: %w", err)
	}
	for _, r := range records {
		row := []string{
			r.Source,
			r.Airline,
			r.FlightCode,
			r.Departure,
			r.Arrival,
			r.Duration,
			r.Stops,
			strconv.Itoa(r.Price),
			r.Timestamp.Format(time.RFC3339),
		}
		if err := writer.Write(row); err != nil {
			return fmt.Errorf("write csv row: %w", err)
		}
	}
	if err := writer.Error(); err != nil {
		return fmt.Errorf("flush csv %s: %w", path, err)
	}
	return nil
}

func saveToDB(records []models.FlightRecord, route models.Route, cfg Config) error {
	if err := ensureDatabaseExists(cfg); err != nil {
		return err
	}

	dsn := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBName, cfg.DBSSLMode,
	)
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return fmt.Errorf("open postgres: %w", err)
	}
	defer db.Close()

	if err := pingWithRetry(db, 10, time.Second); err != nil {
		return fmt.Errorf("ping postgres: %w", err)
	}

	schema := `
CREATE TABLE IF NOT EXISTS flights (
	id BIGSERIAL PRIMARY KEY,
	source TEXT NOT NULL,
	airline TEXT NOT NULL DEFAULT 'Unknown',
	flight_code TEXT,
	departure TEXT NOT NULL,
	arrival TEXT NOT NULL,
	duration TEXT,
	stops TEXT,
	price INTEGER NOT NULL,
	search_departure TEXT NOT NULL,
	search_arrival TEXT NOT NULL,
	search_date TEXT NOT NULL,
	scraped_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
	UNIQUE (source, search_date, departure, arrival, price)
);`
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("create flights table: %w", err)
	}

	tx, err := db.Begin()
	if err != nil {
		return fmt.Errorf("begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.Prepare(`
INSERT INTO flights (source, airline, flight_code, departure, arrival, duration, stops, price, search_departure, search_arrival, search_date, scraped_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
ON CONFLICT (source, search_date, departure, arrival, price) DO UPDATE
SET airline = EXCLUDED.airline,
	flight_code = EXCLUDED.flight_code,
	duration = EXCLUDED.duration,
	stops = EXCLUDED.stops,
	scraped_at = EXCLUDED.scraped_at;
`)
	if err != nil {
		return fmt.Errorf("prepare upsert: %w", err)
	}
	defer stmt.Close()

	for _, r := range records {
		if _, err := stmt.Exec(
			r.Source, r.Airline, r.FlightCode, r.Departure, r.Arrival,
			r.Duration, r.Stops, r.Price,
			route.Departure, route.Arrival, route.Date, r.Timestamp,
		); err != nil {
			return fmt.Errorf("upsert flight %s %s->%s: %w", r.Source, r.Departure, r.Arrival, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit transaction: %w", err)
	}
	return nil
}

func pingWithRetry(db *sql.DB, attempts int, delay time.Duration) error {
	if attempts < 1 {
		attempts = 1
	}
	var lastErr error
	for i := 0; i < attempts; i++ {
		lastErr = db.Ping()
		if lastErr == nil {
			return nil
		}
		time.Sleep(delay)
	}
	return lastErr
}

func ensureDatabaseExists(cfg Config) error {
	adminDSN := fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=postgres sslmode=%s",
		cfg.DBHost, cfg.DBPort, cfg.DBUser, cfg.DBPassword, cfg.DBSSLMode,
	)
	adminDB, err := sql.Open("postgres", adminDSN)
	if err != nil {
		return fmt.Errorf("open postgres admin db: %w", err)
	}
	defer adminDB.Close()

	if err := adminDB.Ping(); err != nil {
		return fmt.Errorf("ping postgres admin db: %w", err)
	}

	dbName := strings.TrimSpace(cfg.DBName)
	if dbName == "" {
		return errors.New("database name is empty")
	}

	var exists int
	if err := adminDB.QueryRow(`SELECT 1 FROM pg_database WHERE datname = $1`, dbName).Scan(&exists); err == nil && exists == 1 {
		return nil
	}

	escaped := strings.ReplaceAll(dbName, `"`, `""`)
	if _, err := adminDB.Exec(fmt.Sprintf(`CREATE DATABASE "%s"`, escaped)); err != nil {
		return fmt.Errorf("create database %q: %w", dbName, err)
	}
	return nil
}
