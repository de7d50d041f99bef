package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"

	"github.com/themehraaryan/costtofly/analysis"
	"github.com/themehraaryan/costtofly/logger"
	"github.com/themehraaryan/costtofly/models"
	"github.com/themehraaryan/costtofly/scraper"
	"github.com/themehraaryan/costtofly/storage"
	"github.com/themehraaryan/costtofly/utils"
)

func main() {
	// .env is optional; real deployments pass everything through the
	// environment.
	_ = godotenv.Load()

	var (
		inputPath = flag.String("input", utils.EnvOrDefault("COSTTOFLY_INPUT", "input.json"), "path to the route input JSON")
		departure = flag.String("from", "", "departure airport code, overrides the input file")
		arrival   = flag.String("to", "", "arrival airport code, overrides the input file")
		date      = flag.String("date", "", "travel date DD/MM/YYYY, overrides the input file")

		headless  = flag.Bool("headless", utils.EnvBoolOrDefault("COSTTOFLY_HEADLESS", true), "run the browser headless")
		debug     = flag.Bool("debug", utils.EnvBoolOrDefault("COSTTOFLY_DEBUG", false), "verbose logging plus screenshot/HTML capture on failures")
		logsDir   = flag.String("logs-dir", utils.EnvOrDefault("COSTTOFLY_LOGS_DIR", "Logs"), "directory for log files and debug captures")
		outputDir = flag.String("output-dir", utils.EnvOrDefault("COSTTOFLY_OUTPUT_DIR", "Results"), "directory for CSV snapshots")

		dbHost     = flag.String("db-host", utils.EnvOrDefault("COSTTOFLY_DB_HOST", ""), "postgres host, empty disables DB persistence")
		dbPort     = flag.Int("db-port", utils.EnvIntOrDefault("COSTTOFLY_DB_PORT", 5432), "postgres port")
		dbUser     = flag.String("db-user", utils.EnvOrDefault("COSTTOFLY_DB_USER", "postgres"), "postgres user")
		dbPassword = flag.String("db-password", utils.EnvOrDefault("COSTTOFLY_DB_PASSWORD", ""), "postgres password")
		dbName     = flag.String("db-name", utils.EnvOrDefault("COSTTOFLY_DB_NAME", "costtofly"), "postgres database")
		dbSSLMode  = flag.String("db-sslmode", utils.EnvOrDefault("COSTTOFLY_DB_SSLMODE", "disable"), "postgres sslmode")
	)
	flag.Parse()

	route, err := loadRoute(*inputPath, *departure, *arrival, *date)
	if err != nil {
		fmt.Fprintf(os.Stderr, "invalid route: %v\n", err)
		os.Exit(1)
	}

	log, err := logger.New(*logsDir, *debug)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer log.Sync()

	cfg := scraper.DefaultConfig()
	cfg.Headless = *headless
	cfg.DebugCapture = *debug
	cfg.LogsDir = *logsDir

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	ok, results := scraper.NewOrchestrator(cfg, log, route).Run(ctx)

	summary := analysis.Summarise(results)
	fmt.Print(analysis.Report(summary, route))

	if summary.Total > 0 {
		storageCfg := storage.Config{
			OutputDir:  *outputDir,
			DBHost:     *dbHost,
			DBPort:     *dbPort,
			DBUser:     *dbUser,
			DBPassword: *dbPassword,
			DBName:     *dbName,
			DBSSLMode:  *dbSSLMode,
		}
		if err := storage.SaveResults(results, route, storageCfg); err != nil {
			log.Error("saving results failed", "err", err)
			os.Exit(1)
		}
		log.Info("results saved", "dir", *outputDir, "flights", summary.Total)
	}

	if !ok {
		log.Error("all sites failed, nothing scraped")
		os.Exit(1)
	}
}

// loadRoute reads the route from the input file and applies any flag
// overrides before validating.
func loadRoute(path, departure, arrival, date string) (models.Route, error) {
	var route models.Route

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := json.Unmarshal(data, &route); err != nil {
			return route, fmt.Errorf("parse %s: %w", path, err)
		}
	case os.IsNotExist(err) && departure != "" && arrival != "" && date != "":
		// fully specified on the command line, file not needed
	default:
		return route, fmt.Errorf("read %s: %w", path, err)
	}

	if departure != "" {
		route.Departure = departure
	}
	if arrival != "" {
		route.Arrival = arrival
	}
	if date != "" {
		route.Date = date
	}

	if err := route.Validate(); err != nil {
		return route, err
	}
	return route, nil
}
