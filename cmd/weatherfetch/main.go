package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"strings"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"shipment-weather-etl/internal/config"
	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/internal/openmeteo"
	"shipment-weather-etl/internal/repository"
	"shipment-weather-etl/internal/services"
	"shipment-weather-etl/internal/storage"
	"shipment-weather-etl/pkg/database"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
	"shipment-weather-etl/pkg/retry"
)

func main() {
	outputPath := flag.String("output", "", "Override the weather CSV output path")
	flag.Parse()

	// Load configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid configuration: %v\n", err)
		os.Exit(1)
	}

	if *outputPath != "" {
		cfg.Paths.WeatherCSV = *outputPath
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("weather-fetch", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[FETCH_START] Starting weather data collection", logging.Fields{
		"version":    "1.0.0",
		"start_date": cfg.Weather.StartDate.Format("2006-01-02"),
		"end_date":   cfg.Weather.EndDate.Format("2006-01-02"),
		"variables":  cfg.Weather.Variables,
		"output":     cfg.Paths.WeatherCSV,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("weather_fetch")

	// Initialize database
	dbConfig := &database.Config{
		Host:            cfg.Database.Host,
		Port:            cfg.Database.Port,
		User:            cfg.Database.User,
		Password:        cfg.Database.Password,
		Database:        cfg.Database.Database,
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		ConnMaxIdleTime: cfg.Database.ConnMaxIdleTime,
	}

	db, err := database.NewPostgresDB(dbConfig, logger, metricsCollector)
	if err != nil {
		logger.Fatal(ctx, "[FETCH_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	// Expose metrics while the run is in flight so a scraper can observe
	// long collection runs; disabled when METRICS_ADDR is unset.
	if cfg.Metrics.Addr != "" {
		go serveMetrics(cfg.Metrics.Addr, db, logger)
	}

	// Read the geocoded locations to query
	catalogRepo := repository.NewCatalogRepository(db, logger, metricsCollector)

	locations, err := catalogRepo.ListGeocodedCities(ctx)
	if err != nil {
		// Catalog unavailability is fatal to the run; there is nothing to iterate.
		logger.Error(ctx, "[FETCH_SOURCE_ERROR] Failed to read city catalog", logging.Fields{}, err)
		os.Exit(1)
	}
	if len(locations) == 0 {
		logger.Warn(ctx, "[FETCH_NO_CITIES] No geocoded cities to process", logging.Fields{})
		return
	}

	// Initialize the weather client and collector
	policy := retry.NewPolicy(cfg.Weather.Retries, cfg.Weather.RetryDelay)
	client := openmeteo.NewClient(cfg.Weather.BaseURL, cfg.Weather.RequestTimeout, policy, logger, metricsCollector)
	collector := services.NewCollectorService(client, logger, metricsCollector)

	interval := models.DateInterval{
		Start: cfg.Weather.StartDate,
		End:   cfg.Weather.EndDate,
	}

	observations, result := collector.Collect(ctx, locations, interval, cfg.Weather.Variables)
	if len(observations) == 0 {
		logger.Warn(ctx, "[FETCH_NO_DATA] No weather data was collected", logging.Fields{
			"failed_locations": result.FailedLocations,
		})
		return
	}

	// Persist the hand-off artifact
	if err := storage.WriteObservations(cfg.Paths.WeatherCSV, observations); err != nil {
		logger.Fatal(ctx, "[FETCH_WRITE_ERROR] Failed to write weather CSV", logging.Fields{
			"path": cfg.Paths.WeatherCSV,
		}, err)
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("WEATHER COLLECTION COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Total Locations:  %d\n", result.TotalLocations)
	fmt.Printf("Failed Locations: %d\n", result.FailedLocations)
	fmt.Printf("Observations:     %d\n", result.Observations)
	fmt.Printf("Duration:         %v\n", result.Duration)
	fmt.Printf("Output:           %s\n", cfg.Paths.WeatherCSV)

	logger.Info(ctx, "[FETCH_COMPLETE] Weather data collection completed", logging.Fields{
		"observations":     result.Observations,
		"failed_locations": result.FailedLocations,
		"duration_seconds": result.Duration.Seconds(),
		"output":           cfg.Paths.WeatherCSV,
	})
}

// healthChecker reports whether the backing store is reachable.
type healthChecker interface {
	HealthCheck(ctx context.Context) error
}

// healthzHandler answers 200 while the database responds and 503 once it stops.
func healthzHandler(checker healthChecker) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if err := checker.HealthCheck(r.Context()); err != nil {
			w.WriteHeader(http.StatusServiceUnavailable)
			fmt.Fprintln(w, "unhealthy")
			return
		}
		w.WriteHeader(http.StatusOK)
		fmt.Fprintln(w, "ok")
	}
}

// serveMetrics runs the Prometheus scrape endpoint for the duration of the run.
func serveMetrics(addr string, checker healthChecker, logger *logging.StructuredLogger) {
	router := mux.NewRouter()
	router.Handle("/metrics", promhttp.Handler())
	router.HandleFunc("/healthz", healthzHandler(checker))

	server := &http.Server{
		Addr:         addr,
		Handler:      router,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logger.Info(context.Background(), "[METRICS_LISTEN] Serving metrics", logging.Fields{
		"addr": addr,
	})

	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logger.Error(context.Background(), "[METRICS_ERROR] Metrics listener failed", logging.Fields{
			"addr": addr,
		}, err)
	}
}
