package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"shipment-weather-etl/internal/config"
	"shipment-weather-etl/internal/repository"
	"shipment-weather-etl/internal/services"
	"shipment-weather-etl/internal/storage"
	"shipment-weather-etl/pkg/database"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
)

func main() {
	weatherPath := flag.String("weather-csv", "", "Override the weather CSV input path")
	skipLoad := flag.Bool("skip-load", false, "Build the fact CSV without loading the warehouse")
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

	if *weatherPath != "" {
		cfg.Paths.WeatherCSV = *weatherPath
	}

	// Initialize logger
	logLevel := logging.InfoLevel
	if cfg.Logging.Level == "debug" {
		logLevel = logging.DebugLevel
	}

	logger := logging.NewStructuredLogger("fact-build", "1.0.0", logLevel)

	ctx := context.Background()
	logger.Info(ctx, "[FACT_START] Starting fact table build", logging.Fields{
		"version":     "1.0.0",
		"weather_csv": cfg.Paths.WeatherCSV,
		"fact_csv":    cfg.Paths.FactCSV,
		"skip_load":   *skipLoad,
	})

	// Initialize metrics collector
	metricsCollector := metrics.NewCollector("fact_build")

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
		logger.Fatal(ctx, "[FACT_ERROR] Failed to connect to database", logging.Fields{}, err)
	}
	defer db.Close()

	catalogRepo := repository.NewCatalogRepository(db, logger, metricsCollector)

	// Load the three input tables. A failed source read halts the run with
	// an empty result; nothing downstream is attempted.
	shipments, err := catalogRepo.ListShipments(ctx)
	if err != nil {
		logger.Error(ctx, "[FACT_SOURCE_ERROR] Failed to read shipments", logging.Fields{}, err)
		return
	}

	cities, err := catalogRepo.ListCities(ctx)
	if err != nil {
		logger.Error(ctx, "[FACT_SOURCE_ERROR] Failed to read cities", logging.Fields{}, err)
		return
	}

	weather, err := storage.ReadObservations(cfg.Paths.WeatherCSV)
	if err != nil {
		logger.Error(ctx, "[FACT_SOURCE_ERROR] Failed to read weather CSV", logging.Fields{
			"path": cfg.Paths.WeatherCSV,
		}, err)
		return
	}

	// Build the fact table
	factService := services.NewFactService(logger, metricsCollector)
	facts := factService.BuildFactTable(ctx, shipments, cities, weather)
	if len(facts) == 0 {
		logger.Warn(ctx, "[FACT_EMPTY] Fact table is empty, persistence skipped", logging.Fields{})
		return
	}

	// Persist the fact CSV artifact
	if err := storage.WriteFacts(cfg.Paths.FactCSV, facts); err != nil {
		logger.Error(ctx, "[FACT_WRITE_ERROR] Failed to write fact CSV", logging.Fields{
			"path": cfg.Paths.FactCSV,
		}, err)
		os.Exit(1)
	}

	// Load the warehouse
	if !*skipLoad {
		factRepo := repository.NewFactRepository(db, logger, metricsCollector)
		if err := factRepo.InsertFactsBatch(ctx, facts); err != nil {
			logger.Error(ctx, "[FACT_LOAD_ERROR] Failed to load fact table", logging.Fields{
				"rows": len(facts),
			}, err)
			os.Exit(1)
		}
	}

	// Print results
	fmt.Println(strings.Repeat("=", 80))
	fmt.Println("FACT TABLE BUILD COMPLETE")
	fmt.Println(strings.Repeat("=", 80))
	fmt.Printf("Shipments:    %d\n", len(shipments))
	fmt.Printf("Cities:       %d\n", len(cities))
	fmt.Printf("Observations: %d\n", len(weather))
	fmt.Printf("Fact Rows:    %d\n", len(facts))
	fmt.Printf("Fact CSV:     %s\n", cfg.Paths.FactCSV)
	if !*skipLoad {
		fmt.Println("Warehouse:    analytics.fact_shipments_weather (appended)")
	}

	logger.Info(ctx, "[FACT_COMPLETE] Fact table build completed", logging.Fields{
		"fact_rows": len(facts),
		"loaded":    !*skipLoad,
	})
}
