package repository

import (
	"context"
	"fmt"

	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/pkg/database"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
)

// CatalogRepository provides read access to the shipments schema.
// All reads are single-shot; the pipeline never writes these tables.
type CatalogRepository interface {
	// ListGeocodedCities returns the locations to query against the weather
	// archive: catalog cities that carry both coordinates.
	ListGeocodedCities(ctx context.Context) ([]models.Location, error)

	// ListCities returns catalog rows with their ids for the fact join.
	ListCities(ctx context.Context) ([]models.City, error)

	// ListShipments returns the shipment attributes the fact join consumes.
	ListShipments(ctx context.Context) ([]models.Shipment, error)
}

type catalogRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewCatalogRepository creates a catalog repository
func NewCatalogRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) CatalogRepository {
	return &catalogRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

func (r *catalogRepository) ListGeocodedCities(ctx context.Context) ([]models.Location, error) {
	query := `
		SELECT name, latitude, longitude
		FROM shipments.cities
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
	`

	var locations []models.Location
	if err := r.db.SelectContext(ctx, "list_geocoded_cities", &locations, query); err != nil {
		return nil, fmt.Errorf("failed to list geocoded cities: %w", err)
	}

	r.logger.Info(ctx, "[CATALOG_CITIES] Fetched geocoded cities", logging.Fields{
		"count": len(locations),
	})

	return locations, nil
}

func (r *catalogRepository) ListCities(ctx context.Context) ([]models.City, error) {
	// Cities without coordinates can never match an observation keyed on
	// (name, latitude, longitude), so they are filtered at the source.
	query := `
		SELECT id, name, latitude, longitude
		FROM shipments.cities
		WHERE latitude IS NOT NULL AND longitude IS NOT NULL
	`

	var cities []models.City
	if err := r.db.SelectContext(ctx, "list_cities", &cities, query); err != nil {
		return nil, fmt.Errorf("failed to list cities: %w", err)
	}

	return cities, nil
}

func (r *catalogRepository) ListShipments(ctx context.Context) ([]models.Shipment, error) {
	query := `
		SELECT id, start_location, shipment_start_timestamp, consumed_fuel
		FROM shipments.shipments
	`

	var shipments []models.Shipment
	if err := r.db.SelectContext(ctx, "list_shipments", &shipments, query); err != nil {
		return nil, fmt.Errorf("failed to list shipments: %w", err)
	}

	r.logger.Info(ctx, "[CATALOG_SHIPMENTS] Fetched shipments", logging.Fields{
		"count": len(shipments),
	})

	return shipments, nil
}
