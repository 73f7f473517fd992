package repository

import (
	"context"
	"fmt"
	"time"

	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/pkg/database"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
)

// FactRepository persists fact rows into the analytics warehouse.
// The target table has no primary key; repeated runs append, never upsert.
type FactRepository interface {
	InsertFactsBatch(ctx context.Context, facts []models.FactRecord) error
}

type factRepository struct {
	db      *database.PostgresDB
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFactRepository creates a fact repository
func NewFactRepository(db *database.PostgresDB, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) FactRepository {
	return &factRepository{
		db:      db,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// InsertFactsBatch inserts all fact rows in a single transaction. Every row
// is validated before the transaction opens; a malformed row aborts the whole
// batch so the sink never receives a partially conformant set.
func (r *factRepository) InsertFactsBatch(ctx context.Context, facts []models.FactRecord) error {
	if len(facts) == 0 {
		return nil
	}

	for i := range facts {
		if err := facts[i].Validate(); err != nil {
			return fmt.Errorf("fact row %d invalid: %w", i, err)
		}
	}

	timer := time.Now()
	defer func() {
		duration := time.Since(timer)
		r.metrics.LoadDuration.Observe(duration.Seconds())
		r.metrics.LoadBatchSize.Observe(float64(len(facts)))
		r.logger.Debug(ctx, "[FACT_BATCH_INSERT] Batch insert completed", logging.Fields{
			"count":       len(facts),
			"duration_ms": duration.Milliseconds(),
		})
	}()

	tx, err := r.db.BeginTx(ctx)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO analytics.fact_shipments_weather (
			shipment_id, city_id, timestamp, fuel_consumed_liters,
			temperature_2m, windspeed_10m, precipitation, weathercode
		)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, f := range facts {
		_, err := stmt.ExecContext(ctx,
			f.ShipmentID,
			f.CityID,
			f.Timestamp,
			f.FuelConsumedLiters,
			f.Temperature2m,
			f.Windspeed10m,
			f.Precipitation,
			f.WeatherCode,
		)
		if err != nil {
			return fmt.Errorf("failed to insert fact row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}
