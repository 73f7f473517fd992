package services

import (
	"context"
	"time"

	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
)

// HourlyFetcher fetches the hourly weather series for one location.
// A fetcher that exhausts its retries reports zero observations.
type HourlyFetcher interface {
	FetchHourly(ctx context.Context, loc models.Location, interval models.DateInterval, variables []string) []models.WeatherObservation
}

// CollectorService drives the weather fetcher across all catalog locations
// and accumulates one flat observation table.
type CollectorService struct {
	fetcher HourlyFetcher
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// CollectResult contains collection statistics
type CollectResult struct {
	TotalLocations  int
	FailedLocations int
	Observations    int
	Duration        time.Duration
}

// NewCollectorService creates a new collector service
func NewCollectorService(fetcher HourlyFetcher, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *CollectorService {
	return &CollectorService{
		fetcher: fetcher,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// Collect fetches weather for every location sequentially. A location that
// yields nothing is counted and skipped; the run continues with partial
// coverage. Each fetch result is self-contained, so accumulation is plain
// concatenation and downstream steps must not depend on row order.
func (s *CollectorService) Collect(ctx context.Context, locations []models.Location, interval models.DateInterval, variables []string) ([]models.WeatherObservation, *CollectResult) {
	startTime := time.Now()

	s.logger.Info(ctx, "[COLLECT_START] Starting weather collection", logging.Fields{
		"locations":  len(locations),
		"start_date": interval.Start.Format("2006-01-02"),
		"end_date":   interval.End.Format("2006-01-02"),
		"variables":  variables,
	})

	result := &CollectResult{
		TotalLocations: len(locations),
	}

	var observations []models.WeatherObservation
	for _, loc := range locations {
		obs := s.fetcher.FetchHourly(ctx, loc, interval, variables)
		if len(obs) == 0 {
			result.FailedLocations++
			s.metrics.LocationsFailedTotal.Inc()
			s.logger.Warn(ctx, "[COLLECT_LOCATION_EMPTY] Location contributed no observations", logging.Fields{
				"city": loc.Name,
			})
			continue
		}

		observations = append(observations, obs...)
		s.metrics.ObservationsCollected.Add(float64(len(obs)))

		s.logger.Debug(ctx, "[COLLECT_LOCATION_DONE] Location fetched", logging.Fields{
			"city":         loc.Name,
			"observations": len(obs),
		})
	}

	result.Observations = len(observations)
	result.Duration = time.Since(startTime)

	s.logger.Info(ctx, "[COLLECT_COMPLETE] Weather collection completed", logging.Fields{
		"total_locations":  result.TotalLocations,
		"failed_locations": result.FailedLocations,
		"observations":     result.Observations,
		"duration_seconds": result.Duration.Seconds(),
	})

	return observations, result
}
