package services

import (
	"context"

	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
)

// FactService reconciles shipments, catalog cities, and weather observations
// into the fact table. The join runs in two distinct steps: a left hash-join
// of observations to catalog cities on (normalized name, latitude, longitude),
// then an inner hash-join of shipments to the enriched observations on
// (normalized name, hourly timestamp).
type FactService struct {
	logger  *logging.StructuredLogger
	metrics *metrics.Collector
}

// NewFactService creates a new fact service
func NewFactService(logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *FactService {
	return &FactService{
		logger:  logger,
		metrics: metricsCollector,
	}
}

// cityKey identifies a catalog city after name normalization.
type cityKey struct {
	name string
	lat  float64
	lon  float64
}

// hourKey identifies an observation hour after name normalization and
// hour-flooring. The hour is a formatted string so observations parsed from
// CSV and shipment timestamps scanned from Postgres compare by wall-clock
// value regardless of time.Time internals.
type hourKey struct {
	name string
	hour string
}

const hourKeyLayout = "2006-01-02T15"

// enrichedObservation is an observation carrying its catalog city id (nil
// when no city matched) and precomputed join keys.
type enrichedObservation struct {
	obs    models.WeatherObservation
	cityID *int64
	key    hourKey
}

// BuildFactTable produces one fact row per (shipment, matching observation)
// pair. An empty input table is a precondition failure: the join is skipped
// with a warning and an empty result returned. A shipment with no observation
// at its hour is dropped; duplicate observations for the same hour fan out
// into multiple fact rows.
func (s *FactService) BuildFactTable(ctx context.Context, shipments []models.Shipment, cities []models.City, weather []models.WeatherObservation) []models.FactRecord {
	if len(shipments) == 0 || len(cities) == 0 || len(weather) == 0 {
		s.metrics.RecordJoinReject("empty_input")
		s.logger.Warn(ctx, "[JOIN_EMPTY_INPUT] One or more input tables are empty", logging.Fields{
			"shipments": len(shipments),
			"cities":    len(cities),
			"weather":   len(weather),
		})
		return nil
	}

	timer := s.metrics.NewTimer(s.metrics.JoinDuration)
	defer timer.ObserveDuration()

	enriched := s.enrichWeather(weather, cities)
	facts := s.joinShipments(shipments, enriched)

	if len(facts) == 0 {
		s.metrics.RecordJoinReject("no_matches")
		s.logger.Warn(ctx, "[JOIN_NO_MATCHES] No shipment matched a weather observation", logging.Fields{
			"shipments": len(shipments),
			"weather":   len(weather),
		})
		return nil
	}

	s.metrics.FactRowsTotal.Add(float64(len(facts)))
	s.logger.Info(ctx, "[JOIN_COMPLETE] Fact table built", logging.Fields{
		"fact_rows": len(facts),
	})

	return facts
}

// enrichWeather left-joins observations to catalog cities. Every observation
// is kept; an observation whose (normalized name, lat, lon) has no catalog
// entry carries a nil city id.
func (s *FactService) enrichWeather(weather []models.WeatherObservation, cities []models.City) []enrichedObservation {
	cityIndex := make(map[cityKey]int64, len(cities))
	for _, c := range cities {
		key := cityKey{
			name: models.NormalizeCityKey(c.Name),
			lat:  c.Latitude,
			lon:  c.Longitude,
		}
		cityIndex[key] = c.ID
	}

	enriched := make([]enrichedObservation, 0, len(weather))
	for _, obs := range weather {
		name := models.NormalizeCityKey(obs.City)

		e := enrichedObservation{
			obs: obs,
			key: hourKey{
				name: name,
				hour: models.FloorHour(obs.Timestamp).Format(hourKeyLayout),
			},
		}

		if id, ok := cityIndex[cityKey{name: name, lat: obs.Latitude, lon: obs.Longitude}]; ok {
			cityID := id
			e.cityID = &cityID
		}

		enriched = append(enriched, e)
	}

	return enriched
}

// joinShipments inner-joins shipments to the enriched observations on
// (normalized start location, hourly timestamp). The original shipment
// timestamp is preserved in the output; only matching uses the floored hour.
func (s *FactService) joinShipments(shipments []models.Shipment, enriched []enrichedObservation) []models.FactRecord {
	weatherIndex := make(map[hourKey][]enrichedObservation, len(enriched))
	for _, e := range enriched {
		weatherIndex[e.key] = append(weatherIndex[e.key], e)
	}

	var facts []models.FactRecord
	for _, shipment := range shipments {
		key := hourKey{
			name: models.NormalizeCityKey(shipment.StartLocation),
			hour: models.FloorHour(shipment.ShipmentStartTimestamp).Format(hourKeyLayout),
		}

		for _, e := range weatherIndex[key] {
			facts = append(facts, models.FactRecord{
				ShipmentID:         shipment.ID,
				CityID:             e.cityID,
				Timestamp:          shipment.ShipmentStartTimestamp,
				FuelConsumedLiters: shipment.ConsumedFuel,
				Temperature2m:      e.obs.Temperature2m,
				Windspeed10m:       e.obs.Windspeed10m,
				Precipitation:      e.obs.Precipitation,
				WeatherCode:        e.obs.WeatherCode,
			})
		}
	}

	return facts
}
