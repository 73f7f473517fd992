package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
)

func newTestFactService() *FactService {
	logger := logging.NewStructuredLogger("fact-test", "test", logging.FatalLevel)
	return NewFactService(logger, metrics.NewCollectorForTesting())
}

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int64) *int64       { return &v }

func berlinObservation(ts time.Time) models.WeatherObservation {
	return models.WeatherObservation{
		City:          "berlin",
		Latitude:      52.52,
		Longitude:     13.4,
		Timestamp:     ts,
		Temperature2m: floatPtr(21.3),
		Windspeed10m:  floatPtr(5.1),
		Precipitation: floatPtr(0.0),
		WeatherCode:   intPtr(1),
	}
}

func TestBuildFactTable_EndToEndScenario(t *testing.T) {
	s := newTestFactService()

	shipments := []models.Shipment{
		{
			ID:                     1,
			StartLocation:          "Berlin",
			ShipmentStartTimestamp: time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC),
			ConsumedFuel:           12.5,
		},
	}
	cities := []models.City{
		{ID: 9, Name: "Berlin", Latitude: 52.52, Longitude: 13.4},
	}
	weather := []models.WeatherObservation{
		berlinObservation(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)),
	}

	facts := s.BuildFactTable(context.Background(), shipments, cities, weather)

	require.Len(t, facts, 1)
	fact := facts[0]
	assert.Equal(t, int64(1), fact.ShipmentID)
	require.NotNil(t, fact.CityID)
	assert.Equal(t, int64(9), *fact.CityID)
	assert.Equal(t, time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC), fact.Timestamp)
	assert.Equal(t, 12.5, fact.FuelConsumedLiters)
	require.NotNil(t, fact.Temperature2m)
	assert.Equal(t, 21.3, *fact.Temperature2m)
	require.NotNil(t, fact.Windspeed10m)
	assert.Equal(t, 5.1, *fact.Windspeed10m)
	require.NotNil(t, fact.Precipitation)
	assert.Equal(t, 0.0, *fact.Precipitation)
	require.NotNil(t, fact.WeatherCode)
	assert.Equal(t, int64(1), *fact.WeatherCode)
}

func TestBuildFactTable_KeyNormalization(t *testing.T) {
	s := newTestFactService()

	shipments := []models.Shipment{
		{
			ID:                     7,
			StartLocation:          "MIAMI",
			ShipmentStartTimestamp: time.Date(2022, 7, 2, 14, 45, 0, 0, time.UTC),
			ConsumedFuel:           8.0,
		},
	}
	cities := []models.City{
		{ID: 3, Name: "Miami", Latitude: 25.76, Longitude: -80.19},
	}
	weather := []models.WeatherObservation{
		{
			City:          "  miami ",
			Latitude:      25.76,
			Longitude:     -80.19,
			Timestamp:     time.Date(2022, 7, 2, 14, 0, 0, 0, time.UTC),
			Temperature2m: floatPtr(31.0),
		},
	}

	facts := s.BuildFactTable(context.Background(), shipments, cities, weather)

	require.Len(t, facts, 1)
	require.NotNil(t, facts[0].CityID)
	assert.Equal(t, int64(3), *facts[0].CityID)
}

func TestBuildFactTable_InnerJoinExclusion(t *testing.T) {
	s := newTestFactService()

	// Shipment starts in a city with weather data, but at an hour with no
	// observation: it must contribute zero fact rows.
	shipments := []models.Shipment{
		{
			ID:                     2,
			StartLocation:          "Berlin",
			ShipmentStartTimestamp: time.Date(2022, 7, 1, 23, 30, 0, 0, time.UTC),
			ConsumedFuel:           4.2,
		},
	}
	cities := []models.City{
		{ID: 9, Name: "Berlin", Latitude: 52.52, Longitude: 13.4},
	}
	weather := []models.WeatherObservation{
		berlinObservation(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)),
	}

	facts := s.BuildFactTable(context.Background(), shipments, cities, weather)

	assert.Empty(t, facts)
}

func TestBuildFactTable_FanOutOnDuplicateWeatherRows(t *testing.T) {
	s := newTestFactService()

	shipments := []models.Shipment{
		{
			ID:                     1,
			StartLocation:          "Berlin",
			ShipmentStartTimestamp: time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC),
			ConsumedFuel:           12.5,
		},
	}
	cities := []models.City{
		{ID: 9, Name: "Berlin", Latitude: 52.52, Longitude: 13.4},
	}
	weather := []models.WeatherObservation{
		berlinObservation(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)),
		berlinObservation(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)),
	}

	facts := s.BuildFactTable(context.Background(), shipments, cities, weather)

	// Duplicate observations for the same (location, hour) are documented
	// join semantics: one shipment yields one fact row per duplicate.
	require.Len(t, facts, 2)
	assert.Equal(t, int64(1), facts[0].ShipmentID)
	assert.Equal(t, int64(1), facts[1].ShipmentID)
}

func TestBuildFactTable_EmptyInputShortCircuit(t *testing.T) {
	s := newTestFactService()

	shipments := []models.Shipment{
		{ID: 1, StartLocation: "Berlin", ShipmentStartTimestamp: time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC)},
	}
	cities := []models.City{
		{ID: 9, Name: "Berlin", Latitude: 52.52, Longitude: 13.4},
	}
	weather := []models.WeatherObservation{
		berlinObservation(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)),
	}

	ctx := context.Background()
	assert.Empty(t, s.BuildFactTable(ctx, nil, cities, weather))
	assert.Empty(t, s.BuildFactTable(ctx, shipments, nil, weather))
	assert.Empty(t, s.BuildFactTable(ctx, shipments, cities, nil))
}

func TestBuildFactTable_UnmatchedCityKeepsObservation(t *testing.T) {
	s := newTestFactService()

	// The observation's coordinates differ from the catalog entry, so the
	// left join finds no city; the observation still joins to the shipment
	// with a NULL city id.
	shipments := []models.Shipment{
		{
			ID:                     5,
			StartLocation:          "Hamburg",
			ShipmentStartTimestamp: time.Date(2022, 7, 3, 6, 5, 0, 0, time.UTC),
			ConsumedFuel:           9.9,
		},
	}
	cities := []models.City{
		{ID: 11, Name: "Hamburg", Latitude: 53.55, Longitude: 9.99},
	}
	weather := []models.WeatherObservation{
		{
			City:          "Hamburg",
			Latitude:      53.6,
			Longitude:     10.0,
			Timestamp:     time.Date(2022, 7, 3, 6, 0, 0, 0, time.UTC),
			Temperature2m: floatPtr(18.2),
		},
	}

	facts := s.BuildFactTable(context.Background(), shipments, cities, weather)

	require.Len(t, facts, 1)
	assert.Nil(t, facts[0].CityID)
}

func TestBuildFactTable_MultipleShipmentsSameHour(t *testing.T) {
	s := newTestFactService()

	shipments := []models.Shipment{
		{ID: 1, StartLocation: "Berlin", ShipmentStartTimestamp: time.Date(2022, 7, 1, 8, 5, 0, 0, time.UTC), ConsumedFuel: 1.0},
		{ID: 2, StartLocation: "Berlin", ShipmentStartTimestamp: time.Date(2022, 7, 1, 8, 55, 0, 0, time.UTC), ConsumedFuel: 2.0},
	}
	cities := []models.City{
		{ID: 9, Name: "Berlin", Latitude: 52.52, Longitude: 13.4},
	}
	weather := []models.WeatherObservation{
		berlinObservation(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)),
	}

	facts := s.BuildFactTable(context.Background(), shipments, cities, weather)

	require.Len(t, facts, 2)
	assert.Equal(t, 1.0, facts[0].FuelConsumedLiters)
	assert.Equal(t, 2.0, facts[1].FuelConsumedLiters)
}
