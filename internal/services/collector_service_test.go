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

// fakeFetcher returns canned observations per city name; cities without an
// entry behave like an exhausted fetch.
type fakeFetcher struct {
	byCity map[string][]models.WeatherObservation
	calls  []string
}

func (f *fakeFetcher) FetchHourly(_ context.Context, loc models.Location, _ models.DateInterval, _ []string) []models.WeatherObservation {
	f.calls = append(f.calls, loc.Name)
	return f.byCity[loc.Name]
}

func newTestCollector(fetcher HourlyFetcher) *CollectorService {
	logger := logging.NewStructuredLogger("collector-test", "test", logging.FatalLevel)
	return NewCollectorService(fetcher, logger, metrics.NewCollectorForTesting())
}

func testObs(city string, hour int) models.WeatherObservation {
	return models.WeatherObservation{
		City:      city,
		Timestamp: time.Date(2022, 7, 1, hour, 0, 0, 0, time.UTC),
	}
}

func TestCollect_PartialCoverage(t *testing.T) {
	fetcher := &fakeFetcher{
		byCity: map[string][]models.WeatherObservation{
			"Berlin": {testObs("berlin", 0), testObs("berlin", 1)},
			"Miami":  {testObs("miami", 0)},
			// Oslo has no entry: every retry failed upstream.
		},
	}
	s := newTestCollector(fetcher)

	locations := []models.Location{
		{Name: "Berlin"},
		{Name: "Oslo"},
		{Name: "Miami"},
	}

	obs, result := s.Collect(context.Background(), locations, models.DateInterval{}, nil)

	require.Len(t, obs, 3)
	for _, o := range obs {
		assert.NotEqual(t, "oslo", o.City)
	}
	assert.Equal(t, 3, result.TotalLocations)
	assert.Equal(t, 1, result.FailedLocations)
	assert.Equal(t, 3, result.Observations)
	assert.Equal(t, []string{"Berlin", "Oslo", "Miami"}, fetcher.calls)
}

func TestCollect_AllLocationsFail(t *testing.T) {
	fetcher := &fakeFetcher{byCity: map[string][]models.WeatherObservation{}}
	s := newTestCollector(fetcher)

	locations := []models.Location{{Name: "Berlin"}, {Name: "Miami"}}
	obs, result := s.Collect(context.Background(), locations, models.DateInterval{}, nil)

	assert.Empty(t, obs)
	assert.Equal(t, 2, result.FailedLocations)
	assert.Equal(t, 0, result.Observations)
}

func TestCollect_NoLocations(t *testing.T) {
	fetcher := &fakeFetcher{}
	s := newTestCollector(fetcher)

	obs, result := s.Collect(context.Background(), nil, models.DateInterval{}, nil)

	assert.Empty(t, obs)
	assert.Equal(t, 0, result.TotalLocations)
	assert.Empty(t, fetcher.calls)
}
