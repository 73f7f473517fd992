package storage

import (
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shipment-weather-etl/internal/models"
)

func floatPtr(v float64) *float64 { return &v }
func intPtr(v int64) *int64       { return &v }

func TestWriteReadObservations_PreservesNulls(t *testing.T) {
	path := filepath.Join(t.TempDir(), "raw", "weather.csv")

	observations := []models.WeatherObservation{
		{
			City:          "berlin",
			Latitude:      52.52,
			Longitude:     13.4,
			Timestamp:     time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC),
			Temperature2m: floatPtr(21.3),
			Windspeed10m:  floatPtr(5.1),
			Precipitation: floatPtr(0.0),
			WeatherCode:   intPtr(1),
		},
		{
			// Upstream omitted every variable for this hour.
			City:      "oslo",
			Latitude:  59.91,
			Longitude: 10.75,
			Timestamp: time.Date(2022, 7, 1, 9, 0, 0, 0, time.UTC),
		},
	}

	require.NoError(t, WriteObservations(path, observations))

	got, err := ReadObservations(path)
	require.NoError(t, err)
	require.Len(t, got, 2)

	assert.Equal(t, "berlin", got[0].City)
	assert.Equal(t, 52.52, got[0].Latitude)
	assert.True(t, got[0].Timestamp.Equal(time.Date(2022, 7, 1, 8, 0, 0, 0, time.UTC)))
	require.NotNil(t, got[0].Temperature2m)
	assert.Equal(t, 21.3, *got[0].Temperature2m)
	require.NotNil(t, got[0].WeatherCode)
	assert.Equal(t, int64(1), *got[0].WeatherCode)

	assert.Nil(t, got[1].Temperature2m)
	assert.Nil(t, got[1].Windspeed10m)
	assert.Nil(t, got[1].Precipitation)
	assert.Nil(t, got[1].WeatherCode)
}

func TestWriteObservations_AllColumnsAlwaysPresent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.csv")

	require.NoError(t, WriteObservations(path, []models.WeatherObservation{
		{City: "oslo", Timestamp: time.Date(2022, 7, 1, 9, 0, 0, 0, time.UTC)},
	}))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, observationHeader, records[0])
	assert.Len(t, records[1], len(observationHeader))
}

func TestReadObservations_RejectsUnknownHeader(t *testing.T) {
	path := filepath.Join(t.TempDir(), "weather.csv")
	require.NoError(t, os.WriteFile(path, []byte("a,b,c\n1,2,3\n"), 0o644))

	_, err := ReadObservations(path)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "header")
}

func TestReadObservations_MissingFile(t *testing.T) {
	_, err := ReadObservations(filepath.Join(t.TempDir(), "absent.csv"))
	require.Error(t, err)
}

func TestWriteFacts(t *testing.T) {
	path := filepath.Join(t.TempDir(), "processed", "facts.csv")

	facts := []models.FactRecord{
		{
			ShipmentID:         1,
			CityID:             intPtr(9),
			Timestamp:          time.Date(2022, 7, 1, 8, 15, 0, 0, time.UTC),
			FuelConsumedLiters: 12.5,
			Temperature2m:      floatPtr(21.3),
			Windspeed10m:       floatPtr(5.1),
			Precipitation:      floatPtr(0.0),
			WeatherCode:        intPtr(1),
		},
		{
			ShipmentID:         2,
			Timestamp:          time.Date(2022, 7, 1, 9, 45, 0, 0, time.UTC),
			FuelConsumedLiters: 3.25,
		},
	}

	require.NoError(t, WriteFacts(path, facts))

	file, err := os.Open(path)
	require.NoError(t, err)
	defer file.Close()

	records, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, records, 3)
	assert.Equal(t, factHeader, records[0])
	assert.Equal(t, []string{"1", "9", "2022-07-01T08:15:00", "12.5", "21.3", "5.1", "0", "1"}, records[1])
	assert.Equal(t, []string{"2", "", "2022-07-01T09:45:00", "3.25", "", "", "", ""}, records[2])
}
