package storage

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"shipment-weather-etl/internal/models"
)

// Timestamps are written without a zone; the archive reports local time for
// each location and the join only compares hour-floored values.
const (
	timestampLayout = "2006-01-02T15:04:05"
	hourlyLayout    = "2006-01-02T15:04"
)

var observationHeader = []string{
	"city", "latitude", "longitude", "timestamp",
	"temperature_2m", "windspeed_10m", "precipitation", "weathercode",
}

var factHeader = []string{
	"shipment_id", "city_id", "timestamp", "fuel_consumed_liters",
	"temperature_2m", "windspeed_10m", "precipitation", "weathercode",
}

// WriteObservations persists the flat observation table as the hand-off
// artifact between the ingestion and transformation stages. All declared
// columns are always present; NULL values become empty cells.
func WriteObservations(path string, observations []models.WeatherObservation) error {
	w, file, err := createWriter(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.Write(observationHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, obs := range observations {
		row := []string{
			obs.City,
			strconv.FormatFloat(obs.Latitude, 'f', -1, 64),
			strconv.FormatFloat(obs.Longitude, 'f', -1, 64),
			obs.Timestamp.Format(timestampLayout),
			formatFloatPtr(obs.Temperature2m),
			formatFloatPtr(obs.Windspeed10m),
			formatFloatPtr(obs.Precipitation),
			formatIntPtr(obs.WeatherCode),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write observation row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush observations: %w", err)
	}
	return nil
}

// ReadObservations loads the observation table written by WriteObservations.
func ReadObservations(path string) ([]models.WeatherObservation, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open weather csv: %w", err)
	}
	defer file.Close()

	r := csv.NewReader(file)
	records, err := r.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read weather csv: %w", err)
	}
	if len(records) == 0 {
		return nil, nil
	}

	if err := checkHeader(records[0], observationHeader); err != nil {
		return nil, err
	}

	observations := make([]models.WeatherObservation, 0, len(records)-1)
	for i, rec := range records[1:] {
		obs, err := parseObservation(rec)
		if err != nil {
			return nil, fmt.Errorf("row %d: %w", i+2, err)
		}
		observations = append(observations, obs)
	}
	return observations, nil
}

// WriteFacts persists the fact table CSV prior to the warehouse load.
func WriteFacts(path string, facts []models.FactRecord) error {
	w, file, err := createWriter(path)
	if err != nil {
		return err
	}
	defer file.Close()

	if err := w.Write(factHeader); err != nil {
		return fmt.Errorf("write header: %w", err)
	}

	for _, f := range facts {
		row := []string{
			strconv.FormatInt(f.ShipmentID, 10),
			formatIntPtr(f.CityID),
			f.Timestamp.Format(timestampLayout),
			strconv.FormatFloat(f.FuelConsumedLiters, 'f', -1, 64),
			formatFloatPtr(f.Temperature2m),
			formatFloatPtr(f.Windspeed10m),
			formatFloatPtr(f.Precipitation),
			formatIntPtr(f.WeatherCode),
		}
		if err := w.Write(row); err != nil {
			return fmt.Errorf("write fact row: %w", err)
		}
	}

	w.Flush()
	if err := w.Error(); err != nil {
		return fmt.Errorf("flush facts: %w", err)
	}
	return nil
}

func createWriter(path string) (*csv.Writer, *os.File, error) {
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, nil, fmt.Errorf("create output dir: %w", err)
		}
	}
	file, err := os.Create(path)
	if err != nil {
		return nil, nil, fmt.Errorf("create csv: %w", err)
	}
	return csv.NewWriter(file), file, nil
}

func checkHeader(got, want []string) error {
	if len(got) != len(want) {
		return fmt.Errorf("unexpected header: got %d columns, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			return fmt.Errorf("unexpected header column %d: got %q, want %q", i, got[i], want[i])
		}
	}
	return nil
}

func parseObservation(rec []string) (models.WeatherObservation, error) {
	if len(rec) != len(observationHeader) {
		return models.WeatherObservation{}, fmt.Errorf("expected %d columns, got %d", len(observationHeader), len(rec))
	}

	lat, err := strconv.ParseFloat(rec[1], 64)
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("parse latitude: %w", err)
	}
	lon, err := strconv.ParseFloat(rec[2], 64)
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("parse longitude: %w", err)
	}
	ts, err := parseTimestamp(rec[3])
	if err != nil {
		return models.WeatherObservation{}, err
	}

	temp, err := parseFloatPtr(rec[4])
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("parse temperature_2m: %w", err)
	}
	wind, err := parseFloatPtr(rec[5])
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("parse windspeed_10m: %w", err)
	}
	precip, err := parseFloatPtr(rec[6])
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("parse precipitation: %w", err)
	}
	code, err := parseIntPtr(rec[7])
	if err != nil {
		return models.WeatherObservation{}, fmt.Errorf("parse weathercode: %w", err)
	}

	return models.WeatherObservation{
		City:          rec[0],
		Latitude:      lat,
		Longitude:     lon,
		Timestamp:     ts,
		Temperature2m: temp,
		Windspeed10m:  wind,
		Precipitation: precip,
		WeatherCode:   code,
	}, nil
}

func parseTimestamp(s string) (time.Time, error) {
	if ts, err := time.Parse(timestampLayout, s); err == nil {
		return ts, nil
	}
	ts, err := time.Parse(hourlyLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse timestamp %q: %w", s, err)
	}
	return ts, nil
}

func formatFloatPtr(v *float64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatFloat(*v, 'f', -1, 64)
}

func parseFloatPtr(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}

func formatIntPtr(v *int64) string {
	if v == nil {
		return ""
	}
	return strconv.FormatInt(*v, 10)
}

func parseIntPtr(s string) (*int64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
