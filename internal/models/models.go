package models

import (
	"strings"
	"time"
)

// Location is a geocoded catalog city used to drive weather retrieval.
// Identity is (Name, Latitude, Longitude); instances are immutable once read.
type Location struct {
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// WeatherObservation is a single hourly weather sample for one location.
// Variables the upstream omits are NULL, represented as pointers so they
// survive as empty CSV cells and SQL NULLs.
type WeatherObservation struct {
	City          string    `json:"city" db:"city"`
	Latitude      float64   `json:"latitude" db:"latitude"`
	Longitude     float64   `json:"longitude" db:"longitude"`
	Timestamp     time.Time `json:"timestamp" db:"timestamp"`
	Temperature2m *float64  `json:"temperature_2m,omitempty" db:"temperature_2m"`
	Windspeed10m  *float64  `json:"windspeed_10m,omitempty" db:"windspeed_10m"`
	Precipitation *float64  `json:"precipitation,omitempty" db:"precipitation"`
	WeatherCode   *int64    `json:"weathercode,omitempty" db:"weathercode"`
}

// Shipment is a transactional shipment event, read-only to the pipeline.
// Attributes not used by the fact join are not loaded.
type Shipment struct {
	ID                     int64     `json:"id" db:"id"`
	StartLocation          string    `json:"start_location" db:"start_location"`
	ShipmentStartTimestamp time.Time `json:"shipment_start_timestamp" db:"shipment_start_timestamp"`
	ConsumedFuel           float64   `json:"consumed_fuel" db:"consumed_fuel"`
}

// City is a catalog row from shipments.cities.
type City struct {
	ID        int64   `json:"id" db:"id"`
	Name      string  `json:"name" db:"name"`
	Latitude  float64 `json:"latitude" db:"latitude"`
	Longitude float64 `json:"longitude" db:"longitude"`
}

// FactRecord is one output row of analytics.fact_shipments_weather.
// CityID is NULL when the matched observation had no catalog city.
// Timestamp keeps the shipment's original sub-hour precision.
type FactRecord struct {
	ShipmentID         int64     `json:"shipment_id" db:"shipment_id"`
	CityID             *int64    `json:"city_id,omitempty" db:"city_id"`
	Timestamp          time.Time `json:"timestamp" db:"timestamp"`
	FuelConsumedLiters float64   `json:"fuel_consumed_liters" db:"fuel_consumed_liters"`
	Temperature2m      *float64  `json:"temperature_2m,omitempty" db:"temperature_2m"`
	Windspeed10m       *float64  `json:"windspeed_10m,omitempty" db:"windspeed_10m"`
	Precipitation      *float64  `json:"precipitation,omitempty" db:"precipitation"`
	WeatherCode        *int64    `json:"weathercode,omitempty" db:"weathercode"`
}

// Validate checks that a fact row is well-formed before it reaches the sink.
func (f *FactRecord) Validate() error {
	if f.ShipmentID <= 0 {
		return &ValidationError{Field: "shipment_id", Message: "shipment_id must be positive"}
	}
	if f.Timestamp.IsZero() {
		return &ValidationError{Field: "timestamp", Message: "timestamp must be set"}
	}
	return nil
}

// DateInterval is a closed date range queried against the weather archive.
type DateInterval struct {
	Start time.Time
	End   time.Time
}

// NormalizeCityKey folds a free-text city name into the canonical join key.
// Applied identically to catalog names, observation names, and shipment
// start locations before any equality comparison.
func NormalizeCityKey(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}

// FloorHour floors a timestamp to the start of its wall-clock hour, the join
// granularity between shipment events and hourly weather samples. Flooring on
// the clock fields keeps the hour stable in zones whose UTC offset is not a
// whole number of hours, where absolute truncation lands on a different hour.
func FloorHour(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), t.Hour(), 0, 0, 0, t.Location())
}

// ValidationError classifies a malformed row; these are permanent, not retryable.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) IsTransient() bool {
	return false
}
