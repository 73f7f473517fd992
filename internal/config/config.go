package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds all pipeline settings, populated from environment variables.
// It is passed explicitly into component constructors; nothing reads the
// environment after LoadConfig returns.
type Config struct {
	Database DatabaseConfig
	Weather  WeatherConfig
	Paths    PathsConfig
	Metrics  MetricsConfig
	Logging  LoggingConfig
}

// DatabaseConfig holds PostgreSQL connection settings
type DatabaseConfig struct {
	Host            string
	Port            int
	User            string
	Password        string
	Database        string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxLifetime time.Duration
	ConnMaxIdleTime time.Duration
}

// WeatherConfig holds Open-Meteo archive query settings
type WeatherConfig struct {
	BaseURL        string
	Variables      []string
	StartDate      time.Time
	EndDate        time.Time
	Retries        int
	RetryDelay     time.Duration
	RequestTimeout time.Duration
}

// PathsConfig holds the CSV hand-off artifact locations
type PathsConfig struct {
	WeatherCSV string
	FactCSV    string
}

// MetricsConfig holds the optional Prometheus listener settings.
// An empty Addr disables the listener.
type MetricsConfig struct {
	Addr string
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level string
}

const dateLayout = "2006-01-02"

// LoadConfig reads configuration from the environment, loading a .env file
// first when one is present.
func LoadConfig() (*Config, error) {
	// A missing .env is fine; containers set the environment directly.
	_ = godotenv.Load()

	startDate, err := time.Parse(dateLayout, getEnv("WEATHER_START_DATE", "2022-07-01"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_START_DATE: %w", err)
	}

	endDate, err := time.Parse(dateLayout, getEnv("WEATHER_END_DATE", "2022-07-31"))
	if err != nil {
		return nil, fmt.Errorf("invalid WEATHER_END_DATE: %w", err)
	}

	retryDelay, err := getEnvDuration("WEATHER_RETRY_DELAY", 2*time.Second)
	if err != nil {
		return nil, err
	}

	requestTimeout, err := getEnvDuration("WEATHER_REQUEST_TIMEOUT", 10*time.Second)
	if err != nil {
		return nil, err
	}

	cfg := &Config{
		Database: DatabaseConfig{
			Host:            getEnv("PG_HOST", "localhost"),
			Port:            getEnvInt("PG_PORT", 5432),
			User:            getEnv("PG_USER", "postgres"),
			Password:        os.Getenv("PG_PASSWORD"),
			Database:        getEnv("PG_DB", "logistics"),
			SSLMode:         getEnv("PG_SSLMODE", "disable"),
			MaxOpenConns:    getEnvInt("PG_MAX_OPEN_CONNS", 10),
			MaxIdleConns:    getEnvInt("PG_MAX_IDLE_CONNS", 5),
			ConnMaxLifetime: 30 * time.Minute,
			ConnMaxIdleTime: 5 * time.Minute,
		},
		Weather: WeatherConfig{
			BaseURL:        getEnv("WEATHER_API_URL", "https://archive-api.open-meteo.com/v1/archive"),
			Variables:      splitList(getEnv("WEATHER_VARIABLES", "temperature_2m,windspeed_10m,precipitation,weathercode")),
			StartDate:      startDate,
			EndDate:        endDate,
			Retries:        getEnvInt("WEATHER_RETRIES", 3),
			RetryDelay:     retryDelay,
			RequestTimeout: requestTimeout,
		},
		Paths: PathsConfig{
			WeatherCSV: getEnv("WEATHER_CSV_PATH", "data/raw/weather/weather_data_2022_07.csv"),
			FactCSV:    getEnv("FACT_CSV_PATH", "data/processed/fact_shipments_weather.csv"),
		},
		Metrics: MetricsConfig{
			Addr: os.Getenv("METRICS_ADDR"),
		},
		Logging: LoggingConfig{
			Level: getEnv("LOG_LEVEL", "info"),
		},
	}

	return cfg, nil
}

// Validate checks cross-field constraints
func (c *Config) Validate() error {
	if c.Database.Host == "" {
		return fmt.Errorf("PG_HOST is required")
	}
	if c.Weather.Retries < 1 {
		return fmt.Errorf("WEATHER_RETRIES must be at least 1")
	}
	if c.Weather.EndDate.Before(c.Weather.StartDate) {
		return fmt.Errorf("WEATHER_END_DATE must not precede WEATHER_START_DATE")
	}
	if len(c.Weather.Variables) == 0 {
		return fmt.Errorf("WEATHER_VARIABLES must name at least one variable")
	}
	return nil
}

func getEnv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func getEnvInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func getEnvDuration(key string, def time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return def, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func splitList(s string) []string {
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if trimmed := strings.TrimSpace(p); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
