package openmeteo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"shipment-weather-etl/internal/models"
	"shipment-weather-etl/pkg/logging"
	"shipment-weather-etl/pkg/metrics"
	"shipment-weather-etl/pkg/retry"
)

// timeLayout is Open-Meteo's hourly timestamp format (minute resolution, no zone).
const timeLayout = "2006-01-02T15:04"

var errEmptySeries = errors.New("empty hourly series")

// Client fetches hourly weather series from the Open-Meteo archive API.
// Every failure mode of an attempt (network, timeout, decode, empty series)
// is retried under the injected policy; exhaustion is logged and reported
// as zero observations so callers degrade to partial coverage.
type Client struct {
	baseURL    string
	httpClient *http.Client
	policy     *retry.Policy
	logger     *logging.StructuredLogger
	metrics    *metrics.Collector
}

// NewClient creates an Open-Meteo archive client.
func NewClient(baseURL string, timeout time.Duration, policy *retry.Policy, logger *logging.StructuredLogger, metricsCollector *metrics.Collector) *Client {
	return &Client{
		baseURL: baseURL,
		httpClient: &http.Client{
			Timeout: timeout,
		},
		policy:  policy,
		logger:  logger,
		metrics: metricsCollector,
	}
}

// FetchHourly retrieves the hourly series for one location over a closed date
// interval. Variables the upstream omits come back as NULL per timestamp; no
// interpolation is attempted. After the retry budget is exhausted the failure
// is logged and an empty slice returned.
func (c *Client) FetchHourly(ctx context.Context, loc models.Location, interval models.DateInterval, variables []string) []models.WeatherObservation {
	timer := c.metrics.NewTimer(c.metrics.FetchDuration)
	defer timer.ObserveDuration()

	var observations []models.WeatherObservation

	err := c.policy.Do(ctx, func(ctx context.Context) error {
		obs, attemptErr := c.fetchOnce(ctx, loc, interval, variables)
		if attemptErr != nil {
			c.metrics.RecordFetchAttempt("failure")
			c.logger.Warn(ctx, "[FETCH_ATTEMPT_FAILED] Weather fetch attempt failed", logging.Fields{
				"city":  loc.Name,
				"error": attemptErr.Error(),
			})
			return attemptErr
		}
		c.metrics.RecordFetchAttempt("success")
		observations = obs
		return nil
	})

	if err != nil {
		c.metrics.RecordFetchFailure(classifyFailure(err))
		c.logger.Error(ctx, "[FETCH_EXHAUSTED] Weather fetch failed after all retries", logging.Fields{
			"city":      loc.Name,
			"latitude":  loc.Latitude,
			"longitude": loc.Longitude,
		}, err)
		return nil
	}

	return observations
}

// fetchOnce performs a single archive request.
func (c *Client) fetchOnce(ctx context.Context, loc models.Location, interval models.DateInterval, variables []string) ([]models.WeatherObservation, error) {
	params := url.Values{
		"latitude":   {strconv.FormatFloat(loc.Latitude, 'f', -1, 64)},
		"longitude":  {strconv.FormatFloat(loc.Longitude, 'f', -1, 64)},
		"hourly":     {strings.Join(variables, ",")},
		"start_date": {interval.Start.Format("2006-01-02")},
		"end_date":   {interval.End.Format("2006-01-02")},
		"timezone":   {"auto"},
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+params.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("archive request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("archive API error: status %d: %s", resp.StatusCode, body)
	}

	var archive archiveResponse
	if err := json.NewDecoder(resp.Body).Decode(&archive); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}

	if len(archive.Hourly.Time) == 0 {
		return nil, errEmptySeries
	}

	return buildObservations(loc, archive.Hourly, variables)
}

// buildObservations flattens the index-aligned archive arrays into one
// observation per timestamp.
func buildObservations(loc models.Location, hourly hourlyBlock, variables []string) ([]models.WeatherObservation, error) {
	observations := make([]models.WeatherObservation, 0, len(hourly.Time))

	for i, raw := range hourly.Time {
		ts, err := time.Parse(timeLayout, raw)
		if err != nil {
			return nil, fmt.Errorf("parse hourly timestamp %q: %w", raw, err)
		}

		obs := models.WeatherObservation{
			City:      loc.Name,
			Latitude:  loc.Latitude,
			Longitude: loc.Longitude,
			Timestamp: ts,
		}

		for _, variable := range variables {
			value := hourly.valueAt(variable, i)
			switch variable {
			case "temperature_2m":
				obs.Temperature2m = value
			case "windspeed_10m":
				obs.Windspeed10m = value
			case "precipitation":
				obs.Precipitation = value
			case "weathercode":
				if value != nil {
					code := int64(*value)
					obs.WeatherCode = &code
				}
			}
		}

		observations = append(observations, obs)
	}

	return observations, nil
}

func classifyFailure(err error) string {
	switch {
	case errors.Is(err, errEmptySeries):
		return "empty_series"
	case strings.Contains(err.Error(), "decode response"):
		return "decode"
	default:
		return "request"
	}
}

// archiveResponse mirrors the Open-Meteo archive payload: an hourly object
// with a "time" array and one index-aligned array per requested variable.
type archiveResponse struct {
	Hourly hourlyBlock `json:"hourly"`
}

type hourlyBlock struct {
	Time   []string
	Series map[string][]*float64
}

func (h *hourlyBlock) UnmarshalJSON(data []byte) error {
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}

	if t, ok := raw["time"]; ok {
		if err := json.Unmarshal(t, &h.Time); err != nil {
			return fmt.Errorf("decode time array: %w", err)
		}
	}

	h.Series = make(map[string][]*float64, len(raw))
	for name, payload := range raw {
		if name == "time" {
			continue
		}
		var series []*float64
		if err := json.Unmarshal(payload, &series); err != nil {
			return fmt.Errorf("decode series %q: %w", name, err)
		}
		h.Series[name] = series
	}

	return nil
}

// valueAt looks up one variable at one timestamp index, returning nil when
// the upstream omitted the variable or the arrays are misaligned.
func (h hourlyBlock) valueAt(variable string, i int) *float64 {
	series, ok := h.Series[variable]
	if !ok || i >= len(series) {
		return nil
	}
	return series[i]
}
