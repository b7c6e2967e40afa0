// Package weather fetches hourly forecasts from Open-Meteo.
package weather

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

const (
	DefaultBaseURL   = "https://api.open-meteo.com/v1/forecast"
	DefaultLatitude  = 25.793
	DefaultLongitude = -108.9981
)

// HourlyVariables are requested for every forecast, in this order
var HourlyVariables = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"rain",
	"precipitation_probability",
	"precipitation",
	"showers",
}

// Hourly holds one series per variable, aligned with Time. Missing values
// are nil.
type Hourly struct {
	Time                     []time.Time `json:"time"`
	Temperature2m            []*float64  `json:"temperature_2m"`
	RelativeHumidity2m       []*float64  `json:"relative_humidity_2m"`
	Rain                     []*float64  `json:"rain"`
	PrecipitationProbability []*float64  `json:"precipitation_probability"`
	Precipitation            []*float64  `json:"precipitation"`
	Showers                  []*float64  `json:"showers"`
}

// Forecast is the decoded answer for one location
type Forecast struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Elevation        float64           `json:"elevation"`
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Timezone         string            `json:"timezone"`
	Units            map[string]string `json:"hourly_units"`
	Hourly           Hourly            `json:"hourly"`
}

type apiForecast struct {
	Latitude         float64           `json:"latitude"`
	Longitude        float64           `json:"longitude"`
	Elevation        float64           `json:"elevation"`
	UTCOffsetSeconds int               `json:"utc_offset_seconds"`
	Timezone         string            `json:"timezone"`
	HourlyUnits      map[string]string `json:"hourly_units"`
	Hourly           struct {
		Time                     []int64    `json:"time"`
		Temperature2m            []*float64 `json:"temperature_2m"`
		RelativeHumidity2m       []*float64 `json:"relative_humidity_2m"`
		Rain                     []*float64 `json:"rain"`
		PrecipitationProbability []*float64 `json:"precipitation_probability"`
		Precipitation            []*float64 `json:"precipitation"`
		Showers                  []*float64 `json:"showers"`
	} `json:"hourly"`
}

type apiError struct {
	Error  bool   `json:"error"`
	Reason string `json:"reason"`
}

// Client calls the forecast API
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// NewClient creates a forecast client. An empty baseURL uses Open-Meteo.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if timeout <= 0 {
		timeout = 15 * time.Second
	}
	return &Client{httpClient: &http.Client{Timeout: timeout}, baseURL: baseURL}
}

// Forecast returns the hourly forecast for the location
func (c *Client) Forecast(ctx context.Context, latitude, longitude float64) (*Forecast, error) {
	if latitude < -90 || latitude > 90 || longitude < -180 || longitude > 180 {
		return nil, fmt.Errorf("coordinates out of range: %f,%f", latitude, longitude)
	}

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(latitude, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(longitude, 'f', -1, 64))
	q.Set("hourly", strings.Join(HourlyVariables, ","))
	q.Set("timeformat", "unixtime")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("forecast request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 4<<20))
	if err != nil {
		return nil, fmt.Errorf("read forecast response: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		var apiErr apiError
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Reason != "" {
			return nil, fmt.Errorf("forecast API returned %d: %s", resp.StatusCode, apiErr.Reason)
		}
		return nil, fmt.Errorf("forecast API returned %d", resp.StatusCode)
	}

	var raw apiForecast
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("decode forecast response: %w", err)
	}
	return raw.toForecast(), nil
}

func (a *apiForecast) toForecast() *Forecast {
	times := make([]time.Time, len(a.Hourly.Time))
	for i, ts := range a.Hourly.Time {
		times[i] = time.Unix(ts, 0).UTC()
	}
	return &Forecast{
		Latitude:         a.Latitude,
		Longitude:        a.Longitude,
		Elevation:        a.Elevation,
		UTCOffsetSeconds: a.UTCOffsetSeconds,
		Timezone:         a.Timezone,
		Units:            a.HourlyUnits,
		Hourly: Hourly{
			Time:                     times,
			Temperature2m:            a.Hourly.Temperature2m,
			RelativeHumidity2m:       a.Hourly.RelativeHumidity2m,
			Rain:                     a.Hourly.Rain,
			PrecipitationProbability: a.Hourly.PrecipitationProbability,
			Precipitation:            a.Hourly.Precipitation,
			Showers:                  a.Hourly.Showers,
		},
	}
}
