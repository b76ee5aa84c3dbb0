// Package weather fetches current conditions from the Open-Meteo forecast API.
package weather

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"codeberg.org/mutker/obsctl/internal/errors"
)

var currentFields = []string{
	"temperature_2m",
	"relative_humidity_2m",
	"apparent_temperature",
	"is_day",
	"precipitation",
	"rain",
	"weather_code",
	"cloud_cover",
	"surface_pressure",
	"showers",
	"wind_speed_10m",
	"wind_direction_10m",
}

// Provider abstracts a weather source.
type Provider interface {
	Current(ctx context.Context, lat, lon float64) (*Report, error)
}

// Report is the subset of the forecast response the dashboard uses.
type Report struct {
	Latitude  float64  `json:"latitude"`
	Longitude float64  `json:"longitude"`
	Timezone  string   `json:"timezone"`
	Current   *Current `json:"current"`
}

// Current holds the "current" block. Units are Open-Meteo defaults:
// °C, %, km/h, degrees and hPa.
type Current struct {
	Time               string  `json:"time"`
	Temperature2m      float64 `json:"temperature_2m"`
	RelativeHumidity2m float64 `json:"relative_humidity_2m"`
	ApparentTemp       float64 `json:"apparent_temperature"`
	Precipitation      float64 `json:"precipitation"`
	WeatherCode        int     `json:"weather_code"`
	CloudCover         float64 `json:"cloud_cover"`
	SurfacePressure    float64 `json:"surface_pressure"`
	WindSpeed10m       float64 `json:"wind_speed_10m"`
	WindDirection10m   float64 `json:"wind_direction_10m"`
}

// Client queries the forecast endpoint.
type Client struct {
	endpoint string
	timezone string
	http     *http.Client
}

// New creates a client for endpoint, e.g. "https://api.open-meteo.com/v1/forecast".
func New(endpoint, timezone string, timeout time.Duration) *Client {
	return &Client{
		endpoint: endpoint,
		timezone: timezone,
		http:     &http.Client{Timeout: timeout},
	}
}

// Current fetches current conditions at the given site.
func (c *Client) Current(ctx context.Context, lat, lon float64) (*Report, error) {
	errFactory := errors.New()

	q := url.Values{}
	q.Set("latitude", strconv.FormatFloat(lat, 'f', -1, 64))
	q.Set("longitude", strconv.FormatFloat(lon, 'f', -1, 64))
	q.Set("current", strings.Join(currentFields, ","))
	if c.timezone != "" {
		q.Set("timezone", c.timezone)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.endpoint+"?"+q.Encode(), nil)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrWeatherFetch, err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, errFactory.Wrap(errors.ErrWeatherFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, errFactory.WithData(errors.ErrWeatherFetch, struct {
			Status string
			Body   string
		}{resp.Status, strings.TrimSpace(string(body))})
	}

	var report Report
	if err := json.NewDecoder(resp.Body).Decode(&report); err != nil {
		return nil, errFactory.Wrap(errors.ErrSourceDecode, err).WithData("weather")
	}

	return &report, nil
}
