package providers

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// DefaultOpenWeatherBaseURL is the public OpenWeatherMap API host.
const DefaultOpenWeatherBaseURL = "https://api.openweathermap.org"

// openWeatherUnits is fixed: temperatures in °F, wind speed in mph.
const openWeatherUnits = "imperial"

// OpenWeatherProvider implements weather.Geocoder and weather.Provider for
// OpenWeatherMap (direct geocoding, current weather, 5 day / 3 hour forecast).
type OpenWeatherProvider struct {
	name    string
	apiKey  string
	baseURL string
	client  *http.Client
	circuit *gobreaker.CircuitBreaker
	log     zerolog.Logger
}

func NewOpenWeatherProvider(cfg HTTPClientConfig, baseURL, apiKey string, log zerolog.Logger) *OpenWeatherProvider {
	if baseURL == "" {
		baseURL = DefaultOpenWeatherBaseURL
	}
	return &OpenWeatherProvider{
		name:    "openweathermap",
		apiKey:  apiKey,
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  cfg.Client,
		circuit: newBreaker("openweather", cfg),
		log:     log.With().Str("component", "openweather").Logger(),
	}
}

func (p *OpenWeatherProvider) Name() string {
	return p.name
}

type owmMain struct {
	Temp      float64 `json:"temp"`
	FeelsLike float64 `json:"feels_like"`
	Humidity  float64 `json:"humidity"`
}

type owmWind struct {
	Speed float64 `json:"speed"`
}

type owmCondition struct {
	Description string `json:"description"`
	Icon        string `json:"icon"`
}

type owmReading struct {
	Dt      int64          `json:"dt"`
	Main    owmMain        `json:"main"`
	Wind    owmWind        `json:"wind"`
	Weather []owmCondition `json:"weather"`
}

func (r owmReading) toReading() (weather.Reading, error) {
	if len(r.Weather) == 0 {
		return weather.Reading{}, fmt.Errorf("%w: no weather conditions", weather.ErrMalformedResponse)
	}
	return weather.Reading{
		Timestamp:   time.Unix(r.Dt, 0).UTC(),
		Temperature: r.Main.Temp,
		FeelsLike:   r.Main.FeelsLike,
		Humidity:    r.Main.Humidity,
		WindSpeed:   r.Wind.Speed,
		Description: r.Weather[0].Description,
		Icon:        r.Weather[0].Icon,
	}, nil
}

// Geocode resolves query with the direct geocoding endpoint, asking for at
// most one match.
func (p *OpenWeatherProvider) Geocode(ctx context.Context, query string) (weather.Location, error) {
	values := url.Values{}
	values.Set("q", query)
	values.Set("limit", "1")

	var matches []struct {
		Lat     float64 `json:"lat"`
		Lon     float64 `json:"lon"`
		Name    string  `json:"name"`
		Country string  `json:"country"`
	}
	if err := p.getJSON(ctx, "/geo/1.0/direct", values, &matches); err != nil {
		return weather.Location{}, err
	}

	if len(matches) == 0 {
		return weather.Location{}, weather.ErrNoMatch
	}

	m := matches[0]
	return weather.Location{
		Lat:     m.Lat,
		Lon:     m.Lon,
		Name:    m.Name,
		Country: m.Country,
	}, nil
}

// Current fetches current conditions for loc.
func (p *OpenWeatherProvider) Current(ctx context.Context, loc weather.Location) (weather.Reading, error) {
	var payload owmReading
	if err := p.getJSON(ctx, "/data/2.5/weather", coordValues(loc), &payload); err != nil {
		return weather.Reading{}, err
	}
	return payload.toReading()
}

// Forecast fetches the full 3-hourly forecast series for loc.
func (p *OpenWeatherProvider) Forecast(ctx context.Context, loc weather.Location) ([]weather.Reading, error) {
	var payload struct {
		List []owmReading `json:"list"`
	}
	if err := p.getJSON(ctx, "/data/2.5/forecast", coordValues(loc), &payload); err != nil {
		return nil, err
	}

	readings := make([]weather.Reading, 0, len(payload.List))
	for i, item := range payload.List {
		r, err := item.toReading()
		if err != nil {
			return nil, fmt.Errorf("forecast entry %d: %w", i, err)
		}
		readings = append(readings, r)
	}
	return readings, nil
}

func coordValues(loc weather.Location) url.Values {
	values := url.Values{}
	values.Set("lat", strconv.FormatFloat(loc.Lat, 'f', -1, 64))
	values.Set("lon", strconv.FormatFloat(loc.Lon, 'f', -1, 64))
	values.Set("units", openWeatherUnits)
	return values
}

// getJSON performs a GET against path and decodes the body into out.
func (p *OpenWeatherProvider) getJSON(ctx context.Context, path string, values url.Values, out any) error {
	if p.apiKey == "" {
		return fmt.Errorf("openweather api key is not configured")
	}

	values.Set("appid", p.apiKey)
	u := fmt.Sprintf("%s%s?%s", p.baseURL, path, values.Encode())

	req, err := http.NewRequest(http.MethodGet, u, nil)
	if err != nil {
		return err
	}

	start := time.Now()
	resp, err := doRequest(ctx, p.client, p.circuit, req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	p.log.Debug().
		Str("url", common.MaskAPIKey(u, "appid")).
		Int("status", resp.StatusCode).
		Dur("elapsed", time.Since(start)).
		Msg("provider request")

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode %s: %v", weather.ErrMalformedResponse, path, err)
	}
	return nil
}
