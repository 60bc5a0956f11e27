package weather

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// ForecastStride is the number of provider forecast readings per day.
// The forecast endpoint publishes one reading every 3 hours, so every 8th
// reading starting at index 0 is roughly one per day. The stride is not
// derived from the reading timestamps; it changes if the interval does.
const ForecastStride = 8

// Service runs the weather lookup pipeline: geocode, current conditions,
// forecast, normalize.
type Service struct {
	geocoder Geocoder
	provider Provider
	log      zerolog.Logger
	now      func() time.Time
}

// Option configures a Service.
type Option func(*Service)

// WithLogger sets the service logger.
func WithLogger(l zerolog.Logger) Option {
	return func(s *Service) {
		s.log = l.With().Str("component", "weather").Logger()
	}
}

// WithClock overrides the time source used to stamp current conditions.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		s.now = now
	}
}

// NewService creates a new Service.
func NewService(geocoder Geocoder, provider Provider, opts ...Option) *Service {
	s := &Service{
		geocoder: geocoder,
		provider: provider,
		log:      zerolog.Nop(),
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// GetWeatherForCity resolves city and returns the current conditions followed
// by one forecast record per day. Any failure aborts the lookup; the
// returned error is a *LookupError or *TransportError naming city.
func (s *Service) GetWeatherForCity(ctx context.Context, city string) ([]Record, error) {
	if strings.TrimSpace(city) == "" {
		return nil, wrapQueryError(city, ErrEmptyQuery)
	}
	if s.geocoder == nil || s.provider == nil {
		return nil, wrapQueryError(city, fmt.Errorf("no weather provider configured"))
	}

	log := s.log.With().Str("query", city).Logger()
	log.Debug().Msg("weather lookup started")

	loc, err := s.geocoder.Geocode(ctx, city)
	if err != nil {
		log.Warn().Err(err).Msg("geocoding failed")
		return nil, wrapQueryError(city, fmt.Errorf("geocode: %w", err))
	}

	cur, err := s.provider.Current(ctx, loc)
	if err != nil {
		log.Warn().Err(err).Str("provider", s.provider.Name()).Msg("current conditions failed")
		return nil, wrapQueryError(city, fmt.Errorf("current conditions: %w", err))
	}
	current := newRecord(loc, cur, s.now())

	series, err := s.provider.Forecast(ctx, loc)
	if err != nil {
		log.Warn().Err(err).Str("provider", s.provider.Name()).Msg("forecast failed")
		return nil, wrapQueryError(city, fmt.Errorf("forecast: %w", err))
	}

	daily := SelectDaily(series)
	records := make([]Record, 0, 1+len(daily))
	records = append(records, current)
	for _, r := range daily {
		records = append(records, newRecord(loc, r, r.Timestamp))
	}

	log.Debug().
		Str("city", loc.Name).
		Str("country", loc.Country).
		Int("forecast_days", len(daily)).
		Msg("weather lookup completed")

	return records, nil
}

// SelectDaily picks readings at indices 0, ForecastStride, 2*ForecastStride, ...
func SelectDaily(series []Reading) []Reading {
	out := make([]Reading, 0, (len(series)+ForecastStride-1)/ForecastStride)
	for i := 0; i < len(series); i += ForecastStride {
		out = append(out, series[i])
	}
	return out
}
