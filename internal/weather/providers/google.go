package providers

import (
	"context"
	"fmt"
	"sync"

	"github.com/kelvins/geocoder"
	"github.com/rs/zerolog"

	"github.com/i474232898/weather-dashboard/internal/common"
	"github.com/i474232898/weather-dashboard/internal/weather"
)

// geocoderMu guards the package-level API key of the geocoder library. The
// library reads the key while it builds each request, so the lock is held for
// the whole call.
var geocoderMu sync.Mutex

// GoogleGeocoder resolves place names through the Google Geocoding API.
// The geocoder library only returns coordinates, so the display name is the
// query itself and the country comes from a reverse lookup.
//
// Library calls are serialized process-wide, one call at a time. A lookup
// releases the lock between its forward and reverse calls, and it stops there
// if ctx is done.
type GoogleGeocoder struct {
	apiKey string
	log    zerolog.Logger

	geocode func(geocoder.Address) (geocoder.Location, error)
	reverse func(geocoder.Location) ([]geocoder.Address, error)
}

func NewGoogleGeocoder(apiKey string, log zerolog.Logger) *GoogleGeocoder {
	return &GoogleGeocoder{
		apiKey:  apiKey,
		log:     log.With().Str("component", "google_geocoder").Logger(),
		geocode: geocoder.Geocoding,
		reverse: geocoder.GeocodingReverse,
	}
}

// Geocode implements weather.Geocoder.
func (g *GoogleGeocoder) Geocode(ctx context.Context, query string) (weather.Location, error) {
	if g.apiKey == "" {
		return weather.Location{}, fmt.Errorf("google geocoder api key is not configured")
	}
	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	var point geocoder.Location
	err := g.withKey(func() (err error) {
		point, err = g.geocode(geocoder.Address{City: query})
		return err
	})
	if err != nil {
		return weather.Location{}, classifyGoogleError(err)
	}

	loc := weather.Location{
		Lat:  point.Latitude,
		Lon:  point.Longitude,
		Name: query,
	}

	if err := ctx.Err(); err != nil {
		return weather.Location{}, err
	}

	var addresses []geocoder.Address
	err = g.withKey(func() (err error) {
		addresses, err = g.reverse(point)
		return err
	})
	if err != nil {
		return weather.Location{}, classifyGoogleError(err)
	}
	if len(addresses) > 0 {
		loc.Country = addresses[0].Country
	}

	g.log.Debug().Str("query", query).Float64("lat", loc.Lat).Float64("lon", loc.Lon).Msg("geocoded")
	return loc, nil
}

// withKey runs f with the library's API key set to g.apiKey.
func (g *GoogleGeocoder) withKey(f func() error) error {
	geocoderMu.Lock()
	defer geocoderMu.Unlock()
	geocoder.ApiKey = g.apiKey
	return f()
}

// classifyGoogleError maps empty result statuses to weather.ErrNoMatch.
func classifyGoogleError(err error) error {
	if common.HasAny(err.Error(), "ZERO_RESULTS", "no results") {
		return fmt.Errorf("%w: %v", weather.ErrNoMatch, err)
	}
	return err
}
