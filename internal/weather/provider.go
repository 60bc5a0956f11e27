package weather

import (
	"context"
)

// Geocoder resolves a free-text place name to a single Location.
// Implementations return ErrNoMatch when the provider has no result.
type Geocoder interface {
	Geocode(ctx context.Context, query string) (Location, error)
}

// Provider fetches current conditions and the raw forecast series for a
// coordinate pair.
type Provider interface {
	Name() string
	Current(ctx context.Context, loc Location) (Reading, error)
	// Forecast returns every reading the provider publishes, in order.
	// Daily selection happens in the service.
	Forecast(ctx context.Context, loc Location) ([]Reading, error)
}
