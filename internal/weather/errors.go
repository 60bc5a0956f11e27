package weather

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyQuery is returned when a lookup is started without a location.
	ErrEmptyQuery = errors.New("location query is empty")

	// ErrNoMatch is returned by a Geocoder when the query resolves to nothing.
	ErrNoMatch = errors.New("no match")

	// ErrMalformedResponse marks a provider answer that decoded but cannot be used.
	ErrMalformedResponse = errors.New("malformed provider response")
)

// LookupError reports a lookup that reached the provider but got no usable
// answer: no geocoding match or a malformed payload.
type LookupError struct {
	Query string
	Err   error
}

func (e *LookupError) Error() string {
	return fmt.Sprintf("failed to fetch weather data for %s: %v", e.Query, e.Err)
}

func (e *LookupError) Unwrap() error { return e.Err }

// TransportError reports a network or provider-side failure.
type TransportError struct {
	Query string
	Err   error
}

func (e *TransportError) Error() string {
	return fmt.Sprintf("failed to fetch weather data for %s: %v", e.Query, e.Err)
}

func (e *TransportError) Unwrap() error { return e.Err }

// wrapQueryError attaches the query to err and classifies it.
func wrapQueryError(query string, err error) error {
	if errors.Is(err, ErrNoMatch) || errors.Is(err, ErrMalformedResponse) || errors.Is(err, ErrEmptyQuery) {
		return &LookupError{Query: query, Err: err}
	}
	return &TransportError{Query: query, Err: err}
}
