package weather

import (
	"time"
)

// Location is a geocoding match resolved from a free-text query.
// It lives for the duration of a single lookup and is never persisted.
type Location struct {
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
	Name    string  `json:"name"`
	Country string  `json:"country"`
}

// Reading is one provider observation, either current conditions or a
// single forecast point. Values are imperial (°F, mph).
type Reading struct {
	Timestamp   time.Time
	Temperature float64
	FeelsLike   float64
	Humidity    float64
	WindSpeed   float64
	Description string
	Icon        string
}

// Record is the normalized weather view returned to clients.
type Record struct {
	CityName    string    `json:"cityName"`
	Country     string    `json:"country"`
	Temperature float64   `json:"temperature"`
	FeelsLike   float64   `json:"feelsLike"`
	Humidity    float64   `json:"humidity"`
	WindSpeed   float64   `json:"windSpeed"`
	Description string    `json:"description"`
	Icon        string    `json:"icon"`
	Date        time.Time `json:"date"`
}

// newRecord labels a reading with the resolved location.
func newRecord(loc Location, r Reading, ts time.Time) Record {
	return Record{
		CityName:    loc.Name,
		Country:     loc.Country,
		Temperature: r.Temperature,
		FeelsLike:   r.FeelsLike,
		Humidity:    r.Humidity,
		WindSpeed:   r.WindSpeed,
		Description: r.Description,
		Icon:        r.Icon,
		Date:        ts,
	}
}
