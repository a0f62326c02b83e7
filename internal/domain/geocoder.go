package domain

import "context"

// GeocodingResult contains the coordinate returned by a geocoding provider.
type GeocodingResult struct {
	Lat         float64
	Lon         float64
	DisplayName string
}

// Geocoder resolves a Vietnamese province or place name to a coordinate.
// Used when a province has no representative coordinate from scraped data.
type Geocoder interface {
	Geocode(ctx context.Context, place string) (GeocodingResult, error)
}
