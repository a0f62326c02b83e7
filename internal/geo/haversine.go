// Package geo provides distance features and place geocoding. Distances to
// the two main gateway cities proxy how reachable a destination is for the
// bulk of domestic travellers.
package geo

import "math"

const earthRadiusKm = 6371.0

// Gateway coordinates used for the distance features.
var (
	Hanoi     = Point{Lat: 21.0285, Lon: 105.8542}
	HoChiMinh = Point{Lat: 10.8231, Lon: 106.6297}
)

// Point is a WGS84 coordinate.
type Point struct {
	Lat float64
	Lon float64
}

// Haversine returns the great-circle distance between two points in km.
func Haversine(a, b Point) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLon := (b.Lon - a.Lon) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*math.Sin(dLon/2)*math.Sin(dLon/2)
	return 2 * earthRadiusKm * math.Asin(math.Sqrt(h))
}

// GatewayDistances are a point's distances to the two gateway cities in km.
type GatewayDistances struct {
	ToHanoi     float64
	ToHoChiMinh float64
	ToNearest   float64
}

// Gateways computes the distance features for one coordinate.
func Gateways(p Point) GatewayDistances {
	d := GatewayDistances{
		ToHanoi:     Haversine(p, Hanoi),
		ToHoChiMinh: Haversine(p, HoChiMinh),
	}
	d.ToNearest = math.Min(d.ToHanoi, d.ToHoChiMinh)
	return d
}
