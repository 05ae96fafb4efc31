package geo

import (
	"math"

	"carpool/internal/domain"
)

const earthRadiusKm = 6371.0

// Distance returns the great-circle distance between two coordinates in
// kilometers, using the haversine formula. The result is symmetric and
// non-negative for any well-formed input.
func Distance(a, b domain.Coordinate) float64 {
	lat1 := a.Lat * math.Pi / 180
	lat2 := b.Lat * math.Pi / 180
	dLat := (b.Lat - a.Lat) * math.Pi / 180
	dLng := (b.Lng - a.Lng) * math.Pi / 180

	h := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(lat1)*math.Cos(lat2)*
			math.Sin(dLng/2)*math.Sin(dLng/2)
	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusKm * c
}

// WithinRange reports whether two coordinates are within rangeKm of each
// other.
func WithinRange(a, b domain.Coordinate, rangeKm float64) bool {
	return Distance(a, b) <= rangeKm
}
