package geo

import (
	"math"
)

const earthRadiusMeters = 6371000.0 // Earth's radius in meters

// Point is a single geographic coordinate.
type Point struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// DistanceMeters calculates the great-circle distance between two points
// using the haversine formula. It is symmetric and returns 0 for equal
// points. Coordinates outside the valid latitude/longitude ranges are the
// caller's responsibility; the result is not defined for them.
func DistanceMeters(a, b Point) float64 {
	if a == b {
		return 0
	}

	lat1Rad := toRadians(a.Lat)
	lat2Rad := toRadians(b.Lat)
	deltaLat := toRadians(b.Lat - a.Lat)
	deltaLon := toRadians(b.Lon - a.Lon)

	// Haversine formula
	h := math.Sin(deltaLat/2)*math.Sin(deltaLat/2) +
		math.Cos(lat1Rad)*math.Cos(lat2Rad)*
			math.Sin(deltaLon/2)*math.Sin(deltaLon/2)

	c := 2 * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))

	return earthRadiusMeters * c
}

func toRadians(degrees float64) float64 {
	return degrees * math.Pi / 180.0
}
