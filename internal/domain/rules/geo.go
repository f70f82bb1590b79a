package rules

import (
	"errors"
	"fmt"
	"math"
)

var ErrInvalidCoordinates = errors.New("invalid coordinates")

func ValidateCoordinates(lat, lon float64) error {
	if math.IsNaN(lat) || math.IsNaN(lon) || math.IsInf(lat, 0) || math.IsInf(lon, 0) {
		return ErrInvalidCoordinates
	}
	if lat < -90 || lat > 90 || lon < -180 || lon > 180 {
		return ErrInvalidCoordinates
	}
	return nil
}

// HaversineKM computes the great-circle distance between two points in km.
func HaversineKM(lat1, lon1, lat2, lon2 float64) float64 {
	const earthRadiusKM = 6371.0

	toRad := func(v float64) float64 { return v * math.Pi / 180 }
	dLat := toRad(lat2 - lat1)
	dLon := toRad(lon2 - lon1)
	a := math.Sin(dLat/2)*math.Sin(dLat/2) +
		math.Cos(toRad(lat1))*math.Cos(toRad(lat2))*math.Sin(dLon/2)*math.Sin(dLon/2)
	c := 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
	return earthRadiusKM * c
}

// FormatDistance renders a distance for alert texts: meters under a
// kilometer, one decimal up to 10 km, whole kilometers beyond.
func FormatDistance(km float64) string {
	switch {
	case km < 1:
		return fmt.Sprintf("%d м", int(math.Round(km*1000)))
	case km <= 10:
		return fmt.Sprintf("%.1f км", km)
	default:
		return fmt.Sprintf("%d км", int(math.Round(km)))
	}
}

// RoundCoordinate truncates a coordinate to 4 decimal places (~11 m grid),
// the granularity used for address cache keys.
func RoundCoordinate(v float64) float64 {
	return math.Round(v*10000) / 10000
}
