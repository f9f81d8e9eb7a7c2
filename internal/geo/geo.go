// Package geo implements the great-circle proximity test used by the feed
// and by nearby-user notifications.
package geo

import (
	"math"

	"github.com/mr1hm/go-alert-board/internal/models"
)

// EarthRadiusKm is the mean Earth radius.
const EarthRadiusKm = 6371.0

// DistanceKm returns the haversine distance between a and b in kilometers.
// The atan2 form stays well defined for antipodal points.
func DistanceKm(a, b models.Coordinate) float64 {
	lat1 := toRad(a.Lat)
	lat2 := toRad(b.Lat)
	dLat := toRad(b.Lat - a.Lat)
	dLng := toRad(b.Lng - a.Lng)

	sinLat := math.Sin(dLat / 2)
	sinLng := math.Sin(dLng / 2)
	h := sinLat*sinLat + math.Cos(lat1)*math.Cos(lat2)*sinLng*sinLng
	// rounding can push h a hair past 1 near the antipode
	h = math.Min(1, math.Max(0, h))

	return 2 * EarthRadiusKm * math.Atan2(math.Sqrt(h), math.Sqrt(1-h))
}

// WithinRadius reports whether target lies within radiusKm of viewer.
// Malformed coordinates are never within range.
func WithinRadius(viewer, target models.Coordinate, radiusKm float64) bool {
	if !Valid(viewer) || !Valid(target) || math.IsNaN(radiusKm) {
		return false
	}
	return DistanceKm(viewer, target) <= radiusKm
}

// Valid reports whether c is a finite latitude/longitude pair in degrees.
func Valid(c models.Coordinate) bool {
	if math.IsNaN(c.Lat) || math.IsNaN(c.Lng) || math.IsInf(c.Lat, 0) || math.IsInf(c.Lng, 0) {
		return false
	}
	return c.Lat >= -90 && c.Lat <= 90 && c.Lng >= -180 && c.Lng <= 180
}

func toRad(deg float64) float64 {
	return deg * math.Pi / 180
}
