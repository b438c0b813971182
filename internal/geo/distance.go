package geo

import (
	"math"

	"github.com/golang/geo/s2"
	"github.com/tracksandtaps/taps_core/internal/models"
)

const (
	EarthRadiusKm     = 6371.0
	EarthRadiusMeters = EarthRadiusKm * 1000
)

// HaversineKm returns the great-circle distance between two points in kilometers.
// s2.LatLng.Distance uses the haversine formula on the unit sphere.
func HaversineKm(a, b models.GeoPoint) float64 {
	p1 := s2.LatLngFromDegrees(a.Lat, a.Lon)
	p2 := s2.LatLngFromDegrees(b.Lat, b.Lon)
	return p1.Distance(p2).Radians() * EarthRadiusKm
}

// PathKm sums the great-circle distance over consecutive points
func PathKm(points []models.GeoPoint) float64 {
	total := 0.0
	for i := 1; i < len(points); i++ {
		total += HaversineKm(points[i-1], points[i])
	}
	return total
}

// Interpolate returns the point at fraction t along the great circle from a to b
func Interpolate(a, b models.GeoPoint, t float64) models.GeoPoint {
	t = math.Max(0, math.Min(1, t))
	p := s2.Interpolate(t,
		s2.PointFromLatLng(s2.LatLngFromDegrees(a.Lat, a.Lon)),
		s2.PointFromLatLng(s2.LatLngFromDegrees(b.Lat, b.Lon)),
	)
	ll := s2.LatLngFromPoint(p)
	return models.GeoPoint{Lat: ll.Lat.Degrees(), Lon: ll.Lng.Degrees()}
}

// RoundTo rounds v to the given number of decimal places
func RoundTo(v float64, places int) float64 {
	scale := math.Pow(10, float64(places))
	return math.Round(v*scale) / scale
}
