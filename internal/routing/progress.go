package routing

import (
	"math"

	"github.com/tracksandtaps/taps_core/internal/geo"
	"github.com/tracksandtaps/taps_core/internal/models"
)

// Progress describes where a walker is relative to a route segment.
// OnRoute is the walker's marker position snapped onto the segment.
type Progress struct {
	TotalKm     float64         `json:"total_km"`
	WalkedKm    float64         `json:"walked_km"`
	RemainingKm float64         `json:"remaining_km"`
	Fraction    float64         `json:"fraction"`
	OnRoute     models.GeoPoint `json:"on_route"`
}

// TourDistanceKm sums the geometry length of every segment
func TourDistanceKm(route models.TourRoute) float64 {
	total := 0.0
	for _, seg := range route {
		total += geo.PathKm(seg.Coordinates)
	}
	return total
}

// PositionAlong returns the point reached after walking fraction of the segment length
func PositionAlong(seg models.RouteSegment, fraction float64) models.GeoPoint {
	coords := seg.Coordinates
	if len(coords) == 0 {
		return models.GeoPoint{}
	}
	if fraction <= 0 || len(coords) == 1 {
		return coords[0]
	}
	if fraction >= 1 {
		return coords[len(coords)-1]
	}

	target := fraction * geo.PathKm(coords)
	walked := 0.0
	for i := 1; i < len(coords); i++ {
		legKm := geo.HaversineKm(coords[i-1], coords[i])
		if walked+legKm >= target && legKm > 0 {
			return geo.Interpolate(coords[i-1], coords[i], (target-walked)/legKm)
		}
		walked += legKm
	}

	return coords[len(coords)-1]
}

// ProgressAlong projects pos onto the nearest vertex of the segment and reports
// distance walked and remaining from there.
func ProgressAlong(seg models.RouteSegment, pos models.GeoPoint) Progress {
	coords := seg.Coordinates
	total := geo.PathKm(coords)
	if len(coords) == 0 {
		return Progress{}
	}

	nearest := 0
	best := math.Inf(1)
	for i, c := range coords {
		if d := geo.HaversineKm(pos, c); d < best {
			best = d
			nearest = i
		}
	}

	walked := geo.PathKm(coords[:nearest+1])
	remaining := best + geo.PathKm(coords[nearest:])
	fraction := EstimateProgress(walked, total)

	return Progress{
		TotalKm:     total,
		WalkedKm:    walked,
		RemainingKm: remaining,
		Fraction:    fraction,
		OnRoute:     PositionAlong(seg, fraction),
	}
}

// EstimateProgress returns walked/total clamped to [0, 1]
func EstimateProgress(walked, total float64) float64 {
	if total <= 0 {
		return 0
	}
	return math.Max(0, math.Min(1, walked/total))
}
