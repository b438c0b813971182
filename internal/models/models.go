package models

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
	"time"
)

// SegmentKind tells how a route segment's geometry was obtained
type SegmentKind string

const (
	KindOnFoot SegmentKind = "ON_FOOT"
	KindDirect SegmentKind = "DIRECT"
)

// GeoPoint is an immutable geographic coordinate
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Valid reports whether the point lies inside the WGS84 coordinate ranges
func (p GeoPoint) Valid() bool {
	if math.IsNaN(p.Lat) || math.IsNaN(p.Lon) {
		return false
	}
	return p.Lat >= -90 && p.Lat <= 90 && p.Lon >= -180 && p.Lon <= 180
}

// LonLat returns the point as [lon, lat], the ordering used by GeoJSON and OSRM
func (p GeoPoint) LonLat() []float64 { return []float64{p.Lon, p.Lat} }

// RouteSegment is the traversable path between two points.
// Coordinates always hold at least two points: origin first, destination last.
// A DIRECT segment holds exactly two.
type RouteSegment struct {
	Coordinates []GeoPoint  `json:"coordinates"`
	Kind        SegmentKind `json:"kind"`
}

// DirectSegment builds the straight-line fallback between two points
func DirectSegment(origin, destination GeoPoint) RouteSegment {
	return RouteSegment{
		Coordinates: []GeoPoint{origin, destination},
		Kind:        KindDirect,
	}
}

// Origin returns the first coordinate of the segment
func (s RouteSegment) Origin() GeoPoint {
	if len(s.Coordinates) == 0 {
		return GeoPoint{}
	}
	return s.Coordinates[0]
}

// Destination returns the last coordinate of the segment
func (s RouteSegment) Destination() GeoPoint {
	if len(s.Coordinates) == 0 {
		return GeoPoint{}
	}
	return s.Coordinates[len(s.Coordinates)-1]
}

// TourRoute holds one segment per consecutive stop pair, in stop order
type TourRoute []RouteSegment

// AllDirect reports whether no segment carries a walking path
func (r TourRoute) AllDirect() bool {
	for _, seg := range r {
		if seg.Kind != KindDirect {
			return false
		}
	}
	return true
}

// Position is a single device location sample
type Position struct {
	Point      GeoPoint  `json:"point"`
	AccuracyM  float64   `json:"accuracy_meters,omitempty"`
	RecordedAt time.Time `json:"recorded_at"`
}

// ChallengeDraft is a challenge attached to a stop in a tour draft
type ChallengeDraft struct {
	Title  string     `json:"title,omitempty"`
	Type   string     `json:"type,omitempty"`
	Points FlexPoints `json:"points"`
}

// StopDraft is a stop in a tour draft
type StopDraft struct {
	Name         string           `json:"name,omitempty"`
	Lat          float64          `json:"lat"`
	Lon          float64          `json:"lon"`
	Challenges   []ChallengeDraft `json:"challenges"`
	PubgolfPar   *int             `json:"pubgolf_par,omitempty"`
	PubgolfDrink string           `json:"pubgolf_drink,omitempty"`
}

// Point returns the stop location
func (s StopDraft) Point() GeoPoint { return GeoPoint{Lat: s.Lat, Lon: s.Lon} }

// HasPubgolfHole reports whether both the par and the drink are set
func (s StopDraft) HasPubgolfHole() bool {
	return s.PubgolfPar != nil && strings.TrimSpace(s.PubgolfDrink) != ""
}

// TourDraftMetrics are the derived estimates shown while authoring a tour
type TourDraftMetrics struct {
	DistanceKm      float64 `json:"distance_km"`
	DurationMinutes int     `json:"duration_minutes"`
	Points          int     `json:"points"`
}

// FlexPoints is a challenge point value decoded leniently.
// Numbers and numeric strings are accepted; anything else counts as zero.
type FlexPoints int

func (p *FlexPoints) UnmarshalJSON(data []byte) error {
	*p = 0
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		return nil
	}

	raw := string(data)
	if data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return nil
		}
		raw = strings.TrimSpace(s)
	}

	f, err := strconv.ParseFloat(raw, 64)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		return nil
	}
	*p = FlexPoints(math.Round(f))
	return nil
}
