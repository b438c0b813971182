package routing

import (
	"errors"
	"fmt"

	"github.com/tracksandtaps/taps_core/internal/models"
)

var (
	ErrUnavailable = errors.New("path finder unavailable")
	ErrBadStatus   = errors.New("path finder returned non-success status")
	ErrMalformed   = errors.New("malformed path finder response")
	ErrNoRoute     = errors.New("no route found")
	ErrDetour      = errors.New("proposed path rejected as detour")
	ErrInvalidStop = errors.New("invalid coordinates")
)

// RouteComputeError explains why a foot route fell back to a direct line
type RouteComputeError struct {
	Origin      models.GeoPoint
	Destination models.GeoPoint
	Err         error
}

func (e *RouteComputeError) Error() string {
	return fmt.Sprintf("foot route (%.6f,%.6f) -> (%.6f,%.6f): %v",
		e.Origin.Lat, e.Origin.Lon, e.Destination.Lat, e.Destination.Lon, e.Err)
}

func (e *RouteComputeError) Unwrap() error { return e.Err }
