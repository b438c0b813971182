package routing

import (
	"context"
	"fmt"
	"log"
	"math"
	"time"

	"github.com/tracksandtaps/taps_core/internal/geo"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/obs"
	"golang.org/x/sync/errgroup"
)

// endpointTolerance is how far (in degrees) a service path may start or end from the
// requested points before the requested point is pinned onto the geometry.
const endpointTolerance = 1e-6

// RouteComputer produces route geometry between stops, falling back to a direct line
// whenever the path-finding service fails or proposes an implausible detour.
type RouteComputer struct {
	finder       PathFinder
	timeout      time.Duration
	detourFactor float64
	maxLegs      int
}

// NewRouteComputer creates a route computer backed by finder
func NewRouteComputer(finder PathFinder, cfg *Config) *RouteComputer {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &RouteComputer{
		finder:       finder,
		timeout:      cfg.Timeout,
		detourFactor: cfg.DetourFactor,
		maxLegs:      cfg.MaxLegs,
	}
}

// ComputeFootRoute returns the walking route between two points.
// It never fails: any service error or rejected detour yields a DIRECT segment.
func (c *RouteComputer) ComputeFootRoute(ctx context.Context, origin, destination models.GeoPoint) models.RouteSegment {
	seg, err := c.tryFootRoute(ctx, origin, destination)
	if err != nil {
		obs.Debugf("%v; using direct line", err)
		return models.DirectSegment(origin, destination)
	}
	return seg
}

func (c *RouteComputer) tryFootRoute(ctx context.Context, origin, destination models.GeoPoint) (models.RouteSegment, error) {
	fail := func(err error) (models.RouteSegment, error) {
		return models.RouteSegment{}, &RouteComputeError{Origin: origin, Destination: destination, Err: err}
	}

	if !origin.Valid() || !destination.Valid() {
		return fail(ErrInvalidStop)
	}
	if c.finder == nil {
		return fail(ErrUnavailable)
	}

	directKm := geo.HaversineKm(origin, destination)

	if c.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	path, err := c.finder.FootPath(ctx, origin, destination)
	if err != nil {
		return fail(err)
	}
	if path == nil {
		return fail(ErrNoRoute)
	}

	if math.IsNaN(path.DistanceMeters) || math.IsInf(path.DistanceMeters, 0) || path.DistanceMeters < 0 {
		return fail(fmt.Errorf("%w: distance %v", ErrMalformed, path.DistanceMeters))
	}
	// a path of exactly detourFactor times the direct distance is still accepted
	directM := directKm * 1000
	if path.DistanceMeters > c.detourFactor*directM {
		return fail(fmt.Errorf("%w: proposed %.3f km, direct %.3f km", ErrDetour, path.DistanceMeters/1000, directKm))
	}

	coords, err := toGeoPoints(path.Coordinates)
	if err != nil {
		return fail(err)
	}

	return models.RouteSegment{
		Coordinates: pinEndpoints(coords, origin, destination),
		Kind:        models.KindOnFoot,
	}, nil
}

// toGeoPoints converts [lon, lat] pairs into GeoPoints
func toGeoPoints(pairs [][]float64) ([]models.GeoPoint, error) {
	if len(pairs) < 2 {
		return nil, fmt.Errorf("%w: geometry has %d points", ErrMalformed, len(pairs))
	}

	points := make([]models.GeoPoint, 0, len(pairs))
	for i, pair := range pairs {
		if len(pair) < 2 {
			return nil, fmt.Errorf("%w: coordinate %d has %d values", ErrMalformed, i, len(pair))
		}
		p := models.GeoPoint{Lat: pair[1], Lon: pair[0]}
		if !p.Valid() {
			return nil, fmt.Errorf("%w: coordinate %d out of range", ErrMalformed, i)
		}
		points = append(points, p)
	}
	return points, nil
}

// pinEndpoints makes sure the geometry starts at origin and ends at destination.
// Path finders snap to the nearest way, so the raw geometry may start a few meters off.
func pinEndpoints(points []models.GeoPoint, origin, destination models.GeoPoint) []models.GeoPoint {
	if !samePoint(points[0], origin) {
		points = append([]models.GeoPoint{origin}, points...)
	}
	if !samePoint(points[len(points)-1], destination) {
		points = append(points, destination)
	}
	return points
}

func samePoint(a, b models.GeoPoint) bool {
	return math.Abs(a.Lat-b.Lat) <= endpointTolerance && math.Abs(a.Lon-b.Lon) <= endpointTolerance
}

// ComputeTourRoute returns one segment per consecutive stop pair, in stop order.
// Legs are computed concurrently. If the fan-out fails as a whole the tour falls back
// to direct lines without any network calls.
func (c *RouteComputer) ComputeTourRoute(ctx context.Context, stops []models.GeoPoint) models.TourRoute {
	if len(stops) < 2 {
		return models.TourRoute{}
	}

	route, err := c.fanOut(ctx, stops)
	if err != nil {
		log.Printf("tour route fan-out failed, using direct lines: %v", err)
		return DirectTourRoute(stops)
	}
	return route
}

func (c *RouteComputer) fanOut(ctx context.Context, stops []models.GeoPoint) (models.TourRoute, error) {
	route := make(models.TourRoute, len(stops)-1)

	g, gctx := errgroup.WithContext(ctx)
	if c.maxLegs > 0 {
		g.SetLimit(c.maxLegs)
	}

	leg := func(i int) func() error {
		return func() (err error) {
			defer func() {
				if r := recover(); r != nil {
					err = fmt.Errorf("leg %d: %v", i, r)
				}
			}()
			route[i] = c.ComputeFootRoute(gctx, stops[i], stops[i+1])
			return nil
		}
	}

	for i := range route {
		g.Go(leg(i))
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return route, nil
}

// DirectTourRoute builds an all-DIRECT tour route from consecutive stop pairs
func DirectTourRoute(stops []models.GeoPoint) models.TourRoute {
	if len(stops) < 2 {
		return models.TourRoute{}
	}

	route := make(models.TourRoute, 0, len(stops)-1)
	for i := 1; i < len(stops); i++ {
		route = append(route, models.DirectSegment(stops[i-1], stops[i]))
	}
	return route
}
