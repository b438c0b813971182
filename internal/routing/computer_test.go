package routing

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracksandtaps/taps_core/internal/geo"
	"github.com/tracksandtaps/taps_core/internal/models"
)

// fakeFinder answers FootPath from a function and counts calls
type fakeFinder struct {
	fn    func(ctx context.Context, origin, destination models.GeoPoint) (*FootPath, error)
	calls atomic.Int32
}

func (f *fakeFinder) FootPath(ctx context.Context, origin, destination models.GeoPoint) (*FootPath, error) {
	f.calls.Add(1)
	return f.fn(ctx, origin, destination)
}

func scaledPath(factor float64, coords [][]float64) func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error) {
	return func(_ context.Context, o, d models.GeoPoint) (*FootPath, error) {
		return &FootPath{
			DistanceMeters: geo.HaversineKm(o, d) * 1000 * factor,
			Coordinates:    coords,
		}, nil
	}
}

func testConfig() *Config {
	cfg := DefaultConfig()
	cfg.Timeout = 2 * time.Second
	return cfg
}

var (
	origin      = models.GeoPoint{Lat: 0, Lon: 0}
	destination = models.GeoPoint{Lat: 0, Lon: 0.01}
)

func TestComputeFootRoute(t *testing.T) {
	bend := [][]float64{{0, 0}, {0.005, 0.001}, {0.01, 0}}

	tests := []struct {
		name     string
		fn       func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error)
		expected models.RouteSegment
	}{
		{
			name: "Plausible path is kept as on foot",
			fn:   scaledPath(1.1, bend),
			expected: models.RouteSegment{
				Kind: models.KindOnFoot,
				Coordinates: []models.GeoPoint{
					{Lat: 0, Lon: 0},
					{Lat: 0.001, Lon: 0.005},
					{Lat: 0, Lon: 0.01},
				},
			},
		},
		{
			name: "Exactly twice the direct distance stays on foot",
			fn:   scaledPath(2, bend),
			expected: models.RouteSegment{
				Kind: models.KindOnFoot,
				Coordinates: []models.GeoPoint{
					{Lat: 0, Lon: 0},
					{Lat: 0.001, Lon: 0.005},
					{Lat: 0, Lon: 0.01},
				},
			},
		},
		{
			name:     "Just over twice the direct distance is rejected",
			fn:       scaledPath(2.001, bend),
			expected: models.DirectSegment(origin, destination),
		},
		{
			name:     "Detour three times the direct distance is rejected",
			fn:       scaledPath(3, bend),
			expected: models.DirectSegment(origin, destination),
		},
		{
			name: "Service error falls back to direct",
			fn: func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error) {
				return nil, &httpStatusError{Code: 500, Body: "boom"}
			},
			expected: models.DirectSegment(origin, destination),
		},
		{
			name: "Single point geometry is malformed",
			fn: func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error) {
				return &FootPath{DistanceMeters: 1000, Coordinates: [][]float64{{0, 0}}}, nil
			},
			expected: models.DirectSegment(origin, destination),
		},
		{
			name: "Nil path falls back to direct",
			fn: func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error) {
				return nil, nil
			},
			expected: models.DirectSegment(origin, destination),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRouteComputer(&fakeFinder{fn: tt.fn}, testConfig())
			seg := rc.ComputeFootRoute(context.Background(), origin, destination)
			assert.Equal(t, tt.expected, seg)
		})
	}
}

func TestComputeFootRoutePinsEndpoints(t *testing.T) {
	snapped := [][]float64{{0.0001, 0.0001}, {0.0099, 0.0001}}
	rc := NewRouteComputer(&fakeFinder{fn: scaledPath(1.05, snapped)}, testConfig())

	seg := rc.ComputeFootRoute(context.Background(), origin, destination)

	require.Equal(t, models.KindOnFoot, seg.Kind)
	require.Len(t, seg.Coordinates, 4)
	assert.Equal(t, origin, seg.Origin())
	assert.Equal(t, destination, seg.Destination())
}

func TestComputeFootRouteInvalidInputSkipsService(t *testing.T) {
	finder := &fakeFinder{fn: scaledPath(1, nil)}
	rc := NewRouteComputer(finder, testConfig())
	bad := models.GeoPoint{Lat: 95, Lon: 0}

	seg := rc.ComputeFootRoute(context.Background(), bad, destination)

	assert.Equal(t, models.DirectSegment(bad, destination), seg)
	assert.Equal(t, int32(0), finder.calls.Load())
}

func TestTryFootRouteErrors(t *testing.T) {
	tests := []struct {
		name string
		fn   func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error)
		want error
	}{
		{"Detour", scaledPath(2.5, [][]float64{{0, 0}, {0.01, 0}}), ErrDetour},
		{"Bad status", func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error) {
			return nil, &httpStatusError{Code: 503}
		}, ErrBadStatus},
		{"Negative distance", func(context.Context, models.GeoPoint, models.GeoPoint) (*FootPath, error) {
			return &FootPath{DistanceMeters: -1, Coordinates: [][]float64{{0, 0}, {0.01, 0}}}, nil
		}, ErrMalformed},
		{"Out of range coordinate", scaledPath(1, [][]float64{{0, 0}, {0.01, 120}}), ErrMalformed},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rc := NewRouteComputer(&fakeFinder{fn: tt.fn}, testConfig())
			_, err := rc.tryFootRoute(context.Background(), origin, destination)

			var rce *RouteComputeError
			require.True(t, errors.As(err, &rce))
			assert.ErrorIs(t, err, tt.want)
			assert.Equal(t, origin, rce.Origin)
		})
	}
}

func TestComputeFootRouteSamePoint(t *testing.T) {
	rc := NewRouteComputer(&fakeFinder{fn: scaledPath(1, [][]float64{{0, 0}, {0, 0}})}, testConfig())

	seg := rc.ComputeFootRoute(context.Background(), origin, origin)

	assert.Equal(t, models.KindOnFoot, seg.Kind)
	assert.Equal(t, origin, seg.Origin())
	assert.Equal(t, origin, seg.Destination())
}

func TestComputeTourRoute(t *testing.T) {
	stops := []models.GeoPoint{
		{Lat: 0, Lon: 0},
		{Lat: 0, Lon: 0.01},
		{Lat: 0, Lon: 0.02},
		{Lat: 0, Lon: 0.03},
		{Lat: 0, Lon: 0.04},
	}

	t.Run("Fewer than two stops", func(t *testing.T) {
		rc := NewRouteComputer(&fakeFinder{fn: scaledPath(1, nil)}, testConfig())
		assert.Empty(t, rc.ComputeTourRoute(context.Background(), nil))
		assert.Empty(t, rc.ComputeTourRoute(context.Background(), stops[:1]))
	})

	t.Run("Order preserved when legs finish out of order", func(t *testing.T) {
		finder := &fakeFinder{fn: func(ctx context.Context, o, d models.GeoPoint) (*FootPath, error) {
			// earlier legs finish last
			delay := time.Duration(5-int(d.Lon*100)) * 10 * time.Millisecond
			time.Sleep(delay)
			return &FootPath{
				DistanceMeters: geo.HaversineKm(o, d) * 1000,
				Coordinates:    [][]float64{o.LonLat(), d.LonLat()},
			}, nil
		}}
		rc := NewRouteComputer(finder, testConfig())

		route := rc.ComputeTourRoute(context.Background(), stops)

		require.Len(t, route, len(stops)-1)
		for i, seg := range route {
			assert.Equal(t, models.KindOnFoot, seg.Kind)
			assert.Equal(t, stops[i], seg.Origin())
			assert.Equal(t, stops[i+1], seg.Destination())
		}
		assert.Equal(t, int32(len(stops)-1), finder.calls.Load())
	})

	t.Run("Per-leg failures degrade only that leg", func(t *testing.T) {
		finder := &fakeFinder{fn: func(_ context.Context, o, d models.GeoPoint) (*FootPath, error) {
			if o == stops[1] {
				return nil, ErrNoRoute
			}
			return &FootPath{DistanceMeters: geo.HaversineKm(o, d) * 1000, Coordinates: [][]float64{o.LonLat(), d.LonLat()}}, nil
		}}
		rc := NewRouteComputer(finder, testConfig())

		route := rc.ComputeTourRoute(context.Background(), stops)

		require.Len(t, route, 4)
		assert.Equal(t, models.KindOnFoot, route[0].Kind)
		assert.Equal(t, models.KindDirect, route[1].Kind)
		assert.Equal(t, models.KindOnFoot, route[2].Kind)
	})

	t.Run("Unexpected failure falls back to all direct", func(t *testing.T) {
		var once sync.Once
		finder := &fakeFinder{fn: func(_ context.Context, o, d models.GeoPoint) (*FootPath, error) {
			once.Do(func() { panic("finder exploded") })
			return &FootPath{DistanceMeters: geo.HaversineKm(o, d) * 1000, Coordinates: [][]float64{o.LonLat(), d.LonLat()}}, nil
		}}
		rc := NewRouteComputer(finder, testConfig())

		route := rc.ComputeTourRoute(context.Background(), stops)

		assert.Equal(t, DirectTourRoute(stops), route)
	})
}

func TestDirectTourRoute(t *testing.T) {
	stops := []models.GeoPoint{{Lat: 1, Lon: 1}, {Lat: 2, Lon: 2}, {Lat: 3, Lon: 3}}

	route := DirectTourRoute(stops)

	require.Len(t, route, 2)
	assert.Equal(t, models.DirectSegment(stops[0], stops[1]), route[0])
	assert.Equal(t, models.DirectSegment(stops[1], stops[2]), route[1])
	assert.Empty(t, DirectTourRoute(stops[:1]))
}
