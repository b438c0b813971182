package navigation

import (
	"context"
	"sync"

	"github.com/tracksandtaps/taps_core/internal/models"
)

type previewKey struct {
	previous models.GeoPoint
	target   models.GeoPoint
}

// Preview holds the static "where you're headed" route for the upcoming stop card.
// It is computed from the previous completed stop, never from live position, and only
// recomputed when the stop pair changes.
type Preview struct {
	router FootRouter

	mu    sync.Mutex
	key   *previewKey
	route models.RouteSegment
}

// NewPreview creates an empty preview
func NewPreview(router FootRouter) *Preview {
	return &Preview{router: router}
}

// Route returns the preview route for the (previous, target) transition
func (p *Preview) Route(ctx context.Context, previous, target models.GeoPoint) models.RouteSegment {
	key := previewKey{previous: previous, target: target}

	p.mu.Lock()
	defer p.mu.Unlock()

	if p.key != nil && *p.key == key {
		return p.route
	}

	p.route = p.router.ComputeFootRoute(ctx, previous, target)
	p.key = &key
	return p.route
}

