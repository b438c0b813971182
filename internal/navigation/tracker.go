package navigation

import (
	"context"
	"errors"
	"log"
	"sync"
	"time"

	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/routing"
)

// State is the live navigation state of a tracker
type State string

const (
	StateIdle      State = "IDLE"
	StateAcquiring State = "ACQUIRING_POSITION"
	StateTracking  State = "TRACKING"
	// StateDegraded means no live tracking (permission denied, no fix or feed ended).
	// The static preview route is still available.
	StateDegraded State = "DEGRADED"
)

var ErrInvalidDestination = errors.New("invalid destination")

// FootRouter computes walking routes; *routing.RouteComputer satisfies it
type FootRouter interface {
	ComputeFootRoute(ctx context.Context, origin, destination models.GeoPoint) models.RouteSegment
}

// Session is the ephemeral state of one active navigation
type Session struct {
	Destination         models.GeoPoint
	LastKnownPosition   *models.Position
	LastRouteComputedAt time.Time
	CurrentRoute        *models.RouteSegment
}

// Snapshot is a copy of the tracker state safe to hand to callers
type Snapshot struct {
	State               State                `json:"state"`
	Destination         *models.GeoPoint     `json:"destination,omitempty"`
	LastKnownPosition   *models.Position     `json:"last_known_position,omitempty"`
	LastRouteComputedAt *time.Time           `json:"last_route_computed_at,omitempty"`
	CurrentRoute        *models.RouteSegment `json:"current_route,omitempty"`
	LiveRouteAvailable  bool                 `json:"live_route_available"`
	Progress            *routing.Progress    `json:"progress,omitempty"`
}

// Tracker keeps a navigating user's route to the destination current.
// Route recomputes are throttled and guarded by a sequence number so a slow
// response never overwrites a newer one.
type Tracker struct {
	router   FootRouter
	provider LocationProvider
	cfg      *Config
	now      func() time.Time
	preview  *Preview

	mu      sync.Mutex
	state   State
	session *Session
	gen     uint64 // bumped on every Start/Stop
	seq     uint64 // last issued recompute
	ctx     context.Context
	cancel  context.CancelFunc
	done    chan struct{} // closed when the update consumer exits

	recomputes sync.WaitGroup
}

// NewTracker creates an idle tracker
func NewTracker(router FootRouter, provider LocationProvider, cfg *Config) *Tracker {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	return &Tracker{
		router:   router,
		provider: provider,
		cfg:      cfg,
		now:      time.Now,
		preview:  NewPreview(router),
		state:    StateIdle,
	}
}

// Subscription is the handle returned by Start; Close ends the navigation it started
type Subscription struct {
	tracker *Tracker
	gen     uint64
	once    sync.Once
}

// Close stops tracking if the tracker is still on this subscription's session
func (s *Subscription) Close() {
	s.once.Do(func() { s.tracker.stop(s.gen) })
}

// Start enters full navigation mode towards destination and blocks until the first
// fix is resolved. Any current session ends first. Permission denial or a failed first
// fix leave the tracker DEGRADED, not failed.
func (t *Tracker) Start(ctx context.Context, destination models.GeoPoint) (*Subscription, error) {
	sub, sctx, err := t.begin(ctx, destination)
	if err != nil {
		return nil, err
	}
	t.acquire(sctx, sub.gen)
	return sub, nil
}

// StartAsync is Start with the permission request and first fix run in the background;
// the tracker reports ACQUIRING_POSITION until they resolve.
func (t *Tracker) StartAsync(ctx context.Context, destination models.GeoPoint) (*Subscription, error) {
	sub, sctx, err := t.begin(ctx, destination)
	if err != nil {
		return nil, err
	}
	go t.acquire(sctx, sub.gen)
	return sub, nil
}

func (t *Tracker) begin(ctx context.Context, destination models.GeoPoint) (*Subscription, context.Context, error) {
	if !destination.Valid() {
		return nil, nil, ErrInvalidDestination
	}

	t.Stop()

	t.mu.Lock()
	defer t.mu.Unlock()
	t.gen++
	sctx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	t.ctx, t.cancel = sctx, cancel
	t.state = StateAcquiring
	t.session = &Session{Destination: destination}

	return &Subscription{tracker: t, gen: t.gen}, sctx, nil
}

func (t *Tracker) acquire(sctx context.Context, gen uint64) {
	granted, err := t.provider.RequestPermission(sctx)
	if err != nil || !granted {
		t.degrade(gen, "location permission denied", err)
		return
	}

	fixCtx, fixCancel := context.WithTimeout(sctx, t.cfg.FixTimeout)
	pos, err := t.provider.CurrentPosition(fixCtx)
	fixCancel()
	if err != nil {
		t.degrade(gen, "no position fix", err)
		return
	}

	updates, err := t.provider.Subscribe(sctx, t.cfg.subscribeOptions())
	if err != nil {
		t.degrade(gen, "position subscription failed", err)
		return
	}

	t.mu.Lock()
	if gen != t.gen {
		// stopped while acquiring; sctx is already cancelled so the feed closes
		t.mu.Unlock()
		return
	}
	t.state = StateTracking
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	// the one-shot fix is older than anything on the feed, apply it first
	t.handlePosition(gen, pos)

	go t.consume(sctx, gen, updates, done)
}

// Stop unsubscribes from position updates and discards the session
func (t *Tracker) Stop() {
	t.mu.Lock()
	gen := t.gen
	t.mu.Unlock()
	t.stop(gen)
}

func (t *Tracker) stop(gen uint64) {
	t.mu.Lock()
	if gen != t.gen {
		t.mu.Unlock()
		return
	}
	cancel, done := t.cancel, t.done
	t.gen++
	t.state = StateIdle
	t.session = nil
	t.ctx, t.cancel, t.done = nil, nil, nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
}

func (t *Tracker) degrade(gen uint64, reason string, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen {
		return
	}
	t.state = StateDegraded
	if err != nil {
		log.Printf("navigation degraded: %s: %v", reason, err)
	} else {
		log.Printf("navigation degraded: %s", reason)
	}
}

func (t *Tracker) consume(ctx context.Context, gen uint64, updates <-chan models.Position, done chan struct{}) {
	defer close(done)
	for {
		select {
		case <-ctx.Done():
			return
		case pos, ok := <-updates:
			if !ok {
				t.degrade(gen, "position feed ended", nil)
				return
			}
			t.handlePosition(gen, pos)
		}
	}
}

// handlePosition always moves the user marker; it recomputes the route only when
// more than the throttle interval has passed since the last recompute was issued.
func (t *Tracker) handlePosition(gen uint64, pos models.Position) {
	t.mu.Lock()
	if gen != t.gen || t.state != StateTracking {
		t.mu.Unlock()
		return
	}

	t.session.LastKnownPosition = &pos

	now := t.now()
	last := t.session.LastRouteComputedAt
	if !last.IsZero() && now.Sub(last) <= t.cfg.Throttle {
		t.mu.Unlock()
		return
	}

	t.seq++
	seq := t.seq
	t.session.LastRouteComputedAt = now
	ctx := t.ctx
	destination := t.session.Destination
	t.recomputes.Add(1)
	t.mu.Unlock()

	go t.recompute(ctx, gen, seq, pos.Point, destination)
}

func (t *Tracker) recompute(ctx context.Context, gen, seq uint64, from, destination models.GeoPoint) {
	defer t.recomputes.Done()

	seg := t.router.ComputeFootRoute(ctx, from, destination)

	t.mu.Lock()
	defer t.mu.Unlock()
	if gen != t.gen || seq != t.seq {
		// a newer recompute was issued or the session ended
		return
	}
	t.session.CurrentRoute = &seg
}

// State returns the current tracker state
func (t *Tracker) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// LiveRouteAvailable reports whether the live route is being kept current
func (t *Tracker) LiveRouteAvailable() bool {
	return t.State() == StateTracking
}

// Snapshot copies the current state
func (t *Tracker) Snapshot() Snapshot {
	t.mu.Lock()
	defer t.mu.Unlock()

	snap := Snapshot{
		State:              t.state,
		LiveRouteAvailable: t.state == StateTracking,
	}
	if t.session == nil {
		return snap
	}

	dest := t.session.Destination
	snap.Destination = &dest
	if p := t.session.LastKnownPosition; p != nil {
		pos := *p
		snap.LastKnownPosition = &pos
	}
	if !t.session.LastRouteComputedAt.IsZero() {
		at := t.session.LastRouteComputedAt
		snap.LastRouteComputedAt = &at
	}
	if r := t.session.CurrentRoute; r != nil {
		route := models.RouteSegment{
			Coordinates: append([]models.GeoPoint(nil), r.Coordinates...),
			Kind:        r.Kind,
		}
		snap.CurrentRoute = &route
		if snap.LastKnownPosition != nil {
			progress := routing.ProgressAlong(route, snap.LastKnownPosition.Point)
			snap.Progress = &progress
		}
	}
	return snap
}

// Preview returns the static route from the previous completed stop to target,
// computed once per stop transition
func (t *Tracker) Preview(ctx context.Context, previous, target models.GeoPoint) models.RouteSegment {
	return t.preview.Route(ctx, previous, target)
}

// waitRecomputes blocks until in-flight recomputes have finished
func (t *Tracker) waitRecomputes() {
	t.recomputes.Wait()
}
