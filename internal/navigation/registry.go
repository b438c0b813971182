package navigation

import (
	"context"
	"errors"
	"log"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tracksandtaps/taps_core/internal/models"
)

var ErrSessionNotFound = errors.New("navigation session not found")

type entry struct {
	tracker  *Tracker
	feed     *FeedProvider
	lastSeen atomic.Int64 // unix nanos of the last Open/Push/Get
}

func (e *entry) touch(now time.Time) { e.lastSeen.Store(now.UnixNano()) }

func (e *entry) idleSince(now time.Time) time.Duration {
	return now.Sub(time.Unix(0, e.lastSeen.Load()))
}

// Registry owns server-side navigation sessions fed by client position samples
type Registry struct {
	router  FootRouter
	cfg     *Config
	preview *Preview
	now     func() time.Time

	mu       sync.RWMutex
	sessions map[string]*entry

	quit     chan struct{}
	quitOnce sync.Once
}

// NewRegistry creates an empty registry. Sessions idle for longer than
// cfg.SessionIdleTTL are closed in the background until CloseAll.
func NewRegistry(router FootRouter, cfg *Config) *Registry {
	if cfg == nil {
		cfg = DefaultConfig()
	}
	r := &Registry{
		router:   router,
		cfg:      cfg,
		preview:  NewPreview(router),
		now:      time.Now,
		sessions: make(map[string]*entry),
		quit:     make(chan struct{}),
	}
	if cfg.SessionIdleTTL > 0 {
		go r.cleanup(cfg.SessionIdleTTL / 2)
	}
	return r
}

// cleanup reaps idle sessions periodically
func (r *Registry) cleanup(every time.Duration) {
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ticker.C:
			r.reap()
		case <-r.quit:
			return
		}
	}
}

// reap closes every session idle for longer than the configured TTL
func (r *Registry) reap() int {
	now := r.now()

	r.mu.RLock()
	var idle []string
	for id, e := range r.sessions {
		if e.idleSince(now) > r.cfg.SessionIdleTTL {
			idle = append(idle, id)
		}
	}
	r.mu.RUnlock()

	closed := 0
	for _, id := range idle {
		if r.Close(id) == nil {
			closed++
		}
	}
	if closed > 0 {
		log.Printf("navigation: closed %d idle sessions", closed)
	}
	return closed
}

// Open starts navigating towards destination. With permission granted and no first
// sample, the session stays ACQUIRING_POSITION until a position is pushed or the fix
// times out.
func (r *Registry) Open(ctx context.Context, destination models.GeoPoint, granted bool, first *models.Position) (string, Snapshot, error) {
	if !destination.Valid() {
		return "", Snapshot{}, ErrInvalidDestination
	}

	feed := NewFeedProvider(granted)
	if first != nil {
		if err := feed.Push(*first); err != nil {
			return "", Snapshot{}, err
		}
	}

	tracker := NewTracker(r.router, feed, r.cfg)
	id := uuid.NewString()
	e := &entry{tracker: tracker, feed: feed}
	e.touch(r.now())

	r.mu.Lock()
	r.sessions[id] = e
	r.mu.Unlock()

	start := tracker.Start
	if granted && first == nil {
		start = tracker.StartAsync
	}
	if _, err := start(ctx, destination); err != nil {
		r.remove(id)
		return "", Snapshot{}, err
	}
	return id, tracker.Snapshot(), nil
}

// Push feeds a position sample into a session
func (r *Registry) Push(id string, pos models.Position) (Snapshot, error) {
	e, err := r.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.touch(r.now())
	if err := e.feed.Push(pos); err != nil {
		return Snapshot{}, err
	}
	return e.tracker.Snapshot(), nil
}

// Get returns the session snapshot
func (r *Registry) Get(id string) (Snapshot, error) {
	e, err := r.get(id)
	if err != nil {
		return Snapshot{}, err
	}
	e.touch(r.now())
	return e.tracker.Snapshot(), nil
}

// Close stops tracking and forgets the session
func (r *Registry) Close(id string) error {
	e := r.remove(id)
	if e == nil {
		return ErrSessionNotFound
	}
	e.tracker.Stop()
	return nil
}

// CloseAll stops the idle reaper and every session, used on shutdown
func (r *Registry) CloseAll() {
	r.quitOnce.Do(func() { close(r.quit) })

	r.mu.Lock()
	sessions := r.sessions
	r.sessions = make(map[string]*entry)
	r.mu.Unlock()

	for _, e := range sessions {
		e.tracker.Stop()
	}
}

// Len returns the number of open sessions
func (r *Registry) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.sessions)
}

// Preview returns the static preview route between two stops
func (r *Registry) Preview(ctx context.Context, previous, target models.GeoPoint) models.RouteSegment {
	return r.preview.Route(ctx, previous, target)
}

func (r *Registry) get(id string) (*entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil, ErrSessionNotFound
	}
	return e, nil
}

func (r *Registry) remove(id string) *entry {
	r.mu.Lock()
	defer r.mu.Unlock()
	e, ok := r.sessions[id]
	if !ok {
		return nil
	}
	delete(r.sessions, id)
	return e
}
