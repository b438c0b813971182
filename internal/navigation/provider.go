package navigation

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/tracksandtaps/taps_core/internal/geo"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/obs"
)

var (
	ErrNoFix           = errors.New("no position fix available")
	ErrInvalidPosition = errors.New("invalid position")
)

// SubscribeOptions configures a continuous position subscription
type SubscribeOptions struct {
	HighAccuracy     bool
	MinInterval      time.Duration
	MinDisplacementM float64
}

// LocationProvider is the permission-gated device location source.
// Subscribe delivers updates until ctx is cancelled, then closes the channel.
type LocationProvider interface {
	RequestPermission(ctx context.Context) (bool, error)
	CurrentPosition(ctx context.Context) (models.Position, error)
	Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan models.Position, error)
}

const feedBuffer = 16

type feedSub struct {
	opts SubscribeOptions
	ch   chan models.Position
	last *models.Position
}

// FeedProvider is a LocationProvider fed by samples pushed from a client device
type FeedProvider struct {
	granted bool

	mu     sync.Mutex
	latest *models.Position
	fix    chan struct{} // closed on the first sample
	subs   map[int]*feedSub
	nextID int
	now    func() time.Time
}

// NewFeedProvider creates a provider whose permission answer is fixed to granted
func NewFeedProvider(granted bool) *FeedProvider {
	return &FeedProvider{
		granted: granted,
		fix:     make(chan struct{}),
		subs:    make(map[int]*feedSub),
		now:     time.Now,
	}
}

func (f *FeedProvider) RequestPermission(ctx context.Context) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, err
	}
	return f.granted, nil
}

// CurrentPosition returns the latest sample, waiting for the first one if needed
func (f *FeedProvider) CurrentPosition(ctx context.Context) (models.Position, error) {
	select {
	case <-f.fix:
	case <-ctx.Done():
		return models.Position{}, ErrNoFix
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return *f.latest, nil
}

func (f *FeedProvider) Subscribe(ctx context.Context, opts SubscribeOptions) (<-chan models.Position, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	f.mu.Lock()
	id := f.nextID
	f.nextID++
	sub := &feedSub{opts: opts, ch: make(chan models.Position, feedBuffer)}
	f.subs[id] = sub
	f.mu.Unlock()

	go func() {
		<-ctx.Done()
		f.mu.Lock()
		delete(f.subs, id)
		close(sub.ch)
		f.mu.Unlock()
	}()

	return sub.ch, nil
}

// Push records a device sample and forwards it to subscribers whose options allow it
func (f *FeedProvider) Push(pos models.Position) error {
	if !pos.Point.Valid() {
		return ErrInvalidPosition
	}

	f.mu.Lock()
	defer f.mu.Unlock()

	if pos.RecordedAt.IsZero() {
		pos.RecordedAt = f.now()
	}

	first := f.latest == nil
	f.latest = &pos
	if first {
		close(f.fix)
	}

	for _, sub := range f.subs {
		if !sub.wants(pos) {
			continue
		}
		select {
		case sub.ch <- pos:
			p := pos
			sub.last = &p
		default:
			obs.Debugf("position feed full, dropping sample at %v", pos.RecordedAt)
		}
	}
	return nil
}

// wants reports whether pos is due: enough time passed or enough distance moved
func (s *feedSub) wants(pos models.Position) bool {
	if s.last == nil {
		return true
	}
	if pos.RecordedAt.Sub(s.last.RecordedAt) >= s.opts.MinInterval {
		return true
	}
	return geo.HaversineKm(s.last.Point, pos.Point)*1000 >= s.opts.MinDisplacementM
}
