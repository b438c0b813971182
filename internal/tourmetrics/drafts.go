package tourmetrics

import (
	"errors"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/tracksandtaps/taps_core/internal/models"
)

var ErrDraftNotFound = errors.New("tour draft not found")

// DraftView is a copy of a stored draft. Revision counts metric changes pushed by the
// draft; Changed reports whether the call that produced the view pushed one.
type DraftView struct {
	ID       string                  `json:"id"`
	Title    string                  `json:"title"`
	Modes    []string                `json:"modes"`
	Stops    []models.StopDraft      `json:"stops"`
	Metrics  models.TourDraftMetrics `json:"metrics"`
	Revision int64                   `json:"metrics_revision"`
	Changed  bool                    `json:"metrics_changed"`
}

type storedDraft struct {
	draft    *Draft
	revision atomic.Int64
	lastSeen time.Time // guarded by Drafts.mu
}

// Drafts keeps in-progress tour drafts by id. Drafts untouched for longer than ttl
// are dropped on the next Create.
type Drafts struct {
	ttl time.Duration
	now func() time.Time

	mu     sync.Mutex
	drafts map[string]*storedDraft
}

// NewDrafts creates an empty draft store; ttl <= 0 keeps drafts until deleted
func NewDrafts(ttl time.Duration) *Drafts {
	return &Drafts{
		ttl:    ttl,
		now:    time.Now,
		drafts: make(map[string]*storedDraft),
	}
}

// Create stores a new draft holding stops
func (s *Drafts) Create(title string, modes []string, stops []models.StopDraft) DraftView {
	sd := &storedDraft{draft: NewDraft(title, modes)}
	sd.draft.OnMetricsChange(func(models.TourDraftMetrics) { sd.revision.Add(1) })
	for _, stop := range stops {
		sd.draft.AddStop(stop)
	}

	id := uuid.NewString()
	now := s.now()

	s.mu.Lock()
	s.sweep(now)
	sd.lastSeen = now
	s.drafts[id] = sd
	s.mu.Unlock()

	view := sd.view(id)
	view.Changed = true
	return view
}

// Get returns the draft view
func (s *Drafts) Get(id string) (DraftView, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return DraftView{}, err
	}
	return sd.view(id), nil
}

// Edit applies edit to the draft and reports whether its metrics changed
func (s *Drafts) Edit(id string, edit func(d *Draft) error) (DraftView, error) {
	sd, err := s.lookup(id)
	if err != nil {
		return DraftView{}, err
	}

	before := sd.revision.Load()
	if err := edit(sd.draft); err != nil {
		return DraftView{}, err
	}

	view := sd.view(id)
	view.Changed = view.Revision != before
	return view, nil
}

// Delete forgets a draft
func (s *Drafts) Delete(id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.drafts[id]; !ok {
		return ErrDraftNotFound
	}
	delete(s.drafts, id)
	return nil
}

// Len returns the number of stored drafts
func (s *Drafts) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.drafts)
}

func (s *Drafts) lookup(id string) (*storedDraft, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	sd, ok := s.drafts[id]
	if !ok {
		return nil, ErrDraftNotFound
	}
	sd.lastSeen = s.now()
	return sd, nil
}

// sweep drops idle drafts; callers hold s.mu
func (s *Drafts) sweep(now time.Time) {
	if s.ttl <= 0 {
		return
	}
	for id, sd := range s.drafts {
		if now.Sub(sd.lastSeen) > s.ttl {
			delete(s.drafts, id)
		}
	}
}

func (sd *storedDraft) view(id string) DraftView {
	return DraftView{
		ID:       id,
		Title:    sd.draft.Title(),
		Modes:    sd.draft.Modes(),
		Stops:    sd.draft.Stops(),
		Metrics:  sd.draft.Metrics(),
		Revision: sd.revision.Load(),
	}
}
