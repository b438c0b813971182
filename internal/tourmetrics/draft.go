package tourmetrics

import (
	"errors"
	"sync"

	"github.com/tracksandtaps/taps_core/internal/models"
)

var ErrStopIndex = errors.New("stop index out of range")

// Draft is the in-progress tour owned by the authoring flow. Every structural change
// recomputes the metrics; listeners hear about it only when the values change.
type Draft struct {
	mu       sync.Mutex
	title    string
	stops    []models.StopDraft
	modes    []string
	metrics  models.TourDraftMetrics
	onChange func(models.TourDraftMetrics)
}

// NewDraft creates an empty draft
func NewDraft(title string, modes []string) *Draft {
	d := &Draft{title: title, modes: append([]string(nil), modes...)}
	d.metrics = Estimate(nil, d.modes)
	return d
}

// OnMetricsChange registers the listener notified with updated metrics
func (d *Draft) OnMetricsChange(fn func(models.TourDraftMetrics)) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.onChange = fn
}

func (d *Draft) Title() string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.title
}

func (d *Draft) SetTitle(title string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.title = title
}

// Stops returns a copy of the stop list
func (d *Draft) Stops() []models.StopDraft {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]models.StopDraft(nil), d.stops...)
}

// Modes returns a copy of the travel modes
func (d *Draft) Modes() []string {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]string(nil), d.modes...)
}

// Metrics returns the stored metrics
func (d *Draft) Metrics() models.TourDraftMetrics {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.metrics
}

// AddStop appends a stop
func (d *Draft) AddStop(stop models.StopDraft) {
	d.mutate(func() error {
		d.stops = append(d.stops, stop)
		return nil
	})
}

// ReplaceStop swaps the stop at index i
func (d *Draft) ReplaceStop(i int, stop models.StopDraft) error {
	return d.mutate(func() error {
		if i < 0 || i >= len(d.stops) {
			return ErrStopIndex
		}
		d.stops[i] = stop
		return nil
	})
}

// RemoveStop deletes the stop at index i
func (d *Draft) RemoveStop(i int) error {
	return d.mutate(func() error {
		if i < 0 || i >= len(d.stops) {
			return ErrStopIndex
		}
		d.stops = append(d.stops[:i], d.stops[i+1:]...)
		return nil
	})
}

// MoveStop moves the stop at from to position to
func (d *Draft) MoveStop(from, to int) error {
	return d.mutate(func() error {
		if from < 0 || from >= len(d.stops) || to < 0 || to >= len(d.stops) {
			return ErrStopIndex
		}
		stop := d.stops[from]
		d.stops = append(d.stops[:from], d.stops[from+1:]...)
		d.stops = append(d.stops[:to], append([]models.StopDraft{stop}, d.stops[to:]...)...)
		return nil
	})
}

// SetModes replaces the travel modes
func (d *Draft) SetModes(modes []string) {
	d.mutate(func() error {
		d.modes = append([]string(nil), modes...)
		return nil
	})
}

// mutate applies change under the lock, recomputes, and notifies outside the lock
// when the metrics differ from the stored ones
func (d *Draft) mutate(change func() error) error {
	d.mu.Lock()
	if err := change(); err != nil {
		d.mu.Unlock()
		return err
	}

	next := Estimate(d.stops, d.modes)
	if next == d.metrics {
		d.mu.Unlock()
		return nil
	}
	d.metrics = next
	notify := d.onChange
	d.mu.Unlock()

	if notify != nil {
		notify(next)
	}
	return nil
}
