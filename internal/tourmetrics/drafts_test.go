package tourmetrics

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracksandtaps/taps_core/internal/models"
)

func TestDraftsEditReportsChanges(t *testing.T) {
	store := NewDrafts(time.Hour)

	created := store.Create("Old Town Crawl", []string{"WALKING"}, []models.StopDraft{kmNorth(0), kmNorth(1)})
	require.NotEmpty(t, created.ID)
	assert.True(t, created.Changed)
	assert.Equal(t, int64(1), created.Revision)
	assert.Equal(t, models.TourDraftMetrics{DistanceKm: 1.3, DurationMinutes: 47}, created.Metrics)
	assert.Equal(t, []string{"WALKING"}, created.Modes)
	assert.Len(t, created.Stops, 2)

	tests := []struct {
		name     string
		edit     func(d *Draft) error
		changed  bool
		revision int64
	}{
		{
			name:     "Identical stop leaves metrics alone",
			edit:     func(d *Draft) error { return d.ReplaceStop(1, kmNorth(1)) },
			changed:  false,
			revision: 1,
		},
		{
			name:     "Renaming does not touch metrics",
			edit:     func(d *Draft) error { d.SetTitle("Crawl"); return nil },
			changed:  false,
			revision: 1,
		},
		{
			name:     "New stop with a challenge is pushed",
			edit:     func(d *Draft) error { d.AddStop(kmNorth(2, 10)); return nil },
			changed:  true,
			revision: 2,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			view, err := store.Edit(created.ID, tt.edit)
			require.NoError(t, err)
			assert.Equal(t, tt.changed, view.Changed)
			assert.Equal(t, tt.revision, view.Revision)
		})
	}

	view, err := store.Get(created.ID)
	require.NoError(t, err)
	assert.Equal(t, "Crawl", view.Title)
	assert.Equal(t, 10, view.Metrics.Points)
	assert.False(t, view.Changed)

	_, err = store.Edit(created.ID, func(d *Draft) error { return d.RemoveStop(9) })
	assert.ErrorIs(t, err, ErrStopIndex)
}

func TestDraftsNotFound(t *testing.T) {
	store := NewDrafts(0)

	_, err := store.Get("missing")
	assert.ErrorIs(t, err, ErrDraftNotFound)
	_, err = store.Edit("missing", func(*Draft) error { return nil })
	assert.ErrorIs(t, err, ErrDraftNotFound)
	assert.ErrorIs(t, store.Delete("missing"), ErrDraftNotFound)

	created := store.Create("Tour", nil, nil)
	require.NoError(t, store.Delete(created.ID))
	assert.Equal(t, 0, store.Len())
}

func TestDraftsSweepIdle(t *testing.T) {
	base := time.Date(2024, 6, 1, 18, 0, 0, 0, time.UTC)
	now := base

	store := NewDrafts(time.Hour)
	store.now = func() time.Time { return now }

	stale := store.Create("Stale", nil, nil)
	kept := store.Create("Kept", nil, nil)

	now = base.Add(50 * time.Minute)
	_, err := store.Get(kept.ID)
	require.NoError(t, err)

	now = base.Add(61 * time.Minute)
	store.Create("Fresh", nil, nil)

	assert.Equal(t, 2, store.Len())
	_, err = store.Get(stale.ID)
	assert.ErrorIs(t, err, ErrDraftNotFound)
	_, err = store.Get(kept.ID)
	assert.NoError(t, err)
}
