package tourmetrics

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracksandtaps/taps_core/internal/geo"
	"github.com/tracksandtaps/taps_core/internal/models"
)

// kmNorth returns a stop dist kilometers north of the origin stop
func kmNorth(dist float64, challenges ...int) models.StopDraft {
	stop := models.StopDraft{
		Lat: 51.5 + dist/(geo.EarthRadiusKm*math.Pi/180),
		Lon: -0.12,
	}
	for _, p := range challenges {
		stop.Challenges = append(stop.Challenges, models.ChallengeDraft{Points: models.FlexPoints(p)})
	}
	return stop
}

func intPtr(v int) *int { return &v }

func TestEstimate(t *testing.T) {
	tests := []struct {
		name     string
		stops    []models.StopDraft
		modes    []string
		expected models.TourDraftMetrics
	}{
		{
			name:     "No stops",
			expected: models.TourDraftMetrics{},
		},
		{
			name:     "Single stop only counts points",
			stops:    []models.StopDraft{kmNorth(0, 50, 25)},
			expected: models.TourDraftMetrics{Points: 75},
		},
		{
			name:  "Two stops one kilometer apart",
			stops: []models.StopDraft{kmNorth(0), kmNorth(1)},
			expected: models.TourDraftMetrics{
				DistanceKm:      1.3,
				DurationMinutes: 47, // round(1.3/4.5*60 + 2*15)
			},
		},
		{
			name:  "Three stops with challenges",
			stops: []models.StopDraft{kmNorth(0, 10), kmNorth(1, 20), kmNorth(3, 30)},
			expected: models.TourDraftMetrics{
				DistanceKm:      3.9,
				DurationMinutes: 97, // round(3.9/4.5*60 + 45)
				Points:          60,
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, Estimate(tt.stops, tt.modes))
		})
	}
}

func TestEstimatePubgolfBonus(t *testing.T) {
	plain := kmNorth(1, 10)
	hole := plain
	hole.PubgolfPar = intPtr(3)
	hole.PubgolfDrink = "Lager"

	withoutHole := []models.StopDraft{kmNorth(0), plain}
	withHole := []models.StopDraft{kmNorth(0), hole}

	t.Run("Bonus applies in pubgolf mode", func(t *testing.T) {
		modes := []string{"WALKING", ModePubgolf}
		diff := Estimate(withHole, modes).Points - Estimate(withoutHole, modes).Points
		assert.Equal(t, PubgolfHoleBonus, diff)
	})

	t.Run("No bonus without pubgolf mode", func(t *testing.T) {
		assert.Equal(t, Estimate(withoutHole, nil), Estimate(withHole, nil))
	})

	t.Run("Par without drink earns nothing", func(t *testing.T) {
		partial := plain
		partial.PubgolfPar = intPtr(4)
		partial.PubgolfDrink = "  "
		got := Estimate([]models.StopDraft{kmNorth(0), partial}, []string{ModePubgolf})
		assert.Equal(t, 10, got.Points)
	})
}

func TestEstimateMalformedPoints(t *testing.T) {
	var stops []models.StopDraft
	raw := `[
		{"lat": 51.5, "lon": -0.12, "challenges": [{"points": "15"}, {"points": "lots"}, {"points": null}, {}]},
		{"lat": 51.51, "lon": -0.12, "challenges": [{"points": 7.6}, {"points": {"nested": 1}}]}
	]`
	require.NoError(t, json.Unmarshal([]byte(raw), &stops))

	assert.Equal(t, 23, Estimate(stops, nil).Points)
}

func TestEstimateIdempotent(t *testing.T) {
	stops := []models.StopDraft{kmNorth(0, 5), kmNorth(0.7, 15), kmNorth(2.2)}
	modes := []string{ModePubgolf}

	assert.Equal(t, Estimate(stops, modes), Estimate(stops, modes))
}
