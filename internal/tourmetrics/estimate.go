package tourmetrics

import (
	"math"
	"strings"

	"github.com/tracksandtaps/taps_core/internal/geo"
	"github.com/tracksandtaps/taps_core/internal/models"
)

const (
	// Tortuosity scales straight-line distance to street-grid walking distance
	Tortuosity       = 1.3
	WalkingSpeedKmh  = 4.5
	MinutesPerStop   = 15
	PubgolfHoleBonus = 200

	ModePubgolf = "PUBGOLF"
)

// Estimate derives distance, duration and points for a tour draft.
// It is a pure function and safe to call on every edit.
func Estimate(stops []models.StopDraft, modes []string) models.TourDraftMetrics {
	var metrics models.TourDraftMetrics

	if len(stops) >= 2 {
		walkKm := 0.0
		for i := 1; i < len(stops); i++ {
			walkKm += geo.HaversineKm(stops[i-1].Point(), stops[i].Point())
		}
		walkKm *= Tortuosity

		metrics.DistanceKm = geo.RoundTo(walkKm, 1)
		metrics.DurationMinutes = int(math.Round(walkKm/WalkingSpeedKmh*60 + float64(len(stops)*MinutesPerStop)))
	}

	pubgolf := hasMode(modes, ModePubgolf)
	for _, stop := range stops {
		for _, ch := range stop.Challenges {
			metrics.Points += int(ch.Points)
		}
		if pubgolf && stop.HasPubgolfHole() {
			metrics.Points += PubgolfHoleBonus
		}
	}

	return metrics
}

func hasMode(modes []string, mode string) bool {
	for _, m := range modes {
		if strings.EqualFold(strings.TrimSpace(m), mode) {
			return true
		}
	}
	return false
}
