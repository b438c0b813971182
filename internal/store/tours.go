package store

import (
	"context"
	"errors"
	"fmt"

	"github.com/tracksandtaps/taps_core/internal/db"
	"github.com/tracksandtaps/taps_core/internal/models"
)

var ErrTourNotFound = errors.New("tour not found")

// TourStore reads published tours
type TourStore struct {
	db db.Querier
}

func NewTourStore(q db.Querier) *TourStore {
	return &TourStore{db: q}
}

// TourStops returns the stop coordinates of a tour in visiting order
func (s *TourStore) TourStops(ctx context.Context, tourID string) ([]models.GeoPoint, error) {
	rows, err := s.db.Query(ctx, `
		SELECT lat, lon
		FROM tour_stops
		WHERE tour_id = $1
		ORDER BY position ASC
	`, tourID)
	if err != nil {
		return nil, fmt.Errorf("query tour stops: %w", err)
	}
	defer rows.Close()

	var stops []models.GeoPoint
	for rows.Next() {
		var p models.GeoPoint
		if err := rows.Scan(&p.Lat, &p.Lon); err != nil {
			return nil, fmt.Errorf("scan tour stop: %w", err)
		}
		stops = append(stops, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tour stops: %w", err)
	}

	if len(stops) == 0 {
		return nil, ErrTourNotFound
	}
	return stops, nil
}
