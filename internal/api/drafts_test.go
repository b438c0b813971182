package api

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/tourmetrics"
)

func decodeDraft(t *testing.T, data []byte) tourmetrics.DraftView {
	t.Helper()
	var view tourmetrics.DraftView
	require.NoError(t, json.Unmarshal(data, &view))
	return view
}

func TestDraftLifecycle(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, "POST", "/v1/drafts", `{
		"title": "Old Town Crawl",
		"modes": ["WALKING"],
		"stops": [{"lat": 51.5, "lon": -0.12}, {"lat": 51.50899322, "lon": -0.12}]
	}`)
	require.Equal(t, 201, resp.StatusCode)

	created := decodeDraft(t, data)
	require.NotEmpty(t, created.ID)
	assert.Equal(t, "Old Town Crawl", created.Title)
	assert.Equal(t, models.TourDraftMetrics{DistanceKm: 1.3, DurationMinutes: 47}, created.Metrics)
	assert.True(t, created.Changed)

	path := "/v1/drafts/" + created.ID

	tests := []struct {
		name    string
		method  string
		path    string
		body    string
		changed bool
		check   func(t *testing.T, view tourmetrics.DraftView)
	}{
		{
			name:    "Replacing with the same stop pushes nothing",
			method:  "PUT",
			path:    path + "/stops/1",
			body:    `{"lat": 51.50899322, "lon": -0.12}`,
			changed: false,
		},
		{
			name:    "Adding a challenge stop pushes new points",
			method:  "POST",
			path:    path + "/stops",
			body:    `{"lat": 51.5, "lon": -0.12, "challenges": [{"points": "20"}]}`,
			changed: true,
			check: func(t *testing.T, view tourmetrics.DraftView) {
				assert.Equal(t, 20, view.Metrics.Points)
				assert.Len(t, view.Stops, 3)
			},
		},
		{
			name:    "Moving a stop shortens the walk",
			method:  "POST",
			path:    path + "/stops/2/move",
			body:    `{"to": 0}`,
			changed: true,
			check: func(t *testing.T, view tourmetrics.DraftView) {
				assert.Equal(t, 1.3, view.Metrics.DistanceKm)
			},
		},
		{
			name:    "Renaming keeps the metrics",
			method:  "PUT",
			path:    path,
			body:    `{"title": "Renamed"}`,
			changed: false,
			check: func(t *testing.T, view tourmetrics.DraftView) {
				assert.Equal(t, "Renamed", view.Title)
				assert.Equal(t, []string{"WALKING"}, view.Modes)
			},
		},
		{
			name:    "Removing a stop",
			method:  "DELETE",
			path:    path + "/stops/0",
			changed: true,
			check: func(t *testing.T, view tourmetrics.DraftView) {
				assert.Len(t, view.Stops, 2)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, data := env.do(t, tt.method, tt.path, tt.body)
			require.Equal(t, 200, resp.StatusCode, string(data))

			view := decodeDraft(t, data)
			assert.Equal(t, tt.changed, view.Changed)
			if tt.check != nil {
				tt.check(t, view)
			}
		})
	}

	resp, data = env.do(t, "GET", path, "")
	require.Equal(t, 200, resp.StatusCode)
	assert.Equal(t, "Renamed", decodeDraft(t, data).Title)

	resp, _ = env.do(t, "DELETE", path, "")
	assert.Equal(t, 204, resp.StatusCode)
	resp, _ = env.do(t, "GET", path, "")
	assert.Equal(t, 404, resp.StatusCode)
}

func TestDraftErrors(t *testing.T) {
	env := newTestEnv(t)

	resp, data := env.do(t, "POST", "/v1/drafts", `{"title": "Tour"}`)
	require.Equal(t, 201, resp.StatusCode)
	path := "/v1/drafts/" + decodeDraft(t, data).ID

	tests := []struct {
		name   string
		method string
		path   string
		body   string
		status int
	}{
		{"Unknown draft", "GET", "/v1/drafts/missing", "", 404},
		{"Unknown draft edit", "POST", "/v1/drafts/missing/stops", `{"lat": 1, "lon": 1}`, 404},
		{"Index out of range", "DELETE", path + "/stops/9", "", 400},
		{"Index not a number", "PUT", path + "/stops/x", `{"lat": 1, "lon": 1}`, 400},
		{"Malformed stop", "POST", path + "/stops", `{"lat":`, 400},
		{"Malformed create", "POST", "/v1/drafts", `{"title":`, 400},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, _ := env.do(t, tt.method, tt.path, tt.body)
			assert.Equal(t, tt.status, resp.StatusCode)
		})
	}
}
