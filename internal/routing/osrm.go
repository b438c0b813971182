package routing

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/obs"
)

// FootPath is a walking path proposed by the path-finding service
type FootPath struct {
	DistanceMeters float64
	Coordinates    [][]float64 // [lon, lat] pairs, simplified overview
}

// PathFinder proposes on-foot paths between two points
type PathFinder interface {
	FootPath(ctx context.Context, origin, destination models.GeoPoint) (*FootPath, error)
}

type httpStatusError struct {
	Code int
	Body string
}

func (e *httpStatusError) Error() string {
	return fmt.Sprintf("Code %d: %s", e.Code, e.Body)
}

func (e *httpStatusError) Unwrap() error { return ErrBadStatus }

type osrmResponse struct {
	Code    string `json:"code"`
	Message string `json:"message"`
	Routes  []struct {
		Distance float64 `json:"distance"`
		Geometry struct {
			Coordinates [][]float64 `json:"coordinates"`
		} `json:"geometry"`
	} `json:"routes"`
}

// OSRMClient implements PathFinder against an OSRM-compatible route endpoint.
// It is safe for concurrent use.
type OSRMClient struct {
	session *http.Client
	baseURL string
	profile string
}

// NewOSRMClient creates a client; the request timeout comes from cfg
func NewOSRMClient(cfg *Config) *OSRMClient {
	return &OSRMClient{
		session: &http.Client{Timeout: cfg.Timeout},
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		profile: cfg.Profile,
	}
}

// FootPath requests /route/v1/{profile}/{lon},{lat};{lon},{lat}
func (o *OSRMClient) FootPath(ctx context.Context, origin, destination models.GeoPoint) (_ *FootPath, err error) {
	defer obs.Time(ctx, "osrm.FootPath")(&err)

	endpoint := fmt.Sprintf("%s/route/v1/%s/%f,%f;%f,%f",
		o.baseURL, o.profile,
		origin.Lon, origin.Lat,
		destination.Lon, destination.Lat,
	)

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	q := req.URL.Query()
	q.Set("overview", "simplified")
	q.Set("geometries", "geojson")
	req.URL.RawQuery = q.Encode()
	req.Header.Set("Accept", "application/json")

	resp, err := o.session.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrUnavailable, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		b, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
		return nil, &httpStatusError{
			Code: resp.StatusCode,
			Body: strings.TrimSpace(string(b)),
		}
	}

	var decoded osrmResponse
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		return nil, fmt.Errorf("%w: decode route response: %v", ErrMalformed, err)
	}

	if decoded.Code != "Ok" {
		return nil, fmt.Errorf("%w: code=%q message=%q", ErrNoRoute, decoded.Code, decoded.Message)
	}
	if len(decoded.Routes) == 0 {
		return nil, fmt.Errorf("%w: empty routes", ErrNoRoute)
	}

	route := decoded.Routes[0]
	return &FootPath{
		DistanceMeters: route.Distance,
		Coordinates:    route.Geometry.Coordinates,
	}, nil
}
