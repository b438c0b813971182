package api

import (
	"context"
	"errors"
	"fmt"
	"log"
	"strconv"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"github.com/tracksandtaps/taps_core/internal/cache"
	"github.com/tracksandtaps/taps_core/internal/db"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/navigation"
	"github.com/tracksandtaps/taps_core/internal/routing"
	"github.com/tracksandtaps/taps_core/internal/store"
	"github.com/tracksandtaps/taps_core/internal/tourmetrics"
)

// TourRouter computes foot and tour routes; *routing.RouteComputer satisfies it
type TourRouter interface {
	ComputeFootRoute(ctx context.Context, origin, destination models.GeoPoint) models.RouteSegment
	ComputeTourRoute(ctx context.Context, stops []models.GeoPoint) models.TourRoute
}

// TourStopLoader loads a published tour's stops; *store.TourStore satisfies it
type TourStopLoader interface {
	TourStops(ctx context.Context, tourID string) ([]models.GeoPoint, error)
}

// Options wires the handler dependencies. Tours, Cache, DB and Redis may be nil;
// a nil Drafts gets an in-memory store without expiry.
type Options struct {
	Routes     TourRouter
	Navigation *navigation.Registry
	Drafts     *tourmetrics.Drafts
	Tours      TourStopLoader
	Cache      *cache.RouteCache
	DB         db.Pinger
	Redis      *redis.Client
}

// Handler serves the HTTP API
type Handler struct {
	routes TourRouter
	nav    *navigation.Registry
	drafts *tourmetrics.Drafts
	tours  TourStopLoader
	cache  *cache.RouteCache
	db     db.Pinger
	redis  *redis.Client
}

func NewHandler(opts Options) *Handler {
	drafts := opts.Drafts
	if drafts == nil {
		drafts = tourmetrics.NewDrafts(0)
	}
	return &Handler{
		routes: opts.Routes,
		nav:    opts.Navigation,
		drafts: drafts,
		tours:  opts.Tours,
		cache:  opts.Cache,
		db:     opts.DB,
		redis:  opts.Redis,
	}
}

// Register mounts every endpoint on router
func (h *Handler) Register(router fiber.Router) {
	router.Get("/health", h.Health)

	v1 := router.Group("/v1")
	v1.Get("/routes/foot", h.FootRoute)
	v1.Post("/routes/tour", h.TourRoute)
	v1.Get("/tours/:id/route", h.StoredTourRoute)
	v1.Post("/tours/metrics", h.TourMetrics)

	v1.Post("/drafts", h.CreateDraft)
	v1.Get("/drafts/:id", h.GetDraft)
	v1.Put("/drafts/:id", h.UpdateDraft)
	v1.Delete("/drafts/:id", h.DeleteDraft)
	v1.Post("/drafts/:id/stops", h.AddDraftStop)
	v1.Put("/drafts/:id/stops/:index", h.ReplaceDraftStop)
	v1.Delete("/drafts/:id/stops/:index", h.RemoveDraftStop)
	v1.Post("/drafts/:id/stops/:index/move", h.MoveDraftStop)

	v1.Post("/navigation/sessions", h.OpenSession)
	v1.Get("/navigation/sessions/:id", h.GetSession)
	v1.Post("/navigation/sessions/:id/positions", h.PushPosition)
	v1.Delete("/navigation/sessions/:id", h.CloseSession)
	v1.Post("/navigation/preview", h.Preview)
}

type tourRouteRequest struct {
	Stops []models.GeoPoint `json:"stops"`
}

// TourRouteResponse is a tour route with its total walking length
type TourRouteResponse struct {
	Segments models.TourRoute `json:"segments"`
	TotalKm  float64          `json:"total_km"`
}

type metricsRequest struct {
	Stops []models.StopDraft `json:"stops"`
	Modes []string           `json:"modes"`
}

// FootRoute handles GET /v1/routes/foot?from=lat,lon&to=lat,lon
func (h *Handler) FootRoute(c *fiber.Ctx) error {
	fromStr := c.Query("from")
	toStr := c.Query("to")

	if fromStr == "" || toStr == "" {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing required parameters: from and to",
		})
	}

	from, err := parseCoordinates(fromStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid 'from' coordinates: %v", err),
		})
	}

	to, err := parseCoordinates(toStr)
	if err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": fmt.Sprintf("invalid 'to' coordinates: %v", err),
		})
	}

	seg := h.routes.ComputeFootRoute(c.UserContext(), from, to)
	if wantsGeoJSON(c) {
		return sendGeoJSON(c, models.TourRoute{seg})
	}
	return c.JSON(seg)
}

// TourRoute handles POST /v1/routes/tour
func (h *Handler) TourRoute(c *fiber.Ctx) error {
	var req tourRouteRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	if err := validateStops(req.Stops); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	route := h.routes.ComputeTourRoute(c.UserContext(), req.Stops)
	return h.sendRoute(c, route)
}

// StoredTourRoute handles GET /v1/tours/:id/route
func (h *Handler) StoredTourRoute(c *fiber.Ctx) error {
	if h.tours == nil {
		return c.Status(503).JSON(fiber.Map{
			"error": "tour storage not configured",
		})
	}

	ctx := c.UserContext()
	stops, err := h.tours.TourStops(ctx, c.Params("id"))
	if errors.Is(err, store.ErrTourNotFound) {
		return c.Status(404).JSON(fiber.Map{
			"error": "tour not found",
		})
	}
	if err != nil {
		log.Printf("Tour stops error: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}

	if h.cache == nil {
		return h.sendRoute(c, h.routes.ComputeTourRoute(ctx, stops))
	}

	route, hit := h.cache.GetOrCompute(ctx, cache.TourRouteKey(stops), func(ctx context.Context) models.TourRoute {
		return h.routes.ComputeTourRoute(ctx, stops)
	})
	if hit {
		c.Set("X-Cache", "HIT")
	} else {
		c.Set("X-Cache", "MISS")
	}
	return h.sendRoute(c, route)
}

// TourMetrics handles POST /v1/tours/metrics
func (h *Handler) TourMetrics(c *fiber.Ctx) error {
	var req metricsRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	return c.JSON(tourmetrics.Estimate(req.Stops, req.Modes))
}

// Health handles the /health endpoint
func (h *Handler) Health(c *fiber.Ctx) error {
	ctx := c.UserContext()
	healthy := true

	dbStatus := "disabled"
	if h.db != nil {
		dbStatus = "ok"
		if err := db.HealthCheck(ctx, h.db); err != nil {
			dbStatus = err.Error()
			healthy = false
		}
	}

	redisStatus := "disabled"
	if h.redis != nil {
		redisStatus = "ok"
		if err := cache.HealthCheck(ctx, h.redis); err != nil {
			redisStatus = err.Error()
			healthy = false
		}
	}

	status := "healthy"
	httpStatus := 200
	if !healthy {
		status = "unhealthy"
		httpStatus = 503
	}

	sessions := 0
	if h.nav != nil {
		sessions = h.nav.Len()
	}

	return c.Status(httpStatus).JSON(fiber.Map{
		"status": status,
		"checks": fiber.Map{
			"database": dbStatus,
			"redis":    redisStatus,
		},
		"navigation_sessions": sessions,
	})
}

func (h *Handler) sendRoute(c *fiber.Ctx, route models.TourRoute) error {
	if wantsGeoJSON(c) {
		return sendGeoJSON(c, route)
	}
	if route == nil {
		route = models.TourRoute{}
	}
	return c.JSON(TourRouteResponse{
		Segments: route,
		TotalKm:  routing.TourDistanceKm(route),
	})
}

func validateStops(stops []models.GeoPoint) error {
	for i, s := range stops {
		if !s.Valid() {
			return fmt.Errorf("stop %d: coordinates out of range", i)
		}
	}
	return nil
}

// parseCoordinates parses "lat,lon" string into a point
func parseCoordinates(coordStr string) (models.GeoPoint, error) {
	parts := strings.Split(coordStr, ",")
	if len(parts) != 2 {
		return models.GeoPoint{}, fmt.Errorf("expected format: lat,lon")
	}

	lat, err := strconv.ParseFloat(strings.TrimSpace(parts[0]), 64)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("invalid latitude: %w", err)
	}

	lon, err := strconv.ParseFloat(strings.TrimSpace(parts[1]), 64)
	if err != nil {
		return models.GeoPoint{}, fmt.Errorf("invalid longitude: %w", err)
	}

	// Validate ranges
	if lat < -90 || lat > 90 {
		return models.GeoPoint{}, fmt.Errorf("latitude must be between -90 and 90")
	}
	if lon < -180 || lon > 180 {
		return models.GeoPoint{}, fmt.Errorf("longitude must be between -180 and 180")
	}

	return models.GeoPoint{Lat: lat, Lon: lon}, nil
}
