package api

import (
	"errors"
	"log"
	"strings"

	"github.com/gofiber/fiber/v2"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/navigation"
)

type openSessionRequest struct {
	Destination *models.GeoPoint `json:"destination"`
	Permission  string           `json:"permission"`
	Position    *models.Position `json:"position"`
}

type previewRequest struct {
	Previous *models.GeoPoint `json:"previous"`
	Target   *models.GeoPoint `json:"target"`
}

// SessionResponse is the navigation session view
type SessionResponse struct {
	ID      string              `json:"id"`
	Session navigation.Snapshot `json:"session"`
}

// OpenSession handles POST /v1/navigation/sessions
func (h *Handler) OpenSession(c *fiber.Ctx) error {
	var req openSessionRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Destination == nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing destination",
		})
	}

	granted := strings.EqualFold(req.Permission, "granted")
	id, snap, err := h.nav.Open(c.UserContext(), *req.Destination, granted, req.Position)
	if err != nil {
		return navigationError(c, err)
	}

	return c.Status(201).JSON(SessionResponse{ID: id, Session: snap})
}

// GetSession handles GET /v1/navigation/sessions/:id
func (h *Handler) GetSession(c *fiber.Ctx) error {
	id := c.Params("id")
	snap, err := h.nav.Get(id)
	if err != nil {
		return navigationError(c, err)
	}
	return c.JSON(SessionResponse{ID: id, Session: snap})
}

// PushPosition handles POST /v1/navigation/sessions/:id/positions
func (h *Handler) PushPosition(c *fiber.Ctx) error {
	var pos models.Position
	if err := c.BodyParser(&pos); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	id := c.Params("id")
	snap, err := h.nav.Push(id, pos)
	if err != nil {
		return navigationError(c, err)
	}
	return c.JSON(SessionResponse{ID: id, Session: snap})
}

// CloseSession handles DELETE /v1/navigation/sessions/:id
func (h *Handler) CloseSession(c *fiber.Ctx) error {
	if err := h.nav.Close(c.Params("id")); err != nil {
		return navigationError(c, err)
	}
	return c.SendStatus(204)
}

// Preview handles POST /v1/navigation/preview
func (h *Handler) Preview(c *fiber.Ctx) error {
	var req previewRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	if req.Previous == nil || req.Target == nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "missing previous or target stop",
		})
	}
	if err := validateStops([]models.GeoPoint{*req.Previous, *req.Target}); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	}

	return c.JSON(h.nav.Preview(c.UserContext(), *req.Previous, *req.Target))
}

func navigationError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, navigation.ErrSessionNotFound):
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, navigation.ErrInvalidDestination), errors.Is(err, navigation.ErrInvalidPosition):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Printf("Navigation error: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
