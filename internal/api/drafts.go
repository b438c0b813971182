package api

import (
	"errors"
	"log"
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/tracksandtaps/taps_core/internal/models"
	"github.com/tracksandtaps/taps_core/internal/tourmetrics"
)

type createDraftRequest struct {
	Title string             `json:"title"`
	Modes []string           `json:"modes"`
	Stops []models.StopDraft `json:"stops"`
}

type updateDraftRequest struct {
	Title *string  `json:"title"`
	Modes []string `json:"modes"`
}

type moveStopRequest struct {
	To int `json:"to"`
}

// CreateDraft handles POST /v1/drafts
func (h *Handler) CreateDraft(c *fiber.Ctx) error {
	var req createDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	return c.Status(201).JSON(h.drafts.Create(req.Title, req.Modes, req.Stops))
}

// GetDraft handles GET /v1/drafts/:id
func (h *Handler) GetDraft(c *fiber.Ctx) error {
	view, err := h.drafts.Get(c.Params("id"))
	if err != nil {
		return draftError(c, err)
	}
	return c.JSON(view)
}

// UpdateDraft handles PUT /v1/drafts/:id; omitted fields are left unchanged
func (h *Handler) UpdateDraft(c *fiber.Ctx) error {
	var req updateDraftRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}

	return h.editDraft(c, func(d *tourmetrics.Draft) error {
		if req.Title != nil {
			d.SetTitle(*req.Title)
		}
		if req.Modes != nil {
			d.SetModes(req.Modes)
		}
		return nil
	})
}

// DeleteDraft handles DELETE /v1/drafts/:id
func (h *Handler) DeleteDraft(c *fiber.Ctx) error {
	if err := h.drafts.Delete(c.Params("id")); err != nil {
		return draftError(c, err)
	}
	return c.SendStatus(204)
}

// AddDraftStop handles POST /v1/drafts/:id/stops
func (h *Handler) AddDraftStop(c *fiber.Ctx) error {
	var stop models.StopDraft
	if err := c.BodyParser(&stop); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	return h.editDraft(c, func(d *tourmetrics.Draft) error {
		d.AddStop(stop)
		return nil
	})
}

// ReplaceDraftStop handles PUT /v1/drafts/:id/stops/:index
func (h *Handler) ReplaceDraftStop(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return draftError(c, tourmetrics.ErrStopIndex)
	}

	var stop models.StopDraft
	if err := c.BodyParser(&stop); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	return h.editDraft(c, func(d *tourmetrics.Draft) error {
		return d.ReplaceStop(i, stop)
	})
}

// RemoveDraftStop handles DELETE /v1/drafts/:id/stops/:index
func (h *Handler) RemoveDraftStop(c *fiber.Ctx) error {
	i, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return draftError(c, tourmetrics.ErrStopIndex)
	}
	return h.editDraft(c, func(d *tourmetrics.Draft) error {
		return d.RemoveStop(i)
	})
}

// MoveDraftStop handles POST /v1/drafts/:id/stops/:index/move
func (h *Handler) MoveDraftStop(c *fiber.Ctx) error {
	from, err := strconv.Atoi(c.Params("index"))
	if err != nil {
		return draftError(c, tourmetrics.ErrStopIndex)
	}

	var req moveStopRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(400).JSON(fiber.Map{
			"error": "invalid request body",
		})
	}
	return h.editDraft(c, func(d *tourmetrics.Draft) error {
		return d.MoveStop(from, req.To)
	})
}

func (h *Handler) editDraft(c *fiber.Ctx, edit func(d *tourmetrics.Draft) error) error {
	view, err := h.drafts.Edit(c.Params("id"), edit)
	if err != nil {
		return draftError(c, err)
	}
	return c.JSON(view)
}

func draftError(c *fiber.Ctx, err error) error {
	switch {
	case errors.Is(err, tourmetrics.ErrDraftNotFound):
		return c.Status(404).JSON(fiber.Map{
			"error": err.Error(),
		})
	case errors.Is(err, tourmetrics.ErrStopIndex):
		return c.Status(400).JSON(fiber.Map{
			"error": err.Error(),
		})
	default:
		log.Printf("Draft error: %v", err)
		return c.Status(500).JSON(fiber.Map{
			"error": "internal server error",
		})
	}
}
