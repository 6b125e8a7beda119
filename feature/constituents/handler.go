package constituents

import (
	"errors"

	"api-poller/core/apperr"
	"api-poller/core/lock"
	"api-poller/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for constituents.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the constituent routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/constituents")
	group.Post("/line-items", h.HandleLineItem)
	group.Post("/accreditations", h.HandleAccreditations)
	group.Get("/:clientID/:externalID", h.HandleGetConstituent)
}

// HandleLineItem reconciles one constituent record.
func (h *Handler) HandleLineItem(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var item LineItem
	if err := c.BodyParser(&item); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid line item: " + err.Error()})
	}

	result, err := h.service.ProcessLineItem(c.UserContext(), item)
	if err != nil {
		return h.fail(c, l, "Line item failed", err)
	}
	return c.JSON(result)
}

// HandleAccreditations reconciles the accreditation set of one owner.
func (h *Handler) HandleAccreditations(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	var req AccreditationRequest
	if err := c.BodyParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid accreditation request: " + err.Error()})
	}

	result, err := h.service.ProcessAccreditations(c.UserContext(), req)
	if err != nil {
		return h.fail(c, l, "Accreditation line item failed", err)
	}
	return c.JSON(result)
}

// HandleGetConstituent returns the stored state of one constituent.
func (h *Handler) HandleGetConstituent(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	detail, err := h.service.Detail(c.UserContext(), c.Params("clientID"), c.Params("externalID"))
	if err != nil {
		return h.fail(c, l, "Constituent lookup failed", err)
	}
	if detail == nil {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": "constituent not found"})
	}
	return c.JSON(detail)
}

func (h *Handler) fail(c *fiber.Ctx, l *zap.Logger, msg string, err error) error {
	status := fiber.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = fiber.StatusBadRequest
	case errors.Is(err, lock.ErrNotObtained):
		status = fiber.StatusConflict
	}
	if status == fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Warn(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
