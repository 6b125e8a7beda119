package poller

import (
	"errors"

	"api-poller/core/apperr"
	"api-poller/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for the poller steps.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the poller routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/poller")
	group.Post("/prepare", h.HandlePrepare)
	group.Post("/run", h.HandleRun)
	group.Post("/purge", h.HandlePurge)
	group.Post("/batches/report", h.HandleReportBatch)
	group.Post("/jobs/report", h.HandleReportJob)
	group.Post("/jobs/fetch", h.HandleFetchJob)
	group.Post("/jobs/next", h.HandleNextJob)
	group.Get("/pages/:clientID/:batchID/:page", h.HandleArchivedPage)
}

// HandlePrepare plans a batch for a data source.
func (h *Handler) HandlePrepare(c *fiber.Ctx) error {
	var req PrepareRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	res, err := h.service.Prepare(c.UserContext(), req)
	if err != nil {
		return h.fail(c, "Prepare failed", err)
	}
	return c.JSON(res)
}

// HandleRun executes a whole poller run and waits for it.
func (h *Handler) HandleRun(c *fiber.Ctx) error {
	var req PrepareRequest
	if err := c.BodyParser(&req); err != nil {
		return badRequest(c, err)
	}
	res, err := h.service.Run(c.UserContext(), req)
	if err != nil {
		return h.fail(c, "Run failed", err)
	}
	return c.JSON(res)
}

// HandlePurge removes expired progress rows and archived pages.
func (h *Handler) HandlePurge(c *fiber.Ctx) error {
	res, err := h.service.Purge(c.UserContext())
	if err != nil {
		return h.fail(c, "Purge failed", err)
	}
	return c.JSON(res)
}

// HandleReportBatch records batch progress for a list of tasks.
func (h *Handler) HandleReportBatch(c *fiber.Ctx) error {
	var tasks []Task
	if err := c.BodyParser(&tasks); err != nil {
		return badRequest(c, err)
	}
	res, err := h.service.ReportBatch(c.UserContext(), tasks)
	if err != nil {
		return h.fail(c, "Batch report failed", err)
	}
	return c.JSON(res)
}

// HandleReportJob records job progress.
func (h *Handler) HandleReportJob(c *fiber.Ctx) error {
	var task Task
	if err := c.BodyParser(&task); err != nil {
		return badRequest(c, err)
	}
	res, err := h.service.ReportJob(c.UserContext(), task)
	if err != nil {
		return h.fail(c, "Job report failed", err)
	}
	return c.JSON(res)
}

// HandleFetchJob fetches and processes the page of a task.
func (h *Handler) HandleFetchJob(c *fiber.Ctx) error {
	var task Task
	if err := c.BodyParser(&task); err != nil {
		return badRequest(c, err)
	}
	res, err := h.service.FetchJob(c.UserContext(), task)
	if err != nil {
		return h.fail(c, "Fetch failed", err)
	}
	return c.JSON(res)
}

// HandleNextJob decides the next state of a task. A protocol violation
// answers 422 with the failed task.
func (h *Handler) HandleNextJob(c *fiber.Ctx) error {
	var task Task
	if err := c.BodyParser(&task); err != nil {
		return badRequest(c, err)
	}
	res, err := h.service.NextJob(task)
	if errors.Is(err, apperr.ErrProtocolViolation) {
		return c.Status(fiber.StatusUnprocessableEntity).JSON(fiber.Map{
			"error": err.Error(),
			"task":  res,
		})
	}
	if err != nil {
		return h.fail(c, "Next job failed", err)
	}
	return c.JSON(res)
}

// HandleArchivedPage returns the raw body of an archived page.
func (h *Handler) HandleArchivedPage(c *fiber.Ctx) error {
	page, err := c.ParamsInt("page")
	if err != nil {
		return badRequest(c, err)
	}
	raw, err := h.service.ArchivedPage(c.UserContext(), c.Params("clientID"), c.Params("batchID"), page)
	if errors.Is(err, ErrPageNotArchived) {
		return c.Status(fiber.StatusNotFound).JSON(fiber.Map{"error": err.Error()})
	}
	if err != nil {
		return h.fail(c, "Archived page lookup failed", err)
	}
	c.Set(fiber.HeaderContentType, fiber.MIMEApplicationJSON)
	return c.Send(raw)
}

func badRequest(c *fiber.Ctx, err error) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request: " + err.Error()})
}

func (h *Handler) fail(c *fiber.Ctx, msg string, err error) error {
	l := logger.WithRayID(h.service.logger, c)

	var collab *apperr.CollaboratorError
	status := fiber.StatusInternalServerError
	switch {
	case apperr.IsValidation(err):
		status = fiber.StatusBadRequest
	case errors.Is(err, apperr.ErrProtocolViolation):
		status = fiber.StatusUnprocessableEntity
	case errors.As(err, &collab):
		status = fiber.StatusBadGateway
	}
	if status >= fiber.StatusInternalServerError {
		l.Error(msg, zap.Error(err))
	} else {
		l.Warn(msg, zap.Error(err))
	}
	return c.Status(status).JSON(fiber.Map{"error": err.Error()})
}
