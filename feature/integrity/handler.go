package integrity

import (
	"api-poller/core/logger"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// Handler handles HTTP requests for integrity checks.
type Handler struct {
	service *Service
}

// NewHandler creates a new HTTP handler.
func NewHandler(service *Service) *Handler {
	return &Handler{service: service}
}

// RegisterRoutes registers the integrity routes.
func (h *Handler) RegisterRoutes(app fiber.Router) {
	group := app.Group("/integrity")
	group.Get("/", h.HandleIntegrityCheck)
	group.Get("/archive", h.HandleArchiveCheck)
	group.Get("/schema", h.HandleSchemaCheck)
	group.Get("/jobs", h.HandleJobsCheck)
}

// HandleIntegrityCheck runs every check and reports each one separately.
func (h *Handler) HandleIntegrityCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	l.Info("Triggering all integrity checks")

	ctx := c.UserContext()
	report := make(map[string]any)

	if archive, err := h.service.CheckArchive(ctx); err != nil {
		report["archive"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["archive"] = archive
	}

	if schema, err := h.service.CheckSchema(); err != nil {
		report["schema"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["schema"] = schema
	}

	if stalled, err := h.service.CheckJobs(ctx); err != nil {
		report["jobs"] = fiber.Map{"status": "error", "error": err.Error()}
	} else {
		report["jobs"] = fiber.Map{"status": "checked", "stalled": stalled}
	}

	return c.JSON(report)
}

// HandleArchiveCheck checks and optionally creates the archive bucket.
func (h *Handler) HandleArchiveCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	report, err := h.service.CheckArchive(c.UserContext())
	if err != nil {
		l.Error("Archive check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}

	if !report.Exists {
		l.Warn("Archive bucket missing", zap.String("bucket", report.Bucket))

		if fix {
			if err := h.service.FixArchive(c.UserContext()); err != nil {
				return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
					"error":   "Failed to create archive bucket",
					"details": err.Error(),
				})
			}
			return c.JSON(fiber.Map{
				"status": "fixed",
				"bucket": report.Bucket,
			})
		}
	}

	return c.JSON(fiber.Map{
		"status": "checked",
		"report": report,
	})
}

// HandleSchemaCheck checks and optionally migrates the database schema.
func (h *Handler) HandleSchemaCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)
	fix := c.Query("fix") == "true"

	if fix {
		l.Info("Migrating database schema")
		if err := h.service.FixSchema(); err != nil {
			l.Error("Schema migration failed", zap.Error(err))
			return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{
				"error":   "Failed to migrate schema",
				"details": err.Error(),
			})
		}
	}

	report, err := h.service.CheckSchema()
	if err != nil {
		l.Error("Schema check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if !report.Matched {
		l.Warn("Schema does not match models", zap.Strings("errors", report.Errors))
	}
	return c.JSON(report)
}

// HandleJobsCheck lists jobs that stopped reporting without finishing.
func (h *Handler) HandleJobsCheck(c *fiber.Ctx) error {
	l := logger.WithRayID(h.service.logger, c)

	stalled, err := h.service.CheckJobs(c.UserContext())
	if err != nil {
		l.Error("Jobs check failed", zap.Error(err))
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": err.Error()})
	}
	if len(stalled) > 0 {
		l.Warn("Stalled jobs detected", zap.Int("count", len(stalled)))
	}

	return c.JSON(fiber.Map{
		"status":  "checked",
		"stalled": stalled,
	})
}
