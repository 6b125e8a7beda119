package poller

import (
	"api-poller/core/config"
	"api-poller/core/fetch"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new poller feature.
func NewFeature(db *gorm.DB, client *fetch.Client, archive *Archive, sink LineItemSink, logger *zap.Logger, cfg config.Poller) *Feature {
	svc := NewService(db, client, archive, sink, logger, cfg)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "poller"
}

// IsEnabled checks if the feature is enabled.
func (f *Feature) IsEnabled() bool {
	return true
}

// Load registers the feature's routes.
func (f *Feature) Load(app fiber.Router) error {
	f.handler.RegisterRoutes(app)
	return nil
}

// Service returns the poller service, for in-process callers.
func (f *Feature) Service() *Service {
	return f.service
}
