package constituents

import (
	"api-poller/core/lock"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Feature implements the loader.Feature interface.
type Feature struct {
	service *Service
	handler *Handler
}

// NewFeature creates a new constituents feature.
func NewFeature(db *gorm.DB, locker lock.Locker, logger *zap.Logger, allowDeactivation bool) *Feature {
	svc := NewService(db, locker, logger, allowDeactivation)
	h := NewHandler(svc)
	return &Feature{service: svc, handler: h}
}

// Name returns the name of the feature.
func (f *Feature) Name() string {
	return "constituents"
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

// Service returns the line item service, for in-process callers.
func (f *Feature) Service() *Service {
	return f.service
}
