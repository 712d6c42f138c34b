package handler

import (
	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"profile-service/internal/app/service"
)

// DashboardHandler handles dashboard-related HTTP requests.
type DashboardHandler struct {
	service *service.ProfileService
	info    Info
	logger  *zap.Logger
}

// NewDashboardHandler creates a new DashboardHandler.
func NewDashboardHandler(svc *service.ProfileService, info Info, logger *zap.Logger) *DashboardHandler {
	return &DashboardHandler{
		service: svc,
		info:    info,
		logger:  logger,
	}
}

// Render handles GET /dashboard
func (h *DashboardHandler) Render(c *fiber.Ctx) error {
	size, err := h.service.CacheSize(c.UserContext())
	if err != nil {
		h.logger.Warn("cache size unavailable", zap.Error(err))
	}
	snapshots, err := h.service.SnapshotCount(c.UserContext())
	if err != nil {
		h.logger.Warn("snapshot count unavailable", zap.Error(err))
	}

	return c.Render("pages/dashboard", fiber.Map{
		"Title":            "Profile Service",
		"Version":          h.info.Version,
		"CacheSize":        size,
		"Sources":          h.service.SourceNames(),
		"APIKeyConfigured": h.info.APIKey() != "",
		"SnapshotsEnabled": h.service.SnapshotsEnabled(),
		"SnapshotCount":    snapshots,
	}, "layouts/base")
}
