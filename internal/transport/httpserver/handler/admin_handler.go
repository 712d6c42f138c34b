package handler

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"profile-service/internal/app/service"
	"profile-service/internal/transport/httpserver/dto"
	"profile-service/internal/validator"
)

// Info is static service metadata reported by the health endpoint.
type Info struct {
	Version string
	// APIKeys are the paid source keys in priority order; blanks are unset keys.
	APIKeys []string
}

// APIKey returns the first configured key, or "" when none is set.
func (i Info) APIKey() string {
	for _, k := range i.APIKeys {
		if k != "" {
			return k
		}
	}

	return ""
}

// AdminHandler handles health, cache and diagnostic requests.
type AdminHandler struct {
	service   *service.ProfileService
	validator *validator.Validator
	info      Info
	timeout   time.Duration
	logger    *zap.Logger
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(svc *service.ProfileService, v *validator.Validator, info Info, timeout time.Duration, logger *zap.Logger) *AdminHandler {
	return &AdminHandler{
		service:   svc,
		validator: v,
		info:      info,
		timeout:   timeout,
		logger:    logger,
	}
}

// Health handles GET /health and GET /api/health
func (h *AdminHandler) Health(c *fiber.Ctx) error {
	size, err := h.service.CacheSize(c.UserContext())
	if err != nil {
		h.logger.Warn("cache size unavailable", zap.Error(err))
	}
	snapshots, err := h.service.SnapshotCount(c.UserContext())
	if err != nil {
		h.logger.Warn("snapshot count unavailable", zap.Error(err))
	}

	key := h.info.APIKey()

	return c.JSON(dto.HealthResponse{
		Status:           "online",
		CacheSize:        size,
		APIKeyConfigured: key != "",
		APIKeyPreview:    MaskKey(key),
		Version:          h.info.Version,
		Sources:          h.service.SourceNames(),
		SnapshotsEnabled: h.service.SnapshotsEnabled(),
		SnapshotCount:    snapshots,
		Timestamp:        dto.Timestamp(time.Now()),
	})
}

// ClearCache handles POST /cache/clear and POST /api/cache/clear
func (h *AdminHandler) ClearCache(c *fiber.Ctx) error {
	n, err := h.service.ClearCache(c.UserContext())
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(dto.ClearResponse{
		Cleared:   n,
		Timestamp: dto.Timestamp(time.Now()),
	})
}

// Probe handles GET /test/:handle
func (h *AdminHandler) Probe(c *fiber.Ctx) error {
	handle, err := h.handleParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	h.logger.Info("source probe triggered", zap.String("handle", handle))

	results, err := h.service.Probe(ctx, handle)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(dto.FromProbeResults(handle, results, time.Now()))
}

// Snapshot handles GET /api/snapshots/:handle
func (h *AdminHandler) Snapshot(c *fiber.Ctx) error {
	handle, err := h.handleParam(c)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	record, err := h.service.Snapshot(c.UserContext(), handle)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(dto.SnapshotResponse{
		ProfileBody: dto.FromProfile(record.Profile),
		FetchCount:  record.FetchCount,
		Timestamp:   dto.Timestamp(time.Now()),
	})
}

// Index handles GET /
func (h *AdminHandler) Index(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"service": "profile-service",
		"version": h.info.Version,
		"endpoints": fiber.Map{
			"GET /api/profile?username=<handle>": "look up a profile",
			"GET /instagram/:handle":             "look up a profile",
			"GET /health":                        "service status",
			"POST /cache/clear":                  "empty the profile cache",
			"GET /test/:handle":                  "probe every source",
			"GET /api/snapshots/:handle":         "last persisted profile",
			"GET /dashboard":                     "status page",
		},
		"sources": h.service.SourceNames(),
	})
}

func (h *AdminHandler) handleParam(c *fiber.Ctx) (string, error) {
	var req dto.HandleParam
	if err := c.ParamsParser(&req); err != nil {
		return "", fiber.NewError(fiber.StatusBadRequest, "invalid path parameters")
	}
	req.Normalize()

	if err := h.validator.Validate(&req); err != nil {
		return "", err
	}

	return req.Handle, nil
}

// MaskKey returns the first four characters of key followed by "****".
// Keys too short to preview are fully masked; an empty key yields "".
func MaskKey(key string) string {
	switch {
	case key == "":
		return ""
	case len(key) <= 4:
		return "****"
	default:
		return key[:4] + "****"
	}
}
