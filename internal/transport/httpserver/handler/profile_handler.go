// Package handler provides HTTP handlers for the API.
package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"profile-service/internal/app/service"
	"profile-service/internal/transport/httpserver/dto"
	"profile-service/internal/validator"
)

// ProfileHandler handles profile lookup requests.
type ProfileHandler struct {
	service   *service.ProfileService
	validator *validator.Validator
	timeout   time.Duration
	logger    *zap.Logger
}

// NewProfileHandler creates a new ProfileHandler.
// timeout bounds a single lookup; zero means no bound beyond the client's.
func NewProfileHandler(svc *service.ProfileService, v *validator.Validator, timeout time.Duration, logger *zap.Logger) *ProfileHandler {
	return &ProfileHandler{
		service:   svc,
		validator: v,
		timeout:   timeout,
		logger:    logger,
	}
}

// GetByQuery handles GET /api/profile?username=<handle>
func (h *ProfileHandler) GetByQuery(c *fiber.Ctx) error {
	var req dto.ProfileQuery
	if err := c.QueryParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:     "invalid query parameters",
			Code:      "INVALID_PARAMS",
			Timestamp: dto.Timestamp(time.Now()),
		})
	}
	req.Normalize()

	if err := h.validator.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	return h.lookup(c, req.Username)
}

// GetByPath handles GET /instagram/:handle
func (h *ProfileHandler) GetByPath(c *fiber.Ctx) error {
	var req dto.HandleParam
	if err := c.ParamsParser(&req); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:     "invalid path parameters",
			Code:      "INVALID_PARAMS",
			Timestamp: dto.Timestamp(time.Now()),
		})
	}
	req.Normalize()

	if err := h.validator.Validate(&req); err != nil {
		return respondError(c, h.logger, err)
	}

	return h.lookup(c, req.Handle)
}

func (h *ProfileHandler) lookup(c *fiber.Ctx, handle string) error {
	ctx, cancel := requestContext(c, h.timeout)
	defer cancel()

	result, err := h.service.Lookup(ctx, handle)
	if err != nil {
		return respondError(c, h.logger, err)
	}

	return c.JSON(dto.FromLookupResult(result, time.Now()))
}

// requestContext derives the lookup context from the request, bounded by timeout.
func requestContext(c *fiber.Ctx, timeout time.Duration) (context.Context, context.CancelFunc) {
	if timeout <= 0 {
		return context.WithCancel(c.UserContext())
	}

	return context.WithTimeout(c.UserContext(), timeout)
}
