package handler

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"profile-service/internal/app/service"
	"profile-service/internal/domain"
	"profile-service/internal/transport/httpserver/dto"
	"profile-service/internal/validator"
)

// RetryAfterSeconds is advertised when every source was rate limited.
const RetryAfterSeconds = 60

type kindStatus struct {
	status     int
	code       string
	suggestion string
}

// exhaustedStatus maps the failure kind shared by every attempt to a response.
var exhaustedStatus = map[domain.ErrorKind]kindStatus{
	domain.KindRateLimited: {fiber.StatusTooManyRequests, "RATE_LIMITED",
		"upstream sources are rate limiting requests, retry later"},
	domain.KindAuthError: {fiber.StatusUnauthorized, "AUTH_ERROR",
		"check the configured API keys"},
	domain.KindForbidden: {fiber.StatusForbidden, "FORBIDDEN",
		"sources refused access, configure a paid source or retry later"},
	domain.KindNotFound: {fiber.StatusNotFound, "NOT_FOUND",
		"check the username spelling"},
	domain.KindTimeout: {fiber.StatusGatewayTimeout, "UPSTREAM_TIMEOUT",
		"sources did not answer in time, retry later"},
	domain.KindMissingCredentials: {fiber.StatusServiceUnavailable, "MISSING_CREDENTIALS",
		"set APP_SOURCES_PAID_PRIMARY_API_KEY or RAPIDAPI_KEY"},
}

// respondError writes the JSON error body for a failed lookup.
func respondError(c *fiber.Ctx, logger *zap.Logger, err error) error {
	now := time.Now()

	var (
		validationErrs validator.ValidationErrors
		exhausted      *service.ExhaustedError
		normErr        *service.NormalizationError
		fiberErr       *fiber.Error
	)

	switch {
	case errors.As(err, &validationErrs):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:     validationErrs.Error(),
			Code:      "VALIDATION_ERROR",
			Details:   validationErrs,
			Timestamp: dto.Timestamp(now),
		})

	case errors.As(err, &fiberErr) && fiberErr.Code < fiber.StatusInternalServerError:
		return c.Status(fiberErr.Code).JSON(dto.ErrorResponse{
			Error:     fiberErr.Message,
			Code:      "INVALID_PARAMS",
			Timestamp: dto.Timestamp(now),
		})

	case errors.Is(err, domain.ErrInvalidHandle):
		return c.Status(fiber.StatusBadRequest).JSON(dto.ErrorResponse{
			Error:     err.Error(),
			Code:      "INVALID_HANDLE",
			Timestamp: dto.Timestamp(now),
		})

	case errors.As(err, &exhausted):
		resp := dto.ErrorResponse{
			Error:      exhausted.Error(),
			Code:       "SOURCES_UNAVAILABLE",
			Details:    fiber.Map{"attempts": dto.FromAttempts(exhausted.Attempts)},
			Suggestion: "all sources failed, see details for each attempt",
			Timestamp:  dto.Timestamp(now),
		}
		status := fiber.StatusBadGateway

		if kind, ok := exhausted.CommonKind(); ok {
			if ks, known := exhaustedStatus[kind]; known {
				status, resp.Code, resp.Suggestion = ks.status, ks.code, ks.suggestion
			}
			if kind == domain.KindRateLimited {
				resp.RetryAfter = RetryAfterSeconds
				c.Set(fiber.HeaderRetryAfter, strconv.Itoa(RetryAfterSeconds))
			}
		}

		logger.Warn("lookup exhausted all sources",
			zap.String("handle", exhausted.Handle),
			zap.Int("status", status),
			zap.String("code", resp.Code),
		)

		return c.Status(status).JSON(resp)

	case errors.As(err, &normErr):
		logger.Error("profile normalization failed",
			zap.String("source", normErr.Source),
			zap.Error(err),
		)

		return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
			Error:     err.Error(),
			Code:      "NORMALIZATION_FAILED",
			Details:   fiber.Map{"source": normErr.Source, "raw": normErr.Raw},
			Timestamp: dto.Timestamp(now),
		})

	case errors.Is(err, context.DeadlineExceeded):
		return c.Status(fiber.StatusGatewayTimeout).JSON(dto.ErrorResponse{
			Error:      "lookup timed out",
			Code:       "TIMEOUT",
			Suggestion: "retry later",
			Timestamp:  dto.Timestamp(now),
		})

	case errors.Is(err, service.ErrSnapshotNotFound):
		return c.Status(fiber.StatusNotFound).JSON(dto.ErrorResponse{
			Error:     err.Error(),
			Code:      "SNAPSHOT_NOT_FOUND",
			Timestamp: dto.Timestamp(now),
		})

	case errors.Is(err, service.ErrSnapshotsDisabled):
		return c.Status(fiber.StatusServiceUnavailable).JSON(dto.ErrorResponse{
			Error:      err.Error(),
			Code:       "SNAPSHOTS_DISABLED",
			Suggestion: "enable the database section to persist snapshots",
			Timestamp:  dto.Timestamp(now),
		})
	}

	logger.Error("request failed", zap.Error(err))

	return c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
		Error:     "internal server error",
		Code:      "INTERNAL_ERROR",
		Timestamp: dto.Timestamp(now),
	})
}
