package middleware

import (
	"fmt"
	"runtime/debug"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"profile-service/internal/transport/httpserver/dto"
)

// Recover returns a middleware that turns a handler panic into a JSON 500
// so one bad request never takes the process down.
func Recover(logger *zap.Logger) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			r := recover()
			if r == nil {
				return
			}

			logger.Error("panic recovered",
				zap.String("request_id", requestID(c)),
				zap.String("method", c.Method()),
				zap.String("path", c.Path()),
				zap.String("panic", fmt.Sprint(r)),
				zap.ByteString("stack", debug.Stack()),
			)

			err = c.Status(fiber.StatusInternalServerError).JSON(dto.ErrorResponse{
				Error:     "internal server error",
				Code:      "PANIC",
				Timestamp: dto.Timestamp(time.Now()),
			})
		}()

		return c.Next()
	}
}
