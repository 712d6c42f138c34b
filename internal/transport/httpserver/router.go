// Package httpserver provides HTTP server and routing.
package httpserver

import (
	"errors"
	"fmt"
	"io/fs"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/compress"
	"github.com/gofiber/fiber/v2/middleware/cors"
	"github.com/gofiber/fiber/v2/middleware/requestid"
	"github.com/gofiber/template/html/v2"
	"go.uber.org/zap"

	"profile-service/internal/app/service"
	"profile-service/internal/transport/httpserver/dto"
	"profile-service/internal/transport/httpserver/handler"
	"profile-service/internal/transport/httpserver/middleware"
	"profile-service/internal/transport/httpserver/web"
	"profile-service/internal/validator"
)

// ServerConfig holds server configuration.
type ServerConfig struct {
	BodyLimit      int
	// Debug prints the startup banner and route table.
	Debug          bool
	RequestTimeout time.Duration
	Info           handler.Info
}

// Server wraps Fiber app with handlers.
type Server struct {
	App    *fiber.App
	Logger *zap.Logger
}

// NewServer creates a new HTTP server with all routes configured.
// readiness checks back the /readyz probe.
func NewServer(
	cfg ServerConfig,
	profileSvc *service.ProfileService,
	v *validator.Validator,
	logger *zap.Logger,
	readiness ...middleware.ReadinessCheck,
) (*Server, error) {
	templates, err := fs.Sub(web.Templates, "templates")
	if err != nil {
		return nil, fmt.Errorf("loading templates: %w", err)
	}
	engine := html.NewFileSystem(http.FS(templates), ".html")

	app := fiber.New(fiber.Config{
		AppName:               "profile-service",
		BodyLimit:             cfg.BodyLimit,
		ErrorHandler:          errorHandler(logger),
		Views:                 engine,
		UnescapePath:          true,
		DisableStartupMessage: !cfg.Debug,
		EnablePrintRoutes:     cfg.Debug,
	})

	// Probes go first so they answer even when later middleware is slow.
	app.Use(middleware.NewHealthCheck(readiness...))

	app.Use(requestid.New())
	app.Use(middleware.Recover(logger))
	app.Use(middleware.Logger(logger))
	app.Use(cors.New())
	app.Use(compress.New())

	profileHandler := handler.NewProfileHandler(profileSvc, v, cfg.RequestTimeout, logger)
	adminHandler := handler.NewAdminHandler(profileSvc, v, cfg.Info, cfg.RequestTimeout, logger)
	dashboardHandler := handler.NewDashboardHandler(profileSvc, cfg.Info, logger)

	registerRoutes(app, profileHandler, adminHandler, dashboardHandler)

	return &Server{
		App:    app,
		Logger: logger,
	}, nil
}

// registerRoutes sets up all routes. Every API route is also served under /api.
func registerRoutes(
	app *fiber.App,
	profileHandler *handler.ProfileHandler,
	adminHandler *handler.AdminHandler,
	dashboardHandler *handler.DashboardHandler,
) {
	app.Get("/", adminHandler.Index)
	app.Get("/dashboard", dashboardHandler.Render)

	app.Get("/instagram/:handle", profileHandler.GetByPath)
	app.Get("/test/:handle", adminHandler.Probe)

	app.Get("/health", adminHandler.Health)
	app.Post("/cache/clear", adminHandler.ClearCache)

	api := app.Group("/api")
	api.Get("/profile", profileHandler.GetByQuery)
	api.Get("/health", adminHandler.Health)
	api.Post("/cache/clear", adminHandler.ClearCache)
	api.Get("/snapshots/:handle", adminHandler.Snapshot)
}

// errorHandler returns a custom error handler that logs based on HTTP status code.
// 404s are logged at DEBUG level, 4xx at WARN, 5xx at ERROR.
func errorHandler(logger *zap.Logger) fiber.ErrorHandler {
	return func(c *fiber.Ctx, err error) error {
		code := fiber.StatusInternalServerError
		msg := "internal server error"

		var fe *fiber.Error
		if errors.As(err, &fe) {
			code = fe.Code
			msg = fe.Message
		}

		switch {
		case code == fiber.StatusNotFound:
			logger.Debug("resource not found",
				zap.String("path", c.Path()),
				zap.String("method", c.Method()),
			)
		case code >= 500:
			logger.Error("server error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		default:
			logger.Warn("client error",
				zap.Error(err),
				zap.Int("status", code),
				zap.String("path", c.Path()),
			)
		}

		return c.Status(code).JSON(dto.ErrorResponse{
			Error:     msg,
			Code:      "UNHANDLED_ERROR",
			Timestamp: dto.Timestamp(time.Now()),
		})
	}
}

// Start starts the HTTP server.
func (s *Server) Start(port int) error {
	s.Logger.Info("starting HTTP server", zap.Int("port", port))

	return s.App.Listen(fmt.Sprintf(":%d", port))
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown() error {
	s.Logger.Info("shutting down HTTP server")

	return s.App.Shutdown()
}
