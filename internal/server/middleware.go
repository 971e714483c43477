package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
)

// newRequestLogger logs each request as structured output. Comment text never
// appears in request paths or bodies we log, so nothing here needs redaction
// beyond sticking to method/path/status.
func newRequestLogger(logger *slog.Logger) fiber.Handler {
	return func(c fiber.Ctx) error {
		start := time.Now()

		err := c.Next()

		status := c.Response().StatusCode()
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"duration_ms", time.Since(start).Milliseconds(),
		}

		switch {
		case status >= 500:
			logger.Error("request", attrs...)
		case status >= 400:
			logger.Warn("request", attrs...)
		default:
			logger.Info("request", attrs...)
		}

		return err
	}
}

// newCORS allows the dashboard frontend to call the API with its session
// cookie.
func newCORS(origins []string) fiber.Handler {
	// Credentials cannot be combined with a wildcard origin, so an empty
	// configuration falls back to wildcard without cookies.
	credentials := true
	if len(origins) == 0 {
		origins = []string{"*"}
		credentials = false
	}

	return cors.New(cors.Config{
		AllowOrigins: origins,
		AllowMethods: []string{
			fiber.MethodGet,
			fiber.MethodPost,
			fiber.MethodOptions,
		},
		AllowHeaders: []string{
			"Origin",
			"Content-Type",
			"Accept",
		},
		AllowCredentials: credentials,
		MaxAge:           86400,
	})
}
