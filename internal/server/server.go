// Package server exposes the HTTP API: dashboard reads, reply actions,
// batch triggers, and the OAuth login flow.
package server

import (
	"context"
	"log/slog"

	"github.com/gofiber/fiber/v3"
	recoverer "github.com/gofiber/fiber/v3/middleware/recover"
	"golang.org/x/oauth2"

	"github.com/ykihara/commentguard/internal/config"
	"github.com/ykihara/commentguard/internal/service"
)

// OAuthFlow abstracts the Google OAuth web flow so handlers can be tested
// without live Google endpoints.
type OAuthFlow interface {
	AuthURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, *service.UserInfo, error)
	CredentialsJSON(token *oauth2.Token) (string, error)
}

// GatewayFactory builds a CommentGateway from stored OAuth credentials.
// Gateways are constructed per request because each carries its own token.
type GatewayFactory func(ctx context.Context, credentialsJSON string) (service.CommentGateway, error)

// Deps bundles everything the HTTP handlers need.
type Deps struct {
	Storage    service.Storage
	Classifier service.Classifier
	Sessions   service.SessionStore
	Flow       OAuthFlow
	NewGateway GatewayFactory
	Logger     *slog.Logger
}

// Server wraps the Fiber app and its configuration.
type Server struct {
	app      *fiber.App
	settings *config.Settings
	logger   *slog.Logger
}

// New assembles the Fiber app: middleware stack, then routes.
func New(settings *config.Settings, deps Deps) *Server {
	app := fiber.New(fiber.Config{
		AppName: "commentguard",
	})

	app.Use(recoverer.New())
	app.Use(newRequestLogger(deps.Logger))
	app.Use(newCORS(settings.CORSOrigins))

	app.Get("/health", func(c fiber.Ctx) error {
		return c.JSON(fiber.Map{"status": "ok"})
	})

	comments := newCommentHandler(deps)
	process := newProcessHandler(settings, deps)
	authh := newAuthHandler(settings, deps)

	api := app.Group("/api")

	api.Get("/comments/summary", comments.Summary)
	api.Get("/comments/category/:category", comments.ByCategory)
	api.Get("/comments/stats", comments.Stats)
	api.Post("/comments/:id/reply", comments.Reply)
	api.Post("/comments/:id/suggest-reply", comments.SuggestReply)

	api.Post("/comments/sync", process.Trigger)
	api.Post("/scheduler/process", process.Trigger)

	api.Get("/auth/login", authh.Login)
	api.Get("/auth/callback", authh.Callback)
	api.Get("/auth/me", authh.Me)
	api.Post("/auth/logout", authh.Logout)

	return &Server{
		app:      app,
		settings: settings,
		logger:   deps.Logger,
	}
}

// App returns the underlying Fiber app, used by tests.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen blocks serving HTTP on the configured address.
func (s *Server) Listen() error {
	s.logger.Info("http server listening", "addr", s.settings.ListenAddr)
	return s.app.Listen(s.settings.ListenAddr)
}

// Shutdown gracefully drains in-flight requests.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

// errorResponse writes a uniform error body.
func errorResponse(c fiber.Ctx, status int, message string) error {
	return c.Status(status).JSON(fiber.Map{
		"error": message,
	})
}
