package server

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/google/uuid"

	"github.com/ykihara/commentguard/internal/config"
	"github.com/ykihara/commentguard/internal/service"
)

const (
	sessionCookie = "session_id"
	stateCookie   = "oauth_state"
)

// authHandler runs the Google OAuth web flow and issues session cookies.
type authHandler struct {
	flow     OAuthFlow
	sessions service.SessionStore
	storage  service.Storage
	settings *config.Settings
	logger   *slog.Logger
}

func newAuthHandler(settings *config.Settings, deps Deps) *authHandler {
	return &authHandler{
		flow:     deps.Flow,
		sessions: deps.Sessions,
		storage:  deps.Storage,
		settings: settings,
		logger:   deps.Logger,
	}
}

// sessionFromRequest resolves the session cookie to a live session, or nil.
func sessionFromRequest(c fiber.Ctx, sessions service.SessionStore) *service.Session {
	sessionID := c.Cookies(sessionCookie)
	if sessionID == "" {
		return nil
	}
	session, ok := sessions.Get(sessionID)
	if !ok {
		return nil
	}
	return session
}

// Login handles GET /api/auth/login: redirect to Google's consent screen.
// The state nonce round-trips through a short-lived cookie.
func (h *authHandler) Login(c fiber.Ctx) error {
	if h.flow == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "OAuth is not configured")
	}

	state := uuid.NewString()
	c.Cookie(&fiber.Cookie{
		Name:     stateCookie,
		Value:    state,
		MaxAge:   int((10 * time.Minute).Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})

	return c.Redirect().To(h.flow.AuthURL(state))
}

// Callback handles GET /api/auth/callback: exchange the code, persist the
// credentials for background processing, issue the session cookie, and send
// the browser back to the dashboard.
func (h *authHandler) Callback(c fiber.Ctx) error {
	if h.flow == nil {
		return errorResponse(c, fiber.StatusServiceUnavailable, "OAuth is not configured")
	}

	code := fiber.Query[string](c, "code")
	if code == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Missing authorization code")
	}

	state := fiber.Query[string](c, "state")
	if state == "" || state != c.Cookies(stateCookie) {
		return errorResponse(c, fiber.StatusBadRequest, "State mismatch")
	}

	ctx := c.Context()
	token, user, err := h.flow.Exchange(ctx, code)
	if err != nil {
		h.logger.Error("oauth exchange failed", "error", err)
		return errorResponse(c, fiber.StatusBadGateway, "Authentication failed")
	}

	credentialsJSON, err := h.flow.CredentialsJSON(token)
	if err != nil {
		h.logger.Error("failed to encode credentials", "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Authentication failed")
	}

	// Persisted credentials let the scheduler process comments with no
	// browser session around.
	if err := h.storage.SaveCredentials(ctx, user.ID, credentialsJSON); err != nil {
		h.logger.Error("failed to persist credentials", "user_id", user.ID, "error", err)
	}

	sessionID, err := h.sessions.Create(service.Session{
		User:            *user,
		CredentialsJSON: credentialsJSON,
		ExpiresAt:       time.Now().Add(h.settings.SessionTTL),
	})
	if err != nil {
		h.logger.Error("failed to create session", "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Authentication failed")
	}

	c.Cookie(&fiber.Cookie{
		Name:     sessionCookie,
		Value:    sessionID,
		MaxAge:   int(h.settings.SessionTTL.Seconds()),
		HTTPOnly: true,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
	c.Cookie(&fiber.Cookie{
		Name:   stateCookie,
		Value:  "",
		MaxAge: -1,
	})

	h.logger.Info("user authenticated", "user_id", user.ID)
	return c.Redirect().To(h.settings.FrontendURL)
}

// Me handles GET /api/auth/me.
func (h *authHandler) Me(c fiber.Ctx) error {
	session := sessionFromRequest(c, h.sessions)
	if session == nil {
		return errorResponse(c, fiber.StatusUnauthorized, "Not authenticated")
	}
	return c.JSON(session.User)
}

// Logout handles POST /api/auth/logout.
func (h *authHandler) Logout(c fiber.Ctx) error {
	if sessionID := c.Cookies(sessionCookie); sessionID != "" {
		h.sessions.Delete(sessionID)
	}
	c.Cookie(&fiber.Cookie{
		Name:   sessionCookie,
		Value:  "",
		MaxAge: -1,
	})
	return c.JSON(fiber.Map{"success": true})
}
