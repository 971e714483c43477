package server

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v3"

	"github.com/ykihara/commentguard/internal/config"
	"github.com/ykihara/commentguard/internal/engine"
	"github.com/ykihara/commentguard/internal/model"
	"github.com/ykihara/commentguard/internal/service"
)

// processHandler triggers a moderation batch on demand. Both the manual
// sync endpoint and the scheduler endpoint run the same pipeline.
type processHandler struct {
	storage    service.Storage
	classifier service.Classifier
	sessions   service.SessionStore
	newGateway GatewayFactory
	settings   *config.Settings
	logger     *slog.Logger
}

func newProcessHandler(settings *config.Settings, deps Deps) *processHandler {
	return &processHandler{
		storage:    deps.Storage,
		classifier: deps.Classifier,
		sessions:   deps.Sessions,
		newGateway: deps.NewGateway,
		settings:   settings,
		logger:     deps.Logger,
	}
}

// Trigger runs one batch and always answers 200 with the batch result;
// failures travel inside the result, never as an HTTP error.
func (h *processHandler) Trigger(c fiber.Ctx) error {
	return c.JSON(h.run(c.Context(), sessionFromRequest(c, h.sessions)))
}

func (h *processHandler) run(ctx context.Context, session *service.Session) *model.BatchResult {
	credentialsJSON, err := h.credentials(ctx, session)
	if err != nil {
		return &model.BatchResult{
			Errors: []string{fmt.Sprintf("no usable credentials: %v", err)},
		}
	}

	gateway, err := h.newGateway(ctx, credentialsJSON)
	if err != nil {
		return &model.BatchResult{
			Errors: []string{fmt.Sprintf("failed to build youtube client: %v", err)},
		}
	}

	pipeline := engine.New(h.storage, h.classifier, gateway, engine.Config{
		ToxicityThreshold: h.settings.ToxicityThreshold,
		HoldThreshold:     h.settings.HoldThreshold,
		MaxVideos:         h.settings.MaxVideos,
		MaxComments:       h.settings.MaxComments,
		BanAuthors:        h.settings.BanAuthors,
	})

	result := pipeline.ProcessBatch(ctx)
	h.logger.Info("batch finished",
		"processed", result.ProcessedCount,
		"hidden", result.HiddenCount,
		"held", result.HeldCount,
		"errors", len(result.Errors))
	return result
}

// credentials prefers the caller's session; without one it falls back to the
// most recently persisted credentials so the scheduler can run headless.
func (h *processHandler) credentials(ctx context.Context, session *service.Session) (string, error) {
	if session != nil && session.CredentialsJSON != "" {
		return session.CredentialsJSON, nil
	}
	return h.storage.GetLatestCredentials(ctx)
}
