package server

import (
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v3"

	"github.com/ykihara/commentguard/internal/common"
	"github.com/ykihara/commentguard/internal/model"
	"github.com/ykihara/commentguard/internal/service"
)

// commentHandler serves the dashboard read endpoints and reply actions.
// Every read path goes through model.CommentSummary, so original comment
// text never crosses the API boundary.
type commentHandler struct {
	storage    service.Storage
	classifier service.Classifier
	sessions   service.SessionStore
	newGateway GatewayFactory
	logger     *slog.Logger
}

func newCommentHandler(deps Deps) *commentHandler {
	return &commentHandler{
		storage:    deps.Storage,
		classifier: deps.Classifier,
		sessions:   deps.Sessions,
		newGateway: deps.NewGateway,
		logger:     deps.Logger,
	}
}

// Summary handles GET /api/comments/summary: the reply-worthy categories
// grouped for the dashboard, plus today's aggregate.
func (h *commentHandler) Summary(c fiber.Ctx) error {
	limit := fiber.Query[int](c, "limit", 50)
	ctx := c.Context()

	grouped := make(map[string][]model.CommentSummary, 3)
	for key, category := range map[string]model.Category{
		"positive":     model.CategoryPositive,
		"questions":    model.CategoryQuestion,
		"constructive": model.CategoryConstructive,
	} {
		summaries, err := h.storage.GetCommentsByCategory(ctx, category, limit)
		if err != nil {
			h.logger.Error("failed to load dashboard comments", "category", category, "error", err)
			return errorResponse(c, fiber.StatusInternalServerError, "Failed to get comments summary")
		}
		grouped[key] = summaries
	}

	stats, err := h.storage.GetDailyStats(ctx, model.StatsDate(time.Now()))
	if err != nil {
		h.logger.Error("failed to load daily stats", "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get comments summary")
	}

	return c.JSON(fiber.Map{
		"comments": grouped,
		"stats":    stats,
	})
}

// ByCategory handles GET /api/comments/category/:category. The toxic
// category is refused: only its count is available, via stats.
func (h *commentHandler) ByCategory(c fiber.Ctx) error {
	category := model.Category(c.Params("category"))
	if !category.Valid() {
		return errorResponse(c, fiber.StatusBadRequest, "Unknown category")
	}
	if category == model.CategoryToxic {
		return errorResponse(c, fiber.StatusBadRequest,
			"Toxic comments are not viewable. Check stats for count only.")
	}

	limit := fiber.Query[int](c, "limit", 50)
	summaries, err := h.storage.GetCommentsByCategory(c.Context(), category, limit)
	if err != nil {
		h.logger.Error("failed to load comments", "category", category, "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get comments")
	}

	return c.JSON(summaries)
}

// Stats handles GET /api/comments/stats: today's aggregate counters.
func (h *commentHandler) Stats(c fiber.Ctx) error {
	stats, err := h.storage.GetDailyStats(c.Context(), model.StatsDate(time.Now()))
	if err != nil {
		h.logger.Error("failed to load daily stats", "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to get statistics")
	}
	return c.JSON(stats)
}

// Reply handles POST /api/comments/:id/reply. The record must already exist;
// otherwise no call reaches YouTube.
func (h *commentHandler) Reply(c fiber.Ctx) error {
	commentID := c.Params("id")
	ctx := c.Context()

	if _, err := h.storage.GetComment(ctx, commentID); err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "Comment not found")
		}
		h.logger.Error("failed to load comment", "comment_id", commentID, "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to post reply")
	}

	var req model.ReplyRequest
	if err := c.Bind().JSON(&req); err != nil {
		return errorResponse(c, fiber.StatusBadRequest, "Invalid request body")
	}
	if strings.TrimSpace(req.Text) == "" {
		return errorResponse(c, fiber.StatusBadRequest, "Reply text is required")
	}

	session := sessionFromRequest(c, h.sessions)
	if session == nil {
		return errorResponse(c, fiber.StatusUnauthorized, "User not authenticated")
	}

	gateway, err := h.newGateway(ctx, session.CredentialsJSON)
	if err != nil {
		h.logger.Error("failed to build youtube client", "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to post reply")
	}

	posted, err := gateway.PostReply(ctx, commentID, req.Text)
	if err != nil {
		h.logger.Error("failed to post reply", "comment_id", commentID, "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to post reply")
	}

	if err := h.storage.MarkReplied(ctx, commentID); err != nil {
		// The reply is live on YouTube; surface success but log the miss.
		h.logger.Error("failed to mark comment replied", "comment_id", commentID, "error", err)
	}

	return c.JSON(fiber.Map{
		"success":  true,
		"reply_id": posted.ID,
		"message":  "Reply posted successfully",
	})
}

// SuggestReply handles POST /api/comments/:id/suggest-reply. Toxic comments
// get a null suggestion.
func (h *commentHandler) SuggestReply(c fiber.Ctx) error {
	commentID := c.Params("id")
	ctx := c.Context()

	comment, err := h.storage.GetComment(ctx, commentID)
	if err != nil {
		if errors.Is(err, common.ErrNotFound) {
			return errorResponse(c, fiber.StatusNotFound, "Comment not found")
		}
		h.logger.Error("failed to load comment", "comment_id", commentID, "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to generate suggestion")
	}

	suggestion, err := h.classifier.SuggestReply(ctx, comment.MildText, comment.Category)
	if err != nil {
		h.logger.Error("failed to generate suggestion", "comment_id", commentID, "error", err)
		return errorResponse(c, fiber.StatusInternalServerError, "Failed to generate suggestion")
	}

	var body *string
	if suggestion != "" {
		body = &suggestion
	}

	return c.JSON(fiber.Map{
		"comment_id": commentID,
		"suggestion": body,
	})
}
