package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/ykihara/commentguard/internal/common"
	"github.com/ykihara/commentguard/internal/model"
)

// CommentExists reports whether a comment ID has already been processed.
// The pipeline checks this before classifying to avoid re-spending the
// classification budget.
func (s *SQLiteStorage) CommentExists(ctx context.Context, commentID string) (bool, error) {
	if err := validateContext(ctx); err != nil {
		return false, err
	}
	if err := validateString(commentID, "commentID"); err != nil {
		return false, err
	}

	var one int
	err := s.db.QueryRowContext(ctx, "SELECT 1 FROM comments WHERE id = ?", commentID).Scan(&one)
	if errors.Is(err, sql.ErrNoRows) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to check comment existence: %w", err)
	}
	return true, nil
}

// SaveComment upserts a processed comment record keyed by comment ID.
// Last write wins when two batch runs race on the same new comment; both
// compute the same verdict from the same immutable source text.
func (s *SQLiteStorage) SaveComment(ctx context.Context, comment *model.Comment) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateComment(comment); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO comments (
			id, video_id, author_name, author_channel_id,
			original_text, mild_text, category, toxicity_score,
			moderation_status, published_at, analyzed_at, needs_reply, replied_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			video_id = excluded.video_id,
			author_name = excluded.author_name,
			author_channel_id = excluded.author_channel_id,
			original_text = excluded.original_text,
			mild_text = excluded.mild_text,
			category = excluded.category,
			toxicity_score = excluded.toxicity_score,
			moderation_status = excluded.moderation_status,
			published_at = excluded.published_at,
			analyzed_at = excluded.analyzed_at,
			needs_reply = excluded.needs_reply
	`,
		comment.ID,
		comment.VideoID,
		comment.AuthorName,
		comment.AuthorChannelID,
		comment.OriginalText,
		comment.MildText,
		string(comment.Category),
		comment.ToxicityScore,
		string(comment.ModerationStatus),
		comment.PublishedAt.UTC(),
		comment.AnalyzedAt.UTC(),
		comment.NeedsReply,
		comment.RepliedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save comment %s: %w", comment.ID, err)
	}
	return nil
}

// GetComment retrieves a comment by ID. Returns common.ErrNotFound if the
// ID is unknown.
func (s *SQLiteStorage) GetComment(ctx context.Context, commentID string) (*model.Comment, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(commentID, "commentID"); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx, `
		SELECT id, video_id, author_name, author_channel_id,
			original_text, mild_text, category, toxicity_score,
			moderation_status, published_at, analyzed_at, needs_reply, replied_at
		FROM comments WHERE id = ?
	`, commentID)

	var c model.Comment
	var category, status string
	var repliedAt sql.NullTime
	err := row.Scan(
		&c.ID, &c.VideoID, &c.AuthorName, &c.AuthorChannelID,
		&c.OriginalText, &c.MildText, &category, &c.ToxicityScore,
		&status, &c.PublishedAt, &c.AnalyzedAt, &c.NeedsReply, &repliedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get comment %s: %w", commentID, err)
	}

	c.Category = model.Category(category)
	c.ModerationStatus = model.ModerationStatus(status)
	if repliedAt.Valid {
		t := repliedAt.Time
		c.RepliedAt = &t
	}
	return &c, nil
}

// MarkReplied clears the needs-reply flag and stamps the reply time.
// Returns common.ErrNotFound for an unknown ID rather than silently
// updating nothing.
func (s *SQLiteStorage) MarkReplied(ctx context.Context, commentID string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(commentID, "commentID"); err != nil {
		return err
	}

	res, err := s.db.ExecContext(ctx,
		"UPDATE comments SET needs_reply = 0, replied_at = ? WHERE id = ?",
		time.Now().UTC(), commentID)
	if err != nil {
		return fmt.Errorf("failed to mark comment %s replied: %w", commentID, err)
	}

	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to read rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
	}
	return nil
}

// GetCommentsByCategory returns sanitized summaries for a category, most
// recent first. Toxic comments are never retrievable through this path;
// only their count is ever exposed, via the daily aggregate.
func (s *SQLiteStorage) GetCommentsByCategory(ctx context.Context, category model.Category, limit int) ([]model.CommentSummary, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if !category.Valid() {
		return nil, fmt.Errorf("invalid category: %q", category)
	}
	if category == model.CategoryToxic {
		return nil, fmt.Errorf("toxic comments are not viewable: %w", common.ErrNotFound)
	}
	if limit <= 0 || limit > 100 {
		limit = 50
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, video_id, author_name, mild_text, category, published_at, needs_reply
		FROM comments
		WHERE category = ?
		ORDER BY published_at DESC
		LIMIT ?
	`, string(category), limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query comments by category: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var summaries []model.CommentSummary
	for rows.Next() {
		var sm model.CommentSummary
		var cat string
		if err := rows.Scan(&sm.ID, &sm.VideoID, &sm.AuthorName, &sm.MildText, &cat, &sm.PublishedAt, &sm.NeedsReply); err != nil {
			return nil, fmt.Errorf("failed to scan comment summary: %w", err)
		}
		sm.Category = model.Category(cat)
		summaries = append(summaries, sm)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate comment summaries: %w", err)
	}
	return summaries, nil
}

// SaveCredentials stores OAuth credentials for background processing.
func (s *SQLiteStorage) SaveCredentials(ctx context.Context, userID string, credentialsJSON string) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(userID, "userID"); err != nil {
		return err
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO credentials (user_id, credentials_json, updated_at)
		VALUES (?, ?, CURRENT_TIMESTAMP)
		ON CONFLICT(user_id) DO UPDATE SET
			credentials_json = excluded.credentials_json,
			updated_at = CURRENT_TIMESTAMP
	`, userID, credentialsJSON)
	if err != nil {
		return fmt.Errorf("failed to save credentials: %w", err)
	}
	return nil
}

// GetCredentials returns the stored OAuth credentials for a user.
func (s *SQLiteStorage) GetCredentials(ctx context.Context, userID string) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}
	if err := validateString(userID, "userID"); err != nil {
		return "", err
	}

	var credentialsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT credentials_json FROM credentials WHERE user_id = ?", userID).Scan(&credentialsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("credentials for %s: %w", userID, common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get credentials: %w", err)
	}
	return credentialsJSON, nil
}

// GetLatestCredentials returns the most recently stored OAuth credentials.
// The background scheduler uses this when no interactive session exists.
func (s *SQLiteStorage) GetLatestCredentials(ctx context.Context) (string, error) {
	if err := validateContext(ctx); err != nil {
		return "", err
	}

	var credentialsJSON string
	err := s.db.QueryRowContext(ctx,
		"SELECT credentials_json FROM credentials ORDER BY updated_at DESC LIMIT 1").Scan(&credentialsJSON)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("no stored credentials: %w", common.ErrNotFound)
	}
	if err != nil {
		return "", fmt.Errorf("failed to get latest credentials: %w", err)
	}
	return credentialsJSON, nil
}
