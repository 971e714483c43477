// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/ykihara/commentguard/internal/model"
)

// Storage defines the contract for our persistence layer.
type Storage interface {
	// Comment operations
	CommentExists(ctx context.Context, commentID string) (bool, error)
	SaveComment(ctx context.Context, comment *model.Comment) error
	GetComment(ctx context.Context, commentID string) (*model.Comment, error)
	MarkReplied(ctx context.Context, commentID string) error
	GetCommentsByCategory(ctx context.Context, category model.Category, limit int) ([]model.CommentSummary, error)

	// Daily aggregate operations
	IncrementDailyStats(ctx context.Context, date string, delta model.StatsDelta) error
	GetDailyStats(ctx context.Context, date string) (*model.DailyStats, error)

	// Credential persistence for background processing
	SaveCredentials(ctx context.Context, userID string, credentialsJSON string) error
	GetCredentials(ctx context.Context, userID string) (string, error)
	GetLatestCredentials(ctx context.Context) (string, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}

// Classifier analyzes comment text and proposes replies.
type Classifier interface {
	// Analyze returns a verdict for the comment text. A malformed model
	// response degrades to a safe default verdict rather than an error;
	// only transport or auth failures are returned as errors.
	Analyze(ctx context.Context, text string) (model.Verdict, error)

	// SuggestReply proposes a short reply for the comment. It returns an
	// empty string for the toxic category.
	SuggestReply(ctx context.Context, text string, category model.Category) (string, error)
}

// CommentGateway wraps the remote comment source and moderation sink.
type CommentGateway interface {
	ListRecentVideos(ctx context.Context, limit int64) ([]model.VideoInfo, error)
	ListCommentThreads(ctx context.Context, videoID string, limit int64) ([]model.RawComment, error)
	// SetModerationStatus is idempotent: repeating the same id/status pair
	// is harmless. This is what makes crash recovery between moderation and
	// persistence safe.
	SetModerationStatus(ctx context.Context, commentIDs []string, status model.ModerationStatus, banAuthor bool) error
	PostReply(ctx context.Context, parentID, text string) (*model.PostedReply, error)
}

// Session is an authenticated dashboard session.
type Session struct {
	User            UserInfo
	CredentialsJSON string
	ExpiresAt       time.Time
}

// UserInfo identifies the authenticated channel owner.
type UserInfo struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture,omitempty"`
}

// SessionStore is the pluggable session backing. Implementations must check
// expiry on every read.
type SessionStore interface {
	Create(session Session) (string, error)
	Get(sessionID string) (*Session, bool)
	Delete(sessionID string)
}

// RetryOptions configures retry behavior for operations.
type RetryOptions struct {
	MaxAttempts  int
	InitialDelay time.Duration
	MaxDelay     time.Duration
	Multiplier   float64
}
