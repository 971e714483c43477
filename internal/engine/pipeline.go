// Package engine implements the comment processing pipeline: fetch, classify,
// moderate, record.
package engine

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/ykihara/commentguard/internal/model"
	"github.com/ykihara/commentguard/internal/service"
)

// Pipeline orchestrates one batch of comment processing. Comments move
// through fetched → classified → decided → (moderated) → recorded; a
// failure at any step is captured into the batch result and the next
// comment proceeds.
type Pipeline struct {
	storage    service.Storage
	classifier service.Classifier
	gateway    service.CommentGateway
	config     Config
	now        func() time.Time
}

// Config holds the pipeline's processing parameters. HoldThreshold must not
// exceed ToxicityThreshold; config validation rejects such settings before
// a Pipeline is ever constructed.
type Config struct {
	ToxicityThreshold int
	HoldThreshold     int
	MaxVideos         int64
	MaxComments       int64
	// BanAuthors additionally bans the author when a comment is rejected.
	// Held comments never trigger a ban.
	BanAuthors bool
}

// DefaultConfig returns the default processing parameters.
func DefaultConfig() Config {
	return Config{
		ToxicityThreshold: 70,
		HoldThreshold:     50,
		MaxVideos:         5,
		MaxComments:       50,
	}
}

// New creates a pipeline with the given dependencies.
func New(storage service.Storage, classifier service.Classifier, gateway service.CommentGateway, config Config) *Pipeline {
	if config.MaxVideos <= 0 {
		config.MaxVideos = 5
	}
	if config.MaxComments <= 0 {
		config.MaxComments = 50
	}
	return &Pipeline{
		storage:    storage,
		classifier: classifier,
		gateway:    gateway,
		config:     config,
		now:        time.Now,
	}
}

// ProcessBatch runs one batch: recent videos, their comment threads, every
// not-yet-seen comment. It never returns an error; failures are reported as
// data in the result so the trigger always gets a structured answer.
func (p *Pipeline) ProcessBatch(ctx context.Context) *model.BatchResult {
	result := &model.BatchResult{Errors: []string{}}

	slog.Info("Starting comment processing batch",
		"max_videos", p.config.MaxVideos,
		"max_comments", p.config.MaxComments)

	videos, err := p.gateway.ListRecentVideos(ctx, p.config.MaxVideos)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to list videos: %v", err))
		return result
	}

	for _, video := range videos {
		comments, err := p.gateway.ListCommentThreads(ctx, video.VideoID, p.config.MaxComments)
		if err != nil {
			result.Errors = append(result.Errors,
				fmt.Sprintf("failed to list comments for video %s: %v", video.VideoID, err))
			return result
		}

		for _, raw := range comments {
			exists, err := p.storage.CommentExists(ctx, raw.ID)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("error processing comment %s: existence check: %v", raw.ID, err))
				continue
			}
			if exists {
				// Already processed; skipping is silent, not an error.
				continue
			}

			status, err := p.processComment(ctx, raw)
			if err != nil {
				result.Errors = append(result.Errors,
					fmt.Sprintf("error processing comment %s: %v", raw.ID, err))
				continue
			}

			result.ProcessedCount++
			switch status {
			case model.StatusRejected:
				result.HiddenCount++
			case model.StatusHeldForReview:
				result.HeldCount++
			case model.StatusPublished:
				// No moderation call issued.
			}
		}
	}

	// Aggregate failure is a batch-level error; already-persisted records
	// stay valid and the result is still returned.
	delta := model.StatsDelta{
		Blocked:   int64(result.HiddenCount + result.HeldCount),
		Processed: int64(result.ProcessedCount),
	}
	if err := p.storage.IncrementDailyStats(ctx, model.StatsDate(p.now()), delta); err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("failed to update statistics: %v", err))
	}

	slog.Info("Batch complete",
		"processed", result.ProcessedCount,
		"hidden", result.HiddenCount,
		"held", result.HeldCount,
		"errors", len(result.Errors))

	return result
}

// processComment takes one raw comment from classification through durable
// recording and returns the moderation status it decided on.
func (p *Pipeline) processComment(ctx context.Context, raw model.RawComment) (model.ModerationStatus, error) {
	verdict, err := p.classifier.Analyze(ctx, raw.Text)
	if err != nil {
		return "", fmt.Errorf("classification: %w", err)
	}

	status := p.decide(verdict.ToxicityScore)

	// Moderate before persisting. A crash in between leaves the remote
	// comment moderated with no local record; the next run re-classifies
	// and re-issues the idempotent moderation call, which is the recovery
	// path. The reverse order would leave a record claiming a moderation
	// that never happened.
	if status != model.StatusPublished {
		banAuthor := p.config.BanAuthors && status == model.StatusRejected
		if err := p.gateway.SetModerationStatus(ctx, []string{raw.ID}, status, banAuthor); err != nil {
			return "", fmt.Errorf("moderation: %w", err)
		}
	}

	mildText := verdict.MildText
	if mildText == "" {
		mildText = raw.Text
	}

	comment := &model.Comment{
		ID:               raw.ID,
		VideoID:          raw.VideoID,
		AuthorName:       raw.AuthorName,
		AuthorChannelID:  raw.AuthorChannelID,
		OriginalText:     raw.Text,
		MildText:         mildText,
		Category:         verdict.Category,
		ToxicityScore:    verdict.ToxicityScore,
		ModerationStatus: status,
		PublishedAt:      raw.PublishedAt,
		AnalyzedAt:       p.now().UTC(),
		NeedsReply:       verdict.Category.NeedsReply(),
	}

	if err := p.storage.SaveComment(ctx, comment); err != nil {
		return "", fmt.Errorf("persistence: %w", err)
	}

	return status, nil
}

// decide maps a toxicity score to a moderation status. Thresholds are
// inclusive on the lower bound of each band; ties resolve toward the more
// severe action.
func (p *Pipeline) decide(score int) model.ModerationStatus {
	switch {
	case score >= p.config.ToxicityThreshold:
		return model.StatusRejected
	case score >= p.config.HoldThreshold:
		return model.StatusHeldForReview
	default:
		return model.StatusPublished
	}
}
