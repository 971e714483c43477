package engine

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ykihara/commentguard/internal/model"
)

func rawComment(id, videoID, text string) model.RawComment {
	return model.RawComment{
		ID:              id,
		VideoID:         videoID,
		Text:            text,
		AuthorName:      "viewer",
		AuthorChannelID: "ch-" + id,
		PublishedAt:     time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC),
	}
}

func verdict(score int, category model.Category) model.Verdict {
	return model.Verdict{
		ToxicityScore: score,
		Category:      category,
		Reason:        "test",
		MildText:      "sanitized",
	}
}

func newTestPipeline(storage *MockStorage, classifier *MockClassifier, gateway *MockGateway) *Pipeline {
	p := New(storage, classifier, gateway, DefaultConfig())
	p.now = func() time.Time { return time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC) }
	return p
}

func TestProcessBatchEndToEnd(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1", Title: "Video One"}}
	gateway.Comments["v1"] = []model.RawComment{
		rawComment("a", "v1", "love this video"),
		rawComment("b", "v1", "you are trash"),
	}
	classifier.Verdicts["love this video"] = verdict(20, model.CategoryPositive)
	classifier.Verdicts["you are trash"] = verdict(85, model.CategoryToxic)

	result := newTestPipeline(storage, classifier, gateway).ProcessBatch(context.Background())

	assert.Equal(t, 2, result.ProcessedCount)
	assert.Equal(t, 1, result.HiddenCount)
	assert.Equal(t, 0, result.HeldCount)
	assert.Empty(t, result.Errors)

	calls := gateway.ModerationCalls()
	require.Len(t, calls, 1, "only the toxic comment triggers moderation")
	assert.Equal(t, []string{"b"}, calls[0].IDs)
	assert.Equal(t, model.StatusRejected, calls[0].Status)
	assert.False(t, calls[0].BanAuthor)

	stats, err := storage.GetDailyStats(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.BlockedCount)
	assert.Equal(t, int64(2), stats.TotalProcessed)

	saved := storage.SavedComment("b")
	require.NotNil(t, saved)
	assert.Equal(t, model.StatusRejected, saved.ModerationStatus)
	assert.Equal(t, "sanitized", saved.MildText)
	assert.False(t, saved.NeedsReply)
}

func TestDecideThresholdBands(t *testing.T) {
	tests := []struct {
		name  string
		score int
		want  model.ModerationStatus
	}{
		{name: "zero", score: 0, want: model.StatusPublished},
		{name: "just below hold", score: 49, want: model.StatusPublished},
		{name: "hold boundary is inclusive", score: 50, want: model.StatusHeldForReview},
		{name: "mid band", score: 69, want: model.StatusHeldForReview},
		{name: "reject boundary is inclusive", score: 70, want: model.StatusRejected},
		{name: "maximum", score: 100, want: model.StatusRejected},
	}

	p := newTestPipeline(NewMockStorage(), NewMockClassifier(), NewMockGateway())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, p.decide(tt.score))
		})
	}
}

func TestProcessBatchSkipsSeenComments(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{rawComment("a", "v1", "hello")}

	p := newTestPipeline(storage, classifier, gateway)

	first := p.ProcessBatch(context.Background())
	assert.Equal(t, 1, first.ProcessedCount)

	second := p.ProcessBatch(context.Background())
	assert.Equal(t, 0, second.ProcessedCount, "a seen comment is skipped silently")
	assert.Empty(t, second.Errors)
	assert.Len(t, classifier.AnalyzeCalls(), 1, "skipping must not spend classification budget")

	stats, err := storage.GetDailyStats(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.TotalProcessed, "the second batch adds nothing")
}

func TestProcessBatchIsolatesCommentFailures(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{
		rawComment("a", "v1", "fails"),
		rawComment("b", "v1", "fine"),
	}
	classifier.Errors["fails"] = errors.New("model unavailable")

	result := newTestPipeline(storage, classifier, gateway).ProcessBatch(context.Background())

	assert.Equal(t, 1, result.ProcessedCount, "the healthy comment still processes")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "error processing comment a")

	assert.Nil(t, storage.SavedComment("a"), "a failed comment leaves no record")
	assert.NotNil(t, storage.SavedComment("b"))
}

func TestProcessBatchModerationFailureLeavesNoRecord(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{rawComment("a", "v1", "toxic text")}
	classifier.Verdicts["toxic text"] = verdict(90, model.CategoryToxic)
	gateway.ModerationErr = errors.New("youtube 503")

	result := newTestPipeline(storage, classifier, gateway).ProcessBatch(context.Background())

	assert.Equal(t, 0, result.ProcessedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "error processing comment a")
	// No record means the next batch retries this comment from scratch.
	assert.Nil(t, storage.SavedComment("a"))
}

func TestProcessBatchTopLevelFetchFailure(t *testing.T) {
	gateway := NewMockGateway()
	gateway.ListVideosErr = errors.New("quota exceeded")

	result := newTestPipeline(NewMockStorage(), NewMockClassifier(), gateway).ProcessBatch(context.Background())

	assert.Equal(t, 0, result.ProcessedCount)
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to list videos")
}

func TestProcessBatchStatsFailureKeepsResult(t *testing.T) {
	storage := NewMockStorage()
	storage.IncrementErr = errors.New("disk full")
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{rawComment("a", "v1", "hello")}

	result := newTestPipeline(storage, classifier, gateway).ProcessBatch(context.Background())

	assert.Equal(t, 1, result.ProcessedCount, "per-comment records survive an aggregate failure")
	require.Len(t, result.Errors, 1)
	assert.Contains(t, result.Errors[0], "failed to update statistics")
	assert.NotNil(t, storage.SavedComment("a"))
}

func TestProcessBatchHeldComment(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{rawComment("a", "v1", "borderline")}
	classifier.Verdicts["borderline"] = verdict(55, model.CategoryComplaint)

	result := newTestPipeline(storage, classifier, gateway).ProcessBatch(context.Background())

	assert.Equal(t, 1, result.ProcessedCount)
	assert.Equal(t, 0, result.HiddenCount)
	assert.Equal(t, 1, result.HeldCount)

	calls := gateway.ModerationCalls()
	require.Len(t, calls, 1)
	assert.Equal(t, model.StatusHeldForReview, calls[0].Status)

	stats, err := storage.GetDailyStats(context.Background(), "2025-06-01")
	require.NoError(t, err)
	assert.Equal(t, int64(1), stats.BlockedCount, "held counts as blocked in the aggregate")
}

func TestProcessBatchBanAuthorsOnlyOnReject(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{
		rawComment("a", "v1", "abusive"),
		rawComment("b", "v1", "borderline"),
	}
	classifier.Verdicts["abusive"] = verdict(95, model.CategoryToxic)
	classifier.Verdicts["borderline"] = verdict(55, model.CategoryComplaint)

	cfg := DefaultConfig()
	cfg.BanAuthors = true
	p := New(storage, classifier, gateway, cfg)
	p.now = func() time.Time { return time.Date(2025, 6, 1, 15, 0, 0, 0, time.UTC) }

	p.ProcessBatch(context.Background())

	calls := gateway.ModerationCalls()
	require.Len(t, calls, 2)
	for _, call := range calls {
		if call.Status == model.StatusRejected {
			assert.True(t, call.BanAuthor)
		} else {
			assert.False(t, call.BanAuthor, "held comments never ban the author")
		}
	}
}

func TestProcessBatchNeedsReplyFromCategory(t *testing.T) {
	storage := NewMockStorage()
	classifier := NewMockClassifier()
	gateway := NewMockGateway()

	gateway.Videos = []model.VideoInfo{{VideoID: "v1"}}
	gateway.Comments["v1"] = []model.RawComment{rawComment("a", "v1", "how did you do that?")}
	classifier.Verdicts["how did you do that?"] = verdict(5, model.CategoryQuestion)

	newTestPipeline(storage, classifier, gateway).ProcessBatch(context.Background())

	saved := storage.SavedComment("a")
	require.NotNil(t, saved)
	assert.True(t, saved.NeedsReply)
	assert.Equal(t, model.StatusPublished, saved.ModerationStatus)
}
