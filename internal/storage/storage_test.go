package storage

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/ykihara/commentguard/internal/common"
	"github.com/ykihara/commentguard/internal/model"
)

// Helper function to create test storage.
func createTestStorage(t *testing.T) (*SQLiteStorage, func()) {
	t.Helper()
	tmpDir := t.TempDir()
	dbPath := filepath.Join(tmpDir, "test.db")

	store, err := NewSQLiteStorage(dbPath)
	if err != nil {
		t.Fatalf("Failed to create storage: %v", err)
	}

	ctx := context.Background()
	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		t.Fatalf("Failed to migrate: %v", err)
	}

	return store, func() { _ = store.Close() }
}

func testComment(id string, category model.Category) *model.Comment {
	return &model.Comment{
		ID:               id,
		VideoID:          "video-1",
		AuthorName:       "Viewer",
		AuthorChannelID:  "channel-" + id,
		OriginalText:     "original text for " + id,
		MildText:         "mild text for " + id,
		Category:         category,
		ToxicityScore:    25,
		ModerationStatus: model.StatusPublished,
		PublishedAt:      time.Date(2025, 6, 1, 10, 0, 0, 0, time.UTC),
		AnalyzedAt:       time.Date(2025, 6, 1, 10, 5, 0, 0, time.UTC),
		NeedsReply:       category.NeedsReply(),
	}
}

func TestSaveAndGetComment(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	want := testComment("c1", model.CategoryQuestion)
	if err := store.SaveComment(ctx, want); err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}

	got, err := store.GetComment(ctx, "c1")
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}

	if got.ID != want.ID || got.VideoID != want.VideoID {
		t.Errorf("identity mismatch: got %s/%s", got.ID, got.VideoID)
	}
	if got.Category != model.CategoryQuestion {
		t.Errorf("category = %q, want question", got.Category)
	}
	if got.ToxicityScore != 25 {
		t.Errorf("toxicity score = %d, want 25", got.ToxicityScore)
	}
	if !got.NeedsReply {
		t.Error("question comment should need a reply")
	}
	if got.RepliedAt != nil {
		t.Error("fresh comment should have no reply timestamp")
	}
	if !got.PublishedAt.Equal(want.PublishedAt) {
		t.Errorf("published at = %v, want %v", got.PublishedAt, want.PublishedAt)
	}
}

func TestGetCommentNotFound(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetComment(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestCommentExists(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	exists, err := store.CommentExists(ctx, "c1")
	if err != nil {
		t.Fatalf("CommentExists failed: %v", err)
	}
	if exists {
		t.Error("comment should not exist before save")
	}

	if err := store.SaveComment(ctx, testComment("c1", model.CategoryPositive)); err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}

	exists, err = store.CommentExists(ctx, "c1")
	if err != nil {
		t.Fatalf("CommentExists failed: %v", err)
	}
	if !exists {
		t.Error("comment should exist after save")
	}
}

func TestMarkReplied(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.SaveComment(ctx, testComment("c1", model.CategoryQuestion)); err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}

	if err := store.MarkReplied(ctx, "c1"); err != nil {
		t.Fatalf("MarkReplied failed: %v", err)
	}

	got, err := store.GetComment(ctx, "c1")
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if got.NeedsReply {
		t.Error("needs_reply should be cleared after MarkReplied")
	}
	if got.RepliedAt == nil {
		t.Error("replied_at should be stamped after MarkReplied")
	}
}

func TestMarkRepliedUnknownID(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	err := store.MarkReplied(context.Background(), "missing")
	if !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestSaveCommentUpsertPreservesRepliedAt(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	comment := testComment("c1", model.CategoryQuestion)
	if err := store.SaveComment(ctx, comment); err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}
	if err := store.MarkReplied(ctx, "c1"); err != nil {
		t.Fatalf("MarkReplied failed: %v", err)
	}

	// A racing batch re-saves the same verdict; the reply stamp survives.
	if err := store.SaveComment(ctx, comment); err != nil {
		t.Fatalf("re-save failed: %v", err)
	}

	got, err := store.GetComment(ctx, "c1")
	if err != nil {
		t.Fatalf("GetComment failed: %v", err)
	}
	if got.RepliedAt == nil {
		t.Error("replied_at should survive an upsert")
	}
}

func TestGetCommentsByCategory(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	for i, id := range []string{"old", "mid", "new"} {
		c := testComment(id, model.CategoryPositive)
		c.PublishedAt = time.Date(2025, 6, 1+i, 0, 0, 0, 0, time.UTC)
		if err := store.SaveComment(ctx, c); err != nil {
			t.Fatalf("SaveComment failed: %v", err)
		}
	}
	if err := store.SaveComment(ctx, testComment("q1", model.CategoryQuestion)); err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}

	summaries, err := store.GetCommentsByCategory(ctx, model.CategoryPositive, 10)
	if err != nil {
		t.Fatalf("GetCommentsByCategory failed: %v", err)
	}
	if len(summaries) != 3 {
		t.Fatalf("got %d summaries, want 3", len(summaries))
	}
	if summaries[0].ID != "new" {
		t.Errorf("first summary = %s, want most recent", summaries[0].ID)
	}

	limited, err := store.GetCommentsByCategory(ctx, model.CategoryPositive, 2)
	if err != nil {
		t.Fatalf("GetCommentsByCategory failed: %v", err)
	}
	if len(limited) != 2 {
		t.Errorf("got %d summaries with limit 2", len(limited))
	}
}

func TestGetCommentsByCategoryRejectsToxic(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()

	_, err := store.GetCommentsByCategory(context.Background(), model.CategoryToxic, 10)
	if err == nil {
		t.Fatal("toxic category read should be rejected")
	}
}

func TestSummariesNeverCarryOriginalText(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	c := testComment("c1", model.CategoryComplaint)
	c.OriginalText = "SECRET RAW ABUSE"
	c.MildText = "negative feedback about pacing"
	if err := store.SaveComment(ctx, c); err != nil {
		t.Fatalf("SaveComment failed: %v", err)
	}

	summaries, err := store.GetCommentsByCategory(ctx, model.CategoryComplaint, 10)
	if err != nil {
		t.Fatalf("GetCommentsByCategory failed: %v", err)
	}
	for _, sm := range summaries {
		if strings.Contains(sm.MildText, "SECRET") {
			t.Error("summary leaked original text")
		}
	}
}

func TestIncrementDailyStats(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	delta := model.StatsDelta{Blocked: 1, Processed: 2}
	if err := store.IncrementDailyStats(ctx, "2025-06-01", delta); err != nil {
		t.Fatalf("IncrementDailyStats failed: %v", err)
	}
	if err := store.IncrementDailyStats(ctx, "2025-06-01", delta); err != nil {
		t.Fatalf("IncrementDailyStats failed: %v", err)
	}

	stats, err := store.GetDailyStats(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stats.BlockedCount != 2 || stats.TotalProcessed != 4 {
		t.Errorf("stats = blocked %d processed %d, want 2/4", stats.BlockedCount, stats.TotalProcessed)
	}

	// Another date is untouched.
	other, err := store.GetDailyStats(ctx, "2025-06-02")
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if other.TotalProcessed != 0 {
		t.Errorf("other date processed = %d, want 0", other.TotalProcessed)
	}
}

func TestIncrementDailyStatsConcurrent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	const workers = 10
	const perWorker = 20

	var wg sync.WaitGroup
	for i := 0; i < workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := 0; j < perWorker; j++ {
				if err := store.IncrementDailyStats(ctx, "2025-06-01", model.StatsDelta{Processed: 1}); err != nil {
					t.Errorf("IncrementDailyStats failed: %v", err)
					return
				}
			}
		}()
	}
	wg.Wait()

	stats, err := store.GetDailyStats(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stats.TotalProcessed != workers*perWorker {
		t.Errorf("processed = %d, want %d (lost updates)", stats.TotalProcessed, workers*perWorker)
	}
}

func TestIncrementDailyStatsZeroDeltaIsNoOp(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.IncrementDailyStats(ctx, "2025-06-01", model.StatsDelta{}); err != nil {
		t.Fatalf("IncrementDailyStats failed: %v", err)
	}

	stats, err := store.GetDailyStats(ctx, "2025-06-01")
	if err != nil {
		t.Fatalf("GetDailyStats failed: %v", err)
	}
	if stats.TotalProcessed != 0 {
		t.Errorf("processed = %d, want 0", stats.TotalProcessed)
	}
}

func TestCredentialsRoundTrip(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if _, err := store.GetLatestCredentials(ctx); !errors.Is(err, common.ErrNotFound) {
		t.Errorf("expected ErrNotFound on empty table, got %v", err)
	}

	if err := store.SaveCredentials(ctx, "user-1", `{"token":"abc"}`); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}

	got, err := store.GetCredentials(ctx, "user-1")
	if err != nil {
		t.Fatalf("GetCredentials failed: %v", err)
	}
	if got != `{"token":"abc"}` {
		t.Errorf("credentials = %q", got)
	}

	// Overwrite for the same user.
	if err := store.SaveCredentials(ctx, "user-1", `{"token":"def"}`); err != nil {
		t.Fatalf("SaveCredentials failed: %v", err)
	}
	got, err = store.GetLatestCredentials(ctx)
	if err != nil {
		t.Fatalf("GetLatestCredentials failed: %v", err)
	}
	if got != `{"token":"def"}` {
		t.Errorf("latest credentials = %q", got)
	}
}

func TestMigrateIsIdempotent(t *testing.T) {
	store, cleanup := createTestStorage(t)
	defer cleanup()
	ctx := context.Background()

	if err := store.Migrate(ctx); err != nil {
		t.Fatalf("second Migrate failed: %v", err)
	}

	version, err := store.SchemaVersion(ctx)
	if err != nil {
		t.Fatalf("SchemaVersion failed: %v", err)
	}
	if version != ExpectedSchemaVersion {
		t.Errorf("schema version = %d, want %d", version, ExpectedSchemaVersion)
	}
}
