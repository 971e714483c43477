package engine

import (
	"context"
	"fmt"
	"sync"

	"github.com/ykihara/commentguard/internal/common"
	"github.com/ykihara/commentguard/internal/model"
)

// MockClassifier is a test implementation of the Classifier interface. It
// returns scripted verdicts keyed by comment text.
type MockClassifier struct {
	Verdicts map[string]model.Verdict
	Errors   map[string]error
	Replies  map[string]string

	mu    sync.Mutex
	calls []string
}

// NewMockClassifier creates a new mock classifier.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		Verdicts: make(map[string]model.Verdict),
		Errors:   make(map[string]error),
		Replies:  make(map[string]string),
	}
}

// Analyze returns the scripted verdict for the text, or a benign default.
func (m *MockClassifier) Analyze(_ context.Context, text string) (model.Verdict, error) {
	m.mu.Lock()
	m.calls = append(m.calls, text)
	m.mu.Unlock()

	if err, ok := m.Errors[text]; ok {
		return model.Verdict{}, err
	}
	if verdict, ok := m.Verdicts[text]; ok {
		return verdict, nil
	}
	return model.Verdict{
		ToxicityScore: 10,
		Category:      model.CategoryPositive,
		Reason:        "mock default",
		MildText:      text,
	}, nil
}

// SuggestReply returns the scripted reply, empty for toxic.
func (m *MockClassifier) SuggestReply(_ context.Context, text string, category model.Category) (string, error) {
	if category == model.CategoryToxic {
		return "", nil
	}
	if reply, ok := m.Replies[text]; ok {
		return reply, nil
	}
	return "Thanks for the comment!", nil
}

// AnalyzeCalls returns the texts analyzed so far.
func (m *MockClassifier) AnalyzeCalls() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.calls...)
}

// ModerationCall records one SetModerationStatus invocation.
type ModerationCall struct {
	IDs       []string
	Status    model.ModerationStatus
	BanAuthor bool
}

// MockGateway is a test implementation of the CommentGateway interface.
type MockGateway struct {
	Videos   []model.VideoInfo
	Comments map[string][]model.RawComment // keyed by video ID

	ListVideosErr   error
	ListCommentsErr map[string]error
	ModerationErr   error
	PostReplyErr    error

	mu              sync.Mutex
	moderationCalls []ModerationCall
	replies         []model.PostedReply
}

// NewMockGateway creates a new mock gateway.
func NewMockGateway() *MockGateway {
	return &MockGateway{
		Comments:        make(map[string][]model.RawComment),
		ListCommentsErr: make(map[string]error),
	}
}

// ListRecentVideos returns the scripted videos.
func (m *MockGateway) ListRecentVideos(_ context.Context, limit int64) ([]model.VideoInfo, error) {
	if m.ListVideosErr != nil {
		return nil, m.ListVideosErr
	}
	if int64(len(m.Videos)) > limit {
		return m.Videos[:limit], nil
	}
	return m.Videos, nil
}

// ListCommentThreads returns the scripted comments for a video.
func (m *MockGateway) ListCommentThreads(_ context.Context, videoID string, limit int64) ([]model.RawComment, error) {
	if err := m.ListCommentsErr[videoID]; err != nil {
		return nil, err
	}
	comments := m.Comments[videoID]
	if int64(len(comments)) > limit {
		return comments[:limit], nil
	}
	return comments, nil
}

// SetModerationStatus records the call.
func (m *MockGateway) SetModerationStatus(_ context.Context, ids []string, status model.ModerationStatus, banAuthor bool) error {
	if m.ModerationErr != nil {
		return m.ModerationErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.moderationCalls = append(m.moderationCalls, ModerationCall{
		IDs:       append([]string(nil), ids...),
		Status:    status,
		BanAuthor: banAuthor,
	})
	return nil
}

// PostReply records the reply and returns an acknowledgment.
func (m *MockGateway) PostReply(_ context.Context, parentID, text string) (*model.PostedReply, error) {
	if m.PostReplyErr != nil {
		return nil, m.PostReplyErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	reply := model.PostedReply{ID: fmt.Sprintf("reply-%d", len(m.replies)+1), Text: text}
	m.replies = append(m.replies, reply)
	return &reply, nil
}

// ModerationCalls returns the recorded moderation calls.
func (m *MockGateway) ModerationCalls() []ModerationCall {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]ModerationCall(nil), m.moderationCalls...)
}

// Replies returns the recorded replies.
func (m *MockGateway) Replies() []model.PostedReply {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.PostedReply(nil), m.replies...)
}

// MockStorage is an in-memory implementation of the Storage interface for
// tests that don't need SQLite.
type MockStorage struct {
	SaveErr      error
	IncrementErr error

	mu          sync.Mutex
	comments    map[string]*model.Comment
	stats       map[string]*model.DailyStats
	credentials map[string]string
}

// NewMockStorage creates an empty in-memory storage.
func NewMockStorage() *MockStorage {
	return &MockStorage{
		comments:    make(map[string]*model.Comment),
		stats:       make(map[string]*model.DailyStats),
		credentials: make(map[string]string),
	}
}

// CommentExists reports whether the comment was saved.
func (m *MockStorage) CommentExists(_ context.Context, commentID string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	_, ok := m.comments[commentID]
	return ok, nil
}

// SaveComment upserts the comment.
func (m *MockStorage) SaveComment(_ context.Context, comment *model.Comment) error {
	if m.SaveErr != nil {
		return m.SaveErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	clone := *comment
	m.comments[comment.ID] = &clone
	return nil
}

// GetComment returns the comment or common.ErrNotFound.
func (m *MockStorage) GetComment(_ context.Context, commentID string) (*model.Comment, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok {
		return nil, fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
	}
	clone := *c
	return &clone, nil
}

// MarkReplied clears needs_reply, or returns common.ErrNotFound.
func (m *MockStorage) MarkReplied(_ context.Context, commentID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c, ok := m.comments[commentID]
	if !ok {
		return fmt.Errorf("comment %s: %w", commentID, common.ErrNotFound)
	}
	c.NeedsReply = false
	return nil
}

// GetCommentsByCategory returns summaries for the category; toxic reads fail.
func (m *MockStorage) GetCommentsByCategory(_ context.Context, category model.Category, _ int) ([]model.CommentSummary, error) {
	if category == model.CategoryToxic {
		return nil, fmt.Errorf("toxic comments are not viewable: %w", common.ErrNotFound)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	var summaries []model.CommentSummary
	for _, c := range m.comments {
		if c.Category == category {
			summaries = append(summaries, c.Summary())
		}
	}
	return summaries, nil
}

// IncrementDailyStats adds the delta to the date's counters.
func (m *MockStorage) IncrementDailyStats(_ context.Context, date string, delta model.StatsDelta) error {
	if m.IncrementErr != nil {
		return m.IncrementErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	s, ok := m.stats[date]
	if !ok {
		s = &model.DailyStats{Date: date}
		m.stats[date] = s
	}
	s.PositiveCount += delta.Positive
	s.QuestionCount += delta.Question
	s.ConstructiveCount += delta.Constructive
	s.BlockedCount += delta.Blocked
	s.TotalProcessed += delta.Processed
	return nil
}

// GetDailyStats returns the counters for a date, zeroes if absent.
func (m *MockStorage) GetDailyStats(_ context.Context, date string) (*model.DailyStats, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.stats[date]; ok {
		clone := *s
		return &clone, nil
	}
	return &model.DailyStats{Date: date}, nil
}

// SaveCredentials stores credentials in memory.
func (m *MockStorage) SaveCredentials(_ context.Context, userID string, credentialsJSON string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.credentials[userID] = credentialsJSON
	return nil
}

// GetCredentials returns stored credentials or common.ErrNotFound.
func (m *MockStorage) GetCredentials(_ context.Context, userID string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	creds, ok := m.credentials[userID]
	if !ok {
		return "", fmt.Errorf("credentials for %s: %w", userID, common.ErrNotFound)
	}
	return creds, nil
}

// GetLatestCredentials returns any stored credentials or common.ErrNotFound.
func (m *MockStorage) GetLatestCredentials(_ context.Context) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, creds := range m.credentials {
		return creds, nil
	}
	return "", fmt.Errorf("no stored credentials: %w", common.ErrNotFound)
}

// SavedComment returns the stored comment without the not-found wrapping.
func (m *MockStorage) SavedComment(commentID string) *model.Comment {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.comments[commentID]
}

// Migrate is a no-op for the in-memory mock.
func (m *MockStorage) Migrate(_ context.Context) error { return nil }

// Close is a no-op for the in-memory mock.
func (m *MockStorage) Close() error { return nil }
