// Package youtube wraps the YouTube Data API v3 as the comment source and
// moderation sink.
package youtube

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/option"
	youtubeapi "google.golang.org/api/youtube/v3"

	"github.com/ykihara/commentguard/internal/model"
)

// Scopes required for comment moderation on behalf of the channel owner.
var Scopes = []string{
	"openid",
	youtubeapi.YoutubeForceSslScope,
	"https://www.googleapis.com/auth/userinfo.profile",
	"https://www.googleapis.com/auth/userinfo.email",
}

// Client implements the service.CommentGateway interface over the YouTube
// Data API v3.
type Client struct {
	service *youtubeapi.Service
	logger  *slog.Logger
}

// Credentials is the stored OAuth credential shape, JSON-compatible with
// what the auth flow persists.
type Credentials struct {
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
	TokenURI     string `json:"token_uri"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
}

// NewClient creates a YouTube client from stored credentials JSON.
func NewClient(ctx context.Context, credentialsJSON string, logger *slog.Logger) (*Client, error) {
	if credentialsJSON == "" {
		return nil, fmt.Errorf("youtube credentials not configured")
	}

	var creds Credentials
	if err := json.Unmarshal([]byte(credentialsJSON), &creds); err != nil {
		return nil, fmt.Errorf("failed to parse credentials: %w", err)
	}

	conf := &oauth2.Config{
		ClientID:     creds.ClientID,
		ClientSecret: creds.ClientSecret,
		Endpoint:     google.Endpoint,
		Scopes:       Scopes,
	}

	token := &oauth2.Token{
		AccessToken:  creds.Token,
		RefreshToken: creds.RefreshToken,
		// Force the token source to refresh on first use when only a
		// refresh token survived storage.
		Expiry: time.Now().Add(-time.Minute),
	}
	if creds.Token != "" {
		token.Expiry = time.Now().Add(30 * time.Minute)
	}

	service, err := youtubeapi.NewService(ctx, option.WithTokenSource(conf.TokenSource(ctx, token)))
	if err != nil {
		return nil, fmt.Errorf("failed to create youtube service: %w", err)
	}

	return &Client{service: service, logger: logger}, nil
}

// ListRecentVideos returns the authenticated channel's most recent uploads,
// most recent first per the API's own ordering.
func (c *Client) ListRecentVideos(ctx context.Context, limit int64) ([]model.VideoInfo, error) {
	channels, err := c.service.Channels.List([]string{"contentDetails"}).Mine(true).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list channels: %w", err)
	}
	if len(channels.Items) == 0 {
		return nil, nil
	}

	uploadsPlaylistID := channels.Items[0].ContentDetails.RelatedPlaylists.Uploads

	items, err := c.service.PlaylistItems.List([]string{"snippet"}).
		PlaylistId(uploadsPlaylistID).
		MaxResults(limit).
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list uploads: %w", err)
	}

	videos := make([]model.VideoInfo, 0, len(items.Items))
	for _, item := range items.Items {
		snippet := item.Snippet
		if snippet == nil || snippet.ResourceId == nil {
			continue
		}
		published, _ := time.Parse(time.RFC3339, snippet.PublishedAt)
		video := model.VideoInfo{
			VideoID:     snippet.ResourceId.VideoId,
			Title:       snippet.Title,
			PublishedAt: published,
		}
		if snippet.Thumbnails != nil && snippet.Thumbnails.Medium != nil {
			video.Thumbnail = snippet.Thumbnails.Medium.Url
		}
		videos = append(videos, video)
	}

	return videos, nil
}

// ListCommentThreads returns the top-level comments for a video.
func (c *Client) ListCommentThreads(ctx context.Context, videoID string, limit int64) ([]model.RawComment, error) {
	if limit > 100 {
		limit = 100
	}

	response, err := c.service.CommentThreads.List([]string{"snippet"}).
		VideoId(videoID).
		MaxResults(limit).
		TextFormat("plainText").
		Context(ctx).
		Do()
	if err != nil {
		return nil, fmt.Errorf("failed to list comment threads for %s: %w", videoID, err)
	}

	comments := make([]model.RawComment, 0, len(response.Items))
	for _, item := range response.Items {
		if item.Snippet == nil || item.Snippet.TopLevelComment == nil || item.Snippet.TopLevelComment.Snippet == nil {
			continue
		}
		snippet := item.Snippet.TopLevelComment.Snippet
		published, _ := time.Parse(time.RFC3339, snippet.PublishedAt)

		comment := model.RawComment{
			ID:          item.Id,
			VideoID:     videoID,
			Text:        snippet.TextDisplay,
			AuthorName:  snippet.AuthorDisplayName,
			PublishedAt: published,
			LikeCount:   snippet.LikeCount,
			ReplyCount:  item.Snippet.TotalReplyCount,
		}
		if snippet.AuthorChannelId != nil {
			comment.AuthorChannelID = snippet.AuthorChannelId.Value
		}
		comments = append(comments, comment)
	}

	return comments, nil
}

// SetModerationStatus sets the moderation status for a batch of comment
// IDs. The remote call is idempotent: repeating the same id/status pair is
// harmless, which makes re-moderation after a crash safe.
func (c *Client) SetModerationStatus(ctx context.Context, commentIDs []string, status model.ModerationStatus, banAuthor bool) error {
	if len(commentIDs) == 0 {
		return nil
	}

	call := c.service.Comments.SetModerationStatus(commentIDs, string(status)).Context(ctx)
	if banAuthor {
		call = call.BanAuthor(true)
	}
	if err := call.Do(); err != nil {
		return fmt.Errorf("failed to set moderation status %s for %s: %w",
			status, strings.Join(commentIDs, ","), err)
	}

	c.logger.Info("moderation status set",
		"status", status,
		"comment_count", len(commentIDs))
	return nil
}

// PostReply posts a reply to a comment on behalf of the channel owner.
func (c *Client) PostReply(ctx context.Context, parentID, text string) (*model.PostedReply, error) {
	comment := &youtubeapi.Comment{
		Snippet: &youtubeapi.CommentSnippet{
			ParentId:     parentID,
			TextOriginal: text,
		},
	}

	response, err := c.service.Comments.Insert([]string{"snippet"}, comment).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to post reply to %s: %w", parentID, err)
	}

	posted := &model.PostedReply{ID: response.Id}
	if response.Snippet != nil {
		posted.Text = response.Snippet.TextDisplay
	}
	return posted, nil
}
