package model

import "time"

// ModerationStatus is the visibility state of a comment on YouTube.
type ModerationStatus string

// Moderation statuses, wire-compatible with the YouTube Data API.
const (
	StatusPublished     ModerationStatus = "published"
	StatusHeldForReview ModerationStatus = "heldForReview"
	StatusRejected      ModerationStatus = "rejected"
)

// Verdict is the classifier's structured judgment of a single comment.
type Verdict struct {
	ToxicityScore int      `json:"toxicity_score"`
	Category      Category `json:"category"`
	Reason        string   `json:"reason"`
	MildText      string   `json:"mild_text,omitempty"`
}

// VideoInfo identifies one of the authenticated channel's uploads.
type VideoInfo struct {
	VideoID     string    `json:"video_id"`
	Title       string    `json:"title"`
	PublishedAt time.Time `json:"published_at"`
	Thumbnail   string    `json:"thumbnail,omitempty"`
}

// RawComment is a comment as fetched from YouTube, before analysis.
type RawComment struct {
	ID              string    `json:"id"`
	VideoID         string    `json:"video_id"`
	Text            string    `json:"text"`
	AuthorName      string    `json:"author_name"`
	AuthorChannelID string    `json:"author_channel_id"`
	PublishedAt     time.Time `json:"published_at"`
	LikeCount       int64     `json:"like_count"`
	ReplyCount      int64     `json:"reply_count"`
}

// Comment is a fully processed comment record. Records are created exactly
// once per comment ID and never deleted; the only mutation after creation
// is marking the comment replied.
type Comment struct {
	ID               string           `json:"id"`
	VideoID          string           `json:"video_id"`
	AuthorName       string           `json:"author_name"`
	AuthorChannelID  string           `json:"author_channel_id"`
	OriginalText     string           `json:"original_text"`
	MildText         string           `json:"mild_text"`
	Category         Category         `json:"category"`
	ToxicityScore    int              `json:"toxicity_score"`
	ModerationStatus ModerationStatus `json:"moderation_status"`
	PublishedAt      time.Time        `json:"published_at"`
	AnalyzedAt       time.Time        `json:"analyzed_at"`
	NeedsReply       bool             `json:"needs_reply"`
	RepliedAt        *time.Time       `json:"replied_at,omitempty"`
}

// Summary returns the dashboard-safe view of the comment. The original text
// is never included; only the mild rewrite is exposed.
func (c *Comment) Summary() CommentSummary {
	return CommentSummary{
		ID:          c.ID,
		VideoID:     c.VideoID,
		AuthorName:  c.AuthorName,
		MildText:    c.MildText,
		Category:    c.Category,
		PublishedAt: c.PublishedAt,
		NeedsReply:  c.NeedsReply,
	}
}

// CommentSummary is the sanitized projection of a Comment served to the
// dashboard.
type CommentSummary struct {
	ID          string    `json:"id"`
	VideoID     string    `json:"video_id"`
	AuthorName  string    `json:"author_name"`
	MildText    string    `json:"mild_text"`
	Category    Category  `json:"category"`
	PublishedAt time.Time `json:"published_at"`
	NeedsReply  bool      `json:"needs_reply"`
}

// ReplyRequest is a creator's reply to a recorded comment.
type ReplyRequest struct {
	Text string `json:"text"`
}

// PostedReply is the acknowledgment for a reply posted to YouTube.
type PostedReply struct {
	ID   string `json:"id"`
	Text string `json:"text"`
}
