package models

import "time"

type Post struct {
	ID          int        `json:"id"`
	AuthorID    int        `json:"author_id"`
	ContentText string     `json:"content_text"`
	MediaURL    string     `json:"media_url,omitempty"`
	Pinned      bool       `json:"pinned"`
	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ExpiresAt   *time.Time `json:"expires_at"`
}

type PostWithMetadata struct {
	Post
	Username       string         `json:"username"`
	DisplayName    string         `json:"display_name"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	Categories     []Category     `json:"categories"`
	CommentCount   int            `json:"comment_count"`
	ReactionCounts ReactionCounts `json:"reaction_counts"`
	UserReaction   *ReactionType  `json:"user_reaction_type"`
}
