package models

import "time"

type Comment struct {
	ID              int       `json:"id"`
	PostID          int       `json:"post_id"`
	AuthorID        int       `json:"author_id"`
	ContentText     string    `json:"content_text"`
	ParentCommentID *int      `json:"parent_comment_id"`
	CreatedAt       time.Time `json:"created_at"`
}

type CommentWithMetadata struct {
	Comment
	Username       string         `json:"username"`
	DisplayName    string         `json:"display_name"`
	AvatarURL      string         `json:"avatar_url,omitempty"`
	ReactionCounts ReactionCounts `json:"reaction_counts"`
	UserReaction   *ReactionType  `json:"user_reaction_type"`
}
