package models

import "time"

type ReactionType string

const (
	ReactionLike    ReactionType = "like"
	ReactionDislike ReactionType = "dislike"
)

// Valid reports whether t is one of the two supported reaction types.
func (t ReactionType) Valid() bool {
	return t == ReactionLike || t == ReactionDislike
}

// Reaction targets either a post or a comment: exactly one of PostID and
// CommentID is set. At most one row exists per (user, target); changing type
// is an update in place, never a second row.
type Reaction struct {
	ID           int          `json:"id"`
	UserID       int          `json:"user_id"`
	PostID       *int         `json:"post_id,omitempty"`
	CommentID    *int         `json:"comment_id,omitempty"`
	ReactionType ReactionType `json:"reaction_type"`
	CreatedAt    time.Time    `json:"created_at"`
}

type ReactionCounts struct {
	Likes    int `json:"like_count"`
	Dislikes int `json:"dislike_count"`
}

type ReactionWithUser struct {
	Reaction
	Username    string `json:"username"`
	DisplayName string `json:"display_name"`
}
