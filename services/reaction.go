package services

import (
	"database/sql"
	"fmt"
	"time"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

// ReactionState is the per user-and-target state: no reaction, liked, or
// disliked.
type ReactionState int

const (
	StateNone ReactionState = iota
	StateLiked
	StateDisliked
)

func (s ReactionState) String() string {
	switch s {
	case StateLiked:
		return "liked"
	case StateDisliked:
		return "disliked"
	default:
		return "none"
	}
}

// Type returns the reaction type corresponding to the state, or nil for
// StateNone. This is the shape handlers serialize as user_reaction_type.
func (s ReactionState) Type() *models.ReactionType {
	switch s {
	case StateLiked:
		t := models.ReactionLike
		return &t
	case StateDisliked:
		t := models.ReactionDislike
		return &t
	default:
		return nil
	}
}

func stateForType(t models.ReactionType) ReactionState {
	if t == models.ReactionDislike {
		return StateDisliked
	}
	return StateLiked
}

// ReactionOp is the row mutation a transition maps to.
type ReactionOp int

const (
	OpNone ReactionOp = iota
	OpInsert
	OpDelete
	OpUpdate
)

// Transition maps a user's toggle request onto the next state and the row
// operation that realizes it:
//
//	none     + like/dislike -> liked/disliked  (insert)
//	liked    + like         -> none            (delete)
//	disliked + dislike      -> none            (delete)
//	liked    + dislike      -> disliked        (update in place)
//	disliked + like         -> liked           (update in place)
//
// It is a pure function; callers own persistence and the expiry side effect.
func Transition(current ReactionState, requested models.ReactionType) (ReactionState, ReactionOp, error) {
	if !requested.Valid() {
		return current, OpNone, fmt.Errorf("%w: reaction_type must be %q or %q",
			ErrValidation, models.ReactionLike, models.ReactionDislike)
	}

	next := stateForType(requested)
	switch {
	case current == StateNone:
		return next, OpInsert, nil
	case current == next:
		return StateNone, OpDelete, nil
	default:
		return next, OpUpdate, nil
	}
}

// ToggleResult describes the outcome of a reaction toggle.
type ToggleResult struct {
	State ReactionState
	Op    ReactionOp
	// ExpiresAt is the post's expiration after any adjustment; nil for
	// comments and for posts without a flame timer.
	ExpiresAt *time.Time
}

// TogglePostReaction applies one toggle from userID on postID inside a single
// transaction: existence check, current-state read, row mutation, and the
// flame-timer adjustment. The post row is locked for the duration so the
// read-adjust-write on expires_at cannot interleave; the partial unique index
// on (user_id, post_id) backstops races that slip past the state read.
func TogglePostReaction(db *sql.DB, userID, postID int, requested models.ReactionType) (*ToggleResult, error) {
	if !requested.Valid() {
		return nil, fmt.Errorf("%w: reaction_type must be %q or %q",
			ErrValidation, models.ReactionLike, models.ReactionDislike)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var expiresAt sql.NullTime
	err = tx.QueryRow(`SELECT expires_at FROM posts WHERE id = $1 FOR UPDATE`, postID).
		Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	} else if err != nil {
		return nil, err
	}

	current, err := currentState(tx, "post_id", userID, postID)
	if err != nil {
		return nil, err
	}

	next, op, err := Transition(current, requested)
	if err != nil {
		return nil, err
	}

	if err := applyOp(tx, "post_id", op, userID, postID, requested); err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: reaction already exists", ErrConflict)
		}
		return nil, err
	}

	result := &ToggleResult{State: next, Op: op}

	if expiresAt.Valid {
		if delta := ExpiryDelta(current, next); delta != 0 {
			adjusted := AdjustExpiry(expiresAt.Time, delta, time.Now())
			if _, err := tx.Exec(`UPDATE posts SET expires_at = $1 WHERE id = $2`,
				adjusted, postID); err != nil {
				return nil, err
			}
			expiresAt.Time = adjusted
		}
		result.ExpiresAt = &expiresAt.Time
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// ToggleCommentReaction is the comment counterpart: same state machine, no
// expiration side effect.
func ToggleCommentReaction(db *sql.DB, userID, commentID int, requested models.ReactionType) (*ToggleResult, error) {
	if !requested.Valid() {
		return nil, fmt.Errorf("%w: reaction_type must be %q or %q",
			ErrValidation, models.ReactionLike, models.ReactionDislike)
	}

	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, commentID).
		Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}

	current, err := currentState(tx, "comment_id", userID, commentID)
	if err != nil {
		return nil, err
	}

	next, op, err := Transition(current, requested)
	if err != nil {
		return nil, err
	}

	if err := applyOp(tx, "comment_id", op, userID, commentID, requested); err != nil {
		if IsUniqueViolation(err) {
			return nil, fmt.Errorf("%w: reaction already exists", ErrConflict)
		}
		return nil, err
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return &ToggleResult{State: next, Op: op}, nil
}

// RemovePostReaction deletes the caller's reaction on a post, reversing its
// expiry shift. Removing a nonexistent reaction is a no-op, not an error.
func RemovePostReaction(db *sql.DB, userID, postID int) (*ToggleResult, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var expiresAt sql.NullTime
	err = tx.QueryRow(`SELECT expires_at FROM posts WHERE id = $1 FOR UPDATE`, postID).
		Scan(&expiresAt)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("%w: post %d", ErrNotFound, postID)
	} else if err != nil {
		return nil, err
	}

	current, err := currentState(tx, "post_id", userID, postID)
	if err != nil {
		return nil, err
	}

	result := &ToggleResult{State: StateNone, Op: OpNone}
	if expiresAt.Valid {
		result.ExpiresAt = &expiresAt.Time
	}

	if current == StateNone {
		return result, tx.Commit()
	}

	if err := applyOp(tx, "post_id", OpDelete, userID, postID, ""); err != nil {
		return nil, err
	}
	result.Op = OpDelete

	if expiresAt.Valid {
		if delta := ExpiryDelta(current, StateNone); delta != 0 {
			adjusted := AdjustExpiry(expiresAt.Time, delta, time.Now())
			if _, err := tx.Exec(`UPDATE posts SET expires_at = $1 WHERE id = $2`,
				adjusted, postID); err != nil {
				return nil, err
			}
			expiresAt.Time = adjusted
			result.ExpiresAt = &expiresAt.Time
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// RemoveCommentReaction deletes the caller's reaction on a comment.
func RemoveCommentReaction(db *sql.DB, userID, commentID int) (*ToggleResult, error) {
	tx, err := db.Begin()
	if err != nil {
		return nil, err
	}
	defer tx.Rollback()

	var exists bool
	err = tx.QueryRow(`SELECT EXISTS (SELECT 1 FROM comments WHERE id = $1)`, commentID).
		Scan(&exists)
	if err != nil {
		return nil, err
	}
	if !exists {
		return nil, fmt.Errorf("%w: comment %d", ErrNotFound, commentID)
	}

	current, err := currentState(tx, "comment_id", userID, commentID)
	if err != nil {
		return nil, err
	}

	result := &ToggleResult{State: StateNone, Op: OpNone}
	if current == StateNone {
		return result, tx.Commit()
	}

	if err := applyOp(tx, "comment_id", OpDelete, userID, commentID, ""); err != nil {
		return nil, err
	}
	result.Op = OpDelete

	if err := tx.Commit(); err != nil {
		return nil, err
	}
	return result, nil
}

// currentState reads the caller's existing reaction on a target, if any.
// column is one of the two target columns, never user input.
func currentState(tx *sql.Tx, column string, userID, targetID int) (ReactionState, error) {
	var existing models.ReactionType
	err := tx.QueryRow(
		`SELECT reaction_type FROM reactions WHERE user_id = $1 AND `+column+` = $2`,
		userID, targetID).Scan(&existing)
	if err == sql.ErrNoRows {
		return StateNone, nil
	} else if err != nil {
		return StateNone, err
	}
	return stateForType(existing), nil
}

func applyOp(tx *sql.Tx, column string, op ReactionOp, userID, targetID int, requested models.ReactionType) error {
	var err error
	switch op {
	case OpInsert:
		_, err = tx.Exec(
			`INSERT INTO reactions (user_id, `+column+`, reaction_type) VALUES ($1, $2, $3)`,
			userID, targetID, requested)
	case OpDelete:
		_, err = tx.Exec(
			`DELETE FROM reactions WHERE user_id = $1 AND `+column+` = $2`,
			userID, targetID)
	case OpUpdate:
		_, err = tx.Exec(
			`UPDATE reactions SET reaction_type = $3 WHERE user_id = $1 AND `+column+` = $2`,
			userID, targetID, requested)
	}
	return err
}
