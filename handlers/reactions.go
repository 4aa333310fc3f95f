package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"

	"github.com/gorilla/mux"

	"github.com/LionTheUnknown/GLIM-sub000/models"
	"github.com/LionTheUnknown/GLIM-sub000/services"
)

// toggleResponse is the wire shape for every reaction mutation: the caller's
// resulting state, fresh counts, and (for posts) the adjusted flame timer.
func toggleResponse(result *services.ToggleResult, meta services.ReactionMetadata) map[string]interface{} {
	return map[string]interface{}{
		"user_reaction_type": result.State.Type(),
		"reaction_counts":    meta.Counts,
		"expires_at":         result.ExpiresAt,
	}
}

// TogglePostReaction runs one like/dislike toggle against a post. A like
// extends the post's flame timer by an hour, a dislike shortens it; see the
// services package for the transition table.
func TogglePostReaction(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var req struct {
			ReactionType models.ReactionType `json:"reaction_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := services.TogglePostReaction(db, caller.UserID, postID, req.ReactionType)
		if err != nil {
			respondServiceError(w, err, "TogglePostReaction")
			return
		}

		if result.Op == services.OpInsert {
			go services.NotifyPostReaction(db, postID, caller.UserID, req.ReactionType)
		}

		meta := services.FetchPostMetadata(db, postID, caller.UserID)
		respondJSON(w, http.StatusOK, toggleResponse(result, meta))
	}
}

// RemovePostReaction explicitly clears the caller's reaction on a post,
// reversing its flame-timer shift. Clearing an absent reaction is a no-op.
func RemovePostReaction(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		result, err := services.RemovePostReaction(db, caller.UserID, postID)
		if err != nil {
			respondServiceError(w, err, "RemovePostReaction")
			return
		}

		meta := services.FetchPostMetadata(db, postID, caller.UserID)
		respondJSON(w, http.StatusOK, toggleResponse(result, meta))
	}
}

// GetPostReactions lists the individual reaction rows on a post.
func GetPostReactions(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}
		listReactions(db, w, "post_id", postID)
	}
}

func ToggleCommentReaction(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		commentID, err := strconv.Atoi(vars["commentId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid comment ID")
			return
		}

		var req struct {
			ReactionType models.ReactionType `json:"reaction_type"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := services.ToggleCommentReaction(db, caller.UserID, commentID, req.ReactionType)
		if err != nil {
			respondServiceError(w, err, "ToggleCommentReaction")
			return
		}

		meta := services.FetchCommentMetadata(db, commentID, caller.UserID)
		respondJSON(w, http.StatusOK, toggleResponse(result, meta))
	}
}

func RemoveCommentReaction(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		commentID, err := strconv.Atoi(vars["commentId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid comment ID")
			return
		}

		result, err := services.RemoveCommentReaction(db, caller.UserID, commentID)
		if err != nil {
			respondServiceError(w, err, "RemoveCommentReaction")
			return
		}

		meta := services.FetchCommentMetadata(db, commentID, caller.UserID)
		respondJSON(w, http.StatusOK, toggleResponse(result, meta))
	}
}

func GetCommentReactions(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		commentID, err := strconv.Atoi(vars["commentId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid comment ID")
			return
		}
		listReactions(db, w, "comment_id", commentID)
	}
}

// listReactions writes the reaction rows for one target. column is a fixed
// identifier chosen by the caller, never user input.
func listReactions(db *sql.DB, w http.ResponseWriter, column string, targetID int) {
	rows, err := db.Query(`
		SELECT r.id, r.user_id, r.post_id, r.comment_id, r.reaction_type, r.created_at,
		       u.username, u.display_name
		FROM reactions r
		JOIN users u ON r.user_id = u.id
		WHERE r.`+column+` = $1
		ORDER BY r.created_at DESC`,
		targetID)
	if err != nil {
		respondError(w, http.StatusInternalServerError, "failed to fetch reactions")
		log.Printf("listReactions query error (%s): %v", column, err)
		return
	}
	defer rows.Close()

	reactions := []models.ReactionWithUser{}
	for rows.Next() {
		var rw models.ReactionWithUser
		if err := rows.Scan(&rw.ID, &rw.UserID, &rw.PostID, &rw.CommentID,
			&rw.ReactionType, &rw.CreatedAt, &rw.Username, &rw.DisplayName); err != nil {
			respondError(w, http.StatusInternalServerError, "error scanning reactions")
			log.Printf("listReactions scan error (%s): %v", column, err)
			return
		}
		reactions = append(reactions, rw)
	}
	if err := rows.Err(); err != nil {
		respondError(w, http.StatusInternalServerError, "error iterating reactions")
		log.Printf("listReactions rows error (%s): %v", column, err)
		return
	}

	respondJSON(w, http.StatusOK, reactions)
}
