package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

const defaultReviveTTL = 24 * time.Hour

// Admin overrides skip the ownership check but keep every existence check and
// the same cascade order as the owner paths.

func AdminDeletePost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var exists bool
		err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID).
			Scan(&exists)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("AdminDeletePost error:", err)
			return
		}
		if !exists {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}

		if err := deletePostCascade(db, postID); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to delete post")
			log.Println("AdminDeletePost cascade error:", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
	}
}

// RevivePost restarts an expired post's flame timer. The body may carry
// ttl_hours; the default window is 24h.
func RevivePost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		ttl := defaultReviveTTL
		var req struct {
			TTLHours *int `json:"ttl_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err == nil && req.TTLHours != nil {
			if *req.TTLHours < 1 || *req.TTLHours > maxTTLHours {
				respondError(w, http.StatusBadRequest, "ttl_hours must be between 1 and 168")
				return
			}
			ttl = time.Duration(*req.TTLHours) * time.Hour
		}

		expiresAt := time.Now().Add(ttl)
		var p models.Post
		var media sql.NullString
		err = db.QueryRow(`
			UPDATE posts SET expires_at = $2, updated_at = NOW() WHERE id = $1
			RETURNING id, author_id, content_text, media_url, pinned, created_at, updated_at, expires_at`,
			postID, expiresAt,
		).Scan(&p.ID, &p.AuthorID, &p.ContentText, &media, &p.Pinned,
			&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt)

		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "post not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to revive post")
			log.Println("RevivePost error:", err)
			return
		}

		p.MediaURL = media.String
		respondJSON(w, http.StatusOK, p)
	}
}

// PinPost sets or clears the pinned flag. Pinned posts stay in listings
// regardless of expiry, but their flame timer keeps running.
func PinPost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var req struct {
			Pinned bool `json:"pinned"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		result, err := db.Exec(`UPDATE posts SET pinned = $2 WHERE id = $1`, postID, req.Pinned)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update post")
			log.Println("PinPost error:", err)
			return
		}
		if affected, _ := result.RowsAffected(); affected == 0 {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}

		respondJSON(w, http.StatusOK, map[string]interface{}{
			"message": "post updated",
			"pinned":  req.Pinned,
		})
	}
}

// AdminDeleteComment removes any comment along with its whole reply subtree.
func AdminDeleteComment(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}
		commentID, err := strconv.Atoi(vars["commentId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid comment ID")
			return
		}

		var commentPostID int
		err = db.QueryRow(`SELECT post_id FROM comments WHERE id = $1`, commentID).
			Scan(&commentPostID)
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "comment not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("AdminDeleteComment error:", err)
			return
		}
		if commentPostID != postID {
			respondError(w, http.StatusNotFound, "comment not found on this post")
			return
		}

		if err := deleteCommentSubtree(db, commentID); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to delete comment")
			log.Println("AdminDeleteComment cascade error:", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
	}
}
