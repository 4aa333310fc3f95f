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

const maxCommentLength = 500

// GetPostComments lists a post's comments oldest first, flat. Threading is
// reconstructed client-side from parent_comment_id. Reaction metadata is
// batched and degrades to zero counts on failure.
func GetPostComments(db *sql.DB) http.HandlerFunc {
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
			log.Println("GetPostComments error:", err)
			return
		}
		if !exists {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}

		rows, err := db.Query(`
			SELECT c.id, c.post_id, c.author_id, c.content_text, c.parent_comment_id,
			       c.created_at, u.username, u.display_name, u.avatar_url
			FROM comments c
			JOIN users u ON c.author_id = u.id
			WHERE c.post_id = $1
			ORDER BY c.created_at ASC`,
			postID)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to fetch comments")
			log.Println("GetPostComments query error:", err)
			return
		}
		defer rows.Close()

		comments := []models.CommentWithMetadata{}
		for rows.Next() {
			var c models.CommentWithMetadata
			var avatar sql.NullString
			if err := rows.Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ContentText,
				&c.ParentCommentID, &c.CreatedAt,
				&c.Username, &c.DisplayName, &avatar); err != nil {
				respondError(w, http.StatusInternalServerError, "error scanning comments")
				log.Println("GetPostComments scan error:", err)
				return
			}
			c.AvatarURL = avatar.String
			comments = append(comments, c)
		}
		if err := rows.Err(); err != nil {
			respondError(w, http.StatusInternalServerError, "error iterating comments")
			log.Println("GetPostComments rows error:", err)
			return
		}

		ids := make([]int, len(comments))
		for i := range comments {
			ids[i] = comments[i].ID
		}

		metadata := services.FetchBatchCommentMetadata(db, ids, callerID(r))
		for i := range comments {
			meta := metadata[comments[i].ID]
			comments[i].ReactionCounts = meta.Counts
			comments[i].UserReaction = meta.UserReaction
		}

		respondJSON(w, http.StatusOK, comments)
	}
}

// CreateComment adds a comment, optionally as a reply. A reply's parent must
// exist and belong to the same post; a cross-post parent is a validation
// error and nothing is inserted.
func CreateComment(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var req struct {
			ContentText     string `json:"content_text"`
			ParentCommentID *int   `json:"parent_comment_id"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.ContentText == "" {
			respondError(w, http.StatusBadRequest, "content_text is required")
			return
		}
		if len(req.ContentText) > maxCommentLength {
			respondError(w, http.StatusBadRequest, "content_text must be at most 500 characters")
			return
		}

		var exists bool
		err = db.QueryRow(`SELECT EXISTS (SELECT 1 FROM posts WHERE id = $1)`, postID).
			Scan(&exists)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("CreateComment error:", err)
			return
		}
		if !exists {
			respondError(w, http.StatusNotFound, "post not found")
			return
		}

		if req.ParentCommentID != nil {
			var parentPostID int
			err = db.QueryRow(`SELECT post_id FROM comments WHERE id = $1`, *req.ParentCommentID).
				Scan(&parentPostID)
			if err == sql.ErrNoRows {
				respondError(w, http.StatusBadRequest, "parent comment does not exist")
				return
			} else if err != nil {
				respondError(w, http.StatusInternalServerError, "database query failed")
				log.Println("CreateComment parent check error:", err)
				return
			}
			if parentPostID != postID {
				respondError(w, http.StatusBadRequest, "parent comment belongs to a different post")
				return
			}
		}

		var c models.Comment
		err = db.QueryRow(`
			INSERT INTO comments (post_id, author_id, content_text, parent_comment_id)
			VALUES ($1, $2, $3, $4)
			RETURNING id, post_id, author_id, content_text, parent_comment_id, created_at`,
			postID, caller.UserID, req.ContentText, req.ParentCommentID,
		).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ContentText, &c.ParentCommentID, &c.CreatedAt)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create comment")
			log.Println("CreateComment insert error:", err)
			return
		}

		if c.ParentCommentID != nil {
			go services.NotifyCommentReply(db, *c.ParentCommentID, caller.UserID, c.ContentText)
		} else {
			go services.NotifyPostComment(db, postID, caller.UserID, c.ContentText)
		}

		respondJSON(w, http.StatusCreated, c)
	}
}

func UpdateComment(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		commentID, err := strconv.Atoi(vars["commentId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid comment ID")
			return
		}

		var req struct {
			ContentText string `json:"content_text"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.ContentText == "" || len(req.ContentText) > maxCommentLength {
			respondError(w, http.StatusBadRequest, "content_text must be 1-500 characters")
			return
		}

		var authorID int
		err = db.QueryRow(`SELECT author_id FROM comments WHERE id = $1`, commentID).
			Scan(&authorID)
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "comment not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("UpdateComment error:", err)
			return
		}
		if authorID != caller.UserID {
			respondError(w, http.StatusForbidden, "you can only edit your own comments")
			return
		}

		var c models.Comment
		err = db.QueryRow(`
			UPDATE comments SET content_text = $2 WHERE id = $1
			RETURNING id, post_id, author_id, content_text, parent_comment_id, created_at`,
			commentID, req.ContentText,
		).Scan(&c.ID, &c.PostID, &c.AuthorID, &c.ContentText, &c.ParentCommentID, &c.CreatedAt)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update comment")
			log.Println("UpdateComment exec error:", err)
			return
		}

		respondJSON(w, http.StatusOK, c)
	}
}

func DeleteComment(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		commentID, err := strconv.Atoi(vars["commentId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid comment ID")
			return
		}

		var authorID int
		err = db.QueryRow(`SELECT author_id FROM comments WHERE id = $1`, commentID).
			Scan(&authorID)
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "comment not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("DeleteComment error:", err)
			return
		}
		if authorID != caller.UserID {
			respondError(w, http.StatusForbidden, "you can only delete your own comments")
			return
		}

		if err := deleteCommentSubtree(db, commentID); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to delete comment")
			log.Println("DeleteComment cascade error:", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "comment deleted"})
	}
}

// deleteCommentSubtree removes a comment, every reply below it, and all their
// reactions. The recursive walk means no reply is ever orphaned against a
// deleted parent.
func deleteCommentSubtree(db *sql.DB, commentID int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	const subtree = `
		WITH RECURSIVE subtree AS (
			SELECT id FROM comments WHERE id = $1
			UNION ALL
			SELECT c.id FROM comments c
			JOIN subtree s ON c.parent_comment_id = s.id
		)`

	if _, err := tx.Exec(subtree+
		` DELETE FROM reactions WHERE comment_id IN (SELECT id FROM subtree)`,
		commentID); err != nil {
		return err
	}
	if _, err := tx.Exec(subtree+
		` DELETE FROM comments WHERE id IN (SELECT id FROM subtree)`,
		commentID); err != nil {
		return err
	}

	return tx.Commit()
}
