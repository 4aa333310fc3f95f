package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"time"

	"github.com/gorilla/mux"
	"github.com/lib/pq"

	"github.com/LionTheUnknown/GLIM-sub000/models"
	"github.com/LionTheUnknown/GLIM-sub000/services"
)

const (
	maxPostLength = 500
	defaultTTL    = 24 * time.Hour
	maxTTLHours   = 168
	listPageSize  = 100
)

// GetPosts lists current posts, newest first. Expired posts are filtered out
// here; pinned posts are always returned and the client decides how to render
// a pinned-but-expired one. Reaction metadata is attached in a constant
// number of extra queries and degrades to zero counts on aggregator failure.
func GetPosts(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		viewerID := callerID(r)

		query := `
			SELECT p.id, p.author_id, p.content_text, p.media_url, p.pinned,
			       p.created_at, p.updated_at, p.expires_at,
			       u.username, u.display_name, u.avatar_url,
			       COALESCE((SELECT COUNT(*) FROM comments WHERE post_id = p.id), 0) AS comment_count
			FROM posts p
			JOIN users u ON p.author_id = u.id
			WHERE (p.expires_at IS NULL OR p.expires_at > NOW() OR p.pinned)`
		args := []interface{}{}

		if categoryStr := r.URL.Query().Get("category"); categoryStr != "" {
			categoryID, err := strconv.Atoi(categoryStr)
			if err != nil {
				respondError(w, http.StatusBadRequest, "invalid category")
				return
			}
			query += ` AND EXISTS (SELECT 1 FROM post_categories pc
				WHERE pc.post_id = p.id AND pc.category_id = $1)`
			args = append(args, categoryID)
		}

		query += ` ORDER BY p.created_at DESC LIMIT ` + strconv.Itoa(listPageSize)

		rows, err := db.Query(query, args...)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to fetch posts")
			log.Printf("GetPosts query error: %v", err)
			return
		}
		defer rows.Close()

		posts := []models.PostWithMetadata{}
		for rows.Next() {
			var p models.PostWithMetadata
			var media, avatar sql.NullString
			if err := rows.Scan(&p.ID, &p.AuthorID, &p.ContentText, &media, &p.Pinned,
				&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt,
				&p.Username, &p.DisplayName, &avatar, &p.CommentCount); err != nil {
				respondError(w, http.StatusInternalServerError, "error scanning posts")
				log.Printf("GetPosts scan error: %v", err)
				return
			}
			p.MediaURL = media.String
			p.AvatarURL = avatar.String
			p.Categories = []models.Category{}
			posts = append(posts, p)
		}
		if err := rows.Err(); err != nil {
			respondError(w, http.StatusInternalServerError, "error iterating posts")
			log.Printf("GetPosts rows error: %v", err)
			return
		}

		ids := make([]int, len(posts))
		for i := range posts {
			ids[i] = posts[i].ID
		}

		metadata := services.FetchBatchPostMetadata(db, ids, viewerID)
		for i := range posts {
			meta := metadata[posts[i].ID]
			posts[i].ReactionCounts = meta.Counts
			posts[i].UserReaction = meta.UserReaction
		}

		attachCategories(db, posts)

		respondJSON(w, http.StatusOK, posts)
	}
}

// attachCategories fills the Categories field for a batch of posts with a
// single association query. Failure leaves the empty slices in place.
func attachCategories(db *sql.DB, posts []models.PostWithMetadata) {
	if len(posts) == 0 {
		return
	}

	ids := make([]int, len(posts))
	index := make(map[int]int, len(posts))
	for i := range posts {
		ids[i] = posts[i].ID
		index[posts[i].ID] = i
	}

	rows, err := db.Query(`
		SELECT pc.post_id, c.id, c.name
		FROM post_categories pc
		JOIN categories c ON pc.category_id = c.id
		WHERE pc.post_id = ANY($1)
		ORDER BY c.name`,
		pq.Array(ids))
	if err != nil {
		log.Printf("attachCategories query error: %v", err)
		return
	}
	defer rows.Close()

	for rows.Next() {
		var postID int
		var c models.Category
		if err := rows.Scan(&postID, &c.ID, &c.Name); err != nil {
			log.Printf("attachCategories scan error: %v", err)
			return
		}
		if i, ok := index[postID]; ok {
			posts[i].Categories = append(posts[i].Categories, c)
		}
	}
}

func CreatePost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		var req struct {
			ContentText string `json:"content_text"`
			MediaURL    string `json:"media_url"`
			CategoryIDs []int  `json:"category_ids"`
			// TTLHours sets the flame timer; nil means the 24h default,
			// zero means no expiration.
			TTLHours *int `json:"ttl_hours"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		if req.ContentText == "" {
			respondError(w, http.StatusBadRequest, "content_text is required")
			return
		}
		if len(req.ContentText) > maxPostLength {
			respondError(w, http.StatusBadRequest, "content_text must be at most 500 characters")
			return
		}

		var expiresAt *time.Time
		switch {
		case req.TTLHours == nil:
			t := time.Now().Add(defaultTTL)
			expiresAt = &t
		case *req.TTLHours == 0:
			// permanent post
		case *req.TTLHours < 0 || *req.TTLHours > maxTTLHours:
			respondError(w, http.StatusBadRequest, "ttl_hours must be between 0 and 168")
			return
		default:
			t := time.Now().Add(time.Duration(*req.TTLHours) * time.Hour)
			expiresAt = &t
		}

		tx, err := db.Begin()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create post")
			log.Println("CreatePost begin error:", err)
			return
		}
		defer tx.Rollback()

		var p models.Post
		var media sql.NullString
		err = tx.QueryRow(`
			INSERT INTO posts (author_id, content_text, media_url, expires_at)
			VALUES ($1, $2, NULLIF($3, ''), $4)
			RETURNING id, author_id, content_text, media_url, pinned, created_at, updated_at, expires_at`,
			caller.UserID, req.ContentText, req.MediaURL, expiresAt,
		).Scan(&p.ID, &p.AuthorID, &p.ContentText, &media, &p.Pinned,
			&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create post")
			log.Println("CreatePost error:", err)
			return
		}
		p.MediaURL = media.String

		for _, categoryID := range req.CategoryIDs {
			if _, err := tx.Exec(`
				INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)
				ON CONFLICT DO NOTHING`,
				p.ID, categoryID); err != nil {
				respondError(w, http.StatusBadRequest, "unknown category")
				return
			}
		}

		if err := tx.Commit(); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to create post")
			log.Println("CreatePost commit error:", err)
			return
		}

		respondJSON(w, http.StatusCreated, p)
	}
}

// GetPost returns one post with metadata. Expired posts are still served
// here; hiding them is the client's call. A metadata failure degrades to
// zero counts rather than failing the request.
func GetPost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var p models.PostWithMetadata
		var media, avatar sql.NullString
		err = db.QueryRow(`
			SELECT p.id, p.author_id, p.content_text, p.media_url, p.pinned,
			       p.created_at, p.updated_at, p.expires_at,
			       u.username, u.display_name, u.avatar_url,
			       COALESCE((SELECT COUNT(*) FROM comments WHERE post_id = p.id), 0) AS comment_count
			FROM posts p
			JOIN users u ON p.author_id = u.id
			WHERE p.id = $1`,
			postID,
		).Scan(&p.ID, &p.AuthorID, &p.ContentText, &media, &p.Pinned,
			&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt,
			&p.Username, &p.DisplayName, &avatar, &p.CommentCount)

		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "post not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Printf("GetPost error: %v", err)
			return
		}

		p.MediaURL = media.String
		p.AvatarURL = avatar.String
		p.Categories = []models.Category{}

		meta := services.FetchPostMetadata(db, postID, callerID(r))
		p.ReactionCounts = meta.Counts
		p.UserReaction = meta.UserReaction

		batch := []models.PostWithMetadata{p}
		attachCategories(db, batch)

		respondJSON(w, http.StatusOK, batch[0])
	}
}

func UpdatePost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var req struct {
			ContentText *string `json:"content_text"`
			MediaURL    *string `json:"media_url"`
			CategoryIDs []int   `json:"category_ids"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		var authorID int
		err = db.QueryRow(`SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID)
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "post not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("UpdatePost error:", err)
			return
		}
		if authorID != caller.UserID {
			respondError(w, http.StatusForbidden, "you can only edit your own posts")
			return
		}

		if req.ContentText != nil {
			if *req.ContentText == "" || len(*req.ContentText) > maxPostLength {
				respondError(w, http.StatusBadRequest, "content_text must be 1-500 characters")
				return
			}
		}

		tx, err := db.Begin()
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update post")
			log.Println("UpdatePost begin error:", err)
			return
		}
		defer tx.Rollback()

		var p models.Post
		var media sql.NullString
		err = tx.QueryRow(`
			UPDATE posts
			SET content_text = COALESCE($2, content_text),
			    media_url = COALESCE($3, media_url),
			    updated_at = NOW()
			WHERE id = $1
			RETURNING id, author_id, content_text, media_url, pinned, created_at, updated_at, expires_at`,
			postID, req.ContentText, req.MediaURL,
		).Scan(&p.ID, &p.AuthorID, &p.ContentText, &media, &p.Pinned,
			&p.CreatedAt, &p.UpdatedAt, &p.ExpiresAt)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update post")
			log.Println("UpdatePost exec error:", err)
			return
		}
		p.MediaURL = media.String

		if req.CategoryIDs != nil {
			if _, err := tx.Exec(`DELETE FROM post_categories WHERE post_id = $1`, postID); err != nil {
				respondError(w, http.StatusInternalServerError, "failed to update post")
				log.Println("UpdatePost categories error:", err)
				return
			}
			for _, categoryID := range req.CategoryIDs {
				if _, err := tx.Exec(`
					INSERT INTO post_categories (post_id, category_id) VALUES ($1, $2)`,
					postID, categoryID); err != nil {
					respondError(w, http.StatusBadRequest, "unknown category")
					return
				}
			}
		}

		if err := tx.Commit(); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to update post")
			log.Println("UpdatePost commit error:", err)
			return
		}

		respondJSON(w, http.StatusOK, p)
	}
}

func DeletePost(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		vars := mux.Vars(r)
		postID, err := strconv.Atoi(vars["postId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid post ID")
			return
		}

		var authorID int
		err = db.QueryRow(`SELECT author_id FROM posts WHERE id = $1`, postID).Scan(&authorID)
		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "post not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("DeletePost error:", err)
			return
		}
		if authorID != caller.UserID {
			respondError(w, http.StatusForbidden, "you can only delete your own posts")
			return
		}

		if err := deletePostCascade(db, postID); err != nil {
			respondError(w, http.StatusInternalServerError, "failed to delete post")
			log.Println("DeletePost cascade error:", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "post deleted"})
	}
}

// deletePostCascade removes a post and its dependents in FK order:
// comment reactions, post reactions, comments, category links, post.
func deletePostCascade(db *sql.DB, postID int) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	defer tx.Rollback()

	statements := []string{
		`DELETE FROM reactions WHERE comment_id IN (SELECT id FROM comments WHERE post_id = $1)`,
		`DELETE FROM reactions WHERE post_id = $1`,
		`DELETE FROM comments WHERE post_id = $1`,
		`DELETE FROM post_categories WHERE post_id = $1`,
		`DELETE FROM posts WHERE id = $1`,
	}
	for _, stmt := range statements {
		if _, err := tx.Exec(stmt, postID); err != nil {
			return err
		}
	}

	return tx.Commit()
}
