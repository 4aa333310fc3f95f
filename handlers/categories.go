package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strings"

	"github.com/LionTheUnknown/GLIM-sub000/models"
	"github.com/LionTheUnknown/GLIM-sub000/services"
)

// GetCategories lists all categories with their current (non-expired) post
// counts.
func GetCategories(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		rows, err := db.Query(`
			SELECT c.id, c.name,
			       COALESCE((SELECT COUNT(*)
			                 FROM post_categories pc
			                 JOIN posts p ON pc.post_id = p.id
			                 WHERE pc.category_id = c.id
			                   AND (p.expires_at IS NULL OR p.expires_at > NOW() OR p.pinned)), 0)
			FROM categories c
			ORDER BY c.name`)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to fetch categories")
			log.Println("GetCategories error:", err)
			return
		}
		defer rows.Close()

		categories := []models.CategoryWithCount{}
		for rows.Next() {
			var c models.CategoryWithCount
			if err := rows.Scan(&c.ID, &c.Name, &c.PostCount); err != nil {
				respondError(w, http.StatusInternalServerError, "error scanning categories")
				log.Println("GetCategories scan error:", err)
				return
			}
			categories = append(categories, c)
		}
		if err := rows.Err(); err != nil {
			respondError(w, http.StatusInternalServerError, "error iterating categories")
			log.Println("GetCategories rows error:", err)
			return
		}

		respondJSON(w, http.StatusOK, categories)
	}
}

// CreateCategory adds a category. Admin only.
func CreateCategory(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Name string `json:"name"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Name = strings.TrimSpace(req.Name)
		if req.Name == "" || len(req.Name) > 50 {
			respondError(w, http.StatusBadRequest, "name must be 1-50 characters")
			return
		}

		var c models.Category
		err := db.QueryRow(`
			INSERT INTO categories (name) VALUES ($1) RETURNING id, name`,
			req.Name,
		).Scan(&c.ID, &c.Name)
		if err != nil {
			if services.IsUniqueViolation(err) {
				respondError(w, http.StatusConflict, "category already exists")
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to create category")
			log.Println("CreateCategory error:", err)
			return
		}

		respondJSON(w, http.StatusCreated, c)
	}
}
