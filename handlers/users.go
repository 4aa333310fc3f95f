package handlers

import (
	"database/sql"
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/gorilla/mux"
	"golang.org/x/crypto/bcrypt"

	"github.com/LionTheUnknown/GLIM-sub000/models"
	"github.com/LionTheUnknown/GLIM-sub000/services"
)

func Register(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username    string `json:"username"`
			Email       string `json:"email"`
			Password    string `json:"password"`
			DisplayName string `json:"display_name"`
			Bio         string `json:"bio"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		req.Username = strings.TrimSpace(req.Username)
		req.Email = strings.TrimSpace(req.Email)
		if len(req.Username) < 3 || len(req.Username) > 30 {
			respondError(w, http.StatusBadRequest, "username must be 3-30 characters")
			return
		}
		if !strings.Contains(req.Email, "@") {
			respondError(w, http.StatusBadRequest, "valid email is required")
			return
		}
		if len(req.Password) < 8 {
			respondError(w, http.StatusBadRequest, "password must be at least 8 characters")
			return
		}
		if req.DisplayName == "" {
			req.DisplayName = req.Username
		}

		hashed, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to hash password")
			return
		}

		var u models.User
		err = db.QueryRow(`
			INSERT INTO users (username, email, password, display_name, bio)
			VALUES ($1, $2, $3, $4, $5)
			RETURNING id, username, email, display_name, bio, role, created_at`,
			req.Username, req.Email, string(hashed), req.DisplayName, req.Bio,
		).Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Bio, &u.Role, &u.CreatedAt)

		if err != nil {
			if services.IsUniqueViolation(err) {
				respondError(w, http.StatusConflict, "username or email already taken")
				return
			}
			respondError(w, http.StatusInternalServerError, "failed to create user")
			log.Println("Register error:", err)
			return
		}

		respondJSON(w, http.StatusCreated, u)
	}
}

func Login(db *sql.DB, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			Username string `json:"username"`
			Password string `json:"password"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}
		if req.Username == "" || req.Password == "" {
			respondError(w, http.StatusBadRequest, "username and password are required")
			return
		}

		var u models.User
		err := db.QueryRow(`
			SELECT id, username, email, password, display_name, bio, role, created_at
			FROM users
			WHERE username = $1 OR email = $1`,
			req.Username,
		).Scan(&u.ID, &u.Username, &u.Email, &u.Password, &u.DisplayName, &u.Bio, &u.Role, &u.CreatedAt)

		if err == sql.ErrNoRows {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("Login error:", err)
			return
		}

		if bcrypt.CompareHashAndPassword([]byte(u.Password), []byte(req.Password)) != nil {
			respondError(w, http.StatusUnauthorized, "invalid credentials")
			return
		}

		accessToken, err := GenerateAccessToken(u, secret)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue token")
			log.Println("Login token error:", err)
			return
		}
		refreshToken, err := GenerateRefreshToken(u, secret)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue token")
			log.Println("Login refresh token error:", err)
			return
		}

		u.Password = ""
		respondJSON(w, http.StatusOK, map[string]interface{}{
			"token":         accessToken,
			"refresh_token": refreshToken,
			"user":          u,
		})
	}
}

// Refresh exchanges a valid refresh token for a fresh access/refresh pair.
func Refresh(db *sql.DB, secret []byte) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req struct {
			RefreshToken string `json:"refresh_token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.RefreshToken == "" {
			respondError(w, http.StatusBadRequest, "refresh_token is required")
			return
		}

		claims, err := ParseToken(req.RefreshToken, secret)
		if err != nil || claims.TokenType != tokenTypeRefresh {
			respondError(w, http.StatusUnauthorized, "invalid or expired refresh token")
			return
		}

		// Re-read the user so a role change or deletion takes effect on
		// the next rotation.
		var u models.User
		err = db.QueryRow(`SELECT id, username, role FROM users WHERE id = $1`, claims.UserID).
			Scan(&u.ID, &u.Username, &u.Role)
		if err == sql.ErrNoRows {
			respondError(w, http.StatusUnauthorized, "user no longer exists")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("Refresh error:", err)
			return
		}

		accessToken, err := GenerateAccessToken(u, secret)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}
		refreshToken, err := GenerateRefreshToken(u, secret)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to issue token")
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{
			"token":         accessToken,
			"refresh_token": refreshToken,
		})
	}
}

// Me returns the authenticated caller's own profile.
func Me(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		var u models.User
		var avatar sql.NullString
		err := db.QueryRow(`
			SELECT id, username, email, display_name, bio, avatar_url, role, created_at
			FROM users WHERE id = $1`,
			caller.UserID,
		).Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Bio, &avatar, &u.Role, &u.CreatedAt)

		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "user not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("Me error:", err)
			return
		}

		u.AvatarURL = avatar.String
		respondJSON(w, http.StatusOK, u)
	}
}

// GetUserByID returns another user's public profile: no email, no hash.
func GetUserByID(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		vars := mux.Vars(r)
		userID, err := strconv.Atoi(vars["userId"])
		if err != nil {
			respondError(w, http.StatusBadRequest, "invalid user ID")
			return
		}

		var p models.PublicProfile
		var avatar sql.NullString
		err = db.QueryRow(`
			SELECT u.id, u.username, u.display_name, u.bio, u.avatar_url, u.created_at,
			       (SELECT COUNT(*) FROM posts WHERE author_id = u.id) AS post_count
			FROM users u
			WHERE u.id = $1`,
			userID,
		).Scan(&p.ID, &p.Username, &p.DisplayName, &p.Bio, &avatar, &p.CreatedAt, &p.PostCount)

		if err == sql.ErrNoRows {
			respondError(w, http.StatusNotFound, "user not found")
			return
		} else if err != nil {
			respondError(w, http.StatusInternalServerError, "database query failed")
			log.Println("GetUserByID error:", err)
			return
		}

		p.AvatarURL = avatar.String
		respondJSON(w, http.StatusOK, p)
	}
}

// UpdateMe partially updates the caller's profile fields.
func UpdateMe(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		var req struct {
			DisplayName *string `json:"display_name"`
			Bio         *string `json:"bio"`
			AvatarURL   *string `json:"avatar_url"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			respondError(w, http.StatusBadRequest, "invalid request body")
			return
		}

		setClauses := []string{}
		args := []interface{}{}
		i := 1

		if req.DisplayName != nil {
			if *req.DisplayName == "" {
				respondError(w, http.StatusBadRequest, "display_name cannot be empty")
				return
			}
			setClauses = append(setClauses, "display_name = $"+strconv.Itoa(i))
			args = append(args, *req.DisplayName)
			i++
		}
		if req.Bio != nil {
			setClauses = append(setClauses, "bio = $"+strconv.Itoa(i))
			args = append(args, *req.Bio)
			i++
		}
		if req.AvatarURL != nil {
			setClauses = append(setClauses, "avatar_url = $"+strconv.Itoa(i))
			args = append(args, *req.AvatarURL)
			i++
		}

		if len(setClauses) == 0 {
			respondError(w, http.StatusBadRequest, "no fields provided for update")
			return
		}

		args = append(args, caller.UserID)
		_, err := db.Exec(
			"UPDATE users SET "+strings.Join(setClauses, ", ")+" WHERE id = $"+strconv.Itoa(i),
			args...)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "database update failed")
			log.Println("UpdateMe error:", err)
			return
		}

		var u models.User
		var avatar sql.NullString
		err = db.QueryRow(`
			SELECT id, username, email, display_name, bio, avatar_url, role, created_at
			FROM users WHERE id = $1`,
			caller.UserID,
		).Scan(&u.ID, &u.Username, &u.Email, &u.DisplayName, &u.Bio, &avatar, &u.Role, &u.CreatedAt)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to fetch updated user")
			log.Println("UpdateMe fetch error:", err)
			return
		}

		u.AvatarURL = avatar.String
		respondJSON(w, http.StatusOK, u)
	}
}

// RegisterFCMToken upserts a push token for the caller's device.
func RegisterFCMToken(db *sql.DB) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		caller, _ := CallerFromRequest(r)

		var req struct {
			Token string `json:"token"`
		}
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Token == "" {
			respondError(w, http.StatusBadRequest, "token is required")
			return
		}

		_, err := db.Exec(`
			INSERT INTO fcm_tokens (user_id, token)
			VALUES ($1, $2)
			ON CONFLICT (user_id, token)
			DO UPDATE SET updated_at = NOW()`,
			caller.UserID, req.Token)
		if err != nil {
			respondError(w, http.StatusInternalServerError, "failed to register token")
			log.Println("RegisterFCMToken error:", err)
			return
		}

		respondJSON(w, http.StatusOK, map[string]string{"message": "token registered"})
	}
}
