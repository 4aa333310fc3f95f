package handlers

import (
	"context"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

const (
	AccessTokenTTL  = 24 * time.Hour
	RefreshTokenTTL = 7 * 24 * time.Hour

	tokenTypeAccess  = "access"
	tokenTypeRefresh = "refresh"
)

// Claims is the JWT payload carried by both access and refresh tokens.
type Claims struct {
	UserID    int    `json:"user_id"`
	Username  string `json:"username"`
	Role      string `json:"role"`
	TokenType string `json:"token_type"`
	jwt.RegisteredClaims
}

func (c *Claims) IsAdmin() bool {
	return c.Role == models.RoleAdmin
}

type contextKey string

const claimsContextKey contextKey = "glim.claims"

// GenerateAccessToken signs a 24h bearer token for the user.
func GenerateAccessToken(u models.User, secret []byte) (string, error) {
	return generateToken(u, secret, tokenTypeAccess, AccessTokenTTL)
}

// GenerateRefreshToken signs a 7d refresh token. Refresh tokens are rejected
// by the auth middleware; they are only good for the refresh exchange.
func GenerateRefreshToken(u models.User, secret []byte) (string, error) {
	return generateToken(u, secret, tokenTypeRefresh, RefreshTokenTTL)
}

func generateToken(u models.User, secret []byte, tokenType string, ttl time.Duration) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:    u.ID,
		Username:  u.Username,
		Role:      u.Role,
		TokenType: tokenType,
		RegisteredClaims: jwt.RegisteredClaims{
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
		},
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(secret)
}

// ParseToken validates signature and expiry and returns the claims.
func ParseToken(tokenString string, secret []byte) (*Claims, error) {
	claims := &Claims{}
	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method %v", t.Header["alg"])
		}
		return secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}
	return claims, nil
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if header == "" {
		return ""
	}
	parts := strings.SplitN(header, " ", 2)
	if len(parts) != 2 || !strings.EqualFold(parts[0], "Bearer") {
		return ""
	}
	return parts[1]
}

// AuthenticateToken wraps a handler that requires a valid access token.
// Missing or invalid tokens hard-fail with 401.
func AuthenticateToken(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokenString := bearerToken(r)
		if tokenString == "" {
			respondError(w, http.StatusUnauthorized, "missing bearer token")
			return
		}

		claims, err := ParseToken(tokenString, secret)
		if err != nil || claims.TokenType != tokenTypeAccess {
			respondError(w, http.StatusUnauthorized, "invalid or expired token")
			return
		}

		next(w, r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims)))
	}
}

// OptionalAuthenticateToken attaches claims when a valid token is present and
// degrades to anonymous otherwise. Handlers see the difference only through
// CallerFromRequest.
func OptionalAuthenticateToken(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if tokenString := bearerToken(r); tokenString != "" {
			if claims, err := ParseToken(tokenString, secret); err == nil && claims.TokenType == tokenTypeAccess {
				r = r.WithContext(context.WithValue(r.Context(), claimsContextKey, claims))
			}
		}
		next(w, r)
	}
}

// RequireAdmin wraps an already-authenticated handler with a role check.
func RequireAdmin(secret []byte, next http.HandlerFunc) http.HandlerFunc {
	return AuthenticateToken(secret, func(w http.ResponseWriter, r *http.Request) {
		caller, ok := CallerFromRequest(r)
		if !ok || !caller.IsAdmin() {
			respondError(w, http.StatusForbidden, "admin role required")
			return
		}
		next(w, r)
	})
}

// CallerFromRequest returns the authenticated caller's claims, if any.
func CallerFromRequest(r *http.Request) (*Claims, bool) {
	claims, ok := r.Context().Value(claimsContextKey).(*Claims)
	return claims, ok
}

// callerID returns the caller's user id, or 0 for anonymous requests. The
// zero id doubles as the aggregator's "no viewer" marker.
func callerID(r *http.Request) int {
	if claims, ok := CallerFromRequest(r); ok {
		return claims.UserID
	}
	return 0
}
