package handlers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

func jsonBody(s string) io.Reader {
	return strings.NewReader(s)
}

func TestRegister(t *testing.T) {
	validBody := `{"username":"ada","email":"ada@example.com","password":"correcthorse","display_name":"Ada"}`

	t.Run("validation failures stop before the database", func(t *testing.T) {
		cases := []struct {
			name string
			body string
		}{
			{"short username", `{"username":"ab","email":"a@b.c","password":"correcthorse"}`},
			{"bad email", `{"username":"ada","email":"nope","password":"correcthorse"}`},
			{"short password", `{"username":"ada","email":"a@b.c","password":"short"}`},
			{"garbage body", `{]`},
		}
		for _, tc := range cases {
			t.Run(tc.name, func(t *testing.T) {
				db, mock, err := sqlmock.New()
				require.NoError(t, err)
				defer db.Close()

				rec := httptest.NewRecorder()
				Register(db)(rec, httptest.NewRequest("POST", "/api/users/register", jsonBody(tc.body)))

				assert.Equal(t, http.StatusBadRequest, rec.Code)
				assert.NoError(t, mock.ExpectationsWereMet())
			})
		}
	})

	t.Run("duplicate username or email is 409", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnError(&pq.Error{Code: "23505"})

		rec := httptest.NewRecorder()
		Register(db)(rec, httptest.NewRequest("POST", "/api/users/register", jsonBody(validBody)))

		assert.Equal(t, http.StatusConflict, rec.Code)
	})

	t.Run("successful registration returns the user without the hash", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`INSERT INTO users`).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "username", "email", "display_name", "bio", "role", "created_at"}).
				AddRow(1, "ada", "ada@example.com", "Ada", "", "user", time.Now()))

		rec := httptest.NewRecorder()
		Register(db)(rec, httptest.NewRequest("POST", "/api/users/register", jsonBody(validBody)))

		require.Equal(t, http.StatusCreated, rec.Code)

		var got map[string]interface{}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))
		assert.Equal(t, "ada", got["username"])
		assert.NotContains(t, got, "password")
	})
}

func TestLogin(t *testing.T) {
	hash, err := bcrypt.GenerateFromPassword([]byte("correcthorse"), bcrypt.MinCost)
	require.NoError(t, err)

	userColumns := []string{"id", "username", "email", "password", "display_name", "bio", "role", "created_at"}

	t.Run("wrong password is 401", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, username, email, password`).
			WithArgs("ada").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "ada", "ada@example.com", string(hash), "Ada", "", "user", time.Now()))

		rec := httptest.NewRecorder()
		Login(db, testSecret)(rec, httptest.NewRequest("POST", "/api/users/login",
			jsonBody(`{"username":"ada","password":"wrong"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("unknown user is 401, indistinguishable from wrong password", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, username, email, password`).
			WithArgs("ghost").
			WillReturnRows(sqlmock.NewRows(userColumns))

		rec := httptest.NewRecorder()
		Login(db, testSecret)(rec, httptest.NewRequest("POST", "/api/users/login",
			jsonBody(`{"username":"ghost","password":"whatever"}`)))

		assert.Equal(t, http.StatusUnauthorized, rec.Code)
	})

	t.Run("valid login returns both tokens", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT id, username, email, password`).
			WithArgs("ada").
			WillReturnRows(sqlmock.NewRows(userColumns).
				AddRow(1, "ada", "ada@example.com", string(hash), "Ada", "", "user", time.Now()))

		rec := httptest.NewRecorder()
		Login(db, testSecret)(rec, httptest.NewRequest("POST", "/api/users/login",
			jsonBody(`{"username":"ada","password":"correcthorse"}`)))

		require.Equal(t, http.StatusOK, rec.Code)

		var got struct {
			Token        string `json:"token"`
			RefreshToken string `json:"refresh_token"`
		}
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&got))

		claims, err := ParseToken(got.Token, testSecret)
		require.NoError(t, err)
		assert.Equal(t, 1, claims.UserID)
		assert.Equal(t, tokenTypeAccess, claims.TokenType)

		refreshClaims, err := ParseToken(got.RefreshToken, testSecret)
		require.NoError(t, err)
		assert.Equal(t, tokenTypeRefresh, refreshClaims.TokenType)
	})
}
