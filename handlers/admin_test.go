package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/gorilla/mux"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

func TestRevivePost(t *testing.T) {
	t.Run("default window is 24h", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		now := time.Now()
		mock.ExpectQuery(`UPDATE posts SET expires_at`).
			WithArgs(7, sqlmock.AnyArg()).
			WillReturnRows(sqlmock.NewRows(
				[]string{"id", "author_id", "content_text", "media_url", "pinned",
					"created_at", "updated_at", "expires_at"}).
				AddRow(7, 3, "hello", nil, false, now, now, now.Add(defaultReviveTTL)))

		req := mux.SetURLVars(httptest.NewRequest("PATCH", "/api/admin/posts/7/revive", nil),
			map[string]string{"postId": "7"})
		rec := httptest.NewRecorder()
		RevivePost(db)(rec, req)

		require.Equal(t, http.StatusOK, rec.Code)

		var p models.Post
		require.NoError(t, json.NewDecoder(rec.Body).Decode(&p))
		require.NotNil(t, p.ExpiresAt)
		assert.WithinDuration(t, now.Add(defaultReviveTTL), *p.ExpiresAt, time.Minute)
	})

	t.Run("out-of-range ttl rejected", func(t *testing.T) {
		db, _, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		body := `{"ttl_hours": 500}`
		req := mux.SetURLVars(
			httptest.NewRequest("PATCH", "/api/admin/posts/7/revive", jsonBody(body)),
			map[string]string{"postId": "7"})
		rec := httptest.NewRecorder()
		RevivePost(db)(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})
}

func TestPinPost(t *testing.T) {
	t.Run("missing post is 404", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE posts SET pinned`).
			WithArgs(99, true).
			WillReturnResult(sqlmock.NewResult(0, 0))

		req := mux.SetURLVars(
			httptest.NewRequest("PATCH", "/api/admin/posts/99/pin", jsonBody(`{"pinned":true}`)),
			map[string]string{"postId": "99"})
		rec := httptest.NewRecorder()
		PinPost(db)(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("pin flag updated", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectExec(`UPDATE posts SET pinned`).
			WithArgs(7, true).
			WillReturnResult(sqlmock.NewResult(0, 1))

		req := mux.SetURLVars(
			httptest.NewRequest("PATCH", "/api/admin/posts/7/pin", jsonBody(`{"pinned":true}`)),
			map[string]string{"postId": "7"})
		rec := httptest.NewRecorder()
		PinPost(db)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestAdminDeleteComment(t *testing.T) {
	t.Run("comment on a different post is 404", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT post_id FROM comments`).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(2))

		req := mux.SetURLVars(
			httptest.NewRequest("DELETE", "/api/admin/posts/1/comments/5", nil),
			map[string]string{"postId": "1", "commentId": "5"})
		rec := httptest.NewRecorder()
		AdminDeleteComment(db)(rec, req)

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("subtree and its reactions removed in one transaction", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectQuery(`SELECT post_id FROM comments`).
			WithArgs(5).
			WillReturnRows(sqlmock.NewRows([]string{"post_id"}).AddRow(1))
		mock.ExpectBegin()
		mock.ExpectExec(`DELETE FROM reactions WHERE comment_id IN \(SELECT id FROM subtree\)`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 3))
		mock.ExpectExec(`DELETE FROM comments WHERE id IN \(SELECT id FROM subtree\)`).
			WithArgs(5).
			WillReturnResult(sqlmock.NewResult(0, 4))
		mock.ExpectCommit()

		req := mux.SetURLVars(
			httptest.NewRequest("DELETE", "/api/admin/posts/1/comments/5", nil),
			map[string]string{"postId": "1", "commentId": "5"})
		rec := httptest.NewRecorder()
		AdminDeleteComment(db)(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
