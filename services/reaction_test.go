package services

import (
	"database/sql"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/LionTheUnknown/GLIM-sub000/models"
)

func TestTransition(t *testing.T) {
	cases := []struct {
		name      string
		current   ReactionState
		requested models.ReactionType
		wantState ReactionState
		wantOp    ReactionOp
	}{
		{"none plus like inserts", StateNone, models.ReactionLike, StateLiked, OpInsert},
		{"none plus dislike inserts", StateNone, models.ReactionDislike, StateDisliked, OpInsert},
		{"like plus like cancels", StateLiked, models.ReactionLike, StateNone, OpDelete},
		{"dislike plus dislike cancels", StateDisliked, models.ReactionDislike, StateNone, OpDelete},
		{"like plus dislike flips", StateLiked, models.ReactionDislike, StateDisliked, OpUpdate},
		{"dislike plus like flips", StateDisliked, models.ReactionLike, StateLiked, OpUpdate},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			next, op, err := Transition(tc.current, tc.requested)
			require.NoError(t, err)
			assert.Equal(t, tc.wantState, next)
			assert.Equal(t, tc.wantOp, op)
		})
	}

	t.Run("invalid type rejected", func(t *testing.T) {
		_, _, err := Transition(StateNone, "love")
		assert.ErrorIs(t, err, ErrValidation)
	})

	t.Run("cancellation toggles back and forth", func(t *testing.T) {
		// like -> none -> like: the third application of the same
		// request reproduces the inserted state.
		state := StateNone
		for i, want := range []ReactionState{StateLiked, StateNone, StateLiked} {
			next, _, err := Transition(state, models.ReactionLike)
			require.NoError(t, err)
			assert.Equal(t, want, next, "toggle %d", i+1)
			state = next
		}
	})
}

func TestReactionStateType(t *testing.T) {
	assert.Nil(t, StateNone.Type())
	require.NotNil(t, StateLiked.Type())
	assert.Equal(t, models.ReactionLike, *StateLiked.Type())
	require.NotNil(t, StateDisliked.Type())
	assert.Equal(t, models.ReactionDislike, *StateDisliked.Type())
}

func TestTogglePostReaction(t *testing.T) {
	t.Run("first like inserts and extends the timer", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expires := time.Now().Add(2 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(expires))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO reactions`).
			WithArgs(3, 7, models.ReactionLike).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectExec(`UPDATE posts SET expires_at`).
			WithArgs(sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := TogglePostReaction(db, 3, 7, models.ReactionLike)
		require.NoError(t, err)
		assert.Equal(t, StateLiked, result.State)
		assert.Equal(t, OpInsert, result.Op)
		require.NotNil(t, result.ExpiresAt)
		assert.WithinDuration(t, expires.Add(ExpirationStep), *result.ExpiresAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("repeated like deletes and reverses the shift", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expires := time.Now().Add(3 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(expires))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnRows(sqlmock.NewRows([]string{"reaction_type"}).AddRow("like"))
		mock.ExpectExec(`DELETE FROM reactions`).
			WithArgs(3, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE posts SET expires_at`).
			WithArgs(sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := TogglePostReaction(db, 3, 7, models.ReactionLike)
		require.NoError(t, err)
		assert.Equal(t, StateNone, result.State)
		assert.Equal(t, OpDelete, result.Op)
		require.NotNil(t, result.ExpiresAt)
		assert.WithinDuration(t, expires.Add(-ExpirationStep), *result.ExpiresAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("flip moves the timer two steps in one update", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expires := time.Now().Add(5 * time.Hour)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(expires))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnRows(sqlmock.NewRows([]string{"reaction_type"}).AddRow("like"))
		mock.ExpectExec(`UPDATE reactions SET reaction_type`).
			WithArgs(3, 7, models.ReactionDislike).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE posts SET expires_at`).
			WithArgs(sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := TogglePostReaction(db, 3, 7, models.ReactionDislike)
		require.NoError(t, err)
		assert.Equal(t, StateDisliked, result.State)
		assert.Equal(t, OpUpdate, result.Op)
		require.NotNil(t, result.ExpiresAt)
		assert.WithinDuration(t, expires.Add(-2*ExpirationStep), *result.ExpiresAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("post without a timer is left alone", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(nil))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO reactions`).
			WithArgs(3, 7, models.ReactionLike).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := TogglePostReaction(db, 3, 7, models.ReactionLike)
		require.NoError(t, err)
		assert.Nil(t, result.ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("missing post is NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(99).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectRollback()

		_, err = TogglePostReaction(db, 3, 99, models.ReactionLike)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("lost race surfaces as Conflict", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(nil))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO reactions`).
			WithArgs(3, 7, models.ReactionLike).
			WillReturnError(&pq.Error{Code: "23505"})
		mock.ExpectRollback()

		_, err = TogglePostReaction(db, 3, 7, models.ReactionLike)
		assert.ErrorIs(t, err, ErrConflict)
	})

	t.Run("invalid type rejected before any query", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		_, err = TogglePostReaction(db, 3, 7, "meh")
		assert.ErrorIs(t, err, ErrValidation)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestToggleCommentReaction(t *testing.T) {
	t.Run("missing comment is NotFound", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
		mock.ExpectRollback()

		_, err = ToggleCommentReaction(db, 3, 42, models.ReactionLike)
		assert.ErrorIs(t, err, ErrNotFound)
	})

	t.Run("insert on a comment has no expiry side effect", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT EXISTS`).
			WithArgs(42).
			WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 42).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectExec(`INSERT INTO reactions`).
			WithArgs(3, 42, models.ReactionDislike).
			WillReturnResult(sqlmock.NewResult(1, 1))
		mock.ExpectCommit()

		result, err := ToggleCommentReaction(db, 3, 42, models.ReactionDislike)
		require.NoError(t, err)
		assert.Equal(t, StateDisliked, result.State)
		assert.Nil(t, result.ExpiresAt)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}

func TestRemovePostReaction(t *testing.T) {
	t.Run("removing an absent reaction is a no-op", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(nil))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnError(sql.ErrNoRows)
		mock.ExpectCommit()

		result, err := RemovePostReaction(db, 3, 7)
		require.NoError(t, err)
		assert.Equal(t, StateNone, result.State)
		assert.Equal(t, OpNone, result.Op)
		assert.NoError(t, mock.ExpectationsWereMet())
	})

	t.Run("removing a dislike gives the hour back", func(t *testing.T) {
		db, mock, err := sqlmock.New()
		require.NoError(t, err)
		defer db.Close()

		expires := time.Now().Add(30 * time.Minute)

		mock.ExpectBegin()
		mock.ExpectQuery(`SELECT expires_at FROM posts`).
			WithArgs(7).
			WillReturnRows(sqlmock.NewRows([]string{"expires_at"}).AddRow(expires))
		mock.ExpectQuery(`SELECT reaction_type FROM reactions`).
			WithArgs(3, 7).
			WillReturnRows(sqlmock.NewRows([]string{"reaction_type"}).AddRow("dislike"))
		mock.ExpectExec(`DELETE FROM reactions`).
			WithArgs(3, 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`UPDATE posts SET expires_at`).
			WithArgs(sqlmock.AnyArg(), 7).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectCommit()

		result, err := RemovePostReaction(db, 3, 7)
		require.NoError(t, err)
		assert.Equal(t, OpDelete, result.Op)
		require.NotNil(t, result.ExpiresAt)
		assert.WithinDuration(t, expires.Add(ExpirationStep), *result.ExpiresAt, time.Second)
		assert.NoError(t, mock.ExpectationsWereMet())
	})
}
