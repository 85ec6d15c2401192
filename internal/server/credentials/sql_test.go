package credentials

import (
	"context"
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	findForUpdate = `(?s)^SELECT\s+.*FROM\s+refresh_tokens\s+WHERE\s+value\s*=\s*\$1\s+FOR\s+UPDATE$`
	deleteByValue = `(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+value\s*=\s*\$1$`
	insertToken   = `(?s)^INSERT\s+INTO\s+refresh_tokens\b`
)

var tokenCols = []string{"id", "user_id", "value", "expires_at", "created_at"}

func newSQLStore(t *testing.T) (*SQLStore, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	t.Cleanup(func() { _ = db.Close() })
	return NewSQLStore(db, repomanager.NewPostgresRepositoryManager()), mock
}

func TestSQLStore_Rotate_Success(t *testing.T) {
	s, mock := newSQLStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(findForUpdate).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(7), "old", now.Add(time.Hour), now))
	mock.ExpectExec(deleteByValue).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertToken).
		WithArgs(int64(7), "new", sqlmock.AnyArg()).
		WillReturnRows(sqlmock.NewRows([]string{"id", "created_at"}).AddRow(int64(2), now))
	mock.ExpectCommit()

	next := &models.RefreshToken{Value: "new", ExpiresAt: now.Add(24 * time.Hour)}
	consumed, err := s.RotateRefreshToken(context.Background(), "old", now, next)
	require.NoError(t, err)
	assert.Equal(t, int64(7), consumed.UserID)
	assert.Equal(t, int64(7), next.UserID)
	assert.Equal(t, int64(2), next.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Rotate_NotFound(t *testing.T) {
	s, mock := newSQLStore(t)

	mock.ExpectBegin()
	mock.ExpectQuery(findForUpdate).WithArgs("gone").WillReturnError(sql.ErrNoRows)
	mock.ExpectRollback()

	_, err := s.RotateRefreshToken(context.Background(), "gone", time.Now(), &models.RefreshToken{Value: "new"})
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Rotate_ExpiredRollsBackWithoutDelete(t *testing.T) {
	s, mock := newSQLStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(findForUpdate).
		WithArgs("stale").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(7), "stale", now.Add(-time.Minute), now))
	mock.ExpectRollback()

	_, err := s.RotateRefreshToken(context.Background(), "stale", now, &models.RefreshToken{Value: "new"})
	assert.ErrorIs(t, err, common.ErrTokenExpired)
	require.NoError(t, mock.ExpectationsWereMet(), "no DELETE may be issued for an expired token")
}

func TestSQLStore_Rotate_LostRace(t *testing.T) {
	s, mock := newSQLStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(findForUpdate).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(7), "old", now.Add(time.Hour), now))
	mock.ExpectExec(deleteByValue).
		WithArgs("old").
		WillReturnResult(sqlmock.NewResult(0, 0))
	mock.ExpectRollback()

	_, err := s.RotateRefreshToken(context.Background(), "old", now, &models.RefreshToken{Value: "new"})
	assert.ErrorIs(t, err, common.ErrTokenNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_Rotate_InsertErrorRollsBack(t *testing.T) {
	s, mock := newSQLStore(t)
	now := time.Now()

	mock.ExpectBegin()
	mock.ExpectQuery(findForUpdate).
		WithArgs("old").
		WillReturnRows(sqlmock.NewRows(tokenCols).AddRow(int64(1), int64(7), "old", now.Add(time.Hour), now))
	mock.ExpectExec(deleteByValue).WithArgs("old").WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectQuery(insertToken).WillReturnError(errors.New("boom"))
	mock.ExpectRollback()

	_, err := s.RotateRefreshToken(context.Background(), "old", now, &models.RefreshToken{Value: "new"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error creating refresh token")
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestSQLStore_DeleteUserRefreshTokens(t *testing.T) {
	s, mock := newSQLStore(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+user_id\s*=\s*\$1$`).
		WithArgs(int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 2))

	n, err := s.DeleteUserRefreshTokens(context.Background(), 7)
	require.NoError(t, err)
	assert.Equal(t, int64(2), n)
}

func TestSQLStore_DeleteRefreshTokenScopedToOwner(t *testing.T) {
	s, mock := newSQLStore(t)

	mock.ExpectExec(`(?s)^DELETE\s+FROM\s+refresh_tokens\s+WHERE\s+\(?value\s*=\s*\$1\s+AND\s+user_id\s*=\s*\$2\)?$`).
		WithArgs("tok", int64(7)).
		WillReturnResult(sqlmock.NewResult(0, 0))

	require.NoError(t, s.DeleteRefreshToken(context.Background(), 7, "tok"))
	require.NoError(t, mock.ExpectationsWereMet())
}
