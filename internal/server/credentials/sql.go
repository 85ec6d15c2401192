package credentials

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/repositories/repomanager"
)

// SQLStore implements Store on top of a *sql.DB and a RepositoryManager.
type SQLStore struct {
	db          *sql.DB
	repomanager repomanager.RepositoryManager
}

// NewSQLStore wraps db. The schema is expected to be migrated already.
func NewSQLStore(db *sql.DB, m repomanager.RepositoryManager) *SQLStore {
	return &SQLStore{db: db, repomanager: m}
}

func (s *SQLStore) CreateUser(ctx context.Context, user *models.User) (*models.User, error) {
	return s.repomanager.Users(s.db).Create(ctx, user)
}

func (s *SQLStore) FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByUsernameOrEmail(ctx, username, email)
}

func (s *SQLStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByEmail(ctx, email)
}

func (s *SQLStore) FindUserByID(ctx context.Context, id int64) (*models.User, error) {
	return s.repomanager.Users(s.db).FindByID(ctx, id)
}

func (s *SQLStore) CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error {
	return s.repomanager.RefreshTokens(s.db).Create(ctx, token)
}

// RotateRefreshToken locks the row with SELECT ... FOR UPDATE, so a
// concurrent rotation of the same value blocks until this transaction ends
// and then sees no row.
func (s *SQLStore) RotateRefreshToken(ctx context.Context, value string, now time.Time, next *models.RefreshToken) (*models.RefreshToken, error) {
	var consumed *models.RefreshToken

	err := dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.repomanager.RefreshTokens(tx)

		current, err := repo.FindForUpdate(ctx, value)
		if err != nil {
			if errors.Is(err, common.ErrorNotFound) {
				return common.ErrTokenNotFound
			}
			return fmt.Errorf("error searching refresh token: %w", err)
		}
		if current.Expired(now) {
			return common.ErrTokenExpired
		}

		deleted, err := repo.Delete(ctx, value)
		if err != nil {
			return fmt.Errorf("error deleting refresh token: %w", err)
		}
		if !deleted {
			return common.ErrTokenNotFound
		}

		next.UserID = current.UserID
		if err := repo.Create(ctx, next); err != nil {
			return fmt.Errorf("error creating refresh token: %w", err)
		}

		consumed = current
		return nil
	})
	if err != nil {
		return nil, err
	}

	return consumed, nil
}

func (s *SQLStore) DeleteRefreshToken(ctx context.Context, userID int64, value string) error {
	_, err := s.repomanager.RefreshTokens(s.db).DeleteOwned(ctx, userID, value)
	return err
}

func (s *SQLStore) DeleteUserRefreshTokens(ctx context.Context, userID int64) (int64, error) {
	return s.repomanager.RefreshTokens(s.db).DeleteAllForUser(ctx, userID)
}
