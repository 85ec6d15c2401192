// Package credentials is the credential store consumed by the session
// service: user records and server-side refresh tokens. The SQL
// implementation runs on PostgreSQL through the repository manager; the
// memory implementation backs local runs without a database and tests.
package credentials

import (
	"context"
	"time"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Store persists users and refresh tokens.
//
// Lookups that match no user return common.ErrorNotFound. Username and email
// are unique; CreateUser reports collisions as common.ErrDuplicateEmail or
// common.ErrDuplicateUsername.
type Store interface {
	CreateUser(ctx context.Context, user *models.User) (*models.User, error)
	FindUserByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)
	FindUserByID(ctx context.Context, id int64) (*models.User, error)

	CreateRefreshToken(ctx context.Context, token *models.RefreshToken) error

	// RotateRefreshToken atomically consumes the token with the given value
	// and stores next in its place for the same user. next.UserID is filled
	// in from the consumed row, which is returned.
	//
	// Fails with common.ErrTokenNotFound if the value is absent (including
	// when a concurrent rotation consumed it first) and with
	// common.ErrTokenExpired if it expired before now; an expired token is
	// left in place.
	RotateRefreshToken(ctx context.Context, value string, now time.Time, next *models.RefreshToken) (*models.RefreshToken, error)

	// DeleteRefreshToken removes one token owned by userID. Unknown values
	// and tokens of other users are ignored.
	DeleteRefreshToken(ctx context.Context, userID int64, value string) error

	// DeleteUserRefreshTokens removes every token owned by userID.
	DeleteUserRefreshTokens(ctx context.Context, userID int64) (int64, error)
}

var (
	_ Store = (*SQLStore)(nil)
	_ Store = (*MemoryStore)(nil)
)
