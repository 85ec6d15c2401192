// Package refreshtokens declares the server-side repository contract for
// refresh tokens in persistent storage, and its PostgreSQL implementation.
package refreshtokens

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository defines operations for issuing, retrieving, and revoking refresh tokens.
type Repository interface {
	// Create stores token and fills in its ID and CreatedAt.
	Create(ctx context.Context, token *models.RefreshToken) error

	// FindForUpdate looks up a refresh token by value and locks the row for
	// the rest of the enclosing transaction. Returns common.ErrorNotFound
	// when the value is absent.
	FindForUpdate(ctx context.Context, value string) (*models.RefreshToken, error)

	// Delete removes a refresh token by value and reports whether a row was
	// actually removed. Deleting a non-existent token is not an error.
	Delete(ctx context.Context, value string) (bool, error)

	// DeleteOwned is Delete restricted to tokens owned by userID.
	DeleteOwned(ctx context.Context, userID int64, value string) (bool, error)

	// DeleteAllForUser removes every refresh token owned by userID and
	// returns how many were removed.
	DeleteAllForUser(ctx context.Context, userID int64) (int64, error)
}
