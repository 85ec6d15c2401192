// Package users declares the credential store contract for user records and
// its PostgreSQL implementation.
package users

import (
	"context"

	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

// Repository defines lookups and inserts over the users relation.
// Lookups that match nothing return common.ErrorNotFound.
type Repository interface {
	// Create inserts user and fills in the server-assigned ID and CreatedAt.
	// A uniqueness collision yields common.ErrDuplicateEmail or
	// common.ErrDuplicateUsername.
	Create(ctx context.Context, user *models.User) (*models.User, error)

	// FindByUsernameOrEmail returns the first user whose username or email
	// matches, in a single lookup.
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*models.User, error)

	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
}
