package refreshtokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	sq "github.com/Masterminds/squirrel"
	"github.com/dmitrijs2005/sessionkeeper/internal/common"
	"github.com/dmitrijs2005/sessionkeeper/internal/dbx"
	"github.com/dmitrijs2005/sessionkeeper/internal/server/models"
)

var psql = sq.StatementBuilder.PlaceholderFormat(sq.Dollar)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

// NewPostgresRepository constructs a repository bound to the given DBTX.
func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.RefreshToken) error {
	query, args, err := psql.Insert("refresh_tokens").
		Columns("user_id", "value", "expires_at").
		Values(token.UserID, token.Value, token.ExpiresAt).
		Suffix("RETURNING id, created_at").
		ToSql()
	if err != nil {
		return fmt.Errorf("build query: %w", err)
	}

	if err := r.db.QueryRowContext(ctx, query, args...).Scan(&token.ID, &token.CreatedAt); err != nil {
		return fmt.Errorf("error performing sql request: %w", err)
	}
	return nil
}

func (r *PostgresRepository) FindForUpdate(ctx context.Context, value string) (*models.RefreshToken, error) {
	query, args, err := psql.Select("id", "user_id", "value", "expires_at", "created_at").
		From("refresh_tokens").
		Where(sq.Eq{"value": value}).
		Suffix("FOR UPDATE").
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build query: %w", err)
	}

	t := &models.RefreshToken{}
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&t.ID, &t.UserID, &t.Value, &t.ExpiresAt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return t, nil
}

func (r *PostgresRepository) Delete(ctx context.Context, value string) (bool, error) {
	n, err := r.deleteWhere(ctx, sq.Eq{"value": value})
	return n > 0, err
}

func (r *PostgresRepository) DeleteOwned(ctx context.Context, userID int64, value string) (bool, error) {
	n, err := r.deleteWhere(ctx, sq.And{sq.Eq{"value": value}, sq.Eq{"user_id": userID}})
	return n > 0, err
}

func (r *PostgresRepository) DeleteAllForUser(ctx context.Context, userID int64) (int64, error) {
	return r.deleteWhere(ctx, sq.Eq{"user_id": userID})
}

func (r *PostgresRepository) deleteWhere(ctx context.Context, pred sq.Sqlizer) (int64, error) {
	query, args, err := psql.Delete("refresh_tokens").Where(pred).ToSql()
	if err != nil {
		return 0, fmt.Errorf("build query: %w", err)
	}

	res, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("db error: %w", err)
	}
	return n, nil
}
