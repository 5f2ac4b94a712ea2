package tokens

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/dbx"
	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, token *models.Token) (*models.Token, error) {
	query := `
		INSERT INTO tokens (id, user_id, kind, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, user_id, kind, created_at, expires_at
	`
	created := &models.Token{}
	err := r.db.QueryRowContext(ctx, query,
		token.ID, token.UserID, token.Kind, token.CreatedAt, token.ExpiresAt).
		Scan(&created.ID, &created.UserID, &created.Kind, &created.CreatedAt, &created.ExpiresAt)
	if err != nil {
		return nil, fmt.Errorf("db error: %w", err)
	}
	return created, nil
}

// Find returns a live token by id. Expired rows are filtered out here so
// every caller sees expired and absent tokens the same way.
func (r *PostgresRepository) Find(ctx context.Context, id string) (*models.Token, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `
		SELECT id, user_id, kind, created_at, expires_at
		FROM tokens
		WHERE id = $1 AND expires_at > now()
	`
	token := &models.Token{}
	err := r.db.QueryRowContext(ctx, query, id).
		Scan(&token.ID, &token.UserID, &token.Kind, &token.CreatedAt, &token.ExpiresAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return token, nil
}

func (r *PostgresRepository) Consume(ctx context.Context, id string) error {
	if _, err := uuid.Parse(id); err != nil {
		return common.ErrorNotFound
	}

	result, err := r.db.ExecContext(ctx, `DELETE FROM tokens WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	deleted, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	if deleted == 0 {
		return common.ErrorNotFound
	}
	return nil
}

func (r *PostgresRepository) DeleteByUserAndKind(ctx context.Context, userID string, kind models.TokenKind) error {
	query := `DELETE FROM tokens WHERE user_id = $1 AND kind = $2`
	if _, err := r.db.ExecContext(ctx, query, userID, kind); err != nil {
		return fmt.Errorf("db error: %w", err)
	}
	return nil
}
