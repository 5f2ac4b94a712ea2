package users

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/dbx"
	"github.com/dmitrijs2005/accountd/internal/server/models"
)

const userColumns = "id, username, email, password_hash, role, signature, color, email_confirmed, created_at"

// fieldColumns maps change-set field names onto table columns. Only fields
// listed here can be committed.
var fieldColumns = map[string]string{
	models.FieldUsername:       "username",
	models.FieldPassword:       "password_hash",
	models.FieldRole:           "role",
	models.FieldSignature:      "signature",
	models.FieldColor:          "color",
	models.FieldEmailConfirmed: "email_confirmed",
}

// PostgresRepository implements Repository over dbx.DBTX
// (satisfied by *sql.DB or *sql.Tx).
type PostgresRepository struct {
	db dbx.DBTX
}

func NewPostgresRepository(db dbx.DBTX) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func scanUser(row *sql.Row) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(&user.ID, &user.Username, &user.Email, &user.PasswordHash,
		&user.Role, &user.Signature, &user.Color, &user.EmailConfirmed, &user.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, common.ErrorNotFound
		}
		return nil, fmt.Errorf("db error: %w", err)
	}
	return user, nil
}

// FindByID returns the record with the given id. A string that is not a
// valid UUID cannot match any record and is reported as not found rather
// than as a driver error.
func (r *PostgresRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, common.ErrorNotFound
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, id))
}

func (r *PostgresRepository) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(username) = lower($1)`
	return scanUser(r.db.QueryRowContext(ctx, query, username))
}

func (r *PostgresRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE email = $1`
	return scanUser(r.db.QueryRowContext(ctx, query, email))
}

func (r *PostgresRepository) Insert(ctx context.Context, user *models.User) (int64, *models.User, error) {
	query := `
		INSERT INTO users (username, email, password_hash, role, signature, color, email_confirmed, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		RETURNING ` + userColumns

	created, err := scanUser(r.db.QueryRowContext(ctx, query,
		user.Username, user.Email, user.PasswordHash, user.Role,
		user.Signature, user.Color, user.EmailConfirmed, user.CreatedAt))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, nil, nil
		}
		return 0, nil, err
	}
	return 1, created, nil
}

// Update writes all staged fields in one statement. The WHERE clause makes
// the write conditional on the record still existing; a concurrent deletion
// surfaces as a zero replaced count, not an error.
func (r *PostgresRepository) Update(ctx context.Context, id string, changes *models.ChangeSet) (int64, *models.User, error) {
	fields := changes.Fields()
	if len(fields) == 0 {
		return 0, nil, errors.New("empty change set")
	}

	assignments := make([]string, 0, len(fields))
	args := make([]any, 0, len(fields)+1)
	for _, field := range fields {
		column, ok := fieldColumns[field]
		if !ok {
			return 0, nil, fmt.Errorf("field %q has no column mapping", field)
		}
		value, _ := changes.Value(field)
		args = append(args, value)
		assignments = append(assignments, fmt.Sprintf("%s = $%d", column, len(args)))
	}
	args = append(args, id)

	query := fmt.Sprintf(`UPDATE users SET %s WHERE id = $%d RETURNING %s`,
		strings.Join(assignments, ", "), len(args), userColumns)

	updated, err := scanUser(r.db.QueryRowContext(ctx, query, args...))
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return 0, nil, nil
		}
		return 0, nil, err
	}
	return 1, updated, nil
}
