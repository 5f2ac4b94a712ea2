// Package users declares the repository contract for account records.
package users

import (
	"context"

	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// Repository is the storage contract consumed by the mutation pipeline.
//
// Insert and Update report how many records were written alongside the
// resulting record; a zero count with a nil error is the storage layer's
// "nothing happened" signal, which the orchestrators translate into a
// storage anomaly (insert) or a fall-back to the previously read state
// (update).
type Repository interface {
	// FindByID returns the record with the given id, or common.ErrorNotFound.
	FindByID(ctx context.Context, id string) (*models.User, error)

	// FindByUsername performs a case-insensitive lookup by username,
	// or returns common.ErrorNotFound.
	FindByUsername(ctx context.Context, username string) (*models.User, error)

	// FindByEmail returns the record with the given email, or common.ErrorNotFound.
	FindByEmail(ctx context.Context, email string) (*models.User, error)

	// Insert stores a new record and returns the inserted count plus the
	// stored record with its assigned id.
	Insert(ctx context.Context, user *models.User) (int64, *models.User, error)

	// Update applies the change set to the record with the given id in a
	// single conditional write and returns the replaced count plus the
	// updated record. A missing record yields (0, nil, nil).
	Update(ctx context.Context, id string, changes *models.ChangeSet) (int64, *models.User, error)
}
