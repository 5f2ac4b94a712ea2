// Package tokens declares the repository contract for one-time tokens that
// gate sensitive account mutations.
package tokens

import (
	"context"

	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// Repository manages single-use tokens. Tokens past their expiry behave as
// if they never existed.
type Repository interface {
	// Create stores a new token.
	Create(ctx context.Context, token *models.Token) (*models.Token, error)

	// Find returns a live (non-expired) token by id, or common.ErrorNotFound.
	Find(ctx context.Context, id string) (*models.Token, error)

	// Consume atomically deletes the token. If no row was deleted (already
	// consumed or never existed) it returns common.ErrorNotFound, which is
	// how single use is enforced under concurrent spends.
	Consume(ctx context.Context, id string) error

	// DeleteByUserAndKind removes every token of the given kind held for
	// the user. Used when issuing a replacement token.
	DeleteByUserAndKind(ctx context.Context, userID string, kind models.TokenKind) error
}
