package services

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/dbx"
	"github.com/dmitrijs2005/accountd/internal/logging"
	"github.com/dmitrijs2005/accountd/internal/server/authz"
	"github.com/dmitrijs2005/accountd/internal/server/config"
	"github.com/dmitrijs2005/accountd/internal/server/models"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountd/internal/server/validation"
)

// TokenService issues the one-time tokens that gate sensitive field changes.
type TokenService struct {
	db       *sql.DB
	rm       repomanager.RepositoryManager
	gate     authz.Gate
	logger   logging.Logger
	validity time.Duration
}

func NewTokenService(db *sql.DB, rm repomanager.RepositoryManager, gate authz.Gate, logger logging.Logger, cfg *config.Config) *TokenService {
	return &TokenService{
		db:       db,
		rm:       rm,
		gate:     gate,
		logger:   logger.With("module", "token_service"),
		validity: cfg.TokenValidityDuration,
	}
}

// Issue mints a one-time token of the given kind for the target user,
// replacing any live token of the same kind. The caller must hold users:edit
// on the target. A missing target is an empty read, not an error.
func (s *TokenService) Issue(ctx context.Context, callerToken, userID string, kind models.TokenKind) (*models.Token, []validation.FieldError, error) {
	if !kind.IsKnown() {
		return nil, []validation.FieldError{{
			Title:        "Token type not valid",
			Detail:       "Token type is not on the list of known types.",
			PropertyName: "type",
			Status:       400,
		}}, nil
	}

	user, err := s.rm.Users(s.db).FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	allowed, err := s.gate.Can(ctx, callerToken, authz.ActionUsersEdit, user.ID)
	if err != nil {
		return nil, nil, err
	}
	if !allowed {
		return nil, []validation.FieldError{{
			Title:  "Unauthorized",
			Detail: "You are not authorized to do this.",
			Status: 403,
		}}, nil
	}

	var issued *models.Token
	err = dbx.WithTx(ctx, s.db, nil, func(ctx context.Context, tx dbx.DBTX) error {
		repo := s.rm.Tokens(tx)
		if err := repo.DeleteByUserAndKind(ctx, user.ID, kind); err != nil {
			return err
		}
		now := time.Now()
		issued, err = repo.Create(ctx, &models.Token{
			ID:        uuid.NewString(),
			UserID:    user.ID,
			Kind:      kind,
			CreatedAt: now,
			ExpiresAt: now.Add(s.validity),
		})
		return err
	})
	if err != nil {
		return nil, nil, err
	}

	s.logger.Info(ctx, "token issued", "user_id", user.ID, "kind", kind)
	return issued, nil, nil
}
