// Package services contains the server-side business logic. This file
// implements UserService, the mutation pipeline for account records:
// creation with concurrent fail-fast validation, and field-by-field
// patching with diffing, token gating and a single conditional commit.
package services

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	"golang.org/x/crypto/bcrypt"
	"golang.org/x/sync/errgroup"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/logging"
	"github.com/dmitrijs2005/accountd/internal/server/authz"
	"github.com/dmitrijs2005/accountd/internal/server/config"
	"github.com/dmitrijs2005/accountd/internal/server/models"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/repomanager"
	"github.com/dmitrijs2005/accountd/internal/server/validation"
)

// FieldChange is one proposed (field, value) pair from a mutation request.
// Order matters: the patch pipeline walks changes in request order.
type FieldChange struct {
	Name  string
	Value any
}

// errValidationFailed marks a soft validation outcome inside the creation
// fan-out so it can be told apart from collaborator failures.
var errValidationFailed = errors.New("validation failed")

// fieldRule describes how one mutable field is processed during a patch:
// which validator runs, whether a one-time token of a specific kind must be
// presented and consumed, and how the approved value is transformed before
// it is staged into the change set.
type fieldRule struct {
	validator validation.Validator
	tokenKind models.TokenKind
	stage     func(value any) (any, error)
}

// UserService orchestrates account creation and patching.
type UserService struct {
	db     *sql.DB
	rm     repomanager.RepositoryManager
	gate   authz.Gate
	logger logging.Logger

	hashCost     int
	defaultColor string

	rules          map[string]fieldRule
	emailValidator validation.Validator
}

// NewUserService constructs a UserService using repositories, the
// authorization gate and server config.
func NewUserService(db *sql.DB, rm repomanager.RepositoryManager, gate authz.Gate, logger logging.Logger, cfg *config.Config) *UserService {
	s := &UserService{
		db:           db,
		rm:           rm,
		gate:         gate,
		logger:       logger.With("module", "user_service"),
		hashCost:     cfg.PasswordHashCost,
		defaultColor: cfg.DefaultColor,
	}

	s.emailValidator = &validation.EmailValidator{Taken: s.emailTaken}

	// The closed set of patchable fields. Anything not listed here is
	// silently dropped by Patch.
	s.rules = map[string]fieldRule{
		models.FieldUsername: {
			validator: &validation.UsernameValidator{Taken: s.usernameTaken},
			stage:     stageString,
		},
		models.FieldRole: {
			validator: &validation.RoleValidator{},
			stage:     stageString,
		},
		models.FieldSignature: {
			validator: &validation.SignatureValidator{},
			stage:     stageString,
		},
		models.FieldColor: {
			validator: &validation.ColorValidator{
				MaxBrightness: cfg.ColorMaxBrightness,
				MinBrightness: cfg.ColorMinBrightness,
			},
			stage: stageString,
		},
		models.FieldPassword: {
			validator: &validation.PasswordValidator{},
			tokenKind: models.TokenPasswordUpdate,
			stage:     s.stagePasswordHash,
		},
		models.FieldEmailConfirmed: {
			tokenKind: models.TokenEmailConfirmedUpdate,
			stage:     stageBool,
		},
	}

	return s
}

func (s *UserService) usernameTaken(ctx context.Context, username string) (bool, error) {
	_, err := s.rm.Users(s.db).FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (s *UserService) emailTaken(ctx context.Context, email string) (bool, error) {
	_, err := s.rm.Users(s.db).FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

// Get returns the record with the given id, or (nil, nil) when it does not
// exist. An absent record is an empty read, not an error.
func (s *UserService) Get(ctx context.Context, id string) (*models.User, error) {
	user, err := s.rm.Users(s.db).FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return user, nil
}

// Create validates username, email and password concurrently, hashes the
// password and inserts the new record. The first validator to fail cancels
// the two still in flight and its errors become the terminal result; late
// completions are ignored.
func (s *UserService) Create(ctx context.Context, username, email, password any) (*models.User, []validation.FieldError, error) {
	g, gctx := errgroup.WithContext(ctx)

	var (
		mu    sync.Mutex
		ferrs []validation.FieldError
		check = func(v validation.Validator, value any) func() error {
			return func() error {
				errs, err := v.Validate(gctx, value)
				if err != nil {
					return err
				}
				if len(errs) > 0 {
					mu.Lock()
					if ferrs == nil {
						ferrs = errs
					}
					mu.Unlock()
					return errValidationFailed
				}
				return nil
			}
		}
	)

	g.Go(check(s.rules[models.FieldUsername].validator, username))
	g.Go(check(s.emailValidator, email))
	g.Go(check(s.rules[models.FieldPassword].validator, password))

	if err := g.Wait(); err != nil {
		if errors.Is(err, errValidationFailed) {
			return nil, ferrs, nil
		}
		return nil, nil, err
	}

	// All three validated, so the string assertions below cannot fail.
	hash, err := s.hashPassword(password.(string))
	if err != nil {
		return nil, nil, err
	}

	user := &models.User{
		Username:       username.(string),
		Email:          email.(string),
		PasswordHash:   hash,
		Role:           models.RoleBasic,
		Signature:      "",
		Color:          s.defaultColor,
		EmailConfirmed: false,
		CreatedAt:      time.Now(),
	}

	inserted, created, err := s.rm.Users(s.db).Insert(ctx, user)
	if err != nil {
		return nil, nil, err
	}
	if inserted == 0 {
		return nil, []validation.FieldError{{
			Title:  "Unknown error",
			Detail: "Failed writing to database.",
			Status: 500,
		}}, nil
	}

	s.logger.Info(ctx, "account created", "user_id", created.ID, "username", created.Username)
	return created, nil, nil
}

// Patch applies a set of proposed field changes to one record.
//
// The pipeline reads the record (absent → (nil, nil, nil), an empty read),
// authorizes the caller once, then walks the proposed changes in request
// order: values strictly equal to the current state are dropped without
// validation, known fields run their validator and, for sensitive fields,
// resolve and consume the presented one-time token, unknown fields are
// ignored. The first field error aborts the walk and nothing is committed.
// On success all approved values are written in a single conditional update;
// a zero replaced count falls back to the state read at the start.
func (s *UserService) Patch(ctx context.Context, id, callerToken string, changes []FieldChange, presentedToken string) (*models.User, []validation.FieldError, error) {
	repo := s.rm.Users(s.db)

	current, err := repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return nil, nil, nil
		}
		return nil, nil, err
	}

	allowed, err := s.gate.Can(ctx, callerToken, authz.ActionUsersEdit, current.ID)
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

	// A terminal outcome below must cancel any collaborator call still in
	// flight for this request.
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	approved := models.NewChangeSet()
	queue := append([]FieldChange(nil), changes...)

	for len(queue) > 0 {
		change := queue[0]
		queue = queue[1:]

		if cur, defined := currentValue(current, change.Name); defined && strictEqual(cur, change.Value) {
			continue // no-op diff: skip validation and commit for this field
		}

		rule, known := s.rules[change.Name]
		if !known {
			continue // unknown fields are dropped by design, not rejected
		}

		if rule.tokenKind != "" && presentedToken == "" {
			return nil, []validation.FieldError{{
				Title:        "Token not valid",
				Detail:       "Token was not provided.",
				PropertyName: "token",
				Status:       400,
			}}, nil
		}

		if rule.validator != nil {
			ferrs, err := rule.validator.Validate(ctx, change.Value)
			if err != nil {
				return nil, nil, err
			}
			if len(ferrs) > 0 {
				return nil, ferrs, nil
			}
		}

		if rule.tokenKind != "" {
			ferrs, err := s.resolveToken(ctx, presentedToken, current.ID, rule.tokenKind)
			if err != nil {
				return nil, nil, err
			}
			if len(ferrs) > 0 {
				return nil, ferrs, nil
			}
		}

		staged, err := rule.stage(change.Value)
		if err != nil {
			return nil, nil, err
		}
		approved.Set(change.Name, staged)

		if rule.tokenKind != "" {
			// Single use is enforced here, independently of whether the
			// commit below ever happens.
			if err := s.rm.Tokens(s.db).Consume(ctx, presentedToken); err != nil {
				if errors.Is(err, common.ErrorNotFound) {
					return nil, tokenInvalidErrors(), nil
				}
				return nil, nil, err
			}
		}
	}

	if approved.Empty() {
		// A patch that changes nothing is a success reporting current state.
		return current, nil, nil
	}

	replaced, updated, err := repo.Update(ctx, current.ID, approved)
	if err != nil {
		return nil, nil, err
	}
	if replaced == 0 {
		// The record vanished between read and write; report what we read.
		return current, nil, nil
	}

	s.logger.Info(ctx, "account patched", "user_id", current.ID, "fields", approved.Len())
	return updated, nil, nil
}

// resolveToken checks that the presented token exists, belongs to the target
// record and carries the expected operation kind. Any mismatch is reported
// exactly like an absent token.
func (s *UserService) resolveToken(ctx context.Context, tokenID, userID string, kind models.TokenKind) ([]validation.FieldError, error) {
	token, err := s.rm.Tokens(s.db).Find(ctx, tokenID)
	if err != nil {
		if errors.Is(err, common.ErrorNotFound) {
			return tokenInvalidErrors(), nil
		}
		return nil, err
	}
	if token.UserID != userID || token.Kind != kind {
		return tokenInvalidErrors(), nil
	}
	return nil, nil
}

func tokenInvalidErrors() []validation.FieldError {
	return []validation.FieldError{{
		Title:        "Token not valid",
		Detail:       "Token is not valid or it expired.",
		PropertyName: "token",
		Status:       400,
	}}
}

func (s *UserService) hashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.hashCost)
	if err != nil {
		return "", fmt.Errorf("error hashing password: %w", err)
	}
	return string(hash), nil
}

func (s *UserService) stagePasswordHash(value any) (any, error) {
	password, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("password is not a string")
	}
	return s.hashPassword(password)
}

func stageString(value any) (any, error) {
	str, ok := value.(string)
	if !ok {
		return nil, fmt.Errorf("value is not a string")
	}
	return str, nil
}

func stageBool(value any) (any, error) {
	return truthy(value), nil
}

// currentValue exposes the comparable current value of a field. The password
// field maps to the stored hash, so a plaintext proposal never compares equal
// and always proceeds to validation.
func currentValue(u *models.User, field string) (any, bool) {
	switch field {
	case models.FieldUsername:
		return u.Username, true
	case models.FieldEmail:
		return u.Email, true
	case models.FieldPassword:
		return u.PasswordHash, true
	case models.FieldRole:
		return string(u.Role), true
	case models.FieldSignature:
		return u.Signature, true
	case models.FieldColor:
		return u.Color, true
	case models.FieldEmailConfirmed:
		return u.EmailConfirmed, true
	default:
		return nil, false
	}
}

// strictEqual compares a stored value with a proposed one: same dynamic type
// and same value, nothing looser.
func strictEqual(current, proposed any) bool {
	switch c := current.(type) {
	case string:
		p, ok := proposed.(string)
		return ok && c == p
	case bool:
		p, ok := proposed.(bool)
		return ok && c == p
	default:
		return false
	}
}

// truthy coerces an arbitrary decoded JSON value to a boolean: null, false,
// zero and the empty string are false, everything else is true.
func truthy(value any) bool {
	switch v := value.(type) {
	case nil:
		return false
	case bool:
		return v
	case string:
		return v != ""
	case float64:
		return v != 0
	case int:
		return v != 0
	default:
		return true
	}
}
