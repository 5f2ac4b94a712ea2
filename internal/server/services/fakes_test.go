package services

import (
	"context"
	"database/sql"
	"io"
	"log/slog"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/dbx"
	"github.com/dmitrijs2005/accountd/internal/logging"
	"github.com/dmitrijs2005/accountd/internal/server/config"
	"github.com/dmitrijs2005/accountd/internal/server/models"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/tokens"
	"github.com/dmitrijs2005/accountd/internal/server/repositories/users"
)

const (
	testUserID  = "3b241101-e2bb-4255-8caf-4136c566a962"
	testTokenID = "7f9c24e8-3b12-4fef-91a0-1b3c48d0a4b6"
)

// fakeUsersRepo is an in-memory users.Repository. Lookups may run
// concurrently during creation, so counters are mutex-guarded.
type fakeUsersRepo struct {
	mu         sync.Mutex
	byID       map[string]*models.User
	byUsername map[string]*models.User
	byEmail    map[string]*models.User

	findUsernameErr error

	insertCalls int
	insertZero  bool
	insertErr   error
	inserted    *models.User

	updateCalls int
	updateID    string
	updateSet   *models.ChangeSet
	updateZero  bool
	updateErr   error
}

func newFakeUsersRepo() *fakeUsersRepo {
	return &fakeUsersRepo{
		byID:       map[string]*models.User{},
		byUsername: map[string]*models.User{},
		byEmail:    map[string]*models.User{},
	}
}

func (f *fakeUsersRepo) add(u *models.User) {
	f.byID[u.ID] = u
	f.byUsername[strings.ToLower(u.Username)] = u
	f.byEmail[u.Email] = u
}

func (f *fakeUsersRepo) FindByID(ctx context.Context, id string) (*models.User, error) {
	if u, ok := f.byID[id]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByUsername(ctx context.Context, username string) (*models.User, error) {
	f.mu.Lock()
	err := f.findUsernameErr
	f.mu.Unlock()
	if err != nil {
		return nil, err
	}
	if u, ok := f.byUsername[strings.ToLower(username)]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	if u, ok := f.byEmail[email]; ok {
		copied := *u
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeUsersRepo) Insert(ctx context.Context, user *models.User) (int64, *models.User, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.insertCalls++
	if f.insertErr != nil {
		return 0, nil, f.insertErr
	}
	if f.insertZero {
		return 0, nil, nil
	}

	stored := *user
	stored.ID = testUserID
	f.inserted = &stored
	return 1, &stored, nil
}

func (f *fakeUsersRepo) Update(ctx context.Context, id string, changes *models.ChangeSet) (int64, *models.User, error) {
	f.updateCalls++
	f.updateID = id
	f.updateSet = changes

	if f.updateErr != nil {
		return 0, nil, f.updateErr
	}
	if f.updateZero {
		return 0, nil, nil
	}

	current, ok := f.byID[id]
	if !ok {
		return 0, nil, nil
	}
	updated := *current
	for _, field := range changes.Fields() {
		value, _ := changes.Value(field)
		switch field {
		case models.FieldUsername:
			updated.Username = value.(string)
		case models.FieldPassword:
			updated.PasswordHash = value.(string)
		case models.FieldRole:
			updated.Role = models.Role(value.(string))
		case models.FieldSignature:
			updated.Signature = value.(string)
		case models.FieldColor:
			updated.Color = value.(string)
		case models.FieldEmailConfirmed:
			updated.EmailConfirmed = value.(bool)
		}
	}
	return 1, &updated, nil
}

var _ users.Repository = (*fakeUsersRepo)(nil)

// fakeTokensRepo is an in-memory tokens.Repository.
type fakeTokensRepo struct {
	tokens map[string]*models.Token

	findCalls  int
	consumed   []string
	consumeErr error

	deletedUserID string
	deletedKind   models.TokenKind
	deleteErr     error

	created   *models.Token
	createErr error
}

func newFakeTokensRepo() *fakeTokensRepo {
	return &fakeTokensRepo{tokens: map[string]*models.Token{}}
}

func (f *fakeTokensRepo) Create(ctx context.Context, token *models.Token) (*models.Token, error) {
	if f.createErr != nil {
		return nil, f.createErr
	}
	stored := *token
	f.created = &stored
	f.tokens[stored.ID] = &stored
	return &stored, nil
}

func (f *fakeTokensRepo) Find(ctx context.Context, id string) (*models.Token, error) {
	f.findCalls++
	if tok, ok := f.tokens[id]; ok {
		copied := *tok
		return &copied, nil
	}
	return nil, common.ErrorNotFound
}

func (f *fakeTokensRepo) Consume(ctx context.Context, id string) error {
	f.consumed = append(f.consumed, id)
	if f.consumeErr != nil {
		return f.consumeErr
	}
	if _, ok := f.tokens[id]; !ok {
		return common.ErrorNotFound
	}
	delete(f.tokens, id)
	return nil
}

func (f *fakeTokensRepo) DeleteByUserAndKind(ctx context.Context, userID string, kind models.TokenKind) error {
	f.deletedUserID = userID
	f.deletedKind = kind
	if f.deleteErr != nil {
		return f.deleteErr
	}
	for id, tok := range f.tokens {
		if tok.UserID == userID && tok.Kind == kind {
			delete(f.tokens, id)
		}
	}
	return nil
}

var _ tokens.Repository = (*fakeTokensRepo)(nil)

// fakeRepoManager hands out the same fakes regardless of the db handle.
type fakeRepoManager struct {
	users  *fakeUsersRepo
	tokens *fakeTokensRepo
}

func (m *fakeRepoManager) RunMigrations(ctx context.Context, db *sql.DB) error { return nil }
func (m *fakeRepoManager) Users(db dbx.DBTX) users.Repository                  { return m.users }
func (m *fakeRepoManager) Tokens(db dbx.DBTX) tokens.Repository                { return m.tokens }

// fakeGate records the last authorization question and answers it verbatim.
type fakeGate struct {
	allow bool
	err   error

	lastToken  string
	lastAction string
	lastTarget string
}

func (g *fakeGate) Can(ctx context.Context, callerToken, action, targetID string) (bool, error) {
	g.lastToken = callerToken
	g.lastAction = action
	g.lastTarget = targetID
	return g.allow, g.err
}

func testLogger() logging.Logger {
	return logging.NewSlogLogger(slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func testConfig() *config.Config {
	cfg := &config.Config{}
	cfg.LoadDefaults()
	cfg.PasswordHashCost = bcrypt.MinCost
	return cfg
}

func existingUser(t *testing.T) *models.User {
	t.Helper()
	hash, err := bcrypt.GenerateFromPassword([]byte("oldpassword"), bcrypt.MinCost)
	require.NoError(t, err)

	return &models.User{
		ID:             testUserID,
		Username:       "margarita",
		Email:          "margarita@example.com",
		PasswordHash:   string(hash),
		Role:           models.RoleBasic,
		Signature:      "",
		Color:          "#ff5040",
		EmailConfirmed: false,
		CreatedAt:      time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC),
	}
}
