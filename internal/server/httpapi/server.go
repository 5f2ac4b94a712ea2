// Package httpapi exposes the mutation pipeline over HTTP/JSON. Every
// response uses the {"data": ...} / {"errors": [...]} envelope; expected
// outcomes (validation, authorization, empty reads) travel as structured
// errors in the envelope, and only collaborator failures become a 500.
package httpapi

import (
	"context"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dmitrijs2005/accountd/internal/logging"
	"github.com/dmitrijs2005/accountd/internal/server/models"
	"github.com/dmitrijs2005/accountd/internal/server/services"
	"github.com/dmitrijs2005/accountd/internal/server/validation"
)

// UserMutator is the slice of UserService the transport depends on.
type UserMutator interface {
	Get(ctx context.Context, id string) (*models.User, error)
	Create(ctx context.Context, username, email, password any) (*models.User, []validation.FieldError, error)
	Patch(ctx context.Context, id, callerToken string, changes []services.FieldChange, presentedToken string) (*models.User, []validation.FieldError, error)
}

// TokenIssuer is the slice of TokenService the transport depends on.
type TokenIssuer interface {
	Issue(ctx context.Context, callerToken, userID string, kind models.TokenKind) (*models.Token, []validation.FieldError, error)
}

type Server struct {
	address string
	logger  logging.Logger
	users   UserMutator
	tokens  TokenIssuer
}

func NewServer(address string, logger logging.Logger, users UserMutator, tokens TokenIssuer) *Server {
	return &Server{
		address: address,
		logger:  logger.With("module", "http_server"),
		users:   users,
		tokens:  tokens,
	}
}

// Router builds the chi router with the full command surface.
func (s *Server) Router() *chi.Mux {
	r := chi.NewRouter()

	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(requestLogger(s.logger))
	r.Use(middleware.Recoverer)

	r.Route("/api", func(r chi.Router) {
		r.Get("/ping", s.handlePing)

		r.Route("/users", func(r chi.Router) {
			r.Post("/", s.handleCreateUser)
			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", s.handleGetUser)
				r.Patch("/", s.handlePatchUser)
			})
		})

		r.Post("/tokens", s.handleIssueToken)
	})

	return r
}

// Run starts the HTTP server and shuts it down gracefully when ctx is done.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:    s.address,
		Handler: s.Router(),
	}

	go func() {
		<-ctx.Done()
		s.logger.Info(ctx, "Stopping HTTP server...")
		_ = srv.Shutdown(context.Background())
	}()

	s.logger.Info(ctx, "Starting HTTP server", "address", s.address)

	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return err
	}
	return nil
}
