package httpapi

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"github.com/dmitrijs2005/accountd/internal/server/models"
)

func (s *Server) handlePing(w http.ResponseWriter, r *http.Request) {
	writeData(w, map[string]string{"status": "OK"})
}

func (s *Server) handleCreateUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body map[string]any
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil || body == nil {
		writeErrors(w, missingBodyErrors())
		return
	}

	user, ferrs, err := s.users.Create(ctx, body["username"], body["email"], body["password"])
	if err != nil {
		s.logger.Error(ctx, "create user failed", "error", err)
		writeInternalError(w)
		return
	}
	if len(ferrs) > 0 {
		writeErrors(w, ferrs)
		return
	}

	writeData(w, user.Public())
}

func (s *Server) handleGetUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	user, err := s.users.Get(ctx, chi.URLParam(r, "id"))
	if err != nil {
		s.logger.Error(ctx, "get user failed", "error", err)
		writeInternalError(w)
		return
	}
	if user == nil {
		writeData(w, nil)
		return
	}

	writeData(w, user.Public())
}

func (s *Server) handlePatchUser(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	id := chi.URLParam(r, "id")
	if id == "" {
		writeErrors(w, missingIDErrors())
		return
	}

	changes, err := decodeFieldChanges(r.Body)
	if err != nil {
		writeErrors(w, missingBodyErrors())
		return
	}

	user, ferrs, err := s.users.Patch(ctx, id, bearerToken(r), changes, r.URL.Query().Get("token"))
	if err != nil {
		s.logger.Error(ctx, "patch user failed", "user_id", id, "error", err)
		writeInternalError(w)
		return
	}
	if len(ferrs) > 0 {
		writeErrors(w, ferrs)
		return
	}
	if user == nil {
		// Empty read: the target record does not exist.
		writeData(w, nil)
		return
	}

	writeData(w, user.Public())
}

type issueTokenRequest struct {
	UserID string `json:"userId"`
	Kind   string `json:"type"`
}

func (s *Server) handleIssueToken(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	var body issueTokenRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeErrors(w, missingBodyErrors())
		return
	}

	token, ferrs, err := s.tokens.Issue(ctx, bearerToken(r), body.UserID, models.TokenKind(body.Kind))
	if err != nil {
		s.logger.Error(ctx, "issue token failed", "user_id", body.UserID, "error", err)
		writeInternalError(w)
		return
	}
	if len(ferrs) > 0 {
		writeErrors(w, ferrs)
		return
	}
	if token == nil {
		writeData(w, nil)
		return
	}

	writeData(w, token.Public())
}

// bearerToken extracts the caller JWT from the Authorization header.
func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if after, found := strings.CutPrefix(header, "Bearer "); found {
		return after
	}
	return header
}
