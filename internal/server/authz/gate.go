// Package authz answers whether a caller may perform a named action on an
// account record. Caller identity travels as a signed JWT (HS256) carrying
// the caller's user id and role.
package authz

import (
	"context"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/dmitrijs2005/accountd/internal/common"
	"github.com/dmitrijs2005/accountd/internal/server/models"
)

// ActionUsersEdit guards every account mutation.
const ActionUsersEdit = "users:edit"

// Claims carries the caller identity inside a JWT.
type Claims struct {
	jwt.RegisteredClaims
	UserID string      `json:"userId"`
	Role   models.Role `json:"role"`
}

// Gate decides whether the caller identified by callerToken may perform
// action against the record with targetID. A missing, malformed or expired
// token is an ordinary "no", not an error; the error return is reserved for
// unexpected failures.
type Gate interface {
	Can(ctx context.Context, callerToken, action, targetID string) (bool, error)
}

// JWTGate is the concrete Gate backed by HMAC-signed caller tokens.
type JWTGate struct {
	secret []byte
}

func NewJWTGate(secret []byte) *JWTGate {
	return &JWTGate{secret: secret}
}

// Can permits users:edit for administrators and for the record owner.
// Unknown actions are always denied.
func (g *JWTGate) Can(ctx context.Context, callerToken, action, targetID string) (bool, error) {
	if callerToken == "" {
		return false, nil
	}

	claims, err := g.parse(callerToken)
	if err != nil {
		return false, nil
	}

	switch action {
	case ActionUsersEdit:
		return claims.Role == models.RoleAdministrator || claims.UserID == targetID, nil
	default:
		return false, nil
	}
}

func (g *JWTGate) parse(tokenString string) (*Claims, error) {
	claims := &Claims{}

	token, err := jwt.ParseWithClaims(tokenString, claims, func(t *jwt.Token) (interface{}, error) {
		return g.secret, nil
	})
	if err != nil {
		return nil, err
	}
	if !token.Valid {
		return nil, common.ErrInvalidToken
	}
	return claims, nil
}

// MintToken signs a caller token for the given identity. Used by operators
// and tests; the service itself only verifies.
func MintToken(userID string, role models.Role, secret []byte, validity time.Duration) (string, error) {
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(validity)),
		},
		UserID: userID,
		Role:   role,
	})
	return token.SignedString(secret)
}
