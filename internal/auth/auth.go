// Package auth is the identity boundary: it resolves bearer tokens into an
// authenticated identity and gates routes by role. Token issuance lives
// outside this service.
package auth

import (
	"fmt"

	"github.com/golang-jwt/jwt/v5"
)

const (
	RoleUser  = "user"
	RoleAdmin = "admin"
)

// Identity is the resolved caller passed into booking operations.
type Identity struct {
	UserID string
	Role   string
}

func (i *Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

type Authenticator interface {
	Authenticate(token string) (*Identity, error)
}

type tokenClaims struct {
	UserID string `json:"userId"`
	Role   string `json:"role"`
	jwt.RegisteredClaims
}

type JWTAuthenticator struct {
	secret []byte
}

func NewJWTAuthenticator(secret string) *JWTAuthenticator {
	return &JWTAuthenticator{secret: []byte(secret)}
}

func (a *JWTAuthenticator) Authenticate(tokenStr string) (*Identity, error) {
	claims := &tokenClaims{}
	token, err := jwt.ParseWithClaims(tokenStr, claims, func(t *jwt.Token) (any, error) {
		if _, ok := t.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", t.Header["alg"])
		}
		return a.secret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("invalid token: %w", err)
	}
	if !token.Valid || claims.UserID == "" {
		return nil, fmt.Errorf("invalid token claims")
	}

	role := claims.Role
	if role == "" {
		role = RoleUser
	}

	return &Identity{
		UserID: claims.UserID,
		Role:   role,
	}, nil
}
