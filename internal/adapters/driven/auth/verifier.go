package auth

import (
	"context"
	"errors"
	"fmt"

	"github.com/golang-jwt/jwt/v5"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Ensure Verifier implements TokenVerifier
var _ driven.TokenVerifier = (*Verifier)(nil)

// jwtClaims wraps domain.TokenClaims for JWT compatibility
type jwtClaims struct {
	UserID string      `json:"user_id"`
	Email  string      `json:"email"`
	Role   domain.Role `json:"role"`
	jwt.RegisteredClaims
}

// Verifier validates HMAC-signed bearer tokens issued by the identity
// service. This service only verifies tokens, it never issues them.
type Verifier struct {
	jwtSecret []byte
}

// NewVerifier creates a new token verifier with the given shared secret
func NewVerifier(jwtSecret string) *Verifier {
	return &Verifier{jwtSecret: []byte(jwtSecret)}
}

// Verify parses and validates a bearer token
func (v *Verifier) Verify(ctx context.Context, tokenString string) (*domain.AuthContext, error) {
	token, err := jwt.ParseWithClaims(tokenString, &jwtClaims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return v.jwtSecret, nil
	})

	if err != nil {
		if errors.Is(err, jwt.ErrTokenExpired) {
			return nil, domain.ErrTokenExpired
		}
		return nil, fmt.Errorf("%w: %v", domain.ErrTokenInvalid, err)
	}

	claims, ok := token.Claims.(*jwtClaims)
	if !ok || !token.Valid {
		return nil, domain.ErrTokenInvalid
	}
	if claims.UserID == "" {
		return nil, fmt.Errorf("%w: missing user_id claim", domain.ErrTokenInvalid)
	}

	role := claims.Role
	if role == "" {
		role = domain.RoleMember
	}

	return &domain.AuthContext{
		UserID: claims.UserID,
		Email:  claims.Email,
		Role:   role,
	}, nil
}
