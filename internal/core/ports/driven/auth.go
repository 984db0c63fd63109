package driven

import (
	"context"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
)

// TokenVerifier validates bearer credentials.
// Unauthenticated callers may still use read paths that allow anonymity.
type TokenVerifier interface {
	// Verify parses and validates a bearer token, returning the
	// authenticated context. Returns domain.ErrTokenExpired or
	// domain.ErrTokenInvalid on failure.
	Verify(ctx context.Context, token string) (*domain.AuthContext, error)
}

// PermissionChecker resolves a caller's effective privilege for a document
type PermissionChecker interface {
	// Check returns the permission flags for a user against a document
	// slug. The returned Permission's Document is nil when the document
	// does not exist. A nil authCtx means an anonymous caller.
	Check(ctx context.Context, authCtx *domain.AuthContext, slug string) (*domain.Permission, error)
}
