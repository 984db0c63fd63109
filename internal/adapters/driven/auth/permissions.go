package auth

import (
	"context"
	"errors"

	"github.com/custodia-labs/docquiz-core/internal/core/domain"
	"github.com/custodia-labs/docquiz-core/internal/core/ports/driven"
)

// Ensure PermissionChecker implements the port
var _ driven.PermissionChecker = (*PermissionChecker)(nil)

// PermissionChecker resolves a caller's effective privilege for a document.
// Super admins are recognized by role; owner admins by document ownership.
type PermissionChecker struct {
	documents driven.DocumentStore
}

// NewPermissionChecker creates a new permission checker
func NewPermissionChecker(documents driven.DocumentStore) *PermissionChecker {
	return &PermissionChecker{documents: documents}
}

// Check returns the permission flags for a user against a document slug.
// A nil authCtx means an anonymous caller: no elevated flags, but the
// document is still resolved so read paths can proceed.
func (c *PermissionChecker) Check(ctx context.Context, authCtx *domain.AuthContext, slug string) (*domain.Permission, error) {
	perm := &domain.Permission{}

	doc, err := c.documents.GetBySlug(ctx, slug)
	if err != nil {
		if errors.Is(err, domain.ErrNotFound) {
			return perm, nil
		}
		return nil, err
	}
	perm.Document = doc

	if authCtx == nil {
		return perm, nil
	}

	perm.IsSuperAdmin = authCtx.IsAdmin()
	perm.IsOwnerAdmin = doc.OwnerID == authCtx.UserID

	return perm, nil
}
