package domain

// Role defines a user's global permission level
type Role string

const (
	RoleAdmin  Role = "admin"  // Super admin: bypasses cooldowns, sees full banks
	RoleMember Role = "member" // Regular authenticated user
)

// AuthContext contains authenticated user info for request context
type AuthContext struct {
	UserID string `json:"user_id"`
	Email  string `json:"email"`
	Role   Role   `json:"role"`
}

// IsAdmin checks if the authenticated user is a super admin
func (a *AuthContext) IsAdmin() bool {
	return a.Role == RoleAdmin
}

// TokenClaims represents the JWT token payload
type TokenClaims struct {
	UserID    string `json:"user_id"`
	Email     string `json:"email"`
	Role      Role   `json:"role"`
	IssuedAt  int64  `json:"iat"`
	ExpiresAt int64  `json:"exp"`
}

// Privilege is the caller's effective privilege for a single document,
// resolved once per request and passed explicitly into quiz operations.
type Privilege string

const (
	PrivilegeNone       Privilege = "none"
	PrivilegeOwnerAdmin Privilege = "owner_admin"
	PrivilegeSuperAdmin Privilege = "super_admin"
)

// Elevated reports whether the privilege bypasses cooldown and sampling limits
func (p Privilege) Elevated() bool {
	return p == PrivilegeOwnerAdmin || p == PrivilegeSuperAdmin
}

// Permission is the result of a permission check for a user against a
// document. Document is nil when the document does not exist.
type Permission struct {
	IsSuperAdmin bool      `json:"is_super_admin"`
	IsOwnerAdmin bool      `json:"is_owner_admin"`
	Document     *Document `json:"document,omitempty"`
}

// Privilege collapses the permission flags into a single privilege value
func (p *Permission) Privilege() Privilege {
	switch {
	case p.IsSuperAdmin:
		return PrivilegeSuperAdmin
	case p.IsOwnerAdmin:
		return PrivilegeOwnerAdmin
	default:
		return PrivilegeNone
	}
}
