package auth

import (
	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

// Role scopes what an access token may do against the settlement API.
type Role string

const (
	// RoleAdmin may accept/reject sales and mark payments paid.
	RoleAdmin Role = "admin"
	// RoleImporter is used by network import adapters to report sales.
	RoleImporter Role = "importer"
	// RolePayout is used by payout tooling to read and settle payments.
	RolePayout Role = "payout"
)

var validRoles = []Role{RoleAdmin, RoleImporter, RolePayout}

// IsValid reports whether the value is a known Role.
func (r Role) IsValid() bool {
	for _, candidate := range validRoles {
		if candidate == r {
			return true
		}
	}
	return false
}

// AccessTokenPayload captures the data available when minting a JWT.
type AccessTokenPayload struct {
	UserID uuid.UUID
	Role   Role
	JTI    string
}

// AccessTokenClaims represents the typed JWT issued to API clients.
type AccessTokenClaims struct {
	UserID uuid.UUID `json:"user_id"`
	Role   Role      `json:"role"`
	jwt.RegisteredClaims
}
