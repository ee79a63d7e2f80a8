package auth

import "github.com/golang-jwt/jwt/v5"

// TokenPayload captures the data available when minting a JWT.
type TokenPayload struct {
	UserID string
	Email  string
}

// TokenClaims represents the JWT issued by the storefront auth service. The
// same token is forwarded unchanged to the remote services.
type TokenClaims struct {
	UserID string `json:"user_id,omitempty"`
	Email  string `json:"email,omitempty"`
	jwt.RegisteredClaims
}

// Actor returns the user id, falling back to the standard subject claim.
func (c *TokenClaims) Actor() string {
	if c.UserID != "" {
		return c.UserID
	}
	return c.Subject
}
