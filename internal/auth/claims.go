package auth

import (
	"time"

	"docgate/internal/store"

	"github.com/golang-jwt/jwt/v5"
)

// SessionClaims are the identity fields embedded in an issued session token.
// They are a transient projection of the stored user record and live only as
// long as the token that carries them.
type SessionClaims struct {
	ID      string `json:"id"`
	Email   string `json:"email"`
	Name    string `json:"name"`
	Picture string `json:"picture"`
}

// AssembleClaims projects a stored user record into session claims. The
// projection is pure: it reads only the record it is given, so callers that
// need current values must pass a freshly loaded user.
func AssembleClaims(user *store.User) SessionClaims {
	return SessionClaims{
		ID:      user.ID.String(),
		Email:   user.Email,
		Name:    user.Name,
		Picture: user.Image,
	}
}

// JWTClaims is the token payload: registered claims plus the session identity
// fields and the user's role.
type JWTClaims struct {
	jwt.RegisteredClaims
	UID     string `json:"uid,omitempty"`
	Email   string `json:"email,omitempty"`
	Name    string `json:"name,omitempty"`
	Picture string `json:"picture,omitempty"`
	Role    string `json:"role,omitempty"`
}

// UserID returns the user identifier carried by the token.
func (c *JWTClaims) UserID() string {
	if c.UID != "" {
		return c.UID
	}
	return c.RegisteredClaims.Subject
}

// SessionClaims projects the token payload back into session claims.
func (c *JWTClaims) SessionClaims() SessionClaims {
	return SessionClaims{
		ID:      c.UserID(),
		Email:   c.Email,
		Name:    c.Name,
		Picture: c.Picture,
	}
}

// Expires returns the expiration time, or the zero time when absent.
func (c *JWTClaims) Expires() time.Time {
	if c.RegisteredClaims.ExpiresAt != nil {
		return c.RegisteredClaims.ExpiresAt.Time
	}
	return time.Time{}
}

// TokenID returns the jti claim used to key the session registry.
func (c *JWTClaims) TokenID() string {
	return c.RegisteredClaims.ID
}
