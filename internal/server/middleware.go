package server

import (
	"strings"

	"docgate/internal/auth"
	"docgate/internal/store"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

const claimsKey = "claims"

// RequireSession validates the session token from the cookie or the bearer
// header and stores the claims in the request locals.
func (s *Server) RequireSession(c *fiber.Ctx) error {
	token := s.sessionToken(c)
	if token == "" {
		return errors.New("missing session token", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	claims, err := s.authenticator.ValidateSession(c.Context(), token)
	if err != nil {
		return err
	}

	c.Locals(claimsKey, claims)
	return c.Next()
}

// RequireAdmin checks the user's role against the database, not the token, so
// demotions take effect on the next request rather than at token expiry.
func (s *Server) RequireAdmin(c *fiber.Ctx) error {
	claims := SessionClaims(c)
	if claims == nil {
		return errors.New("missing session", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return errors.New("invalid session subject", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	user, err := s.users.GetByID(c.Context(), id)
	if err != nil {
		return errors.New("admin access required", errors.CategoryAuth).
			WithCode(errors.CodeForbidden)
	}

	if user.Role != store.RoleAdmin {
		return errors.New("admin access required", errors.CategoryAuth).
			WithCode(errors.CodeForbidden)
	}

	return c.Next()
}

// SessionClaims returns the validated claims stored by RequireSession.
func SessionClaims(c *fiber.Ctx) *auth.JWTClaims {
	claims, _ := c.Locals(claimsKey).(*auth.JWTClaims)
	return claims
}

func (s *Server) sessionToken(c *fiber.Ctx) string {
	if cookie := c.Cookies(s.cfg.CookieName); cookie != "" {
		return cookie
	}

	header := c.Get(fiber.HeaderAuthorization)
	if strings.HasPrefix(header, "Bearer ") {
		return strings.TrimPrefix(header, "Bearer ")
	}

	return ""
}

// clientKey buckets rate-limit attempts by the first forwarded address.
// Requests with no forwarding header share the unknown bucket.
func clientKey(c *fiber.Ctx) string {
	forwarded := c.Get("X-Forwarded-For")
	if forwarded == "" {
		return auth.UnknownClientKey
	}

	if idx := strings.Index(forwarded, ","); idx >= 0 {
		forwarded = forwarded[:idx]
	}

	key := strings.TrimSpace(forwarded)
	if key == "" {
		return auth.UnknownClientKey
	}

	return key
}
