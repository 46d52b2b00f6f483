package server

import (
	stderrors "errors"
	"net/url"
	"time"

	"docgate/internal/auth"

	"github.com/gofiber/fiber/v2"
)

// BeginAuth redirects the client to the provider's authorization page.
func (s *Server) BeginAuth(c *fiber.Ctx) error {
	provider := c.Params("provider")
	redirectURL := c.Query("redirect", "/")

	result, err := s.authenticator.Begin(c.Context(), provider, redirectURL)
	if err != nil {
		return s.redirectWithError(c, err)
	}

	return c.Redirect(result.URL, fiber.StatusTemporaryRedirect)
}

// AuthCallback completes the sign-in after the provider round trip. Failures
// never surface as API errors here; the client always lands on the error page
// with a coarse code.
func (s *Server) AuthCallback(c *fiber.Ctx) error {
	provider := c.Params("provider")
	code := c.Query("code")
	state := c.Query("state")

	if code == "" || state == "" {
		return s.redirectWithError(c, auth.ErrInvalidState)
	}

	result, err := s.authenticator.Complete(c.Context(), provider, code, state, clientKey(c))
	if err != nil {
		s.logger.Info("sign-in failed via %s: %v", provider, err)
		return s.redirectWithError(c, err)
	}

	s.setSessionCookie(c, result.Token)

	target := result.RedirectURL
	if target == "" {
		target = "/"
	}
	if result.IsNewUser {
		u, err := url.Parse(target)
		if err == nil {
			q := u.Query()
			q.Set("new_user", "true")
			u.RawQuery = q.Encode()
			target = u.String()
		}
	}

	return c.Redirect(target, fiber.StatusSeeOther)
}

// Logout revokes the current session and clears the cookie.
func (s *Server) Logout(c *fiber.Ctx) error {
	if token := s.sessionToken(c); token != "" {
		if err := s.authenticator.Logout(c.Context(), token); err != nil {
			s.logger.Error("failed to revoke session on logout: %v", err)
		}
	}

	s.clearSessionCookie(c)
	return c.JSON(fiber.Map{"success": true})
}

// Me returns fresh session claims projected from the stored user record.
func (s *Server) Me(c *fiber.Ctx) error {
	claims := SessionClaims(c)

	fresh, err := s.authenticator.RefreshClaims(c.Context(), claims.UserID())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{
		"user": fresh,
		"role": claims.Role,
	})
}

func (s *Server) redirectWithError(c *fiber.Ctx, err error) error {
	code := auth.ErrorPageCode(err)

	var conflict *auth.ConflictError
	target := "/error?error=" + code
	if stderrors.As(err, &conflict) && conflict.Provider != "" {
		target += "&provider=" + url.QueryEscape(conflict.Provider)
	}

	return c.Redirect(target, fiber.StatusSeeOther)
}

func (s *Server) setSessionCookie(c *fiber.Ctx, token string) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    token,
		Path:     "/",
		Expires:  time.Now().Add(s.authenticator.TokenTTL()),
		HTTPOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}

func (s *Server) clearSessionCookie(c *fiber.Ctx) {
	c.Cookie(&fiber.Cookie{
		Name:     s.cfg.CookieName,
		Value:    "",
		Path:     "/",
		Expires:  time.Now().Add(-time.Hour),
		HTTPOnly: true,
		Secure:   s.cfg.CookieSecure,
		SameSite: fiber.CookieSameSiteLaxMode,
	})
}
