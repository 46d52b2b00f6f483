package server

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
)

// ListSessions returns the session registry with user records attached.
func (s *Server) ListSessions(c *fiber.Ctx) error {
	includeExpired := c.QueryBool("include_expired", false)

	sessions, err := s.sessions.ListAll(c.Context(), includeExpired)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"sessions": sessions})
}

// RevokeSession revokes a session by its token id. The bearer is locked out
// on their next request.
func (s *Server) RevokeSession(c *fiber.Ctx) error {
	tokenID := c.Params("tokenID")
	if tokenID == "" {
		return errors.New("missing token id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	if _, err := s.sessions.FindByTokenID(c.Context(), tokenID); err != nil {
		if repository.IsRecordNotFound(err) {
			return errors.New("session not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound)
		}
		return err
	}

	if err := s.sessions.Revoke(c.Context(), tokenID, time.Now()); err != nil {
		return err
	}

	return c.JSON(fiber.Map{"success": true})
}

// RevokeUserSessions revokes every live session a user holds, typically
// right after blocking the account.
func (s *Server) RevokeUserSessions(c *fiber.Ctx) error {
	userID, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if _, err := s.users.GetByID(c.Context(), userID); err != nil {
		return notFoundOr(err, "user not found")
	}

	revoked, err := s.sessions.RevokeAllForUser(c.Context(), userID, time.Now())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"revoked": revoked})
}

// PurgeSessions deletes expired registry rows.
func (s *Server) PurgeSessions(c *fiber.Ctx) error {
	purged, err := s.sessions.PurgeExpired(c.Context(), time.Now())
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"purged": purged})
}
