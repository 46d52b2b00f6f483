package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	"github.com/google/uuid"

	"docgate/internal/search"
)

// SearchPayload is the query body forwarded to the search backend.
type SearchPayload struct {
	Query   string         `json:"query"`
	GroupID string         `json:"group_id"`
	Filters map[string]any `json:"filters"`
}

// Validate will run validation rules
func (p SearchPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Query, validation.Required, validation.Length(1, 2000)),
		validation.Field(&p.GroupID, is.UUID),
	)
}

// Search proxies a query to the search backend, scoped to the signed-in
// user's documents.
func (s *Server) Search(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	payload := new(SearchPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse search payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid search payload").
			WithCode(errors.CodeBadRequest)
	}

	if payload.GroupID != "" {
		groupID, err := uuid.Parse(payload.GroupID)
		if err == nil {
			if _, err := s.groups.GetOwned(c.Context(), userID, groupID); err != nil {
				return notFoundOr(err, "group not found")
			}
		}
	}

	result, err := s.search.Search(c.Context(), search.Request{
		Query:        payload.Query,
		UserID:       userID.String(),
		GroupID:      payload.GroupID,
		Filters:      payload.Filters,
		Rerank:       true,
		EnableFusion: true,
	})
	if err != nil {
		s.logger.Error("search failed for user %s: %v", userID, err)
		return errors.New("search is temporarily unavailable", errors.CategoryOperation).
			WithCode(errors.CodeInternal)
	}

	return c.JSON(result)
}

// Health reports liveness, including the search backend's reachability. The
// server stays healthy when the backend is down; searches degrade, sign-in
// and CRUD do not.
func (s *Server) Health(c *fiber.Ctx) error {
	status := fiber.Map{
		"status": "ok",
	}

	if s.search != nil {
		if err := s.search.Health(c.Context()); err != nil {
			status["search_backend"] = "unreachable"
		} else {
			status["search_backend"] = "ok"
		}
	}

	return c.JSON(status)
}
