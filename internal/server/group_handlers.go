package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"

	"docgate/internal/store"
)

// GroupPayload is the create/update body for groups.
type GroupPayload struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

// Validate will run validation rules
func (p GroupPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Name, validation.Required, validation.Length(1, 200)),
		validation.Field(&p.Description, validation.Length(0, 2000)),
	)
}

// ListGroups returns the user's groups with document counts.
func (s *Server) ListGroups(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	groups, err := s.groups.List(c.Context(), userID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"groups": groups})
}

// GetGroup returns a group with its documents.
func (s *Server) GetGroup(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	group, err := s.groups.GetOwned(c.Context(), userID, id)
	if err != nil {
		return notFoundOr(err, "group not found")
	}

	return c.JSON(fiber.Map{"group": group})
}

// CreateGroup creates a document group.
func (s *Server) CreateGroup(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	payload := new(GroupPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse group payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid group payload").
			WithCode(errors.CodeBadRequest)
	}

	group, err := s.groups.CreateOwned(c.Context(), &store.Group{
		UserID:      userID,
		Name:        payload.Name,
		Description: payload.Description,
	})
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"group": group})
}

// UpdateGroup updates a group's name or description.
func (s *Server) UpdateGroup(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	payload := new(GroupPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse group payload").
			WithCode(errors.CodeBadRequest)
	}

	columns := make([]string, 0, 2)
	if payload.Name != "" {
		columns = append(columns, "name")
	}
	if payload.Description != "" {
		columns = append(columns, "description")
	}
	if len(columns) == 0 {
		return errors.New("no fields to update", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	group, err := s.groups.UpdateOwned(c.Context(), userID, &store.Group{
		ID:          id,
		Name:        payload.Name,
		Description: payload.Description,
	}, columns...)
	if err != nil {
		return notFoundOr(err, "group not found")
	}

	return c.JSON(fiber.Map{"group": group})
}

// DeleteGroup removes a group; its documents survive as ungrouped.
func (s *Server) DeleteGroup(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.groups.DeleteOwned(c.Context(), userID, id); err != nil {
		return notFoundOr(err, "group not found")
	}

	return c.JSON(fiber.Map{"success": true})
}
