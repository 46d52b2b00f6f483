package server

import (
	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/gofiber/fiber/v2"
	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"

	"docgate/internal/store"
)

// DocumentPayload is the create/update body for documents.
type DocumentPayload struct {
	Title    string `json:"title"`
	GroupID  string `json:"group_id"`
	FileName string `json:"file_name"`
	FileSize int64  `json:"file_size"`
	Status   string `json:"status"`
	Summary  string `json:"summary"`
}

// Validate will run validation rules
func (p DocumentPayload) Validate() error {
	return validation.ValidateStruct(&p,
		validation.Field(&p.Title, validation.Required, validation.Length(1, 500)),
		validation.Field(&p.GroupID, is.UUID),
		validation.Field(&p.Status, validation.In(
			store.DocumentStatusPending,
			store.DocumentStatusProcessing,
			store.DocumentStatusReady,
			store.DocumentStatusFailed,
		)),
	)
}

// ListDocuments returns the user's documents, optionally scoped to a group.
func (s *Server) ListDocuments(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	var groupID *uuid.UUID
	if raw := c.Query("group_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			return errors.New("invalid group_id", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest)
		}
		groupID = &id
	}

	docs, err := s.documents.List(c.Context(), userID, groupID)
	if err != nil {
		return err
	}

	return c.JSON(fiber.Map{"documents": docs})
}

// GetDocument returns a single document the user owns.
func (s *Server) GetDocument(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	doc, err := s.documents.GetOwned(c.Context(), userID, id)
	if err != nil {
		return notFoundOr(err, "document not found")
	}

	return c.JSON(fiber.Map{"document": doc})
}

// CreateDocument registers an uploaded document's metadata.
func (s *Server) CreateDocument(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	payload := new(DocumentPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse document payload").
			WithCode(errors.CodeBadRequest)
	}

	if err := payload.Validate(); err != nil {
		return errors.Wrap(err, errors.CategoryValidation, "invalid document payload").
			WithCode(errors.CodeBadRequest)
	}

	record := &store.Document{
		UserID:   userID,
		Title:    payload.Title,
		FileName: payload.FileName,
		FileSize: payload.FileSize,
		Status:   payload.Status,
		Summary:  payload.Summary,
	}
	if payload.GroupID != "" {
		groupID, err := uuid.Parse(payload.GroupID)
		if err == nil {
			if _, err := s.groups.GetOwned(c.Context(), userID, groupID); err != nil {
				return notFoundOr(err, "group not found")
			}
			record.GroupID = &groupID
		}
	}

	doc, err := s.documents.CreateOwned(c.Context(), record)
	if err != nil {
		return err
	}

	return c.Status(fiber.StatusCreated).JSON(fiber.Map{"document": doc})
}

// UpdateDocument updates document metadata the user owns.
func (s *Server) UpdateDocument(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	payload := new(DocumentPayload)
	if err := c.BodyParser(payload); err != nil {
		return errors.Wrap(err, errors.CategoryBadInput, "failed to parse document payload").
			WithCode(errors.CodeBadRequest)
	}

	record := &store.Document{
		ID:       id,
		Title:    payload.Title,
		FileName: payload.FileName,
		FileSize: payload.FileSize,
		Status:   payload.Status,
		Summary:  payload.Summary,
	}

	columns := make([]string, 0, 6)
	if payload.Title != "" {
		columns = append(columns, "title")
	}
	if payload.FileName != "" {
		columns = append(columns, "file_name")
	}
	if payload.FileSize != 0 {
		columns = append(columns, "file_size")
	}
	if payload.Status != "" {
		if err := validation.Validate(payload.Status, validation.In(
			store.DocumentStatusPending,
			store.DocumentStatusProcessing,
			store.DocumentStatusReady,
			store.DocumentStatusFailed,
		)); err != nil {
			return errors.Wrap(err, errors.CategoryValidation, "invalid document status").
				WithCode(errors.CodeBadRequest)
		}
		columns = append(columns, "status")
	}
	if payload.Summary != "" {
		columns = append(columns, "summary")
	}
	if payload.GroupID != "" {
		groupID, err := uuid.Parse(payload.GroupID)
		if err != nil {
			return errors.New("invalid group_id", errors.CategoryBadInput).
				WithCode(errors.CodeBadRequest)
		}
		if _, err := s.groups.GetOwned(c.Context(), userID, groupID); err != nil {
			return notFoundOr(err, "group not found")
		}
		record.GroupID = &groupID
		columns = append(columns, "group_id")
	}

	if len(columns) == 0 {
		return errors.New("no fields to update", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	doc, err := s.documents.UpdateOwned(c.Context(), userID, record, columns...)
	if err != nil {
		return notFoundOr(err, "document not found")
	}

	return c.JSON(fiber.Map{"document": doc})
}

// DeleteDocument removes a document the user owns.
func (s *Server) DeleteDocument(c *fiber.Ctx) error {
	userID, err := currentUserID(c)
	if err != nil {
		return err
	}

	id, err := parseIDParam(c)
	if err != nil {
		return err
	}

	if err := s.documents.DeleteOwned(c.Context(), userID, id); err != nil {
		return notFoundOr(err, "document not found")
	}

	return c.JSON(fiber.Map{"success": true})
}

func currentUserID(c *fiber.Ctx) (uuid.UUID, error) {
	claims := SessionClaims(c)
	if claims == nil {
		return uuid.Nil, errors.New("missing session", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	id, err := uuid.Parse(claims.UserID())
	if err != nil {
		return uuid.Nil, errors.New("invalid session subject", errors.CategoryAuth).
			WithCode(errors.CodeUnauthorized)
	}

	return id, nil
}

func parseIDParam(c *fiber.Ctx) (uuid.UUID, error) {
	id, err := uuid.Parse(c.Params("id"))
	if err != nil {
		return uuid.Nil, errors.New("invalid id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}
	return id, nil
}

func notFoundOr(err error, message string) error {
	if repository.IsRecordNotFound(err) {
		return errors.New(message, errors.CategoryNotFound).
			WithCode(errors.CodeNotFound)
	}
	return err
}
