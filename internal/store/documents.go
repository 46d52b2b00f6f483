package store

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Documents is the document metadata repository. Every read and write is
// scoped to the owning user.
type Documents interface {
	repository.Repository[*Document]

	List(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) ([]*Document, error)
	GetOwned(ctx context.Context, userID, id uuid.UUID) (*Document, error)
	CreateOwned(ctx context.Context, record *Document) (*Document, error)
	UpdateOwned(ctx context.Context, userID uuid.UUID, record *Document, columns ...string) (*Document, error)
	DeleteOwned(ctx context.Context, userID, id uuid.UUID) error
}

type documents struct {
	repository.Repository[*Document]
	db *bun.DB
}

var _ Documents = (*documents)(nil)

// NewDocumentsRepository creates the document repository.
func NewDocumentsRepository(db *bun.DB) Documents {
	repo := repository.NewRepository[*Document](db, repository.ModelHandlers[*Document]{
		NewRecord: func() *Document { return &Document{} },
		GetID: func(d *Document) uuid.UUID {
			if d == nil {
				return uuid.Nil
			}
			return d.ID
		},
		SetID: func(d *Document, id uuid.UUID) {
			if d != nil {
				d.ID = id
			}
		},
	})

	return &documents{
		Repository: repo,
		db:         db,
	}
}

// List returns the user's documents, newest upload first. A non-nil groupID
// narrows the list to one group.
func (r *documents) List(ctx context.Context, userID uuid.UUID, groupID *uuid.UUID) ([]*Document, error) {
	var models []*Document
	q := r.db.NewSelect().
		Model(&models).
		Where("?TableAlias.user_id = ?", userID).
		Order("doc.uploaded_at DESC")

	if groupID != nil {
		q.Where("?TableAlias.group_id = ?", *groupID)
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return models, nil
}

// GetOwned returns the document only if the user owns it.
func (r *documents) GetOwned(ctx context.Context, userID, id uuid.UUID) (*Document, error) {
	record := &Document{}
	err := r.db.NewSelect().
		Model(record).
		Where("?TableAlias.id = ? AND ?TableAlias.user_id = ?", id, userID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"id": id.String(),
				})
		}
		return nil, err
	}

	return record, nil
}

// CreateOwned inserts a document record with defaults applied.
func (r *documents) CreateOwned(ctx context.Context, record *Document) (*Document, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	if record.Status == "" {
		record.Status = DocumentStatusPending
	}

	return r.Repository.Create(ctx, record)
}

// UpdateOwned updates the named columns of a document the user owns.
func (r *documents) UpdateOwned(ctx context.Context, userID uuid.UUID, record *Document, columns ...string) (*Document, error) {
	if _, err := r.GetOwned(ctx, userID, record.ID); err != nil {
		return nil, err
	}

	q := r.db.NewUpdate().
		Model(record).
		Where("?TableAlias.id = ? AND ?TableAlias.user_id = ?", record.ID, userID)

	if len(columns) > 0 {
		q.Column(columns...)
	} else {
		q.OmitZero()
	}

	if _, err := q.Exec(ctx); err != nil {
		return nil, err
	}

	return r.GetOwned(ctx, userID, record.ID)
}

// DeleteOwned removes a document the user owns.
func (r *documents) DeleteOwned(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := r.GetOwned(ctx, userID, id); err != nil {
		return err
	}

	_, err := r.db.NewDelete().
		Model((*Document)(nil)).
		Where("id = ? AND user_id = ?", id, userID).
		Exec(ctx)
	return err
}
