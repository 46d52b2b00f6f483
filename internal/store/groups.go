package store

import (
	"context"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// Groups is the document group repository, scoped to the owning user like
// Documents.
type Groups interface {
	repository.Repository[*Group]

	List(ctx context.Context, userID uuid.UUID) ([]*Group, error)
	GetOwned(ctx context.Context, userID, id uuid.UUID) (*Group, error)
	CreateOwned(ctx context.Context, record *Group) (*Group, error)
	UpdateOwned(ctx context.Context, userID uuid.UUID, record *Group, columns ...string) (*Group, error)
	DeleteOwned(ctx context.Context, userID, id uuid.UUID) error
}

type groups struct {
	repository.Repository[*Group]
	db        *bun.DB
	documents Documents
}

var _ Groups = (*groups)(nil)

// NewGroupsRepository creates the group repository. The documents repository
// is used to hydrate a group's document list on detail reads.
func NewGroupsRepository(db *bun.DB, documents Documents) Groups {
	repo := repository.NewRepository[*Group](db, repository.ModelHandlers[*Group]{
		NewRecord: func() *Group { return &Group{} },
		GetID: func(g *Group) uuid.UUID {
			if g == nil {
				return uuid.Nil
			}
			return g.ID
		},
		SetID: func(g *Group, id uuid.UUID) {
			if g != nil {
				g.ID = id
			}
		},
	})

	return &groups{
		Repository: repo,
		db:         db,
		documents:  documents,
	}
}

// List returns the user's groups with document counts, most recently updated
// first.
func (r *groups) List(ctx context.Context, userID uuid.UUID) ([]*Group, error) {
	var models []*Group
	err := r.db.NewSelect().
		Model(&models).
		ColumnExpr("grp.*").
		ColumnExpr("(SELECT count(*) FROM documents AS doc WHERE doc.group_id = grp.id) AS document_count").
		Where("?TableAlias.user_id = ?", userID).
		Order("grp.updated_at DESC").
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return models, nil
}

// GetOwned returns the group with its documents, only if the user owns it.
func (r *groups) GetOwned(ctx context.Context, userID, id uuid.UUID) (*Group, error) {
	record := &Group{}
	err := r.db.NewSelect().
		Model(record).
		ColumnExpr("grp.*").
		ColumnExpr("(SELECT count(*) FROM documents AS doc WHERE doc.group_id = grp.id) AS document_count").
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

	docs, err := r.documents.List(ctx, userID, &record.ID)
	if err != nil {
		return nil, err
	}
	record.Documents = docs

	return record, nil
}

// CreateOwned inserts a group record.
func (r *groups) CreateOwned(ctx context.Context, record *Group) (*Group, error) {
	if record.ID == uuid.Nil {
		record.ID = uuid.New()
	}
	return r.Repository.Create(ctx, record)
}

// UpdateOwned updates the named columns of a group the user owns.
func (r *groups) UpdateOwned(ctx context.Context, userID uuid.UUID, record *Group, columns ...string) (*Group, error) {
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

// DeleteOwned removes a group the user owns. Documents keep their rows; the
// group reference is cleared so they fall back to ungrouped.
func (r *groups) DeleteOwned(ctx context.Context, userID, id uuid.UUID) error {
	if _, err := r.GetOwned(ctx, userID, id); err != nil {
		return err
	}

	if _, err := r.db.NewUpdate().
		Model((*Document)(nil)).
		Set("group_id = NULL").
		Where("group_id = ? AND user_id = ?", id, userID).
		Exec(ctx); err != nil {
		return err
	}

	_, err := r.db.NewDelete().
		Model((*Group)(nil)).
		Where("id = ? AND user_id = ?", id, userID).
		Exec(ctx)
	return err
}
