package store

import (
	"context"
	"database/sql"
	stderrors "errors"
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// LinkedAccountRepository stores provider linkage rows using Bun.
type LinkedAccountRepository struct {
	db *bun.DB
}

// NewLinkedAccountRepository creates a new repository.
func NewLinkedAccountRepository(db *bun.DB) *LinkedAccountRepository {
	return &LinkedAccountRepository{db: db}
}

// FindByUserID returns the user's linked accounts ordered by creation time,
// earliest first. The first row is the canonical provider.
func (r *LinkedAccountRepository) FindByUserID(ctx context.Context, userID uuid.UUID) ([]*LinkedAccount, error) {
	var models []*LinkedAccount
	err := r.db.NewSelect().
		Model(&models).
		Where("?TableAlias.user_id = ?", userID).
		Order("lacc.created_at ASC").
		Scan(ctx)
	if err != nil {
		if stderrors.Is(err, sql.ErrNoRows) {
			return []*LinkedAccount{}, nil
		}
		return nil, err
	}

	return models, nil
}

// FindByProviderID returns the linkage row for a provider identity.
func (r *LinkedAccountRepository) FindByProviderID(ctx context.Context, provider, providerUserID string) (*LinkedAccount, error) {
	model := &LinkedAccount{}
	err := r.db.NewSelect().
		Model(model).
		Where("?TableAlias.provider = ? AND ?TableAlias.provider_user_id = ?", provider, providerUserID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		return nil, err
	}

	return model, nil
}

// Upsert inserts a linkage row, updating the mutable profile fields when the
// provider identity already exists.
func (r *LinkedAccountRepository) Upsert(ctx context.Context, account *LinkedAccount) error {
	if account.ID == uuid.Nil {
		account.ID = uuid.New()
	}
	account.UpdatedAt = time.Now()

	_, err := r.db.NewInsert().
		Model(account).
		On("CONFLICT (provider, provider_user_id) DO UPDATE").
		Set("user_id = EXCLUDED.user_id").
		Set("email = EXCLUDED.email").
		Set("avatar_url = EXCLUDED.avatar_url").
		Set("updated_at = EXCLUDED.updated_at").
		Exec(ctx)

	return err
}

// DeleteByUserAndProvider removes a provider linkage for a user.
func (r *LinkedAccountRepository) DeleteByUserAndProvider(ctx context.Context, userID uuid.UUID, provider string) error {
	_, err := r.db.NewDelete().
		Model((*LinkedAccount)(nil)).
		Where("user_id = ? AND provider = ?", userID, provider).
		Exec(ctx)
	return err
}
