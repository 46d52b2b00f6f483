package store

import (
	"context"
	"time"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// SessionRepository tracks issued session tokens by their jti.
type SessionRepository struct {
	db *bun.DB
}

// NewSessionRepository creates a new repository.
func NewSessionRepository(db *bun.DB) *SessionRepository {
	return &SessionRepository{db: db}
}

// Record inserts a session row for a freshly issued token.
func (r *SessionRepository) Record(ctx context.Context, session *Session) error {
	if session.ID == uuid.Nil {
		session.ID = uuid.New()
	}
	if session.IssuedAt.IsZero() {
		session.IssuedAt = time.Now()
	}

	_, err := r.db.NewInsert().
		Model(session).
		Exec(ctx)
	return err
}

// FindByTokenID returns the session row for a token's jti.
func (r *SessionRepository) FindByTokenID(ctx context.Context, tokenID string) (*Session, error) {
	model := &Session{}
	err := r.db.NewSelect().
		Model(model).
		Where("?TableAlias.token_id = ?", tokenID).
		Limit(1).
		Scan(ctx)
	if err != nil {
		if repository.IsRecordNotFound(err) {
			return nil, repository.NewRecordNotFound().
				WithMetadata(map[string]any{
					"token_id": tokenID,
				})
		}
		return nil, err
	}

	return model, nil
}

// Touch updates the session's last-active timestamp.
func (r *SessionRepository) Touch(ctx context.Context, tokenID string, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("last_active_at = ?", at).
		Where("token_id = ?", tokenID).
		Exec(ctx)
	return err
}

// Revoke marks a session as revoked. Revocation is permanent; a revoked
// token stays rejected until it expires and the row is purged.
func (r *SessionRepository) Revoke(ctx context.Context, tokenID string, at time.Time) error {
	_, err := r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked = ?", true).
		Set("revoked_at = ?", at).
		Where("token_id = ?", tokenID).
		Exec(ctx)
	return err
}

// RevokeAllForUser revokes every live session a user holds.
func (r *SessionRepository) RevokeAllForUser(ctx context.Context, userID uuid.UUID, at time.Time) (int64, error) {
	res, err := r.db.NewUpdate().
		Model((*Session)(nil)).
		Set("revoked = ?", true).
		Set("revoked_at = ?", at).
		Where("user_id = ? AND revoked = ?", userID, false).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// ListAll returns sessions with their users, most recently active first.
func (r *SessionRepository) ListAll(ctx context.Context, includeExpired bool) ([]*Session, error) {
	var models []*Session
	q := r.db.NewSelect().
		Model(&models).
		Relation("User").
		Order("ses.last_active_at DESC", "ses.issued_at DESC")

	if !includeExpired {
		q.Where("?TableAlias.expires_at > ?", time.Now())
	}

	if err := q.Scan(ctx); err != nil {
		return nil, err
	}

	return models, nil
}

// PurgeExpired deletes session rows whose tokens have expired. Revoked rows
// also go once expired; the JWT's own expiry takes over at that point.
func (r *SessionRepository) PurgeExpired(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.NewDelete().
		Model((*Session)(nil)).
		Where("expires_at <= ?", now).
		Exec(ctx)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}
