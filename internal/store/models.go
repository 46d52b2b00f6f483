package store

import (
	"time"

	"github.com/google/uuid"
	"github.com/uptrace/bun"
)

// UserRole is the user's global role.
type UserRole = string

const (
	// RoleMember is the default role for signed-up users.
	RoleMember UserRole = "member"
	// RoleAdmin grants access to the admin surface.
	RoleAdmin UserRole = "admin"
)

// User is the account record backing sign-in and session claims.
type User struct {
	bun.BaseModel `bun:"table:users,alias:usr"`

	ID        uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	Email     string     `bun:"email,notnull,unique" json:"email,omitempty"`
	Name      string     `bun:"name" json:"name,omitempty"`
	Image     string     `bun:"image" json:"image,omitempty"`
	Blocked   bool       `bun:"blocked,notnull,default:false" json:"blocked,omitempty"`
	Role      UserRole   `bun:"role,notnull" json:"role,omitempty"`
	CreatedAt *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// LinkedAccount records an identity provider associated with a user. The
// earliest row per user is the canonical provider for conflict detection.
type LinkedAccount struct {
	bun.BaseModel `bun:"table:linked_accounts,alias:lacc"`

	ID             uuid.UUID `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID         uuid.UUID `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Provider       string    `bun:"provider,notnull" json:"provider,omitempty"`
	ProviderUserID string    `bun:"provider_user_id,notnull" json:"provider_user_id,omitempty"`
	Email          string    `bun:"email" json:"email,omitempty"`
	AvatarURL      string    `bun:"avatar_url" json:"avatar_url,omitempty"`
	CreatedAt      time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt      time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Document statuses as reported by the ingestion backend.
const (
	DocumentStatusPending    = "pending"
	DocumentStatusProcessing = "processing"
	DocumentStatusReady      = "ready"
	DocumentStatusFailed     = "failed"
)

// Document is the metadata record for an uploaded document. The content and
// its embeddings live in the external search backend; this row only tracks
// ownership and ingestion status.
type Document struct {
	bun.BaseModel `bun:"table:documents,alias:doc"`

	ID         uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID     uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	GroupID    *uuid.UUID `bun:"group_id,nullzero,type:uuid" json:"group_id,omitempty"`
	Title      string     `bun:"title,notnull" json:"title,omitempty"`
	FileName   string     `bun:"file_name" json:"file_name,omitempty"`
	FileSize   int64      `bun:"file_size" json:"file_size,omitempty"`
	FilePath   string     `bun:"file_path" json:"file_path,omitempty"`
	Status     string     `bun:"status" json:"status,omitempty"`
	Summary    string     `bun:"summary" json:"summary,omitempty"`
	PageCount  int        `bun:"page_count" json:"page_count,omitempty"`
	UploadedAt *time.Time `bun:"uploaded_at,nullzero,default:current_timestamp" json:"uploaded_at,omitempty"`
	UpdatedAt  *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`
}

// Group is a user-owned collection of documents.
type Group struct {
	bun.BaseModel `bun:"table:groups,alias:grp"`

	ID          uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID      uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	Name        string     `bun:"name,notnull" json:"name,omitempty"`
	Description string     `bun:"description" json:"description,omitempty"`
	CreatedAt   *time.Time `bun:"created_at,nullzero,default:current_timestamp" json:"created_at,omitempty"`
	UpdatedAt   *time.Time `bun:"updated_at,nullzero,default:current_timestamp" json:"updated_at,omitempty"`

	DocumentCount int         `bun:"document_count,scanonly" json:"document_count"`
	Documents     []*Document `bun:"-" json:"documents,omitempty"`
}

// Session is the registry row for an issued token, kept so administrators
// can inspect and revoke active sessions. The token itself is the JWT; this
// row only mirrors its lifecycle.
type Session struct {
	bun.BaseModel `bun:"table:sessions,alias:ses"`

	ID           uuid.UUID  `bun:"id,pk,nullzero,type:uuid" json:"id,omitempty"`
	UserID       uuid.UUID  `bun:"user_id,notnull,type:uuid" json:"user_id,omitempty"`
	TokenID      string     `bun:"token_id,notnull,unique" json:"token_id,omitempty"`
	IssuedAt     time.Time  `bun:"issued_at,nullzero,default:current_timestamp" json:"issued_at,omitempty"`
	ExpiresAt    time.Time  `bun:"expires_at,notnull" json:"expires_at,omitempty"`
	LastActiveAt *time.Time `bun:"last_active_at,nullzero" json:"last_active_at,omitempty"`
	Revoked      bool       `bun:"revoked,notnull,default:false" json:"revoked"`
	RevokedAt    *time.Time `bun:"revoked_at,nullzero" json:"revoked_at,omitempty"`

	User *User `bun:"rel:belongs-to,join:user_id=id" json:"user,omitempty"`
}
