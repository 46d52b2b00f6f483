package auth_test

import (
	"testing"

	"docgate/internal/auth"
	"docgate/internal/store"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestAssembleClaimsProjectsStoredRecord(t *testing.T) {
	user := &store.User{
		ID:    uuid.New(),
		Email: "ada@example.com",
		Name:  "Ada Lovelace",
		Image: "https://example.com/ada.png",
	}

	claims := auth.AssembleClaims(user)

	assert.Equal(t, user.ID.String(), claims.ID)
	assert.Equal(t, "ada@example.com", claims.Email)
	assert.Equal(t, "Ada Lovelace", claims.Name)
	assert.Equal(t, "https://example.com/ada.png", claims.Picture)
}

func TestAssembleClaimsEmptyFieldsStayEmpty(t *testing.T) {
	user := &store.User{ID: uuid.New(), Email: "min@example.com"}

	claims := auth.AssembleClaims(user)

	assert.Equal(t, "min@example.com", claims.Email)
	assert.Empty(t, claims.Name)
	assert.Empty(t, claims.Picture)
}

func TestJWTClaimsUserIDFallsBackToSubject(t *testing.T) {
	claims := &auth.JWTClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "subject-id"},
	}
	assert.Equal(t, "subject-id", claims.UserID())

	claims.UID = "uid-field"
	assert.Equal(t, "uid-field", claims.UserID())
}

func TestJWTClaimsRoundTripToSessionClaims(t *testing.T) {
	original := auth.SessionClaims{
		ID:      uuid.New().String(),
		Email:   "ada@example.com",
		Name:    "Ada",
		Picture: "pic",
	}

	payload := &auth.JWTClaims{
		UID:     original.ID,
		Email:   original.Email,
		Name:    original.Name,
		Picture: original.Picture,
	}

	assert.Equal(t, original, payload.SessionClaims())
}
