package store_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"docgate/internal/store"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/uptrace/bun"
)

var dbCounter int

func testDB(t *testing.T) *bun.DB {
	t.Helper()

	dbCounter++
	dsn := fmt.Sprintf("file:store_test_%d?mode=memory&cache=shared", dbCounter)

	db, err := store.Open(dsn)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })

	require.NoError(t, store.Migrate(db))
	return db
}

func seedUser(t *testing.T, users store.Users, email string) *store.User {
	t.Helper()
	user, err := users.GetOrCreate(context.Background(), &store.User{Email: email})
	require.NoError(t, err)
	return user
}

func TestUsersGetOrCreateAppliesDefaults(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)

	user, err := users.GetOrCreate(context.Background(), &store.User{
		Email: "ada@example.com",
		Name:  "Ada",
	})
	require.NoError(t, err)

	assert.NotEqual(t, uuid.Nil, user.ID)
	assert.Equal(t, store.RoleMember, user.Role)

	again, err := users.GetOrCreate(context.Background(), &store.User{Email: "ada@example.com"})
	require.NoError(t, err)
	assert.Equal(t, user.ID, again.ID, "second call returns the existing record")
}

func TestUsersGetByEmailExactMatch(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	seedUser(t, users, "ada@example.com")

	found, err := users.GetByEmail(context.Background(), "ada@example.com")
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", found.Email)

	// Lookup is exact; a case variant is a different identity.
	_, err = users.GetByEmail(context.Background(), "Ada@Example.com")
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestUsersSetBlocked(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	user := seedUser(t, users, "ada@example.com")

	updated, err := users.SetBlocked(context.Background(), user.ID, true)
	require.NoError(t, err)
	assert.True(t, updated.Blocked)

	updated, err = users.SetBlocked(context.Background(), user.ID, false)
	require.NoError(t, err)
	assert.False(t, updated.Blocked)
}

func TestLinkedAccountsEarliestFirst(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	accounts := store.NewLinkedAccountRepository(db)
	user := seedUser(t, users, "ada@example.com")

	first := &store.LinkedAccount{
		UserID:         user.ID,
		Provider:       "github",
		ProviderUserID: "gh-1",
		CreatedAt:      time.Now().Add(-time.Hour),
	}
	second := &store.LinkedAccount{
		UserID:         user.ID,
		Provider:       "google",
		ProviderUserID: "g-1",
		CreatedAt:      time.Now(),
	}

	require.NoError(t, accounts.Upsert(context.Background(), second))
	require.NoError(t, accounts.Upsert(context.Background(), first))

	linked, err := accounts.FindByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, linked, 2)
	assert.Equal(t, "github", linked[0].Provider, "earliest linkage comes first")
}

func TestLinkedAccountsUpsertIsIdempotent(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	accounts := store.NewLinkedAccountRepository(db)
	user := seedUser(t, users, "ada@example.com")

	account := &store.LinkedAccount{
		UserID:         user.ID,
		Provider:       "github",
		ProviderUserID: "gh-1",
		Email:          "old@example.com",
	}
	require.NoError(t, accounts.Upsert(context.Background(), account))

	require.NoError(t, accounts.Upsert(context.Background(), &store.LinkedAccount{
		UserID:         user.ID,
		Provider:       "github",
		ProviderUserID: "gh-1",
		Email:          "new@example.com",
	}))

	linked, err := accounts.FindByUserID(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, linked, 1)
	assert.Equal(t, "new@example.com", linked[0].Email)
}

func TestSessionsRevokeAndPurge(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	sessions := store.NewSessionRepository(db)
	user := seedUser(t, users, "ada@example.com")

	live := &store.Session{
		UserID:    user.ID,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	expired := &store.Session{
		UserID:    user.ID,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(-time.Hour),
	}
	require.NoError(t, sessions.Record(context.Background(), live))
	require.NoError(t, sessions.Record(context.Background(), expired))

	require.NoError(t, sessions.Revoke(context.Background(), live.TokenID, time.Now()))

	found, err := sessions.FindByTokenID(context.Background(), live.TokenID)
	require.NoError(t, err)
	assert.True(t, found.Revoked)
	assert.NotNil(t, found.RevokedAt)

	purged, err := sessions.PurgeExpired(context.Background(), time.Now())
	require.NoError(t, err)
	assert.EqualValues(t, 1, purged)

	_, err = sessions.FindByTokenID(context.Background(), expired.TokenID)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))
}

func TestSessionsTouch(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	sessions := store.NewSessionRepository(db)
	user := seedUser(t, users, "ada@example.com")

	session := &store.Session{
		UserID:    user.ID,
		TokenID:   uuid.NewString(),
		ExpiresAt: time.Now().Add(time.Hour),
	}
	require.NoError(t, sessions.Record(context.Background(), session))

	at := time.Now()
	require.NoError(t, sessions.Touch(context.Background(), session.TokenID, at))

	found, err := sessions.FindByTokenID(context.Background(), session.TokenID)
	require.NoError(t, err)
	require.NotNil(t, found.LastActiveAt)
}

func TestDocumentsOwnerScoping(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	documents := store.NewDocumentsRepository(db)

	owner := seedUser(t, users, "owner@example.com")
	other := seedUser(t, users, "other@example.com")

	doc, err := documents.CreateOwned(context.Background(), &store.Document{
		UserID: owner.ID,
		Title:  "Private",
	})
	require.NoError(t, err)
	assert.Equal(t, store.DocumentStatusPending, doc.Status)

	_, err = documents.GetOwned(context.Background(), other.ID, doc.ID)
	require.Error(t, err)
	assert.True(t, repository.IsRecordNotFound(err))

	list, err := documents.List(context.Background(), owner.ID, nil)
	require.NoError(t, err)
	assert.Len(t, list, 1)

	list, err = documents.List(context.Background(), other.ID, nil)
	require.NoError(t, err)
	assert.Empty(t, list)
}

func TestGroupsCountAndUngroupOnDelete(t *testing.T) {
	db := testDB(t)
	users := store.NewUsersRepository(db)
	documents := store.NewDocumentsRepository(db)
	groups := store.NewGroupsRepository(db, documents)

	user := seedUser(t, users, "ada@example.com")

	group, err := groups.CreateOwned(context.Background(), &store.Group{
		UserID: user.ID,
		Name:   "Research",
	})
	require.NoError(t, err)

	doc, err := documents.CreateOwned(context.Background(), &store.Document{
		UserID:  user.ID,
		GroupID: &group.ID,
		Title:   "Paper",
	})
	require.NoError(t, err)

	listed, err := groups.List(context.Background(), user.ID)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Equal(t, 1, listed[0].DocumentCount)

	detail, err := groups.GetOwned(context.Background(), user.ID, group.ID)
	require.NoError(t, err)
	require.Len(t, detail.Documents, 1)

	require.NoError(t, groups.DeleteOwned(context.Background(), user.ID, group.ID))

	// The document survives ungrouped.
	survivor, err := documents.GetOwned(context.Background(), user.ID, doc.ID)
	require.NoError(t, err)
	assert.Nil(t, survivor.GroupID)
}
