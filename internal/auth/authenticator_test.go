package auth_test

import (
	"context"
	stderrors "errors"
	"fmt"
	"testing"
	"time"

	"docgate/internal/auth"
	"docgate/internal/store"

	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

type stubProvider struct {
	name        string
	profile     *auth.Profile
	exchangeErr error
	profileErr  error
	exchanged   []string
}

func (p *stubProvider) Name() string { return p.name }

func (p *stubProvider) AuthCodeURL(state string) string {
	return "https://provider.example.com/authorize?state=" + state
}

func (p *stubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	p.exchanged = append(p.exchanged, code)
	if p.exchangeErr != nil {
		return nil, p.exchangeErr
	}
	return &oauth2.Token{AccessToken: "access-token"}, nil
}

func (p *stubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*auth.Profile, error) {
	if p.profileErr != nil {
		return nil, p.profileErr
	}
	return p.profile, nil
}

type stubSessions struct {
	recorded map[string]*store.Session
	touched  []string
	revoked  []string
}

func newStubSessions() *stubSessions {
	return &stubSessions{recorded: map[string]*store.Session{}}
}

func (s *stubSessions) Record(ctx context.Context, session *store.Session) error {
	s.recorded[session.TokenID] = session
	return nil
}

func (s *stubSessions) FindByTokenID(ctx context.Context, tokenID string) (*store.Session, error) {
	session, ok := s.recorded[tokenID]
	if !ok {
		return nil, repository.NewRecordNotFound()
	}
	return session, nil
}

func (s *stubSessions) Touch(ctx context.Context, tokenID string, at time.Time) error {
	s.touched = append(s.touched, tokenID)
	return nil
}

func (s *stubSessions) Revoke(ctx context.Context, tokenID string, at time.Time) error {
	s.revoked = append(s.revoked, tokenID)
	if session, ok := s.recorded[tokenID]; ok {
		session.Revoked = true
	}
	return nil
}

type authFixture struct {
	authenticator *auth.SignInAuthenticator
	provider      *stubProvider
	users         *stubUsers
	accounts      *stubAccounts
	sessions      *stubSessions
	states        auth.StateManager
}

func newAuthFixture(t *testing.T, users *stubUsers, accounts *stubAccounts) *authFixture {
	t.Helper()

	provider := &stubProvider{
		name: "github",
		profile: &auth.Profile{
			ProviderUserID: "12345",
			Email:          "ada@example.com",
			EmailVerified:  true,
			Name:           "Ada Lovelace",
			AvatarURL:      "https://example.com/ada.png",
		},
	}

	sessions := newStubSessions()
	tokens := auth.NewTokenService([]byte("test-signing-key"), time.Hour, "docgate-test", nil, nil)
	states := auth.NewEncryptedStateManager(
		[]byte("0123456789abcdef0123456789abcdef"),
		[]byte("hmac-test-key"),
		10*time.Minute,
	)
	limiter := auth.NewLimiter(nil, time.Minute, 5)

	authenticator := auth.NewSignInAuthenticator(
		users,
		accounts,
		sessions,
		tokens,
		limiter,
		states,
		auth.WithProvider(provider),
	)

	return &authFixture{
		authenticator: authenticator,
		provider:      provider,
		users:         users,
		accounts:      accounts,
		sessions:      sessions,
		states:        states,
	}
}

func (f *authFixture) stateFor(t *testing.T, provider, redirect string) string {
	t.Helper()
	encoded, err := f.states.Encode(&auth.OAuthState{
		Provider:    provider,
		RedirectURL: redirect,
	})
	require.NoError(t, err)
	return encoded
}

func TestBeginBuildsAuthorizeURL(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())

	redirect, err := f.authenticator.Begin(context.Background(), "github", "/documents")
	require.NoError(t, err)

	assert.Equal(t, "github", redirect.Provider)
	assert.Contains(t, redirect.URL, "https://provider.example.com/authorize?state=")
}

func TestBeginUnknownProvider(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())

	_, err := f.authenticator.Begin(context.Background(), "gitlab", "/")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrProviderNotFound))
}

func TestCompleteProvisionsNewUser(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())
	state := f.stateFor(t, "github", "/documents")

	result, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.NoError(t, err)

	assert.True(t, result.IsNewUser)
	assert.NotEmpty(t, result.Token)
	assert.Equal(t, "/documents", result.RedirectURL)
	assert.Equal(t, "ada@example.com", result.Claims.Email)
	assert.Equal(t, "Ada Lovelace", result.Claims.Name)
	assert.Equal(t, "https://example.com/ada.png", result.Claims.Picture)

	require.Len(t, f.users.created, 1)
	assert.Equal(t, store.RoleMember, f.users.created[0].Role)

	require.Len(t, f.accounts.upserted, 1)
	assert.Equal(t, "github", f.accounts.upserted[0].Provider)
	assert.Equal(t, "12345", f.accounts.upserted[0].ProviderUserID)

	assert.Len(t, f.sessions.recorded, 1, "session registered under the token jti")
}

func TestCompleteExistingUserKeepsRecord(t *testing.T) {
	existing := &store.User{
		ID:    uuid.New(),
		Email: "ada@example.com",
		Name:  "Ada (stored)",
		Role:  store.RoleAdmin,
	}
	f := newAuthFixture(t, newStubUsers(existing), newStubAccounts())
	state := f.stateFor(t, "github", "")

	result, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.NoError(t, err)

	assert.False(t, result.IsNewUser)
	assert.Empty(t, f.users.created)
	// Claims come from the stored record, not the provider profile.
	assert.Equal(t, "Ada (stored)", result.Claims.Name)
	assert.Equal(t, existing.ID.String(), result.Claims.ID)
}

func TestCompleteRateLimited(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())

	var err error
	for i := 0; i < 6; i++ {
		state := f.stateFor(t, "github", "")
		_, err = f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.9")
		if i < 5 {
			require.NoError(t, err)
		}
	}

	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrRateLimited))
	assert.Len(t, f.provider.exchanged, 5, "rejected attempts never reach the provider")
}

func TestCompleteBlockedAccount(t *testing.T) {
	blocked := &store.User{ID: uuid.New(), Email: "ada@example.com", Blocked: true}
	f := newAuthFixture(t, newStubUsers(blocked), newStubAccounts())
	state := f.stateFor(t, "github", "")

	_, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrAccountBlocked))
	assert.Empty(t, f.sessions.recorded, "no session issued for a denied attempt")
}

func TestCompleteProviderConflict(t *testing.T) {
	user := &store.User{ID: uuid.New(), Email: "ada@example.com"}
	users := newStubUsers(user)
	accounts := newStubAccounts()
	accounts.byUser[user.ID] = []*store.LinkedAccount{
		{UserID: user.ID, Provider: "google"},
	}

	f := newAuthFixture(t, users, accounts)
	state := f.stateFor(t, "github", "")

	_, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.Error(t, err)

	var conflict *auth.ConflictError
	require.True(t, stderrors.As(err, &conflict))
	assert.Equal(t, "google", conflict.Provider)
	assert.Equal(t, auth.ErrorPageConflict, auth.ErrorPageCode(err))
}

func TestCompleteStateProviderMismatch(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())
	state := f.stateFor(t, "google", "")

	_, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrInvalidState))
}

func TestCompleteExchangeFailure(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())
	f.provider.exchangeErr = fmt.Errorf("bad code")
	state := f.stateFor(t, "github", "")

	_, err := f.authenticator.Complete(context.Background(), "github", "bad", state, "10.0.0.1")
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrExchangeFailed))
}

func TestValidateSessionRejectsRevoked(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())
	state := f.stateFor(t, "github", "")

	result, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.NoError(t, err)

	claims, err := f.authenticator.ValidateSession(context.Background(), result.Token)
	require.NoError(t, err)

	require.NoError(t, f.sessions.Revoke(context.Background(), claims.TokenID(), time.Now()))

	_, err = f.authenticator.ValidateSession(context.Background(), result.Token)
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, auth.ErrSessionRevoked))
}

func TestValidateSessionMissingRegistryRowStillAdmits(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())
	state := f.stateFor(t, "github", "")

	result, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.NoError(t, err)

	// Losing the registry only loses revocation, not sign-in.
	f.sessions.recorded = map[string]*store.Session{}

	claims, err := f.authenticator.ValidateSession(context.Background(), result.Token)
	require.NoError(t, err)
	assert.Equal(t, "ada@example.com", claims.Email)
}

func TestLogoutRevokesSession(t *testing.T) {
	f := newAuthFixture(t, newStubUsers(), newStubAccounts())
	state := f.stateFor(t, "github", "")

	result, err := f.authenticator.Complete(context.Background(), "github", "code", state, "10.0.0.1")
	require.NoError(t, err)

	require.NoError(t, f.authenticator.Logout(context.Background(), result.Token))
	require.Len(t, f.sessions.revoked, 1)

	_, err = f.authenticator.ValidateSession(context.Background(), result.Token)
	assert.True(t, stderrors.Is(err, auth.ErrSessionRevoked))
}

func TestRefreshClaimsReflectsStoredChanges(t *testing.T) {
	user := &store.User{ID: uuid.New(), Email: "ada@example.com", Name: "Ada"}
	users := newStubUsers(user)
	f := newAuthFixture(t, users, newStubAccounts())

	claims, err := f.authenticator.RefreshClaims(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ada", claims.Name)

	user.Name = "Ada Byron"

	claims, err = f.authenticator.RefreshClaims(context.Background(), user.ID.String())
	require.NoError(t, err)
	assert.Equal(t, "Ada Byron", claims.Name)
}
