package auth

import (
	"context"
	"time"

	"docgate/internal/store"

	"github.com/goliatone/go-errors"
	"github.com/google/uuid"
)

// SessionRegistry tracks issued tokens so administrators can inspect and
// revoke live sessions.
type SessionRegistry interface {
	Record(ctx context.Context, session *store.Session) error
	FindByTokenID(ctx context.Context, tokenID string) (*store.Session, error)
	Touch(ctx context.Context, tokenID string, at time.Time) error
	Revoke(ctx context.Context, tokenID string, at time.Time) error
}

// AuthRedirect is the provider authorization URL a sign-in begins with.
type AuthRedirect struct {
	Provider string
	URL      string
}

// SignInResult is the outcome of a completed sign-in.
type SignInResult struct {
	Token       string
	Claims      SessionClaims
	RedirectURL string
	IsNewUser   bool
	User        *store.User
}

// SignInAuthenticator orchestrates the full sign-in flow: state round trip,
// attempt admission, provider exchange, policy evaluation, account
// provisioning and session issuance.
type SignInAuthenticator struct {
	providers map[string]Provider
	limiter   *Limiter
	guard     *PolicyGuard
	users     Users
	accounts  LinkedAccounts
	sessions  SessionRegistry
	tokens    *TokenService
	states    StateManager
	logger    Logger
}

// Option configures the authenticator.
type Option func(*SignInAuthenticator)

// WithProvider registers an identity provider.
func WithProvider(p Provider) Option {
	return func(a *SignInAuthenticator) {
		a.providers[p.Name()] = p
	}
}

// WithStateManager replaces the state manager.
func WithStateManager(sm StateManager) Option {
	return func(a *SignInAuthenticator) {
		a.states = sm
	}
}

// WithLogger replaces the logger.
func WithLogger(logger Logger) Option {
	return func(a *SignInAuthenticator) {
		a.logger = logger
		if a.guard != nil {
			a.guard.logger = logger
		}
	}
}

// NewSignInAuthenticator wires the sign-in flow over the given stores and
// services. Providers are registered through options.
func NewSignInAuthenticator(
	users Users,
	accounts LinkedAccounts,
	sessions SessionRegistry,
	tokens *TokenService,
	limiter *Limiter,
	states StateManager,
	opts ...Option,
) *SignInAuthenticator {
	a := &SignInAuthenticator{
		providers: make(map[string]Provider),
		limiter:   limiter,
		users:     users,
		accounts:  accounts,
		sessions:  sessions,
		tokens:    tokens,
		states:    states,
		logger:    defLogger{},
	}
	a.guard = NewPolicyGuard(users, accounts, a.logger)

	for _, opt := range opts {
		opt(a)
	}

	return a
}

// Provider returns a registered provider by name.
func (a *SignInAuthenticator) Provider(name string) (Provider, error) {
	p, ok := a.providers[name]
	if !ok {
		return nil, ErrProviderNotFound
	}
	return p, nil
}

// Providers lists the registered provider names.
func (a *SignInAuthenticator) Providers() []string {
	names := make([]string, 0, len(a.providers))
	for name := range a.providers {
		names = append(names, name)
	}
	return names
}

// TokenTTL reports the session token lifetime.
func (a *SignInAuthenticator) TokenTTL() time.Duration {
	return a.tokens.TTL()
}

// Begin starts a sign-in by minting a state token and building the provider
// authorization URL the client should be redirected to.
func (a *SignInAuthenticator) Begin(ctx context.Context, providerName, redirectURL string) (*AuthRedirect, error) {
	provider, err := a.Provider(providerName)
	if err != nil {
		return nil, err
	}

	state, err := a.states.Encode(&OAuthState{
		Provider:    providerName,
		RedirectURL: redirectURL,
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.CategoryInternal, "failed to encode oauth state")
	}

	return &AuthRedirect{
		Provider: providerName,
		URL:      provider.AuthCodeURL(state),
	}, nil
}

// Admit checks the attempt budget for the given client key. Admission happens
// before any provider call so over-limit clients never reach the exchange.
func (a *SignInAuthenticator) Admit(ctx context.Context, clientKey string) error {
	ok, err := a.limiter.Allow(ctx, clientKey, time.Now())
	if err != nil {
		return errors.Wrap(err, errors.CategoryInternal, "rate limit store failed")
	}
	if !ok {
		a.logger.Info("sign-in rate limited: %s", clientKey)
		return ErrRateLimited
	}
	return nil
}

// Complete finishes a sign-in after the provider callback. It verifies the
// state, admits the attempt, exchanges the code, evaluates the admission
// policy against the stored account, provisions the account if needed and
// issues a session.
func (a *SignInAuthenticator) Complete(ctx context.Context, providerName, code, stateToken, clientKey string) (*SignInResult, error) {
	provider, err := a.Provider(providerName)
	if err != nil {
		return nil, err
	}

	state, err := a.states.Decode(stateToken)
	if err != nil {
		return nil, err
	}
	if state.Provider != providerName {
		a.logger.Error("state provider mismatch: state %s, callback %s", state.Provider, providerName)
		return nil, ErrInvalidState
	}

	if err := a.Admit(ctx, clientKey); err != nil {
		return nil, err
	}

	token, err := provider.Exchange(ctx, code)
	if err != nil {
		a.logger.Error("%s code exchange failed: %v", providerName, err)
		return nil, ErrExchangeFailed
	}

	profile, err := provider.FetchProfile(ctx, token)
	if err != nil {
		a.logger.Error("%s profile fetch failed: %v", providerName, err)
		return nil, ErrProfileFailed
	}

	decision, err := a.guard.Evaluate(ctx, SignInAttempt{
		Email:    profile.Email,
		Provider: providerName,
	})
	if err != nil {
		return nil, err
	}

	switch decision.Outcome {
	case OutcomeDeny:
		return nil, ErrAccountBlocked
	case OutcomeConflict:
		return nil, &ConflictError{Provider: decision.ExistingProvider}
	}

	user, isNew, err := a.provision(ctx, provider.Name(), profile)
	if err != nil {
		return nil, err
	}

	signed, _, err := a.IssueSession(ctx, user)
	if err != nil {
		return nil, err
	}

	return &SignInResult{
		Token:       signed,
		Claims:      AssembleClaims(user),
		RedirectURL: state.RedirectURL,
		IsNewUser:   isNew,
		User:        user,
	}, nil
}

func (a *SignInAuthenticator) provision(ctx context.Context, providerName string, profile *Profile) (*store.User, bool, error) {
	existing, err := a.users.GetByEmail(ctx, profile.Email)
	isNew := false
	if err != nil {
		if !isRecordNotFound(err) {
			return nil, false, errors.Wrap(err, errors.CategoryInternal, "user lookup failed").
				WithTextCode(TextCodeLookupFailed)
		}
		isNew = true
	}

	record := &store.User{
		Email: profile.Email,
		Name:  profile.Name,
		Image: profile.AvatarURL,
		Role:  store.RoleMember,
	}
	if existing != nil {
		record = existing
	}

	user, err := a.users.GetOrCreate(ctx, record)
	if err != nil {
		return nil, false, errors.Wrap(err, errors.CategoryInternal, "failed to provision user").
			WithTextCode(TextCodeLookupFailed)
	}

	if err := a.accounts.Upsert(ctx, &store.LinkedAccount{
		UserID:         user.ID,
		Provider:       providerName,
		ProviderUserID: profile.ProviderUserID,
		Email:          profile.Email,
		AvatarURL:      profile.AvatarURL,
	}); err != nil {
		return nil, false, errors.Wrap(err, errors.CategoryInternal, "failed to link provider account")
	}

	return user, isNew, nil
}

// IssueSession mints a session token for the user and records it in the
// session registry under the token's jti.
func (a *SignInAuthenticator) IssueSession(ctx context.Context, user *store.User) (string, *JWTClaims, error) {
	signed, payload, err := a.tokens.Generate(AssembleClaims(user), user.Role)
	if err != nil {
		return "", nil, err
	}

	session := &store.Session{
		UserID:    user.ID,
		TokenID:   payload.TokenID(),
		IssuedAt:  payload.IssuedAt.Time,
		ExpiresAt: payload.Expires(),
	}
	if err := a.sessions.Record(ctx, session); err != nil {
		return "", nil, errors.Wrap(err, errors.CategoryInternal, "failed to record session")
	}

	return signed, payload, nil
}

// ValidateSession verifies a token and checks the session registry. A session
// that was revoked rejects; a registry row that is simply missing does not,
// so registry loss only costs revocation, never sign-in.
func (a *SignInAuthenticator) ValidateSession(ctx context.Context, tokenString string) (*JWTClaims, error) {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil, err
	}

	session, err := a.sessions.FindByTokenID(ctx, claims.TokenID())
	if err != nil {
		if isRecordNotFound(err) {
			return claims, nil
		}
		return nil, errors.Wrap(err, errors.CategoryInternal, "session lookup failed")
	}

	if session.Revoked {
		return nil, ErrSessionRevoked
	}

	if err := a.sessions.Touch(ctx, claims.TokenID(), time.Now()); err != nil {
		a.logger.Error("failed to touch session %s: %v", claims.TokenID(), err)
	}

	return claims, nil
}

// Logout revokes the session behind the given token. Invalid tokens are a
// no-op: the caller is signing out either way.
func (a *SignInAuthenticator) Logout(ctx context.Context, tokenString string) error {
	claims, err := a.tokens.Validate(tokenString)
	if err != nil {
		return nil
	}
	return a.sessions.Revoke(ctx, claims.TokenID(), time.Now())
}

// RefreshClaims re-projects session claims from the stored user record, so
// profile edits show up without re-authentication.
func (a *SignInAuthenticator) RefreshClaims(ctx context.Context, userID string) (SessionClaims, error) {
	id, err := uuid.Parse(userID)
	if err != nil {
		return SessionClaims{}, errors.New("invalid user id", errors.CategoryBadInput).
			WithCode(errors.CodeBadRequest)
	}

	user, err := a.users.GetByID(ctx, id)
	if err != nil {
		if isRecordNotFound(err) {
			return SessionClaims{}, errors.New("user not found", errors.CategoryNotFound).
				WithCode(errors.CodeNotFound)
		}
		return SessionClaims{}, errors.Wrap(err, errors.CategoryInternal, "user lookup failed").
			WithTextCode(TextCodeLookupFailed)
	}

	return AssembleClaims(user), nil
}
