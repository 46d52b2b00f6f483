package auth

import (
	"context"
	"database/sql"
	stderrors "errors"

	"docgate/internal/store"

	"github.com/goliatone/go-errors"
	repository "github.com/goliatone/go-repository-bun"
	"github.com/google/uuid"
)

// SignInAttempt is the input the policy guard evaluates after the external
// provider has authenticated the user.
type SignInAttempt struct {
	Email    string
	Provider string
}

// PolicyOutcome enumerates the guard's decision variants.
type PolicyOutcome int

const (
	// OutcomeAllow admits the attempt.
	OutcomeAllow PolicyOutcome = iota
	// OutcomeDeny rejects the attempt with a reason.
	OutcomeDeny
	// OutcomeConflict rejects the attempt because the account is linked to a
	// different provider.
	OutcomeConflict
)

// DenyReasonBlocked is the reason attached to denials for blocked accounts.
const DenyReasonBlocked = "blocked"

// PolicyDecision is the tagged result of evaluating a sign-in attempt.
// Expected rejections are data, not errors; only lookup failures surface as
// errors from Evaluate.
type PolicyDecision struct {
	Outcome          PolicyOutcome
	Reason           string
	ExistingProvider string
}

// Allowed reports whether the attempt may proceed to session issuance.
func (d PolicyDecision) Allowed() bool {
	return d.Outcome == OutcomeAllow
}

// AllowDecision admits the attempt.
func AllowDecision() PolicyDecision {
	return PolicyDecision{Outcome: OutcomeAllow}
}

// DenyDecision rejects the attempt with a reason.
func DenyDecision(reason string) PolicyDecision {
	return PolicyDecision{Outcome: OutcomeDeny, Reason: reason}
}

// ConflictDecision rejects the attempt, naming the already-linked provider.
func ConflictDecision(provider string) PolicyDecision {
	return PolicyDecision{Outcome: OutcomeConflict, ExistingProvider: provider}
}

// Users is the account lookup surface the auth components need.
type Users interface {
	GetByEmail(ctx context.Context, email string) (*store.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*store.User, error)
	GetOrCreate(ctx context.Context, record *store.User) (*store.User, error)
}

// LinkedAccounts is the provider-linkage surface the auth components need.
type LinkedAccounts interface {
	FindByUserID(ctx context.Context, userID uuid.UUID) ([]*store.LinkedAccount, error)
	Upsert(ctx context.Context, account *store.LinkedAccount) error
}

// PolicyGuard decides whether an authenticated sign-in attempt may proceed,
// based on the stored account's blocked flag and provider linkage. It is
// read-only; account provisioning happens after admission.
type PolicyGuard struct {
	users    Users
	accounts LinkedAccounts
	logger   Logger
}

// NewPolicyGuard creates a guard over the given stores.
func NewPolicyGuard(users Users, accounts LinkedAccounts, logger Logger) *PolicyGuard {
	if logger == nil {
		logger = defLogger{}
	}
	return &PolicyGuard{
		users:    users,
		accounts: accounts,
		logger:   logger,
	}
}

// Evaluate applies the admission policy, in order:
//  1. Look up the account by exact email. No match admits: a new account is
//     being provisioned.
//  2. A blocked account denies, regardless of linkage state.
//  3. With linked providers present, the earliest row is canonical: a
//     mismatched attempt provider is a conflict carrying that provider name;
//     a match admits. Zero rows admit (pre-seeded or migrated account).
//
// Lookup failures return an error and never degrade to an admission.
func (g *PolicyGuard) Evaluate(ctx context.Context, attempt SignInAttempt) (PolicyDecision, error) {
	user, err := g.users.GetByEmail(ctx, attempt.Email)
	if err != nil {
		if isRecordNotFound(err) {
			return AllowDecision(), nil
		}
		return PolicyDecision{}, errors.Wrap(err, errors.CategoryInternal, "user lookup failed").
			WithTextCode(TextCodeLookupFailed)
	}

	if user.Blocked {
		g.logger.Info("blocked sign-in attempt: %s", attempt.Email)
		return DenyDecision(DenyReasonBlocked), nil
	}

	linked, err := g.accounts.FindByUserID(ctx, user.ID)
	if err != nil {
		return PolicyDecision{}, errors.Wrap(err, errors.CategoryInternal, "linked account lookup failed").
			WithTextCode(TextCodeLookupFailed)
	}

	if len(linked) == 0 {
		return AllowDecision(), nil
	}

	canonical := linked[0].Provider
	if canonical != attempt.Provider {
		g.logger.Info("provider conflict for %s: attempted %s, linked %s", attempt.Email, attempt.Provider, canonical)
		return ConflictDecision(canonical), nil
	}

	return AllowDecision(), nil
}

func isRecordNotFound(err error) bool {
	return repository.IsRecordNotFound(err) || stderrors.Is(err, sql.ErrNoRows)
}
