package auth

import (
	stderrors "errors"
	"fmt"

	"github.com/goliatone/go-errors"
)

const (
	TextCodeRateLimited      = "signin_rate_limited"
	TextCodeAccountBlocked   = "signin_account_blocked"
	TextCodeProviderConflict = "signin_provider_conflict"
	TextCodeProviderNotFound = "signin_provider_not_found"
	TextCodeInvalidState     = "signin_invalid_state"
	TextCodeStateExpired     = "signin_state_expired"
	TextCodeExchangeFailed   = "signin_exchange_failed"
	TextCodeProfileFailed    = "signin_profile_failed"
	TextCodeTokenExpired     = "session_token_expired"
	TextCodeTokenMalformed   = "session_token_malformed"
	TextCodeSessionRevoked   = "session_revoked"
	TextCodeLookupFailed     = "signin_lookup_failed"
)

// ErrRateLimited is returned when a client exceeds the sign-in attempt budget.
var ErrRateLimited = errors.New("too many sign-in attempts", errors.CategoryAuth).
	WithTextCode(TextCodeRateLimited).
	WithCode(errors.CodeForbidden)

// ErrAccountBlocked is returned when the target account is flagged as blocked.
var ErrAccountBlocked = errors.New("account access denied", errors.CategoryAuth).
	WithTextCode(TextCodeAccountBlocked).
	WithCode(errors.CodeForbidden)

// ErrProviderNotFound is returned when a requested provider is not configured.
var ErrProviderNotFound = errors.New("sign-in provider not found", errors.CategoryNotFound).
	WithTextCode(TextCodeProviderNotFound).
	WithCode(errors.CodeNotFound)

// ErrInvalidState is returned when the OAuth state is invalid or tampered.
var ErrInvalidState = errors.New("invalid oauth state", errors.CategoryBadInput).
	WithTextCode(TextCodeInvalidState).
	WithCode(errors.CodeBadRequest)

// ErrStateExpired is returned when the OAuth state has expired.
var ErrStateExpired = errors.New("oauth state expired", errors.CategoryBadInput).
	WithTextCode(TextCodeStateExpired).
	WithCode(errors.CodeBadRequest)

// ErrExchangeFailed is returned when a provider code exchange fails.
var ErrExchangeFailed = errors.New("token exchange failed", errors.CategoryAuth).
	WithTextCode(TextCodeExchangeFailed).
	WithCode(errors.CodeUnauthorized)

// ErrProfileFailed is returned when fetching the provider profile fails.
var ErrProfileFailed = errors.New("failed to fetch provider profile", errors.CategoryAuth).
	WithTextCode(TextCodeProfileFailed).
	WithCode(errors.CodeUnauthorized)

// ErrTokenExpired is returned for expired session tokens.
var ErrTokenExpired = errors.New("session token expired", errors.CategoryAuth).
	WithTextCode(TextCodeTokenExpired).
	WithCode(errors.CodeUnauthorized)

// ErrTokenMalformed is returned for tokens that fail parsing or signature checks.
var ErrTokenMalformed = errors.New("session token malformed", errors.CategoryAuth).
	WithTextCode(TextCodeTokenMalformed).
	WithCode(errors.CodeUnauthorized)

// ErrSessionRevoked is returned when a session was revoked by an administrator.
var ErrSessionRevoked = errors.New("session revoked", errors.CategoryAuth).
	WithTextCode(TextCodeSessionRevoked).
	WithCode(errors.CodeUnauthorized)

// ConflictError reports a sign-in through a provider other than the one
// already linked to the account. The linked provider name is carried so the
// caller can render a specific message ("already registered via github").
type ConflictError struct {
	Provider string
}

func (e *ConflictError) Error() string {
	if e == nil || e.Provider == "" {
		return "account already linked to another provider"
	}
	return fmt.Sprintf("account already linked via %s", e.Provider)
}

// Error page codes rendered by the front end's /error route. Any denial or
// conflict maps to one of these; internal detail never reaches the client.
const (
	ErrorPageConfiguration = "Configuration"
	ErrorPageAccessDenied  = "AccessDenied"
	ErrorPageConflict      = "Conflict"
	ErrorPageRateLimited   = "RateLimited"
	ErrorPageDefault       = "Default"
)

// ErrorPageCode maps a sign-in failure to the code the error page understands.
func ErrorPageCode(err error) string {
	var conflict *ConflictError
	switch {
	case err == nil:
		return ""
	case stderrors.As(err, &conflict):
		return ErrorPageConflict
	case stderrors.Is(err, ErrRateLimited):
		return ErrorPageRateLimited
	case stderrors.Is(err, ErrAccountBlocked):
		return ErrorPageAccessDenied
	case stderrors.Is(err, ErrProviderNotFound):
		return ErrorPageConfiguration
	default:
		return ErrorPageDefault
	}
}
