package auth

import (
	"context"
	"fmt"

	"golang.org/x/oauth2"
)

// Profile is the normalized identity a provider returns after a successful
// external authentication.
type Profile struct {
	ProviderUserID string
	Email          string
	EmailVerified  bool
	Name           string
	AvatarURL      string
}

// Provider is an OAuth identity provider. Implementations own the endpoint
// configuration and profile normalization; the authenticator only sees the
// normalized Profile.
type Provider interface {
	Name() string
	AuthCodeURL(state string) string
	Exchange(ctx context.Context, code string) (*oauth2.Token, error)
	FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error)
}

// ProviderError captures a normalized provider API failure.
type ProviderError struct {
	Provider  string
	Operation string
	Status    int
	Message   string
	Err       error
}

func (e *ProviderError) Error() string {
	if e == nil {
		return "provider error"
	}
	if e.Message != "" {
		return fmt.Sprintf("%s %s failed: %s", e.Provider, e.Operation, e.Message)
	}
	if e.Err != nil {
		return fmt.Sprintf("%s %s failed: %v", e.Provider, e.Operation, e.Err)
	}
	return fmt.Sprintf("%s %s failed", e.Provider, e.Operation)
}

func (e *ProviderError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}
