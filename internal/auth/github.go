package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	githuboauth "golang.org/x/oauth2/github"
)

const (
	githubDefaultUserURL   = "https://api.github.com/user"
	githubDefaultEmailsURL = "https://api.github.com/user/emails"
)

// GitHubConfig holds GitHub OAuth configuration. Endpoint overrides exist
// for tests; zero values use the public GitHub endpoints.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	Endpoint  oauth2.Endpoint
	UserURL   string
	EmailsURL string

	HTTPClient *http.Client
}

// GitHubProvider implements Provider for GitHub.
type GitHubProvider struct {
	oauth      *oauth2.Config
	userURL    string
	emailsURL  string
	httpClient *http.Client
}

// NewGitHubProvider creates a GitHub provider.
func NewGitHubProvider(cfg GitHubConfig) *GitHubProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"user:email", "read:user"}
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = githuboauth.Endpoint
	}

	userURL := cfg.UserURL
	if userURL == "" {
		userURL = githubDefaultUserURL
	}
	emailsURL := cfg.EmailsURL
	if emailsURL == "" {
		emailsURL = githubDefaultEmailsURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GitHubProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userURL:    userURL,
		emailsURL:  emailsURL,
		httpClient: client,
	}
}

// Name implements Provider.
func (p *GitHubProvider) Name() string {
	return "github"
}

// AuthCodeURL implements Provider.
func (p *GitHubProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange implements Provider.
func (p *GitHubProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "exchange", Err: err}
	}
	return token, nil
}

// FetchProfile implements Provider. GitHub may hide the email on the user
// record, so the primary verified address is resolved through the emails
// endpoint; a failure there falls back to whatever the user record carries.
func (p *GitHubProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	user, err := p.fetchUser(ctx, token.AccessToken)
	if err != nil {
		return nil, err
	}

	email, verified, err := p.fetchPrimaryEmail(ctx, token.AccessToken)
	if err != nil {
		email = user.Email
		verified = false
	}

	name := user.Name
	if name == "" {
		name = user.Login
	}

	return &Profile{
		ProviderUserID: strconv.FormatInt(user.ID, 10),
		Email:          email,
		EmailVerified:  verified,
		Name:           name,
		AvatarURL:      user.AvatarURL,
	}, nil
}

type githubUser struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	Name      string `json:"name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

func (p *GitHubProvider) fetchUser(ctx context.Context, accessToken string) (*githubUser, error) {
	body, status, err := p.get(ctx, p.userURL, accessToken)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Err: err}
	}
	if status != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Status: status, Message: "user request failed"}
	}

	var user githubUser
	if err := json.Unmarshal(body, &user); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Status: status, Message: "invalid user response", Err: err}
	}

	return &user, nil
}

func (p *GitHubProvider) fetchPrimaryEmail(ctx context.Context, accessToken string) (string, bool, error) {
	body, status, err := p.get(ctx, p.emailsURL, accessToken)
	if err != nil {
		return "", false, err
	}
	if status != http.StatusOK {
		return "", false, fmt.Errorf("emails request failed with status %d", status)
	}

	var emails []githubEmail
	if err := json.Unmarshal(body, &emails); err != nil {
		return "", false, fmt.Errorf("invalid emails response: %w", err)
	}

	for _, e := range emails {
		if e.Primary {
			return e.Email, e.Verified, nil
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email, true, nil
		}
	}

	return "", false, fmt.Errorf("no usable email on account")
}

func (p *GitHubProvider) get(ctx context.Context, url, accessToken string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, 0, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, 0, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, resp.StatusCode, err
	}

	return body, resp.StatusCode, nil
}
