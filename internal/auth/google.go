package auth

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
)

const googleDefaultUserInfoURL = "https://www.googleapis.com/oauth2/v3/userinfo"

// GoogleConfig holds Google OAuth configuration. Endpoint overrides exist
// for tests; zero values use the public Google endpoints.
type GoogleConfig struct {
	ClientID     string
	ClientSecret string
	CallbackURL  string
	Scopes       []string

	Endpoint    oauth2.Endpoint
	UserInfoURL string

	HTTPClient *http.Client
}

// GoogleProvider implements Provider for Google.
type GoogleProvider struct {
	oauth       *oauth2.Config
	userInfoURL string
	httpClient  *http.Client
}

// NewGoogleProvider creates a Google provider.
func NewGoogleProvider(cfg GoogleConfig) *GoogleProvider {
	scopes := cfg.Scopes
	if len(scopes) == 0 {
		scopes = []string{"openid", "email", "profile"}
	}

	endpoint := cfg.Endpoint
	if endpoint.AuthURL == "" {
		endpoint = googleoauth.Endpoint
	}

	userInfoURL := cfg.UserInfoURL
	if userInfoURL == "" {
		userInfoURL = googleDefaultUserInfoURL
	}

	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: 10 * time.Second}
	}

	return &GoogleProvider{
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.CallbackURL,
			Scopes:       scopes,
			Endpoint:     endpoint,
		},
		userInfoURL: userInfoURL,
		httpClient:  client,
	}
}

// Name implements Provider.
func (p *GoogleProvider) Name() string {
	return "google"
}

// AuthCodeURL implements Provider.
func (p *GoogleProvider) AuthCodeURL(state string) string {
	return p.oauth.AuthCodeURL(state)
}

// Exchange implements Provider.
func (p *GoogleProvider) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, p.httpClient)
	token, err := p.oauth.Exchange(ctx, code)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "exchange", Err: err}
	}
	return token, nil
}

type googleUserInfo struct {
	Sub           string `json:"sub"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

// FetchProfile implements Provider.
func (p *GoogleProvider) FetchProfile(ctx context.Context, token *oauth2.Token) (*Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.userInfoURL, nil)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Err: err}
	}
	req.Header.Set("Authorization", "Bearer "+token.AccessToken)

	resp, err := p.httpClient.Do(req)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Err: err}
	}

	if resp.StatusCode != http.StatusOK {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Status: resp.StatusCode, Message: "userinfo request failed"}
	}

	var info googleUserInfo
	if err := json.Unmarshal(body, &info); err != nil {
		return nil, &ProviderError{Provider: p.Name(), Operation: "user_info", Status: resp.StatusCode, Message: "invalid userinfo response", Err: err}
	}

	return &Profile{
		ProviderUserID: info.Sub,
		Email:          info.Email,
		EmailVerified:  info.EmailVerified,
		Name:           info.Name,
		AvatarURL:      info.Picture,
	}, nil
}
