package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// OAuthProviderConfig contains configuration for an OAuth provider
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// OAuthUserInfo contains user information from OAuth provider
type OAuthUserInfo struct {
	ProviderUserID string // Provider's user ID
	Username       string // Provider's username
	Email          string // User email (required)
	FullName       string // User full name
	AvatarURL      string // Avatar URL
}

// OAuthProvider performs delegated sign-in against a single upstream
// identity provider. The provider never issues PassGate credentials itself;
// callers exchange the upstream token for a local session or bearer token.
type OAuthProvider struct {
	name     string
	config   *oauth2.Config
	userInfo func(ctx context.Context, p *OAuthProvider, tok *oauth2.Token) (*OAuthUserInfo, error)
}

// NewGitHubProvider creates a new GitHub OAuth provider
func NewGitHubProvider(cfg OAuthProviderConfig) *OAuthProvider {
	return &OAuthProvider{
		name:     "github",
		userInfo: githubUserInfo,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
	}
}

// NewGiteaProvider creates a new Gitea OAuth provider rooted at giteaURL
func NewGiteaProvider(cfg OAuthProviderConfig, giteaURL string) *OAuthProvider {
	base := strings.TrimRight(giteaURL, "/")
	return &OAuthProvider{
		name:     "gitea",
		userInfo: giteaUserInfo,
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  base + "/login/oauth/authorize",
				TokenURL: base + "/login/oauth/access_token",
			},
		},
	}
}

// Name returns the provider identifier ("github", "gitea")
func (p *OAuthProvider) Name() string {
	return p.name
}

// GetAuthURL returns the OAuth authorization URL carrying the CSRF state
func (p *OAuthProvider) GetAuthURL(state string) string {
	return p.config.AuthCodeURL(state, oauth2.AccessTypeOffline)
}

// ExchangeCode exchanges an authorization code for an upstream access token
func (p *OAuthProvider) ExchangeCode(ctx context.Context, code string) (*oauth2.Token, error) {
	return p.config.Exchange(ctx, code)
}

// GetUserInfo retrieves the identity behind an upstream access token
func (p *OAuthProvider) GetUserInfo(
	ctx context.Context,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	if p.userInfo == nil {
		return nil, fmt.Errorf("provider %s has no userinfo endpoint", p.name)
	}
	return p.userInfo(ctx, p, token)
}

// fetchJSON performs an authenticated GET against a provider API and decodes
// the JSON response into out.
func (p *OAuthProvider) fetchJSON(
	ctx context.Context,
	token *oauth2.Token,
	url string,
	out any,
) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := p.config.Client(ctx, token).Do(req)
	if err != nil {
		return fmt.Errorf("failed to query %s: %w", p.name, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return fmt.Errorf("%s API error: %s - %s", p.name, resp.Status, string(body))
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", p.name, err)
	}
	return nil
}

type githubAccount struct {
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

func githubUserInfo(
	ctx context.Context,
	p *OAuthProvider,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	var account githubAccount
	if err := p.fetchJSON(ctx, token, "https://api.github.com/user", &account); err != nil {
		return nil, err
	}

	// The profile email is empty when the user keeps it private; the emails
	// endpoint still lists it.
	if account.Email == "" {
		var emails []githubEmail
		if err := p.fetchJSON(ctx, token, "https://api.github.com/user/emails", &emails); err != nil {
			return nil, fmt.Errorf("failed to get user email: %w", err)
		}
		account.Email = pickVerifiedEmail(emails)
	}

	if account.Email == "" {
		return nil, fmt.Errorf("github account has no verified email address")
	}

	return &OAuthUserInfo{
		ProviderUserID: strconv.FormatInt(account.ID, 10),
		Username:       account.Login,
		Email:          account.Email,
		FullName:       account.Name,
		AvatarURL:      account.AvatarURL,
	}, nil
}

// pickVerifiedEmail prefers the primary verified address, then any verified one.
func pickVerifiedEmail(emails []githubEmail) string {
	for _, e := range emails {
		if e.Primary && e.Verified {
			return e.Email
		}
	}
	for _, e := range emails {
		if e.Verified {
			return e.Email
		}
	}
	return ""
}

type giteaAccount struct {
	ID        int64  `json:"id"`
	Login     string `json:"login"`
	FullName  string `json:"full_name"`
	Email     string `json:"email"`
	AvatarURL string `json:"avatar_url"`
}

func giteaUserInfo(
	ctx context.Context,
	p *OAuthProvider,
	token *oauth2.Token,
) (*OAuthUserInfo, error) {
	base := strings.TrimSuffix(p.config.Endpoint.AuthURL, "/login/oauth/authorize")

	var account giteaAccount
	if err := p.fetchJSON(ctx, token, base+"/api/v1/user", &account); err != nil {
		return nil, err
	}

	if account.Email == "" {
		return nil, fmt.Errorf("gitea account has no email address")
	}

	return &OAuthUserInfo{
		ProviderUserID: strconv.FormatInt(account.ID, 10),
		Username:       account.Login,
		Email:          account.Email,
		FullName:       account.FullName,
		AvatarURL:      account.AvatarURL,
	}, nil
}
