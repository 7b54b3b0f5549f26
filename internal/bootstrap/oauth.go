package bootstrap

import (
	"log"
	"net/http"
	"sort"

	"github.com/go-passgate/passgate/internal/auth"
	"github.com/go-passgate/passgate/internal/config"

	httpclient "github.com/appleboy/go-httpclient"
)

// initializeOAuthProviders builds the enabled delegated sign-in providers.
// A provider that is enabled but missing credentials is skipped with a
// warning rather than failing startup.
func initializeOAuthProviders(cfg *config.Config) map[string]*auth.OAuthProvider {
	providers := make(map[string]*auth.OAuthProvider)

	if cfg.GitHubOAuthEnabled {
		if cfg.GitHubClientID == "" || cfg.GitHubClientSecret == "" {
			log.Printf("Warning: GitHub OAuth enabled but CLIENT_ID or CLIENT_SECRET missing")
		} else {
			providers["github"] = auth.NewGitHubProvider(auth.OAuthProviderConfig{
				ClientID:     cfg.GitHubClientID,
				ClientSecret: cfg.GitHubClientSecret,
				RedirectURL:  cfg.GitHubOAuthRedirectURL,
				Scopes:       cfg.GitHubOAuthScopes,
			})
			log.Printf("GitHub OAuth configured: redirect=%s", cfg.GitHubOAuthRedirectURL)
		}
	}

	if cfg.GiteaOAuthEnabled {
		if cfg.GiteaURL == "" || cfg.GiteaClientID == "" || cfg.GiteaClientSecret == "" {
			log.Printf("Warning: Gitea OAuth enabled but URL, CLIENT_ID or CLIENT_SECRET missing")
		} else {
			providers["gitea"] = auth.NewGiteaProvider(auth.OAuthProviderConfig{
				ClientID:     cfg.GiteaClientID,
				ClientSecret: cfg.GiteaClientSecret,
				RedirectURL:  cfg.GiteaOAuthRedirectURL,
				Scopes:       cfg.GiteaOAuthScopes,
			}, cfg.GiteaURL)
			log.Printf(
				"Gitea OAuth configured: server=%s redirect=%s",
				cfg.GiteaURL,
				cfg.GiteaOAuthRedirectURL,
			)
		}
	}

	return providers
}

// createOAuthHTTPClient builds the HTTP client used for code exchanges and
// userinfo calls against the providers
func createOAuthHTTPClient(cfg *config.Config) *http.Client {
	if cfg.OAuthInsecureSkipVerify {
		log.Printf("WARNING: OAuth TLS verification is disabled (OAUTH_INSECURE_SKIP_VERIFY=true)")
	}

	c, err := httpclient.NewClient(
		httpclient.WithTimeout(cfg.OAuthTimeout),
		httpclient.WithInsecureSkipVerify(cfg.OAuthInsecureSkipVerify),
	)
	if err != nil {
		log.Fatalf("Failed to create OAuth HTTP client: %v", err)
	}
	return c
}

func logOAuthProvidersStatus(providers map[string]*auth.OAuthProvider) {
	if len(providers) == 0 {
		return
	}
	names := make([]string, 0, len(providers))
	for name := range providers {
		names = append(names, name)
	}
	sort.Strings(names)
	log.Printf("OAuth providers enabled: %v", names)
}
