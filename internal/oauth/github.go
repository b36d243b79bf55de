package oauth

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	apperrors "accountd/internal/errors"
)

const (
	defaultTokenURL = "https://github.com/login/oauth/access_token"
	defaultUserURL  = "https://api.github.com/user"

	requestTimeout = 10 * time.Second
)

// GitHubConfig holds GitHub OAuth app credentials. TokenURL, UserURL and
// HTTPClient are overridable for tests.
type GitHubConfig struct {
	ClientID     string
	ClientSecret string

	TokenURL   string
	UserURL    string
	HTTPClient *http.Client
}

// GitHub exchanges authorization codes for access tokens and fetches the
// provider profile. It is a pure proxy: no local session is established.
type GitHub struct {
	config     GitHubConfig
	httpClient *http.Client
}

// NewGitHub creates a client with defaults filled in.
func NewGitHub(cfg GitHubConfig) *GitHub {
	if cfg.TokenURL == "" {
		cfg.TokenURL = defaultTokenURL
	}
	if cfg.UserURL == "" {
		cfg.UserURL = defaultUserURL
	}
	client := cfg.HTTPClient
	if client == nil {
		client = &http.Client{Timeout: requestTimeout}
	}
	return &GitHub{config: cfg, httpClient: client}
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	Error       string `json:"error"`
	ErrorDesc   string `json:"error_description"`
}

// Exchange trades an authorization code for an access token.
func (g *GitHub) Exchange(ctx context.Context, code string) (string, error) {
	payload, err := json.Marshal(map[string]string{
		"client_id":     g.config.ClientID,
		"client_secret": g.config.ClientSecret,
		"code":          code,
	})
	if err != nil {
		return "", fmt.Errorf("marshal token request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, g.config.TokenURL, bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("build token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return "", fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	var token tokenResponse
	if err := json.NewDecoder(resp.Body).Decode(&token); err != nil {
		return "", fmt.Errorf("%w: decode token response: %v", apperrors.ErrOAuthExchange, err)
	}
	if token.AccessToken == "" {
		if token.Error != "" {
			return "", fmt.Errorf("%w: %s: %s", apperrors.ErrOAuthExchange, token.Error, token.ErrorDesc)
		}
		return "", apperrors.ErrOAuthExchange
	}
	return token.AccessToken, nil
}

// FetchUser retrieves the provider profile for an access token.
func (g *GitHub) FetchUser(ctx context.Context, accessToken string) (map[string]interface{}, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.config.UserURL, nil)
	if err != nil {
		return nil, fmt.Errorf("build user request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", apperrors.ErrUpstream, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("%w: profile fetch returned %d", apperrors.ErrUpstream, resp.StatusCode)
	}

	var profile map[string]interface{}
	if err := json.NewDecoder(resp.Body).Decode(&profile); err != nil {
		return nil, fmt.Errorf("%w: decode profile: %v", apperrors.ErrUpstream, err)
	}
	return profile, nil
}
