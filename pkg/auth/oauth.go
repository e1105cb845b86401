package auth

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ExternalIdentity is the subject returned by an OAuth provider after a
// successful code exchange.
type ExternalIdentity struct {
	Provider   string `json:"provider"`
	ExternalID string `json:"external_id"`
	Email      string `json:"email"`
	Name       string `json:"name"`
}

// OAuthProvider describes one external identity provider.
type OAuthProvider struct {
	Name         string
	ClientID     string
	ClientSecret string
	AuthURL      string
	TokenURL     string
	UserInfoURL  string
	Scopes       []string
}

// OAuth performs the authorize-redirect / code-exchange dance against
// configured providers.
type OAuth struct {
	providers    map[string]OAuthProvider
	callbackBase string
	http         *http.Client
}

// NewOAuth creates an OAuth helper. callbackBase is the externally
// reachable base URL of this server, e.g. "https://api.example.com".
func NewOAuth(callbackBase string, providers ...OAuthProvider) *OAuth {
	m := make(map[string]OAuthProvider, len(providers))
	for _, p := range providers {
		m[p.Name] = p
	}
	return &OAuth{
		providers:    m,
		callbackBase: strings.TrimRight(callbackBase, "/"),
		http:         &http.Client{Timeout: 15 * time.Second},
	}
}

// GoogleProvider returns the provider definition for Google sign-in.
func GoogleProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name:         "google",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://accounts.google.com/o/oauth2/v2/auth",
		TokenURL:     "https://oauth2.googleapis.com/token",
		UserInfoURL:  "https://openidconnect.googleapis.com/v1/userinfo",
		Scopes:       []string{"openid", "email", "profile"},
	}
}

// GitHubProvider returns the provider definition for GitHub sign-in.
func GitHubProvider(clientID, clientSecret string) OAuthProvider {
	return OAuthProvider{
		Name:         "github",
		ClientID:     clientID,
		ClientSecret: clientSecret,
		AuthURL:      "https://github.com/login/oauth/authorize",
		TokenURL:     "https://github.com/login/oauth/access_token",
		UserInfoURL:  "https://api.github.com/user",
		Scopes:       []string{"read:user", "user:email"},
	}
}

// Has reports whether the named provider is configured.
func (o *OAuth) Has(provider string) bool {
	_, ok := o.providers[provider]
	return ok
}

func (o *OAuth) callbackURL(provider string) string {
	return o.callbackBase + "/auth/" + provider + "/callback"
}

// AuthorizeURL returns the external authorize URL to redirect the user to.
func (o *OAuth) AuthorizeURL(provider string) (string, error) {
	p, ok := o.providers[provider]
	if !ok {
		return "", fmt.Errorf("unknown oauth provider: %s", provider)
	}
	q := url.Values{}
	q.Set("client_id", p.ClientID)
	q.Set("redirect_uri", o.callbackURL(provider))
	q.Set("response_type", "code")
	q.Set("scope", strings.Join(p.Scopes, " "))
	return p.AuthURL + "?" + q.Encode(), nil
}

// Exchange trades an authorization code for the provider's view of the user.
func (o *OAuth) Exchange(ctx context.Context, provider, code string) (*ExternalIdentity, error) {
	p, ok := o.providers[provider]
	if !ok {
		return nil, fmt.Errorf("unknown oauth provider: %s", provider)
	}

	form := url.Values{}
	form.Set("client_id", p.ClientID)
	form.Set("client_secret", p.ClientSecret)
	form.Set("code", code)
	form.Set("grant_type", "authorization_code")
	form.Set("redirect_uri", o.callbackURL(provider))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.TokenURL, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, fmt.Errorf("create token request: %w", err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read token response: %w", err)
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		Error       string `json:"error"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, fmt.Errorf("parse token response: %w", err)
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("oauth token exchange failed (%s): %s", provider, tokenResp.Error)
	}

	return o.fetchUserInfo(ctx, p, tokenResp.AccessToken)
}

func (o *OAuth) fetchUserInfo(ctx context.Context, p OAuthProvider, accessToken string) (*ExternalIdentity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, p.UserInfoURL, nil)
	if err != nil {
		return nil, fmt.Errorf("create userinfo request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/json")

	resp, err := o.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch userinfo: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo request failed: status %d", resp.StatusCode)
	}

	// Providers disagree on field names: Google uses "sub", GitHub a
	// numeric "id". Decode loosely and normalize.
	var raw struct {
		Sub   string          `json:"sub"`
		ID    json.RawMessage `json:"id"`
		Email string          `json:"email"`
		Name  string          `json:"name"`
		Login string          `json:"login"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, fmt.Errorf("parse userinfo: %w", err)
	}

	externalID := raw.Sub
	if externalID == "" && len(raw.ID) > 0 {
		var n int64
		if err := json.Unmarshal(raw.ID, &n); err == nil {
			externalID = strconv.FormatInt(n, 10)
		} else {
			externalID = strings.Trim(string(raw.ID), `"`)
		}
	}
	if externalID == "" {
		return nil, fmt.Errorf("userinfo response has no subject identifier")
	}

	name := raw.Name
	if name == "" {
		name = raw.Login
	}

	return &ExternalIdentity{
		Provider:   p.Name,
		ExternalID: externalID,
		Email:      raw.Email,
		Name:       name,
	}, nil
}
