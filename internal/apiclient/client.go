// Package apiclient implements the authenticated client SDK: the
// token-lifecycle client that speaks to the OAuth2/OIDC identity
// provider, the request helpers that wrap every API call in the
// uniform response envelope, and the facade that exposes the license
// operations.
package apiclient

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"sync"
	"time"

	"licenser/pkg/contracts/domain"
)

// Error envelope messages. These are part of the SDK contract and are
// surfaced verbatim to host applications.
const (
	msgNotAuthorized  = "error: client was not authorized"
	msgServerError    = "Server Internal Error"
	msgAPIUnavailable = "Maybe currently API server is not available."
)

// Options configures the API client.
type Options struct {
	// APIBaseURL is the license API server address, without the
	// versioned path prefix.
	APIBaseURL string
	// AuthorityURL is the identity provider address serving the OIDC
	// discovery document.
	AuthorityURL string
	ClientID     string
	ClientSecret string
	Scope        string
	ProductName  string
	// Timeout bounds every network call. Zero means 30s.
	Timeout time.Duration
	// HTTPClient overrides the transport. Test hook; when set, its
	// Timeout is left untouched.
	HTTPClient *http.Client
}

func (o Options) validate() error {
	if strings.TrimSpace(o.APIBaseURL) == "" {
		return fmt.Errorf("api base url must not be empty")
	}
	if strings.TrimSpace(o.AuthorityURL) == "" {
		return fmt.Errorf("authority url must not be empty")
	}
	return nil
}

// discoveryDocument is the subset of the OIDC discovery metadata the
// client needs.
type discoveryDocument struct {
	TokenEndpoint      string `json:"token_endpoint"`
	UserInfoEndpoint   string `json:"userinfo_endpoint"`
	RevocationEndpoint string `json:"revocation_endpoint"`
}

// oauthError is the provider's error response body.
type oauthError struct {
	Error            string `json:"error"`
	ErrorDescription string `json:"error_description"`
}

// TokenClient owns the HTTP session to the identity provider and the
// license API. It holds exactly one mutable token at a time; callers
// must serialize authentication attempts since a concurrent second
// call would silently overwrite the first's token.
type TokenClient struct {
	opts    Options
	http    *http.Client
	apiBase string

	mu     sync.RWMutex
	bearer string
	token  *domain.Token
	creds  *domain.Credentials

	logger *slog.Logger
}

// NewTokenClient creates a token client from the given options.
func NewTokenClient(opts Options, logger *slog.Logger) (*TokenClient, error) {
	if err := opts.validate(); err != nil {
		return nil, err
	}
	if opts.Timeout <= 0 {
		opts.Timeout = 30 * time.Second
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{Timeout: opts.Timeout}
	}

	return &TokenClient{
		opts:    opts,
		http:    httpClient,
		apiBase: strings.TrimSuffix(opts.APIBaseURL, "/") + "/v1/",
		logger:  logger.With(slog.String("component", "token_client")),
	}, nil
}

// IsAuthenticated reports whether a bearer token is currently attached
// to outbound requests. Cheap and synchronous; callers gate UI state
// on it without awaiting I/O.
func (c *TokenClient) IsAuthenticated() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.bearer != ""
}

// SetAccessToken attaches or replaces the bearer token. A no-op on
// empty input.
func (c *TokenClient) SetAccessToken(accessToken string) {
	if accessToken == "" {
		return
	}
	c.mu.Lock()
	c.bearer = accessToken
	c.mu.Unlock()
}

// Credentials returns the credentials enriched by the last successful
// authentication, or nil.
func (c *TokenClient) Credentials() *domain.Credentials {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.creds
}

// AuthenticatePassword performs the password grant against the
// identity provider. On success the token is attached and the
// credentials' id, username and email are refreshed from the
// provider's userinfo claims — the only place credentials are
// enriched from the server.
func (c *TokenClient) AuthenticatePassword(ctx context.Context, creds *domain.Credentials) domain.Response[*domain.Token] {
	if creds == nil {
		return domain.Err[*domain.Token](domain.ErrKindInvalidArgument, "credentials must not be nil")
	}

	discovery, errMsg := c.discover(ctx)
	if errMsg != "" {
		return domain.Err[*domain.Token](domain.ErrKindAuth, errMsg)
	}

	form := url.Values{
		"grant_type":    {"password"},
		"client_id":     {c.opts.ClientID},
		"client_secret": {c.opts.ClientSecret},
		"scope":         {c.opts.Scope},
		"username":      {creds.UserName},
		"password":      {creds.Password},
	}

	token, oauthErr, err := c.requestToken(ctx, discovery.TokenEndpoint, form)
	if err != nil {
		return domain.Err[*domain.Token](domain.ErrKindAuth, fmt.Sprintf("auth_error: %v", err))
	}
	if oauthErr != nil {
		return domain.Err[*domain.Token](domain.ErrKindAuth,
			fmt.Sprintf("auth_error: %s, error_desc: %s", oauthErr.Error, oauthErr.ErrorDescription))
	}

	c.SetAccessToken(token.AccessToken)

	claims, err := c.userInfo(ctx, discovery.UserInfoEndpoint, token.AccessToken)
	if err != nil {
		c.logger.WarnContext(ctx, "userinfo request failed",
			slog.String("error", err.Error()))
		claims = map[string]string{}
	}

	c.mu.Lock()
	c.token = token
	creds.UserName = claims["name"]
	creds.Email = claims["email"]
	creds.ID = claims["sub"]
	c.creds = creds
	c.mu.Unlock()

	c.logger.InfoContext(ctx, "password grant succeeded",
		slog.String("subject", creds.ID),
		slog.String("username", creds.UserName),
	)

	return domain.OK("Returned access token", token)
}

// refreshIfExpired exchanges the refresh token once the held token's
// lifetime has lapsed, so a long-running host keeps a live bearer
// without re-prompting for credentials. On failure the stale bearer
// stays attached and the server's rejection surfaces on the request
// itself.
func (c *TokenClient) refreshIfExpired(ctx context.Context) {
	c.mu.RLock()
	token := c.token
	c.mu.RUnlock()

	if token == nil || !token.Expired(time.Now()) || token.RefreshToken == "" {
		return
	}

	if resp := c.RefreshToken(ctx, token.RefreshToken); resp.IsError() {
		c.logger.WarnContext(ctx, "proactive token refresh failed",
			slog.String("message", resp.Message))
	}
}

// RefreshToken exchanges a refresh token for a fresh token pair and
// reattaches it.
func (c *TokenClient) RefreshToken(ctx context.Context, refreshToken string) domain.Response[*domain.Token] {
	if strings.TrimSpace(refreshToken) == "" {
		return domain.Err[*domain.Token](domain.ErrKindAuth, "auth_error: refresh token is empty")
	}

	discovery, errMsg := c.discover(ctx)
	if errMsg != "" {
		return domain.Err[*domain.Token](domain.ErrKindAuth, errMsg)
	}

	form := url.Values{
		"grant_type":    {"refresh_token"},
		"client_id":     {c.opts.ClientID},
		"client_secret": {c.opts.ClientSecret},
		"scope":         {c.opts.Scope},
		"refresh_token": {refreshToken},
	}

	token, oauthErr, err := c.requestToken(ctx, discovery.TokenEndpoint, form)
	if err != nil {
		return domain.Err[*domain.Token](domain.ErrKindAuth, fmt.Sprintf("auth_error: %v", err))
	}
	if oauthErr != nil {
		return domain.Err[*domain.Token](domain.ErrKindAuth,
			fmt.Sprintf("auth_error: %s, error_desc: %s", oauthErr.Error, oauthErr.ErrorDescription))
	}

	c.mu.Lock()
	c.token = token
	c.mu.Unlock()
	c.SetAccessToken(token.AccessToken)

	return domain.OK("Returned access token", token)
}

// RevokeToken revokes the given token at the provider. The locally
// attached token is not cleared; that is the caller's responsibility.
func (c *TokenClient) RevokeToken(ctx context.Context, accessToken string) domain.Response[domain.Unit] {
	if strings.TrimSpace(accessToken) == "" {
		return domain.Err[domain.Unit](domain.ErrKindAuth, "auth_error: token is empty")
	}

	discovery, errMsg := c.discover(ctx)
	if errMsg != "" {
		return domain.Err[domain.Unit](domain.ErrKindAuth, errMsg)
	}

	form := url.Values{
		"client_id":     {c.opts.ClientID},
		"client_secret": {c.opts.ClientSecret},
		"token":         {accessToken},
	}

	resp, err := c.postForm(ctx, discovery.RevocationEndpoint, form)
	if err != nil {
		return domain.Err[domain.Unit](domain.ErrKindAuth, fmt.Sprintf("auth_error: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			return domain.Err[domain.Unit](domain.ErrKindAuth, fmt.Sprintf("auth_error: %s", oe.Error))
		}
		return domain.Err[domain.Unit](domain.ErrKindAuth,
			fmt.Sprintf("auth_error: revocation failed with status %d", resp.StatusCode))
	}

	return domain.OK("Token revoked", domain.Unit{})
}

// discover fetches the provider's discovery document. On failure it
// returns the envelope message, already prefixed with "auth_error:".
func (c *TokenClient) discover(ctx context.Context) (*discoveryDocument, string) {
	endpoint := strings.TrimSuffix(c.opts.AuthorityURL, "/") + "/.well-known/openid-configuration"

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Sprintf("auth_error: %v", err)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, fmt.Sprintf("auth_error: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Sprintf("auth_error: discovery returned status %d", resp.StatusCode)
	}

	var doc discoveryDocument
	if err := json.NewDecoder(resp.Body).Decode(&doc); err != nil {
		return nil, fmt.Sprintf("auth_error: %v", err)
	}
	if doc.TokenEndpoint == "" {
		return nil, "auth_error: discovery document has no token endpoint"
	}

	return &doc, ""
}

// requestToken posts a grant form to the token endpoint. A provider
// rejection is returned as an oauthError, transport failures as err.
func (c *TokenClient) requestToken(ctx context.Context, endpoint string, form url.Values) (*domain.Token, *oauthError, error) {
	resp, err := c.postForm(ctx, endpoint, form)
	if err != nil {
		return nil, nil, err
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, nil, err
	}

	if resp.StatusCode != http.StatusOK {
		var oe oauthError
		if json.Unmarshal(body, &oe) == nil && oe.Error != "" {
			return nil, &oe, nil
		}
		return nil, &oauthError{Error: fmt.Sprintf("token endpoint returned status %d", resp.StatusCode)}, nil
	}

	var token domain.Token
	if err := json.Unmarshal(body, &token); err != nil {
		return nil, nil, fmt.Errorf("invalid token response: %w", err)
	}
	if token.ExpiresIn > 0 {
		token.Expiry = time.Now().Add(time.Duration(token.ExpiresIn) * time.Second)
	}

	return &token, nil, nil
}

// userInfo fetches the provider's userinfo claims with the given
// token. Absent claims default to the empty string rather than null so
// absence never propagates through the credential model.
func (c *TokenClient) userInfo(ctx context.Context, endpoint, accessToken string) (map[string]string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := c.http.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("userinfo returned status %d", resp.StatusCode)
	}

	var raw map[string]any
	if err := json.NewDecoder(resp.Body).Decode(&raw); err != nil {
		return nil, err
	}

	claims := make(map[string]string, len(raw))
	for k, v := range raw {
		if s, ok := v.(string); ok {
			claims[k] = s
		}
	}
	return claims, nil
}

func (c *TokenClient) postForm(ctx context.Context, endpoint string, form url.Values) (*http.Response, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, endpoint, strings.NewReader(form.Encode()))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")
	return c.http.Do(req)
}
