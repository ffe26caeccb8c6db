package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/profile"
	"golang.org/x/oauth2"
)

const maxResponseBytes = 1 << 20

// Client is the reusable descriptor of one OAuth2 provider. It is safe for
// concurrent use.
type Client struct {
	name       string
	oauth      *oauth2.Config
	profileURL string
	revokeURL  string
	httpClient *http.Client
	verifier   *oidc.IDTokenVerifier
}

type Option func(*Client)

// WithHTTPClient replaces the client used for outbound provider calls. Redirect
// following is always disabled on it.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		copied := *hc
		copied.CheckRedirect = noRedirects
		c.httpClient = &copied
	}
}

// WithIDTokenVerifier checks the id_token of every token response with v.
func WithIDTokenVerifier(v *oidc.IDTokenVerifier) Option {
	return func(c *Client) {
		c.verifier = v
	}
}

// AuthRequest is the material generated for one login attempt.
type AuthRequest struct {
	URL           string
	State         string
	CodeVerifier  string
	CodeChallenge string
}

// New builds the client from validated provider configuration.
func New(cfg config.Provider, opts ...Option) (*Client, error) {
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}

	c := &Client{
		name: cfg.Name,
		oauth: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
			RedirectURL: cfg.RedirectURL,
			Scopes:      cfg.Scopes,
		},
		profileURL: cfg.ProfileURL,
		revokeURL:  cfg.RevokeURL,
		httpClient: &http.Client{
			Timeout:       cfg.HTTPTimeout,
			CheckRedirect: noRedirects,
		},
	}
	for _, opt := range opts {
		opt(c)
	}

	if c.verifier == nil && cfg.VerifiesIDToken() {
		keyCtx := oidc.ClientContext(context.Background(), c.httpClient)
		keySet := oidc.NewRemoteKeySet(keyCtx, cfg.OIDCJWKSURL)
		c.verifier = oidc.NewVerifier(cfg.OIDCIssuer, keySet, &oidc.Config{
			ClientID:             cfg.ClientID,
			SupportedSigningAlgs: []string{oidc.RS256, oidc.ES256},
		})
	}
	return c, nil
}

// Provider responses are returned as-is, never followed to another location.
func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func (c *Client) Name() string {
	return c.name
}

// NewAuthRequest generates fresh CSRF and PKCE material and the provider
// authorization URL embedding them.
func (c *Client) NewAuthRequest() (AuthRequest, error) {
	state, err := GenerateState()
	if err != nil {
		return AuthRequest{}, err
	}
	verifier, challenge := GeneratePKCE()

	return AuthRequest{
		URL:           c.oauth.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier)),
		State:         state,
		CodeVerifier:  verifier,
		CodeChallenge: challenge,
	}, nil
}

// Exchange redeems an authorization code, presenting the PKCE verifier.
func (c *Client) Exchange(ctx context.Context, code, verifier string) (*oauth2.Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)

	token, err := c.oauth.Exchange(ctx, code, oauth2.VerifierOption(verifier))
	if err != nil {
		return nil, fmt.Errorf("%w: %w", errors.ErrTokenExchange, err)
	}

	if c.verifier != nil {
		rawIDToken, ok := token.Extra("id_token").(string)
		if !ok || rawIDToken == "" {
			return nil, fmt.Errorf("%w: %w: missing id_token", errors.ErrTokenExchange, errors.ErrInvalidIDToken)
		}
		if _, err := c.verifier.Verify(ctx, rawIDToken); err != nil {
			return nil, fmt.Errorf("%w: %w: %w", errors.ErrTokenExchange, errors.ErrInvalidIDToken, err)
		}
	}
	return token, nil
}

// FetchProfile calls the profile API with the access token as bearer credential.
func (c *Client) FetchProfile(ctx context.Context, token *oauth2.Token) (profile.Profile, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.profileURL, nil)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %w", errors.ErrProfileFetch, err)
	}
	token.SetAuthHeader(req)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %w", errors.ErrProfileFetch, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return profile.Profile{}, fmt.Errorf("%w: unexpected status %d", errors.ErrProfileFetch, resp.StatusCode)
	}

	var p profile.Profile
	if err := json.NewDecoder(io.LimitReader(resp.Body, maxResponseBytes)).Decode(&p); err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %w", errors.ErrProfileFetch, err)
	}
	if err := p.Validate(); err != nil {
		return profile.Profile{}, fmt.Errorf("%w: %w", errors.ErrProfileFetch, err)
	}
	return p, nil
}

// CanRevoke reports whether a revocation endpoint is configured.
func (c *Client) CanRevoke() bool {
	return c.revokeURL != ""
}

// Revoke invalidates an access token at the provider.
func (c *Client) Revoke(ctx context.Context, accessToken string) error {
	if !c.CanRevoke() || accessToken == "" {
		return nil
	}

	form := url.Values{}
	form.Set("access_token", accessToken)
	form.Set("client_id", c.oauth.ClientID)
	form.Set("client_secret", c.oauth.ClientSecret)

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.revokeURL, strings.NewReader(form.Encode()))
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrTokenRevocation, err)
	}
	req.Header.Set("Content-Type", "application/x-www-form-urlencoded")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %w", errors.ErrTokenRevocation, err)
	}
	defer resp.Body.Close()
	_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, maxResponseBytes))

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return fmt.Errorf("%w: unexpected status %d", errors.ErrTokenRevocation, resp.StatusCode)
	}
	return nil
}
