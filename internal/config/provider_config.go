package config

import (
	"fmt"
	"net/url"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/hashicorp/go-multierror"
	"github.com/jrsteele09/go-line-login/internal/errors"
)

// Provider describes the upstream OAuth2 identity provider.
type Provider struct {
	Name         string        `env:"OAUTH_PROVIDER_NAME" envDefault:"line"`
	ClientID     string        `env:"LINE_CHANNEL_ID,required,notEmpty"`
	ClientSecret string        `env:"LINE_CHANNEL_SECRET,required,notEmpty"`
	AuthorizeURL string        `env:"LINE_API_AUTHORIZE,required,notEmpty"`
	TokenURL     string        `env:"LINE_API_TOKEN,required,notEmpty"`
	ProfileURL   string        `env:"LINE_API_PROFILE,required,notEmpty"`
	RedirectURL  string        `env:"REDIRECT_URL,required,notEmpty"`
	RevokeURL    string        `env:"LINE_API_REVOKE"`
	OIDCIssuer   string        `env:"LINE_OIDC_ISSUER"`
	OIDCJWKSURL  string        `env:"LINE_OIDC_JWKS"`
	Scopes       []string      `env:"OAUTH_SCOPES" envSeparator:"," envDefault:"profile,openid"`
	HTTPTimeout  time.Duration `env:"OAUTH_HTTP_TIMEOUT" envDefault:"10s"`
}

// VerifiesIDToken reports whether ID tokens returned by the token endpoint are checked.
func (p Provider) VerifiesIDToken() bool {
	return p.OIDCIssuer != ""
}

// LoadProvider reads the provider configuration from the environment and
// validates it. Every problem found is reported in the returned error.
func LoadProvider() (Provider, error) {
	var p Provider
	var result *multierror.Error
	if err := env.Parse(&p); err != nil {
		result = multierror.Append(result, err)
	}
	p.Scopes = trimCSV(p.Scopes)

	if err := p.Validate(); err != nil {
		result = multierror.Append(result, err)
	}
	if err := result.ErrorOrNil(); err != nil {
		return Provider{}, fmt.Errorf("%w: %w", errors.ErrInvalidConfig, err)
	}
	return p, nil
}

// Validate checks the values that env tags cannot express. Missing required
// values are left to the env parser.
func (p Provider) Validate() error {
	var result *multierror.Error

	if p.Name == "" || strings.ContainsAny(p.Name, "/?#") {
		result = multierror.Append(result, fmt.Errorf("OAUTH_PROVIDER_NAME %q is not a valid path segment", p.Name))
	}

	urls := []struct {
		name  string
		value string
	}{
		{"LINE_API_AUTHORIZE", p.AuthorizeURL},
		{"LINE_API_TOKEN", p.TokenURL},
		{"LINE_API_PROFILE", p.ProfileURL},
		{"REDIRECT_URL", p.RedirectURL},
		{"LINE_API_REVOKE", p.RevokeURL},
		{"LINE_OIDC_ISSUER", p.OIDCIssuer},
		{"LINE_OIDC_JWKS", p.OIDCJWKSURL},
	}
	for _, u := range urls {
		if u.value == "" {
			continue
		}
		if err := validateURL(u.value); err != nil {
			result = multierror.Append(result, fmt.Errorf("%s: %w", u.name, err))
		}
	}

	if (p.OIDCIssuer == "") != (p.OIDCJWKSURL == "") {
		result = multierror.Append(result, fmt.Errorf("LINE_OIDC_ISSUER and LINE_OIDC_JWKS must be set together"))
	}
	if len(p.Scopes) == 0 {
		result = multierror.Append(result, fmt.Errorf("OAUTH_SCOPES must name at least one scope"))
	}
	if p.HTTPTimeout <= 0 {
		result = multierror.Append(result, fmt.Errorf("OAUTH_HTTP_TIMEOUT must be positive"))
	}

	return result.ErrorOrNil()
}

func validateURL(raw string) error {
	u, err := url.ParseRequestURI(raw)
	if err != nil {
		return fmt.Errorf("malformed URL %q: %w", raw, err)
	}
	if u.Scheme != "http" && u.Scheme != "https" {
		return fmt.Errorf("URL %q must use http or https", raw)
	}
	if u.Host == "" {
		return fmt.Errorf("URL %q has no host", raw)
	}
	return nil
}

// trimCSV removes empty entries from a string slice.
func trimCSV(values []string) []string {
	result := make([]string, 0, len(values))
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			result = append(result, v)
		}
	}
	return result
}
