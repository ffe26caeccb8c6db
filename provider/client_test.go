package provider_test

import (
	"context"
	"crypto"
	"crypto/rand"
	"crypto/rsa"
	"net/http"
	"net/url"
	"testing"
	"time"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/provider/providertest"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"
)

const (
	testRedirectURL = "http://localhost:8080/oauth2/line/callback"
	testIssuer      = "https://access.line.example"
)

func TestNew_RejectsInvalidConfig(t *testing.T) {
	fake := providertest.New(t)
	cfg := fake.ProviderConfig(testRedirectURL)
	cfg.TokenURL = "not a url"

	_, err := provider.New(cfg)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrInvalidConfig))
}

func TestNewAuthRequest_URL(t *testing.T) {
	fake := providertest.New(t)
	c := fake.Client(t, testRedirectURL)

	req, err := c.NewAuthRequest()
	require.NoError(t, err)

	u, err := url.Parse(req.URL)
	require.NoError(t, err)
	q := u.Query()

	require.Equal(t, fake.URL+providertest.PathAuthorize, u.Scheme+"://"+u.Host+u.Path)
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, providertest.ClientID, q.Get("client_id"))
	require.Equal(t, testRedirectURL, q.Get("redirect_uri"))
	require.Equal(t, "profile openid", q.Get("scope"))
	require.Equal(t, req.State, q.Get("state"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))
	require.Equal(t, req.CodeChallenge, q.Get("code_challenge"))

	// The challenge sent is re-derivable from the verifier kept server-side
	require.Equal(t, provider.ChallengeFromVerifier(req.CodeVerifier), q.Get("code_challenge"))
	require.Empty(t, q.Get("client_secret"))
}

func TestNewAuthRequest_FreshMaterial(t *testing.T) {
	fake := providertest.New(t)
	c := fake.Client(t, testRedirectURL)

	seen := make(map[string]bool)
	for i := 0; i < 100; i++ {
		req, err := c.NewAuthRequest()
		require.NoError(t, err)
		require.NotEqual(t, req.State, req.CodeVerifier)
		require.False(t, seen[req.State], "state reused")
		require.False(t, seen[req.CodeVerifier], "verifier reused")
		seen[req.State] = true
		seen[req.CodeVerifier] = true
	}
}

func TestGeneratePKCE(t *testing.T) {
	verifier, challenge := provider.GeneratePKCE()

	// RFC 7636 allows 43 to 128 characters
	require.GreaterOrEqual(t, len(verifier), 43)
	require.LessOrEqual(t, len(verifier), 128)
	require.Equal(t, oauth2.S256ChallengeFromVerifier(verifier), challenge)
}

func TestChallengeFromVerifier_RFC7636Vector(t *testing.T) {
	// Appendix B of RFC 7636
	require.Equal(t,
		"E9Melhoa2OwvFrEMTJguCHaoeK1t8URWbuGJSstw-cM",
		provider.ChallengeFromVerifier("dBjftJeZ4CVP-mB92K27uhbUJU1p1r_wW1gFWFOEjXk"))
}

func TestGenerateState(t *testing.T) {
	a, err := provider.GenerateState()
	require.NoError(t, err)
	b, err := provider.GenerateState()
	require.NoError(t, err)

	require.Len(t, a, 43)
	require.NotEqual(t, a, b)
}

func TestExchangeAndFetchProfile(t *testing.T) {
	fake := providertest.New(t)
	c := fake.Client(t, testRedirectURL)

	req, err := c.NewAuthRequest()
	require.NoError(t, err)
	code, state := fake.Authorize(t, req.URL)
	require.Equal(t, req.State, state)

	token, err := c.Exchange(context.Background(), code, req.CodeVerifier)
	require.NoError(t, err)
	require.NotEmpty(t, token.AccessToken)

	p, err := c.FetchProfile(context.Background(), token)
	require.NoError(t, err)
	require.Equal(t, fake.Profile, p)
}

func TestExchange_WrongVerifier(t *testing.T) {
	fake := providertest.New(t)
	c := fake.Client(t, testRedirectURL)

	req, err := c.NewAuthRequest()
	require.NoError(t, err)
	code, _ := fake.Authorize(t, req.URL)

	other, _ := provider.GeneratePKCE()
	_, err = c.Exchange(context.Background(), code, other)
	require.Error(t, err)
	require.True(t, errors.Is(err, errors.ErrTokenExchange))
}

func TestExchange_CodeIsSingleUse(t *testing.T) {
	fake := providertest.New(t)
	c := fake.Client(t, testRedirectURL)

	req, err := c.NewAuthRequest()
	require.NoError(t, err)
	code, _ := fake.Authorize(t, req.URL)

	_, err = c.Exchange(context.Background(), code, req.CodeVerifier)
	require.NoError(t, err)
	_, err = c.Exchange(context.Background(), code, req.CodeVerifier)
	require.True(t, errors.Is(err, errors.ErrTokenExchange))
}

func TestExchange_DoesNotFollowRedirects(t *testing.T) {
	fake := providertest.New(t)
	redirectTarget := 0
	fake.TokenOverride = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, fake.URL+"/elsewhere", http.StatusFound)
	}
	fake.Handle("/elsewhere", func(w http.ResponseWriter, r *http.Request) {
		redirectTarget++
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"stolen","token_type":"Bearer"}`))
	})

	c := fake.Client(t, testRedirectURL)
	_, err := c.Exchange(context.Background(), "code", "verifier")
	require.True(t, errors.Is(err, errors.ErrTokenExchange))
	require.Zero(t, redirectTarget)
}

func TestWithHTTPClient_KeepsRedirectsDisabled(t *testing.T) {
	fake := providertest.New(t)
	followed := false
	fake.ProfileOverride = func(w http.ResponseWriter, r *http.Request) {
		http.Redirect(w, r, fake.URL+"/followed", http.StatusFound)
	}
	fake.Handle("/followed", func(w http.ResponseWriter, r *http.Request) {
		followed = true
	})

	c := fake.Client(t, testRedirectURL, provider.WithHTTPClient(&http.Client{Timeout: time.Second}))
	_, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "a", TokenType: "Bearer"})
	require.True(t, errors.Is(err, errors.ErrProfileFetch))
	require.False(t, followed)
}

func TestFetchProfile_Failures(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusUnauthorized)
		}},
		{"malformed json", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"userId":`))
		}},
		{"missing user id", func(w http.ResponseWriter, r *http.Request) {
			_, _ = w.Write([]byte(`{"displayName":"Alice"}`))
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := providertest.New(t)
			fake.ProfileOverride = tt.handler
			c := fake.Client(t, testRedirectURL)

			_, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "a", TokenType: "Bearer"})
			require.True(t, errors.Is(err, errors.ErrProfileFetch))
		})
	}
}

func TestFetchProfile_SendsBearerToken(t *testing.T) {
	fake := providertest.New(t)
	var authHeader string
	fake.ProfileOverride = func(w http.ResponseWriter, r *http.Request) {
		authHeader = r.Header.Get("Authorization")
		_, _ = w.Write([]byte(`{"userId":"U9"}`))
	}
	c := fake.Client(t, testRedirectURL)

	p, err := c.FetchProfile(context.Background(), &oauth2.Token{AccessToken: "tok-123", TokenType: "bearer"})
	require.NoError(t, err)
	require.Equal(t, "U9", p.UserID)
	require.Equal(t, "Bearer tok-123", authHeader)
}

func TestRevoke(t *testing.T) {
	fake := providertest.New(t)
	c := fake.Client(t, testRedirectURL)
	require.True(t, c.CanRevoke())

	require.NoError(t, c.Revoke(context.Background(), "access-1"))
	require.Equal(t, []string{"access-1"}, fake.Revoked())

	// Nothing to revoke
	require.NoError(t, c.Revoke(context.Background(), ""))
	require.Len(t, fake.Revoked(), 1)
}

func TestRevoke_NotConfigured(t *testing.T) {
	fake := providertest.New(t)
	cfg := fake.ProviderConfig(testRedirectURL)
	cfg.RevokeURL = ""
	c, err := provider.New(cfg)
	require.NoError(t, err)

	require.False(t, c.CanRevoke())
	require.NoError(t, c.Revoke(context.Background(), "access-1"))
	require.Empty(t, fake.Revoked())
}

func newIDTokenSigner(t *testing.T, key *rsa.PrivateKey, audience string, expiresAt time.Time) func() (string, error) {
	t.Helper()
	return func() (string, error) {
		claims := jwt.RegisteredClaims{
			Issuer:    testIssuer,
			Subject:   "U1",
			Audience:  jwt.ClaimStrings{audience},
			IssuedAt:  jwt.NewNumericDate(time.Now()),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		}
		return jwt.NewWithClaims(jwt.SigningMethodRS256, claims).SignedString(key)
	}
}

func newVerifier(key *rsa.PrivateKey) *oidc.IDTokenVerifier {
	keySet := &oidc.StaticKeySet{PublicKeys: []crypto.PublicKey{&key.PublicKey}}
	return oidc.NewVerifier(testIssuer, keySet, &oidc.Config{ClientID: providertest.ClientID})
}

func TestExchange_VerifiesIDToken(t *testing.T) {
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	tests := []struct {
		name    string
		signer  func() (string, error)
		wantErr bool
	}{
		{"valid", newIDTokenSigner(t, key, providertest.ClientID, time.Now().Add(time.Hour)), false},
		{"wrong audience", newIDTokenSigner(t, key, "someone-else", time.Now().Add(time.Hour)), true},
		{"expired", newIDTokenSigner(t, key, providertest.ClientID, time.Now().Add(-time.Hour)), true},
		{"missing", nil, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			fake := providertest.New(t)
			fake.IDToken = tt.signer
			c := fake.Client(t, testRedirectURL, provider.WithIDTokenVerifier(newVerifier(key)))

			req, err := c.NewAuthRequest()
			require.NoError(t, err)
			code, _ := fake.Authorize(t, req.URL)

			_, err = c.Exchange(context.Background(), code, req.CodeVerifier)
			if tt.wantErr {
				require.True(t, errors.Is(err, errors.ErrTokenExchange))
				require.True(t, errors.Is(err, errors.ErrInvalidIDToken))
				return
			}
			require.NoError(t, err)
		})
	}
}
