// Package providertest runs a fake OAuth2 provider implementing the
// authorize, token, profile and revoke endpoints used by the login flow.
package providertest

import (
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/profile"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/stretchr/testify/require"
)

const (
	ClientID     = "test-channel"
	ClientSecret = "test-channel-secret"

	PathAuthorize = "/oauth2/v2.1/authorize"
	PathToken     = "/oauth2/v2.1/token"
	PathProfile   = "/v2/profile"
	PathRevoke    = "/oauth2/v2.1/revoke"
)

type grant struct {
	challenge   string
	method      string
	redirectURI string
}

// Server is a fake provider. The override handlers, when set, replace the
// default token or profile behaviour.
type Server struct {
	*httptest.Server

	Profile         profile.Profile
	IDToken         func() (string, error)
	TokenOverride   http.HandlerFunc
	ProfileOverride http.HandlerFunc

	mux          *http.ServeMux
	mu           sync.Mutex
	nextCode     int
	codes        map[string]grant
	accessTokens map[string]bool
	revoked      []string
	tokenCalls   int
	profileCalls int
}

// New starts a fake provider that is closed when the test finishes.
func New(t testing.TB) *Server {
	t.Helper()

	s := &Server{
		Profile: profile.Profile{
			UserID:        "U1",
			DisplayName:   "Alice",
			PictureURL:    "http://x/p.png",
			StatusMessage: "hi",
		},
		codes:        make(map[string]grant),
		accessTokens: make(map[string]bool),
	}

	s.mux = http.NewServeMux()
	s.mux.HandleFunc("POST "+PathToken, s.token)
	s.mux.HandleFunc("GET "+PathProfile, s.profile)
	s.mux.HandleFunc("POST "+PathRevoke, s.revoke)
	s.Server = httptest.NewServer(s.mux)
	t.Cleanup(s.Close)
	return s
}

// Handle registers an extra endpoint on the fake.
func (s *Server) Handle(pattern string, handler http.HandlerFunc) {
	s.mux.HandleFunc(pattern, handler)
}

// ProviderConfig returns a provider configuration pointing at the fake.
func (s *Server) ProviderConfig(redirectURL string) config.Provider {
	return config.Provider{
		Name:         "line",
		ClientID:     ClientID,
		ClientSecret: ClientSecret,
		AuthorizeURL: s.URL + PathAuthorize,
		TokenURL:     s.URL + PathToken,
		ProfileURL:   s.URL + PathProfile,
		RedirectURL:  redirectURL,
		RevokeURL:    s.URL + PathRevoke,
		Scopes:       []string{"profile", "openid"},
		HTTPTimeout:  5 * time.Second,
	}
}

// Client builds a provider client against the fake.
func (s *Server) Client(t testing.TB, redirectURL string, opts ...provider.Option) *provider.Client {
	t.Helper()
	c, err := provider.New(s.ProviderConfig(redirectURL), opts...)
	require.NoError(t, err)
	return c
}

// Authorize plays the user consenting on the provider's page: it checks the
// authorization request and returns the code and state the provider would
// append to the redirect URL.
func (s *Server) Authorize(t testing.TB, authURL string) (code, state string) {
	t.Helper()

	u, err := url.Parse(authURL)
	require.NoError(t, err)
	require.Equal(t, PathAuthorize, u.Path)

	q := u.Query()
	require.Equal(t, "code", q.Get("response_type"))
	require.Equal(t, ClientID, q.Get("client_id"))
	require.NotEmpty(t, q.Get("redirect_uri"))
	require.NotEmpty(t, q.Get("state"))
	require.NotEmpty(t, q.Get("code_challenge"))
	require.Equal(t, "S256", q.Get("code_challenge_method"))

	s.mu.Lock()
	defer s.mu.Unlock()
	s.nextCode++
	code = fmt.Sprintf("code-%d", s.nextCode)
	s.codes[code] = grant{
		challenge:   q.Get("code_challenge"),
		method:      q.Get("code_challenge_method"),
		redirectURI: q.Get("redirect_uri"),
	}
	return code, q.Get("state")
}

func (s *Server) TokenCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.tokenCalls
}

func (s *Server) ProfileCalls() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.profileCalls
}

func (s *Server) Revoked() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.revoked...)
}

func (s *Server) token(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.tokenCalls++
	s.mu.Unlock()

	if s.TokenOverride != nil {
		s.TokenOverride(w, r)
		return
	}

	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("grant_type") != "authorization_code" {
		writeError(w, http.StatusBadRequest, "unsupported_grant_type")
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	s.mu.Lock()
	g, ok := s.codes[r.PostForm.Get("code")]
	delete(s.codes, r.PostForm.Get("code")) // codes are single-use
	s.mu.Unlock()
	if !ok || g.redirectURI != r.PostForm.Get("redirect_uri") {
		writeError(w, http.StatusBadRequest, "invalid_grant")
		return
	}
	if g.method != "S256" || provider.ChallengeFromVerifier(r.PostForm.Get("code_verifier")) != g.challenge {
		writeError(w, http.StatusBadRequest, "invalid_grant")
		return
	}

	s.mu.Lock()
	accessToken := fmt.Sprintf("access-%d", len(s.accessTokens)+1)
	s.accessTokens[accessToken] = true
	s.mu.Unlock()

	resp := map[string]any{
		"access_token": accessToken,
		"token_type":   "Bearer",
		"expires_in":   2592000,
		"scope":        "profile openid",
	}
	if s.IDToken != nil {
		idToken, err := s.IDToken()
		if err != nil {
			writeError(w, http.StatusInternalServerError, "server_error")
			return
		}
		resp["id_token"] = idToken
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) profile(w http.ResponseWriter, r *http.Request) {
	s.mu.Lock()
	s.profileCalls++
	s.mu.Unlock()

	if s.ProfileOverride != nil {
		s.ProfileOverride(w, r)
		return
	}

	const prefix = "Bearer "
	auth := r.Header.Get("Authorization")
	if len(auth) <= len(prefix) || auth[:len(prefix)] != prefix {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}

	s.mu.Lock()
	valid := s.accessTokens[auth[len(prefix):]]
	s.mu.Unlock()
	if !valid {
		writeError(w, http.StatusUnauthorized, "invalid_token")
		return
	}
	writeJSON(w, http.StatusOK, s.Profile)
}

func (s *Server) revoke(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseForm(); err != nil {
		writeError(w, http.StatusBadRequest, "invalid_request")
		return
	}
	if r.PostForm.Get("client_id") != ClientID || r.PostForm.Get("client_secret") != ClientSecret {
		writeError(w, http.StatusUnauthorized, "invalid_client")
		return
	}

	s.mu.Lock()
	token := r.PostForm.Get("access_token")
	delete(s.accessTokens, token)
	s.revoked = append(s.revoked, token)
	s.mu.Unlock()
	w.WriteHeader(http.StatusOK)
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, map[string]string{"error": code})
}
