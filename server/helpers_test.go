package server_test

import (
	"io"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"net/url"
	"sync"
	"testing"
	"time"

	"github.com/jrsteele09/go-line-login/internal/config"
	"github.com/jrsteele09/go-line-login/provider/providertest"
	"github.com/jrsteele09/go-line-login/server"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/require"
)

const (
	testRedirectURL = "http://localhost:8080/oauth2/line/callback"
	loginPath       = "/oauth2/line/login"
	callbackPath    = "/oauth2/line/callback"
	logoutPath      = "/oauth2/line/logout"
	wantProfileJSON = `{"userId":"U1","displayName":"Alice","pictureUrl":"http://x/p.png","statusMessage":"hi"}`
)

type testClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// testEnv is the login service running against a fake provider, with a
// cookie keeping client standing in for the browser.
type testEnv struct {
	fake    *providertest.Server
	repo    *sessions.InMemoryRepo
	server  *server.Server
	app     *httptest.Server
	clock   *testClock
	browser *http.Client
}

func newTestEnv(t *testing.T, opts ...server.Option) *testEnv {
	t.Helper()

	cfg, err := config.New()
	require.NoError(t, err)

	fake := providertest.New(t)
	repo := sessions.NewInMemoryRepo()
	clock := &testClock{now: time.Date(2026, time.October, 14, 9, 0, 0, 0, time.UTC)}

	opts = append([]server.Option{
		server.WithProviderClient(fake.Client(t, testRedirectURL)),
		server.WithRegistry(prometheus.NewRegistry()),
		server.WithClock(clock.Now),
	}, opts...)
	srv, err := server.New(cfg, repo, opts...)
	require.NoError(t, err)
	t.Cleanup(srv.Close)

	app := httptest.NewServer(srv)
	t.Cleanup(app.Close)

	jar, err := cookiejar.New(nil)
	require.NoError(t, err)

	return &testEnv{
		fake:    fake,
		repo:    repo,
		server:  srv,
		app:     app,
		clock:   clock,
		browser: &http.Client{Jar: jar, CheckRedirect: noRedirects},
	}
}

func noRedirects(*http.Request, []*http.Request) error {
	return http.ErrUseLastResponse
}

func (e *testEnv) send(t *testing.T, client *http.Client, req *http.Request) *http.Response {
	t.Helper()
	resp, err := client.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })
	return resp
}

func (e *testEnv) newRequest(t *testing.T, method, path string) *http.Request {
	t.Helper()
	req, err := http.NewRequest(method, e.app.URL+path, nil)
	require.NoError(t, err)
	return req
}

// do sends a request from the browser.
func (e *testEnv) do(t *testing.T, method, path string) *http.Response {
	t.Helper()
	return e.send(t, e.browser, e.newRequest(t, method, path))
}

// doWithCookie sends a request carrying exactly the given session cookie.
func (e *testEnv) doWithCookie(t *testing.T, method, path, sessionID string) *http.Response {
	t.Helper()
	req := e.newRequest(t, method, path)
	if sessionID != "" {
		req.AddCookie(&http.Cookie{Name: "session_id", Value: sessionID})
	}
	return e.send(t, &http.Client{CheckRedirect: noRedirects}, req)
}

// login starts a login and returns the provider authorization URL.
func (e *testEnv) login(t *testing.T) string {
	t.Helper()
	resp := e.do(t, http.MethodGet, loginPath)
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	return resp.Header.Get("Location")
}

// sessionID is the session cookie currently held by the browser.
func (e *testEnv) sessionID(t *testing.T) string {
	t.Helper()
	u, err := url.Parse(e.app.URL)
	require.NoError(t, err)
	for _, c := range e.browser.Jar.Cookies(u) {
		if c.Name == "session_id" {
			return c.Value
		}
	}
	return ""
}

func callbackURL(code, state string) string {
	q := url.Values{}
	if code != "" {
		q.Set("code", code)
	}
	if state != "" {
		q.Set("state", state)
	}
	return callbackPath + "?" + q.Encode()
}

// signIn runs the whole flow and returns the authenticated session id.
func (e *testEnv) signIn(t *testing.T) string {
	t.Helper()
	code, state := e.fake.Authorize(t, e.login(t))
	resp := e.do(t, http.MethodGet, callbackURL(code, state))
	require.Equal(t, http.StatusTemporaryRedirect, resp.StatusCode)
	require.Equal(t, "/profile", resp.Header.Get("Location"))
	return e.sessionID(t)
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	require.NoError(t, err)
	return string(b)
}

func findCookie(resp *http.Response, name string) *http.Cookie {
	for _, c := range resp.Cookies() {
		if c.Name == name {
			return c
		}
	}
	return nil
}

func setProviderEnv(t *testing.T, fake *providertest.Server) {
	t.Helper()
	t.Setenv("LINE_CHANNEL_ID", providertest.ClientID)
	t.Setenv("LINE_CHANNEL_SECRET", providertest.ClientSecret)
	t.Setenv("LINE_API_AUTHORIZE", fake.URL+providertest.PathAuthorize)
	t.Setenv("LINE_API_TOKEN", fake.URL+providertest.PathToken)
	t.Setenv("LINE_API_PROFILE", fake.URL+providertest.PathProfile)
	t.Setenv("REDIRECT_URL", testRedirectURL)
}
