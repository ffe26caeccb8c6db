package server

import (
	"errors"
	"net/http"
)

const (
	// sessionCookieName carries the session id between login, callback and gated routes
	sessionCookieName = "session_id"

	contentTypeJSON = "application/json"
)

var errNoSessionCookie = errors.New("session cookie missing")

func sessionIDFromCookie(r *http.Request) (string, error) {
	cookie, err := r.Cookie(sessionCookieName)
	if err != nil {
		return "", errNoSessionCookie
	}
	if cookie.Value == "" {
		return "", errNoSessionCookie
	}
	return cookie.Value, nil
}

func (s *Server) setSessionCookie(w http.ResponseWriter, r *http.Request, sessionID string) {
	cookie := &http.Cookie{
		Name:     sessionCookieName,
		Value:    sessionID,
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
	}
	if maxAge := s.config.GetMaxSessionAge(); maxAge > 0 {
		cookie.MaxAge = int(maxAge.Seconds())
	}
	http.SetCookie(w, cookie)
}

func (s *Server) clearSessionCookie(w http.ResponseWriter, r *http.Request) {
	http.SetCookie(w, &http.Cookie{
		Name:     sessionCookieName,
		Value:    "",
		Path:     "/",
		HttpOnly: true,
		Secure:   s.secureCookies(r),
		SameSite: http.SameSiteLaxMode,
		MaxAge:   -1,
	})
}

func (s *Server) secureCookies(r *http.Request) bool {
	return s.config.GetCookieSecure() || getScheme(r) == "https"
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return scheme
	}
	return "http"
}
