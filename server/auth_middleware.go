package server

import (
	"context"
	"net/http"

	"github.com/jrsteele09/go-line-login/profile"
)

// ContextKey is a custom type for context keys to avoid collisions
type ContextKey string

const (
	// ContextKeyProfile stores the authenticated user's profile
	ContextKeyProfile ContextKey = "profile"
	// ContextKeySessionID stores the id of the authenticated session
	ContextKeySessionID ContextKey = "session_id"
)

// RequireProfile lets a request through only when its session cookie names a
// live session with a profile attached. Every other request is redirected to
// the login route of the default provider.
func (s *Server) RequireProfile() func(http.HandlerFunc) http.HandlerFunc {
	return func(next http.HandlerFunc) http.HandlerFunc {
		return func(w http.ResponseWriter, r *http.Request) {
			sessionID, userProfile, ok := s.authenticatedProfile(r)
			if !ok {
				http.Redirect(w, r, s.loginPath(), http.StatusTemporaryRedirect)
				return
			}

			ctx := context.WithValue(r.Context(), ContextKeyProfile, userProfile)
			ctx = context.WithValue(ctx, ContextKeySessionID, sessionID)
			next(w, r.WithContext(ctx))
		}
	}
}

func (s *Server) authenticatedProfile(r *http.Request) (string, profile.Profile, bool) {
	sessionID, err := sessionIDFromCookie(r)
	if err != nil {
		return "", profile.Profile{}, false
	}
	session, err := s.sessions.Get(sessionID)
	if err != nil || !session.IsAuthenticated() {
		return "", profile.Profile{}, false
	}
	if session.Expired(s.now(), s.config.GetPendingSessionTTL(), s.config.GetMaxSessionAge()) {
		return "", profile.Profile{}, false
	}
	return sessionID, *session.Profile, true
}

// ProfileFromContext returns the profile stored by RequireProfile.
func ProfileFromContext(ctx context.Context) (profile.Profile, bool) {
	p, ok := ctx.Value(ContextKeyProfile).(profile.Profile)
	return p, ok
}
