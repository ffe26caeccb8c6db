package server

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/internal/metrics"
	"github.com/jrsteele09/go-line-login/provider"
	"github.com/jrsteele09/go-line-login/sessions"
	"github.com/rs/zerolog/log"
)

// LoginHandler starts a login attempt: a fresh pending session is stored under
// a new cookie and the browser is sent to the provider's authorization page.
func (s *Server) LoginHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := s.providerFromRequest(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		authReq, err := client.NewAuthRequest()
		if err != nil {
			log.Err(err).Str("provider", client.Name()).Msg("failed to generate authorization request")
			writeJSONError(w, http.StatusInternalServerError, "failed to start login")
			return
		}

		sessionID := uuid.NewString()
		session := sessions.Session{
			Provider:         client.Name(),
			CSRFToken:        authReq.State,
			PKCECodeVerifier: authReq.CodeVerifier,
			CreatedAt:        s.now(),
		}
		if err := s.sessions.Create(sessionID, session); err != nil {
			log.Err(err).Str("provider", client.Name()).Msg("failed to store login session")
			writeJSONError(w, http.StatusInternalServerError, "failed to start login")
			return
		}

		s.setSessionCookie(w, r, sessionID)
		s.metrics.LoginStartedTotal.WithLabelValues(client.Name()).Inc()
		http.Redirect(w, r, authReq.URL, http.StatusTemporaryRedirect)
	}
}

// CallbackHandler completes a login attempt when the provider redirects back.
// On success the session holds the user's profile and the browser is sent to
// the profile page.
func (s *Server) CallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		client, ok := s.providerFromRequest(r)
		if !ok {
			http.NotFound(w, r)
			return
		}

		if authErr := s.completeLogin(r, client); authErr != nil {
			s.writeAuthError(w, client.Name(), authErr)
			return
		}

		s.metrics.CallbackTotal.WithLabelValues(client.Name(), metrics.OutcomeSuccess).Inc()
		http.Redirect(w, r, RouteProfile, http.StatusTemporaryRedirect)
	}
}

func (s *Server) completeLogin(r *http.Request, client *provider.Client) *AuthError {
	query := r.URL.Query()
	if providerErr := query.Get("error"); providerErr != "" {
		return newAuthError(KindInvalidCallbackRequest,
			fmt.Errorf("provider returned %s: %s", providerErr, query.Get("error_description")))
	}
	code, state := query.Get("code"), query.Get("state")
	if code == "" || state == "" {
		return newAuthError(KindInvalidCallbackRequest, fmt.Errorf("callback is missing code or state"))
	}

	sessionID, err := sessionIDFromCookie(r)
	if err != nil {
		return newAuthError(KindNoSessionFromCookie, err)
	}

	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return newAuthError(KindNoSessionInStore, err)
	}
	if session.Provider != client.Name() {
		return newAuthError(KindNoSessionInStore,
			fmt.Errorf("session %s was started for provider %q", sessionID, session.Provider))
	}
	if session.Expired(s.now(), s.config.GetPendingSessionTTL(), s.config.GetMaxSessionAge()) {
		return newAuthError(KindNoSessionInStore, errors.ErrSessionExpired)
	}

	if subtle.ConstantTimeCompare([]byte(session.CSRFToken), []byte(state)) != 1 {
		return newAuthError(KindCsrfTokenMismatch, fmt.Errorf("state does not match session %s", sessionID))
	}
	if session.IsAuthenticated() {
		return newAuthError(KindSessionAlreadyAuthenticated, errors.ErrProfileAlreadyAttached)
	}

	start := time.Now()
	token, err := client.Exchange(r.Context(), code, session.PKCECodeVerifier)
	s.metrics.ProviderRequestDuration.WithLabelValues(client.Name(), "token").Observe(time.Since(start).Seconds())
	if err != nil {
		return newAuthError(KindFetchTokenFailed, err)
	}

	start = time.Now()
	userProfile, err := client.FetchProfile(r.Context(), token)
	s.metrics.ProviderRequestDuration.WithLabelValues(client.Name(), "profile").Observe(time.Since(start).Seconds())
	if err != nil {
		return newAuthError(KindFetchProfileFailed, err)
	}

	// The session may have been removed or completed while the provider was called
	err = s.sessions.AttachProfile(sessionID, userProfile, token.AccessToken, token.Expiry, s.now())
	switch {
	case errors.Is(err, errors.ErrProfileAlreadyAttached):
		return newAuthError(KindSessionAlreadyAuthenticated, err)
	case err != nil:
		return newAuthError(KindNoSessionInStore, err)
	}
	return nil
}

func (s *Server) writeAuthError(w http.ResponseWriter, providerName string, authErr *AuthError) {
	event := log.Warn()
	if authErr.StatusCode() >= http.StatusInternalServerError {
		event = log.Error()
	}
	event.Err(authErr.Err).
		Str("provider", providerName).
		Str("kind", authErr.Kind.String()).
		Msg("OAuth callback failed")

	s.metrics.CallbackTotal.WithLabelValues(providerName, authErr.Kind.String()).Inc()
	writeJSONError(w, authErr.StatusCode(), authErr.Error())
}

// LogoutHandler revokes the provider token when possible, removes the session
// and expires the cookie. It succeeds whether or not a session existed.
func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if _, ok := s.providerFromRequest(r); !ok {
			http.NotFound(w, r)
			return
		}

		if sessionID, err := sessionIDFromCookie(r); err == nil {
			s.endSession(r, sessionID)
		}

		s.clearSessionCookie(w, r)
		w.WriteHeader(http.StatusOK)
	}
}

func (s *Server) endSession(r *http.Request, sessionID string) {
	session, err := s.sessions.Get(sessionID)
	if err != nil {
		return
	}

	if client, ok := s.providers[session.Provider]; ok && session.AccessToken != "" && client.CanRevoke() {
		start := time.Now()
		err := client.Revoke(r.Context(), session.AccessToken)
		s.metrics.ProviderRequestDuration.WithLabelValues(client.Name(), "revoke").Observe(time.Since(start).Seconds())
		if err != nil {
			// The local session is dropped regardless
			log.Err(err).Str("provider", client.Name()).Msg("failed to revoke access token")
		}
	}

	if err := s.sessions.Remove(sessionID); err != nil {
		log.Err(err).Msg("failed to remove session")
		return
	}
	s.metrics.LogoutTotal.WithLabelValues(session.Provider).Inc()
}
