package sessions

import (
	"time"

	"github.com/jrsteele09/go-line-login/profile"
)

// Session correlates a browser's session_id cookie with an in-progress or
// completed login. CSRFToken and PKCECodeVerifier are fixed at creation; Profile
// stays nil until the callback attaches it, exactly once.
type Session struct {
	ID               string    // Random UUID, also the cookie value
	Provider         string    // Provider the login was started for
	CSRFToken        string    // Round-tripped as the OAuth2 state parameter
	PKCECodeVerifier string    // Presented at token exchange
	Profile          *profile.Profile
	AccessToken      string    // Provider access token, kept for revocation on logout
	TokenExpiry      time.Time // When the provider access token expires
	CreatedAt        time.Time
	AuthenticatedAt  time.Time
}

// IsAuthenticated reports whether the login completed. Pending sessions never
// pass the gate.
func (s Session) IsAuthenticated() bool {
	return s.Profile != nil
}

// Expired reports whether the session outlived its allowance at now. A zero
// duration disables the corresponding limit.
func (s Session) Expired(now time.Time, pendingTTL, maxAge time.Duration) bool {
	if maxAge > 0 && now.Sub(s.CreatedAt) > maxAge {
		return true
	}
	if !s.IsAuthenticated() && pendingTTL > 0 && now.Sub(s.CreatedAt) > pendingTTL {
		return true
	}
	return false
}

func (s Session) clone() Session {
	if s.Profile != nil {
		s.Profile = s.Profile.Clone()
	}
	return s
}
