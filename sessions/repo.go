package sessions

import (
	"time"

	"github.com/jrsteele09/go-line-login/profile"
)

// Stats counts the sessions currently held by a Repo.
type Stats struct {
	Pending       int
	Authenticated int
}

// Repo is the session store shared by every request handler.
type Repo interface {
	// Create stores a new session, overwriting any existing entry with the same id
	Create(sessionID string, session Session) error

	// Get returns a copy of the session
	Get(sessionID string) (Session, error)

	// AttachProfile is the only mutation a session goes through after creation
	AttachProfile(sessionID string, p profile.Profile, accessToken string, tokenExpiry, at time.Time) error

	// Remove deletes the session; removing an unknown id is not an error
	Remove(sessionID string) error

	// DeleteExpired removes pending sessions created before pendingBefore and
	// authenticated sessions created before authenticatedBefore
	DeleteExpired(pendingBefore, authenticatedBefore time.Time) int

	// Count reports the number of pending and authenticated sessions
	Count() Stats
}
