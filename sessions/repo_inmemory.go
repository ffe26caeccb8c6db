package sessions

import (
	"sync"
	"time"

	"github.com/jrsteele09/go-line-login/internal/errors"
	"github.com/jrsteele09/go-line-login/profile"
)

// InMemoryRepo is a thread-safe in-memory implementation of Repo. Each method
// holds the lock for a single map operation.
type InMemoryRepo struct {
	mu       sync.RWMutex
	sessions map[string]Session
}

var _ Repo = (*InMemoryRepo)(nil)

// NewInMemoryRepo creates an empty session store
func NewInMemoryRepo() *InMemoryRepo {
	return &InMemoryRepo{
		sessions: make(map[string]Session),
	}
}

func (r *InMemoryRepo) Create(sessionID string, session Session) error {
	if sessionID == "" {
		return errors.ErrInvalidSessionID
	}
	session.ID = sessionID

	r.mu.Lock()
	defer r.mu.Unlock()

	r.sessions[sessionID] = session.clone()
	return nil
}

func (r *InMemoryRepo) Get(sessionID string) (Session, error) {
	if sessionID == "" {
		return Session{}, errors.ErrInvalidSessionID
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return Session{}, errors.ErrSessionNotFound
	}
	return session.clone(), nil
}

func (r *InMemoryRepo) AttachProfile(sessionID string, p profile.Profile, accessToken string, tokenExpiry, at time.Time) error {
	if sessionID == "" {
		return errors.ErrInvalidSessionID
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	session, ok := r.sessions[sessionID]
	if !ok {
		return errors.ErrSessionNotFound
	}
	if session.Profile != nil {
		return errors.ErrProfileAlreadyAttached
	}

	session.Profile = p.Clone()
	session.AccessToken = accessToken
	session.TokenExpiry = tokenExpiry
	session.AuthenticatedAt = at
	r.sessions[sessionID] = session
	return nil
}

func (r *InMemoryRepo) Remove(sessionID string) error {
	if sessionID == "" {
		return nil
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.sessions, sessionID)
	return nil
}

func (r *InMemoryRepo) DeleteExpired(pendingBefore, authenticatedBefore time.Time) int {
	r.mu.Lock()
	defer r.mu.Unlock()

	removed := 0
	for id, session := range r.sessions {
		cutoff := pendingBefore
		if session.IsAuthenticated() {
			cutoff = authenticatedBefore
		}
		if session.CreatedAt.Before(cutoff) {
			delete(r.sessions, id)
			removed++
		}
	}
	return removed
}

func (r *InMemoryRepo) Count() Stats {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var stats Stats
	for _, session := range r.sessions {
		if session.IsAuthenticated() {
			stats.Authenticated++
		} else {
			stats.Pending++
		}
	}
	return stats
}
