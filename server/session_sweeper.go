package server

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
)

// StartSessionSweeper removes expired sessions every sweep interval until ctx
// is cancelled. A zero interval disables it.
func (s *Server) StartSessionSweeper(ctx context.Context) {
	interval := s.config.GetSessionSweepInterval()
	if interval <= 0 {
		return
	}

	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				if removed := s.SweepSessions(); removed > 0 {
					log.Debug().Int("removed", removed).Msg("swept expired sessions")
				}
			}
		}
	}()
}

// SweepSessions removes every session past its lifetime and returns how many went.
func (s *Server) SweepSessions() int {
	now := s.now()
	authenticatedBefore := cutoff(now, s.config.GetMaxSessionAge())
	pendingBefore := cutoff(now, s.config.GetPendingSessionTTL())
	// The maximum age bounds pending sessions as well
	if authenticatedBefore.After(pendingBefore) {
		pendingBefore = authenticatedBefore
	}

	removed := s.sessions.DeleteExpired(pendingBefore, authenticatedBefore)
	s.metrics.SessionsSweptTotal.Add(float64(removed))
	return removed
}

// cutoff is the creation time before which a session has outlived ttl. A zero
// ttl yields the zero time, which nothing is created before.
func cutoff(now time.Time, ttl time.Duration) time.Time {
	if ttl <= 0 {
		return time.Time{}
	}
	return now.Add(-ttl)
}
