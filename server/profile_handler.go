package server

import (
	"net/http"
)

// ProfileHandler returns the signed in user's profile. It must sit behind RequireProfile.
func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		userProfile, ok := ProfileFromContext(r.Context())
		if !ok {
			http.Redirect(w, r, s.loginPath(), http.StatusTemporaryRedirect)
			return
		}
		w.Header().Set("Cache-Control", "no-store")
		writeJSON(w, http.StatusOK, userProfile)
	}
}

// PreflightHandler answers OPTIONS requests that carry no Origin.
func (s *Server) PreflightHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	}
}

type healthResponse struct {
	Status string `json:"status"`
}

func (s *Server) HealthHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, healthResponse{Status: "ok"})
	}
}
