package server

import (
	"encoding/json"
	"net/http"
)

// AuthErrorKind is the closed set of ways a provider callback can fail.
type AuthErrorKind int

const (
	KindFetchTokenFailed AuthErrorKind = iota + 1
	KindFetchProfileFailed
	KindNoSessionFromCookie
	KindNoSessionInStore
	KindCsrfTokenMismatch
	KindInvalidCallbackRequest
	KindSessionAlreadyAuthenticated
)

var authErrorKinds = map[AuthErrorKind]struct {
	label   string
	message string
	status  int
}{
	KindFetchTokenFailed:            {"fetch_token_failed", "failed to fetch token", http.StatusInternalServerError},
	KindFetchProfileFailed:          {"fetch_profile_failed", "failed to fetch profile", http.StatusInternalServerError},
	KindNoSessionFromCookie:         {"no_session_from_cookie", "no session retrieved from cookie", http.StatusUnauthorized},
	KindNoSessionInStore:            {"no_session_in_store", "no session found in store", http.StatusUnauthorized},
	KindCsrfTokenMismatch:           {"csrf_token_mismatch", "csrf token mismatch", http.StatusForbidden},
	KindInvalidCallbackRequest:      {"invalid_callback_request", "invalid callback request", http.StatusBadRequest},
	KindSessionAlreadyAuthenticated: {"session_already_authenticated", "session already authenticated", http.StatusConflict},
}

// String is the metric label for the kind.
func (k AuthErrorKind) String() string {
	if d, ok := authErrorKinds[k]; ok {
		return d.label
	}
	return "unknown"
}

// Message is the text returned to the client.
func (k AuthErrorKind) Message() string {
	if d, ok := authErrorKinds[k]; ok {
		return d.message
	}
	return "internal error"
}

func (k AuthErrorKind) StatusCode() int {
	if d, ok := authErrorKinds[k]; ok {
		return d.status
	}
	return http.StatusInternalServerError
}

// AuthError pairs a kind with the internal cause. Only the kind reaches the
// wire; Err is for logs.
type AuthError struct {
	Kind AuthErrorKind
	Err  error
}

func newAuthError(kind AuthErrorKind, err error) *AuthError {
	return &AuthError{Kind: kind, Err: err}
}

func (e *AuthError) Error() string {
	return e.Kind.Message()
}

func (e *AuthError) Unwrap() error {
	return e.Err
}

func (e *AuthError) StatusCode() int {
	return e.Kind.StatusCode()
}

type errorResponse struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", contentTypeJSON)
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeJSONError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, errorResponse{Error: message})
}
