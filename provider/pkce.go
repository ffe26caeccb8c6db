package provider

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"

	"golang.org/x/oauth2"
)

// stateBytes is the number of random bytes behind a CSRF state token. 32 bytes
// encode to 43 base64url characters.
const stateBytes = 32

// GenerateState returns a fresh random CSRF token for the state parameter.
func GenerateState() (string, error) {
	b := make([]byte, stateBytes)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

// GeneratePKCE returns an RFC 7636 verifier and its S256 challenge.
func GeneratePKCE() (verifier, challenge string) {
	verifier = oauth2.GenerateVerifier()
	return verifier, ChallengeFromVerifier(verifier)
}

// ChallengeFromVerifier derives the S256 code challenge:
// base64url(sha256(verifier)) without padding.
func ChallengeFromVerifier(verifier string) string {
	return oauth2.S256ChallengeFromVerifier(verifier)
}
