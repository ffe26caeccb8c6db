package profile

import (
	"fmt"

	"github.com/jrsteele09/go-line-login/internal/errors"
)

// Profile is the identity returned by the provider's profile API. Values are
// taken verbatim from the provider and never modified afterwards.
type Profile struct {
	UserID        string `json:"userId"`
	DisplayName   string `json:"displayName"`
	PictureURL    string `json:"pictureUrl"`
	StatusMessage string `json:"statusMessage"`
}

// Validate checks the provider response carried a user identifier.
func (p Profile) Validate() error {
	if p.UserID == "" {
		return fmt.Errorf("%w: missing userId", errors.ErrInvalidProfile)
	}
	return nil
}

// Clone returns a pointer to a copy of the profile.
func (p Profile) Clone() *Profile {
	return &p
}
