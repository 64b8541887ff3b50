package profiles

import "errors"

// Username length bounds, applied uniformly at the availability check and
// the stored value.
const (
	UsernameMinLen = 3
	UsernameMaxLen = 30
)

// ErrInvalidUsername is returned when a handle fails format validation.
var ErrInvalidUsername = errors.New("username must be 3-30 characters of letters, digits, underscore or hyphen")

// ValidateUsername checks handle length and charset without touching storage.
func ValidateUsername(username string) error {
	if len(username) < UsernameMinLen || len(username) > UsernameMaxLen {
		return ErrInvalidUsername
	}
	for _, r := range username {
		switch {
		case r >= 'a' && r <= 'z':
		case r >= 'A' && r <= 'Z':
		case r >= '0' && r <= '9':
		case r == '_' || r == '-':
		default:
			return ErrInvalidUsername
		}
	}
	return nil
}
