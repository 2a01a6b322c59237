package auth

import (
	"errors"
	"fmt"
)

var (
	// ErrWeakPassword indicates a candidate password fails the active policy.
	ErrWeakPassword = errors.New("password does not meet policy")
	// ErrPasswordTooLong indicates a candidate password exceeds what bcrypt
	// can hash.
	ErrPasswordTooLong = errors.New("password too long")
)

// bcrypt only hashes the first 72 bytes of input; anything longer must be
// rejected before hashing rather than silently truncated.
const maxPasswordBytes = 72

// PasswordPolicy validates candidate passwords before they are hashed.
// The policy is process-wide, read-only after startup.
type PasswordPolicy func(password string) error

// MinLengthPolicy returns a policy requiring at least min characters.
func MinLengthPolicy(min int) PasswordPolicy {
	return func(password string) error {
		if len(password) < min {
			return fmt.Errorf("%w: at least %d characters required", ErrWeakPassword, min)
		}
		if len(password) > maxPasswordBytes {
			return fmt.Errorf("%w: at most %d bytes allowed", ErrPasswordTooLong, maxPasswordBytes)
		}
		return nil
	}
}
