package crypto

import (
	"errors"

	"golang.org/x/crypto/bcrypt"
)

// ErrCorruptHash indicates a stored hash bcrypt cannot decode. A wrong
// password is not an error condition.
var ErrCorruptHash = errors.New("crypto: corrupt password hash")

// HashPassword hashes plaintext using bcrypt with the given cost. A cost
// outside bcrypt's supported range falls back to the library default.
func HashPassword(plain string, cost int) ([]byte, error) {
	if cost < bcrypt.MinCost || cost > bcrypt.MaxCost {
		cost = bcrypt.DefaultCost
	}
	return bcrypt.GenerateFromPassword([]byte(plain), cost)
}

// VerifyPassword reports whether plain matches the stored hash. A mismatch
// returns (false, nil); only an undecodable stored hash is an error.
func VerifyPassword(hash []byte, plain string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(plain))
	switch {
	case err == nil:
		return true, nil
	case errors.Is(err, bcrypt.ErrMismatchedHashAndPassword):
		return false, nil
	default:
		return false, ErrCorruptHash
	}
}
