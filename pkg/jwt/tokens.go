package jwt

import (
	"errors"
	"time"

	jwtlib "github.com/golang-jwt/jwt/v5"
)

// Verification failures callers branch on. Parse collapses every library
// error into exactly one of these.
var (
	ErrTokenExpired   = errors.New("jwt: token expired")
	ErrTokenSignature = errors.New("jwt: invalid signature")
	ErrTokenMalformed = errors.New("jwt: malformed token")
)

// Claims defines the signed token payload.
type Claims struct {
	UserID string `json:"user_id"`
	jwtlib.RegisteredClaims
}

// Issuer signs and verifies bearer tokens with a process-wide symmetric
// secret. It is immutable after construction and safe for concurrent use.
type Issuer struct {
	secret []byte
	ttl    time.Duration
}

// NewIssuer constructs an Issuer. The secret must be non-empty; validating
// it before the process serves requests is the caller's responsibility.
func NewIssuer(secret string, ttl time.Duration) (Issuer, error) {
	if secret == "" {
		return Issuer{}, errors.New("jwt: empty signing secret")
	}
	if ttl <= 0 {
		return Issuer{}, errors.New("jwt: non-positive token ttl")
	}
	return Issuer{secret: []byte(secret), ttl: ttl}, nil
}

// TTL returns the validity window applied to issued tokens.
func (i Issuer) TTL() time.Duration { return i.ttl }

// Issue signs a token asserting userID for the configured ttl.
func (i Issuer) Issue(userID string) (string, error) {
	now := time.Now()
	claims := Claims{
		UserID: userID,
		RegisteredClaims: jwtlib.RegisteredClaims{
			Subject:   userID,
			Issuer:    "wishlist-api",
			IssuedAt:  jwtlib.NewNumericDate(now),
			ExpiresAt: jwtlib.NewNumericDate(now.Add(i.ttl)),
		},
	}
	token := jwtlib.NewWithClaims(jwtlib.SigningMethodHS256, claims)
	return token.SignedString(i.secret)
}

// Parse validates a token and extracts its claims.
func (i Issuer) Parse(token string) (*Claims, error) {
	parsed, err := jwtlib.ParseWithClaims(token, &Claims{}, func(t *jwtlib.Token) (interface{}, error) {
		return i.secret, nil
	}, jwtlib.WithValidMethods([]string{jwtlib.SigningMethodHS256.Name}))
	if err != nil {
		switch {
		case errors.Is(err, jwtlib.ErrTokenExpired):
			return nil, ErrTokenExpired
		case errors.Is(err, jwtlib.ErrTokenSignatureInvalid):
			return nil, ErrTokenSignature
		default:
			return nil, ErrTokenMalformed
		}
	}
	claims, ok := parsed.Claims.(*Claims)
	if !ok || !parsed.Valid {
		return nil, ErrTokenMalformed
	}
	if claims.UserID == "" {
		return nil, ErrTokenMalformed
	}
	return claims, nil
}
