package auth

import (
	"context"
	"errors"
	"strings"
	"time"

	"log/slog"

	"github.com/google/uuid"

	"github.com/MrQay/Wishlist-application/internal/domain"
	"github.com/MrQay/Wishlist-application/internal/repository"
	"github.com/MrQay/Wishlist-application/pkg/crypto"
	jwtpkg "github.com/MrQay/Wishlist-application/pkg/jwt"
)

var (
	// ErrInvalidCredentials covers both unknown email and wrong password,
	// so the login surface cannot be used to enumerate which addresses
	// are registered.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrInvalidEmail indicates an email that cannot serve as a login key.
	ErrInvalidEmail = errors.New("invalid email address")
)

// Service handles authentication workflows. It is stateless across
// requests; the only cross-request invariant (email uniqueness) lives in
// the user repository.
type Service struct {
	users      repository.UserRepository
	issuer     jwtpkg.Issuer
	policy     PasswordPolicy
	logger     *slog.Logger
	bcryptCost int
}

// New constructs a Service.
func New(users repository.UserRepository, issuer jwtpkg.Issuer, policy PasswordPolicy, logger *slog.Logger, bcryptCost int) Service {
	return Service{users: users, issuer: issuer, policy: policy, logger: logger, bcryptCost: bcryptCost}
}

// NormalizeEmail lowercases and trims the login key.
func NormalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

// Register creates an account. The plaintext password is hashed before any
// store call and never retained.
func (s Service) Register(ctx context.Context, email, password string) (*domain.User, error) {
	email = NormalizeEmail(email)
	if email == "" || !strings.Contains(email, "@") {
		return nil, ErrInvalidEmail
	}
	if err := s.policy(password); err != nil {
		return nil, err
	}
	hash, err := crypto.HashPassword(password, s.bcryptCost)
	if err != nil {
		return nil, err
	}
	user := &domain.User{
		ID:           uuid.NewString(),
		Email:        email,
		PasswordHash: hash,
		CreatedAt:    time.Now().UTC(),
	}
	if err := s.users.CreateUser(ctx, user); err != nil {
		return nil, err
	}
	s.logger.Info("user registered", "user_id", user.ID)
	return user, nil
}

// Login verifies credentials and returns the account plus a signed bearer
// token. The last-login touch is best effort; its failure never fails the
// login.
func (s Service) Login(ctx context.Context, email, password string) (*domain.User, string, error) {
	user, err := s.users.GetUserByEmail(ctx, NormalizeEmail(email))
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, "", ErrInvalidCredentials
		}
		return nil, "", err
	}
	ok, err := crypto.VerifyPassword(user.PasswordHash, password)
	if err != nil {
		s.logger.Error("stored password hash unreadable", "user_id", user.ID, "error", err)
		return nil, "", err
	}
	if !ok {
		return nil, "", ErrInvalidCredentials
	}
	token, err := s.issuer.Issue(user.ID)
	if err != nil {
		return nil, "", err
	}
	now := time.Now().UTC()
	if err := s.users.TouchLastLogin(ctx, user.ID, now); err != nil {
		s.logger.Warn("last login update failed", "user_id", user.ID, "error", err)
	} else {
		user.LastLoginAt = &now
	}
	s.logger.Info("user logged in", "user_id", user.ID)
	return user, token, nil
}

// ChangePassword re-hashes and stores a new password for an already
// authenticated account. The id must come from the identity the middleware
// attached to the request context, never from the request body.
func (s Service) ChangePassword(ctx context.Context, userID, newPassword string) error {
	if err := s.policy(newPassword); err != nil {
		return err
	}
	hash, err := crypto.HashPassword(newPassword, s.bcryptCost)
	if err != nil {
		return err
	}
	if err := s.users.UpdatePasswordHash(ctx, userID, hash); err != nil {
		return err
	}
	s.logger.Info("password changed", "user_id", userID)
	return nil
}

// Authorize validates a bearer token and resolves the account it asserts.
// A token whose subject no longer exists is an authorization failure, not
// an authenticated request for a missing resource.
func (s Service) Authorize(ctx context.Context, token string) (*domain.User, *jwtpkg.Claims, error) {
	trimmed := strings.TrimSpace(token)
	if trimmed == "" {
		return nil, nil, errors.New("token required")
	}
	claims, err := s.issuer.Parse(trimmed)
	if err != nil {
		return nil, nil, err
	}
	user, err := s.users.GetUserByID(ctx, claims.UserID)
	if err != nil {
		return nil, nil, err
	}
	return user, claims, nil
}
