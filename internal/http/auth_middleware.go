package httpx

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/MrQay/Wishlist-application/internal/repository"
	jwtpkg "github.com/MrQay/Wishlist-application/pkg/jwt"
)

type authContextKey string

type authInfo struct {
	UserID string
}

const contextKeyAuth authContextKey = "wishlist-auth-info"

type contextSetter interface {
	SetContext(context.Context)
}

var errMissingToken = errors.New("missing authorization header")

// requireAuth ensures the request carries a valid bearer token before
// invoking the handler. The resolved identity travels only through the
// request context; handlers never read it from the body or query string.
func (r *Router) requireAuth(next http.HandlerFunc) http.HandlerFunc {
	return func(w http.ResponseWriter, req *http.Request) {
		ctx, _, ok := r.ensureAuth(w, req)
		if !ok {
			return
		}
		if setter, ok := w.(contextSetter); ok {
			setter.SetContext(ctx)
		}
		next(w, req.WithContext(ctx))
	}
}

// ensureAuth validates the Authorization header and enriches the context.
// Verification failure subtypes stay in the logs; callers only ever see a
// generic 401 body.
func (r *Router) ensureAuth(w http.ResponseWriter, req *http.Request) (context.Context, authInfo, bool) {
	token, err := tokenFromHeader(req.Header.Get("Authorization"))
	if err != nil {
		r.logger.Warn("authorization header invalid", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication required")
		return req.Context(), authInfo{}, false
	}
	user, _, err := r.auth.Authorize(req.Context(), token)
	if err != nil {
		// A lookup failure that is neither a bad token nor a vanished
		// subject is an infrastructure fault, not an auth rejection.
		if !isAuthRejection(err) {
			r.logger.Error("identity lookup failed", "error", err, "path", req.URL.Path)
			writeError(w, http.StatusInternalServerError, "internal server error")
			return req.Context(), authInfo{}, false
		}
		r.logger.Warn("token validation failed", "error", err, "path", req.URL.Path)
		writeError(w, http.StatusUnauthorized, "authentication failed")
		return req.Context(), authInfo{}, false
	}
	info := authInfo{UserID: user.ID}
	ctx := context.WithValue(req.Context(), contextKeyAuth, info)
	return ctx, info, true
}

// isAuthRejection reports whether an Authorize failure means the caller's
// credentials are bad: an invalid token, or a valid token whose subject no
// longer exists.
func isAuthRejection(err error) bool {
	return errors.Is(err, jwtpkg.ErrTokenExpired) ||
		errors.Is(err, jwtpkg.ErrTokenSignature) ||
		errors.Is(err, jwtpkg.ErrTokenMalformed) ||
		errors.Is(err, repository.ErrNotFound)
}

// authInfoFromContext extracts auth metadata from context.
func authInfoFromContext(ctx context.Context) (authInfo, bool) {
	value := ctx.Value(contextKeyAuth)
	if value == nil {
		return authInfo{}, false
	}
	info, ok := value.(authInfo)
	return info, ok
}

// tokenFromHeader accepts both "Bearer <token>" and a bare token value;
// the original web client sends the raw signed value.
func tokenFromHeader(header string) (string, error) {
	if strings.TrimSpace(header) == "" {
		return "", errMissingToken
	}
	parts := strings.Fields(header)
	switch {
	case len(parts) == 2 && strings.EqualFold(parts[0], "Bearer"):
		return parts[1], nil
	case len(parts) == 1:
		return parts[0], nil
	default:
		return "", errors.New("invalid authorization header format")
	}
}
