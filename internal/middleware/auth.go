package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"franklink-backend/internal/repository"
	"franklink-backend/pkg/api"
	"franklink-backend/pkg/auth"
)

// TokenVerifier resolves a bearer token to the signed-in user.
type TokenVerifier interface {
	Verify(ctx context.Context, token string) (*auth.Identity, error)
}

// JWTVerifier checks tokens locally against the shared signing secret.
type JWTVerifier struct {
	validator *auth.JWTValidator
}

// NewJWTVerifier wraps a JWT validator.
func NewJWTVerifier(v *auth.JWTValidator) *JWTVerifier {
	return &JWTVerifier{validator: v}
}

// Verify validates token and maps its claims to an identity.
func (v *JWTVerifier) Verify(_ context.Context, token string) (*auth.Identity, error) {
	claims, err := v.validator.ValidateToken(token)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{UserID: claims.UserID, Email: claims.Email, Token: token}, nil
}

// AuthenticatorVerifier asks the identity provider who owns token.
type AuthenticatorVerifier struct {
	authenticator repository.Authenticator
}

// NewAuthenticatorVerifier wraps an identity provider.
func NewAuthenticatorVerifier(a repository.Authenticator) *AuthenticatorVerifier {
	return &AuthenticatorVerifier{authenticator: a}
}

// Verify resolves token through the identity provider.
func (v *AuthenticatorVerifier) Verify(ctx context.Context, token string) (*auth.Identity, error) {
	userID, err := v.authenticator.UserFromToken(ctx, token)
	if err != nil {
		return nil, err
	}
	return &auth.Identity{UserID: userID, Token: token}, nil
}

// extractToken reads the token from the Authorization header, the auth
// cookie, or the token query parameter. The last one exists because
// EventSource cannot set headers.
func extractToken(r *http.Request) string {
	if h := r.Header.Get("Authorization"); h != "" {
		scheme, token, ok := strings.Cut(h, " ")
		if ok && strings.EqualFold(scheme, "bearer") {
			return strings.TrimSpace(token)
		}
		return h
	}
	if cookie, err := r.Cookie("auth_token"); err == nil {
		return cookie.Value
	}
	return r.URL.Query().Get("token")
}

func unauthorizedMessage(err error) string {
	switch {
	case errors.Is(err, auth.ErrExpiredToken):
		return "Token has expired"
	case errors.Is(err, auth.ErrInvalidSignature):
		return "Invalid token signature"
	default:
		return "Invalid token"
	}
}

// Authenticate requires a valid token and stores the identity in the request
// context.
func Authenticate(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token := extractToken(r)
			if token == "" {
				api.Error(w, http.StatusUnauthorized, "Missing authentication token")
				return
			}

			id, err := verifier.Verify(r.Context(), token)
			if err != nil {
				logger.Warn("invalid token",
					zap.Error(err),
					zap.String("path", r.URL.Path),
					zap.String("request_id", GetRequestIDFromRequest(r)))
				api.Error(w, http.StatusUnauthorized, unauthorizedMessage(err))
				return
			}

			next.ServeHTTP(w, r.WithContext(auth.WithIdentity(r.Context(), id)))
		})
	}
}

// OptionalAuthenticate attaches the identity when a valid token is present
// and otherwise lets the request through anonymously, so the handler can
// answer with its own signed-out representation.
func OptionalAuthenticate(verifier TokenVerifier, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if token := extractToken(r); token != "" {
				id, err := verifier.Verify(r.Context(), token)
				if err == nil {
					r = r.WithContext(auth.WithIdentity(r.Context(), id))
				} else {
					logger.Debug("ignoring invalid token", zap.Error(err), zap.String("path", r.URL.Path))
				}
			}
			next.ServeHTTP(w, r)
		})
	}
}
