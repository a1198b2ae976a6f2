package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"franklink-backend/internal/repository/mocks"
	"franklink-backend/pkg/api"
	"franklink-backend/pkg/auth"
)

func TestRequestIDMiddleware(t *testing.T) {
	t.Run("Should generate request ID when not provided", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.NotEmpty(t, GetRequestIDFromRequest(r))
			w.WriteHeader(http.StatusOK)
		}))
		handler.ServeHTTP(w, req)

		assert.Equal(t, http.StatusOK, w.Code)
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Should use provided request ID", func(t *testing.T) {
		req := httptest.NewRequest("GET", "/test", nil)
		req.Header.Set("X-Request-ID", "test-request-id")
		w := httptest.NewRecorder()

		handler := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "test-request-id", GetRequestIDFromRequest(r))
		}))
		handler.ServeHTTP(w, req)

		assert.Equal(t, "test-request-id", w.Header().Get("X-Request-ID"))
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	t.Run("Should handle panic gracefully", func(t *testing.T) {
		core, logs := observer.New(zap.ErrorLevel)
		w := httptest.NewRecorder()

		handler := Recovery(zap.New(core))(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			panic("test panic")
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusInternalServerError, w.Code)
		assert.Contains(t, w.Body.String(), "error")
		require.Equal(t, 1, logs.Len())
		assert.Equal(t, "test panic", logs.All()[0].ContextMap()["panic"])
	})

	t.Run("Should pass through normal requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler := Recovery(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})
}

func TestTimeoutMiddleware(t *testing.T) {
	t.Run("Should allow normal requests to complete", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler := Timeout(5*time.Second, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Test", "yes")
			api.Success(w, http.StatusCreated, map[string]string{"status": "ok"})
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))

		assert.Equal(t, http.StatusCreated, w.Code)
		assert.Equal(t, "yes", w.Header().Get("X-Test"))
		assert.JSONEq(t, `{"status":"ok"}`, w.Body.String())
	})

	t.Run("Should answer 504 when the handler overruns", func(t *testing.T) {
		release := make(chan struct{})
		finished := make(chan struct{})
		w := httptest.NewRecorder()
		handler := Timeout(10*time.Millisecond, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer close(finished)
			<-r.Context().Done()
			<-release
			_, err := w.Write([]byte("late"))
			assert.ErrorIs(t, err, http.ErrHandlerTimeout)
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		close(release)
		<-finished

		assert.Equal(t, http.StatusGatewayTimeout, w.Code)
		assert.NotContains(t, w.Body.String(), "late")
	})
}

func TestCircuitBreakerMiddleware(t *testing.T) {
	t.Run("Should pass through successful requests", func(t *testing.T) {
		w := httptest.NewRecorder()
		handler := CircuitBreaker(DefaultCircuitBreakerConfig("test"), zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			api.Success(w, http.StatusOK, map[string]string{"status": "ok"})
		}))
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusOK, w.Code)
	})

	t.Run("Should open after repeated 5xx responses", func(t *testing.T) {
		cfg := DefaultCircuitBreakerConfig("test-failure")
		cfg.MinRequests = 2
		cfg.FailureThreshold = 0.5
		calls := 0
		handler := CircuitBreaker(cfg, zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			calls++
			api.Error(w, http.StatusInternalServerError, "boom")
		}))

		for i := 0; i < 2; i++ {
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
			assert.Equal(t, http.StatusInternalServerError, w.Code)
			assert.JSONEq(t, `{"error":"boom"}`, w.Body.String())
		}

		w := httptest.NewRecorder()
		handler.ServeHTTP(w, httptest.NewRequest("GET", "/test", nil))
		assert.Equal(t, http.StatusServiceUnavailable, w.Code)
		assert.Equal(t, 2, calls)
	})
}

func TestAuthenticate(t *testing.T) {
	validator, err := auth.NewJWTValidator(auth.JWTConfig{SecretKey: "secret"})
	require.NoError(t, err)
	gen, err := auth.NewJWTGenerator("secret", "", []string{auth.DefaultAudience}, time.Hour)
	require.NoError(t, err)
	token, err := gen.GenerateToken("u1", "sam@example.com")
	require.NoError(t, err)

	var seen *auth.Identity
	next := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = auth.IdentityFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	})
	required := Authenticate(NewJWTVerifier(validator), zap.NewNop())(next)
	optional := OptionalAuthenticate(NewJWTVerifier(validator), zap.NewNop())(next)

	tests := []struct {
		name     string
		handler  http.Handler
		prepare  func(r *http.Request)
		wantCode int
		wantUser string
	}{
		{
			name:     "bearer header",
			handler:  required,
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantCode: http.StatusNoContent,
			wantUser: "u1",
		},
		{
			name:     "query parameter",
			handler:  required,
			prepare:  func(r *http.Request) { r.URL.RawQuery = "token=" + token },
			wantCode: http.StatusNoContent,
			wantUser: "u1",
		},
		{
			name:     "cookie",
			handler:  required,
			prepare:  func(r *http.Request) { r.AddCookie(&http.Cookie{Name: "auth_token", Value: token}) },
			wantCode: http.StatusNoContent,
			wantUser: "u1",
		},
		{
			name:     "missing token",
			handler:  required,
			prepare:  func(r *http.Request) {},
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "garbage token",
			handler:  required,
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantCode: http.StatusUnauthorized,
		},
		{
			name:     "optional without token",
			handler:  optional,
			prepare:  func(r *http.Request) {},
			wantCode: http.StatusNoContent,
		},
		{
			name:     "optional with garbage token",
			handler:  optional,
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer nope") },
			wantCode: http.StatusNoContent,
		},
		{
			name:     "optional with token",
			handler:  optional,
			prepare:  func(r *http.Request) { r.Header.Set("Authorization", "Bearer "+token) },
			wantCode: http.StatusNoContent,
			wantUser: "u1",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			seen = nil
			req := httptest.NewRequest("GET", "/api/graph", nil)
			tt.prepare(req)
			w := httptest.NewRecorder()
			tt.handler.ServeHTTP(w, req)

			assert.Equal(t, tt.wantCode, w.Code)
			if tt.wantUser == "" {
				assert.Nil(t, seen)
				return
			}
			require.NotNil(t, seen)
			assert.Equal(t, tt.wantUser, seen.UserID)
			assert.Equal(t, token, seen.Token)
		})
	}
}

func TestAuthenticatorVerifier(t *testing.T) {
	repo := mocks.NewMockRepository()
	repo.AddAccount("sam@example.com", "pw", "u1", "tok")
	v := NewAuthenticatorVerifier(repo)

	id, err := v.Verify(context.Background(), "tok")
	require.NoError(t, err)
	assert.Equal(t, "u1", id.UserID)

	_, err = v.Verify(context.Background(), "other")
	assert.Error(t, err)
}
