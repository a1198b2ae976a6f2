package di

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franklink-backend/internal/config"
	"franklink-backend/internal/infrastructure/observability"
	"franklink-backend/pkg/api"
)

func testConfig(t *testing.T) *config.Config {
	t.Helper()
	cfg, err := config.NewLoader(t.TempDir(), config.Test).
		WithEnv(func(string) string { return "" }).
		Load()
	require.NoError(t, err)
	cfg.Store.Seed = "../../config/seed.yaml"
	return cfg
}

func TestInitializeContainerIntegration(t *testing.T) {
	cfg := testConfig(t)

	container, cleanup, err := InitializeContainer(context.Background(), cfg, Static(cfg))
	require.NoError(t, err)
	t.Cleanup(cleanup)

	require.NotNil(t, container.Router)
	require.NotNil(t, container.Backend.LocalAuth)
	assert.NotNil(t, container.Collector)
	assert.Nil(t, container.CloudWatch)
	assert.Nil(t, container.Tracer)

	serve := func(method, target, token string, body interface{}) *httptest.ResponseRecorder {
		var buf bytes.Buffer
		if body != nil {
			require.NoError(t, json.NewEncoder(&buf).Encode(body))
		}
		req := httptest.NewRequest(method, target, &buf)
		req.Header.Set("Content-Type", "application/json")
		if token != "" {
			req.Header.Set("Authorization", "Bearer "+token)
		}
		rr := httptest.NewRecorder()
		container.Router.ServeHTTP(rr, req)
		return rr
	}

	t.Run("Should answer health checks", func(t *testing.T) {
		rr := serve(http.MethodGet, "/health", "", nil)
		assert.Equal(t, http.StatusOK, rr.Code)
	})

	t.Run("Should sign in against the seeded store and load the graph", func(t *testing.T) {
		rr := serve(http.MethodPost, "/api/auth/login", "", api.LoginRequest{Identity: "sam@example.com", Password: "franklink-dev"})
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var login api.LoginResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &login))
		require.NotEmpty(t, login.AccessToken)

		rr = serve(http.MethodGet, "/api/graph", login.AccessToken, nil)
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())

		var graph api.GraphResponse
		require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &graph))
		assert.Equal(t, 2, graph.Stats.DirectCount)
		assert.Equal(t, 1, graph.Stats.GroupCount)
		assert.False(t, graph.Empty)
	})

	t.Run("Should reject unknown credentials", func(t *testing.T) {
		rr := serve(http.MethodPost, "/api/auth/login", "", api.LoginRequest{Identity: "sam@example.com", Password: "wrong-password"})
		assert.Equal(t, http.StatusUnauthorized, rr.Code)
	})
}

func TestProvideVerifier(t *testing.T) {
	cfg := &config.Config{Auth: config.Auth{Mode: config.AuthModeSupabase}}

	_, err := provideVerifier(cfg, &Backend{Driver: config.DriverDynamoDB})
	assert.Error(t, err)

	cfg.Auth = config.Auth{Mode: config.AuthModeJWT}
	_, err = provideVerifier(cfg, &Backend{Driver: config.DriverDynamoDB})
	assert.Error(t, err, "jwt mode needs a signing secret")

	cfg.Auth.JWTSecret = "secret"
	v, err := provideVerifier(cfg, &Backend{Driver: config.DriverDynamoDB})
	require.NoError(t, err)
	assert.NotNil(t, v)
}

func TestProvideSink(t *testing.T) {
	assert.Nil(t, provideSink(nil, nil))

	collector := observability.NewCollector("sink_test")
	assert.Same(t, collector, provideSink(collector, nil))

	cw := observability.NewCloudWatchRecorder(nil, "Franklink", nil)
	both := provideSink(collector, cw)
	require.IsType(t, observability.Fanout{}, both)
	assert.Len(t, both.(observability.Fanout), 2)
}
