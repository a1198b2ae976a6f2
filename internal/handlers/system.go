package handlers

import (
	"encoding/json"
	"net/http"

	"go.uber.org/zap"

	"franklink-backend/pkg/api"
)

// SystemHandler serves the unauthenticated service endpoints.
type SystemHandler struct {
	version     string
	environment string
	logger      *zap.Logger
}

// NewSystemHandler creates a SystemHandler.
func NewSystemHandler(version, environment string, logger *zap.Logger) *SystemHandler {
	return &SystemHandler{version: version, environment: environment, logger: logger}
}

// Root handles GET /
//
//	@Summary	Describe the service
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	api.RootResponse
//	@Router		/ [get]
func (h *SystemHandler) Root(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.RootResponse{
		Message: "Franklink API",
		Version: h.version,
		Endpoints: map[string]string{
			"health":         "/health",
			"oauth_callback": "/oauth/google/callback",
			"graph":          "/api/graph",
			"profile":        "/api/profile",
			"notes":          "/api/notes",
		},
	})
}

// Health handles GET /health
//
//	@Summary	Liveness probe
//	@Tags		system
//	@Produce	json
//	@Success	200	{object}	api.HealthResponse
//	@Router		/health [get]
func (h *SystemHandler) Health(w http.ResponseWriter, r *http.Request) {
	api.Success(w, http.StatusOK, api.HealthResponse{
		Status:      "healthy",
		Version:     h.version,
		Environment: h.environment,
	})
}

// GoogleCallback handles GET /oauth/google/callback
//
//	@Summary	Google OAuth redirect target
//	@Tags		oauth
//	@Produce	json
//	@Param		code				query	string	false	"Authorization code"
//	@Param		state				query	string	false	"Opaque state"
//	@Param		error				query	string	false	"Provider error"
//	@Param		error_description	query	string	false	"Provider error detail"
//	@Success	200	{object}	api.OAuthCallbackResponse
//	@Failure	400	{object}	api.OAuthCallbackResponse
//	@Router		/oauth/google/callback [get]
func (h *SystemHandler) GoogleCallback(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	state := q.Get("state")

	if e := q.Get("error"); e != "" {
		h.logger.Warn("oauth callback error",
			zap.String("error", e),
			zap.String("error_description", q.Get("error_description")))
		desc := q.Get("error_description")
		if desc == "" {
			desc = "OAuth authorization failed"
		}
		api.Success(w, http.StatusBadRequest, api.OAuthCallbackResponse{
			Success:          false,
			Error:            e,
			ErrorDescription: desc,
		})
		return
	}

	if q.Get("code") == "" {
		h.logger.Warn("oauth callback without authorization code")
		api.Error(w, http.StatusBadRequest, "Missing authorization code")
		return
	}

	h.logger.Info("oauth callback received", zap.Bool("has_state", state != ""))
	api.Success(w, http.StatusOK, api.OAuthCallbackResponse{
		Success: true,
		Message: "OAuth authorization successful",
		State:   state,
		NextSteps: []string{
			"Exchange authorization code for access token",
			"Retrieve user information from Google",
			"Create or update user session",
			"Redirect to application",
		},
	})
}

// GoogleCallbackPost handles POST /oauth/google/callback by echoing the body.
func (h *SystemHandler) GoogleCallbackPost(w http.ResponseWriter, r *http.Request) {
	var body map[string]interface{}
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		api.Error(w, http.StatusBadRequest, "Invalid request: "+err.Error())
		return
	}
	api.Success(w, http.StatusOK, api.OAuthCallbackResponse{
		Success: true,
		Message: "OAuth callback received via POST",
		Data:    body,
	})
}
