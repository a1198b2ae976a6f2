package handlers

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"franklink-backend/internal/app"
	"franklink-backend/internal/domain"
	"franklink-backend/internal/infrastructure/observability"
	"franklink-backend/internal/layout"
	"franklink-backend/internal/middleware"
	"franklink-backend/internal/repository/mocks"
	"franklink-backend/internal/service/account"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/api"
	appErrors "franklink-backend/pkg/errors"
)

type testEnv struct {
	repo     *mocks.MockRepository
	sessions *app.Sessions
	router   http.Handler
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := mocks.NewMockRepository()
	repo.AddProfile(domain.Profile{ID: "u1", Name: "Sam Self", PhoneNumber: "+15551234567"})
	repo.AddUser(domain.User{ID: "amy", DisplayName: "Amy Adams"})
	repo.AddUser(domain.User{ID: "ben", DisplayName: "Ben Brown"})
	repo.AddRequest("u1", "amy", domain.ConnectionStatusGroupCreated)
	repo.AddChat("g1", "Study Group", 3, "u1", "amy", "ben")
	repo.AddAccount("sam@example.com", "password1", "u1", "tok-u1")
	repo.AddAccount("15551230000@users.franklink.ai", "password2", "u2", "tok-u2")

	loader := connections.NewLoader(repo, repo)
	sessions := app.NewSessions(loader, func() *layout.Renderer {
		return layout.NewRenderer(layout.WithParams(func() layout.Params {
			p := layout.DefaultParams()
			p.TickInterval = 0
			return p
		}))
	}, zap.NewNop())
	t.Cleanup(sessions.Close)

	svc := account.NewService(repo, repo,
		account.WithAuthenticator(repo),
		account.WithAvatarStorage(repo))

	router := NewRouter(RouterConfig{
		ServiceName:    "franklink-test",
		Version:        "1.0.0",
		Environment:    "test",
		RequestTimeout: 10 * time.Second,
		MaxAvatarBytes: account.DefaultConfig().MaxAvatarBytes,
	}, Dependencies{
		Account:   svc,
		Loader:    loader,
		Sessions:  sessions,
		Verifier:  middleware.NewAuthenticatorVerifier(repo),
		Collector: observability.NewCollector("franklink_test"),
		Logger:    zap.NewNop(),
	})

	return &testEnv{repo: repo, sessions: sessions, router: router}
}

func (e *testEnv) do(t *testing.T, method, target, token string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var rdr io.Reader
	if body != nil {
		b, err := json.Marshal(body)
		require.NoError(t, err)
		rdr = bytes.NewReader(b)
	}
	req := httptest.NewRequest(method, target, rdr)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &v), w.Body.String())
	return v
}

func TestSystemEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Should describe the service", func(t *testing.T) {
		w := env.do(t, "GET", "/", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.RootResponse](t, w)
		assert.Equal(t, "Franklink API", resp.Message)
		assert.Equal(t, "/health", resp.Endpoints["health"])
	})

	t.Run("Should report health", func(t *testing.T) {
		w := env.do(t, "GET", "/health", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, api.HealthResponse{Status: "healthy", Version: "1.0.0", Environment: "test"}, decode[api.HealthResponse](t, w))
		assert.NotEmpty(t, w.Header().Get("X-Request-ID"))
	})

	t.Run("Should serve the API document", func(t *testing.T) {
		w := env.do(t, "GET", "/swagger/doc.json", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), `"title": "Franklink API"`)
	})

	t.Run("Should expose metrics", func(t *testing.T) {
		env.do(t, "GET", "/health", "", nil)
		w := env.do(t, "GET", "/metrics", "", nil)
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Contains(t, w.Body.String(), "http_requests_total")
	})
}

func TestGoogleCallback(t *testing.T) {
	env := newTestEnv(t)

	tests := []struct {
		name     string
		query    string
		wantCode int
		check    func(t *testing.T, body string)
	}{
		{
			name:     "provider error",
			query:    "error=access_denied&error_description=User+cancelled",
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"success":false,"error":"access_denied","error_description":"User cancelled"}`, body)
			},
		},
		{
			name:     "provider error without description",
			query:    "error=server_error",
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				assert.Contains(t, body, "OAuth authorization failed")
			},
		},
		{
			name:     "missing code",
			query:    "state=xyz",
			wantCode: http.StatusBadRequest,
			check: func(t *testing.T, body string) {
				assert.JSONEq(t, `{"error":"Missing authorization code"}`, body)
			},
		},
		{
			name:     "success",
			query:    "code=4/abc&state=xyz",
			wantCode: http.StatusOK,
			check: func(t *testing.T, body string) {
				var resp api.OAuthCallbackResponse
				require.NoError(t, json.Unmarshal([]byte(body), &resp))
				assert.True(t, resp.Success)
				assert.Equal(t, "xyz", resp.State)
				assert.Len(t, resp.NextSteps, 4)
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, "GET", "/oauth/google/callback?"+tt.query, "", nil)
			assert.Equal(t, tt.wantCode, w.Code)
			tt.check(t, w.Body.String())
		})
	}

	t.Run("Should echo POST bodies", func(t *testing.T) {
		w := env.do(t, "POST", "/oauth/google/callback", "", map[string]string{"code": "abc"})
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.OAuthCallbackResponse](t, w)
		assert.Equal(t, "abc", resp.Data["code"])
	})

	t.Run("Should reject malformed POST bodies", func(t *testing.T) {
		req := httptest.NewRequest("POST", "/oauth/google/callback", strings.NewReader("{"))
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, req)
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})
}

func TestLogin(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Should sign in with an email", func(t *testing.T) {
		w := env.do(t, "POST", "/api/auth/login", "", api.LoginRequest{Identity: "sam@example.com", Password: "password1"})
		assert.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.LoginResponse](t, w)
		assert.Equal(t, "tok-u1", resp.AccessToken)
		assert.Equal(t, "u1", resp.UserID)
	})

	t.Run("Should sign in with a phone number", func(t *testing.T) {
		w := env.do(t, "POST", "/api/auth/login", "", api.LoginRequest{Identity: "(555) 123-0000", Password: "password2"})
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "u2", decode[api.LoginResponse](t, w).UserID)
	})

	t.Run("Should reject wrong credentials", func(t *testing.T) {
		w := env.do(t, "POST", "/api/auth/login", "", api.LoginRequest{Identity: "sam@example.com", Password: "nope"})
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		assert.Equal(t, account.MsgInvalidCredentials, decode[api.ErrorResponse](t, w).Error)
	})

	t.Run("Should require both fields", func(t *testing.T) {
		w := env.do(t, "POST", "/api/auth/login", "", api.LoginRequest{Identity: "sam@example.com"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, account.MsgCredentialsRequired, decode[api.ErrorResponse](t, w).Error)
	})
}

func TestProfileEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Should require authentication", func(t *testing.T) {
		w := env.do(t, "GET", "/api/profile", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)

		w = env.do(t, "GET", "/api/profile", "bogus", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
	})

	t.Run("Should return the profile", func(t *testing.T) {
		w := env.do(t, "GET", "/api/profile", "tok-u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.ProfileResponse](t, w)
		assert.Equal(t, "u1", resp.ID)
		assert.Equal(t, "Sam Self", resp.Name)
		assert.Equal(t, "SS", resp.Initials)
		assert.Equal(t, "(555) 123-4567", resp.PhoneDisplay)
		assert.NotEmpty(t, resp.AvatarColor)
		assert.Nil(t, resp.GraduationYear)
	})

	t.Run("Should report a missing profile as not onboarded", func(t *testing.T) {
		w := env.do(t, "GET", "/api/profile", "tok-u2", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
		assert.Equal(t, account.MsgNotOnboarded, decode[api.ErrorResponse](t, w).Error)
	})

	t.Run("Should set and clear the graduation year", func(t *testing.T) {
		year := time.Now().Year() + 2
		w := env.do(t, "PUT", "/api/profile/graduation-year", "tok-u1", api.GraduationYearRequest{Year: &year})
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.ProfileResponse](t, w)
		require.NotNil(t, resp.GraduationYear)
		assert.Equal(t, year, *resp.GraduationYear)

		w = env.do(t, "PUT", "/api/profile/graduation-year", "tok-u1", map[string]interface{}{"year": nil})
		require.Equal(t, http.StatusOK, w.Code)
		assert.Nil(t, decode[api.ProfileResponse](t, w).GraduationYear)
	})

	t.Run("Should reject a graduation year out of range", func(t *testing.T) {
		year := time.Now().Year() - 1
		w := env.do(t, "PUT", "/api/profile/graduation-year", "tok-u1", api.GraduationYearRequest{Year: &year})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should validate the new password", func(t *testing.T) {
		w := env.do(t, "PUT", "/api/profile/password", "tok-u1", api.PasswordChangeRequest{NewPassword: "short", ConfirmPassword: "short"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, account.MsgPasswordLength, decode[api.ErrorResponse](t, w).Error)

		w = env.do(t, "PUT", "/api/profile/password", "tok-u1", api.PasswordChangeRequest{NewPassword: "longenough1", ConfirmPassword: "longenough2"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, account.MsgPasswordMismatch, decode[api.ErrorResponse](t, w).Error)
	})

	t.Run("Should change the password", func(t *testing.T) {
		w := env.do(t, "PUT", "/api/profile/password", "tok-u1", api.PasswordChangeRequest{NewPassword: "longenough1", ConfirmPassword: "longenough1"})
		assert.Equal(t, http.StatusNoContent, w.Code)
		assert.Equal(t, "longenough1", env.repo.Password("sam@example.com"))
	})
}

func avatarRequest(t *testing.T, filename, contentType string, data []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	h := make(textproto.MIMEHeader)
	h.Set("Content-Disposition", `form-data; name="file"; filename="`+filename+`"`)
	h.Set("Content-Type", contentType)
	part, err := mw.CreatePart(h)
	require.NoError(t, err)
	_, err = part.Write(data)
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	req := httptest.NewRequest("POST", "/api/profile/avatar", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer tok-u1")
	return req
}

func TestUploadAvatar(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Should store the image and return a cache-busted URL", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, avatarRequest(t, "me.PNG", "image/png", []byte("png-bytes")))
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())

		url := decode[api.AvatarResponse](t, w).AvatarURL
		assert.True(t, strings.HasPrefix(url, "https://storage.test/object/public/agent-avatars/u1/avatar.png?t="), url)

		data, ok := env.repo.Object("agent-avatars", "u1/avatar.png")
		require.True(t, ok)
		assert.Equal(t, []byte("png-bytes"), data)

		w = env.do(t, "GET", "/api/profile", "tok-u1", nil)
		assert.Equal(t, url, decode[api.ProfileResponse](t, w).AvatarURL)
	})

	t.Run("Should reject other file types", func(t *testing.T) {
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, avatarRequest(t, "me.gif", "image/gif", []byte("gif")))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, account.MsgAvatarType, decode[api.ErrorResponse](t, w).Error)
	})

	t.Run("Should reject oversized files", func(t *testing.T) {
		big := make([]byte, account.DefaultConfig().MaxAvatarBytes+1)
		w := httptest.NewRecorder()
		env.router.ServeHTTP(w, avatarRequest(t, "me.jpg", "image/jpeg", big))
		assert.Equal(t, http.StatusBadRequest, w.Code)
		assert.Equal(t, account.MsgAvatarSize, decode[api.ErrorResponse](t, w).Error)
	})
}

func TestNotesEndpoints(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, "GET", "/api/notes", "tok-u1", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, api.NotesResponse{}, decode[api.NotesResponse](t, w))

	w = env.do(t, "PUT", "/api/notes", "tok-u1", api.NotesRequest{Body: "Ask Amy about internships"})
	require.Equal(t, http.StatusOK, w.Code)
	saved := decode[api.NotesResponse](t, w)
	assert.Equal(t, "Ask Amy about internships", saved.Body)
	assert.NotEmpty(t, saved.UpdatedAt)

	w = env.do(t, "GET", "/api/notes", "tok-u1", nil)
	assert.Equal(t, saved, decode[api.NotesResponse](t, w))
}

func TestGetGraph(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Should show a self-only graph when signed out", func(t *testing.T) {
		w := env.do(t, "GET", "/api/graph", "", nil)
		assert.Equal(t, http.StatusUnauthorized, w.Code)
		resp := decode[api.GraphResponse](t, w)
		require.Len(t, resp.Nodes, 1)
		assert.Equal(t, "me", resp.Nodes[0].ID)
		assert.Equal(t, "You", resp.Nodes[0].Label)
		assert.Empty(t, resp.Links)
		assert.Equal(t, StatusNotSignedIn, resp.Status)
		assert.False(t, resp.Empty)
	})

	t.Run("Should return the connection graph", func(t *testing.T) {
		w := env.do(t, "GET", "/api/graph", "tok-u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.GraphResponse](t, w)
		assert.Len(t, resp.Nodes, 4)
		assert.Len(t, resp.Links, 4)
		assert.Equal(t, api.GraphStats{DirectCount: 1, GroupCount: 1}, resp.Stats)
		assert.False(t, resp.Empty)
		assert.Equal(t, "2 connections loaded.", resp.Summary)
		assert.Equal(t, "Sam Self", resp.Nodes[0].Label)
		assert.Empty(t, resp.Warnings)
	})

	t.Run("Should flag the empty state", func(t *testing.T) {
		w := env.do(t, "GET", "/api/graph", "tok-u2", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.GraphResponse](t, w)
		assert.True(t, resp.Empty)
		assert.Equal(t, StatusNoConnections, resp.Summary)
		assert.Len(t, resp.Nodes, 1)
	})

	t.Run("Should surface partial failures as warnings", func(t *testing.T) {
		env.repo.SetError("FetchChatMemberships", assert.AnError)
		defer env.repo.ClearErrors()

		w := env.do(t, "GET", "/api/graph", "tok-u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.GraphResponse](t, w)
		assert.Equal(t, 1, resp.Stats.DirectCount)
		assert.Equal(t, 0, resp.Stats.GroupCount)
		assert.NotEmpty(t, resp.Warnings)
	})
}

func TestLayoutEndpoints(t *testing.T) {
	env := newTestEnv(t)

	t.Run("Should refuse interactions before a graph is rendered", func(t *testing.T) {
		w := env.do(t, "POST", "/api/graph/layout/viewport", "tok-u1", api.ViewportRequest{Width: 400, Height: 300})
		assert.Equal(t, http.StatusConflict, w.Code)

		w = env.do(t, "GET", "/api/graph/highlight?node=amy", "tok-u1", nil)
		assert.Equal(t, http.StatusConflict, w.Code)
	})

	t.Run("Should lay out the graph until it settles", func(t *testing.T) {
		w := env.do(t, "GET", "/api/graph/layout?width=1000&height=700", "tok-u1", nil)
		require.Equal(t, http.StatusOK, w.Code, w.Body.String())
		resp := decode[api.LayoutResponse](t, w)
		assert.True(t, resp.Frame.Settled)
		assert.Equal(t, 1000.0, resp.Frame.Width)
		assert.Equal(t, 700.0, resp.Frame.Height)
		require.Len(t, resp.Frame.Positions, 4)
		assert.Equal(t, api.NodePosition{ID: "me", X: 500, Y: 350}, resp.Frame.Positions[0])
		assert.Len(t, resp.Graph.Nodes, 4)
	})

	t.Run("Should highlight a node and its neighbours", func(t *testing.T) {
		w := env.do(t, "GET", "/api/graph/highlight?node=group-g1", "tok-u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		resp := decode[api.HighlightResponse](t, w)
		assert.Equal(t, "Study Group", resp.Label)
		assert.Equal(t, "3 members", resp.Tooltip)
		assert.ElementsMatch(t, []string{"group-g1", "me", "amy", "ben"}, resp.Nodes)
		assert.Len(t, resp.Links, 3)

		w = env.do(t, "GET", "/api/graph/highlight", "tok-u1", nil)
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, "GET", "/api/graph/highlight?node=nobody", "tok-u1", nil)
		assert.Equal(t, http.StatusNotFound, w.Code)
	})

	t.Run("Should accept drags of other nodes only", func(t *testing.T) {
		w := env.do(t, "POST", "/api/graph/layout/drag", "tok-u1", api.DragRequest{Phase: "start", NodeID: "amy", X: 10, Y: 20})
		assert.Equal(t, http.StatusAccepted, w.Code)
		w = env.do(t, "POST", "/api/graph/layout/drag", "tok-u1", api.DragRequest{Phase: "end", NodeID: "amy", X: 10, Y: 20})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = env.do(t, "POST", "/api/graph/layout/drag", "tok-u1", api.DragRequest{Phase: "start", NodeID: "me"})
		assert.Equal(t, http.StatusBadRequest, w.Code)

		w = env.do(t, "POST", "/api/graph/layout/drag", "tok-u1", api.DragRequest{Phase: "spin", NodeID: "amy"})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should accept a resize", func(t *testing.T) {
		w := env.do(t, "POST", "/api/graph/layout/viewport", "tok-u1", api.ViewportRequest{Width: 400, Height: 300})
		assert.Equal(t, http.StatusAccepted, w.Code)

		w = env.do(t, "POST", "/api/graph/layout/viewport", "tok-u1", api.ViewportRequest{Width: 0, Height: 300})
		assert.Equal(t, http.StatusBadRequest, w.Code)
	})

	t.Run("Should draw the layout as SVG", func(t *testing.T) {
		w := env.do(t, "GET", "/api/graph.svg", "tok-u1", nil)
		require.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/svg+xml", w.Header().Get("Content-Type"))
		assert.Contains(t, w.Body.String(), "<svg")
		assert.Contains(t, w.Body.String(), "Study Group")
	})

	t.Run("Should tear the layout down on logout", func(t *testing.T) {
		ctrl, ok := env.sessions.Lookup("u1")
		require.True(t, ok)
		h, err := ctrl.Handle()
		require.NoError(t, err)

		w := env.do(t, "POST", "/api/auth/logout", "tok-u1", nil)
		assert.Equal(t, http.StatusNoContent, w.Code)

		select {
		case <-h.Done():
		case <-time.After(5 * time.Second):
			t.Fatal("layout still running after logout")
		}
		_, ok = env.sessions.Lookup("u1")
		assert.False(t, ok)
	})
}

func TestStreamLayout(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	t.Run("Should require authentication", func(t *testing.T) {
		resp, err := http.Get(srv.URL + "/api/graph/layout/stream")
		require.NoError(t, err)
		defer resp.Body.Close()
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
	})

	t.Run("Should stream frames until the layout settles", func(t *testing.T) {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx, "GET", srv.URL+"/api/graph/layout/stream?token=tok-u1&width=600&height=400", nil)
		require.NoError(t, err)
		resp, err := http.DefaultClient.Do(req)
		require.NoError(t, err)
		defer resp.Body.Close()

		require.Equal(t, http.StatusOK, resp.StatusCode)
		assert.Equal(t, "text/event-stream", resp.Header.Get("Content-Type"))

		events := map[string]int{}
		var last api.LayoutFrame
		var event string
		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := scanner.Text()
			switch {
			case strings.HasPrefix(line, "event: "):
				event = strings.TrimPrefix(line, "event: ")
				events[event]++
			case strings.HasPrefix(line, "data: ") && event == layout.EventSettled:
				require.NoError(t, json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &last))
			}
		}
		require.NoError(t, scanner.Err())

		assert.Equal(t, 1, events["graph"])
		assert.Equal(t, 1, events[layout.EventSettled])
		assert.True(t, last.Settled)
		assert.Len(t, last.Positions, 4)
		assert.Equal(t, "600", strconv.FormatFloat(last.Width, 'f', -1, 64))
	})
}

type objectMap map[string]string

func (m objectMap) Object(_ context.Context, bucket, path string) ([]byte, string, error) {
	body, ok := m[bucket+"/"+path]
	if !ok {
		return nil, "", appErrors.NewNotFound("object not found")
	}
	return []byte(body), "image/png", nil
}

func TestPublicObjects(t *testing.T) {
	router := NewRouter(RouterConfig{Version: "1.0.0"}, Dependencies{
		Objects: objectMap{"agent-avatars/u1/avatar.png": "png-bytes"},
		Logger:  zap.NewNop(),
	})

	t.Run("Should serve stored objects with their content type", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/agent-avatars/u1/avatar.png", nil))
		assert.Equal(t, http.StatusOK, w.Code)
		assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
		assert.Equal(t, "png-bytes", w.Body.String())
	})

	t.Run("Should return 404 for missing objects", func(t *testing.T) {
		w := httptest.NewRecorder()
		router.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/storage/v1/object/public/agent-avatars/u2/avatar.png", nil))
		assert.Equal(t, http.StatusNotFound, w.Code)
	})
}
