package supabase

import (
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/auth"
	appErrors "franklink-backend/pkg/errors"
)

// fakePostgREST answers table reads with canned rows keyed by table name and
// records the query strings it saw.
type fakePostgREST struct {
	mu      sync.Mutex
	rows    map[string]func(q map[string]string) any
	queries map[string][]string
	bodies  map[string][]string
	failing map[string]bool
}

func newFake() *fakePostgREST {
	return &fakePostgREST{
		rows:    make(map[string]func(map[string]string) any),
		queries: make(map[string][]string),
		bodies:  make(map[string][]string),
		failing: make(map[string]bool),
	}
}

func (f *fakePostgREST) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	table := strings.TrimPrefix(r.URL.Path, "/rest/v1/")
	q := make(map[string]string)
	for k, v := range r.URL.Query() {
		q[k] = v[0]
	}

	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.queries[table] = append(f.queries[table], r.URL.RawQuery)
	if len(body) > 0 {
		f.bodies[table] = append(f.bodies[table], string(body))
	}
	fn, ok := f.rows[table]
	failing := f.failing[table]
	f.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failing {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"code":"XX000","message":"boom","details":"","hint":""}`))
		return
	}
	if !ok {
		_, _ = w.Write([]byte(`[]`))
		return
	}
	_ = json.NewEncoder(w).Encode(fn(q))
}

func (f *fakePostgREST) lastQuery(table string) string {
	f.mu.Lock()
	defer f.mu.Unlock()
	qs := f.queries[table]
	if len(qs) == 0 {
		return ""
	}
	return qs[len(qs)-1]
}

func world() *fakePostgREST {
	f := newFake()
	f.rows["connection_requests"] = func(q map[string]string) any {
		if q["initiator_user_id"] == "eq.u1" {
			return []map[string]any{
				{"initiator_user_id": "u1", "target_user_id": "amy", "status": "group_created"},
				{"initiator_user_id": "u1", "target_user_id": nil, "status": "group_created"},
			}
		}
		return []map[string]any{
			{"initiator_user_id": "ben", "target_user_id": "u1", "status": "group_created"},
		}
	}
	f.rows["group_chat_participants"] = func(q map[string]string) any {
		if q["user_id"] == "eq.u1" {
			return []map[string]any{{"chat_guid": "g1"}, {"chat_guid": nil}}
		}
		return []map[string]any{
			{"chat_guid": "g1", "user_id": "u1"},
			{"chat_guid": "g1", "user_id": "amy"},
			{"chat_guid": "g1", "user_id": "cara"},
		}
	}
	f.rows["group_chats"] = func(q map[string]string) any {
		return []map[string]any{{"chat_guid": "g1", "member_count": 3, "display_name": "Study Group"}}
	}
	f.rows["users"] = func(q map[string]string) any {
		if q["id"] == "eq.u1" {
			return []map[string]any{{
				"id":               "u1",
				"name":             "Sam Self",
				"graduation_year":  2027,
				"agent_avatar_url": "https://cdn.example/agent-avatars/u1/avatar.png",
			}}
		}
		if strings.HasPrefix(q["id"], "eq.") {
			return []map[string]any{}
		}
		return []map[string]any{
			{"id": "amy", "name": "Amy Adams"},
			{"id": "ben", "name": nil, "phone_number": "+15551234567"},
		}
	}
	return f
}

func newTestStore(t *testing.T, f *fakePostgREST) *Store {
	t.Helper()
	srv := httptest.NewServer(f)
	t.Cleanup(srv.Close)

	s, err := New(srv.URL, "service-role", nil)
	require.NoError(t, err)
	return s
}

func TestRelationshipReads(t *testing.T) {
	f := world()
	s := newTestStore(t, f)
	ctx := context.Background()

	t.Run("Should filter by role, status and limit", func(t *testing.T) {
		rows, err := s.FetchDirectConnections(ctx, "u1", repository.RoleInitiator, 250)
		require.NoError(t, err)
		assert.Equal(t, []domain.ConnectionRequest{{InitiatorUserID: "u1", TargetUserID: "amy", Status: "group_created"}}, rows)

		q := f.lastQuery("connection_requests")
		assert.Contains(t, q, "status=eq.group_created")
		assert.Contains(t, q, "limit=250")
	})

	t.Run("Should drop rows with blank identifiers", func(t *testing.T) {
		ids, err := s.FetchChatMemberships(ctx, "u1", 100)
		require.NoError(t, err)
		assert.Equal(t, []string{"g1"}, ids)
	})

	t.Run("Should ask for chats at or above the member threshold", func(t *testing.T) {
		chats, err := s.FetchChatsByIDs(ctx, []string{"g1", "g2"}, repository.GroupMinMembers, 50)
		require.NoError(t, err)
		assert.Equal(t, []domain.Chat{{ChatID: "g1", MemberCount: 3, DisplayName: "Study Group"}}, chats)
		assert.Contains(t, f.lastQuery("group_chats"), "member_count=gte.3")
	})

	t.Run("Should not query for empty id lists", func(t *testing.T) {
		before := f.lastQuery("users")
		users, err := s.FetchUserProfiles(ctx, nil)
		require.NoError(t, err)
		assert.Empty(t, users)
		assert.Equal(t, before, f.lastQuery("users"))
	})

	t.Run("Should report failed queries as unavailable", func(t *testing.T) {
		f.mu.Lock()
		f.failing["group_chats"] = true
		f.mu.Unlock()
		defer func() {
			f.mu.Lock()
			delete(f.failing, "group_chats")
			f.mu.Unlock()
		}()

		_, err := s.FetchChatsByIDs(ctx, []string{"g1"}, 3, 50)
		assert.Error(t, err)
	})

	t.Run("Should stop before the call when the context is done", func(t *testing.T) {
		cctx, cancel := context.WithCancel(ctx)
		cancel()
		_, err := s.FetchChatMemberships(cctx, "u1", 100)
		assert.ErrorIs(t, err, context.Canceled)
	})
}

func TestLoaderOverSupabase(t *testing.T) {
	s := newTestStore(t, world())
	ctx := auth.WithIdentity(context.Background(), &auth.Identity{UserID: "u1"})

	g, err := connections.NewLoader(s, s).Load(ctx)
	require.NoError(t, err)
	require.NoError(t, g.Validate())

	assert.Equal(t, domain.Stats{DirectCount: 2, GroupCount: 1}, g.Stats)
	self, ok := g.Node(domain.SelfNodeID)
	require.True(t, ok)
	assert.Equal(t, "Sam Self", self.Label)
	ben, ok := g.Node("ben")
	require.True(t, ok)
	assert.Equal(t, "(555) 123-4567", ben.Label)
}

func TestGetProfile(t *testing.T) {
	f := world()
	s := newTestStore(t, f)
	ctx := context.Background()

	p, err := s.GetProfile(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "Sam Self", p.Name)
	require.NotNil(t, p.GraduationYear)
	assert.Equal(t, 2027, *p.GraduationYear)
	assert.Equal(t, "https://cdn.example/agent-avatars/u1/avatar.png", p.AvatarURL)
	assert.Contains(t, f.lastQuery("users"), "agent_avatar_url")
	assert.NotContains(t, f.lastQuery("users"), ",avatar_url")

	_, err = s.GetProfile(ctx, "ghost")
	assert.True(t, appErrors.IsNotFound(err))
}

func TestUpdateAvatarURL(t *testing.T) {
	f := world()
	s := newTestStore(t, f)

	require.NoError(t, s.UpdateAvatarURL(context.Background(), "u1", "https://cdn.example/a.png?t=1"))

	f.mu.Lock()
	bodies := f.bodies["users"]
	f.mu.Unlock()
	require.Len(t, bodies, 1)

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(bodies[0]), &sent))
	assert.Equal(t, map[string]any{"agent_avatar_url": "https://cdn.example/a.png?t=1"}, sent)
	assert.Contains(t, f.lastQuery("users"), "id=eq.u1")
}

func TestPublicURL(t *testing.T) {
	s := newTestStore(t, newFake())
	assert.Contains(t, s.PublicURL("agent-avatars", "u1/avatar.png"), "/object/public/agent-avatars/u1/avatar.png")
}

func TestParseTimestamp(t *testing.T) {
	for _, in := range []string{"2026-01-02T03:04:05.123456+00:00", "2026-01-02T03:04:05.123456", "2026-01-02T03:04:05Z"} {
		ts, ok := parseTimestamp(in)
		assert.True(t, ok, in)
		assert.Equal(t, 2026, ts.Year())
	}
	_, ok := parseTimestamp("")
	assert.False(t, ok)
}
