package app

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"
	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/layout"
	"franklink-backend/internal/repository/mocks"
	"franklink-backend/internal/service/connections"
	"franklink-backend/pkg/auth"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func fastRenderer() *layout.Renderer {
	return layout.NewRenderer(layout.WithParams(func() layout.Params {
		p := layout.DefaultParams()
		p.TickInterval = 0
		return p
	}))
}

func seeded() *mocks.MockRepository {
	repo := mocks.NewMockRepository()
	repo.AddProfile(domain.Profile{ID: "u1", Name: "Sam Self"})
	repo.AddUser(domain.User{ID: "amy", DisplayName: "Amy Adams"})
	repo.AddUser(domain.User{ID: "ben", DisplayName: "Ben Brown"})
	repo.AddRequest("u1", "amy", domain.ConnectionStatusGroupCreated)
	repo.AddChat("g1", "", 3, "u1", "amy", "ben")
	return repo
}

func signedIn(userID string) context.Context {
	return auth.WithIdentity(context.Background(), &auth.Identity{UserID: userID})
}

func newSessions(repo *mocks.MockRepository) *Sessions {
	return NewSessions(connections.NewLoader(repo, repo), fastRenderer, zap.NewNop())
}

func TestControllerRenderGraph(t *testing.T) {
	sessions := newSessions(seeded())
	defer sessions.Close()
	c := sessions.Get("u1")

	t.Run("Should refuse graph interactions before rendering", func(t *testing.T) {
		assert.ErrorIs(t, c.Resize(layout.Viewport{Width: 10, Height: 10}), ErrNoGraph)
		_, err := c.Highlight("amy")
		assert.ErrorIs(t, err, ErrNoGraph)
	})

	t.Run("Should render and switch to the graph tab", func(t *testing.T) {
		h, err := c.RenderGraph(signedIn("u1"), layout.Viewport{Width: 800, Height: 600})
		require.NoError(t, err)

		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		f, err := h.Wait(ctx)
		require.NoError(t, err)
		assert.Len(t, f.Positions, 4)

		st := c.State()
		assert.Equal(t, TabGraph, st.Tab)
		assert.Equal(t, h.ID(), st.HandleID)
		assert.Equal(t, 1, st.Graph.Stats.DirectCount)
		assert.Equal(t, 1, st.Graph.Stats.GroupCount)
	})

	t.Run("Should replace the previous layout on re-render", func(t *testing.T) {
		first, err := c.Handle()
		require.NoError(t, err)

		second, err := c.RenderGraph(signedIn("u1"), layout.Viewport{})
		require.NoError(t, err)

		select {
		case <-first.Done():
		default:
			t.Fatal("previous layout still running")
		}
		assert.NotEqual(t, first.ID(), second.ID())
		assert.Equal(t, 1, c.Events().Count(layout.EventResize))
	})

	t.Run("Should keep the current layout when not signed in", func(t *testing.T) {
		before, _ := c.Handle()
		_, err := c.RenderGraph(context.Background(), layout.Viewport{})
		assert.ErrorIs(t, err, domain.ErrNotAuthenticated)
		after, _ := c.Handle()
		assert.Same(t, before, after)
	})

	t.Run("Should validate drags", func(t *testing.T) {
		assert.ErrorIs(t, c.Drag(DragStart, domain.SelfNodeID, 1, 1), layout.ErrNotDraggable)
		assert.ErrorIs(t, c.Drag(DragStart, "ghost", 1, 1), layout.ErrUnknownNode)
		assert.Error(t, c.Drag("fling", "amy", 1, 1))
		assert.NoError(t, c.Drag(DragStart, "amy", 1, 1))
		assert.NoError(t, c.Drag(DragEnd, "amy", 1, 1))
	})

	t.Run("Should highlight from the loaded edges", func(t *testing.T) {
		hl, err := c.Highlight("amy")
		require.NoError(t, err)
		assert.ElementsMatch(t, []string{"amy", domain.SelfNodeID, "group-g1"}, hl.Nodes)
	})
}

func TestControllerTabs(t *testing.T) {
	c := NewController("u1", nil, fastRenderer(), zap.NewNop())
	require.NoError(t, c.SetTab(TabNotes))
	assert.Equal(t, TabNotes, c.State().Tab)
	assert.Error(t, c.SetTab("settings"))

	c.SetProfile(&domain.Profile{ID: "u1", Name: "Sam"})
	assert.Equal(t, "Sam", c.State().Profile.Name)
}

func TestSessions(t *testing.T) {
	repo := seeded()
	sessions := newSessions(repo)
	defer sessions.Close()

	a := sessions.Get("u1")
	assert.Same(t, a, sessions.Get("u1"))
	b := sessions.Get("u2")
	assert.NotSame(t, a, b)
	assert.Equal(t, 2, sessions.Len())

	t.Run("Should tear down the layout on logout", func(t *testing.T) {
		h, err := a.RenderGraph(signedIn("u1"), layout.Viewport{})
		require.NoError(t, err)

		sessions.Logout("u1")
		select {
		case <-h.Done():
		default:
			t.Fatal("layout still running after logout")
		}
		_, ok := sessions.Lookup("u1")
		assert.False(t, ok)
		assert.Nil(t, a.State().Graph)
		assert.Equal(t, 0, a.Events().Count(layout.EventDragStart))
	})

	t.Run("Should evict idle sessions", func(t *testing.T) {
		assert.Equal(t, 0, sessions.Evict(time.Hour))
		time.Sleep(5 * time.Millisecond)
		assert.Equal(t, 1, sessions.Evict(time.Millisecond))
		assert.Equal(t, 0, sessions.Len())
	})

	t.Run("Should surface load errors", func(t *testing.T) {
		failing := &failingLoader{err: errors.New("boom")}
		s := NewSessions(failing, fastRenderer, zap.NewNop())
		defer s.Close()
		_, err := s.Get("u1").RenderGraph(signedIn("u1"), layout.Viewport{})
		assert.EqualError(t, err, "boom")
	})
}

func TestControllerAfterLogout(t *testing.T) {
	teardowns := map[string]func(s *Sessions){
		"logout": func(s *Sessions) { s.Logout("u1") },
		"evict": func(s *Sessions) {
			time.Sleep(5 * time.Millisecond)
			s.Evict(time.Millisecond)
		},
		"close": func(s *Sessions) { s.Close() },
	}

	for name, teardown := range teardowns {
		t.Run("Should refuse to render after "+name, func(t *testing.T) {
			defer goleak.VerifyNone(t)

			sessions := newSessions(seeded())
			c := sessions.Get("u1")
			teardown(sessions)

			h, err := c.RenderGraph(signedIn("u1"), layout.Viewport{})
			assert.ErrorIs(t, err, ErrLoggedOut)
			assert.Nil(t, h)
			_, err = c.Handle()
			assert.ErrorIs(t, err, ErrNoGraph)

			sessions.Close()
		})
	}

	t.Run("Should hand out a fresh controller after logout", func(t *testing.T) {
		defer goleak.VerifyNone(t)

		sessions := newSessions(seeded())
		defer sessions.Close()
		old := sessions.Get("u1")
		sessions.Logout("u1")

		fresh := sessions.Get("u1")
		assert.NotSame(t, old, fresh)
		_, err := fresh.RenderGraph(signedIn("u1"), layout.Viewport{})
		require.NoError(t, err)
	})
}

type failingLoader struct{ err error }

func (f *failingLoader) Load(context.Context) (*domain.Graph, error) { return nil, f.err }
