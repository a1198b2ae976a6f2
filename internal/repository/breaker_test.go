package repository_test

import (
	"context"
	stderrors "errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	"franklink-backend/internal/repository"
	"franklink-backend/internal/repository/mocks"
	appErrors "franklink-backend/pkg/errors"
)

func testBreakerConfig() repository.BreakerConfig {
	cfg := repository.DefaultBreakerConfig("test")
	cfg.MinRequests = 2
	cfg.FailureThreshold = 0.5
	cfg.Timeout = time.Minute
	return cfg
}

func TestBreakerStore(t *testing.T) {
	ctx := context.Background()

	t.Run("Should pass results through while closed", func(t *testing.T) {
		mock := mocks.NewMockRepository()
		mock.AddRequest("me-id", "u1", domain.ConnectionStatusGroupCreated)
		store := repository.NewBreakerStore(mock, testBreakerConfig(), zap.NewNop())

		rows, err := store.FetchDirectConnections(ctx, "me-id", repository.RoleInitiator, 10)
		require.NoError(t, err)
		assert.Len(t, rows, 1)
	})

	t.Run("Should open after repeated failures", func(t *testing.T) {
		mock := mocks.NewMockRepository()
		mock.SetError("FetchChatMemberships", stderrors.New("connection refused"))
		store := repository.NewBreakerStore(mock, testBreakerConfig(), zap.NewNop())

		for i := 0; i < 2; i++ {
			_, err := store.FetchChatMemberships(ctx, "me-id", 10)
			require.Error(t, err)
			assert.False(t, appErrors.IsUnavailable(err))
		}

		_, err := store.FetchChatMemberships(ctx, "me-id", 10)
		assert.True(t, appErrors.IsUnavailable(err))
		assert.Equal(t, 2, mock.Calls("FetchChatMemberships"))
	})

	t.Run("Should not count not-found as failure", func(t *testing.T) {
		mock := mocks.NewMockRepository()
		store := repository.NewBreakerStore(mock, testBreakerConfig(), zap.NewNop())

		for i := 0; i < 5; i++ {
			_, err := store.GetProfile(ctx, "missing")
			assert.True(t, appErrors.IsNotFound(err))
		}
	})
}

func TestLimits(t *testing.T) {
	t.Run("Should fill zero values with defaults", func(t *testing.T) {
		l := repository.Limits{GroupChats: 7}.WithDefaults()
		assert.Equal(t, 7, l.GroupChats)
		assert.Equal(t, 250, l.RequestRows)
		assert.Equal(t, 200, l.ProfileBatchCap)
		assert.NoError(t, l.Validate())
	})

	t.Run("Should reject non-positive limits", func(t *testing.T) {
		l := repository.DefaultLimits()
		l.ParticipantRows = -1
		assert.ErrorContains(t, l.Validate(), "participant_rows")
	})
}
