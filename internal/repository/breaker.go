package repository

import (
	"context"
	"errors"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"franklink-backend/internal/domain"
	appErrors "franklink-backend/pkg/errors"
)

// BreakerConfig configures the circuit breaker placed in front of a Store.
type BreakerConfig struct {
	Name             string
	MaxRequests      uint32
	Interval         time.Duration
	Timeout          time.Duration
	FailureThreshold float64
	MinRequests      uint32
}

// DefaultBreakerConfig returns the breaker settings used for the BaaS.
func DefaultBreakerConfig(name string) BreakerConfig {
	return BreakerConfig{
		Name:             name,
		MaxRequests:      5,
		Interval:         30 * time.Second,
		Timeout:          60 * time.Second,
		FailureThreshold: 0.8,
		MinRequests:      5,
	}
}

// breakerStore guards a Store with a circuit breaker. Validation and
// not-found errors are outcomes, not failures, and never trip it.
type breakerStore struct {
	next Store
	cb   *gobreaker.CircuitBreaker
}

// NewBreakerStore wraps next with a gobreaker circuit breaker.
func NewBreakerStore(next Store, cfg BreakerConfig, logger *zap.Logger) Store {
	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        cfg.Name,
		MaxRequests: cfg.MaxRequests,
		Interval:    cfg.Interval,
		Timeout:     cfg.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < cfg.MinRequests {
				return false
			}
			return float64(counts.TotalFailures)/float64(counts.Requests) >= cfg.FailureThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("store circuit breaker state changed",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
		IsSuccessful: func(err error) bool {
			return err == nil ||
				appErrors.IsNotFound(err) ||
				appErrors.IsValidation(err) ||
				errors.Is(err, context.Canceled)
		},
	})
	return &breakerStore{next: next, cb: cb}
}

func guard[T any](cb *gobreaker.CircuitBreaker, fn func() (T, error)) (T, error) {
	out, err := cb.Execute(func() (interface{}, error) {
		return fn()
	})
	if err != nil {
		var zero T
		if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
			return zero, appErrors.NewUnavailable("data store temporarily unavailable", err)
		}
		if out == nil {
			return zero, err
		}
		return out.(T), err
	}
	return out.(T), nil
}

func (s *breakerStore) FetchDirectConnections(ctx context.Context, selfID string, role Role, limit int) ([]domain.ConnectionRequest, error) {
	return guard(s.cb, func() ([]domain.ConnectionRequest, error) {
		return s.next.FetchDirectConnections(ctx, selfID, role, limit)
	})
}

func (s *breakerStore) FetchChatMemberships(ctx context.Context, selfID string, limit int) ([]string, error) {
	return guard(s.cb, func() ([]string, error) {
		return s.next.FetchChatMemberships(ctx, selfID, limit)
	})
}

func (s *breakerStore) FetchChatsByIDs(ctx context.Context, chatIDs []string, minMembers, limit int) ([]domain.Chat, error) {
	return guard(s.cb, func() ([]domain.Chat, error) {
		return s.next.FetchChatsByIDs(ctx, chatIDs, minMembers, limit)
	})
}

func (s *breakerStore) FetchChatMembers(ctx context.Context, chatIDs []string, limit int) ([]domain.ChatMember, error) {
	return guard(s.cb, func() ([]domain.ChatMember, error) {
		return s.next.FetchChatMembers(ctx, chatIDs, limit)
	})
}

func (s *breakerStore) FetchUserProfiles(ctx context.Context, userIDs []string) ([]domain.User, error) {
	return guard(s.cb, func() ([]domain.User, error) {
		return s.next.FetchUserProfiles(ctx, userIDs)
	})
}

func (s *breakerStore) GetProfile(ctx context.Context, userID string) (*domain.Profile, error) {
	return guard(s.cb, func() (*domain.Profile, error) {
		return s.next.GetProfile(ctx, userID)
	})
}

func (s *breakerStore) UpdateGraduationYear(ctx context.Context, userID string, year *int) error {
	_, err := guard(s.cb, func() (struct{}, error) {
		return struct{}{}, s.next.UpdateGraduationYear(ctx, userID, year)
	})
	return err
}

func (s *breakerStore) UpdateAvatarURL(ctx context.Context, userID, url string) error {
	_, err := guard(s.cb, func() (struct{}, error) {
		return struct{}{}, s.next.UpdateAvatarURL(ctx, userID, url)
	})
	return err
}

func (s *breakerStore) GetNotes(ctx context.Context, userID string) (*domain.CareerNotes, error) {
	return guard(s.cb, func() (*domain.CareerNotes, error) {
		return s.next.GetNotes(ctx, userID)
	})
}

func (s *breakerStore) UpsertNotes(ctx context.Context, notes domain.CareerNotes) (*domain.CareerNotes, error) {
	return guard(s.cb, func() (*domain.CareerNotes, error) {
		return s.next.UpsertNotes(ctx, notes)
	})
}
