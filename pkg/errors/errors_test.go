package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorTypes(t *testing.T) {
	tests := []struct {
		name  string
		err   error
		check func(error) bool
		want  ErrorType
	}{
		{"validation", NewValidation("bad input"), IsValidation, ErrorTypeValidation},
		{"not found", NewNotFound("missing"), IsNotFound, ErrorTypeNotFound},
		{"unauthorized", NewUnauthorized("no session", nil), IsUnauthorized, ErrorTypeUnauthorized},
		{"unavailable", NewUnavailable("breaker open", nil), IsUnavailable, ErrorTypeUnavailable},
		{"internal", NewInternal("boom", stderrors.New("db")), IsInternal, ErrorTypeInternal},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.True(t, tt.check(tt.err))
			assert.Equal(t, tt.want, TypeOf(tt.err))
		})
	}
}

func TestWrap(t *testing.T) {
	t.Run("Should preserve AppError type", func(t *testing.T) {
		err := Wrap(NewNotFound("profile"), "load account")
		assert.True(t, IsNotFound(err))
		assert.Contains(t, err.Error(), "load account: profile")
	})

	t.Run("Should classify foreign errors as internal", func(t *testing.T) {
		cause := stderrors.New("connection reset")
		err := Wrap(cause, "fetch rows")
		assert.True(t, IsInternal(err))
		assert.ErrorIs(t, err, cause)
	})

	t.Run("Should pass nil through", func(t *testing.T) {
		assert.NoError(t, Wrap(nil, "noop"))
	})

	t.Run("Should see through fmt wrapping", func(t *testing.T) {
		err := fmt.Errorf("handler: %w", NewValidation("year out of range"))
		assert.True(t, IsValidation(err))
	})
}
