package apierror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorIs(t *testing.T) {
	t.Parallel()

	t.Run("wrapped error matches base by code", func(t *testing.T) {
		wrapped := WrapError(ErrConflict, errors.New("stop not allowed in status stopped"))
		assert.ErrorIs(t, wrapped, ErrConflict)
		assert.NotErrorIs(t, wrapped, ErrNoCapacity)
	})

	t.Run("unwrap returns raw error", func(t *testing.T) {
		raw := errors.New("raw cause")
		wrapped := WrapError(ErrInternalError, fmt.Errorf("context: %w", raw))
		assert.ErrorIs(t, wrapped, raw)
	})

	t.Run("predefined errors match themselves", func(t *testing.T) {
		assert.ErrorIs(t, ErrUnauthorized, ErrUnauthorized)
		assert.NotErrorIs(t, ErrUnauthorized, ErrForbidden)
	})
}

func TestWrapErrorKeepsStatus(t *testing.T) {
	t.Parallel()

	wrapped := WrapError(ErrPortExhaustion, errors.New("no adjacent pair left"))
	assert.Equal(t, ErrPortExhaustion.Code, wrapped.Code)
	assert.Equal(t, ErrPortExhaustion.HTTPStatus, wrapped.HTTPStatus)
	assert.Contains(t, wrapped.Error(), "no adjacent pair left")
}

func TestNewErrorResponse(t *testing.T) {
	t.Parallel()

	resp := NewErrorResponse("req-1", ErrServerNotFound)
	assert.Equal(t, "req-1", resp.RequestID)
	assert.Len(t, resp.Errors, 1)
	assert.Equal(t, ErrServerNotFound.Code, resp.Errors[0].Code)
}
