package apperror

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestKindOf(t *testing.T) {
	wrapped := fmt.Errorf("create sale: %w", NewInsufficientStock("p1", 10, 5))

	assert.Equal(t, KindInsufficientStock, KindOf(wrapped))
	assert.Equal(t, KindStorage, KindOf(errors.New("boom")))
	assert.Equal(t, Kind(""), KindOf(nil))
}

func TestIsKindAndHasCode(t *testing.T) {
	err := NewValidationCode(CodeDuplicateGoal, "goal already exists")

	assert.True(t, IsKind(err, KindValidation))
	assert.False(t, IsKind(err, KindNotFound))
	assert.True(t, HasCode(err, CodeDuplicateGoal))
	assert.False(t, HasCode(errors.New("plain"), CodeDuplicateGoal))
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("connection reset")
	err := NewStorage(cause)

	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "connection reset")
	assert.Equal(t, "p1", NewNotFound("item", "p1").Details["id"])
}
