package errors

import (
	stderrors "errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestErrorMessageWrapsCause(t *testing.T) {
	cause := stderrors.New("connection refused")
	err := Transient("notification send failed", cause)

	assert.Equal(t, "notification send failed: connection refused", err.Error())
	assert.Equal(t, cause, stderrors.Unwrap(err))
}

func TestErrorMessageWithoutCause(t *testing.T) {
	err := Conflict("timeslot already taken", nil)
	assert.Equal(t, "timeslot already taken", err.Error())
}

func TestIsCodeMatchesThroughWrapping(t *testing.T) {
	err := fmt.Errorf("create booking: %w", NotFound("appointment", nil))

	assert.True(t, IsNotFound(err))
	assert.False(t, IsConflict(err))
}

func TestIsCodePlainError(t *testing.T) {
	assert.False(t, IsValidation(stderrors.New("boom")))
	assert.False(t, IsTransient(nil))
}

func TestConstructorCodes(t *testing.T) {
	assert.Equal(t, ErrValidation, Validation("bad input", nil).Code)
	assert.Equal(t, ErrInternal, Internal(stderrors.New("x")).Code)
	assert.Equal(t, "internal server error", Internal(nil).Message)
}
