package persistence

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFlowError_WrapsSentinel(t *testing.T) {
	err := NewFlowError("GetByID", "flow-1", ErrFlowNotFound)

	assert.True(t, IsFlowNotFound(err))
	assert.True(t, errors.Is(err, ErrFlowNotFound))
	assert.Contains(t, err.Error(), "GetByID")
	assert.Contains(t, err.Error(), "flow-1")
}

func TestSessionError_WrapsSentinel(t *testing.T) {
	err := NewSessionError("Save", "sess-1", ErrSessionNotFound)

	assert.True(t, IsSessionNotFound(err))
	assert.Equal(t, ErrSessionNotFound, errors.Unwrap(err))
}

func TestIsHelpers_UnrelatedErrors(t *testing.T) {
	plain := errors.New("boom")

	assert.False(t, IsFlowNotFound(plain))
	assert.False(t, IsSessionNotFound(plain))
	assert.False(t, IsFlowHasActiveSessions(plain))
	assert.True(t, IsFlowHasActiveSessions(NewFlowError("Delete", "f", ErrFlowHasActiveSessions)))
}
