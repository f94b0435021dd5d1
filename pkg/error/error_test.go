package error

import (
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAs_UnwrapsWrappedErrors(t *testing.T) {
	wrapped := fmt.Errorf("connect whatsapp: %w", InvalidTransitionError("channel is pending"))

	ge, ok := As(wrapped)
	require.True(t, ok)
	assert.Equal(t, "INVALID_TRANSITION", ge.ErrCode())
	assert.Equal(t, http.StatusConflict, ge.StatusCode())
	assert.Equal(t, "channel is pending", ge.Error())
}

func TestAs_PlainError(t *testing.T) {
	_, ok := As(fmt.Errorf("boom"))
	assert.False(t, ok)
}

func TestStatusCodes(t *testing.T) {
	cases := []struct {
		err    GenericError
		code   string
		status int
	}{
		{NotFoundError("x"), "NOT_FOUND_ERROR", http.StatusNotFound},
		{ValidationError("x"), "VALIDATION_ERROR", http.StatusBadRequest},
		{InvalidStateError("x"), "INVALID_STATE", http.StatusConflict},
		{NotSupportedError("x"), "NOT_SUPPORTED", http.StatusUnprocessableEntity},
		{TimeoutError("x"), "TIMEOUT", http.StatusGatewayTimeout},
		{InternalServerError("x"), "INTERNAL_SERVER_ERROR", http.StatusInternalServerError},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.code, tc.err.ErrCode())
		assert.Equal(t, tc.status, tc.err.StatusCode())
	}
}
