package utils

import (
	"errors"
	"fmt"
	"testing"

	pkgError "github.com/AzielCF/az-connect/pkg/error"
	"github.com/stretchr/testify/assert"
)

func TestErrorResponse_GenericError(t *testing.T) {
	res := ErrorResponse(fmt.Errorf("wrap: %w", pkgError.NotSupportedError("no embed for telegram")))
	assert.Equal(t, 422, res.Status)
	assert.Equal(t, "NOT_SUPPORTED", res.Code)
	assert.Equal(t, "no embed for telegram", res.Message)
}

func TestErrorResponse_Unknown(t *testing.T) {
	res := ErrorResponse(errors.New("disk full"))
	assert.Equal(t, 500, res.Status)
	assert.Equal(t, "INTERNAL_SERVER_ERROR", res.Code)
}

func TestPanicIfNeeded(t *testing.T) {
	assert.NotPanics(t, func() { PanicIfNeeded(nil) })
	assert.Panics(t, func() { PanicIfNeeded(errors.New("x")) })
}

func TestGetPersistentNodeID_Override(t *testing.T) {
	assert.Equal(t, "node-a", GetPersistentNodeID("node-a", t.TempDir()))
}

func TestGetPersistentNodeID_Stable(t *testing.T) {
	dir := t.TempDir()
	first := GetPersistentNodeID("", dir)
	assert.NotEmpty(t, first)
	assert.Equal(t, first, GetPersistentNodeID("", dir))
}
