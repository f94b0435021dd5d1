package utils

import (
	pkgError "github.com/AzielCF/az-connect/pkg/error"
)

// ResponseData is the envelope every REST handler answers with. Status only
// drives the HTTP status line and is not serialized.
type ResponseData struct {
	Status  int    `json:"-"`
	Code    string `json:"code"`
	Message string `json:"message"`
	Results any    `json:"results,omitempty"`
}

// ErrorResponse maps err onto the envelope, falling back to a 500 when the
// error carries no code of its own.
func ErrorResponse(err error) ResponseData {
	if ge, ok := pkgError.As(err); ok {
		return ResponseData{
			Status:  ge.StatusCode(),
			Code:    ge.ErrCode(),
			Message: ge.Error(),
		}
	}
	return ResponseData{
		Status:  500,
		Code:    "INTERNAL_SERVER_ERROR",
		Message: err.Error(),
	}
}

// PanicIfNeeded lets handlers bail out and rely on the recovery middleware.
func PanicIfNeeded(err any) {
	if err != nil {
		panic(err)
	}
}
