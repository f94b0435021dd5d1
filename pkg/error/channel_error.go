package error

import "net/http"

// InvalidTransitionError is returned when a command is not allowed from the
// channel's current status.
type InvalidTransitionError string

func (err InvalidTransitionError) Error() string {
	return string(err)
}

func (err InvalidTransitionError) ErrCode() string {
	return "INVALID_TRANSITION"
}

func (err InvalidTransitionError) StatusCode() int {
	return http.StatusConflict
}

// InvalidStateError is returned by operations that require a Connected channel.
type InvalidStateError string

func (err InvalidStateError) Error() string {
	return string(err)
}

func (err InvalidStateError) ErrCode() string {
	return "INVALID_STATE"
}

func (err InvalidStateError) StatusCode() int {
	return http.StatusConflict
}

type NotSupportedError string

func (err NotSupportedError) Error() string {
	return string(err)
}

func (err NotSupportedError) ErrCode() string {
	return "NOT_SUPPORTED"
}

func (err NotSupportedError) StatusCode() int {
	return http.StatusUnprocessableEntity
}

type TimeoutError string

func (err TimeoutError) Error() string {
	return string(err)
}

func (err TimeoutError) ErrCode() string {
	return "TIMEOUT"
}

func (err TimeoutError) StatusCode() int {
	return http.StatusGatewayTimeout
}
