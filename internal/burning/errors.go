package burning

import (
	"fmt"

	"github.com/pkg/errors"
)

// Kind tags a failed generation.
type Kind int

const (
	KindOther Kind = iota
	KindTimeout
	KindAPI
	KindRequest
)

func (k Kind) String() string {
	switch k {
	case KindTimeout:
		return "timeout"
	case KindAPI:
		return "api"
	case KindRequest:
		return "request"
	default:
		return "other"
	}
}

// Error is the only error type Generate returns.
type Error struct {
	Kind       Kind
	StatusCode int
	Msg        string
	Err        error
}

func (e *Error) Error() string {
	switch e.Kind {
	case KindTimeout:
		return "request to BurningText API timed out"
	case KindAPI:
		return fmt.Sprintf("BurningText API responded with status code %d", e.StatusCode)
	case KindRequest:
		return fmt.Sprintf("BurningText request failed: %s", e.Msg)
	default:
		return e.Msg
	}
}

func (e *Error) Unwrap() error {
	return e.Err
}

// AsError extracts a generation error from err, if there is one.
func AsError(err error) (*Error, bool) {
	var e *Error
	if errors.As(err, &e) {
		return e, true
	}
	return nil, false
}

func timeoutError(err error) *Error {
	return &Error{Kind: KindTimeout, Err: err}
}

func apiError(code int) *Error {
	return &Error{Kind: KindAPI, StatusCode: code}
}

func requestError(err error) *Error {
	return &Error{Kind: KindRequest, Msg: err.Error(), Err: err}
}

func otherError(msg string) *Error {
	return &Error{Kind: KindOther, Msg: msg}
}
