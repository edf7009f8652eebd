package usecase

import "fmt"

type ErrorCode string

const (
	// ErrorInvalidInput covers bad date formats, unknown regions and
	// missing species names; reported inline to the user.
	ErrorInvalidInput ErrorCode = "INVALID_INPUT"
	// ErrorRangeLimit is a parseable custom date outside the upstream
	// 30-day window, distinguished from a plain parse error.
	ErrorRangeLimit ErrorCode = "RANGE_LIMIT"
	// ErrorUpstream is a data-fetch failure; triggers prompt recovery.
	ErrorUpstream ErrorCode = "UPSTREAM_ERROR"
	// ErrorRender is an in-place edit failure, recovered by sending a
	// fresh message.
	ErrorRender ErrorCode = "RENDER_ERROR"
	// ErrorPersistence is a dialog-state persistence failure.
	ErrorPersistence ErrorCode = "PERSISTENCE_ERROR"
	// ErrorRateLimited means the chat exceeded its request window.
	ErrorRateLimited ErrorCode = "RATE_LIMITED"
	// ErrorInternal is the catch-all for anything else.
	ErrorInternal ErrorCode = "INTERNAL_ERROR"
)

type Error struct {
	Code   ErrorCode
	Reason string
	Err    error
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	if e.Err == nil {
		return fmt.Sprintf("usecase: %s (%s)", e.Code, e.Reason)
	}
	return fmt.Sprintf("usecase: %s (%s): %v", e.Code, e.Reason, e.Err)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

func newError(code ErrorCode, reason string, err error) *Error {
	return &Error{Code: code, Reason: reason, Err: err}
}
