package tracking

import "net/http"

// ErrorCode identifies a tracking failure class. Every failure path in the
// resolver surfaces exactly one of these so callers can map it to an HTTP
// status and an accurate message.
type ErrorCode string

const (
	ErrInvalidTrackNumber ErrorCode = "INVALID_TRACK_NUMBER"
	ErrInvalidIDType      ErrorCode = "INVALID_ID_TYPE"
	ErrAuthMissing        ErrorCode = "AUTH_MISSING"
	ErrAuthFailed         ErrorCode = "AUTH_FAILED"
	ErrUnauthorized       ErrorCode = "UNAUTHORIZED"
	ErrOrderNotFound      ErrorCode = "ORDER_NOT_FOUND"
	ErrAPIError           ErrorCode = "API_ERROR"
	ErrCaptchaRequired    ErrorCode = "CAPTCHA_REQUIRED"
	ErrPageBlocked        ErrorCode = "PAGE_BLOCKED"
	ErrRateLimit          ErrorCode = "RATE_LIMIT"
	ErrPageLoadFailed     ErrorCode = "PAGE_LOAD_FAILED"
	ErrPageLayoutChanged  ErrorCode = "PAGE_LAYOUT_CHANGED"
	ErrTimeout            ErrorCode = "TIMEOUT"
)

// Error is a typed tracking failure
type Error struct {
	Code    ErrorCode `json:"code"`
	Message string    `json:"message"`
	Cause   error     `json:"-"`
}

func (e *Error) Error() string {
	if e.Cause != nil {
		return string(e.Code) + ": " + e.Message + ": " + e.Cause.Error()
	}
	return string(e.Code) + ": " + e.Message
}

func (e *Error) Unwrap() error {
	return e.Cause
}

// NewError builds a typed tracking error
func NewError(code ErrorCode, message string) *Error {
	return &Error{Code: code, Message: message}
}

// WrapError builds a typed tracking error with an underlying cause attached
// for diagnostics.
func WrapError(code ErrorCode, message string, cause error) *Error {
	return &Error{Code: code, Message: message, Cause: cause}
}

// AsError extracts a typed tracking error, or wraps an arbitrary error as
// the given fallback code.
func AsError(err error, fallback ErrorCode) *Error {
	if terr, ok := err.(*Error); ok {
		return terr
	}
	return &Error{Code: fallback, Message: err.Error(), Cause: err}
}

// HTTPStatus maps an error code to the response status served to callers
func (c ErrorCode) HTTPStatus() int {
	switch c {
	case ErrInvalidTrackNumber, ErrInvalidIDType:
		return http.StatusBadRequest
	case ErrAuthMissing:
		return http.StatusInternalServerError
	case ErrOrderNotFound:
		return http.StatusNotFound
	case ErrCaptchaRequired, ErrPageBlocked:
		return http.StatusConflict
	case ErrRateLimit:
		return http.StatusTooManyRequests
	case ErrTimeout:
		return http.StatusGatewayTimeout
	case ErrAuthFailed, ErrUnauthorized, ErrAPIError, ErrPageLoadFailed, ErrPageLayoutChanged:
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// Retryable reports whether the caller may meaningfully retry later without
// operator intervention.
func (c ErrorCode) Retryable() bool {
	switch c {
	case ErrRateLimit, ErrTimeout, ErrPageLoadFailed, ErrAPIError:
		return true
	default:
		return false
	}
}
