package usecase

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	crerr "github.com/cockroachdb/errors"
)

var (
	ErrInvalidInput          = crerr.New("invalid input")
	ErrNotFound              = crerr.New("resource not found")
	ErrInvalidPayload        = crerr.New("invalid upstream payload")
	ErrDependencyUnavailable = crerr.New("dependency unavailable")

	// ErrPointerMissing means the pointer document does not exist.
	ErrPointerMissing = crerr.Wrap(ErrNotFound, "no active match found")
	// ErrPointerEmpty means the pointer document exists but names no match.
	ErrPointerEmpty = crerr.Wrap(ErrNotFound, "no match id found")
)

const (
	CodeInvalidMatchID = "INVALID_MATCH_ID"
	CodeNoData         = "NO_DATA"
	CodeInvalidData    = "INVALID_DATA"
	CodeFetchError     = "FETCH_ERROR"
	CodeTimeout        = "TIMEOUT"
	CodeUnknown        = "UNKNOWN_ERROR"
)

// InvalidInputError rejects a caller-supplied value before any I/O happens.
type InvalidInputError struct {
	Field   string
	Message string
}

func (e *InvalidInputError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func (e *InvalidInputError) Code() string { return CodeInvalidMatchID }
func (e *InvalidInputError) Status() int { return http.StatusBadRequest }
func (e *InvalidInputError) Unwrap() error { return ErrInvalidInput }

// ValidationError is raised by the normalizer when a payload is unusable.
type ValidationError struct {
	Code    string
	Message string
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Status() int { return http.StatusInternalServerError }
func (e *ValidationError) Unwrap() error { return ErrInvalidPayload }

// UpstreamError reports a failed fetch. Status and Code come from the last
// failed attempt.
type UpstreamError struct {
	Status  int
	Code    string
	Message string
	Err     error
}

func (e *UpstreamError) Error() string {
	msg := e.Message
	switch {
	case msg == "" && e.Err != nil:
		msg = e.Err.Error()
	case e.Err != nil:
		msg += ": " + e.Err.Error()
	}
	if e.Code == "" {
		return msg
	}
	return fmt.Sprintf("%s (%s, status %d)", msg, e.Code, e.Status)
}

func (e *UpstreamError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrDependencyUnavailable}
	}
	return []error{ErrDependencyUnavailable, e.Err}
}

// Transient reports whether another attempt could plausibly succeed.
func (e *UpstreamError) Transient() bool {
	switch {
	case e.Code == CodeFetchError, e.Code == CodeTimeout:
		return true
	case e.Status == http.StatusTooManyRequests, e.Status >= http.StatusInternalServerError:
		return true
	default:
		return false
	}
}

func invalidMatchID(raw string) error {
	if raw == "" {
		return &InvalidInputError{Field: "matchId", Message: "match id is required"}
	}
	return &InvalidInputError{Field: "matchId", Message: fmt.Sprintf("match id %q is blank", raw)}
}

// asUpstreamError converts the last attempt error into the error surfaced to callers.
func asUpstreamError(err error) *UpstreamError {
	if err == nil {
		return nil
	}

	var upstream *UpstreamError
	if errors.As(err, &upstream) {
		return upstream
	}

	var validation *ValidationError
	if errors.As(err, &validation) {
		return &UpstreamError{
			Status:  validation.Status(),
			Code:    validation.Code,
			Message: validation.Message,
			Err:     err,
		}
	}

	switch {
	case errors.Is(err, context.DeadlineExceeded):
		return &UpstreamError{Status: http.StatusGatewayTimeout, Code: CodeTimeout, Message: "upstream request timed out", Err: err}
	case errors.Is(err, context.Canceled):
		return &UpstreamError{Status: http.StatusServiceUnavailable, Code: CodeUnknown, Message: "fetch cancelled", Err: err}
	default:
		return &UpstreamError{Status: http.StatusInternalServerError, Code: CodeUnknown, Message: err.Error(), Err: err}
	}
}
