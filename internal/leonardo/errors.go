package leonardo

import (
	"errors"
	"fmt"
	"time"
)

// ErrorKind categorizes client failures so callers can discriminate
// programmatically instead of matching message strings.
type ErrorKind int

const (
	// KindValidation indicates a request that failed local validation
	// before any network call (bad template name, incompatible fields).
	KindValidation ErrorKind = iota
	// KindAuth indicates a missing or rejected API key (HTTP 401).
	KindAuth
	// KindNotFound indicates the endpoint or resource does not exist (HTTP 404).
	KindNotFound
	// KindSubmission indicates the service accepted the request but the
	// response carried no job id.
	KindSubmission
	// KindJobFailed indicates the remote job reached the FAILED status.
	KindJobFailed
	// KindTimeout indicates a poll loop exhausted its wall-clock budget.
	KindTimeout
	// KindShape indicates a response that claims success but is missing
	// structurally required fields.
	KindShape
	// KindTransport indicates any other non-2xx response or malformed body.
	KindTransport
)

// String returns the kind's stable name, used in CLI output and logs.
func (k ErrorKind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindAuth:
		return "auth"
	case KindNotFound:
		return "not_found"
	case KindSubmission:
		return "submission"
	case KindJobFailed:
		return "job_failed"
	case KindTimeout:
		return "timeout"
	case KindShape:
		return "shape"
	case KindTransport:
		return "transport"
	default:
		return "unknown"
	}
}

// Error is the single error type produced by this package.
type Error struct {
	Kind    ErrorKind
	Message string

	// StatusCode and Body are set for transport-kind errors.
	StatusCode int
	Body       string

	// JobID is set for job-scoped failures (job failed, poll timeout).
	JobID string
	// Elapsed is set for timeout errors: wall-clock time spent polling.
	Elapsed time.Duration

	Err error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error {
	return e.Err
}

// Is makes two errors of the same kind match under errors.Is, so callers
// can compare against a bare &Error{Kind: …} sentinel.
func (e *Error) Is(target error) bool {
	t, ok := target.(*Error)
	return ok && t.Kind == e.Kind
}

// IsKind reports whether err is (or wraps) a client error of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Kind == kind
}

// validationErrorf builds a validation-kind error.
func validationErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindValidation, Message: fmt.Sprintf(format, args...)}
}

// submissionErrorf builds a submission-kind error.
func submissionErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindSubmission, Message: fmt.Sprintf(format, args...)}
}

// shapeErrorf builds a shape-kind error.
func shapeErrorf(format string, args ...any) *Error {
	return &Error{Kind: KindShape, Message: fmt.Sprintf(format, args...)}
}

// jobFailedError builds the terminal error for a job the service marked FAILED.
func jobFailedError(jobID string) *Error {
	return &Error{
		Kind:    KindJobFailed,
		Message: fmt.Sprintf("job %s failed", jobID),
		JobID:   jobID,
	}
}

// timeoutError builds the terminal error for an exhausted poll budget.
func timeoutError(jobID string, elapsed, timeout time.Duration) *Error {
	return &Error{
		Kind:    KindTimeout,
		Message: fmt.Sprintf("job %s did not complete within %s (waited %s)", jobID, timeout, elapsed.Round(time.Millisecond)),
		JobID:   jobID,
		Elapsed: elapsed,
	}
}

// classifyStatus maps a non-2xx HTTP response to the error taxonomy.
// endpoint is included for 404s so the message names what was missing.
func classifyStatus(statusCode int, endpoint, body string) *Error {
	switch statusCode {
	case 401:
		return &Error{
			Kind:       KindAuth,
			Message:    "unauthorized: check your API key",
			StatusCode: statusCode,
		}
	case 404:
		return &Error{
			Kind:       KindNotFound,
			Message:    fmt.Sprintf("not found: %s", endpoint),
			StatusCode: statusCode,
		}
	default:
		return &Error{
			Kind:       KindTransport,
			Message:    fmt.Sprintf("API request failed with status %d: %s", statusCode, truncate(body, 200)),
			StatusCode: statusCode,
			Body:       body,
		}
	}
}
