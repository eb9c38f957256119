package engine

import (
	"errors"
	"fmt"
)

// ErrorClass encodes how a failure propagates: whether the operation may be
// retried, must abort, or merely lost one candidate. The retry-versus-abort
// distinction lives in the type rather than in control flow.
type ErrorClass string

const (
	// ErrorClassCandidate covers failures isolated to a single candidate
	// plan. These never escape the trial while another candidate survives;
	// the class surfaces only as a total failure once every plan is gone.
	ErrorClassCandidate ErrorClass = "candidate"

	// ErrorClassConflict is a transient concurrency conflict. The caller is
	// expected to retry the entire operation, not any single round.
	ErrorClassConflict ErrorClass = "conflict"

	// ErrorClassInterrupt is a non-recoverable condition from the yield
	// policy, such as the operation being killed. Propagated immediately,
	// never retried internally.
	ErrorClassInterrupt ErrorClass = "interrupt"

	// ErrorClassInternal is a programming or invariant error.
	ErrorClassInternal ErrorClass = "internal"
)

// EngineError is a classified error with trial context.
// nolint:revive // EngineError is intentionally named to distinguish from standard errors
type EngineError struct {
	// Class is the error classification for retry logic.
	Class ErrorClass `json:"class"`

	// Message is the human-readable error message.
	Message string `json:"message"`

	// Code is an optional error code for programmatic handling.
	Code string `json:"code,omitempty"`

	// Plan is the plan summary of the candidate involved, if any.
	Plan string `json:"plan,omitempty"`

	// Err is the underlying error that caused this error.
	Err error `json:"-"`
}

// Error implements the error interface.
func (e *EngineError) Error() string {
	if e.Plan != "" {
		return fmt.Sprintf("[%s] %s (plan=%s): %s", e.Class, e.Message, e.Plan, e.unwrapMessage())
	}
	return fmt.Sprintf("[%s] %s: %s", e.Class, e.Message, e.unwrapMessage())
}

// Unwrap returns the underlying error for error chain inspection.
func (e *EngineError) Unwrap() error {
	return e.Err
}

func (e *EngineError) unwrapMessage() string {
	if e.Err != nil {
		return e.Err.Error()
	}
	return ""
}

// Is implements error equality checking for errors.Is.
func (e *EngineError) Is(target error) bool {
	t, ok := target.(*EngineError)
	if !ok {
		return false
	}
	return e.Class == t.Class && e.Code == t.Code
}

// NewCandidateError creates an error for a single candidate's failure.
func NewCandidateError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassCandidate, Message: message, Err: err}
}

// NewConflictError creates a retryable concurrency-conflict error.
func NewConflictError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassConflict, Message: message, Err: err}
}

// NewInterruptError creates a fatal interrupt error.
func NewInterruptError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassInterrupt, Message: message, Err: err}
}

// NewInternalError creates an invariant-violation error.
func NewInternalError(message string, err error) *EngineError {
	return &EngineError{Class: ErrorClassInternal, Message: message, Err: err}
}

// WithCode adds an error code to an error.
func (e *EngineError) WithCode(code string) *EngineError {
	e.Code = code
	return e
}

// WithPlan adds plan context to an error.
func (e *EngineError) WithPlan(summary string) *EngineError {
	e.Plan = summary
	return e
}

// IsConflict returns true if the error is classified as a conflict.
func IsConflict(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassConflict
	}
	return false
}

// IsInterrupt returns true if the error is classified as an interrupt.
func IsInterrupt(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassInterrupt
	}
	return false
}

// IsCandidateFailure returns true if the error is classified as a candidate
// failure, including a total failure of all candidates.
func IsCandidateFailure(err error) bool {
	var e *EngineError
	if errors.As(err, &e) {
		return e.Class == ErrorClassCandidate
	}
	return false
}

// IsRetryable returns true if the whole operation can be retried.
// Only conflicts are retryable; interrupts and candidate failures are final.
func IsRetryable(err error) bool {
	return IsConflict(err)
}

// Common error codes.
const (
	ErrCodeValidation     = "VALIDATION_ERROR"
	ErrCodeNoCandidates   = "NO_CANDIDATES"
	ErrCodeNoWinner       = "NO_WINNER"
	ErrCodeAllPlansFailed = "ALL_PLANS_FAILED"
	ErrCodeInterrupted    = "INTERRUPTED"
	ErrCodeWriteConflict  = "WRITE_CONFLICT"
	ErrCodeExhausted      = "EXHAUSTED"
	ErrCodeScorerFailed   = "SCORER_FAILED"
	ErrCodeInternal       = "INTERNAL_ERROR"
)
