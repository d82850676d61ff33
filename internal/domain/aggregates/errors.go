package aggregates

import (
	"errors"
	"strings"
)

// ErrorCode is the outcome class every aggregate write reports. Services and transports
// branch on the code only.
type ErrorCode string

const (
	// CodeValidation is caller input the aggregate refuses to apply.
	CodeValidation ErrorCode = "validation"
	// CodeNotFound covers a missing aggregate and a child absent from the aggregate's own set.
	CodeNotFound ErrorCode = "not_found"
	// CodeConflict is an optimistic concurrency loss that survived the internal retries.
	CodeConflict ErrorCode = "conflict"
	// CodeCapacityExceeded wraps *enrollment.CapacityExceededError.
	CodeCapacityExceeded ErrorCode = "capacity_exceeded"
	// CodeDuplicateActive means the owner already holds an active aggregate.
	CodeDuplicateActive    ErrorCode = "duplicate_active"
	CodeInvariantViolation ErrorCode = "invariant_violation"
	CodePreconditionFailed ErrorCode = "precondition_failed"
	CodeRetryable          ErrorCode = "retryable"
	CodeInternal           ErrorCode = "internal"
)

// Retriable reports whether repeating the same request could succeed.
func (c ErrorCode) Retriable() bool {
	return c == CodeConflict || c == CodeRetryable
}

type Error struct {
	Code    ErrorCode
	Op      string
	Message string
	Cause   error
}

// Error renders "op: message (code)", leaving out whichever of op and message is empty.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	head := e.Op
	if e.Message != "" {
		head = strings.TrimPrefix(head+": "+e.Message, ": ")
	}
	if head == "" {
		return string(e.Code)
	}
	return head + " (" + string(e.Code) + ")"
}

func (e *Error) Unwrap() error { return e.Cause }

func NewError(code ErrorCode, op, message string, cause error) error {
	return &Error{
		Code:    code,
		Op:      strings.TrimSpace(op),
		Message: strings.TrimSpace(message),
		Cause:   cause,
	}
}

// Wrap classifies err under code, keeping err as the cause. Wrap(nil) is nil.
func Wrap(code ErrorCode, op string, err error) error {
	if err == nil {
		return nil
	}
	return NewError(code, op, err.Error(), err)
}

func IsCode(err error, code ErrorCode) bool {
	return CodeOf(err) == code
}

// CodeOf returns the code of the outermost *Error in err's chain, or "".
func CodeOf(err error) ErrorCode {
	var e *Error
	if !errors.As(err, &e) {
		return ""
	}
	return e.Code
}

func Retriable(err error) bool {
	return CodeOf(err).Retriable()
}
