package penalty

import "fmt"

// Kind classifies an execution failure.
type Kind string

const (
	KindInsufficientForfeitable Kind = "INSUFFICIENT_FORFEITABLE"
	KindTransferFailed          Kind = "TRANSFER_FAILED"
	KindRollbackFailed          Kind = "ROLLBACK_FAILED"
	KindConcurrentUpdate        Kind = "CONCURRENT_UPDATE" // sub-pool changed by another process; nothing written
)

// ExecError is returned by Execute for failures after validation passed.
// No receipt accompanies an ExecError.
type ExecError struct {
	Kind        Kind
	Cause       error
	RollbackErr error // set only for KindRollbackFailed
	retryable   bool
}

// Sentinels for errors.Is matching by kind.
var (
	ErrInsufficientForfeitable = &ExecError{Kind: KindInsufficientForfeitable}
	ErrTransferFailed          = &ExecError{Kind: KindTransferFailed}
	ErrRollbackFailed          = &ExecError{Kind: KindRollbackFailed}
	ErrConcurrentUpdate        = &ExecError{Kind: KindConcurrentUpdate}
)

func (e *ExecError) Error() string {
	msg := "penalty: " + string(e.Kind)
	if e.Cause != nil {
		msg += ": " + e.Cause.Error()
	}
	if e.RollbackErr != nil {
		msg += fmt.Sprintf(" (rollback: %v)", e.RollbackErr)
	}
	return msg
}

// Is matches any *ExecError with the same Kind.
func (e *ExecError) Is(target error) bool {
	t, ok := target.(*ExecError)
	return ok && t.Kind == e.Kind
}

// Unwrap exposes both the transfer cause and the rollback failure.
func (e *ExecError) Unwrap() []error {
	errs := make([]error, 0, 2)
	if e.Cause != nil {
		errs = append(errs, e.Cause)
	}
	if e.RollbackErr != nil {
		errs = append(errs, e.RollbackErr)
	}
	return errs
}

// Retryable reports whether the same request may succeed if resubmitted.
// Transfer failures with a transient cause are retryable, as the reserved
// state has been rolled back. Concurrent updates are retryable as nothing
// was written.
func (e *ExecError) Retryable() bool {
	return e.retryable
}
