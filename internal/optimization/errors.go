package optimization

import "fmt"

// Error carries the context of a failed solver run: which solver, which
// geometric or objective operation, and the underlying cause. Failures are
// never retried; they surface synchronously to the caller of Solve.
type Error struct {
	// Message describes the failure.
	Message string
	// Solver names the algorithm that was running.
	Solver string
	// Op is the operation that failed, e.g. "InverseRetract".
	Op string
	// Err is the underlying error, if any.
	Err error
}

// Error returns the string representation of the error.
func (e *Error) Error() string {
	if e == nil {
		return "<nil>"
	}
	var prefix string
	switch {
	case e.Solver != "" && e.Op != "":
		prefix = fmt.Sprintf("%s: %s", e.Solver, e.Op)
	case e.Solver != "":
		prefix = e.Solver
	case e.Op != "":
		prefix = e.Op
	}

	if e.Err != nil {
		if prefix != "" {
			return fmt.Sprintf("%s: %s: %v", prefix, e.Message, e.Err)
		}
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	if prefix != "" {
		return fmt.Sprintf("%s: %s", prefix, e.Message)
	}
	return e.Message
}

// Unwrap returns the underlying error, if any.
func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// WithSolver adds the solver name to the error.
func (e *Error) WithSolver(name string) *Error {
	e.Solver = name
	return e
}

// WithOp adds the failing operation to the error.
func (e *Error) WithOp(op string) *Error {
	e.Op = op
	return e
}

// NewError creates a new solver error with the given message.
func NewError(message string) *Error {
	return &Error{Message: message}
}

// WrapError wraps an underlying error with solver context. It returns nil
// when err is nil.
func WrapError(err error, message string) *Error {
	if err == nil {
		return nil
	}
	return &Error{Message: message, Err: err}
}
