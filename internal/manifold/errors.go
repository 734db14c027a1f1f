package manifold

import "fmt"

// NotImplementedError reports an operation the concrete manifold (or
// objective variant) does not support. It surfaces immediately to the
// caller; a solve that hits one aborts.
type NotImplementedError struct {
	// Manifold names the manifold the operation was requested on, when known.
	Manifold string
	// Op is the missing operation, e.g. "Log" or "Retract(projection)".
	Op string
}

func (e *NotImplementedError) Error() string {
	if e.Manifold == "" {
		return fmt.Sprintf("manifold: %s is not implemented", e.Op)
	}
	return fmt.Sprintf("manifold: %s does not implement %s", e.Manifold, e.Op)
}

// NewNotImplemented creates a NotImplementedError for an operation without
// an associated manifold, e.g. a missing objective variant.
func NewNotImplemented(op string) *NotImplementedError {
	return &NotImplementedError{Op: op}
}

func notImplemented(m Manifold, op string) *NotImplementedError {
	return &NotImplementedError{Manifold: m.Name(), Op: op}
}

// ValidationError reports a point or tangent vector that failed explicit
// membership validation. It is only produced by the opt-in Checker
// capability; default call paths trust their inputs.
type ValidationError struct {
	Manifold string
	// Kind is "point" or "vector".
	Kind   string
	Reason string
	Value  []float64
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("manifold: %v is not a valid %s on %s: %s",
		e.Value, e.Kind, e.Manifold, e.Reason)
}

// BaseMismatchError reports an attempt to combine two checked tangent
// vectors attached to different base points. The combination is a logic
// error and the call fails without touching either operand.
type BaseMismatchError struct {
	Op string
}

func (e *BaseMismatchError) Error() string {
	return fmt.Sprintf("manifold: %s: tangent vectors have different base points", e.Op)
}

// DomainError reports a geometric operation evaluated outside its domain,
// e.g. the logarithmic map at the cut locus.
type DomainError struct {
	Manifold string
	Op       string
	Reason   string
}

func (e *DomainError) Error() string {
	return fmt.Sprintf("manifold: %s: %s: %s", e.Manifold, e.Op, e.Reason)
}
