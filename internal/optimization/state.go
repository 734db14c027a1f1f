package optimization

// State is the mutable, algorithm-specific record a solver iterates on.
// Concrete states own their working points exclusively and are constructed
// fully initialized; they live for exactly one solve call.
type State interface {
	// Iterate returns the current best point. The returned slice is owned
	// by the state and must be copied before the next step if kept.
	Iterate() []float64

	// Stopping returns the criterion deciding termination. A criterion
	// carries counters of its own and must be fresh per solve invocation.
	Stopping() StoppingCriterion
}

// Wrapper is implemented by decorating states that nest another state.
// Undeclared calls forward mechanically through embedding; Inner exposes
// the nesting so the solve loop and the solvers can reach through it.
type Wrapper interface {
	Inner() State
}

// Unwrap walks the decorator chain and returns the innermost state, which
// is the solver's concrete state type.
func Unwrap(s State) State {
	for {
		w, ok := s.(Wrapper)
		if !ok {
			return s
		}
		s = w.Inner()
	}
}

// StepObserver is implemented by decorators that intercept the solve loop
// around each step. Observers run outermost-first before a step and
// innermost-first after it, the standard decorator composition order.
type StepObserver interface {
	BeforeStep(prob *Problem, s State, k int)
	AfterStep(prob *Problem, s State, k int)
}

// observerChain collects the observers on the decorator chain from the
// outside in.
func observerChain(s State) []StepObserver {
	var obs []StepObserver
	for {
		if o, ok := s.(StepObserver); ok {
			obs = append(obs, o)
		}
		w, ok := s.(Wrapper)
		if !ok {
			return obs
		}
		s = w.Inner()
	}
}
