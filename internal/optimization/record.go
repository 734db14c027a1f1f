package optimization

import (
	"github.com/mstokkenes/manopt/internal/manifold"
)

// RecordAction observes the state once per recorded iteration and appends
// to an in-memory sequence, unbounded, one slot per recorded iteration.
type RecordAction interface {
	Record(prob *Problem, s State, k int)
}

// RecordState decorates a state with named record actions running after
// every Every-th step. Recorded sequences stay retrievable after the solve
// returns, including after an aborted run.
type RecordState struct {
	State

	Every   int
	actions map[string]RecordAction
	order   []string
}

// NewRecordState decorates inner with the given named actions, recording
// every k-th iteration.
func NewRecordState(inner State, every int, actions map[string]RecordAction) *RecordState {
	if every < 1 {
		every = 1
	}
	r := &RecordState{State: inner, Every: every, actions: actions}
	for name := range actions {
		r.order = append(r.order, name)
	}
	return r
}

// Inner exposes the decorated state.
func (r *RecordState) Inner() State { return r.State }

// BeforeStep implements StepObserver; recording happens after steps only.
func (r *RecordState) BeforeStep(prob *Problem, s State, k int) {}

// AfterStep runs every action at the configured cadence.
func (r *RecordState) AfterStep(prob *Problem, s State, k int) {
	if k%r.Every != 0 {
		return
	}
	for _, name := range r.order {
		r.actions[name].Record(prob, s, k)
	}
}

// Action returns the named record action for retrieval after the solve,
// nil when absent.
func (r *RecordState) Action(name string) RecordAction {
	return r.actions[name]
}

// RecordCost records the cost at the current iterate.
type RecordCost struct {
	Values []float64
}

func (a *RecordCost) Record(prob *Problem, s State, k int) {
	a.Values = append(a.Values, prob.Cost(Unwrap(s).Iterate()))
}

// RecordIteration records the iteration numbers that fired.
type RecordIteration struct {
	Values []int
}

func (a *RecordIteration) Record(prob *Problem, s State, k int) {
	a.Values = append(a.Values, k)
}

// RecordChange records the distance between consecutive iterates.
type RecordChange struct {
	Values []float64
	prev   []float64
}

func (a *RecordChange) Record(prob *Problem, s State, k int) {
	x := Unwrap(s).Iterate()
	if a.prev == nil {
		a.prev = manifold.CopyPoint(prob.Manifold(), x)
		a.Values = append(a.Values, 0)
		return
	}
	a.Values = append(a.Values, prob.Manifold().Dist(a.prev, x))
	copy(a.prev, x)
}

// RecordIterate records a copy of the iterate itself.
type RecordIterate struct {
	Values [][]float64
}

func (a *RecordIterate) Record(prob *Problem, s State, k int) {
	a.Values = append(a.Values, manifold.CopyPoint(prob.Manifold(), Unwrap(s).Iterate()))
}
