package optimization

import (
	"fmt"
	"io"
	"os"

	"github.com/mstokkenes/manopt/internal/manifold"
)

// DebugAction formats one aspect of the solve for the debug sink.
type DebugAction interface {
	Print(w io.Writer, prob *Problem, s State, k int)
}

// DebugState decorates a state with formatted text output at a fixed
// cadence. It forwards every state call to the inner state unchanged, so
// decoration never alters the numerics of a solve.
type DebugState struct {
	State

	// Every selects the cadence; actions fire on iterations divisible by
	// it (and on iteration zero, before the first step).
	Every int
	// Out is the sink, os.Stdout when nil.
	Out io.Writer
	// Actions run in order on each firing iteration.
	Actions []DebugAction
}

// NewDebugState decorates inner, printing every k-th iteration.
func NewDebugState(inner State, every int, out io.Writer, actions ...DebugAction) *DebugState {
	if every < 1 {
		every = 1
	}
	if out == nil {
		out = os.Stdout
	}
	return &DebugState{State: inner, Every: every, Out: out, Actions: actions}
}

// Inner exposes the decorated state.
func (d *DebugState) Inner() State { return d.State }

// BeforeStep prints the initial status once, before the first step.
func (d *DebugState) BeforeStep(prob *Problem, s State, k int) {
	if k == 1 {
		d.print(prob, s, 0)
	}
}

// AfterStep prints at the configured cadence.
func (d *DebugState) AfterStep(prob *Problem, s State, k int) {
	if k%d.Every == 0 {
		d.print(prob, s, k)
	}
}

func (d *DebugState) print(prob *Problem, s State, k int) {
	for _, a := range d.Actions {
		a.Print(d.Out, prob, s, k)
	}
	fmt.Fprintln(d.Out)
}

// DebugIteration prints the iteration number.
type DebugIteration struct{}

func (DebugIteration) Print(w io.Writer, prob *Problem, s State, k int) {
	if k == 0 {
		fmt.Fprint(w, "initial ")
		return
	}
	fmt.Fprintf(w, "# %-6d ", k)
}

// DebugCost prints the cost at the current iterate.
type DebugCost struct{}

func (DebugCost) Print(w io.Writer, prob *Problem, s State, k int) {
	fmt.Fprintf(w, "f(x): %.8f ", prob.Cost(Unwrap(s).Iterate()))
}

// DebugChange prints the distance between consecutive iterates.
type DebugChange struct {
	prev []float64
}

func (d *DebugChange) Print(w io.Writer, prob *Problem, s State, k int) {
	x := Unwrap(s).Iterate()
	if d.prev == nil {
		d.prev = manifold.CopyPoint(prob.Manifold(), x)
		return
	}
	fmt.Fprintf(w, "|Δx|: %.3e ", prob.Manifold().Dist(d.prev, x))
	copy(d.prev, x)
}

// DebugText prints a fixed divider or label.
type DebugText struct {
	Text string
}

func (d DebugText) Print(w io.Writer, prob *Problem, s State, k int) {
	fmt.Fprint(w, d.Text)
}
