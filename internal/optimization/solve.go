package optimization

import (
	"context"

	"github.com/mstokkenes/manopt/internal/manifold"
)

// Solver is the three-method protocol every concrete algorithm implements
// against the manifold capability interface. The solve loop supplies the
// third method, the stop check, through the state's stopping criterion.
type Solver interface {
	// Init performs algorithm-specific setup on the state, e.g. seeding
	// the best iterate. It runs exactly once, before the first step.
	Init(prob *Problem, s State) error

	// Step advances the state by one iteration. k counts from 1.
	Step(prob *Problem, s State, k int) error
}

// Result is what a finished solve hands back to the caller.
type Result struct {
	// X is a copy of the final iterate.
	X []float64
	// Cost is the objective value at X.
	Cost float64
	// Iterations is the number of steps taken.
	Iterations int
	// Reason is the stopping criterion's explanation.
	Reason string
}

// Solve drives the generic iterate/stop loop: Init, then Step until the
// state's stopping criterion triggers. Decorator hooks on the state run
// around every step, outermost-first on entry and innermost-first on exit.
//
// Errors from Init or Step abort the run and surface unchanged; debug and
// record output produced up to that point stays accessible on the decorated
// state. Cancelling ctx aborts between iterations with ctx.Err().
//
// The stopping criterion must be fresh (or Reset) for each invocation;
// criteria carry counters that would otherwise leak across runs.
func Solve(ctx context.Context, prob *Problem, s State, sol Solver) (*Result, error) {
	if err := sol.Init(prob, s); err != nil {
		return nil, err
	}

	stop := s.Stopping()
	observers := observerChain(s)

	k := 0
	for !stop.Done(prob, s, k) {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		default:
		}

		k++
		for _, o := range observers {
			o.BeforeStep(prob, s, k)
		}
		if err := sol.Step(prob, s, k); err != nil {
			return nil, err
		}
		for i := len(observers) - 1; i >= 0; i-- {
			observers[i].AfterStep(prob, s, k)
		}
	}

	x := manifold.CopyPoint(prob.Manifold(), Unwrap(s).Iterate())
	return &Result{
		X:          x,
		Cost:       prob.Cost(x),
		Iterations: k,
		Reason:     stop.Reason(),
	}, nil
}
