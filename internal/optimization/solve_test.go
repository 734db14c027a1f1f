package optimization

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mstokkenes/manopt/internal/manifold"
)

// halvingState and halvingSolver form a minimal deterministic solver used to
// exercise the solve loop: every step halves each coordinate of the iterate.
type halvingState struct {
	x    []float64
	stop StoppingCriterion
}

func (s *halvingState) Iterate() []float64          { return s.x }
func (s *halvingState) Stopping() StoppingCriterion { return s.stop }

type halvingSolver struct {
	initCalls int
	stepErr   error
	initErr   error
}

func (h *halvingSolver) Init(prob *Problem, s State) error {
	h.initCalls++
	return h.initErr
}

func (h *halvingSolver) Step(prob *Problem, s State, k int) error {
	if h.stepErr != nil {
		return h.stepErr
	}
	x := Unwrap(s).Iterate()
	for i := range x {
		x[i] /= 2
	}
	return nil
}

func quadraticProblem(n int) *Problem {
	return NewProblem(manifold.NewEuclidean(n), Objective{
		Cost: func(m manifold.Manifold, p []float64) float64 {
			var sum float64
			for _, pi := range p {
				sum += pi * pi
			}
			return sum
		},
		Grad: func(m manifold.Manifold, dst, p []float64) {
			for i, pi := range p {
				dst[i] = 2 * pi
			}
		},
	})
}

func TestSolveRunsUntilCriterion(t *testing.T) {
	prob := quadraticProblem(2)
	s := &halvingState{x: []float64{32, 64}, stop: NewStopAfterIteration(5)}
	sol := &halvingSolver{}

	res, err := Solve(context.Background(), prob, s, sol)
	require.NoError(t, err)

	assert.Equal(t, 1, sol.initCalls)
	assert.Equal(t, 5, res.Iterations)
	assert.Equal(t, []float64{1, 2}, res.X)
	assert.InDelta(t, 5, res.Cost, 1e-12)
	assert.Contains(t, res.Reason, "maximal number of iterations")
}

func TestSolveResultIsACopy(t *testing.T) {
	prob := quadraticProblem(1)
	s := &halvingState{x: []float64{8}, stop: NewStopAfterIteration(1)}

	res, err := Solve(context.Background(), prob, s, &halvingSolver{})
	require.NoError(t, err)

	res.X[0] = -99
	assert.Equal(t, []float64{4}, s.x)
}

func TestSolveContextCancellation(t *testing.T) {
	prob := quadraticProblem(1)
	s := &halvingState{x: []float64{1}, stop: NewStopAfterIteration(1000)}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := Solve(ctx, prob, s, &halvingSolver{})
	assert.ErrorIs(t, err, context.Canceled)
}

func TestSolveSurfacesInitAndStepErrors(t *testing.T) {
	prob := quadraticProblem(1)
	boom := errors.New("boom")

	s := &halvingState{x: []float64{1}, stop: NewStopAfterIteration(3)}
	_, err := Solve(context.Background(), prob, s, &halvingSolver{initErr: boom})
	assert.ErrorIs(t, err, boom)

	s = &halvingState{x: []float64{1}, stop: NewStopAfterIteration(3)}
	_, err = Solve(context.Background(), prob, s, &halvingSolver{stepErr: boom})
	assert.ErrorIs(t, err, boom)
}

// loggingObserver is a decorating state that records the hook order.
type loggingObserver struct {
	State
	name string
	log  *[]string
}

func (o *loggingObserver) Inner() State { return o.State }

func (o *loggingObserver) BeforeStep(prob *Problem, s State, k int) {
	*o.log = append(*o.log, o.name+"-before")
}

func (o *loggingObserver) AfterStep(prob *Problem, s State, k int) {
	*o.log = append(*o.log, o.name+"-after")
}

func TestSolveObserverOrder(t *testing.T) {
	prob := quadraticProblem(1)
	inner := &halvingState{x: []float64{2}, stop: NewStopAfterIteration(1)}

	var log []string
	wrapped := &loggingObserver{State: inner, name: "inner", log: &log}
	outer := &loggingObserver{State: wrapped, name: "outer", log: &log}

	_, err := Solve(context.Background(), prob, outer, &halvingSolver{})
	require.NoError(t, err)

	assert.Equal(t, []string{
		"outer-before", "inner-before",
		"inner-after", "outer-after",
	}, log)
}

func TestUnwrapReachesInnermostState(t *testing.T) {
	inner := &halvingState{x: []float64{1}, stop: NewStopAfterIteration(1)}
	var log []string
	outer := &loggingObserver{State: &loggingObserver{State: inner, name: "a", log: &log}, name: "b", log: &log}

	assert.Same(t, State(inner), Unwrap(outer))
	assert.Same(t, State(inner), Unwrap(inner))
}
