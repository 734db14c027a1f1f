package descent

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mstokkenes/manopt/internal/manifold"
	"github.com/mstokkenes/manopt/internal/optimization"
	"github.com/mstokkenes/manopt/internal/optimization/objectives"
)

func quadratic() optimization.Objective {
	return optimization.Objective{
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
	}
}

func TestDescentEuclideanConstantStep(t *testing.T) {
	m := manifold.NewEuclidean(2)
	// With step 0.25 the quadratic contracts by exactly one half per
	// iteration, so the gradient norm criterion fires quickly.
	cfg := Config{Step: Constant{Length: 0.25}}

	res, err := Minimize(context.Background(), m, quadratic(), []float64{4, -2}, cfg)
	require.NoError(t, err)
	assert.Less(t, res.Cost, 1e-15)
	assert.Contains(t, res.Reason, "gradient norm")
}

func TestDescentEuclideanBacktracking(t *testing.T) {
	m := manifold.NewEuclidean(3)
	cfg := Config{} // Armijo backtracking by default

	res, err := Minimize(context.Background(), m, quadratic(), []float64{1, 2, 3}, cfg)
	require.NoError(t, err)
	assert.Less(t, res.Cost, 1e-12)
}

func TestDescentSphereSquaredDistance(t *testing.T) {
	m := manifold.NewSphere(3)
	target := []float64{0, 0, 1}
	obj := objectives.SquaredDistance(m, target)

	x0 := []float64{1, 0, 0}
	res, err := Minimize(context.Background(), m, obj, x0, Config{})
	require.NoError(t, err)
	assert.Less(t, m.Dist(res.X, target), 1e-6)
}

func TestDescentRequiresGradient(t *testing.T) {
	m := manifold.NewEuclidean(1)
	obj := optimization.Objective{
		Cost: func(m manifold.Manifold, p []float64) float64 { return p[0] },
	}

	_, err := Minimize(context.Background(), m, obj, []float64{0}, Config{})
	require.Error(t, err)
	var serr *optimization.Error
	require.ErrorAs(t, err, &serr)
	var ni *manifold.NotImplementedError
	assert.ErrorAs(t, err, &ni)
}

func TestDescentStateIsolatesStart(t *testing.T) {
	m := manifold.NewEuclidean(1)
	x0 := []float64{10}
	s := NewState(m, Config{}, x0)

	s.X[0] = -1
	assert.Equal(t, 10.0, x0[0])
}

func TestBacktrackingAcceptsFullStepOnExactFit(t *testing.T) {
	m := manifold.NewSphere(3)
	target := []float64{0, 1, 0}
	obj := objectives.SquaredDistance(m, target)
	prob := optimization.NewProblem(m, obj)

	// The negated gradient of half the squared distance is exactly the
	// logarithmic map towards the target; a unit step lands on it.
	x := []float64{1, 0, 0}
	dir, err := prob.GradientAlloc(x)
	require.NoError(t, err)
	for i := range dir {
		dir[i] = -dir[i]
	}

	b := &Backtracking{}
	step := b.Size(prob, x, dir, 1)
	assert.InDelta(t, 1, step, 1e-12)
}

func TestConstantStepsize(t *testing.T) {
	c := Constant{Length: 0.1}
	assert.InDelta(t, 0.1, c.Size(nil, nil, nil, 3), 1e-15)
}

func TestDescentRejectsForeignState(t *testing.T) {
	m := manifold.NewEuclidean(1)
	prob := optimization.NewProblem(m, quadratic())

	err := New(Config{}).Init(prob, foreignState{})
	require.Error(t, err)
	err = New(Config{}).Step(prob, foreignState{}, 1)
	require.Error(t, err)
}

type foreignState struct{}

func (foreignState) Iterate() []float64                       { return nil }
func (foreignState) Stopping() optimization.StoppingCriterion { return nil }

func TestDescentDefaultStoppingBounds(t *testing.T) {
	// A pure translation objective never satisfies the gradient criterion,
	// so the iteration bound must stop the run.
	m := manifold.NewEuclidean(1)
	obj := optimization.Objective{
		Cost: func(m manifold.Manifold, p []float64) float64 { return p[0] },
		Grad: func(m manifold.Manifold, dst, p []float64) { dst[0] = 1 },
	}

	res, err := Minimize(context.Background(), m, obj, []float64{0}, Config{Step: Constant{Length: 1}})
	require.NoError(t, err)
	assert.Equal(t, 1000, res.Iterations)
	assert.Less(t, res.Cost, -999.0)
	assert.Contains(t, res.Reason, "iterations")
}

func TestDescentConvergesTowardMinimumEigenvector(t *testing.T) {
	// Rayleigh quotient on the circle: minimizer is the eigenvector of the
	// smaller eigenvalue.
	m := manifold.NewSphere(2)
	a := mat.NewSymDense(2, []float64{1, 0, 0, 2})
	obj := objectives.Rayleigh(a)
	inv := math.Sqrt2 / 2

	cfg := Config{Step: Constant{Length: 0.25}}
	res, err := Minimize(context.Background(), m, obj, []float64{inv, inv}, cfg)
	require.NoError(t, err)
	assert.InDelta(t, 1, res.Cost, 1e-6)
	assert.InDelta(t, 1, math.Abs(res.X[0]), 1e-4)
}
