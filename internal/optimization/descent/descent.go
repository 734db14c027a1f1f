// Package descent implements Riemannian steepest descent with pluggable
// stepsize rules. Each iteration retracts the iterate along the negated
// gradient scaled by the stepsize.
package descent

import (
	"context"

	"github.com/mstokkenes/manopt/internal/manifold"
	"github.com/mstokkenes/manopt/internal/optimization"
)

const solverName = "gradient descent"

// Stepsize selects the scale applied to the descent direction at the
// current iterate.
type Stepsize interface {
	// Size returns the step along dir (a descent direction at x).
	Size(prob *optimization.Problem, x, dir []float64, k int) float64
}

// Constant is a fixed stepsize.
type Constant struct {
	Length float64
}

func (c Constant) Size(prob *optimization.Problem, x, dir []float64, k int) float64 {
	return c.Length
}

// Backtracking is the Armijo rule: starting from Initial, the candidate
// step is contracted until the retracted point achieves sufficient
// decrease. Retraction failures at a candidate simply contract further.
type Backtracking struct {
	// Initial is the first candidate step (default 1).
	Initial float64
	// Contraction is the shrink factor in (0, 1) (default 0.5).
	Contraction float64
	// Sufficient is the decrease parameter in (0, 1) (default 1e-4).
	Sufficient float64
	// MaxTrials bounds the number of contractions (default 25).
	MaxTrials int

	candidate []float64
}

func (b *Backtracking) Size(prob *optimization.Problem, x, dir []float64, k int) float64 {
	initial, contraction, sufficient, maxTrials := b.Initial, b.Contraction, b.Sufficient, b.MaxTrials
	if initial <= 0 {
		initial = 1
	}
	if contraction <= 0 || contraction >= 1 {
		contraction = 0.5
	}
	if sufficient <= 0 || sufficient >= 1 {
		sufficient = 1e-4
	}
	if maxTrials < 1 {
		maxTrials = 25
	}

	m := prob.Manifold()
	if b.candidate == nil {
		b.candidate = manifold.NewPoint(m)
	}
	f0 := prob.Cost(x)
	// dir is the negated gradient, so <grad, dir> = -|dir|^2.
	slope := -m.Inner(x, dir, dir)

	step := initial
	for trial := 0; trial < maxTrials; trial++ {
		if err := m.Retract(b.candidate, x, scaled(dir, step), manifold.DefaultRetraction); err == nil {
			if prob.Cost(b.candidate) <= f0+sufficient*step*slope {
				return step
			}
		}
		step *= contraction
	}
	return step
}

func scaled(v []float64, s float64) []float64 {
	out := make([]float64, len(v))
	for i, vi := range v {
		out[i] = s * vi
	}
	return out
}

// Config contains the hyperparameters of a descent run.
type Config struct {
	// Step is the stepsize rule, Armijo backtracking when nil.
	Step Stepsize
	// Retraction selects the position update method; the zero value is
	// the manifold's default.
	Retraction manifold.Retraction
	// Stopping overrides the default criterion: 1000 iterations or
	// gradient norm below 1e-8.
	Stopping optimization.StoppingCriterion
}

// State is the descent iterate plus its working buffers.
type State struct {
	// X is the current iterate.
	X []float64

	grad, dir []float64
	stop      optimization.StoppingCriterion
}

// NewState builds a descent state starting at x0 (copied).
func NewState(m manifold.Manifold, cfg Config, x0 []float64) *State {
	stop := cfg.Stopping
	if stop == nil {
		stop = optimization.Or(
			optimization.NewStopAfterIteration(1000),
			optimization.NewStopWhenGradientNormLess(1e-8),
		)
	}
	return &State{
		X:    manifold.CopyPoint(m, x0),
		grad: manifold.NewVector(m),
		dir:  manifold.NewVector(m),
		stop: stop,
	}
}

// Iterate returns the current iterate.
func (s *State) Iterate() []float64 { return s.X }

// Stopping returns the termination criterion.
func (s *State) Stopping() optimization.StoppingCriterion { return s.stop }

// GradientDescent is the solver. It requires a gradient-capable objective
// and a retraction.
type GradientDescent struct {
	cfg Config
}

// New creates a gradient descent solver.
func New(cfg Config) *GradientDescent {
	if cfg.Step == nil {
		cfg.Step = &Backtracking{}
	}
	return &GradientDescent{cfg: cfg}
}

// Init verifies the objective carries a gradient.
func (gd *GradientDescent) Init(prob *optimization.Problem, st optimization.State) error {
	if _, err := stateOf(st); err != nil {
		return err
	}
	if !prob.HasGradient() {
		return optimization.WrapError(manifold.NewNotImplemented("Gradient"), "objective has no gradient").
			WithSolver(solverName)
	}
	return nil
}

// Step retracts the iterate along the negated gradient scaled by the
// stepsize rule.
func (gd *GradientDescent) Step(prob *optimization.Problem, st optimization.State, k int) error {
	s, err := stateOf(st)
	if err != nil {
		return err
	}
	m := prob.Manifold()
	if err := prob.Gradient(s.grad, s.X); err != nil {
		return optimization.WrapError(err, "gradient evaluation").WithSolver(solverName).WithOp("Gradient")
	}
	for i, g := range s.grad {
		s.dir[i] = -g
	}
	step := gd.cfg.Step.Size(prob, s.X, s.dir, k)
	for i := range s.dir {
		s.dir[i] *= step
	}
	if err := m.Retract(s.X, s.X, s.dir, gd.cfg.Retraction); err != nil {
		return optimization.WrapError(err, "iterate update").WithSolver(solverName).WithOp("Retract")
	}
	return nil
}

func stateOf(st optimization.State) (*State, error) {
	s, ok := optimization.Unwrap(st).(*State)
	if !ok {
		return nil, optimization.NewError("state is not a descent state").WithSolver(solverName)
	}
	return s, nil
}

// Minimize runs gradient descent from x0 and returns the final iterate.
func Minimize(ctx context.Context, m manifold.Manifold, obj optimization.Objective, x0 []float64, cfg Config) (*optimization.Result, error) {
	prob := optimization.NewProblem(m, obj)
	st := NewState(m, cfg, x0)
	return optimization.Solve(ctx, prob, st, New(cfg))
}
