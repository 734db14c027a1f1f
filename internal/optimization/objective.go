// Package optimization contains the generic solver framework: objectives
// and problems, solver states, composable stopping criteria, debug/record
// decorations and the solve loop that drives any solver implementing the
// three-method protocol against any manifold satisfying the capability
// interface.
package optimization

import (
	"github.com/mstokkenes/manopt/internal/manifold"
)

// CostFunc evaluates the objective at a point of m.
type CostFunc func(m manifold.Manifold, p []float64) float64

// VectorFunc writes a tangent vector at p (a gradient, subgradient or
// similar) into dst. The in-place convention is the primary one; allocating
// accessors wrap it.
type VectorFunc func(m manifold.Manifold, dst, p []float64)

// HessianFunc writes the Hessian of the objective at p applied to the
// tangent vector v into dst.
type HessianFunc func(m manifold.Manifold, dst, p, v []float64)

// ProxFunc writes the proximal map of the objective at p with parameter
// lambda into dst.
type ProxFunc func(m manifold.Manifold, dst, p []float64, lambda float64)

// Objective bundles the callables describing the function being optimized.
// Cost is mandatory; the remaining variants are optional and a nil entry
// means the capability is absent. Accessing an absent variant through a
// Problem yields a *manifold.NotImplementedError.
type Objective struct {
	Cost    CostFunc
	Grad    VectorFunc
	Hess    HessianFunc
	Subgrad VectorFunc
	Prox    ProxFunc
}

// Problem is the immutable pairing of a manifold and an objective. It is
// queried, never mutated, during a solve; the optional counters attached by
// EnableCounting are the single sanctioned exception.
type Problem struct {
	m      manifold.Manifold
	obj    Objective
	counts *Counters
}

// NewProblem pairs a manifold with an objective. It panics when the
// mandatory cost callable is missing, since no solver can run without one.
func NewProblem(m manifold.Manifold, obj Objective) *Problem {
	if obj.Cost == nil {
		panic("optimization: objective must provide a cost function")
	}
	return &Problem{m: m, obj: obj}
}

// Manifold returns the manifold the problem lives on.
func (p *Problem) Manifold() manifold.Manifold { return p.m }

// Cost evaluates the objective at x.
func (p *Problem) Cost(x []float64) float64 {
	if p.counts != nil {
		p.counts.Inc(CountCost)
	}
	return p.obj.Cost(p.m, x)
}

// HasGradient reports whether the objective carries a gradient.
func (p *Problem) HasGradient() bool { return p.obj.Grad != nil }

// Gradient writes the Riemannian gradient at x into dst.
func (p *Problem) Gradient(dst, x []float64) error {
	if p.obj.Grad == nil {
		return manifold.NewNotImplemented("Gradient")
	}
	if p.counts != nil {
		p.counts.Inc(CountGradient)
	}
	p.obj.Grad(p.m, dst, x)
	return nil
}

// GradientAlloc is the allocating variant of Gradient.
func (p *Problem) GradientAlloc(x []float64) ([]float64, error) {
	dst := manifold.NewVector(p.m)
	if err := p.Gradient(dst, x); err != nil {
		return nil, err
	}
	return dst, nil
}

// Hessian writes the Hessian at x applied to v into dst.
func (p *Problem) Hessian(dst, x, v []float64) error {
	if p.obj.Hess == nil {
		return manifold.NewNotImplemented("Hessian")
	}
	if p.counts != nil {
		p.counts.Inc(CountHessian)
	}
	p.obj.Hess(p.m, dst, x, v)
	return nil
}

// Subgradient writes a subgradient at x into dst.
func (p *Problem) Subgradient(dst, x []float64) error {
	if p.obj.Subgrad == nil {
		return manifold.NewNotImplemented("Subgradient")
	}
	if p.counts != nil {
		p.counts.Inc(CountSubgradient)
	}
	p.obj.Subgrad(p.m, dst, x)
	return nil
}

// Proximal writes the proximal map at x with parameter lambda into dst.
func (p *Problem) Proximal(dst, x []float64, lambda float64) error {
	if p.obj.Prox == nil {
		return manifold.NewNotImplemented("Proximal")
	}
	if p.counts != nil {
		p.counts.Inc(CountProximal)
	}
	p.obj.Prox(p.m, dst, x, lambda)
	return nil
}
