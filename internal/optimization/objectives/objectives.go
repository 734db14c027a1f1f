// Package objectives provides named, parameterized cost functions used by
// the tests and the solve service: squared geodesic distance to a target
// point, the Rayleigh quotient on the sphere and a log-det barrier on the
// SPD manifold.
package objectives

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
	"gonum.org/v1/gonum/mat"

	"github.com/mstokkenes/manopt/internal/manifold"
	"github.com/mstokkenes/manopt/internal/optimization"
)

// SquaredDistance is half the squared geodesic distance to a fixed target.
// When the manifold carries an exact logarithmic map the Riemannian
// gradient -Log_p(target) is attached as well.
func SquaredDistance(m manifold.Manifold, target []float64) optimization.Objective {
	t := manifold.CopyPoint(m, target)
	obj := optimization.Objective{
		Cost: func(m manifold.Manifold, p []float64) float64 {
			d := m.Dist(p, t)
			return 0.5 * d * d
		},
	}
	if _, ok := m.(manifold.Geodesic); ok {
		obj.Grad = func(m manifold.Manifold, dst, p []float64) {
			if err := manifold.Log(m, dst, p, t); err != nil {
				// Cut locus: no descent direction is defined there.
				m.ZeroVector(dst, p)
				return
			}
			for i := range dst {
				dst[i] = -dst[i]
			}
		}
	}
	return obj
}

// Rayleigh is the Rayleigh quotient p^T A p on the unit sphere, whose
// minimizer is the eigenvector of the smallest eigenvalue of A. The
// Riemannian gradient is the projected Euclidean gradient 2Ap.
func Rayleigh(a *mat.SymDense) optimization.Objective {
	n := a.SymmetricDim()
	// The product Ap is allocated per call so Cost and Grad stay safe for
	// concurrent particle updates.
	mulSym := func(p []float64) []float64 {
		ap := make([]float64, n)
		for i := 0; i < n; i++ {
			var s float64
			for j := 0; j < n; j++ {
				s += a.At(i, j) * p[j]
			}
			ap[i] = s
		}
		return ap
	}
	return optimization.Objective{
		Cost: func(m manifold.Manifold, p []float64) float64 {
			return floats.Dot(p, mulSym(p))
		},
		Grad: func(m manifold.Manifold, dst, p []float64) {
			ap := mulSym(p)
			// Project 2Ap onto the tangent space at p.
			c := 2 * floats.Dot(p, ap)
			for i := range dst {
				dst[i] = 2*ap[i] - c*p[i]
			}
		},
	}
}

// LogDetBarrier is tr(p) - logdet(p) on the SPD manifold, minimized at the
// identity. The affine-invariant Riemannian gradient is p^2 - p.
func LogDetBarrier(d int) optimization.Objective {
	return optimization.Objective{
		Cost: func(m manifold.Manifold, p []float64) float64 {
			var tr float64
			for i := 0; i < d; i++ {
				tr += p[i*d+i]
			}
			var ch mat.Cholesky
			if !ch.Factorize(mat.NewSymDense(d, p)) {
				return math.Inf(1)
			}
			return tr - ch.LogDet()
		},
		Grad: func(m manifold.Manifold, dst, p []float64) {
			// grad = p * (I - p^{-1}) * p = p*p - p
			pm := mat.NewDense(d, d, p)
			var pp mat.Dense
			pp.Mul(pm, pm)
			for i := 0; i < d; i++ {
				for j := 0; j < d; j++ {
					dst[i*d+j] = pp.At(i, j) - p[i*d+j]
				}
			}
		},
	}
}

// Registry names the objectives the solve service can instantiate, keyed
// by the request's objective name.
type Registry struct {
	builders map[string]func(m manifold.Manifold) (optimization.Objective, error)
}

// NewRegistry returns the built-in objective registry.
func NewRegistry() *Registry {
	r := &Registry{builders: make(map[string]func(m manifold.Manifold) (optimization.Objective, error))}

	r.builders["squared-distance"] = func(m manifold.Manifold) (optimization.Objective, error) {
		// Deterministic target: the first canonical point of the manifold
		// family, sampled with a fixed seed.
		target := manifold.NewPoint(m)
		m.RandomPoint(newSeededRand(1), target)
		return SquaredDistance(m, target), nil
	}
	r.builders["rayleigh"] = func(m manifold.Manifold) (optimization.Objective, error) {
		s, ok := m.(*manifold.Sphere)
		if !ok {
			return optimization.Objective{}, fmt.Errorf("objectives: rayleigh requires a sphere, got %s", m.Name())
		}
		n := s.PointSize()
		a := mat.NewSymDense(n, nil)
		rng := newSeededRand(2)
		for i := 0; i < n; i++ {
			for j := i; j < n; j++ {
				a.SetSym(i, j, rng.NormFloat64())
			}
		}
		return Rayleigh(a), nil
	}
	r.builders["logdet-barrier"] = func(m manifold.Manifold) (optimization.Objective, error) {
		s, ok := m.(*manifold.SPD)
		if !ok {
			return optimization.Objective{}, fmt.Errorf("objectives: logdet-barrier requires an SPD manifold, got %s", m.Name())
		}
		d := int(math.Round(math.Sqrt(float64(s.PointSize()))))
		return LogDetBarrier(d), nil
	}
	return r
}

// Build instantiates the named objective on m.
func (r *Registry) Build(name string, m manifold.Manifold) (optimization.Objective, error) {
	b, ok := r.builders[name]
	if !ok {
		return optimization.Objective{}, fmt.Errorf("objectives: unknown objective %q", name)
	}
	return b(m)
}

func newSeededRand(seed int64) *rand.Rand {
	return rand.New(rand.NewSource(seed))
}

// Names lists the registered objective names.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.builders))
	for n := range r.builders {
		names = append(names, n)
	}
	return names
}
