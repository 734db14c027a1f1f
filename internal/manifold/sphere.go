package manifold

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// antipodalTol is the angle below pi at which the logarithmic map is still
// considered well defined.
const antipodalTol = 1e-12

// Sphere is the unit sphere S^{n-1} embedded in R^n with the round metric.
// NewSphere(2) is the circle used throughout the tests. The default
// retraction is the exact exponential map; a projection retraction and
// both parallel and projection transports are available.
type Sphere struct {
	n int
}

// NewSphere creates the unit sphere in ambient R^n. It panics when n < 2.
func NewSphere(n int) *Sphere {
	if n < 2 {
		panic(fmt.Sprintf("manifold: Sphere ambient dimension must be at least 2, got %d", n))
	}
	return &Sphere{n: n}
}

func (s *Sphere) Name() string   { return fmt.Sprintf("Sphere(%d)", s.n) }
func (s *Sphere) Dim() int       { return s.n - 1 }
func (s *Sphere) PointSize() int { return s.n }

func (s *Sphere) Inner(p, v, w []float64) float64 {
	return floats.Dot(v, w)
}

func (s *Sphere) Norm(p, v []float64) float64 {
	return floats.Norm(v, 2)
}

func (s *Sphere) Dist(p, q []float64) float64 {
	return math.Acos(clamp(floats.Dot(p, q), -1, 1))
}

func (s *Sphere) Exp(dst, p, v []float64, t float64) {
	nv := floats.Norm(v, 2)
	theta := t * nv
	if theta == 0 {
		copy(dst, p)
		return
	}
	c, sc := math.Cos(theta), math.Sin(theta)/nv
	for i := range dst {
		dst[i] = c*p[i] + sc*v[i]
	}
}

func (s *Sphere) Log(dst, p, q []float64) error {
	c := clamp(floats.Dot(p, q), -1, 1)
	theta := math.Acos(c)
	if theta == 0 {
		s.ZeroVector(dst, p)
		return nil
	}
	if math.Pi-theta < antipodalTol {
		return &DomainError{
			Manifold: s.Name(), Op: "Log",
			Reason: "points are antipodal, no unique minimizing geodesic",
		}
	}
	scale := theta / math.Sin(theta)
	for i := range dst {
		dst[i] = scale * (q[i] - c*p[i])
	}
	return nil
}

func (s *Sphere) Retract(dst, p, v []float64, method Retraction) error {
	switch method {
	case DefaultRetraction, ExponentialRetraction:
		s.Exp(dst, p, v, 1)
		return nil
	case ProjectionRetraction:
		for i := range dst {
			dst[i] = p[i] + v[i]
		}
		n := floats.Norm(dst, 2)
		if n == 0 {
			return &DomainError{
				Manifold: s.Name(), Op: "Retract(projection)",
				Reason: "p+v is the origin and cannot be projected",
			}
		}
		floats.Scale(1/n, dst)
		return nil
	}
	return notImplemented(s, fmt.Sprintf("Retract(%v)", method))
}

func (s *Sphere) InverseRetract(dst, p, q []float64, method Retraction) error {
	switch method {
	case DefaultRetraction, ExponentialRetraction:
		return s.Log(dst, p, q)
	case ProjectionRetraction:
		c := floats.Dot(p, q)
		if c <= 0 {
			return &DomainError{
				Manifold: s.Name(), Op: "InverseRetract(projection)",
				Reason: "q is not in the open hemisphere around p",
			}
		}
		for i := range dst {
			dst[i] = q[i]/c - p[i]
		}
		return nil
	}
	return notImplemented(s, fmt.Sprintf("InverseRetract(%v)", method))
}

func (s *Sphere) TransportTo(dst, p, v, q []float64, method Transport) error {
	switch method {
	case DefaultTransport, ParallelTransport:
		dir := make([]float64, s.n)
		if err := s.Log(dir, p, q); err != nil {
			return err
		}
		theta := floats.Norm(dir, 2)
		if theta == 0 {
			copy(dst, v)
			return nil
		}
		floats.Scale(1/theta, dir)
		a := floats.Dot(dir, v)
		c, sn := math.Cos(theta), math.Sin(theta)
		for i := range dst {
			dst[i] = v[i] + (c-1)*a*dir[i] - sn*a*p[i]
		}
		return nil
	case ProjectionTransport:
		a := floats.Dot(v, q)
		for i := range dst {
			dst[i] = v[i] - a*q[i]
		}
		return nil
	}
	return notImplemented(s, fmt.Sprintf("TransportTo(%v)", method))
}

func (s *Sphere) ZeroVector(dst, p []float64) {
	for i := range dst {
		dst[i] = 0
	}
}

func (s *Sphere) RandomPoint(rng *rand.Rand, dst []float64) {
	for {
		for i := range dst {
			dst[i] = rng.NormFloat64()
		}
		n := floats.Norm(dst, 2)
		if n > 0 {
			floats.Scale(1/n, dst)
			return
		}
	}
}

func (s *Sphere) RandomVector(rng *rand.Rand, dst, p []float64) {
	for {
		for i := range dst {
			dst[i] = rng.NormFloat64()
		}
		a := floats.Dot(dst, p)
		floats.AddScaled(dst, -a, p)
		n := floats.Norm(dst, 2)
		if n > 1e-12 {
			floats.Scale(1/n, dst)
			return
		}
	}
}

// CheckPoint verifies that p has unit norm.
func (s *Sphere) CheckPoint(p []float64) error {
	if len(p) != s.n {
		return &ValidationError{
			Manifold: s.Name(), Kind: "point", Value: p,
			Reason: fmt.Sprintf("length %d, want %d", len(p), s.n),
		}
	}
	if d := math.Abs(floats.Norm(p, 2) - 1); d > 1e-9 {
		return &ValidationError{
			Manifold: s.Name(), Kind: "point", Value: p,
			Reason: fmt.Sprintf("norm deviates from 1 by %.3g", d),
		}
	}
	return nil
}

// CheckVector verifies that v is orthogonal to p.
func (s *Sphere) CheckVector(p, v []float64) error {
	if len(v) != s.n {
		return &ValidationError{
			Manifold: s.Name(), Kind: "vector", Value: v,
			Reason: fmt.Sprintf("length %d, want %d", len(v), s.n),
		}
	}
	if a := math.Abs(floats.Dot(p, v)); a > 1e-9 {
		return &ValidationError{
			Manifold: s.Name(), Kind: "vector", Value: v,
			Reason: fmt.Sprintf("not tangent at p, <p,v> = %.3g", a),
		}
	}
	return nil
}

func clamp(x, lo, hi float64) float64 {
	if x < lo {
		return lo
	}
	if x > hi {
		return hi
	}
	return x
}
