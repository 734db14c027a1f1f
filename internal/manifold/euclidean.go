package manifold

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/floats"
)

// Euclidean is flat R^n with the standard inner product. Every retraction
// and transport method coincides with the exact exponential map and
// parallel transport, so all methods are accepted.
type Euclidean struct {
	n int
}

// NewEuclidean creates R^n. It panics when n < 1.
func NewEuclidean(n int) *Euclidean {
	if n < 1 {
		panic(fmt.Sprintf("manifold: Euclidean dimension must be positive, got %d", n))
	}
	return &Euclidean{n: n}
}

func (e *Euclidean) Name() string   { return fmt.Sprintf("Euclidean(%d)", e.n) }
func (e *Euclidean) Dim() int       { return e.n }
func (e *Euclidean) PointSize() int { return e.n }

func (e *Euclidean) Inner(p, v, w []float64) float64 {
	return floats.Dot(v, w)
}

func (e *Euclidean) Norm(p, v []float64) float64 {
	return floats.Norm(v, 2)
}

func (e *Euclidean) Dist(p, q []float64) float64 {
	var sum float64
	for i := range p {
		d := p[i] - q[i]
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (e *Euclidean) Exp(dst, p, v []float64, t float64) {
	for i := range dst {
		dst[i] = p[i] + t*v[i]
	}
}

func (e *Euclidean) Log(dst, p, q []float64) error {
	floats.SubTo(dst, q, p)
	return nil
}

func (e *Euclidean) Retract(dst, p, v []float64, method Retraction) error {
	e.Exp(dst, p, v, 1)
	return nil
}

func (e *Euclidean) InverseRetract(dst, p, q []float64, method Retraction) error {
	return e.Log(dst, p, q)
}

func (e *Euclidean) TransportTo(dst, p, v, q []float64, method Transport) error {
	copy(dst, v)
	return nil
}

func (e *Euclidean) ZeroVector(dst, p []float64) {
	for i := range dst {
		dst[i] = 0
	}
}

func (e *Euclidean) RandomPoint(rng *rand.Rand, dst []float64) {
	for i := range dst {
		dst[i] = rng.NormFloat64()
	}
}

func (e *Euclidean) RandomVector(rng *rand.Rand, dst, p []float64) {
	for i := range dst {
		dst[i] = rng.NormFloat64()
	}
	n := floats.Norm(dst, 2)
	if n > 0 {
		floats.Scale(1/n, dst)
	}
}

// CheckPoint accepts any finite vector of the right length.
func (e *Euclidean) CheckPoint(p []float64) error {
	return e.checkFinite(p, "point")
}

// CheckVector accepts any finite vector of the right length.
func (e *Euclidean) CheckVector(p, v []float64) error {
	return e.checkFinite(v, "vector")
}

func (e *Euclidean) checkFinite(x []float64, kind string) error {
	if len(x) != e.n {
		return &ValidationError{
			Manifold: e.Name(), Kind: kind, Value: x,
			Reason: fmt.Sprintf("length %d, want %d", len(x), e.n),
		}
	}
	for _, xi := range x {
		if math.IsNaN(xi) || math.IsInf(xi, 0) {
			return &ValidationError{
				Manifold: e.Name(), Kind: kind, Value: x,
				Reason: "entries must be finite",
			}
		}
	}
	return nil
}
