// Package manifold defines the capability interface that every geometry
// plugged into the solver framework must satisfy, together with reference
// implementations (Euclidean space, the unit sphere, symmetric
// positive-definite matrices, and power manifolds).
//
// Points and tangent vectors are stored as flat []float64 slices of length
// PointSize(). A tangent vector is only meaningful relative to the point it
// was computed at; the Vector wrapper in this package can carry that base
// point explicitly for checked arithmetic.
package manifold

import (
	"math/rand"
)

// Retraction identifies a retraction (or inverse retraction) algorithm.
// Manifolds support a subset and declare a default; asking for an
// unsupported method yields a *NotImplementedError.
type Retraction int

const (
	// DefaultRetraction resolves to the manifold's preferred retraction.
	DefaultRetraction Retraction = iota
	// ExponentialRetraction uses the exact exponential map (and the
	// logarithmic map as its inverse).
	ExponentialRetraction
	// ProjectionRetraction moves in the embedding and projects back onto
	// the manifold.
	ProjectionRetraction
)

func (r Retraction) String() string {
	switch r {
	case DefaultRetraction:
		return "default"
	case ExponentialRetraction:
		return "exponential"
	case ProjectionRetraction:
		return "projection"
	}
	return "unknown"
}

// Transport identifies a vector transport algorithm.
type Transport int

const (
	// DefaultTransport resolves to the manifold's preferred transport.
	DefaultTransport Transport = iota
	// ParallelTransport moves a vector along the geodesic, preserving
	// inner products exactly where a closed form exists.
	ParallelTransport
	// ProjectionTransport reinterprets the vector at the target point by
	// projecting it onto the new tangent space.
	ProjectionTransport
)

func (t Transport) String() string {
	switch t {
	case DefaultTransport:
		return "default"
	case ParallelTransport:
		return "parallel"
	case ProjectionTransport:
		return "projection"
	}
	return "unknown"
}

// Manifold is the capability contract consumed by the solvers. All slice
// arguments must have length PointSize() and belong to this manifold;
// passing values created by another manifold is undefined behavior unless
// the implementation also satisfies Checker and validation is requested
// explicitly.
type Manifold interface {
	// Name identifies the manifold family and its size, e.g. "Sphere(3)".
	Name() string

	// Dim returns the intrinsic dimension.
	Dim() int

	// PointSize returns the storage length of a point or tangent vector.
	PointSize() int

	// Inner computes the Riemannian metric <v, w> at p.
	Inner(p, v, w []float64) float64

	// Norm returns sqrt(Inner(p, v, v)).
	Norm(p, v []float64) float64

	// Dist returns the geodesic distance between p and q.
	Dist(p, q []float64) float64

	// Retract moves from p along v using the given method and writes the
	// resulting point into dst. dst may alias p.
	Retract(dst, p, v []float64, method Retraction) error

	// InverseRetract writes into dst the tangent vector at p that the
	// given retraction maps (approximately) onto q.
	InverseRetract(dst, p, q []float64, method Retraction) error

	// TransportTo moves the tangent vector v at p into the tangent space
	// at q and writes it into dst. dst may alias v.
	TransportTo(dst, p, v, q []float64, method Transport) error

	// ZeroVector writes the zero tangent vector at p into dst.
	ZeroVector(dst, p []float64)

	// RandomPoint writes a point drawn from a manifold-specific reference
	// distribution into dst.
	RandomPoint(rng *rand.Rand, dst []float64)

	// RandomVector writes a random unit-norm tangent vector at p into dst.
	RandomVector(rng *rand.Rand, dst, p []float64)
}

// Geodesic is the capability of manifolds with an exact exponential and
// logarithmic map. Solvers that require it assert for this interface, so a
// missing capability is caught before the first iteration rather than by a
// runtime stub.
type Geodesic interface {
	Manifold

	// Exp moves from p along v scaled by t. Exp(dst, p, zero, t) writes p.
	Exp(dst, p, v []float64, t float64)

	// Log writes into dst the tangent vector at p pointing to q, i.e. the
	// inverse of Exp where a unique minimizing geodesic exists. It returns
	// an error when q lies on the cut locus of p.
	Log(dst, p, q []float64) error
}

// Checker is the opt-in membership validation capability. The default call
// paths trust their inputs; callers that want validation assert for Checker
// and invoke it explicitly.
type Checker interface {
	// CheckPoint returns a *ValidationError when p does not lie on the
	// manifold within numerical tolerance.
	CheckPoint(p []float64) error

	// CheckVector returns a *ValidationError when v is not a valid tangent
	// vector at p.
	CheckVector(p, v []float64) error
}

// NewPoint allocates zeroed point storage for m.
func NewPoint(m Manifold) []float64 {
	return make([]float64, m.PointSize())
}

// NewVector allocates zeroed tangent vector storage for m.
func NewVector(m Manifold) []float64 {
	return make([]float64, m.PointSize())
}

// CopyPoint returns a copy of p. This is the sanctioned way to duplicate a
// point; solver states own their working copies exclusively.
func CopyPoint(m Manifold, p []float64) []float64 {
	dst := make([]float64, m.PointSize())
	copy(dst, p)
	return dst
}

// Exp applies the exact exponential map when m is Geodesic and returns a
// *NotImplementedError otherwise.
func Exp(m Manifold, dst, p, v []float64, t float64) error {
	g, ok := m.(Geodesic)
	if !ok {
		return notImplemented(m, "Exp")
	}
	g.Exp(dst, p, v, t)
	return nil
}

// Log applies the exact logarithmic map when m is Geodesic and returns a
// *NotImplementedError otherwise.
func Log(m Manifold, dst, p, q []float64) error {
	g, ok := m.(Geodesic)
	if !ok {
		return notImplemented(m, "Log")
	}
	return g.Log(dst, p, q)
}
