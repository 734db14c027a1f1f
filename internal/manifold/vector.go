package manifold

import "gonum.org/v1/gonum/floats"

// Vector pairs a tangent vector with the base point it is attached to, so
// arithmetic combining two vectors can verify they live in the same tangent
// space. The plain []float64 representation used everywhere else skips this
// check entirely; the two variants are distinct, explicitly chosen types.
//
// The base point is held by reference, not copied: two Vectors share a base
// exactly when they were built from the same point slice.
type Vector struct {
	// At is the base point handle. It is never mutated through the Vector.
	At []float64
	// V is the tangent vector data.
	V []float64
}

// VectorAt wraps the tangent vector v attached to the point p.
func VectorAt(p, v []float64) Vector {
	return Vector{At: p, V: v}
}

// sameBase reports whether two base handles are the same slice. Identity,
// not structural equality: a copied point is a different base on purpose.
func sameBase(a, b []float64) bool {
	if len(a) == 0 || len(b) == 0 || len(a) != len(b) {
		return false
	}
	return &a[0] == &b[0]
}

// Add returns x + y as a new Vector at the shared base point, or a
// *BaseMismatchError when the bases differ.
func (x Vector) Add(y Vector) (Vector, error) {
	if !sameBase(x.At, y.At) {
		return Vector{}, &BaseMismatchError{Op: "Add"}
	}
	sum := make([]float64, len(x.V))
	floats.AddTo(sum, x.V, y.V)
	return Vector{At: x.At, V: sum}, nil
}

// AddScaled returns x + s*y at the shared base point, or a
// *BaseMismatchError when the bases differ.
func (x Vector) AddScaled(s float64, y Vector) (Vector, error) {
	if !sameBase(x.At, y.At) {
		return Vector{}, &BaseMismatchError{Op: "AddScaled"}
	}
	sum := make([]float64, len(x.V))
	copy(sum, x.V)
	floats.AddScaled(sum, s, y.V)
	return Vector{At: x.At, V: sum}, nil
}

// Scale returns s*x at the same base point.
func (x Vector) Scale(s float64) Vector {
	out := make([]float64, len(x.V))
	floats.AddScaledTo(out, out, s, x.V)
	return Vector{At: x.At, V: out}
}

// Inner computes the metric inner product of x and y on m, or a
// *BaseMismatchError when the bases differ.
func (x Vector) Inner(m Manifold, y Vector) (float64, error) {
	if !sameBase(x.At, y.At) {
		return 0, &BaseMismatchError{Op: "Inner"}
	}
	return m.Inner(x.At, x.V, y.V), nil
}

// Norm computes the metric norm of x on m.
func (x Vector) Norm(m Manifold) float64 {
	return m.Norm(x.At, x.V)
}
