package manifold

import (
	"fmt"
	"math"
	"math/rand"

	"gonum.org/v1/gonum/mat"
)

// SPD is the manifold of d x d symmetric positive-definite matrices with
// the affine-invariant metric. Points and tangent vectors (symmetric
// matrices) are stored row-major as flat slices of length d*d.
//
// The exponential, logarithm, distance and parallel transport are computed
// through eigendecompositions of the symmetric generalized coordinates
// p^{-1/2} q p^{-1/2}. Scratch matrices come from a sync.Pool, so a single
// SPD instance may be shared by concurrent solver goroutines.
type SPD struct {
	d    int
	pool *workPool
}

// NewSPD creates the manifold of d x d SPD matrices. It panics when d < 1.
func NewSPD(d int) *SPD {
	if d < 1 {
		panic(fmt.Sprintf("manifold: SPD size must be positive, got %d", d))
	}
	return &SPD{d: d, pool: newWorkPool(d)}
}

func (s *SPD) Name() string   { return fmt.Sprintf("SymmetricPositiveDefinite(%d)", s.d) }
func (s *SPD) Dim() int       { return s.d * (s.d + 1) / 2 }
func (s *SPD) PointSize() int { return s.d * s.d }

func (s *SPD) Inner(p, v, w []float64) float64 {
	d := s.d
	var ch mat.Cholesky
	if !ch.Factorize(mat.NewSymDense(d, p)) {
		return math.NaN()
	}
	x := s.pool.getDense()
	y := s.pool.getDense()
	defer s.pool.putDense(x)
	defer s.pool.putDense(y)
	if err := ch.SolveTo(x, mat.NewDense(d, d, v)); err != nil {
		return math.NaN()
	}
	if err := ch.SolveTo(y, mat.NewDense(d, d, w)); err != nil {
		return math.NaN()
	}
	// tr(p^{-1} v p^{-1} w) = sum_ij x_ij y_ji
	var sum float64
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			sum += x.At(i, j) * y.At(j, i)
		}
	}
	return sum
}

func (s *SPD) Norm(p, v []float64) float64 {
	return math.Sqrt(math.Max(s.Inner(p, v, v), 0))
}

func (s *SPD) Dist(p, q []float64) float64 {
	vals, err := s.relativeEigenvalues(p, q)
	if err != nil {
		return math.NaN()
	}
	var sum float64
	for _, l := range vals {
		ll := math.Log(math.Max(l, 1e-300))
		sum += ll * ll
	}
	return math.Sqrt(sum)
}

func (s *SPD) Exp(dst, p, v []float64, t float64) {
	sq, isq, ok := s.sqrtAndInvSqrt(p)
	if !ok {
		fill(dst, math.NaN())
		return
	}
	defer s.pool.putDense(sq)
	defer s.pool.putDense(isq)

	a := s.pool.getDense()
	defer s.pool.putDense(a)
	s.congruence(a, isq, v) // a = p^{-1/2} v p^{-1/2}
	if t != 1 {
		a.Scale(t, a)
	}
	e, ok := s.symMatFunc(a, math.Exp)
	if !ok {
		fill(dst, math.NaN())
		return
	}
	defer s.pool.putDense(e)

	out := s.pool.getDense()
	defer s.pool.putDense(out)
	s.congruenceDense(out, sq, e) // out = p^{1/2} e p^{1/2}
	writeSym(dst, out)
}

func (s *SPD) Log(dst, p, q []float64) error {
	sq, isq, ok := s.sqrtAndInvSqrt(p)
	if !ok {
		return &DomainError{Manifold: s.Name(), Op: "Log", Reason: "base point is not positive definite"}
	}
	defer s.pool.putDense(sq)
	defer s.pool.putDense(isq)

	a := s.pool.getDense()
	defer s.pool.putDense(a)
	s.congruence(a, isq, q) // a = p^{-1/2} q p^{-1/2}
	l, ok := s.symMatFuncErr(a, func(x float64) (float64, bool) {
		if x <= 0 {
			return 0, false
		}
		return math.Log(x), true
	})
	if !ok {
		return &DomainError{Manifold: s.Name(), Op: "Log", Reason: "target is not positive definite"}
	}
	defer s.pool.putDense(l)

	out := s.pool.getDense()
	defer s.pool.putDense(out)
	s.congruenceDense(out, sq, l)
	writeSym(dst, out)
	return nil
}

func (s *SPD) Retract(dst, p, v []float64, method Retraction) error {
	switch method {
	case DefaultRetraction, ExponentialRetraction:
		s.Exp(dst, p, v, 1)
		return nil
	case ProjectionRetraction:
		// Second-order retraction p + v + v p^{-1} v / 2, SPD by
		// construction for symmetric v.
		d := s.d
		var ch mat.Cholesky
		if !ch.Factorize(mat.NewSymDense(d, p)) {
			return &DomainError{Manifold: s.Name(), Op: "Retract", Reason: "base point is not positive definite"}
		}
		x := s.pool.getDense()
		defer s.pool.putDense(x)
		if err := ch.SolveTo(x, mat.NewDense(d, d, v)); err != nil {
			return &DomainError{Manifold: s.Name(), Op: "Retract", Reason: err.Error()}
		}
		vx := s.pool.getDense()
		defer s.pool.putDense(vx)
		vx.Mul(mat.NewDense(d, d, v), x)
		out := s.pool.getDense()
		defer s.pool.putDense(out)
		for i := 0; i < d; i++ {
			for j := 0; j < d; j++ {
				out.Set(i, j, p[i*d+j]+v[i*d+j]+0.5*vx.At(i, j))
			}
		}
		writeSym(dst, out)
		return nil
	}
	return notImplemented(s, fmt.Sprintf("Retract(%v)", method))
}

func (s *SPD) InverseRetract(dst, p, q []float64, method Retraction) error {
	switch method {
	case DefaultRetraction, ExponentialRetraction:
		return s.Log(dst, p, q)
	}
	return notImplemented(s, fmt.Sprintf("InverseRetract(%v)", method))
}

func (s *SPD) TransportTo(dst, p, v, q []float64, method Transport) error {
	switch method {
	case DefaultTransport, ParallelTransport:
		// Parallel transport along the geodesic: E v E^T with
		// E = p^{1/2} (p^{-1/2} q p^{-1/2})^{1/2} p^{-1/2}.
		d := s.d
		sq, isq, ok := s.sqrtAndInvSqrt(p)
		if !ok {
			return &DomainError{Manifold: s.Name(), Op: "TransportTo", Reason: "base point is not positive definite"}
		}
		defer s.pool.putDense(sq)
		defer s.pool.putDense(isq)

		a := s.pool.getDense()
		defer s.pool.putDense(a)
		s.congruence(a, isq, q)
		b, ok := s.symMatFuncErr(a, func(x float64) (float64, bool) {
			if x <= 0 {
				return 0, false
			}
			return math.Sqrt(x), true
		})
		if !ok {
			return &DomainError{Manifold: s.Name(), Op: "TransportTo", Reason: "target is not positive definite"}
		}
		defer s.pool.putDense(b)

		e := s.pool.getDense()
		defer s.pool.putDense(e)
		tmp := s.pool.getDense()
		defer s.pool.putDense(tmp)
		tmp.Mul(sq, b)
		e.Mul(tmp, isq)

		ev := s.pool.getDense()
		defer s.pool.putDense(ev)
		ev.Mul(e, mat.NewDense(d, d, v))
		out := s.pool.getDense()
		defer s.pool.putDense(out)
		out.Mul(ev, e.T())
		writeSym(dst, out)
		return nil
	case ProjectionTransport:
		// Tangent spaces are all the symmetric matrices; reinterpretation
		// at q is the identity.
		copy(dst, v)
		return nil
	}
	return notImplemented(s, fmt.Sprintf("TransportTo(%v)", method))
}

func (s *SPD) ZeroVector(dst, p []float64) {
	for i := range dst {
		dst[i] = 0
	}
}

func (s *SPD) RandomPoint(rng *rand.Rand, dst []float64) {
	d := s.d
	b := s.pool.getDense()
	defer s.pool.putDense(b)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			x := 0.5 * rng.NormFloat64()
			b.Set(i, j, x)
			b.Set(j, i, x)
		}
	}
	e, ok := s.symMatFunc(b, math.Exp)
	if !ok {
		fill(dst, math.NaN())
		return
	}
	defer s.pool.putDense(e)
	writeSym(dst, e)
}

func (s *SPD) RandomVector(rng *rand.Rand, dst, p []float64) {
	d := s.d
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			x := rng.NormFloat64()
			dst[i*d+j] = x
			dst[j*d+i] = x
		}
	}
	n := s.Norm(p, dst)
	if n > 0 {
		for i := range dst {
			dst[i] /= n
		}
	}
}

// CheckPoint verifies symmetry and positive definiteness.
func (s *SPD) CheckPoint(p []float64) error {
	d := s.d
	if len(p) != d*d {
		return &ValidationError{
			Manifold: s.Name(), Kind: "point", Value: p,
			Reason: fmt.Sprintf("length %d, want %d", len(p), d*d),
		}
	}
	if err := s.checkSymmetric(p, "point"); err != nil {
		return err
	}
	var ch mat.Cholesky
	if !ch.Factorize(mat.NewSymDense(d, p)) {
		return &ValidationError{
			Manifold: s.Name(), Kind: "point", Value: p,
			Reason: "matrix is not positive definite",
		}
	}
	return nil
}

// CheckVector verifies that v is symmetric.
func (s *SPD) CheckVector(p, v []float64) error {
	if len(v) != s.d*s.d {
		return &ValidationError{
			Manifold: s.Name(), Kind: "vector", Value: v,
			Reason: fmt.Sprintf("length %d, want %d", len(v), s.d*s.d),
		}
	}
	return s.checkSymmetric(v, "vector")
}

func (s *SPD) checkSymmetric(x []float64, kind string) error {
	d := s.d
	for i := 0; i < d; i++ {
		for j := i + 1; j < d; j++ {
			if math.Abs(x[i*d+j]-x[j*d+i]) > 1e-9 {
				return &ValidationError{
					Manifold: s.Name(), Kind: kind, Value: x,
					Reason: fmt.Sprintf("asymmetric at (%d,%d)", i, j),
				}
			}
		}
	}
	return nil
}

// congruence computes dst = e * X * e^T for a flat symmetric X.
func (s *SPD) congruence(dst, e *mat.Dense, x []float64) {
	tmp := s.pool.getDense()
	defer s.pool.putDense(tmp)
	tmp.Mul(e, mat.NewDense(s.d, s.d, x))
	dst.Mul(tmp, e.T())
}

// congruenceDense computes dst = e * x * e^T for a dense x.
func (s *SPD) congruenceDense(dst, e, x *mat.Dense) {
	tmp := s.pool.getDense()
	defer s.pool.putDense(tmp)
	tmp.Mul(e, x)
	dst.Mul(tmp, e.T())
}

// sqrtAndInvSqrt returns p^{1/2} and p^{-1/2} from one eigendecomposition.
// The caller returns both matrices to the pool.
func (s *SPD) sqrtAndInvSqrt(p []float64) (sq, isq *mat.Dense, ok bool) {
	d := s.d
	var eig mat.EigenSym
	if !eig.Factorize(mat.NewSymDense(d, p), true) {
		return nil, nil, false
	}
	vals := eig.Values(nil)
	vecs := s.pool.getDense()
	defer s.pool.putDense(vecs)
	eig.VectorsTo(vecs)

	sq = s.pool.getDense()
	isq = s.pool.getDense()
	w := s.pool.getDense()
	defer s.pool.putDense(w)
	for _, l := range vals {
		if l <= 0 {
			s.pool.putDense(sq)
			s.pool.putDense(isq)
			return nil, nil, false
		}
	}
	// sq = V diag(sqrt(vals)) V^T, isq = V diag(1/sqrt(vals)) V^T
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			w.Set(i, j, vecs.At(i, j)*math.Sqrt(vals[j]))
		}
	}
	sq.Mul(w, vecs.T())
	for i := 0; i < d; i++ {
		for j := 0; j < d; j++ {
			w.Set(i, j, vecs.At(i, j)/math.Sqrt(vals[j]))
		}
	}
	isq.Mul(w, vecs.T())
	return sq, isq, true
}

// symMatFunc applies f to the eigenvalues of the symmetric matrix a.
// The caller returns the result to the pool.
func (s *SPD) symMatFunc(a *mat.Dense, f func(float64) float64) (*mat.Dense, bool) {
	return s.symMatFuncErr(a, func(x float64) (float64, bool) { return f(x), true })
}

func (s *SPD) symMatFuncErr(a *mat.Dense, f func(float64) (float64, bool)) (*mat.Dense, bool) {
	d := s.d
	sym := s.pool.getSym()
	defer s.pool.putSym(sym)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, true) {
		return nil, false
	}
	vals := eig.Values(nil)
	vecs := s.pool.getDense()
	defer s.pool.putDense(vecs)
	eig.VectorsTo(vecs)

	w := s.pool.getDense()
	defer s.pool.putDense(w)
	for j, l := range vals {
		fl, ok := f(l)
		if !ok {
			return nil, false
		}
		for i := 0; i < d; i++ {
			w.Set(i, j, vecs.At(i, j)*fl)
		}
	}
	out := s.pool.getDense()
	out.Mul(w, vecs.T())
	return out, true
}

// relativeEigenvalues returns the eigenvalues of p^{-1/2} q p^{-1/2}.
func (s *SPD) relativeEigenvalues(p, q []float64) ([]float64, error) {
	d := s.d
	_, isq, ok := s.sqrtAndInvSqrt(p)
	if !ok {
		return nil, &DomainError{Manifold: s.Name(), Op: "Dist", Reason: "base point is not positive definite"}
	}
	defer s.pool.putDense(isq)
	a := s.pool.getDense()
	defer s.pool.putDense(a)
	s.congruence(a, isq, q)

	sym := s.pool.getSym()
	defer s.pool.putSym(sym)
	for i := 0; i < d; i++ {
		for j := i; j < d; j++ {
			sym.SetSym(i, j, 0.5*(a.At(i, j)+a.At(j, i)))
		}
	}
	var eig mat.EigenSym
	if !eig.Factorize(sym, false) {
		return nil, &DomainError{Manifold: s.Name(), Op: "Dist", Reason: "eigendecomposition failed"}
	}
	return eig.Values(nil), nil
}

// writeSym copies the symmetrized content of m into the flat slice dst.
func writeSym(dst []float64, m *mat.Dense) {
	r, _ := m.Dims()
	for i := 0; i < r; i++ {
		for j := 0; j < r; j++ {
			dst[i*r+j] = 0.5 * (m.At(i, j) + m.At(j, i))
		}
	}
}

func fill(dst []float64, x float64) {
	for i := range dst {
		dst[i] = x
	}
}
