package manifold

import (
	"sync"

	"gonum.org/v1/gonum/mat"
)

// workPool provides reusable gonum scratch matrices for the
// eigendecomposition-heavy SPD operations, so a solve loop does not
// reallocate every iteration. It is backed by sync.Pool: parallel solvers
// call the SPD operations from multiple goroutines, and each goroutine gets
// its own scratch. All matrices in one pool share the manifold's dimension.
type workPool struct {
	syms   sync.Pool
	denses sync.Pool
}

func newWorkPool(d int) *workPool {
	p := &workPool{}
	p.syms.New = func() interface{} { return mat.NewSymDense(d, nil) }
	p.denses.New = func() interface{} { return mat.NewDense(d, d, nil) }
	return p
}

// getSym returns a d x d symmetric scratch matrix.
func (p *workPool) getSym() *mat.SymDense {
	return p.syms.Get().(*mat.SymDense)
}

// putSym returns a symmetric matrix to the pool.
func (p *workPool) putSym(m *mat.SymDense) {
	p.syms.Put(m)
}

// getDense returns a d x d dense scratch matrix.
func (p *workPool) getDense() *mat.Dense {
	return p.denses.Get().(*mat.Dense)
}

// putDense returns a dense matrix to the pool.
func (p *workPool) putDense(m *mat.Dense) {
	p.denses.Put(m)
}
