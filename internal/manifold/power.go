package manifold

import (
	"fmt"
	"math"
	"math/rand"
)

// Power is the n-fold power of a base manifold: points are n points of the
// base laid out consecutively in one flat slice. All operations apply
// componentwise; distances combine in the L2 sense, which makes a Power over
// the swarm positions the natural space to measure whole-swarm movement on.
type Power struct {
	base Manifold
	n    int
}

// NewPower creates the n-fold power of base. It panics when n < 1.
func NewPower(base Manifold, n int) *Power {
	if n < 1 {
		panic(fmt.Sprintf("manifold: Power count must be positive, got %d", n))
	}
	return &Power{base: base, n: n}
}

// Base returns the replicated manifold.
func (pm *Power) Base() Manifold { return pm.base }

func (pm *Power) Name() string   { return fmt.Sprintf("Power(%s, %d)", pm.base.Name(), pm.n) }
func (pm *Power) Dim() int       { return pm.n * pm.base.Dim() }
func (pm *Power) PointSize() int { return pm.n * pm.base.PointSize() }

// at returns the i-th component of a flat power value.
func (pm *Power) at(x []float64, i int) []float64 {
	k := pm.base.PointSize()
	return x[i*k : (i+1)*k]
}

func (pm *Power) Inner(p, v, w []float64) float64 {
	var sum float64
	for i := 0; i < pm.n; i++ {
		sum += pm.base.Inner(pm.at(p, i), pm.at(v, i), pm.at(w, i))
	}
	return sum
}

func (pm *Power) Norm(p, v []float64) float64 {
	return math.Sqrt(math.Max(pm.Inner(p, v, v), 0))
}

func (pm *Power) Dist(p, q []float64) float64 {
	var sum float64
	for i := 0; i < pm.n; i++ {
		d := pm.base.Dist(pm.at(p, i), pm.at(q, i))
		sum += d * d
	}
	return math.Sqrt(sum)
}

func (pm *Power) Retract(dst, p, v []float64, method Retraction) error {
	for i := 0; i < pm.n; i++ {
		if err := pm.base.Retract(pm.at(dst, i), pm.at(p, i), pm.at(v, i), method); err != nil {
			return err
		}
	}
	return nil
}

func (pm *Power) InverseRetract(dst, p, q []float64, method Retraction) error {
	for i := 0; i < pm.n; i++ {
		if err := pm.base.InverseRetract(pm.at(dst, i), pm.at(p, i), pm.at(q, i), method); err != nil {
			return err
		}
	}
	return nil
}

func (pm *Power) TransportTo(dst, p, v, q []float64, method Transport) error {
	for i := 0; i < pm.n; i++ {
		if err := pm.base.TransportTo(pm.at(dst, i), pm.at(p, i), pm.at(v, i), pm.at(q, i), method); err != nil {
			return err
		}
	}
	return nil
}

func (pm *Power) ZeroVector(dst, p []float64) {
	for i := 0; i < pm.n; i++ {
		pm.base.ZeroVector(pm.at(dst, i), pm.at(p, i))
	}
}

func (pm *Power) RandomPoint(rng *rand.Rand, dst []float64) {
	for i := 0; i < pm.n; i++ {
		pm.base.RandomPoint(rng, pm.at(dst, i))
	}
}

func (pm *Power) RandomVector(rng *rand.Rand, dst, p []float64) {
	for i := 0; i < pm.n; i++ {
		pm.base.RandomVector(rng, pm.at(dst, i), pm.at(p, i))
	}
	n := pm.Norm(p, dst)
	if n > 0 {
		for i := range dst {
			dst[i] /= n
		}
	}
}

// Exp applies the componentwise exponential map when the base is Geodesic.
func (pm *Power) Exp(dst, p, v []float64, t float64) {
	g, ok := pm.base.(Geodesic)
	if !ok {
		fill(dst, math.NaN())
		return
	}
	for i := 0; i < pm.n; i++ {
		g.Exp(pm.at(dst, i), pm.at(p, i), pm.at(v, i), t)
	}
}

// Log applies the componentwise logarithmic map when the base is Geodesic.
func (pm *Power) Log(dst, p, q []float64) error {
	g, ok := pm.base.(Geodesic)
	if !ok {
		return notImplemented(pm, "Log")
	}
	for i := 0; i < pm.n; i++ {
		if err := g.Log(pm.at(dst, i), pm.at(p, i), pm.at(q, i)); err != nil {
			return err
		}
	}
	return nil
}

// CheckPoint validates every component when the base supports validation.
func (pm *Power) CheckPoint(p []float64) error {
	c, ok := pm.base.(Checker)
	if !ok {
		return notImplemented(pm, "CheckPoint")
	}
	if len(p) != pm.PointSize() {
		return &ValidationError{
			Manifold: pm.Name(), Kind: "point", Value: p,
			Reason: fmt.Sprintf("length %d, want %d", len(p), pm.PointSize()),
		}
	}
	for i := 0; i < pm.n; i++ {
		if err := c.CheckPoint(pm.at(p, i)); err != nil {
			return err
		}
	}
	return nil
}

// CheckVector validates every component when the base supports validation.
func (pm *Power) CheckVector(p, v []float64) error {
	c, ok := pm.base.(Checker)
	if !ok {
		return notImplemented(pm, "CheckVector")
	}
	for i := 0; i < pm.n; i++ {
		if err := c.CheckVector(pm.at(p, i), pm.at(v, i)); err != nil {
			return err
		}
	}
	return nil
}
