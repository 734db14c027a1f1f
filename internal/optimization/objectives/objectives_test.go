package objectives

import (
	"math"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gonum.org/v1/gonum/mat"

	"github.com/mstokkenes/manopt/internal/manifold"
)

func TestSquaredDistance(t *testing.T) {
	m := manifold.NewSphere(3)
	target := []float64{0, 0, 1}
	obj := SquaredDistance(m, target)

	assert.InDelta(t, 0, obj.Cost(m, target), 1e-12)

	quarter := []float64{1, 0, 0}
	want := 0.5 * (math.Pi / 2) * (math.Pi / 2)
	assert.InDelta(t, want, obj.Cost(m, quarter), 1e-12)

	// Gradient is minus the logarithmic map towards the target.
	require.NotNil(t, obj.Grad)
	grad := manifold.NewVector(m)
	obj.Grad(m, grad, quarter)
	assert.InDelta(t, math.Pi/2, m.Norm(quarter, grad), 1e-12)
	assert.InDelta(t, -math.Pi/2, grad[2], 1e-12)

	// At the target the gradient vanishes.
	obj.Grad(m, grad, target)
	assert.InDelta(t, 0, m.Norm(target, grad), 1e-12)
}

func TestSquaredDistanceGradientAtCutLocus(t *testing.T) {
	m := manifold.NewSphere(2)
	target := []float64{1, 0}
	obj := SquaredDistance(m, target)

	grad := manifold.NewVector(m)
	obj.Grad(m, grad, []float64{-1, 0})
	assert.Equal(t, []float64{0, 0}, grad)
}

func TestSquaredDistanceCopiesTarget(t *testing.T) {
	m := manifold.NewSphere(2)
	target := []float64{1, 0}
	obj := SquaredDistance(m, target)

	target[0] = -1
	target[1] = 0
	assert.InDelta(t, 0, obj.Cost(m, []float64{1, 0}), 1e-12)
}

func TestRayleighConcurrentCalls(t *testing.T) {
	// Parallel swarm workers evaluate the objective from several
	// goroutines at once; values must not bleed between calls. Run
	// with -race.
	m := manifold.NewSphere(2)
	a := mat.NewSymDense(2, []float64{1, 0, 0, 2})
	obj := Rayleigh(a)

	e1 := []float64{1, 0}
	e2 := []float64{0, 1}
	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(g int) {
			defer wg.Done()
			p, want := e1, 1.0
			if g%2 == 1 {
				p, want = e2, 2.0
			}
			grad := manifold.NewVector(m)
			for iter := 0; iter < 200; iter++ {
				if c := obj.Cost(m, p); c != want {
					t.Errorf("Cost(%v) = %v, want %v", p, c, want)
					return
				}
				obj.Grad(m, grad, p)
				// Eigenvectors are critical points.
				if n := m.Norm(p, grad); n > 1e-12 {
					t.Errorf("Grad(%v) has norm %v", p, n)
					return
				}
			}
		}(g)
	}
	wg.Wait()
}

func TestRayleigh(t *testing.T) {
	m := manifold.NewSphere(2)
	a := mat.NewSymDense(2, []float64{1, 0, 0, 2})
	obj := Rayleigh(a)

	e1 := []float64{1, 0}
	e2 := []float64{0, 1}
	assert.InDelta(t, 1, obj.Cost(m, e1), 1e-12)
	assert.InDelta(t, 2, obj.Cost(m, e2), 1e-12)

	// Eigenvectors are critical points of the quotient.
	grad := manifold.NewVector(m)
	obj.Grad(m, grad, e1)
	assert.InDelta(t, 0, m.Norm(e1, grad), 1e-12)
	obj.Grad(m, grad, e2)
	assert.InDelta(t, 0, m.Norm(e2, grad), 1e-12)

	// In between the gradient is tangent and nonzero.
	inv := math.Sqrt2 / 2
	p := []float64{inv, inv}
	obj.Grad(m, grad, p)
	require.NoError(t, m.CheckVector(p, grad))
	assert.Greater(t, m.Norm(p, grad), 0.5)
}

func TestLogDetBarrier(t *testing.T) {
	m := manifold.NewSPD(2)
	obj := LogDetBarrier(2)

	id := []float64{1, 0, 0, 1}
	assert.InDelta(t, 2, obj.Cost(m, id), 1e-12)

	// The identity is the minimum: zero gradient.
	grad := manifold.NewVector(m)
	obj.Grad(m, grad, id)
	assert.InDelta(t, 0, m.Norm(id, grad), 1e-12)

	// tr - logdet at diag(2, 1): 3 - log 2.
	p := []float64{2, 0, 0, 1}
	assert.InDelta(t, 3-math.Log(2), obj.Cost(m, p), 1e-12)

	// Gradient p^2 - p = diag(2, 0).
	obj.Grad(m, grad, p)
	assert.InDelta(t, 2, grad[0], 1e-12)
	assert.InDelta(t, 0, grad[1], 1e-12)
	assert.InDelta(t, 0, grad[3], 1e-12)
}

func TestLogDetBarrierRejectsIndefinite(t *testing.T) {
	m := manifold.NewSPD(2)
	obj := LogDetBarrier(2)
	assert.True(t, math.IsInf(obj.Cost(m, []float64{1, 0, 0, -1}), 1))
}

func TestRegistry(t *testing.T) {
	r := NewRegistry()
	assert.ElementsMatch(t, []string{"squared-distance", "rayleigh", "logdet-barrier"}, r.Names())

	sphere := manifold.NewSphere(3)
	obj, err := r.Build("squared-distance", sphere)
	require.NoError(t, err)
	require.NotNil(t, obj.Cost)

	// Deterministic across calls: the builder uses a fixed seed.
	again, err := r.Build("squared-distance", sphere)
	require.NoError(t, err)
	p := []float64{1, 0, 0}
	assert.Equal(t, obj.Cost(sphere, p), again.Cost(sphere, p))

	_, err = r.Build("rayleigh", sphere)
	require.NoError(t, err)
	_, err = r.Build("rayleigh", manifold.NewEuclidean(3))
	require.Error(t, err)

	_, err = r.Build("logdet-barrier", manifold.NewSPD(2))
	require.NoError(t, err)
	_, err = r.Build("logdet-barrier", sphere)
	require.Error(t, err)

	_, err = r.Build("no-such-objective", sphere)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown objective")
}
