package manifold

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSphereExpLogRoundtrip(t *testing.T) {
	s := NewSphere(3)
	rng := rand.New(rand.NewSource(1))

	for trial := 0; trial < 20; trial++ {
		p := NewPoint(s)
		s.RandomPoint(rng, p)
		v := NewVector(s)
		s.RandomVector(rng, v, p)
		// Keep the step well inside the injectivity radius.
		scale := 0.1 + 2.5*rng.Float64()
		for i := range v {
			v[i] *= scale
		}

		q := NewPoint(s)
		s.Exp(q, p, v, 1)
		require.NoError(t, s.CheckPoint(q))

		back := NewVector(s)
		require.NoError(t, s.Log(back, p, q))
		for i := range v {
			assert.InDelta(t, v[i], back[i], 1e-9)
		}
	}
}

func TestSphereExpZeroVector(t *testing.T) {
	s := NewSphere(3)
	p := []float64{1, 0, 0}
	zero := NewVector(s)
	s.ZeroVector(zero, p)

	q := NewPoint(s)
	s.Exp(q, p, zero, 1)
	assert.Equal(t, p, q)
}

func TestSphereDist(t *testing.T) {
	s := NewSphere(3)
	p := []float64{1, 0, 0}
	q := []float64{0, 1, 0}

	assert.InDelta(t, math.Pi/2, s.Dist(p, q), 1e-12)
	assert.InDelta(t, 0, s.Dist(p, p), 1e-12)
	assert.InDelta(t, s.Dist(p, q), s.Dist(q, p), 1e-12)
}

func TestSphereLogAntipodal(t *testing.T) {
	s := NewSphere(3)
	p := []float64{1, 0, 0}
	q := []float64{-1, 0, 0}

	dst := NewVector(s)
	err := s.Log(dst, p, q)
	require.Error(t, err)
	var de *DomainError
	assert.ErrorAs(t, err, &de)
}

func TestSphereProjectionRetraction(t *testing.T) {
	s := NewSphere(2)
	p := []float64{1, 0}
	v := []float64{0, 1}

	q := NewPoint(s)
	require.NoError(t, s.Retract(q, p, v, ProjectionRetraction))
	require.NoError(t, s.CheckPoint(q))
	inv := math.Sqrt2 / 2
	assert.InDelta(t, inv, q[0], 1e-12)
	assert.InDelta(t, inv, q[1], 1e-12)

	// The inverse projection retraction recovers v.
	back := NewVector(s)
	require.NoError(t, s.InverseRetract(back, p, q, ProjectionRetraction))
	assert.InDelta(t, v[0], back[0], 1e-12)
	assert.InDelta(t, v[1], back[1], 1e-12)
}

func TestSphereInverseProjectionOutsideHemisphere(t *testing.T) {
	s := NewSphere(2)
	p := []float64{1, 0}
	q := []float64{-1, 0}

	dst := NewVector(s)
	err := s.InverseRetract(dst, p, q, ProjectionRetraction)
	var de *DomainError
	require.ErrorAs(t, err, &de)
}

func TestSphereUnknownMethod(t *testing.T) {
	s := NewSphere(2)
	p := []float64{1, 0}
	v := []float64{0, 1}
	dst := NewPoint(s)

	err := s.Retract(dst, p, v, Retraction(99))
	var ni *NotImplementedError
	require.ErrorAs(t, err, &ni)
	assert.Contains(t, ni.Error(), "Sphere(2)")
}

func TestSphereParallelTransportPreservesNorm(t *testing.T) {
	s := NewSphere(4)
	rng := rand.New(rand.NewSource(2))

	p := NewPoint(s)
	q := NewPoint(s)
	v := NewVector(s)
	s.RandomPoint(rng, p)
	s.RandomPoint(rng, q)
	s.RandomVector(rng, v, p)

	moved := NewVector(s)
	require.NoError(t, s.TransportTo(moved, p, v, q, ParallelTransport))
	assert.InDelta(t, s.Norm(p, v), s.Norm(q, moved), 1e-9)
	require.NoError(t, s.CheckVector(q, moved))
}

func TestSphereProjectionTransportIsTangent(t *testing.T) {
	s := NewSphere(3)
	rng := rand.New(rand.NewSource(3))

	p := NewPoint(s)
	q := NewPoint(s)
	v := NewVector(s)
	s.RandomPoint(rng, p)
	s.RandomPoint(rng, q)
	s.RandomVector(rng, v, p)

	moved := NewVector(s)
	require.NoError(t, s.TransportTo(moved, p, v, q, ProjectionTransport))
	require.NoError(t, s.CheckVector(q, moved))
}

func TestSphereCheckers(t *testing.T) {
	s := NewSphere(3)

	assert.NoError(t, s.CheckPoint([]float64{1, 0, 0}))
	assert.Error(t, s.CheckPoint([]float64{1, 1, 0}))
	assert.Error(t, s.CheckPoint([]float64{1, 0}))

	p := []float64{1, 0, 0}
	assert.NoError(t, s.CheckVector(p, []float64{0, 2, 1}))
	err := s.CheckVector(p, []float64{0.5, 1, 0})
	var ve *ValidationError
	require.ErrorAs(t, err, &ve)
	assert.Equal(t, "vector", ve.Kind)
}

func TestSphereRandomPointOnManifold(t *testing.T) {
	s := NewSphere(5)
	rng := rand.New(rand.NewSource(4))
	p := NewPoint(s)
	for i := 0; i < 10; i++ {
		s.RandomPoint(rng, p)
		require.NoError(t, s.CheckPoint(p))
	}
}

func TestNewSpherePanicsOnTinyAmbient(t *testing.T) {
	assert.Panics(t, func() { NewSphere(1) })
}
