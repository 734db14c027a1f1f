package manifold

import (
	"math"
	"math/rand"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func spdIdentity(d int) []float64 {
	p := make([]float64, d*d)
	for i := 0; i < d; i++ {
		p[i*d+i] = 1
	}
	return p
}

func TestSPDBasics(t *testing.T) {
	s := NewSPD(3)
	assert.Equal(t, "SymmetricPositiveDefinite(3)", s.Name())
	assert.Equal(t, 6, s.Dim())
	assert.Equal(t, 9, s.PointSize())
}

func TestSPDInnerAtIdentity(t *testing.T) {
	s := NewSPD(2)
	p := spdIdentity(2)
	v := []float64{1, 2, 2, 3}
	w := []float64{2, 0, 0, 1}

	// At the identity the metric is tr(v w).
	assert.InDelta(t, 5, s.Inner(p, v, w), 1e-10)
	assert.InDelta(t, math.Sqrt(1+4+4+9), s.Norm(p, v), 1e-10)
}

func TestSPDExpAtIdentityDiagonal(t *testing.T) {
	s := NewSPD(2)
	p := spdIdentity(2)
	v := []float64{1, 0, 0, -0.5}

	q := NewPoint(s)
	s.Exp(q, p, v, 1)
	assert.InDelta(t, math.E, q[0], 1e-10)
	assert.InDelta(t, 0, q[1], 1e-10)
	assert.InDelta(t, 0, q[2], 1e-10)
	assert.InDelta(t, math.Exp(-0.5), q[3], 1e-10)
}

func TestSPDDistAtIdentity(t *testing.T) {
	s := NewSPD(2)
	p := spdIdentity(2)
	q := []float64{math.E, 0, 0, math.Exp(2)}

	want := math.Sqrt(1 + 4)
	assert.InDelta(t, want, s.Dist(p, q), 1e-9)
	assert.InDelta(t, want, s.Dist(q, p), 1e-9)
	assert.InDelta(t, 0, s.Dist(p, p), 1e-9)
}

func TestSPDExpLogRoundtrip(t *testing.T) {
	s := NewSPD(3)
	rng := rand.New(rand.NewSource(11))

	for trial := 0; trial < 10; trial++ {
		p := NewPoint(s)
		q := NewPoint(s)
		s.RandomPoint(rng, p)
		s.RandomPoint(rng, q)
		require.NoError(t, s.CheckPoint(p))
		require.NoError(t, s.CheckPoint(q))

		v := NewVector(s)
		require.NoError(t, s.Log(v, p, q))

		back := NewPoint(s)
		s.Exp(back, p, v, 1)
		for i := range q {
			assert.InDelta(t, q[i], back[i], 1e-7)
		}
	}
}

func TestSPDParallelTransportPreservesNorm(t *testing.T) {
	s := NewSPD(2)
	rng := rand.New(rand.NewSource(12))

	p := NewPoint(s)
	q := NewPoint(s)
	v := NewVector(s)
	s.RandomPoint(rng, p)
	s.RandomPoint(rng, q)
	s.RandomVector(rng, v, p)

	moved := NewVector(s)
	require.NoError(t, s.TransportTo(moved, p, v, q, ParallelTransport))
	assert.InDelta(t, s.Norm(p, v), s.Norm(q, moved), 1e-8)
	require.NoError(t, s.CheckVector(q, moved))
}

func TestSPDProjectionRetractionStaysOnManifold(t *testing.T) {
	s := NewSPD(2)
	rng := rand.New(rand.NewSource(13))

	p := NewPoint(s)
	v := NewVector(s)
	s.RandomPoint(rng, p)
	s.RandomVector(rng, v, p)

	q := NewPoint(s)
	require.NoError(t, s.Retract(q, p, v, ProjectionRetraction))
	require.NoError(t, s.CheckPoint(q))
}

func TestSPDLogRejectsIndefiniteTarget(t *testing.T) {
	s := NewSPD(2)
	p := spdIdentity(2)
	q := []float64{1, 0, 0, -1}

	dst := NewVector(s)
	err := s.Log(dst, p, q)
	var de *DomainError
	require.ErrorAs(t, err, &de)
}

func TestSPDCheckers(t *testing.T) {
	s := NewSPD(2)

	assert.NoError(t, s.CheckPoint(spdIdentity(2)))
	assert.Error(t, s.CheckPoint([]float64{1, 0.5, 0, 1}))   // asymmetric
	assert.Error(t, s.CheckPoint([]float64{1, 0, 0, -1}))    // indefinite
	assert.Error(t, s.CheckPoint([]float64{1, 0, 0}))        // wrong length
	assert.NoError(t, s.CheckVector(spdIdentity(2), []float64{0, 1, 1, 0}))
	assert.Error(t, s.CheckVector(spdIdentity(2), []float64{0, 1, -1, 0}))
}

func TestSPDConcurrentOperations(t *testing.T) {
	// One SPD instance shared by several goroutines, the way parallel
	// swarm workers share the manifold. Run with -race.
	s := NewSPD(3)

	var wg sync.WaitGroup
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func(seed int64) {
			defer wg.Done()
			rng := rand.New(rand.NewSource(seed))
			p := NewPoint(s)
			q := NewPoint(s)
			v := NewVector(s)
			back := NewPoint(s)
			moved := NewVector(s)
			for iter := 0; iter < 50; iter++ {
				s.RandomPoint(rng, p)
				s.RandomPoint(rng, q)
				if err := s.Log(v, p, q); err != nil {
					t.Errorf("Log: %v", err)
					return
				}
				s.Exp(back, p, v, 1)
				for i := range q {
					if math.Abs(q[i]-back[i]) > 1e-7 {
						t.Errorf("roundtrip mismatch at %d: %v != %v", i, q[i], back[i])
						return
					}
				}
				if err := s.TransportTo(moved, p, v, q, ParallelTransport); err != nil {
					t.Errorf("TransportTo: %v", err)
					return
				}
				if d := s.Dist(p, q); math.IsNaN(d) || d < 0 {
					t.Errorf("Dist: got %v", d)
					return
				}
			}
		}(int64(g + 20))
	}
	wg.Wait()
}

func TestSPDInverseRetractUnsupportedMethod(t *testing.T) {
	s := NewSPD(2)
	dst := NewVector(s)
	err := s.InverseRetract(dst, spdIdentity(2), spdIdentity(2), ProjectionRetraction)
	var ni *NotImplementedError
	require.ErrorAs(t, err, &ni)
}
