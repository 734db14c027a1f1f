// Package swarm implements Riemannian particle swarm optimization against
// the manifold capability interface: velocities live in tangent spaces,
// position updates are retractions and velocities are transported to the
// particle's new position after every move.
package swarm

import (
	"context"
	"math"
	"math/rand"
	"sync"
	"time"

	"github.com/mstokkenes/manopt/internal/manifold"
	"github.com/mstokkenes/manopt/internal/optimization"
)

const solverName = "particle swarm"

// Config contains the hyperparameters of a swarm run. They are fixed for
// the duration of the run.
type Config struct {
	// Size is the number of particles (default 50).
	Size int

	// Inertia weights the previous velocity (default 0.65).
	Inertia float64
	// Cognitive weights the pull towards the particle's own best
	// position (default 1.4).
	Cognitive float64
	// Social weights the pull towards the global best (default 1.4).
	Social float64

	// Retraction, InverseRetraction and Transport select the geometric
	// methods; the zero values resolve to the manifold's defaults.
	Retraction        manifold.Retraction
	InverseRetraction manifold.Retraction
	Transport         manifold.Transport

	// Seed feeds the random number generator; 0 seeds from the clock.
	Seed int64

	// Workers > 1 updates particles in parallel. The global best update
	// is serialized under a mutex and each particle reads the global best
	// as of the start of the step. The cost function must then be safe
	// for concurrent calls, and objective call counting must stay off.
	Workers int

	// MaxIterations is the iteration cap of the default stopping
	// criterion (default 500). Ignored when Stopping is set.
	MaxIterations int

	// Stopping overrides the default criterion: MaxIterations iterations
	// or the swarm position change, measured on the power manifold of
	// all particle positions, falling below 1e-4.
	Stopping optimization.StoppingCriterion
}

// DefaultConfig returns the default hyperparameters.
func DefaultConfig() Config {
	return Config{
		Size:      50,
		Inertia:   0.65,
		Cognitive: 1.4,
		Social:    1.4,
	}
}

func (c *Config) applyDefaults() {
	if c.Size < 1 {
		c.Size = 50
	}
	if c.Inertia == 0 {
		c.Inertia = 0.65
	}
	if c.Cognitive == 0 {
		c.Cognitive = 1.4
	}
	if c.Social == 0 {
		c.Social = 1.4
	}
	if c.Workers < 1 {
		c.Workers = 1
	}
	if c.MaxIterations < 1 {
		c.MaxIterations = 500
	}
}

// State holds the swarm: positions, per-particle velocities (valid at the
// particle's current position), per-particle best positions and the global
// best. It is fully initialized by NewState and owned by one solve run.
type State struct {
	// Positions and Velocities are the particles' current data.
	Positions  [][]float64
	Velocities [][]float64
	// Bests are the per-particle best-known positions.
	Bests [][]float64

	bestCosts  []float64
	global     []float64
	globalCost float64

	// globalRead is the snapshot of the global best that social vectors
	// are computed against during a parallel step.
	globalRead []float64

	rng      *rand.Rand
	stop     optimization.StoppingCriterion
	power    *manifold.Power
	r1s, r2s []float64

	mu sync.Mutex
}

// NewState builds a fully-initialized swarm state on m. When initial is
// nil, Size particles are sampled from the manifold's reference
// distribution; otherwise the given points are copied and Size is their
// count. Velocities start as random unit tangent vectors; zero them through
// the exported field for a deterministic start.
func NewState(m manifold.Manifold, cfg Config, initial [][]float64) *State {
	cfg.applyDefaults()
	if initial != nil {
		cfg.Size = len(initial)
	}

	seed := cfg.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	rng := rand.New(rand.NewSource(seed))

	n := cfg.Size
	s := &State{
		Positions:  make([][]float64, n),
		Velocities: make([][]float64, n),
		Bests:      make([][]float64, n),
		bestCosts:  make([]float64, n),
		global:     manifold.NewPoint(m),
		globalCost: math.Inf(1),
		rng:        rng,
		power:      manifold.NewPower(m, n),
		r1s:        make([]float64, n),
		r2s:        make([]float64, n),
	}
	for i := 0; i < n; i++ {
		if initial != nil {
			s.Positions[i] = manifold.CopyPoint(m, initial[i])
		} else {
			s.Positions[i] = manifold.NewPoint(m)
			m.RandomPoint(rng, s.Positions[i])
		}
		s.Velocities[i] = manifold.NewVector(m)
		m.RandomVector(rng, s.Velocities[i], s.Positions[i])
		s.Bests[i] = manifold.CopyPoint(m, s.Positions[i])
		s.bestCosts[i] = math.Inf(1)
	}

	s.stop = cfg.Stopping
	if s.stop == nil {
		s.stop = optimization.Or(
			optimization.NewStopAfterIteration(cfg.MaxIterations),
			optimization.NewStopWhenStateChangeLess(1e-4, s.snapshotPositions, s.power.Dist),
		)
	}
	return s
}

// snapshotPositions flattens a copy of all particle positions onto the
// power manifold.
func (s *State) snapshotPositions(optimization.State) []float64 {
	flat := make([]float64, 0, len(s.Positions)*len(s.Positions[0]))
	for _, p := range s.Positions {
		flat = append(flat, p...)
	}
	return flat
}

// Iterate returns the global best point.
func (s *State) Iterate() []float64 { return s.global }

// Stopping returns the termination criterion.
func (s *State) Stopping() optimization.StoppingCriterion { return s.stop }

// GlobalCost returns the cost at the global best point.
func (s *State) GlobalCost() float64 { return s.globalCost }

// ParticleSwarm is the solver. It requires only retraction, inverse
// retraction, vector transport and sampling from the capability interface.
type ParticleSwarm struct {
	cfg Config
}

// New creates a particle swarm solver with the given hyperparameters.
func New(cfg Config) *ParticleSwarm {
	cfg.applyDefaults()
	return &ParticleSwarm{cfg: cfg}
}

// Init evaluates the initial swarm and seeds the per-particle and global
// bests with the argmin by cost.
func (ps *ParticleSwarm) Init(prob *optimization.Problem, st optimization.State) error {
	s, err := stateOf(st)
	if err != nil {
		return err
	}
	for i, pos := range s.Positions {
		c := prob.Cost(pos)
		s.bestCosts[i] = c
		copy(s.Bests[i], pos)
		if c < s.globalCost {
			s.globalCost = c
			copy(s.global, pos)
		}
	}
	return nil
}

// Step advances every particle once: blend the velocity from its inertia,
// the cognitive pull to the particle's best and the social pull to the
// global best (one scalar uniform draw per particle per term), retract the
// position along the velocity, transport the velocity to the new position,
// then update the bests.
func (ps *ParticleSwarm) Step(prob *optimization.Problem, st optimization.State, k int) error {
	s, err := stateOf(st)
	if err != nil {
		return err
	}

	// Draws happen sequentially so a seeded run is deterministic for a
	// fixed worker count.
	for i := range s.r1s {
		s.r1s[i] = s.rng.Float64()
		s.r2s[i] = s.rng.Float64()
	}

	if ps.cfg.Workers <= 1 {
		buf := newScratch(prob.Manifold())
		for i := range s.Positions {
			if err := ps.updateParticle(prob, s, i, buf, nil); err != nil {
				return err
			}
		}
		return nil
	}

	// Parallel particle updates: particles only share the global best,
	// read from a start-of-step snapshot and written under the mutex.
	s.globalRead = manifold.CopyPoint(prob.Manifold(), s.global)
	var (
		wg       sync.WaitGroup
		errOnce  sync.Once
		firstErr error
	)
	chunk := (len(s.Positions) + ps.cfg.Workers - 1) / ps.cfg.Workers
	for w := 0; w < ps.cfg.Workers; w++ {
		lo := w * chunk
		hi := min(lo+chunk, len(s.Positions))
		if lo >= hi {
			break
		}
		wg.Add(1)
		go func(lo, hi int) {
			defer wg.Done()
			buf := newScratch(prob.Manifold())
			for i := lo; i < hi; i++ {
				if err := ps.updateParticle(prob, s, i, buf, s.globalRead); err != nil {
					errOnce.Do(func() { firstErr = err })
					return
				}
			}
		}(lo, hi)
	}
	wg.Wait()
	s.globalRead = nil
	return firstErr
}

type scratch struct {
	cog, soc, old []float64
}

func newScratch(m manifold.Manifold) *scratch {
	return &scratch{
		cog: manifold.NewVector(m),
		soc: manifold.NewVector(m),
		old: manifold.NewPoint(m),
	}
}

func (ps *ParticleSwarm) updateParticle(prob *optimization.Problem, s *State, i int, buf *scratch, globalRead []float64) error {
	m := prob.Manifold()
	pos := s.Positions[i]
	vel := s.Velocities[i]
	social := s.global
	if globalRead != nil {
		social = globalRead
	}

	if err := m.InverseRetract(buf.cog, pos, s.Bests[i], ps.cfg.InverseRetraction); err != nil {
		return optimization.WrapError(err, "cognitive vector").WithSolver(solverName).WithOp("InverseRetract")
	}
	if err := m.InverseRetract(buf.soc, pos, social, ps.cfg.InverseRetraction); err != nil {
		return optimization.WrapError(err, "social vector").WithSolver(solverName).WithOp("InverseRetract")
	}

	r1, r2 := s.r1s[i], s.r2s[i]
	for j := range vel {
		vel[j] = ps.cfg.Inertia*vel[j] +
			ps.cfg.Cognitive*r1*buf.cog[j] +
			ps.cfg.Social*r2*buf.soc[j]
	}

	copy(buf.old, pos)
	if err := m.Retract(pos, buf.old, vel, ps.cfg.Retraction); err != nil {
		return optimization.WrapError(err, "position update").WithSolver(solverName).WithOp("Retract")
	}
	if err := m.TransportTo(vel, buf.old, vel, pos, ps.cfg.Transport); err != nil {
		return optimization.WrapError(err, "velocity transport").WithSolver(solverName).WithOp("TransportTo")
	}

	c := prob.Cost(pos)
	if c < s.bestCosts[i] {
		s.bestCosts[i] = c
		copy(s.Bests[i], pos)
		if globalRead == nil {
			if c < s.globalCost {
				s.globalCost = c
				copy(s.global, pos)
			}
			return nil
		}
		s.mu.Lock()
		if c < s.globalCost {
			s.globalCost = c
			copy(s.global, pos)
		}
		s.mu.Unlock()
	}
	return nil
}

func stateOf(st optimization.State) (*State, error) {
	s, ok := optimization.Unwrap(st).(*State)
	if !ok {
		return nil, optimization.NewError("state is not a swarm state").WithSolver(solverName)
	}
	return s, nil
}

// Minimize runs particle swarm optimization of obj over m with the given
// configuration and returns the global best point.
func Minimize(ctx context.Context, m manifold.Manifold, obj optimization.Objective, cfg Config) (*optimization.Result, error) {
	prob := optimization.NewProblem(m, obj)
	st := NewState(m, cfg, nil)
	return optimization.Solve(ctx, prob, st, New(cfg))
}
