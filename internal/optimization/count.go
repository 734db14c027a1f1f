package optimization

// Counter names used by the counting decoration on the objective access
// path.
const (
	CountCost        = "Cost"
	CountGradient    = "Gradient"
	CountHessian     = "Hessian"
	CountSubgradient = "Subgradient"
	CountProximal    = "Proximal"
)

// Counters holds named call counters. Solver runs are single-threaded, so
// increments are plain integer adds.
type Counters struct {
	counts map[string]int
}

// Inc increments the named counter.
func (c *Counters) Inc(name string) {
	c.counts[name]++
}

// Get returns the value of the named counter, zero if it never fired.
func (c *Counters) Get(name string) int {
	return c.counts[name]
}

// Reset zeroes every counter.
func (c *Counters) Reset() {
	for k := range c.counts {
		delete(c.counts, k)
	}
}

// EnableCounting decorates the problem's objective access path so every
// cost/gradient/Hessian call increments a named counter. It returns the
// counters for inspection after the solve; calling it again returns the
// same instance.
func (p *Problem) EnableCounting() *Counters {
	if p.counts == nil {
		p.counts = &Counters{counts: make(map[string]int)}
	}
	return p.counts
}

// Count returns the named call counter, zero when counting was never
// enabled.
func (p *Problem) Count(name string) int {
	if p.counts == nil {
		return 0
	}
	return p.counts.Get(name)
}
