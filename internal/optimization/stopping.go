package optimization

import (
	"fmt"
	"strings"
	"time"

	"github.com/mstokkenes/manopt/internal/manifold"
)

// StoppingCriterion decides when a solve terminates. Criteria are stateful:
// some carry counters or snapshots updated on every call, so one instance
// must not be shared between independent runs without Reset.
type StoppingCriterion interface {
	// Done is evaluated by the solve loop after every step (and once with
	// k = 0 before the first one).
	Done(prob *Problem, s State, k int) bool

	// Reason returns a human-readable cause, empty until triggered.
	Reason() string

	// Reset clears any internal counters so the criterion can be reused.
	Reset()
}

// StopAfterIteration terminates at iteration >= n.
type StopAfterIteration struct {
	N      int
	reason string
}

// NewStopAfterIteration creates an iteration bound criterion.
func NewStopAfterIteration(n int) *StopAfterIteration {
	return &StopAfterIteration{N: n}
}

func (c *StopAfterIteration) Done(prob *Problem, s State, k int) bool {
	if k >= c.N {
		c.reason = fmt.Sprintf("reached the maximal number of iterations (%d)", c.N)
		return true
	}
	return false
}

func (c *StopAfterIteration) Reason() string { return c.reason }
func (c *StopAfterIteration) Reset()         { c.reason = "" }

// StopWhenChangeLess terminates once the distance between consecutive
// iterates falls below Eps. It requires a distance-capable manifold, which
// the capability interface guarantees.
type StopWhenChangeLess struct {
	Eps    float64
	prev   []float64
	reason string
}

// NewStopWhenChangeLess creates an iterate-change criterion.
func NewStopWhenChangeLess(eps float64) *StopWhenChangeLess {
	return &StopWhenChangeLess{Eps: eps}
}

func (c *StopWhenChangeLess) Done(prob *Problem, s State, k int) bool {
	x := Unwrap(s).Iterate()
	if c.prev == nil {
		c.prev = manifold.CopyPoint(prob.Manifold(), x)
		return false
	}
	d := prob.Manifold().Dist(c.prev, x)
	copy(c.prev, x)
	if k > 0 && d < c.Eps {
		c.reason = fmt.Sprintf("iterate change %.3e fell below %.3e", d, c.Eps)
		return true
	}
	return false
}

func (c *StopWhenChangeLess) Reason() string { return c.reason }
func (c *StopWhenChangeLess) Reset()         { c.prev = nil; c.reason = "" }

// StopWhenGradientNormLess terminates once the Riemannian gradient norm at
// the iterate falls below Eps. It requires a gradient-capable objective.
type StopWhenGradientNormLess struct {
	Eps    float64
	grad   []float64
	reason string
}

// NewStopWhenGradientNormLess creates a gradient-norm criterion.
func NewStopWhenGradientNormLess(eps float64) *StopWhenGradientNormLess {
	return &StopWhenGradientNormLess{Eps: eps}
}

func (c *StopWhenGradientNormLess) Done(prob *Problem, s State, k int) bool {
	if !prob.HasGradient() {
		return false
	}
	x := Unwrap(s).Iterate()
	if c.grad == nil {
		c.grad = manifold.NewVector(prob.Manifold())
	}
	if err := prob.Gradient(c.grad, x); err != nil {
		return false
	}
	n := prob.Manifold().Norm(x, c.grad)
	if k > 0 && n < c.Eps {
		c.reason = fmt.Sprintf("gradient norm %.3e fell below %.3e", n, c.Eps)
		return true
	}
	return false
}

func (c *StopWhenGradientNormLess) Reason() string { return c.reason }
func (c *StopWhenGradientNormLess) Reset()         { c.reason = "" }

// StopWhenCostLess terminates once the cost at the iterate falls below the
// threshold.
type StopWhenCostLess struct {
	Threshold float64
	reason    string
}

// NewStopWhenCostLess creates a cost threshold criterion.
func NewStopWhenCostLess(threshold float64) *StopWhenCostLess {
	return &StopWhenCostLess{Threshold: threshold}
}

func (c *StopWhenCostLess) Done(prob *Problem, s State, k int) bool {
	f := prob.Cost(Unwrap(s).Iterate())
	if k > 0 && f < c.Threshold {
		c.reason = fmt.Sprintf("cost %.3e fell below %.3e", f, c.Threshold)
		return true
	}
	return false
}

func (c *StopWhenCostLess) Reason() string { return c.reason }
func (c *StopWhenCostLess) Reset()         { c.reason = "" }

// StopAfter terminates once the wall-clock time since the first evaluation
// exceeds the limit. There is no built-in timeout beyond composing this
// criterion like any other.
type StopAfter struct {
	Limit  time.Duration
	start  time.Time
	reason string
}

// NewStopAfter creates a wall-clock criterion.
func NewStopAfter(limit time.Duration) *StopAfter {
	return &StopAfter{Limit: limit}
}

func (c *StopAfter) Done(prob *Problem, s State, k int) bool {
	if c.start.IsZero() {
		c.start = time.Now()
		return false
	}
	if el := time.Since(c.start); el >= c.Limit {
		c.reason = fmt.Sprintf("runtime %v exceeded the limit %v", el.Round(time.Millisecond), c.Limit)
		return true
	}
	return false
}

func (c *StopAfter) Reason() string { return c.reason }
func (c *StopAfter) Reset()         { c.start = time.Time{}; c.reason = "" }

// StopWhenStateChangeLess is the generic entry-change criterion: Snapshot
// extracts a flattened copy of some state entry and Metric measures the
// change between consecutive snapshots. The swarm solver uses it with the
// power manifold distance over all particle positions.
type StopWhenStateChangeLess struct {
	Eps      float64
	Snapshot func(s State) []float64
	Metric   func(prev, cur []float64) float64

	prev   []float64
	reason string
}

// NewStopWhenStateChangeLess creates a generic entry-change criterion.
func NewStopWhenStateChangeLess(eps float64, snapshot func(s State) []float64, metric func(prev, cur []float64) float64) *StopWhenStateChangeLess {
	return &StopWhenStateChangeLess{Eps: eps, Snapshot: snapshot, Metric: metric}
}

func (c *StopWhenStateChangeLess) Done(prob *Problem, s State, k int) bool {
	cur := c.Snapshot(Unwrap(s))
	if c.prev == nil {
		c.prev = cur
		return false
	}
	d := c.Metric(c.prev, cur)
	c.prev = cur
	if k > 0 && d < c.Eps {
		c.reason = fmt.Sprintf("state change %.3e fell below %.3e", d, c.Eps)
		return true
	}
	return false
}

func (c *StopWhenStateChangeLess) Reason() string { return c.reason }
func (c *StopWhenStateChangeLess) Reset()         { c.prev = nil; c.reason = "" }

// allOf is the AND combinator. Every child is evaluated on every call, no
// short circuit, because children carry side-effecting counters. A child
// that has triggered once stays triggered; the combinator is done when all
// children have triggered.
type allOf struct {
	children  []StoppingCriterion
	triggered []bool
}

// And combines criteria so that termination requires every one of them to
// have triggered.
func And(criteria ...StoppingCriterion) StoppingCriterion {
	return &allOf{children: criteria, triggered: make([]bool, len(criteria))}
}

func (c *allOf) Done(prob *Problem, s State, k int) bool {
	done := true
	for i, child := range c.children {
		if child.Done(prob, s, k) {
			c.triggered[i] = true
		}
		done = done && c.triggered[i]
	}
	return done
}

func (c *allOf) Reason() string {
	return joinReasons(c.children)
}

func (c *allOf) Reset() {
	for i, child := range c.children {
		child.Reset()
		c.triggered[i] = false
	}
}

// anyOf is the OR combinator, with the same full-evaluation rule as allOf.
type anyOf struct {
	children  []StoppingCriterion
	triggered []bool
}

// Or combines criteria so that termination requires at least one of them to
// have triggered.
func Or(criteria ...StoppingCriterion) StoppingCriterion {
	return &anyOf{children: criteria, triggered: make([]bool, len(criteria))}
}

func (c *anyOf) Done(prob *Problem, s State, k int) bool {
	done := false
	for i, child := range c.children {
		if child.Done(prob, s, k) {
			c.triggered[i] = true
		}
		done = done || c.triggered[i]
	}
	return done
}

func (c *anyOf) Reason() string {
	return joinReasons(c.children)
}

func (c *anyOf) Reset() {
	for i, child := range c.children {
		child.Reset()
		c.triggered[i] = false
	}
}

func joinReasons(children []StoppingCriterion) string {
	var parts []string
	for _, child := range children {
		if r := child.Reason(); r != "" {
			parts = append(parts, r)
		}
	}
	return strings.Join(parts, "; ")
}
