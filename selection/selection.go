// Package selection implements the selection primitives the breeding
// pipelines drive: the ES parent selector, the SPEA2 binary-tournament
// selector, and the producer-count bookkeeping the (μ,λ) breeder uses to
// catch a pipeline that forgets to call its selector exactly once per
// child (component C4).
package selection

import (
	"math/rand"
	"sort"

	"github.com/evoframe/evocore/fitness"
	"github.com/evoframe/evocore/individual"
)

// ProducedCounter is the explicit replacement for the breeder's implicit
// per-thread counter: a breeding pipeline's ES-selection node increments
// it once per child produced, and the breeder asserts the delta across
// one Produce call is exactly 1.
type ProducedCounter struct {
	n int
}

func (c *ProducedCounter) Value() int { return c.n }
func (c *ProducedCounter) Inc()       { c.n++ }

// ESSelector selects the parent of a child slot under (μ,λ): the parent
// at sorted rank (prevCount % mu), where prevCount is the counter's
// value before this call increments it. Sorted rank 0 is the best
// individual in the subpopulation (subpopulations are kept sorted
// ascending by BetterThan before breeding starts).
type ESSelector struct {
	Mu int
}

// Select returns the next parent and advances counter by one.
func (s ESSelector) Select(ranked []*individual.Individual, counter *ProducedCounter) *individual.Individual {
	idx := counter.Value() % s.Mu
	counter.Inc()
	return ranked[idx]
}

// SPEA2TournamentSelection runs a binary tournament over pool comparing
// SPEA2Fitness ascending — lower wins. Every entry of pool must be
// non-nil and carry SPEA2 fitness; after SPEA2Breeder.LoadElites only
// the last archiveSize slots of oldInds qualify (the others are nil).
func SPEA2TournamentSelection(rng *rand.Rand, pool []*individual.Individual) *individual.Individual {
	i := rng.Intn(len(pool))
	j := rng.Intn(len(pool))
	a, b := pool[i], pool[j]
	fa, ok := a.Fit.(*fitness.SPEA2)
	if !ok {
		panic("selection: SPEA2TournamentSelection requires SPEA2 fitness")
	}
	fb := b.Fit.(*fitness.SPEA2)
	if fa.SPEA2Fitness <= fb.SPEA2Fitness {
		return a
	}
	return b
}

// SortByBetterThan stable-sorts inds ascending by BetterThan so the best
// individual (the one that BetterThan's every later entry) ends up at
// index 0. (μ,λ) and SPEA2 both rely on this ordering before selecting
// parents by rank.
func SortByBetterThan(inds []*individual.Individual) {
	sort.SliceStable(inds, func(i, j int) bool {
		return inds[i].Fit.BetterThan(inds[j].Fit)
	})
}
