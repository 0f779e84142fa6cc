// Package breed implements the (μ,λ)/(μ+λ) evolution-strategy breeder
// and the SPEA2 archive truncation algorithm (components C5 and C6).
package breed

import (
	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/selection"
)

// Pipeline is a user-composed breeding graph: a tree of selection and
// variation operators that produces one child individual per call to
// Produce. Pipelines are cloned once per breeding thread so each thread
// gets its own scratch state (e.g. its own crossover/mutation RNG) while
// the prototype stays reusable across generations.
type Pipeline interface {
	// Clone returns an independent copy suitable for a single breeding
	// thread. Implementations typically deep-copy any internal RNG.
	Clone() Pipeline

	// PrepareToProduce is called once per generation, before the first
	// Produce call on this clone.
	PrepareToProduce()

	// Produce writes between min and max individuals into out (never
	// more than len(out)) for subpop subpopIdx, sourcing parents from
	// source (already rank-sorted by the breeder). Every selection of a
	// parent through an ESSelector node must call counter.Inc() exactly
	// once per child — the breeder asserts this after each call.
	Produce(min, max, subpopIdx int, source *individual.Subpopulation, out []*individual.Individual, thread int, counter *selection.ProducedCounter) (n int, err error)

	// FinishProducing is called once per generation after the last
	// Produce call on this clone.
	FinishProducing()
}
