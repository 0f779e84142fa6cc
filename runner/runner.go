// Package runner glues one evolutionary generation together end to end
// (component A4): evaluate the current population, breed the next one,
// log each generation's best fitness, and checkpoint the RNG state. It exists
// to exercise the breeding/selection kernel in a single process for
// demonstration and testing; the master/slave protocol in package slave
// is the out-of-process equivalent of the evaluate step.
package runner

import (
	"context"
	"fmt"
	"io"
	"log"

	"github.com/evoframe/evocore/breed"
	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/mtrand"
)

// Problem evaluates one individual of a given subpopulation, the same
// contract the slave package's ProblemForm uses so a runner-based demo
// and a real distributed run can share a problem implementation.
type Problem interface {
	EvaluateSimple(ctx context.Context, subpop int, ind *individual.Individual) error
}

// Breeder is the generation step the runner drives.
// breed.MuLambdaBreeder and breed.MuPlusLambdaBreeder satisfy it;
// breed.SPEA2Breeder does not (it exposes LoadElites, not Breed).
type Breeder interface {
	Breed(ctx context.Context, pop *individual.Population) (*individual.Population, error)
}

// Config configures one runner invocation.
type Config struct {
	Problem     Problem
	Breeder     Breeder
	Generations int

	// Rand carries the RNG state across the run so Checkpoint can persist
	// it; nil disables checkpointing.
	Rand *mtrand.Rand

	// Checkpoint, if non-nil (and Rand is non-nil), is called after every
	// generation to obtain a writer the runner persists Rand's state to
	// and then closes (component C8).
	Checkpoint func() (io.WriteCloser, error)
}

// Stats reports per-generation progress a caller (or test) can inspect.
type Stats struct {
	Generation int
	Best       []float64 // best individual's scalar fitness per subpopulation
}

// Run evaluates pop, then alternates breed/evaluate for Config.Generations
// generations, returning the final population and the per-generation
// stats in order.
func Run(ctx context.Context, cfg Config, pop *individual.Population) (*individual.Population, []Stats, error) {
	if err := evaluateAll(ctx, cfg.Problem, pop); err != nil {
		return nil, nil, fmt.Errorf("runner: initial evaluation: %w", err)
	}

	history := make([]Stats, 0, cfg.Generations)
	for gen := 0; gen < cfg.Generations; gen++ {
		next, err := cfg.Breeder.Breed(ctx, pop)
		if err != nil {
			return nil, nil, fmt.Errorf("runner: generation %d: breeding: %w", gen, err)
		}
		if err := evaluateAll(ctx, cfg.Problem, next); err != nil {
			return nil, nil, fmt.Errorf("runner: generation %d: evaluating: %w", gen, err)
		}
		pop = next

		stats := Stats{Generation: gen, Best: bestPerSubpop(pop)}
		history = append(history, stats)
		log.Printf("runner: generation %d best=%v", gen, stats.Best)

		if err := cfg.checkpoint(); err != nil {
			return nil, nil, fmt.Errorf("runner: generation %d: checkpoint: %w", gen, err)
		}
	}
	return pop, history, nil
}

func evaluateAll(ctx context.Context, problem Problem, pop *individual.Population) error {
	for s, sub := range pop.Subpops {
		for _, ind := range sub.Individuals {
			if ind.Evaluated {
				continue
			}
			if err := problem.EvaluateSimple(ctx, s, ind); err != nil {
				return err
			}
		}
	}
	return nil
}

func bestPerSubpop(pop *individual.Population) []float64 {
	best := make([]float64, len(pop.Subpops))
	for s, sub := range pop.Subpops {
		if len(sub.Individuals) == 0 {
			continue
		}
		winner := sub.Individuals[0]
		for _, ind := range sub.Individuals[1:] {
			if ind.Fit != nil && (winner.Fit == nil || ind.Fit.BetterThan(winner.Fit)) {
				winner = ind
			}
		}
		if winner.Fit != nil {
			best[s] = winner.Fit.Scalar()
		}
	}
	return best
}

func (c *Config) checkpoint() error {
	if c.Checkpoint == nil || c.Rand == nil {
		return nil
	}
	w, err := c.Checkpoint()
	if err != nil {
		return err
	}
	defer w.Close()
	return c.Rand.WriteState(w)
}

var _ Breeder = (*breed.MuLambdaBreeder)(nil)
var _ Breeder = (*breed.MuPlusLambdaBreeder)(nil)
