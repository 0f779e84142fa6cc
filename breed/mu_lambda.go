package breed

import (
	"context"
	"fmt"
	"log"

	"golang.org/x/sync/errgroup"

	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/selection"
)

// Comparison classifies a subpopulation's generation against the
// canonical 1/5-success-rule threshold.
type Comparison int8

const (
	UnderOneFifth Comparison = iota - 1
	ExactlyOneFifth
	OverOneFifth
)

// MuLambdaBreeder drives a (μ,λ) evolution strategy: each subpopulation
// s keeps its best Mu[s] individuals and produces Lambda[s] children
// from them every generation (Lambda[s] must be a multiple of Mu[s],
// enforced at construction). Within each breeding thread's slot range,
// parents are assigned round-robin by rank (see selection.ESSelector), so
// each parent gets exactly Lambda[s]/Mu[s] children only when every
// thread's range is a multiple of Mu[s].
type MuLambdaBreeder struct {
	Mu           []int
	Lambda       []int
	BreedThreads int
	Pipelines    []Pipeline

	comparison       []Comparison
	parentPopulation *individual.Population
}

// NewMuLambdaBreeder validates that every subpopulation's Lambda is a
// multiple of its Mu (REDESIGN FLAG: the source's mu-divides-lambda
// check was written as "mu must be a multiple of lambda" with the
// operands swapped — the requirement enforced here is the corrected
// one).
func NewMuLambdaBreeder(mu, lambda []int, breedThreads int, pipelines []Pipeline) (*MuLambdaBreeder, error) {
	if len(mu) != len(lambda) || len(mu) != len(pipelines) {
		return nil, fmt.Errorf("breed: mu/lambda/pipelines length mismatch (%d/%d/%d)", len(mu), len(lambda), len(pipelines))
	}
	for s := range mu {
		if mu[s] <= 0 || lambda[s] <= 0 {
			return nil, fmt.Errorf("breed: subpop %d: mu and lambda must be positive", s)
		}
		if lambda[s]%mu[s] != 0 {
			return nil, fmt.Errorf("breed: subpop %d: lambda must be a multiple of mu", s)
		}
	}
	if breedThreads < 1 {
		breedThreads = 1
	}
	return &MuLambdaBreeder{Mu: mu, Lambda: lambda, BreedThreads: breedThreads, Pipelines: pipelines}, nil
}

// Breed runs one generation: statistics against the prior parent
// population (if any), rank-sorts pop in place, then produces Lambda[s]
// children per subpopulation across BreedThreads goroutines.
func (b *MuLambdaBreeder) Breed(ctx context.Context, pop *individual.Population) (*individual.Population, error) {
	if len(pop.Subpops) != len(b.Mu) {
		return nil, fmt.Errorf("breed: population has %d subpops, breeder configured for %d", len(pop.Subpops), len(b.Mu))
	}
	for s, sub := range pop.Subpops {
		if len(sub.Individuals) < b.Mu[s] {
			return nil, fmt.Errorf("breed: subpop %d has %d individuals, need at least mu=%d", s, len(sub.Individuals), b.Mu[s])
		}
	}

	if b.parentPopulation != nil {
		b.computeStatistics(pop)
	}
	b.parentPopulation = pop

	for _, sub := range pop.Subpops {
		selection.SortByBetterThan(sub.Individuals)
	}

	newpop := pop.EmptyClone()
	for s, sub := range pop.Subpops {
		newpop.Subpops[s].Individuals = make([]*individual.Individual, b.Lambda[s])
		if err := b.breedSubpop(ctx, s, sub, newpop.Subpops[s].Individuals); err != nil {
			return nil, fmt.Errorf("breed: subpop %d: %w", s, err)
		}
	}
	return newpop, nil
}

// Comparison returns the 1/5-rule classification computed for subpop s
// during the most recent Breed call (ExactlyOneFifth before the first
// generation, when there is no prior parent population to compare
// against).
func (b *MuLambdaBreeder) Comparison(subpop int) Comparison {
	if subpop >= len(b.comparison) {
		return ExactlyOneFifth
	}
	return b.comparison[subpop]
}

func (b *MuLambdaBreeder) computeStatistics(children *individual.Population) {
	b.comparison = make([]Comparison, len(children.Subpops))
	for s, sub := range children.Subpops {
		lambda, mu := b.Lambda[s], b.Mu[s]
		groupSize := lambda / mu
		parentSub := b.parentPopulation.Subpops[s]

		better := 0
		for i := 0; i < lambda && i < len(sub.Individuals); i++ {
			parentIdx := i / groupSize
			if parentIdx >= len(parentSub.Individuals) {
				continue
			}
			child := sub.Individuals[i]
			parent := parentSub.Individuals[parentIdx]
			if child.Fit.BetterThan(parent.Fit) {
				better++
			}
		}

		threshold := float64(lambda) / 5.0
		switch {
		case float64(better) > threshold:
			b.comparison[s] = OverOneFifth
		case float64(better) < threshold:
			b.comparison[s] = UnderOneFifth
		default:
			b.comparison[s] = ExactlyOneFifth
		}
	}
}

// breedSubpop divides Lambda[s] child slots across BreedThreads
// goroutines via errgroup, each driving its own clone of the subpop's
// pipeline. A pipeline that returns an error aborts the whole
// generation's breeding (errgroup propagates the first error and
// cancels the others' context); a Produce call that yields other than
// one child, or that fires the ES selector other than once, is an
// invariant violation and is fatal immediately, matching the "abort
// process" requirement for programmer errors. Each thread's pipeline
// clone is made here, in thread order, before the goroutines start.
func (b *MuLambdaBreeder) breedSubpop(ctx context.Context, s int, source *individual.Subpopulation, dest []*individual.Individual) error {
	lambda := len(dest)
	threads := b.BreedThreads
	if threads > lambda {
		threads = lambda
	}
	if threads < 1 {
		threads = 1
	}
	chunk := lambda / threads

	g, gctx := errgroup.WithContext(ctx)
	for th := 0; th < threads; th++ {
		th := th
		start := th * chunk
		end := start + chunk
		if th == threads-1 {
			end = lambda
		}
		pipeline := b.Pipelines[s].Clone()
		g.Go(func() error {
			return b.breedRange(gctx, s, pipeline, source, dest, start, end, th)
		})
	}
	return g.Wait()
}

func (b *MuLambdaBreeder) breedRange(ctx context.Context, s int, pipeline Pipeline, source *individual.Subpopulation, dest []*individual.Individual, start, end, thread int) error {
	counter := &selection.ProducedCounter{}
	pipeline.PrepareToProduce()
	defer pipeline.FinishProducing()

	for slot := start; slot < end; slot++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		prev := counter.Value()
		n, err := pipeline.Produce(1, 1, s, source, dest[slot:slot+1], thread, counter)
		if err != nil {
			return fmt.Errorf("slot %d: %w", slot, err)
		}
		if n != 1 {
			log.Fatalf("breed: pipeline produced %d individuals for child %d of subpop %d, want exactly 1", n, slot, s)
		}
		if delta := counter.Value() - prev; delta != 1 {
			log.Fatalf("breed: ES selector invoked %d times producing child %d of subpop %d, want exactly 1", delta, slot, s)
		}
	}
	return nil
}

// MuPlusLambdaBreeder is the (μ+λ) variant: parents compete with their
// own offspring for survival, implemented by merging the top-μ ranked
// parents into each subpopulation's newly bred children.
type MuPlusLambdaBreeder struct {
	MuLambdaBreeder
}

func (b *MuPlusLambdaBreeder) Breed(ctx context.Context, pop *individual.Population) (*individual.Population, error) {
	newpop, err := b.MuLambdaBreeder.Breed(ctx, pop)
	if err != nil {
		return nil, err
	}
	for s, sub := range newpop.Subpops {
		mu := b.Mu[s]
		parents := pop.Subpops[s].Individuals[:mu]
		merged := make([]*individual.Individual, 0, len(sub.Individuals)+mu)
		merged = append(merged, sub.Individuals...)
		for _, p := range parents {
			merged = append(merged, p.Clone())
		}
		sub.Individuals = merged
	}
	return newpop, nil
}
