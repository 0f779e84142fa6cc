// Package vecgenome is the out-of-scope "concrete vector-genome
// operators" collaborator given a minimal, real implementation so the
// breeding/selection kernel has something genuine to exercise end to
// end: a fixed-length float64 vector genome, Gaussian mutation,
// uniform crossover, and a trivial sphere-function evaluator.
package vecgenome

import (
	"context"
	"encoding/binary"
	"fmt"
	"io"
	"math/rand"
	"strconv"

	"github.com/evoframe/evocore/breed"
	"github.com/evoframe/evocore/fitness"
	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/selection"
)

// Species is the shared, read-only prototype every Genome of one kind
// points to: gene count, per-gene bounds, and the mutation step size.
// Genome.Clone deep-copies Genes but shares this pointer.
type Species struct {
	Length        int
	Min           []float64
	Max           []float64
	MutationSigma float64
}

// Genome is a fixed-length real-valued vector.
type Genome struct {
	Genes   []float64
	Species *Species
}

// New returns a Genome of the given species. If genes is nil, it is
// allocated to Species.Length zero-valued entries.
func New(species *Species, genes []float64) *Genome {
	if genes == nil {
		genes = make([]float64, species.Length)
	}
	return &Genome{Genes: genes, Species: species}
}

// NewGenomeFactory returns the newGenome callback individual.ReadBinary
// and individual.ReadText expect: it allocates a Genome already bound to
// species so decode only needs to fill in gene values.
func NewGenomeFactory(species *Species) func() individual.Genome {
	return func() individual.Genome { return New(species, nil) }
}

func (g *Genome) Clone() individual.Genome {
	return &Genome{Genes: append([]float64(nil), g.Genes...), Species: g.Species}
}

func (g *Genome) Len() int { return len(g.Genes) }

func (g *Genome) EncodeBinary(w io.Writer) error {
	if err := binary.Write(w, binary.BigEndian, int32(len(g.Genes))); err != nil {
		return err
	}
	return binary.Write(w, binary.BigEndian, g.Genes)
}

func (g *Genome) DecodeBinary(r io.Reader) error {
	var n int32
	if err := binary.Read(r, binary.BigEndian, &n); err != nil {
		return err
	}
	genes := make([]float64, n)
	if err := binary.Read(r, binary.BigEndian, genes); err != nil {
		return err
	}
	g.Genes = genes
	return nil
}

func (g *Genome) EncodeText(w io.Writer) error {
	if err := individual.WriteIntToken(w, int32(len(g.Genes))); err != nil {
		return err
	}
	for _, v := range g.Genes {
		if err := individual.WriteDoubleToken(w, v); err != nil {
			return err
		}
	}
	return nil
}

func (g *Genome) DecodeText(r io.Reader) error {
	b, err := io.ReadAll(r)
	if err != nil {
		return err
	}
	sc := individual.NewTokenScanner(string(b))
	_, lenVal, err := sc.Next()
	if err != nil {
		return fmt.Errorf("vecgenome: reading gene count: %w", err)
	}
	n, err := strconv.Atoi(lenVal)
	if err != nil {
		return err
	}
	genes := make([]float64, n)
	for i := 0; i < n; i++ {
		prefix, val, err := sc.Next()
		if err != nil {
			return fmt.Errorf("vecgenome: reading gene %d: %w", i, err)
		}
		if prefix != individual.TokenDouble {
			return fmt.Errorf("vecgenome: expected double token for gene %d, got %q", i, prefix)
		}
		v, err := strconv.ParseFloat(val, 64)
		if err != nil {
			return err
		}
		genes[i] = v
	}
	g.Genes = genes
	return nil
}

// Mutate perturbs every gene by N(0, sigma^2) and clamps to [min,max].
func (g *Genome) Mutate(rng *rand.Rand) {
	sp := g.Species
	for i := range g.Genes {
		v := g.Genes[i] + rng.NormFloat64()*sp.MutationSigma
		if v < sp.Min[i] {
			v = sp.Min[i]
		}
		if v > sp.Max[i] {
			v = sp.Max[i]
		}
		g.Genes[i] = v
	}
}

// Crossover returns a child that takes each gene whole from either a or
// b, chosen with equal probability per position (uniform crossover).
func Crossover(rng *rand.Rand, a, b *Genome) *Genome {
	child := New(a.Species, make([]float64, len(a.Genes)))
	for i := range child.Genes {
		if rng.Intn(2) == 0 {
			child.Genes[i] = a.Genes[i]
		} else {
			child.Genes[i] = b.Genes[i]
		}
	}
	return child
}

// SphereProblem evaluates genomes by the negated sphere function
// (-sum(x_i^2)), so the optimum sits at the origin under maximization —
// a trivial ProblemForm for slave-side testing and demos.
type SphereProblem struct{}

func (SphereProblem) EvaluateSimple(ctx context.Context, subpop int, ind *individual.Individual) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	g, ok := ind.Genome.(*Genome)
	if !ok {
		return fmt.Errorf("vecgenome: SphereProblem requires a vecgenome.Genome, got %T", ind.Genome)
	}
	var sum float64
	for _, v := range g.Genes {
		sum += v * v
	}
	ind.Fit = &fitness.ScalarFitness{Value: -sum}
	ind.Evaluated = true
	return nil
}

// MutationPipeline is a breed.Pipeline: select one parent via ESSelector,
// clone it, mutate the clone. It is the concrete pipeline a
// MuLambdaBreeder drives for a vecgenome subpopulation.
type MutationPipeline struct {
	Mu  int
	rng *rand.Rand
}

// NewMutationPipeline seeds a fresh RNG for the prototype pipeline;
// Clone gives every breeding thread its own RNG seeded from the
// prototype's stream, so runs with the same seed and the same thread
// count are reproducible while each thread draws its own stream. A
// different thread count gives different streams.
func NewMutationPipeline(mu int, seed int64) *MutationPipeline {
	return &MutationPipeline{Mu: mu, rng: rand.New(rand.NewSource(seed))}
}

func (p *MutationPipeline) Clone() breed.Pipeline {
	return &MutationPipeline{Mu: p.Mu, rng: rand.New(rand.NewSource(p.rng.Int63()))}
}

func (p *MutationPipeline) PrepareToProduce() {}
func (p *MutationPipeline) FinishProducing()  {}

func (p *MutationPipeline) Produce(min, max, subpop int, source *individual.Subpopulation, out []*individual.Individual, thread int, counter *selection.ProducedCounter) (int, error) {
	sel := selection.ESSelector{Mu: p.Mu}
	parent := sel.Select(source.Individuals, counter)
	parentGenome, ok := parent.Genome.(*Genome)
	if !ok {
		return 0, fmt.Errorf("vecgenome: MutationPipeline requires vecgenome genomes, got %T", parent.Genome)
	}
	child := parentGenome.Clone().(*Genome)
	child.Mutate(p.rng)
	out[0] = &individual.Individual{Genome: child}
	return 1, nil
}

// simpleProblem is the same shape as slave.ProblemForm, restated locally
// so this package need not import slave (which would invert the natural
// dependency direction: slave is the protocol host, vecgenome is a
// problem/genome plugged into it). Any type satisfying slave.ProblemForm,
// such as SphereProblem, satisfies this too.
type simpleProblem interface {
	EvaluateSimple(ctx context.Context, subpop int, ind *individual.Individual) error
}

// ReEvolveState is a slave.ReEvolver: a miniature (μ,λ) run over a single
// subpopulation, used when a master requests local re-evolution
// (run-evolve=true, spec §4.6). Step breeds one generation and
// evaluates the children with problem, then keeps the bred population
// as the new subpop 0. It never reports done on its own (this species'
// evaluator has no natural convergence signal); the slave's wall-clock
// bound is what ends the loop in practice.
type ReEvolveState struct {
	breeder *breed.MuLambdaBreeder
	problem simpleProblem
	pop     *individual.Population
}

// NewReEvolveState builds a ReEvolveState seeded with the given
// individuals as its only subpopulation, mutating via sigma-sized
// Gaussian perturbation around the species prototype already attached
// to the seed genomes.
func NewReEvolveState(seed *individual.Subpopulation, mu, lambda int, seedRand int64, problem simpleProblem) (*ReEvolveState, error) {
	if len(seed.Individuals) == 0 {
		return nil, fmt.Errorf("vecgenome: re-evolution seed subpopulation is empty")
	}
	pipeline := NewMutationPipeline(mu, seedRand)
	b, err := breed.NewMuLambdaBreeder([]int{mu}, []int{lambda}, 1, []breed.Pipeline{pipeline})
	if err != nil {
		return nil, err
	}
	pop := &individual.Population{Subpops: []*individual.Subpopulation{{
		Individuals: seed.Individuals,
		Species:     seed.Species,
	}}}
	return &ReEvolveState{breeder: b, problem: problem, pop: pop}, nil
}

func (s *ReEvolveState) Step(ctx context.Context) (bool, error) {
	next, err := s.breeder.Breed(ctx, s.pop)
	if err != nil {
		return false, err
	}
	for _, ind := range next.Subpops[0].Individuals {
		if err := s.problem.EvaluateSimple(ctx, 0, ind); err != nil {
			return false, err
		}
	}
	s.pop = next
	return false, nil
}

func (s *ReEvolveState) Subpop0() *individual.Subpopulation {
	return s.pop.Subpops[0]
}
