package vecgenome_test

import (
	"bytes"
	"context"
	"math/rand"
	"testing"

	"github.com/evoframe/evocore/individual"
	"github.com/evoframe/evocore/vecgenome"
)

func testSpecies() *vecgenome.Species {
	return &vecgenome.Species{
		Length:        3,
		Min:           []float64{-1, -1, -1},
		Max:           []float64{1, 1, 1},
		MutationSigma: 0.1,
	}
}

func TestGenomeBinaryRoundTrip(t *testing.T) {
	sp := testSpecies()
	g := vecgenome.New(sp, []float64{0.25, -0.5, 0.75})
	var buf bytes.Buffer
	if err := g.EncodeBinary(&buf); err != nil {
		t.Fatalf("EncodeBinary: %v", err)
	}
	got := vecgenome.New(sp, nil)
	if err := got.DecodeBinary(&buf); err != nil {
		t.Fatalf("DecodeBinary: %v", err)
	}
	for i := range g.Genes {
		if g.Genes[i] != got.Genes[i] {
			t.Fatalf("gene %d mismatch: want %v got %v", i, g.Genes[i], got.Genes[i])
		}
	}
}

func TestGenomeTextRoundTrip(t *testing.T) {
	sp := testSpecies()
	g := vecgenome.New(sp, []float64{1, 0, -1})
	var buf bytes.Buffer
	if err := g.EncodeText(&buf); err != nil {
		t.Fatalf("EncodeText: %v", err)
	}
	got := vecgenome.New(sp, nil)
	if err := got.DecodeText(&buf); err != nil {
		t.Fatalf("DecodeText: %v", err)
	}
	for i := range g.Genes {
		if g.Genes[i] != got.Genes[i] {
			t.Fatalf("gene %d mismatch: want %v got %v", i, g.Genes[i], got.Genes[i])
		}
	}
}

func TestCloneDeepCopiesGenesSharesSpecies(t *testing.T) {
	sp := testSpecies()
	g := vecgenome.New(sp, []float64{0, 0, 0})
	clone := g.Clone().(*vecgenome.Genome)
	clone.Genes[0] = 99
	if g.Genes[0] == 99 {
		t.Fatalf("expected Clone to deep-copy genes")
	}
	if clone.Species != sp {
		t.Fatalf("expected Clone to share the species pointer")
	}
}

func TestMutateStaysWithinBounds(t *testing.T) {
	sp := &vecgenome.Species{Length: 1, Min: []float64{-0.01}, Max: []float64{0.01}, MutationSigma: 10}
	g := vecgenome.New(sp, []float64{0})
	rng := rand.New(rand.NewSource(1))
	for i := 0; i < 100; i++ {
		g.Mutate(rng)
		if g.Genes[0] < sp.Min[0] || g.Genes[0] > sp.Max[0] {
			t.Fatalf("mutated gene %v escaped bounds [%v,%v]", g.Genes[0], sp.Min[0], sp.Max[0])
		}
	}
}

func TestSphereProblemPrefersOriginUnderMaximization(t *testing.T) {
	sp := testSpecies()
	near := &individual.Individual{Genome: vecgenome.New(sp, []float64{0.01, 0, 0})}
	far := &individual.Individual{Genome: vecgenome.New(sp, []float64{0.9, 0.9, 0.9})}

	var prob vecgenome.SphereProblem
	if err := prob.EvaluateSimple(context.Background(), 0, near); err != nil {
		t.Fatalf("EvaluateSimple(near): %v", err)
	}
	if err := prob.EvaluateSimple(context.Background(), 0, far); err != nil {
		t.Fatalf("EvaluateSimple(far): %v", err)
	}
	if !near.Evaluated || !far.Evaluated {
		t.Fatalf("expected both individuals to be marked Evaluated")
	}
	if !near.Fit.BetterThan(far.Fit) {
		t.Fatalf("expected the point closer to the origin to have better fitness")
	}
}
