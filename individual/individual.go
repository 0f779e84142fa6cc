// Package individual defines the Individual/Population data model shared
// by the breeding and selection kernel (spec §3) and the concrete genome
// codec used to move individuals across the wire or to a checkpoint file
// (component C2).
package individual

import (
	"io"

	"github.com/evoframe/evocore/fitness"
)

// Genome is satisfied by any concrete genome representation (vecgenome's
// float vector, or any future genome kind). Clone must deep-copy genes
// while sharing any read-only species/prototype handle, matching the
// data model's "deep copy of genome; shared read-only species handle"
// clause.
type Genome interface {
	Clone() Genome
	Len() int
	EncodeBinary(w io.Writer) error
	DecodeBinary(r io.Reader) error
	EncodeText(w io.Writer) error
	DecodeText(r io.Reader) error
}

// Individual pairs a genome with its fitness. Evaluated is false until a
// ProblemForm has scored the genome; breeding never inspects Fit on an
// unevaluated individual.
type Individual struct {
	Genome    Genome
	Fit       fitness.Fitness
	Evaluated bool
}

// Clone deep-copies the genome and fitness. A freshly bred, not-yet
// evaluated individual has Fit == nil.
func (ind *Individual) Clone() *Individual {
	var f fitness.Fitness
	if ind.Fit != nil {
		f = ind.Fit.Clone()
	}
	return &Individual{
		Genome:    ind.Genome.Clone(),
		Fit:       f,
		Evaluated: ind.Evaluated,
	}
}
