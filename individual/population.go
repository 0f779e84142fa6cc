package individual

// Species is the shared, read-only handle each individual in a
// subpopulation points to. Genomes never copy it.
type Species struct {
	Name string
}

// Subpopulation is one breeding population of a possibly multi-species
// run. ArchiveSize is only meaningful for SPEA2 subpopulations (the A in
// the archive-truncation algorithm); it is zero for plain (μ,λ) subpops.
type Subpopulation struct {
	Individuals []*Individual
	ArchiveSize int
	Species     *Species
}

// Population is the full set of subpopulations bred and evaluated
// together each generation.
type Population struct {
	Subpops []*Subpopulation
}

// EmptyClone returns a new Population with the same shape (subpop count,
// archive sizes, species handles) but no individuals — the scaffold a
// breeder fills in while producing the next generation.
func (p *Population) EmptyClone() *Population {
	np := &Population{Subpops: make([]*Subpopulation, len(p.Subpops))}
	for i, s := range p.Subpops {
		np.Subpops[i] = &Subpopulation{ArchiveSize: s.ArchiveSize, Species: s.Species}
	}
	return np
}

// DeepClone copies every individual along with the population shape.
func (p *Population) DeepClone() *Population {
	np := p.EmptyClone()
	for i, s := range p.Subpops {
		np.Subpops[i].Individuals = make([]*Individual, len(s.Individuals))
		for j, ind := range s.Individuals {
			np.Subpops[i].Individuals[j] = ind.Clone()
		}
	}
	return np
}
