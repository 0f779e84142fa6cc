package breed

import (
	"fmt"
	"math"
	"sort"

	"github.com/evoframe/evocore/fitness"
	"github.com/evoframe/evocore/individual"
)

// SPEA2Breeder performs archive truncation by nearest-neighbor iterative
// pruning. It is single-threaded and runs once per generation, before
// the rest of the breeding pipeline selects parents from the resulting
// archive via selection.SPEA2TournamentSelection.
type SPEA2Breeder struct {
	scratch []*spea2Scratch
}

type spea2Scratch struct {
	distances   [][]float64
	sortedIndex [][]int
	cap         int
}

func (b *SPEA2Breeder) scratchFor(subpop, need int) *spea2Scratch {
	for len(b.scratch) <= subpop {
		b.scratch = append(b.scratch, &spea2Scratch{})
	}
	sc := b.scratch[subpop]
	if sc.cap < need {
		sc.distances = make([][]float64, need)
		sc.sortedIndex = make([][]int, need)
		for i := range sc.distances {
			sc.distances[i] = make([]float64, need)
			sc.sortedIndex[i] = make([]int, need)
		}
		sc.cap = need
	}
	return sc
}

func spea2Of(ind *individual.Individual) *fitness.SPEA2 {
	f, ok := ind.Fit.(*fitness.SPEA2)
	if !ok {
		panic(fmt.Sprintf("breed: SPEA2 archive truncation requires SPEA2 fitness, got %T", ind.Fit))
	}
	return f
}

// LoadElites truncates oldInds down to archiveSize survivors, cloning
// them into the top archiveSize slots of newInds (newInds[len-1] holds
// the best-ranked survivor, counting down), and rotates oldInds in
// place so the surviving (un-cloned) individuals occupy its last
// archiveSize slots too — callers that keep a handle to oldInds as a
// parent pool for SPEA2TournamentSelection see the archive at the high
// end of the array after this call.
func (b *SPEA2Breeder) LoadElites(subpop int, oldInds []*individual.Individual, newInds []*individual.Individual, archiveSize int) error {
	n := len(oldInds)
	if archiveSize < 0 || archiveSize > n {
		return fmt.Errorf("breed: spea2: archive size %d out of range for %d individuals", archiveSize, n)
	}
	if len(newInds) < n {
		return fmt.Errorf("breed: spea2: newInds must have length >= %d, got %d", n, len(newInds))
	}

	sort.SliceStable(oldInds, func(i, j int) bool {
		return spea2Of(oldInds[i]).SPEA2Fitness < spea2Of(oldInds[j]).SPEA2Fitness
	})

	nIndex := 0
	for nIndex < n && spea2Of(oldInds[nIndex]).SPEA2Fitness < 1 {
		nIndex++
	}

	// REDESIGN FLAG: nIndex <= A (including the all-dominated nIndex==0
	// case) keeps the first A sorted entries unchanged rather than
	// treating it as undefined.
	if nIndex <= archiveSize {
		keep := archiveSize
		if keep > n {
			keep = n
		}
		for i := keep; i < n; i++ {
			oldInds[i] = nil
		}
		return b.finish(oldInds, newInds, archiveSize)
	}

	b.truncateByDensity(subpop, oldInds, nIndex, archiveSize)
	return b.finish(oldInds, newInds, archiveSize)
}

func (b *SPEA2Breeder) truncateByDensity(subpop int, oldInds []*individual.Individual, nIndex, archiveSize int) {
	sc := b.scratchFor(subpop, nIndex)

	for i := 0; i < nIndex; i++ {
		for j := i; j < nIndex; j++ {
			var d float64
			if i == j {
				d = -1
			} else {
				d = spea2Of(oldInds[i]).CalcDistance(&spea2Of(oldInds[j]).MultiObjective)
			}
			sc.distances[i][j] = d
			sc.distances[j][i] = d
		}
	}
	for i := 0; i < nIndex; i++ {
		row := sc.sortedIndex[i][:nIndex]
		for k := range row {
			row[k] = k
		}
		sort.SliceStable(row, func(x, y int) bool {
			return sc.distances[i][row[x]] < sc.distances[i][row[y]]
		})
	}

	alive := make([]bool, nIndex)
	for i := range alive {
		alive[i] = true
	}
	mf := nIndex
	for mf > archiveSize {
		minpos := -1
		for i := 0; i < nIndex; i++ {
			if !alive[i] {
				continue
			}
			if minpos == -1 || lessNeighborSequence(sc, i, minpos, mf) {
				minpos = i
			}
		}
		alive[minpos] = false
		for i := 0; i < nIndex; i++ {
			if !alive[i] {
				continue
			}
			sc.distances[i][minpos] = math.Inf(1)
			sc.distances[minpos][i] = math.Inf(1)
			// Bubble minpos to the end of the valid prefix, keeping the
			// remaining entries in ascending distance order.
			row := sc.sortedIndex[i]
			for p := 0; p < mf; p++ {
				if row[p] == minpos {
					copy(row[p:mf-1], row[p+1:mf])
					row[mf-1] = minpos
					break
				}
			}
		}
		oldInds[minpos] = nil
		mf--
	}
}

// lessNeighborSequence compares two rows' ascending nearest-neighbor
// distance sequences lexicographically (skipping position 0, each row's
// self-distance sentinel). The row whose sequence is smaller sits in a
// denser region and is the next candidate for removal.
func lessNeighborSequence(sc *spea2Scratch, i, j, mf int) bool {
	for k := 1; k < mf; k++ {
		di := sc.distances[i][sc.sortedIndex[i][k]]
		dj := sc.distances[j][sc.sortedIndex[j][k]]
		if di != dj {
			return di < dj
		}
	}
	return false
}

func (b *SPEA2Breeder) finish(oldInds []*individual.Individual, newInds []*individual.Individual, archiveSize int) error {
	n := len(oldInds)
	survivors := make([]*individual.Individual, 0, archiveSize)
	for _, ind := range oldInds {
		if ind != nil {
			survivors = append(survivors, ind)
		}
	}
	if len(survivors) != archiveSize {
		return fmt.Errorf("breed: spea2: truncation produced %d survivors, want %d", len(survivors), archiveSize)
	}

	for i, ind := range survivors {
		newInds[len(newInds)-1-i] = ind.Clone()
	}

	for i := range oldInds {
		oldInds[i] = nil
	}
	for i, ind := range survivors {
		oldInds[n-archiveSize+i] = ind
	}
	return nil
}
