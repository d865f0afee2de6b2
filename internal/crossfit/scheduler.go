package crossfit

import (
	"fmt"
	"math/rand"
)

// Scheduler produces the 3-fold sample partition and the role rotation
// that drives cross-fitted nuisance estimation. The partition is drawn
// from a single seeded generator so the same seed reproduces bit-identical
// folds; nothing here touches the global rand state.
type Scheduler struct {
	seed      int64
	fewSplits bool
}

// NewScheduler creates a scheduler with a specific seed for reproducibility
func NewScheduler(seed int64, fewSplits bool) *Scheduler {
	return &Scheduler{seed: seed, fewSplits: fewSplits}
}

// Partition represents the three disjoint fold index sets
type Partition struct {
	Blocks   [3][]int
	Stepsize int
	Covered  int // total rows covered by the three blocks
}

// Pass assigns the three folds to their roles for one cross-fitting pass.
// In few-splits mode MuTrain and DeltaTrain alias the same merged set.
type Pass struct {
	Index      int // 1-based pass number
	Test       []int
	MuTrain    []int
	DeltaTrain []int
}

// TrainUnion returns mu-train ∪ delta-train, the set used for fits that
// do not need the mu/delta distinction (propensities, E[Y|X,Z] fits).
func (p Pass) TrainUnion() []int {
	if len(p.MuTrain) == len(p.DeltaTrain) && len(p.MuTrain) > 0 && &p.MuTrain[0] == &p.DeltaTrain[0] {
		return p.MuTrain // few-splits: roles already merged
	}
	union := make([]int, 0, len(p.MuTrain)+len(p.DeltaTrain))
	union = append(union, p.MuTrain...)
	union = append(union, p.DeltaTrain...)
	return union
}

// Partition splits n rows into three blocks of size stepsize = ceil(n/3).
// One random permutation of the first min(3*stepsize, n) indices is drawn
// and sliced into contiguous blocks; the last block absorbs the remainder
// when n is not a multiple of three.
func (s *Scheduler) Partition(n int) (Partition, error) {
	if n < 3 {
		return Partition{}, fmt.Errorf("insufficient data for cross-fitting: need at least 3 rows, got %d", n)
	}

	stepsize := (n + 2) / 3
	covered := 3 * stepsize
	if covered > n {
		covered = n
	}

	perm := make([]int, n)
	for i := range perm {
		perm[i] = i
	}
	rng := rand.New(rand.NewSource(s.seed))
	rng.Shuffle(n, func(i, j int) {
		perm[i], perm[j] = perm[j], perm[i]
	})
	perm = perm[:covered]

	return Partition{
		Blocks: [3][]int{
			perm[:stepsize],
			perm[stepsize : 2*stepsize],
			perm[2*stepsize:covered],
		},
		Stepsize: stepsize,
		Covered:  covered,
	}, nil
}

// Passes returns the three role rotations over a partition. The rotation
// table is fixed: every block serves exactly once as the test fold.
func (s *Scheduler) Passes(p Partition) [3]Pass {
	b1, b2, b3 := p.Blocks[0], p.Blocks[1], p.Blocks[2]
	passes := [3]Pass{
		{Index: 1, Test: b1, MuTrain: b2, DeltaTrain: b3},
		{Index: 2, Test: b3, MuTrain: b1, DeltaTrain: b2},
		{Index: 3, Test: b2, MuTrain: b3, DeltaTrain: b1},
	}
	if s.fewSplits {
		for i := range passes {
			merged := make([]int, 0, len(passes[i].MuTrain)+len(passes[i].DeltaTrain))
			merged = append(merged, passes[i].MuTrain...)
			merged = append(merged, passes[i].DeltaTrain...)
			passes[i].MuTrain = merged
			passes[i].DeltaTrain = merged
		}
	}
	return passes
}

// Folds is a convenience wrapper returning the passes for n rows
func (s *Scheduler) Folds(n int) ([3]Pass, Partition, error) {
	part, err := s.Partition(n)
	if err != nil {
		return [3]Pass{}, Partition{}, err
	}
	return s.Passes(part), part, nil
}
