package crossfit

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestPartitionCoverage(t *testing.T) {
	tests := []struct {
		name string
		n    int
		seed int64
	}{
		{"exact multiple of three", 300, 1},
		{"remainder one", 301, 2},
		{"remainder two", 302, 3},
		{"small sample", 9, 4},
		{"minimum sample", 3, 5},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			part, err := NewScheduler(tt.seed, false).Partition(tt.n)
			require.NoError(t, err)

			seen := make(map[int]bool)
			total := 0
			for _, block := range part.Blocks {
				for _, idx := range block {
					assert.False(t, seen[idx], "index %d appears in more than one block", idx)
					assert.GreaterOrEqual(t, idx, 0)
					assert.Less(t, idx, tt.n)
					seen[idx] = true
					total++
				}
			}

			stepsize := (tt.n + 2) / 3
			expected := 3 * stepsize
			if expected > tt.n {
				expected = tt.n
			}
			assert.Equal(t, expected, total)
			assert.Equal(t, expected, part.Covered)
			assert.Equal(t, stepsize, part.Stepsize)
		})
	}
}

func TestPartitionTooSmall(t *testing.T) {
	_, err := NewScheduler(1, false).Partition(2)
	assert.Error(t, err)
}

func TestPartitionDeterminism(t *testing.T) {
	a, err := NewScheduler(42, false).Partition(100)
	require.NoError(t, err)
	b, err := NewScheduler(42, false).Partition(100)
	require.NoError(t, err)
	assert.Equal(t, a, b)

	c, err := NewScheduler(43, false).Partition(100)
	require.NoError(t, err)
	assert.NotEqual(t, a.Blocks, c.Blocks)
}

func TestRotationEveryRowTestsOnce(t *testing.T) {
	sched := NewScheduler(7, false)
	passes, part, err := sched.Folds(99)
	require.NoError(t, err)

	tested := make(map[int]int)
	for _, pass := range passes {
		for _, idx := range pass.Test {
			tested[idx]++
		}
	}
	assert.Len(t, tested, part.Covered)
	for idx, count := range tested {
		assert.Equal(t, 1, count, "row %d served as test %d times", idx, count)
	}
}

func TestCrossFitIndependence(t *testing.T) {
	passes, _, err := NewScheduler(11, false).Folds(120)
	require.NoError(t, err)

	for _, pass := range passes {
		inTest := make(map[int]bool)
		for _, idx := range pass.Test {
			inTest[idx] = true
		}
		for _, idx := range pass.MuTrain {
			assert.False(t, inTest[idx], "pass %d: mu-train row %d is also a test row", pass.Index, idx)
		}
		for _, idx := range pass.DeltaTrain {
			assert.False(t, inTest[idx], "pass %d: delta-train row %d is also a test row", pass.Index, idx)
		}
	}
}

func TestRotationTable(t *testing.T) {
	sched := NewScheduler(3, false)
	part, err := sched.Partition(30)
	require.NoError(t, err)
	passes := sched.Passes(part)

	assert.Equal(t, part.Blocks[0], passes[0].Test)
	assert.Equal(t, part.Blocks[1], passes[0].MuTrain)
	assert.Equal(t, part.Blocks[2], passes[0].DeltaTrain)

	assert.Equal(t, part.Blocks[2], passes[1].Test)
	assert.Equal(t, part.Blocks[0], passes[1].MuTrain)
	assert.Equal(t, part.Blocks[1], passes[1].DeltaTrain)

	assert.Equal(t, part.Blocks[1], passes[2].Test)
	assert.Equal(t, part.Blocks[2], passes[2].MuTrain)
	assert.Equal(t, part.Blocks[0], passes[2].DeltaTrain)
}

func TestFewSplitsMergesTrainingRoles(t *testing.T) {
	sched := NewScheduler(5, true)
	passes, part, err := sched.Folds(60)
	require.NoError(t, err)

	for _, pass := range passes {
		assert.Equal(t, pass.MuTrain, pass.DeltaTrain)
		assert.Len(t, pass.MuTrain, part.Covered-len(pass.Test))

		union := pass.TrainUnion()
		assert.Len(t, union, part.Covered-len(pass.Test), "few-splits union must not double-count")
	}
}

func TestTrainUnionCoversBothRoles(t *testing.T) {
	passes, part, err := NewScheduler(9, false).Folds(90)
	require.NoError(t, err)

	for _, pass := range passes {
		union := pass.TrainUnion()
		assert.Len(t, union, part.Covered-len(pass.Test))
	}
}
