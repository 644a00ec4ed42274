package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

func noopOp(tx *gorm.DB) error { return nil }

func TestChunkOps(t *testing.T) {
	ops := make([]BatchOp, 1000)
	for i := range ops {
		ops[i] = noopOp
	}

	chunks := chunkOps(ops, 450)
	require.Len(t, chunks, 3)
	assert.Len(t, chunks[0], 450)
	assert.Len(t, chunks[1], 450)
	assert.Len(t, chunks[2], 100)

	total := 0
	for _, chunk := range chunks {
		assert.LessOrEqual(t, len(chunk), 450)
		total += len(chunk)
	}
	assert.Equal(t, 1000, total)
}

func TestChunkOpsExactMultiple(t *testing.T) {
	ops := make([]BatchOp, 900)
	for i := range ops {
		ops[i] = noopOp
	}
	chunks := chunkOps(ops, 450)
	require.Len(t, chunks, 2)
	assert.Len(t, chunks[0], 450)
	assert.Len(t, chunks[1], 450)
}

func TestChunkOpsEmpty(t *testing.T) {
	assert.Empty(t, chunkOps(nil, 450))
}

func TestBatchWriterFlushCommitsInBoundedBatches(t *testing.T) {
	var commitSizes []int
	executed := 0

	bw := &BatchWriter{
		limit: maxOpsPerBatch,
		commit: func(ops []BatchOp) error {
			commitSizes = append(commitSizes, len(ops))
			for _, op := range ops {
				require.NoError(t, op(nil))
				executed++
			}
			return nil
		},
	}

	const n = 1103
	for i := 0; i < n; i++ {
		bw.Queue(noopOp)
	}
	require.Equal(t, n, bw.Pending())
	require.NoError(t, bw.Flush())

	// ceil(1103/450) = 3 commits, each within the cap, all ops executed
	assert.Equal(t, []int{450, 450, 203}, commitSizes)
	assert.Equal(t, n, executed)
	assert.Zero(t, bw.Pending())
}

// A failed flush must leave only the uncommitted tail queued, so retrying
// the same writer never re-executes a committed operation.
func TestBatchWriterFlushRetrySkipsCommittedChunks(t *testing.T) {
	counts := make([]int, 5)

	calls := 0
	bw := &BatchWriter{limit: 2}
	bw.commit = func(ops []BatchOp) error {
		calls++
		if calls == 2 {
			return assert.AnError
		}
		for _, op := range ops {
			require.NoError(t, op(nil))
		}
		return nil
	}

	for i := 0; i < len(counts); i++ {
		i := i
		bw.Queue(func(tx *gorm.DB) error { counts[i]++; return nil })
	}

	// first chunk (ops 0,1) commits, second chunk fails
	require.Error(t, bw.Flush())
	assert.Equal(t, 3, bw.Pending())

	// retry runs only the remaining ops; each op executes exactly once
	require.NoError(t, bw.Flush())
	assert.Zero(t, bw.Pending())
	for i, n := range counts {
		assert.Equalf(t, 1, n, "op %d executed %d times", i, n)
	}
}

func TestBatchWriterFlushIsReusable(t *testing.T) {
	commits := 0
	bw := &BatchWriter{
		limit:  maxOpsPerBatch,
		commit: func(ops []BatchOp) error { commits++; return nil },
	}

	bw.Queue(noopOp)
	require.NoError(t, bw.Flush())
	require.NoError(t, bw.Flush()) // empty flush commits nothing
	bw.Queue(noopOp)
	require.NoError(t, bw.Flush())

	assert.Equal(t, 2, commits)
}
