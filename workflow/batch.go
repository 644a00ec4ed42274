package workflow

import (
	"gorm.io/gorm"
)

// BatchOp is one logical write executed inside a batch transaction.
type BatchOp func(tx *gorm.DB) error

// The store rejects transactions past roughly 500 operations; stay under it.
const maxOpsPerBatch = 450

// BatchWriter groups queued writes into transactions of at most
// maxOpsPerBatch operations each. Within one batch all writes commit
// atomically; across batches there is no atomicity — a failure mid-flush
// leaves prior batches durable, so queued ops must tolerate re-runs
// (merge upserts, deterministic ids).
type BatchWriter struct {
	limit  int
	ops    []BatchOp
	commit func(ops []BatchOp) error
}

func NewBatchWriter(db *gorm.DB) *BatchWriter {
	bw := &BatchWriter{limit: maxOpsPerBatch}
	bw.commit = func(ops []BatchOp) error {
		return db.Transaction(func(tx *gorm.DB) error {
			for _, op := range ops {
				if err := op(tx); err != nil {
					return err
				}
			}
			return nil
		})
	}
	return bw
}

func (b *BatchWriter) Queue(op BatchOp) {
	b.ops = append(b.ops, op)
}

func (b *BatchWriter) Pending() int {
	return len(b.ops)
}

// Flush commits the queued ops chunk by chunk, dropping each chunk from the
// queue as soon as its commit succeeds. On error the already-committed
// chunks stay committed and only the uncommitted tail remains queued, so a
// retry never re-executes a committed operation.
func (b *BatchWriter) Flush() error {
	limit := b.limit
	if limit <= 0 {
		limit = maxOpsPerBatch
	}
	for len(b.ops) > 0 {
		n := limit
		if n > len(b.ops) {
			n = len(b.ops)
		}
		if err := b.commit(b.ops[:n]); err != nil {
			return err
		}
		b.ops = b.ops[n:]
	}
	return nil
}

func chunkOps(ops []BatchOp, limit int) [][]BatchOp {
	if limit <= 0 {
		limit = maxOpsPerBatch
	}
	var chunks [][]BatchOp
	for start := 0; start < len(ops); start += limit {
		end := start + limit
		if end > len(ops) {
			end = len(ops)
		}
		chunks = append(chunks, ops[start:end])
	}
	return chunks
}
