package polyquery

import (
	"fmt"
	"time"
)

// Op identifies the kind of operation a Receipt reports on.
type Op string

const (
	OpQueryOne     Op = "queryOne"
	OpQueryMany    Op = "queryMany"
	OpCount        Op = "count"
	OpInsertOne    Op = "insertOne"
	OpInsertMany   Op = "insertMany"
	OpUpdateOne    Op = "updateOne"
	OpUpdateMany   Op = "updateMany"
	OpDeleteOne    Op = "deleteOne"
	OpDeleteMany   Op = "deleteMany"
	OpBatch        Op = "batch"
)

// Receipt is the uniform structured return value of every write.
// All counts default to zero; NewReceipt sets Success to true, while a
// zero Receipt literal has Success false.
type Receipt struct {
	Operation Op
	Collection string
	Success   bool
	Matched   int64
	Modified  int64
	Inserted  int64
	Deleted   int64
	Duration  time.Duration
	Backend   string
}

// NewReceipt returns a Receipt with Success defaulted to true.
func NewReceipt(op Op, collection, backend string) Receipt {
	return Receipt{Operation: op, Collection: collection, Backend: backend, Success: true}
}

// String renders a human-readable one-line summary.
func (r Receipt) String() string {
	return fmt.Sprintf(
		"op=%s collection=%s success=%t matched=%d modified=%d inserted=%d deleted=%d duration=%s backend=%s",
		r.Operation, r.Collection, r.Success, r.Matched, r.Modified, r.Inserted, r.Deleted, r.Duration, r.Backend,
	)
}

// Accumulate adds other's counts into r, used by batch to
// fold per-step receipts into one aggregate receipt.
func (r *Receipt) Accumulate(other Receipt) {
	r.Matched += other.Matched
	r.Modified += other.Modified
	r.Inserted += other.Inserted
	r.Deleted += other.Deleted
	r.Duration += other.Duration
	if !other.Success {
		r.Success = false
	}
}
