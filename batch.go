package polyquery

import (
	"context"

	"golang.org/x/sync/errgroup"

	"github.com/polyquery/polyquery/adapter"
)

// BatchStep is one operation in a Batch call: Kind selects which
// fields are read, the rest are zero for any other kind.
type BatchStep struct {
	Kind       Op
	Collection string
	Filter     Filter
	Update     Update
	Doc        map[string]any
	Docs       []map[string]any
	Opts       WriteOptions
}

// Batch executes steps in order through the router's own pipeline
// (each step gets sanitize/guardrail/timestamp treatment exactly like
// a standalone call) and folds their receipts into one aggregate
// receipt reporting Operation=batch, Collection="batch". Relational
// and document-store backends run the whole batch under one
// transaction when the adapter supports it; a step failure rolls back
// everything before it. The search-engine backend has no transaction
// primitive, so an all-insert batch runs concurrently bounded by an
// errgroup instead, and a mixed-kind batch runs sequentially with no
// rollback. A partial batch against that backend can leave earlier
// steps applied.
func (r *Router) Batch(ctx context.Context, steps []BatchStep) (Receipt, error) {
	agg := NewReceipt(OpBatch, "batch", r.adp.Backend())

	if _, ok := r.adp.(adapter.TransactionalAdapter); ok {
		err := r.WithTransaction(ctx, func(txCtx context.Context) error {
			return r.runStepsSequential(txCtx, steps, &agg)
		})
		return agg, err
	}

	if allInserts(steps) {
		err := r.runInsertsConcurrent(ctx, steps, &agg)
		return agg, err
	}

	err := r.runStepsSequential(ctx, steps, &agg)
	return agg, err
}

func allInserts(steps []BatchStep) bool {
	for _, s := range steps {
		if s.Kind != OpInsertOne && s.Kind != OpInsertMany {
			return false
		}
	}
	return len(steps) > 0
}

func (r *Router) runStepsSequential(ctx context.Context, steps []BatchStep, agg *Receipt) error {
	for _, step := range steps {
		rcpt, err := r.runStep(ctx, step)
		agg.Accumulate(rcpt)
		if err != nil {
			return err
		}
	}
	return nil
}

// runInsertsConcurrent bounds the search-engine backend's non-
// transactional batch path: every step is an independent insert, so
// they can run concurrently without any ordering or rollback
// guarantees to preserve.
func (r *Router) runInsertsConcurrent(ctx context.Context, steps []BatchStep, agg *Receipt) error {
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(8)
	receipts := make([]Receipt, len(steps))
	for i, step := range steps {
		i, step := i, step
		g.Go(func() error {
			rcpt, err := r.runStep(gctx, step)
			receipts[i] = rcpt
			return err
		})
	}
	err := g.Wait()
	for _, rcpt := range receipts {
		agg.Accumulate(rcpt)
	}
	return err
}

func (r *Router) runStep(ctx context.Context, step BatchStep) (Receipt, error) {
	switch step.Kind {
	case OpInsertOne:
		return r.InsertOne(ctx, step.Collection, step.Doc)
	case OpInsertMany:
		return r.InsertMany(ctx, step.Collection, step.Docs)
	case OpUpdateOne:
		return r.UpdateOne(ctx, step.Collection, step.Filter, step.Update, step.Opts)
	case OpUpdateMany:
		return r.UpdateMany(ctx, step.Collection, step.Filter, step.Update, step.Opts)
	case OpDeleteOne:
		return r.DeleteOne(ctx, step.Collection, step.Filter, step.Opts)
	case OpDeleteMany:
		return r.DeleteMany(ctx, step.Collection, step.Filter, step.Opts)
	default:
		return Receipt{Success: false}, NewError(CodeUnsupportedOperation,
			"batch step kind "+string(step.Kind)+" is not a write operation",
			"batch steps must be one of insertOne, insertMany, updateOne, updateMany, deleteOne, deleteMany",
		)
	}
}
