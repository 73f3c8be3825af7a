package gateway

import (
	"context"
	"time"

	"github.com/roach88/triplegate/internal/op"
)

// Enqueue validates ops and appends them to the pending queue. A contract
// violation rejects the whole call and queues nothing.
func (g *Gateway) Enqueue(ops ...op.Operation) error {
	for _, o := range ops {
		if err := op.Validate(o); err != nil {
			return err
		}
	}
	if err := g.queue.Enqueue(ops...); err != nil {
		return err
	}
	g.recordQueue()
	return nil
}

// Pending returns the queued operations in order.
func (g *Gateway) Pending() []op.Operation {
	return g.queue.Pending()
}

// RunOperations executes the queued operations with the given ids, or all
// queued operations when ids is empty, and removes them from the queue.
// Operations outside the subset stay queued.
//
// The only error is an *op.ContractError found before the backend is
// touched; the claimed operations then return to the queue untouched.
// Every other outcome, backend failures included, is reported per
// operation in the returned map.
func (g *Gateway) RunOperations(ctx context.Context, ids ...string) (map[string]op.Result, error) {
	claimed := g.queue.Claim(ids...)
	if len(claimed) == 0 {
		return map[string]op.Result{}, nil
	}
	seq := g.clock.Next()
	start := time.Now()

	results, err := g.runner.Run(ctx, claimed)
	if err != nil {
		g.queue.Release(claimed)
		g.logger.Warn("run rejected", "run", seq, "ops", len(claimed), "error", err)
		if g.metrics != nil {
			g.metrics.RecordRun("contract_error")
		}
		return nil, err
	}
	g.queue.Complete(claimed)
	g.recordQueue()
	if g.metrics != nil {
		g.metrics.RecordRun("ok")
	}

	failed := 0
	for _, res := range results {
		if !res.Success {
			failed++
		}
	}
	g.logger.Debug("run done",
		"run", seq,
		"ops", len(claimed),
		"failed", failed,
		"elapsed", time.Since(start),
	)
	return results, nil
}

// Execute enqueues ops and runs exactly those operations. On a contract
// violation none of them stays queued.
func (g *Gateway) Execute(ctx context.Context, ops ...op.Operation) (map[string]op.Result, error) {
	if len(ops) == 0 {
		return map[string]op.Result{}, nil
	}
	if err := g.Enqueue(ops...); err != nil {
		return nil, err
	}
	ids := make([]string, len(ops))
	for i, o := range ops {
		ids[i] = o.ID
	}
	results, err := g.RunOperations(ctx, ids...)
	if err != nil {
		g.queue.Complete(ops)
		g.recordQueue()
		return nil, err
	}
	return results, nil
}

func (g *Gateway) recordQueue() {
	if g.metrics != nil {
		g.metrics.RecordQueueDepth(g.queue.Len())
	}
}
