// Package engine implements the multi-candidate plan competition core: given
// several alternative execution strategies for one query, it runs them
// competitively for a bounded trial period, picks a winner, manages a
// fallback plan for blocking winners, and decides whether the choice is
// worth persisting to the plan cache.
//
// # Lifecycle
//
// A MultiPlan belongs to a single query execution:
//
//	mp := engine.New(engine.Options{
//	    Shape:  engine.NewQueryShape("find(city, sort=age)"),
//	    Scorer: scorer.New(),
//	    Cache:  planCache,
//	})
//	mp.AddCandidate(ixScanSolution, ixScanRoot, ws1)
//	mp.AddCandidate(collScanSolution, collScanRoot, ws2)
//
//	if err := mp.PickBest(ctx, yieldPolicy); err != nil {
//	    return err
//	}
//	for !mp.EOF() {
//	    status, id := mp.Work(ctx)
//	    ...
//	}
//	defer mp.Close()
//
// PickBest drives the trial: one unit of work per candidate per round, in
// registration order, under a budget derived from collection size and the
// query's limit clause. The trial ends early when a candidate completes
// (first to EOF is expected to win, though the scorer has the final word) or
// buffers enough results. After ranking, Work serves buffered trial results
// first and then pulls fresh ones from the winner.
//
// # Failure isolation
//
// One candidate failing never aborts the trial; the candidate is marked and
// skipped from then on. Only when every candidate has failed does the trial
// report total failure, carrying the most recently observed diagnostic. A
// winner that fails in steady state while a backup plan is installed is
// swapped out transparently, and its plan cache entry is evicted.
//
// # Cooperative suspension
//
// Execution is single-threaded; suspension is an explicit protocol step.
// Before every unit of work the executor consults the YieldPolicy, and a
// plan stage may itself demand a suspend-and-retry cycle by returning
// StatusNeedYield. Errors are classified (candidate, conflict, interrupt,
// internal) so callers can tell "retry the whole operation" from "give up"
// by type alone.
package engine
