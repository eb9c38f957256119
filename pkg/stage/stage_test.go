package stage_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planarena/planarena/pkg/engine"
	"github.com/planarena/planarena/pkg/stage"
	"github.com/planarena/planarena/pkg/workspace"
)

func records(values ...int) []stage.Record {
	out := make([]stage.Record, 0, len(values))
	for _, v := range values {
		out = append(out, stage.Record{"x": v})
	}
	return out
}

// drain works the root to EOF and returns the produced values in order.
func drain(t *testing.T, ws *workspace.Workspace, root engine.PlanRoot) []stage.Record {
	t.Helper()
	ctx := context.Background()
	var out []stage.Record
	for i := 0; i < 10_000; i++ {
		status, id := root.Work(ctx)
		switch status {
		case engine.StatusAdvanced:
			value, ok := ws.Get(id)
			require.True(t, ok)
			ws.Free(id)
			out = append(out, value.(stage.Record))
		case engine.StatusNeedTime:
		case engine.StatusEOF:
			return out
		default:
			t.Fatalf("unexpected status %v", status)
		}
	}
	t.Fatal("root never reached EOF")
	return nil
}

func TestScanProducesEveryRecord(t *testing.T) {
	ws := workspace.New()
	scan := stage.NewScan(ws, records(1, 2, 3), nil)

	out := drain(t, ws, scan)
	require.Len(t, out, 3)
	require.Equal(t, 1, out[0]["x"])
	require.Equal(t, 3, out[2]["x"])

	// EOF is sticky.
	status, _ := scan.Work(context.Background())
	require.Equal(t, engine.StatusEOF, status)
}

func TestScanFilterConsumesWorkOnMiss(t *testing.T) {
	ws := workspace.New()
	scan := stage.NewScan(ws, records(1, 2, 3, 4), func(r stage.Record) bool {
		return r["x"].(int)%2 == 0
	})
	ctx := context.Background()

	// The first record misses the filter: one work unit, no result.
	status, id := scan.Work(ctx)
	require.Equal(t, engine.StatusNeedTime, status)
	require.Equal(t, workspace.InvalidID, id)

	status, id = scan.Work(ctx)
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := ws.Get(id)
	require.True(t, ok)
	require.Equal(t, 2, value.(stage.Record)["x"])
}

func TestSortBlocksUntilChildExhausted(t *testing.T) {
	ws := workspace.New()
	scan := stage.NewScan(ws, records(3, 1, 2), nil)
	sorted := stage.NewSort(ws, scan, func(a, b interface{}) bool {
		return a.(stage.Record)["x"].(int) < b.(stage.Record)["x"].(int)
	})
	ctx := context.Background()

	// Three loads plus the sort step itself, all without a result.
	for i := 0; i < 4; i++ {
		status, _ := sorted.Work(ctx)
		require.Equal(t, engine.StatusNeedTime, status, "work %d", i)
	}

	status, id := sorted.Work(ctx)
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := ws.Get(id)
	require.True(t, ok)
	require.Equal(t, 1, value.(stage.Record)["x"])
}

func TestSortEmitsInOrder(t *testing.T) {
	ws := workspace.New()
	scan := stage.NewScan(ws, records(5, 2, 9, 2, 7), nil)
	sorted := stage.NewSort(ws, scan, func(a, b interface{}) bool {
		return a.(stage.Record)["x"].(int) < b.(stage.Record)["x"].(int)
	})

	out := drain(t, ws, sorted)
	require.Len(t, out, 5)
	values := make([]int, len(out))
	for i, r := range out {
		values[i] = r["x"].(int)
	}
	require.Equal(t, []int{2, 2, 5, 7, 9}, values)
}

func TestSortPropagatesChildFailure(t *testing.T) {
	ws := workspace.New()
	cause := errors.New("scan exploded")
	child := stage.NewQueued(ws).PushValue(stage.Record{"x": 1}).PushFailure(cause)
	sorted := stage.NewSort(ws, child, func(a, b interface{}) bool { return false })
	ctx := context.Background()

	status, _ := sorted.Work(ctx)
	require.Equal(t, engine.StatusNeedTime, status)

	status, id := sorted.Work(ctx)
	require.Equal(t, engine.StatusFailure, status)
	require.ErrorIs(t, ws.StatusOf(id), cause)
}

func TestLimitCutsOffChild(t *testing.T) {
	ws := workspace.New()
	scan := stage.NewScan(ws, records(1, 2, 3, 4, 5), nil)
	limited := stage.NewLimit(scan, 2)

	out := drain(t, ws, limited)
	require.Len(t, out, 2)
	require.Equal(t, 1, out[0]["x"])
	require.Equal(t, 2, out[1]["x"])
}

func TestLimitOnlyCountsAdvances(t *testing.T) {
	ws := workspace.New()
	scan := stage.NewScan(ws, records(1, 2, 3, 4), func(r stage.Record) bool {
		return r["x"].(int) > 2
	})
	limited := stage.NewLimit(scan, 2)

	out := drain(t, ws, limited)
	require.Len(t, out, 2)
	require.Equal(t, 3, out[0]["x"])
	require.Equal(t, 4, out[1]["x"])
}

func TestQueuedReplaysScript(t *testing.T) {
	ws := workspace.New()
	cause := errors.New("scripted failure")
	q := stage.NewQueued(ws).
		PushValue("a").
		PushNeedTime().
		PushNeedYield().
		PushFailure(cause)
	ctx := context.Background()

	status, id := q.Work(ctx)
	require.Equal(t, engine.StatusAdvanced, status)
	value, ok := ws.Get(id)
	require.True(t, ok)
	require.Equal(t, "a", value)

	status, _ = q.Work(ctx)
	require.Equal(t, engine.StatusNeedTime, status)

	status, _ = q.Work(ctx)
	require.Equal(t, engine.StatusNeedYield, status)

	status, id = q.Work(ctx)
	require.Equal(t, engine.StatusFailure, status)
	require.ErrorIs(t, ws.StatusOf(id), cause)

	// Past the script the stage reports EOF forever.
	status, _ = q.Work(ctx)
	require.Equal(t, engine.StatusEOF, status)
	status, _ = q.Work(ctx)
	require.Equal(t, engine.StatusEOF, status)
}
