package engine_test

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planarena/planarena/pkg/engine"
)

func TestErrorMessageFormat(t *testing.T) {
	cause := errors.New("cursor died")

	err := engine.NewCandidateError("plan execution failed", cause)
	require.Contains(t, err.Error(), "candidate")
	require.Contains(t, err.Error(), "plan execution failed")
	require.Contains(t, err.Error(), "cursor died")

	err = err.WithPlan("ixscan:a_1")
	require.Contains(t, err.Error(), "plan=ixscan:a_1")
}

func TestErrorUnwrap(t *testing.T) {
	cause := errors.New("storage conflict")
	err := engine.NewConflictError("yield refused", cause)

	require.ErrorIs(t, err, cause)
	require.Equal(t, cause, errors.Unwrap(err))

	// Wrapped further, errors.As still finds the classified error.
	wrapped := fmt.Errorf("running trial: %w", err)
	var ee *engine.EngineError
	require.ErrorAs(t, wrapped, &ee)
	require.Equal(t, engine.ErrorClassConflict, ee.Class)
}

func TestErrorIsMatchesOnClassAndCode(t *testing.T) {
	a := engine.NewCandidateError("all failed", nil).WithCode(engine.ErrCodeAllPlansFailed)
	b := engine.NewCandidateError("different message", errors.New("other cause")).
		WithCode(engine.ErrCodeAllPlansFailed)
	require.ErrorIs(t, a, b)

	differentCode := engine.NewCandidateError("all failed", nil).WithCode(engine.ErrCodeNoCandidates)
	require.NotErrorIs(t, a, differentCode)

	differentClass := engine.NewInternalError("all failed", nil).WithCode(engine.ErrCodeAllPlansFailed)
	require.NotErrorIs(t, a, differentClass)
}

func TestClassPredicates(t *testing.T) {
	candidate := engine.NewCandidateError("plan failed", nil)
	conflict := engine.NewConflictError("write conflict", nil)
	interrupt := engine.NewInterruptError("killed", nil)
	internal := engine.NewInternalError("bad invariant", nil)

	require.True(t, engine.IsCandidateFailure(candidate))
	require.False(t, engine.IsCandidateFailure(conflict))

	require.True(t, engine.IsConflict(conflict))
	require.False(t, engine.IsConflict(interrupt))

	require.True(t, engine.IsInterrupt(interrupt))
	require.False(t, engine.IsInterrupt(internal))

	// Plain errors match nothing.
	plain := errors.New("plain")
	require.False(t, engine.IsCandidateFailure(plain))
	require.False(t, engine.IsConflict(plain))
	require.False(t, engine.IsInterrupt(plain))
}

func TestOnlyConflictsAreRetryable(t *testing.T) {
	require.True(t, engine.IsRetryable(engine.NewConflictError("write conflict", nil)))
	require.False(t, engine.IsRetryable(engine.NewCandidateError("plan failed", nil)))
	require.False(t, engine.IsRetryable(engine.NewInterruptError("killed", nil)))
	require.False(t, engine.IsRetryable(engine.NewInternalError("bug", nil)))
	require.False(t, engine.IsRetryable(errors.New("plain")))
}

func TestPredicatesSeeThroughWrapping(t *testing.T) {
	err := fmt.Errorf("outer: %w", engine.NewConflictError("write conflict", nil))
	require.True(t, engine.IsConflict(err))
	require.True(t, engine.IsRetryable(err))
}
