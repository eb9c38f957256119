package engine_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/planarena/planarena/pkg/engine"
)

func TestTrialWorkBudget(t *testing.T) {
	cases := []struct {
		name     string
		floor    int
		fraction float64
		records  int64
		want     int
	}{
		{name: "floor dominates small collections", floor: 10000, fraction: 0.3, records: 1000, want: 10000},
		{name: "fraction dominates large collections", floor: 10000, fraction: 0.3, records: 1_000_000, want: 300000},
		{name: "empty collection", floor: 10000, fraction: 0.3, records: 0, want: 10000},
		{name: "boundary", floor: 300, fraction: 0.3, records: 1000, want: 300},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, engine.TrialWorkBudget(tc.floor, tc.fraction, tc.records))
		})
	}
}

func TestTrialResultBudget(t *testing.T) {
	// No limit clause: the ceiling stands.
	require.Equal(t, 101, engine.TrialResultBudget(101, 0))

	// A limit below the ceiling shrinks the trial.
	require.Equal(t, 10, engine.TrialResultBudget(101, 10))

	// A limit above the ceiling does not grow it.
	require.Equal(t, 101, engine.TrialResultBudget(101, 500))
}
