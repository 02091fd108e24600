// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package ledger

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func openTestLedger(t *testing.T) *Ledger {
	t.Helper()
	dsn := filepath.Join(t.TempDir(), "alpsearch.db")
	l, err := NewLedger("sqlite3", dsn)
	require.NoError(t, err)
	t.Cleanup(func() { l.Close() })
	return l
}

func TestStartRunThenFinishRun(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	started := time.Unix(1700000000, 0).UTC()
	require.NoError(t, l.StartRun(ctx, RunRecord{
		RunID:          "run-1",
		StartedAt:      started,
		NProcs:         4,
		HubNum:         2,
		SearchStrategy: "BestFirst",
		Instance:       "knapsack-50",
	}))

	rec, err := l.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", rec.RunID)
	assert.Equal(t, 4, rec.NProcs)
	assert.True(t, rec.FinishedAt.IsZero())

	finished := started.Add(5 * time.Minute)
	require.NoError(t, l.FinishRun(ctx, "run-1", finished, "StatusPoolEmpty", NewSearchStats(10, 5, 3, 1), -42.5))

	rec, err = l.LoadRun(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "StatusPoolEmpty", rec.ExitStatus)
	assert.Equal(t, 10, rec.NodesProcessed)
	assert.Equal(t, -42.5, rec.BestQuality)
	assert.WithinDuration(t, finished, rec.FinishedAt, time.Second)
}

func TestLoadRunMissingReturnsErrRunNotFound(t *testing.T) {
	l := openTestLedger(t)
	_, err := l.LoadRun(context.Background(), "does-not-exist")
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestFinishRunMissingReturnsErrRunNotFound(t *testing.T) {
	l := openTestLedger(t)
	err := l.FinishRun(context.Background(), "does-not-exist", time.Unix(1700000000, 0), "StatusPoolEmpty", NewSearchStats(0, 0, 0, 0), 0)
	assert.ErrorIs(t, err, ErrRunNotFound)
}

func TestListRunsOrdersMostRecentFirst(t *testing.T) {
	l := openTestLedger(t)
	ctx := context.Background()

	base := time.Unix(1700000000, 0).UTC()
	for i, id := range []string{"run-a", "run-b", "run-c"} {
		require.NoError(t, l.StartRun(ctx, RunRecord{
			RunID:          id,
			StartedAt:      base.Add(time.Duration(i) * time.Hour),
			NProcs:         1,
			HubNum:         1,
			SearchStrategy: "Hybrid",
			Instance:       "test",
		}))
	}

	runs, err := l.ListRuns(ctx, 0)
	require.NoError(t, err)
	require.Len(t, runs, 3)
	assert.Equal(t, "run-c", runs[0].RunID)
	assert.Equal(t, "run-a", runs[2].RunID)

	limited, err := l.ListRuns(ctx, 2)
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}
