// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package index

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMasterBandIsQuarterOfIntMax(t *testing.T) {
	lo, hi := MasterBand()
	assert.Equal(t, 0, lo)
	assert.Equal(t, IntMax/4, hi)
}

func TestHubBandsAreDisjointAndSpanRemainingSpace(t *testing.T) {
	const hubNum = 4
	_, masterHi := MasterBand()
	prevHi := masterHi
	for i := 0; i < hubNum; i++ {
		lo, hi := HubBand(hubNum, i)
		assert.Equal(t, prevHi, lo, "hub bands must tile contiguously starting just above the master band")
		assert.Greater(t, hi, lo)
		prevHi = hi
	}
	assert.Equal(t, IntMax, prevHi, "the last hub band must end at IntMax")
}

func TestWorkerBandsPartitionTheirHubBand(t *testing.T) {
	hubLo, hubHi := 1000, 2000
	const numWorkers = 5
	prevHi := hubLo
	for i := 0; i < numWorkers; i++ {
		lo, hi := WorkerBand(hubLo, hubHi, numWorkers, i)
		assert.Equal(t, prevHi, lo)
		prevHi = hi
	}
	assert.Equal(t, hubHi, prevHi)
}

func TestWorkerBandSingleWorkerWhenCountIsZero(t *testing.T) {
	lo, hi := WorkerBand(0, 100, 0, 0)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 100, hi)
}

func TestAllocatorNextIssuesUniqueIncreasingIndices(t *testing.T) {
	a := NewAllocator(10, 13, nil)
	first, err := a.Next()
	require.NoError(t, err)
	second, err := a.Next()
	require.NoError(t, err)
	third, err := a.Next()
	require.NoError(t, err)

	assert.Equal(t, []int{10, 11, 12}, []int{first, second, third})
}

func TestAllocatorNextExhaustsWithoutParent(t *testing.T) {
	a := NewAllocator(0, 1, nil)
	_, err := a.Next()
	require.NoError(t, err)

	_, err = a.Next()
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAllocatorNextRequestsMoreFromParent(t *testing.T) {
	calls := 0
	a := NewAllocator(0, 1, func() (int, int, error) {
		calls++
		return 100, 103, nil
	})

	_, err := a.Next()
	require.NoError(t, err)

	idx, err := a.Next()
	require.NoError(t, err)
	assert.Equal(t, 100, idx)
	assert.Equal(t, 1, calls)

	lo, hi := a.Band()
	assert.Equal(t, 100, lo)
	assert.Equal(t, 103, hi)
}

func TestAllocatorRemainingTracksBand(t *testing.T) {
	a := NewAllocator(0, 5, nil)
	assert.Equal(t, 5, a.Remaining())
	_, _ = a.Next()
	_, _ = a.Next()
	assert.Equal(t, 3, a.Remaining())
}

func TestAllocatorNextBatchReservesContiguousRange(t *testing.T) {
	a := NewAllocator(0, 100, nil)
	lo, hi, err := a.NextBatch(10)
	require.NoError(t, err)
	assert.Equal(t, 0, lo)
	assert.Equal(t, 10, hi)

	lo2, hi2, err := a.NextBatch(5)
	require.NoError(t, err)
	assert.Equal(t, 10, lo2)
	assert.Equal(t, 15, hi2)
}

func TestAllocatorNextBatchRejectsNonPositive(t *testing.T) {
	a := NewAllocator(0, 100, nil)
	_, _, err := a.NextBatch(0)
	assert.Error(t, err)
}

func TestAllocatorNextBatchExhaustedWithoutParent(t *testing.T) {
	a := NewAllocator(0, 5, nil)
	_, _, err := a.NextBatch(10)
	assert.ErrorIs(t, err, ErrExhausted)
}

func TestAllocatorInBand(t *testing.T) {
	a := NewAllocator(10, 20, nil)
	assert.True(t, a.InBand(10))
	assert.True(t, a.InBand(19))
	assert.False(t, a.InBand(20))
	assert.False(t, a.InBand(9))
}
