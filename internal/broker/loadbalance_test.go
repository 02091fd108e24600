// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestClassifyAndPairEmptyReports(t *testing.T) {
	pairs := classifyAndPair(nil, 10, 0.2, 0.2)
	assert.Nil(t, pairs)
}

func TestClassifyAndPairQuantityBalanceTakesPriority(t *testing.T) {
	reports := map[int]StatusReport{
		1: {Quantity: 100, Quality: -5},
		2: {Quantity: 2, Quality: -5},
	}
	pairs := classifyAndPair(reports, 10, 0.2, 0.2)
	require.Len(t, pairs, 1)
	assert.Equal(t, [2]int{1, 2}, pairs[0], "the over-threshold rank must donate to the under-threshold rank regardless of equal quality")
}

func TestClassifyAndPairQualityBalanceWhenQuantityIsEven(t *testing.T) {
	// avg = -5.5. rank 1's quality (-10) lies below the mean by 4.5/5.5
	// of it, enough to classify as a donor; rank 2's quality (-1) lies
	// above the mean by the same fraction, enough to classify as a
	// receiver.
	reports := map[int]StatusReport{
		1: {Quantity: 50, Quality: -10},
		2: {Quantity: 50, Quality: -1},
	}
	pairs := classifyAndPair(reports, 10, 0.2, 0.2)
	require.Len(t, pairs, 1)
	assert.Equal(t, [2]int{1, 2}, pairs[0])
}

func TestClassifyAndPairNoPairsWithinThresholds(t *testing.T) {
	reports := map[int]StatusReport{
		1: {Quantity: 50, Quality: -5},
		2: {Quantity: 50, Quality: -5.1},
	}
	pairs := classifyAndPair(reports, 10, 0.5, 0.5)
	assert.Empty(t, pairs)
}

func TestPairUpTruncatesToShorterSlice(t *testing.T) {
	pairs := pairUp([]int{1, 2, 3}, []int{9})
	assert.Equal(t, [][2]int{{1, 9}}, pairs)
}

func TestNewTopologyRankZeroIsHubZero(t *testing.T) {
	top := NewTopology(8, 2, 10)
	assert.Equal(t, RoleMaster, top.RoleOf(0))
	assert.Equal(t, []int{0, 4}, top.HubRanks)
	assert.Equal(t, RoleHub, top.RoleOf(4))
	assert.Equal(t, RoleWorker, top.RoleOf(1))
}

func TestNewTopologyClusterMembersExcludeHubItself(t *testing.T) {
	top := NewTopology(8, 2, 10)
	assert.ElementsMatch(t, []int{1, 2, 3}, top.ClusterMembers[0])
	assert.ElementsMatch(t, []int{5, 6, 7}, top.ClusterMembers[4])
}

func TestNewTopologyIsHubWorkerDependsOnClusterSize(t *testing.T) {
	small := NewTopology(4, 2, 10)
	assert.True(t, small.IsHubWorker(0), "a 1-member cluster is well within maxHubWorkSize=10")

	large := NewTopology(20, 2, 2)
	assert.False(t, large.IsHubWorker(0), "a 9-member cluster exceeds maxHubWorkSize=2")
}

func TestNewTopologyClampsHubNumToNprocs(t *testing.T) {
	top := NewTopology(2, 10, 10)
	assert.LessOrEqual(t, top.HubNum, 2)
}

func TestIncumbentChildrenBalancedBinaryTree(t *testing.T) {
	// originRank=2, nprocs=6: sequence renumbers rank 2 as 0, so its
	// children are sequence 1 and 2, i.e. ranks 3 and 4.
	children := incumbentChildren(2, 2, 6)
	assert.Equal(t, []int{3, 4}, children)
}

func TestIncumbentChildrenStopsAtNProcsBoundary(t *testing.T) {
	// A leaf in the binary tree (sequence with no children within nprocs)
	// returns no children.
	children := incumbentChildren(2, 0, 3)
	assert.Empty(t, children)
}

func TestAdoptIncumbentAcceptsFirstAndStrictlyBetter(t *testing.T) {
	b := &Broker{rank: 0}
	assert.True(t, b.adoptIncumbent(incumbentPayload{Quality: 5, OriginID: 1}))
	assert.False(t, b.adoptIncumbent(incumbentPayload{Quality: 6, OriginID: 0}), "worse quality must not be adopted")
	assert.True(t, b.adoptIncumbent(incumbentPayload{Quality: 4, OriginID: 2}), "strictly better quality must be adopted")
}

func TestAdoptIncumbentTieBreaksOnSmallerOriginID(t *testing.T) {
	b := &Broker{rank: 0}
	require.True(t, b.adoptIncumbent(incumbentPayload{Quality: 5, OriginID: 9}))
	assert.True(t, b.adoptIncumbent(incumbentPayload{Quality: 5, OriginID: 3}), "equal quality with a smaller originID should win the tie")
	assert.False(t, b.adoptIncumbent(incumbentPayload{Quality: 5, OriginID: 7}))
}
