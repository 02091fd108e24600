// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/oss-hpc/alpsearch/pkg/encoded"
)

func TestExploreUnitWorkReportsFoundBetterAndAddsSolution(t *testing.T) {
	app := &fakeApp{maxDepth: 1}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	sub := NewSubtree(root, BestFirst, AlwaysDive)
	sink := &fakeSink{}

	status, stats, err := sub.ExploreUnitWork(sink, newIndexer(), 10, 0, true, false, true)
	require.NoError(t, err)

	assert.Equal(t, StatusBetterSolution, status)
	assert.True(t, stats.FoundBetter)
	require.Len(t, sink.added, 1, "the first node to reach maxDepth must report its solution to the sink")
	assert.Equal(t, 1, sink.added[0].Value.(*fakeSolution).value)
}

func TestExploreUnitWorkStopsAtNodeLimitWithoutExitOnBetter(t *testing.T) {
	app := &fakeApp{maxDepth: 100}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	sub := NewSubtree(root, BestFirst, AlwaysDive)
	sink := &fakeSink{}

	status, stats, err := sub.ExploreUnitWork(sink, newIndexer(), 3, 0, false, false, true)
	require.NoError(t, err)

	assert.Equal(t, StatusUnitNodeLimit, status)
	assert.False(t, stats.FoundBetter)
	assert.Empty(t, sink.added)
}

func TestExploreUnitWorkSpillsDiveOnNonPoolEmptyExit(t *testing.T) {
	app := &fakeApp{maxDepth: 100}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	sub := NewSubtree(root, Hybrid, AlwaysDive)
	sink := &fakeSink{}

	_, _, err := sub.ExploreUnitWork(sink, newIndexer(), 2, 0, false, false, true)
	require.NoError(t, err)

	assert.Equal(t, 0, sub.DivePool.Size(), "a non-PoolEmpty exit with leaveAsIt=false must spill the dive pool back")
	assert.Nil(t, sub.Active)
}

func TestExploreUnitWorkReturnsPoolEmptyWithinTimeBudget(t *testing.T) {
	app := &fakeApp{maxDepth: 0}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	root.Status = Fathomed
	sub := &Subtree{Root: root, Pool: NewNodePool(BestFirstLess), DivePool: NewNodePool(BestFirstLess), strategy: BestFirst, diveStop: AlwaysDive}
	sink := &fakeSink{}

	status, _, err := sub.ExploreUnitWork(sink, newIndexer(), 10, time.Second, false, false, true)
	require.NoError(t, err)
	assert.Equal(t, StatusPoolEmpty, status)
}

func TestRampUpAddsSolutionOnImmediateFathom(t *testing.T) {
	app := &fakeApp{maxDepth: -1, best: -100}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	sub := NewSubtree(root, BestFirst, AlwaysDive)
	sink := &fakeSink{}

	numProcessed, err := sub.RampUp(sink, newIndexer(), 1, 5)
	require.NoError(t, err)

	assert.Equal(t, 1, numProcessed)
	require.Len(t, sink.added, 1, "RampUp must report a FoundBetter node to the sink just like ExploreUnitWork")
	assert.Equal(t, 0, sink.added[0].Value.(*fakeSolution).value)
}

func TestRampUpGrowsPoolTowardTarget(t *testing.T) {
	app := &fakeApp{maxDepth: 10}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	sub := NewSubtree(root, BestFirst, AlwaysDive)
	sink := &fakeSink{}

	numProcessed, err := sub.RampUp(sink, newIndexer(), 2, 4)
	require.NoError(t, err)

	assert.Greater(t, numProcessed, 0)
	assert.GreaterOrEqual(t, sub.Pool.Size()+sub.DivePool.Size(), 2)
}

func TestSplitSubTreeChoosesAncestorExceedingThreshold(t *testing.T) {
	app := &fakeApp{}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	require.NoError(t, root.SetStatus(Pregnant))

	a := &Node{Index: 1, ParentIndex: 0, Parent: root, Depth: 1, Desc: &fakeDesc{value: 1}, App: app, Status: Pregnant}
	b := &Node{Index: 2, ParentIndex: 0, Parent: root, Depth: 1, Desc: &fakeDesc{value: 2}, App: app, Status: Candidate, Quality: -2}
	root.Children = []*Node{a, b}
	root.NumChildren = 2

	a1 := &Node{Index: 3, ParentIndex: 1, Parent: a, Depth: 2, Desc: &fakeDesc{value: 3}, App: app, Status: Candidate, Quality: -3}
	a2 := &Node{Index: 4, ParentIndex: 1, Parent: a, Depth: 2, Desc: &fakeDesc{value: 4}, App: app, Status: Candidate, Quality: -4}
	a.Children = []*Node{a1, a2}
	a.NumChildren = 2

	sub := NewSubtree(nil, BestFirst, AlwaysDive)
	sub.Root = root
	sub.Pool.Push(a1)
	sub.Pool.Push(a2)
	sub.Pool.Push(b)

	newSub, outSize, err := sub.SplitSubTree(1 << 30)
	require.NoError(t, err)
	require.NotNil(t, newSub, "the lowest-quality leaf's subtree should exceed the one-sixth-of-total threshold at ancestor a")

	assert.Equal(t, 3, outSize)
	assert.Same(t, a, newSub.Root)
	assert.Nil(t, a.Parent)
	assert.Len(t, root.Children, 1)
	assert.Same(t, b, root.Children[0])
	assert.Equal(t, 1, sub.Pool.Size(), "only b should remain in the donor subtree's pool")
	assert.Equal(t, 3, newSub.Pool.Size(), "a, a1, a2 should all have moved to the donated subtree's pool")
}

func TestSplitSubTreeReturnsNilWhenPoolEmpty(t *testing.T) {
	app := &fakeApp{}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	sub := NewSubtree(root, BestFirst, AlwaysDive)
	// root is Candidate so NewSubtree already pushed it; pop it out to
	// leave the pool genuinely empty.
	sub.Pool.Pop()

	newSub, outSize, err := sub.SplitSubTree(1 << 30)
	require.NoError(t, err)
	assert.Nil(t, newSub)
	assert.Equal(t, 0, outSize)
}

func TestSubtreeEncodeDecodeRoundTrips(t *testing.T) {
	app := &fakeApp{}
	root := NewRootNode(0, &fakeDesc{value: 0}, app)
	require.NoError(t, root.SetStatus(Pregnant))

	c1 := &Node{Index: 1, ParentIndex: 0, Parent: root, Depth: 1, Desc: &fakeDesc{value: 1}, App: app, Status: Candidate, Quality: -1}
	c2 := &Node{Index: 2, ParentIndex: 0, Parent: root, Depth: 1, Desc: &fakeDesc{value: 2}, App: app, Status: Candidate, Quality: -2}
	root.Children = []*Node{c1, c2}
	root.NumChildren = 2

	sub := NewSubtree(nil, BestFirst, AlwaysDive)
	sub.Root = root
	sub.Pool.Push(c1)
	sub.DivePool.Push(c2)

	buf := encoded.New("subtree")
	sub.Encode(buf)

	decBuf := encoded.NewFromBytes("subtree", buf.Bytes())
	decoded, err := DecodeSubtree(decBuf, app, decodeFakeDesc, AlwaysDive)
	require.NoError(t, err)

	require.NotNil(t, decoded.Root)
	assert.Equal(t, 0, decoded.Root.Index)
	require.Len(t, decoded.Root.Children, 2)

	require.Equal(t, 1, decoded.Pool.Size())
	assert.Equal(t, 1, decoded.Pool.Items()[0].Index)
	assert.Equal(t, 1, decoded.Pool.Items()[0].Desc.(*fakeDesc).value)

	require.Equal(t, 1, decoded.DivePool.Size())
	assert.Equal(t, 2, decoded.DivePool.Items()[0].Index)
	assert.Equal(t, 2, decoded.DivePool.Items()[0].Desc.(*fakeDesc).value)
}
