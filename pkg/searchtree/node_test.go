// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewRootNodeHasNoParent(t *testing.T) {
	app := &fakeApp{maxDepth: 5}
	root := NewRootNode(1, &fakeDesc{value: 0}, app)
	assert.Equal(t, -1, root.ParentIndex)
	assert.Nil(t, root.Parent)
	assert.Equal(t, Candidate, root.Status)
}

func TestSetStatusLegalTransitions(t *testing.T) {
	n := NewRootNode(1, &fakeDesc{}, &fakeApp{})

	require.NoError(t, n.SetStatus(Candidate))
	require.NoError(t, n.SetStatus(Pregnant))
	require.NoError(t, n.SetStatus(Branched))
}

func TestSetStatusRejectsIllegalTransition(t *testing.T) {
	n := NewRootNode(1, &fakeDesc{}, &fakeApp{})
	require.NoError(t, n.SetStatus(Pregnant))
	require.NoError(t, n.SetStatus(Branched))

	err := n.SetStatus(Candidate)
	assert.Error(t, err)
}

func TestSetStatusEvaluatedSelfLoopIsLegal(t *testing.T) {
	n := NewRootNode(1, &fakeDesc{}, &fakeApp{})
	require.NoError(t, n.SetStatus(Evaluated))
	require.NoError(t, n.SetStatus(Evaluated))
}

func TestIsLeafCandidate(t *testing.T) {
	n := NewRootNode(1, &fakeDesc{}, &fakeApp{})
	assert.True(t, n.IsLeafCandidate())

	require.NoError(t, n.SetStatus(Pregnant))
	assert.True(t, n.IsLeafCandidate())

	require.NoError(t, n.SetStatus(Branched))
	assert.False(t, n.IsLeafCandidate())
}

func TestCreateChildrenRequiresPregnantParent(t *testing.T) {
	parent := NewRootNode(1, &fakeDesc{}, &fakeApp{})
	pool := NewNodePool(BestFirstLess)
	err := parent.CreateChildren([]ChildSpec{{Desc: &fakeDesc{}, Status: Candidate}}, pool, newIndexer(), true)
	assert.Error(t, err)
}

func TestCreateChildrenRejectsEmptyBranch(t *testing.T) {
	parent := NewRootNode(1, &fakeDesc{}, &fakeApp{})
	require.NoError(t, parent.SetStatus(Pregnant))
	pool := NewNodePool(BestFirstLess)
	err := parent.CreateChildren(nil, pool, newIndexer(), true)
	assert.Error(t, err)
}

func TestCreateChildrenWiresParentAndPushesLiveChildren(t *testing.T) {
	parent := NewRootNode(1, &fakeDesc{value: 0}, &fakeApp{})
	require.NoError(t, parent.SetStatus(Pregnant))
	pool := NewNodePool(BestFirstLess)

	triples := []ChildSpec{
		{Desc: &fakeDesc{value: 1}, Status: Candidate, Quality: -1},
		{Desc: &fakeDesc{value: 2}, Status: Candidate, Quality: -2},
	}
	require.NoError(t, parent.CreateChildren(triples, pool, newIndexer(), true))

	assert.Equal(t, Branched, parent.Status)
	assert.Len(t, parent.Children, 2)
	assert.Equal(t, 2, pool.Size())
	for _, c := range parent.Children {
		assert.Same(t, parent, c.Parent)
		assert.Equal(t, parent.Index, c.ParentIndex)
		assert.Equal(t, parent.Depth+1, c.Depth)
	}
}

func TestCreateChildrenPrunesTerminalChildWithoutPooling(t *testing.T) {
	parent := NewRootNode(1, &fakeDesc{value: 0}, &fakeApp{})
	require.NoError(t, parent.SetStatus(Pregnant))
	pool := NewNodePool(BestFirstLess)

	triples := []ChildSpec{
		{Desc: &fakeDesc{value: 1}, Status: Fathomed, Quality: -1},
	}
	require.NoError(t, parent.CreateChildren(triples, pool, newIndexer(), true))

	assert.Equal(t, 0, pool.Size())
	assert.Nil(t, parent.Children[0].Parent)
}

func TestPruneDeadChildPropagatesToBranchedParentWithNoLiveChildren(t *testing.T) {
	app := &fakeApp{}
	grandparent := NewRootNode(1, &fakeDesc{value: 0}, app)
	require.NoError(t, grandparent.SetStatus(Pregnant))
	pool := NewNodePool(BestFirstLess)
	idx := newIndexer()

	require.NoError(t, grandparent.CreateChildren([]ChildSpec{
		{Desc: &fakeDesc{value: 1}, Status: Pregnant, Quality: -1},
	}, pool, idx, true))
	parent := grandparent.Children[0]

	// parent branches into a single, already-terminal child: CreateChildren
	// sets parent to Branched (itself terminal) and prunes the dead child,
	// which must in turn detach parent from grandparent since parent now
	// has no live children left.
	require.NoError(t, parent.CreateChildren([]ChildSpec{
		{Desc: &fakeDesc{value: 2}, Status: Fathomed, Quality: -2},
	}, pool, idx, true))
	child := parent.Children[0]

	assert.Nil(t, child.Parent)
	assert.Nil(t, parent.Parent, "branched parent with no live children should be pruned from the grandparent too")
}

func TestPruneDeadChildPropagatesOnlyAfterAllSiblingsArePruned(t *testing.T) {
	// The branched parent here has two terminal children (knapsack's
	// 0/1 branch shape), pruned one after another within the same
	// CreateChildren call. The live count must survive across both
	// calls: after the first terminal child is pruned the other is
	// still live, so parent must stay attached; only once the second
	// (and last) child is pruned does parent's live-child count reach
	// zero and propagation reach grandparent.
	app := &fakeApp{}
	grandparent := NewRootNode(1, &fakeDesc{value: 0}, app)
	require.NoError(t, grandparent.SetStatus(Pregnant))
	pool := NewNodePool(BestFirstLess)
	idx := newIndexer()

	require.NoError(t, grandparent.CreateChildren([]ChildSpec{
		{Desc: &fakeDesc{value: 1}, Status: Pregnant, Quality: -1},
	}, pool, idx, true))
	parent := grandparent.Children[0]

	require.NoError(t, parent.CreateChildren([]ChildSpec{
		{Desc: &fakeDesc{value: 2}, Status: Fathomed, Quality: -2},
		{Desc: &fakeDesc{value: 3}, Status: Fathomed, Quality: -3},
	}, pool, idx, true))

	for _, c := range parent.Children {
		assert.Nil(t, c.Parent)
	}
	assert.Nil(t, parent.Parent, "parent must be pruned from grandparent once both of its children are dead, not just the first")
}

func TestPruneDeadChildNoopWhenDeleteDeadNodeFalse(t *testing.T) {
	parent := NewRootNode(1, &fakeDesc{value: 0}, &fakeApp{})
	require.NoError(t, parent.SetStatus(Pregnant))
	pool := NewNodePool(BestFirstLess)
	require.NoError(t, parent.CreateChildren([]ChildSpec{
		{Desc: &fakeDesc{value: 1}, Status: Fathomed, Quality: -1},
	}, pool, newIndexer(), false))

	child := parent.Children[0]
	assert.Same(t, parent, child.Parent, "deleteDeadNode=false must leave the parent link intact")
}
