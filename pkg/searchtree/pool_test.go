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

func nodeWithQuality(index int, quality float64, depth int) *Node {
	return &Node{Index: index, Quality: quality, Depth: depth, Status: Candidate}
}

func TestNodePoolBestFirstOrdering(t *testing.T) {
	p := NewNodePool(BestFirstLess)
	p.Push(nodeWithQuality(1, 5, 0))
	p.Push(nodeWithQuality(2, 1, 0))
	p.Push(nodeWithQuality(3, 3, 0))

	require.Equal(t, 3, p.Size())
	assert.Equal(t, 2, p.Top().Index)
	assert.Equal(t, 2, p.Pop().Index)
	assert.Equal(t, 3, p.Pop().Index)
	assert.Equal(t, 1, p.Pop().Index)
	assert.Nil(t, p.Pop())
}

func TestNodePoolCustomComparator(t *testing.T) {
	byDepthDesc := func(x, y *Node) bool { return x.Depth > y.Depth }
	p := NewNodePool(byDepthDesc)
	p.Push(nodeWithQuality(1, 0, 1))
	p.Push(nodeWithQuality(2, 0, 5))
	p.Push(nodeWithQuality(3, 0, 3))

	assert.Equal(t, 2, p.Pop().Index)
	assert.Equal(t, 3, p.Pop().Index)
	assert.Equal(t, 1, p.Pop().Index)
}

func TestNodePoolSetComparatorReheapifies(t *testing.T) {
	p := NewNodePool(BestFirstLess)
	p.Push(nodeWithQuality(1, 5, 0))
	p.Push(nodeWithQuality(2, 1, 0))
	p.Push(nodeWithQuality(3, 3, 0))

	p.SetComparator(func(x, y *Node) bool { return x.Quality > y.Quality })
	assert.Equal(t, 1, p.Top().Index, "after swapping to descending quality, the largest quality should be on top")
}

func TestNodePoolBestQualityIndependentOfComparator(t *testing.T) {
	// Install a comparator where the heap top is not the minimal-quality
	// node, and confirm BestQuality/BestNode still scan for the true
	// minimum rather than trusting the heap top.
	byDepth := func(x, y *Node) bool { return x.Depth < y.Depth }
	p := NewNodePool(byDepth)
	p.Push(nodeWithQuality(1, 10, 2))
	p.Push(nodeWithQuality(2, 1, 0))
	p.Push(nodeWithQuality(3, 5, 1))

	assert.NotEqual(t, 1.0, p.Top().Quality, "heap top under byDepth should not already be the minimal quality")

	q, ok := p.BestQuality()
	require.True(t, ok)
	assert.Equal(t, 1.0, q)
	assert.Equal(t, 2, p.BestNode().Index)
}

func TestNodePoolEmptyBestQuality(t *testing.T) {
	p := NewNodePool(BestFirstLess)
	_, ok := p.BestQuality()
	assert.False(t, ok)
	assert.Nil(t, p.BestNode())
}

func TestNodePoolClear(t *testing.T) {
	p := NewNodePool(BestFirstLess)
	p.Push(nodeWithQuality(1, 1, 0))
	p.Clear()
	assert.Equal(t, 0, p.Size())
	assert.Nil(t, p.Pop())
}

func TestNodePoolRemoveAndIndexOf(t *testing.T) {
	p := NewNodePool(BestFirstLess)
	target := nodeWithQuality(2, 1, 0)
	p.Push(nodeWithQuality(1, 5, 0))
	p.Push(target)
	p.Push(nodeWithQuality(3, 3, 0))

	i := p.IndexOf(target)
	require.GreaterOrEqual(t, i, 0)
	assert.True(t, p.Remove(i))
	assert.Equal(t, -1, p.IndexOf(target))
	assert.Equal(t, 2, p.Size())
}

func TestNodePoolRemoveOutOfRange(t *testing.T) {
	p := NewNodePool(BestFirstLess)
	assert.False(t, p.Remove(0))
	assert.False(t, p.Remove(-1))
}

func TestSubtreePoolBestFirstOrdering(t *testing.T) {
	p := NewSubtreePool(SubtreeBestFirstLess)
	a := &Subtree{Root: &Node{Quality: 5}, qualityValid: true, quality: 5}
	b := &Subtree{Root: &Node{Quality: 1}, qualityValid: true, quality: 1}
	p.Push(a)
	p.Push(b)

	assert.Same(t, b, p.Top())
	assert.Same(t, b, p.Pop())
	assert.Same(t, a, p.Pop())
}

func TestSubtreePoolBestQuality(t *testing.T) {
	p := NewSubtreePool(SubtreeBestFirstLess)
	_, ok := p.BestQuality()
	assert.False(t, ok)

	p.Push(&Subtree{qualityValid: true, quality: 4})
	p.Push(&Subtree{qualityValid: true, quality: -2})
	q, ok := p.BestQuality()
	require.True(t, ok)
	assert.Equal(t, -2.0, q)
}
