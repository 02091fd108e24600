// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import "container/heap"

// NodeLess is a comparator strategy: it reports whether x should be
// popped before y. The broker installs one at startup and swaps it
// when transitioning from ramp-up (always BestFirst) to search
// (the user-configured rule).
type NodeLess func(x, y *Node) bool

// nodeHeap is the container/heap.Interface backing NodePool. Using the
// standard library's heap here (rather than a hand-rolled binary heap)
// is the idiomatic choice for an ordered priority queue — see
// DESIGN.md for why no third-party priority-queue library was wired
// in here instead.
type nodeHeap struct {
	items []*Node
	less NodeLess
}

func (h *nodeHeap) Len() int { return len(h.items) }
func (h *nodeHeap) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *nodeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *nodeHeap) Push(x interface{}) { h.items = append(h.items, x.(*Node)) }
func (h *nodeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

// BestFirstLess is the default comparator (quality ascending) used
// both for ramp-up and as NodePool.BestQuality's scanning order
// regardless of the currently installed comparator.
func BestFirstLess(x, y *Node) bool { return x.Quality < y.Quality }

// NodePool is a priority queue of candidate TreeNodes under a pluggable
// comparator. The zero value is not usable; use NewNodePool.
type NodePool struct {
	h *nodeHeap
}

// NewNodePool returns an empty NodePool ordered by less.
func NewNodePool(less NodeLess) *NodePool {
	return &NodePool{h: &nodeHeap{less: less}}
}

// Push inserts n, preserving the heap invariant under the active
// comparator.
func (p *NodePool) Push(n *Node) {
	heap.Push(p.h, n)
}

// Pop removes and returns the top element, or nil if the pool is empty.
func (p *NodePool) Pop() *Node {
	if p.h.Len() == 0 {
		return nil
	}
	return heap.Pop(p.h).(*Node)
}

// Top returns the top element without removing it, or nil if empty.
// Invariant (property 7): Top().Quality <= every other element's
// quality under the comparator active since the last push.
func (p *NodePool) Top() *Node {
	if p.h.Len() == 0 {
		return nil
	}
	return p.h.items[0]
}

// Size returns the number of nodes currently pooled.
func (p *NodePool) Size() int { return p.h.Len() }

// Clear empties the pool without processing its contents (used on
// forceTerminate, "Cancellation": drain without processing).
func (p *NodePool) Clear() {
	p.h.items = nil
}

// Items returns the pool's contents in arbitrary (heap) order; used by
// the dive-pool spill and by splitSubTree's partition step.
func (p *NodePool) Items() []*Node {
	return p.h.items
}

// BestQuality scans the whole container and returns the minimal quality
// present, independent of the currently active comparator: it must not
// assume the top is the best under the default ordering. Returns
// (0, false) if empty.
func (p *NodePool) BestQuality() (float64, bool) {
	if p.h.Len() == 0 {
		return 0, false
	}
	best := p.h.items[0].Quality
	for _, n := range p.h.items[1:] {
		if n.Quality < best {
			best = n.Quality
		}
	}
	return best, true
}

// BestNode scans for the node with minimal quality (same caveat as
// BestQuality).
func (p *NodePool) BestNode() *Node {
	if p.h.Len() == 0 {
		return nil
	}
	best := p.h.items[0]
	for _, n := range p.h.items[1:] {
		if n.Quality < best.Quality {
			best = n
		}
	}
	return best
}

// SetComparator installs less and eagerly reheapifies in O(n).
func (p *NodePool) SetComparator(less NodeLess) {
	p.h.less = less
	heap.Init(p.h)
}

// Remove deletes the node at heap index i, pulling a specific node out
// of the pool by identity rather than by priority (splitSubTree rebuilds
// the pool instead of calling it). Returns false if i is out of range.
func (p *NodePool) Remove(i int) bool {
	if i < 0 || i >= p.h.Len() {
		return false
	}
	heap.Remove(p.h, i)
	return true
}

// IndexOf returns the heap-slice position of n, or -1 if not present.
// O(size); used only by the (already O(n)) splitSubTree partition.
func (p *NodePool) IndexOf(n *Node) int {
	for i, x := range p.h.items {
		if x == n {
			return i
		}
	}
	return -1
}
