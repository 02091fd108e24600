// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import "container/heap"

// SubtreeLess orders whole Subtrees for the subtree pool: the
// tree-selector half of a strategy pair.
type SubtreeLess func(x, y *Subtree) bool

type subtreeHeap struct {
	items []*Subtree
	less SubtreeLess
}

func (h *subtreeHeap) Len() int { return len(h.items) }
func (h *subtreeHeap) Less(i, j int) bool { return h.less(h.items[i], h.items[j]) }
func (h *subtreeHeap) Swap(i, j int) { h.items[i], h.items[j] = h.items[j], h.items[i] }
func (h *subtreeHeap) Push(x interface{}) { h.items = append(h.items, x.(*Subtree)) }
func (h *subtreeHeap) Pop() interface{} {
	old := h.items
	n := len(old)
	item := old[n-1]
	old[n-1] = nil
	h.items = old[:n-1]
	return item
}

// SubtreeBestFirstLess is the default subtree comparator: prefer the
// subtree whose cached aggregate Quality is smaller.
func SubtreeBestFirstLess(x, y *Subtree) bool { return x.Quality() < y.Quality() }

// SubtreePool is a priority queue of whole Subtrees,
// analogous to NodePool but one level up — it holds pieces of the tree
// exchanged between workers/hubs rather than individual nodes.
type SubtreePool struct {
	h *subtreeHeap
}

// NewSubtreePool returns an empty pool ordered by less.
func NewSubtreePool(less SubtreeLess) *SubtreePool {
	return &SubtreePool{h: &subtreeHeap{less: less}}
}

func (p *SubtreePool) Push(s *Subtree) { heap.Push(p.h, s) }

func (p *SubtreePool) Pop() *Subtree {
	if p.h.Len() == 0 {
		return nil
	}
	return heap.Pop(p.h).(*Subtree)
}

func (p *SubtreePool) Top() *Subtree {
	if p.h.Len() == 0 {
		return nil
	}
	return p.h.items[0]
}

func (p *SubtreePool) Size() int { return p.h.Len() }

func (p *SubtreePool) Clear() { p.h.items = nil }

func (p *SubtreePool) Items() []*Subtree { return p.h.items }

// BestQuality scans the pool (same caveat as NodePool.BestQuality).
func (p *SubtreePool) BestQuality() (float64, bool) {
	if p.h.Len() == 0 {
		return 0, false
	}
	best := p.h.items[0].Quality()
	for _, s := range p.h.items[1:] {
		if q := s.Quality(); q < best {
			best = q
		}
	}
	return best, true
}

func (p *SubtreePool) SetComparator(less SubtreeLess) {
	p.h.less = less
	heap.Init(p.h)
}
