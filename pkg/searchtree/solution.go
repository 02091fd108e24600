// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import (
	"sort"

	"github.com/oss-hpc/alpsearch/pkg/encoded"
)

// AppSolution is the application-typed incumbent value: its quality
// and its encoding. The index/depth at which it was discovered are kept
// on the Solution wrapper below.
type AppSolution interface {
	Quality() float64
	Encode(buf *encoded.Buffer)
}

// Solution wraps an AppSolution with the metadata the core needs for
// ordering and reporting: the node index and depth where it was
// discovered, and — for distributed runs — the id of the originating
// process, used by incumbent propagation's (quality, originId)
// lexicographic tie-break.
type Solution struct {
	Value AppSolution
	Index int
	Depth int
	OriginID int
}

// Less implements the (quality, originId) lexicographic order used
// throughout incumbent comparisons (property 4).
func (s *Solution) Less(o *Solution) bool {
	if s.Value.Quality() != o.Value.Quality() {
		return s.Value.Quality() < o.Value.Quality()
	}
	return s.OriginID < o.OriginID
}

// SolutionPool is a bounded multiset of incumbents ordered by quality.
// Insertion keeps the pool sorted ascending by (quality, originId) and
// evicts the worst entries once the bound is exceeded.
type SolutionPool struct {
	bound int
	items []*Solution
}

// NewSolutionPool returns an empty pool bounded to at most `bound`
// solutions (bound <= 0 means unbounded).
func NewSolutionPool(bound int) *SolutionPool {
	return &SolutionPool{bound: bound}
}

// Add inserts sol, keeping the pool sorted, and reports whether sol is
// now the best (strict improvement or equal-quality smaller-id tie,
// matching adoption rule) known solution in the pool.
func (p *SolutionPool) Add(sol *Solution) (isNewBest bool) {
	wasBest := p.Best()
	p.items = append(p.items, sol)
	sort.Slice(p.items, func(i, j int) bool { return p.items[i].Less(p.items[j]) })
	if p.bound > 0 && len(p.items) > p.bound {
		p.items = p.items[:p.bound]
	}
	best := p.Best()
	return best == sol && (wasBest == nil || sol.Less(wasBest))
}

// Best returns the highest-quality solution in the pool, or nil.
func (p *SolutionPool) Best() *Solution {
	if len(p.items) == 0 {
		return nil
	}
	return p.items[0]
}

// Size returns the number of solutions currently pooled.
func (p *SolutionPool) Size() int { return len(p.items) }

// All returns the pool contents, best-first.
func (p *SolutionPool) All() []*Solution { return p.items }
