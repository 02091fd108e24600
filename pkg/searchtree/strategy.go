// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

// Strategy names the five enumerated node-selection strategies.
type Strategy int

const (
	BestFirst Strategy = iota
	BreadthFirst
	DepthFirst
	BestEstimate
	Hybrid
)

func (s Strategy) String() string {
	switch s {
	case BestFirst:
		return "BestFirst"
	case BreadthFirst:
		return "BreadthFirst"
	case DepthFirst:
		return "DepthFirst"
	case BestEstimate:
		return "BestEstimate"
	case Hybrid:
		return "Hybrid"
	default:
		return "Unknown"
	}
}

// NodeComparator returns the node-level comparator for s (the "prefer X
// over Y when" column of table). Hybrid shares BestFirst's
// comparator; its distinguishing behavior lives in the dive-pool
// consumption order, implemented by Subtree.selectNode rather than by
// the comparator itself.
func NodeComparator(s Strategy) NodeLess {
	switch s {
	case BestFirst, Hybrid:
		return func(x, y *Node) bool { return x.Quality < y.Quality }
	case BreadthFirst:
		return func(x, y *Node) bool { return x.Depth < y.Depth }
	case DepthFirst:
		return func(x, y *Node) bool { return x.Depth > y.Depth }
	case BestEstimate:
		return func(x, y *Node) bool { return x.SolEstimate < y.SolEstimate }
	default:
		return BestFirstLess
	}
}

// SubtreeComparator returns the subtree-level comparator for s. The
// subtree-selection strategy is simpler than the node-selection
// one: every strategy orders subtrees by their cached aggregate
// quality, since depth/estimate orderings only make sense node-locally.
func SubtreeComparator(s Strategy) SubtreeLess {
	return SubtreeBestFirstLess
}

// DiveStopPredicate decides, for the Hybrid strategy's node-selector,
// whether the current dive streak should end and its dive pool should
// be spilled back into the main pool. The source's predicate is
// stubbed to always return true; this package leaves the decision to
// the caller via this hook so an application or the engine's
// diveStopRule config parameter can resolve it.
type DiveStopPredicate func(stats DiveStats) bool

// DiveStats describes the current dive streak at the moment the
// predicate is consulted.
type DiveStats struct {
	DiveDepth int // nodes processed in this streak so far
	SinceImprovement int // nodes processed since the last incumbent update
	DivePoolSize int // nodes currently waiting in the dive pool
}

// AlwaysDive never stops a dive streak early; a streak ends only when
// the dive pool empties. It is this package's default.
func AlwaysDive(DiveStats) bool { return false }
