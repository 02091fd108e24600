// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package broker

import (
	"fmt"
	"time"

	"github.com/oss-hpc/alpsearch/pkg/index"
	"github.com/oss-hpc/alpsearch/pkg/searchtree"
)

// SerialResult is what a single-process run produces: the best solution
// found (if any), cumulative exploration stats, and wall-clock elapsed
// time — the same figures a distributed run's ledger entry records, but
// gathered without any messaging at all.
type SerialResult struct {
	Best *searchtree.Solution
	Stats searchtree.UnitStats
	Elapsed time.Duration
	ExitedOn searchtree.ExitStatus
}

// SerialBroker drives one subtree to completion on a single process
// with no transport, no allocator bands, and no peer processes — the
// degenerate nprocs=1 case, and a standalone component useful on its
// own for quick local runs or as the reference for checking a
// distributed run's quality against.
type SerialBroker struct {
	model searchtree.Model
	params Params
	subtree *searchtree.Subtree
	solution *searchtree.SolutionPool
	next int
}

// NewSerialBroker builds a SerialBroker around a freshly created root.
func NewSerialBroker(model searchtree.Model, params Params) (*SerialBroker, error) {
	root, err := searchtree.CreateNewTreeNode(0, model)
	if err != nil {
		return nil, fmt.Errorf("broker: serial root: %w", err)
	}
	return &SerialBroker{
		model: model,
		params: params,
		subtree: searchtree.NewSubtree(root, params.SearchStrategy, params.DiveStop),
		solution: searchtree.NewSolutionPool(params.SolLimit),
		next: 1,
	}, nil
}

func (s *SerialBroker) nextIndex() (int, error) {
	if s.next >= index.IntMax {
		return 0, fmt.Errorf("broker: serial run exhausted node indices")
	}
	idx := s.next
	s.next++
	return idx, nil
}

// Run repeatedly calls ExploreUnitWork until the pool is exhausted or
// the tree is proven unbounded/infeasible, accumulating stats across
// calls the way a worker's loop would across many ticks, minus the
// ramp-up, reporting, and balancing that only matter with peers.
func (s *SerialBroker) Run() (SerialResult, error) {
	start := time.Now()
	sink := serialSink{s.solution}

	var total searchtree.UnitStats
	for {
		status, stats, err := s.subtree.ExploreUnitWork(
			sink, s.nextIndex,
			s.params.UnitWorkNodes, 0,
			false, true, s.params.DeleteDeadNode,
		)
		if err != nil {
			return SerialResult{}, err
		}
		total.NumProcessed += stats.NumProcessed
		total.NumBranched += stats.NumBranched
		total.NumDiscarded += stats.NumDiscarded
		total.NumFathomed += stats.NumFathomed
		total.NumPartial += stats.NumPartial
		if stats.MaxDepth > total.MaxDepth {
			total.MaxDepth = stats.MaxDepth
		}
		total.FoundBetter = total.FoundBetter || stats.FoundBetter

		if status == searchtree.StatusPoolEmpty || status == searchtree.StatusUnbounded || status == searchtree.StatusInfeasible {
			return SerialResult{
				Best: s.solution.Best(),
				Stats: total,
				Elapsed: time.Since(start),
				ExitedOn: status,
			}, nil
		}
	}
}

type serialSink struct{ pool *searchtree.SolutionPool }

func (s serialSink) AddSolution(sol *searchtree.Solution) bool {
	return s.pool.Add(sol)
}
