// Copyright (C) NHR@FAU, University Erlangen-Nuremberg.
// All rights reserved. This file is part of alpsearch.
// Use of this source code is governed by a MIT-style
// license that can be found in the LICENSE file.
package searchtree

import "github.com/oss-hpc/alpsearch/pkg/encoded"

// fakeDesc is a minimal NodeDesc for package-internal tests: a single
// integer "value". fakeApp below branches a node into two children that
// both carry value+1, and fathoms once the value reaches its depth cap.
type fakeDesc struct {
	value int
}

func (d *fakeDesc) Encode(buf *encoded.Buffer) { buf.WriteInt32(int32(d.value)) }
func (d *fakeDesc) Clone() NodeDesc            { return &fakeDesc{value: d.value} }
func (d *fakeDesc) Explicit() bool             { return true }
func (d *fakeDesc) SetExplicit(bool)           {}

func decodeFakeDesc(buf *encoded.Buffer, explicit bool) (NodeDesc, error) {
	v, err := buf.ReadInt32()
	if err != nil {
		return nil, err
	}
	return &fakeDesc{value: int(v)}, nil
}

// fakeSolution is a minimal AppSolution: quality is just -value (so
// larger values are "better", mirroring knapsack's maximize-via-negate
// convention).
type fakeSolution struct {
	value int
}

func (s *fakeSolution) Quality() float64        { return -float64(s.value) }
func (s *fakeSolution) Encode(buf *encoded.Buffer) { buf.WriteInt32(int32(s.value)) }

// fakeApp is a toy AppNode: a node branches (Pregnant) while its value
// is below maxDepth, fathoming otherwise and reporting FoundBetter
// whenever its value exceeds the best value seen so far.
type fakeApp struct {
	maxDepth int
	best     int
	// processed records every node index Process was called on, in
	// call order — used to assert traversal order in tests.
	processed []int
}

func (a *fakeApp) Process(n *Node, isRoot, ramp bool) (ProcessResult, error) {
	a.processed = append(a.processed, n.Index)
	d := n.Desc.(*fakeDesc)
	n.SolEstimate = -float64(d.value)
	if d.value >= a.maxDepth {
		n.Quality = -float64(d.value)
		found := d.value > a.best
		if found {
			a.best = d.value
		}
		if err := n.SetStatus(Fathomed); err != nil {
			return ProcessResult{}, err
		}
		return ProcessResult{FoundBetter: found}, nil
	}
	n.Quality = -float64(d.value)
	if err := n.SetStatus(Pregnant); err != nil {
		return ProcessResult{}, err
	}
	return ProcessResult{}, nil
}

func (a *fakeApp) Branch(n *Node) ([]ChildSpec, error) {
	d := n.Desc.(*fakeDesc)
	return []ChildSpec{
		{Desc: &fakeDesc{value: d.value + 1}, Status: Candidate, Quality: n.Quality},
		{Desc: &fakeDesc{value: d.value + 1}, Status: Candidate, Quality: n.Quality},
	}, nil
}

func (a *fakeApp) Encode(n *Node, buf *encoded.Buffer) {}

func (a *fakeApp) Solution(n *Node) (AppSolution, error) {
	d := n.Desc.(*fakeDesc)
	return &fakeSolution{value: d.value}, nil
}

// fakeSink is a SolutionSink that just records every solution handed
// to it, so tests can assert AddSolution was actually called.
type fakeSink struct {
	added []*Solution
}

func (s *fakeSink) AddSolution(sol *Solution) bool {
	s.added = append(s.added, sol)
	return true
}

func newIndexer() func() (int, error) {
	next := 1
	return func() (int, error) {
		idx := next
		next++
		return idx, nil
	}
}
